package services

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/example/techshop/internal/models"
)

func TestDeliveryCost(t *testing.T) {
	tests := []struct {
		name   string
		method models.DeliveryMethod
		city   string
		want   float64
	}{
		{"self pickup is free", models.DeliveryMethodSelfPickup, "Київ", 0},
		{"nova poshta kyiv", models.DeliveryMethodNovaPoshta, "Київ", 60},
		{"nova poshta kyiv latin", models.DeliveryMethodNovaPoshta, "Kyiv", 60},
		{"nova poshta kyiv mixed case", models.DeliveryMethodNovaPoshta, "м. КИЇВ", 60},
		{"nova poshta other city", models.DeliveryMethodNovaPoshta, "Львів", 80},
		{"nova poshta empty city", models.DeliveryMethodNovaPoshta, "", 80},
		{"courier kyiv", models.DeliveryMethodCourier, "kyiv", 100},
		{"courier other city", models.DeliveryMethodCourier, "Одеса", 150},
		{"courier empty city", models.DeliveryMethodCourier, "", 150},
		{"unknown method", models.DeliveryMethod(99), "Київ", 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, DeliveryCost(tt.method, tt.city))
		})
	}
}
