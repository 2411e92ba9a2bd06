package services

import (
	"strings"

	"github.com/example/techshop/internal/models"
)

// Delivery tariffs in UAH. The policy is evaluated exactly once, at order
// commit time; the result is persisted and later tariff changes never touch
// existing orders.
const (
	novaPoshtaKyivCost  = 60
	novaPoshtaOtherCost = 80
	courierKyivCost     = 100
	courierOtherCost    = 150
)

// DeliveryCost returns the fixed delivery cost for a method and destination
// city. The city match is a case-insensitive substring check for Kyiv;
// an empty city falls back to the out-of-town tariff. Unknown methods cost 0.
func DeliveryCost(method models.DeliveryMethod, city string) float64 {
	switch method {
	case models.DeliveryMethodSelfPickup:
		return 0
	case models.DeliveryMethodNovaPoshta:
		if isKyiv(city) {
			return novaPoshtaKyivCost
		}
		return novaPoshtaOtherCost
	case models.DeliveryMethodCourier:
		if isKyiv(city) {
			return courierKyivCost
		}
		return courierOtherCost
	default:
		return 0
	}
}

func isKyiv(city string) bool {
	if city == "" {
		return false
	}
	lower := strings.ToLower(city)
	return strings.Contains(lower, "київ") || strings.Contains(lower, "kyiv")
}
