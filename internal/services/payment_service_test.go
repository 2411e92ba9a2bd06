package services

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/example/techshop/internal/models"
)

func encodeCallback(t *testing.T, svc *LiqPayService, payload map[string]any) (data, signature string) {
	t.Helper()

	raw, err := json.Marshal(payload)
	require.NoError(t, err)
	data = base64.StdEncoding.EncodeToString(raw)
	return data, svc.Sign(data)
}

func TestHandleCallback_Success(t *testing.T) {
	db := openTestDB(t)
	liqpay := newTestLiqPay("")
	svc := NewPaymentService(db, liqpay, nil)

	user := createTestUser(t, db)
	order := seedOrder(t, db, user.ID, models.PaymentMethodCard, models.PaymentStatusPending)

	data, signature := encodeCallback(t, liqpay, map[string]any{
		"order_id":   order.ID.String(),
		"status":     "success",
		"payment_id": 12345,
	})
	require.NoError(t, svc.HandleCallback(context.Background(), data, signature))

	payment := loadPayment(t, db, order.ID)
	assert.Equal(t, models.PaymentStatusSuccess, payment.Status)
	assert.Equal(t, "success", payment.LiqPayStatus)
	assert.Equal(t, "12345", payment.LiqPayPaymentID)
	assert.NotNil(t, payment.ProcessedAt)
	assert.NotEmpty(t, payment.TransactionDetails)
}

func TestHandleCallback_InvalidSignature(t *testing.T) {
	db := openTestDB(t)
	liqpay := newTestLiqPay("")
	svc := NewPaymentService(db, liqpay, nil)

	user := createTestUser(t, db)
	order := seedOrder(t, db, user.ID, models.PaymentMethodCard, models.PaymentStatusPending)

	data, _ := encodeCallback(t, liqpay, map[string]any{
		"order_id": order.ID.String(),
		"status":   "success",
	})
	err := svc.HandleCallback(context.Background(), data, "forged")
	require.ErrorIs(t, err, ErrInvalidSignature)

	payment := loadPayment(t, db, order.ID)
	assert.Equal(t, models.PaymentStatusPending, payment.Status)
	assert.Empty(t, payment.LiqPayStatus)
	assert.Nil(t, payment.ProcessedAt)
}

func TestHandleCallback_StatusMapping(t *testing.T) {
	tests := []struct {
		gateway string
		want    models.PaymentStatus
	}{
		{"success", models.PaymentStatusSuccess},
		{"failure", models.PaymentStatusFailed},
		{"processing", models.PaymentStatusProcessing},
		{"err_cvv", models.PaymentStatusFailed},
		{"", models.PaymentStatusFailed},
	}

	for _, tt := range tests {
		t.Run("status "+tt.gateway, func(t *testing.T) {
			db := openTestDB(t)
			liqpay := newTestLiqPay("")
			svc := NewPaymentService(db, liqpay, nil)

			user := createTestUser(t, db)
			order := seedOrder(t, db, user.ID, models.PaymentMethodCard, models.PaymentStatusPending)

			data, signature := encodeCallback(t, liqpay, map[string]any{
				"order_id": order.ID.String(),
				"status":   tt.gateway,
			})
			require.NoError(t, svc.HandleCallback(context.Background(), data, signature))

			payment := loadPayment(t, db, order.ID)
			assert.Equal(t, tt.want, payment.Status)
			assert.Equal(t, tt.gateway, payment.LiqPayStatus)
		})
	}
}

func TestHandleCallback_NeverDowngradesSuccess(t *testing.T) {
	db := openTestDB(t)
	liqpay := newTestLiqPay("")
	svc := NewPaymentService(db, liqpay, nil)

	user := createTestUser(t, db)
	order := seedOrder(t, db, user.ID, models.PaymentMethodCard, models.PaymentStatusSuccess)

	data, signature := encodeCallback(t, liqpay, map[string]any{
		"order_id": order.ID.String(),
		"status":   "failure",
	})
	require.NoError(t, svc.HandleCallback(context.Background(), data, signature))

	payment := loadPayment(t, db, order.ID)
	assert.Equal(t, models.PaymentStatusSuccess, payment.Status)
}

func TestHandleCallback_UnknownOrder(t *testing.T) {
	db := openTestDB(t)
	liqpay := newTestLiqPay("")
	svc := NewPaymentService(db, liqpay, nil)

	data, signature := encodeCallback(t, liqpay, map[string]any{
		"order_id": "00000000-0000-0000-0000-000000000001",
		"status":   "success",
	})
	require.Error(t, svc.HandleCallback(context.Background(), data, signature))
}

func TestVerifyPayment_StoredSuccessShortCircuits(t *testing.T) {
	db := openTestDB(t)
	// The gateway URL is unreachable; a stored success must not need it.
	liqpay := newTestLiqPay("http://127.0.0.1:1")
	svc := NewPaymentService(db, liqpay, nil)

	user := createTestUser(t, db)
	order := seedOrder(t, db, user.ID, models.PaymentMethodCard, models.PaymentStatusSuccess)

	status, err := svc.VerifyPayment(context.Background(), order.ID)
	require.NoError(t, err)
	assert.Equal(t, models.PaymentStatusSuccess, status)
}

func TestVerifyPayment_PermissiveStatuses(t *testing.T) {
	for _, gateway := range []string{"success", "sandbox", "wait_accept", "processing"} {
		t.Run(gateway, func(t *testing.T) {
			db := openTestDB(t)

			server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				w.Header().Set("Content-Type", "application/json")
				_, _ = w.Write([]byte(`{"status":"` + gateway + `","payment_id":777}`))
			}))
			defer server.Close()

			liqpay := newTestLiqPay(server.URL)
			svc := NewPaymentService(db, liqpay, nil)

			user := createTestUser(t, db)
			order := seedOrder(t, db, user.ID, models.PaymentMethodCard, models.PaymentStatusPending)

			status, err := svc.VerifyPayment(context.Background(), order.ID)
			require.NoError(t, err)
			assert.Equal(t, models.PaymentStatusSuccess, status)

			payment := loadPayment(t, db, order.ID)
			assert.Equal(t, models.PaymentStatusSuccess, payment.Status)
			assert.Equal(t, gateway, payment.LiqPayStatus)
			assert.Equal(t, "777", payment.LiqPayPaymentID)
		})
	}
}

func TestVerifyPayment_NonSettledStatusKeepsStored(t *testing.T) {
	db := openTestDB(t)

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"status":"failure"}`))
	}))
	defer server.Close()

	liqpay := newTestLiqPay(server.URL)
	svc := NewPaymentService(db, liqpay, nil)

	user := createTestUser(t, db)
	order := seedOrder(t, db, user.ID, models.PaymentMethodCard, models.PaymentStatusPending)

	status, err := svc.VerifyPayment(context.Background(), order.ID)
	require.NoError(t, err)
	assert.Equal(t, models.PaymentStatusPending, status)

	payment := loadPayment(t, db, order.ID)
	assert.Equal(t, models.PaymentStatusPending, payment.Status)
}

func TestVerifyPayment_GatewayUnavailable(t *testing.T) {
	db := openTestDB(t)
	liqpay := newTestLiqPay("http://127.0.0.1:1")
	svc := NewPaymentService(db, liqpay, nil)

	user := createTestUser(t, db)
	order := seedOrder(t, db, user.ID, models.PaymentMethodCard, models.PaymentStatusPending)

	status, err := svc.VerifyPayment(context.Background(), order.ID)
	require.ErrorIs(t, err, ErrGatewayUnavailable)
	assert.Equal(t, models.PaymentStatusPending, status)

	// An unreachable gateway never promotes the stored status.
	payment := loadPayment(t, db, order.ID)
	assert.Equal(t, models.PaymentStatusPending, payment.Status)
}
