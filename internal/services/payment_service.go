package services

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"strconv"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/example/techshop/internal/models"
)

// PaymentService owns the payment state machine. Both reconciliation entry
// points (the gateway webhook and the client-driven status poll) funnel
// through the same status mapping and the same conditional write, so they
// cannot diverge in interpretation and a terminal Success is never
// downgraded, no matter how the two race.
type PaymentService struct {
	db     *gorm.DB
	liqpay *LiqPayService
	email  *EmailService
}

// NewPaymentService constructs a PaymentService.
func NewPaymentService(db *gorm.DB, liqpay *LiqPayService, email *EmailService) *PaymentService {
	return &PaymentService{db: db, liqpay: liqpay, email: email}
}

// mapCallbackStatus is the canonical interpretation of gateway status strings
// on the webhook path. Unknown statuses fail safe.
func mapCallbackStatus(status string) models.PaymentStatus {
	switch status {
	case "success":
		return models.PaymentStatusSuccess
	case "failure":
		return models.PaymentStatusFailed
	case "processing":
		return models.PaymentStatusProcessing
	default:
		return models.PaymentStatusFailed
	}
}

// pollSuccessStatuses is the deliberately permissive set the poll path
// accepts as settled, reflecting sandbox and in-flight gateway semantics.
var pollSuccessStatuses = map[string]bool{
	"success":     true,
	"sandbox":     true,
	"wait_accept": true,
	"processing":  true,
}

// HandleCallback processes an asynchronous gateway webhook. An invalid
// signature is rejected with ErrInvalidSignature and zero state change;
// unauthenticated callbacks never mutate payment state.
func (s *PaymentService) HandleCallback(ctx context.Context, data, signature string) error {
	if !s.liqpay.VerifyCallback(data, signature) {
		return ErrInvalidSignature
	}

	payload, err := s.liqpay.DecodeCallback(data)
	if err != nil {
		return err
	}

	orderRef, _ := payload["order_id"].(string)
	orderID, err := uuid.Parse(orderRef)
	if err != nil {
		return fmt.Errorf("callback carries invalid order_id %q: %w", orderRef, err)
	}

	gatewayStatus, _ := payload["status"].(string)
	details, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("marshal callback details: %w", err)
	}

	return s.applyStatus(ctx, orderID, mapCallbackStatus(gatewayStatus), gatewayStatus, paymentIDOf(payload), details)
}

// VerifyPayment reconciles a payment by actively polling the gateway. A
// stored Success short-circuits. Gateway unavailability leaves the stored
// status untouched; an incomplete verification is never promoted.
func (s *PaymentService) VerifyPayment(ctx context.Context, orderID uuid.UUID) (models.PaymentStatus, error) {
	var payment models.Payment
	if err := s.db.WithContext(ctx).First(&payment, "order_id = ?", orderID).Error; err != nil {
		return 0, err
	}

	if payment.Status == models.PaymentStatusSuccess {
		return models.PaymentStatusSuccess, nil
	}

	result, err := s.liqpay.Status(ctx, orderID.String())
	if err != nil {
		return payment.Status, err
	}

	gatewayStatus, _ := result["status"].(string)
	if !pollSuccessStatuses[gatewayStatus] {
		return payment.Status, nil
	}

	details, err := json.Marshal(result)
	if err != nil {
		return payment.Status, fmt.Errorf("marshal status details: %w", err)
	}

	if err := s.applyStatus(ctx, orderID, models.PaymentStatusSuccess, gatewayStatus, paymentIDOf(result), details); err != nil {
		return payment.Status, err
	}

	return models.PaymentStatusSuccess, nil
}

// applyStatus writes the new status as a single conditional update keyed by
// order id. A Success write is allowed from any non-Success state; any other
// write is accepted only from the non-terminal states. Either way a stored
// Success can never regress.
func (s *PaymentService) applyStatus(ctx context.Context, orderID uuid.UUID, status models.PaymentStatus, gatewayStatus, paymentID string, details []byte) error {
	var payment models.Payment
	if err := s.db.WithContext(ctx).First(&payment, "order_id = ?", orderID).Error; err != nil {
		return err
	}

	if payment.Status == models.PaymentStatusSuccess {
		// Terminal success: reconciliation is a no-op.
		return nil
	}

	updates := map[string]any{
		"status":              status,
		"liq_pay_status":      gatewayStatus,
		"transaction_details": details,
		"processed_at":        time.Now(),
	}
	if paymentID != "" {
		updates["liq_pay_payment_id"] = paymentID
	}

	query := s.db.WithContext(ctx).Model(&models.Payment{}).Where("order_id = ?", orderID)
	if status == models.PaymentStatusSuccess {
		query = query.Where("status <> ?", models.PaymentStatusSuccess)
	} else {
		query = query.Where("status IN ?", []models.PaymentStatus{
			models.PaymentStatusPending,
			models.PaymentStatusProcessing,
		})
	}

	res := query.Updates(updates)
	if res.Error != nil {
		return res.Error
	}

	if res.RowsAffected > 0 && status == models.PaymentStatusSuccess {
		s.notifyPaymentSuccess(orderID)
	}

	return nil
}

// notifyPaymentSuccess sends the payment receipt in the background; failures
// are logged and never affect the reconciliation outcome.
func (s *PaymentService) notifyPaymentSuccess(orderID uuid.UUID) {
	if s.email == nil {
		return
	}

	go func() {
		var order models.Order
		if err := s.db.Preload("User").Preload("Payment").First(&order, "id = ?", orderID).Error; err != nil {
			log.Printf("[Payment] failed to load order %s for receipt: %v", orderID, err)
			return
		}
		if err := s.email.SendPaymentReceipt(&order); err != nil {
			log.Printf("[Payment] receipt email for order %s failed: %v", orderID, err)
		}
	}()
}

func paymentIDOf(payload map[string]any) string {
	switch v := payload["payment_id"].(type) {
	case string:
		return v
	case float64:
		return strconv.FormatInt(int64(v), 10)
	default:
		return ""
	}
}
