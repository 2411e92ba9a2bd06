package services

import (
	"context"
	"log"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/example/techshop/internal/models"
)

// DeliveryService owns the delivery state machine, independent of payment.
// Transitions move forward along Pending -> Processing -> Shipped ->
// Delivered; Cancelled is reachable from any non-terminal state.
type DeliveryService struct {
	db    *gorm.DB
	email *EmailService
}

// NewDeliveryService constructs a DeliveryService.
func NewDeliveryService(db *gorm.DB, email *EmailService) *DeliveryService {
	return &DeliveryService{db: db, email: email}
}

// UpdateStatus applies an administrative status change to an order's
// delivery. Re-applying the current status is an idempotent no-op; in
// particular DeliveredAt is set on the first transition into Delivered and
// never overwritten. Every applied change triggers a best-effort customer
// notification that cannot roll back the status write.
func (s *DeliveryService) UpdateStatus(ctx context.Context, orderID uuid.UUID, next models.DeliveryStatus) (*models.Delivery, error) {
	var delivery models.Delivery
	if err := s.db.WithContext(ctx).First(&delivery, "order_id = ?", orderID).Error; err != nil {
		return nil, err
	}

	if delivery.Status == next {
		return &delivery, nil
	}

	if !transitionAllowed(delivery.Status, next) {
		return nil, &TransitionError{From: delivery.Status, To: next}
	}

	updates := map[string]any{"status": next}
	if next == models.DeliveryStatusDelivered && delivery.DeliveredAt == nil {
		now := time.Now()
		updates["delivered_at"] = now
		delivery.DeliveredAt = &now
	}

	if err := s.db.WithContext(ctx).Model(&delivery).Updates(updates).Error; err != nil {
		return nil, err
	}
	delivery.Status = next

	s.notifyStatusChange(orderID)

	return &delivery, nil
}

// PendingDeliveries lists deliveries still awaiting fulfillment.
func (s *DeliveryService) PendingDeliveries(ctx context.Context) ([]models.Delivery, error) {
	var deliveries []models.Delivery
	err := s.db.WithContext(ctx).
		Where("status IN ?", []models.DeliveryStatus{
			models.DeliveryStatusPending,
			models.DeliveryStatusProcessing,
		}).
		Order("created_at asc").
		Find(&deliveries).Error
	return deliveries, err
}

func transitionAllowed(from, to models.DeliveryStatus) bool {
	if from.Terminal() {
		return false
	}
	if to == models.DeliveryStatusCancelled {
		return true
	}
	switch to {
	case models.DeliveryStatusProcessing, models.DeliveryStatusShipped, models.DeliveryStatusDelivered:
		return to > from
	default:
		return false
	}
}

func (s *DeliveryService) notifyStatusChange(orderID uuid.UUID) {
	if s.email == nil {
		return
	}

	var order models.Order
	if err := s.db.Preload("User").Preload("Delivery").First(&order, "id = ?", orderID).Error; err != nil {
		log.Printf("[Delivery] failed to load order %s for notification: %v", orderID, err)
		return
	}
	if err := s.email.SendDeliveryStatusUpdate(&order); err != nil {
		log.Printf("[Delivery] status notification for order %s failed: %v", orderID, err)
	}
}
