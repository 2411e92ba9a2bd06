package services

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/example/techshop/internal/models"
)

// CheckoutDetails is the validated input for committing a cart into an order.
type CheckoutDetails struct {
	PaymentMethod         models.PaymentMethod
	DeliveryMethod        models.DeliveryMethod
	RecipientName         string
	RecipientPhone        string
	Address               string
	City                  string
	NovaPoshtaBranch      string
	CarrierName           string
	PreferredDeliveryDate *time.Time
	Notes                 string
}

// CheckoutService converts a user's cart into a durable order with its
// payment and delivery rows. The whole commit (stock reservation, order
// insert, payment, delivery, cart clearing) runs in one transaction:
// a failure at any point leaves no rows and no stock decrement behind.
type CheckoutService struct {
	db              *gorm.DB
	ledger          *StockLedger
	cashAutoConfirm bool
}

// NewCheckoutService constructs a CheckoutService. When cashAutoConfirm is
// set, cash payments are settled at commit time instead of staying pending.
func NewCheckoutService(db *gorm.DB, ledger *StockLedger, cashAutoConfirm bool) *CheckoutService {
	return &CheckoutService{db: db, ledger: ledger, cashAutoConfirm: cashAutoConfirm}
}

// Commit places an order for everything in the user's cart.
//
// Precondition gates, in order: non-empty cart, delivery detail validation
// (all violations collected), stock reservation (all shortfalls collected).
// Only then are Order, OrderItems, Payment and Delivery created, prices
// snapshotted from the products at this moment, and the cart cleared.
func (s *CheckoutService) Commit(ctx context.Context, userID uuid.UUID, details CheckoutDetails) (*models.Order, error) {
	var cart models.Cart
	err := s.db.WithContext(ctx).
		Preload("Items.Product").
		First(&cart, "user_id = ?", userID).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrEmptyCart
		}
		return nil, err
	}
	if len(cart.Items) == 0 {
		return nil, ErrEmptyCart
	}

	if err := validateCheckout(cart, details); err != nil {
		return nil, err
	}

	var order models.Order
	err = s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		lines := make([]ReservationLine, 0, len(cart.Items))
		for _, item := range cart.Items {
			lines = append(lines, ReservationLine{ProductID: item.ProductID, Quantity: item.Quantity})
		}
		if err := s.ledger.Reserve(tx, lines); err != nil {
			return err
		}

		var total float64
		items := make([]models.OrderItem, 0, len(cart.Items))
		for _, item := range cart.Items {
			if item.Product == nil {
				return fmt.Errorf("cart item %s references missing product %s", item.ID, item.ProductID)
			}
			items = append(items, models.OrderItem{
				ProductID: item.ProductID,
				Quantity:  item.Quantity,
				UnitPrice: item.Product.Price,
			})
			total += float64(item.Quantity) * item.Product.Price
		}

		order = models.Order{
			UserID:      userID,
			Status:      models.OrderStatusNew,
			TotalAmount: total,
			Items:       items,
		}
		if err := tx.Create(&order).Error; err != nil {
			return err
		}

		deliveryCost := DeliveryCost(details.DeliveryMethod, details.City)

		payment := models.Payment{
			OrderID: order.ID,
			Method:  details.PaymentMethod,
			Status:  models.PaymentStatusPending,
			Amount:  total + deliveryCost,
		}
		if details.PaymentMethod == models.PaymentMethodCash && s.cashAutoConfirm {
			now := time.Now()
			payment.Status = models.PaymentStatusSuccess
			payment.ProcessedAt = &now
		}
		if err := tx.Create(&payment).Error; err != nil {
			return err
		}

		delivery := models.Delivery{
			OrderID:               order.ID,
			Method:                details.DeliveryMethod,
			Status:                models.DeliveryStatusPending,
			Cost:                  deliveryCost,
			RecipientName:         details.RecipientName,
			RecipientPhone:        details.RecipientPhone,
			Address:               details.Address,
			City:                  details.City,
			NovaPoshtaBranch:      details.NovaPoshtaBranch,
			CarrierName:           details.CarrierName,
			PreferredDeliveryDate: details.PreferredDeliveryDate,
			Notes:                 details.Notes,
		}
		if err := tx.Create(&delivery).Error; err != nil {
			return err
		}

		if err := tx.Where("cart_id = ?", cart.ID).Delete(&models.CartItem{}).Error; err != nil {
			return err
		}

		order.Payment = &payment
		order.Delivery = &delivery
		return nil
	})
	if err != nil {
		return nil, err
	}

	return &order, nil
}

func validateCheckout(cart models.Cart, details CheckoutDetails) error {
	var fields []FieldError

	for _, item := range cart.Items {
		if item.Quantity < 1 {
			fields = append(fields, FieldError{
				Field:   "items",
				Message: fmt.Sprintf("quantity for product %s must be at least 1", item.ProductID),
			})
		}
	}

	if !details.PaymentMethod.Valid() {
		fields = append(fields, FieldError{Field: "payment_method", Message: "unknown payment method"})
	}
	if !details.DeliveryMethod.Valid() {
		fields = append(fields, FieldError{Field: "delivery_method", Message: "unknown delivery method"})
	}
	if details.RecipientName == "" {
		fields = append(fields, FieldError{Field: "recipient_name", Message: "recipient name is required"})
	}
	if details.RecipientPhone == "" {
		fields = append(fields, FieldError{Field: "recipient_phone", Message: "recipient phone is required"})
	}

	if details.DeliveryMethod != models.DeliveryMethodSelfPickup && details.City == "" {
		fields = append(fields, FieldError{Field: "city", Message: "city is required for delivery"})
	}

	switch details.DeliveryMethod {
	case models.DeliveryMethodNovaPoshta:
		if details.NovaPoshtaBranch == "" {
			fields = append(fields, FieldError{Field: "nova_poshta_branch", Message: "Nova Poshta branch is required"})
		}
	case models.DeliveryMethodCourier:
		if details.Address == "" {
			fields = append(fields, FieldError{Field: "address", Message: "address is required for courier delivery"})
		}
		if details.PreferredDeliveryDate == nil {
			fields = append(fields, FieldError{Field: "preferred_delivery_date", Message: "preferred delivery date is required"})
		} else if !dayOf(*details.PreferredDeliveryDate).After(dayOf(time.Now().AddDate(0, 0, 1))) {
			fields = append(fields, FieldError{Field: "preferred_delivery_date", Message: "delivery is possible no earlier than 2 days from the order"})
		}
	}

	if len(fields) > 0 {
		return &ValidationError{Fields: fields}
	}
	return nil
}

func dayOf(t time.Time) time.Time {
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, t.Location())
}
