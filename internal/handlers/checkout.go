package handlers

import (
	"errors"
	"log"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/example/techshop/internal/middleware"
	"github.com/example/techshop/internal/models"
	"github.com/example/techshop/internal/services"
)

// CheckoutHandler exposes order commitment and the payment gateway surface:
// checkout, the hosted-checkout form payload, the webhook callback and the
// poll-driven status endpoint.
type CheckoutHandler struct {
	db       *gorm.DB
	checkout *services.CheckoutService
	payments *services.PaymentService
	liqpay   *services.LiqPayService
}

// NewCheckoutHandler constructs CheckoutHandler.
func NewCheckoutHandler(db *gorm.DB, checkout *services.CheckoutService, payments *services.PaymentService, liqpay *services.LiqPayService) *CheckoutHandler {
	return &CheckoutHandler{db: db, checkout: checkout, payments: payments, liqpay: liqpay}
}

type checkoutRequest struct {
	PaymentMethod         string     `json:"payment_method"`
	DeliveryMethod        string     `json:"delivery_method"`
	RecipientName         string     `json:"recipient_name"`
	RecipientPhone        string     `json:"recipient_phone"`
	Address               string     `json:"address"`
	City                  string     `json:"city"`
	NovaPoshtaBranch      string     `json:"nova_poshta_branch"`
	CarrierName           string     `json:"carrier_name"`
	PreferredDeliveryDate *time.Time `json:"preferred_delivery_date"`
	Notes                 string     `json:"notes"`
}

// ProcessOrder commits the user's cart into an order. Card orders receive
// the signed gateway checkout form alongside the order; cash orders are
// complete immediately.
func (h *CheckoutHandler) ProcessOrder(c *fiber.Ctx) error {
	userID, ok := middleware.GetCurrentUserID(c)
	if !ok {
		return fiber.NewError(fiber.StatusUnauthorized, "unauthorized")
	}

	var req checkoutRequest
	if err := c.BodyParser(&req); err != nil {
		return fiber.NewError(fiber.StatusBadRequest, "invalid request body")
	}

	paymentMethod, err := models.ParsePaymentMethod(req.PaymentMethod)
	if err != nil {
		return fiber.NewError(fiber.StatusBadRequest, err.Error())
	}
	deliveryMethod, err := models.ParseDeliveryMethod(req.DeliveryMethod)
	if err != nil {
		return fiber.NewError(fiber.StatusBadRequest, err.Error())
	}

	order, err := h.checkout.Commit(c.Context(), userID, services.CheckoutDetails{
		PaymentMethod:         paymentMethod,
		DeliveryMethod:        deliveryMethod,
		RecipientName:         req.RecipientName,
		RecipientPhone:        req.RecipientPhone,
		Address:               req.Address,
		City:                  req.City,
		NovaPoshtaBranch:      req.NovaPoshtaBranch,
		CarrierName:           req.CarrierName,
		PreferredDeliveryDate: req.PreferredDeliveryDate,
		Notes:                 req.Notes,
	})
	if err != nil {
		return writeCheckoutError(c, err)
	}

	response := fiber.Map{
		"success": true,
		"data":    order,
	}

	if paymentMethod == models.PaymentMethodCard {
		form, err := h.liqpay.BuildCheckout(order)
		if err != nil {
			// The order and its pending payment are already durable; the
			// client can re-request the form and reconcile later.
			log.Printf("[Checkout] failed to build gateway form for order %s: %v", order.ID, err)
		} else {
			response["checkout"] = form
		}
	}

	return c.Status(fiber.StatusCreated).JSON(response)
}

// PayOrder re-issues the gateway checkout form for a pending card order.
func (h *CheckoutHandler) PayOrder(c *fiber.Ctx) error {
	userID, ok := middleware.GetCurrentUserID(c)
	if !ok {
		return fiber.NewError(fiber.StatusUnauthorized, "unauthorized")
	}

	orderID, err := uuid.Parse(c.Params("orderId"))
	if err != nil {
		return fiber.NewError(fiber.StatusBadRequest, "invalid order id")
	}

	var order models.Order
	if err := h.db.Preload("Payment").Preload("Delivery").
		First(&order, "id = ? AND user_id = ?", orderID, userID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return fiber.NewError(fiber.StatusNotFound, "order not found")
		}
		return err
	}

	if order.Payment == nil || order.Payment.Method != models.PaymentMethodCard {
		return fiber.NewError(fiber.StatusBadRequest, "order is not payable by card")
	}
	if order.Payment.Status == models.PaymentStatusSuccess {
		return fiber.NewError(fiber.StatusConflict, "order is already paid")
	}

	form, err := h.liqpay.BuildCheckout(&order)
	if err != nil {
		return err
	}

	return c.JSON(fiber.Map{"success": true, "data": form})
}

// PaymentCallback receives the asynchronous gateway webhook. A failed
// signature check returns 400 with no state change.
func (h *CheckoutHandler) PaymentCallback(c *fiber.Ctx) error {
	data := c.FormValue("data")
	signature := c.FormValue("signature")

	if err := h.payments.HandleCallback(c.Context(), data, signature); err != nil {
		if errors.Is(err, services.ErrInvalidSignature) {
			log.Printf("[Payment] rejected callback with invalid signature")
			return fiber.NewError(fiber.StatusBadRequest, "invalid signature")
		}
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return fiber.NewError(fiber.StatusBadRequest, "unknown order")
		}
		return err
	}

	return c.SendStatus(fiber.StatusOK)
}

// PaymentStatus drives poll-based reconciliation for an order and reports
// the resulting payment status.
func (h *CheckoutHandler) PaymentStatus(c *fiber.Ctx) error {
	orderID, err := uuid.Parse(c.Params("orderId"))
	if err != nil {
		return fiber.NewError(fiber.StatusBadRequest, "invalid order id")
	}

	status, err := h.payments.VerifyPayment(c.Context(), orderID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return fiber.NewError(fiber.StatusNotFound, "payment not found")
		}
		if errors.Is(err, services.ErrGatewayUnavailable) {
			// The stored status stands; the client can poll again later.
			return c.JSON(fiber.Map{
				"success": true,
				"data":    fiber.Map{"order_id": orderID, "status": status.String(), "gateway_reachable": false},
			})
		}
		return err
	}

	return c.JSON(fiber.Map{
		"success": true,
		"data":    fiber.Map{"order_id": orderID, "status": status.String(), "paid": status == models.PaymentStatusSuccess},
	})
}

func writeCheckoutError(c *fiber.Ctx, err error) error {
	var validationErr *services.ValidationError
	if errors.As(err, &validationErr) {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"success": false,
			"error":   "validation failed",
			"fields":  validationErr.Fields,
		})
	}

	var stockErr *services.StockError
	if errors.As(err, &stockErr) {
		return c.Status(fiber.StatusConflict).JSON(fiber.Map{
			"success":    false,
			"error":      "insufficient stock",
			"shortfalls": stockErr.Shortfalls,
		})
	}

	if errors.Is(err, services.ErrEmptyCart) {
		return fiber.NewError(fiber.StatusBadRequest, "cart is empty")
	}

	return err
}
