package handlers

import (
	"errors"
	"log"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/example/techshop/internal/models"
	"github.com/example/techshop/internal/services"
	"github.com/example/techshop/internal/utils"
)

// AdminHandler exposes order administration and reporting.
type AdminHandler struct {
	db       *gorm.DB
	delivery *services.DeliveryService
	email    *services.EmailService
}

// NewAdminHandler constructs AdminHandler.
func NewAdminHandler(db *gorm.DB, delivery *services.DeliveryService, email *services.EmailService) *AdminHandler {
	return &AdminHandler{db: db, delivery: delivery, email: email}
}

// ListOrders returns all orders with aggregate dashboard statistics.
func (h *AdminHandler) ListOrders(c *fiber.Ctx) error {
	pg := utils.ParsePagination(c)
	query := h.db.Model(&models.Order{})

	if status := c.Query("status"); status != "" {
		parsed, err := models.ParseOrderStatus(status)
		if err != nil {
			return fiber.NewError(fiber.StatusBadRequest, err.Error())
		}
		query = query.Where("status = ?", parsed)
	}

	var total int64
	if err := query.Count(&total).Error; err != nil {
		return err
	}

	var orders []models.Order
	if err := query.
		Preload("User").Preload("Items.Product").Preload("Payment").Preload("Delivery").
		Order("created_at desc").
		Limit(pg.Limit).Offset(pg.Offset).
		Find(&orders).Error; err != nil {
		return err
	}

	stats, err := h.orderStats()
	if err != nil {
		return err
	}

	return c.JSON(fiber.Map{
		"success": true,
		"data":    orders,
		"stats":   stats,
		"pagination": fiber.Map{
			"current_page":   pg.Page,
			"items_per_page": pg.Limit,
			"total_items":    total,
		},
	})
}

type dailySales struct {
	Date  string  `json:"date"`
	Total float64 `json:"total"`
}

func (h *AdminHandler) orderStats() (fiber.Map, error) {
	var totalOrders int64
	if err := h.db.Model(&models.Order{}).Count(&totalOrders).Error; err != nil {
		return nil, err
	}

	var totalRevenue float64
	if err := h.db.Model(&models.Order{}).
		Select("COALESCE(SUM(total_amount), 0)").Scan(&totalRevenue).Error; err != nil {
		return nil, err
	}

	countByStatus := func(status models.OrderStatus) (int64, error) {
		var n int64
		err := h.db.Model(&models.Order{}).Where("status = ?", status).Count(&n).Error
		return n, err
	}

	newOrders, err := countByStatus(models.OrderStatusNew)
	if err != nil {
		return nil, err
	}
	processing, err := countByStatus(models.OrderStatusProcessing)
	if err != nil {
		return nil, err
	}
	completed, err := countByStatus(models.OrderStatusCompleted)
	if err != nil {
		return nil, err
	}

	averageOrder := float64(0)
	if totalOrders > 0 {
		averageOrder = totalRevenue / float64(totalOrders)
	}

	// Sales totals for the last 7 days, zero-filled for days without orders.
	weekStart := time.Now().AddDate(0, 0, -6)
	weekStart = time.Date(weekStart.Year(), weekStart.Month(), weekStart.Day(), 0, 0, 0, 0, weekStart.Location())

	var recent []models.Order
	if err := h.db.Select("created_at", "total_amount").
		Where("created_at >= ?", weekStart).
		Find(&recent).Error; err != nil {
		return nil, err
	}

	byDay := make(map[string]float64, 7)
	for _, order := range recent {
		byDay[order.CreatedAt.Format("2006-01-02")] += order.TotalAmount
	}

	sales := make([]dailySales, 0, 7)
	for i := 0; i < 7; i++ {
		day := weekStart.AddDate(0, 0, i).Format("2006-01-02")
		sales = append(sales, dailySales{Date: day, Total: byDay[day]})
	}

	return fiber.Map{
		"total_orders":  totalOrders,
		"total_revenue": totalRevenue,
		"average_order": averageOrder,
		"status_counts": fiber.Map{
			"new":        newOrders,
			"processing": processing,
			"completed":  completed,
		},
		"sales_last_7_days": sales,
	}, nil
}

type orderStatusRequest struct {
	Status string `json:"status"`
}

// UpdateOrderStatus changes an order's status and notifies the customer.
// Notification failure does not fail the update.
func (h *AdminHandler) UpdateOrderStatus(c *fiber.Ctx) error {
	id, err := uuid.Parse(c.Params("id"))
	if err != nil {
		return fiber.NewError(fiber.StatusBadRequest, "invalid id")
	}

	var req orderStatusRequest
	if err := c.BodyParser(&req); err != nil {
		return fiber.NewError(fiber.StatusBadRequest, "invalid request body")
	}

	status, err := models.ParseOrderStatus(req.Status)
	if err != nil {
		return fiber.NewError(fiber.StatusBadRequest, err.Error())
	}

	var order models.Order
	if err := h.db.Preload("User").First(&order, "id = ?", id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return fiber.NewError(fiber.StatusNotFound, "order not found")
		}
		return err
	}

	if err := h.db.Model(&order).Update("status", status).Error; err != nil {
		return err
	}
	order.Status = status

	notified := true
	if err := h.email.SendOrderStatusUpdate(&order); err != nil {
		log.Printf("[Admin] order status notification for %s failed: %v", order.ID, err)
		notified = false
	}

	return c.JSON(fiber.Map{"success": true, "data": order, "notified": notified})
}

type deliveryStatusRequest struct {
	Status string `json:"status"`
}

// UpdateDeliveryStatus advances the delivery state machine for an order.
// Card orders must have a settled payment before fulfillment can start.
func (h *AdminHandler) UpdateDeliveryStatus(c *fiber.Ctx) error {
	id, err := uuid.Parse(c.Params("id"))
	if err != nil {
		return fiber.NewError(fiber.StatusBadRequest, "invalid id")
	}

	var req deliveryStatusRequest
	if err := c.BodyParser(&req); err != nil {
		return fiber.NewError(fiber.StatusBadRequest, "invalid request body")
	}

	status, err := models.ParseDeliveryStatus(req.Status)
	if err != nil {
		return fiber.NewError(fiber.StatusBadRequest, err.Error())
	}

	var payment models.Payment
	if err := h.db.First(&payment, "order_id = ?", id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return fiber.NewError(fiber.StatusNotFound, "order not found")
		}
		return err
	}
	if payment.Method == models.PaymentMethodCard &&
		payment.Status != models.PaymentStatusSuccess &&
		status != models.DeliveryStatusCancelled {
		return fiber.NewError(fiber.StatusConflict, "order is not paid yet")
	}

	delivery, err := h.delivery.UpdateStatus(c.Context(), id, status)
	if err != nil {
		var transitionErr *services.TransitionError
		if errors.As(err, &transitionErr) {
			return fiber.NewError(fiber.StatusConflict, transitionErr.Error())
		}
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return fiber.NewError(fiber.StatusNotFound, "delivery not found")
		}
		return err
	}

	return c.JSON(fiber.Map{"success": true, "data": delivery})
}

// ListPendingDeliveries returns deliveries awaiting fulfillment.
func (h *AdminHandler) ListPendingDeliveries(c *fiber.Ctx) error {
	deliveries, err := h.delivery.PendingDeliveries(c.Context())
	if err != nil {
		return err
	}

	return c.JSON(fiber.Map{"success": true, "data": deliveries})
}
