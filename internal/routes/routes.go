package routes

import (
	"github.com/gofiber/fiber/v2"
	"gorm.io/gorm"

	"github.com/example/techshop/internal/config"
	"github.com/example/techshop/internal/handlers"
	"github.com/example/techshop/internal/middleware"
	"github.com/example/techshop/internal/services"
)

// Register wires all HTTP routes onto the Fiber app.
func Register(app *fiber.App, db *gorm.DB, cfg *config.Config) {
	stockLedger := services.NewStockLedger()
	liqpay := services.NewLiqPayService(cfg)
	email := services.NewEmailService(cfg)
	checkout := services.NewCheckoutService(db, stockLedger, cfg.CashAutoConfirm)
	payments := services.NewPaymentService(db, liqpay, email)
	delivery := services.NewDeliveryService(db, email)

	authHandler := handlers.NewAuthHandler(db, cfg)
	catalogHandler := handlers.NewCatalogHandler(db)
	productHandler := handlers.NewProductHandler(db)
	feedbackHandler := handlers.NewFeedbackHandler(db)
	cartHandler := handlers.NewCartHandler(db)
	checkoutHandler := handlers.NewCheckoutHandler(db, checkout, payments, liqpay)
	orderHandler := handlers.NewOrderHandler(db, payments)
	adminHandler := handlers.NewAdminHandler(db, delivery, email)

	api := app.Group("/api")

	auth := api.Group("/auth")
	auth.Post("/register", authHandler.Register)
	auth.Post("/login", authHandler.Login)

	api.Get("/categories", catalogHandler.ListCategories)
	api.Get("/categories/:id", catalogHandler.GetCategory)

	api.Get("/products", productHandler.ListProducts)
	api.Get("/products/:id", productHandler.GetProduct)
	api.Get("/products/:id/comments", productHandler.ListComments)

	api.Post("/feedback", feedbackHandler.CreateFeedback)

	// Gateway webhook and the poll endpoint are unauthenticated; the
	// webhook is protected by its signature, the poll reveals status only.
	api.Post("/payments/callback", checkoutHandler.PaymentCallback)
	api.Get("/payments/:orderId/status", checkoutHandler.PaymentStatus)

	authorized := api.Group("", middleware.AuthMiddleware(cfg))

	authorized.Post("/products/:id/comments", productHandler.CreateComment)

	cart := authorized.Group("/cart")
	cart.Get("/", cartHandler.GetCart)
	cart.Post("/items", cartHandler.AddItem)
	cart.Put("/items/:productId", cartHandler.UpdateQuantity)
	cart.Delete("/items/:productId", cartHandler.RemoveItem)
	cart.Delete("/", cartHandler.ClearCart)

	authorized.Post("/checkout", checkoutHandler.ProcessOrder)
	authorized.Post("/checkout/:orderId/pay", checkoutHandler.PayOrder)

	orders := authorized.Group("/orders")
	orders.Get("/", orderHandler.ListOrders)
	orders.Get("/:id", orderHandler.GetOrder)
	orders.Post("/:id/verify-payment", orderHandler.VerifyPayment)

	admin := authorized.Group("/admin", middleware.RequireAdmin(db))
	admin.Post("/categories", catalogHandler.CreateCategory)
	admin.Put("/categories/:id", catalogHandler.UpdateCategory)
	admin.Delete("/categories/:id", catalogHandler.DeleteCategory)
	admin.Post("/products", productHandler.CreateProduct)
	admin.Put("/products/:id", productHandler.UpdateProduct)
	admin.Delete("/products/:id", productHandler.DeleteProduct)
	admin.Get("/feedback", feedbackHandler.ListFeedback)
	admin.Get("/orders", adminHandler.ListOrders)
	admin.Put("/orders/:id/status", adminHandler.UpdateOrderStatus)
	admin.Put("/orders/:id/delivery-status", adminHandler.UpdateDeliveryStatus)
	admin.Get("/deliveries/pending", adminHandler.ListPendingDeliveries)
}
