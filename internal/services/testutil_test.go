package services

import (
	"testing"

	"github.com/glebarez/sqlite"
	"github.com/google/uuid"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"github.com/example/techshop/internal/database"
	"github.com/example/techshop/internal/models"
)

// openTestDB returns an isolated in-memory database with the full schema.
// A single connection keeps the in-memory database alive and serializes
// concurrent access the way a real server's pool would.
func openTestDB(t *testing.T) *gorm.DB {
	t.Helper()

	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	require.NoError(t, err)

	sqlDB, err := db.DB()
	require.NoError(t, err)
	sqlDB.SetMaxOpenConns(1)

	require.NoError(t, database.Migrate(db))
	return db
}

func createTestUser(t *testing.T, db *gorm.DB) models.User {
	t.Helper()

	user := models.User{
		FirstName:    "Olena",
		LastName:     "Kovalenko",
		Email:        uuid.NewString() + "@example.com",
		PasswordHash: "x",
	}
	require.NoError(t, db.Create(&user).Error)
	return user
}

func createTestProduct(t *testing.T, db *gorm.DB, name string, price float64, stock int) models.Product {
	t.Helper()

	product := models.Product{
		Name:          name,
		Price:         price,
		StockQuantity: stock,
	}
	require.NoError(t, db.Create(&product).Error)
	return product
}

type cartLine struct {
	product  models.Product
	quantity int
}

func createTestCart(t *testing.T, db *gorm.DB, userID uuid.UUID, lines ...cartLine) models.Cart {
	t.Helper()

	cart := models.Cart{UserID: userID}
	require.NoError(t, db.Create(&cart).Error)

	for _, line := range lines {
		item := models.CartItem{
			CartID:    cart.ID,
			ProductID: line.product.ID,
			Quantity:  line.quantity,
		}
		require.NoError(t, db.Create(&item).Error)
	}
	return cart
}

// seedOrder creates an order with a payment and a delivery in the given
// payment state, bypassing checkout.
func seedOrder(t *testing.T, db *gorm.DB, userID uuid.UUID, method models.PaymentMethod, status models.PaymentStatus) models.Order {
	t.Helper()

	order := models.Order{
		UserID:      userID,
		Status:      models.OrderStatusNew,
		TotalAmount: 550,
	}
	require.NoError(t, db.Create(&order).Error)

	payment := models.Payment{
		OrderID: order.ID,
		Method:  method,
		Status:  status,
		Amount:  550,
	}
	require.NoError(t, db.Create(&payment).Error)

	delivery := models.Delivery{
		OrderID:        order.ID,
		Method:         models.DeliveryMethodSelfPickup,
		Status:         models.DeliveryStatusPending,
		RecipientName:  "Olena Kovalenko",
		RecipientPhone: "+380501112233",
	}
	require.NoError(t, db.Create(&delivery).Error)

	order.Payment = &payment
	order.Delivery = &delivery
	return order
}

func loadPayment(t *testing.T, db *gorm.DB, orderID uuid.UUID) models.Payment {
	t.Helper()

	var payment models.Payment
	require.NoError(t, db.First(&payment, "order_id = ?", orderID).Error)
	return payment
}
