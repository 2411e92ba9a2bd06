package services

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/example/techshop/internal/models"
)

func pickupDetails() CheckoutDetails {
	return CheckoutDetails{
		PaymentMethod:  models.PaymentMethodCash,
		DeliveryMethod: models.DeliveryMethodSelfPickup,
		RecipientName:  "Olena Kovalenko",
		RecipientPhone: "+380501112233",
	}
}

func TestCommit_CashSelfPickup(t *testing.T) {
	db := openTestDB(t)
	svc := NewCheckoutService(db, NewStockLedger(), false)

	user := createTestUser(t, db)
	productA := createTestProduct(t, db, "Keyboard", 100, 2)
	productB := createTestProduct(t, db, "Monitor", 350, 1)
	createTestCart(t, db, user.ID,
		cartLine{product: productA, quantity: 2},
		cartLine{product: productB, quantity: 1},
	)

	order, err := svc.Commit(context.Background(), user.ID, pickupDetails())
	require.NoError(t, err)

	assert.Equal(t, models.OrderStatusNew, order.Status)
	assert.Equal(t, float64(550), order.TotalAmount)
	require.Len(t, order.Items, 2)

	require.NotNil(t, order.Payment)
	assert.Equal(t, models.PaymentMethodCash, order.Payment.Method)
	assert.Equal(t, models.PaymentStatusPending, order.Payment.Status)
	assert.Equal(t, float64(550), order.Payment.Amount)

	require.NotNil(t, order.Delivery)
	assert.Equal(t, models.DeliveryStatusPending, order.Delivery.Status)
	assert.Equal(t, float64(0), order.Delivery.Cost)

	// Stock was reserved and the cart cleared.
	var a, b models.Product
	require.NoError(t, db.First(&a, "id = ?", productA.ID).Error)
	require.NoError(t, db.First(&b, "id = ?", productB.ID).Error)
	assert.Equal(t, 0, a.StockQuantity)
	assert.Equal(t, 0, b.StockQuantity)

	var remaining int64
	require.NoError(t, db.Model(&models.CartItem{}).Count(&remaining).Error)
	assert.Zero(t, remaining)
}

func TestCommit_SnapshotsPriceAtCommit(t *testing.T) {
	db := openTestDB(t)
	svc := NewCheckoutService(db, NewStockLedger(), false)

	user := createTestUser(t, db)
	product := createTestProduct(t, db, "Keyboard", 100, 5)
	createTestCart(t, db, user.ID, cartLine{product: product, quantity: 1})

	order, err := svc.Commit(context.Background(), user.ID, pickupDetails())
	require.NoError(t, err)

	// Later price changes must not affect the committed order.
	require.NoError(t, db.Model(&models.Product{}).Where("id = ?", product.ID).Update("price", 999).Error)

	var item models.OrderItem
	require.NoError(t, db.First(&item, "order_id = ?", order.ID).Error)
	assert.Equal(t, float64(100), item.UnitPrice)
	assert.Equal(t, float64(100), order.TotalAmount)
}

func TestCommit_CashAutoConfirm(t *testing.T) {
	db := openTestDB(t)
	svc := NewCheckoutService(db, NewStockLedger(), true)

	user := createTestUser(t, db)
	product := createTestProduct(t, db, "Keyboard", 100, 5)
	createTestCart(t, db, user.ID, cartLine{product: product, quantity: 1})

	order, err := svc.Commit(context.Background(), user.ID, pickupDetails())
	require.NoError(t, err)

	require.NotNil(t, order.Payment)
	assert.Equal(t, models.PaymentStatusSuccess, order.Payment.Status)
	assert.NotNil(t, order.Payment.ProcessedAt)
}

func TestCommit_CardStaysPending(t *testing.T) {
	db := openTestDB(t)
	svc := NewCheckoutService(db, NewStockLedger(), true)

	user := createTestUser(t, db)
	product := createTestProduct(t, db, "Keyboard", 100, 5)
	createTestCart(t, db, user.ID, cartLine{product: product, quantity: 1})

	details := pickupDetails()
	details.PaymentMethod = models.PaymentMethodCard

	order, err := svc.Commit(context.Background(), user.ID, details)
	require.NoError(t, err)

	require.NotNil(t, order.Payment)
	assert.Equal(t, models.PaymentStatusPending, order.Payment.Status)
	assert.Nil(t, order.Payment.ProcessedAt)
}

func TestCommit_IncludesDeliveryCostInPayment(t *testing.T) {
	db := openTestDB(t)
	svc := NewCheckoutService(db, NewStockLedger(), false)

	user := createTestUser(t, db)
	product := createTestProduct(t, db, "Keyboard", 100, 5)
	createTestCart(t, db, user.ID, cartLine{product: product, quantity: 1})

	details := pickupDetails()
	details.DeliveryMethod = models.DeliveryMethodNovaPoshta
	details.City = "Львів"
	details.NovaPoshtaBranch = "Відділення №12"

	order, err := svc.Commit(context.Background(), user.ID, details)
	require.NoError(t, err)

	assert.Equal(t, float64(100), order.TotalAmount)
	assert.Equal(t, float64(80), order.Delivery.Cost)
	assert.Equal(t, float64(180), order.Payment.Amount)
}

func TestCommit_OversellRollsBackEverything(t *testing.T) {
	db := openTestDB(t)
	svc := NewCheckoutService(db, NewStockLedger(), false)

	user := createTestUser(t, db)
	productA := createTestProduct(t, db, "Keyboard", 100, 5)
	productB := createTestProduct(t, db, "Monitor", 350, 2)
	createTestCart(t, db, user.ID,
		cartLine{product: productA, quantity: 1},
		cartLine{product: productB, quantity: 3},
	)

	_, err := svc.Commit(context.Background(), user.ID, pickupDetails())

	var stockErr *StockError
	require.ErrorAs(t, err, &stockErr)
	require.Len(t, stockErr.Shortfalls, 1)
	assert.Equal(t, "Monitor", stockErr.Shortfalls[0].Name)
	assert.Equal(t, 3, stockErr.Shortfalls[0].Requested)
	assert.Equal(t, 2, stockErr.Shortfalls[0].Available)

	// The sufficient line's decrement was rolled back too.
	var a models.Product
	require.NoError(t, db.First(&a, "id = ?", productA.ID).Error)
	assert.Equal(t, 5, a.StockQuantity)

	var orders, items int64
	require.NoError(t, db.Model(&models.Order{}).Count(&orders).Error)
	require.NoError(t, db.Model(&models.CartItem{}).Count(&items).Error)
	assert.Zero(t, orders)
	assert.Equal(t, int64(2), items)
}

func TestCommit_EmptyCart(t *testing.T) {
	db := openTestDB(t)
	svc := NewCheckoutService(db, NewStockLedger(), false)

	user := createTestUser(t, db)

	_, err := svc.Commit(context.Background(), user.ID, pickupDetails())
	require.ErrorIs(t, err, ErrEmptyCart)

	createTestCart(t, db, user.ID)
	_, err = svc.Commit(context.Background(), user.ID, pickupDetails())
	require.ErrorIs(t, err, ErrEmptyCart)
}

func TestCommit_CollectsAllValidationErrors(t *testing.T) {
	db := openTestDB(t)
	svc := NewCheckoutService(db, NewStockLedger(), false)

	user := createTestUser(t, db)
	product := createTestProduct(t, db, "Keyboard", 100, 5)
	createTestCart(t, db, user.ID, cartLine{product: product, quantity: 1})

	details := CheckoutDetails{
		PaymentMethod:  models.PaymentMethodCash,
		DeliveryMethod: models.DeliveryMethodCourier,
	}

	_, err := svc.Commit(context.Background(), user.ID, details)

	var validationErr *ValidationError
	require.ErrorAs(t, err, &validationErr)

	fields := map[string]bool{}
	for _, f := range validationErr.Fields {
		fields[f.Field] = true
	}
	assert.True(t, fields["recipient_name"])
	assert.True(t, fields["recipient_phone"])
	assert.True(t, fields["city"])
	assert.True(t, fields["address"])
	assert.True(t, fields["preferred_delivery_date"])

	// Validation fails before any stock is touched.
	var check models.Product
	require.NoError(t, db.First(&check, "id = ?", product.ID).Error)
	assert.Equal(t, 5, check.StockQuantity)
}

func TestCommit_CourierDateRule(t *testing.T) {
	db := openTestDB(t)
	svc := NewCheckoutService(db, NewStockLedger(), false)

	user := createTestUser(t, db)
	product := createTestProduct(t, db, "Keyboard", 100, 10)

	courierDetails := func(date time.Time) CheckoutDetails {
		details := pickupDetails()
		details.DeliveryMethod = models.DeliveryMethodCourier
		details.City = "Київ"
		details.Address = "вул. Хрещатик, 1"
		details.PreferredDeliveryDate = &date
		return details
	}

	createTestCart(t, db, user.ID, cartLine{product: product, quantity: 1})
	_, err := svc.Commit(context.Background(), user.ID, courierDetails(time.Now().AddDate(0, 0, 1)))

	var validationErr *ValidationError
	require.ErrorAs(t, err, &validationErr)
	require.Len(t, validationErr.Fields, 1)
	assert.Equal(t, "preferred_delivery_date", validationErr.Fields[0].Field)

	// Two days out is the earliest accepted date.
	order, err := svc.Commit(context.Background(), user.ID, courierDetails(time.Now().AddDate(0, 0, 2)))
	require.NoError(t, err)
	assert.Equal(t, float64(100), order.Delivery.Cost)
}
