package services

import (
	"sync"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/example/techshop/internal/models"
)

func TestReserve_DecrementsStock(t *testing.T) {
	db := openTestDB(t)
	ledger := NewStockLedger()

	productA := createTestProduct(t, db, "Keyboard", 100, 5)
	productB := createTestProduct(t, db, "Mouse", 50, 2)

	err := ledger.Reserve(db, []ReservationLine{
		{ProductID: productA.ID, Quantity: 3},
		{ProductID: productB.ID, Quantity: 2},
	})
	require.NoError(t, err)

	var a, b models.Product
	require.NoError(t, db.First(&a, "id = ?", productA.ID).Error)
	require.NoError(t, db.First(&b, "id = ?", productB.ID).Error)
	assert.Equal(t, 2, a.StockQuantity)
	assert.Equal(t, 0, b.StockQuantity)
}

func TestReserve_ReportsEveryShortfall(t *testing.T) {
	db := openTestDB(t)
	ledger := NewStockLedger()

	productA := createTestProduct(t, db, "Keyboard", 100, 2)
	productB := createTestProduct(t, db, "Mouse", 50, 0)
	productC := createTestProduct(t, db, "Monitor", 700, 10)

	err := ledger.Reserve(db, []ReservationLine{
		{ProductID: productA.ID, Quantity: 3},
		{ProductID: productB.ID, Quantity: 1},
		{ProductID: productC.ID, Quantity: 1},
	})

	var stockErr *StockError
	require.ErrorAs(t, err, &stockErr)
	require.Len(t, stockErr.Shortfalls, 2)

	byID := map[uuid.UUID]Shortfall{}
	for _, s := range stockErr.Shortfalls {
		byID[s.ProductID] = s
	}

	assert.Equal(t, Shortfall{ProductID: productA.ID, Name: "Keyboard", Requested: 3, Available: 2}, byID[productA.ID])
	assert.Equal(t, Shortfall{ProductID: productB.ID, Name: "Mouse", Requested: 1, Available: 0}, byID[productB.ID])
}

func TestReserve_MissingProduct(t *testing.T) {
	db := openTestDB(t)
	ledger := NewStockLedger()

	missing := uuid.New()
	err := ledger.Reserve(db, []ReservationLine{{ProductID: missing, Quantity: 1}})

	var stockErr *StockError
	require.ErrorAs(t, err, &stockErr)
	require.Len(t, stockErr.Shortfalls, 1)
	assert.Equal(t, missing, stockErr.Shortfalls[0].ProductID)
	assert.Equal(t, 0, stockErr.Shortfalls[0].Available)
}

func TestReserve_RejectsNonPositiveQuantity(t *testing.T) {
	db := openTestDB(t)
	ledger := NewStockLedger()

	product := createTestProduct(t, db, "Keyboard", 100, 5)
	err := ledger.Reserve(db, []ReservationLine{{ProductID: product.ID, Quantity: 0}})
	require.Error(t, err)

	var check models.Product
	require.NoError(t, db.First(&check, "id = ?", product.ID).Error)
	assert.Equal(t, 5, check.StockQuantity)
}

func TestReserve_ConcurrentNeverOversells(t *testing.T) {
	db := openTestDB(t)
	ledger := NewStockLedger()

	const stock = 12
	const attempts = 20
	product := createTestProduct(t, db, "Keyboard", 100, stock)

	var wg sync.WaitGroup
	results := make(chan error, attempts)
	for i := 0; i < attempts; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			results <- ledger.Reserve(db, []ReservationLine{{ProductID: product.ID, Quantity: 1}})
		}()
	}
	wg.Wait()
	close(results)

	succeeded := 0
	for err := range results {
		if err == nil {
			succeeded++
		} else {
			var stockErr *StockError
			require.ErrorAs(t, err, &stockErr)
		}
	}
	assert.Equal(t, stock, succeeded)

	var check models.Product
	require.NoError(t, db.First(&check, "id = ?", product.ID).Error)
	assert.Equal(t, 0, check.StockQuantity)
}
