package services

import (
	"errors"
	"fmt"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/example/techshop/internal/models"
)

// ReservationLine is one product/quantity pair to reserve.
type ReservationLine struct {
	ProductID uuid.UUID
	Quantity  int
}

// StockLedger owns every mutation of Product.StockQuantity. Decrements go
// through a conditional UPDATE so the database serializes concurrent
// reservations and stock can never go negative.
type StockLedger struct{}

// NewStockLedger constructs a StockLedger.
func NewStockLedger() *StockLedger {
	return &StockLedger{}
}

// Reserve decrements stock for every line inside the caller's transaction.
// Every line is attempted so that all shortfalls are reported together; if
// any line is insufficient a *StockError is returned and the enclosing
// transaction must roll back, undoing the decrements that did apply.
func (l *StockLedger) Reserve(tx *gorm.DB, lines []ReservationLine) error {
	var shortfalls []Shortfall

	for _, line := range lines {
		if line.Quantity < 1 {
			return fmt.Errorf("reservation for product %s has quantity %d", line.ProductID, line.Quantity)
		}

		res := tx.Model(&models.Product{}).
			Where("id = ? AND stock_quantity >= ?", line.ProductID, line.Quantity).
			UpdateColumn("stock_quantity", gorm.Expr("stock_quantity - ?", line.Quantity))
		if res.Error != nil {
			return res.Error
		}
		if res.RowsAffected > 0 {
			continue
		}

		// The guard rejected the decrement: re-read current stock for the
		// shortfall report.
		var product models.Product
		if err := tx.Select("id", "name", "stock_quantity").
			First(&product, "id = ?", line.ProductID).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				shortfalls = append(shortfalls, Shortfall{
					ProductID: line.ProductID,
					Requested: line.Quantity,
				})
				continue
			}
			return err
		}

		shortfalls = append(shortfalls, Shortfall{
			ProductID: product.ID,
			Name:      product.Name,
			Requested: line.Quantity,
			Available: product.StockQuantity,
		})
	}

	if len(shortfalls) > 0 {
		return &StockError{Shortfalls: shortfalls}
	}

	return nil
}
