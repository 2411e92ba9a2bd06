package models

import "github.com/google/uuid"

// Product is a catalog item. StockQuantity is the only field the checkout
// path mutates; it must be changed exclusively through services.StockLedger.
type Product struct {
	BaseModel
	Name               string     `json:"name"`
	Description        string     `json:"description"`
	Price              float64    `json:"price"`
	StockQuantity      int        `json:"stock_quantity"`
	ImageURL           string     `json:"image_url"`
	ProductionTimeDays int        `json:"production_time_days"`
	CategoryID         *uuid.UUID `gorm:"type:uuid;index" json:"category_id"`
	Category           *Category  `json:"category,omitempty"`
	Comments           []Comment  `json:"comments,omitempty"`
}

// Comment is a customer review attached to a product.
type Comment struct {
	BaseModel
	ProductID uuid.UUID `gorm:"type:uuid;index" json:"product_id"`
	UserID    uuid.UUID `gorm:"type:uuid;index" json:"user_id"`
	User      *User     `json:"user,omitempty"`
	Text      string    `json:"text"`
	Rating    int       `json:"rating"`
}
