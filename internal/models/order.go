package models

import (
	"encoding/json"
	"fmt"

	"github.com/google/uuid"
)

// OrderStatus is the lifecycle state of an order.
// Persisted as an integer; all business logic compares the typed constants.
type OrderStatus int

const (
	OrderStatusNew OrderStatus = iota
	OrderStatusProcessing
	OrderStatusCompleted
)

var orderStatusNames = map[OrderStatus]string{
	OrderStatusNew:        "new",
	OrderStatusProcessing: "processing",
	OrderStatusCompleted:  "completed",
}

func (s OrderStatus) String() string {
	if name, ok := orderStatusNames[s]; ok {
		return name
	}
	return fmt.Sprintf("unknown(%d)", int(s))
}

// Valid reports whether s is a member of the closed status set.
func (s OrderStatus) Valid() bool {
	_, ok := orderStatusNames[s]
	return ok
}

func (s OrderStatus) MarshalJSON() ([]byte, error) {
	return json.Marshal(s.String())
}

func (s *OrderStatus) UnmarshalJSON(data []byte) error {
	var name string
	if err := json.Unmarshal(data, &name); err != nil {
		return err
	}
	parsed, err := ParseOrderStatus(name)
	if err != nil {
		return err
	}
	*s = parsed
	return nil
}

// ParseOrderStatus maps a status name to its typed value.
func ParseOrderStatus(name string) (OrderStatus, error) {
	for status, n := range orderStatusNames {
		if n == name {
			return status, nil
		}
	}
	return 0, fmt.Errorf("unknown order status %q", name)
}

// Order is a committed purchase. TotalAmount is frozen at commit time and is
// never recomputed, even if product prices change afterwards.
type Order struct {
	BaseModel
	UserID      uuid.UUID   `gorm:"type:uuid;index" json:"user_id"`
	User        *User       `json:"user,omitempty"`
	Status      OrderStatus `gorm:"type:smallint" json:"status"`
	TotalAmount float64     `json:"total_amount"`
	Items       []OrderItem `gorm:"constraint:OnDelete:CASCADE" json:"items,omitempty"`
	Payment     *Payment    `gorm:"constraint:OnDelete:CASCADE" json:"payment,omitempty"`
	Delivery    *Delivery   `gorm:"constraint:OnDelete:CASCADE" json:"delivery,omitempty"`
}

// TotalWithDelivery is the amount the customer actually pays.
func (o *Order) TotalWithDelivery() float64 {
	if o.Delivery == nil {
		return o.TotalAmount
	}
	return o.TotalAmount + o.Delivery.Cost
}

// OrderItem is an immutable snapshot of one cart line: the unit price is the
// product price at the moment the order was committed.
type OrderItem struct {
	BaseModel
	OrderID   uuid.UUID `gorm:"type:uuid;index" json:"order_id"`
	ProductID uuid.UUID `gorm:"type:uuid;index" json:"product_id"`
	Product   *Product  `json:"product,omitempty"`
	Quantity  int       `json:"quantity"`
	UnitPrice float64   `json:"unit_price"`
}

// Subtotal is quantity times the captured unit price.
func (i *OrderItem) Subtotal() float64 {
	return float64(i.Quantity) * i.UnitPrice
}
