package models

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
)

// PaymentMethod is how the customer pays for an order.
type PaymentMethod int

const (
	PaymentMethodCash PaymentMethod = iota
	PaymentMethodCard
)

var paymentMethodNames = map[PaymentMethod]string{
	PaymentMethodCash: "cash",
	PaymentMethodCard: "card",
}

func (m PaymentMethod) String() string {
	if name, ok := paymentMethodNames[m]; ok {
		return name
	}
	return fmt.Sprintf("unknown(%d)", int(m))
}

// Valid reports whether m is a member of the closed method set.
func (m PaymentMethod) Valid() bool {
	_, ok := paymentMethodNames[m]
	return ok
}

func (m PaymentMethod) MarshalJSON() ([]byte, error) {
	return json.Marshal(m.String())
}

func (m *PaymentMethod) UnmarshalJSON(data []byte) error {
	var name string
	if err := json.Unmarshal(data, &name); err != nil {
		return err
	}
	parsed, err := ParsePaymentMethod(name)
	if err != nil {
		return err
	}
	*m = parsed
	return nil
}

// ParsePaymentMethod maps a method name to its typed value.
func ParsePaymentMethod(name string) (PaymentMethod, error) {
	for method, n := range paymentMethodNames {
		if n == name {
			return method, nil
		}
	}
	return 0, fmt.Errorf("unknown payment method %q", name)
}

// PaymentStatus is the reconciliation state of a payment.
type PaymentStatus int

const (
	PaymentStatusPending PaymentStatus = iota
	PaymentStatusProcessing
	PaymentStatusSuccess
	PaymentStatusFailed
	PaymentStatusCancelled
)

var paymentStatusNames = map[PaymentStatus]string{
	PaymentStatusPending:    "pending",
	PaymentStatusProcessing: "processing",
	PaymentStatusSuccess:    "success",
	PaymentStatusFailed:     "failed",
	PaymentStatusCancelled:  "cancelled",
}

func (s PaymentStatus) String() string {
	if name, ok := paymentStatusNames[s]; ok {
		return name
	}
	return fmt.Sprintf("unknown(%d)", int(s))
}

// Valid reports whether s is a member of the closed status set.
func (s PaymentStatus) Valid() bool {
	_, ok := paymentStatusNames[s]
	return ok
}

// Terminal reports whether no further transition is accepted from s.
func (s PaymentStatus) Terminal() bool {
	return s == PaymentStatusSuccess || s == PaymentStatusFailed || s == PaymentStatusCancelled
}

func (s PaymentStatus) MarshalJSON() ([]byte, error) {
	return json.Marshal(s.String())
}

func (s *PaymentStatus) UnmarshalJSON(data []byte) error {
	var name string
	if err := json.Unmarshal(data, &name); err != nil {
		return err
	}
	parsed, err := ParsePaymentStatus(name)
	if err != nil {
		return err
	}
	*s = parsed
	return nil
}

// ParsePaymentStatus maps a status name to its typed value.
func ParsePaymentStatus(name string) (PaymentStatus, error) {
	for status, n := range paymentStatusNames {
		if n == name {
			return status, nil
		}
	}
	return 0, fmt.Errorf("unknown payment status %q", name)
}

// Payment belongs to exactly one order. Amount is the order total plus the
// delivery cost, fixed at commit time. The LiqPay fields and the transaction
// details blob are written only by the reconciliation paths, never by clients.
type Payment struct {
	BaseModel
	OrderID            uuid.UUID     `gorm:"type:uuid;uniqueIndex" json:"order_id"`
	Method             PaymentMethod `gorm:"type:smallint" json:"method"`
	Status             PaymentStatus `gorm:"type:smallint" json:"status"`
	Amount             float64       `json:"amount"`
	LiqPayOrderID      string        `json:"liqpay_order_id,omitempty"`
	LiqPayPaymentID    string        `json:"liqpay_payment_id,omitempty"`
	LiqPayStatus       string        `json:"liqpay_status,omitempty"`
	TransactionDetails []byte        `gorm:"type:jsonb" json:"transaction_details,omitempty"`
	ProcessedAt        *time.Time    `json:"processed_at,omitempty"`
}
