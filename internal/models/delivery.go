package models

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
)

// DeliveryMethod is how the order reaches the customer.
type DeliveryMethod int

const (
	DeliveryMethodSelfPickup DeliveryMethod = iota
	DeliveryMethodNovaPoshta
	DeliveryMethodCourier
)

var deliveryMethodNames = map[DeliveryMethod]string{
	DeliveryMethodSelfPickup: "self_pickup",
	DeliveryMethodNovaPoshta: "nova_poshta",
	DeliveryMethodCourier:    "courier",
}

func (m DeliveryMethod) String() string {
	if name, ok := deliveryMethodNames[m]; ok {
		return name
	}
	return fmt.Sprintf("unknown(%d)", int(m))
}

// Valid reports whether m is a member of the closed method set.
func (m DeliveryMethod) Valid() bool {
	_, ok := deliveryMethodNames[m]
	return ok
}

func (m DeliveryMethod) MarshalJSON() ([]byte, error) {
	return json.Marshal(m.String())
}

func (m *DeliveryMethod) UnmarshalJSON(data []byte) error {
	var name string
	if err := json.Unmarshal(data, &name); err != nil {
		return err
	}
	parsed, err := ParseDeliveryMethod(name)
	if err != nil {
		return err
	}
	*m = parsed
	return nil
}

// ParseDeliveryMethod maps a method name to its typed value.
func ParseDeliveryMethod(name string) (DeliveryMethod, error) {
	for method, n := range deliveryMethodNames {
		if n == name {
			return method, nil
		}
	}
	return 0, fmt.Errorf("unknown delivery method %q", name)
}

// DeliveryStatus is the fulfillment state of a delivery.
type DeliveryStatus int

const (
	DeliveryStatusPending DeliveryStatus = iota
	DeliveryStatusProcessing
	DeliveryStatusShipped
	DeliveryStatusDelivered
	DeliveryStatusCancelled
)

var deliveryStatusNames = map[DeliveryStatus]string{
	DeliveryStatusPending:    "pending",
	DeliveryStatusProcessing: "processing",
	DeliveryStatusShipped:    "shipped",
	DeliveryStatusDelivered:  "delivered",
	DeliveryStatusCancelled:  "cancelled",
}

func (s DeliveryStatus) String() string {
	if name, ok := deliveryStatusNames[s]; ok {
		return name
	}
	return fmt.Sprintf("unknown(%d)", int(s))
}

// Valid reports whether s is a member of the closed status set.
func (s DeliveryStatus) Valid() bool {
	_, ok := deliveryStatusNames[s]
	return ok
}

// Terminal reports whether no further transition is accepted from s.
func (s DeliveryStatus) Terminal() bool {
	return s == DeliveryStatusDelivered || s == DeliveryStatusCancelled
}

func (s DeliveryStatus) MarshalJSON() ([]byte, error) {
	return json.Marshal(s.String())
}

func (s *DeliveryStatus) UnmarshalJSON(data []byte) error {
	var name string
	if err := json.Unmarshal(data, &name); err != nil {
		return err
	}
	parsed, err := ParseDeliveryStatus(name)
	if err != nil {
		return err
	}
	*s = parsed
	return nil
}

// ParseDeliveryStatus maps a status name to its typed value.
func ParseDeliveryStatus(name string) (DeliveryStatus, error) {
	for status, n := range deliveryStatusNames {
		if n == name {
			return status, nil
		}
	}
	return 0, fmt.Errorf("unknown delivery status %q", name)
}

// Delivery belongs to exactly one order. Cost is computed once at commit time
// from the delivery cost policy and never recomputed. DeliveredAt is set
// exactly once, on the first transition into the Delivered status.
type Delivery struct {
	BaseModel
	OrderID                  uuid.UUID      `gorm:"type:uuid;uniqueIndex" json:"order_id"`
	Method                   DeliveryMethod `gorm:"type:smallint" json:"method"`
	Status                   DeliveryStatus `gorm:"type:smallint" json:"status"`
	Cost                     float64        `json:"cost"`
	RecipientName            string         `json:"recipient_name"`
	RecipientPhone           string         `json:"recipient_phone"`
	Address                  string         `json:"address,omitempty"`
	City                     string         `json:"city,omitempty"`
	NovaPoshtaBranch         string         `json:"nova_poshta_branch,omitempty"`
	NovaPoshtaTrackingNumber string         `json:"nova_poshta_tracking_number,omitempty"`
	CarrierName              string         `json:"carrier_name,omitempty"`
	CarrierTrackingNumber    string         `json:"carrier_tracking_number,omitempty"`
	PreferredDeliveryDate    *time.Time     `json:"preferred_delivery_date,omitempty"`
	DeliveredAt              *time.Time     `json:"delivered_at,omitempty"`
	Notes                    string         `json:"notes,omitempty"`
}
