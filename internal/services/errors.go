package services

import (
	"errors"
	"fmt"
	"strings"

	"github.com/google/uuid"

	"github.com/example/techshop/internal/models"
)

var (
	// ErrEmptyCart is returned when a checkout is attempted with no cart items.
	ErrEmptyCart = errors.New("cart is empty")

	// ErrInvalidSignature is returned when a gateway callback fails
	// signature verification. No state is changed when it is returned.
	ErrInvalidSignature = errors.New("invalid callback signature")

	// ErrGatewayUnavailable wraps network and timeout failures talking to
	// the payment gateway. It never promotes a payment to success.
	ErrGatewayUnavailable = errors.New("payment gateway unavailable")
)

// FieldError describes a single user-correctable input problem.
type FieldError struct {
	Field   string `json:"field"`
	Message string `json:"message"`
}

// ValidationError carries every field violation found in a request.
// Violations are collected, not short-circuited.
type ValidationError struct {
	Fields []FieldError
}

func (e *ValidationError) Error() string {
	msgs := make([]string, 0, len(e.Fields))
	for _, f := range e.Fields {
		msgs = append(msgs, fmt.Sprintf("%s: %s", f.Field, f.Message))
	}
	return "validation failed: " + strings.Join(msgs, "; ")
}

// Shortfall describes one product that cannot cover the requested quantity.
type Shortfall struct {
	ProductID uuid.UUID `json:"product_id"`
	Name      string    `json:"name"`
	Requested int       `json:"requested"`
	Available int       `json:"available"`
}

// StockError is an oversell attempt. It lists every insufficient line and
// guarantees that no stock was decremented.
type StockError struct {
	Shortfalls []Shortfall
}

func (e *StockError) Error() string {
	msgs := make([]string, 0, len(e.Shortfalls))
	for _, s := range e.Shortfalls {
		msgs = append(msgs, fmt.Sprintf("product %q: requested %d, available %d", s.Name, s.Requested, s.Available))
	}
	return "insufficient stock: " + strings.Join(msgs, "; ")
}

// TransitionError reports a delivery status change that the state machine
// does not accept.
type TransitionError struct {
	From, To models.DeliveryStatus
}

func (e *TransitionError) Error() string {
	return fmt.Sprintf("illegal status transition %s -> %s", e.From, e.To)
}
