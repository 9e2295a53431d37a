package order

import (
	"errors"
	"fmt"

	"github.com/google/uuid"
)

var (
	ErrOrderNotFound                  = errors.New("order not found")
	ErrForbidden                      = errors.New("forbidden")
	ErrInvalidStatus                  = errors.New("invalid order status")
	ErrInvalidStatusTransition        = errors.New("invalid status transition")
	ErrEmptyCart                      = errors.New("cart is empty")
	ErrShippingAddressRequired        = errors.New("shipping address is required")
	ErrItemUnavailable                = errors.New("item unavailable")
	ErrCannotCancelShippedOrDelivered = errors.New("cannot cancel shipped or delivered order")
	ErrOrderNotPayable                = errors.New("order is not awaiting payment")
)

// ItemUnavailableError names the wine that failed checkout validation.
type ItemUnavailableError struct {
	WineID uuid.UUID
	Title  string
	Cause  error
}

func (e *ItemUnavailableError) Error() string {
	return fmt.Sprintf("item unavailable: %s: %v", e.Title, e.Cause)
}

func (e *ItemUnavailableError) Is(target error) bool {
	return target == ErrItemUnavailable
}

func (e *ItemUnavailableError) Unwrap() error {
	return e.Cause
}
