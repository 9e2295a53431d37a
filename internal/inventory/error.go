package inventory

import (
	"errors"
	"fmt"

	"github.com/google/uuid"
)

var (
	ErrInsufficientQuantity = errors.New("insufficient quantity")
	ErrCannotBuyOwnListing  = errors.New("cannot buy own listing")
	ErrListingUnavailable   = errors.New("listing is not available")
)

// InsufficientQuantityError carries the live stock and the total requested.
type InsufficientQuantityError struct {
	WineID    uuid.UUID
	Available int
	Requested int
}

func (e *InsufficientQuantityError) Error() string {
	return fmt.Sprintf("insufficient quantity: available %d, requested %d", e.Available, e.Requested)
}

func (e *InsufficientQuantityError) Is(target error) bool {
	return target == ErrInsufficientQuantity
}
