package wine

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

type Status string

const (
	StatusActive   Status = "ACTIVE"
	StatusInactive Status = "INACTIVE"
	StatusSold     Status = "SOLD"
)

// Wine is a seller's listing. Quantity and Status move together: reaching
// zero flips the listing to SOLD and stamps SoldAt.
type Wine struct {
	ID         uuid.UUID
	SellerID   uuid.UUID
	SellerName string
	Title      string
	Price      decimal.Decimal
	Quantity   int
	Status     Status
	SoldAt     *time.Time
	CreatedAt  time.Time
	UpdatedAt  time.Time
}
