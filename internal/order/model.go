package order

import (
	"time"

	"vinmarket-be/internal/address"
	"vinmarket-be/internal/payment"
	"vinmarket-be/internal/utils"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

type Status string

const (
	StatusPending    Status = "PENDING"
	StatusConfirmed  Status = "CONFIRMED"
	StatusPaid       Status = "PAID"
	StatusProcessing Status = "PROCESSING"
	StatusShipped    Status = "SHIPPED"
	StatusDelivered  Status = "DELIVERED"
	StatusCancelled  Status = "CANCELLED"
	StatusDisputed   Status = "DISPUTED"
)

// Order is one seller's share of a checkout batch.
type Order struct {
	ID          uuid.UUID
	OrderNumber string
	BatchID     uuid.UUID
	BuyerID     uuid.UUID
	SellerID    uuid.UUID
	SellerName  string
	Status      Status

	Subtotal     decimal.Decimal
	ShippingCost decimal.Decimal
	TotalAmount  decimal.Decimal
	Currency     string

	PaymentProvider payment.Name
	PaymentStatus   payment.Status
	PaymentID       *string

	ShippingAddressID *uuid.UUID
	TrackingNumber    *string
	ShippingLabelURL  *string
	Carrier           *string
	EstimatedDelivery *time.Time
	DeliveredAt       *time.Time
	FulfilledAt       *time.Time

	CreatedAt time.Time
	UpdatedAt time.Time

	Items []Item
}

type Item struct {
	ID        uuid.UUID
	OrderID   uuid.UUID
	WineID    uuid.UUID
	WineTitle string
	Quantity  int
	UnitPrice decimal.Decimal
}

func (i Item) LineTotal() decimal.Decimal {
	return i.UnitPrice.Mul(decimal.NewFromInt(int64(i.Quantity)))
}

// Bottles is the number of units across all lines.
func (o *Order) Bottles() int {
	n := 0
	for _, it := range o.Items {
		n += it.Quantity
	}
	return n
}

func (o *Order) isParticipant(a Actor) bool {
	return a.IsAdmin() || o.BuyerID == a.ID || o.SellerID == a.ID
}

// Actor is the authenticated caller of an order operation.
type Actor struct {
	ID   uuid.UUID
	Role string
}

func (a Actor) IsAdmin() bool {
	return a.Role == utils.RoleAdmin
}

type CheckoutInput struct {
	ShippingAddressID *uuid.UUID
	ShippingAddress   *address.CreateAddressInput
	PaymentProvider   payment.Name
}

type LineInput struct {
	WineID   uuid.UUID
	Quantity int
}

// CreateInput places orders directly from a list of wines, bypassing the cart.
type CreateInput struct {
	Items             []LineInput
	ShippingAddressID *uuid.UUID
	ShippingAddress   *address.CreateAddressInput
	PaymentProvider   payment.Name
}

type CheckoutResult struct {
	BatchID     uuid.UUID
	TotalOrders int
	Orders      []*Order
	GrandTotal  decimal.Decimal
}

const (
	DefaultPageSize = 20
	MaxPageSize     = 100
)

type ListFilter struct {
	Statuses        []Status
	PaymentStatuses []payment.Status
	SellerID        *uuid.UUID
	BuyerID         *uuid.UUID
	DateFrom        *time.Time
	DateTo          *time.Time
	Page            int
	Limit           int
}

// normalize applies the paging defaults and returns the row offset.
func (f *ListFilter) normalize() int {
	if f.Limit <= 0 {
		f.Limit = DefaultPageSize
	}
	if f.Limit > MaxPageSize {
		f.Limit = MaxPageSize
	}
	if f.Page <= 0 {
		f.Page = 1
	}
	return (f.Page - 1) * f.Limit
}

type Page struct {
	Orders []*Order
	Total  int
	Page   int
	Limit  int
}

type StatusUpdate struct {
	Status         Status
	TrackingNumber *string
	Carrier        *string
}

// PaymentOutcome is an asynchronous payment result reported by a provider.
type PaymentOutcome struct {
	Status        Status
	PaymentStatus payment.Status
	TransactionID string
}

type PaymentResult struct {
	Order  *Order
	Result *payment.Result
}
