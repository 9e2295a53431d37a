package address

import (
	"time"

	"github.com/google/uuid"
)

type ShippingAddress struct {
	ID     uuid.UUID
	UserID uuid.UUID

	RecipientName string
	Phone         *string

	Line1 string
	Line2 *string

	City       string
	Region     string
	PostalCode string
	Country    string

	CreatedAt time.Time
}

type CreateAddressInput struct {
	RecipientName string  `json:"recipientName"`
	Phone         *string `json:"phone,omitempty"`
	Line1         string  `json:"line1"`
	Line2         *string `json:"line2,omitempty"`
	City          string  `json:"city"`
	Region        string  `json:"region"`
	PostalCode    string  `json:"postalCode"`
	Country       string  `json:"country"`
}
