package payment

import (
	"encoding/json"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

type Name string

const (
	PayPal      Name = "PAYPAL"
	Stripe      Name = "STRIPE"
	Escrow      Name = "ESCROW"
	BankGateway Name = "BANK_GATEWAY"
)

// ParseName normalizes a provider name received from a client.
func ParseName(s string) (Name, error) {
	switch n := Name(strings.ToUpper(strings.TrimSpace(s))); n {
	case PayPal, Stripe, Escrow, BankGateway:
		return n, nil
	default:
		return "", ErrUnsupportedProvider
	}
}

// Status is the payment status tracked on orders and payment attempts.
type Status string

const (
	StatusPending   Status = "PENDING"
	StatusCompleted Status = "COMPLETED"
	StatusFailed    Status = "FAILED"
	StatusRefunded  Status = "REFUNDED"
	StatusExpired   Status = "EXPIRED"
)

type Request struct {
	OrderID      uuid.UUID
	OrderNumber  string
	Amount       decimal.Decimal
	Currency     string
	ProviderData map[string]any
}

// Result is returned for every attempt. Declines are reported through
// Success and Error, never as a Go error.
type Result struct {
	Success          bool
	TransactionID    string
	Status           Status
	Fees             decimal.Decimal
	Provider         Name
	RedirectURL      string
	RequiresRedirect bool
	Error            string
}

type RefundRequest struct {
	PaymentID string
	Amount    decimal.Decimal
	Currency  string
}

type RefundResult struct {
	Success  bool
	RefundID string
	Status   Status
	Error    string
}

// Payment is one recorded attempt against a provider.
type Payment struct {
	ID                uuid.UUID
	OrderID           uuid.UUID
	Provider          Name
	ExternalReference string
	Amount            decimal.Decimal
	Currency          string
	Status            Status
	Fees              decimal.Decimal
	RedirectURL       string
	ProviderData      json.RawMessage
	CreatedAt         time.Time
	UpdatedAt         time.Time
}

// Callback is one raw notification received from the bank gateway.
type Callback struct {
	Provider       Name
	EventID        string
	OrderRef       string
	Payload        json.RawMessage
	SignatureValid bool
}

func stringField(data map[string]any, key string) string {
	if data == nil {
		return ""
	}
	if v, ok := data[key].(string); ok {
		return strings.TrimSpace(v)
	}
	return ""
}
