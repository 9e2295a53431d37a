package payment

import (
	"context"
	"strings"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

var (
	paypalRate  = decimal.RequireFromString("0.034")
	paypalFixed = decimal.RequireFromString("0.35")
	stripeRate  = decimal.RequireFromString("0.029")
	stripeFixed = decimal.RequireFromString("0.30")
	escrowRate  = decimal.RequireFromString("0.0325")
)

func fee(amount, rate, fixed decimal.Decimal) decimal.Decimal {
	return amount.Mul(rate).Add(fixed).Round(2)
}

func failed(name Name, reason string) *Result {
	return &Result{
		Success:  false,
		Status:   StatusFailed,
		Fees:     decimal.Zero,
		Provider: name,
		Error:    reason,
	}
}

func shortID() string {
	return strings.ToUpper(strings.ReplaceAll(uuid.NewString(), "-", "")[:17])
}

type paypal struct{}

func NewPayPal() Provider { return paypal{} }

func (paypal) Name() Name { return PayPal }

func (paypal) ProcessPayment(_ context.Context, req Request) (*Result, error) {
	if !req.Amount.IsPositive() {
		return failed(PayPal, "amount must be positive"), nil
	}
	if stringField(req.ProviderData, "payerId") == "" {
		return failed(PayPal, "payerId is required"), nil
	}

	return &Result{
		Success:       true,
		TransactionID: "PAYID-" + shortID(),
		Status:        StatusCompleted,
		Fees:          fee(req.Amount, paypalRate, paypalFixed),
		Provider:      PayPal,
	}, nil
}

func (paypal) RefundPayment(_ context.Context, req RefundRequest) (*RefundResult, error) {
	return simulatedRefund("PAYPAL-RF-", req), nil
}

type stripe struct{}

func NewStripe() Provider { return stripe{} }

func (stripe) Name() Name { return Stripe }

func (stripe) ProcessPayment(_ context.Context, req Request) (*Result, error) {
	if !req.Amount.IsPositive() {
		return failed(Stripe, "amount must be positive"), nil
	}

	pm := stringField(req.ProviderData, "paymentMethodId")
	switch {
	case pm == "":
		return failed(Stripe, "paymentMethodId is required"), nil
	case pm == "pm_card_chargeDeclined", strings.HasPrefix(pm, "pm_card_visa_chargeDeclined"):
		return failed(Stripe, "card declined"), nil
	}

	return &Result{
		Success:       true,
		TransactionID: "pi_" + strings.ToLower(shortID()),
		Status:        StatusCompleted,
		Fees:          fee(req.Amount, stripeRate, stripeFixed),
		Provider:      Stripe,
	}, nil
}

func (stripe) RefundPayment(_ context.Context, req RefundRequest) (*RefundResult, error) {
	return simulatedRefund("re_", req), nil
}

// escrow holds funds until delivery, so a charge never completes immediately.
type escrow struct{}

func NewEscrow() Provider { return escrow{} }

func (escrow) Name() Name { return Escrow }

func (escrow) ProcessPayment(_ context.Context, req Request) (*Result, error) {
	if !req.Amount.IsPositive() {
		return failed(Escrow, "amount must be positive"), nil
	}

	return &Result{
		Success:       true,
		TransactionID: "ESC-" + shortID(),
		Status:        StatusPending,
		Fees:          fee(req.Amount, escrowRate, decimal.Zero),
		Provider:      Escrow,
	}, nil
}

func (escrow) RefundPayment(_ context.Context, req RefundRequest) (*RefundResult, error) {
	return simulatedRefund("ESC-RF-", req), nil
}

func simulatedRefund(prefix string, req RefundRequest) *RefundResult {
	if req.PaymentID == "" {
		return &RefundResult{Success: false, Status: StatusFailed, Error: "payment id is required"}
	}
	if !req.Amount.IsPositive() {
		return &RefundResult{Success: false, Status: StatusFailed, Error: "amount must be positive"}
	}
	return &RefundResult{Success: true, RefundID: prefix + shortID(), Status: StatusRefunded}
}
