package payment

import (
	"context"
	"fmt"

	"vinmarket-be/internal/config"
	"vinmarket-be/internal/logger"

	"go.uber.org/zap"
)

// Provider is implemented once per payment provider.
type Provider interface {
	Name() Name
	ProcessPayment(ctx context.Context, req Request) (*Result, error)
	RefundPayment(ctx context.Context, req RefundRequest) (*RefundResult, error)
}

// Gateway dispatches payment calls to the provider chosen for an order.
type Gateway interface {
	Supports(name Name) bool
	ProcessPayment(ctx context.Context, name Name, req Request) (*Result, error)
	RefundPayment(ctx context.Context, name Name, req RefundRequest) (*RefundResult, error)
}

type Registry struct {
	providers map[Name]Provider
}

// NewRegistry builds a provider for every enabled name and fails fast when
// one of them lacks credentials.
func NewRegistry(cfg config.PaymentConfig, currency string) (*Registry, error) {
	r := &Registry{providers: make(map[Name]Provider)}

	for _, raw := range cfg.Enabled {
		name, err := ParseName(raw)
		if err != nil {
			return nil, fmt.Errorf("%w: %s", err, raw)
		}

		p, err := newProvider(name, cfg, currency)
		if err != nil {
			return nil, err
		}
		r.Register(p)
	}

	logger.L().Info("payment providers ready", zap.Strings("providers", r.names()))
	return r, nil
}

func newProvider(name Name, cfg config.PaymentConfig, currency string) (Provider, error) {
	missing := func() error {
		return fmt.Errorf("%w: %s", ErrGatewayConfigMissing, name)
	}

	switch name {
	case PayPal:
		if cfg.PayPalClientID == "" || cfg.PayPalSecret == "" {
			return nil, missing()
		}
		return NewPayPal(), nil
	case Stripe:
		if cfg.StripeSecret == "" {
			return nil, missing()
		}
		return NewStripe(), nil
	case Escrow:
		if cfg.EscrowAPIKey == "" {
			return nil, missing()
		}
		return NewEscrow(), nil
	case BankGateway:
		g := cfg.Gateway
		if g.Alias == "" || g.SecretKey == "" || g.PaymentURL == "" || g.CallbackURL == "" {
			return nil, missing()
		}
		return NewBankGateway(g, currency), nil
	}
	return nil, ErrUnsupportedProvider
}

func (r *Registry) Register(p Provider) {
	r.providers[p.Name()] = p
}

func (r *Registry) Supports(name Name) bool {
	_, ok := r.providers[name]
	return ok
}

func (r *Registry) provider(name Name) (Provider, error) {
	p, ok := r.providers[name]
	if !ok {
		return nil, ErrUnsupportedProvider
	}
	return p, nil
}

func (r *Registry) ProcessPayment(ctx context.Context, name Name, req Request) (*Result, error) {
	p, err := r.provider(name)
	if err != nil {
		return nil, err
	}

	res, err := p.ProcessPayment(ctx, req)
	if err != nil {
		return nil, err
	}

	log := logger.FromCtx(ctx).With(
		zap.String("layer", "payment"),
		zap.String("provider", string(name)),
		zap.String("order_id", req.OrderID.String()),
	)
	if res.Success {
		log.Info("payment processed",
			zap.String("status", string(res.Status)),
			zap.String("transaction_id", res.TransactionID),
		)
	} else {
		log.Warn("payment declined", zap.String("reason", res.Error))
	}
	return res, nil
}

func (r *Registry) RefundPayment(ctx context.Context, name Name, req RefundRequest) (*RefundResult, error) {
	p, err := r.provider(name)
	if err != nil {
		return nil, err
	}
	return p.RefundPayment(ctx, req)
}

func (r *Registry) names() []string {
	out := make([]string, 0, len(r.providers))
	for n := range r.providers {
		out = append(out, string(n))
	}
	return out
}
