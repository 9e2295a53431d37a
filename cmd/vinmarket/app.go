package main

import (
	"context"
	"database/sql"
	"fmt"

	"vinmarket-be/internal/address"
	"vinmarket-be/internal/cart"
	"vinmarket-be/internal/config"
	"vinmarket-be/internal/db"
	"vinmarket-be/internal/inventory"
	"vinmarket-be/internal/logger"
	"vinmarket-be/internal/metrics"
	"vinmarket-be/internal/order"
	"vinmarket-be/internal/outbox"
	"vinmarket-be/internal/payment"
	"vinmarket-be/internal/payment/callback"
	"vinmarket-be/internal/pkg/cache"
	"vinmarket-be/internal/rest"
	"vinmarket-be/internal/shipping"
	"vinmarket-be/internal/wine"

	"go.uber.org/zap"
)

// app holds the services shared by the serve and sweep commands.
type app struct {
	cfg      *config.Config
	db       *sql.DB
	tx       db.Transactor
	carts    cart.Service
	orders   order.Service
	address  address.Service
	payments payment.Repository
	metrics  *metrics.Registry
	cache    cache.Cache
}

func loadConfig() (*config.Config, error) {
	cfg, err := config.LoadConfig()
	if err != nil {
		return nil, err
	}
	logger.Init(cfg.AppEnv)
	return cfg, nil
}

func newApp(cfg *config.Config) (*app, error) {
	database, err := db.NewDatabase(cfg)
	if err != nil {
		return nil, err
	}

	registry, err := payment.NewRegistry(cfg.Payment, cfg.Currency)
	if err != nil {
		_ = database.Close()
		return nil, fmt.Errorf("payment providers: %w", err)
	}

	return wire(cfg, database, registry), nil
}

func wire(cfg *config.Config, database *sql.DB, gateway payment.Gateway) *app {
	tx := db.NewTransactor(database)
	wines := wine.NewRepository(database)
	ledger := inventory.NewLedger(wines)
	addresses := address.NewService(address.NewRepository(database))
	cartRepo := cart.NewRepository(database)
	paymentRepo := payment.NewRepository(database)

	a := &app{
		cfg:      cfg,
		db:       database,
		tx:       tx,
		carts:    cart.NewService(cartRepo, wines, ledger, tx),
		address:  addresses,
		payments: paymentRepo,
		metrics:  metrics.NewRegistry(),
	}

	a.orders = order.NewService(order.Deps{
		Repo:        order.NewRepository(database),
		Carts:       cartRepo,
		Ledger:      ledger,
		Addresses:   addresses,
		Payments:    gateway,
		PaymentRepo: paymentRepo,
		Labels:      shipping.NewSimulatedCarrier(cfg.LabelBaseURL),
		Events:      outbox.NewWriter(database),
		Tx:          tx,
		Currency:    cfg.Currency,
	})

	if cfg.RedisAddr != "" {
		a.cache = cache.NewRedisCache(cfg.RedisAddr, "vinmarket")
	}
	return a
}

func (a *app) restDeps(ctx context.Context) rest.Deps {
	deps := rest.Deps{
		Carts:     a.carts,
		Orders:    a.orders,
		Addresses: a.address,
		Metrics:   a.metrics,
		DB:        a.db,
	}

	if a.cache != nil {
		if err := a.cache.Ping(ctx); err != nil {
			logger.FromCtx(ctx).Warn("redis unreachable, idempotency replay disabled", zap.Error(err))
		} else {
			deps.Replayer = cache.NewReplayer(a.cache)
		}
	}
	return deps
}

func (a *app) callbacks() *callback.Handler {
	return callback.NewHandler(
		a.orders,
		a.payments,
		a.tx,
		a.cfg.Payment.Gateway.SecretKey,
		a.cfg.StorefrontURL,
		a.metrics,
	)
}

func (a *app) Close() {
	if a.cache != nil {
		_ = a.cache.Close()
	}
	_ = a.db.Close()
}
