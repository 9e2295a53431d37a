package main

import (
	"context"
	"os/signal"
	"syscall"
	"time"

	"vinmarket-be/internal/logger"
	"vinmarket-be/internal/order"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

func sweepCommand() *cobra.Command {
	var (
		interval time.Duration
		batch    int
		once     bool
	)

	cmd := &cobra.Command{
		Use:   "sweep",
		Short: "cancel confirmed orders left unpaid past PAYMENT_EXPIRY",
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
			defer stop()

			cfg, err := loadConfig()
			if err != nil {
				return err
			}

			a, err := newApp(cfg)
			if err != nil {
				return err
			}
			defer a.Close()

			if once {
				_, err := sweepOnce(ctx, a.orders, cfg.PaymentExpiry, batch)
				return err
			}
			return runSweeper(ctx, a.orders, cfg.PaymentExpiry, interval, batch)
		},
	}

	cmd.Flags().DurationVar(&interval, "interval", 5*time.Minute, "time between sweeps")
	cmd.Flags().IntVar(&batch, "batch", 100, "maximum orders expired per sweep")
	cmd.Flags().BoolVar(&once, "once", false, "run a single sweep and exit")
	return cmd
}

// sweepOnce keeps expiring full batches until a short one comes back.
func sweepOnce(ctx context.Context, orders order.Service, ttl time.Duration, batch int) (int, error) {
	total := 0
	for {
		n, err := orders.ExpireUnpaid(ctx, ttl, batch)
		total += n
		if err != nil {
			return total, err
		}
		if n == 0 || n < batch || ctx.Err() != nil {
			return total, nil
		}
	}
}

func runSweeper(ctx context.Context, orders order.Service, ttl, interval time.Duration, batch int) error {
	log := logger.FromCtx(ctx).With(zap.String("layer", "sweeper"))

	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		n, err := sweepOnce(ctx, orders, ttl, batch)
		switch {
		case err != nil:
			log.Error("sweep failed", zap.Error(err))
		case n > 0:
			log.Info("unpaid orders expired", zap.Int("count", n))
		}

		select {
		case <-ctx.Done():
			return nil
		case <-ticker.C:
		}
	}
}
