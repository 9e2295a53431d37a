package main

import (
	"context"
	"errors"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"vinmarket-be/internal/logger"
	"vinmarket-be/internal/pkg/telemetry"
	"vinmarket-be/internal/rest"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

const shutdownTimeout = 15 * time.Second

func serveCommand() *cobra.Command {
	var addr string

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "run the HTTP API",
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
			defer stop()

			cfg, err := loadConfig()
			if err != nil {
				return err
			}
			if addr == "" {
				addr = ":" + cfg.AppPort
			}

			shutdownTracer, err := telemetry.SetupTracer(ctx, telemetry.Options{
				ServiceName: "vinmarket-be",
				Environment: cfg.AppEnv,
				Endpoint:    cfg.OtelEndpoint,
			})
			if err != nil {
				return err
			}
			defer func() {
				flushCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
				defer cancel()
				if err := shutdownTracer(flushCtx); err != nil {
					logger.L().Warn("tracer shutdown", zap.Error(err))
				}
			}()

			a, err := newApp(cfg)
			if err != nil {
				return err
			}
			defer a.Close()

			srv := &http.Server{
				Addr:              addr,
				Handler:           rest.NewRouter(rest.NewHandler(a.restDeps(ctx)), a.callbacks(), []byte(cfg.JWTSecret)),
				ReadHeaderTimeout: 10 * time.Second,
				ReadTimeout:       30 * time.Second,
				WriteTimeout:      60 * time.Second,
				IdleTimeout:       120 * time.Second,
			}

			return listenAndServe(ctx, srv)
		},
	}

	cmd.Flags().StringVar(&addr, "addr", "", "listen address (defaults to :APP_PORT)")
	return cmd
}

// listenAndServe blocks until ctx is cancelled, then drains in-flight
// requests.
func listenAndServe(ctx context.Context, srv *http.Server) error {
	errCh := make(chan error, 1)
	go func() {
		logger.L().Info("http server listening", zap.String("addr", srv.Addr))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	logger.L().Info("shutting down http server")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	return srv.Shutdown(shutdownCtx)
}
