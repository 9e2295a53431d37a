package main

import (
	"errors"
	"fmt"
	"os/signal"
	"syscall"
	"time"

	"vinmarket-be/internal/db"
	"vinmarket-be/internal/outbox"
	"vinmarket-be/internal/pkg/kafka"

	"github.com/jmoiron/sqlx"
	"github.com/spf13/cobra"
)

func relayCommand() *cobra.Command {
	var (
		interval time.Duration
		batch    int
	)

	cmd := &cobra.Command{
		Use:   "relay",
		Short: "publish outbox events to Kafka",
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
			defer stop()

			cfg, err := loadConfig()
			if err != nil {
				return err
			}
			if len(cfg.KafkaBrokers) == 0 {
				return errors.New("KAFKA_BROKERS is required for the relay")
			}

			database, err := db.NewDatabase(cfg)
			if err != nil {
				return err
			}
			defer database.Close()

			producer, err := kafka.NewProducer(cfg.KafkaBrokers, cfg.OrderEventsTopic)
			if err != nil {
				return fmt.Errorf("kafka producer: %w", err)
			}
			defer producer.Close()

			relay := outbox.NewRelay(outbox.NewStore(sqlx.NewDb(database, "postgres")), producer)
			if err := relay.Run(ctx, interval, batch); err != nil && !errors.Is(err, ctx.Err()) {
				return err
			}
			return nil
		},
	}

	cmd.Flags().DurationVar(&interval, "interval", time.Second, "poll interval")
	cmd.Flags().IntVar(&batch, "batch", 100, "maximum events per poll")
	return cmd
}
