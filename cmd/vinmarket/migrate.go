package main

import (
	"errors"
	"fmt"

	"vinmarket-be/internal/db"
	"vinmarket-be/internal/logger"
	"vinmarket-be/migrations"

	"github.com/golang-migrate/migrate/v4"
	_ "github.com/golang-migrate/migrate/v4/database/postgres"
	"github.com/golang-migrate/migrate/v4/source/iofs"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

func migrateCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "migrate",
		Short: "apply or roll back database migrations",
	}

	var steps int
	down := &cobra.Command{
		Use:   "down",
		Short: "roll back migrations (all of them unless --steps is set)",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runMigration(func(m *migrate.Migrate) error {
				if steps > 0 {
					return m.Steps(-steps)
				}
				return m.Down()
			})
		},
	}
	down.Flags().IntVar(&steps, "steps", 0, "number of migrations to roll back")

	cmd.AddCommand(
		&cobra.Command{
			Use:   "up",
			Short: "migrate all the way up",
			RunE: func(cmd *cobra.Command, args []string) error {
				return runMigration(func(m *migrate.Migrate) error { return m.Up() })
			},
		},
		down,
	)
	return cmd
}

func newMigrator(databaseURL string) (*migrate.Migrate, error) {
	src, err := iofs.New(migrations.FS, ".")
	if err != nil {
		return nil, fmt.Errorf("open embedded migrations: %w", err)
	}
	return migrate.NewWithSourceInstance("iofs", src, databaseURL)
}

func runMigration(apply func(m *migrate.Migrate) error) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}

	m, err := newMigrator(db.URL(cfg))
	if err != nil {
		return err
	}
	defer m.Close()

	err = apply(m)
	if errors.Is(err, migrate.ErrNoChange) {
		logger.L().Info("no change in migration")
		return nil
	}
	if err != nil {
		return err
	}

	version, dirty, err := m.Version()
	if err != nil && !errors.Is(err, migrate.ErrNilVersion) {
		return err
	}
	logger.L().Info("migration applied", zap.Uint("version", version), zap.Bool("dirty", dirty))
	return nil
}
