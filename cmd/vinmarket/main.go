package main

import (
	"os"

	"vinmarket-be/internal/logger"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

func main() {
	if err := newRootCommand().Execute(); err != nil {
		logger.L().Error("command failed", zap.Error(err))
		logger.Sync()
		os.Exit(1)
	}
	logger.Sync()
}

func newRootCommand() *cobra.Command {
	rootCmd := &cobra.Command{
		Use:           "vinmarket",
		Short:         "vinmarket marketplace backend",
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	rootCmd.AddCommand(
		serveCommand(),
		migrateCommand(),
		sweepCommand(),
		relayCommand(),
	)
	return rootCmd
}
