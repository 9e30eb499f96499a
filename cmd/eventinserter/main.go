package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/Priya8975/event-inserter/internal/app"
	"github.com/Priya8975/event-inserter/internal/config"
	"github.com/Priya8975/event-inserter/internal/producer"
	"github.com/spf13/cobra"
)

func main() {
	if err := newRootCmd().Execute(); err != nil {
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:   "eventinserter <file>",
		Short: "Correlate start/finish event items and store the resulting events",
		Long: `eventinserter reads a file of newline-delimited JSON event items, pairs the
two items sharing an id, computes the elapsed duration between them and
publishes the correlated event to a Redis stream. A consumer persists each
event to PostgreSQL; the command exits once the last event has been handled.

Configuration is read from the environment (DATABASE_URL, REDIS_URL, ...) and
optionally from a YAML file named by CONFIG_FILE.`,
		SilenceUsage:  true,
		SilenceErrors: true,
		// Argument checks happen in run so that they are logged like every
		// other fatal error.
		Args: cobra.ArbitraryArgs,
		RunE: run,
	}

	root.AddCommand(newGenerateCmd())
	return root
}

func run(cmd *cobra.Command, args []string) error {
	logger := slog.New(slog.NewJSONHandler(os.Stdout, nil))

	path, err := producer.ValidateFile(args)
	if err != nil {
		logger.Error("invalid input", "error", err)
		return err
	}

	cfg, err := config.Load()
	if err != nil {
		logger.Error("failed to load config", "error", err)
		return err
	}
	logger = slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: cfg.SlogLevel()}))

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	a, err := app.New(ctx, cfg, logger)
	if err != nil {
		logger.Error("failed to start", "error", err)
		return err
	}
	defer a.Close()

	if err := a.Run(ctx, path); err != nil {
		logger.Error("fatal error, exiting", "error", err)
		return fmt.Errorf("run failed: %w", err)
	}

	logger.Info("exiting")
	return nil
}
