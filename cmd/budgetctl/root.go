package main

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/spf13/cobra"

	"github.com/FACorreiaa/family-budget/internal/domain/categorization"
	"github.com/FACorreiaa/family-budget/internal/domain/transactions"
	"github.com/FACorreiaa/family-budget/pkg/config"
	"github.com/FACorreiaa/family-budget/pkg/db"
)

var verbose bool

// NewRootCommand creates the root CLI command with all subcommands registered.
func NewRootCommand() *cobra.Command {
	rootCmd := &cobra.Command{
		Use:   "budgetctl",
		Short: "Family budget statement and rule tooling",
		CompletionOptions: cobra.CompletionOptions{
			DisableDefaultCmd: true,
		},
		SilenceUsage: true,
	}
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "debug logging")

	rootCmd.AddCommand(
		newParseCommand(),
		newClassifyCommand(),
		newLearnCommand(),
		newStatsCommand(),
		newMigrateCommand(),
	)

	return rootCmd
}

func newLogger(cmd *cobra.Command) *slog.Logger {
	level := slog.LevelWarn
	if verbose {
		level = slog.LevelDebug
	}
	return slog.New(slog.NewTextHandler(cmd.ErrOrStderr(), &slog.HandlerOptions{Level: level}))
}

// openDB connects using the same environment as the API server.
func openDB(logger *slog.Logger) (*db.DB, *config.Config, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, nil, fmt.Errorf("loading config: %w", err)
	}
	database, err := db.New(db.Config{DSN: cfg.Database.DSN(), MaxConns: 2}, logger)
	if err != nil {
		return nil, nil, fmt.Errorf("connecting to database: %w", err)
	}
	return database, cfg, nil
}

// withCategorizer runs fn against a categorization service backed by
// Postgres.
func withCategorizer(cmd *cobra.Command, fn func(ctx context.Context, svc *categorization.Service) error) error {
	logger := newLogger(cmd)
	database, cfg, err := openDB(logger)
	if err != nil {
		return err
	}
	defer database.Close()

	svc := categorization.NewService(
		categorization.NewPostgresRuleStore(database.Pool),
		transactions.NewPostgresStore(database.Pool),
		logger,
		categorization.WithFuzzyThreshold(cfg.Categorization.FuzzyThreshold),
	)
	return fn(cmd.Context(), svc)
}
