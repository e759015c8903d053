package main

import (
	"fmt"
	"log/slog"
	"time"

	"github.com/FACorreiaa/family-budget/internal/domain/categories"
	"github.com/FACorreiaa/family-budget/internal/domain/categorization"
	importhandler "github.com/FACorreiaa/family-budget/internal/domain/import/handler"
	importservice "github.com/FACorreiaa/family-budget/internal/domain/import/service"
	"github.com/FACorreiaa/family-budget/internal/domain/transactions"
	"github.com/FACorreiaa/family-budget/pkg/config"
	"github.com/FACorreiaa/family-budget/pkg/cron"
	"github.com/FACorreiaa/family-budget/pkg/db"
	"github.com/FACorreiaa/family-budget/pkg/metrics"
	"github.com/FACorreiaa/family-budget/pkg/storage"
)

// Dependencies holds all application dependencies
type Dependencies struct {
	Config  *config.Config
	DB      *db.DB
	Logger  *slog.Logger
	Metrics *metrics.Metrics

	// Repositories
	RuleStore        *categorization.PostgresRuleStore
	TransactionStore *transactions.PostgresStore
	CategoryStore    *categories.PostgresStore
	UploadStore      *importservice.PostgresUploadStore

	// Services
	CategorizationService *categorization.Service
	CorrectionService     *transactions.CorrectionService
	ImportService         *importservice.ImportService
	FileStorage           storage.Storage
	Scheduler             *cron.Scheduler

	// Handlers
	ImportHandler         *importhandler.ImportHandler
	TransactionsHandler   *transactions.Handler
	CategoriesHandler     *categories.Handler
	CategorizationHandler *categorization.Handler
}

// InitDependencies initializes all application dependencies
func InitDependencies(cfg *config.Config, logger *slog.Logger) (*Dependencies, error) {
	deps := &Dependencies{
		Config: cfg,
		Logger: logger,
	}
	if cfg.Observability.MetricsEnabled {
		deps.Metrics = metrics.New()
	}

	if err := deps.initDatabase(); err != nil {
		return nil, fmt.Errorf("failed to init database: %w", err)
	}

	deps.initRepositories()

	if err := deps.initServices(); err != nil {
		deps.Cleanup()
		return nil, fmt.Errorf("failed to init services: %w", err)
	}

	deps.initHandlers()

	logger.Info("all dependencies initialized successfully")
	return deps, nil
}

// initDatabase initializes the database connection and runs migrations
func (d *Dependencies) initDatabase() error {
	database, err := db.New(db.Config{
		DSN:             d.Config.Database.DSN(),
		MaxConns:        int32(d.Config.Database.MaxConns),
		MinConns:        2,
		MaxConnLifetime: 5 * time.Minute,
		MaxConnIdleTime: 10 * time.Minute,
	}, d.Logger)
	if err != nil {
		return err
	}

	d.DB = database

	if err := d.DB.RunMigrations(); err != nil {
		d.DB.Close()
		return fmt.Errorf("failed to run migrations: %w", err)
	}

	d.Logger.Info("database connected and migrations completed successfully")
	return nil
}

// initRepositories initializes all repository layer dependencies
func (d *Dependencies) initRepositories() {
	d.RuleStore = categorization.NewPostgresRuleStore(d.DB.Pool)
	d.TransactionStore = transactions.NewPostgresStore(d.DB.Pool)
	d.CategoryStore = categories.NewPostgresStore(d.DB.Pool)
	d.UploadStore = importservice.NewPostgresUploadStore(d.DB.Pool)

	d.Logger.Info("repositories initialized")
}

// initServices initializes all service layer dependencies
func (d *Dependencies) initServices() error {
	d.CategorizationService = categorization.NewService(d.RuleStore, d.TransactionStore, d.Logger,
		categorization.WithFuzzyThreshold(d.Config.Categorization.FuzzyThreshold),
		categorization.WithMetrics(d.Metrics),
	)

	d.CorrectionService = transactions.NewCorrectionService(d.TransactionStore, d.CategoryStore, d.CategorizationService, d.Logger)

	fileStorage, err := storage.NewLocalStorage(d.Config.Upload.Dir)
	if err != nil {
		return fmt.Errorf("failed to init file storage: %w", err)
	}
	d.FileStorage = fileStorage

	d.ImportService = importservice.NewImportService(d.UploadStore, d.TransactionStore, d.Logger).
		WithClassifier(d.CategorizationService).
		WithStorage(d.FileStorage).
		WithMetrics(d.Metrics)

	d.Scheduler = cron.NewScheduler(d.TransactionStore, d.CategorizationService, d.Config.Backlog.BatchSize, d.Metrics, d.Logger)

	d.Logger.Info("services initialized")
	return nil
}

// initHandlers initializes all handler dependencies
func (d *Dependencies) initHandlers() {
	d.ImportHandler = importhandler.NewImportHandler(d.ImportService, d.Config.Upload.MaxBytes, d.Logger)
	d.TransactionsHandler = transactions.NewHandler(d.TransactionStore, d.CorrectionService, d.Logger)
	d.CategoriesHandler = categories.NewHandler(d.CategoryStore, d.Logger)
	d.CategorizationHandler = categorization.NewHandler(d.CategorizationService, d.Logger)

	d.Logger.Info("handlers initialized")
}

// Cleanup closes all resources
func (d *Dependencies) Cleanup() {
	if d.DB != nil {
		d.DB.Close()
	}
	d.Logger.Info("cleanup completed")
}
