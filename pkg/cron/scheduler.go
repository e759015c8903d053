// Package cron provides scheduled background jobs using robfig/cron.
package cron

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"github.com/robfig/cron/v3"

	"github.com/FACorreiaa/family-budget/internal/domain/categorization"
	"github.com/FACorreiaa/family-budget/internal/domain/transactions"
	"github.com/FACorreiaa/family-budget/pkg/metrics"
)

// BacklogStore reads and updates uncategorized transactions.
type BacklogStore interface {
	ListUncategorized(ctx context.Context, limit int) ([]transactions.Transaction, error)
	UpdateManyByIDs(ctx context.Context, ids []uuid.UUID, patch categorization.TransactionPatch) (int64, error)
}

// Classifier assigns categories to descriptions. Results are index-aligned.
type Classifier interface {
	ClassifyBatch(ctx context.Context, descriptions []string) ([]categorization.ClassificationResult, error)
}

const sweepTimeout = 10 * time.Minute

// Scheduler manages background scheduled jobs using robfig/cron.
type Scheduler struct {
	cron       *cron.Cron
	store      BacklogStore
	classifier Classifier
	batchSize  int
	metrics    *metrics.Metrics
	logger     *slog.Logger
}

// NewScheduler creates a new job scheduler.
func NewScheduler(store BacklogStore, classifier Classifier, batchSize int, m *metrics.Metrics, logger *slog.Logger) *Scheduler {
	// standard 5-field format, no seconds
	c := cron.New(cron.WithLogger(cron.VerbosePrintfLogger(slog.NewLogLogger(logger.Handler(), slog.LevelDebug))))

	return &Scheduler{
		cron:       c,
		store:      store,
		classifier: classifier,
		batchSize:  batchSize,
		metrics:    m,
		logger:     logger,
	}
}

// Start schedules the backlog sweep. An empty schedule leaves the scheduler
// idle.
func (s *Scheduler) Start(schedule string) error {
	if schedule == "" {
		s.logger.Info("backlog sweep disabled")
		return nil
	}

	if _, err := s.cron.AddFunc(schedule, s.runSweep); err != nil {
		return fmt.Errorf("invalid backlog sweep schedule %q: %w", schedule, err)
	}

	s.cron.Start()
	s.logger.Info("cron scheduler started",
		slog.String("schedule", schedule),
		slog.Int("jobs", len(s.cron.Entries())),
	)
	return nil
}

// Stop gracefully stops all scheduled jobs.
func (s *Scheduler) Stop() context.Context {
	s.logger.Info("cron scheduler stopping")
	return s.cron.Stop()
}

// RunNow manually triggers the backlog sweep.
func (s *Scheduler) RunNow() {
	go s.runSweep()
}

func (s *Scheduler) runSweep() {
	ctx, cancel := context.WithTimeout(context.Background(), sweepTimeout)
	defer cancel()

	if _, err := s.Sweep(ctx); err != nil {
		s.logger.Error("backlog sweep failed", slog.Any("error", err))
	}
}

// Sweep re-classifies up to batchSize uncategorized transactions with the
// current rules. Only rows still uncategorized at write time are updated.
func (s *Scheduler) Sweep(ctx context.Context) (int64, error) {
	s.logger.Info("starting backlog sweep", slog.Int("batch_size", s.batchSize))

	backlog, err := s.store.ListUncategorized(ctx, s.batchSize)
	if err != nil {
		return 0, fmt.Errorf("failed to list uncategorized transactions: %w", err)
	}
	if len(backlog) == 0 {
		return 0, nil
	}

	descriptions := make([]string, len(backlog))
	for i, txn := range backlog {
		descriptions[i] = txn.Description
	}

	results, err := s.classifier.ClassifyBatch(ctx, descriptions)
	if err != nil {
		return 0, fmt.Errorf("failed to classify backlog: %w", err)
	}

	// one guarded bulk update per distinct outcome
	groups := make(map[categorization.TransactionPatch][]uuid.UUID)
	var order []categorization.TransactionPatch
	for i, res := range results {
		if !res.Matched() || res.CategoryID == categorization.UncategorizedID {
			continue
		}
		patch := categorization.TransactionPatch{
			CategoryID:      res.CategoryID,
			AutoCategorized: true,
			Confidence:      res.Confidence,
		}
		if _, ok := groups[patch]; !ok {
			order = append(order, patch)
		}
		groups[patch] = append(groups[patch], backlog[i].ID)
	}

	var updated int64
	for _, patch := range order {
		n, err := s.store.UpdateManyByIDs(ctx, groups[patch], patch)
		if err != nil {
			s.metrics.RecordSweep("categorized", int(updated))
			return updated, fmt.Errorf("failed to update category %d: %w", patch.CategoryID, err)
		}
		updated += n
	}

	s.metrics.RecordSweep("categorized", int(updated))
	s.metrics.RecordSweep("uncategorized", len(backlog)-int(updated))
	s.logger.Info("backlog sweep completed",
		slog.Int("scanned", len(backlog)),
		slog.Int64("categorized", updated),
	)
	return updated, nil
}
