package transactions

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/google/uuid"

	"github.com/FACorreiaa/family-budget/internal/domain/categories"
	"github.com/FACorreiaa/family-budget/internal/domain/categorization"
)

// Learner is the part of the categorization service a correction feeds.
type Learner interface {
	Learn(ctx context.Context, description string, categoryID int) (*categorization.Rule, error)
	PropagateSimilar(ctx context.Context, description string, categoryID int) (int64, error)
}

// CorrectionResult is returned by UpdateCategory.
type CorrectionResult struct {
	Transaction *Transaction         `json:"transaction"`
	Rule        *categorization.Rule `json:"rule,omitempty"`
	Propagated  int64                `json:"batch_categorized"`
}

// CorrectionService applies manual category changes.
type CorrectionService struct {
	store      Store
	categories categories.Store
	learner    Learner
	logger     *slog.Logger
}

// NewCorrectionService creates a new correction service
func NewCorrectionService(store Store, cats categories.Store, learner Learner, logger *slog.Logger) *CorrectionService {
	return &CorrectionService{store: store, categories: cats, learner: learner, logger: logger}
}

// UpdateCategory sets a transaction's category by hand. A non-zero category
// is learned as a rule and propagated to similar uncategorized
// transactions. Learning problems are logged; the correction itself stands.
func (s *CorrectionService) UpdateCategory(ctx context.Context, id uuid.UUID, categoryID int) (*CorrectionResult, error) {
	if categoryID < 0 {
		return nil, ErrInvalidCategory
	}
	if _, err := s.categories.GetByID(ctx, categoryID); err != nil {
		if errors.Is(err, categories.ErrNotFound) {
			return nil, ErrInvalidCategory
		}
		return nil, fmt.Errorf("failed to check category: %w", err)
	}

	txn, err := s.store.SetCategory(ctx, id, categorization.TransactionPatch{
		CategoryID:      categoryID,
		AutoCategorized: false,
		Confidence:      1.0,
	})
	if err != nil {
		return nil, err
	}

	result := &CorrectionResult{Transaction: txn}
	if categoryID == categorization.UncategorizedID {
		return result, nil
	}

	rule, err := s.learner.Learn(ctx, txn.Description, categoryID)
	switch {
	case errors.Is(err, categorization.ErrEmptyPattern):
		s.logger.InfoContext(ctx, "description has no merchant pattern, nothing learned",
			slog.String("transaction_id", id.String()))
		return result, nil
	case err != nil:
		s.logger.ErrorContext(ctx, "failed to learn from correction",
			slog.String("transaction_id", id.String()),
			slog.Any("error", err))
		return result, nil
	}
	result.Rule = rule

	n, err := s.learner.PropagateSimilar(ctx, txn.Description, categoryID)
	if err != nil {
		s.logger.ErrorContext(ctx, "failed to propagate correction",
			slog.String("transaction_id", id.String()),
			slog.Any("error", err))
		return result, nil
	}
	result.Propagated = n

	s.logger.InfoContext(ctx, "transaction category corrected",
		slog.String("transaction_id", id.String()),
		slog.Int("category_id", categoryID),
		slog.Int64("batch_categorized", n),
	)
	return result, nil
}
