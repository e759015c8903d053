package categorization

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sort"
	"time"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"github.com/FACorreiaa/family-budget/pkg/metrics"
)

// mostUsedLimit caps Stats.MostUsed.
const mostUsedLimit = 10

// learnAttempts bounds the retry when a concurrent Learn inserts the same
// pattern first.
const learnAttempts = 3

// Service classifies descriptions and learns from corrections.
type Service struct {
	rules   RuleStore
	txns    TransactionStore
	engine  *Engine
	logger  *slog.Logger
	metrics *metrics.Metrics
	tracer  trace.Tracer
	now     func() time.Time
}

// Option configures a Service.
type Option func(*Service)

// WithFuzzyThreshold overrides DefaultFuzzyThreshold.
func WithFuzzyThreshold(threshold int) Option {
	return func(s *Service) { s.engine = NewEngine(s.rules, threshold) }
}

// WithMetrics records tier hits, learn outcomes and propagation counts.
func WithMetrics(m *metrics.Metrics) Option {
	return func(s *Service) { s.metrics = m }
}

// WithClock replaces time.Now, for tests.
func WithClock(now func() time.Time) Option {
	return func(s *Service) { s.now = now }
}

// NewService creates a new categorization service
func NewService(rules RuleStore, txns TransactionStore, logger *slog.Logger, opts ...Option) *Service {
	s := &Service{
		rules:  rules,
		txns:   txns,
		engine: NewEngine(rules, DefaultFuzzyThreshold),
		logger: logger,
		tracer: otel.Tracer("github.com/FACorreiaa/family-budget/categorization"),
		now:    func() time.Time { return time.Now().UTC() },
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Classify runs the exact, contains and fuzzy tiers in order and records
// usage on the winning rule. A failed usage update is logged, the result is
// still returned.
func (s *Service) Classify(ctx context.Context, description string) (ClassificationResult, error) {
	ctx, span := s.tracer.Start(ctx, "categorization.Classify")
	defer span.End()

	result, err := s.engine.snapshot().classify(ctx, description)
	if err != nil {
		span.RecordError(err)
		return result, err
	}

	s.finish(ctx, result)
	span.SetAttributes(
		attribute.String("match_type", string(result.MatchType)),
		attribute.Int("category_id", result.CategoryID),
	)
	return result, nil
}

// ClassifyBatch classifies descriptions in order, recording usage after each
// one, and gives the same results as calling Classify per description.
// Results are index-aligned with descriptions.
func (s *Service) ClassifyBatch(ctx context.Context, descriptions []string) ([]ClassificationResult, error) {
	ctx, span := s.tracer.Start(ctx, "categorization.ClassifyBatch",
		trace.WithAttributes(attribute.Int("count", len(descriptions))))
	defer span.End()

	snap := s.engine.snapshot()
	results := make([]ClassificationResult, len(descriptions))
	for i, d := range descriptions {
		result, err := snap.classify(ctx, d)
		if err != nil {
			span.RecordError(err)
			return nil, err
		}
		s.finish(ctx, result)
		results[i] = result
	}
	return results, nil
}

func (s *Service) finish(ctx context.Context, result ClassificationResult) {
	s.metrics.RecordClassification(string(result.MatchType))
	if err := s.RecordUsage(ctx, result); err != nil {
		s.logger.WarnContext(ctx, "failed to record rule usage",
			slog.String("rule_id", result.RuleID.String()),
			slog.Any("error", err),
		)
	}
}

// RecordUsage bumps use_count and last_used_at of the rule behind result.
// Unmatched results are ignored.
func (s *Service) RecordUsage(ctx context.Context, result ClassificationResult) error {
	if !result.Matched() || result.RuleID == uuid.Nil {
		return nil
	}
	return s.rules.UpdateUsage(ctx, result.RuleID)
}

// Learn stores the merchant pattern of description as a contains rule for
// categoryID. An existing rule with another category is re-pointed and its
// usage bumped; one with the same category is returned as is.
func (s *Service) Learn(ctx context.Context, description string, categoryID int) (*Rule, error) {
	ctx, span := s.tracer.Start(ctx, "categorization.Learn")
	defer span.End()

	pattern := MerchantPattern(description)
	if pattern == "" {
		return nil, ErrEmptyPattern
	}
	span.SetAttributes(attribute.String("pattern", pattern), attribute.Int("category_id", categoryID))

	for range learnAttempts {
		existing, err := s.rules.FindOne(ctx, pattern, MatchContains)
		if err != nil {
			return nil, fmt.Errorf("failed to find rule: %w", err)
		}

		if existing != nil {
			if existing.CategoryID == categoryID {
				s.metrics.RecordLearn("unchanged")
				return existing, nil
			}
			updated, err := s.rules.UpdateCategoryAndUsage(ctx, existing.ID, categoryID)
			if err != nil {
				return nil, fmt.Errorf("failed to update rule: %w", err)
			}
			s.metrics.RecordLearn("updated")
			s.logger.InfoContext(ctx, "categorization rule updated",
				slog.String("pattern", pattern),
				slog.Int("from_category", existing.CategoryID),
				slog.Int("to_category", categoryID),
			)
			return updated, nil
		}

		now := s.now()
		rule := &Rule{
			ID:         uuid.New(),
			Pattern:    pattern,
			CategoryID: categoryID,
			MatchType:  MatchContains,
			CreatedAt:  now,
			LastUsedAt: now,
			UseCount:   1,
		}
		err = s.rules.Insert(ctx, rule)
		if errors.Is(err, ErrRuleExists) {
			// lost the race to a concurrent Learn; re-read and apply on top
			continue
		}
		if err != nil {
			return nil, fmt.Errorf("failed to insert rule: %w", err)
		}

		s.metrics.RecordLearn("created")
		s.logger.InfoContext(ctx, "categorization rule created",
			slog.String("pattern", pattern),
			slog.Int("category_id", categoryID),
		)
		return rule, nil
	}

	return nil, fmt.Errorf("learn %q: %w", pattern, ErrRuleExists)
}

// PropagateSimilar assigns categoryID to every uncategorized transaction
// containing the merchant pattern of description and returns how many rows
// changed. Already categorized transactions are never touched.
func (s *Service) PropagateSimilar(ctx context.Context, description string, categoryID int) (int64, error) {
	ctx, span := s.tracer.Start(ctx, "categorization.PropagateSimilar")
	defer span.End()

	pattern := MerchantPattern(description)
	if pattern == "" {
		return 0, nil
	}

	ids, err := s.txns.FindUncategorizedMatching(ctx, pattern)
	if err != nil {
		return 0, fmt.Errorf("failed to find similar transactions: %w", err)
	}
	if len(ids) == 0 {
		return 0, nil
	}

	n, err := s.txns.UpdateManyByIDs(ctx, ids, TransactionPatch{
		CategoryID:      categoryID,
		AutoCategorized: true,
		Confidence:      ContainsConfidence,
	})
	if err != nil {
		return 0, fmt.Errorf("failed to update similar transactions: %w", err)
	}

	s.metrics.RecordPropagated(n)
	span.SetAttributes(attribute.Int64("updated", n))
	s.logger.InfoContext(ctx, "propagated category to similar transactions",
		slog.String("pattern", pattern),
		slog.Int("category_id", categoryID),
		slog.Int("candidates", len(ids)),
		slog.Int64("updated", n),
	)
	return n, nil
}

// Stats summarizes the rule set.
type Stats struct {
	TotalRules  int               `json:"total_rules"`
	RulesByType map[MatchType]int `json:"rules_by_type"`
	MostUsed    []Rule            `json:"most_used_rules"`
}

// Stats counts rules per type and lists the ten most used.
func (s *Service) Stats(ctx context.Context) (*Stats, error) {
	stats := &Stats{RulesByType: make(map[MatchType]int, len(RuleTypes))}

	var all []Rule
	for _, mt := range RuleTypes {
		rules, err := s.rules.FindMany(ctx, mt, true)
		if err != nil {
			return nil, fmt.Errorf("failed to list %s rules: %w", mt, err)
		}
		stats.RulesByType[mt] = len(rules)
		stats.TotalRules += len(rules)
		all = append(all, rules...)
	}

	sort.SliceStable(all, func(i, j int) bool {
		return all[i].UseCount > all[j].UseCount
	})
	if len(all) > mostUsedLimit {
		all = all[:mostUsedLimit]
	}
	stats.MostUsed = all
	return stats, nil
}
