// Package categorization classifies transaction descriptions against learned
// rules and keeps those rules current as users correct categories.
package categorization

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
)

// MatchType is the tier that produced a classification.
type MatchType string

const (
	MatchExact    MatchType = "exact"
	MatchContains MatchType = "contains"
	MatchFuzzy    MatchType = "fuzzy"
	MatchNone     MatchType = "none"
)

// RuleTypes lists the match types a stored rule may carry.
var RuleTypes = []MatchType{MatchExact, MatchContains, MatchFuzzy}

// Confidence per tier. Fuzzy confidence is the similarity score / 100.
const (
	ExactConfidence    = 1.0
	ContainsConfidence = 0.9
)

// UncategorizedID is the category every unmatched transaction keeps.
const UncategorizedID = 0

var (
	// ErrRuleExists is returned by RuleStore.Insert when (pattern, match_type)
	// is already taken.
	ErrRuleExists = errors.New("categorization rule already exists")
	// ErrEmptyPattern means the description held nothing but noise.
	ErrEmptyPattern = errors.New("description yields an empty merchant pattern")
)

// Rule is a persisted categorization rule.
type Rule struct {
	ID         uuid.UUID `json:"id"`
	Pattern    string    `json:"pattern"`
	CategoryID int       `json:"category_id"`
	MatchType  MatchType `json:"match_type"`
	CreatedAt  time.Time `json:"created_at"`
	LastUsedAt time.Time `json:"last_used_at"`
	UseCount   int       `json:"use_count"`
}

// ClassificationResult is the outcome of Classify. CategoryID 0 with
// MatchNone means the description stays uncategorized.
type ClassificationResult struct {
	CategoryID int       `json:"category_id"`
	Confidence float64   `json:"confidence"`
	MatchType  MatchType `json:"match_type"`

	// RuleID is the rule that matched, uuid.Nil for MatchNone.
	RuleID uuid.UUID `json:"-"`
}

// Matched reports whether any tier produced a hit.
func (r ClassificationResult) Matched() bool {
	return r.MatchType != MatchNone && r.MatchType != ""
}

func noMatch() ClassificationResult {
	return ClassificationResult{CategoryID: UncategorizedID, Confidence: 0, MatchType: MatchNone}
}

// RuleStore persists rules. Implementations must make UpdateUsage an atomic
// increment and enforce uniqueness of (pattern, match_type).
type RuleStore interface {
	// FindOne returns nil, nil when no rule matches.
	FindOne(ctx context.Context, pattern string, matchType MatchType) (*Rule, error)
	// FindMany lists rules of one type. byUseCount orders by use_count
	// descending, otherwise by insertion order; both break ties by
	// created_at then id.
	FindMany(ctx context.Context, matchType MatchType, byUseCount bool) ([]Rule, error)
	Insert(ctx context.Context, rule *Rule) error
	UpdateUsage(ctx context.Context, id uuid.UUID) error
	UpdateCategoryAndUsage(ctx context.Context, id uuid.UUID, categoryID int) (*Rule, error)
}

// TransactionPatch is the set of fields a bulk update writes.
type TransactionPatch struct {
	CategoryID      int
	AutoCategorized bool
	Confidence      float64
}

// TransactionStore is the slice of the transaction store propagation needs.
type TransactionStore interface {
	// FindUncategorizedMatching returns ids of transactions with category 0
	// whose description contains pattern, ignoring case.
	FindUncategorizedMatching(ctx context.Context, pattern string) ([]uuid.UUID, error)
	// UpdateManyByIDs applies patch to ids still uncategorized and returns
	// the number of rows changed.
	UpdateManyByIDs(ctx context.Context, ids []uuid.UUID, patch TransactionPatch) (int64, error)
}
