package categorization

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"github.com/FACorreiaa/family-budget/pkg/db"
)

// ErrRuleNotFound is returned when an update targets a missing rule.
var ErrRuleNotFound = errors.New("categorization rule not found")

const ruleColumns = `id, pattern, category_id, match_type, created_at, last_used_at, use_count`

// PostgresRuleStore implements RuleStore on the categorization_rules table.
type PostgresRuleStore struct {
	db db.Querier
}

// NewPostgresRuleStore creates a new rule store
func NewPostgresRuleStore(q db.Querier) *PostgresRuleStore {
	return &PostgresRuleStore{db: q}
}

// FindOne fetches the rule for pattern and matchType, nil if absent
func (r *PostgresRuleStore) FindOne(ctx context.Context, pattern string, matchType MatchType) (*Rule, error) {
	query := `
		SELECT ` + ruleColumns + `
		FROM categorization_rules
		WHERE pattern = $1 AND match_type = $2
	`

	rule, err := scanRule(r.db.QueryRow(ctx, query, pattern, string(matchType)))
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to find rule: %w", err)
	}
	return rule, nil
}

// FindMany lists rules of one type in a deterministic order
func (r *PostgresRuleStore) FindMany(ctx context.Context, matchType MatchType, byUseCount bool) ([]Rule, error) {
	order := `created_at ASC, id ASC`
	if byUseCount {
		order = `use_count DESC, created_at ASC, id ASC`
	}

	query := `
		SELECT ` + ruleColumns + `
		FROM categorization_rules
		WHERE match_type = $1
		ORDER BY ` + order

	rows, err := r.db.Query(ctx, query, string(matchType))
	if err != nil {
		return nil, fmt.Errorf("failed to list rules: %w", err)
	}
	defer rows.Close()

	var rules []Rule
	for rows.Next() {
		rule, err := scanRule(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan rule: %w", err)
		}
		rules = append(rules, *rule)
	}
	return rules, rows.Err()
}

// Insert creates rule. A rule with the same pattern and match type makes it
// return ErrRuleExists without writing anything.
func (r *PostgresRuleStore) Insert(ctx context.Context, rule *Rule) error {
	if rule.ID == uuid.Nil {
		rule.ID = uuid.New()
	}

	query := `
		INSERT INTO categorization_rules (id, pattern, category_id, match_type, created_at, last_used_at, use_count)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
		ON CONFLICT (pattern, match_type) DO NOTHING
	`

	tag, err := r.db.Exec(ctx, query,
		rule.ID,
		rule.Pattern,
		rule.CategoryID,
		string(rule.MatchType),
		rule.CreatedAt,
		rule.LastUsedAt,
		rule.UseCount,
	)
	if err != nil {
		return fmt.Errorf("failed to insert rule: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return ErrRuleExists
	}
	return nil
}

// UpdateUsage increments use_count in place
func (r *PostgresRuleStore) UpdateUsage(ctx context.Context, id uuid.UUID) error {
	query := `
		UPDATE categorization_rules
		SET use_count = use_count + 1, last_used_at = now()
		WHERE id = $1
	`

	tag, err := r.db.Exec(ctx, query, id)
	if err != nil {
		return fmt.Errorf("failed to update rule usage: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return ErrRuleNotFound
	}
	return nil
}

// UpdateCategoryAndUsage re-points a rule and bumps its usage
func (r *PostgresRuleStore) UpdateCategoryAndUsage(ctx context.Context, id uuid.UUID, categoryID int) (*Rule, error) {
	query := `
		UPDATE categorization_rules
		SET category_id = $2, use_count = use_count + 1, last_used_at = now()
		WHERE id = $1
		RETURNING ` + ruleColumns

	rule, err := scanRule(r.db.QueryRow(ctx, query, id, categoryID))
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrRuleNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to update rule category: %w", err)
	}
	return rule, nil
}

func scanRule(row pgx.Row) (*Rule, error) {
	var (
		rule      Rule
		matchType string
	)
	err := row.Scan(
		&rule.ID,
		&rule.Pattern,
		&rule.CategoryID,
		&matchType,
		&rule.CreatedAt,
		&rule.LastUsedAt,
		&rule.UseCount,
	)
	if err != nil {
		return nil, err
	}
	rule.MatchType = MatchType(matchType)
	return &rule, nil
}
