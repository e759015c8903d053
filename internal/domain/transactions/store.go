package transactions

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgtype"
	"github.com/shopspring/decimal"

	"github.com/FACorreiaa/family-budget/internal/domain/categorization"
	"github.com/FACorreiaa/family-budget/pkg/db"
)

// Filter narrows List. Zero fields are ignored.
type Filter struct {
	Month      string // YYYY-MM
	CategoryID *int
	UploadID   *uuid.UUID
	Limit      int
	Offset     int
}

const defaultListLimit = 100

// Store persists transactions.
type Store interface {
	categorization.TransactionStore

	CreateBatch(ctx context.Context, txns []*Transaction) (int64, error)
	GetByID(ctx context.Context, id uuid.UUID) (*Transaction, error)
	List(ctx context.Context, f Filter) ([]Transaction, error)
	SetCategory(ctx context.Context, id uuid.UUID, patch categorization.TransactionPatch) (*Transaction, error)
	ListUncategorized(ctx context.Context, limit int) ([]Transaction, error)
}

var copyColumns = []string{
	"id", "date", "description", "amount", "category_id", "upload_id",
	"source_file", "notes", "auto_categorized", "confidence",
}

const selectColumns = `id, date, description, amount, category_id, upload_id, source_file, notes, auto_categorized, confidence, created_at, updated_at`

// PostgresStore implements Store using PostgreSQL
type PostgresStore struct {
	db db.Querier
}

// NewPostgresStore creates a new transaction store
func NewPostgresStore(q db.Querier) *PostgresStore {
	return &PostgresStore{db: q}
}

// CreateBatch copies txns into the table in one round trip
func (s *PostgresStore) CreateBatch(ctx context.Context, txns []*Transaction) (int64, error) {
	if len(txns) == 0 {
		return 0, nil
	}

	n, err := s.db.CopyFrom(ctx, pgx.Identifier{"transactions"}, copyColumns,
		pgx.CopyFromSlice(len(txns), func(i int) ([]any, error) {
			t := txns[i]
			return []any{
				t.ID, t.Date, t.Description, numeric(t.Amount), t.CategoryID, t.UploadID,
				t.SourceFile, t.Notes, t.AutoCategorized, t.Confidence,
			}, nil
		}),
	)
	if err != nil {
		return 0, fmt.Errorf("failed to copy transactions: %w", err)
	}
	return n, nil
}

// GetByID retrieves a transaction by ID
func (s *PostgresStore) GetByID(ctx context.Context, id uuid.UUID) (*Transaction, error) {
	query := `SELECT ` + selectColumns + ` FROM transactions WHERE id = $1`

	t, err := scanTransaction(s.db.QueryRow(ctx, query, id))
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get transaction: %w", err)
	}
	return t, nil
}

// List returns transactions matching f, newest first
func (s *PostgresStore) List(ctx context.Context, f Filter) ([]Transaction, error) {
	var (
		where []string
		args  []any
	)
	if f.Month != "" {
		args = append(args, f.Month)
		where = append(where, fmt.Sprintf("to_char(date, 'YYYY-MM') = $%d", len(args)))
	}
	if f.CategoryID != nil {
		args = append(args, *f.CategoryID)
		where = append(where, fmt.Sprintf("category_id = $%d", len(args)))
	}
	if f.UploadID != nil {
		args = append(args, *f.UploadID)
		where = append(where, fmt.Sprintf("upload_id = $%d", len(args)))
	}

	limit := f.Limit
	if limit <= 0 {
		limit = defaultListLimit
	}
	args = append(args, limit, max(f.Offset, 0))

	query := `SELECT ` + selectColumns + ` FROM transactions`
	if len(where) > 0 {
		query += ` WHERE ` + strings.Join(where, " AND ")
	}
	query += fmt.Sprintf(` ORDER BY date DESC, id LIMIT $%d OFFSET $%d`, len(args)-1, len(args))

	return s.query(ctx, query, args...)
}

// ListUncategorized returns up to limit uncategorized transactions, oldest first
func (s *PostgresStore) ListUncategorized(ctx context.Context, limit int) ([]Transaction, error) {
	query := `
		SELECT ` + selectColumns + `
		FROM transactions
		WHERE category_id = 0
		ORDER BY created_at, id
		LIMIT $1`

	return s.query(ctx, query, limit)
}

// SetCategory writes a category decision for one transaction
func (s *PostgresStore) SetCategory(ctx context.Context, id uuid.UUID, patch categorization.TransactionPatch) (*Transaction, error) {
	query := `
		UPDATE transactions
		SET category_id = $2, auto_categorized = $3, confidence = $4, updated_at = now()
		WHERE id = $1
		RETURNING ` + selectColumns

	t, err := scanTransaction(s.db.QueryRow(ctx, query, id, patch.CategoryID, patch.AutoCategorized, patch.Confidence))
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to update transaction category: %w", err)
	}
	return t, nil
}

// FindUncategorizedMatching returns ids of uncategorized transactions whose
// description contains pattern, compared upper-cased on both sides
func (s *PostgresStore) FindUncategorizedMatching(ctx context.Context, pattern string) ([]uuid.UUID, error) {
	query := `
		SELECT id
		FROM transactions
		WHERE category_id = 0 AND position(upper($1) in upper(description)) > 0
		ORDER BY created_at, id`

	rows, err := s.db.Query(ctx, query, pattern)
	if err != nil {
		return nil, fmt.Errorf("failed to find uncategorized transactions: %w", err)
	}
	defer rows.Close()

	var ids []uuid.UUID
	for rows.Next() {
		var id uuid.UUID
		if err := rows.Scan(&id); err != nil {
			return nil, fmt.Errorf("failed to scan transaction id: %w", err)
		}
		ids = append(ids, id)
	}
	return ids, rows.Err()
}

// UpdateManyByIDs applies patch to ids that are still uncategorized at write
// time and returns the number of rows changed
func (s *PostgresStore) UpdateManyByIDs(ctx context.Context, ids []uuid.UUID, patch categorization.TransactionPatch) (int64, error) {
	if len(ids) == 0 {
		return 0, nil
	}

	query := `
		UPDATE transactions
		SET category_id = $1, auto_categorized = $2, confidence = $3, updated_at = now()
		WHERE id = ANY($4) AND category_id = 0`

	tag, err := s.db.Exec(ctx, query, patch.CategoryID, patch.AutoCategorized, patch.Confidence, ids)
	if err != nil {
		return 0, fmt.Errorf("failed to update transactions: %w", err)
	}
	return tag.RowsAffected(), nil
}

func (s *PostgresStore) query(ctx context.Context, query string, args ...any) ([]Transaction, error) {
	rows, err := s.db.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to list transactions: %w", err)
	}
	defer rows.Close()

	var out []Transaction
	for rows.Next() {
		t, err := scanTransaction(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan transaction: %w", err)
		}
		out = append(out, *t)
	}
	return out, rows.Err()
}

func scanTransaction(row pgx.Row) (*Transaction, error) {
	var t Transaction
	err := row.Scan(
		&t.ID,
		&t.Date,
		&t.Description,
		&t.Amount,
		&t.CategoryID,
		&t.UploadID,
		&t.SourceFile,
		&t.Notes,
		&t.AutoCategorized,
		&t.Confidence,
		&t.CreatedAt,
		&t.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	return &t, nil
}

func numeric(d decimal.Decimal) pgtype.Numeric {
	return pgtype.Numeric{Int: d.Coefficient(), Exp: d.Exponent(), Valid: true}
}
