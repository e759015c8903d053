// Package categories provides read access to spending categories.
package categories

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"

	"github.com/FACorreiaa/family-budget/pkg/db"
)

// ErrNotFound is returned for an unknown category id.
var ErrNotFound = errors.New("category not found")

// Category is a spending category. ID 0 is reserved for Uncategorized.
type Category struct {
	ID        int       `json:"id"`
	Name      string    `json:"name"`
	Color     string    `json:"color"`
	IsDefault bool      `json:"is_default"`
	CreatedAt time.Time `json:"created_at"`
}

// Store reads categories.
type Store interface {
	GetByID(ctx context.Context, id int) (*Category, error)
	List(ctx context.Context) ([]Category, error)
}

// PostgresStore implements Store using PostgreSQL
type PostgresStore struct {
	db db.Querier
}

// NewPostgresStore creates a new category store
func NewPostgresStore(q db.Querier) *PostgresStore {
	return &PostgresStore{db: q}
}

// GetByID retrieves a category by ID
func (s *PostgresStore) GetByID(ctx context.Context, id int) (*Category, error) {
	query := `
		SELECT id, name, color, is_default, created_at
		FROM categories
		WHERE id = $1`

	var c Category
	err := s.db.QueryRow(ctx, query, id).Scan(&c.ID, &c.Name, &c.Color, &c.IsDefault, &c.CreatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get category: %w", err)
	}
	return &c, nil
}

// List returns every category ordered by id
func (s *PostgresStore) List(ctx context.Context) ([]Category, error) {
	query := `
		SELECT id, name, color, is_default, created_at
		FROM categories
		ORDER BY id`

	rows, err := s.db.Query(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("failed to list categories: %w", err)
	}
	defer rows.Close()

	var out []Category
	for rows.Next() {
		var c Category
		if err := rows.Scan(&c.ID, &c.Name, &c.Color, &c.IsDefault, &c.CreatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan category: %w", err)
		}
		out = append(out, c)
	}
	return out, rows.Err()
}
