package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"github.com/FACorreiaa/family-budget/pkg/db"
)

// ErrUploadNotFound is returned for an unknown upload id.
var ErrUploadNotFound = errors.New("upload not found")

// Upload statuses.
const (
	StatusProcessed = "processed"
	StatusFailed    = "failed"
)

// Upload is the history entry of one imported file.
type Upload struct {
	ID                 uuid.UUID `json:"id"`
	Filename           string    `json:"filename"`
	StoredPath         string    `json:"stored_path,omitempty"`
	Fingerprint        string    `json:"fingerprint,omitempty"`
	UploadDate         time.Time `json:"upload_date"`
	Month              string    `json:"month"`
	RowCount           int       `json:"row_count"`
	CategorizedCount   int       `json:"categorized_count"`
	UncategorizedCount int       `json:"uncategorized_count"`
	Status             string    `json:"status"`
	Errors             []string  `json:"errors"`
}

// UploadStore persists upload history.
type UploadStore interface {
	Create(ctx context.Context, u *Upload) error
	SetStatus(ctx context.Context, id uuid.UUID, status string) error
	GetByID(ctx context.Context, id uuid.UUID) (*Upload, error)
	List(ctx context.Context, limit, offset int) ([]Upload, int, error)
}

const uploadColumns = `id, filename, stored_path, fingerprint, upload_date, month, row_count,
	categorized_count, uncategorized_count, status, errors`

// PostgresUploadStore implements UploadStore using PostgreSQL
type PostgresUploadStore struct {
	db db.Querier
}

// NewPostgresUploadStore creates a new upload store
func NewPostgresUploadStore(q db.Querier) *PostgresUploadStore {
	return &PostgresUploadStore{db: q}
}

// Create inserts u and fills in its upload date
func (s *PostgresUploadStore) Create(ctx context.Context, u *Upload) error {
	query := `
		INSERT INTO uploads (id, filename, stored_path, fingerprint, month, row_count,
			categorized_count, uncategorized_count, status, errors)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
		RETURNING upload_date
	`
	errs := u.Errors
	if errs == nil {
		errs = []string{}
	}

	err := s.db.QueryRow(ctx, query,
		u.ID, u.Filename, u.StoredPath, u.Fingerprint, u.Month, u.RowCount,
		u.CategorizedCount, u.UncategorizedCount, u.Status, errs,
	).Scan(&u.UploadDate)
	if err != nil {
		return fmt.Errorf("failed to create upload: %w", err)
	}
	return nil
}

// SetStatus updates the status of an upload
func (s *PostgresUploadStore) SetStatus(ctx context.Context, id uuid.UUID, status string) error {
	tag, err := s.db.Exec(ctx, `UPDATE uploads SET status = $2 WHERE id = $1`, id, status)
	if err != nil {
		return fmt.Errorf("failed to update upload status: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return ErrUploadNotFound
	}
	return nil
}

// GetByID retrieves an upload by its ID
func (s *PostgresUploadStore) GetByID(ctx context.Context, id uuid.UUID) (*Upload, error) {
	query := `SELECT ` + uploadColumns + ` FROM uploads WHERE id = $1`

	u, err := scanUpload(s.db.QueryRow(ctx, query, id))
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrUploadNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get upload: %w", err)
	}
	return u, nil
}

// List returns a page of uploads, newest first, with the total count
func (s *PostgresUploadStore) List(ctx context.Context, limit, offset int) ([]Upload, int, error) {
	var total int
	if err := s.db.QueryRow(ctx, `SELECT count(*) FROM uploads`).Scan(&total); err != nil {
		return nil, 0, fmt.Errorf("failed to count uploads: %w", err)
	}

	query := `SELECT ` + uploadColumns + ` FROM uploads ORDER BY upload_date DESC, id LIMIT $1 OFFSET $2`
	rows, err := s.db.Query(ctx, query, limit, offset)
	if err != nil {
		return nil, 0, fmt.Errorf("failed to list uploads: %w", err)
	}
	defer rows.Close()

	uploads := []Upload{}
	for rows.Next() {
		u, err := scanUpload(rows)
		if err != nil {
			return nil, 0, fmt.Errorf("failed to scan upload: %w", err)
		}
		uploads = append(uploads, *u)
	}
	if err := rows.Err(); err != nil {
		return nil, 0, fmt.Errorf("error iterating uploads: %w", err)
	}
	return uploads, total, nil
}

func scanUpload(row pgx.Row) (*Upload, error) {
	var u Upload
	err := row.Scan(
		&u.ID, &u.Filename, &u.StoredPath, &u.Fingerprint, &u.UploadDate, &u.Month,
		&u.RowCount, &u.CategorizedCount, &u.UncategorizedCount, &u.Status, &u.Errors,
	)
	if err != nil {
		return nil, err
	}
	if u.Errors == nil {
		u.Errors = []string{}
	}
	return &u, nil
}
