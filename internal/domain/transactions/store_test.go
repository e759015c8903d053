package transactions

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/pashagolub/pgxmock/v4"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/FACorreiaa/family-budget/internal/domain/categorization"
)

var txnColumns = []string{
	"id", "date", "description", "amount", "category_id", "upload_id",
	"source_file", "notes", "auto_categorized", "confidence", "created_at", "updated_at",
}

func TestPostgresStore_FindUncategorizedMatching(t *testing.T) {
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	a, b := uuid.New(), uuid.New()
	mock.ExpectQuery(`category_id = 0 AND position\(upper\(\$1\) in upper\(description\)\) > 0`).
		WithArgs("COSTCO WHOLESALE").
		WillReturnRows(pgxmock.NewRows([]string{"id"}).AddRow(a).AddRow(b))

	ids, err := NewPostgresStore(mock).FindUncategorizedMatching(context.Background(), "COSTCO WHOLESALE")

	require.NoError(t, err)
	assert.Equal(t, []uuid.UUID{a, b}, ids)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresStore_UpdateManyByIDs(t *testing.T) {
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	store := NewPostgresStore(mock)
	ids := []uuid.UUID{uuid.New(), uuid.New(), uuid.New()}
	patch := categorization.TransactionPatch{CategoryID: 1, AutoCategorized: true, Confidence: 0.9}

	mock.ExpectExec(`WHERE id = ANY\(\$4\) AND category_id = 0`).
		WithArgs(1, true, 0.9, ids).
		WillReturnResult(pgxmock.NewResult("UPDATE", 2))

	n, err := store.UpdateManyByIDs(context.Background(), ids, patch)
	require.NoError(t, err)
	assert.Equal(t, int64(2), n)

	// no query for an empty id set
	n, err = store.UpdateManyByIDs(context.Background(), nil, patch)
	require.NoError(t, err)
	assert.Zero(t, n)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresStore_CreateBatch(t *testing.T) {
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	txn, err := NewTransaction(time.Now(), "NETFLIX.COM", decimal.RequireFromString("-16.99"), RecordOptions{})
	require.NoError(t, err)

	mock.ExpectCopyFrom(pgx.Identifier{"transactions"}, copyColumns).WillReturnResult(1)

	n, err := NewPostgresStore(mock).CreateBatch(context.Background(), []*Transaction{txn})
	require.NoError(t, err)
	assert.Equal(t, int64(1), n)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresStore_SetCategory(t *testing.T) {
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	store := NewPostgresStore(mock)
	id := uuid.New()
	now := time.Now().UTC()

	mock.ExpectQuery(`UPDATE transactions`).
		WithArgs(id, 3, false, 1.0).
		WillReturnRows(pgxmock.NewRows(txnColumns).AddRow(
			id, now, "TIM HORTONS #12", decimal.RequireFromString("-3.45"), 3, nil,
			"dec.csv", "", false, 1.0, now, now,
		))
	mock.ExpectQuery(`UPDATE transactions`).
		WithArgs(id, 3, false, 1.0).
		WillReturnError(pgx.ErrNoRows)

	txn, err := store.SetCategory(context.Background(), id, categorization.TransactionPatch{CategoryID: 3, Confidence: 1.0})
	require.NoError(t, err)
	assert.Equal(t, 3, txn.CategoryID)
	assert.True(t, decimal.RequireFromString("-3.45").Equal(txn.Amount))

	_, err = store.SetCategory(context.Background(), id, categorization.TransactionPatch{CategoryID: 3, Confidence: 1.0})
	assert.ErrorIs(t, err, ErrNotFound)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresStore_List_Filter(t *testing.T) {
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	cat := 2
	mock.ExpectQuery(`WHERE to_char\(date, 'YYYY-MM'\) = \$1 AND category_id = \$2 ORDER BY date DESC, id LIMIT \$3 OFFSET \$4`).
		WithArgs("2024-12", 2, 100, 0).
		WillReturnRows(pgxmock.NewRows(txnColumns))

	txns, err := NewPostgresStore(mock).List(context.Background(), Filter{Month: "2024-12", CategoryID: &cat})
	require.NoError(t, err)
	assert.Empty(t, txns)
	assert.NoError(t, mock.ExpectationsWereMet())
}
