package cron

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/FACorreiaa/family-budget/internal/domain/categorization"
	"github.com/FACorreiaa/family-budget/internal/domain/transactions"
	"github.com/FACorreiaa/family-budget/pkg/metrics"
)

type memBacklog struct {
	txns    []transactions.Transaction
	listErr error
	// ids already categorized by someone else before the sweep writes
	raced map[uuid.UUID]bool
	calls []categorization.TransactionPatch
}

func (m *memBacklog) ListUncategorized(_ context.Context, limit int) ([]transactions.Transaction, error) {
	if m.listErr != nil {
		return nil, m.listErr
	}
	if len(m.txns) > limit {
		return m.txns[:limit], nil
	}
	return m.txns, nil
}

func (m *memBacklog) UpdateManyByIDs(_ context.Context, ids []uuid.UUID, patch categorization.TransactionPatch) (int64, error) {
	m.calls = append(m.calls, patch)
	var n int64
	for _, id := range ids {
		if !m.raced[id] {
			n++
		}
	}
	return n, nil
}

type tableClassifier map[string]categorization.ClassificationResult

func (c tableClassifier) ClassifyBatch(_ context.Context, descriptions []string) ([]categorization.ClassificationResult, error) {
	out := make([]categorization.ClassificationResult, len(descriptions))
	for i, d := range descriptions {
		if r, ok := c[d]; ok {
			out[i] = r
		} else {
			out[i] = categorization.ClassificationResult{MatchType: categorization.MatchNone}
		}
	}
	return out, nil
}

func txn(desc string) transactions.Transaction {
	return transactions.Transaction{ID: uuid.New(), Description: desc}
}

var discard = slog.New(slog.NewTextHandler(io.Discard, nil))

func TestSweep_GroupsByOutcome(t *testing.T) {
	store := &memBacklog{txns: []transactions.Transaction{
		txn("COSTCO WHOLESALE #1"), txn("UNKNOWN"), txn("COSTCO WHOLESALE #2"), txn("SHELL OIL"),
	}}
	contains := categorization.ClassificationResult{CategoryID: 1, Confidence: 0.9, MatchType: categorization.MatchContains}
	classifier := tableClassifier{
		"COSTCO WHOLESALE #1": contains,
		"COSTCO WHOLESALE #2": contains,
		"SHELL OIL":           {CategoryID: 2, Confidence: 1, MatchType: categorization.MatchExact},
	}
	m := metrics.New()

	n, err := NewScheduler(store, classifier, 100, m, discard).Sweep(context.Background())

	require.NoError(t, err)
	assert.Equal(t, int64(3), n)
	require.Len(t, store.calls, 2)
	assert.Equal(t, categorization.TransactionPatch{CategoryID: 1, AutoCategorized: true, Confidence: 0.9}, store.calls[0])
	assert.Equal(t, 2, store.calls[1].CategoryID)

	rec := httptest.NewRecorder()
	m.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	assert.Contains(t, rec.Body.String(), `budget_backlog_sweep_transactions_total{outcome="categorized"} 3`)
	assert.Contains(t, rec.Body.String(), `budget_backlog_sweep_transactions_total{outcome="uncategorized"} 1`)
}

func TestSweep_SkipsRowsCategorizedConcurrently(t *testing.T) {
	a, b := txn("COSTCO"), txn("COSTCO")
	store := &memBacklog{txns: []transactions.Transaction{a, b}, raced: map[uuid.UUID]bool{b.ID: true}}
	classifier := tableClassifier{"COSTCO": {CategoryID: 1, Confidence: 0.9, MatchType: categorization.MatchContains}}

	n, err := NewScheduler(store, classifier, 100, nil, discard).Sweep(context.Background())

	require.NoError(t, err)
	assert.Equal(t, int64(1), n)
}

func TestSweep_EmptyBacklogAndErrors(t *testing.T) {
	n, err := NewScheduler(&memBacklog{}, tableClassifier{}, 10, nil, discard).Sweep(context.Background())
	require.NoError(t, err)
	assert.Zero(t, n)

	_, err = NewScheduler(&memBacklog{listErr: errors.New("down")}, tableClassifier{}, 10, nil, discard).Sweep(context.Background())
	assert.ErrorContains(t, err, "failed to list uncategorized")
}

func TestStart_Schedule(t *testing.T) {
	s := NewScheduler(&memBacklog{}, tableClassifier{}, 10, nil, discard)
	require.NoError(t, s.Start(""))
	assert.Empty(t, s.cron.Entries())

	assert.Error(t, s.Start("not a schedule"))

	require.NoError(t, s.Start("0 3 * * *"))
	assert.Len(t, s.cron.Entries(), 1)
	<-s.Stop().Done()
}
