package transactions

import (
	"context"
	"errors"
	"sync"

	"github.com/google/uuid"

	"github.com/FACorreiaa/family-budget/internal/domain/categories"
	"github.com/FACorreiaa/family-budget/internal/domain/categorization"
)

type memStore struct {
	mu   sync.Mutex
	txns map[uuid.UUID]*Transaction

	setErr error
}

func newMemStore(txns ...*Transaction) *memStore {
	s := &memStore{txns: make(map[uuid.UUID]*Transaction)}
	for _, t := range txns {
		s.txns[t.ID] = t
	}
	return s
}

func (s *memStore) CreateBatch(_ context.Context, txns []*Transaction) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, t := range txns {
		s.txns[t.ID] = t
	}
	return int64(len(txns)), nil
}

func (s *memStore) GetByID(_ context.Context, id uuid.UUID) (*Transaction, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	t, ok := s.txns[id]
	if !ok {
		return nil, ErrNotFound
	}
	cp := *t
	return &cp, nil
}

func (s *memStore) List(_ context.Context, f Filter) ([]Transaction, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []Transaction
	for _, t := range s.txns {
		if f.CategoryID != nil && t.CategoryID != *f.CategoryID {
			continue
		}
		out = append(out, *t)
	}
	return out, nil
}

func (s *memStore) SetCategory(_ context.Context, id uuid.UUID, patch categorization.TransactionPatch) (*Transaction, error) {
	if s.setErr != nil {
		return nil, s.setErr
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	t, ok := s.txns[id]
	if !ok {
		return nil, ErrNotFound
	}
	t.CategoryID = patch.CategoryID
	t.AutoCategorized = patch.AutoCategorized
	t.Confidence = patch.Confidence
	cp := *t
	return &cp, nil
}

func (s *memStore) ListUncategorized(_ context.Context, limit int) ([]Transaction, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []Transaction
	for _, t := range s.txns {
		if t.CategoryID == 0 && len(out) < limit {
			out = append(out, *t)
		}
	}
	return out, nil
}

func (s *memStore) FindUncategorizedMatching(context.Context, string) ([]uuid.UUID, error) {
	return nil, nil
}

func (s *memStore) UpdateManyByIDs(context.Context, []uuid.UUID, categorization.TransactionPatch) (int64, error) {
	return 0, nil
}

type memCategories map[int]string

func (m memCategories) GetByID(_ context.Context, id int) (*categories.Category, error) {
	name, ok := m[id]
	if !ok {
		return nil, categories.ErrNotFound
	}
	return &categories.Category{ID: id, Name: name}, nil
}

func (m memCategories) List(context.Context) ([]categories.Category, error) {
	var out []categories.Category
	for id, name := range m {
		out = append(out, categories.Category{ID: id, Name: name})
	}
	return out, nil
}

var defaultCategories = memCategories{0: "Uncategorized", 1: "Groceries", 2: "Gas", 3: "Restaurants"}

type stubLearner struct {
	learned    []string
	propagated int64
	learnErr   error
}

func (l *stubLearner) Learn(_ context.Context, description string, categoryID int) (*categorization.Rule, error) {
	if l.learnErr != nil {
		return nil, l.learnErr
	}
	l.learned = append(l.learned, description)
	return &categorization.Rule{Pattern: categorization.MerchantPattern(description), CategoryID: categoryID}, nil
}

func (l *stubLearner) PropagateSimilar(context.Context, string, int) (int64, error) {
	return l.propagated, nil
}

var errDB = errors.New("connection refused")
