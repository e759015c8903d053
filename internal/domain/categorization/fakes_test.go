package categorization

import (
	"context"
	"errors"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
)

// memRuleStore is an in-memory RuleStore. Slice order is insertion order.
type memRuleStore struct {
	mu    sync.Mutex
	rules []*Rule

	updateUsageErr error
	// racer, when set, is inserted right before the next Insert call to
	// simulate a concurrent Learn winning the race.
	racer *Rule
}

func newMemRuleStore(rules ...Rule) *memRuleStore {
	s := &memRuleStore{}
	base := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	for i := range rules {
		r := rules[i]
		if r.ID == uuid.Nil {
			r.ID = uuid.New()
		}
		if r.CreatedAt.IsZero() {
			r.CreatedAt = base.Add(time.Duration(i) * time.Minute)
			r.LastUsedAt = r.CreatedAt
		}
		s.rules = append(s.rules, &r)
	}
	return s
}

func (s *memRuleStore) FindOne(_ context.Context, pattern string, matchType MatchType) (*Rule, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, r := range s.rules {
		if r.Pattern == pattern && r.MatchType == matchType {
			cp := *r
			return &cp, nil
		}
	}
	return nil, nil
}

func (s *memRuleStore) FindMany(_ context.Context, matchType MatchType, byUseCount bool) ([]Rule, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []Rule
	for _, r := range s.rules {
		if r.MatchType == matchType {
			out = append(out, *r)
		}
	}
	if byUseCount {
		sort.SliceStable(out, func(i, j int) bool { return out[i].UseCount > out[j].UseCount })
	}
	return out, nil
}

func (s *memRuleStore) Insert(_ context.Context, rule *Rule) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.racer != nil {
		s.rules = append(s.rules, s.racer)
		s.racer = nil
	}
	for _, r := range s.rules {
		if r.Pattern == rule.Pattern && r.MatchType == rule.MatchType {
			return ErrRuleExists
		}
	}
	cp := *rule
	s.rules = append(s.rules, &cp)
	return nil
}

func (s *memRuleStore) UpdateUsage(_ context.Context, id uuid.UUID) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.updateUsageErr != nil {
		return s.updateUsageErr
	}
	for _, r := range s.rules {
		if r.ID == id {
			r.UseCount++
			r.LastUsedAt = time.Now().UTC()
			return nil
		}
	}
	return ErrRuleNotFound
}

func (s *memRuleStore) UpdateCategoryAndUsage(_ context.Context, id uuid.UUID, categoryID int) (*Rule, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, r := range s.rules {
		if r.ID == id {
			r.CategoryID = categoryID
			r.UseCount++
			r.LastUsedAt = time.Now().UTC()
			cp := *r
			return &cp, nil
		}
	}
	return nil, ErrRuleNotFound
}

func (s *memRuleStore) get(pattern string, matchType MatchType) *Rule {
	r, _ := s.FindOne(context.Background(), pattern, matchType)
	return r
}

type memTxn struct {
	ID              uuid.UUID
	Description     string
	CategoryID      int
	AutoCategorized bool
	Confidence      float64
}

type memTxnStore struct {
	mu   sync.Mutex
	txns []*memTxn

	findErr error
}

func (s *memTxnStore) add(description string, categoryID int) uuid.UUID {
	s.mu.Lock()
	defer s.mu.Unlock()
	id := uuid.New()
	s.txns = append(s.txns, &memTxn{ID: id, Description: description, CategoryID: categoryID})
	return id
}

func (s *memTxnStore) get(id uuid.UUID) *memTxn {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, t := range s.txns {
		if t.ID == id {
			cp := *t
			return &cp
		}
	}
	return nil
}

func (s *memTxnStore) FindUncategorizedMatching(_ context.Context, pattern string) ([]uuid.UUID, error) {
	if s.findErr != nil {
		return nil, s.findErr
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	var ids []uuid.UUID
	for _, t := range s.txns {
		if t.CategoryID == UncategorizedID && strings.Contains(strings.ToUpper(t.Description), strings.ToUpper(pattern)) {
			ids = append(ids, t.ID)
		}
	}
	return ids, nil
}

func (s *memTxnStore) UpdateManyByIDs(_ context.Context, ids []uuid.UUID, patch TransactionPatch) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	want := make(map[uuid.UUID]bool, len(ids))
	for _, id := range ids {
		want[id] = true
	}
	var n int64
	for _, t := range s.txns {
		if want[t.ID] && t.CategoryID == UncategorizedID {
			t.CategoryID = patch.CategoryID
			t.AutoCategorized = patch.AutoCategorized
			t.Confidence = patch.Confidence
			n++
		}
	}
	return n, nil
}

var errStoreDown = errors.New("store unavailable")
