package categorization

import (
	"context"
	"fmt"

	"github.com/cloudflare/ahocorasick"
)

// strategy is one tier of the cascade. match returns the winning rule and
// its confidence, or nil when the tier has no hit.
type strategy struct {
	matchType MatchType
	match     func(ctx context.Context, s *snapshot, description string) (*Rule, float64, error)
}

// cascade is evaluated in order; the first tier with a hit wins.
var cascade = []strategy{
	{matchType: MatchExact, match: matchExact},
	{matchType: MatchContains, match: matchContains},
	{matchType: MatchFuzzy, match: matchFuzzy},
}

// Engine runs the match cascade against a RuleStore.
type Engine struct {
	rules     RuleStore
	threshold int
}

// NewEngine creates an engine. A threshold outside 1..100 falls back to
// DefaultFuzzyThreshold.
func NewEngine(rules RuleStore, fuzzyThreshold int) *Engine {
	if fuzzyThreshold <= 0 || fuzzyThreshold > 100 {
		fuzzyThreshold = DefaultFuzzyThreshold
	}
	return &Engine{rules: rules, threshold: fuzzyThreshold}
}

// snapshot caches the contains and fuzzy rule sets for the lifetime of one
// Classify or ClassifyBatch call. Sets are loaded on first use so an exact
// hit never touches them. The contains set is reloaded after a hit on any
// rule other than the top-ranked one.
type snapshot struct {
	engine *Engine

	contains       *containsIndex
	fuzzy          []Rule
	fuzzyLoaded    bool
	containsLoaded bool
}

func (e *Engine) snapshot() *snapshot {
	return &snapshot{engine: e}
}

// classify runs the cascade. It does not record usage.
func (s *snapshot) classify(ctx context.Context, description string) (ClassificationResult, error) {
	normalized := Normalize(description)
	if normalized == "" {
		return noMatch(), nil
	}

	for _, st := range cascade {
		rule, confidence, err := st.match(ctx, s, normalized)
		if err != nil {
			return noMatch(), fmt.Errorf("%s match: %w", st.matchType, err)
		}
		if rule != nil {
			return ClassificationResult{
				CategoryID: rule.CategoryID,
				Confidence: confidence,
				MatchType:  st.matchType,
				RuleID:     rule.ID,
			}, nil
		}
	}
	return noMatch(), nil
}

func matchExact(ctx context.Context, s *snapshot, description string) (*Rule, float64, error) {
	rule, err := s.engine.rules.FindOne(ctx, description, MatchExact)
	if err != nil || rule == nil {
		return nil, 0, err
	}
	return rule, ExactConfidence, nil
}

func matchContains(ctx context.Context, s *snapshot, description string) (*Rule, float64, error) {
	if !s.containsLoaded {
		rules, err := s.engine.rules.FindMany(ctx, MatchContains, true)
		if err != nil {
			return nil, 0, err
		}
		s.contains = newContainsIndex(rules)
		s.containsLoaded = true
	}

	rule := s.contains.match(description)
	if rule == nil {
		return nil, 0, nil
	}
	// the usage bump that follows may lift this rule past a higher-ranked
	// one, so the next description re-reads the order
	if rule.ID != s.contains.rules[0].ID {
		s.containsLoaded = false
	}
	return rule, ContainsConfidence, nil
}

func matchFuzzy(ctx context.Context, s *snapshot, description string) (*Rule, float64, error) {
	if !s.fuzzyLoaded {
		rules, err := s.engine.rules.FindMany(ctx, MatchFuzzy, false)
		if err != nil {
			return nil, 0, err
		}
		s.fuzzy = rules
		s.fuzzyLoaded = true
	}

	var best *Rule
	bestScore := 0
	for i := range s.fuzzy {
		score := Ratio(Normalize(s.fuzzy[i].Pattern), description)
		// strict: equal scores keep the earlier rule
		if score > bestScore {
			best, bestScore = &s.fuzzy[i], score
		}
	}

	if best == nil || bestScore < s.engine.threshold {
		return nil, 0, nil
	}
	return best, float64(bestScore) / 100.0, nil
}

// containsIndex finds every contains pattern occurring in a description in
// one pass. Rules keep the store's order, so the lowest matched index is the
// most used rule.
type containsIndex struct {
	matcher *ahocorasick.Matcher
	rules   []Rule
}

func newContainsIndex(rules []Rule) *containsIndex {
	idx := &containsIndex{rules: make([]Rule, 0, len(rules))}
	patterns := make([][]byte, 0, len(rules))
	seen := make(map[string]bool, len(rules))
	for _, r := range rules {
		p := Normalize(r.Pattern)
		// a repeated pattern would shadow the higher-ranked rule in the trie
		if p == "" || seen[p] {
			continue
		}
		seen[p] = true
		idx.rules = append(idx.rules, r)
		patterns = append(patterns, []byte(p))
	}
	if len(patterns) > 0 {
		idx.matcher = ahocorasick.NewMatcher(patterns)
	}
	return idx
}

func (c *containsIndex) match(description string) *Rule {
	if c == nil || c.matcher == nil {
		return nil
	}

	hits := c.matcher.Match([]byte(description))
	if len(hits) == 0 {
		return nil
	}

	first := hits[0]
	for _, h := range hits[1:] {
		if h < first {
			first = h
		}
	}
	return &c.rules[first]
}

// Len returns the number of indexed patterns.
func (c *containsIndex) Len() int {
	if c == nil {
		return 0
	}
	return len(c.rules)
}
