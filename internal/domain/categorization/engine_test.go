package categorization

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestContainsIndex(t *testing.T) {
	idx := newContainsIndex([]Rule{
		{Pattern: "WALMART SUPERCENTER", CategoryID: 1},
		{Pattern: "", CategoryID: 9},
		{Pattern: "mart", CategoryID: 4},
		{Pattern: "UBER", CategoryID: 2},
	})

	assert.Equal(t, 3, idx.Len())

	tests := []struct {
		description string
		wantCat     int
		wantNil     bool
	}{
		{"WALMART SUPERCENTER #1234", 1, false},
		{"KMART", 4, false},
		{"UBER EATS", 2, false},
		{"NETFLIX.COM", 0, true},
	}

	for _, tt := range tests {
		t.Run(tt.description, func(t *testing.T) {
			rule := idx.match(tt.description)
			if tt.wantNil {
				assert.Nil(t, rule)
				return
			}
			require.NotNil(t, rule)
			assert.Equal(t, tt.wantCat, rule.CategoryID)
		})
	}
}

func TestContainsIndex_Empty(t *testing.T) {
	var nilIdx *containsIndex
	assert.Nil(t, nilIdx.match("ANY"))
	assert.Nil(t, newContainsIndex(nil).match("ANY"))
}

func TestSnapshot_LoadsTiersLazily(t *testing.T) {
	rules := &countingRuleStore{memRuleStore: newMemRuleStore(
		Rule{Pattern: "NETFLIX.COM", CategoryID: 4, MatchType: MatchExact},
		Rule{Pattern: "NETFLIX", CategoryID: 1, MatchType: MatchContains},
	)}
	snap := NewEngine(rules, 0).snapshot()

	result, err := snap.classify(context.Background(), "NETFLIX.COM")
	require.NoError(t, err)
	assert.Equal(t, MatchExact, result.MatchType)
	assert.Zero(t, rules.findMany)

	for _, d := range []string{"NETFLIX 1", "NETFLIX 2", "OTHER"} {
		_, err := snap.classify(context.Background(), d)
		require.NoError(t, err)
	}
	// contains and fuzzy loaded once each
	assert.Equal(t, 2, rules.findMany)
}

func TestNewEngine_ThresholdBounds(t *testing.T) {
	assert.Equal(t, DefaultFuzzyThreshold, NewEngine(nil, 0).threshold)
	assert.Equal(t, DefaultFuzzyThreshold, NewEngine(nil, 101).threshold)
	assert.Equal(t, 65, NewEngine(nil, 65).threshold)
}

type countingRuleStore struct {
	*memRuleStore
	findMany int
}

func (s *countingRuleStore) FindMany(ctx context.Context, matchType MatchType, byUseCount bool) ([]Rule, error) {
	s.findMany++
	return s.memRuleStore.FindMany(ctx, matchType, byUseCount)
}
