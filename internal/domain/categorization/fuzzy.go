package categorization

import (
	"github.com/lithammer/fuzzysearch/fuzzy"
)

// DefaultFuzzyThreshold is the minimum Ratio a fuzzy rule must reach.
const DefaultFuzzyThreshold = 80

// Ratio scores the similarity of two strings from 0 to 100 as the indel
// ratio over runes: 100 * 2M / (len(a) + len(b)), where M is the length of
// the longest common subsequence, rounded half up. Two empty strings score
// 100.
func Ratio(a, b string) int {
	ra, rb := []rune(a), []rune(b)
	total := len(ra) + len(rb)
	if total == 0 {
		return 100
	}

	m := commonSubsequence(a, b, ra, rb)
	return (400*m + total) / (2 * total)
}

// commonSubsequence returns the LCS length of a and b. When one string is a
// subsequence of the other the answer is its length and no table is built.
func commonSubsequence(a, b string, ra, rb []rune) int {
	switch {
	case len(ra) == 0 || len(rb) == 0:
		return 0
	case len(ra) <= len(rb) && fuzzy.Match(a, b):
		return len(ra)
	case len(rb) <= len(ra) && fuzzy.Match(b, a):
		return len(rb)
	}

	if len(rb) > len(ra) {
		ra, rb = rb, ra
	}
	prev := make([]int, len(rb)+1)
	cur := make([]int, len(rb)+1)
	for i := range ra {
		for j := range rb {
			switch {
			case ra[i] == rb[j]:
				cur[j+1] = prev[j] + 1
			case prev[j+1] >= cur[j]:
				cur[j+1] = prev[j+1]
			default:
				cur[j+1] = cur[j]
			}
		}
		prev, cur = cur, prev
	}
	return prev[len(rb)]
}
