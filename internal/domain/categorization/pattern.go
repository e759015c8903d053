package categorization

import (
	"regexp"
	"strings"
)

const maxPatternWords = 4

var (
	storeNumberRe = regexp.MustCompile(`#\d+`)
	dateTokenRe   = regexp.MustCompile(`\d{1,2}[/-]\d{1,2}[/-]\d{2,4}|\d{4}[/-]\d{1,2}[/-]\d{1,2}`)
	trailingNumRe = regexp.MustCompile(`\s+\d+\s*$`)
)

// Normalize trims and upper-cases a description for matching.
func Normalize(description string) string {
	return strings.ToUpper(strings.TrimSpace(description))
}

// MerchantPattern derives the merchant key a contains rule is stored under:
// store numbers, dates and trailing numbers are dropped and at most the
// first four words are kept.
//
//	MerchantPattern("Costco Wholesale #123")  // "COSTCO WHOLESALE"
func MerchantPattern(description string) string {
	p := Normalize(description)
	p = storeNumberRe.ReplaceAllString(p, "")
	p = dateTokenRe.ReplaceAllString(p, "")
	p = trailingNumRe.ReplaceAllString(p, "")

	words := strings.Fields(p)
	if len(words) > maxPatternWords {
		words = words[:maxPatternWords]
	}
	return strings.Join(words, " ")
}
