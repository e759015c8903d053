package parser

import (
	"fmt"
	"math"
	"strings"
	"unicode"

	"github.com/shopspring/decimal"
)

// AmountParseError reports a cell that is not a number after cleanup.
type AmountParseError struct {
	Raw string
}

func (e *AmountParseError) Error() string {
	return fmt.Sprintf("could not parse amount: %s", e.Raw)
}

// Sentinels that mean "no amount" rather than "bad amount".
var nullAmounts = map[string]bool{
	"":     true,
	"null": true,
	"none": true,
	"n/a":  true,
}

// ParseAmount converts a statement cell into a signed amount.
//
// Accounting parentheses and a leading minus both mark a negative value and
// never cancel each other out. Currency symbols, thousands separators and
// embedded spaces are ignored.
func ParseAmount(raw string) (decimal.Decimal, error) {
	s := strings.TrimSpace(raw)
	if nullAmounts[strings.ToLower(s)] {
		return decimal.Zero, nil
	}

	negative := false
	if strings.HasPrefix(s, "(") && strings.HasSuffix(s, ")") {
		negative = true
		s = s[1 : len(s)-1]
	}

	s = strings.Map(func(r rune) rune {
		if r == ',' || unicode.IsSpace(r) || unicode.Is(unicode.Sc, r) {
			return -1
		}
		return r
	}, s)

	if strings.HasPrefix(s, "-") {
		negative = true
		s = s[1:]
	}

	amount, err := decimal.NewFromString(s)
	if err != nil {
		return decimal.Zero, &AmountParseError{Raw: raw}
	}

	if negative {
		return amount.Abs().Neg(), nil
	}
	return amount, nil
}

// NormalizeAmount accepts an amount that may already be numeric, as
// spreadsheet cells often are, and parses anything else as text.
func NormalizeAmount(v any) (decimal.Decimal, error) {
	switch n := v.(type) {
	case nil:
		return decimal.Zero, nil
	case decimal.Decimal:
		return n, nil
	case float64:
		if math.IsNaN(n) || math.IsInf(n, 0) {
			return decimal.Zero, &AmountParseError{Raw: fmt.Sprint(n)}
		}
		return decimal.NewFromFloat(n), nil
	case int:
		return decimal.NewFromInt(int64(n)), nil
	case int64:
		return decimal.NewFromInt(n), nil
	case string:
		return ParseAmount(n)
	default:
		return ParseAmount(fmt.Sprint(n))
	}
}
