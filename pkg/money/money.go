// Package money formats statement amounts for display. Amounts are kept as
// shopspring decimals in the domain and converted to go-money minor units
// only at the edges.
package money

import (
	"fmt"
	"strings"

	"github.com/Rhymond/go-money"
	"github.com/shopspring/decimal"
)

// Common currency codes (ISO-4217)
const (
	USD = "USD"
	CAD = "CAD"
)

// Money represents a monetary value with currency.
type Money struct {
	m *money.Money
}

// New creates a new Money value from minor units and a currency code.
func New(amountCents int64, currencyCode string) *Money {
	return &Money{m: money.New(amountCents, currencyCode)}
}

// NewFromDecimal creates Money from a decimal amount, rounding half away
// from zero to the currency's minor unit.
func NewFromDecimal(amount decimal.Decimal, currencyCode string) *Money {
	currency := money.GetCurrency(currencyCode)
	if currency == nil {
		currencyCode = USD
		currency = money.GetCurrency(USD)
	}

	multiplier := decimal.New(1, int32(currency.Fraction))
	cents := amount.Mul(multiplier).Round(0).IntPart()

	return New(cents, currencyCode)
}

// Zero returns a zero Money value for the given currency
func Zero(currencyCode string) *Money {
	return New(0, currencyCode)
}

// Currency returns the ISO-4217 currency code
func (m *Money) Currency() string {
	if m == nil || m.m == nil {
		return ""
	}
	return m.m.Currency().Code
}

// Add adds two Money values. Returns error if currencies don't match.
func (m *Money) Add(other *Money) (*Money, error) {
	if m == nil || m.m == nil {
		return other, nil
	}
	if other == nil || other.m == nil {
		return m, nil
	}

	result, err := m.m.Add(other.m)
	if err != nil {
		return nil, err
	}
	return &Money{m: result}, nil
}

// Display returns a formatted string for display (e.g., "$1,234.56")
func (m *Money) Display() string {
	if m == nil || m.m == nil {
		return "$0.00"
	}
	return m.m.Display()
}

// Sum totals decimal amounts in one currency.
func Sum(amounts []decimal.Decimal, currencyCode string) (*Money, error) {
	total := Zero(currencyCode)
	for _, a := range amounts {
		next, err := total.Add(NewFromDecimal(a, currencyCode))
		if err != nil {
			return nil, fmt.Errorf("summing amounts: %w", err)
		}
		total = next
	}
	return total, nil
}

// CurrencyFromHeader guesses a currency from an amount column header such as
// "CAD$" or "USD$". Unknown headers yield def.
func CurrencyFromHeader(header, def string) string {
	code := strings.ToUpper(strings.Trim(strings.TrimSpace(header), "$€£ "))
	if len(code) == 3 && money.GetCurrency(code) != nil {
		return code
	}
	return def
}
