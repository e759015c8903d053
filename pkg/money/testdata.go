package money

import (
	"bytes"
	"fmt"
	"time"

	"github.com/brianvoe/gofakeit/v6"
	"github.com/gocarina/gocsv"
	"github.com/shopspring/decimal"
)

// TestDataGenerator generates realistic bank statement exports using gofakeit.
type TestDataGenerator struct {
	faker *gofakeit.Faker
}

// NewTestDataGenerator creates a new test data generator with a random seed.
func NewTestDataGenerator() *TestDataGenerator {
	return &TestDataGenerator{faker: gofakeit.New(0)}
}

// NewTestDataGeneratorWithSeed creates a generator with a specific seed for reproducibility.
func NewTestDataGeneratorWithSeed(seed int64) *TestDataGenerator {
	return &TestDataGenerator{faker: gofakeit.New(seed)}
}

// StatementLine is one generated statement row, already in export form.
type StatementLine struct {
	Date        string `csv:"Date"`
	Description string `csv:"Description"`
	Amount      string `csv:"Amount"`
}

var merchants = []string{
	"COSTCO WHOLESALE", "TIM HORTONS", "SHELL OIL", "NETFLIX.COM", "STARBUCKS",
	"AMAZON.COM", "WALMART SUPERCENTER", "UBER TRIP", "HYDRO QUEBEC", "LOBLAWS",
	"METRO", "CINEPLEX", "PETRO CANADA", "SPOTIFY", "IKEA",
}

// Merchant returns a raw merchant string with the usual statement noise
// (store numbers, trailing branch codes).
func (g *TestDataGenerator) Merchant() string {
	name := g.faker.RandomString(merchants)
	switch g.faker.Number(0, 2) {
	case 0:
		return fmt.Sprintf("%s #%d", name, g.faker.Number(1, 9999))
	case 1:
		return fmt.Sprintf("%s %s %d", name, g.faker.City(), g.faker.Number(100, 999))
	default:
		return name
	}
}

// Amount returns a signed amount between -500 and 500 with two decimals.
func (g *TestDataGenerator) Amount() decimal.Decimal {
	cents := g.faker.Number(-50000, 50000)
	return decimal.New(int64(cents), -2)
}

// StatementLines generates count rows within the last year.
func (g *TestDataGenerator) StatementLines(count int) []StatementLine {
	now := time.Now()
	lines := make([]StatementLine, count)
	for i := range lines {
		lines[i] = StatementLine{
			Date:        g.faker.DateRange(now.AddDate(-1, 0, 0), now).Format("2006-01-02"),
			Description: g.Merchant(),
			Amount:      g.Amount().StringFixed(2),
		}
	}
	return lines
}

// StatementCSV renders count generated rows as a CSV export with a header.
func (g *TestDataGenerator) StatementCSV(count int) ([]byte, error) {
	var buf bytes.Buffer
	if err := gocsv.Marshal(g.StatementLines(count), &buf); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}
