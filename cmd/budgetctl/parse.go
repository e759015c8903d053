package main

import (
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/gocarina/gocsv"
	"github.com/shopspring/decimal"
	"github.com/spf13/cobra"

	"github.com/FACorreiaa/family-budget/internal/domain/import/parser"
	"github.com/FACorreiaa/family-budget/pkg/money"
)

type recordLine struct {
	Row         int    `csv:"row"`
	Date        string `csv:"date"`
	Description string `csv:"description"`
	Amount      string `csv:"amount"`
}

func newParseCommand() *cobra.Command {
	var currency string
	var skipLines int

	cmd := &cobra.Command{
		Use:   "parse <file>",
		Short: "Parse a statement and print normalized records as CSV",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runParse(cmd.OutOrStdout(), cmd.ErrOrStderr(), args[0], currency, skipLines)
		},
	}

	cmd.Flags().StringVar(&currency, "currency", "", "currency for the summary (default: from the amount header, else USD)")
	cmd.Flags().IntVar(&skipLines, "skip-lines", 0, "metadata lines above the header")

	return cmd
}

func runParse(out, errOut io.Writer, path, currency string, skipLines int) error {
	f, err := os.Open(path)
	if err != nil {
		return fmt.Errorf("opening %s: %w", path, err)
	}
	defer f.Close()

	p := parser.NewParser(parser.Config{SkipLines: skipLines})
	var result *parser.Result
	if parser.IsExcel(path) {
		result, err = p.ParseExcel(f)
	} else {
		result, err = p.Parse(f)
	}
	if err != nil {
		return fmt.Errorf("parsing %s: %w", filepath.Base(path), err)
	}

	lines := make([]recordLine, len(result.Records))
	amounts := make([]decimal.Decimal, len(result.Records))
	for i, rec := range result.Records {
		lines[i] = recordLine{
			Row:         rec.Row,
			Date:        rec.Date.Format("2006-01-02"),
			Description: rec.Description,
			Amount:      rec.Amount.StringFixed(2),
		}
		amounts[i] = rec.Amount
	}
	if err := gocsv.Marshal(lines, out); err != nil {
		return fmt.Errorf("writing records: %w", err)
	}

	for _, msg := range result.RowErrors() {
		fmt.Fprintln(errOut, msg)
	}

	if currency == "" {
		currency = money.USD
		if result.Mapping.AmountColumn != "" {
			currency = money.CurrencyFromHeader(result.Mapping.AmountColumn, money.USD)
		}
	}
	net, err := money.Sum(amounts, currency)
	if err != nil {
		return err
	}
	fmt.Fprintf(errOut, "%d records, %d errors, %d skipped, net %s %s\n",
		len(result.Records), len(result.Errors), result.SkippedRows,
		net.Display(), net.Currency())
	return nil
}
