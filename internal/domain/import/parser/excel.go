package parser

import (
	"fmt"
	"io"
	"strings"

	"github.com/xuri/excelize/v2"
)

// ParseExcel reads the statement sheet of an XLSX workbook and parses it the
// same way as a delimited export.
func (p *Parser) ParseExcel(r io.Reader) (*Result, error) {
	f, err := excelize.OpenReader(r)
	if err != nil {
		return nil, fmt.Errorf("failed to open Excel file: %w", err)
	}
	defer f.Close()

	sheet := findStatementSheet(f)
	if sheet == "" {
		return nil, fmt.Errorf("no suitable sheet found")
	}

	rows, err := f.GetRows(sheet)
	if err != nil {
		return nil, fmt.Errorf("failed to read sheet %s: %w", sheet, err)
	}

	return p.ParseRows(rows)
}

// findStatementSheet prefers a sheet named like "Transactions", then the
// first visible sheet.
func findStatementSheet(f *excelize.File) string {
	sheets := f.GetSheetList()
	for _, name := range sheets {
		lower := strings.ToLower(name)
		if strings.Contains(lower, "transaction") || strings.Contains(lower, "statement") {
			return name
		}
	}
	for _, name := range sheets {
		if visible, err := f.GetSheetVisible(name); err == nil && visible {
			return name
		}
	}
	if len(sheets) > 0 {
		return sheets[0]
	}
	return ""
}

// IsExcel reports whether a filename looks like an XLSX workbook.
func IsExcel(filename string) bool {
	lower := strings.ToLower(filename)
	return strings.HasSuffix(lower, ".xlsx") || strings.HasSuffix(lower, ".xlsm")
}
