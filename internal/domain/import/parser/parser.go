// Package parser turns statement exports with unpredictable headers, date
// layouts and amount encodings into normalized transaction records.
// It reads CSV through gocsv and XLSX through excelize.
package parser

import (
	"bytes"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/gocarina/gocsv"
	"github.com/shopspring/decimal"

	"github.com/FACorreiaa/family-budget/internal/domain/import/sniffer"
)

// NormalizedRecord is one parsed statement line.
type NormalizedRecord struct {
	Date        time.Time       `json:"date"`
	Description string          `json:"description"`
	Amount      decimal.Decimal `json:"amount"`
	Row         int             `json:"row"`
}

// RowError is a data row that could not be parsed. The import carries on.
type RowError struct {
	Row    int
	Column sniffer.Role
	Err    error
}

func (e RowError) Error() string {
	return fmt.Sprintf("row %d: %s", e.Row, e.Err.Error())
}

func (e RowError) Unwrap() error {
	return e.Err
}

// Result contains the results of parsing one file
type Result struct {
	Records     []NormalizedRecord
	Errors      []RowError
	Mapping     *sniffer.ColumnMapping
	Headers     []string
	Fingerprint string
	TotalRows   int
	SkippedRows int
}

// RowErrors renders the row error log as "row <n>: <message>" lines.
func (r *Result) RowErrors() []string {
	out := make([]string, len(r.Errors))
	for i, e := range r.Errors {
		out[i] = e.Error()
	}
	return out
}

// Config configures the parser behavior
type Config struct {
	Delimiter rune // 0 = detect from the header line
	SkipLines int  // metadata lines above the header
}

// DefaultConfig returns a parser config with sensible defaults
func DefaultConfig() Config {
	return Config{}
}

// Parser reads statement tables. It holds no state between calls.
type Parser struct {
	config Config
}

// NewParser creates a new parser with the given configuration
func NewParser(config Config) *Parser {
	return &Parser{config: config}
}

// Parse reads a delimited text export. A file whose columns cannot be mapped
// fails with *sniffer.ColumnDetectionError and no records; bad rows are
// collected in Result.Errors.
func (p *Parser) Parse(r io.Reader) (*Result, error) {
	data, err := io.ReadAll(r)
	if err != nil {
		return nil, fmt.Errorf("failed to read input: %w", err)
	}
	data = sniffer.StripBOM(data)

	fileCfg, err := sniffer.DetectConfig(data, p.config.SkipLines)
	if err != nil {
		if errors.Is(err, sniffer.ErrEmptyFile) {
			return nil, &sniffer.ColumnDetectionError{Role: sniffer.RoleHeader}
		}
		return nil, err
	}

	delimiter := p.config.Delimiter
	if delimiter == 0 {
		delimiter = fileCfg.Delimiter
	}

	reader := newCSVReader(skipLines(data, p.config.SkipLines), delimiter)

	headers, err := reader.Read()
	if err != nil {
		if errors.Is(err, io.EOF) {
			return nil, &sniffer.ColumnDetectionError{Role: sniffer.RoleHeader}
		}
		return nil, fmt.Errorf("failed to read header: %w", err)
	}
	headers = trimAll(headers)

	mapping, err := sniffer.MapColumns(headers)
	if err != nil {
		return nil, err
	}

	result := newResult(headers, mapping)
	rowNum := p.config.SkipLines + 1

	for {
		record, err := reader.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		rowNum++
		if err != nil {
			var csvErr *csv.ParseError
			if errors.As(err, &csvErr) {
				result.addError(rowNum, "", csvErr.Err)
				continue
			}
			return nil, fmt.Errorf("failed to read row %d: %w", rowNum, err)
		}
		result.process(record, rowNum)
	}

	return result, nil
}

// ParseRows parses an already split table whose first row (after SkipLines)
// is the header. Row numbers count from the first row of the table.
func (p *Parser) ParseRows(rows [][]string) (*Result, error) {
	start := p.config.SkipLines
	for start < len(rows) && isBlank(rows[start]) {
		start++
	}
	if start >= len(rows) {
		return nil, &sniffer.ColumnDetectionError{Role: sniffer.RoleHeader}
	}

	headers := trimAll(rows[start])
	mapping, err := sniffer.MapColumns(headers)
	if err != nil {
		return nil, err
	}

	result := newResult(headers, mapping)
	for i := start + 1; i < len(rows); i++ {
		result.process(rows[i], i+1)
	}

	return result, nil
}

// Validation is the outcome of a header-only check.
type Validation struct {
	Valid   bool                   `json:"valid"`
	Headers []string               `json:"headers"`
	Mapping *sniffer.ColumnMapping `json:"column_mapping,omitempty"`
	Error   string                 `json:"error,omitempty"`
}

// Validate checks that a file's header can be mapped without parsing rows.
func (p *Parser) Validate(r io.Reader) Validation {
	data, err := io.ReadAll(r)
	if err != nil {
		return Validation{Headers: []string{}, Error: err.Error()}
	}

	fileCfg, err := sniffer.DetectConfig(sniffer.StripBOM(data), p.config.SkipLines)
	if err != nil {
		return Validation{Headers: []string{}, Error: err.Error()}
	}

	mapping, err := sniffer.MapColumns(fileCfg.Headers)
	if err != nil {
		return Validation{Headers: fileCfg.Headers, Error: err.Error()}
	}

	return Validation{Valid: true, Headers: fileCfg.Headers, Mapping: mapping}
}

func newResult(headers []string, mapping *sniffer.ColumnMapping) *Result {
	return &Result{
		Records:     make([]NormalizedRecord, 0, 256),
		Errors:      make([]RowError, 0),
		Mapping:     mapping,
		Headers:     headers,
		Fingerprint: sniffer.Fingerprint(headers),
	}
}

// process converts one data row. Rows with no date, description or amount
// are skipped without an error.
func (r *Result) process(row []string, rowNum int) {
	r.TotalRows++

	dateStr := sniffer.Cell(row, r.Mapping.DateIndex)
	desc := sniffer.Cell(row, r.Mapping.DescriptionIndex)
	amountStr := r.Mapping.AmountCell(row)

	if dateStr == "" && desc == "" && amountStr == "" {
		r.SkippedRows++
		return
	}

	date, err := ParseDate(dateStr)
	if err != nil {
		r.addError(rowNum, sniffer.RoleDate, err)
		return
	}

	amount, err := ParseAmount(amountStr)
	if err != nil {
		r.addError(rowNum, sniffer.RoleAmount, err)
		return
	}

	r.Records = append(r.Records, NormalizedRecord{
		Date:        date,
		Description: desc,
		Amount:      amount,
		Row:         rowNum,
	})
}

func (r *Result) addError(rowNum int, column sniffer.Role, err error) {
	r.Errors = append(r.Errors, RowError{Row: rowNum, Column: column, Err: err})
}

// newCSVReader wraps gocsv's lazy reader with the detected delimiter and
// tolerance for ragged rows.
func newCSVReader(data []byte, delimiter rune) gocsv.CSVReader {
	reader := gocsv.LazyCSVReader(bytes.NewReader(data))
	if r, ok := reader.(*csv.Reader); ok {
		r.Comma = delimiter
		r.FieldsPerRecord = -1
	}
	return reader
}

// skipLines drops the first n lines of data.
func skipLines(data []byte, n int) []byte {
	for i := 0; i < n; i++ {
		idx := bytes.IndexByte(data, '\n')
		if idx < 0 {
			return nil
		}
		data = data[idx+1:]
	}
	return data
}

func trimAll(cells []string) []string {
	out := make([]string, len(cells))
	for i, c := range cells {
		out[i] = strings.TrimSpace(c)
	}
	return out
}

func isBlank(row []string) bool {
	for _, c := range row {
		if strings.TrimSpace(c) != "" {
			return false
		}
	}
	return true
}
