package sniffer

import (
	"fmt"
	"strings"
)

// Role is the semantic purpose a header is inferred to serve.
type Role string

const (
	RoleHeader      Role = "header"
	RoleDate        Role = "date"
	RoleDescription Role = "description"
	RoleAmount      Role = "amount"
)

// Synonym lists in priority order.
var (
	DateSynonyms = []string{"date", "transaction date", "trans date", "posted date", "posting date"}

	// "description 1" is what several Canadian banks export.
	DescriptionSynonyms = []string{"description", "merchant", "memo", "transaction", "payee", "details", "description 1"}

	AmountSynonyms = []string{"amount", "debit", "credit", "transaction amount", "value", "cad$", "usd$"}
)

// ColumnMapping records which header plays each role. Exactly one of
// AmountColumn and AmountColumns is set.
type ColumnMapping struct {
	DateColumn        string   `json:"date"`
	DescriptionColumn string   `json:"description"`
	AmountColumn      string   `json:"amount,omitempty"`
	AmountColumns     []string `json:"amount_columns,omitempty"`

	DateIndex        int   `json:"-"`
	DescriptionIndex int   `json:"-"`
	AmountIndexes    []int `json:"-"`
}

// ColumnDetectionError means the file's structure could not be understood.
type ColumnDetectionError struct {
	Role    Role
	Headers []string
}

func (e *ColumnDetectionError) Error() string {
	if e.Role == RoleHeader {
		return ErrEmptyFile.Error()
	}
	return fmt.Sprintf("could not find %s column; available columns: [%s]", e.Role, strings.Join(e.Headers, ", "))
}

func (e *ColumnDetectionError) Unwrap() error {
	if e.Role == RoleHeader {
		return ErrEmptyFile
	}
	return nil
}

// MapColumns assigns the date, description and amount roles. Every header
// matching an amount synonym is kept; with more than one, rows take the first
// non-empty cell in synonym order.
func MapColumns(headers []string) (*ColumnMapping, error) {
	if len(headers) == 0 || (len(headers) == 1 && strings.TrimSpace(headers[0]) == "") {
		return nil, &ColumnDetectionError{Role: RoleHeader, Headers: headers}
	}

	normalized := make([]string, len(headers))
	for i, h := range headers {
		normalized[i] = strings.ToLower(strings.TrimSpace(h))
	}

	dateIdx := findColumn(normalized, DateSynonyms)
	if dateIdx < 0 {
		return nil, &ColumnDetectionError{Role: RoleDate, Headers: headers}
	}

	descIdx := findColumn(normalized, DescriptionSynonyms)
	if descIdx < 0 {
		return nil, &ColumnDetectionError{Role: RoleDescription, Headers: headers}
	}

	var amountIdx []int
	for _, synonym := range AmountSynonyms {
		if idx := indexOf(normalized, synonym); idx >= 0 {
			amountIdx = append(amountIdx, idx)
		}
	}
	if len(amountIdx) == 0 {
		return nil, &ColumnDetectionError{Role: RoleAmount, Headers: headers}
	}

	mapping := &ColumnMapping{
		DateColumn:        headers[dateIdx],
		DescriptionColumn: headers[descIdx],
		DateIndex:         dateIdx,
		DescriptionIndex:  descIdx,
		AmountIndexes:     amountIdx,
	}
	if len(amountIdx) == 1 {
		mapping.AmountColumn = headers[amountIdx[0]]
	} else {
		for _, idx := range amountIdx {
			mapping.AmountColumns = append(mapping.AmountColumns, headers[idx])
		}
	}

	return mapping, nil
}

// AmountCell returns the amount cell for a row: the first non-empty cell
// across the amount columns.
func (m *ColumnMapping) AmountCell(row []string) string {
	for _, idx := range m.AmountIndexes {
		if v := Cell(row, idx); v != "" {
			return v
		}
	}
	return ""
}

// Cell returns the trimmed cell at idx, or "" for short rows.
func Cell(row []string, idx int) string {
	if idx < 0 || idx >= len(row) {
		return ""
	}
	return strings.TrimSpace(row[idx])
}

func findColumn(headers, synonyms []string) int {
	for _, synonym := range synonyms {
		if idx := indexOf(headers, synonym); idx >= 0 {
			return idx
		}
	}
	return -1
}

func indexOf(headers []string, name string) int {
	for i, h := range headers {
		if h == name {
			return i
		}
	}
	return -1
}
