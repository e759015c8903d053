// Package transactions stores imported transactions and applies manual
// category corrections.
package transactions

import (
	"errors"
	"fmt"
	"reflect"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

var (
	// ErrNotFound is returned for an unknown transaction id.
	ErrNotFound = errors.New("transaction not found")
	// ErrInvalidCategory is returned when a correction names a missing category.
	ErrInvalidCategory = errors.New("invalid category id")
)

// Transaction is a persisted statement line.
type Transaction struct {
	ID              uuid.UUID       `json:"id"`
	Date            time.Time       `json:"date"`
	Description     string          `json:"description"`
	Amount          decimal.Decimal `json:"amount"`
	CategoryID      int             `json:"category_id"`
	UploadID        *uuid.UUID      `json:"upload_id,omitempty"`
	SourceFile      string          `json:"source_file"`
	Notes           string          `json:"notes"`
	AutoCategorized bool            `json:"auto_categorized"`
	Confidence      float64         `json:"confidence"`
	CreatedAt       time.Time       `json:"created_at"`
	UpdatedAt       time.Time       `json:"updated_at"`
}

// RecordOptions are the optional fields of a new transaction. The zero
// value is the default: uncategorized, no source, no notes, confidence 0.
type RecordOptions struct {
	CategoryID      int        `json:"category_id" validate:"gte=0"`
	UploadID        *uuid.UUID `json:"upload_id"`
	SourceFile      string     `json:"source_file" validate:"max=255"`
	Notes           string     `json:"notes" validate:"max=1000"`
	AutoCategorized bool       `json:"auto_categorized"`
	Confidence      float64    `json:"confidence" validate:"gte=0,lte=1"`
}

// NewTransaction builds a transaction from a parsed record and options.
// The description is trimmed and the date truncated to a calendar day.
func NewTransaction(date time.Time, description string, amount decimal.Decimal, opts RecordOptions) (*Transaction, error) {
	if err := validate.Struct(opts); err != nil {
		return nil, fmt.Errorf("invalid record options: %s", FieldErrors(err))
	}

	description = strings.TrimSpace(description)
	if description == "" {
		return nil, errors.New("description is required")
	}

	return &Transaction{
		ID:              uuid.New(),
		Date:            time.Date(date.Year(), date.Month(), date.Day(), 0, 0, 0, 0, time.UTC),
		Description:     description,
		Amount:          amount,
		CategoryID:      opts.CategoryID,
		UploadID:        opts.UploadID,
		SourceFile:      opts.SourceFile,
		Notes:           opts.Notes,
		AutoCategorized: opts.AutoCategorized,
		Confidence:      opts.Confidence,
	}, nil
}

var validate = newValidator()

func newValidator() *validator.Validate {
	v := validator.New()
	v.RegisterTagNameFunc(func(fld reflect.StructField) string {
		name := strings.SplitN(fld.Tag.Get("json"), ",", 2)[0]
		if name == "-" {
			return ""
		}
		return name
	})
	return v
}

// FieldErrors flattens validator errors into "field: rule" pairs.
func FieldErrors(err error) string {
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		return err.Error()
	}

	parts := make([]string, 0, len(verrs))
	for _, fe := range verrs {
		rule := fe.Tag()
		if fe.Param() != "" {
			rule += "=" + fe.Param()
		}
		parts = append(parts, fe.Field()+": "+rule)
	}
	return strings.Join(parts, ", ")
}
