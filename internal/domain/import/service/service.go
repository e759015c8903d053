// Package service orchestrates statement imports: parse, classify, persist
// and record upload history.
package service

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"
	"unicode/utf8"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/FACorreiaa/family-budget/internal/domain/categorization"
	"github.com/FACorreiaa/family-budget/internal/domain/import/parser"
	"github.com/FACorreiaa/family-budget/internal/domain/import/sniffer"
	"github.com/FACorreiaa/family-budget/internal/domain/transactions"
	"github.com/FACorreiaa/family-budget/pkg/metrics"
	"github.com/FACorreiaa/family-budget/pkg/storage"
)

// ErrNoData is returned when a file parses but yields no records.
var ErrNoData = errors.New("no valid transactions found in file")

// ParseError wraps a file that could not be read as a statement.
type ParseError struct {
	Err error
}

func (e *ParseError) Error() string {
	return fmt.Sprintf("error parsing file: %s", e.Err.Error())
}

func (e *ParseError) Unwrap() error {
	return e.Err
}

// Classifier assigns categories to descriptions. Results are index-aligned.
type Classifier interface {
	ClassifyBatch(ctx context.Context, descriptions []string) ([]categorization.ClassificationResult, error)
}

// TransactionWriter persists imported transactions.
type TransactionWriter interface {
	CreateBatch(ctx context.Context, txns []*transactions.Transaction) (int64, error)
}

// ImportResult summarizes one import.
type ImportResult struct {
	UploadID      uuid.UUID `json:"upload_id"`
	Filename      string    `json:"filename"`
	TotalRows     int       `json:"total_rows"`
	Categorized   int       `json:"categorized"`
	Uncategorized int       `json:"uncategorized"`
	Month         string    `json:"month"`
	Errors        []string  `json:"errors"`
}

const maxSourceFileLen = 255

// ImportService orchestrates file imports
type ImportService struct {
	parser     *parser.Parser
	uploads    UploadStore
	txns       TransactionWriter
	classifier Classifier      // optional: nil leaves every record uncategorized
	archive    storage.Storage // optional: nil skips archiving
	metrics    *metrics.Metrics
	logger     *slog.Logger
	tracer     trace.Tracer
	now        func() time.Time
}

// NewImportService creates a new import service
func NewImportService(uploads UploadStore, txns TransactionWriter, logger *slog.Logger) *ImportService {
	return &ImportService{
		parser:  parser.NewParser(parser.DefaultConfig()),
		uploads: uploads,
		txns:    txns,
		logger:  logger,
		tracer:  otel.Tracer("github.com/FACorreiaa/family-budget/import"),
		now:     time.Now,
	}
}

// WithClassifier adds import-time categorization
func (s *ImportService) WithClassifier(c Classifier) *ImportService {
	s.classifier = c
	return s
}

// WithStorage archives every uploaded file before it is parsed
func (s *ImportService) WithStorage(st storage.Storage) *ImportService {
	s.archive = st
	return s
}

// WithMetrics records import outcomes
func (s *ImportService) WithMetrics(m *metrics.Metrics) *ImportService {
	s.metrics = m
	return s
}

// WithParser replaces the default parser configuration
func (s *ImportService) WithParser(p *parser.Parser) *ImportService {
	s.parser = p
	return s
}

// Import parses data, classifies every record and stores the transactions
// together with an upload history entry. Row errors do not fail the import.
func (s *ImportService) Import(ctx context.Context, filename string, data []byte) (*ImportResult, error) {
	ctx, span := s.tracer.Start(ctx, "import.Import",
		trace.WithAttributes(attribute.String("filename", filename), attribute.Int("bytes", len(data))))
	defer span.End()

	start := s.now()

	parsed, err := s.parse(filename, data)
	if err != nil {
		span.SetStatus(codes.Error, "parse failed")
		s.metrics.RecordImport("parse_error", 0, 0, 0, s.now().Sub(start))
		return nil, &ParseError{Err: err}
	}
	if len(parsed.Records) == 0 {
		s.metrics.RecordImport("no_data", 0, len(parsed.Errors), parsed.SkippedRows, s.now().Sub(start))
		return nil, ErrNoData
	}

	uploadID := uuid.New()
	source := truncate(filename, maxSourceFileLen)
	rowErrors := parsed.RowErrors()

	results := s.classify(ctx, parsed.Records)

	txns := make([]*transactions.Transaction, 0, len(parsed.Records))
	categorized := 0
	for i, rec := range parsed.Records {
		res := results[i]
		txn, err := transactions.NewTransaction(rec.Date, rec.Description, rec.Amount, transactions.RecordOptions{
			CategoryID:      res.CategoryID,
			UploadID:        &uploadID,
			SourceFile:      source,
			AutoCategorized: res.Matched(),
			Confidence:      res.Confidence,
		})
		if err != nil {
			rowErrors = append(rowErrors, fmt.Sprintf("row %d: %s", rec.Row, err.Error()))
			continue
		}
		if res.Matched() {
			categorized++
		}
		txns = append(txns, txn)
	}
	if len(txns) == 0 {
		s.metrics.RecordImport("no_data", 0, len(rowErrors), parsed.SkippedRows, s.now().Sub(start))
		return nil, ErrNoData
	}

	upload := &Upload{
		ID:                 uploadID,
		Filename:           filename,
		StoredPath:         s.store(ctx, filename, data),
		Fingerprint:        parsed.Fingerprint,
		Month:              txns[0].Date.Format("2006-01"),
		RowCount:           len(txns),
		CategorizedCount:   categorized,
		UncategorizedCount: len(txns) - categorized,
		Status:             StatusProcessed,
		Errors:             rowErrors,
	}
	if err := s.uploads.Create(ctx, upload); err != nil {
		span.RecordError(err)
		s.metrics.RecordImport("failed", 0, len(rowErrors), parsed.SkippedRows, s.now().Sub(start))
		return nil, err
	}

	if _, err := s.txns.CreateBatch(ctx, txns); err != nil {
		span.RecordError(err)
		if serr := s.uploads.SetStatus(ctx, uploadID, StatusFailed); serr != nil {
			s.logger.WarnContext(ctx, "failed to mark upload as failed",
				slog.String("upload_id", uploadID.String()),
				slog.Any("error", serr))
		}
		s.metrics.RecordImport("failed", 0, len(rowErrors), parsed.SkippedRows, s.now().Sub(start))
		return nil, fmt.Errorf("failed to save transactions: %w", err)
	}

	s.metrics.RecordImport("success", len(txns), len(rowErrors), parsed.SkippedRows, s.now().Sub(start))
	s.logger.InfoContext(ctx, "statement imported",
		slog.String("filename", filename),
		slog.String("upload_id", uploadID.String()),
		slog.Int("rows", len(txns)),
		slog.Int("categorized", categorized),
		slog.Int("row_errors", len(rowErrors)),
	)
	span.SetAttributes(attribute.Int("rows", len(txns)), attribute.Int("categorized", categorized))

	return &ImportResult{
		UploadID:      uploadID,
		Filename:      filename,
		TotalRows:     len(txns),
		Categorized:   categorized,
		Uncategorized: len(txns) - categorized,
		Month:         upload.Month,
		Errors:        rowErrors,
	}, nil
}

// Validate checks that the header of a file maps to date, description and
// amount columns without importing anything.
func (s *ImportService) Validate(filename string, data []byte) parser.Validation {
	if !parser.IsExcel(filename) {
		return s.parser.Validate(bytes.NewReader(data))
	}

	res, err := s.parser.ParseExcel(bytes.NewReader(data))
	if err != nil {
		headers := []string{}
		var colErr *sniffer.ColumnDetectionError
		if errors.As(err, &colErr) && colErr.Headers != nil {
			headers = colErr.Headers
		}
		return parser.Validation{Headers: headers, Error: err.Error()}
	}
	return parser.Validation{Valid: true, Headers: res.Headers, Mapping: res.Mapping}
}

// ListUploads returns a page of upload history, newest first, and the total.
func (s *ImportService) ListUploads(ctx context.Context, limit, offset int) ([]Upload, int, error) {
	return s.uploads.List(ctx, limit, offset)
}

// GetUpload returns one upload history entry.
func (s *ImportService) GetUpload(ctx context.Context, id uuid.UUID) (*Upload, error) {
	return s.uploads.GetByID(ctx, id)
}

func (s *ImportService) parse(filename string, data []byte) (*parser.Result, error) {
	if parser.IsExcel(filename) {
		return s.parser.ParseExcel(bytes.NewReader(data))
	}
	return s.parser.Parse(bytes.NewReader(data))
}

// classify fails open: any classifier error leaves every record
// uncategorized.
func (s *ImportService) classify(ctx context.Context, records []parser.NormalizedRecord) []categorization.ClassificationResult {
	results := make([]categorization.ClassificationResult, len(records))
	for i := range results {
		results[i] = categorization.ClassificationResult{
			CategoryID: categorization.UncategorizedID,
			MatchType:  categorization.MatchNone,
		}
	}
	if s.classifier == nil {
		return results
	}

	descriptions := make([]string, len(records))
	for i, rec := range records {
		descriptions[i] = rec.Description
	}

	classified, err := s.classifier.ClassifyBatch(ctx, descriptions)
	if err != nil || len(classified) != len(records) {
		s.logger.WarnContext(ctx, "categorization failed, importing uncategorized",
			slog.Int("records", len(records)),
			slog.Any("error", err))
		return results
	}
	return classified
}

// store archives the raw file; failures are logged and yield an empty path.
func (s *ImportService) store(ctx context.Context, filename string, data []byte) string {
	if s.archive == nil {
		return ""
	}
	info, err := s.archive.Save(ctx, filename, contentType(filename), bytes.NewReader(data))
	if err != nil {
		s.logger.WarnContext(ctx, "failed to archive upload",
			slog.String("filename", filename),
			slog.Any("error", err))
		return ""
	}
	return info.Path
}

func contentType(filename string) string {
	if parser.IsExcel(filename) {
		return "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"
	}
	return "text/csv"
}

func truncate(s string, n int) string {
	if utf8.RuneCountInString(s) <= n {
		return s
	}
	return string([]rune(s)[:n])
}
