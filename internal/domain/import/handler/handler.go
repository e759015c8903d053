// Package handler serves statement uploads and upload history over HTTP.
package handler

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/FACorreiaa/family-budget/internal/api/middleware"
	"github.com/FACorreiaa/family-budget/internal/domain/import/parser"
	"github.com/FACorreiaa/family-budget/internal/domain/import/service"
	"github.com/FACorreiaa/family-budget/internal/domain/import/sniffer"
)

// DefaultMaxUploadBytes caps a multipart upload when no limit is configured.
const DefaultMaxUploadBytes = 10 << 20

const defaultPageSize = 50

var allowedExtensions = map[string]bool{".csv": true, ".txt": true, ".xlsx": true}

// Importer is the import service surface the handler needs.
type Importer interface {
	Import(ctx context.Context, filename string, data []byte) (*service.ImportResult, error)
	Validate(filename string, data []byte) parser.Validation
	ListUploads(ctx context.Context, limit, offset int) ([]service.Upload, int, error)
	GetUpload(ctx context.Context, id uuid.UUID) (*service.Upload, error)
}

// ImportHandler handles upload endpoints
type ImportHandler struct {
	svc      Importer
	maxBytes int64
	logger   *slog.Logger
}

// NewImportHandler creates a new import handler. maxBytes <= 0 uses
// DefaultMaxUploadBytes.
func NewImportHandler(svc Importer, maxBytes int64, logger *slog.Logger) *ImportHandler {
	if maxBytes <= 0 {
		maxBytes = DefaultMaxUploadBytes
	}
	return &ImportHandler{svc: svc, maxBytes: maxBytes, logger: logger}
}

// Register mounts the routes on mux.
func (h *ImportHandler) Register(mux *http.ServeMux) {
	mux.HandleFunc("POST /upload/csv", h.Upload)
	mux.HandleFunc("POST /upload/validate", h.Validate)
	mux.HandleFunc("GET /uploads", h.ListUploads)
	mux.HandleFunc("GET /uploads/{id}", h.GetUpload)
}

// Upload handles POST /upload/csv
func (h *ImportHandler) Upload(w http.ResponseWriter, r *http.Request) {
	filename, data, ok := h.readFile(w, r)
	if !ok {
		return
	}

	// a workbook is only opened once; Import reports an unmappable header
	if !parser.IsExcel(filename) {
		if v := h.svc.Validate(filename, data); !v.Valid {
			middleware.WriteError(w, http.StatusBadRequest, middleware.CodeInvalidCSV, v.Error)
			return
		}
	}

	result, err := h.svc.Import(r.Context(), filename, data)
	var (
		parseErr *service.ParseError
		colErr   *sniffer.ColumnDetectionError
	)
	switch {
	case errors.As(err, &colErr):
		middleware.WriteError(w, http.StatusBadRequest, middleware.CodeInvalidCSV, colErr.Error())
		return
	case errors.As(err, &parseErr):
		h.logger.WarnContext(r.Context(), "statement parsing failed",
			slog.String("filename", filename),
			slog.Any("error", err))
		middleware.WriteError(w, http.StatusBadRequest, middleware.CodeParseError, err.Error())
		return
	case errors.Is(err, service.ErrNoData):
		middleware.WriteError(w, http.StatusBadRequest, middleware.CodeNoData, "No valid transactions found in file")
		return
	case err != nil:
		h.logger.ErrorContext(r.Context(), "failed to import statement",
			slog.String("filename", filename),
			slog.Any("error", err))
		middleware.WriteError(w, http.StatusInternalServerError, middleware.CodeDatabaseError, "Failed to save uploaded transactions")
		return
	}

	middleware.WriteSuccess(w, http.StatusCreated, result,
		fmt.Sprintf("Successfully imported %d transactions", result.TotalRows), nil)
}

// Validate handles POST /upload/validate
func (h *ImportHandler) Validate(w http.ResponseWriter, r *http.Request) {
	filename, data, ok := h.readFile(w, r)
	if !ok {
		return
	}

	v := h.svc.Validate(filename, data)
	if !v.Valid {
		middleware.WriteError(w, http.StatusBadRequest, middleware.CodeInvalidCSV, v.Error)
		return
	}
	middleware.WriteSuccess(w, http.StatusOK, map[string]any{
		"headers":        v.Headers,
		"column_mapping": v.Mapping,
	}, "File is valid", nil)
}

type uploadSummary struct {
	ID                 uuid.UUID `json:"id"`
	Filename           string    `json:"filename"`
	UploadDate         time.Time `json:"upload_date"`
	RowCount           int       `json:"row_count"`
	Month              string    `json:"month"`
	Status             string    `json:"status"`
	CategorizedCount   int       `json:"categorized_count"`
	UncategorizedCount int       `json:"uncategorized_count"`
	ErrorCount         int       `json:"error_count,omitempty"`
}

// ListUploads handles GET /uploads?limit=&offset=
func (h *ImportHandler) ListUploads(w http.ResponseWriter, r *http.Request) {
	limit, offset, err := pagination(r)
	if err != nil {
		middleware.WriteError(w, http.StatusBadRequest, middleware.CodeInvalidPagination, err.Error())
		return
	}

	uploads, total, err := h.svc.ListUploads(r.Context(), limit, offset)
	if err != nil {
		h.logger.ErrorContext(r.Context(), "failed to list uploads", slog.Any("error", err))
		middleware.WriteError(w, http.StatusInternalServerError, middleware.CodeDatabaseError, "Failed to retrieve upload history")
		return
	}

	out := make([]uploadSummary, len(uploads))
	for i, u := range uploads {
		out[i] = uploadSummary{
			ID:                 u.ID,
			Filename:           u.Filename,
			UploadDate:         u.UploadDate,
			RowCount:           u.RowCount,
			Month:              u.Month,
			Status:             u.Status,
			CategorizedCount:   u.CategorizedCount,
			UncategorizedCount: u.UncategorizedCount,
			ErrorCount:         len(u.Errors),
		}
	}

	middleware.WriteSuccess(w, http.StatusOK, out, "", map[string]any{
		"count":  len(out),
		"total":  total,
		"limit":  limit,
		"offset": offset,
	})
}

// GetUpload handles GET /uploads/{id}
func (h *ImportHandler) GetUpload(w http.ResponseWriter, r *http.Request) {
	raw := r.PathValue("id")
	id, err := uuid.Parse(raw)
	if err != nil {
		middleware.WriteError(w, http.StatusBadRequest, middleware.CodeInvalidID, "Invalid upload ID format: "+raw)
		return
	}

	upload, err := h.svc.GetUpload(r.Context(), id)
	if errors.Is(err, service.ErrUploadNotFound) {
		middleware.WriteError(w, http.StatusNotFound, middleware.CodeNotFound, "Upload not found: "+raw)
		return
	}
	if err != nil {
		h.logger.ErrorContext(r.Context(), "failed to get upload",
			slog.String("upload_id", raw),
			slog.Any("error", err))
		middleware.WriteError(w, http.StatusInternalServerError, middleware.CodeDatabaseError, "Failed to retrieve upload details")
		return
	}
	middleware.WriteSuccess(w, http.StatusOK, upload, "", nil)
}

// readFile pulls the "file" part out of a multipart request. On failure the
// error response has already been written.
func (h *ImportHandler) readFile(w http.ResponseWriter, r *http.Request) (string, []byte, bool) {
	r.Body = http.MaxBytesReader(w, r.Body, h.maxBytes)
	if err := r.ParseMultipartForm(h.maxBytes); err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			middleware.WriteError(w, http.StatusRequestEntityTooLarge, middleware.CodeFileTooLarge,
				fmt.Sprintf("File exceeds %d bytes", h.maxBytes))
			return "", nil, false
		}
		middleware.WriteError(w, http.StatusBadRequest, middleware.CodeNoFile, "No file provided in request")
		return "", nil, false
	}

	file, header, err := r.FormFile("file")
	if err != nil {
		middleware.WriteError(w, http.StatusBadRequest, middleware.CodeNoFile, "No file provided in request")
		return "", nil, false
	}
	defer file.Close()

	if header.Filename == "" {
		middleware.WriteError(w, http.StatusBadRequest, middleware.CodeEmptyFilename, "No file selected")
		return "", nil, false
	}

	filename := filepath.Base(strings.ReplaceAll(header.Filename, "\\", "/"))
	if !allowedExtensions[strings.ToLower(filepath.Ext(filename))] {
		middleware.WriteError(w, http.StatusBadRequest, middleware.CodeInvalidFileType, "Only CSV, TXT or XLSX files are allowed")
		return "", nil, false
	}

	data, err := io.ReadAll(file)
	if err != nil {
		middleware.WriteError(w, http.StatusBadRequest, middleware.CodeNoFile, "Could not read uploaded file")
		return "", nil, false
	}
	return filename, data, true
}

func pagination(r *http.Request) (int, int, error) {
	q := r.URL.Query()
	limit, offset := defaultPageSize, 0

	var err error
	if v := q.Get("limit"); v != "" {
		if limit, err = strconv.Atoi(v); err != nil || limit < 0 {
			return 0, 0, errors.New("limit and offset must be non-negative integers")
		}
	}
	if v := q.Get("offset"); v != "" {
		if offset, err = strconv.Atoi(v); err != nil || offset < 0 {
			return 0, 0, errors.New("limit and offset must be non-negative integers")
		}
	}
	return limit, offset, nil
}
