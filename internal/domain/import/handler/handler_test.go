package handler

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/FACorreiaa/family-budget/internal/domain/import/parser"
	"github.com/FACorreiaa/family-budget/internal/domain/import/service"
	"github.com/FACorreiaa/family-budget/internal/domain/import/sniffer"
)

type stubImporter struct {
	result    *service.ImportResult
	importErr error
	uploads   []service.Upload
	listErr   error

	gotLimit, gotOffset int
	imported            []string
	validated           int
}

func (s *stubImporter) Import(_ context.Context, filename string, _ []byte) (*service.ImportResult, error) {
	s.imported = append(s.imported, filename)
	if s.importErr != nil {
		return nil, s.importErr
	}
	return s.result, nil
}

func (s *stubImporter) Validate(_ string, data []byte) parser.Validation {
	s.validated++
	return parser.NewParser(parser.DefaultConfig()).Validate(bytes.NewReader(data))
}

func (s *stubImporter) ListUploads(_ context.Context, limit, offset int) ([]service.Upload, int, error) {
	s.gotLimit, s.gotOffset = limit, offset
	return s.uploads, len(s.uploads), s.listErr
}

func (s *stubImporter) GetUpload(_ context.Context, id uuid.UUID) (*service.Upload, error) {
	for _, u := range s.uploads {
		if u.ID == id {
			return &u, nil
		}
	}
	return nil, service.ErrUploadNotFound
}

const validCSV = "Date,Description,Amount\n2024-12-19,COSTCO,-5.00\n"

func multipartBody(t *testing.T, field, filename, content string) (*bytes.Buffer, string) {
	t.Helper()
	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	fw, err := mw.CreateFormFile(field, filename)
	require.NoError(t, err)
	_, err = io.WriteString(fw, content)
	require.NoError(t, err)
	require.NoError(t, mw.Close())
	return &buf, mw.FormDataContentType()
}

func serve(t *testing.T, svc Importer, req *http.Request) (*httptest.ResponseRecorder, map[string]any) {
	t.Helper()
	mux := http.NewServeMux()
	NewImportHandler(svc, 1<<20, slog.New(slog.NewTextHandler(io.Discard, nil))).Register(mux)

	rec := httptest.NewRecorder()
	mux.ServeHTTP(rec, req)

	var body map[string]any
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	return rec, body
}

func uploadRequest(t *testing.T, path, filename, content string) *http.Request {
	body, ct := multipartBody(t, "file", filename, content)
	req := httptest.NewRequest(http.MethodPost, path, body)
	req.Header.Set("Content-Type", ct)
	return req
}

func errorCode(body map[string]any) string {
	e, _ := body["error"].(map[string]any)
	code, _ := e["code"].(string)
	return code
}

func TestUpload_Success(t *testing.T) {
	svc := &stubImporter{result: &service.ImportResult{
		Filename: "dec.csv", TotalRows: 1, Categorized: 1, Month: "2024-12", Errors: []string{},
	}}

	rec, body := serve(t, svc, uploadRequest(t, "/upload/csv", "dec.csv", validCSV))

	require.Equal(t, http.StatusCreated, rec.Code)
	assert.Equal(t, true, body["success"])
	assert.Equal(t, "Successfully imported 1 transactions", body["message"])
	data := body["data"].(map[string]any)
	assert.Equal(t, "2024-12", data["month"])
	assert.Equal(t, []string{"dec.csv"}, svc.imported)
}

func TestUpload_Errors(t *testing.T) {
	tests := []struct {
		name      string
		filename  string
		content   string
		importErr error
		wantCode  int
		wantErr   string
	}{
		{"wrong extension", "dec.pdf", validCSV, nil, http.StatusBadRequest, "INVALID_FILE_TYPE"},
		{"unmappable header", "dec.csv", "Foo,Bar\n1,2\n", nil, http.StatusBadRequest, "INVALID_CSV"},
		{"no data", "dec.csv", validCSV, service.ErrNoData, http.StatusBadRequest, "NO_DATA"},
		{"parse error", "dec.csv", validCSV, &service.ParseError{Err: errors.New("bad")}, http.StatusBadRequest, "PARSE_ERROR"},
		{"database down", "dec.csv", validCSV, errors.New("connection refused"), http.StatusInternalServerError, "DATABASE_ERROR"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			svc := &stubImporter{importErr: tt.importErr}
			rec, body := serve(t, svc, uploadRequest(t, "/upload/csv", tt.filename, tt.content))

			assert.Equal(t, tt.wantCode, rec.Code)
			assert.Equal(t, false, body["success"])
			assert.Equal(t, tt.wantErr, errorCode(body))
		})
	}
}

func TestUpload_Workbook(t *testing.T) {
	t.Run("parsed once by import", func(t *testing.T) {
		svc := &stubImporter{result: &service.ImportResult{Filename: "dec.xlsx", TotalRows: 2, Errors: []string{}}}

		rec, _ := serve(t, svc, uploadRequest(t, "/upload/csv", "dec.xlsx", "PK"))

		require.Equal(t, http.StatusCreated, rec.Code)
		assert.Equal(t, 0, svc.validated)
		assert.Equal(t, []string{"dec.xlsx"}, svc.imported)
	})

	t.Run("unmappable header", func(t *testing.T) {
		svc := &stubImporter{importErr: &service.ParseError{
			Err: &sniffer.ColumnDetectionError{Role: sniffer.RoleDate, Headers: []string{"Foo", "Bar"}},
		}}

		rec, body := serve(t, svc, uploadRequest(t, "/upload/csv", "dec.xlsx", "PK"))

		assert.Equal(t, http.StatusBadRequest, rec.Code)
		assert.Equal(t, "INVALID_CSV", errorCode(body))
		assert.Equal(t, 0, svc.validated)
		e := body["error"].(map[string]any)
		assert.Contains(t, e["message"], "Foo, Bar")
	})
}

func TestUpload_MissingFile(t *testing.T) {
	body, ct := multipartBody(t, "other", "dec.csv", validCSV)
	req := httptest.NewRequest(http.MethodPost, "/upload/csv", body)
	req.Header.Set("Content-Type", ct)

	rec, resp := serve(t, &stubImporter{}, req)

	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, "NO_FILE", errorCode(resp))
}

func TestUpload_TooLarge(t *testing.T) {
	big := validCSV + string(bytes.Repeat([]byte("2024-12-19,X,-1.00\n"), 70000))
	rec, body := serve(t, &stubImporter{}, uploadRequest(t, "/upload/csv", "big.csv", big))

	assert.Equal(t, http.StatusRequestEntityTooLarge, rec.Code)
	assert.Equal(t, "FILE_TOO_LARGE", errorCode(body))
}

func TestValidate(t *testing.T) {
	rec, body := serve(t, &stubImporter{}, uploadRequest(t, "/upload/validate", "dec.csv", validCSV))

	require.Equal(t, http.StatusOK, rec.Code)
	data := body["data"].(map[string]any)
	assert.Equal(t, []any{"Date", "Description", "Amount"}, data["headers"])
	mapping := data["column_mapping"].(map[string]any)
	assert.Equal(t, "Date", mapping["date"])

	rec, body = serve(t, &stubImporter{}, uploadRequest(t, "/upload/validate", "dec.csv", "Foo\n"))
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, "INVALID_CSV", errorCode(body))
}

func TestListUploads(t *testing.T) {
	svc := &stubImporter{uploads: []service.Upload{
		{ID: uuid.New(), Filename: "b.csv", UploadDate: time.Now(), Status: service.StatusProcessed, Errors: []string{"row 3: x"}},
		{ID: uuid.New(), Filename: "a.csv", UploadDate: time.Now(), Status: service.StatusProcessed, Errors: []string{}},
	}}

	rec, body := serve(t, svc, httptest.NewRequest(http.MethodGet, "/uploads", nil))

	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, 50, svc.gotLimit)
	assert.Equal(t, 0, svc.gotOffset)
	assert.Equal(t, 2.0, body["count"])
	assert.Equal(t, 2.0, body["total"])
	data := body["data"].([]any)
	assert.Equal(t, 1.0, data[0].(map[string]any)["error_count"])
	assert.NotContains(t, data[1].(map[string]any), "error_count")

	rec, body = serve(t, svc, httptest.NewRequest(http.MethodGet, "/uploads?limit=abc", nil))
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, "INVALID_PAGINATION", errorCode(body))
}

func TestGetUpload(t *testing.T) {
	id := uuid.New()
	svc := &stubImporter{uploads: []service.Upload{{ID: id, Filename: "a.csv", Errors: []string{}}}}

	rec, body := serve(t, svc, httptest.NewRequest(http.MethodGet, "/uploads/"+id.String(), nil))
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "a.csv", body["data"].(map[string]any)["filename"])

	rec, body = serve(t, svc, httptest.NewRequest(http.MethodGet, "/uploads/"+uuid.NewString(), nil))
	assert.Equal(t, http.StatusNotFound, rec.Code)
	assert.Equal(t, "NOT_FOUND", errorCode(body))

	rec, body = serve(t, svc, httptest.NewRequest(http.MethodGet, "/uploads/not-a-uuid", nil))
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, "INVALID_ID", errorCode(body))
}
