package middleware

import (
	"encoding/json"
	"net/http"
)

// Error codes returned in the error envelope.
const (
	CodeNoFile            = "NO_FILE"
	CodeEmptyFilename     = "EMPTY_FILENAME"
	CodeInvalidFileType   = "INVALID_FILE_TYPE"
	CodeFileTooLarge      = "FILE_TOO_LARGE"
	CodeInvalidCSV        = "INVALID_CSV"
	CodeParseError        = "PARSE_ERROR"
	CodeNoData            = "NO_DATA"
	CodeInvalidCategoryID = "INVALID_CATEGORY_ID"
	CodeInvalidRequest    = "INVALID_REQUEST"
	CodeInvalidPagination = "INVALID_PAGINATION"
	CodeInvalidID         = "INVALID_ID"
	CodeNotFound          = "NOT_FOUND"
	CodeDatabaseError     = "DATABASE_ERROR"
	CodeRateLimited       = "RATE_LIMITED"
	CodeInternal          = "INTERNAL_ERROR"
)

// ErrorBody is the payload of a failed response.
type ErrorBody struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

// Envelope wraps every JSON response.
type Envelope struct {
	Success bool           `json:"success"`
	Data    any            `json:"data,omitempty"`
	Message string         `json:"message,omitempty"`
	Error   *ErrorBody     `json:"error,omitempty"`
	Extra   map[string]any `json:"-"`
}

// MarshalJSON inlines Extra next to the standard fields.
func (e Envelope) MarshalJSON() ([]byte, error) {
	out := make(map[string]any, len(e.Extra)+4)
	for k, v := range e.Extra {
		out[k] = v
	}
	out["success"] = e.Success
	if e.Data != nil {
		out["data"] = e.Data
	}
	if e.Message != "" {
		out["message"] = e.Message
	}
	if e.Error != nil {
		out["error"] = e.Error
	}
	return json.Marshal(out)
}

// WriteJSON writes a JSON response.
func WriteJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if data != nil {
		_ = json.NewEncoder(w).Encode(data)
	}
}

// WriteSuccess writes {"success": true, "data": ...} plus any extra fields.
func WriteSuccess(w http.ResponseWriter, status int, data any, message string, extra map[string]any) {
	WriteJSON(w, status, Envelope{Success: true, Data: data, Message: message, Extra: extra})
}

// WriteError writes {"success": false, "error": {"code", "message"}}.
func WriteError(w http.ResponseWriter, status int, code, message string) {
	WriteJSON(w, status, Envelope{Error: &ErrorBody{Code: code, Message: message}})
}
