package transactions

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/google/uuid"

	"github.com/FACorreiaa/family-budget/internal/api/middleware"
)

// Corrector applies manual category changes.
type Corrector interface {
	UpdateCategory(ctx context.Context, id uuid.UUID, categoryID int) (*CorrectionResult, error)
}

// Handler serves the transaction endpoints.
type Handler struct {
	store     Store
	corrector Corrector
	logger    *slog.Logger
}

// NewHandler creates a new transactions handler
func NewHandler(store Store, corrector Corrector, logger *slog.Logger) *Handler {
	return &Handler{store: store, corrector: corrector, logger: logger}
}

// Register mounts the routes on mux.
func (h *Handler) Register(mux *http.ServeMux) {
	mux.HandleFunc("GET /transactions", h.List)
	mux.HandleFunc("GET /transactions/{id}", h.Get)
	mux.HandleFunc("PATCH /transactions/{id}/category", h.UpdateCategory)
}

type updateCategoryRequest struct {
	CategoryID *int `json:"category_id" validate:"required,gte=0"`
}

// UpdateCategory handles PATCH /transactions/{id}/category
func (h *Handler) UpdateCategory(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r)
	if !ok {
		return
	}

	var req updateCategoryRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		middleware.WriteError(w, http.StatusBadRequest, middleware.CodeInvalidRequest, "invalid request body")
		return
	}
	if err := validate.Struct(req); err != nil {
		middleware.WriteError(w, http.StatusBadRequest, middleware.CodeInvalidCategoryID, FieldErrors(err))
		return
	}

	result, err := h.corrector.UpdateCategory(r.Context(), id, *req.CategoryID)
	switch {
	case errors.Is(err, ErrInvalidCategory):
		middleware.WriteError(w, http.StatusBadRequest, middleware.CodeInvalidCategoryID,
			fmt.Sprintf("category %d does not exist", *req.CategoryID))
		return
	case errors.Is(err, ErrNotFound):
		middleware.WriteError(w, http.StatusNotFound, middleware.CodeNotFound, "transaction not found")
		return
	case err != nil:
		h.logger.ErrorContext(r.Context(), "failed to update transaction category",
			slog.String("transaction_id", id.String()),
			slog.Any("error", err))
		middleware.WriteError(w, http.StatusInternalServerError, middleware.CodeDatabaseError, "failed to update transaction")
		return
	}

	message := "Transaction updated successfully"
	if result.Propagated > 0 {
		message += fmt.Sprintf(" (%d similar transaction(s) also categorized)", result.Propagated)
	}
	middleware.WriteSuccess(w, http.StatusOK, result.Transaction, message, map[string]any{
		"batch_categorized": result.Propagated,
	})
}

// Get handles GET /transactions/{id}
func (h *Handler) Get(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r)
	if !ok {
		return
	}

	txn, err := h.store.GetByID(r.Context(), id)
	if errors.Is(err, ErrNotFound) {
		middleware.WriteError(w, http.StatusNotFound, middleware.CodeNotFound, "transaction not found")
		return
	}
	if err != nil {
		h.logger.ErrorContext(r.Context(), "failed to get transaction", slog.Any("error", err))
		middleware.WriteError(w, http.StatusInternalServerError, middleware.CodeDatabaseError, "failed to get transaction")
		return
	}
	middleware.WriteSuccess(w, http.StatusOK, txn, "", nil)
}

// List handles GET /transactions?month=YYYY-MM&category_id=N&limit=&offset=
func (h *Handler) List(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	f := Filter{Month: q.Get("month")}

	if v := q.Get("category_id"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n < 0 {
			middleware.WriteError(w, http.StatusBadRequest, middleware.CodeInvalidCategoryID, "category_id must be a non-negative integer")
			return
		}
		f.CategoryID = &n
	}
	if v := q.Get("upload_id"); v != "" {
		id, err := uuid.Parse(v)
		if err != nil {
			middleware.WriteError(w, http.StatusBadRequest, middleware.CodeInvalidRequest, "upload_id must be a UUID")
			return
		}
		f.UploadID = &id
	}
	f.Limit, _ = strconv.Atoi(q.Get("limit"))
	f.Offset, _ = strconv.Atoi(q.Get("offset"))

	txns, err := h.store.List(r.Context(), f)
	if err != nil {
		h.logger.ErrorContext(r.Context(), "failed to list transactions", slog.Any("error", err))
		middleware.WriteError(w, http.StatusInternalServerError, middleware.CodeDatabaseError, "failed to list transactions")
		return
	}
	if txns == nil {
		txns = []Transaction{}
	}
	middleware.WriteSuccess(w, http.StatusOK, txns, "", map[string]any{"count": len(txns)})
}

func pathID(w http.ResponseWriter, r *http.Request) (uuid.UUID, bool) {
	id, err := uuid.Parse(r.PathValue("id"))
	if err != nil {
		middleware.WriteError(w, http.StatusBadRequest, middleware.CodeInvalidRequest, "invalid transaction id")
		return uuid.Nil, false
	}
	return id, true
}
