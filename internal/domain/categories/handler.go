package categories

import (
	"log/slog"
	"net/http"

	"github.com/FACorreiaa/family-budget/internal/api/middleware"
)

// Handler serves the category list.
type Handler struct {
	store  Store
	logger *slog.Logger
}

// NewHandler creates a new categories handler
func NewHandler(store Store, logger *slog.Logger) *Handler {
	return &Handler{store: store, logger: logger}
}

// Register mounts the routes on mux.
func (h *Handler) Register(mux *http.ServeMux) {
	mux.HandleFunc("GET /categories", h.List)
}

// List handles GET /categories
func (h *Handler) List(w http.ResponseWriter, r *http.Request) {
	cats, err := h.store.List(r.Context())
	if err != nil {
		h.logger.ErrorContext(r.Context(), "failed to list categories", slog.Any("error", err))
		middleware.WriteError(w, http.StatusInternalServerError, middleware.CodeDatabaseError, "Failed to retrieve categories")
		return
	}
	if cats == nil {
		cats = []Category{}
	}
	middleware.WriteSuccess(w, http.StatusOK, cats, "", map[string]any{"count": len(cats)})
}
