package categorization

import (
	"encoding/json"
	"log/slog"
	"net/http"
	"strings"

	"github.com/FACorreiaa/family-budget/internal/api/middleware"
)

// Handler exposes rule statistics and ad-hoc classification.
type Handler struct {
	svc    *Service
	logger *slog.Logger
}

// NewHandler creates a new categorization handler
func NewHandler(svc *Service, logger *slog.Logger) *Handler {
	return &Handler{svc: svc, logger: logger}
}

// Register mounts the routes on mux.
func (h *Handler) Register(mux *http.ServeMux) {
	mux.HandleFunc("GET /categorization/stats", h.Stats)
	mux.HandleFunc("POST /categorization/classify", h.Classify)
}

// Stats handles GET /categorization/stats
func (h *Handler) Stats(w http.ResponseWriter, r *http.Request) {
	stats, err := h.svc.Stats(r.Context())
	if err != nil {
		h.logger.ErrorContext(r.Context(), "failed to compute rule stats", slog.Any("error", err))
		middleware.WriteError(w, http.StatusInternalServerError, middleware.CodeDatabaseError, "Failed to retrieve categorization stats")
		return
	}
	middleware.WriteSuccess(w, http.StatusOK, stats, "", nil)
}

type classifyRequest struct {
	Description string `json:"description"`
}

// Classify handles POST /categorization/classify
func (h *Handler) Classify(w http.ResponseWriter, r *http.Request) {
	var req classifyRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil || strings.TrimSpace(req.Description) == "" {
		middleware.WriteError(w, http.StatusBadRequest, middleware.CodeInvalidRequest, "description is required")
		return
	}

	result, err := h.svc.Classify(r.Context(), req.Description)
	if err != nil {
		h.logger.ErrorContext(r.Context(), "failed to classify description", slog.Any("error", err))
		middleware.WriteError(w, http.StatusInternalServerError, middleware.CodeDatabaseError, "Failed to classify description")
		return
	}
	middleware.WriteSuccess(w, http.StatusOK, result, "", nil)
}
