// internal/api/handler.go
package api

import (
	"encoding/json"
	"errors"
	"html/template"
	"log/slog"
	"net/http"

	"github.com/edututor-ai/backend/internal/domain/quiz"
	"github.com/edututor-ai/backend/internal/domain/tutorsession"
	"github.com/edututor-ai/backend/internal/service"
	"github.com/edututor-ai/backend/internal/store"
)

// maxBodyBytes bounds JSON and form bodies.
const maxBodyBytes = 64 << 10

// Handler holds all dependencies needed by HTTP handlers.
// Instead of relying on package-level globals, every handler method
// receives its dependencies through this struct.
type Handler struct {
	tutor  *service.TutorService
	logger *slog.Logger
	pages  *template.Template
}

// NewHandler creates a Handler with the given dependencies.
func NewHandler(tutor *service.TutorService, logger *slog.Logger) *Handler {
	return &Handler{
		tutor:  tutor,
		logger: logger,
		pages:  pageTemplates,
	}
}

type ErrorResponse struct {
	Error string `json:"error"`
}

// respondJSON writes a JSON response with the given status code.
func respondJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}

// respondError writes {"error": msg} with the given status code.
func respondError(w http.ResponseWriter, status int, msg string) {
	respondJSON(w, status, ErrorResponse{Error: msg})
}

// decodeJSON decodes the request body into v. On failure it writes a 400
// and returns false.
func decodeJSON(w http.ResponseWriter, r *http.Request, v any) bool {
	r.Body = http.MaxBytesReader(w, r.Body, maxBodyBytes)
	if err := json.NewDecoder(r.Body).Decode(v); err != nil {
		respondError(w, http.StatusBadRequest, "invalid json")
		return false
	}
	return true
}

// handleServiceError maps domain and store errors onto HTTP responses.
// Returns true if an error was handled (caller should return).
func (h *Handler) handleServiceError(w http.ResponseWriter, err error) bool {
	if err == nil {
		return false
	}
	switch {
	case errors.Is(err, store.ErrNotFound):
		respondError(w, http.StatusNotFound, "session not found")
	case errors.Is(err, tutorsession.ErrEmptyQuestion),
		errors.Is(err, tutorsession.ErrInvalidPanel),
		errors.Is(err, tutorsession.ErrInvalidTab):
		respondError(w, http.StatusBadRequest, err.Error())
	case errors.Is(err, tutorsession.ErrNoQuiz),
		errors.Is(err, quiz.ErrAlreadyGraded):
		respondError(w, http.StatusConflict, err.Error())
	default:
		h.logger.Error("service error", "error", err)
		respondError(w, http.StatusInternalServerError, "internal error")
	}
	return true
}
