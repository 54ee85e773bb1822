package analogy

import (
	"errors"
	"net/http"

	"go.uber.org/zap"

	"github.com/ovaphlow/pitchfork/service-analogy-go/internal/auth"
	"github.com/ovaphlow/pitchfork/service-analogy-go/internal/generation"
	"github.com/ovaphlow/pitchfork/service-analogy-go/internal/history/entity"
	"github.com/ovaphlow/pitchfork/service-analogy-go/pkg/utilities"
)

// Handler serves the generation and history endpoints. All routes must be
// mounted behind auth.Middleware.
type Handler struct {
	svc    *Service
	logger *zap.SugaredLogger
}

func NewHandler(svc *Service, logger *zap.SugaredLogger) *Handler {
	return &Handler{svc: svc, logger: logger}
}

type CreateRequest struct {
	Concept string `json:"concept"`
	Level   string `json:"level"`
}

type AnalogyResponse struct {
	Analogy *entity.Analogy `json:"analogy"`
}

type QuizResponse struct {
	Quiz *entity.Quiz `json:"quiz"`
}

type HistoryResponse struct {
	History []entity.Entry `json:"history"`
}

// writeError maps service errors to stable codes. Provider details are
// logged, never returned.
func (h *Handler) writeError(w http.ResponseWriter, err error) {
	var ve *ValidationError
	switch {
	case errors.As(err, &ve):
		utilities.WriteError(w, http.StatusBadRequest, "validation_failed", ve.Error())
	case errors.Is(err, ErrNotFound):
		utilities.WriteError(w, http.StatusNotFound, "not_found", "analogy not found")
	case errors.Is(err, ErrForbidden):
		utilities.WriteError(w, http.StatusForbidden, "forbidden", "analogy belongs to another user")
	case errors.Is(err, generation.ErrMalformedOutput):
		utilities.WriteError(w, http.StatusUnprocessableEntity, "malformed_output", "generated content failed validation")
	case errors.Is(err, generation.ErrProvider):
		utilities.WriteError(w, http.StatusBadGateway, "provider_error", "generation provider unavailable")
	default:
		h.logger.Errorw("request failed", "err", err)
		utilities.WriteError(w, http.StatusInternalServerError, "internal", "internal error")
	}
}

func (h *Handler) owner(w http.ResponseWriter, r *http.Request) (int64, bool) {
	id, ok := auth.UserIDFromContext(r.Context())
	if !ok {
		utilities.WriteError(w, http.StatusUnauthorized, "unauthorized", "missing bearer token")
	}
	return id, ok
}

// Create handles POST /analogies.
func (h *Handler) Create(w http.ResponseWriter, r *http.Request) {
	owner, ok := h.owner(w, r)
	if !ok {
		return
	}
	var req CreateRequest
	if err := utilities.DecodeJSON(w, r, &req); err != nil {
		utilities.WriteError(w, http.StatusBadRequest, "validation_failed", "invalid payload")
		return
	}
	a, err := h.svc.CreateAnalogy(r.Context(), owner, req.Concept, req.Level)
	if err != nil {
		h.writeError(w, err)
		return
	}
	utilities.WriteJSON(w, http.StatusCreated, AnalogyResponse{Analogy: a})
}

// Quiz handles POST /analogies/{id}/quiz.
func (h *Handler) Quiz(w http.ResponseWriter, r *http.Request) {
	owner, ok := h.owner(w, r)
	if !ok {
		return
	}
	q, err := h.svc.CreateQuiz(r.Context(), owner, r.PathValue("id"))
	if err != nil {
		h.writeError(w, err)
		return
	}
	utilities.WriteJSON(w, http.StatusCreated, QuizResponse{Quiz: q})
}

// History handles GET /history?kind=analogy|quiz.
func (h *Handler) History(w http.ResponseWriter, r *http.Request) {
	owner, ok := h.owner(w, r)
	if !ok {
		return
	}
	entries, err := h.svc.History(r.Context(), owner, r.URL.Query().Get("kind"))
	if err != nil {
		h.writeError(w, err)
		return
	}
	if entries == nil {
		entries = []entity.Entry{}
	}
	utilities.WriteJSON(w, http.StatusOK, HistoryResponse{History: entries})
}
