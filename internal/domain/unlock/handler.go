package unlock

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/rs/zerolog/log"

	"github.com/inkwell/inkwell-api/internal/domain/chapter"
	"github.com/inkwell/inkwell-api/internal/domain/ledger"
	"github.com/inkwell/inkwell-api/internal/middleware"
	"github.com/inkwell/inkwell-api/internal/pkg/response"
	"github.com/inkwell/inkwell-api/internal/pkg/validator"
)

type Handler struct {
	svc *Service
}

func NewHandler(svc *Service) *Handler {
	return &Handler{svc: svc}
}

type unlockRequest struct {
	ChapterID string `json:"chapter_id" validate:"required,uuid"`
}

// Unlock handles POST /unlocks
func (h *Handler) Unlock(w http.ResponseWriter, r *http.Request) {
	userID := middleware.GetUserID(r.Context())
	if userID == uuid.Nil {
		response.Unauthorized(w, "unauthorized")
		return
	}

	var req unlockRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		response.BadRequest(w, "invalid JSON body")
		return
	}
	if details := validator.Validate(req); details != nil {
		response.ValidationError(w, details)
		return
	}

	chapterID, err := uuid.Parse(req.ChapterID)
	if err != nil {
		response.BadRequest(w, "invalid chapter_id")
		return
	}

	result, err := h.svc.UnlockChapter(r.Context(), userID, chapterID)
	if err != nil {
		switch {
		case errors.Is(err, chapter.ErrChapterNotFound):
			response.NotFound(w, "chapter not found")
		case errors.Is(err, ErrNotPurchasable):
			response.BadRequest(w, "chapter does not require an unlock")
		case errors.Is(err, ledger.ErrInsufficientBalance):
			response.Conflict(w, "insufficient coin balance")
		default:
			log.Error().Err(err).
				Str("user_id", userID.String()).
				Str("chapter_id", req.ChapterID).
				Msg("unlock failed")
			response.InternalError(w)
		}
		return
	}

	response.OK(w, result)
}

// Status handles GET /unlocks/{chapterID}
func (h *Handler) Status(w http.ResponseWriter, r *http.Request) {
	userID := middleware.GetUserID(r.Context())
	if userID == uuid.Nil {
		response.Unauthorized(w, "unauthorized")
		return
	}

	chapterID, err := uuid.Parse(chi.URLParam(r, "chapterID"))
	if err != nil {
		response.BadRequest(w, "invalid chapter id")
		return
	}

	unlocked, err := h.svc.IsUnlocked(r.Context(), userID, chapterID)
	if err != nil {
		log.Error().Err(err).Str("user_id", userID.String()).Msg("unlock status failed")
		response.InternalError(w)
		return
	}

	response.OK(w, map[string]interface{}{"unlocked": unlocked})
}

func (h *Handler) Routes(authMiddleware, rateLimit func(http.Handler) http.Handler) chi.Router {
	r := chi.NewRouter()
	r.Use(authMiddleware)
	r.With(rateLimit).Post("/", h.Unlock)
	r.Get("/{chapterID}", h.Status)
	return r
}
