package revenue

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/rs/zerolog/log"

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

// Summary handles GET /writer/revenue
func (h *Handler) Summary(w http.ResponseWriter, r *http.Request) {
	writerID := middleware.GetUserID(r.Context())
	if writerID == uuid.Nil {
		response.Unauthorized(w, "unauthorized")
		return
	}

	summary, err := h.svc.GetSummary(r.Context(), writerID)
	if err != nil {
		log.Error().Err(err).Str("writer_id", writerID.String()).Msg("revenue summary failed")
		response.InternalError(w)
		return
	}

	response.OK(w, summary)
}

type withdrawalRequest struct {
	Amount int64 `json:"amount" validate:"required,gt=0"`
}

// RequestWithdrawal handles POST /writer/withdrawals
func (h *Handler) RequestWithdrawal(w http.ResponseWriter, r *http.Request) {
	writerID := middleware.GetUserID(r.Context())
	if writerID == uuid.Nil {
		response.Unauthorized(w, "unauthorized")
		return
	}

	var req withdrawalRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		response.BadRequest(w, "invalid JSON body")
		return
	}
	if details := validator.Validate(req); details != nil {
		response.ValidationError(w, details)
		return
	}

	created, err := h.svc.RequestWithdrawal(r.Context(), writerID, req.Amount)
	if err != nil {
		switch {
		case errors.Is(err, ErrBelowMinimum):
			response.BadRequest(w, "amount is below the minimum withdrawal")
		case errors.Is(err, ErrInsufficientAccrual):
			response.Conflict(w, "amount exceeds available accrued revenue")
		default:
			log.Error().Err(err).Str("writer_id", writerID.String()).Msg("withdrawal request failed")
			response.InternalError(w)
		}
		return
	}

	response.Created(w, created)
}

// ListWithdrawals handles GET /writer/withdrawals
func (h *Handler) ListWithdrawals(w http.ResponseWriter, r *http.Request) {
	writerID := middleware.GetUserID(r.Context())
	if writerID == uuid.Nil {
		response.Unauthorized(w, "unauthorized")
		return
	}

	limit := 20
	offset := 0
	if l := r.URL.Query().Get("limit"); l != "" {
		if v, err := strconv.Atoi(l); err == nil && v > 0 {
			limit = v
		}
	}
	if o := r.URL.Query().Get("offset"); o != "" {
		if v, err := strconv.Atoi(o); err == nil && v >= 0 {
			offset = v
		}
	}

	requests, err := h.svc.ListWithdrawals(r.Context(), writerID, limit, offset)
	if err != nil {
		log.Error().Err(err).Str("writer_id", writerID.String()).Msg("withdrawal listing failed")
		response.InternalError(w)
		return
	}

	response.WithMeta(w, map[string]interface{}{"withdrawals": requests}, response.Meta{
		Limit:  limit,
		Offset: offset,
		Count:  len(requests),
	})
}

type updateStatusRequest struct {
	Status string `json:"status" validate:"required"`
}

// UpdateStatus handles PATCH /writer/withdrawals/{id} (admin only)
func (h *Handler) UpdateStatus(w http.ResponseWriter, r *http.Request) {
	requestID, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		response.BadRequest(w, "invalid request id")
		return
	}

	var req updateStatusRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		response.BadRequest(w, "invalid JSON body")
		return
	}

	status := WithdrawalStatus(req.Status)
	switch status {
	case WithdrawalApproved, WithdrawalPaid, WithdrawalRejected:
	default:
		response.BadRequest(w, "status must be APPROVED, PAID or REJECTED")
		return
	}

	updated, err := h.svc.UpdateStatus(r.Context(), requestID, status)
	if err != nil {
		switch {
		case errors.Is(err, ErrRequestNotFound):
			response.NotFound(w, "withdrawal request not found")
		case errors.Is(err, ErrInvalidTransition):
			response.Conflict(w, "request is not in a state that allows this transition")
		default:
			log.Error().Err(err).Str("request_id", requestID.String()).Msg("withdrawal update failed")
			response.InternalError(w)
		}
		return
	}

	response.OK(w, updated)
}

func (h *Handler) Routes(authMiddleware func(http.Handler) http.Handler) chi.Router {
	r := chi.NewRouter()
	r.Use(authMiddleware)
	r.Get("/revenue", h.Summary)
	r.Post("/withdrawals", h.RequestWithdrawal)
	r.Get("/withdrawals", h.ListWithdrawals)
	r.With(middleware.RequireRole("admin")).Patch("/withdrawals/{id}", h.UpdateStatus)
	return r
}
