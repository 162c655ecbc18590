package purchase

import (
	"errors"
	"io"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/rs/zerolog/log"

	"github.com/inkwell/inkwell-api/internal/middleware"
	"github.com/inkwell/inkwell-api/internal/pkg/response"
	"github.com/inkwell/inkwell-api/internal/pkg/validator"
)

// maxWebhookBody bounds gateway callback payloads.
const maxWebhookBody = 1 << 20

type Handler struct {
	svc *Service
}

func NewHandler(svc *Service) *Handler {
	return &Handler{svc: svc}
}

type checkoutRequest struct {
	CoinPackID    string `json:"coin_pack_id" validate:"required,uuid"`
	PaymentMethod string `json:"payment_method" validate:"required,payment_method"`
	ReturnURI     string `json:"return_uri" validate:"omitempty,url"`
}

// Checkout handles POST /purchases/checkout
func (h *Handler) Checkout(w http.ResponseWriter, r *http.Request) {
	userID := middleware.GetUserID(r.Context())
	if userID == uuid.Nil {
		response.Unauthorized(w, "unauthorized")
		return
	}

	var req checkoutRequest
	if err := response.DecodeJSON(r.Body, &req); err != nil {
		response.BadRequest(w, "invalid JSON body")
		return
	}
	if details := validator.Validate(req); details != nil {
		response.ValidationError(w, details)
		return
	}

	packID, err := uuid.Parse(req.CoinPackID)
	if err != nil {
		response.BadRequest(w, "invalid coin_pack_id")
		return
	}

	checkout, err := h.svc.CreateCheckout(r.Context(), userID, CheckoutRequest{
		CoinPackID:    packID,
		PaymentMethod: req.PaymentMethod,
		ReturnURI:     req.ReturnURI,
	})
	if err != nil {
		switch {
		case errors.Is(err, ErrInvalidPack):
			response.BadRequest(w, "unknown or inactive coin pack")
		case errors.Is(err, ErrUnsupportedMethod):
			response.BadRequest(w, "unsupported payment method")
		case errors.Is(err, ErrGateway):
			response.BadGateway(w, "payment gateway unavailable")
		default:
			log.Error().Err(err).Str("user_id", userID.String()).Msg("checkout failed")
			response.InternalError(w)
		}
		return
	}

	response.Created(w, checkout)
}

// History handles GET /purchases
func (h *Handler) History(w http.ResponseWriter, r *http.Request) {
	userID := middleware.GetUserID(r.Context())
	if userID == uuid.Nil {
		response.Unauthorized(w, "unauthorized")
		return
	}

	limit, _ := strconv.Atoi(r.URL.Query().Get("limit"))
	offset, _ := strconv.Atoi(r.URL.Query().Get("offset"))

	intents, err := h.svc.GetHistory(r.Context(), userID, limit, offset)
	if err != nil {
		log.Error().Err(err).Str("user_id", userID.String()).Msg("purchase history failed")
		response.InternalError(w)
		return
	}

	response.WithMeta(w, intents, response.Meta{Limit: limit, Offset: offset, Count: len(intents)})
}

// Webhook handles POST /webhooks/omise. It is unauthenticated; the HMAC
// signature over the raw body is the trust boundary.
func (h *Handler) Webhook(w http.ResponseWriter, r *http.Request) {
	body, err := io.ReadAll(io.LimitReader(r.Body, maxWebhookBody))
	if err != nil {
		response.BadRequest(w, "unreadable body")
		return
	}

	result, err := h.svc.HandleWebhook(r.Context(), body, r.Header.Get("Omise-Signature"))
	if err != nil {
		switch {
		case errors.Is(err, ErrInvalidSignature):
			response.Unauthorized(w, "invalid signature")
		case errors.Is(err, ErrInvalidPayload):
			response.BadRequest(w, "invalid payload")
		case errors.Is(err, ErrUnknownTransaction):
			response.NotFound(w, "unknown transaction")
		default:
			log.Error().Err(err).Msg("webhook settlement failed")
			response.InternalError(w)
		}
		return
	}

	response.OK(w, map[string]interface{}{"outcome": result.Outcome})
}

func (h *Handler) Routes(authMiddleware, rateLimit func(http.Handler) http.Handler) chi.Router {
	r := chi.NewRouter()
	r.Use(authMiddleware)
	r.With(rateLimit).Post("/checkout", h.Checkout)
	r.Get("/", h.History)
	return r
}

// WebhookRoutes are mounted outside the authenticated API tree.
func (h *Handler) WebhookRoutes() chi.Router {
	r := chi.NewRouter()
	r.Post("/omise", h.Webhook)
	return r
}
