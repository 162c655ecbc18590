package catalog

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/rs/zerolog/log"

	"github.com/inkwell/inkwell-api/internal/pkg/response"
)

type Handler struct {
	svc *Service
}

func NewHandler(svc *Service) *Handler {
	return &Handler{svc: svc}
}

// ListPacks handles GET /coins/packs
func (h *Handler) ListPacks(w http.ResponseWriter, r *http.Request) {
	packs, err := h.svc.ListActivePacks(r.Context())
	if err != nil {
		log.Error().Err(err).Msg("pack listing failed")
		response.InternalError(w)
		return
	}

	response.OK(w, map[string]interface{}{"packs": packs})
}

func (h *Handler) Routes() chi.Router {
	r := chi.NewRouter()
	r.Get("/packs", h.ListPacks)
	return r
}
