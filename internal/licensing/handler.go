package licensing

import (
	"fmt"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/pharmacore-erp/pharmacore/internal/platform/httpx"
	"github.com/pharmacore-erp/pharmacore/internal/shared"
)

// Handler wires HTTP endpoints for license activation and status.
type Handler struct {
	logger  *slog.Logger
	service *Service
}

// NewHandler constructs licensing handler.
func NewHandler(logger *slog.Logger, service *Service) *Handler {
	return &Handler{logger: logger, service: service}
}

// MountRoutes registers /license.
func (h *Handler) MountRoutes(r chi.Router) {
	r.Post("/activate", h.handleActivate)
	r.Get("/status", h.handleStatus)
}

type activateRequest struct {
	Key string `json:"key"`
}

func (h *Handler) handleActivate(w http.ResponseWriter, r *http.Request) {
	var req activateRequest
	if err := httpx.DecodeJSON(r, &req); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Bad Request", "invalid JSON body")
		return
	}
	if req.Key == "" {
		httpx.RespondError(w, fmt.Errorf("%w: license key required", httpx.ErrValidation))
		return
	}
	status, err := h.service.Activate(r.Context(), shared.ActorFromContext(r.Context()), req.Key)
	if err != nil {
		h.logger.Error("activate license", slog.Any("error", err))
		httpx.RespondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, status)
}

func (h *Handler) handleStatus(w http.ResponseWriter, r *http.Request) {
	actor := shared.ActorFromContext(r.Context())
	if actor == nil {
		httpx.Problem(w, http.StatusUnauthorized, "Unauthorized", "authentication required")
		return
	}
	status, err := h.service.GetStatus(r.Context(), actor.OrganizationID)
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, status)
}
