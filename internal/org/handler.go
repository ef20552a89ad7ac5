package org

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"

	"github.com/pharmacore-erp/pharmacore/internal/auth"
	"github.com/pharmacore-erp/pharmacore/internal/platform/httpx"
	"github.com/pharmacore-erp/pharmacore/internal/shared"
)

// AdminRegistrar bootstraps the first admin account of a new tenant.
type AdminRegistrar interface {
	RegisterAdmin(ctx context.Context, input auth.RegisterOrganizationInput) (auth.User, error)
}

// Handler wires HTTP endpoints for organizations and branches.
type Handler struct {
	logger    *slog.Logger
	service   *Service
	registrar AdminRegistrar
	validate  *validator.Validate
}

// NewHandler constructs org handler.
func NewHandler(logger *slog.Logger, service *Service, registrar AdminRegistrar) *Handler {
	return &Handler{logger: logger, service: service, registrar: registrar, validate: validator.New(validator.WithRequiredStructEnabled())}
}

// MountRoutes registers /branches.
func (h *Handler) MountRoutes(r chi.Router) {
	r.Get("/", h.handleListBranches)
	r.Post("/", h.handleCreateBranch)
	r.Get("/{id}", h.handleGetBranch)
}

type registerOrganizationRequest struct {
	Name          string `json:"name" validate:"required,max=200"`
	Address       string `json:"address" validate:"max=500"`
	Phone         string `json:"phone" validate:"max=50"`
	Email         string `json:"email" validate:"omitempty,email"`
	AdminEmail    string `json:"adminEmail" validate:"required,email"`
	AdminName     string `json:"adminName" validate:"required,max=200"`
	AdminPassword string `json:"adminPassword" validate:"required,min=8"`
}

// Register creates a tenant plus its first admin account. Mounted publicly
// at POST /organizations, outside the token middleware.
func (h *Handler) Register(w http.ResponseWriter, r *http.Request) {
	var req registerOrganizationRequest
	if err := httpx.DecodeJSON(r, &req); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Bad Request", "invalid JSON body")
		return
	}
	if err := h.validate.Struct(req); err != nil {
		httpx.RespondError(w, fmt.Errorf("%w: %s", httpx.ErrValidation, err.Error()))
		return
	}
	o, err := h.service.CreateOrganization(r.Context(), CreateOrganizationInput{
		Name: req.Name, Address: req.Address, Phone: req.Phone, Email: req.Email,
	})
	if err != nil {
		h.logger.Error("register organization", slog.Any("error", err))
		httpx.RespondError(w, err)
		return
	}
	admin, err := h.registrar.RegisterAdmin(r.Context(), auth.RegisterOrganizationInput{
		OrganizationID: o.ID,
		Email:          req.AdminEmail,
		Name:           req.AdminName,
		Password:       req.AdminPassword,
	})
	if err != nil {
		h.logger.Error("register organization admin", slog.Any("error", err))
		httpx.RespondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusCreated, map[string]any{
		"id":      o.ID,
		"name":    o.Name,
		"adminId": admin.ID,
	})
}

// Me returns the actor's organization. Mounted at GET /organizations/me.
func (h *Handler) Me(w http.ResponseWriter, r *http.Request) {
	actor := shared.ActorFromContext(r.Context())
	if actor == nil {
		httpx.Problem(w, http.StatusUnauthorized, "Unauthorized", "authentication required")
		return
	}
	o, err := h.service.GetOrganization(r.Context(), actor.OrganizationID)
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, map[string]any{
		"id":      o.ID,
		"name":    o.Name,
		"address": o.Address,
		"phone":   o.Phone,
		"email":   o.Email,
	})
}

type createBranchRequest struct {
	Name    string `json:"name" validate:"required,max=200"`
	Address string `json:"address" validate:"max=500"`
	Phone   string `json:"phone" validate:"max=50"`
}

func (h *Handler) handleCreateBranch(w http.ResponseWriter, r *http.Request) {
	var req createBranchRequest
	if err := httpx.DecodeJSON(r, &req); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Bad Request", "invalid JSON body")
		return
	}
	if err := h.validate.Struct(req); err != nil {
		httpx.RespondError(w, fmt.Errorf("%w: %s", httpx.ErrValidation, err.Error()))
		return
	}
	b, err := h.service.CreateBranch(r.Context(), shared.ActorFromContext(r.Context()), CreateBranchInput{
		Name: req.Name, Address: req.Address, Phone: req.Phone,
	})
	if err != nil {
		h.logger.Error("create branch", slog.Any("error", err))
		httpx.RespondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusCreated, branchResponse(b))
}

func (h *Handler) handleListBranches(w http.ResponseWriter, r *http.Request) {
	list, err := h.service.ListBranches(r.Context(), shared.ActorFromContext(r.Context()))
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	payload := make([]map[string]any, 0, len(list))
	for _, b := range list {
		payload = append(payload, branchResponse(b))
	}
	httpx.JSON(w, http.StatusOK, payload)
}

func (h *Handler) handleGetBranch(w http.ResponseWriter, r *http.Request) {
	id, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Bad Request", "invalid branch id")
		return
	}
	b, err := h.service.GetBranch(r.Context(), shared.ActorFromContext(r.Context()), id)
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, branchResponse(b))
}

func branchResponse(b Branch) map[string]any {
	return map[string]any{
		"id":        b.ID,
		"name":      b.Name,
		"address":   b.Address,
		"phone":     b.Phone,
		"isActive":  b.IsActive,
		"createdAt": b.CreatedAt,
	}
}
