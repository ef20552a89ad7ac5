package auth

import (
	"fmt"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"

	"github.com/pharmacore-erp/pharmacore/internal/platform/httpx"
	"github.com/pharmacore-erp/pharmacore/internal/shared"
)

// Handler wires HTTP endpoints for authentication and staff accounts.
type Handler struct {
	logger   *slog.Logger
	service  *Service
	validate *validator.Validate
}

// NewHandler constructs auth handler.
func NewHandler(logger *slog.Logger, service *Service) *Handler {
	return &Handler{logger: logger, service: service, validate: validator.New(validator.WithRequiredStructEnabled())}
}

// MountAuthRoutes registers /auth. Login is public; the caller mounts it
// outside the token middleware.
func (h *Handler) MountAuthRoutes(r chi.Router) {
	r.Post("/login", h.handleLogin)
}

// MountUserRoutes registers /users behind authentication.
func (h *Handler) MountUserRoutes(r chi.Router) {
	r.Get("/", h.handleListUsers)
	r.Post("/", h.handleCreateUser)
	r.Patch("/{id}/active", h.handleSetUserActive)
}

type loginRequest struct {
	Email    string `json:"email" validate:"required,email"`
	Password string `json:"password" validate:"required"`
}

func (h *Handler) handleLogin(w http.ResponseWriter, r *http.Request) {
	var req loginRequest
	if err := httpx.DecodeJSON(r, &req); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Bad Request", "invalid JSON body")
		return
	}
	if err := h.validate.Struct(req); err != nil {
		httpx.RespondError(w, fmt.Errorf("%w: %s", httpx.ErrValidation, err.Error()))
		return
	}
	result, err := h.service.Login(r.Context(), req.Email, req.Password)
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, map[string]any{
		"token": result.Token,
		"user":  userResponse(result.User),
	})
}

type createUserRequest struct {
	Email    string     `json:"email" validate:"required,email"`
	Name     string     `json:"name" validate:"required,max=200"`
	Password string     `json:"password" validate:"required,min=8"`
	Role     string     `json:"role" validate:"required"`
	BranchID *uuid.UUID `json:"branchId,omitempty"`
}

func (h *Handler) handleCreateUser(w http.ResponseWriter, r *http.Request) {
	var req createUserRequest
	if err := httpx.DecodeJSON(r, &req); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Bad Request", "invalid JSON body")
		return
	}
	if err := h.validate.Struct(req); err != nil {
		httpx.RespondError(w, fmt.Errorf("%w: %s", httpx.ErrValidation, err.Error()))
		return
	}
	u, err := h.service.CreateUser(r.Context(), shared.ActorFromContext(r.Context()), CreateUserInput{
		Email:    req.Email,
		Name:     req.Name,
		Password: req.Password,
		Role:     Role(req.Role),
		BranchID: req.BranchID,
	})
	if err != nil {
		h.logger.Error("create user", slog.Any("error", err))
		httpx.RespondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusCreated, userResponse(u))
}

func (h *Handler) handleListUsers(w http.ResponseWriter, r *http.Request) {
	list, err := h.service.ListUsers(r.Context(), shared.ActorFromContext(r.Context()))
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	payload := make([]map[string]any, 0, len(list))
	for _, u := range list {
		payload = append(payload, userResponse(u))
	}
	httpx.JSON(w, http.StatusOK, payload)
}

type setActiveRequest struct {
	Active bool `json:"active"`
}

func (h *Handler) handleSetUserActive(w http.ResponseWriter, r *http.Request) {
	id, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Bad Request", "invalid user id")
		return
	}
	var req setActiveRequest
	if err := httpx.DecodeJSON(r, &req); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Bad Request", "invalid JSON body")
		return
	}
	if err := h.service.SetUserActive(r.Context(), shared.ActorFromContext(r.Context()), id, req.Active); err != nil {
		httpx.RespondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, map[string]any{"id": id, "active": req.Active})
}

func userResponse(u User) map[string]any {
	resp := map[string]any{
		"id":       u.ID,
		"email":    u.Email,
		"name":     u.Name,
		"role":     string(u.Role),
		"isActive": u.IsActive,
	}
	if u.BranchID != nil {
		resp["branchId"] = *u.BranchID
	}
	return resp
}
