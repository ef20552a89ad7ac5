package customers

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"

	"github.com/pharmacore-erp/pharmacore/internal/platform/httpx"
	"github.com/pharmacore-erp/pharmacore/internal/pos"
	"github.com/pharmacore-erp/pharmacore/internal/shared"
)

// HistoryPort serves the per-customer sale and prescription history.
// *pos.Service satisfies it.
type HistoryPort interface {
	CustomerSales(ctx context.Context, actor *shared.Actor, customerID uuid.UUID) ([]pos.Sale, error)
	CustomerPrescriptions(ctx context.Context, actor *shared.Actor, customerID uuid.UUID) ([]pos.Prescription, error)
}

// Handler wires HTTP endpoints for the customer register.
type Handler struct {
	logger   *slog.Logger
	service  *Service
	history  HistoryPort
	validate *validator.Validate
}

// NewHandler constructs customers handler.
func NewHandler(logger *slog.Logger, service *Service, history HistoryPort) *Handler {
	return &Handler{logger: logger, service: service, history: history, validate: validator.New(validator.WithRequiredStructEnabled())}
}

// MountRoutes registers /customers.
func (h *Handler) MountRoutes(r chi.Router) {
	r.Get("/", h.handleList)
	r.Post("/", h.handleCreate)
	r.Get("/{id}", h.handleGet)
	r.Put("/{id}", h.handleUpdate)
	r.Get("/{id}/sales", h.handleSales)
	r.Get("/{id}/prescriptions", h.handlePrescriptions)
}

type customerRequest struct {
	Name        string  `json:"name" validate:"required,max=200"`
	Phone       string  `json:"phone" validate:"max=50"`
	CNIC        string  `json:"cnic" validate:"max=50"`
	Email       string  `json:"email" validate:"omitempty,email,max=200"`
	Address     string  `json:"address" validate:"max=500"`
	CreditLimit float64 `json:"creditLimit" validate:"gte=0"`
}

func (req customerRequest) toInput() CustomerInput {
	return CustomerInput{
		Name:        req.Name,
		Phone:       req.Phone,
		CNIC:        req.CNIC,
		Email:       req.Email,
		Address:     req.Address,
		CreditLimit: req.CreditLimit,
	}
}

func (h *Handler) handleCreate(w http.ResponseWriter, r *http.Request) {
	var req customerRequest
	if err := httpx.DecodeJSON(r, &req); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Bad Request", "invalid JSON body")
		return
	}
	if err := h.validate.Struct(req); err != nil {
		httpx.RespondError(w, fmt.Errorf("%w: %s", httpx.ErrValidation, err.Error()))
		return
	}
	c, err := h.service.Create(r.Context(), shared.ActorFromContext(r.Context()), req.toInput())
	if err != nil {
		h.logger.Error("create customer", slog.Any("error", err))
		httpx.RespondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusCreated, c)
}

func (h *Handler) handleGet(w http.ResponseWriter, r *http.Request) {
	id, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Bad Request", "invalid customer id")
		return
	}
	c, err := h.service.Get(r.Context(), shared.ActorFromContext(r.Context()), id)
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, c)
}

func (h *Handler) handleList(w http.ResponseWriter, r *http.Request) {
	list, err := h.service.List(r.Context(), shared.ActorFromContext(r.Context()), r.URL.Query().Get("search"))
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, list)
}

func (h *Handler) handleUpdate(w http.ResponseWriter, r *http.Request) {
	id, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Bad Request", "invalid customer id")
		return
	}
	var req customerRequest
	if err := httpx.DecodeJSON(r, &req); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Bad Request", "invalid JSON body")
		return
	}
	if err := h.validate.Struct(req); err != nil {
		httpx.RespondError(w, fmt.Errorf("%w: %s", httpx.ErrValidation, err.Error()))
		return
	}
	c, err := h.service.Update(r.Context(), shared.ActorFromContext(r.Context()), id, req.toInput())
	if err != nil {
		h.logger.Error("update customer", slog.Any("error", err))
		httpx.RespondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, c)
}

func (h *Handler) handleSales(w http.ResponseWriter, r *http.Request) {
	id, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Bad Request", "invalid customer id")
		return
	}
	actor := shared.ActorFromContext(r.Context())
	if _, err := h.service.Get(r.Context(), actor, id); err != nil {
		httpx.RespondError(w, err)
		return
	}
	list, err := h.history.CustomerSales(r.Context(), actor, id)
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, list)
}

func (h *Handler) handlePrescriptions(w http.ResponseWriter, r *http.Request) {
	id, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Bad Request", "invalid customer id")
		return
	}
	actor := shared.ActorFromContext(r.Context())
	if _, err := h.service.Get(r.Context(), actor, id); err != nil {
		httpx.RespondError(w, err)
		return
	}
	list, err := h.history.CustomerPrescriptions(r.Context(), actor, id)
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, list)
}
