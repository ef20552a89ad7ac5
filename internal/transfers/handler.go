package transfers

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

// Handler wires HTTP endpoints for transfers.
type Handler struct {
	logger   *slog.Logger
	service  *Service
	validate *validator.Validate
}

// NewHandler constructs transfers handler.
func NewHandler(logger *slog.Logger, service *Service) *Handler {
	return &Handler{logger: logger, service: service, validate: validator.New(validator.WithRequiredStructEnabled())}
}

// MountRoutes registers /transfers.
func (h *Handler) MountRoutes(r chi.Router) {
	r.Get("/", h.handleListTransfers)
	r.Post("/", h.handleCreateTransfer)
	r.Get("/{id}", h.handleGetTransfer)
	r.Post("/{id}/approve", h.handleApproveTransfer)
	r.Post("/{id}/reject", h.handleRejectTransfer)
}

type transferLineRequest struct {
	ProductID uuid.UUID `json:"productId" validate:"required"`
	Quantity  int       `json:"quantity" validate:"required,gt=0"`
}

type createTransferRequest struct {
	FromBranchID uuid.UUID             `json:"fromBranchId" validate:"required"`
	ToBranchID   uuid.UUID             `json:"toBranchId" validate:"required"`
	Lines        []transferLineRequest `json:"lines" validate:"required,min=1,dive"`
}

func (h *Handler) handleCreateTransfer(w http.ResponseWriter, r *http.Request) {
	var req createTransferRequest
	if err := httpx.DecodeJSON(r, &req); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Bad Request", "invalid JSON body")
		return
	}
	if err := h.validate.Struct(req); err != nil {
		httpx.RespondError(w, fmt.Errorf("%w: %s", httpx.ErrValidation, err.Error()))
		return
	}
	input := CreateTransferInput{FromBranchID: req.FromBranchID, ToBranchID: req.ToBranchID}
	for _, line := range req.Lines {
		input.Lines = append(input.Lines, TransferLineInput{ProductID: line.ProductID, Quantity: line.Quantity})
	}
	tr, err := h.service.CreateTransfer(r.Context(), shared.ActorFromContext(r.Context()), input)
	if err != nil {
		h.logger.Error("create transfer", slog.Any("error", err))
		httpx.RespondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusCreated, tr)
}

func (h *Handler) handleGetTransfer(w http.ResponseWriter, r *http.Request) {
	id, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Bad Request", "invalid transfer id")
		return
	}
	tr, err := h.service.GetTransfer(r.Context(), shared.ActorFromContext(r.Context()), id)
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, tr)
}

func (h *Handler) handleListTransfers(w http.ResponseWriter, r *http.Request) {
	var status *TransferStatus
	if raw := r.URL.Query().Get("status"); raw != "" {
		s := TransferStatus(raw)
		status = &s
	}
	list, err := h.service.ListTransfers(r.Context(), shared.ActorFromContext(r.Context()), status)
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, list)
}

func (h *Handler) handleApproveTransfer(w http.ResponseWriter, r *http.Request) {
	id, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Bad Request", "invalid transfer id")
		return
	}
	tr, err := h.service.ApproveTransfer(r.Context(), shared.ActorFromContext(r.Context()), id)
	if err != nil {
		h.logger.Error("approve transfer", slog.Any("error", err))
		httpx.RespondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, tr)
}

func (h *Handler) handleRejectTransfer(w http.ResponseWriter, r *http.Request) {
	id, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Bad Request", "invalid transfer id")
		return
	}
	if err := h.service.RejectTransfer(r.Context(), shared.ActorFromContext(r.Context()), id); err != nil {
		httpx.RespondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, map[string]any{"id": id, "status": StatusRejected})
}
