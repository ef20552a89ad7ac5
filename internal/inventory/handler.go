package inventory

import (
	"fmt"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"

	"github.com/pharmacore-erp/pharmacore/internal/platform/httpx"
	"github.com/pharmacore-erp/pharmacore/internal/shared"
)

// Handler wires HTTP endpoints for inventory.
type Handler struct {
	logger   *slog.Logger
	service  *Service
	validate *validator.Validate
}

// NewHandler constructs inventory handler.
func NewHandler(logger *slog.Logger, service *Service) *Handler {
	return &Handler{logger: logger, service: service, validate: validator.New(validator.WithRequiredStructEnabled())}
}

// MountRoutes registers /inventory.
func (h *Handler) MountRoutes(r chi.Router) {
	r.Get("/", h.handleListBatches)
	r.Post("/batches", h.handleCreateBatch)
	r.Get("/alerts", h.handleAlerts)
	r.Post("/adjust", h.handleAdjust)
	r.Get("/adjustments", h.handleListAdjustments)
}

type createBatchRequest struct {
	BranchID      uuid.UUID `json:"branchId" validate:"required"`
	ProductID     uuid.UUID `json:"productId" validate:"required"`
	BatchNumber   string    `json:"batchNumber" validate:"required,max=100"`
	ExpiryDate    time.Time `json:"expiryDate" validate:"required"`
	Quantity      int       `json:"quantity" validate:"gte=0"`
	PurchasePrice float64   `json:"purchasePrice" validate:"gte=0"`
	SalePrice     float64   `json:"salePrice" validate:"gte=0"`
}

func (h *Handler) handleCreateBatch(w http.ResponseWriter, r *http.Request) {
	var req createBatchRequest
	if err := httpx.DecodeJSON(r, &req); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Bad Request", "invalid JSON body")
		return
	}
	if err := h.validate.Struct(req); err != nil {
		httpx.RespondError(w, fmt.Errorf("%w: %s", httpx.ErrValidation, err.Error()))
		return
	}
	b, err := h.service.CreateBatch(r.Context(), shared.ActorFromContext(r.Context()), CreateBatchInput{
		BranchID:      req.BranchID,
		ProductID:     req.ProductID,
		BatchNumber:   req.BatchNumber,
		ExpiryDate:    req.ExpiryDate,
		Quantity:      req.Quantity,
		PurchasePrice: req.PurchasePrice,
		SalePrice:     req.SalePrice,
	})
	if err != nil {
		h.logger.Error("create batch", slog.Any("error", err))
		httpx.RespondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusCreated, b)
}

func (h *Handler) handleListBatches(w http.ResponseWriter, r *http.Request) {
	filter := ListFilter{}
	if raw := r.URL.Query().Get("branchId"); raw != "" {
		id, err := uuid.Parse(raw)
		if err != nil {
			httpx.Problem(w, http.StatusBadRequest, "Bad Request", "invalid branchId")
			return
		}
		filter.BranchID = &id
	}
	if raw := r.URL.Query().Get("productId"); raw != "" {
		id, err := uuid.Parse(raw)
		if err != nil {
			httpx.Problem(w, http.StatusBadRequest, "Bad Request", "invalid productId")
			return
		}
		filter.ProductID = &id
	}
	list, err := h.service.ListBatches(r.Context(), shared.ActorFromContext(r.Context()), filter)
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, list)
}

type adjustRequest struct {
	BatchID       uuid.UUID `json:"batchId" validate:"required"`
	Type          string    `json:"type" validate:"required"`
	QuantityDelta int       `json:"quantityDelta" validate:"required"`
	Reason        string    `json:"reason" validate:"max=500"`
}

func (h *Handler) handleAdjust(w http.ResponseWriter, r *http.Request) {
	var req adjustRequest
	if err := httpx.DecodeJSON(r, &req); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Bad Request", "invalid JSON body")
		return
	}
	if err := h.validate.Struct(req); err != nil {
		httpx.RespondError(w, fmt.Errorf("%w: %s", httpx.ErrValidation, err.Error()))
		return
	}
	adj, err := h.service.Adjust(r.Context(), shared.ActorFromContext(r.Context()), AdjustInput{
		BatchID:       req.BatchID,
		Type:          AdjustmentType(req.Type),
		QuantityDelta: req.QuantityDelta,
		Reason:        req.Reason,
	})
	if err != nil {
		h.logger.Error("adjust stock", slog.Any("error", err))
		httpx.RespondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusCreated, adj)
}

func (h *Handler) handleListAdjustments(w http.ResponseWriter, r *http.Request) {
	var branchID *uuid.UUID
	if raw := r.URL.Query().Get("branchId"); raw != "" {
		id, err := uuid.Parse(raw)
		if err != nil {
			httpx.Problem(w, http.StatusBadRequest, "Bad Request", "invalid branchId")
			return
		}
		branchID = &id
	}
	list, err := h.service.ListAdjustments(r.Context(), shared.ActorFromContext(r.Context()), branchID)
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, list)
}

func (h *Handler) handleAlerts(w http.ResponseWriter, r *http.Request) {
	days := 30
	if raw := r.URL.Query().Get("days"); raw != "" {
		parsed, err := strconv.Atoi(raw)
		if err != nil || parsed <= 0 {
			httpx.Problem(w, http.StatusBadRequest, "Bad Request", "days must be a positive integer")
			return
		}
		days = parsed
	}
	alerts, err := h.service.Alerts(r.Context(), shared.ActorFromContext(r.Context()), days)
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, alerts)
}
