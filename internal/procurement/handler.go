package procurement

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

// Handler wires HTTP endpoints for procurement.
type Handler struct {
	logger   *slog.Logger
	service  *Service
	validate *validator.Validate
}

// NewHandler constructs procurement handler.
func NewHandler(logger *slog.Logger, service *Service) *Handler {
	return &Handler{logger: logger, service: service, validate: validator.New(validator.WithRequiredStructEnabled())}
}

// MountRoutes registers /purchase-orders.
func (h *Handler) MountRoutes(r chi.Router) {
	r.Get("/", h.handleListOrders)
	r.Post("/", h.handleCreateOrder)
	r.Get("/{id}", h.handleGetOrder)
	r.Post("/{id}/receive", h.handleReceiveOrder)
	r.Post("/{id}/cancel", h.handleCancelOrder)
	r.Get("/{id}/payments", h.handleListPayments)
	r.Post("/{id}/payments", h.handleRegisterPayment)
}

type orderLineRequest struct {
	ProductID      uuid.UUID  `json:"productId" validate:"required"`
	ManufacturerID *uuid.UUID `json:"manufacturerId,omitempty"`
	Quantity       int        `json:"quantity" validate:"required,gt=0"`
	UnitPrice      float64    `json:"unitPrice" validate:"gte=0"`
}

type createOrderRequest struct {
	BranchID       uuid.UUID          `json:"branchId" validate:"required"`
	DistributionID uuid.UUID          `json:"distributionId" validate:"required"`
	Lines          []orderLineRequest `json:"lines" validate:"required,min=1,dive"`
}

func (h *Handler) handleCreateOrder(w http.ResponseWriter, r *http.Request) {
	var req createOrderRequest
	if err := httpx.DecodeJSON(r, &req); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Bad Request", "invalid JSON body")
		return
	}
	if err := h.validate.Struct(req); err != nil {
		httpx.RespondError(w, fmt.Errorf("%w: %s", httpx.ErrValidation, err.Error()))
		return
	}
	input := CreateOrderInput{BranchID: req.BranchID, DistributionID: req.DistributionID}
	for _, line := range req.Lines {
		input.Lines = append(input.Lines, OrderLineInput{
			ProductID: line.ProductID, ManufacturerID: line.ManufacturerID,
			Quantity: line.Quantity, UnitPrice: line.UnitPrice,
		})
	}
	po, err := h.service.CreateOrder(r.Context(), shared.ActorFromContext(r.Context()), input)
	if err != nil {
		h.logger.Error("create purchase order", slog.Any("error", err))
		httpx.RespondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusCreated, po)
}

func (h *Handler) handleGetOrder(w http.ResponseWriter, r *http.Request) {
	id, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Bad Request", "invalid order id")
		return
	}
	po, err := h.service.GetOrder(r.Context(), shared.ActorFromContext(r.Context()), id)
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, po)
}

func (h *Handler) handleListOrders(w http.ResponseWriter, r *http.Request) {
	var status *OrderStatus
	if raw := r.URL.Query().Get("status"); raw != "" {
		s := OrderStatus(raw)
		status = &s
	}
	p := shared.PaginationFromQuery(r.URL.Query().Get("page"), r.URL.Query().Get("pageSize"))
	list, err := h.service.ListOrders(r.Context(), shared.ActorFromContext(r.Context()), status, p)
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, list)
}

func (h *Handler) handleReceiveOrder(w http.ResponseWriter, r *http.Request) {
	id, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Bad Request", "invalid order id")
		return
	}
	po, err := h.service.ReceiveOrder(r.Context(), shared.ActorFromContext(r.Context()), id)
	if err != nil {
		h.logger.Error("receive purchase order", slog.Any("error", err))
		httpx.RespondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, po)
}

func (h *Handler) handleCancelOrder(w http.ResponseWriter, r *http.Request) {
	id, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Bad Request", "invalid order id")
		return
	}
	if err := h.service.CancelOrder(r.Context(), shared.ActorFromContext(r.Context()), id); err != nil {
		httpx.RespondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, map[string]any{"id": id, "status": StatusCancelled})
}

type paymentRequest struct {
	Amount    float64 `json:"amount" validate:"required,gt=0"`
	Method    string  `json:"method" validate:"required,max=50"`
	Reference string  `json:"reference" validate:"max=200"`
}

func (h *Handler) handleRegisterPayment(w http.ResponseWriter, r *http.Request) {
	id, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Bad Request", "invalid order id")
		return
	}
	var req paymentRequest
	if err := httpx.DecodeJSON(r, &req); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Bad Request", "invalid JSON body")
		return
	}
	if err := h.validate.Struct(req); err != nil {
		httpx.RespondError(w, fmt.Errorf("%w: %s", httpx.ErrValidation, err.Error()))
		return
	}
	payment, err := h.service.RegisterPayment(r.Context(), shared.ActorFromContext(r.Context()), PaymentInput{
		PurchaseOrderID: id, Amount: req.Amount, Method: req.Method, Reference: req.Reference,
	})
	if err != nil {
		h.logger.Error("register payment", slog.Any("error", err))
		httpx.RespondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusCreated, payment)
}

func (h *Handler) handleListPayments(w http.ResponseWriter, r *http.Request) {
	id, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Bad Request", "invalid order id")
		return
	}
	list, err := h.service.ListPayments(r.Context(), shared.ActorFromContext(r.Context()), id)
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, list)
}
