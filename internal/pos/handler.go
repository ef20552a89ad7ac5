package pos

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

// Handler wires HTTP endpoints for point of sale.
type Handler struct {
	logger   *slog.Logger
	service  *Service
	validate *validator.Validate
}

// NewHandler constructs pos handler.
func NewHandler(logger *slog.Logger, service *Service) *Handler {
	return &Handler{logger: logger, service: service, validate: validator.New(validator.WithRequiredStructEnabled())}
}

// MountRoutes registers /sales.
func (h *Handler) MountRoutes(r chi.Router) {
	r.Get("/", h.handleListSales)
	r.Post("/", h.handleCreateSale)
	r.Get("/{id}", h.handleGetSale)
	r.Post("/{id}/returns", h.handleReturnSale)
}

type saleLineRequest struct {
	ProductID uuid.UUID `json:"productId" validate:"required"`
	Quantity  int       `json:"quantity" validate:"required,gt=0"`
	UnitPrice *float64  `json:"unitPrice,omitempty"`
}

type prescriptionRequest struct {
	DoctorName  string `json:"doctorName" validate:"max=200"`
	PatientName string `json:"patientName" validate:"max=200"`
	Notes       string `json:"notes" validate:"max=1000"`
}

type createSaleRequest struct {
	BranchID        uuid.UUID            `json:"branchId" validate:"required"`
	CustomerID      *uuid.UUID           `json:"customerId,omitempty"`
	CustomerName    string               `json:"customerName" validate:"max=200"`
	CustomerCNIC    string               `json:"customerCnic" validate:"max=50"`
	PaymentMode     string               `json:"paymentMode" validate:"required"`
	DiscountAmount  float64              `json:"discountAmount" validate:"gte=0"`
	DiscountPercent float64              `json:"discountPercent" validate:"gte=0,lte=100"`
	Prescription    *prescriptionRequest `json:"prescription,omitempty"`
	Lines           []saleLineRequest    `json:"lines" validate:"required,min=1,dive"`
}

func (h *Handler) handleCreateSale(w http.ResponseWriter, r *http.Request) {
	var req createSaleRequest
	if err := httpx.DecodeJSON(r, &req); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Bad Request", "invalid JSON body")
		return
	}
	if err := h.validate.Struct(req); err != nil {
		httpx.RespondError(w, fmt.Errorf("%w: %s", httpx.ErrValidation, err.Error()))
		return
	}
	input := CreateSaleInput{
		BranchID:        req.BranchID,
		CustomerID:      req.CustomerID,
		CustomerName:    req.CustomerName,
		CustomerCNIC:    req.CustomerCNIC,
		PaymentMode:     PaymentMode(req.PaymentMode),
		DiscountAmount:  req.DiscountAmount,
		DiscountPercent: req.DiscountPercent,
	}
	if req.Prescription != nil {
		input.Prescription = &PrescriptionInput{
			DoctorName:  req.Prescription.DoctorName,
			PatientName: req.Prescription.PatientName,
			Notes:       req.Prescription.Notes,
		}
	}
	for _, line := range req.Lines {
		input.Lines = append(input.Lines, SaleLineInput{
			ProductID: line.ProductID,
			Quantity:  line.Quantity,
			UnitPrice: line.UnitPrice,
		})
	}
	sale, err := h.service.CreateSale(r.Context(), shared.ActorFromContext(r.Context()), input)
	if err != nil {
		h.logger.Error("create sale", slog.Any("error", err))
		httpx.RespondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusCreated, sale)
}

func (h *Handler) handleGetSale(w http.ResponseWriter, r *http.Request) {
	id, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Bad Request", "invalid sale id")
		return
	}
	sale, err := h.service.GetSale(r.Context(), shared.ActorFromContext(r.Context()), id)
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, sale)
}

func (h *Handler) handleListSales(w http.ResponseWriter, r *http.Request) {
	var branchID *uuid.UUID
	if raw := r.URL.Query().Get("branchId"); raw != "" {
		id, err := uuid.Parse(raw)
		if err != nil {
			httpx.Problem(w, http.StatusBadRequest, "Bad Request", "invalid branchId")
			return
		}
		branchID = &id
	}
	p := shared.PaginationFromQuery(r.URL.Query().Get("page"), r.URL.Query().Get("pageSize"))
	list, err := h.service.ListSales(r.Context(), shared.ActorFromContext(r.Context()), branchID, p)
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, list)
}

type returnSaleRequest struct {
	Amount float64 `json:"amount" validate:"required,gt=0"`
	Reason string  `json:"reason" validate:"max=500"`
}

func (h *Handler) handleReturnSale(w http.ResponseWriter, r *http.Request) {
	id, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Bad Request", "invalid sale id")
		return
	}
	var req returnSaleRequest
	if err := httpx.DecodeJSON(r, &req); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Bad Request", "invalid JSON body")
		return
	}
	if err := h.validate.Struct(req); err != nil {
		httpx.RespondError(w, fmt.Errorf("%w: %s", httpx.ErrValidation, err.Error()))
		return
	}
	ret, err := h.service.ReturnSale(r.Context(), shared.ActorFromContext(r.Context()), ReturnSaleInput{
		SaleID: id, Amount: req.Amount, Reason: req.Reason,
	})
	if err != nil {
		h.logger.Error("return sale", slog.Any("error", err))
		httpx.RespondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusCreated, ret)
}
