package catalog

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

// Handler wires HTTP endpoints for catalog master data.
type Handler struct {
	logger   *slog.Logger
	service  *Service
	validate *validator.Validate
}

// NewHandler constructs catalog handler.
func NewHandler(logger *slog.Logger, service *Service) *Handler {
	return &Handler{logger: logger, service: service, validate: validator.New(validator.WithRequiredStructEnabled())}
}

// MountManufacturerRoutes registers /manufacturers.
func (h *Handler) MountManufacturerRoutes(r chi.Router) {
	r.Get("/", h.handleListManufacturers)
	r.Post("/", h.handleCreateManufacturer)
}

// MountDistributionRoutes registers /distributions.
func (h *Handler) MountDistributionRoutes(r chi.Router) {
	r.Get("/", h.handleListDistributions)
	r.Post("/", h.handleCreateDistribution)
	r.Get("/{id}/companies", h.handleListCompanies)
	r.Post("/{id}/companies", h.handleLinkCompany)
}

// MountProductFormRoutes registers /product-forms.
func (h *Handler) MountProductFormRoutes(r chi.Router) {
	r.Get("/", h.handleListProductForms)
	r.Post("/", h.handleCreateProductForm)
}

// MountProductRoutes registers /products.
func (h *Handler) MountProductRoutes(r chi.Router) {
	r.Get("/", h.handleListProducts)
	r.Post("/", h.handleCreateProduct)
	r.Get("/{id}", h.handleGetProduct)
}

type createManufacturerRequest struct {
	Name        string `json:"name" validate:"required,max=200"`
	ContactInfo string `json:"contactInfo" validate:"max=200"`
	Address     string `json:"address" validate:"max=500"`
}

func (h *Handler) handleCreateManufacturer(w http.ResponseWriter, r *http.Request) {
	var req createManufacturerRequest
	if err := httpx.DecodeJSON(r, &req); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Bad Request", "invalid JSON body")
		return
	}
	if err := h.validate.Struct(req); err != nil {
		httpx.RespondError(w, fmt.Errorf("%w: %s", httpx.ErrValidation, err.Error()))
		return
	}
	m, err := h.service.CreateManufacturer(r.Context(), shared.ActorFromContext(r.Context()), CreateManufacturerInput{
		Name: req.Name, ContactInfo: req.ContactInfo, Address: req.Address,
	})
	if err != nil {
		h.logger.Error("create manufacturer", slog.Any("error", err))
		httpx.RespondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusCreated, manufacturerResponse(m))
}

func (h *Handler) handleListManufacturers(w http.ResponseWriter, r *http.Request) {
	list, err := h.service.ListManufacturers(r.Context())
	if err != nil {
		h.logger.Error("list manufacturers", slog.Any("error", err))
		httpx.RespondError(w, err)
		return
	}
	payload := make([]map[string]any, 0, len(list))
	for _, m := range list {
		payload = append(payload, manufacturerResponse(m))
	}
	httpx.JSON(w, http.StatusOK, payload)
}

type createDistributionRequest struct {
	Name    string `json:"name" validate:"required,max=200"`
	Contact string `json:"contact" validate:"max=200"`
	Address string `json:"address" validate:"max=500"`
	Phone   string `json:"phone" validate:"max=50"`
}

func (h *Handler) handleCreateDistribution(w http.ResponseWriter, r *http.Request) {
	var req createDistributionRequest
	if err := httpx.DecodeJSON(r, &req); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Bad Request", "invalid JSON body")
		return
	}
	if err := h.validate.Struct(req); err != nil {
		httpx.RespondError(w, fmt.Errorf("%w: %s", httpx.ErrValidation, err.Error()))
		return
	}
	d, err := h.service.CreateDistribution(r.Context(), shared.ActorFromContext(r.Context()), CreateDistributionInput{
		Name: req.Name, Contact: req.Contact, Address: req.Address, Phone: req.Phone,
	})
	if err != nil {
		h.logger.Error("create distribution", slog.Any("error", err))
		httpx.RespondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusCreated, map[string]any{"id": d.ID, "name": d.Name})
}

func (h *Handler) handleListDistributions(w http.ResponseWriter, r *http.Request) {
	list, err := h.service.ListDistributions(r.Context())
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, list)
}

type linkCompanyRequest struct {
	ManufacturerID uuid.UUID `json:"manufacturerId" validate:"required"`
}

func (h *Handler) handleLinkCompany(w http.ResponseWriter, r *http.Request) {
	distributionID, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Bad Request", "invalid distribution id")
		return
	}
	var req linkCompanyRequest
	if err := httpx.DecodeJSON(r, &req); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Bad Request", "invalid JSON body")
		return
	}
	if req.ManufacturerID == uuid.Nil {
		httpx.RespondError(w, fmt.Errorf("%w: manufacturerId required", httpx.ErrValidation))
		return
	}
	link, err := h.service.LinkCompany(r.Context(), shared.ActorFromContext(r.Context()), distributionID, req.ManufacturerID)
	if err != nil {
		h.logger.Error("link company", slog.Any("error", err))
		httpx.RespondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusCreated, link)
}

func (h *Handler) handleListCompanies(w http.ResponseWriter, r *http.Request) {
	distributionID, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Bad Request", "invalid distribution id")
		return
	}
	list, err := h.service.ListCompanies(r.Context(), distributionID)
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, list)
}

type createProductFormRequest struct {
	Name         string `json:"name" validate:"required,max=100"`
	DisplayOrder int    `json:"displayOrder" validate:"gte=0"`
}

func (h *Handler) handleCreateProductForm(w http.ResponseWriter, r *http.Request) {
	var req createProductFormRequest
	if err := httpx.DecodeJSON(r, &req); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Bad Request", "invalid JSON body")
		return
	}
	if err := h.validate.Struct(req); err != nil {
		httpx.RespondError(w, fmt.Errorf("%w: %s", httpx.ErrValidation, err.Error()))
		return
	}
	f, err := h.service.CreateProductForm(r.Context(), shared.ActorFromContext(r.Context()), CreateProductFormInput{
		Name: req.Name, DisplayOrder: req.DisplayOrder,
	})
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusCreated, f)
}

func (h *Handler) handleListProductForms(w http.ResponseWriter, r *http.Request) {
	list, err := h.service.ListProductForms(r.Context())
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, list)
}

type createProductRequest struct {
	ManufacturerID      uuid.UUID  `json:"manufacturerId" validate:"required"`
	Name                string     `json:"name" validate:"required,max=200"`
	GenericName         string     `json:"genericName" validate:"max=200"`
	Strength            string     `json:"strength" validate:"max=100"`
	ProductFormID       *uuid.UUID `json:"productFormId,omitempty"`
	Schedule            string     `json:"schedule" validate:"required"`
	Barcode             string     `json:"barcode" validate:"max=100"`
	TherapeuticCategory string     `json:"therapeuticCategory" validate:"max=200"`
	ReorderPoint        int        `json:"reorderPoint" validate:"gte=0"`
	SalePrice           float64    `json:"salePrice" validate:"gte=0"`
}

func (h *Handler) handleCreateProduct(w http.ResponseWriter, r *http.Request) {
	var req createProductRequest
	if err := httpx.DecodeJSON(r, &req); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Bad Request", "invalid JSON body")
		return
	}
	if err := h.validate.Struct(req); err != nil {
		httpx.RespondError(w, fmt.Errorf("%w: %s", httpx.ErrValidation, err.Error()))
		return
	}
	p, err := h.service.CreateProduct(r.Context(), shared.ActorFromContext(r.Context()), CreateProductInput{
		ManufacturerID:      req.ManufacturerID,
		Name:                req.Name,
		GenericName:         req.GenericName,
		Strength:            req.Strength,
		ProductFormID:       req.ProductFormID,
		Schedule:            Schedule(req.Schedule),
		Barcode:             req.Barcode,
		TherapeuticCategory: req.TherapeuticCategory,
		ReorderPoint:        req.ReorderPoint,
		SalePrice:           req.SalePrice,
	})
	if err != nil {
		h.logger.Error("create product", slog.Any("error", err))
		httpx.RespondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusCreated, map[string]any{"id": p.ID, "name": p.Name})
}

func (h *Handler) handleListProducts(w http.ResponseWriter, r *http.Request) {
	list, err := h.service.ListProducts(r.Context(), r.URL.Query().Get("search"))
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, list)
}

func (h *Handler) handleGetProduct(w http.ResponseWriter, r *http.Request) {
	id, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Bad Request", "invalid product id")
		return
	}
	p, err := h.service.GetProduct(r.Context(), id)
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, p)
}

func manufacturerResponse(m Manufacturer) map[string]any {
	return map[string]any{
		"id":          m.ID,
		"name":        m.Name,
		"contactInfo": m.ContactInfo,
		"address":     m.Address,
	}
}
