package catalog

import (
	"context"
	"fmt"
	"strings"

	"github.com/google/uuid"

	"github.com/pharmacore-erp/pharmacore/internal/platform/httpx"
	"github.com/pharmacore-erp/pharmacore/internal/shared"
)

// RepositoryPort describes the persistence operations used by Service.
type RepositoryPort interface {
	CreateManufacturer(ctx context.Context, m Manufacturer) error
	ListManufacturers(ctx context.Context) ([]Manufacturer, error)
	GetManufacturer(ctx context.Context, id uuid.UUID) (Manufacturer, error)

	CreateDistribution(ctx context.Context, d Distribution) error
	ListDistributions(ctx context.Context) ([]Distribution, error)
	GetDistribution(ctx context.Context, id uuid.UUID) (Distribution, error)

	LinkCompany(ctx context.Context, link DistributionCompany) error
	UnlinkCompany(ctx context.Context, id uuid.UUID) error
	ListCompanies(ctx context.Context, distributionID uuid.UUID) ([]DistributionCompany, error)
	CompanyManufacturers(ctx context.Context, distributionID uuid.UUID) ([]uuid.UUID, error)

	CreateProductForm(ctx context.Context, f ProductForm) error
	ListProductForms(ctx context.Context) ([]ProductForm, error)

	CreateProduct(ctx context.Context, p Product) error
	UpdateProduct(ctx context.Context, p Product) error
	ListProducts(ctx context.Context, search string) ([]Product, error)
	GetProduct(ctx context.Context, id uuid.UUID) (Product, error)
}

// AuditPort records catalog mutations.
type AuditPort interface {
	Record(ctx context.Context, log shared.AuditLog) error
}

// Service coordinates catalog master data.
type Service struct {
	repo  RepositoryPort
	audit AuditPort
}

// NewService builds Service.
func NewService(repo RepositoryPort, audit AuditPort) *Service {
	return &Service{repo: repo, audit: audit}
}

// CreateManufacturerInput describes creation payload.
type CreateManufacturerInput struct {
	Name        string
	ContactInfo string
	Address     string
}

// CreateManufacturer persists a manufacturer.
func (s *Service) CreateManufacturer(ctx context.Context, actor *shared.Actor, input CreateManufacturerInput) (Manufacturer, error) {
	if strings.TrimSpace(input.Name) == "" {
		return Manufacturer{}, fmt.Errorf("%w: manufacturer name required", httpx.ErrValidation)
	}
	m := Manufacturer{ID: uuid.New(), Name: input.Name, ContactInfo: input.ContactInfo, Address: input.Address}
	if err := s.repo.CreateManufacturer(ctx, m); err != nil {
		return Manufacturer{}, err
	}
	s.recordAudit(ctx, actor, "MANUFACTURER_CREATE", "manufacturer", m.ID, map[string]any{"name": m.Name})
	return m, nil
}

// ListManufacturers lists all manufacturers.
func (s *Service) ListManufacturers(ctx context.Context) ([]Manufacturer, error) {
	return s.repo.ListManufacturers(ctx)
}

// CreateDistributionInput describes creation payload.
type CreateDistributionInput struct {
	Name    string
	Contact string
	Address string
	Phone   string
}

// CreateDistribution persists a distribution.
func (s *Service) CreateDistribution(ctx context.Context, actor *shared.Actor, input CreateDistributionInput) (Distribution, error) {
	if strings.TrimSpace(input.Name) == "" {
		return Distribution{}, fmt.Errorf("%w: distribution name required", httpx.ErrValidation)
	}
	d := Distribution{ID: uuid.New(), Name: input.Name, Contact: input.Contact, Address: input.Address, Phone: input.Phone}
	if err := s.repo.CreateDistribution(ctx, d); err != nil {
		return Distribution{}, err
	}
	s.recordAudit(ctx, actor, "DISTRIBUTION_CREATE", "distribution", d.ID, map[string]any{"name": d.Name})
	return d, nil
}

// ListDistributions lists all distributions.
func (s *Service) ListDistributions(ctx context.Context) ([]Distribution, error) {
	return s.repo.ListDistributions(ctx)
}

// GetDistribution fetches one distribution.
func (s *Service) GetDistribution(ctx context.Context, id uuid.UUID) (Distribution, error) {
	return s.repo.GetDistribution(ctx, id)
}

// LinkCompany registers that a distribution supplies a manufacturer's products.
func (s *Service) LinkCompany(ctx context.Context, actor *shared.Actor, distributionID, manufacturerID uuid.UUID) (DistributionCompany, error) {
	if _, err := s.repo.GetDistribution(ctx, distributionID); err != nil {
		return DistributionCompany{}, err
	}
	if _, err := s.repo.GetManufacturer(ctx, manufacturerID); err != nil {
		return DistributionCompany{}, err
	}
	link := DistributionCompany{ID: uuid.New(), DistributionID: distributionID, ManufacturerID: manufacturerID}
	if err := s.repo.LinkCompany(ctx, link); err != nil {
		return DistributionCompany{}, err
	}
	s.recordAudit(ctx, actor, "DISTRIBUTION_COMPANY_LINK", "distribution", distributionID, map[string]any{"manufacturer_id": manufacturerID.String()})
	return link, nil
}

// ListCompanies lists the manufacturers supplied by a distribution.
func (s *Service) ListCompanies(ctx context.Context, distributionID uuid.UUID) ([]DistributionCompany, error) {
	return s.repo.ListCompanies(ctx, distributionID)
}

// Supplies reports whether the distribution carries the manufacturer.
func (s *Service) Supplies(ctx context.Context, distributionID, manufacturerID uuid.UUID) (bool, error) {
	ids, err := s.repo.CompanyManufacturers(ctx, distributionID)
	if err != nil {
		return false, err
	}
	for _, id := range ids {
		if id == manufacturerID {
			return true, nil
		}
	}
	return false, nil
}

// CreateProductFormInput describes creation payload.
type CreateProductFormInput struct {
	Name         string
	DisplayOrder int
}

// CreateProductForm persists a dosage form.
func (s *Service) CreateProductForm(ctx context.Context, actor *shared.Actor, input CreateProductFormInput) (ProductForm, error) {
	if strings.TrimSpace(input.Name) == "" {
		return ProductForm{}, fmt.Errorf("%w: product form name required", httpx.ErrValidation)
	}
	f := ProductForm{ID: uuid.New(), Name: input.Name, DisplayOrder: input.DisplayOrder, IsActive: true}
	if err := s.repo.CreateProductForm(ctx, f); err != nil {
		return ProductForm{}, err
	}
	s.recordAudit(ctx, actor, "PRODUCT_FORM_CREATE", "product_form", f.ID, map[string]any{"name": f.Name})
	return f, nil
}

// ListProductForms lists dosage forms.
func (s *Service) ListProductForms(ctx context.Context) ([]ProductForm, error) {
	return s.repo.ListProductForms(ctx)
}

// CreateProductInput describes creation payload.
type CreateProductInput struct {
	ManufacturerID      uuid.UUID
	Name                string
	GenericName         string
	Strength            string
	ProductFormID       *uuid.UUID
	Schedule            Schedule
	Barcode             string
	TherapeuticCategory string
	ReorderPoint        int
	SalePrice           float64
}

// CreateProduct persists a product under its manufacturer.
func (s *Service) CreateProduct(ctx context.Context, actor *shared.Actor, input CreateProductInput) (Product, error) {
	if strings.TrimSpace(input.Name) == "" {
		return Product{}, fmt.Errorf("%w: product name required", httpx.ErrValidation)
	}
	if !input.Schedule.Valid() {
		return Product{}, ErrInvalidSchedule
	}
	if input.SalePrice < 0 {
		return Product{}, fmt.Errorf("%w: sale price must be >= 0", httpx.ErrValidation)
	}
	if _, err := s.repo.GetManufacturer(ctx, input.ManufacturerID); err != nil {
		return Product{}, err
	}
	p := Product{
		ID:                  uuid.New(),
		ManufacturerID:      input.ManufacturerID,
		Name:                input.Name,
		GenericName:         input.GenericName,
		Strength:            input.Strength,
		ProductFormID:       input.ProductFormID,
		Schedule:            input.Schedule,
		Barcode:             input.Barcode,
		TherapeuticCategory: input.TherapeuticCategory,
		ReorderPoint:        input.ReorderPoint,
		SalePrice:           input.SalePrice,
		IsActive:            true,
	}
	if err := s.repo.CreateProduct(ctx, p); err != nil {
		return Product{}, err
	}
	s.recordAudit(ctx, actor, "PRODUCT_CREATE", "product", p.ID, map[string]any{"name": p.Name, "schedule": string(p.Schedule)})
	return p, nil
}

// ListProducts lists products, optionally filtered by a search term.
func (s *Service) ListProducts(ctx context.Context, search string) ([]Product, error) {
	return s.repo.ListProducts(ctx, search)
}

// GetProduct fetches one product.
func (s *Service) GetProduct(ctx context.Context, id uuid.UUID) (Product, error) {
	return s.repo.GetProduct(ctx, id)
}

func (s *Service) recordAudit(ctx context.Context, actor *shared.Actor, action, entity string, entityID uuid.UUID, meta map[string]any) {
	if s.audit == nil {
		return
	}
	var actorID uuid.UUID
	if actor != nil {
		actorID = actor.UserID
	}
	_ = s.audit.Record(ctx, shared.AuditLog{ActorID: actorID, Action: action, Entity: entity, EntityID: entityID.String(), Meta: meta})
}
