package catalog

import (
	"context"
	"errors"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/require"

	"github.com/pharmacore-erp/pharmacore/internal/platform/httpx"
	"github.com/pharmacore-erp/pharmacore/internal/shared"
)

type memoryRepo struct {
	manufacturers map[uuid.UUID]Manufacturer
	distributions map[uuid.UUID]Distribution
	companies     []DistributionCompany
	forms         map[uuid.UUID]ProductForm
	products      map[uuid.UUID]Product
}

func newMemoryRepo() *memoryRepo {
	return &memoryRepo{
		manufacturers: map[uuid.UUID]Manufacturer{},
		distributions: map[uuid.UUID]Distribution{},
		forms:         map[uuid.UUID]ProductForm{},
		products:      map[uuid.UUID]Product{},
	}
}

func (m *memoryRepo) CreateManufacturer(_ context.Context, man Manufacturer) error {
	m.manufacturers[man.ID] = man
	return nil
}

func (m *memoryRepo) ListManufacturers(_ context.Context) ([]Manufacturer, error) {
	out := []Manufacturer{}
	for _, v := range m.manufacturers {
		out = append(out, v)
	}
	return out, nil
}

func (m *memoryRepo) GetManufacturer(_ context.Context, id uuid.UUID) (Manufacturer, error) {
	v, ok := m.manufacturers[id]
	if !ok {
		return Manufacturer{}, ErrManufacturerNotFound
	}
	return v, nil
}

func (m *memoryRepo) CreateDistribution(_ context.Context, d Distribution) error {
	m.distributions[d.ID] = d
	return nil
}

func (m *memoryRepo) ListDistributions(_ context.Context) ([]Distribution, error) {
	out := []Distribution{}
	for _, v := range m.distributions {
		out = append(out, v)
	}
	return out, nil
}

func (m *memoryRepo) GetDistribution(_ context.Context, id uuid.UUID) (Distribution, error) {
	v, ok := m.distributions[id]
	if !ok {
		return Distribution{}, ErrDistributionNotFound
	}
	return v, nil
}

func (m *memoryRepo) LinkCompany(_ context.Context, link DistributionCompany) error {
	for _, c := range m.companies {
		if c.DistributionID == link.DistributionID && c.ManufacturerID == link.ManufacturerID {
			return ErrCompanyExists
		}
	}
	m.companies = append(m.companies, link)
	return nil
}

func (m *memoryRepo) UnlinkCompany(_ context.Context, id uuid.UUID) error {
	for i, c := range m.companies {
		if c.ID == id {
			m.companies = append(m.companies[:i], m.companies[i+1:]...)
			return nil
		}
	}
	return nil
}

func (m *memoryRepo) ListCompanies(_ context.Context, distributionID uuid.UUID) ([]DistributionCompany, error) {
	out := []DistributionCompany{}
	for _, c := range m.companies {
		if c.DistributionID == distributionID {
			out = append(out, c)
		}
	}
	return out, nil
}

func (m *memoryRepo) CompanyManufacturers(_ context.Context, distributionID uuid.UUID) ([]uuid.UUID, error) {
	var ids []uuid.UUID
	for _, c := range m.companies {
		if c.DistributionID == distributionID {
			ids = append(ids, c.ManufacturerID)
		}
	}
	return ids, nil
}

func (m *memoryRepo) CreateProductForm(_ context.Context, f ProductForm) error {
	m.forms[f.ID] = f
	return nil
}

func (m *memoryRepo) ListProductForms(_ context.Context) ([]ProductForm, error) {
	out := []ProductForm{}
	for _, f := range m.forms {
		out = append(out, f)
	}
	return out, nil
}

func (m *memoryRepo) CreateProduct(_ context.Context, p Product) error {
	m.products[p.ID] = p
	return nil
}

func (m *memoryRepo) UpdateProduct(_ context.Context, p Product) error {
	if _, ok := m.products[p.ID]; !ok {
		return ErrProductNotFound
	}
	m.products[p.ID] = p
	return nil
}

func (m *memoryRepo) ListProducts(_ context.Context, search string) ([]Product, error) {
	out := []Product{}
	for _, p := range m.products {
		out = append(out, p)
	}
	return out, nil
}

func (m *memoryRepo) GetProduct(_ context.Context, id uuid.UUID) (Product, error) {
	p, ok := m.products[id]
	if !ok {
		return Product{}, ErrProductNotFound
	}
	return p, nil
}

type memoryAudit struct {
	logs []shared.AuditLog
}

func (m *memoryAudit) Record(_ context.Context, log shared.AuditLog) error {
	m.logs = append(m.logs, log)
	return nil
}

func testActor() *shared.Actor {
	return &shared.Actor{UserID: uuid.New(), Email: "admin@pharmacy.test", Role: "Admin", OrganizationID: uuid.New()}
}

func TestCreateProductValidation(t *testing.T) {
	repo := newMemoryRepo()
	audit := &memoryAudit{}
	svc := NewService(repo, audit)
	ctx := context.Background()
	actor := testActor()

	man, err := svc.CreateManufacturer(ctx, actor, CreateManufacturerInput{Name: "Getz Pharma"})
	require.NoError(t, err)

	_, err = svc.CreateProduct(ctx, actor, CreateProductInput{ManufacturerID: man.ID, Name: "", Schedule: ScheduleOTC})
	require.ErrorIs(t, err, httpx.ErrValidation)

	_, err = svc.CreateProduct(ctx, actor, CreateProductInput{ManufacturerID: man.ID, Name: "Panadol", Schedule: Schedule("NARCOTIC")})
	require.ErrorIs(t, err, httpx.ErrValidation)

	_, err = svc.CreateProduct(ctx, actor, CreateProductInput{ManufacturerID: uuid.New(), Name: "Panadol", Schedule: ScheduleOTC})
	require.ErrorIs(t, err, httpx.ErrNotFound)

	p, err := svc.CreateProduct(ctx, actor, CreateProductInput{ManufacturerID: man.ID, Name: "Panadol", GenericName: "Paracetamol", Schedule: ScheduleOTC, SalePrice: 50})
	require.NoError(t, err)
	require.True(t, p.IsActive)

	got, err := svc.GetProduct(ctx, p.ID)
	require.NoError(t, err)
	require.Equal(t, "Paracetamol", got.GenericName)
}

func TestLinkCompanyAndSupplies(t *testing.T) {
	repo := newMemoryRepo()
	svc := NewService(repo, &memoryAudit{})
	ctx := context.Background()
	actor := testActor()

	man, err := svc.CreateManufacturer(ctx, actor, CreateManufacturerInput{Name: "GSK"})
	require.NoError(t, err)
	dist, err := svc.CreateDistribution(ctx, actor, CreateDistributionInput{Name: "Muller & Phipps"})
	require.NoError(t, err)

	_, err = svc.LinkCompany(ctx, actor, dist.ID, man.ID)
	require.NoError(t, err)

	_, err = svc.LinkCompany(ctx, actor, dist.ID, man.ID)
	require.ErrorIs(t, err, httpx.ErrDuplicate)

	ok, err := svc.Supplies(ctx, dist.ID, man.ID)
	require.NoError(t, err)
	require.True(t, ok)

	ok, err = svc.Supplies(ctx, dist.ID, uuid.New())
	require.NoError(t, err)
	require.False(t, ok)
}

func TestLinkCompanyRequiresBothSides(t *testing.T) {
	repo := newMemoryRepo()
	svc := NewService(repo, &memoryAudit{})
	ctx := context.Background()
	actor := testActor()

	man, err := svc.CreateManufacturer(ctx, actor, CreateManufacturerInput{Name: "Abbott"})
	require.NoError(t, err)

	_, err = svc.LinkCompany(ctx, actor, uuid.New(), man.ID)
	require.True(t, errors.Is(err, httpx.ErrNotFound))
}

func TestAuditRecorded(t *testing.T) {
	repo := newMemoryRepo()
	audit := &memoryAudit{}
	svc := NewService(repo, audit)
	actor := testActor()

	_, err := svc.CreateManufacturer(context.Background(), actor, CreateManufacturerInput{Name: "Searle"})
	require.NoError(t, err)
	require.Len(t, audit.logs, 1)
	require.Equal(t, "MANUFACTURER_CREATE", audit.logs[0].Action)
	require.Equal(t, actor.UserID, audit.logs[0].ActorID)
}
