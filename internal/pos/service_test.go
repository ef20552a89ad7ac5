package pos

import (
	"context"
	"sort"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/require"

	"github.com/pharmacore-erp/pharmacore/internal/catalog"
	"github.com/pharmacore-erp/pharmacore/internal/platform/httpx"
	"github.com/pharmacore-erp/pharmacore/internal/shared"
)

type memoryBatch struct {
	BatchRef
	BranchID  uuid.UUID
	ProductID uuid.UUID
}

type memoryRepo struct {
	batches       map[uuid.UUID]*memoryBatch
	sales         map[uuid.UUID]Sale
	lines         []SaleLine
	logs          []ControlledSubstanceLog
	prescriptions []Prescription
	returns       []SaleReturn
}

func newMemoryRepo() *memoryRepo {
	return &memoryRepo{batches: map[uuid.UUID]*memoryBatch{}, sales: map[uuid.UUID]Sale{}}
}

func (m *memoryRepo) WithTx(ctx context.Context, fn func(ctx context.Context, repo TxRepository) error) error {
	tx := &memoryTx{repo: m}
	if err := fn(ctx, tx); err != nil {
		for _, undo := range tx.undos {
			undo()
		}
		return err
	}
	for _, sale := range tx.sales {
		m.sales[sale.ID] = sale
	}
	m.lines = append(m.lines, tx.lines...)
	m.logs = append(m.logs, tx.logs...)
	m.prescriptions = append(m.prescriptions, tx.prescriptions...)
	return nil
}

func (m *memoryRepo) GetSale(_ context.Context, id uuid.UUID) (Sale, error) {
	sale, ok := m.sales[id]
	if !ok {
		return Sale{}, ErrSaleNotFound
	}
	for _, l := range m.lines {
		if l.SaleID == id {
			sale.Lines = append(sale.Lines, l)
		}
	}
	return sale, nil
}

func (m *memoryRepo) ListSales(_ context.Context, organizationID uuid.UUID, _ *uuid.UUID, _ shared.Pagination) ([]Sale, error) {
	out := []Sale{}
	for _, s := range m.sales {
		if s.OrganizationID == organizationID {
			out = append(out, s)
		}
	}
	return out, nil
}

func (m *memoryRepo) ListSalesByCustomer(_ context.Context, organizationID, customerID uuid.UUID) ([]Sale, error) {
	out := []Sale{}
	for _, s := range m.sales {
		if s.OrganizationID == organizationID && s.CustomerID != nil && *s.CustomerID == customerID {
			out = append(out, s)
		}
	}
	return out, nil
}

func (m *memoryRepo) ListPrescriptionsByCustomer(_ context.Context, organizationID, customerID uuid.UUID) ([]Prescription, error) {
	out := []Prescription{}
	for _, p := range m.prescriptions {
		if p.OrganizationID == organizationID && p.CustomerID != nil && *p.CustomerID == customerID {
			out = append(out, p)
		}
	}
	return out, nil
}

func (m *memoryRepo) InsertReturn(_ context.Context, ret SaleReturn) error {
	m.returns = append(m.returns, ret)
	return nil
}

func (m *memoryRepo) SumReturns(_ context.Context, saleID uuid.UUID) (float64, error) {
	var sum float64
	for _, r := range m.returns {
		if r.SaleID == saleID {
			sum += r.Amount
		}
	}
	return sum, nil
}

type memoryTx struct {
	repo          *memoryRepo
	sales         []Sale
	lines         []SaleLine
	logs          []ControlledSubstanceLog
	prescriptions []Prescription
	undos         []func()
}

func (t *memoryTx) SelectBatchFEFO(_ context.Context, branchID, productID uuid.UUID, quantity int) (BatchRef, error) {
	candidates := []*memoryBatch{}
	for _, b := range t.repo.batches {
		if b.BranchID == branchID && b.ProductID == productID && b.Quantity >= quantity && b.ExpiryDate.After(time.Now()) {
			candidates = append(candidates, b)
		}
	}
	if len(candidates) == 0 {
		return BatchRef{}, ErrNoStock
	}
	sort.Slice(candidates, func(i, j int) bool {
		return candidates[i].ExpiryDate.Before(candidates[j].ExpiryDate)
	})
	return candidates[0].BatchRef, nil
}

func (t *memoryTx) DecrementBatch(_ context.Context, batchID uuid.UUID, quantity int) error {
	b, ok := t.repo.batches[batchID]
	if !ok || b.Quantity < quantity {
		return ErrNoStock
	}
	b.Quantity -= quantity
	t.undos = append(t.undos, func() { b.Quantity += quantity })
	return nil
}

func (t *memoryTx) InsertPrescription(_ context.Context, p Prescription) error {
	t.prescriptions = append(t.prescriptions, p)
	return nil
}

func (t *memoryTx) InsertSale(_ context.Context, sale Sale) error {
	t.sales = append(t.sales, sale)
	return nil
}

func (t *memoryTx) InsertSaleLine(_ context.Context, line SaleLine) error {
	t.lines = append(t.lines, line)
	return nil
}

func (t *memoryTx) InsertControlledLog(_ context.Context, log ControlledSubstanceLog) error {
	t.logs = append(t.logs, log)
	return nil
}

type memoryCatalog struct {
	products map[uuid.UUID]catalog.Product
}

func (m *memoryCatalog) GetProduct(_ context.Context, id uuid.UUID) (catalog.Product, error) {
	p, ok := m.products[id]
	if !ok {
		return catalog.Product{}, catalog.ErrProductNotFound
	}
	return p, nil
}

type memoryOrg struct {
	branches map[uuid.UUID]uuid.UUID
}

func (m *memoryOrg) BranchInOrganization(_ context.Context, branchID, organizationID uuid.UUID) (bool, error) {
	return m.branches[branchID] == organizationID, nil
}

type memoryCustomers struct {
	owners map[uuid.UUID]uuid.UUID
}

func (m *memoryCustomers) CustomerInOrganization(_ context.Context, customerID, organizationID uuid.UUID) (bool, error) {
	return m.owners[customerID] == organizationID, nil
}

type noopAudit struct{}

func (noopAudit) Record(_ context.Context, _ shared.AuditLog) error { return nil }

type fixture struct {
	repo      *memoryRepo
	catalog   *memoryCatalog
	org       *memoryOrg
	customers *memoryCustomers
	svc       *Service
	actor     *shared.Actor
	branch    uuid.UUID
}

func newFixture() *fixture {
	repo := newMemoryRepo()
	cat := &memoryCatalog{products: map[uuid.UUID]catalog.Product{}}
	org := &memoryOrg{branches: map[uuid.UUID]uuid.UUID{}}
	customers := &memoryCustomers{owners: map[uuid.UUID]uuid.UUID{}}
	f := &fixture{
		repo:      repo,
		catalog:   cat,
		org:       org,
		customers: customers,
		svc:       NewService(repo, cat, org, customers, noopAudit{}),
		actor:     &shared.Actor{UserID: uuid.New(), OrganizationID: uuid.New(), Role: "Cashier"},
		branch:    uuid.New(),
	}
	org.branches[f.branch] = f.actor.OrganizationID
	return f
}

func (f *fixture) addCustomer() uuid.UUID {
	id := uuid.New()
	f.customers.owners[id] = f.actor.OrganizationID
	return id
}

func (f *fixture) addProduct(schedule catalog.Schedule, salePrice float64) catalog.Product {
	p := catalog.Product{ID: uuid.New(), Name: "Drug", Schedule: schedule, SalePrice: salePrice, IsActive: true}
	f.catalog.products[p.ID] = p
	return p
}

func (f *fixture) addBatch(productID uuid.UUID, qty int, expiry time.Time, salePrice float64) uuid.UUID {
	id := uuid.New()
	f.repo.batches[id] = &memoryBatch{
		BatchRef:  BatchRef{ID: id, ExpiryDate: expiry, Quantity: qty, SalePrice: salePrice},
		BranchID:  f.branch,
		ProductID: productID,
	}
	return id
}

func TestCreateSaleTotalFormula(t *testing.T) {
	f := newFixture()
	p := f.addProduct(catalog.ScheduleOTC, 100)
	f.addBatch(p.ID, 50, time.Now().AddDate(1, 0, 0), 100)

	sale, err := f.svc.CreateSale(context.Background(), f.actor, CreateSaleInput{
		BranchID:        f.branch,
		PaymentMode:     PaymentCash,
		DiscountAmount:  50,
		DiscountPercent: 10,
		Lines:           []SaleLineInput{{ProductID: p.ID, Quantity: 10}},
	})
	require.NoError(t, err)
	require.InDelta(t, 1000.0, sale.GrossAmount, 0.001)
	// 1000 - 50 - 1000*10% = 850
	require.InDelta(t, 850.0, sale.TotalAmount, 0.001)
	require.NotEmpty(t, sale.InvoiceNumber)
}

func TestCreateSaleConsumesEarliestExpiryBatch(t *testing.T) {
	f := newFixture()
	p := f.addProduct(catalog.ScheduleOTC, 100)
	later := f.addBatch(p.ID, 50, time.Now().AddDate(2, 0, 0), 100)
	sooner := f.addBatch(p.ID, 50, time.Now().AddDate(0, 6, 0), 100)

	sale, err := f.svc.CreateSale(context.Background(), f.actor, CreateSaleInput{
		BranchID:    f.branch,
		PaymentMode: PaymentCash,
		Lines:       []SaleLineInput{{ProductID: p.ID, Quantity: 10}},
	})
	require.NoError(t, err)
	require.Equal(t, sooner, sale.Lines[0].BatchID)
	require.Equal(t, 40, f.repo.batches[sooner].Quantity)
	require.Equal(t, 50, f.repo.batches[later].Quantity)
}

func TestCreateSaleSkipsSmallBatch(t *testing.T) {
	// A sooner-expiring batch that cannot cover the whole line is passed over.
	f := newFixture()
	p := f.addProduct(catalog.ScheduleOTC, 100)
	small := f.addBatch(p.ID, 5, time.Now().AddDate(0, 1, 0), 100)
	large := f.addBatch(p.ID, 50, time.Now().AddDate(1, 0, 0), 100)

	sale, err := f.svc.CreateSale(context.Background(), f.actor, CreateSaleInput{
		BranchID:    f.branch,
		PaymentMode: PaymentCash,
		Lines:       []SaleLineInput{{ProductID: p.ID, Quantity: 10}},
	})
	require.NoError(t, err)
	require.Equal(t, large, sale.Lines[0].BatchID)
	require.Equal(t, 5, f.repo.batches[small].Quantity)
}

func TestCreateSaleInsufficientStock(t *testing.T) {
	f := newFixture()
	p := f.addProduct(catalog.ScheduleOTC, 100)
	f.addBatch(p.ID, 5, time.Now().AddDate(1, 0, 0), 100)

	_, err := f.svc.CreateSale(context.Background(), f.actor, CreateSaleInput{
		BranchID:    f.branch,
		PaymentMode: PaymentCash,
		Lines:       []SaleLineInput{{ProductID: p.ID, Quantity: 10}},
	})
	require.ErrorIs(t, err, httpx.ErrInsufficientStock)
	require.Empty(t, f.repo.sales)
}

func TestCreateSaleRollsBackOnPartialFailure(t *testing.T) {
	f := newFixture()
	ok := f.addProduct(catalog.ScheduleOTC, 100)
	short := f.addProduct(catalog.ScheduleOTC, 100)
	okBatch := f.addBatch(ok.ID, 50, time.Now().AddDate(1, 0, 0), 100)
	f.addBatch(short.ID, 1, time.Now().AddDate(1, 0, 0), 100)

	_, err := f.svc.CreateSale(context.Background(), f.actor, CreateSaleInput{
		BranchID:    f.branch,
		PaymentMode: PaymentCash,
		Lines: []SaleLineInput{
			{ProductID: ok.ID, Quantity: 10},
			{ProductID: short.ID, Quantity: 10},
		},
	})
	require.ErrorIs(t, err, httpx.ErrInsufficientStock)
	require.Equal(t, 50, f.repo.batches[okBatch].Quantity)
	require.Empty(t, f.repo.sales)
	require.Empty(t, f.repo.lines)
}

func TestScheduleHRequiresCNIC(t *testing.T) {
	f := newFixture()
	p := f.addProduct(catalog.ScheduleH, 200)
	f.addBatch(p.ID, 50, time.Now().AddDate(1, 0, 0), 200)

	_, err := f.svc.CreateSale(context.Background(), f.actor, CreateSaleInput{
		BranchID:    f.branch,
		PaymentMode: PaymentCash,
		Lines:       []SaleLineInput{{ProductID: p.ID, Quantity: 2}},
	})
	require.ErrorIs(t, err, httpx.ErrValidation)
	require.Empty(t, f.repo.logs)

	sale, err := f.svc.CreateSale(context.Background(), f.actor, CreateSaleInput{
		BranchID:     f.branch,
		CustomerName: "Ali Khan",
		CustomerCNIC: "35202-1234567-1",
		PaymentMode:  PaymentCash,
		Lines:        []SaleLineInput{{ProductID: p.ID, Quantity: 2}},
	})
	require.NoError(t, err)
	require.Len(t, f.repo.logs, 1)
	require.Equal(t, sale.ID, f.repo.logs[0].SaleID)
	require.Equal(t, "35202-1234567-1", f.repo.logs[0].CustomerCNIC)
	require.Equal(t, 2, f.repo.logs[0].Quantity)
}

func TestCreateSaleRejectsForeignBranch(t *testing.T) {
	f := newFixture()
	p := f.addProduct(catalog.ScheduleOTC, 100)
	batch := f.addBatch(p.ID, 50, time.Now().AddDate(1, 0, 0), 100)

	intruder := &shared.Actor{UserID: uuid.New(), OrganizationID: uuid.New(), Role: "Cashier"}
	_, err := f.svc.CreateSale(context.Background(), intruder, CreateSaleInput{
		BranchID:    f.branch,
		PaymentMode: PaymentCash,
		Lines:       []SaleLineInput{{ProductID: p.ID, Quantity: 10}},
	})
	require.ErrorIs(t, err, httpx.ErrValidation)
	require.Equal(t, 50, f.repo.batches[batch].Quantity)
	require.Empty(t, f.repo.sales)
}

func TestCreateSaleIgnoresZeroPriceOverride(t *testing.T) {
	f := newFixture()
	p := f.addProduct(catalog.ScheduleOTC, 75)
	f.addBatch(p.ID, 50, time.Now().AddDate(1, 0, 0), 0)

	zero := 0.0
	sale, err := f.svc.CreateSale(context.Background(), f.actor, CreateSaleInput{
		BranchID:    f.branch,
		PaymentMode: PaymentCash,
		Lines:       []SaleLineInput{{ProductID: p.ID, Quantity: 2, UnitPrice: &zero}},
	})
	require.NoError(t, err)
	require.InDelta(t, 75.0, sale.Lines[0].UnitPrice, 0.001)
	require.InDelta(t, 150.0, sale.TotalAmount, 0.001)
}

func TestCreateSaleStampsClock(t *testing.T) {
	f := newFixture()
	at := time.Date(2026, 3, 15, 11, 30, 0, 0, time.UTC)
	f.svc.now = func() time.Time { return at }
	p := f.addProduct(catalog.ScheduleOTC, 100)
	f.addBatch(p.ID, 50, time.Now().AddDate(1, 0, 0), 100)

	sale, err := f.svc.CreateSale(context.Background(), f.actor, CreateSaleInput{
		BranchID:    f.branch,
		PaymentMode: PaymentCash,
		Lines:       []SaleLineInput{{ProductID: p.ID, Quantity: 1}},
	})
	require.NoError(t, err)
	require.Equal(t, at, sale.CreatedAt)
	require.Equal(t, at, f.repo.sales[sale.ID].CreatedAt)
}

func TestCreateSaleLinksCustomerHistory(t *testing.T) {
	f := newFixture()
	customerID := f.addCustomer()
	p := f.addProduct(catalog.SchedulePrescription, 120)
	f.addBatch(p.ID, 50, time.Now().AddDate(1, 0, 0), 120)

	sale, err := f.svc.CreateSale(context.Background(), f.actor, CreateSaleInput{
		BranchID:    f.branch,
		CustomerID:  &customerID,
		PaymentMode: PaymentCard,
		Prescription: &PrescriptionInput{
			DoctorName:  "Dr. Fatima",
			PatientName: "Ahmed",
		},
		Lines: []SaleLineInput{{ProductID: p.ID, Quantity: 1}},
	})
	require.NoError(t, err)
	require.NotNil(t, sale.CustomerID)
	require.Equal(t, customerID, *sale.CustomerID)

	history, err := f.svc.CustomerSales(context.Background(), f.actor, customerID)
	require.NoError(t, err)
	require.Len(t, history, 1)
	require.Equal(t, sale.ID, history[0].ID)

	scripts, err := f.svc.CustomerPrescriptions(context.Background(), f.actor, customerID)
	require.NoError(t, err)
	require.Len(t, scripts, 1)
	require.Equal(t, *sale.PrescriptionID, scripts[0].ID)
}

func TestCreateSaleRejectsForeignCustomer(t *testing.T) {
	f := newFixture()
	foreign := uuid.New()
	f.customers.owners[foreign] = uuid.New()
	p := f.addProduct(catalog.ScheduleOTC, 100)
	f.addBatch(p.ID, 50, time.Now().AddDate(1, 0, 0), 100)

	_, err := f.svc.CreateSale(context.Background(), f.actor, CreateSaleInput{
		BranchID:    f.branch,
		CustomerID:  &foreign,
		PaymentMode: PaymentCash,
		Lines:       []SaleLineInput{{ProductID: p.ID, Quantity: 1}},
	})
	require.ErrorIs(t, err, httpx.ErrNotFound)
	require.Empty(t, f.repo.sales)
}

func TestCreateSalePriceFallback(t *testing.T) {
	f := newFixture()
	p := f.addProduct(catalog.ScheduleOTC, 75)
	f.addBatch(p.ID, 50, time.Now().AddDate(1, 0, 0), 0)

	sale, err := f.svc.CreateSale(context.Background(), f.actor, CreateSaleInput{
		BranchID:    f.branch,
		PaymentMode: PaymentCash,
		Lines:       []SaleLineInput{{ProductID: p.ID, Quantity: 2}},
	})
	require.NoError(t, err)
	require.InDelta(t, 75.0, sale.Lines[0].UnitPrice, 0.001)

	override := 60.0
	sale, err = f.svc.CreateSale(context.Background(), f.actor, CreateSaleInput{
		BranchID:    f.branch,
		PaymentMode: PaymentCash,
		Lines:       []SaleLineInput{{ProductID: p.ID, Quantity: 2, UnitPrice: &override}},
	})
	require.NoError(t, err)
	require.InDelta(t, 60.0, sale.Lines[0].UnitPrice, 0.001)
}

func TestCreateSaleWithPrescription(t *testing.T) {
	f := newFixture()
	p := f.addProduct(catalog.SchedulePrescription, 120)
	f.addBatch(p.ID, 50, time.Now().AddDate(1, 0, 0), 120)

	sale, err := f.svc.CreateSale(context.Background(), f.actor, CreateSaleInput{
		BranchID:    f.branch,
		PaymentMode: PaymentCard,
		Prescription: &PrescriptionInput{
			DoctorName:  "Dr. Fatima",
			PatientName: "Ahmed",
		},
		Lines: []SaleLineInput{{ProductID: p.ID, Quantity: 1}},
	})
	require.NoError(t, err)
	require.NotNil(t, sale.PrescriptionID)
	require.Len(t, f.repo.prescriptions, 1)
	require.Equal(t, *sale.PrescriptionID, f.repo.prescriptions[0].ID)
}

func TestReturnSaleCapsAtTotal(t *testing.T) {
	f := newFixture()
	p := f.addProduct(catalog.ScheduleOTC, 100)
	f.addBatch(p.ID, 50, time.Now().AddDate(1, 0, 0), 100)

	sale, err := f.svc.CreateSale(context.Background(), f.actor, CreateSaleInput{
		BranchID:    f.branch,
		PaymentMode: PaymentCash,
		Lines:       []SaleLineInput{{ProductID: p.ID, Quantity: 5}},
	})
	require.NoError(t, err)

	_, err = f.svc.ReturnSale(context.Background(), f.actor, ReturnSaleInput{
		SaleID: sale.ID, Amount: 300, Reason: "wrong item",
	})
	require.NoError(t, err)

	_, err = f.svc.ReturnSale(context.Background(), f.actor, ReturnSaleInput{
		SaleID: sale.ID, Amount: 300, Reason: "again",
	})
	require.ErrorIs(t, err, httpx.ErrValidation)

	// stock untouched by returns
	require.Equal(t, 45, f.repo.batches[sale.Lines[0].BatchID].Quantity)
}

func TestGetSaleRejectsCrossOrganization(t *testing.T) {
	f := newFixture()
	p := f.addProduct(catalog.ScheduleOTC, 100)
	f.addBatch(p.ID, 50, time.Now().AddDate(1, 0, 0), 100)

	sale, err := f.svc.CreateSale(context.Background(), f.actor, CreateSaleInput{
		BranchID:    f.branch,
		PaymentMode: PaymentCash,
		Lines:       []SaleLineInput{{ProductID: p.ID, Quantity: 1}},
	})
	require.NoError(t, err)

	other := &shared.Actor{UserID: uuid.New(), OrganizationID: uuid.New()}
	_, err = f.svc.GetSale(context.Background(), other, sale.ID)
	require.ErrorIs(t, err, httpx.ErrNotFound)
}
