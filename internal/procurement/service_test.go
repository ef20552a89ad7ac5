package procurement

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/require"

	"github.com/pharmacore-erp/pharmacore/internal/catalog"
	"github.com/pharmacore-erp/pharmacore/internal/inventory"
	"github.com/pharmacore-erp/pharmacore/internal/platform/httpx"
	"github.com/pharmacore-erp/pharmacore/internal/shared"
)

type memoryRepo struct {
	orders   map[uuid.UUID]PurchaseOrder
	batches  []inventory.StockBatch
	payments []Payment
}

func newMemoryRepo() *memoryRepo {
	return &memoryRepo{orders: map[uuid.UUID]PurchaseOrder{}}
}

func (m *memoryRepo) WithTx(ctx context.Context, fn func(ctx context.Context, repo TxRepository) error) error {
	tx := &memoryTx{repo: m, orders: map[uuid.UUID]PurchaseOrder{}}
	for id, po := range m.orders {
		tx.orders[id] = po
	}
	if err := fn(ctx, tx); err != nil {
		return err
	}
	m.orders = tx.orders
	m.batches = append(m.batches, tx.batches...)
	return nil
}

func (m *memoryRepo) GetOrder(_ context.Context, id uuid.UUID) (PurchaseOrder, error) {
	po, ok := m.orders[id]
	if !ok {
		return PurchaseOrder{}, ErrOrderNotFound
	}
	return po, nil
}

func (m *memoryRepo) ListOrders(_ context.Context, organizationID uuid.UUID, status *OrderStatus, _ shared.Pagination) ([]PurchaseOrder, error) {
	out := []PurchaseOrder{}
	for _, po := range m.orders {
		if po.OrganizationID != organizationID {
			continue
		}
		if status != nil && po.Status != *status {
			continue
		}
		out = append(out, po)
	}
	return out, nil
}

func (m *memoryRepo) InsertPayment(_ context.Context, payment Payment) error {
	m.payments = append(m.payments, payment)
	return nil
}

func (m *memoryRepo) ListPayments(_ context.Context, purchaseOrderID uuid.UUID) ([]Payment, error) {
	out := []Payment{}
	for _, p := range m.payments {
		if p.PurchaseOrderID == purchaseOrderID {
			out = append(out, p)
		}
	}
	return out, nil
}

type memoryTx struct {
	repo    *memoryRepo
	orders  map[uuid.UUID]PurchaseOrder
	batches []inventory.StockBatch
}

func (t *memoryTx) InsertOrder(_ context.Context, po PurchaseOrder) error {
	t.orders[po.ID] = po
	return nil
}

func (t *memoryTx) InsertOrderLine(_ context.Context, _ OrderLine) error {
	return nil
}

func (t *memoryTx) GetOrderForUpdate(_ context.Context, id uuid.UUID) (PurchaseOrder, error) {
	po, ok := t.orders[id]
	if !ok {
		return PurchaseOrder{}, ErrOrderNotFound
	}
	return po, nil
}

func (t *memoryTx) UpdateOrderStatus(_ context.Context, id uuid.UUID, from, to OrderStatus, receivedAt *time.Time) error {
	po, ok := t.orders[id]
	if !ok || po.Status != from {
		return ErrNotReceivable
	}
	po.Status = to
	if receivedAt != nil {
		po.ReceivedAt = receivedAt
	}
	t.orders[id] = po
	return nil
}

func (t *memoryTx) InsertStockBatch(_ context.Context, b inventory.StockBatch) error {
	t.batches = append(t.batches, b)
	return nil
}

type memoryCatalog struct {
	products      map[uuid.UUID]catalog.Product
	distributions map[uuid.UUID]catalog.Distribution
	supplies      map[uuid.UUID]map[uuid.UUID]bool
}

func (m *memoryCatalog) GetProduct(_ context.Context, id uuid.UUID) (catalog.Product, error) {
	p, ok := m.products[id]
	if !ok {
		return catalog.Product{}, catalog.ErrProductNotFound
	}
	return p, nil
}

func (m *memoryCatalog) GetDistribution(_ context.Context, id uuid.UUID) (catalog.Distribution, error) {
	d, ok := m.distributions[id]
	if !ok {
		return catalog.Distribution{}, catalog.ErrDistributionNotFound
	}
	return d, nil
}

func (m *memoryCatalog) Supplies(_ context.Context, distributionID, manufacturerID uuid.UUID) (bool, error) {
	return m.supplies[distributionID][manufacturerID], nil
}

type allowAllOrg struct{}

func (allowAllOrg) BranchInOrganization(_ context.Context, _, _ uuid.UUID) (bool, error) {
	return true, nil
}

type memoryIdempotency struct {
	keys map[string]bool
}

func (m *memoryIdempotency) CheckAndInsert(_ context.Context, key, _ string) error {
	if m.keys == nil {
		m.keys = map[string]bool{}
	}
	if m.keys[key] {
		return shared.ErrIdempotencyConflict
	}
	m.keys[key] = true
	return nil
}

func (m *memoryIdempotency) Delete(_ context.Context, key string) error {
	delete(m.keys, key)
	return nil
}

type noopAudit struct{}

func (noopAudit) Record(_ context.Context, _ shared.AuditLog) error { return nil }

type fixture struct {
	repo    *memoryRepo
	catalog *memoryCatalog
	svc     *Service
	actor   *shared.Actor
	dist    catalog.Distribution
	man     catalog.Manufacturer
}

func newFixture() *fixture {
	repo := newMemoryRepo()
	cat := &memoryCatalog{
		products:      map[uuid.UUID]catalog.Product{},
		distributions: map[uuid.UUID]catalog.Distribution{},
		supplies:      map[uuid.UUID]map[uuid.UUID]bool{},
	}
	f := &fixture{
		repo:    repo,
		catalog: cat,
		svc:     NewService(repo, cat, allowAllOrg{}, &memoryIdempotency{}, noopAudit{}),
		actor:   &shared.Actor{UserID: uuid.New(), OrganizationID: uuid.New(), Role: "Manager"},
	}
	f.man = catalog.Manufacturer{ID: uuid.New(), Name: "Getz Pharma"}
	f.dist = catalog.Distribution{ID: uuid.New(), Name: "Premier Distributors"}
	cat.distributions[f.dist.ID] = f.dist
	cat.supplies[f.dist.ID] = map[uuid.UUID]bool{f.man.ID: true}
	return f
}

func (f *fixture) addProduct(manufacturerID uuid.UUID, salePrice float64) catalog.Product {
	p := catalog.Product{ID: uuid.New(), ManufacturerID: manufacturerID, Name: "Drug", SalePrice: salePrice}
	f.catalog.products[p.ID] = p
	return p
}

func TestCreateOrderComputesTotal(t *testing.T) {
	f := newFixture()
	p1 := f.addProduct(f.man.ID, 50)
	p2 := f.addProduct(f.man.ID, 80)

	po, err := f.svc.CreateOrder(context.Background(), f.actor, CreateOrderInput{
		BranchID:       uuid.New(),
		DistributionID: f.dist.ID,
		Lines: []OrderLineInput{
			{ProductID: p1.ID, Quantity: 100, UnitPrice: 30},
			{ProductID: p2.ID, Quantity: 50, UnitPrice: 60},
		},
	})
	require.NoError(t, err)
	require.Equal(t, StatusSubmitted, po.Status)
	require.InDelta(t, 100*30+50*60, po.TotalAmount, 0.001)
	require.Len(t, po.Lines, 2)
}

func TestCreateOrderRejectsUnsuppliedManufacturer(t *testing.T) {
	f := newFixture()
	outsider := f.addProduct(uuid.New(), 50)

	_, err := f.svc.CreateOrder(context.Background(), f.actor, CreateOrderInput{
		BranchID:       uuid.New(),
		DistributionID: f.dist.ID,
		Lines:          []OrderLineInput{{ProductID: outsider.ID, Quantity: 10, UnitPrice: 5}},
	})
	require.ErrorIs(t, err, httpx.ErrValidation)
	require.Empty(t, f.repo.orders)
}

func TestReceiveOrderCreatesBatches(t *testing.T) {
	f := newFixture()
	p := f.addProduct(f.man.ID, 90)

	po, err := f.svc.CreateOrder(context.Background(), f.actor, CreateOrderInput{
		BranchID:       uuid.New(),
		DistributionID: f.dist.ID,
		Lines:          []OrderLineInput{{ProductID: p.ID, Quantity: 200, UnitPrice: 45}},
	})
	require.NoError(t, err)

	received, err := f.svc.ReceiveOrder(context.Background(), f.actor, po.ID)
	require.NoError(t, err)
	require.Equal(t, StatusReceived, received.Status)
	require.NotNil(t, received.ReceivedAt)
	require.Len(t, f.repo.batches, 1)

	batch := f.repo.batches[0]
	require.Equal(t, 200, batch.Quantity)
	require.InDelta(t, 45.0, batch.PurchasePrice, 0.001)
	require.InDelta(t, 90.0, batch.SalePrice, 0.001)
	require.Contains(t, batch.BatchNumber, po.OrderNumber)
	require.True(t, batch.ExpiryDate.After(time.Now().AddDate(1, 11, 0)))
}

func TestReceiveOrderRejectsSecondReceive(t *testing.T) {
	f := newFixture()
	p := f.addProduct(f.man.ID, 90)

	po, err := f.svc.CreateOrder(context.Background(), f.actor, CreateOrderInput{
		BranchID:       uuid.New(),
		DistributionID: f.dist.ID,
		Lines:          []OrderLineInput{{ProductID: p.ID, Quantity: 10, UnitPrice: 5}},
	})
	require.NoError(t, err)

	_, err = f.svc.ReceiveOrder(context.Background(), f.actor, po.ID)
	require.NoError(t, err)

	_, err = f.svc.ReceiveOrder(context.Background(), f.actor, po.ID)
	require.ErrorIs(t, err, httpx.ErrInvalidState)
	require.Len(t, f.repo.batches, 1)
}

func TestReceiveOrderRetriesAfterFailedAttempt(t *testing.T) {
	// A receive that aborts must not leave the order permanently unreceivable.
	f := newFixture()
	p := f.addProduct(f.man.ID, 90)

	po, err := f.svc.CreateOrder(context.Background(), f.actor, CreateOrderInput{
		BranchID:       uuid.New(),
		DistributionID: f.dist.ID,
		Lines:          []OrderLineInput{{ProductID: p.ID, Quantity: 10, UnitPrice: 5}},
	})
	require.NoError(t, err)

	intruder := &shared.Actor{UserID: uuid.New(), OrganizationID: uuid.New(), Role: "Manager"}
	_, err = f.svc.ReceiveOrder(context.Background(), intruder, po.ID)
	require.ErrorIs(t, err, httpx.ErrNotFound)
	require.Empty(t, f.repo.batches)

	received, err := f.svc.ReceiveOrder(context.Background(), f.actor, po.ID)
	require.NoError(t, err)
	require.Equal(t, StatusReceived, received.Status)
	require.Len(t, f.repo.batches, 1)
}

func TestCreateOrderHonorsLineManufacturer(t *testing.T) {
	f := newFixture()
	// Product defaults to a maker the distribution does not carry.
	p := f.addProduct(uuid.New(), 50)

	po, err := f.svc.CreateOrder(context.Background(), f.actor, CreateOrderInput{
		BranchID:       uuid.New(),
		DistributionID: f.dist.ID,
		Lines:          []OrderLineInput{{ProductID: p.ID, ManufacturerID: &f.man.ID, Quantity: 10, UnitPrice: 5}},
	})
	require.NoError(t, err)
	require.Equal(t, f.man.ID, po.Lines[0].ManufacturerID)

	unsupplied := uuid.New()
	_, err = f.svc.CreateOrder(context.Background(), f.actor, CreateOrderInput{
		BranchID:       uuid.New(),
		DistributionID: f.dist.ID,
		Lines:          []OrderLineInput{{ProductID: p.ID, ManufacturerID: &unsupplied, Quantity: 10, UnitPrice: 5}},
	})
	require.ErrorIs(t, err, httpx.ErrValidation)
}

func TestCreateOrderDefaultsLineManufacturer(t *testing.T) {
	f := newFixture()
	p := f.addProduct(f.man.ID, 50)

	po, err := f.svc.CreateOrder(context.Background(), f.actor, CreateOrderInput{
		BranchID:       uuid.New(),
		DistributionID: f.dist.ID,
		Lines:          []OrderLineInput{{ProductID: p.ID, Quantity: 10, UnitPrice: 5}},
	})
	require.NoError(t, err)
	require.Equal(t, f.man.ID, po.Lines[0].ManufacturerID)
}

func TestCancelOrderOnlyBeforeReceipt(t *testing.T) {
	f := newFixture()
	p := f.addProduct(f.man.ID, 90)

	po, err := f.svc.CreateOrder(context.Background(), f.actor, CreateOrderInput{
		BranchID:       uuid.New(),
		DistributionID: f.dist.ID,
		Lines:          []OrderLineInput{{ProductID: p.ID, Quantity: 10, UnitPrice: 5}},
	})
	require.NoError(t, err)

	_, err = f.svc.ReceiveOrder(context.Background(), f.actor, po.ID)
	require.NoError(t, err)

	err = f.svc.CancelOrder(context.Background(), f.actor, po.ID)
	require.ErrorIs(t, err, httpx.ErrInvalidState)
}

func TestRegisterPayment(t *testing.T) {
	f := newFixture()
	p := f.addProduct(f.man.ID, 90)

	po, err := f.svc.CreateOrder(context.Background(), f.actor, CreateOrderInput{
		BranchID:       uuid.New(),
		DistributionID: f.dist.ID,
		Lines:          []OrderLineInput{{ProductID: p.ID, Quantity: 10, UnitPrice: 5}},
	})
	require.NoError(t, err)

	_, err = f.svc.RegisterPayment(context.Background(), f.actor, PaymentInput{
		PurchaseOrderID: po.ID, Amount: 0, Method: "BankTransfer",
	})
	require.ErrorIs(t, err, httpx.ErrValidation)

	pay, err := f.svc.RegisterPayment(context.Background(), f.actor, PaymentInput{
		PurchaseOrderID: po.ID, Amount: 25, Method: "BankTransfer", Reference: "TRX-001",
	})
	require.NoError(t, err)

	list, err := f.svc.ListPayments(context.Background(), f.actor, po.ID)
	require.NoError(t, err)
	require.Len(t, list, 1)
	require.Equal(t, pay.ID, list[0].ID)
}
