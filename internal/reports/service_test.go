package reports

import (
	"bytes"
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/require"

	"github.com/pharmacore-erp/pharmacore/internal/platform/httpx"
	"github.com/pharmacore-erp/pharmacore/internal/shared"
)

type memoryRepo struct {
	summary      SalesSummary
	top          []TopProduct
	valuation    StockValuation
	profit       ProfitLoss
	rows         []SaleRow
	summaryCalls int
}

func (m *memoryRepo) SalesSummary(_ context.Context, _ uuid.UUID, _ Period) (SalesSummary, error) {
	m.summaryCalls++
	return m.summary, nil
}

func (m *memoryRepo) TopProducts(_ context.Context, _ uuid.UUID, _ Period, limit int) ([]TopProduct, error) {
	if limit < len(m.top) {
		return m.top[:limit], nil
	}
	return m.top, nil
}

func (m *memoryRepo) StockValuation(_ context.Context, _ uuid.UUID) (StockValuation, error) {
	return m.valuation, nil
}

func (m *memoryRepo) ProfitLoss(_ context.Context, _ uuid.UUID, _ Period) (ProfitLoss, error) {
	return m.profit, nil
}

func (m *memoryRepo) SaleRows(_ context.Context, _ uuid.UUID, _ Period) ([]SaleRow, error) {
	return m.rows, nil
}

func testPeriod() Period {
	to := time.Date(2026, 3, 1, 0, 0, 0, 0, time.UTC)
	return Period{From: to.AddDate(0, -1, 0), To: to}
}

func TestDashboardCachesResult(t *testing.T) {
	mr := miniredis.RunT(t)
	cache := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	repo := &memoryRepo{
		summary:   SalesSummary{SaleCount: 12, NetAmount: 5400, ByPaymentMode: map[string]float64{"CASH": 5400}},
		top:       []TopProduct{{ProductID: uuid.New(), ProductName: "Panadol 500mg", QuantitySold: 40, Revenue: 1200}},
		valuation: StockValuation{TotalUnits: 900, PurchaseValue: 45000, SaleValue: 90000},
		profit:    ProfitLoss{Revenue: 5400, CostOfGoods: 2700, GrossProfit: 2700},
	}
	svc := NewService(repo, cache, time.Minute)
	actor := &shared.Actor{UserID: uuid.New(), OrganizationID: uuid.New()}

	dash, err := svc.Dashboard(context.Background(), actor, testPeriod())
	require.NoError(t, err)
	require.Equal(t, 12, dash.Sales.SaleCount)
	require.Len(t, dash.Top, 1)
	require.Equal(t, 1, repo.summaryCalls)

	dash, err = svc.Dashboard(context.Background(), actor, testPeriod())
	require.NoError(t, err)
	require.Equal(t, 12, dash.Sales.SaleCount)
	require.Equal(t, 1, repo.summaryCalls, "second dashboard read should come from cache")
}

func TestDashboardWithoutCache(t *testing.T) {
	repo := &memoryRepo{summary: SalesSummary{SaleCount: 3, ByPaymentMode: map[string]float64{}}}
	svc := NewService(repo, nil, 0)
	actor := &shared.Actor{UserID: uuid.New(), OrganizationID: uuid.New()}

	_, err := svc.Dashboard(context.Background(), actor, testPeriod())
	require.NoError(t, err)
	_, err = svc.Dashboard(context.Background(), actor, testPeriod())
	require.NoError(t, err)
	require.Equal(t, 2, repo.summaryCalls)
}

func TestDashboardRequiresActor(t *testing.T) {
	svc := NewService(&memoryRepo{}, nil, 0)
	_, err := svc.Dashboard(context.Background(), nil, testPeriod())
	require.ErrorIs(t, err, httpx.ErrUnauthorized)
}

func TestTopProductsClampsLimit(t *testing.T) {
	repo := &memoryRepo{}
	for i := 0; i < 25; i++ {
		repo.top = append(repo.top, TopProduct{ProductID: uuid.New()})
	}
	svc := NewService(repo, nil, 0)
	actor := &shared.Actor{UserID: uuid.New(), OrganizationID: uuid.New()}

	list, err := svc.TopProducts(context.Background(), actor, testPeriod(), 0)
	require.NoError(t, err)
	require.Len(t, list, 10)

	list, err = svc.TopProducts(context.Background(), actor, testPeriod(), 500)
	require.NoError(t, err)
	require.Len(t, list, 10)
}

func TestExportSalesCSV(t *testing.T) {
	created := time.Date(2026, 2, 10, 9, 30, 0, 0, time.UTC)
	repo := &memoryRepo{rows: []SaleRow{
		{InvoiceNumber: "INV-1A2B3C4D", CreatedAt: created, PaymentMode: "CASH", GrossAmount: 1250.5, Discount: 50, TotalAmount: 1200.5},
	}}
	svc := NewService(repo, nil, 0)
	actor := &shared.Actor{UserID: uuid.New(), OrganizationID: uuid.New()}

	var buf bytes.Buffer
	require.NoError(t, svc.ExportSalesCSV(context.Background(), actor, testPeriod(), &buf))

	out := buf.String()
	require.Contains(t, out, "invoice,date,payment_mode,gross,discount,total")
	require.Contains(t, out, "INV-1A2B3C4D,2026-02-10T09:30:00Z,CASH,\"1,250.50\",50.00,\"1,200.50\"")
}
