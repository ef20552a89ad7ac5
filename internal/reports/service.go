package reports

import (
	"context"
	"encoding/csv"
	"encoding/json"
	"fmt"
	"io"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"golang.org/x/sync/errgroup"
	"golang.org/x/text/language"
	"golang.org/x/text/message"

	"github.com/pharmacore-erp/pharmacore/internal/platform/httpx"
	"github.com/pharmacore-erp/pharmacore/internal/shared"
)

// Period bounds a report window.
type Period struct {
	From time.Time
	To   time.Time
}

// SalesSummary aggregates sales over a period.
type SalesSummary struct {
	SaleCount     int                `json:"saleCount"`
	GrossAmount   float64            `json:"grossAmount"`
	DiscountTotal float64            `json:"discountTotal"`
	NetAmount     float64            `json:"netAmount"`
	ByPaymentMode map[string]float64 `json:"byPaymentMode"`
	ByBranch      map[string]float64 `json:"byBranch"`
}

// TopProduct ranks a product by units sold.
type TopProduct struct {
	ProductID    uuid.UUID `json:"productId"`
	ProductName  string    `json:"productName"`
	QuantitySold int       `json:"quantitySold"`
	Revenue      float64   `json:"revenue"`
}

// StockValuation totals on-hand stock at cost and at retail.
type StockValuation struct {
	TotalUnits    int     `json:"totalUnits"`
	PurchaseValue float64 `json:"purchaseValue"`
	SaleValue     float64 `json:"saleValue"`
}

// ProfitLoss contrasts revenue with cost of goods sold over a period.
type ProfitLoss struct {
	Revenue     float64 `json:"revenue"`
	CostOfGoods float64 `json:"costOfGoods"`
	GrossProfit float64 `json:"grossProfit"`
}

// SaleRow is one sale flattened for CSV export.
type SaleRow struct {
	InvoiceNumber string
	CreatedAt     time.Time
	PaymentMode   string
	GrossAmount   float64
	Discount      float64
	TotalAmount   float64
}

// Dashboard bundles the headline reports fetched together.
type Dashboard struct {
	Sales     SalesSummary   `json:"sales"`
	Top       []TopProduct   `json:"topProducts"`
	Valuation StockValuation `json:"stockValuation"`
	Profit    ProfitLoss     `json:"profitLoss"`
}

// RepositoryPort describes the aggregation queries used by Service.
type RepositoryPort interface {
	SalesSummary(ctx context.Context, organizationID uuid.UUID, period Period) (SalesSummary, error)
	TopProducts(ctx context.Context, organizationID uuid.UUID, period Period, limit int) ([]TopProduct, error)
	StockValuation(ctx context.Context, organizationID uuid.UUID) (StockValuation, error)
	ProfitLoss(ctx context.Context, organizationID uuid.UUID, period Period) (ProfitLoss, error)
	SaleRows(ctx context.Context, organizationID uuid.UUID, period Period) ([]SaleRow, error)
}

// Service produces management reports. Dashboard results are cached briefly
// in redis since every back office screen polls them.
type Service struct {
	repo     RepositoryPort
	cache    *redis.Client
	cacheTTL time.Duration
}

// NewService builds Service. cache may be nil to disable caching.
func NewService(repo RepositoryPort, cache *redis.Client, cacheTTL time.Duration) *Service {
	return &Service{repo: repo, cache: cache, cacheTTL: cacheTTL}
}

// SalesSummary aggregates sales for the actor's organization.
func (s *Service) SalesSummary(ctx context.Context, actor *shared.Actor, period Period) (SalesSummary, error) {
	if actor == nil {
		return SalesSummary{}, httpx.ErrUnauthorized
	}
	return s.repo.SalesSummary(ctx, actor.OrganizationID, period)
}

// TopProducts ranks the best selling products over the period.
func (s *Service) TopProducts(ctx context.Context, actor *shared.Actor, period Period, limit int) ([]TopProduct, error) {
	if actor == nil {
		return nil, httpx.ErrUnauthorized
	}
	if limit <= 0 || limit > 100 {
		limit = 10
	}
	return s.repo.TopProducts(ctx, actor.OrganizationID, period, limit)
}

// StockValuation totals current stock at cost and retail.
func (s *Service) StockValuation(ctx context.Context, actor *shared.Actor) (StockValuation, error) {
	if actor == nil {
		return StockValuation{}, httpx.ErrUnauthorized
	}
	return s.repo.StockValuation(ctx, actor.OrganizationID)
}

// ProfitLoss reports gross profit over the period.
func (s *Service) ProfitLoss(ctx context.Context, actor *shared.Actor, period Period) (ProfitLoss, error) {
	if actor == nil {
		return ProfitLoss{}, httpx.ErrUnauthorized
	}
	return s.repo.ProfitLoss(ctx, actor.OrganizationID, period)
}

// Dashboard fetches the headline reports concurrently.
func (s *Service) Dashboard(ctx context.Context, actor *shared.Actor, period Period) (Dashboard, error) {
	if actor == nil {
		return Dashboard{}, httpx.ErrUnauthorized
	}
	key := dashboardKey(actor.OrganizationID, period)
	if cached, ok := s.cachedDashboard(ctx, key); ok {
		return cached, nil
	}

	var dash Dashboard
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		var err error
		dash.Sales, err = s.repo.SalesSummary(gctx, actor.OrganizationID, period)
		return err
	})
	g.Go(func() error {
		var err error
		dash.Top, err = s.repo.TopProducts(gctx, actor.OrganizationID, period, 10)
		return err
	})
	g.Go(func() error {
		var err error
		dash.Valuation, err = s.repo.StockValuation(gctx, actor.OrganizationID)
		return err
	})
	g.Go(func() error {
		var err error
		dash.Profit, err = s.repo.ProfitLoss(gctx, actor.OrganizationID, period)
		return err
	})
	if err := g.Wait(); err != nil {
		return Dashboard{}, err
	}
	s.storeDashboard(ctx, key, dash)
	return dash, nil
}

// ExportSalesCSV streams the period's sales as CSV.
func (s *Service) ExportSalesCSV(ctx context.Context, actor *shared.Actor, period Period, w io.Writer) error {
	if actor == nil {
		return httpx.ErrUnauthorized
	}
	rows, err := s.repo.SaleRows(ctx, actor.OrganizationID, period)
	if err != nil {
		return err
	}
	printer := message.NewPrinter(language.English)
	cw := csv.NewWriter(w)
	if err := cw.Write([]string{"invoice", "date", "payment_mode", "gross", "discount", "total"}); err != nil {
		return err
	}
	for _, row := range rows {
		record := []string{
			row.InvoiceNumber,
			row.CreatedAt.Format(time.RFC3339),
			row.PaymentMode,
			printer.Sprintf("%.2f", row.GrossAmount),
			printer.Sprintf("%.2f", row.Discount),
			printer.Sprintf("%.2f", row.TotalAmount),
		}
		if err := cw.Write(record); err != nil {
			return err
		}
	}
	cw.Flush()
	return cw.Error()
}

func dashboardKey(organizationID uuid.UUID, period Period) string {
	return fmt.Sprintf("reports:dashboard:%s:%d:%d", organizationID, period.From.Unix(), period.To.Unix())
}

func (s *Service) cachedDashboard(ctx context.Context, key string) (Dashboard, bool) {
	if s.cache == nil {
		return Dashboard{}, false
	}
	raw, err := s.cache.Get(ctx, key).Bytes()
	if err != nil {
		return Dashboard{}, false
	}
	var dash Dashboard
	if err := json.Unmarshal(raw, &dash); err != nil {
		return Dashboard{}, false
	}
	return dash, true
}

func (s *Service) storeDashboard(ctx context.Context, key string, dash Dashboard) {
	if s.cache == nil {
		return
	}
	raw, err := json.Marshal(dash)
	if err != nil {
		return
	}
	s.cache.Set(ctx, key, raw, s.cacheTTL)
}
