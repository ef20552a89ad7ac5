package reports

import (
	"context"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"
)

// Repository runs the report aggregations against PostgreSQL.
type Repository struct {
	pool *pgxpool.Pool
}

// NewRepository constructs Repository.
func NewRepository(pool *pgxpool.Pool) *Repository {
	return &Repository{pool: pool}
}

func (r *Repository) SalesSummary(ctx context.Context, organizationID uuid.UUID, period Period) (SalesSummary, error) {
	summary := SalesSummary{ByPaymentMode: map[string]float64{}, ByBranch: map[string]float64{}}
	err := r.pool.QueryRow(ctx, `SELECT COUNT(*), COALESCE(SUM(gross_amount), 0), COALESCE(SUM(discount_amount + gross_amount * discount_percent / 100), 0), COALESCE(SUM(total_amount), 0)
FROM sales
WHERE organization_id=$1 AND created_at >= $2 AND created_at < $3`,
		organizationID, period.From, period.To).
		Scan(&summary.SaleCount, &summary.GrossAmount, &summary.DiscountTotal, &summary.NetAmount)
	if err != nil {
		return SalesSummary{}, err
	}
	rows, err := r.pool.Query(ctx, `SELECT payment_mode, COALESCE(SUM(total_amount), 0)
FROM sales
WHERE organization_id=$1 AND created_at >= $2 AND created_at < $3
GROUP BY payment_mode`, organizationID, period.From, period.To)
	if err != nil {
		return SalesSummary{}, err
	}
	defer rows.Close()
	for rows.Next() {
		var mode string
		var total float64
		if err := rows.Scan(&mode, &total); err != nil {
			return SalesSummary{}, err
		}
		summary.ByPaymentMode[mode] = total
	}
	if err := rows.Err(); err != nil {
		return SalesSummary{}, err
	}
	branchRows, err := r.pool.Query(ctx, `SELECT branch_id, COALESCE(SUM(total_amount), 0)
FROM sales
WHERE organization_id=$1 AND created_at >= $2 AND created_at < $3
GROUP BY branch_id`, organizationID, period.From, period.To)
	if err != nil {
		return SalesSummary{}, err
	}
	defer branchRows.Close()
	for branchRows.Next() {
		var branchID uuid.UUID
		var total float64
		if err := branchRows.Scan(&branchID, &total); err != nil {
			return SalesSummary{}, err
		}
		summary.ByBranch[branchID.String()] = total
	}
	return summary, branchRows.Err()
}

func (r *Repository) TopProducts(ctx context.Context, organizationID uuid.UUID, period Period, limit int) ([]TopProduct, error) {
	rows, err := r.pool.Query(ctx, `SELECT sl.product_id, p.name, SUM(sl.quantity) AS qty, SUM(sl.line_total) AS revenue
FROM sale_lines sl
JOIN sales s ON s.id = sl.sale_id
JOIN products p ON p.id = sl.product_id
WHERE s.organization_id=$1 AND s.created_at >= $2 AND s.created_at < $3
GROUP BY sl.product_id, p.name
ORDER BY qty DESC
LIMIT $4`, organizationID, period.From, period.To, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	list := []TopProduct{}
	for rows.Next() {
		var tp TopProduct
		if err := rows.Scan(&tp.ProductID, &tp.ProductName, &tp.QuantitySold, &tp.Revenue); err != nil {
			return nil, err
		}
		list = append(list, tp)
	}
	return list, rows.Err()
}

func (r *Repository) StockValuation(ctx context.Context, organizationID uuid.UUID) (StockValuation, error) {
	var v StockValuation
	err := r.pool.QueryRow(ctx, `SELECT COALESCE(SUM(quantity), 0), COALESCE(SUM(quantity * purchase_price), 0), COALESCE(SUM(quantity * sale_price), 0)
FROM stock_batches
WHERE organization_id=$1`, organizationID).
		Scan(&v.TotalUnits, &v.PurchaseValue, &v.SaleValue)
	return v, err
}

func (r *Repository) ProfitLoss(ctx context.Context, organizationID uuid.UUID, period Period) (ProfitLoss, error) {
	var pl ProfitLoss
	err := r.pool.QueryRow(ctx, `SELECT COALESCE(SUM(sl.line_total), 0), COALESCE(SUM(sl.quantity * sb.purchase_price), 0)
FROM sale_lines sl
JOIN sales s ON s.id = sl.sale_id
JOIN stock_batches sb ON sb.id = sl.batch_id
WHERE s.organization_id=$1 AND s.created_at >= $2 AND s.created_at < $3`,
		organizationID, period.From, period.To).
		Scan(&pl.Revenue, &pl.CostOfGoods)
	if err != nil {
		return ProfitLoss{}, err
	}
	pl.GrossProfit = pl.Revenue - pl.CostOfGoods
	return pl, nil
}

func (r *Repository) SaleRows(ctx context.Context, organizationID uuid.UUID, period Period) ([]SaleRow, error) {
	rows, err := r.pool.Query(ctx, `SELECT invoice_number, created_at, payment_mode, gross_amount, discount_amount + gross_amount * discount_percent / 100, total_amount
FROM sales
WHERE organization_id=$1 AND created_at >= $2 AND created_at < $3
ORDER BY created_at ASC`, organizationID, period.From, period.To)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	list := []SaleRow{}
	for rows.Next() {
		var row SaleRow
		if err := rows.Scan(&row.InvoiceNumber, &row.CreatedAt, &row.PaymentMode, &row.GrossAmount, &row.Discount, &row.TotalAmount); err != nil {
			return nil, err
		}
		list = append(list, row)
	}
	return list, rows.Err()
}
