package procurement

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/pharmacore-erp/pharmacore/internal/inventory"
	"github.com/pharmacore-erp/pharmacore/internal/platform/db"
	"github.com/pharmacore-erp/pharmacore/internal/shared"
)

// Repository persists purchase orders in PostgreSQL.
type Repository struct {
	pool *pgxpool.Pool
}

// NewRepository constructs Repository.
func NewRepository(pool *pgxpool.Pool) *Repository {
	return &Repository{pool: pool}
}

// WithTx runs fn inside a repeatable read transaction.
func (r *Repository) WithTx(ctx context.Context, fn func(ctx context.Context, repo TxRepository) error) error {
	return db.WithTx(ctx, r.pool, func(tx pgx.Tx) error {
		return fn(ctx, &txRepository{tx: tx})
	})
}

const orderColumns = `id, organization_id, branch_id, distribution_id, order_number, status, total_amount, created_by, created_at, received_at`

func (r *Repository) GetOrder(ctx context.Context, id uuid.UUID) (PurchaseOrder, error) {
	row := r.pool.QueryRow(ctx, `SELECT `+orderColumns+` FROM purchase_orders WHERE id=$1`, id)
	po, err := scanOrder(row)
	if err != nil {
		return PurchaseOrder{}, err
	}
	po.Lines, err = orderLines(ctx, r.pool, id)
	return po, err
}

func (r *Repository) ListOrders(ctx context.Context, organizationID uuid.UUID, status *OrderStatus, p shared.Pagination) ([]PurchaseOrder, error) {
	var statusFilter *string
	if status != nil {
		s := string(*status)
		statusFilter = &s
	}
	rows, err := r.pool.Query(ctx, `SELECT `+orderColumns+` FROM purchase_orders
WHERE organization_id=$1 AND ($2::text IS NULL OR status=$2)
ORDER BY created_at DESC
LIMIT $3 OFFSET $4`, organizationID, statusFilter, p.PerPage, p.Offset())
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	list := []PurchaseOrder{}
	for rows.Next() {
		po, err := scanOrder(rows)
		if err != nil {
			return nil, err
		}
		list = append(list, po)
	}
	return list, rows.Err()
}

func (r *Repository) InsertPayment(ctx context.Context, payment Payment) error {
	_, err := r.pool.Exec(ctx, `INSERT INTO supplier_payments (id, organization_id, purchase_order_id, amount, method, reference, recorded_by, created_at)
VALUES ($1,$2,$3,$4,$5,$6,$7,NOW())`,
		payment.ID, payment.OrganizationID, payment.PurchaseOrderID, payment.Amount, payment.Method, payment.Reference, payment.RecordedBy)
	return err
}

func (r *Repository) ListPayments(ctx context.Context, purchaseOrderID uuid.UUID) ([]Payment, error) {
	rows, err := r.pool.Query(ctx, `SELECT id, organization_id, purchase_order_id, amount, method, reference, recorded_by, created_at
FROM supplier_payments WHERE purchase_order_id=$1 ORDER BY created_at ASC`, purchaseOrderID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	list := []Payment{}
	for rows.Next() {
		var pay Payment
		if err := rows.Scan(&pay.ID, &pay.OrganizationID, &pay.PurchaseOrderID, &pay.Amount, &pay.Method, &pay.Reference, &pay.RecordedBy, &pay.CreatedAt); err != nil {
			return nil, err
		}
		list = append(list, pay)
	}
	return list, rows.Err()
}

type querier interface {
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
}

func orderLines(ctx context.Context, q querier, orderID uuid.UUID) ([]OrderLine, error) {
	rows, err := q.Query(ctx, `SELECT id, purchase_order_id, product_id, manufacturer_id, quantity, unit_price, line_total
FROM purchase_order_lines WHERE purchase_order_id=$1`, orderID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	lines := []OrderLine{}
	for rows.Next() {
		var l OrderLine
		if err := rows.Scan(&l.ID, &l.PurchaseOrderID, &l.ProductID, &l.ManufacturerID, &l.Quantity, &l.UnitPrice, &l.LineTotal); err != nil {
			return nil, err
		}
		lines = append(lines, l)
	}
	return lines, rows.Err()
}

type txRepository struct {
	tx pgx.Tx
}

func (r *txRepository) InsertOrder(ctx context.Context, po PurchaseOrder) error {
	_, err := r.tx.Exec(ctx, `INSERT INTO purchase_orders (`+orderColumns+`)
VALUES ($1,$2,$3,$4,$5,$6,$7,$8,NOW(),$9)`,
		po.ID, po.OrganizationID, po.BranchID, po.DistributionID, po.OrderNumber, string(po.Status), po.TotalAmount, po.CreatedBy, po.ReceivedAt)
	return err
}

func (r *txRepository) InsertOrderLine(ctx context.Context, line OrderLine) error {
	_, err := r.tx.Exec(ctx, `INSERT INTO purchase_order_lines (id, purchase_order_id, product_id, manufacturer_id, quantity, unit_price, line_total)
VALUES ($1,$2,$3,$4,$5,$6,$7)`, line.ID, line.PurchaseOrderID, line.ProductID, line.ManufacturerID, line.Quantity, line.UnitPrice, line.LineTotal)
	return err
}

func (r *txRepository) GetOrderForUpdate(ctx context.Context, id uuid.UUID) (PurchaseOrder, error) {
	row := r.tx.QueryRow(ctx, `SELECT `+orderColumns+` FROM purchase_orders WHERE id=$1 FOR UPDATE`, id)
	po, err := scanOrder(row)
	if err != nil {
		return PurchaseOrder{}, err
	}
	po.Lines, err = orderLines(ctx, r.tx, id)
	return po, err
}

func (r *txRepository) UpdateOrderStatus(ctx context.Context, id uuid.UUID, from, to OrderStatus, receivedAt *time.Time) error {
	tag, err := r.tx.Exec(ctx, `UPDATE purchase_orders SET status=$3, received_at=COALESCE($4, received_at)
WHERE id=$1 AND status=$2`, id, string(from), string(to), receivedAt)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return ErrNotReceivable
	}
	return nil
}

func (r *txRepository) InsertStockBatch(ctx context.Context, b inventory.StockBatch) error {
	_, err := r.tx.Exec(ctx, `INSERT INTO stock_batches (id, organization_id, branch_id, product_id, batch_number, expiry_date, quantity, purchase_price, sale_price, created_at)
VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,NOW())`,
		b.ID, b.OrganizationID, b.BranchID, b.ProductID, b.BatchNumber, b.ExpiryDate, b.Quantity, b.PurchasePrice, b.SalePrice)
	return err
}

func scanOrder(row pgx.Row) (PurchaseOrder, error) {
	var po PurchaseOrder
	var status string
	err := row.Scan(&po.ID, &po.OrganizationID, &po.BranchID, &po.DistributionID, &po.OrderNumber, &status,
		&po.TotalAmount, &po.CreatedBy, &po.CreatedAt, &po.ReceivedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return PurchaseOrder{}, ErrOrderNotFound
	}
	po.Status = OrderStatus(status)
	return po, err
}
