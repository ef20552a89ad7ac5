package inventory

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/pharmacore-erp/pharmacore/internal/platform/db"
)

// Repository persists stock batches and adjustments in PostgreSQL.
type Repository struct {
	pool *pgxpool.Pool
}

// NewRepository constructs Repository.
func NewRepository(pool *pgxpool.Pool) *Repository {
	return &Repository{pool: pool}
}

const batchColumns = `id, organization_id, branch_id, product_id, batch_number, expiry_date, quantity, purchase_price, sale_price, created_at`

// WithTx runs fn inside a repeatable read transaction.
func (r *Repository) WithTx(ctx context.Context, fn func(ctx context.Context, repo TxRepository) error) error {
	return db.WithTx(ctx, r.pool, func(tx pgx.Tx) error {
		return fn(ctx, &txRepository{tx: tx})
	})
}

func (r *Repository) CreateBatch(ctx context.Context, b StockBatch) error {
	_, err := r.pool.Exec(ctx, `INSERT INTO stock_batches (`+batchColumns+`)
VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,NOW())`,
		b.ID, b.OrganizationID, b.BranchID, b.ProductID, b.BatchNumber, b.ExpiryDate, b.Quantity, b.PurchasePrice, b.SalePrice)
	return err
}

func (r *Repository) GetBatch(ctx context.Context, id uuid.UUID) (StockBatch, error) {
	row := r.pool.QueryRow(ctx, `SELECT `+batchColumns+` FROM stock_batches WHERE id=$1`, id)
	return scanBatch(row)
}

func (r *Repository) ListBatches(ctx context.Context, organizationID uuid.UUID, filter ListFilter) ([]StockBatch, error) {
	rows, err := r.pool.Query(ctx, `SELECT `+batchColumns+` FROM stock_batches
WHERE organization_id=$1
  AND ($2::uuid IS NULL OR branch_id=$2)
  AND ($3::uuid IS NULL OR product_id=$3)
ORDER BY expiry_date ASC, created_at ASC
LIMIT 500`, organizationID, filter.BranchID, filter.ProductID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	list := []StockBatch{}
	for rows.Next() {
		b, err := scanBatch(rows)
		if err != nil {
			return nil, err
		}
		list = append(list, b)
	}
	return list, rows.Err()
}

func (r *Repository) ListAdjustments(ctx context.Context, organizationID uuid.UUID, branchID *uuid.UUID) ([]StockAdjustment, error) {
	rows, err := r.pool.Query(ctx, `SELECT id, organization_id, branch_id, batch_id, product_id, type, quantity_delta, reason, adjusted_by, created_at
FROM stock_adjustments
WHERE organization_id=$1 AND ($2::uuid IS NULL OR branch_id=$2)
ORDER BY created_at DESC
LIMIT 500`, organizationID, branchID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	list := []StockAdjustment{}
	for rows.Next() {
		var a StockAdjustment
		var typ string
		if err := rows.Scan(&a.ID, &a.OrganizationID, &a.BranchID, &a.BatchID, &a.ProductID, &typ, &a.QuantityDelta, &a.Reason, &a.AdjustedBy, &a.CreatedAt); err != nil {
			return nil, err
		}
		a.Type = AdjustmentType(typ)
		list = append(list, a)
	}
	return list, rows.Err()
}

func (r *Repository) ExpiringBatches(ctx context.Context, organizationID uuid.UUID, before time.Time) ([]StockBatch, error) {
	rows, err := r.pool.Query(ctx, `SELECT `+batchColumns+` FROM stock_batches
WHERE organization_id=$1 AND quantity > 0 AND expiry_date <= $2
ORDER BY expiry_date ASC`, organizationID, before)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	list := []StockBatch{}
	for rows.Next() {
		b, err := scanBatch(rows)
		if err != nil {
			return nil, err
		}
		list = append(list, b)
	}
	return list, rows.Err()
}

func (r *Repository) LowStock(ctx context.Context, organizationID uuid.UUID) ([]LowStockAlert, error) {
	rows, err := r.pool.Query(ctx, `SELECT p.id, sb.branch_id, p.name, COALESCE(SUM(sb.quantity), 0) AS on_hand, p.reorder_point
FROM products p
JOIN stock_batches sb ON sb.product_id = p.id
WHERE sb.organization_id=$1
GROUP BY p.id, sb.branch_id, p.name, p.reorder_point
HAVING COALESCE(SUM(sb.quantity), 0) <= p.reorder_point`, organizationID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	list := []LowStockAlert{}
	for rows.Next() {
		var a LowStockAlert
		if err := rows.Scan(&a.ProductID, &a.BranchID, &a.ProductName, &a.TotalOnHand, &a.ReorderPoint); err != nil {
			return nil, err
		}
		list = append(list, a)
	}
	return list, rows.Err()
}

type txRepository struct {
	tx pgx.Tx
}

func (r *txRepository) GetBatchForUpdate(ctx context.Context, id uuid.UUID) (StockBatch, error) {
	row := r.tx.QueryRow(ctx, `SELECT `+batchColumns+` FROM stock_batches WHERE id=$1 FOR UPDATE`, id)
	return scanBatch(row)
}

func (r *txRepository) SetBatchQuantity(ctx context.Context, id uuid.UUID, quantity int) error {
	tag, err := r.tx.Exec(ctx, `UPDATE stock_batches SET quantity=$2 WHERE id=$1 AND $2 >= 0`, id, quantity)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return ErrBatchNotFound
	}
	return nil
}

func (r *txRepository) InsertAdjustment(ctx context.Context, adj StockAdjustment) error {
	_, err := r.tx.Exec(ctx, `INSERT INTO stock_adjustments (id, organization_id, branch_id, batch_id, product_id, type, quantity_delta, reason, adjusted_by, created_at)
VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,NOW())`,
		adj.ID, adj.OrganizationID, adj.BranchID, adj.BatchID, adj.ProductID, string(adj.Type), adj.QuantityDelta, adj.Reason, adj.AdjustedBy)
	return err
}

func scanBatch(row pgx.Row) (StockBatch, error) {
	var b StockBatch
	err := row.Scan(&b.ID, &b.OrganizationID, &b.BranchID, &b.ProductID, &b.BatchNumber, &b.ExpiryDate, &b.Quantity, &b.PurchasePrice, &b.SalePrice, &b.CreatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return StockBatch{}, ErrBatchNotFound
	}
	return b, err
}
