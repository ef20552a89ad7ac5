package transfers

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/pharmacore-erp/pharmacore/internal/inventory"
	"github.com/pharmacore-erp/pharmacore/internal/platform/db"
)

// Repository persists transfer requests in PostgreSQL.
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

const transferColumns = `id, organization_id, from_branch_id, to_branch_id, status, requested_by, decided_by, created_at, decided_at`

func (r *Repository) GetTransfer(ctx context.Context, id uuid.UUID) (TransferRequest, error) {
	row := r.pool.QueryRow(ctx, `SELECT `+transferColumns+` FROM transfer_requests WHERE id=$1`, id)
	tr, err := scanTransfer(row)
	if err != nil {
		return TransferRequest{}, err
	}
	tr.Lines, err = transferLines(ctx, r.pool, id)
	return tr, err
}

func (r *Repository) ListTransfers(ctx context.Context, organizationID uuid.UUID, status *TransferStatus) ([]TransferRequest, error) {
	var statusFilter *string
	if status != nil {
		s := string(*status)
		statusFilter = &s
	}
	rows, err := r.pool.Query(ctx, `SELECT `+transferColumns+` FROM transfer_requests
WHERE organization_id=$1 AND ($2::text IS NULL OR status=$2)
ORDER BY created_at DESC
LIMIT 200`, organizationID, statusFilter)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	list := []TransferRequest{}
	for rows.Next() {
		tr, err := scanTransfer(rows)
		if err != nil {
			return nil, err
		}
		list = append(list, tr)
	}
	return list, rows.Err()
}

type querier interface {
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
}

func transferLines(ctx context.Context, q querier, transferID uuid.UUID) ([]TransferLine, error) {
	rows, err := q.Query(ctx, `SELECT id, transfer_id, product_id, batch_id, quantity
FROM transfer_lines WHERE transfer_id=$1`, transferID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	lines := []TransferLine{}
	for rows.Next() {
		var l TransferLine
		if err := rows.Scan(&l.ID, &l.TransferID, &l.ProductID, &l.BatchID, &l.Quantity); err != nil {
			return nil, err
		}
		lines = append(lines, l)
	}
	return lines, rows.Err()
}

type txRepository struct {
	tx pgx.Tx
}

const batchInfoColumns = `id, batch_number, expiry_date, quantity, purchase_price, sale_price`

func (r *txRepository) SelectBatchFEFO(ctx context.Context, branchID, productID uuid.UUID, quantity int) (BatchInfo, error) {
	var b BatchInfo
	err := r.tx.QueryRow(ctx, `SELECT `+batchInfoColumns+` FROM stock_batches
WHERE branch_id=$1 AND product_id=$2 AND quantity >= $3 AND expiry_date > NOW()
ORDER BY expiry_date ASC
LIMIT 1
FOR UPDATE`, branchID, productID, quantity).
		Scan(&b.ID, &b.BatchNumber, &b.ExpiryDate, &b.Quantity, &b.PurchasePrice, &b.SalePrice)
	if errors.Is(err, pgx.ErrNoRows) {
		return BatchInfo{}, ErrNoStock
	}
	return b, err
}

func (r *txRepository) GetBatch(ctx context.Context, id uuid.UUID) (BatchInfo, error) {
	var b BatchInfo
	err := r.tx.QueryRow(ctx, `SELECT `+batchInfoColumns+` FROM stock_batches WHERE id=$1 FOR UPDATE`, id).
		Scan(&b.ID, &b.BatchNumber, &b.ExpiryDate, &b.Quantity, &b.PurchasePrice, &b.SalePrice)
	if errors.Is(err, pgx.ErrNoRows) {
		return BatchInfo{}, ErrNoStock
	}
	return b, err
}

func (r *txRepository) DecrementBatch(ctx context.Context, batchID uuid.UUID, quantity int) error {
	tag, err := r.tx.Exec(ctx, `UPDATE stock_batches SET quantity = quantity - $2
WHERE id=$1 AND quantity >= $2`, batchID, quantity)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return ErrNoStock
	}
	return nil
}

func (r *txRepository) InsertStockBatch(ctx context.Context, b inventory.StockBatch) error {
	_, err := r.tx.Exec(ctx, `INSERT INTO stock_batches (id, organization_id, branch_id, product_id, batch_number, expiry_date, quantity, purchase_price, sale_price, created_at)
VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,NOW())`,
		b.ID, b.OrganizationID, b.BranchID, b.ProductID, b.BatchNumber, b.ExpiryDate, b.Quantity, b.PurchasePrice, b.SalePrice)
	return err
}

func (r *txRepository) InsertTransfer(ctx context.Context, tr TransferRequest) error {
	_, err := r.tx.Exec(ctx, `INSERT INTO transfer_requests (`+transferColumns+`)
VALUES ($1,$2,$3,$4,$5,$6,$7,NOW(),$8)`,
		tr.ID, tr.OrganizationID, tr.FromBranchID, tr.ToBranchID, string(tr.Status), tr.RequestedBy, tr.DecidedBy, tr.DecidedAt)
	return err
}

func (r *txRepository) InsertTransferLine(ctx context.Context, line TransferLine) error {
	_, err := r.tx.Exec(ctx, `INSERT INTO transfer_lines (id, transfer_id, product_id, batch_id, quantity)
VALUES ($1,$2,$3,$4,$5)`, line.ID, line.TransferID, line.ProductID, line.BatchID, line.Quantity)
	return err
}

func (r *txRepository) GetTransferForUpdate(ctx context.Context, id uuid.UUID) (TransferRequest, error) {
	row := r.tx.QueryRow(ctx, `SELECT `+transferColumns+` FROM transfer_requests WHERE id=$1 FOR UPDATE`, id)
	tr, err := scanTransfer(row)
	if err != nil {
		return TransferRequest{}, err
	}
	tr.Lines, err = transferLines(ctx, r.tx, id)
	return tr, err
}

func (r *txRepository) UpdateTransferStatus(ctx context.Context, id uuid.UUID, from, to TransferStatus, decidedBy uuid.UUID, decidedAt time.Time) error {
	tag, err := r.tx.Exec(ctx, `UPDATE transfer_requests SET status=$3, decided_by=$4, decided_at=$5
WHERE id=$1 AND status=$2`, id, string(from), string(to), decidedBy, decidedAt)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return ErrNotPending
	}
	return nil
}

func scanTransfer(row pgx.Row) (TransferRequest, error) {
	var tr TransferRequest
	var status string
	err := row.Scan(&tr.ID, &tr.OrganizationID, &tr.FromBranchID, &tr.ToBranchID, &status,
		&tr.RequestedBy, &tr.DecidedBy, &tr.CreatedAt, &tr.DecidedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return TransferRequest{}, ErrTransferNotFound
	}
	tr.Status = TransferStatus(status)
	return tr, err
}
