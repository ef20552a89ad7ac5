package pos

import (
	"context"
	"errors"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/pharmacore-erp/pharmacore/internal/platform/db"
	"github.com/pharmacore-erp/pharmacore/internal/shared"
)

// Repository persists sales in PostgreSQL.
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

const saleColumns = `id, organization_id, branch_id, invoice_number, customer_id, customer_name, customer_cnic, prescription_id, cashier_id, payment_mode, gross_amount, discount_amount, discount_percent, total_amount, created_at`

func (r *Repository) GetSale(ctx context.Context, id uuid.UUID) (Sale, error) {
	row := r.pool.QueryRow(ctx, `SELECT `+saleColumns+` FROM sales WHERE id=$1`, id)
	sale, err := scanSale(row)
	if err != nil {
		return Sale{}, err
	}
	lines, err := r.saleLines(ctx, id)
	if err != nil {
		return Sale{}, err
	}
	sale.Lines = lines
	return sale, nil
}

func (r *Repository) ListSales(ctx context.Context, organizationID uuid.UUID, branchID *uuid.UUID, p shared.Pagination) ([]Sale, error) {
	rows, err := r.pool.Query(ctx, `SELECT `+saleColumns+` FROM sales
WHERE organization_id=$1 AND ($2::uuid IS NULL OR branch_id=$2)
ORDER BY created_at DESC
LIMIT $3 OFFSET $4`, organizationID, branchID, p.PerPage, p.Offset())
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	list := []Sale{}
	for rows.Next() {
		sale, err := scanSale(rows)
		if err != nil {
			return nil, err
		}
		list = append(list, sale)
	}
	return list, rows.Err()
}

func (r *Repository) saleLines(ctx context.Context, saleID uuid.UUID) ([]SaleLine, error) {
	rows, err := r.pool.Query(ctx, `SELECT id, sale_id, product_id, batch_id, quantity, unit_price, line_total
FROM sale_lines WHERE sale_id=$1`, saleID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	lines := []SaleLine{}
	for rows.Next() {
		var l SaleLine
		if err := rows.Scan(&l.ID, &l.SaleID, &l.ProductID, &l.BatchID, &l.Quantity, &l.UnitPrice, &l.LineTotal); err != nil {
			return nil, err
		}
		lines = append(lines, l)
	}
	return lines, rows.Err()
}

func (r *Repository) ListSalesByCustomer(ctx context.Context, organizationID, customerID uuid.UUID) ([]Sale, error) {
	rows, err := r.pool.Query(ctx, `SELECT `+saleColumns+` FROM sales
WHERE organization_id=$1 AND customer_id=$2
ORDER BY created_at DESC`, organizationID, customerID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	list := []Sale{}
	for rows.Next() {
		sale, err := scanSale(rows)
		if err != nil {
			return nil, err
		}
		list = append(list, sale)
	}
	return list, rows.Err()
}

func (r *Repository) ListPrescriptionsByCustomer(ctx context.Context, organizationID, customerID uuid.UUID) ([]Prescription, error) {
	rows, err := r.pool.Query(ctx, `SELECT id, organization_id, customer_id, doctor_name, patient_name, notes, created_at
FROM prescriptions WHERE organization_id=$1 AND customer_id=$2 ORDER BY created_at DESC`, organizationID, customerID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	list := []Prescription{}
	for rows.Next() {
		var p Prescription
		if err := rows.Scan(&p.ID, &p.OrganizationID, &p.CustomerID, &p.DoctorName, &p.PatientName, &p.Notes, &p.CreatedAt); err != nil {
			return nil, err
		}
		list = append(list, p)
	}
	return list, rows.Err()
}

func (r *Repository) InsertReturn(ctx context.Context, ret SaleReturn) error {
	_, err := r.pool.Exec(ctx, `INSERT INTO sale_returns (id, organization_id, sale_id, amount, reason, processed_by, created_at)
VALUES ($1,$2,$3,$4,$5,$6,NOW())`, ret.ID, ret.OrganizationID, ret.SaleID, ret.Amount, ret.Reason, ret.ProcessedBy)
	return err
}

func (r *Repository) SumReturns(ctx context.Context, saleID uuid.UUID) (float64, error) {
	var sum float64
	err := r.pool.QueryRow(ctx, `SELECT COALESCE(SUM(amount), 0) FROM sale_returns WHERE sale_id=$1`, saleID).Scan(&sum)
	return sum, err
}

type txRepository struct {
	tx pgx.Tx
}

// SelectBatchFEFO locks the soonest-expiring batch that can cover the whole
// quantity at the branch.
func (r *txRepository) SelectBatchFEFO(ctx context.Context, branchID, productID uuid.UUID, quantity int) (BatchRef, error) {
	var b BatchRef
	err := r.tx.QueryRow(ctx, `SELECT id, expiry_date, quantity, sale_price FROM stock_batches
WHERE branch_id=$1 AND product_id=$2 AND quantity >= $3 AND expiry_date > NOW()
ORDER BY expiry_date ASC
LIMIT 1
FOR UPDATE`, branchID, productID, quantity).
		Scan(&b.ID, &b.ExpiryDate, &b.Quantity, &b.SalePrice)
	if errors.Is(err, pgx.ErrNoRows) {
		return BatchRef{}, ErrNoStock
	}
	return b, err
}

// DecrementBatch subtracts quantity, guarded so the row can never go negative.
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

func (r *txRepository) InsertPrescription(ctx context.Context, p Prescription) error {
	_, err := r.tx.Exec(ctx, `INSERT INTO prescriptions (id, organization_id, customer_id, doctor_name, patient_name, notes, created_at)
VALUES ($1,$2,$3,$4,$5,$6,$7)`, p.ID, p.OrganizationID, p.CustomerID, p.DoctorName, p.PatientName, p.Notes, p.CreatedAt)
	return err
}

func (r *txRepository) InsertSale(ctx context.Context, sale Sale) error {
	_, err := r.tx.Exec(ctx, `INSERT INTO sales (`+saleColumns+`)
VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$12,$13,$14,$15)`,
		sale.ID, sale.OrganizationID, sale.BranchID, sale.InvoiceNumber, sale.CustomerID, sale.CustomerName,
		sale.CustomerCNIC, sale.PrescriptionID, sale.CashierID, string(sale.PaymentMode), sale.GrossAmount,
		sale.DiscountAmount, sale.DiscountPercent, sale.TotalAmount, sale.CreatedAt)
	return err
}

func (r *txRepository) InsertSaleLine(ctx context.Context, line SaleLine) error {
	_, err := r.tx.Exec(ctx, `INSERT INTO sale_lines (id, sale_id, product_id, batch_id, quantity, unit_price, line_total)
VALUES ($1,$2,$3,$4,$5,$6,$7)`, line.ID, line.SaleID, line.ProductID, line.BatchID, line.Quantity, line.UnitPrice, line.LineTotal)
	return err
}

func (r *txRepository) InsertControlledLog(ctx context.Context, log ControlledSubstanceLog) error {
	_, err := r.tx.Exec(ctx, `INSERT INTO controlled_substance_logs (id, organization_id, branch_id, sale_id, product_id, customer_name, customer_cnic, quantity, sold_by, created_at)
VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,NOW())`,
		log.ID, log.OrganizationID, log.BranchID, log.SaleID, log.ProductID, log.CustomerName, log.CustomerCNIC, log.Quantity, log.SoldBy)
	return err
}

func scanSale(row pgx.Row) (Sale, error) {
	var s Sale
	var mode string
	err := row.Scan(&s.ID, &s.OrganizationID, &s.BranchID, &s.InvoiceNumber, &s.CustomerID, &s.CustomerName,
		&s.CustomerCNIC, &s.PrescriptionID, &s.CashierID, &mode, &s.GrossAmount, &s.DiscountAmount,
		&s.DiscountPercent, &s.TotalAmount, &s.CreatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return Sale{}, ErrSaleNotFound
	}
	s.PaymentMode = PaymentMode(mode)
	return s, err
}
