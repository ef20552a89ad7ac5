package compliance

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/pharmacore-erp/pharmacore/internal/pos"
)

// LogFilter narrows the controlled substance register.
type LogFilter struct {
	BranchID  *uuid.UUID
	ProductID *uuid.UUID
	CNIC      string
	From      *time.Time
	To        *time.Time
}

// Repository reads the controlled substance register from PostgreSQL.
type Repository struct {
	pool *pgxpool.Pool
}

// NewRepository constructs Repository.
func NewRepository(pool *pgxpool.Pool) *Repository {
	return &Repository{pool: pool}
}

// ListControlledLogs returns the register for an organization, newest first.
func (r *Repository) ListControlledLogs(ctx context.Context, organizationID uuid.UUID, filter LogFilter) ([]pos.ControlledSubstanceLog, error) {
	rows, err := r.pool.Query(ctx, `SELECT id, organization_id, branch_id, sale_id, product_id, customer_name, customer_cnic, quantity, sold_by, created_at
FROM controlled_substance_logs
WHERE organization_id=$1
  AND ($2::uuid IS NULL OR branch_id=$2)
  AND ($3::uuid IS NULL OR product_id=$3)
  AND ($4 = '' OR customer_cnic=$4)
  AND ($5::timestamptz IS NULL OR created_at >= $5)
  AND ($6::timestamptz IS NULL OR created_at <= $6)
ORDER BY created_at DESC
LIMIT 500`, organizationID, filter.BranchID, filter.ProductID, filter.CNIC, filter.From, filter.To)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	list := []pos.ControlledSubstanceLog{}
	for rows.Next() {
		var l pos.ControlledSubstanceLog
		if err := rows.Scan(&l.ID, &l.OrganizationID, &l.BranchID, &l.SaleID, &l.ProductID,
			&l.CustomerName, &l.CustomerCNIC, &l.Quantity, &l.SoldBy, &l.CreatedAt); err != nil {
			return nil, err
		}
		list = append(list, l)
	}
	return list, rows.Err()
}
