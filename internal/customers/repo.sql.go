package customers

import (
	"context"
	"errors"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// Repository persists customers in PostgreSQL.
type Repository struct {
	pool *pgxpool.Pool
}

// NewRepository constructs Repository.
func NewRepository(pool *pgxpool.Pool) *Repository {
	return &Repository{pool: pool}
}

const customerColumns = `id, organization_id, name, phone, cnic, email, address, credit_limit, created_at`

func (r *Repository) Create(ctx context.Context, c Customer) error {
	_, err := r.pool.Exec(ctx, `INSERT INTO customers (`+customerColumns+`)
VALUES ($1,$2,$3,$4,$5,$6,$7,$8,NOW())`,
		c.ID, c.OrganizationID, c.Name, c.Phone, c.CNIC, c.Email, c.Address, c.CreditLimit)
	return err
}

func (r *Repository) Get(ctx context.Context, id uuid.UUID) (Customer, error) {
	row := r.pool.QueryRow(ctx, `SELECT `+customerColumns+` FROM customers WHERE id=$1`, id)
	return scanCustomer(row)
}

func (r *Repository) List(ctx context.Context, organizationID uuid.UUID, search string) ([]Customer, error) {
	rows, err := r.pool.Query(ctx, `SELECT `+customerColumns+` FROM customers
WHERE organization_id=$1 AND ($2 = '' OR name ILIKE '%'||$2||'%' OR phone ILIKE '%'||$2||'%' OR cnic ILIKE '%'||$2||'%')
ORDER BY name ASC`, organizationID, search)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	list := []Customer{}
	for rows.Next() {
		c, err := scanCustomer(rows)
		if err != nil {
			return nil, err
		}
		list = append(list, c)
	}
	return list, rows.Err()
}

func (r *Repository) Update(ctx context.Context, c Customer) error {
	_, err := r.pool.Exec(ctx, `UPDATE customers
SET name=$2, phone=$3, cnic=$4, email=$5, address=$6, credit_limit=$7
WHERE id=$1`, c.ID, c.Name, c.Phone, c.CNIC, c.Email, c.Address, c.CreditLimit)
	return err
}

func scanCustomer(row pgx.Row) (Customer, error) {
	var c Customer
	err := row.Scan(&c.ID, &c.OrganizationID, &c.Name, &c.Phone, &c.CNIC, &c.Email, &c.Address, &c.CreditLimit, &c.CreatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return Customer{}, ErrCustomerNotFound
	}
	return c, err
}
