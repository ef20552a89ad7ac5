package catalog

import (
	"context"
	"errors"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
)

// Repository persists catalog data in PostgreSQL.
type Repository struct {
	pool *pgxpool.Pool
}

// NewRepository constructs Repository.
func NewRepository(pool *pgxpool.Pool) *Repository {
	return &Repository{pool: pool}
}

func (r *Repository) CreateManufacturer(ctx context.Context, m Manufacturer) error {
	_, err := r.pool.Exec(ctx, `INSERT INTO manufacturers (id, name, contact_info, address, created_at)
VALUES ($1,$2,$3,$4,NOW())`, m.ID, m.Name, m.ContactInfo, m.Address)
	return err
}

func (r *Repository) ListManufacturers(ctx context.Context) ([]Manufacturer, error) {
	rows, err := r.pool.Query(ctx, `SELECT id, name, contact_info, address, created_at FROM manufacturers ORDER BY name ASC`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	list := []Manufacturer{}
	for rows.Next() {
		var m Manufacturer
		if err := rows.Scan(&m.ID, &m.Name, &m.ContactInfo, &m.Address, &m.CreatedAt); err != nil {
			return nil, err
		}
		list = append(list, m)
	}
	return list, rows.Err()
}

func (r *Repository) GetManufacturer(ctx context.Context, id uuid.UUID) (Manufacturer, error) {
	var m Manufacturer
	err := r.pool.QueryRow(ctx, `SELECT id, name, contact_info, address, created_at FROM manufacturers WHERE id=$1`, id).
		Scan(&m.ID, &m.Name, &m.ContactInfo, &m.Address, &m.CreatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return Manufacturer{}, ErrManufacturerNotFound
	}
	return m, err
}

func (r *Repository) CreateDistribution(ctx context.Context, d Distribution) error {
	_, err := r.pool.Exec(ctx, `INSERT INTO distributions (id, name, contact, address, phone, created_at)
VALUES ($1,$2,$3,$4,$5,NOW())`, d.ID, d.Name, d.Contact, d.Address, d.Phone)
	return err
}

func (r *Repository) ListDistributions(ctx context.Context) ([]Distribution, error) {
	rows, err := r.pool.Query(ctx, `SELECT id, name, contact, address, phone, created_at FROM distributions ORDER BY name ASC`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	list := []Distribution{}
	for rows.Next() {
		var d Distribution
		if err := rows.Scan(&d.ID, &d.Name, &d.Contact, &d.Address, &d.Phone, &d.CreatedAt); err != nil {
			return nil, err
		}
		list = append(list, d)
	}
	return list, rows.Err()
}

func (r *Repository) GetDistribution(ctx context.Context, id uuid.UUID) (Distribution, error) {
	var d Distribution
	err := r.pool.QueryRow(ctx, `SELECT id, name, contact, address, phone, created_at FROM distributions WHERE id=$1`, id).
		Scan(&d.ID, &d.Name, &d.Contact, &d.Address, &d.Phone, &d.CreatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return Distribution{}, ErrDistributionNotFound
	}
	return d, err
}

func (r *Repository) LinkCompany(ctx context.Context, link DistributionCompany) error {
	_, err := r.pool.Exec(ctx, `INSERT INTO distribution_companies (id, distribution_id, manufacturer_id)
VALUES ($1,$2,$3)`, link.ID, link.DistributionID, link.ManufacturerID)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == "23505" {
			return ErrCompanyExists
		}
	}
	return err
}

func (r *Repository) UnlinkCompany(ctx context.Context, id uuid.UUID) error {
	_, err := r.pool.Exec(ctx, `DELETE FROM distribution_companies WHERE id=$1`, id)
	return err
}

func (r *Repository) ListCompanies(ctx context.Context, distributionID uuid.UUID) ([]DistributionCompany, error) {
	rows, err := r.pool.Query(ctx, `SELECT id, distribution_id, manufacturer_id FROM distribution_companies WHERE distribution_id=$1`, distributionID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	list := []DistributionCompany{}
	for rows.Next() {
		var link DistributionCompany
		if err := rows.Scan(&link.ID, &link.DistributionID, &link.ManufacturerID); err != nil {
			return nil, err
		}
		list = append(list, link)
	}
	return list, rows.Err()
}

func (r *Repository) CompanyManufacturers(ctx context.Context, distributionID uuid.UUID) ([]uuid.UUID, error) {
	rows, err := r.pool.Query(ctx, `SELECT manufacturer_id FROM distribution_companies WHERE distribution_id=$1`, distributionID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var ids []uuid.UUID
	for rows.Next() {
		var id uuid.UUID
		if err := rows.Scan(&id); err != nil {
			return nil, err
		}
		ids = append(ids, id)
	}
	return ids, rows.Err()
}

func (r *Repository) CreateProductForm(ctx context.Context, f ProductForm) error {
	_, err := r.pool.Exec(ctx, `INSERT INTO product_forms (id, name, display_order, is_active)
VALUES ($1,$2,$3,$4)`, f.ID, f.Name, f.DisplayOrder, f.IsActive)
	return err
}

func (r *Repository) ListProductForms(ctx context.Context) ([]ProductForm, error) {
	rows, err := r.pool.Query(ctx, `SELECT id, name, display_order, is_active FROM product_forms ORDER BY display_order ASC, name ASC`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	list := []ProductForm{}
	for rows.Next() {
		var f ProductForm
		if err := rows.Scan(&f.ID, &f.Name, &f.DisplayOrder, &f.IsActive); err != nil {
			return nil, err
		}
		list = append(list, f)
	}
	return list, rows.Err()
}

func (r *Repository) CreateProduct(ctx context.Context, p Product) error {
	_, err := r.pool.Exec(ctx, `INSERT INTO products (id, manufacturer_id, name, generic_name, strength, product_form_id, schedule, barcode, therapeutic_category, reorder_point, sale_price, is_active, created_at)
VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$12,NOW())`,
		p.ID, p.ManufacturerID, p.Name, p.GenericName, p.Strength, p.ProductFormID, string(p.Schedule), p.Barcode, p.TherapeuticCategory, p.ReorderPoint, p.SalePrice, p.IsActive)
	return err
}

func (r *Repository) UpdateProduct(ctx context.Context, p Product) error {
	tag, err := r.pool.Exec(ctx, `UPDATE products SET name=$2, generic_name=$3, strength=$4, product_form_id=$5, schedule=$6, barcode=$7, therapeutic_category=$8, reorder_point=$9, sale_price=$10, is_active=$11
WHERE id=$1`, p.ID, p.Name, p.GenericName, p.Strength, p.ProductFormID, string(p.Schedule), p.Barcode, p.TherapeuticCategory, p.ReorderPoint, p.SalePrice, p.IsActive)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return ErrProductNotFound
	}
	return nil
}

func (r *Repository) ListProducts(ctx context.Context, search string) ([]Product, error) {
	rows, err := r.pool.Query(ctx, `SELECT id, manufacturer_id, name, generic_name, strength, product_form_id, schedule, barcode, therapeutic_category, reorder_point, sale_price, is_active, created_at
FROM products
WHERE $1 = '' OR name ILIKE '%' || $1 || '%' OR generic_name ILIKE '%' || $1 || '%' OR barcode = $1
ORDER BY name ASC
LIMIT 200`, search)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	list := []Product{}
	for rows.Next() {
		p, err := scanProduct(rows)
		if err != nil {
			return nil, err
		}
		list = append(list, p)
	}
	return list, rows.Err()
}

func (r *Repository) GetProduct(ctx context.Context, id uuid.UUID) (Product, error) {
	row := r.pool.QueryRow(ctx, `SELECT id, manufacturer_id, name, generic_name, strength, product_form_id, schedule, barcode, therapeutic_category, reorder_point, sale_price, is_active, created_at
FROM products WHERE id=$1`, id)
	p, err := scanProduct(row)
	if errors.Is(err, pgx.ErrNoRows) {
		return Product{}, ErrProductNotFound
	}
	return p, err
}

func scanProduct(row pgx.Row) (Product, error) {
	var p Product
	var schedule string
	err := row.Scan(&p.ID, &p.ManufacturerID, &p.Name, &p.GenericName, &p.Strength, &p.ProductFormID, &schedule, &p.Barcode, &p.TherapeuticCategory, &p.ReorderPoint, &p.SalePrice, &p.IsActive, &p.CreatedAt)
	p.Schedule = Schedule(schedule)
	return p, err
}
