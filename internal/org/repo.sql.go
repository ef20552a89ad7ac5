package org

import (
	"context"
	"errors"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// Repository persists organizations and branches in PostgreSQL.
type Repository struct {
	pool *pgxpool.Pool
}

// NewRepository constructs Repository.
func NewRepository(pool *pgxpool.Pool) *Repository {
	return &Repository{pool: pool}
}

func (r *Repository) CreateOrganization(ctx context.Context, o Organization) error {
	_, err := r.pool.Exec(ctx, `INSERT INTO organizations (id, name, address, phone, email, created_at)
VALUES ($1,$2,$3,$4,$5,NOW())`, o.ID, o.Name, o.Address, o.Phone, o.Email)
	return err
}

func (r *Repository) GetOrganization(ctx context.Context, id uuid.UUID) (Organization, error) {
	var o Organization
	err := r.pool.QueryRow(ctx, `SELECT id, name, address, phone, email, created_at FROM organizations WHERE id=$1`, id).
		Scan(&o.ID, &o.Name, &o.Address, &o.Phone, &o.Email, &o.CreatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return Organization{}, ErrOrganizationNotFound
	}
	return o, err
}

func (r *Repository) CreateBranch(ctx context.Context, b Branch) error {
	_, err := r.pool.Exec(ctx, `INSERT INTO branches (id, organization_id, name, address, phone, is_active, created_at)
VALUES ($1,$2,$3,$4,$5,$6,NOW())`, b.ID, b.OrganizationID, b.Name, b.Address, b.Phone, b.IsActive)
	return err
}

func (r *Repository) GetBranch(ctx context.Context, id uuid.UUID) (Branch, error) {
	var b Branch
	err := r.pool.QueryRow(ctx, `SELECT id, organization_id, name, address, phone, is_active, created_at FROM branches WHERE id=$1`, id).
		Scan(&b.ID, &b.OrganizationID, &b.Name, &b.Address, &b.Phone, &b.IsActive, &b.CreatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return Branch{}, ErrBranchNotFound
	}
	return b, err
}

func (r *Repository) ListBranches(ctx context.Context, organizationID uuid.UUID) ([]Branch, error) {
	rows, err := r.pool.Query(ctx, `SELECT id, organization_id, name, address, phone, is_active, created_at
FROM branches WHERE organization_id=$1 ORDER BY created_at ASC`, organizationID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	list := []Branch{}
	for rows.Next() {
		var b Branch
		if err := rows.Scan(&b.ID, &b.OrganizationID, &b.Name, &b.Address, &b.Phone, &b.IsActive, &b.CreatedAt); err != nil {
			return nil, err
		}
		list = append(list, b)
	}
	return list, rows.Err()
}

func (r *Repository) CountBranches(ctx context.Context, organizationID uuid.UUID) (int, error) {
	var count int
	err := r.pool.QueryRow(ctx, `SELECT COUNT(*) FROM branches WHERE organization_id=$1`, organizationID).Scan(&count)
	return count, err
}
