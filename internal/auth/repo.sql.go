package auth

import (
	"context"
	"errors"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
)

// Repository persists users in PostgreSQL.
type Repository struct {
	pool *pgxpool.Pool
}

// NewRepository constructs Repository.
func NewRepository(pool *pgxpool.Pool) *Repository {
	return &Repository{pool: pool}
}

func (r *Repository) CreateUser(ctx context.Context, u User) error {
	_, err := r.pool.Exec(ctx, `INSERT INTO users (id, organization_id, branch_id, email, name, password_hash, role, is_active, created_at)
VALUES ($1,$2,$3,$4,$5,$6,$7,$8,NOW())`,
		u.ID, u.OrganizationID, u.BranchID, u.Email, u.Name, u.PasswordHash, string(u.Role), u.IsActive)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == "23505" {
			return ErrEmailTaken
		}
	}
	return err
}

func (r *Repository) GetUserByEmail(ctx context.Context, email string) (User, error) {
	row := r.pool.QueryRow(ctx, `SELECT id, organization_id, branch_id, email, name, password_hash, role, is_active, created_at
FROM users WHERE email=$1`, email)
	return scanUser(row)
}

func (r *Repository) GetUser(ctx context.Context, id uuid.UUID) (User, error) {
	row := r.pool.QueryRow(ctx, `SELECT id, organization_id, branch_id, email, name, password_hash, role, is_active, created_at
FROM users WHERE id=$1`, id)
	return scanUser(row)
}

func (r *Repository) ListUsers(ctx context.Context, organizationID uuid.UUID) ([]User, error) {
	rows, err := r.pool.Query(ctx, `SELECT id, organization_id, branch_id, email, name, password_hash, role, is_active, created_at
FROM users WHERE organization_id=$1 ORDER BY created_at ASC`, organizationID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	list := []User{}
	for rows.Next() {
		u, err := scanUser(rows)
		if err != nil {
			return nil, err
		}
		list = append(list, u)
	}
	return list, rows.Err()
}

func (r *Repository) SetUserActive(ctx context.Context, id uuid.UUID, active bool) error {
	tag, err := r.pool.Exec(ctx, `UPDATE users SET is_active=$2 WHERE id=$1`, id, active)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return ErrUserNotFound
	}
	return nil
}

func scanUser(row pgx.Row) (User, error) {
	var u User
	var role string
	err := row.Scan(&u.ID, &u.OrganizationID, &u.BranchID, &u.Email, &u.Name, &u.PasswordHash, &role, &u.IsActive, &u.CreatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return User{}, ErrUserNotFound
	}
	u.Role = Role(role)
	return u, err
}
