package licensing

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// Repository persists licenses in PostgreSQL.
type Repository struct {
	pool *pgxpool.Pool
}

// NewRepository constructs Repository.
func NewRepository(pool *pgxpool.Pool) *Repository {
	return &Repository{pool: pool}
}

const licenseColumns = `id, organization_id, key, type, max_branches, start_date, end_date, is_active, activated_at, created_at`

func (r *Repository) GetByOrganization(ctx context.Context, organizationID uuid.UUID) (License, error) {
	row := r.pool.QueryRow(ctx, `SELECT `+licenseColumns+` FROM licenses
WHERE organization_id=$1 ORDER BY end_date DESC LIMIT 1`, organizationID)
	return scanLicense(row)
}

func (r *Repository) GetByKey(ctx context.Context, key string) (License, error) {
	row := r.pool.QueryRow(ctx, `SELECT `+licenseColumns+` FROM licenses WHERE key=$1`, key)
	return scanLicense(row)
}

func (r *Repository) Activate(ctx context.Context, id uuid.UUID, at time.Time) error {
	tag, err := r.pool.Exec(ctx, `UPDATE licenses SET is_active=TRUE, activated_at=$2 WHERE id=$1`, id, at)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return ErrLicenseNotFound
	}
	return nil
}

func (r *Repository) CountBranches(ctx context.Context, organizationID uuid.UUID) (int, error) {
	var count int
	err := r.pool.QueryRow(ctx, `SELECT COUNT(*) FROM branches WHERE organization_id=$1`, organizationID).Scan(&count)
	return count, err
}

func scanLicense(row pgx.Row) (License, error) {
	var l License
	var typ string
	err := row.Scan(&l.ID, &l.OrganizationID, &l.Key, &typ, &l.MaxBranches, &l.StartDate, &l.EndDate, &l.IsActive, &l.ActivatedAt, &l.CreatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return License{}, ErrLicenseNotFound
	}
	l.Type = LicenseType(typ)
	return l, err
}
