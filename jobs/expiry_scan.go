package jobs

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"github.com/hibiken/asynq"
	"github.com/jackc/pgx/v5/pgxpool"
)

// ExpiryScanJob walks stock batches across all tenants and reports the ones
// approaching expiry, plus products that have fallen below their reorder point.
type ExpiryScanJob struct {
	Pool   *pgxpool.Pool
	Logger *slog.Logger
	clock  func() time.Time
}

// NewExpiryScanJob initialises the expiry scan handler.
func NewExpiryScanJob(pool *pgxpool.Pool, logger *slog.Logger) *ExpiryScanJob {
	return &ExpiryScanJob{
		Pool:   pool,
		Logger: logger,
		clock: func() time.Time {
			return time.Now().UTC()
		},
	}
}

// Handle executes the scan.
func (j *ExpiryScanJob) Handle(ctx context.Context, t *asynq.Task) error {
	if j == nil {
		return errors.New("expiry scan: handler not configured")
	}
	var payload ExpiryScanPayload
	if err := json.Unmarshal(t.Payload(), &payload); err != nil {
		return asynq.SkipRetry
	}
	if payload.WithinDays <= 0 {
		payload.WithinDays = 30
	}

	start := j.now()
	logger := j.logger().With(slog.Int("within_days", payload.WithinDays))
	logger.Info("starting expiry scan")

	expiring, err := j.scanExpiring(ctx, start, payload.WithinDays)
	if err != nil {
		logger.Error("expiry scan failed", slog.Any("error", err))
		return err
	}
	for _, b := range expiring {
		logger.Warn("stock batch near expiry",
			slog.String("organization_id", b.OrganizationID.String()),
			slog.String("branch_id", b.BranchID.String()),
			slog.String("batch_number", b.BatchNumber),
			slog.Int("quantity", b.Quantity),
			slog.Int("days_to_expiry", b.DaysToExpiry),
		)
	}

	low, err := j.scanLowStock(ctx)
	if err != nil {
		logger.Error("low stock scan failed", slog.Any("error", err))
		return err
	}
	for _, p := range low {
		logger.Warn("product below reorder point",
			slog.String("organization_id", p.OrganizationID.String()),
			slog.String("product_id", p.ProductID.String()),
			slog.String("product_name", p.ProductName),
			slog.Int("on_hand", p.OnHand),
			slog.Int("reorder_point", p.ReorderPoint),
		)
	}

	logger.Info("completed expiry scan",
		slog.Int("expiring", len(expiring)),
		slog.Int("low_stock", len(low)),
		slog.Duration("duration", time.Since(start)),
	)
	return nil
}

type expiringBatch struct {
	OrganizationID uuid.UUID
	BranchID       uuid.UUID
	BatchNumber    string
	Quantity       int
	DaysToExpiry   int
}

func (j *ExpiryScanJob) scanExpiring(ctx context.Context, now time.Time, withinDays int) ([]expiringBatch, error) {
	if j.Pool == nil {
		return nil, errors.New("expiry scan: pool not configured")
	}
	cutoff := now.AddDate(0, 0, withinDays)
	rows, err := j.Pool.Query(ctx, `SELECT organization_id, branch_id, batch_number, quantity, expiry_date
FROM stock_batches
WHERE quantity > 0 AND expiry_date <= $1
ORDER BY expiry_date ASC`, cutoff)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	list := []expiringBatch{}
	for rows.Next() {
		var b expiringBatch
		var expiry time.Time
		if err := rows.Scan(&b.OrganizationID, &b.BranchID, &b.BatchNumber, &b.Quantity, &expiry); err != nil {
			return nil, err
		}
		b.DaysToExpiry = int(expiry.Sub(now).Hours() / 24)
		list = append(list, b)
	}
	return list, rows.Err()
}

type lowStockProduct struct {
	OrganizationID uuid.UUID
	ProductID      uuid.UUID
	ProductName    string
	OnHand         int
	ReorderPoint   int
}

func (j *ExpiryScanJob) scanLowStock(ctx context.Context) ([]lowStockProduct, error) {
	rows, err := j.Pool.Query(ctx, `SELECT p.organization_id, p.id, p.name, COALESCE(SUM(sb.quantity), 0) AS on_hand, p.reorder_point
FROM products p
LEFT JOIN stock_batches sb ON sb.product_id = p.id
WHERE p.reorder_point > 0
GROUP BY p.organization_id, p.id, p.name, p.reorder_point
HAVING COALESCE(SUM(sb.quantity), 0) <= p.reorder_point
ORDER BY on_hand ASC`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	list := []lowStockProduct{}
	for rows.Next() {
		var p lowStockProduct
		if err := rows.Scan(&p.OrganizationID, &p.ProductID, &p.ProductName, &p.OnHand, &p.ReorderPoint); err != nil {
			return nil, err
		}
		list = append(list, p)
	}
	return list, rows.Err()
}

func (j *ExpiryScanJob) logger() *slog.Logger {
	if j.Logger != nil {
		return j.Logger.With(slog.String("job", TaskExpiryScan))
	}
	return slog.Default().With(slog.String("job", TaskExpiryScan))
}

func (j *ExpiryScanJob) now() time.Time {
	if j.clock != nil {
		return j.clock()
	}
	return time.Now().UTC()
}
