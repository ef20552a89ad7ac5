package inventory

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/pharmacore-erp/pharmacore/internal/platform/httpx"
	"github.com/pharmacore-erp/pharmacore/internal/shared"
)

// ListFilter narrows batch listings.
type ListFilter struct {
	BranchID  *uuid.UUID
	ProductID *uuid.UUID
	Search    string
}

// TxRepository is the transactional slice of the repository. Methods run
// inside the transaction started by WithTx.
type TxRepository interface {
	GetBatchForUpdate(ctx context.Context, id uuid.UUID) (StockBatch, error)
	SetBatchQuantity(ctx context.Context, id uuid.UUID, quantity int) error
	InsertAdjustment(ctx context.Context, adj StockAdjustment) error
}

// RepositoryPort describes the persistence operations used by Service.
type RepositoryPort interface {
	WithTx(ctx context.Context, fn func(ctx context.Context, repo TxRepository) error) error

	CreateBatch(ctx context.Context, b StockBatch) error
	GetBatch(ctx context.Context, id uuid.UUID) (StockBatch, error)
	ListBatches(ctx context.Context, organizationID uuid.UUID, filter ListFilter) ([]StockBatch, error)
	ListAdjustments(ctx context.Context, organizationID uuid.UUID, branchID *uuid.UUID) ([]StockAdjustment, error)
	ExpiringBatches(ctx context.Context, organizationID uuid.UUID, before time.Time) ([]StockBatch, error)
	LowStock(ctx context.Context, organizationID uuid.UUID) ([]LowStockAlert, error)
}

// OrgPort verifies branch tenancy.
type OrgPort interface {
	BranchInOrganization(ctx context.Context, branchID, organizationID uuid.UUID) (bool, error)
}

// AuditPort records inventory mutations.
type AuditPort interface {
	Record(ctx context.Context, log shared.AuditLog) error
}

// Service owns stock batch lifecycle and manual adjustments.
type Service struct {
	repo  RepositoryPort
	org   OrgPort
	audit AuditPort
	now   func() time.Time
}

// NewService builds Service.
func NewService(repo RepositoryPort, org OrgPort, audit AuditPort) *Service {
	return &Service{repo: repo, org: org, audit: audit, now: time.Now}
}

// CreateBatchInput describes a manually registered batch.
type CreateBatchInput struct {
	BranchID      uuid.UUID
	ProductID     uuid.UUID
	BatchNumber   string
	ExpiryDate    time.Time
	Quantity      int
	PurchasePrice float64
	SalePrice     float64
}

// CreateBatch registers a stock batch at a branch.
func (s *Service) CreateBatch(ctx context.Context, actor *shared.Actor, input CreateBatchInput) (StockBatch, error) {
	if actor == nil {
		return StockBatch{}, httpx.ErrUnauthorized
	}
	if strings.TrimSpace(input.BatchNumber) == "" {
		return StockBatch{}, fmt.Errorf("%w: batch number required", httpx.ErrValidation)
	}
	if input.Quantity < 0 {
		return StockBatch{}, fmt.Errorf("%w: quantity must be >= 0", httpx.ErrValidation)
	}
	if input.ExpiryDate.Before(s.now()) {
		return StockBatch{}, fmt.Errorf("%w: batch already expired", httpx.ErrValidation)
	}
	inOrg, err := s.org.BranchInOrganization(ctx, input.BranchID, actor.OrganizationID)
	if err != nil {
		return StockBatch{}, err
	}
	if !inOrg {
		return StockBatch{}, ErrBranchOutsideOrg
	}
	b := StockBatch{
		ID:             uuid.New(),
		OrganizationID: actor.OrganizationID,
		BranchID:       input.BranchID,
		ProductID:      input.ProductID,
		BatchNumber:    input.BatchNumber,
		ExpiryDate:     input.ExpiryDate,
		Quantity:       input.Quantity,
		PurchasePrice:  input.PurchasePrice,
		SalePrice:      input.SalePrice,
	}
	if err := s.repo.CreateBatch(ctx, b); err != nil {
		return StockBatch{}, err
	}
	s.recordAudit(ctx, actor, "BATCH_CREATE", b.ID, map[string]any{"batch_number": b.BatchNumber, "quantity": b.Quantity})
	return b, nil
}

// ListBatches lists batches in the actor's organization.
func (s *Service) ListBatches(ctx context.Context, actor *shared.Actor, filter ListFilter) ([]StockBatch, error) {
	if actor == nil {
		return nil, httpx.ErrUnauthorized
	}
	return s.repo.ListBatches(ctx, actor.OrganizationID, filter)
}

// AdjustInput describes a manual stock adjustment.
type AdjustInput struct {
	BatchID       uuid.UUID
	Type          AdjustmentType
	QuantityDelta int
	Reason        string
}

// Adjust applies a manual stock change. The resulting quantity may not go
// negative, and every applied adjustment leaves an immutable record.
func (s *Service) Adjust(ctx context.Context, actor *shared.Actor, input AdjustInput) (StockAdjustment, error) {
	if actor == nil {
		return StockAdjustment{}, httpx.ErrUnauthorized
	}
	if !input.Type.Valid() {
		return StockAdjustment{}, ErrInvalidAdjustmentType
	}
	if input.QuantityDelta == 0 {
		return StockAdjustment{}, fmt.Errorf("%w: quantity delta must be non-zero", httpx.ErrValidation)
	}
	var adj StockAdjustment
	err := s.repo.WithTx(ctx, func(ctx context.Context, repo TxRepository) error {
		batch, err := repo.GetBatchForUpdate(ctx, input.BatchID)
		if err != nil {
			return err
		}
		if batch.OrganizationID != actor.OrganizationID {
			return ErrBatchNotFound
		}
		next := batch.Quantity + input.QuantityDelta
		if next < 0 {
			return ErrNegativeQuantity
		}
		if err := repo.SetBatchQuantity(ctx, batch.ID, next); err != nil {
			return err
		}
		adj = StockAdjustment{
			ID:             uuid.New(),
			OrganizationID: actor.OrganizationID,
			BranchID:       batch.BranchID,
			BatchID:        batch.ID,
			ProductID:      batch.ProductID,
			Type:           input.Type,
			QuantityDelta:  input.QuantityDelta,
			Reason:         input.Reason,
			AdjustedBy:     actor.UserID,
		}
		return repo.InsertAdjustment(ctx, adj)
	})
	if err != nil {
		return StockAdjustment{}, err
	}
	s.recordAudit(ctx, actor, "STOCK_ADJUST", adj.BatchID, map[string]any{
		"type": string(adj.Type), "delta": adj.QuantityDelta, "reason": adj.Reason,
	})
	return adj, nil
}

// ListAdjustments lists the adjustment trail for the organization.
func (s *Service) ListAdjustments(ctx context.Context, actor *shared.Actor, branchID *uuid.UUID) ([]StockAdjustment, error) {
	if actor == nil {
		return nil, httpx.ErrUnauthorized
	}
	return s.repo.ListAdjustments(ctx, actor.OrganizationID, branchID)
}

// Alerts bundles expiry and low stock warnings.
type Alerts struct {
	Expiring []ExpiryAlert   `json:"expiring"`
	LowStock []LowStockAlert `json:"lowStock"`
}

// Alerts returns batches expiring within the window plus products at or
// below their reorder point.
func (s *Service) Alerts(ctx context.Context, actor *shared.Actor, withinDays int) (Alerts, error) {
	if actor == nil {
		return Alerts{}, httpx.ErrUnauthorized
	}
	if withinDays <= 0 {
		withinDays = 30
	}
	now := s.now()
	cutoff := now.AddDate(0, 0, withinDays)
	batches, err := s.repo.ExpiringBatches(ctx, actor.OrganizationID, cutoff)
	if err != nil {
		return Alerts{}, err
	}
	expiring := make([]ExpiryAlert, 0, len(batches))
	for _, b := range batches {
		days := int(b.ExpiryDate.Sub(now).Hours() / 24)
		if days < 0 {
			days = 0
		}
		expiring = append(expiring, ExpiryAlert{Batch: b, DaysToExpiry: days})
	}
	low, err := s.repo.LowStock(ctx, actor.OrganizationID)
	if err != nil {
		return Alerts{}, err
	}
	return Alerts{Expiring: expiring, LowStock: low}, nil
}

func (s *Service) recordAudit(ctx context.Context, actor *shared.Actor, action string, entityID uuid.UUID, meta map[string]any) {
	if s.audit == nil {
		return
	}
	_ = s.audit.Record(ctx, shared.AuditLog{ActorID: actor.UserID, Action: action, Entity: "stock_batch", EntityID: entityID.String(), Meta: meta})
}
