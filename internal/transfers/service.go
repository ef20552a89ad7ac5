package transfers

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/pharmacore-erp/pharmacore/internal/inventory"
	"github.com/pharmacore-erp/pharmacore/internal/platform/httpx"
	"github.com/pharmacore-erp/pharmacore/internal/shared"
)

// BatchInfo is the slice of a stock batch the transfer path needs.
type BatchInfo struct {
	ID            uuid.UUID
	BatchNumber   string
	ExpiryDate    time.Time
	Quantity      int
	PurchasePrice float64
	SalePrice     float64
}

// TxRepository is the transactional slice of the repository.
type TxRepository interface {
	SelectBatchFEFO(ctx context.Context, branchID, productID uuid.UUID, quantity int) (BatchInfo, error)
	GetBatch(ctx context.Context, id uuid.UUID) (BatchInfo, error)
	DecrementBatch(ctx context.Context, batchID uuid.UUID, quantity int) error
	InsertStockBatch(ctx context.Context, b inventory.StockBatch) error
	InsertTransfer(ctx context.Context, tr TransferRequest) error
	InsertTransferLine(ctx context.Context, line TransferLine) error
	GetTransferForUpdate(ctx context.Context, id uuid.UUID) (TransferRequest, error)
	UpdateTransferStatus(ctx context.Context, id uuid.UUID, from, to TransferStatus, decidedBy uuid.UUID, decidedAt time.Time) error
}

// RepositoryPort describes the persistence operations used by Service.
type RepositoryPort interface {
	WithTx(ctx context.Context, fn func(ctx context.Context, repo TxRepository) error) error

	GetTransfer(ctx context.Context, id uuid.UUID) (TransferRequest, error)
	ListTransfers(ctx context.Context, organizationID uuid.UUID, status *TransferStatus) ([]TransferRequest, error)
}

// OrgPort verifies branch tenancy.
type OrgPort interface {
	BranchInOrganization(ctx context.Context, branchID, organizationID uuid.UUID) (bool, error)
}

// AuditPort records transfer events.
type AuditPort interface {
	Record(ctx context.Context, log shared.AuditLog) error
}

// Service moves stock between branches through a request and approval flow.
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

// TransferLineInput is one requested line.
type TransferLineInput struct {
	ProductID uuid.UUID
	Quantity  int
}

// CreateTransferInput describes the transfer request payload.
type CreateTransferInput struct {
	FromBranchID uuid.UUID
	ToBranchID   uuid.UUID
	Lines        []TransferLineInput
}

// CreateTransfer opens a pending transfer request. Each line is bound to the
// soonest-expiring source batch that can cover its quantity; the stock itself
// moves at approval.
func (s *Service) CreateTransfer(ctx context.Context, actor *shared.Actor, input CreateTransferInput) (TransferRequest, error) {
	if actor == nil {
		return TransferRequest{}, httpx.ErrUnauthorized
	}
	if len(input.Lines) == 0 {
		return TransferRequest{}, fmt.Errorf("%w: transfer requires at least one line", httpx.ErrValidation)
	}
	if input.FromBranchID == input.ToBranchID {
		return TransferRequest{}, ErrSameBranch
	}
	for _, branchID := range []uuid.UUID{input.FromBranchID, input.ToBranchID} {
		inOrg, err := s.org.BranchInOrganization(ctx, branchID, actor.OrganizationID)
		if err != nil {
			return TransferRequest{}, err
		}
		if !inOrg {
			return TransferRequest{}, ErrBranchOutsideOrg
		}
	}

	tr := TransferRequest{
		ID:             uuid.New(),
		OrganizationID: actor.OrganizationID,
		FromBranchID:   input.FromBranchID,
		ToBranchID:     input.ToBranchID,
		Status:         StatusPending,
		RequestedBy:    actor.UserID,
	}
	err := s.repo.WithTx(ctx, func(ctx context.Context, repo TxRepository) error {
		for _, line := range input.Lines {
			if line.Quantity <= 0 {
				return fmt.Errorf("%w: line quantity must be positive", httpx.ErrValidation)
			}
			batch, err := repo.SelectBatchFEFO(ctx, input.FromBranchID, line.ProductID, line.Quantity)
			if err != nil {
				return err
			}
			tr.Lines = append(tr.Lines, TransferLine{
				ID:         uuid.New(),
				TransferID: tr.ID,
				ProductID:  line.ProductID,
				BatchID:    batch.ID,
				Quantity:   line.Quantity,
			})
		}
		if err := repo.InsertTransfer(ctx, tr); err != nil {
			return err
		}
		for _, line := range tr.Lines {
			if err := repo.InsertTransferLine(ctx, line); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return TransferRequest{}, err
	}
	s.recordAudit(ctx, actor, "TRANSFER_CREATE", tr.ID, map[string]any{"lines": len(tr.Lines)})
	return tr, nil
}

// ApproveTransfer executes a pending transfer. Source batches are decremented
// and mirrored batches with the same number, expiry and prices appear at the
// destination branch. Only pending requests can be approved.
func (s *Service) ApproveTransfer(ctx context.Context, actor *shared.Actor, id uuid.UUID) (TransferRequest, error) {
	if actor == nil {
		return TransferRequest{}, httpx.ErrUnauthorized
	}
	var approved TransferRequest
	decidedAt := s.now()
	err := s.repo.WithTx(ctx, func(ctx context.Context, repo TxRepository) error {
		tr, err := repo.GetTransferForUpdate(ctx, id)
		if err != nil {
			return err
		}
		if tr.OrganizationID != actor.OrganizationID {
			return ErrTransferNotFound
		}
		if tr.Status != StatusPending {
			return ErrNotPending
		}
		for _, line := range tr.Lines {
			source, err := repo.GetBatch(ctx, line.BatchID)
			if err != nil {
				return err
			}
			if err := repo.DecrementBatch(ctx, line.BatchID, line.Quantity); err != nil {
				return err
			}
			mirror := inventory.StockBatch{
				ID:             uuid.New(),
				OrganizationID: tr.OrganizationID,
				BranchID:       tr.ToBranchID,
				ProductID:      line.ProductID,
				BatchNumber:    source.BatchNumber,
				ExpiryDate:     source.ExpiryDate,
				Quantity:       line.Quantity,
				PurchasePrice:  source.PurchasePrice,
				SalePrice:      source.SalePrice,
			}
			if err := repo.InsertStockBatch(ctx, mirror); err != nil {
				return err
			}
		}
		if err := repo.UpdateTransferStatus(ctx, tr.ID, StatusPending, StatusCompleted, actor.UserID, decidedAt); err != nil {
			return err
		}
		tr.Status = StatusCompleted
		tr.DecidedBy = &actor.UserID
		tr.DecidedAt = &decidedAt
		approved = tr
		return nil
	})
	if err != nil {
		return TransferRequest{}, err
	}
	s.recordAudit(ctx, actor, "TRANSFER_APPROVE", approved.ID, nil)
	return approved, nil
}

// RejectTransfer declines a pending transfer. Stock is untouched.
func (s *Service) RejectTransfer(ctx context.Context, actor *shared.Actor, id uuid.UUID) error {
	if actor == nil {
		return httpx.ErrUnauthorized
	}
	decidedAt := s.now()
	err := s.repo.WithTx(ctx, func(ctx context.Context, repo TxRepository) error {
		tr, err := repo.GetTransferForUpdate(ctx, id)
		if err != nil {
			return err
		}
		if tr.OrganizationID != actor.OrganizationID {
			return ErrTransferNotFound
		}
		if tr.Status != StatusPending {
			return ErrNotPending
		}
		return repo.UpdateTransferStatus(ctx, tr.ID, StatusPending, StatusRejected, actor.UserID, decidedAt)
	})
	if err != nil {
		return err
	}
	s.recordAudit(ctx, actor, "TRANSFER_REJECT", id, nil)
	return nil
}

// GetTransfer fetches a transfer in the actor's organization.
func (s *Service) GetTransfer(ctx context.Context, actor *shared.Actor, id uuid.UUID) (TransferRequest, error) {
	tr, err := s.repo.GetTransfer(ctx, id)
	if err != nil {
		return TransferRequest{}, err
	}
	if actor == nil || tr.OrganizationID != actor.OrganizationID {
		return TransferRequest{}, ErrTransferNotFound
	}
	return tr, nil
}

// ListTransfers lists transfers in the actor's organization.
func (s *Service) ListTransfers(ctx context.Context, actor *shared.Actor, status *TransferStatus) ([]TransferRequest, error) {
	if actor == nil {
		return nil, httpx.ErrUnauthorized
	}
	return s.repo.ListTransfers(ctx, actor.OrganizationID, status)
}

func (s *Service) recordAudit(ctx context.Context, actor *shared.Actor, action string, entityID uuid.UUID, meta map[string]any) {
	if s.audit == nil {
		return
	}
	_ = s.audit.Record(ctx, shared.AuditLog{ActorID: actor.UserID, Action: action, Entity: "transfer_request", EntityID: entityID.String(), Meta: meta})
}
