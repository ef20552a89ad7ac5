package transfers

import (
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/pharmacore-erp/pharmacore/internal/platform/httpx"
)

// TransferStatus tracks a transfer request through its lifecycle. Approval
// moves stock immediately, so an approved request lands as Completed.
type TransferStatus string

const (
	StatusPending   TransferStatus = "Pending"
	StatusRejected  TransferStatus = "Rejected"
	StatusCompleted TransferStatus = "Completed"
)

// TransferRequest moves stock between two branches of one organization.
type TransferRequest struct {
	ID             uuid.UUID
	OrganizationID uuid.UUID
	FromBranchID   uuid.UUID
	ToBranchID     uuid.UUID
	Status         TransferStatus
	RequestedBy    uuid.UUID
	DecidedBy      *uuid.UUID
	CreatedAt      time.Time
	DecidedAt      *time.Time
	Lines          []TransferLine
}

// TransferLine is one product on a transfer, bound to a source batch at
// request time.
type TransferLine struct {
	ID         uuid.UUID
	TransferID uuid.UUID
	ProductID  uuid.UUID
	BatchID    uuid.UUID
	Quantity   int
}

var (
	ErrTransferNotFound = fmt.Errorf("%w: transfer request", httpx.ErrNotFound)
	ErrNotPending       = fmt.Errorf("%w: transfer request already decided", httpx.ErrInvalidState)
	ErrNoStock          = fmt.Errorf("%w: no batch can cover the requested quantity", httpx.ErrInsufficientStock)
	ErrSameBranch       = fmt.Errorf("%w: source and destination branch must differ", httpx.ErrValidation)
	ErrBranchOutsideOrg = fmt.Errorf("%w: branch does not belong to your organization", httpx.ErrValidation)
)
