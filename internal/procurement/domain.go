package procurement

import (
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/pharmacore-erp/pharmacore/internal/platform/httpx"
)

// OrderStatus tracks a purchase order through its lifecycle.
type OrderStatus string

const (
	StatusDraft             OrderStatus = "Draft"
	StatusSubmitted         OrderStatus = "Submitted"
	StatusReceived          OrderStatus = "Received"
	StatusPartiallyReceived OrderStatus = "PartiallyReceived"
	StatusCancelled         OrderStatus = "Cancelled"
)

// PurchaseOrder is an order placed with a distribution.
type PurchaseOrder struct {
	ID             uuid.UUID
	OrganizationID uuid.UUID
	BranchID       uuid.UUID
	DistributionID uuid.UUID
	OrderNumber    string
	Status         OrderStatus
	TotalAmount    float64
	CreatedBy      uuid.UUID
	CreatedAt      time.Time
	ReceivedAt     *time.Time
	Lines          []OrderLine
}

// OrderLine is one product on a purchase order. ManufacturerID is the maker
// the line was sourced from, which may differ from the product's default.
type OrderLine struct {
	ID              uuid.UUID
	PurchaseOrderID uuid.UUID
	ProductID       uuid.UUID
	ManufacturerID  uuid.UUID
	Quantity        int
	UnitPrice       float64
	LineTotal       float64
}

// Payment is money paid to the distribution against an order.
type Payment struct {
	ID              uuid.UUID
	OrganizationID  uuid.UUID
	PurchaseOrderID uuid.UUID
	Amount          float64
	Method          string
	Reference       string
	RecordedBy      uuid.UUID
	CreatedAt       time.Time
}

var (
	ErrOrderNotFound    = fmt.Errorf("%w: purchase order", httpx.ErrNotFound)
	ErrNotReceivable    = fmt.Errorf("%w: order is not in a receivable state", httpx.ErrInvalidState)
	ErrNotCancellable   = fmt.Errorf("%w: order can no longer be cancelled", httpx.ErrInvalidState)
	ErrSupplierMismatch = fmt.Errorf("%w: manufacturer not supplied by this distribution", httpx.ErrValidation)
	ErrBranchOutsideOrg = fmt.Errorf("%w: branch does not belong to your organization", httpx.ErrValidation)
)
