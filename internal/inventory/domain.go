package inventory

import (
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/pharmacore-erp/pharmacore/internal/platform/httpx"
)

// AdjustmentType classifies why stock was manually adjusted.
type AdjustmentType string

const (
	AdjustmentDamage     AdjustmentType = "Damage"
	AdjustmentExpiry     AdjustmentType = "Expiry"
	AdjustmentTheft      AdjustmentType = "Theft"
	AdjustmentCorrection AdjustmentType = "Correction"
)

// Valid reports whether the adjustment type is a known value.
func (t AdjustmentType) Valid() bool {
	switch t {
	case AdjustmentDamage, AdjustmentExpiry, AdjustmentTheft, AdjustmentCorrection:
		return true
	}
	return false
}

// StockBatch is a lot of a product held at a branch. Quantity never goes
// negative. Sales and transfers consume batches in FEFO order.
type StockBatch struct {
	ID             uuid.UUID
	OrganizationID uuid.UUID
	BranchID       uuid.UUID
	ProductID      uuid.UUID
	BatchNumber    string
	ExpiryDate     time.Time
	Quantity       int
	PurchasePrice  float64
	SalePrice      float64
	CreatedAt      time.Time
}

// StockAdjustment is the immutable record written for every manual stock change.
type StockAdjustment struct {
	ID             uuid.UUID
	OrganizationID uuid.UUID
	BranchID       uuid.UUID
	BatchID        uuid.UUID
	ProductID      uuid.UUID
	Type           AdjustmentType
	QuantityDelta  int
	Reason         string
	AdjustedBy     uuid.UUID
	CreatedAt      time.Time
}

// ExpiryAlert flags a batch approaching its expiry date.
type ExpiryAlert struct {
	Batch        StockBatch
	DaysToExpiry int
}

// LowStockAlert flags a product whose total on-hand quantity at a branch has
// fallen to or below its reorder point.
type LowStockAlert struct {
	ProductID    uuid.UUID
	BranchID     uuid.UUID
	ProductName  string
	TotalOnHand  int
	ReorderPoint int
}

var (
	ErrBatchNotFound         = fmt.Errorf("%w: stock batch", httpx.ErrNotFound)
	ErrBranchOutsideOrg      = fmt.Errorf("%w: branch does not belong to your organization", httpx.ErrValidation)
	ErrInsufficientStock     = fmt.Errorf("%w: batch quantity too low", httpx.ErrInsufficientStock)
	ErrNegativeQuantity      = fmt.Errorf("%w: adjustment would drive quantity negative", httpx.ErrValidation)
	ErrInvalidAdjustmentType = fmt.Errorf("%w: unknown adjustment type", httpx.ErrValidation)
)
