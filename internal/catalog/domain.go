package catalog

import (
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/pharmacore-erp/pharmacore/internal/platform/httpx"
)

// Schedule classifies a drug for regulatory purposes.
type Schedule string

const (
	// ScheduleOTC marks over-the-counter products.
	ScheduleOTC Schedule = "OTC"
	// SchedulePrescription marks prescription-only products.
	SchedulePrescription Schedule = "PRESCRIPTION"
	// ScheduleH marks controlled substances requiring identity capture at sale.
	ScheduleH Schedule = "SCHEDULE_H"
)

// Valid reports whether the schedule is a known value.
func (s Schedule) Valid() bool {
	switch s {
	case ScheduleOTC, SchedulePrescription, ScheduleH:
		return true
	}
	return false
}

// Manufacturer is a pharmaceutical company whose products are carried.
type Manufacturer struct {
	ID          uuid.UUID
	Name        string
	ContactInfo string
	Address     string
	CreatedAt   time.Time
}

// Distribution is a wholesaler supplying products from one or more manufacturers.
type Distribution struct {
	ID        uuid.UUID
	Name      string
	Contact   string
	Address   string
	Phone     string
	CreatedAt time.Time
}

// DistributionCompany links a distribution to a manufacturer it supplies.
// The (DistributionID, ManufacturerID) pair is unique.
type DistributionCompany struct {
	ID             uuid.UUID
	DistributionID uuid.UUID
	ManufacturerID uuid.UUID
}

// ProductForm is a configurable dosage form (Tablet, Capsule, Injection...).
type ProductForm struct {
	ID           uuid.UUID
	Name         string
	DisplayOrder int
	IsActive     bool
}

// Product is a drug in the catalog.
type Product struct {
	ID                  uuid.UUID
	ManufacturerID      uuid.UUID
	Name                string
	GenericName         string
	Strength            string
	ProductFormID       *uuid.UUID
	Schedule            Schedule
	Barcode             string
	TherapeuticCategory string
	ReorderPoint        int
	SalePrice           float64
	IsActive            bool
	CreatedAt           time.Time
}

// Sentinel errors wrap the httpx taxonomy so handlers map them uniformly.
var (
	ErrManufacturerNotFound = fmt.Errorf("%w: manufacturer", httpx.ErrNotFound)
	ErrDistributionNotFound = fmt.Errorf("%w: distribution", httpx.ErrNotFound)
	ErrProductNotFound      = fmt.Errorf("%w: product", httpx.ErrNotFound)
	ErrProductFormNotFound  = fmt.Errorf("%w: product form", httpx.ErrNotFound)
	ErrInvalidSchedule      = fmt.Errorf("%w: unknown schedule", httpx.ErrValidation)
	ErrCompanyExists        = fmt.Errorf("%w: manufacturer already linked to distribution", httpx.ErrDuplicate)
)
