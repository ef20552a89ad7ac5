package licensing

import (
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/pharmacore-erp/pharmacore/internal/platform/httpx"
)

// LicenseType determines the branch allowance tier.
type LicenseType string

const (
	LicenseTrial      LicenseType = "Trial"
	LicenseSingle     LicenseType = "SingleBranch"
	LicenseMulti      LicenseType = "MultiBranch"
	LicenseEnterprise LicenseType = "Enterprise"
)

// License entitles an organization to use the system for a date window.
type License struct {
	ID             uuid.UUID
	OrganizationID uuid.UUID
	Key            string
	Type           LicenseType
	MaxBranches    int
	StartDate      time.Time
	EndDate        time.Time
	IsActive       bool
	ActivatedAt    *time.Time
	CreatedAt      time.Time
}

// ValidAt reports whether the license authorizes use at the given instant.
func (l License) ValidAt(now time.Time) bool {
	if !l.IsActive || l.ActivatedAt == nil {
		return false
	}
	return !now.Before(l.StartDate) && !now.After(l.EndDate)
}

var (
	ErrLicenseNotFound = fmt.Errorf("%w: license", httpx.ErrNotFound)
	ErrLicenseInvalid  = fmt.Errorf("%w: license inactive or expired", httpx.ErrForbidden)
)
