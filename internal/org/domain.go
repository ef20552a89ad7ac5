package org

import (
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/pharmacore-erp/pharmacore/internal/platform/httpx"
)

// Organization is the tenant root. Every user, branch and record hangs off one.
type Organization struct {
	ID        uuid.UUID
	Name      string
	Address   string
	Phone     string
	Email     string
	CreatedAt time.Time
}

// Branch is a physical pharmacy location within an organization.
type Branch struct {
	ID             uuid.UUID
	OrganizationID uuid.UUID
	Name           string
	Address        string
	Phone          string
	IsActive       bool
	CreatedAt      time.Time
}

var (
	ErrOrganizationNotFound = fmt.Errorf("%w: organization", httpx.ErrNotFound)
	ErrBranchNotFound       = fmt.Errorf("%w: branch", httpx.ErrNotFound)
	ErrBranchLimitReached   = fmt.Errorf("%w: branch limit reached for your license", httpx.ErrValidation)
)
