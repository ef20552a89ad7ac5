package auth

import (
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/pharmacore-erp/pharmacore/internal/platform/httpx"
)

// Role is the coarse permission tier assigned to a user.
type Role string

const (
	RoleAdmin      Role = "Admin"
	RoleManager    Role = "Manager"
	RolePharmacist Role = "Pharmacist"
	RoleCashier    Role = "Cashier"
)

// Valid reports whether the role is a known value.
func (r Role) Valid() bool {
	switch r {
	case RoleAdmin, RoleManager, RolePharmacist, RoleCashier:
		return true
	}
	return false
}

// User is a staff account scoped to an organization, optionally pinned to a branch.
type User struct {
	ID             uuid.UUID
	OrganizationID uuid.UUID
	BranchID       *uuid.UUID
	Email          string
	Name           string
	PasswordHash   string
	Role           Role
	IsActive       bool
	CreatedAt      time.Time
}

var (
	ErrInvalidCredentials = fmt.Errorf("%w: invalid email or password", httpx.ErrUnauthorized)
	ErrUserNotFound       = fmt.Errorf("%w: user", httpx.ErrNotFound)
	ErrEmailTaken         = fmt.Errorf("%w: email already registered", httpx.ErrDuplicate)
	ErrInvalidRole        = fmt.Errorf("%w: unknown role", httpx.ErrValidation)
	ErrUserDisabled       = fmt.Errorf("%w: account disabled", httpx.ErrUnauthorized)
)
