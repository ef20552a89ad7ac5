package org

import (
	"context"
	"fmt"
	"strings"

	"github.com/google/uuid"

	"github.com/pharmacore-erp/pharmacore/internal/platform/httpx"
	"github.com/pharmacore-erp/pharmacore/internal/shared"
)

// RepositoryPort describes the persistence operations used by Service.
type RepositoryPort interface {
	CreateOrganization(ctx context.Context, o Organization) error
	GetOrganization(ctx context.Context, id uuid.UUID) (Organization, error)

	CreateBranch(ctx context.Context, b Branch) error
	GetBranch(ctx context.Context, id uuid.UUID) (Branch, error)
	ListBranches(ctx context.Context, organizationID uuid.UUID) ([]Branch, error)
	CountBranches(ctx context.Context, organizationID uuid.UUID) (int, error)
}

// LicensePort answers how many branches the organization's license allows.
type LicensePort interface {
	MaxBranches(ctx context.Context, organizationID uuid.UUID) (int, error)
}

// AuditPort records org mutations.
type AuditPort interface {
	Record(ctx context.Context, log shared.AuditLog) error
}

// Service manages organizations and their branches.
type Service struct {
	repo    RepositoryPort
	license LicensePort
	audit   AuditPort
}

// NewService builds Service.
func NewService(repo RepositoryPort, license LicensePort, audit AuditPort) *Service {
	return &Service{repo: repo, license: license, audit: audit}
}

// CreateOrganizationInput describes creation payload.
type CreateOrganizationInput struct {
	Name    string
	Address string
	Phone   string
	Email   string
}

// CreateOrganization registers a new tenant.
func (s *Service) CreateOrganization(ctx context.Context, input CreateOrganizationInput) (Organization, error) {
	if strings.TrimSpace(input.Name) == "" {
		return Organization{}, fmt.Errorf("%w: organization name required", httpx.ErrValidation)
	}
	o := Organization{ID: uuid.New(), Name: input.Name, Address: input.Address, Phone: input.Phone, Email: input.Email}
	if err := s.repo.CreateOrganization(ctx, o); err != nil {
		return Organization{}, err
	}
	return o, nil
}

// GetOrganization fetches one tenant.
func (s *Service) GetOrganization(ctx context.Context, id uuid.UUID) (Organization, error) {
	return s.repo.GetOrganization(ctx, id)
}

// CreateBranchInput describes creation payload.
type CreateBranchInput struct {
	Name    string
	Address string
	Phone   string
}

// CreateBranch adds a branch to the actor's organization. The count of
// existing branches is checked against the license limit first.
func (s *Service) CreateBranch(ctx context.Context, actor *shared.Actor, input CreateBranchInput) (Branch, error) {
	if actor == nil {
		return Branch{}, httpx.ErrUnauthorized
	}
	if strings.TrimSpace(input.Name) == "" {
		return Branch{}, fmt.Errorf("%w: branch name required", httpx.ErrValidation)
	}
	if _, err := s.repo.GetOrganization(ctx, actor.OrganizationID); err != nil {
		return Branch{}, err
	}
	count, err := s.repo.CountBranches(ctx, actor.OrganizationID)
	if err != nil {
		return Branch{}, err
	}
	max, err := s.license.MaxBranches(ctx, actor.OrganizationID)
	if err != nil {
		return Branch{}, err
	}
	if count >= max {
		return Branch{}, ErrBranchLimitReached
	}
	b := Branch{
		ID:             uuid.New(),
		OrganizationID: actor.OrganizationID,
		Name:           input.Name,
		Address:        input.Address,
		Phone:          input.Phone,
		IsActive:       true,
	}
	if err := s.repo.CreateBranch(ctx, b); err != nil {
		return Branch{}, err
	}
	s.recordAudit(ctx, actor, "BRANCH_CREATE", b.ID, map[string]any{"name": b.Name})
	return b, nil
}

// ListBranches lists the actor's organization branches.
func (s *Service) ListBranches(ctx context.Context, actor *shared.Actor) ([]Branch, error) {
	if actor == nil {
		return nil, httpx.ErrUnauthorized
	}
	return s.repo.ListBranches(ctx, actor.OrganizationID)
}

// GetBranch fetches a branch, rejecting access across organizations.
func (s *Service) GetBranch(ctx context.Context, actor *shared.Actor, id uuid.UUID) (Branch, error) {
	b, err := s.repo.GetBranch(ctx, id)
	if err != nil {
		return Branch{}, err
	}
	if actor == nil || b.OrganizationID != actor.OrganizationID {
		return Branch{}, ErrBranchNotFound
	}
	return b, nil
}

// BranchInOrganization reports whether the branch belongs to the organization.
func (s *Service) BranchInOrganization(ctx context.Context, branchID, organizationID uuid.UUID) (bool, error) {
	b, err := s.repo.GetBranch(ctx, branchID)
	if err != nil {
		return false, err
	}
	return b.OrganizationID == organizationID, nil
}

func (s *Service) recordAudit(ctx context.Context, actor *shared.Actor, action string, entityID uuid.UUID, meta map[string]any) {
	if s.audit == nil {
		return
	}
	_ = s.audit.Record(ctx, shared.AuditLog{ActorID: actor.UserID, Action: action, Entity: "branch", EntityID: entityID.String(), Meta: meta})
}
