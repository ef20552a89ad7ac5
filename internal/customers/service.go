package customers

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
	Create(ctx context.Context, c Customer) error
	Get(ctx context.Context, id uuid.UUID) (Customer, error)
	List(ctx context.Context, organizationID uuid.UUID, search string) ([]Customer, error)
	Update(ctx context.Context, c Customer) error
}

// AuditPort records customer mutations.
type AuditPort interface {
	Record(ctx context.Context, log shared.AuditLog) error
}

// Service manages the customer register.
type Service struct {
	repo  RepositoryPort
	audit AuditPort
}

// NewService builds Service.
func NewService(repo RepositoryPort, audit AuditPort) *Service {
	return &Service{repo: repo, audit: audit}
}

// CustomerInput describes the create/update payload.
type CustomerInput struct {
	Name        string
	Phone       string
	CNIC        string
	Email       string
	Address     string
	CreditLimit float64
}

// Create registers a customer in the actor's organization.
func (s *Service) Create(ctx context.Context, actor *shared.Actor, input CustomerInput) (Customer, error) {
	if actor == nil {
		return Customer{}, httpx.ErrUnauthorized
	}
	if strings.TrimSpace(input.Name) == "" {
		return Customer{}, fmt.Errorf("%w: customer name required", httpx.ErrValidation)
	}
	if input.CreditLimit < 0 {
		return Customer{}, fmt.Errorf("%w: credit limit must be >= 0", httpx.ErrValidation)
	}
	c := Customer{
		ID:             uuid.New(),
		OrganizationID: actor.OrganizationID,
		Name:           input.Name,
		Phone:          input.Phone,
		CNIC:           input.CNIC,
		Email:          input.Email,
		Address:        input.Address,
		CreditLimit:    input.CreditLimit,
	}
	if err := s.repo.Create(ctx, c); err != nil {
		return Customer{}, err
	}
	s.recordAudit(ctx, actor, "CUSTOMER_CREATE", c.ID, map[string]any{"name": c.Name})
	return c, nil
}

// Get fetches a customer, rejecting access across organizations.
func (s *Service) Get(ctx context.Context, actor *shared.Actor, id uuid.UUID) (Customer, error) {
	c, err := s.repo.Get(ctx, id)
	if err != nil {
		return Customer{}, err
	}
	if actor == nil || c.OrganizationID != actor.OrganizationID {
		return Customer{}, ErrCustomerNotFound
	}
	return c, nil
}

// List searches customers by name, phone or CNIC, ordered by name.
func (s *Service) List(ctx context.Context, actor *shared.Actor, search string) ([]Customer, error) {
	if actor == nil {
		return nil, httpx.ErrUnauthorized
	}
	return s.repo.List(ctx, actor.OrganizationID, strings.TrimSpace(search))
}

// Update rewrites a customer's contact details.
func (s *Service) Update(ctx context.Context, actor *shared.Actor, id uuid.UUID, input CustomerInput) (Customer, error) {
	c, err := s.Get(ctx, actor, id)
	if err != nil {
		return Customer{}, err
	}
	if strings.TrimSpace(input.Name) == "" {
		return Customer{}, fmt.Errorf("%w: customer name required", httpx.ErrValidation)
	}
	if input.CreditLimit < 0 {
		return Customer{}, fmt.Errorf("%w: credit limit must be >= 0", httpx.ErrValidation)
	}
	c.Name = input.Name
	c.Phone = input.Phone
	c.CNIC = input.CNIC
	c.Email = input.Email
	c.Address = input.Address
	c.CreditLimit = input.CreditLimit
	if err := s.repo.Update(ctx, c); err != nil {
		return Customer{}, err
	}
	s.recordAudit(ctx, actor, "CUSTOMER_UPDATE", c.ID, map[string]any{"name": c.Name})
	return c, nil
}

// CustomerInOrganization reports whether the customer belongs to the
// organization. The sale path uses it to validate customer references.
func (s *Service) CustomerInOrganization(ctx context.Context, customerID, organizationID uuid.UUID) (bool, error) {
	c, err := s.repo.Get(ctx, customerID)
	if err != nil {
		return false, err
	}
	return c.OrganizationID == organizationID, nil
}

func (s *Service) recordAudit(ctx context.Context, actor *shared.Actor, action string, entityID uuid.UUID, meta map[string]any) {
	if s.audit == nil {
		return
	}
	_ = s.audit.Record(ctx, shared.AuditLog{ActorID: actor.UserID, Action: action, Entity: "customer", EntityID: entityID.String(), Meta: meta})
}
