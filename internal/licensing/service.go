package licensing

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"

	"github.com/pharmacore-erp/pharmacore/internal/platform/httpx"
	"github.com/pharmacore-erp/pharmacore/internal/shared"
)

// RepositoryPort describes the persistence operations used by Service.
type RepositoryPort interface {
	GetByOrganization(ctx context.Context, organizationID uuid.UUID) (License, error)
	GetByKey(ctx context.Context, key string) (License, error)
	Activate(ctx context.Context, id uuid.UUID, at time.Time) error
	CountBranches(ctx context.Context, organizationID uuid.UUID) (int, error)
}

// AuditPort records license events.
type AuditPort interface {
	Record(ctx context.Context, log shared.AuditLog) error
}

// Service validates and activates licenses. Validation results are cached in
// redis briefly since the gate middleware runs on every request.
type Service struct {
	repo     RepositoryPort
	cache    *redis.Client
	audit    AuditPort
	cacheTTL time.Duration
	now      func() time.Time
}

// NewService builds Service. cache may be nil, in which case every validation
// hits the database.
func NewService(repo RepositoryPort, cache *redis.Client, audit AuditPort, cacheTTL time.Duration) *Service {
	return &Service{repo: repo, cache: cache, audit: audit, cacheTTL: cacheTTL, now: time.Now}
}

// Status describes the organization's license standing.
type Status struct {
	Type        LicenseType `json:"type"`
	Valid       bool        `json:"valid"`
	IsActive    bool        `json:"isActive"`
	ActivatedAt *time.Time  `json:"activatedAt,omitempty"`
	StartDate   time.Time   `json:"startDate"`
	EndDate     time.Time   `json:"endDate"`
	MaxBranches int         `json:"maxBranches"`
	Branches    int         `json:"branches"`
}

// Activate binds the license key to the actor's organization. Re-activating
// an already active license is a no-op.
func (s *Service) Activate(ctx context.Context, actor *shared.Actor, key string) (Status, error) {
	if actor == nil {
		return Status{}, httpx.ErrUnauthorized
	}
	key = strings.TrimSpace(key)
	if key == "" {
		return Status{}, fmt.Errorf("%w: license key required", httpx.ErrValidation)
	}
	lic, err := s.repo.GetByKey(ctx, key)
	if err != nil {
		return Status{}, err
	}
	if lic.OrganizationID != actor.OrganizationID {
		return Status{}, ErrLicenseNotFound
	}
	if !lic.IsActive || lic.ActivatedAt == nil {
		if err := s.repo.Activate(ctx, lic.ID, s.now()); err != nil {
			return Status{}, err
		}
		s.invalidate(ctx, actor.OrganizationID)
		if s.audit != nil {
			_ = s.audit.Record(ctx, shared.AuditLog{
				ActorID: actor.UserID, Action: "LICENSE_ACTIVATE", Entity: "license", EntityID: lic.ID.String(),
				Meta: map[string]any{"type": string(lic.Type)},
			})
		}
	}
	return s.GetStatus(ctx, actor.OrganizationID)
}

// GetStatus reports the license standing including branch usage.
func (s *Service) GetStatus(ctx context.Context, organizationID uuid.UUID) (Status, error) {
	lic, err := s.repo.GetByOrganization(ctx, organizationID)
	if err != nil {
		return Status{}, err
	}
	branches, err := s.repo.CountBranches(ctx, organizationID)
	if err != nil {
		return Status{}, err
	}
	return Status{
		Type:        lic.Type,
		Valid:       lic.ValidAt(s.now()),
		IsActive:    lic.IsActive,
		ActivatedAt: lic.ActivatedAt,
		StartDate:   lic.StartDate,
		EndDate:     lic.EndDate,
		MaxBranches: lic.MaxBranches,
		Branches:    branches,
	}, nil
}

// Validate returns nil when the organization holds a currently valid license.
func (s *Service) Validate(ctx context.Context, organizationID uuid.UUID) error {
	if cached, ok := s.cachedValidity(ctx, organizationID); ok {
		if cached {
			return nil
		}
		return ErrLicenseInvalid
	}
	lic, err := s.repo.GetByOrganization(ctx, organizationID)
	if err != nil {
		return ErrLicenseInvalid
	}
	valid := lic.ValidAt(s.now())
	s.storeValidity(ctx, organizationID, valid)
	if !valid {
		return ErrLicenseInvalid
	}
	return nil
}

// MaxBranches implements the branch allowance lookup used at branch creation.
func (s *Service) MaxBranches(ctx context.Context, organizationID uuid.UUID) (int, error) {
	lic, err := s.repo.GetByOrganization(ctx, organizationID)
	if err != nil {
		return 0, err
	}
	return lic.MaxBranches, nil
}

func cacheKey(organizationID uuid.UUID) string {
	return "license:valid:" + organizationID.String()
}

func (s *Service) cachedValidity(ctx context.Context, organizationID uuid.UUID) (valid, ok bool) {
	if s.cache == nil {
		return false, false
	}
	val, err := s.cache.Get(ctx, cacheKey(organizationID)).Result()
	if err != nil {
		return false, false
	}
	return val == "1", true
}

func (s *Service) storeValidity(ctx context.Context, organizationID uuid.UUID, valid bool) {
	if s.cache == nil {
		return
	}
	val := "0"
	if valid {
		val = "1"
	}
	s.cache.Set(ctx, cacheKey(organizationID), val, s.cacheTTL)
}

func (s *Service) invalidate(ctx context.Context, organizationID uuid.UUID) {
	if s.cache == nil {
		return
	}
	s.cache.Del(ctx, cacheKey(organizationID))
}
