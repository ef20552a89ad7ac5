package auth

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"golang.org/x/crypto/bcrypt"

	"github.com/pharmacore-erp/pharmacore/internal/platform/httpx"
	"github.com/pharmacore-erp/pharmacore/internal/shared"
)

// RepositoryPort describes the persistence operations used by Service.
type RepositoryPort interface {
	CreateUser(ctx context.Context, u User) error
	GetUserByEmail(ctx context.Context, email string) (User, error)
	GetUser(ctx context.Context, id uuid.UUID) (User, error)
	ListUsers(ctx context.Context, organizationID uuid.UUID) ([]User, error)
	SetUserActive(ctx context.Context, id uuid.UUID, active bool) error
}

// AuditPort records authentication events.
type AuditPort interface {
	Record(ctx context.Context, log shared.AuditLog) error
}

// Service authenticates users and manages staff accounts.
type Service struct {
	repo   RepositoryPort
	tokens *TokenManager
	audit  AuditPort
	now    func() time.Time
}

// NewService builds Service.
func NewService(repo RepositoryPort, tokens *TokenManager, audit AuditPort) *Service {
	return &Service{repo: repo, tokens: tokens, audit: audit, now: time.Now}
}

// LoginResult carries the signed token and the authenticated user.
type LoginResult struct {
	Token string
	User  User
}

// Login verifies credentials and issues a token. License enforcement happens
// at the gate middleware so an expired tenant can still sign in to activate.
func (s *Service) Login(ctx context.Context, email, password string) (LoginResult, error) {
	email = strings.ToLower(strings.TrimSpace(email))
	user, err := s.repo.GetUserByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, httpx.ErrNotFound) {
			return LoginResult{}, ErrInvalidCredentials
		}
		return LoginResult{}, err
	}
	if err := bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(password)); err != nil {
		return LoginResult{}, ErrInvalidCredentials
	}
	if !user.IsActive {
		return LoginResult{}, ErrUserDisabled
	}
	token, err := s.tokens.Issue(user, s.now())
	if err != nil {
		return LoginResult{}, fmt.Errorf("auth: sign token: %w", err)
	}
	s.recordAudit(ctx, user, "USER_LOGIN", nil)
	return LoginResult{Token: token, User: user}, nil
}

// CreateUserInput describes the staff account creation payload.
type CreateUserInput struct {
	Email    string
	Name     string
	Password string
	Role     Role
	BranchID *uuid.UUID
}

// CreateUser registers a staff account inside the actor's organization.
func (s *Service) CreateUser(ctx context.Context, actor *shared.Actor, input CreateUserInput) (User, error) {
	if actor == nil {
		return User{}, httpx.ErrUnauthorized
	}
	email := strings.ToLower(strings.TrimSpace(input.Email))
	if email == "" {
		return User{}, fmt.Errorf("%w: email required", httpx.ErrValidation)
	}
	if len(input.Password) < 8 {
		return User{}, fmt.Errorf("%w: password must be at least 8 characters", httpx.ErrValidation)
	}
	if !input.Role.Valid() {
		return User{}, ErrInvalidRole
	}
	if _, err := s.repo.GetUserByEmail(ctx, email); err == nil {
		return User{}, ErrEmailTaken
	} else if !errors.Is(err, httpx.ErrNotFound) {
		return User{}, err
	}
	hash, err := bcrypt.GenerateFromPassword([]byte(input.Password), bcrypt.DefaultCost)
	if err != nil {
		return User{}, fmt.Errorf("auth: hash password: %w", err)
	}
	u := User{
		ID:             uuid.New(),
		OrganizationID: actor.OrganizationID,
		BranchID:       input.BranchID,
		Email:          email,
		Name:           input.Name,
		PasswordHash:   string(hash),
		Role:           input.Role,
		IsActive:       true,
	}
	if err := s.repo.CreateUser(ctx, u); err != nil {
		return User{}, err
	}
	s.recordAudit(ctx, u, "USER_CREATE", map[string]any{"created_by": actor.UserID.String(), "role": string(u.Role)})
	return u, nil
}

// RegisterOrganizationInput bootstraps a tenant with its first admin account.
type RegisterOrganizationInput struct {
	OrganizationID uuid.UUID
	Email          string
	Name           string
	Password       string
}

// RegisterAdmin creates the initial admin user for a freshly created organization.
func (s *Service) RegisterAdmin(ctx context.Context, input RegisterOrganizationInput) (User, error) {
	email := strings.ToLower(strings.TrimSpace(input.Email))
	if email == "" {
		return User{}, fmt.Errorf("%w: email required", httpx.ErrValidation)
	}
	if len(input.Password) < 8 {
		return User{}, fmt.Errorf("%w: password must be at least 8 characters", httpx.ErrValidation)
	}
	if _, err := s.repo.GetUserByEmail(ctx, email); err == nil {
		return User{}, ErrEmailTaken
	} else if !errors.Is(err, httpx.ErrNotFound) {
		return User{}, err
	}
	hash, err := bcrypt.GenerateFromPassword([]byte(input.Password), bcrypt.DefaultCost)
	if err != nil {
		return User{}, fmt.Errorf("auth: hash password: %w", err)
	}
	u := User{
		ID:             uuid.New(),
		OrganizationID: input.OrganizationID,
		Email:          email,
		Name:           input.Name,
		PasswordHash:   string(hash),
		Role:           RoleAdmin,
		IsActive:       true,
	}
	if err := s.repo.CreateUser(ctx, u); err != nil {
		return User{}, err
	}
	return u, nil
}

// ListUsers lists staff accounts in the actor's organization.
func (s *Service) ListUsers(ctx context.Context, actor *shared.Actor) ([]User, error) {
	if actor == nil {
		return nil, httpx.ErrUnauthorized
	}
	return s.repo.ListUsers(ctx, actor.OrganizationID)
}

// SetUserActive enables or disables an account within the actor's organization.
func (s *Service) SetUserActive(ctx context.Context, actor *shared.Actor, id uuid.UUID, active bool) error {
	if actor == nil {
		return httpx.ErrUnauthorized
	}
	u, err := s.repo.GetUser(ctx, id)
	if err != nil {
		return err
	}
	if u.OrganizationID != actor.OrganizationID {
		return ErrUserNotFound
	}
	return s.repo.SetUserActive(ctx, id, active)
}

func (s *Service) recordAudit(ctx context.Context, user User, action string, meta map[string]any) {
	if s.audit == nil {
		return
	}
	_ = s.audit.Record(ctx, shared.AuditLog{ActorID: user.ID, Action: action, Entity: "user", EntityID: user.ID.String(), Meta: meta})
}
