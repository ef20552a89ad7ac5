package auth

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/require"

	"github.com/pharmacore-erp/pharmacore/internal/platform/httpx"
	"github.com/pharmacore-erp/pharmacore/internal/shared"
)

type memoryRepo struct {
	users map[uuid.UUID]User
}

func newMemoryRepo() *memoryRepo {
	return &memoryRepo{users: map[uuid.UUID]User{}}
}

func (m *memoryRepo) CreateUser(_ context.Context, u User) error {
	for _, existing := range m.users {
		if existing.Email == u.Email {
			return ErrEmailTaken
		}
	}
	m.users[u.ID] = u
	return nil
}

func (m *memoryRepo) GetUserByEmail(_ context.Context, email string) (User, error) {
	for _, u := range m.users {
		if u.Email == email {
			return u, nil
		}
	}
	return User{}, ErrUserNotFound
}

func (m *memoryRepo) GetUser(_ context.Context, id uuid.UUID) (User, error) {
	u, ok := m.users[id]
	if !ok {
		return User{}, ErrUserNotFound
	}
	return u, nil
}

func (m *memoryRepo) ListUsers(_ context.Context, organizationID uuid.UUID) ([]User, error) {
	out := []User{}
	for _, u := range m.users {
		if u.OrganizationID == organizationID {
			out = append(out, u)
		}
	}
	return out, nil
}

func (m *memoryRepo) SetUserActive(_ context.Context, id uuid.UUID, active bool) error {
	u, ok := m.users[id]
	if !ok {
		return ErrUserNotFound
	}
	u.IsActive = active
	m.users[id] = u
	return nil
}

type noopAudit struct{}

func (noopAudit) Record(_ context.Context, _ shared.AuditLog) error { return nil }

func newTestService(t *testing.T) (*Service, *memoryRepo, *TokenManager) {
	t.Helper()
	repo := newMemoryRepo()
	tokens := NewTokenManager("test-secret-please-rotate", time.Hour)
	return NewService(repo, tokens, noopAudit{}), repo, tokens
}

func TestLoginRoundTrip(t *testing.T) {
	svc, _, tokens := newTestService(t)
	ctx := context.Background()
	orgID := uuid.New()

	admin, err := svc.RegisterAdmin(ctx, RegisterOrganizationInput{
		OrganizationID: orgID,
		Email:          "Owner@Pharmacy.Test",
		Name:           "Owner",
		Password:       "correct-horse",
	})
	require.NoError(t, err)
	require.Equal(t, "owner@pharmacy.test", admin.Email)
	require.Equal(t, RoleAdmin, admin.Role)

	result, err := svc.Login(ctx, "owner@pharmacy.test", "correct-horse")
	require.NoError(t, err)
	require.NotEmpty(t, result.Token)

	actor, err := tokens.Parse(result.Token)
	require.NoError(t, err)
	require.Equal(t, admin.ID, actor.UserID)
	require.Equal(t, orgID, actor.OrganizationID)
	require.Equal(t, "Admin", actor.Role)
}

func TestLoginRejectsBadPassword(t *testing.T) {
	svc, _, _ := newTestService(t)
	ctx := context.Background()

	_, err := svc.RegisterAdmin(ctx, RegisterOrganizationInput{
		OrganizationID: uuid.New(), Email: "a@b.test", Name: "A", Password: "correct-horse",
	})
	require.NoError(t, err)

	_, err = svc.Login(ctx, "a@b.test", "wrong-horse")
	require.ErrorIs(t, err, httpx.ErrUnauthorized)

	_, err = svc.Login(ctx, "nobody@b.test", "whatever")
	require.ErrorIs(t, err, httpx.ErrUnauthorized)
}

func TestLoginRejectsDisabledUser(t *testing.T) {
	svc, repo, _ := newTestService(t)
	ctx := context.Background()

	admin, err := svc.RegisterAdmin(ctx, RegisterOrganizationInput{
		OrganizationID: uuid.New(), Email: "a@b.test", Name: "A", Password: "correct-horse",
	})
	require.NoError(t, err)
	require.NoError(t, repo.SetUserActive(ctx, admin.ID, false))

	_, err = svc.Login(ctx, "a@b.test", "correct-horse")
	require.ErrorIs(t, err, httpx.ErrUnauthorized)
}

func TestCreateUserValidation(t *testing.T) {
	svc, _, _ := newTestService(t)
	ctx := context.Background()
	actor := &shared.Actor{UserID: uuid.New(), OrganizationID: uuid.New(), Role: "Admin"}

	_, err := svc.CreateUser(ctx, actor, CreateUserInput{Email: "x@y.test", Name: "X", Password: "short", Role: RoleCashier})
	require.ErrorIs(t, err, httpx.ErrValidation)

	_, err = svc.CreateUser(ctx, actor, CreateUserInput{Email: "x@y.test", Name: "X", Password: "long-enough", Role: Role("Janitor")})
	require.ErrorIs(t, err, httpx.ErrValidation)

	u, err := svc.CreateUser(ctx, actor, CreateUserInput{Email: "x@y.test", Name: "X", Password: "long-enough", Role: RoleCashier})
	require.NoError(t, err)
	require.Equal(t, actor.OrganizationID, u.OrganizationID)

	_, err = svc.CreateUser(ctx, actor, CreateUserInput{Email: "x@y.test", Name: "X2", Password: "long-enough", Role: RoleCashier})
	require.ErrorIs(t, err, httpx.ErrDuplicate)
}

func TestTokenRejectsTampering(t *testing.T) {
	tokens := NewTokenManager("secret-a", time.Hour)
	other := NewTokenManager("secret-b", time.Hour)
	user := User{ID: uuid.New(), OrganizationID: uuid.New(), Email: "a@b.test", Role: RoleAdmin}

	raw, err := tokens.Issue(user, time.Now())
	require.NoError(t, err)

	_, err = other.Parse(raw)
	require.ErrorIs(t, err, httpx.ErrUnauthorized)

	expired := NewTokenManager("secret-a", -time.Hour)
	raw, err = expired.Issue(user, time.Now())
	require.NoError(t, err)
	_, err = tokens.Parse(raw)
	require.ErrorIs(t, err, httpx.ErrUnauthorized)
}
