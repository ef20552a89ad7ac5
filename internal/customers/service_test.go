package customers

import (
	"context"
	"sort"
	"strings"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/require"

	"github.com/pharmacore-erp/pharmacore/internal/platform/httpx"
	"github.com/pharmacore-erp/pharmacore/internal/shared"
)

type memoryRepo struct {
	customers map[uuid.UUID]Customer
}

func newMemoryRepo() *memoryRepo {
	return &memoryRepo{customers: map[uuid.UUID]Customer{}}
}

func (m *memoryRepo) Create(_ context.Context, c Customer) error {
	m.customers[c.ID] = c
	return nil
}

func (m *memoryRepo) Get(_ context.Context, id uuid.UUID) (Customer, error) {
	c, ok := m.customers[id]
	if !ok {
		return Customer{}, ErrCustomerNotFound
	}
	return c, nil
}

func (m *memoryRepo) List(_ context.Context, organizationID uuid.UUID, search string) ([]Customer, error) {
	out := []Customer{}
	for _, c := range m.customers {
		if c.OrganizationID != organizationID {
			continue
		}
		if search != "" && !strings.Contains(c.Name, search) && !strings.Contains(c.Phone, search) && !strings.Contains(c.CNIC, search) {
			continue
		}
		out = append(out, c)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out, nil
}

func (m *memoryRepo) Update(_ context.Context, c Customer) error {
	if _, ok := m.customers[c.ID]; !ok {
		return ErrCustomerNotFound
	}
	m.customers[c.ID] = c
	return nil
}

type noopAudit struct{}

func (noopAudit) Record(_ context.Context, _ shared.AuditLog) error { return nil }

func TestCreateCustomerRequiresName(t *testing.T) {
	svc := NewService(newMemoryRepo(), noopAudit{})
	actor := &shared.Actor{UserID: uuid.New(), OrganizationID: uuid.New()}

	_, err := svc.Create(context.Background(), actor, CustomerInput{Name: "  "})
	require.ErrorIs(t, err, httpx.ErrValidation)

	c, err := svc.Create(context.Background(), actor, CustomerInput{Name: "Ali Khan", Phone: "0300-1234567", CNIC: "35202-1234567-1"})
	require.NoError(t, err)
	require.Equal(t, actor.OrganizationID, c.OrganizationID)
}

func TestGetCustomerRejectsCrossOrganization(t *testing.T) {
	repo := newMemoryRepo()
	svc := NewService(repo, noopAudit{})
	actor := &shared.Actor{UserID: uuid.New(), OrganizationID: uuid.New()}

	c, err := svc.Create(context.Background(), actor, CustomerInput{Name: "Ali Khan"})
	require.NoError(t, err)

	other := &shared.Actor{UserID: uuid.New(), OrganizationID: uuid.New()}
	_, err = svc.Get(context.Background(), other, c.ID)
	require.ErrorIs(t, err, httpx.ErrNotFound)

	got, err := svc.Get(context.Background(), actor, c.ID)
	require.NoError(t, err)
	require.Equal(t, "Ali Khan", got.Name)
}

func TestListCustomersSearches(t *testing.T) {
	repo := newMemoryRepo()
	svc := NewService(repo, noopAudit{})
	actor := &shared.Actor{UserID: uuid.New(), OrganizationID: uuid.New()}

	_, err := svc.Create(context.Background(), actor, CustomerInput{Name: "Ali Khan", Phone: "0300-1234567"})
	require.NoError(t, err)
	_, err = svc.Create(context.Background(), actor, CustomerInput{Name: "Sara Malik", Phone: "0321-7654321"})
	require.NoError(t, err)

	all, err := svc.List(context.Background(), actor, "")
	require.NoError(t, err)
	require.Len(t, all, 2)

	hits, err := svc.List(context.Background(), actor, "0321")
	require.NoError(t, err)
	require.Len(t, hits, 1)
	require.Equal(t, "Sara Malik", hits[0].Name)
}

func TestUpdateCustomerRewritesDetails(t *testing.T) {
	repo := newMemoryRepo()
	svc := NewService(repo, noopAudit{})
	actor := &shared.Actor{UserID: uuid.New(), OrganizationID: uuid.New()}

	c, err := svc.Create(context.Background(), actor, CustomerInput{Name: "Ali Khan"})
	require.NoError(t, err)

	updated, err := svc.Update(context.Background(), actor, c.ID, CustomerInput{Name: "Ali Raza Khan", CreditLimit: 5000})
	require.NoError(t, err)
	require.Equal(t, "Ali Raza Khan", updated.Name)
	require.InDelta(t, 5000.0, repo.customers[c.ID].CreditLimit, 0.001)

	other := &shared.Actor{UserID: uuid.New(), OrganizationID: uuid.New()}
	_, err = svc.Update(context.Background(), other, c.ID, CustomerInput{Name: "Hijack"})
	require.ErrorIs(t, err, httpx.ErrNotFound)
}

func TestCustomerInOrganization(t *testing.T) {
	repo := newMemoryRepo()
	svc := NewService(repo, noopAudit{})
	actor := &shared.Actor{UserID: uuid.New(), OrganizationID: uuid.New()}

	c, err := svc.Create(context.Background(), actor, CustomerInput{Name: "Ali Khan"})
	require.NoError(t, err)

	ok, err := svc.CustomerInOrganization(context.Background(), c.ID, actor.OrganizationID)
	require.NoError(t, err)
	require.True(t, ok)

	ok, err = svc.CustomerInOrganization(context.Background(), c.ID, uuid.New())
	require.NoError(t, err)
	require.False(t, ok)
}
