package licensing

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/require"

	"github.com/pharmacore-erp/pharmacore/internal/platform/httpx"
	"github.com/pharmacore-erp/pharmacore/internal/shared"
)

type memoryRepo struct {
	licenses map[uuid.UUID]License
	branches map[uuid.UUID]int
	reads    int
}

func newMemoryRepo() *memoryRepo {
	return &memoryRepo{licenses: map[uuid.UUID]License{}, branches: map[uuid.UUID]int{}}
}

func (m *memoryRepo) GetByOrganization(_ context.Context, organizationID uuid.UUID) (License, error) {
	m.reads++
	for _, l := range m.licenses {
		if l.OrganizationID == organizationID {
			return l, nil
		}
	}
	return License{}, ErrLicenseNotFound
}

func (m *memoryRepo) GetByKey(_ context.Context, key string) (License, error) {
	for _, l := range m.licenses {
		if l.Key == key {
			return l, nil
		}
	}
	return License{}, ErrLicenseNotFound
}

func (m *memoryRepo) Activate(_ context.Context, id uuid.UUID, at time.Time) error {
	l, ok := m.licenses[id]
	if !ok {
		return ErrLicenseNotFound
	}
	l.IsActive = true
	l.ActivatedAt = &at
	m.licenses[id] = l
	return nil
}

func (m *memoryRepo) CountBranches(_ context.Context, organizationID uuid.UUID) (int, error) {
	return m.branches[organizationID], nil
}

type noopAudit struct{}

func (noopAudit) Record(_ context.Context, _ shared.AuditLog) error { return nil }

func seedLicense(repo *memoryRepo, orgID uuid.UUID, active bool, window time.Duration) License {
	now := time.Now()
	l := License{
		ID:             uuid.New(),
		OrganizationID: orgID,
		Key:            "KEY-" + orgID.String()[:8],
		Type:           LicenseMulti,
		MaxBranches:    5,
		StartDate:      now.Add(-time.Hour),
		EndDate:        now.Add(window),
		IsActive:       active,
	}
	if active {
		at := now.Add(-time.Hour)
		l.ActivatedAt = &at
	}
	repo.licenses[l.ID] = l
	return l
}

func newCache(t *testing.T) *redis.Client {
	t.Helper()
	srv := miniredis.RunT(t)
	return redis.NewClient(&redis.Options{Addr: srv.Addr()})
}

func TestActivateIsIdempotent(t *testing.T) {
	repo := newMemoryRepo()
	svc := NewService(repo, newCache(t), noopAudit{}, time.Minute)
	orgID := uuid.New()
	lic := seedLicense(repo, orgID, false, 24*time.Hour)
	actor := &shared.Actor{UserID: uuid.New(), OrganizationID: orgID}

	status, err := svc.Activate(context.Background(), actor, lic.Key)
	require.NoError(t, err)
	require.True(t, status.IsActive)
	require.True(t, status.Valid)
	require.NotNil(t, status.ActivatedAt)
	first := *status.ActivatedAt

	status, err = svc.Activate(context.Background(), actor, lic.Key)
	require.NoError(t, err)
	require.Equal(t, first, *status.ActivatedAt)
}

func TestActivateRejectsForeignKey(t *testing.T) {
	repo := newMemoryRepo()
	svc := NewService(repo, newCache(t), noopAudit{}, time.Minute)
	lic := seedLicense(repo, uuid.New(), false, 24*time.Hour)

	actor := &shared.Actor{UserID: uuid.New(), OrganizationID: uuid.New()}
	_, err := svc.Activate(context.Background(), actor, lic.Key)
	require.ErrorIs(t, err, httpx.ErrNotFound)
}

func TestValidateUsesCache(t *testing.T) {
	repo := newMemoryRepo()
	svc := NewService(repo, newCache(t), noopAudit{}, time.Minute)
	orgID := uuid.New()
	seedLicense(repo, orgID, true, 24*time.Hour)

	require.NoError(t, svc.Validate(context.Background(), orgID))
	reads := repo.reads
	require.NoError(t, svc.Validate(context.Background(), orgID))
	require.Equal(t, reads, repo.reads)
}

func TestValidateRejectsExpired(t *testing.T) {
	repo := newMemoryRepo()
	svc := NewService(repo, nil, noopAudit{}, time.Minute)
	orgID := uuid.New()
	seedLicense(repo, orgID, true, -time.Minute)

	err := svc.Validate(context.Background(), orgID)
	require.ErrorIs(t, err, httpx.ErrForbidden)
}

func TestGateBlocksExpiredTenant(t *testing.T) {
	repo := newMemoryRepo()
	svc := NewService(repo, nil, noopAudit{}, time.Minute)
	expiredOrg := uuid.New()
	validOrg := uuid.New()
	seedLicense(repo, expiredOrg, true, -time.Minute)
	seedLicense(repo, validOrg, true, 24*time.Hour)

	next := http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
	})
	gate := Gate(svc)(next)

	call := func(path string, orgID uuid.UUID) int {
		req := httptest.NewRequest(http.MethodPost, path, nil)
		actor := &shared.Actor{UserID: uuid.New(), OrganizationID: orgID}
		req = req.WithContext(shared.ContextWithActor(req.Context(), actor))
		rec := httptest.NewRecorder()
		gate.ServeHTTP(rec, req)
		return rec.Code
	}

	require.Equal(t, http.StatusForbidden, call("/sales", expiredOrg))
	require.Equal(t, http.StatusOK, call("/sales", validOrg))
	require.Equal(t, http.StatusOK, call("/license/activate", expiredOrg))
	require.Equal(t, http.StatusOK, call("/license/status", expiredOrg))
}
