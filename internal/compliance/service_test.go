package compliance

import (
	"bytes"
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/require"

	"github.com/pharmacore-erp/pharmacore/internal/platform/httpx"
	"github.com/pharmacore-erp/pharmacore/internal/pos"
	"github.com/pharmacore-erp/pharmacore/internal/shared"
)

type memoryRegister struct {
	logs []pos.ControlledSubstanceLog
}

func (m *memoryRegister) ListControlledLogs(_ context.Context, organizationID uuid.UUID, filter LogFilter) ([]pos.ControlledSubstanceLog, error) {
	out := []pos.ControlledSubstanceLog{}
	for _, l := range m.logs {
		if l.OrganizationID != organizationID {
			continue
		}
		if filter.CNIC != "" && l.CustomerCNIC != filter.CNIC {
			continue
		}
		out = append(out, l)
	}
	return out, nil
}

type memoryAudit struct {
	entries []shared.AuditLog
}

func (m *memoryAudit) List(_ context.Context, entity, _ string, _ int) ([]shared.AuditLog, error) {
	out := []shared.AuditLog{}
	for _, e := range m.entries {
		if entity == "" || e.Entity == entity {
			out = append(out, e)
		}
	}
	return out, nil
}

func TestControlledSubstancesScopedToOrganization(t *testing.T) {
	orgA := uuid.New()
	orgB := uuid.New()
	register := &memoryRegister{logs: []pos.ControlledSubstanceLog{
		{ID: uuid.New(), OrganizationID: orgA, CustomerCNIC: "35202-1234567-1"},
		{ID: uuid.New(), OrganizationID: orgB, CustomerCNIC: "35202-7654321-9"},
	}}
	svc := NewService(register, &memoryAudit{})

	actor := &shared.Actor{UserID: uuid.New(), OrganizationID: orgA}
	list, err := svc.ControlledSubstances(context.Background(), actor, LogFilter{})
	require.NoError(t, err)
	require.Len(t, list, 1)
	require.Equal(t, orgA, list[0].OrganizationID)

	list, err = svc.ControlledSubstances(context.Background(), actor, LogFilter{CNIC: "35202-7654321-9"})
	require.NoError(t, err)
	require.Empty(t, list)

	_, err = svc.ControlledSubstances(context.Background(), nil, LogFilter{})
	require.ErrorIs(t, err, httpx.ErrUnauthorized)
}

func TestExportControlledCSV(t *testing.T) {
	org := uuid.New()
	log := pos.ControlledSubstanceLog{
		ID:             uuid.New(),
		OrganizationID: org,
		BranchID:       uuid.New(),
		SaleID:         uuid.New(),
		ProductID:      uuid.New(),
		CustomerName:   "Ahmed Khan",
		CustomerCNIC:   "35202-1234567-1",
		Quantity:       2,
		SoldBy:         uuid.New(),
		CreatedAt:      time.Date(2026, 1, 15, 11, 0, 0, 0, time.UTC),
	}
	svc := NewService(&memoryRegister{logs: []pos.ControlledSubstanceLog{log}}, &memoryAudit{})
	actor := &shared.Actor{UserID: uuid.New(), OrganizationID: org}

	var buf bytes.Buffer
	require.NoError(t, svc.ExportControlledCSV(context.Background(), actor, LogFilter{}, &buf))
	out := buf.String()
	require.Contains(t, out, "date,branch_id,product_id,customer_name,customer_cnic,quantity,sold_by,sale_id")
	require.Contains(t, out, "2026-01-15T11:00:00Z")
	require.Contains(t, out, "35202-1234567-1")
	require.Contains(t, out, ",2,")
}

func TestAuditTrailFiltersByEntity(t *testing.T) {
	audit := &memoryAudit{entries: []shared.AuditLog{
		{Entity: "sale", Action: "SALE_CREATE"},
		{Entity: "purchase_order", Action: "PO_RECEIVE"},
	}}
	svc := NewService(&memoryRegister{}, audit)
	actor := &shared.Actor{UserID: uuid.New(), OrganizationID: uuid.New()}

	list, err := svc.AuditTrail(context.Background(), actor, "sale", "", 50)
	require.NoError(t, err)
	require.Len(t, list, 1)
	require.Equal(t, "SALE_CREATE", list[0].Action)
}
