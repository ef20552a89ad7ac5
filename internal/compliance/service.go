package compliance

import (
	"context"
	"encoding/csv"
	"io"
	"strconv"
	"time"

	"github.com/google/uuid"

	"github.com/pharmacore-erp/pharmacore/internal/platform/httpx"
	"github.com/pharmacore-erp/pharmacore/internal/pos"
	"github.com/pharmacore-erp/pharmacore/internal/shared"
)

// RegisterPort reads the controlled substance register.
type RegisterPort interface {
	ListControlledLogs(ctx context.Context, organizationID uuid.UUID, filter LogFilter) ([]pos.ControlledSubstanceLog, error)
}

// AuditPort reads the audit trail.
type AuditPort interface {
	List(ctx context.Context, entity, entityID string, limit int) ([]shared.AuditLog, error)
}

// Service exposes regulatory reads: the Schedule H register and the audit
// trail. Both are read-only; writes happen at the point of sale and in the
// owning services.
type Service struct {
	register RegisterPort
	audit    AuditPort
}

// NewService builds Service.
func NewService(register RegisterPort, audit AuditPort) *Service {
	return &Service{register: register, audit: audit}
}

// ControlledSubstances returns the register scoped to the actor's organization.
func (s *Service) ControlledSubstances(ctx context.Context, actor *shared.Actor, filter LogFilter) ([]pos.ControlledSubstanceLog, error) {
	if actor == nil {
		return nil, httpx.ErrUnauthorized
	}
	return s.register.ListControlledLogs(ctx, actor.OrganizationID, filter)
}

// ExportControlledCSV streams the register as CSV for regulator submissions.
func (s *Service) ExportControlledCSV(ctx context.Context, actor *shared.Actor, filter LogFilter, w io.Writer) error {
	if actor == nil {
		return httpx.ErrUnauthorized
	}
	logs, err := s.register.ListControlledLogs(ctx, actor.OrganizationID, filter)
	if err != nil {
		return err
	}
	cw := csv.NewWriter(w)
	if err := cw.Write([]string{"date", "branch_id", "product_id", "customer_name", "customer_cnic", "quantity", "sold_by", "sale_id"}); err != nil {
		return err
	}
	for _, l := range logs {
		record := []string{
			l.CreatedAt.Format(time.RFC3339),
			l.BranchID.String(),
			l.ProductID.String(),
			l.CustomerName,
			l.CustomerCNIC,
			strconv.Itoa(l.Quantity),
			l.SoldBy.String(),
			l.SaleID.String(),
		}
		if err := cw.Write(record); err != nil {
			return err
		}
	}
	cw.Flush()
	return cw.Error()
}

// AuditTrail returns recent audit entries, optionally filtered by entity.
func (s *Service) AuditTrail(ctx context.Context, actor *shared.Actor, entity, entityID string, limit int) ([]shared.AuditLog, error) {
	if actor == nil {
		return nil, httpx.ErrUnauthorized
	}
	return s.audit.List(ctx, entity, entityID, limit)
}
