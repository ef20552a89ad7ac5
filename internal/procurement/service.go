package procurement

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/pharmacore-erp/pharmacore/internal/catalog"
	"github.com/pharmacore-erp/pharmacore/internal/inventory"
	"github.com/pharmacore-erp/pharmacore/internal/platform/httpx"
	"github.com/pharmacore-erp/pharmacore/internal/shared"
)

// Placeholder shelf life assigned to batches created at goods receipt when the
// delivery note carries no expiry date. Stock takers correct it on intake.
const defaultShelfLife = 2 * 365 * 24 * time.Hour

// TxRepository is the transactional slice of the repository.
type TxRepository interface {
	InsertOrder(ctx context.Context, po PurchaseOrder) error
	InsertOrderLine(ctx context.Context, line OrderLine) error
	GetOrderForUpdate(ctx context.Context, id uuid.UUID) (PurchaseOrder, error)
	UpdateOrderStatus(ctx context.Context, id uuid.UUID, from, to OrderStatus, receivedAt *time.Time) error
	InsertStockBatch(ctx context.Context, b inventory.StockBatch) error
}

// RepositoryPort describes the persistence operations used by Service.
type RepositoryPort interface {
	WithTx(ctx context.Context, fn func(ctx context.Context, repo TxRepository) error) error

	GetOrder(ctx context.Context, id uuid.UUID) (PurchaseOrder, error)
	ListOrders(ctx context.Context, organizationID uuid.UUID, status *OrderStatus, p shared.Pagination) ([]PurchaseOrder, error)
	InsertPayment(ctx context.Context, payment Payment) error
	ListPayments(ctx context.Context, purchaseOrderID uuid.UUID) ([]Payment, error)
}

// CatalogPort resolves products and supplier links.
type CatalogPort interface {
	GetProduct(ctx context.Context, id uuid.UUID) (catalog.Product, error)
	GetDistribution(ctx context.Context, id uuid.UUID) (catalog.Distribution, error)
	Supplies(ctx context.Context, distributionID, manufacturerID uuid.UUID) (bool, error)
}

// OrgPort verifies branch tenancy.
type OrgPort interface {
	BranchInOrganization(ctx context.Context, branchID, organizationID uuid.UUID) (bool, error)
}

// IdempotencyPort guards against replayed goods receipts. Delete releases a
// key whose processing failed so the operation can be retried.
type IdempotencyPort interface {
	CheckAndInsert(ctx context.Context, key, module string) error
	Delete(ctx context.Context, key string) error
}

// AuditPort records procurement events.
type AuditPort interface {
	Record(ctx context.Context, log shared.AuditLog) error
}

// Service manages purchase orders from placement through goods receipt.
type Service struct {
	repo        RepositoryPort
	catalog     CatalogPort
	org         OrgPort
	idempotency IdempotencyPort
	audit       AuditPort
	now         func() time.Time
}

// NewService builds Service.
func NewService(repo RepositoryPort, cat CatalogPort, org OrgPort, idem IdempotencyPort, audit AuditPort) *Service {
	return &Service{repo: repo, catalog: cat, org: org, idempotency: idem, audit: audit, now: time.Now}
}

// OrderLineInput is one requested order line. ManufacturerID overrides the
// product's own manufacturer when the line is sourced from another maker.
type OrderLineInput struct {
	ProductID      uuid.UUID
	ManufacturerID *uuid.UUID
	Quantity       int
	UnitPrice      float64
}

// CreateOrderInput describes the purchase order payload.
type CreateOrderInput struct {
	BranchID       uuid.UUID
	DistributionID uuid.UUID
	Lines          []OrderLineInput
}

// CreateOrder places a purchase order with a distribution. Every product's
// manufacturer must be among the companies the distribution supplies.
func (s *Service) CreateOrder(ctx context.Context, actor *shared.Actor, input CreateOrderInput) (PurchaseOrder, error) {
	if actor == nil {
		return PurchaseOrder{}, httpx.ErrUnauthorized
	}
	if len(input.Lines) == 0 {
		return PurchaseOrder{}, fmt.Errorf("%w: order requires at least one line", httpx.ErrValidation)
	}
	inOrg, err := s.org.BranchInOrganization(ctx, input.BranchID, actor.OrganizationID)
	if err != nil {
		return PurchaseOrder{}, err
	}
	if !inOrg {
		return PurchaseOrder{}, ErrBranchOutsideOrg
	}
	if _, err := s.catalog.GetDistribution(ctx, input.DistributionID); err != nil {
		return PurchaseOrder{}, err
	}

	po := PurchaseOrder{
		ID:             uuid.New(),
		OrganizationID: actor.OrganizationID,
		BranchID:       input.BranchID,
		DistributionID: input.DistributionID,
		OrderNumber:    newOrderNumber(),
		Status:         StatusSubmitted,
		CreatedBy:      actor.UserID,
	}
	for _, line := range input.Lines {
		if line.Quantity <= 0 {
			return PurchaseOrder{}, fmt.Errorf("%w: line quantity must be positive", httpx.ErrValidation)
		}
		if line.UnitPrice < 0 {
			return PurchaseOrder{}, fmt.Errorf("%w: line price must be >= 0", httpx.ErrValidation)
		}
		product, err := s.catalog.GetProduct(ctx, line.ProductID)
		if err != nil {
			return PurchaseOrder{}, err
		}
		manufacturerID := product.ManufacturerID
		if line.ManufacturerID != nil {
			manufacturerID = *line.ManufacturerID
		}
		supplied, err := s.catalog.Supplies(ctx, input.DistributionID, manufacturerID)
		if err != nil {
			return PurchaseOrder{}, err
		}
		if !supplied {
			return PurchaseOrder{}, ErrSupplierMismatch
		}
		ol := OrderLine{
			ID:              uuid.New(),
			PurchaseOrderID: po.ID,
			ProductID:       product.ID,
			ManufacturerID:  manufacturerID,
			Quantity:        line.Quantity,
			UnitPrice:       line.UnitPrice,
			LineTotal:       float64(line.Quantity) * line.UnitPrice,
		}
		po.TotalAmount += ol.LineTotal
		po.Lines = append(po.Lines, ol)
	}

	err = s.repo.WithTx(ctx, func(ctx context.Context, repo TxRepository) error {
		if err := repo.InsertOrder(ctx, po); err != nil {
			return err
		}
		for _, line := range po.Lines {
			if err := repo.InsertOrderLine(ctx, line); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return PurchaseOrder{}, err
	}
	s.recordAudit(ctx, actor, "PO_CREATE", po.ID, map[string]any{"order_number": po.OrderNumber, "total": po.TotalAmount})
	return po, nil
}

// ReceiveOrder books the goods receipt for a submitted order. Each line
// becomes a stock batch at the ordering branch. A second receive of the same
// order is rejected.
func (s *Service) ReceiveOrder(ctx context.Context, actor *shared.Actor, id uuid.UUID) (PurchaseOrder, error) {
	if actor == nil {
		return PurchaseOrder{}, httpx.ErrUnauthorized
	}
	key := "PO-RECEIVE:" + id.String()
	if s.idempotency != nil {
		if err := s.idempotency.CheckAndInsert(ctx, key, "procurement"); err != nil {
			if errors.Is(err, shared.ErrIdempotencyConflict) {
				return PurchaseOrder{}, ErrNotReceivable
			}
			return PurchaseOrder{}, err
		}
	}
	var received PurchaseOrder
	receivedAt := s.now()
	err := s.repo.WithTx(ctx, func(ctx context.Context, repo TxRepository) error {
		po, err := repo.GetOrderForUpdate(ctx, id)
		if err != nil {
			return err
		}
		if po.OrganizationID != actor.OrganizationID {
			return ErrOrderNotFound
		}
		if po.Status != StatusSubmitted {
			return ErrNotReceivable
		}
		for _, line := range po.Lines {
			product, err := s.catalog.GetProduct(ctx, line.ProductID)
			if err != nil {
				return err
			}
			batch := inventory.StockBatch{
				ID:             uuid.New(),
				OrganizationID: po.OrganizationID,
				BranchID:       po.BranchID,
				ProductID:      line.ProductID,
				BatchNumber:    receiptBatchNumber(po.OrderNumber, line.ProductID),
				ExpiryDate:     receivedAt.Add(defaultShelfLife),
				Quantity:       line.Quantity,
				PurchasePrice:  line.UnitPrice,
				SalePrice:      product.SalePrice,
			}
			if err := repo.InsertStockBatch(ctx, batch); err != nil {
				return err
			}
		}
		if err := repo.UpdateOrderStatus(ctx, po.ID, StatusSubmitted, StatusReceived, &receivedAt); err != nil {
			return err
		}
		po.Status = StatusReceived
		po.ReceivedAt = &receivedAt
		received = po
		return nil
	})
	if err != nil {
		// Release the key so a failed attempt does not block the real receive.
		if s.idempotency != nil {
			_ = s.idempotency.Delete(ctx, key)
		}
		return PurchaseOrder{}, err
	}
	s.recordAudit(ctx, actor, "PO_RECEIVE", received.ID, map[string]any{"order_number": received.OrderNumber})
	return received, nil
}

// CancelOrder cancels an order that has not been received yet.
func (s *Service) CancelOrder(ctx context.Context, actor *shared.Actor, id uuid.UUID) error {
	if actor == nil {
		return httpx.ErrUnauthorized
	}
	err := s.repo.WithTx(ctx, func(ctx context.Context, repo TxRepository) error {
		po, err := repo.GetOrderForUpdate(ctx, id)
		if err != nil {
			return err
		}
		if po.OrganizationID != actor.OrganizationID {
			return ErrOrderNotFound
		}
		if po.Status != StatusDraft && po.Status != StatusSubmitted {
			return ErrNotCancellable
		}
		return repo.UpdateOrderStatus(ctx, po.ID, po.Status, StatusCancelled, nil)
	})
	if err != nil {
		return err
	}
	s.recordAudit(ctx, actor, "PO_CANCEL", id, nil)
	return nil
}

// PaymentInput describes money paid against an order.
type PaymentInput struct {
	PurchaseOrderID uuid.UUID
	Amount          float64
	Method          string
	Reference       string
}

// RegisterPayment records a payment made to the distribution.
func (s *Service) RegisterPayment(ctx context.Context, actor *shared.Actor, input PaymentInput) (Payment, error) {
	if actor == nil {
		return Payment{}, httpx.ErrUnauthorized
	}
	if input.Amount <= 0 {
		return Payment{}, fmt.Errorf("%w: payment amount must be positive", httpx.ErrValidation)
	}
	po, err := s.GetOrder(ctx, actor, input.PurchaseOrderID)
	if err != nil {
		return Payment{}, err
	}
	payment := Payment{
		ID:              uuid.New(),
		OrganizationID:  actor.OrganizationID,
		PurchaseOrderID: po.ID,
		Amount:          input.Amount,
		Method:          input.Method,
		Reference:       input.Reference,
		RecordedBy:      actor.UserID,
	}
	if err := s.repo.InsertPayment(ctx, payment); err != nil {
		return Payment{}, err
	}
	s.recordAudit(ctx, actor, "PO_PAYMENT", po.ID, map[string]any{"amount": input.Amount, "method": input.Method})
	return payment, nil
}

// GetOrder fetches an order in the actor's organization.
func (s *Service) GetOrder(ctx context.Context, actor *shared.Actor, id uuid.UUID) (PurchaseOrder, error) {
	po, err := s.repo.GetOrder(ctx, id)
	if err != nil {
		return PurchaseOrder{}, err
	}
	if actor == nil || po.OrganizationID != actor.OrganizationID {
		return PurchaseOrder{}, ErrOrderNotFound
	}
	return po, nil
}

// ListOrders lists orders in the actor's organization.
func (s *Service) ListOrders(ctx context.Context, actor *shared.Actor, status *OrderStatus, p shared.Pagination) ([]PurchaseOrder, error) {
	if actor == nil {
		return nil, httpx.ErrUnauthorized
	}
	return s.repo.ListOrders(ctx, actor.OrganizationID, status, p)
}

// ListPayments lists payments recorded against an order.
func (s *Service) ListPayments(ctx context.Context, actor *shared.Actor, purchaseOrderID uuid.UUID) ([]Payment, error) {
	if _, err := s.GetOrder(ctx, actor, purchaseOrderID); err != nil {
		return nil, err
	}
	return s.repo.ListPayments(ctx, purchaseOrderID)
}

func newOrderNumber() string {
	return "PO-" + strings.ToUpper(uuid.New().String()[:8])
}

func receiptBatchNumber(orderNumber string, productID uuid.UUID) string {
	return orderNumber + "-" + strings.ToUpper(productID.String()[:8])
}

func (s *Service) recordAudit(ctx context.Context, actor *shared.Actor, action string, entityID uuid.UUID, meta map[string]any) {
	if s.audit == nil {
		return
	}
	_ = s.audit.Record(ctx, shared.AuditLog{ActorID: actor.UserID, Action: action, Entity: "purchase_order", EntityID: entityID.String(), Meta: meta})
}
