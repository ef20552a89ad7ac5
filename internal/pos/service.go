package pos

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/pharmacore-erp/pharmacore/internal/catalog"
	"github.com/pharmacore-erp/pharmacore/internal/platform/httpx"
	"github.com/pharmacore-erp/pharmacore/internal/shared"
)

// TxRepository is the transactional slice of the repository. The whole sale,
// batch selection and decrement included, commits or rolls back as one unit.
type TxRepository interface {
	SelectBatchFEFO(ctx context.Context, branchID, productID uuid.UUID, quantity int) (BatchRef, error)
	DecrementBatch(ctx context.Context, batchID uuid.UUID, quantity int) error
	InsertPrescription(ctx context.Context, p Prescription) error
	InsertSale(ctx context.Context, sale Sale) error
	InsertSaleLine(ctx context.Context, line SaleLine) error
	InsertControlledLog(ctx context.Context, log ControlledSubstanceLog) error
}

// BatchRef is the slice of a stock batch the sale path needs.
type BatchRef struct {
	ID         uuid.UUID
	ExpiryDate time.Time
	Quantity   int
	SalePrice  float64
}

// RepositoryPort describes the persistence operations used by Service.
type RepositoryPort interface {
	WithTx(ctx context.Context, fn func(ctx context.Context, repo TxRepository) error) error

	GetSale(ctx context.Context, id uuid.UUID) (Sale, error)
	ListSales(ctx context.Context, organizationID uuid.UUID, branchID *uuid.UUID, p shared.Pagination) ([]Sale, error)
	ListSalesByCustomer(ctx context.Context, organizationID, customerID uuid.UUID) ([]Sale, error)
	ListPrescriptionsByCustomer(ctx context.Context, organizationID, customerID uuid.UUID) ([]Prescription, error)
	InsertReturn(ctx context.Context, ret SaleReturn) error
	SumReturns(ctx context.Context, saleID uuid.UUID) (float64, error)
}

// CatalogPort resolves products at sale time.
type CatalogPort interface {
	GetProduct(ctx context.Context, id uuid.UUID) (catalog.Product, error)
}

// OrgPort verifies branch tenancy.
type OrgPort interface {
	BranchInOrganization(ctx context.Context, branchID, organizationID uuid.UUID) (bool, error)
}

// CustomerPort verifies customer tenancy when a sale references one.
type CustomerPort interface {
	CustomerInOrganization(ctx context.Context, customerID, organizationID uuid.UUID) (bool, error)
}

// AuditPort records sale events.
type AuditPort interface {
	Record(ctx context.Context, log shared.AuditLog) error
}

// Service executes point of sale flows.
type Service struct {
	repo      RepositoryPort
	catalog   CatalogPort
	org       OrgPort
	customers CustomerPort
	audit     AuditPort
	now       func() time.Time
}

// NewService builds Service.
func NewService(repo RepositoryPort, cat CatalogPort, org OrgPort, customers CustomerPort, audit AuditPort) *Service {
	return &Service{repo: repo, catalog: cat, org: org, customers: customers, audit: audit, now: time.Now}
}

// SaleLineInput is one requested line. UnitPrice overrides the batch or
// product price when set.
type SaleLineInput struct {
	ProductID uuid.UUID
	Quantity  int
	UnitPrice *float64
}

// PrescriptionInput attaches a prescription to the sale.
type PrescriptionInput struct {
	DoctorName  string
	PatientName string
	Notes       string
}

// CreateSaleInput describes the checkout payload.
type CreateSaleInput struct {
	BranchID        uuid.UUID
	CustomerID      *uuid.UUID
	CustomerName    string
	CustomerCNIC    string
	PaymentMode     PaymentMode
	DiscountAmount  float64
	DiscountPercent float64
	Prescription    *PrescriptionInput
	Lines           []SaleLineInput
}

// CreateSale checks out a basket. Each line is fulfilled from the single
// soonest-expiring batch that can cover its whole quantity. Schedule H lines
// require the customer's CNIC and each writes a controlled substance record.
// Everything commits in one transaction.
func (s *Service) CreateSale(ctx context.Context, actor *shared.Actor, input CreateSaleInput) (Sale, error) {
	if actor == nil {
		return Sale{}, httpx.ErrUnauthorized
	}
	if len(input.Lines) == 0 {
		return Sale{}, fmt.Errorf("%w: sale requires at least one line", httpx.ErrValidation)
	}
	if !input.PaymentMode.Valid() {
		return Sale{}, ErrInvalidPaymentMode
	}
	if input.DiscountAmount < 0 || input.DiscountPercent < 0 || input.DiscountPercent > 100 {
		return Sale{}, fmt.Errorf("%w: invalid discount", httpx.ErrValidation)
	}
	for _, line := range input.Lines {
		if line.Quantity <= 0 {
			return Sale{}, fmt.Errorf("%w: line quantity must be positive", httpx.ErrValidation)
		}
	}
	inOrg, err := s.org.BranchInOrganization(ctx, input.BranchID, actor.OrganizationID)
	if err != nil {
		return Sale{}, err
	}
	if !inOrg {
		return Sale{}, ErrBranchOutsideOrg
	}
	if input.CustomerID != nil {
		known, err := s.customers.CustomerInOrganization(ctx, *input.CustomerID, actor.OrganizationID)
		if err != nil {
			return Sale{}, err
		}
		if !known {
			return Sale{}, ErrCustomerUnknown
		}
	}

	type resolvedLine struct {
		input   SaleLineInput
		product catalog.Product
	}
	resolved := make([]resolvedLine, 0, len(input.Lines))
	cnic := strings.TrimSpace(input.CustomerCNIC)
	for _, line := range input.Lines {
		product, err := s.catalog.GetProduct(ctx, line.ProductID)
		if err != nil {
			return Sale{}, err
		}
		if product.Schedule == catalog.ScheduleH && cnic == "" {
			return Sale{}, ErrCNICRequired
		}
		resolved = append(resolved, resolvedLine{input: line, product: product})
	}

	sale := Sale{
		ID:              uuid.New(),
		OrganizationID:  actor.OrganizationID,
		BranchID:        input.BranchID,
		InvoiceNumber:   newInvoiceNumber(),
		CustomerID:      input.CustomerID,
		CustomerName:    input.CustomerName,
		CustomerCNIC:    cnic,
		CashierID:       actor.UserID,
		PaymentMode:     input.PaymentMode,
		DiscountAmount:  input.DiscountAmount,
		DiscountPercent: input.DiscountPercent,
		CreatedAt:       s.now(),
	}

	err = s.repo.WithTx(ctx, func(ctx context.Context, repo TxRepository) error {
		if input.Prescription != nil {
			pres := Prescription{
				ID:             uuid.New(),
				OrganizationID: actor.OrganizationID,
				CustomerID:     input.CustomerID,
				DoctorName:     input.Prescription.DoctorName,
				PatientName:    input.Prescription.PatientName,
				Notes:          input.Prescription.Notes,
				CreatedAt:      sale.CreatedAt,
			}
			if err := repo.InsertPrescription(ctx, pres); err != nil {
				return err
			}
			sale.PrescriptionID = &pres.ID
		}

		var gross float64
		lines := make([]SaleLine, 0, len(resolved))
		logs := make([]ControlledSubstanceLog, 0)
		for _, rl := range resolved {
			batch, err := repo.SelectBatchFEFO(ctx, input.BranchID, rl.product.ID, rl.input.Quantity)
			if err != nil {
				return err
			}
			if err := repo.DecrementBatch(ctx, batch.ID, rl.input.Quantity); err != nil {
				return err
			}
			price := linePrice(rl.input, batch, rl.product)
			line := SaleLine{
				ID:        uuid.New(),
				SaleID:    sale.ID,
				ProductID: rl.product.ID,
				BatchID:   batch.ID,
				Quantity:  rl.input.Quantity,
				UnitPrice: price,
				LineTotal: price * float64(rl.input.Quantity),
			}
			gross += line.LineTotal
			lines = append(lines, line)
			if rl.product.Schedule == catalog.ScheduleH {
				logs = append(logs, ControlledSubstanceLog{
					ID:             uuid.New(),
					OrganizationID: actor.OrganizationID,
					BranchID:       input.BranchID,
					SaleID:         sale.ID,
					ProductID:      rl.product.ID,
					CustomerName:   input.CustomerName,
					CustomerCNIC:   cnic,
					Quantity:       rl.input.Quantity,
					SoldBy:         actor.UserID,
				})
			}
		}

		sale.GrossAmount = gross
		sale.TotalAmount = gross - input.DiscountAmount - gross*input.DiscountPercent/100
		if sale.TotalAmount < 0 {
			return fmt.Errorf("%w: discounts exceed sale amount", httpx.ErrValidation)
		}
		sale.Lines = lines

		if err := repo.InsertSale(ctx, sale); err != nil {
			return err
		}
		for _, line := range lines {
			if err := repo.InsertSaleLine(ctx, line); err != nil {
				return err
			}
		}
		for _, log := range logs {
			if err := repo.InsertControlledLog(ctx, log); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return Sale{}, err
	}
	s.recordAudit(ctx, actor, "SALE_CREATE", sale.ID, map[string]any{
		"invoice": sale.InvoiceNumber, "total": sale.TotalAmount, "lines": len(sale.Lines),
	})
	return sale, nil
}

// GetSale fetches a sale in the actor's organization.
func (s *Service) GetSale(ctx context.Context, actor *shared.Actor, id uuid.UUID) (Sale, error) {
	sale, err := s.repo.GetSale(ctx, id)
	if err != nil {
		return Sale{}, err
	}
	if actor == nil || sale.OrganizationID != actor.OrganizationID {
		return Sale{}, ErrSaleNotFound
	}
	return sale, nil
}

// ListSales lists sales in the actor's organization.
func (s *Service) ListSales(ctx context.Context, actor *shared.Actor, branchID *uuid.UUID, p shared.Pagination) ([]Sale, error) {
	if actor == nil {
		return nil, httpx.ErrUnauthorized
	}
	return s.repo.ListSales(ctx, actor.OrganizationID, branchID, p)
}

// CustomerSales lists the purchase history of one customer, newest first.
func (s *Service) CustomerSales(ctx context.Context, actor *shared.Actor, customerID uuid.UUID) ([]Sale, error) {
	if actor == nil {
		return nil, httpx.ErrUnauthorized
	}
	return s.repo.ListSalesByCustomer(ctx, actor.OrganizationID, customerID)
}

// CustomerPrescriptions lists prescriptions recorded against one customer.
func (s *Service) CustomerPrescriptions(ctx context.Context, actor *shared.Actor, customerID uuid.UUID) ([]Prescription, error) {
	if actor == nil {
		return nil, httpx.ErrUnauthorized
	}
	return s.repo.ListPrescriptionsByCustomer(ctx, actor.OrganizationID, customerID)
}

// ReturnSaleInput describes a refund request.
type ReturnSaleInput struct {
	SaleID uuid.UUID
	Amount float64
	Reason string
}

// ReturnSale records a refund against a sale. The refund is financial only;
// cumulative refunds may not exceed the sale total.
func (s *Service) ReturnSale(ctx context.Context, actor *shared.Actor, input ReturnSaleInput) (SaleReturn, error) {
	if actor == nil {
		return SaleReturn{}, httpx.ErrUnauthorized
	}
	if input.Amount <= 0 {
		return SaleReturn{}, fmt.Errorf("%w: refund amount must be positive", httpx.ErrValidation)
	}
	sale, err := s.GetSale(ctx, actor, input.SaleID)
	if err != nil {
		return SaleReturn{}, err
	}
	refunded, err := s.repo.SumReturns(ctx, sale.ID)
	if err != nil {
		return SaleReturn{}, err
	}
	if refunded+input.Amount > sale.TotalAmount {
		return SaleReturn{}, ErrRefundTooLarge
	}
	ret := SaleReturn{
		ID:             uuid.New(),
		OrganizationID: actor.OrganizationID,
		SaleID:         sale.ID,
		Amount:         input.Amount,
		Reason:         input.Reason,
		ProcessedBy:    actor.UserID,
	}
	if err := s.repo.InsertReturn(ctx, ret); err != nil {
		return SaleReturn{}, err
	}
	s.recordAudit(ctx, actor, "SALE_RETURN", sale.ID, map[string]any{"amount": input.Amount, "reason": input.Reason})
	return ret, nil
}

func linePrice(input SaleLineInput, batch BatchRef, product catalog.Product) float64 {
	if input.UnitPrice != nil && *input.UnitPrice > 0 {
		return *input.UnitPrice
	}
	if batch.SalePrice > 0 {
		return batch.SalePrice
	}
	return product.SalePrice
}

func newInvoiceNumber() string {
	return "INV-" + strings.ToUpper(uuid.New().String()[:8])
}

func (s *Service) recordAudit(ctx context.Context, actor *shared.Actor, action string, entityID uuid.UUID, meta map[string]any) {
	if s.audit == nil {
		return
	}
	_ = s.audit.Record(ctx, shared.AuditLog{ActorID: actor.UserID, Action: action, Entity: "sale", EntityID: entityID.String(), Meta: meta})
}
