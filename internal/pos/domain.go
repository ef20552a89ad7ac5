package pos

import (
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/pharmacore-erp/pharmacore/internal/platform/httpx"
)

// PaymentMode is how the customer settled the sale.
type PaymentMode string

const (
	PaymentCash         PaymentMode = "Cash"
	PaymentCard         PaymentMode = "Card"
	PaymentJazzCash     PaymentMode = "JazzCash"
	PaymentEasypaisa    PaymentMode = "Easypaisa"
	PaymentBankTransfer PaymentMode = "BankTransfer"
)

// Valid reports whether the payment mode is a known value.
func (m PaymentMode) Valid() bool {
	switch m {
	case PaymentCash, PaymentCard, PaymentJazzCash, PaymentEasypaisa, PaymentBankTransfer:
		return true
	}
	return false
}

// Sale is a completed point of sale transaction.
type Sale struct {
	ID              uuid.UUID
	OrganizationID  uuid.UUID
	BranchID        uuid.UUID
	InvoiceNumber   string
	CustomerID      *uuid.UUID
	CustomerName    string
	CustomerCNIC    string
	PrescriptionID  *uuid.UUID
	CashierID       uuid.UUID
	PaymentMode     PaymentMode
	GrossAmount     float64
	DiscountAmount  float64
	DiscountPercent float64
	TotalAmount     float64
	CreatedAt       time.Time
	Lines           []SaleLine
}

// SaleLine is one product sold from one batch.
type SaleLine struct {
	ID        uuid.UUID
	SaleID    uuid.UUID
	ProductID uuid.UUID
	BatchID   uuid.UUID
	Quantity  int
	UnitPrice float64
	LineTotal float64
}

// ControlledSubstanceLog is the regulatory record written for every
// Schedule H line sold.
type ControlledSubstanceLog struct {
	ID             uuid.UUID
	OrganizationID uuid.UUID
	BranchID       uuid.UUID
	SaleID         uuid.UUID
	ProductID      uuid.UUID
	CustomerName   string
	CustomerCNIC   string
	Quantity       int
	SoldBy         uuid.UUID
	CreatedAt      time.Time
}

// Prescription is an optional attachment to a sale.
type Prescription struct {
	ID             uuid.UUID
	OrganizationID uuid.UUID
	CustomerID     *uuid.UUID
	DoctorName     string
	PatientName    string
	Notes          string
	CreatedAt      time.Time
}

// SaleReturn refunds part or all of a sale. Stock is not restocked; returned
// product is quarantined and written off through a stock adjustment.
type SaleReturn struct {
	ID             uuid.UUID
	OrganizationID uuid.UUID
	SaleID         uuid.UUID
	Amount         float64
	Reason         string
	ProcessedBy    uuid.UUID
	CreatedAt      time.Time
}

var (
	ErrSaleNotFound       = fmt.Errorf("%w: sale", httpx.ErrNotFound)
	ErrBranchOutsideOrg   = fmt.Errorf("%w: branch does not belong to your organization", httpx.ErrValidation)
	ErrCustomerUnknown    = fmt.Errorf("%w: customer", httpx.ErrNotFound)
	ErrNoStock            = fmt.Errorf("%w: no batch can cover the requested quantity", httpx.ErrInsufficientStock)
	ErrCNICRequired       = fmt.Errorf("%w: customer CNIC required for controlled substances", httpx.ErrValidation)
	ErrInvalidPaymentMode = fmt.Errorf("%w: unknown payment mode", httpx.ErrValidation)
	ErrRefundTooLarge     = fmt.Errorf("%w: refund exceeds remaining sale amount", httpx.ErrValidation)
)
