package customers

import (
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/pharmacore-erp/pharmacore/internal/platform/httpx"
)

// Customer is a walk-in buyer registered with the organization. Sales and
// prescriptions reference customers for purchase and medication history.
type Customer struct {
	ID             uuid.UUID
	OrganizationID uuid.UUID
	Name           string
	Phone          string
	CNIC           string
	Email          string
	Address        string
	CreditLimit    float64
	CreatedAt      time.Time
}

var ErrCustomerNotFound = fmt.Errorf("%w: customer", httpx.ErrNotFound)
