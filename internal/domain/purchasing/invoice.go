package purchasing

import (
	"time"

	"github.com/google/uuid"
	"github.com/restocost/backend/internal/domain/shared"
	"github.com/shopspring/decimal"
)

// Invoice is one supplier invoice header. It exclusively owns its Articles;
// deleting an invoice cascades to them and reverses their ledger effects.
type Invoice struct {
	shared.EstablishmentAggregateRoot
	SupplierID   uuid.UUID       `gorm:"type:uuid;not null;index"`
	SupplierName string          `gorm:"type:varchar(200)"`
	Reference    string          `gorm:"type:varchar(100)"`
	InvoiceDate  time.Time       `gorm:"not null;index"`
	TotalExclTax decimal.Decimal `gorm:"type:decimal(18,4);not null;default:0"`
	TotalInclTax decimal.Decimal `gorm:"type:decimal(18,4);not null;default:0"`
	FilePath     string          `gorm:"type:varchar(500)"`
}

// TableName returns the table name for GORM
func (Invoice) TableName() string {
	return "invoices"
}

// NewInvoice creates a new invoice header. The invoice date is mandatory:
// the current-price invariant is ordered by it.
func NewInvoice(establishmentID, supplierID uuid.UUID, supplierName, reference string, invoiceDate time.Time, totalExclTax, totalInclTax decimal.Decimal) (*Invoice, error) {
	if invoiceDate.IsZero() {
		return nil, shared.NewValidationError("Invoice date is mandatory")
	}

	invoice := &Invoice{
		EstablishmentAggregateRoot: shared.NewEstablishmentAggregateRoot(establishmentID),
		SupplierID:                 supplierID,
		SupplierName:               supplierName,
		Reference:                  reference,
		InvoiceDate:                invoiceDate,
		TotalExclTax:               totalExclTax,
		TotalInclTax:               totalInclTax,
	}

	invoice.AddDomainEvent(NewInvoiceImportedEvent(invoice))

	return invoice, nil
}

// AttachFile records the source document path for audit and rejection handling.
func (i *Invoice) AttachFile(path string) {
	i.FilePath = path
	i.UpdatedAt = time.Now()
}
