package purchasing

import (
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/restocost/backend/internal/domain/shared"
	"github.com/shopspring/decimal"
)

// Article is one invoice line item, immutable once created except through
// explicit edit/delete events. It references exactly one master article and
// one invoice.
//
// Seq is a per-establishment monotonic insertion sequence assigned by the
// ledger inside the serialized section; it breaks ties between articles
// sharing an invoice date (newest insertion wins).
type Article struct {
	shared.EstablishmentAggregateRoot
	InvoiceID       uuid.UUID       `gorm:"type:uuid;not null;index"`
	MasterArticleID uuid.UUID       `gorm:"type:uuid;not null;index"`
	Name            string          `gorm:"type:varchar(200);not null"`
	Quantity        decimal.Decimal `gorm:"type:decimal(18,4);not null;default:0"`
	Unit            string          `gorm:"type:varchar(20)"`
	UnitPrice       decimal.Decimal `gorm:"type:decimal(18,4);not null"`
	TotalExclTax    decimal.Decimal `gorm:"type:decimal(18,4);not null;default:0"`
	InvoiceDate     time.Time       `gorm:"not null;index"`
	Seq             int64           `gorm:"not null;index"`
}

// TableName returns the table name for GORM
func (Article) TableName() string {
	return "articles"
}

// NewArticle creates a new invoice line item. InvoiceDate is denormalized
// from the owning invoice so price ordering never needs a join.
func NewArticle(invoice *Invoice, masterArticleID uuid.UUID, name string, quantity decimal.Decimal, unit string, unitPrice decimal.Decimal) (*Article, error) {
	if strings.TrimSpace(name) == "" {
		return nil, shared.NewValidationError("Article name cannot be empty")
	}
	if unitPrice.IsNegative() {
		return nil, shared.NewValidationError("Article unit price cannot be negative")
	}

	return &Article{
		EstablishmentAggregateRoot: shared.NewEstablishmentAggregateRoot(invoice.EstablishmentID),
		InvoiceID:                  invoice.ID,
		MasterArticleID:            masterArticleID,
		Name:                       strings.TrimSpace(name),
		Quantity:                   quantity,
		Unit:                       unit,
		UnitPrice:                  unitPrice,
		TotalExclTax:               unitPrice.Mul(quantity),
		InvoiceDate:                invoice.InvoiceDate,
	}, nil
}

// SetUnitPrice applies an explicit price correction. The derived line total
// follows; the master article's current price is recomputed by the ledger.
func (a *Article) SetUnitPrice(unitPrice decimal.Decimal) error {
	if unitPrice.IsNegative() {
		return shared.NewValidationError("Article unit price cannot be negative")
	}
	a.UnitPrice = unitPrice
	a.TotalExclTax = unitPrice.Mul(a.Quantity)
	a.UpdatedAt = time.Now()
	a.IncrementVersion()
	return nil
}

// Supersedes reports whether this article is a more recent price observation
// than other: later invoice date wins, identical dates fall back to the
// insertion sequence.
func (a *Article) Supersedes(other *Article) bool {
	if other == nil {
		return true
	}
	if !a.InvoiceDate.Equal(other.InvoiceDate) {
		return a.InvoiceDate.After(other.InvoiceDate)
	}
	return a.Seq > other.Seq
}
