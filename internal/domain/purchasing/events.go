package purchasing

import (
	"time"

	"github.com/google/uuid"
	"github.com/restocost/backend/internal/domain/shared"
)

// Aggregate type constants
const (
	AggregateTypeInvoice   = "Invoice"
	AggregateTypeImportJob = "ImportJob"
)

// Event type constants
const (
	EventTypeInvoiceImported = "InvoiceImported"
	EventTypeInvoiceDeleted  = "InvoiceDeleted"
)

// InvoiceImportedEvent is published when an invoice enters the ledger
type InvoiceImportedEvent struct {
	shared.BaseDomainEvent
	InvoiceID   uuid.UUID `json:"invoice_id"`
	SupplierID  uuid.UUID `json:"supplier_id"`
	InvoiceDate time.Time `json:"invoice_date"`
}

// NewInvoiceImportedEvent creates a new InvoiceImportedEvent
func NewInvoiceImportedEvent(invoice *Invoice) *InvoiceImportedEvent {
	return &InvoiceImportedEvent{
		BaseDomainEvent: shared.NewBaseDomainEvent(EventTypeInvoiceImported, AggregateTypeInvoice, invoice.ID, invoice.EstablishmentID),
		InvoiceID:       invoice.ID,
		SupplierID:      invoice.SupplierID,
		InvoiceDate:     invoice.InvoiceDate,
	}
}

// InvoiceDeletedEvent is published when an invoice and its articles are removed
type InvoiceDeletedEvent struct {
	shared.BaseDomainEvent
	InvoiceID    uuid.UUID `json:"invoice_id"`
	ArticleCount int       `json:"article_count"`
}

// NewInvoiceDeletedEvent creates a new InvoiceDeletedEvent
func NewInvoiceDeletedEvent(invoice *Invoice, articleCount int) *InvoiceDeletedEvent {
	return &InvoiceDeletedEvent{
		BaseDomainEvent: shared.NewBaseDomainEvent(EventTypeInvoiceDeleted, AggregateTypeInvoice, invoice.ID, invoice.EstablishmentID),
		InvoiceID:       invoice.ID,
		ArticleCount:    articleCount,
	}
}
