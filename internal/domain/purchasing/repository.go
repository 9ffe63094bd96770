package purchasing

import (
	"context"

	"github.com/google/uuid"
	"github.com/restocost/backend/internal/domain/shared"
)

// InvoiceRepository defines persistence operations for invoices
type InvoiceRepository interface {
	shared.Repository[Invoice]
	FindByIDForEstablishment(ctx context.Context, establishmentID, id uuid.UUID) (*Invoice, error)
}

// ArticleRepository defines persistence operations for invoice line items
type ArticleRepository interface {
	FindByID(ctx context.Context, id uuid.UUID) (*Article, error)
	FindByInvoice(ctx context.Context, invoiceID uuid.UUID) ([]Article, error)
	// FindLatestForMasterArticle returns the most recent non-deleted article
	// referencing the master article, ordered by invoice date then insertion
	// sequence. Returns shared.ErrNotFound when none remain.
	FindLatestForMasterArticle(ctx context.Context, establishmentID, masterArticleID uuid.UUID) (*Article, error)
	// MaxSeq returns the highest insertion sequence allocated for the
	// establishment (0 when no articles exist).
	MaxSeq(ctx context.Context, establishmentID uuid.UUID) (int64, error)
	Save(ctx context.Context, article *Article) error
	Delete(ctx context.Context, id uuid.UUID) error
	DeleteByInvoice(ctx context.Context, invoiceID uuid.UUID) error
}

// ImportJobRepository defines persistence operations for import jobs
type ImportJobRepository interface {
	FindByID(ctx context.Context, id uuid.UUID) (*ImportJob, error)
	FindByIDForEstablishment(ctx context.Context, establishmentID, id uuid.UUID) (*ImportJob, error)
	// FindPending returns up to limit pending jobs, oldest first.
	FindPending(ctx context.Context, limit int) ([]ImportJob, error)
	Save(ctx context.Context, job *ImportJob) error
}

// RejectedInvoiceRepository defines persistence operations for rejection records
type RejectedInvoiceRepository interface {
	FindByImportJob(ctx context.Context, importJobID uuid.UUID) ([]RejectedInvoice, error)
	FindAllForEstablishment(ctx context.Context, establishmentID uuid.UUID) ([]RejectedInvoice, error)
	Save(ctx context.Context, rejected *RejectedInvoice) error
}
