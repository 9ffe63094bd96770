package purchasing

import (
	"github.com/google/uuid"
	"github.com/restocost/backend/internal/domain/shared"
)

// RejectedInvoice records an import that failed validation. It keeps the
// original file reference and a human-readable reason, and never triggers
// propagation.
type RejectedInvoice struct {
	shared.EstablishmentAggregateRoot
	ImportJobID uuid.UUID `gorm:"type:uuid;not null;index"`
	FilePath    string    `gorm:"type:varchar(500);not null"`
	Reason      string    `gorm:"type:text;not null"`
	ArchiveURL  string    `gorm:"type:varchar(500)"`
}

// TableName returns the table name for GORM
func (RejectedInvoice) TableName() string {
	return "invoices_rejected"
}

// NewRejectedInvoice creates a rejection record for a failed import.
func NewRejectedInvoice(establishmentID, importJobID uuid.UUID, filePath, reason string) *RejectedInvoice {
	return &RejectedInvoice{
		EstablishmentAggregateRoot: shared.NewEstablishmentAggregateRoot(establishmentID),
		ImportJobID:                importJobID,
		FilePath:                   filePath,
		Reason:                     reason,
	}
}

// SetArchiveURL records where the source document was archived.
func (r *RejectedInvoice) SetArchiveURL(url string) {
	r.ArchiveURL = url
}
