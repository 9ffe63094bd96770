package persistence

import (
	"context"

	"github.com/google/uuid"
	"github.com/restocost/backend/internal/domain/purchasing"
	"gorm.io/gorm"
)

// GormRejectedInvoiceRepository implements RejectedInvoiceRepository using GORM
type GormRejectedInvoiceRepository struct {
	db *gorm.DB
}

// NewGormRejectedInvoiceRepository creates a new GormRejectedInvoiceRepository
func NewGormRejectedInvoiceRepository(db *gorm.DB) *GormRejectedInvoiceRepository {
	return &GormRejectedInvoiceRepository{db: db}
}

// FindByImportJob lists rejection records of one import job
func (r *GormRejectedInvoiceRepository) FindByImportJob(ctx context.Context, importJobID uuid.UUID) ([]purchasing.RejectedInvoice, error) {
	var rejected []purchasing.RejectedInvoice
	if err := r.db.WithContext(ctx).
		Where("import_job_id = ?", importJobID).
		Order("created_at ASC").
		Find(&rejected).Error; err != nil {
		return nil, err
	}
	return rejected, nil
}

// FindAllForEstablishment lists all rejection records of an establishment
func (r *GormRejectedInvoiceRepository) FindAllForEstablishment(ctx context.Context, establishmentID uuid.UUID) ([]purchasing.RejectedInvoice, error) {
	var rejected []purchasing.RejectedInvoice
	if err := r.db.WithContext(ctx).
		Where("establishment_id = ?", establishmentID).
		Order("created_at DESC").
		Find(&rejected).Error; err != nil {
		return nil, err
	}
	return rejected, nil
}

// Save creates a rejection record
func (r *GormRejectedInvoiceRepository) Save(ctx context.Context, rejected *purchasing.RejectedInvoice) error {
	return r.db.WithContext(ctx).Save(rejected).Error
}

// Ensure GormRejectedInvoiceRepository implements RejectedInvoiceRepository
var _ purchasing.RejectedInvoiceRepository = (*GormRejectedInvoiceRepository)(nil)
