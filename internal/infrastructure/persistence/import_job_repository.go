package persistence

import (
	"context"
	"errors"

	"github.com/google/uuid"
	"github.com/restocost/backend/internal/domain/purchasing"
	"github.com/restocost/backend/internal/domain/shared"
	"gorm.io/gorm"
)

// GormImportJobRepository implements ImportJobRepository using GORM
type GormImportJobRepository struct {
	db *gorm.DB
}

// NewGormImportJobRepository creates a new GormImportJobRepository
func NewGormImportJobRepository(db *gorm.DB) *GormImportJobRepository {
	return &GormImportJobRepository{db: db}
}

// FindByID finds an import job by its ID
func (r *GormImportJobRepository) FindByID(ctx context.Context, id uuid.UUID) (*purchasing.ImportJob, error) {
	var job purchasing.ImportJob
	if err := r.db.WithContext(ctx).First(&job, "id = ?", id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, shared.ErrNotFound
		}
		return nil, err
	}
	return &job, nil
}

// FindByIDForEstablishment finds an import job by ID within an establishment
func (r *GormImportJobRepository) FindByIDForEstablishment(ctx context.Context, establishmentID, id uuid.UUID) (*purchasing.ImportJob, error) {
	var job purchasing.ImportJob
	if err := r.db.WithContext(ctx).
		Where("establishment_id = ? AND id = ?", establishmentID, id).
		First(&job).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, shared.ErrNotFound
		}
		return nil, err
	}
	return &job, nil
}

// FindPending returns up to limit pending jobs, oldest first
func (r *GormImportJobRepository) FindPending(ctx context.Context, limit int) ([]purchasing.ImportJob, error) {
	var jobs []purchasing.ImportJob
	if err := r.db.WithContext(ctx).
		Where("status = ?", purchasing.ImportJobStatusPending).
		Order("created_at ASC").
		Limit(limit).
		Find(&jobs).Error; err != nil {
		return nil, err
	}
	return jobs, nil
}

// Save creates or updates an import job
func (r *GormImportJobRepository) Save(ctx context.Context, job *purchasing.ImportJob) error {
	return r.db.WithContext(ctx).Save(job).Error
}

// Ensure GormImportJobRepository implements ImportJobRepository
var _ purchasing.ImportJobRepository = (*GormImportJobRepository)(nil)
