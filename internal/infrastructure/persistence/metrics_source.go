package persistence

import (
	"context"

	"github.com/google/uuid"
	"github.com/restocost/backend/internal/domain/purchasing"
	"github.com/restocost/backend/internal/domain/recipe"
	"gorm.io/gorm"
)

// MetricsSource answers the queries the periodic telemetry collector runs:
// which establishments are active and how deep their import backlog is.
type MetricsSource struct {
	db *gorm.DB
}

// NewMetricsSource creates a new MetricsSource
func NewMetricsSource(db *gorm.DB) *MetricsSource {
	return &MetricsSource{db: db}
}

// GetActiveEstablishmentIDs returns the establishments that have at least one
// active recipe.
func (s *MetricsSource) GetActiveEstablishmentIDs(ctx context.Context) ([]uuid.UUID, error) {
	var ids []uuid.UUID
	if err := s.db.WithContext(ctx).
		Model(&recipe.Recipe{}).
		Where("active = ?", true).
		Distinct().
		Pluck("establishment_id", &ids).Error; err != nil {
		return nil, err
	}
	return ids, nil
}

// CountPendingImportJobs returns the number of import jobs waiting to run for
// an establishment.
func (s *MetricsSource) CountPendingImportJobs(ctx context.Context, establishmentID uuid.UUID) (int64, error) {
	var count int64
	if err := s.db.WithContext(ctx).
		Model(&purchasing.ImportJob{}).
		Where("establishment_id = ? AND status = ?", establishmentID, purchasing.ImportJobStatusPending).
		Count(&count).Error; err != nil {
		return 0, err
	}
	return count, nil
}
