package persistence

import (
	"context"

	"github.com/google/uuid"
	"github.com/restocost/backend/internal/domain/catalog"
	"github.com/restocost/backend/internal/domain/shared"
	"gorm.io/gorm"
)

// GormNormalizationRuleRepository implements NormalizationRuleRepository using GORM
type GormNormalizationRuleRepository struct {
	db *gorm.DB
}

// NewGormNormalizationRuleRepository creates a new GormNormalizationRuleRepository
func NewGormNormalizationRuleRepository(db *gorm.DB) *GormNormalizationRuleRepository {
	return &GormNormalizationRuleRepository{db: db}
}

// FindAllForEstablishment lists all rules of an establishment in application order
func (r *GormNormalizationRuleRepository) FindAllForEstablishment(ctx context.Context, establishmentID uuid.UUID) ([]catalog.NormalizationRule, error) {
	var rules []catalog.NormalizationRule
	if err := r.db.WithContext(ctx).
		Where("establishment_id = ?", establishmentID).
		Order("priority ASC, created_at ASC").
		Find(&rules).Error; err != nil {
		return nil, err
	}
	return rules, nil
}

// Save creates or updates a rule
func (r *GormNormalizationRuleRepository) Save(ctx context.Context, rule *catalog.NormalizationRule) error {
	return r.db.WithContext(ctx).Save(rule).Error
}

// Delete deletes a rule
func (r *GormNormalizationRuleRepository) Delete(ctx context.Context, id uuid.UUID) error {
	result := r.db.WithContext(ctx).Delete(&catalog.NormalizationRule{}, "id = ?", id)
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return shared.ErrNotFound
	}
	return nil
}

// Ensure GormNormalizationRuleRepository implements NormalizationRuleRepository
var _ catalog.NormalizationRuleRepository = (*GormNormalizationRuleRepository)(nil)
