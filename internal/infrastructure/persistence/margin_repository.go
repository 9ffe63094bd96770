package persistence

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/restocost/backend/internal/domain/margin"
	"github.com/restocost/backend/internal/domain/shared"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// GormMarginRepository implements the margin Repository using GORM.
// All writes are day-keyed upserts so recomputing a day overwrites its rows.
type GormMarginRepository struct {
	db *gorm.DB
}

// NewGormMarginRepository creates a new GormMarginRepository
func NewGormMarginRepository(db *gorm.DB) *GormMarginRepository {
	return &GormMarginRepository{db: db}
}

// UpsertRecipeMargin writes the establishment-wide margin row for the day
func (r *GormMarginRepository) UpsertRecipeMargin(ctx context.Context, row *margin.RecipeMargin) error {
	return r.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns: []clause.Column{{Name: "establishment_id"}, {Name: "date"}},
		DoUpdates: clause.AssignmentColumns([]string{
			"average_margin", "recipe_count", "updated_at",
		}),
	}).Create(row).Error
}

// UpsertCategoryMargin writes one category margin row for the day
func (r *GormMarginRepository) UpsertCategoryMargin(ctx context.Context, row *margin.RecipeMarginCategory) error {
	return r.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns: []clause.Column{{Name: "establishment_id"}, {Name: "date"}, {Name: "category"}},
		DoUpdates: clause.AssignmentColumns([]string{
			"average_margin", "recipe_count", "updated_at",
		}),
	}).Create(row).Error
}

// UpsertSubcategoryMargin writes one subcategory margin row for the day
func (r *GormMarginRepository) UpsertSubcategoryMargin(ctx context.Context, row *margin.RecipeMarginSubcategory) error {
	return r.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns: []clause.Column{{Name: "establishment_id"}, {Name: "date"}, {Name: "subcategory"}},
		DoUpdates: clause.AssignmentColumns([]string{
			"category", "average_margin", "recipe_count", "updated_at",
		}),
	}).Create(row).Error
}

// UpsertLiveScore writes one live score row for the day
func (r *GormMarginRepository) UpsertLiveScore(ctx context.Context, row *margin.LiveScore) error {
	return r.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns: []clause.Column{{Name: "establishment_id"}, {Name: "date"}, {Name: "type"}},
		DoUpdates: clause.AssignmentColumns([]string{
			"score", "updated_at",
		}),
	}).Create(row).Error
}

// DeleteCategoryMarginsExcept removes category rows of the day whose category
// no longer has any active recipe
func (r *GormMarginRepository) DeleteCategoryMarginsExcept(ctx context.Context, establishmentID uuid.UUID, date time.Time, keep []string) error {
	query := r.db.WithContext(ctx).
		Where("establishment_id = ? AND date = ?", establishmentID, date)
	if len(keep) > 0 {
		query = query.Where("category NOT IN ?", keep)
	}
	return query.Delete(&margin.RecipeMarginCategory{}).Error
}

// DeleteSubcategoryMarginsExcept removes subcategory rows of the day whose
// subcategory no longer has any active recipe
func (r *GormMarginRepository) DeleteSubcategoryMarginsExcept(ctx context.Context, establishmentID uuid.UUID, date time.Time, keep []string) error {
	query := r.db.WithContext(ctx).
		Where("establishment_id = ? AND date = ?", establishmentID, date)
	if len(keep) > 0 {
		query = query.Where("subcategory NOT IN ?", keep)
	}
	return query.Delete(&margin.RecipeMarginSubcategory{}).Error
}

// FindRecipeMargin fetches the establishment-wide margin row for the day
func (r *GormMarginRepository) FindRecipeMargin(ctx context.Context, establishmentID uuid.UUID, date time.Time) (*margin.RecipeMargin, error) {
	var row margin.RecipeMargin
	if err := r.db.WithContext(ctx).
		Where("establishment_id = ? AND date = ?", establishmentID, date).
		First(&row).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, shared.ErrNotFound
		}
		return nil, err
	}
	return &row, nil
}

// FindLiveScore fetches one live score row for the day
func (r *GormMarginRepository) FindLiveScore(ctx context.Context, establishmentID uuid.UUID, date time.Time, scoreType margin.ScoreType) (*margin.LiveScore, error) {
	var row margin.LiveScore
	if err := r.db.WithContext(ctx).
		Where("establishment_id = ? AND date = ? AND type = ?", establishmentID, date, scoreType).
		First(&row).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, shared.ErrNotFound
		}
		return nil, err
	}
	return &row, nil
}

// Ensure GormMarginRepository implements Repository
var _ margin.Repository = (*GormMarginRepository)(nil)
