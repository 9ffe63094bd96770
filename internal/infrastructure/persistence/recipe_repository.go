package persistence

import (
	"context"
	"errors"

	"github.com/google/uuid"
	"github.com/restocost/backend/internal/domain/recipe"
	"github.com/restocost/backend/internal/domain/shared"
	"gorm.io/gorm"
)

// GormRecipeRepository implements RecipeRepository using GORM
type GormRecipeRepository struct {
	db *gorm.DB
}

// NewGormRecipeRepository creates a new GormRecipeRepository
func NewGormRecipeRepository(db *gorm.DB) *GormRecipeRepository {
	return &GormRecipeRepository{db: db}
}

// FindByID finds a recipe by its ID
func (r *GormRecipeRepository) FindByID(ctx context.Context, id uuid.UUID) (*recipe.Recipe, error) {
	var rec recipe.Recipe
	if err := r.db.WithContext(ctx).First(&rec, "id = ?", id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, shared.ErrNotFound
		}
		return nil, err
	}
	return &rec, nil
}

// FindByIDForEstablishment finds a recipe by ID within an establishment
func (r *GormRecipeRepository) FindByIDForEstablishment(ctx context.Context, establishmentID, id uuid.UUID) (*recipe.Recipe, error) {
	var rec recipe.Recipe
	if err := r.db.WithContext(ctx).
		Where("establishment_id = ? AND id = ?", establishmentID, id).
		First(&rec).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, shared.ErrNotFound
		}
		return nil, err
	}
	return &rec, nil
}

// FindByIDs finds multiple recipes by their IDs
func (r *GormRecipeRepository) FindByIDs(ctx context.Context, establishmentID uuid.UUID, ids []uuid.UUID) ([]recipe.Recipe, error) {
	if len(ids) == 0 {
		return []recipe.Recipe{}, nil
	}

	var recipes []recipe.Recipe
	if err := r.db.WithContext(ctx).
		Where("establishment_id = ? AND id IN ?", establishmentID, ids).
		Find(&recipes).Error; err != nil {
		return nil, err
	}
	return recipes, nil
}

// FindActiveForEstablishment lists all active recipes of an establishment
func (r *GormRecipeRepository) FindActiveForEstablishment(ctx context.Context, establishmentID uuid.UUID) ([]recipe.Recipe, error) {
	var recipes []recipe.Recipe
	if err := r.db.WithContext(ctx).
		Where("establishment_id = ? AND active = ?", establishmentID, true).
		Order("name ASC").
		Find(&recipes).Error; err != nil {
		return nil, err
	}
	return recipes, nil
}

// Save creates or updates a recipe
func (r *GormRecipeRepository) Save(ctx context.Context, rec *recipe.Recipe) error {
	return r.db.WithContext(ctx).Save(rec).Error
}

// Delete deletes a recipe
func (r *GormRecipeRepository) Delete(ctx context.Context, id uuid.UUID) error {
	result := r.db.WithContext(ctx).Delete(&recipe.Recipe{}, "id = ?", id)
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return shared.ErrNotFound
	}
	return nil
}

// Ensure GormRecipeRepository implements RecipeRepository
var _ recipe.RecipeRepository = (*GormRecipeRepository)(nil)
