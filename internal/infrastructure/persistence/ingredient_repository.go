package persistence

import (
	"context"
	"errors"

	"github.com/google/uuid"
	"github.com/restocost/backend/internal/domain/recipe"
	"github.com/restocost/backend/internal/domain/shared"
	"gorm.io/gorm"
)

// GormIngredientRepository implements IngredientRepository using GORM
type GormIngredientRepository struct {
	db *gorm.DB
}

// NewGormIngredientRepository creates a new GormIngredientRepository
func NewGormIngredientRepository(db *gorm.DB) *GormIngredientRepository {
	return &GormIngredientRepository{db: db}
}

// FindByID finds an ingredient by its ID
func (r *GormIngredientRepository) FindByID(ctx context.Context, id uuid.UUID) (*recipe.Ingredient, error) {
	var ingredient recipe.Ingredient
	if err := r.db.WithContext(ctx).First(&ingredient, "id = ?", id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, shared.ErrNotFound
		}
		return nil, err
	}
	return &ingredient, nil
}

// FindByRecipe lists all ingredients of a recipe in display order
func (r *GormIngredientRepository) FindByRecipe(ctx context.Context, recipeID uuid.UUID) ([]recipe.Ingredient, error) {
	var ingredients []recipe.Ingredient
	if err := r.db.WithContext(ctx).
		Where("recipe_id = ?", recipeID).
		Order("sort_order ASC, created_at ASC").
		Find(&ingredients).Error; err != nil {
		return nil, err
	}
	return ingredients, nil
}

// FindByMasterArticles returns all ARTICLE ingredients referencing any of the
// given master articles
func (r *GormIngredientRepository) FindByMasterArticles(ctx context.Context, establishmentID uuid.UUID, masterArticleIDs []uuid.UUID) ([]recipe.Ingredient, error) {
	if len(masterArticleIDs) == 0 {
		return []recipe.Ingredient{}, nil
	}

	var ingredients []recipe.Ingredient
	if err := r.db.WithContext(ctx).
		Where("establishment_id = ? AND type = ? AND master_article_id IN ?",
			establishmentID, recipe.IngredientTypeArticle, masterArticleIDs).
		Find(&ingredients).Error; err != nil {
		return nil, err
	}
	return ingredients, nil
}

// FindSubRecipeRefs returns every SUBRECIPE ingredient of the establishment
func (r *GormIngredientRepository) FindSubRecipeRefs(ctx context.Context, establishmentID uuid.UUID) ([]recipe.Ingredient, error) {
	var ingredients []recipe.Ingredient
	if err := r.db.WithContext(ctx).
		Where("establishment_id = ? AND type = ?", establishmentID, recipe.IngredientTypeSubRecipe).
		Find(&ingredients).Error; err != nil {
		return nil, err
	}
	return ingredients, nil
}

// Save creates or updates an ingredient
func (r *GormIngredientRepository) Save(ctx context.Context, ingredient *recipe.Ingredient) error {
	return r.db.WithContext(ctx).Save(ingredient).Error
}

// Delete deletes an ingredient
func (r *GormIngredientRepository) Delete(ctx context.Context, id uuid.UUID) error {
	result := r.db.WithContext(ctx).Delete(&recipe.Ingredient{}, "id = ?", id)
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return shared.ErrNotFound
	}
	return nil
}

// DeleteByRecipe deletes all ingredients of a recipe
func (r *GormIngredientRepository) DeleteByRecipe(ctx context.Context, recipeID uuid.UUID) error {
	return r.db.WithContext(ctx).Delete(&recipe.Ingredient{}, "recipe_id = ?", recipeID).Error
}

// Ensure GormIngredientRepository implements IngredientRepository
var _ recipe.IngredientRepository = (*GormIngredientRepository)(nil)
