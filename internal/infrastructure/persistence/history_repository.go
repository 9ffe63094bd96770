package persistence

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/restocost/backend/internal/domain/history"
	"gorm.io/gorm"
)

// GormRecipeSnapshotRepository implements RecipeSnapshotRepository using GORM.
// History tables are append-only: rows are created and read, never updated.
type GormRecipeSnapshotRepository struct {
	db *gorm.DB
}

// NewGormRecipeSnapshotRepository creates a new GormRecipeSnapshotRepository
func NewGormRecipeSnapshotRepository(db *gorm.DB) *GormRecipeSnapshotRepository {
	return &GormRecipeSnapshotRepository{db: db}
}

// MaxVersion returns the highest committed version for the recipe, zero when
// the recipe has no history yet
func (r *GormRecipeSnapshotRepository) MaxVersion(ctx context.Context, recipeID uuid.UUID) (int64, error) {
	var maxVersion int64
	if err := r.db.WithContext(ctx).
		Model(&history.RecipeSnapshot{}).
		Where("recipe_id = ?", recipeID).
		Select("COALESCE(MAX(version_number), 0)").
		Scan(&maxVersion).Error; err != nil {
		return 0, err
	}
	return maxVersion, nil
}

// Append writes a new history row
func (r *GormRecipeSnapshotRepository) Append(ctx context.Context, snapshot *history.RecipeSnapshot) error {
	return r.db.WithContext(ctx).Create(snapshot).Error
}

// FindByRecipe lists the full history of one recipe in version order
func (r *GormRecipeSnapshotRepository) FindByRecipe(ctx context.Context, recipeID uuid.UUID) ([]history.RecipeSnapshot, error) {
	var snapshots []history.RecipeSnapshot
	if err := r.db.WithContext(ctx).
		Where("recipe_id = ?", recipeID).
		Order("version_number ASC").
		Find(&snapshots).Error; err != nil {
		return nil, err
	}
	return snapshots, nil
}

// FindRange lists snapshots of an establishment whose effective date falls
// inside [from, to]
func (r *GormRecipeSnapshotRepository) FindRange(ctx context.Context, establishmentID uuid.UUID, from, to time.Time) ([]history.RecipeSnapshot, error) {
	var snapshots []history.RecipeSnapshot
	if err := r.db.WithContext(ctx).
		Where("establishment_id = ? AND effective_date >= ? AND effective_date <= ?", establishmentID, from, to).
		Order("effective_date ASC, version_number ASC").
		Find(&snapshots).Error; err != nil {
		return nil, err
	}
	return snapshots, nil
}

// Ensure GormRecipeSnapshotRepository implements RecipeSnapshotRepository
var _ history.RecipeSnapshotRepository = (*GormRecipeSnapshotRepository)(nil)

// GormIngredientSnapshotRepository implements IngredientSnapshotRepository using GORM
type GormIngredientSnapshotRepository struct {
	db *gorm.DB
}

// NewGormIngredientSnapshotRepository creates a new GormIngredientSnapshotRepository
func NewGormIngredientSnapshotRepository(db *gorm.DB) *GormIngredientSnapshotRepository {
	return &GormIngredientSnapshotRepository{db: db}
}

// MaxVersion returns the highest committed version for the ingredient
func (r *GormIngredientSnapshotRepository) MaxVersion(ctx context.Context, ingredientID uuid.UUID) (int64, error) {
	var maxVersion int64
	if err := r.db.WithContext(ctx).
		Model(&history.IngredientSnapshot{}).
		Where("ingredient_id = ?", ingredientID).
		Select("COALESCE(MAX(version_number), 0)").
		Scan(&maxVersion).Error; err != nil {
		return 0, err
	}
	return maxVersion, nil
}

// Append writes a new history row
func (r *GormIngredientSnapshotRepository) Append(ctx context.Context, snapshot *history.IngredientSnapshot) error {
	return r.db.WithContext(ctx).Create(snapshot).Error
}

// FindByIngredient lists the full history of one ingredient in version order
func (r *GormIngredientSnapshotRepository) FindByIngredient(ctx context.Context, ingredientID uuid.UUID) ([]history.IngredientSnapshot, error) {
	var snapshots []history.IngredientSnapshot
	if err := r.db.WithContext(ctx).
		Where("ingredient_id = ?", ingredientID).
		Order("version_number ASC").
		Find(&snapshots).Error; err != nil {
		return nil, err
	}
	return snapshots, nil
}

// FindRange lists snapshots of an establishment whose effective date falls
// inside [from, to]
func (r *GormIngredientSnapshotRepository) FindRange(ctx context.Context, establishmentID uuid.UUID, from, to time.Time) ([]history.IngredientSnapshot, error) {
	var snapshots []history.IngredientSnapshot
	if err := r.db.WithContext(ctx).
		Where("establishment_id = ? AND effective_date >= ? AND effective_date <= ?", establishmentID, from, to).
		Order("effective_date ASC, version_number ASC").
		Find(&snapshots).Error; err != nil {
		return nil, err
	}
	return snapshots, nil
}

// Ensure GormIngredientSnapshotRepository implements IngredientSnapshotRepository
var _ history.IngredientSnapshotRepository = (*GormIngredientSnapshotRepository)(nil)
