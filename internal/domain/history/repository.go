package history

import (
	"context"
	"time"

	"github.com/google/uuid"
)

// RecipeSnapshotRepository defines persistence operations for recipe history.
// Append is the only write: history rows are never updated or deleted.
type RecipeSnapshotRepository interface {
	// MaxVersion returns the highest committed version for the recipe, zero
	// when the recipe has no history yet.
	MaxVersion(ctx context.Context, recipeID uuid.UUID) (int64, error)
	Append(ctx context.Context, snapshot *RecipeSnapshot) error
	FindByRecipe(ctx context.Context, recipeID uuid.UUID) ([]RecipeSnapshot, error)
	// FindRange lists snapshots of an establishment whose effective date falls
	// inside [from, to], ordered by effective date then version.
	FindRange(ctx context.Context, establishmentID uuid.UUID, from, to time.Time) ([]RecipeSnapshot, error)
}

// IngredientSnapshotRepository defines persistence operations for ingredient history.
type IngredientSnapshotRepository interface {
	MaxVersion(ctx context.Context, ingredientID uuid.UUID) (int64, error)
	Append(ctx context.Context, snapshot *IngredientSnapshot) error
	FindByIngredient(ctx context.Context, ingredientID uuid.UUID) ([]IngredientSnapshot, error)
	FindRange(ctx context.Context, establishmentID uuid.UUID, from, to time.Time) ([]IngredientSnapshot, error)
}
