package recipe

import (
	"context"

	"github.com/google/uuid"
	"github.com/restocost/backend/internal/domain/shared"
)

// RecipeRepository defines persistence operations for recipes
type RecipeRepository interface {
	shared.Repository[Recipe]
	FindByIDForEstablishment(ctx context.Context, establishmentID, id uuid.UUID) (*Recipe, error)
	FindByIDs(ctx context.Context, establishmentID uuid.UUID, ids []uuid.UUID) ([]Recipe, error)
	// FindActiveForEstablishment lists all active recipes, used by the margin
	// aggregator.
	FindActiveForEstablishment(ctx context.Context, establishmentID uuid.UUID) ([]Recipe, error)
}

// IngredientRepository defines persistence operations for ingredients
type IngredientRepository interface {
	FindByID(ctx context.Context, id uuid.UUID) (*Ingredient, error)
	FindByRecipe(ctx context.Context, recipeID uuid.UUID) ([]Ingredient, error)
	// FindByMasterArticles returns all live ARTICLE ingredients referencing
	// any of the given master articles.
	FindByMasterArticles(ctx context.Context, establishmentID uuid.UUID, masterArticleIDs []uuid.UUID) ([]Ingredient, error)
	// FindSubRecipeRefs returns every SUBRECIPE ingredient of the
	// establishment; the propagator builds the containment graph from them.
	FindSubRecipeRefs(ctx context.Context, establishmentID uuid.UUID) ([]Ingredient, error)
	Save(ctx context.Context, ingredient *Ingredient) error
	Delete(ctx context.Context, id uuid.UUID) error
	DeleteByRecipe(ctx context.Context, recipeID uuid.UUID) error
}
