package history

import (
	"context"
	"time"

	"github.com/restocost/backend/internal/domain/recipe"
	"go.uber.org/zap"
)

// Versioner appends immutable snapshots for every recipe and ingredient whose
// derived fields changed in the current transaction. Version numbers are read
// and allocated inside the same serialized per-establishment section that
// commits the snapshots, so they stay strictly increasing per entity even
// under retries.
type Versioner struct {
	recipeSnapshots     RecipeSnapshotRepository
	ingredientSnapshots IngredientSnapshotRepository
	logger              *zap.Logger
}

// NewVersioner creates a new history versioner.
func NewVersioner(recipeSnapshots RecipeSnapshotRepository, ingredientSnapshots IngredientSnapshotRepository, logger *zap.Logger) *Versioner {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Versioner{
		recipeSnapshots:     recipeSnapshots,
		ingredientSnapshots: ingredientSnapshots,
		logger:              logger,
	}
}

// RecordChanges writes one snapshot per changed entity, stamped with the
// transaction's effective date (invoice date for imports, current date for
// manual edits). Entities that did not change get no snapshot, which is what
// keeps an idempotent propagation pass from growing the history.
func (v *Versioner) RecordChanges(ctx context.Context, effectiveDate time.Time, recipes []*recipe.Recipe, ingredients []*recipe.Ingredient) error {
	for _, ingredient := range ingredients {
		version, err := v.ingredientSnapshots.MaxVersion(ctx, ingredient.ID)
		if err != nil {
			return err
		}
		if err := v.ingredientSnapshots.Append(ctx, snapshotIngredient(ingredient, version+1, effectiveDate, false)); err != nil {
			return err
		}
	}

	for _, changed := range recipes {
		version, err := v.recipeSnapshots.MaxVersion(ctx, changed.ID)
		if err != nil {
			return err
		}
		if err := v.recipeSnapshots.Append(ctx, snapshotRecipe(changed, version+1, effectiveDate, false)); err != nil {
			return err
		}
	}

	if len(recipes) > 0 || len(ingredients) > 0 {
		v.logger.Debug("history snapshots recorded",
			zap.Int("recipes", len(recipes)),
			zap.Int("ingredients", len(ingredients)),
			zap.Time("effective_date", effectiveDate),
		)
	}

	return nil
}

// RecordClosing writes final snapshots for a recipe and its ingredients at
// deletion time. Prior versions are preserved untouched; the closing row marks
// where the entity's timeline ends.
func (v *Versioner) RecordClosing(ctx context.Context, effectiveDate time.Time, deleted *recipe.Recipe, ingredients []recipe.Ingredient) error {
	for i := range ingredients {
		version, err := v.ingredientSnapshots.MaxVersion(ctx, ingredients[i].ID)
		if err != nil {
			return err
		}
		if err := v.ingredientSnapshots.Append(ctx, snapshotIngredient(&ingredients[i], version+1, effectiveDate, true)); err != nil {
			return err
		}
	}

	version, err := v.recipeSnapshots.MaxVersion(ctx, deleted.ID)
	if err != nil {
		return err
	}
	return v.recipeSnapshots.Append(ctx, snapshotRecipe(deleted, version+1, effectiveDate, true))
}
