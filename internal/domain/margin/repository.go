package margin

import (
	"context"
	"time"

	"github.com/google/uuid"
)

// Repository persists margin aggregates. Upserts are keyed by the row's
// natural day key, so recomputing the same day overwrites instead of
// accumulating.
type Repository interface {
	UpsertRecipeMargin(ctx context.Context, row *RecipeMargin) error
	UpsertCategoryMargin(ctx context.Context, row *RecipeMarginCategory) error
	UpsertSubcategoryMargin(ctx context.Context, row *RecipeMarginSubcategory) error
	UpsertLiveScore(ctx context.Context, row *LiveScore) error
	// DeleteCategoryMarginsExcept removes category rows of the day whose
	// category no longer has any active recipe.
	DeleteCategoryMarginsExcept(ctx context.Context, establishmentID uuid.UUID, date time.Time, keep []string) error
	DeleteSubcategoryMarginsExcept(ctx context.Context, establishmentID uuid.UUID, date time.Time, keep []string) error
	FindRecipeMargin(ctx context.Context, establishmentID uuid.UUID, date time.Time) (*RecipeMargin, error)
	FindLiveScore(ctx context.Context, establishmentID uuid.UUID, date time.Time, scoreType ScoreType) (*LiveScore, error)
}
