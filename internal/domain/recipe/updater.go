package recipe

import (
	"context"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

// PriceSignal is one master article price movement entering the updater.
// NewUnitCost is zero when the article lost its last price source.
type PriceSignal struct {
	MasterArticleID uuid.UUID
	OldUnitCost     *decimal.Decimal
	NewUnitCost     decimal.Decimal
}

// UpdateResult lists what the updater touched: the ingredients whose derived
// cost moved and the owning recipes, which seed the propagation frontier.
type UpdateResult struct {
	ChangedIngredients []*Ingredient
	RecipeFrontier     []uuid.UUID
}

// CostUpdater recomputes per-ingredient unit costs for every live ARTICLE
// ingredient referencing a master article whose price changed in the current
// transaction.
type CostUpdater struct {
	ingredients IngredientRepository
	logger      *zap.Logger
}

// NewCostUpdater creates a new ingredient cost updater.
func NewCostUpdater(ingredients IngredientRepository, logger *zap.Logger) *CostUpdater {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &CostUpdater{
		ingredients: ingredients,
		logger:      logger,
	}
}

// Apply updates ingredient costs from the given price signals and returns the
// seed frontier for recipe propagation. Ingredients whose cost is already at
// the target value are left untouched, keeping re-runs idempotent.
func (u *CostUpdater) Apply(ctx context.Context, establishmentID uuid.UUID, signals []PriceSignal) (*UpdateResult, error) {
	result := &UpdateResult{}
	if len(signals) == 0 {
		return result, nil
	}

	costByArticle := make(map[uuid.UUID]decimal.Decimal, len(signals))
	ids := make([]uuid.UUID, 0, len(signals))
	for _, signal := range signals {
		costByArticle[signal.MasterArticleID] = signal.NewUnitCost
		ids = append(ids, signal.MasterArticleID)
	}

	ingredients, err := u.ingredients.FindByMasterArticles(ctx, establishmentID, ids)
	if err != nil {
		return nil, err
	}

	frontier := make(map[uuid.UUID]struct{})
	for i := range ingredients {
		ingredient := &ingredients[i]
		if ingredient.Type != IngredientTypeArticle || ingredient.MasterArticleID == nil {
			continue
		}
		newCost, ok := costByArticle[*ingredient.MasterArticleID]
		if !ok || ingredient.UnitCost.Equal(newCost) {
			continue
		}

		if err := ingredient.ApplyUnitCost(newCost); err != nil {
			return nil, err
		}
		if err := u.ingredients.Save(ctx, ingredient); err != nil {
			return nil, err
		}

		result.ChangedIngredients = append(result.ChangedIngredients, ingredient)
		frontier[ingredient.RecipeID] = struct{}{}
	}

	for id := range frontier {
		result.RecipeFrontier = append(result.RecipeFrontier, id)
	}

	u.logger.Debug("ingredient costs updated",
		zap.String("establishment_id", establishmentID.String()),
		zap.Int("ingredients", len(result.ChangedIngredients)),
		zap.Int("frontier", len(result.RecipeFrontier)),
	)

	return result, nil
}
