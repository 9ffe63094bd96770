package recipe

import (
	"context"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

// PropagationResult lists everything one propagation pass recomputed.
type PropagationResult struct {
	// ChangedRecipes are recipes whose derived fields actually moved.
	ChangedRecipes []*Recipe
	// ChangedIngredients are SUBRECIPE ingredients refreshed from a
	// recomputed sub-recipe cost.
	ChangedIngredients []*Ingredient
	// Visited is the number of recipes recomputed (each at most once).
	Visited int
}

// Propagator walks the recipe containment graph upward from a frontier of
// changed recipes and recomputes derived cost/margin fields in dependency
// order: leaf recipes first, so a container always reads the already
// recomputed cost of its sub-recipes. Each reachable recipe is recomputed
// exactly once per transaction, bounding work to O(reachable recipes) even
// through diamond-shaped containment.
type Propagator struct {
	recipes     RecipeRepository
	ingredients IngredientRepository
	logger      *zap.Logger
}

// NewPropagator creates a new recipe cost propagator.
func NewPropagator(recipes RecipeRepository, ingredients IngredientRepository, logger *zap.Logger) *Propagator {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Propagator{
		recipes:     recipes,
		ingredients: ingredients,
		logger:      logger,
	}
}

// Propagate recomputes every recipe reachable upward from the frontier.
// A cycle anywhere in the reachable component aborts with CYCLE_DETECTED:
// that is a data integrity violation, not a retryable condition.
func (p *Propagator) Propagate(ctx context.Context, establishmentID uuid.UUID, frontier []uuid.UUID) (*PropagationResult, error) {
	result := &PropagationResult{}
	if len(frontier) == 0 {
		return result, nil
	}

	subRefs, err := p.ingredients.FindSubRecipeRefs(ctx, establishmentID)
	if err != nil {
		return nil, err
	}
	graph := BuildGraph(subRefs)

	reachable, err := graph.ReachableParents(frontier)
	if err != nil {
		return nil, err
	}
	order, err := graph.TopologicalOrder(reachable)
	if err != nil {
		return nil, err
	}

	loaded, err := p.recipes.FindByIDs(ctx, establishmentID, order)
	if err != nil {
		return nil, err
	}
	byID := make(map[uuid.UUID]*Recipe, len(loaded))
	for i := range loaded {
		byID[loaded[i].ID] = &loaded[i]
	}

	// Per-portion costs recomputed in this pass; sub-recipes outside the
	// reachable set keep their stored ingredient cost.
	recomputed := make(map[uuid.UUID]decimal.Decimal, len(order))

	for _, id := range order {
		current, ok := byID[id]
		if !ok {
			// Frontier may reference a recipe removed earlier in the same
			// transaction (delete events); its parents still propagate.
			continue
		}

		ingredients, err := p.ingredients.FindByRecipe(ctx, id)
		if err != nil {
			return nil, err
		}

		for i := range ingredients {
			ingredient := &ingredients[i]
			if ingredient.Type != IngredientTypeSubRecipe || ingredient.SubRecipeID == nil {
				continue
			}
			cost, ok := recomputed[*ingredient.SubRecipeID]
			if !ok || ingredient.UnitCost.Equal(cost) {
				continue
			}
			if err := ingredient.ApplyUnitCost(cost); err != nil {
				return nil, err
			}
			if err := p.ingredients.Save(ctx, ingredient); err != nil {
				return nil, err
			}
			result.ChangedIngredients = append(result.ChangedIngredients, ingredient)
		}

		changed, err := current.RecomputeCosts(ingredients)
		if err != nil {
			return nil, err
		}
		recomputed[id] = current.PurchaseCostPerPortion
		result.Visited++

		if changed {
			if err := p.recipes.Save(ctx, current); err != nil {
				return nil, err
			}
			result.ChangedRecipes = append(result.ChangedRecipes, current)
		}
	}

	p.logger.Debug("recipe costs propagated",
		zap.String("establishment_id", establishmentID.String()),
		zap.Int("visited", result.Visited),
		zap.Int("changed", len(result.ChangedRecipes)),
	)

	return result, nil
}
