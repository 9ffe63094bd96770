package recipe

import (
	"context"
	"sync"

	"github.com/google/uuid"
	"github.com/restocost/backend/internal/domain/shared"
)

// In-memory repository implementations backing the updater and propagator
// tests. They store copies, like a real store would.

type inMemoryRecipeRepo struct {
	mu      sync.Mutex
	recipes map[uuid.UUID]Recipe
	saves   int
}

func newInMemoryRecipeRepo() *inMemoryRecipeRepo {
	return &inMemoryRecipeRepo{recipes: make(map[uuid.UUID]Recipe)}
}

var _ RecipeRepository = (*inMemoryRecipeRepo)(nil)

func (r *inMemoryRecipeRepo) FindByID(_ context.Context, id uuid.UUID) (*Recipe, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	recipe, ok := r.recipes[id]
	if !ok {
		return nil, shared.ErrNotFound
	}
	return &recipe, nil
}

func (r *inMemoryRecipeRepo) FindByIDForEstablishment(ctx context.Context, establishmentID, id uuid.UUID) (*Recipe, error) {
	recipe, err := r.FindByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if recipe.EstablishmentID != establishmentID {
		return nil, shared.ErrNotFound
	}
	return recipe, nil
}

func (r *inMemoryRecipeRepo) FindByIDs(_ context.Context, establishmentID uuid.UUID, ids []uuid.UUID) ([]Recipe, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]Recipe, 0, len(ids))
	for _, id := range ids {
		if recipe, ok := r.recipes[id]; ok && recipe.EstablishmentID == establishmentID {
			out = append(out, recipe)
		}
	}
	return out, nil
}

func (r *inMemoryRecipeRepo) FindActiveForEstablishment(_ context.Context, establishmentID uuid.UUID) ([]Recipe, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []Recipe
	for _, recipe := range r.recipes {
		if recipe.EstablishmentID == establishmentID && recipe.Active {
			out = append(out, recipe)
		}
	}
	return out, nil
}

func (r *inMemoryRecipeRepo) Save(_ context.Context, recipe *Recipe) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.recipes[recipe.ID] = *recipe
	r.saves++
	return nil
}

func (r *inMemoryRecipeRepo) Delete(_ context.Context, id uuid.UUID) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.recipes, id)
	return nil
}

type inMemoryIngredientRepo struct {
	mu          sync.Mutex
	ingredients map[uuid.UUID]Ingredient
	saves       int
}

func newInMemoryIngredientRepo() *inMemoryIngredientRepo {
	return &inMemoryIngredientRepo{ingredients: make(map[uuid.UUID]Ingredient)}
}

var _ IngredientRepository = (*inMemoryIngredientRepo)(nil)

func (r *inMemoryIngredientRepo) FindByID(_ context.Context, id uuid.UUID) (*Ingredient, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	ingredient, ok := r.ingredients[id]
	if !ok {
		return nil, shared.ErrNotFound
	}
	return &ingredient, nil
}

func (r *inMemoryIngredientRepo) FindByRecipe(_ context.Context, recipeID uuid.UUID) ([]Ingredient, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []Ingredient
	for _, ingredient := range r.ingredients {
		if ingredient.RecipeID == recipeID {
			out = append(out, ingredient)
		}
	}
	return out, nil
}

func (r *inMemoryIngredientRepo) FindByMasterArticles(_ context.Context, establishmentID uuid.UUID, masterArticleIDs []uuid.UUID) ([]Ingredient, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	wanted := make(map[uuid.UUID]struct{}, len(masterArticleIDs))
	for _, id := range masterArticleIDs {
		wanted[id] = struct{}{}
	}
	var out []Ingredient
	for _, ingredient := range r.ingredients {
		if ingredient.EstablishmentID != establishmentID || ingredient.MasterArticleID == nil {
			continue
		}
		if _, ok := wanted[*ingredient.MasterArticleID]; ok {
			out = append(out, ingredient)
		}
	}
	return out, nil
}

func (r *inMemoryIngredientRepo) FindSubRecipeRefs(_ context.Context, establishmentID uuid.UUID) ([]Ingredient, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []Ingredient
	for _, ingredient := range r.ingredients {
		if ingredient.EstablishmentID == establishmentID && ingredient.Type == IngredientTypeSubRecipe {
			out = append(out, ingredient)
		}
	}
	return out, nil
}

func (r *inMemoryIngredientRepo) Save(_ context.Context, ingredient *Ingredient) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.ingredients[ingredient.ID] = *ingredient
	r.saves++
	return nil
}

func (r *inMemoryIngredientRepo) Delete(_ context.Context, id uuid.UUID) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.ingredients, id)
	return nil
}

func (r *inMemoryIngredientRepo) DeleteByRecipe(_ context.Context, recipeID uuid.UUID) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	for id, ingredient := range r.ingredients {
		if ingredient.RecipeID == recipeID {
			delete(r.ingredients, id)
		}
	}
	return nil
}
