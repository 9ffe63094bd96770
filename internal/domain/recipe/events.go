package recipe

import (
	"github.com/google/uuid"
	"github.com/restocost/backend/internal/domain/shared"
	"github.com/shopspring/decimal"
)

// Aggregate type constant
const AggregateTypeRecipe = "Recipe"

// Event type constants
const (
	EventTypeRecipeCreated     = "RecipeCreated"
	EventTypeRecipeCostChanged = "RecipeCostChanged"
	EventTypeRecipeDeleted     = "RecipeDeleted"
)

// RecipeCreatedEvent is published when a recipe is created (or duplicated)
type RecipeCreatedEvent struct {
	shared.BaseDomainEvent
	RecipeID uuid.UUID `json:"recipe_id"`
	Name     string    `json:"name"`
	Category string    `json:"category,omitempty"`
}

// NewRecipeCreatedEvent creates a new RecipeCreatedEvent
func NewRecipeCreatedEvent(recipe *Recipe) *RecipeCreatedEvent {
	return &RecipeCreatedEvent{
		BaseDomainEvent: shared.NewBaseDomainEvent(EventTypeRecipeCreated, AggregateTypeRecipe, recipe.ID, recipe.EstablishmentID),
		RecipeID:        recipe.ID,
		Name:            recipe.Name,
		Category:        recipe.Category,
	}
}

// RecipeCostChangedEvent is published when propagation moves a recipe's derived cost
type RecipeCostChangedEvent struct {
	shared.BaseDomainEvent
	RecipeID uuid.UUID       `json:"recipe_id"`
	OldTotal decimal.Decimal `json:"old_total"`
	NewTotal decimal.Decimal `json:"new_total"`
}

// NewRecipeCostChangedEvent creates a new RecipeCostChangedEvent
func NewRecipeCostChangedEvent(recipe *Recipe, oldTotal, newTotal decimal.Decimal) *RecipeCostChangedEvent {
	return &RecipeCostChangedEvent{
		BaseDomainEvent: shared.NewBaseDomainEvent(EventTypeRecipeCostChanged, AggregateTypeRecipe, recipe.ID, recipe.EstablishmentID),
		RecipeID:        recipe.ID,
		OldTotal:        oldTotal,
		NewTotal:        newTotal,
	}
}

// RecipeDeletedEvent is published when a recipe is removed
type RecipeDeletedEvent struct {
	shared.BaseDomainEvent
	RecipeID uuid.UUID `json:"recipe_id"`
	Name     string    `json:"name"`
}

// NewRecipeDeletedEvent creates a new RecipeDeletedEvent
func NewRecipeDeletedEvent(recipe *Recipe) *RecipeDeletedEvent {
	return &RecipeDeletedEvent{
		BaseDomainEvent: shared.NewBaseDomainEvent(EventTypeRecipeDeleted, AggregateTypeRecipe, recipe.ID, recipe.EstablishmentID),
		RecipeID:        recipe.ID,
		Name:            recipe.Name,
	}
}
