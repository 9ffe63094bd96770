package recipe

import (
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/restocost/backend/internal/domain/shared"
	"github.com/shopspring/decimal"
)

// IngredientType is the tagged variant discriminator for a bill-of-materials line.
type IngredientType string

const (
	// IngredientTypeArticle references a master article; its cost follows the
	// article's derived current price.
	IngredientTypeArticle IngredientType = "ARTICLE"
	// IngredientTypeFixed carries a manually set cost with no reference.
	IngredientTypeFixed IngredientType = "FIXED"
	// IngredientTypeSubRecipe references another recipe; its cost follows the
	// referenced recipe's per-portion purchase cost.
	IngredientTypeSubRecipe IngredientType = "SUBRECIPE"
)

// Ingredient is one line of a recipe's bill of materials. Exactly one of
// MasterArticleID / SubRecipeID is set, according to Type; FIXED carries
// neither. References are non-owning: many ingredients may point at the same
// master article or recipe.
type Ingredient struct {
	shared.EstablishmentAggregateRoot
	RecipeID           uuid.UUID       `gorm:"type:uuid;not null;index"`
	Type               IngredientType  `gorm:"type:varchar(10);not null;index"`
	MasterArticleID    *uuid.UUID      `gorm:"type:uuid;index"`
	SubRecipeID        *uuid.UUID      `gorm:"type:uuid;index"`
	Name               string          `gorm:"type:varchar(200);not null"`
	Quantity           decimal.Decimal `gorm:"type:decimal(18,4);not null;default:0"`
	Unit               string          `gorm:"type:varchar(20)"`
	UnitCost           decimal.Decimal `gorm:"type:decimal(18,6);not null;default:0"`
	PercentageLoss     decimal.Decimal `gorm:"type:decimal(6,4);not null;default:0"`
	UnitCostPerPortion decimal.Decimal `gorm:"type:decimal(18,6);not null;default:0"`
	SortOrder          int             `gorm:"not null;default:0"`
}

// TableName returns the table name for GORM
func (Ingredient) TableName() string {
	return "ingredients"
}

func newIngredient(recipe *Recipe, ingredientType IngredientType, name string, quantity decimal.Decimal, unit string, percentageLoss decimal.Decimal) (*Ingredient, error) {
	if strings.TrimSpace(name) == "" {
		return nil, shared.NewValidationError("Ingredient name cannot be empty")
	}
	if err := validatePercentageLoss(percentageLoss); err != nil {
		return nil, err
	}

	return &Ingredient{
		EstablishmentAggregateRoot: shared.NewEstablishmentAggregateRoot(recipe.EstablishmentID),
		RecipeID:                   recipe.ID,
		Type:                       ingredientType,
		Name:                       strings.TrimSpace(name),
		Quantity:                   quantity,
		Unit:                       unit,
		PercentageLoss:             percentageLoss,
	}, nil
}

// NewArticleIngredient creates an ARTICLE ingredient seeded with the master
// article's current unit price (zero when it has none yet).
func NewArticleIngredient(recipe *Recipe, masterArticleID uuid.UUID, name string, quantity decimal.Decimal, unit string, unitCost, percentageLoss decimal.Decimal) (*Ingredient, error) {
	ingredient, err := newIngredient(recipe, IngredientTypeArticle, name, quantity, unit, percentageLoss)
	if err != nil {
		return nil, err
	}
	ingredient.MasterArticleID = &masterArticleID
	if err := ingredient.ApplyUnitCost(unitCost); err != nil {
		return nil, err
	}
	return ingredient, nil
}

// NewFixedIngredient creates a FIXED ingredient carrying a manual cost.
func NewFixedIngredient(recipe *Recipe, name string, cost decimal.Decimal) (*Ingredient, error) {
	ingredient, err := newIngredient(recipe, IngredientTypeFixed, name, decimal.NewFromInt(1), "", decimal.Zero)
	if err != nil {
		return nil, err
	}
	if err := ingredient.ApplyUnitCost(cost); err != nil {
		return nil, err
	}
	return ingredient, nil
}

// NewSubRecipeIngredient creates a SUBRECIPE ingredient seeded with the
// referenced recipe's per-portion purchase cost.
func NewSubRecipeIngredient(recipe *Recipe, subRecipe *Recipe, quantity decimal.Decimal, percentageLoss decimal.Decimal) (*Ingredient, error) {
	if subRecipe.ID == recipe.ID {
		return nil, shared.NewCycleDetectedError("A recipe cannot contain itself")
	}
	if subRecipe.EstablishmentID != recipe.EstablishmentID {
		return nil, shared.NewValidationError("Sub-recipe must belong to the same establishment")
	}

	ingredient, err := newIngredient(recipe, IngredientTypeSubRecipe, subRecipe.Name, quantity, "portion", percentageLoss)
	if err != nil {
		return nil, err
	}
	ingredient.SubRecipeID = &subRecipe.ID
	if err := ingredient.ApplyUnitCost(subRecipe.PurchaseCostPerPortion); err != nil {
		return nil, err
	}
	return ingredient, nil
}

// ApplyUnitCost sets the unit cost and recomputes the derived per-portion
// contribution: unit_cost * quantity / (1 - percentage_loss).
func (i *Ingredient) ApplyUnitCost(unitCost decimal.Decimal) error {
	if err := validatePercentageLoss(i.PercentageLoss); err != nil {
		return err
	}

	i.UnitCost = unitCost
	i.UnitCostPerPortion = unitCost.Mul(i.Quantity).Div(decimal.NewFromInt(1).Sub(i.PercentageLoss))
	i.UpdatedAt = time.Now()
	return nil
}

// SetQuantity updates quantity and loss and recomputes the derived cost.
func (i *Ingredient) SetQuantity(quantity, percentageLoss decimal.Decimal) error {
	if err := validatePercentageLoss(percentageLoss); err != nil {
		return err
	}
	i.Quantity = quantity
	i.PercentageLoss = percentageLoss
	return i.ApplyUnitCost(i.UnitCost)
}

// CloneFor copies the ingredient onto another recipe with a fresh identity.
func (i *Ingredient) CloneFor(target *Recipe) *Ingredient {
	clone := *i
	clone.EstablishmentAggregateRoot = shared.NewEstablishmentAggregateRoot(target.EstablishmentID)
	clone.RecipeID = target.ID
	return &clone
}

// validatePercentageLoss rejects loss ratios that would divide by zero or
// produce a negative denominator. A loss of 1 (100%) means nothing usable
// remains; it is rejected rather than clamped.
func validatePercentageLoss(loss decimal.Decimal) error {
	if loss.IsNegative() {
		return shared.NewCalculationError("Percentage loss cannot be negative")
	}
	if loss.GreaterThanOrEqual(decimal.NewFromInt(1)) {
		return shared.NewCalculationError("Percentage loss must be strictly below 1, got " + loss.String())
	}
	return nil
}
