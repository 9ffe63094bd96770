package recipe

import (
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/restocost/backend/internal/domain/shared"
	"github.com/shopspring/decimal"
)

// Recipe owns an ordered set of ingredients and carries derived cost and
// margin fields. Recipes form a directed acyclic graph through SUBRECIPE
// ingredients; the propagator enforces acyclicity.
//
// CurrentMargin is nil when the selling price is not positive: the margin is
// then undefined and reported as such, never computed.
type Recipe struct {
	shared.EstablishmentAggregateRoot
	Name                   string           `gorm:"type:varchar(200);not null"`
	Category               string           `gorm:"type:varchar(100);index"`
	Subcategory            string           `gorm:"type:varchar(100);index"`
	Portions               decimal.Decimal  `gorm:"type:decimal(10,2);not null;default:1"`
	PriceExclTax           decimal.Decimal  `gorm:"type:decimal(18,4);not null;default:0"`
	PurchaseCostTotal      decimal.Decimal  `gorm:"type:decimal(18,6);not null;default:0"`
	PurchaseCostPerPortion decimal.Decimal  `gorm:"type:decimal(18,6);not null;default:0"`
	CurrentMargin          *decimal.Decimal `gorm:"type:decimal(8,6)"`
	ContainsSubRecipe      bool             `gorm:"not null;default:false"`
	Active                 bool             `gorm:"not null;default:true"`
}

// TableName returns the table name for GORM
func (Recipe) TableName() string {
	return "recipes"
}

// NewRecipe creates a new recipe shell with no ingredients.
func NewRecipe(establishmentID uuid.UUID, name, category, subcategory string, portions, priceExclTax decimal.Decimal) (*Recipe, error) {
	if strings.TrimSpace(name) == "" {
		return nil, shared.NewValidationError("Recipe name cannot be empty")
	}
	if portions.LessThanOrEqual(decimal.Zero) {
		return nil, shared.NewCalculationError("Recipe portion count must be positive")
	}

	recipe := &Recipe{
		EstablishmentAggregateRoot: shared.NewEstablishmentAggregateRoot(establishmentID),
		Name:                       strings.TrimSpace(name),
		Category:                   category,
		Subcategory:                subcategory,
		Portions:                   portions,
		PriceExclTax:               priceExclTax,
		Active:                     true,
	}

	recipe.AddDomainEvent(NewRecipeCreatedEvent(recipe))

	return recipe, nil
}

// RecomputeCosts recomputes the derived cost and margin fields from the
// recipe's current ingredient set. It reports whether any derived field
// actually moved, so an unchanged recipe produces no history snapshot.
func (r *Recipe) RecomputeCosts(ingredients []Ingredient) (bool, error) {
	if r.Portions.LessThanOrEqual(decimal.Zero) {
		return false, shared.NewCalculationError("Recipe " + r.Name + " has a non-positive portion count")
	}

	total := decimal.Zero
	containsSub := false
	for i := range ingredients {
		total = total.Add(ingredients[i].UnitCostPerPortion)
		if ingredients[i].Type == IngredientTypeSubRecipe {
			containsSub = true
		}
	}

	perPortion := total.Div(r.Portions)

	var margin *decimal.Decimal
	if r.PriceExclTax.GreaterThan(decimal.Zero) {
		m := r.PriceExclTax.Sub(perPortion).Div(r.PriceExclTax)
		margin = &m
	}

	changed := !total.Equal(r.PurchaseCostTotal) ||
		!perPortion.Equal(r.PurchaseCostPerPortion) ||
		!marginEqual(margin, r.CurrentMargin) ||
		containsSub != r.ContainsSubRecipe

	if !changed {
		return false, nil
	}

	oldTotal := r.PurchaseCostTotal
	r.PurchaseCostTotal = total
	r.PurchaseCostPerPortion = perPortion
	r.CurrentMargin = margin
	r.ContainsSubRecipe = containsSub
	r.UpdatedAt = time.Now()
	r.IncrementVersion()

	r.AddDomainEvent(NewRecipeCostChangedEvent(r, oldTotal, total))

	return true, nil
}

// SetPrice updates the selling price; margin is refreshed on the next recomputation.
func (r *Recipe) SetPrice(priceExclTax decimal.Decimal) error {
	if priceExclTax.IsNegative() {
		return shared.NewValidationError("Recipe price cannot be negative")
	}
	r.PriceExclTax = priceExclTax
	r.UpdatedAt = time.Now()
	return nil
}

// SetPortions updates the portion count.
func (r *Recipe) SetPortions(portions decimal.Decimal) error {
	if portions.LessThanOrEqual(decimal.Zero) {
		return shared.NewCalculationError("Recipe portion count must be positive")
	}
	r.Portions = portions
	r.UpdatedAt = time.Now()
	return nil
}

// Deactivate removes the recipe from margin aggregation without erasing it.
func (r *Recipe) Deactivate() {
	r.Active = false
	r.UpdatedAt = time.Now()
	r.IncrementVersion()
}

// Duplicate creates a copy of the recipe shell under a new name, with fresh
// identity and derived fields reset for recomputation.
func (r *Recipe) Duplicate(name string) (*Recipe, error) {
	dup, err := NewRecipe(r.EstablishmentID, name, r.Category, r.Subcategory, r.Portions, r.PriceExclTax)
	if err != nil {
		return nil, err
	}
	return dup, nil
}

// HasMargin reports whether the margin is defined.
func (r *Recipe) HasMargin() bool {
	return r.CurrentMargin != nil
}

func marginEqual(a, b *decimal.Decimal) bool {
	if a == nil || b == nil {
		return a == b
	}
	return a.Equal(*b)
}
