package history

import (
	"time"

	"github.com/google/uuid"
	"github.com/restocost/backend/internal/domain/recipe"
	"github.com/restocost/backend/internal/domain/shared"
	"github.com/shopspring/decimal"
)

// RecipeSnapshot is one immutable version of a recipe's derived state.
// Rows are append-only: the engine never updates or deletes them, and
// VersionNumber increases strictly per recipe.
type RecipeSnapshot struct {
	shared.BaseEntity
	EstablishmentID        uuid.UUID        `gorm:"type:uuid;not null;index"`
	RecipeID               uuid.UUID        `gorm:"type:uuid;not null;index:idx_history_recipes_entity"`
	VersionNumber          int64            `gorm:"not null;index:idx_history_recipes_entity"`
	EffectiveDate          time.Time        `gorm:"not null;index"`
	Name                   string           `gorm:"type:varchar(200);not null"`
	Category               string           `gorm:"type:varchar(100)"`
	Subcategory            string           `gorm:"type:varchar(100)"`
	Portions               decimal.Decimal  `gorm:"type:decimal(10,2);not null"`
	PriceExclTax           decimal.Decimal  `gorm:"type:decimal(18,4);not null"`
	PurchaseCostTotal      decimal.Decimal  `gorm:"type:decimal(18,6);not null"`
	PurchaseCostPerPortion decimal.Decimal  `gorm:"type:decimal(18,6);not null"`
	Margin                 *decimal.Decimal `gorm:"type:decimal(8,6)"`
	// Closing marks the final snapshot written when the recipe is deleted.
	Closing bool `gorm:"not null;default:false"`
}

// TableName returns the table name for GORM
func (RecipeSnapshot) TableName() string {
	return "history_recipes"
}

// IngredientSnapshot is one immutable version of an ingredient's state.
type IngredientSnapshot struct {
	shared.BaseEntity
	EstablishmentID    uuid.UUID       `gorm:"type:uuid;not null;index"`
	IngredientID       uuid.UUID       `gorm:"type:uuid;not null;index:idx_history_ingredients_entity"`
	RecipeID           uuid.UUID       `gorm:"type:uuid;not null;index"`
	VersionNumber      int64           `gorm:"not null;index:idx_history_ingredients_entity"`
	EffectiveDate      time.Time       `gorm:"not null;index"`
	Type               string          `gorm:"type:varchar(10);not null"`
	MasterArticleID    *uuid.UUID      `gorm:"type:uuid"`
	SubRecipeID        *uuid.UUID      `gorm:"type:uuid"`
	Name               string          `gorm:"type:varchar(200);not null"`
	Quantity           decimal.Decimal `gorm:"type:decimal(18,4);not null"`
	Unit               string          `gorm:"type:varchar(20)"`
	UnitCost           decimal.Decimal `gorm:"type:decimal(18,6);not null"`
	PercentageLoss     decimal.Decimal `gorm:"type:decimal(6,4);not null"`
	UnitCostPerPortion decimal.Decimal `gorm:"type:decimal(18,6);not null"`
	Closing            bool            `gorm:"not null;default:false"`
}

// TableName returns the table name for GORM
func (IngredientSnapshot) TableName() string {
	return "history_ingredients"
}

func snapshotRecipe(r *recipe.Recipe, version int64, effectiveDate time.Time, closing bool) *RecipeSnapshot {
	return &RecipeSnapshot{
		BaseEntity:             shared.NewBaseEntity(),
		EstablishmentID:        r.EstablishmentID,
		RecipeID:               r.ID,
		VersionNumber:          version,
		EffectiveDate:          effectiveDate,
		Name:                   r.Name,
		Category:               r.Category,
		Subcategory:            r.Subcategory,
		Portions:               r.Portions,
		PriceExclTax:           r.PriceExclTax,
		PurchaseCostTotal:      r.PurchaseCostTotal,
		PurchaseCostPerPortion: r.PurchaseCostPerPortion,
		Margin:                 r.CurrentMargin,
		Closing:                closing,
	}
}

func snapshotIngredient(i *recipe.Ingredient, version int64, effectiveDate time.Time, closing bool) *IngredientSnapshot {
	return &IngredientSnapshot{
		BaseEntity:         shared.NewBaseEntity(),
		EstablishmentID:    i.EstablishmentID,
		IngredientID:       i.ID,
		RecipeID:           i.RecipeID,
		VersionNumber:      version,
		EffectiveDate:      effectiveDate,
		Type:               string(i.Type),
		MasterArticleID:    i.MasterArticleID,
		SubRecipeID:        i.SubRecipeID,
		Name:               i.Name,
		Quantity:           i.Quantity,
		Unit:               i.Unit,
		UnitCost:           i.UnitCost,
		PercentageLoss:     i.PercentageLoss,
		UnitCostPerPortion: i.UnitCostPerPortion,
		Closing:            closing,
	}
}
