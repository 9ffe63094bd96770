package margin

import (
	"time"

	"github.com/google/uuid"
	"github.com/restocost/backend/internal/domain/shared"
	"github.com/shopspring/decimal"
)

// RecipeMargin is the daily margin aggregate over all active recipes of an
// establishment. One row per (establishment, date); recomputation overwrites.
type RecipeMargin struct {
	shared.BaseEntity
	EstablishmentID uuid.UUID       `gorm:"type:uuid;not null;uniqueIndex:idx_recipe_margins_day"`
	Date            time.Time       `gorm:"type:date;not null;uniqueIndex:idx_recipe_margins_day"`
	AverageMargin   decimal.Decimal `gorm:"type:decimal(8,6);not null"`
	RecipeCount     int             `gorm:"not null"`
}

// TableName returns the table name for GORM
func (RecipeMargin) TableName() string {
	return "recipe_margins"
}

// RecipeMarginCategory is the daily margin aggregate restricted to one category.
type RecipeMarginCategory struct {
	shared.BaseEntity
	EstablishmentID uuid.UUID       `gorm:"type:uuid;not null;uniqueIndex:idx_recipe_margin_categories_day"`
	Date            time.Time       `gorm:"type:date;not null;uniqueIndex:idx_recipe_margin_categories_day"`
	Category        string          `gorm:"type:varchar(100);not null;uniqueIndex:idx_recipe_margin_categories_day"`
	AverageMargin   decimal.Decimal `gorm:"type:decimal(8,6);not null"`
	RecipeCount     int             `gorm:"not null"`
}

// TableName returns the table name for GORM
func (RecipeMarginCategory) TableName() string {
	return "recipe_margin_categories"
}

// RecipeMarginSubcategory is the daily margin aggregate restricted to one subcategory.
type RecipeMarginSubcategory struct {
	shared.BaseEntity
	EstablishmentID uuid.UUID       `gorm:"type:uuid;not null;uniqueIndex:idx_recipe_margin_subcategories_day"`
	Date            time.Time       `gorm:"type:date;not null;uniqueIndex:idx_recipe_margin_subcategories_day"`
	Category        string          `gorm:"type:varchar(100);not null"`
	Subcategory     string          `gorm:"type:varchar(100);not null;uniqueIndex:idx_recipe_margin_subcategories_day"`
	AverageMargin   decimal.Decimal `gorm:"type:decimal(8,6);not null"`
	RecipeCount     int             `gorm:"not null"`
}

// TableName returns the table name for GORM
func (RecipeMarginSubcategory) TableName() string {
	return "recipe_margin_subcategories"
}

// ScoreType distinguishes the live score rollups written on each pass.
type ScoreType string

const (
	ScoreTypePurchase  ScoreType = "purchase"
	ScoreTypeRecipe    ScoreType = "recipe"
	ScoreTypeFinancial ScoreType = "financial"
	ScoreTypeGlobal    ScoreType = "global"
)

// LiveScore is a daily 0..1 health score per establishment and score type.
type LiveScore struct {
	shared.BaseEntity
	EstablishmentID uuid.UUID       `gorm:"type:uuid;not null;uniqueIndex:idx_live_scores_day"`
	Date            time.Time       `gorm:"type:date;not null;uniqueIndex:idx_live_scores_day"`
	Type            ScoreType       `gorm:"type:varchar(20);not null;uniqueIndex:idx_live_scores_day"`
	Score           decimal.Decimal `gorm:"type:decimal(8,6);not null"`
}

// TableName returns the table name for GORM
func (LiveScore) TableName() string {
	return "live_scores"
}
