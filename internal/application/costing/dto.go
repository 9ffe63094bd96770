package costing

import (
	"time"

	"github.com/google/uuid"
	"github.com/restocost/backend/internal/domain/shared"
	"github.com/shopspring/decimal"
)

// invoiceDateLayout is the date format the OCR pipeline emits.
const invoiceDateLayout = "2006-01-02"

// ImportPayload is the normalized OCR extraction for one supplier invoice.
type ImportPayload struct {
	Invoice  InvoicePayload  `json:"invoice" validate:"required"`
	Supplier SupplierPayload `json:"supplier" validate:"required"`
	Lines    []LinePayload   `json:"lines" validate:"required,min=1,dive"`
}

// InvoicePayload is the extracted invoice header.
type InvoicePayload struct {
	Reference    string          `json:"reference"`
	Date         string          `json:"date"`
	TotalExclTax decimal.Decimal `json:"total_excl_tax"`
	TotalInclTax decimal.Decimal `json:"total_incl_tax"`
}

// SupplierPayload identifies the supplier the invoice came from.
type SupplierPayload struct {
	ID   uuid.UUID `json:"id" validate:"required"`
	Name string    `json:"name"`
}

// LinePayload is one extracted invoice line.
type LinePayload struct {
	Name      string          `json:"name" validate:"required"`
	Quantity  decimal.Decimal `json:"quantity"`
	Unit      string          `json:"unit"`
	UnitPrice decimal.Decimal `json:"unit_price"`
}

// ParseDate parses the extracted invoice date. A missing date is the canonical
// rejection case: the current-price invariant is ordered by it.
func (p *InvoicePayload) ParseDate() (time.Time, error) {
	if p.Date == "" {
		return time.Time{}, shared.NewValidationError("Invoice date is missing")
	}
	date, err := time.Parse(invoiceDateLayout, p.Date)
	if err != nil {
		return time.Time{}, shared.NewValidationError("Invoice date is malformed: " + p.Date)
	}
	return date, nil
}

// ArticleEditInput is a manual correction of one invoice line's price.
type ArticleEditInput struct {
	EstablishmentID uuid.UUID       `json:"-"`
	ArticleID       uuid.UUID       `json:"article_id" validate:"required"`
	UnitPrice       decimal.Decimal `json:"unit_price"`
}

// IngredientEditInput is a manual edit of one recipe ingredient.
// UnitCost applies to FIXED ingredients only; ARTICLE and SUBRECIPE costs are
// derived and follow their references.
type IngredientEditInput struct {
	EstablishmentID uuid.UUID        `json:"-"`
	IngredientID    uuid.UUID        `json:"ingredient_id" validate:"required"`
	Quantity        decimal.Decimal  `json:"quantity"`
	PercentageLoss  decimal.Decimal  `json:"percentage_loss"`
	UnitCost        *decimal.Decimal `json:"unit_cost"`
}

// RecipeEditInput is a manual edit of a recipe's price or portion count.
type RecipeEditInput struct {
	EstablishmentID uuid.UUID        `json:"-"`
	RecipeID        uuid.UUID        `json:"recipe_id" validate:"required"`
	PriceExclTax    *decimal.Decimal `json:"price_excl_tax"`
	Portions        *decimal.Decimal `json:"portions"`
}

// RecipeDuplicateInput requests a copy of an existing recipe under a new name.
type RecipeDuplicateInput struct {
	EstablishmentID uuid.UUID `json:"-"`
	RecipeID        uuid.UUID `json:"recipe_id" validate:"required"`
	Name            string    `json:"name" validate:"required,max=200"`
}
