package dto

import (
	"encoding/json"
	"time"

	"github.com/shopspring/decimal"
)

// ImportSubmitRequest queues one OCR-extracted invoice for processing.
// Payload is the raw extraction document; it is validated when the job runs,
// not at submission.
type ImportSubmitRequest struct {
	FilePath string          `json:"file_path" binding:"required"`
	Payload  json.RawMessage `json:"payload" binding:"required"`
}

// ImportSubmitResponse returns the queued job ID
type ImportSubmitResponse struct {
	ImportJobID string `json:"import_job_id"`
}

// ImportJobResponse describes one import job
type ImportJobResponse struct {
	ID           string     `json:"id"`
	FilePath     string     `json:"file_path"`
	Status       string     `json:"status"`
	ErrorMessage string     `json:"error_message,omitempty"`
	StartedAt    *time.Time `json:"started_at,omitempty"`
	FinishedAt   *time.Time `json:"finished_at,omitempty"`
	CreatedAt    time.Time  `json:"created_at"`
}

// RejectedInvoiceResponse describes one rejected invoice record
type RejectedInvoiceResponse struct {
	ID          string    `json:"id"`
	ImportJobID string    `json:"import_job_id"`
	FilePath    string    `json:"file_path"`
	Reason      string    `json:"reason"`
	ArchiveURL  string    `json:"archive_url,omitempty"`
	CreatedAt   time.Time `json:"created_at"`
}

// OutcomeResponse summarizes what one coordinated cost event did
type OutcomeResponse struct {
	State           string               `json:"state"`
	RejectionReason string               `json:"rejection_reason,omitempty"`
	PriceChanges    int                  `json:"price_changes"`
	ChangedRecipes  int                  `json:"changed_recipes"`
	Suggestions     []SuggestionResponse `json:"suggestions,omitempty"`
}

// SuggestionResponse is one near-match proposal from the catalog resolver
type SuggestionResponse struct {
	MasterArticleID string  `json:"master_article_id"`
	Name            string  `json:"name"`
	Score           float64 `json:"score"`
}

// ArticleEditRequest corrects the unit price of one invoice line
type ArticleEditRequest struct {
	UnitPrice decimal.Decimal `json:"unit_price"`
}

// ArticleResponse describes one invoice line
type ArticleResponse struct {
	ID              string          `json:"id"`
	MasterArticleID string          `json:"master_article_id"`
	Name            string          `json:"name"`
	Quantity        decimal.Decimal `json:"quantity"`
	Unit            string          `json:"unit"`
	UnitPrice       decimal.Decimal `json:"unit_price"`
	InvoiceDate     time.Time       `json:"invoice_date"`
}

// InvoiceResponse describes one invoice with its lines
type InvoiceResponse struct {
	ID           string            `json:"id"`
	SupplierID   string            `json:"supplier_id"`
	SupplierName string            `json:"supplier_name"`
	Reference    string            `json:"reference"`
	InvoiceDate  time.Time         `json:"invoice_date"`
	TotalExclTax decimal.Decimal   `json:"total_excl_tax"`
	TotalInclTax decimal.Decimal   `json:"total_incl_tax"`
	FilePath     string            `json:"file_path,omitempty"`
	Lines        []ArticleResponse `json:"lines"`
}

// IngredientEditRequest edits one recipe ingredient. UnitCost applies to
// FIXED ingredients only.
type IngredientEditRequest struct {
	Quantity       decimal.Decimal  `json:"quantity"`
	PercentageLoss decimal.Decimal  `json:"percentage_loss"`
	UnitCost       *decimal.Decimal `json:"unit_cost"`
}

// RecipeEditRequest edits a recipe's selling price or portion count
type RecipeEditRequest struct {
	PriceExclTax *decimal.Decimal `json:"price_excl_tax"`
	Portions     *decimal.Decimal `json:"portions"`
}

// RecipeDuplicateRequest copies a recipe under a new name
type RecipeDuplicateRequest struct {
	Name string `json:"name" binding:"required,max=200"`
}

// RecipeDuplicateResponse returns the new recipe ID alongside the outcome
type RecipeDuplicateResponse struct {
	RecipeID string          `json:"recipe_id"`
	Outcome  OutcomeResponse `json:"outcome"`
}

// IngredientResponse describes one recipe ingredient
type IngredientResponse struct {
	ID                 string          `json:"id"`
	Type               string          `json:"type"`
	Name               string          `json:"name"`
	MasterArticleID    string          `json:"master_article_id,omitempty"`
	SubRecipeID        string          `json:"sub_recipe_id,omitempty"`
	Quantity           decimal.Decimal `json:"quantity"`
	Unit               string          `json:"unit,omitempty"`
	UnitCost           decimal.Decimal `json:"unit_cost"`
	PercentageLoss     decimal.Decimal `json:"percentage_loss"`
	UnitCostPerPortion decimal.Decimal `json:"unit_cost_per_portion"`
	SortOrder          int             `json:"sort_order"`
}

// RecipeResponse describes one recipe with derived costs
type RecipeResponse struct {
	ID                     string               `json:"id"`
	Name                   string               `json:"name"`
	Category               string               `json:"category"`
	Subcategory            string               `json:"subcategory,omitempty"`
	Portions               decimal.Decimal      `json:"portions"`
	PriceExclTax           decimal.Decimal      `json:"price_excl_tax"`
	PurchaseCostTotal      decimal.Decimal      `json:"purchase_cost_total"`
	PurchaseCostPerPortion decimal.Decimal      `json:"purchase_cost_per_portion"`
	CurrentMargin          *decimal.Decimal     `json:"current_margin"`
	Active                 bool                 `json:"active"`
	Ingredients            []IngredientResponse `json:"ingredients,omitempty"`
}

// RecipeHistoryEntry is one immutable recipe version
type RecipeHistoryEntry struct {
	VersionNumber          int64            `json:"version_number"`
	EffectiveDate          time.Time        `json:"effective_date"`
	Name                   string           `json:"name"`
	Portions               decimal.Decimal  `json:"portions"`
	PriceExclTax           decimal.Decimal  `json:"price_excl_tax"`
	PurchaseCostTotal      decimal.Decimal  `json:"purchase_cost_total"`
	PurchaseCostPerPortion decimal.Decimal  `json:"purchase_cost_per_portion"`
	Margin                 *decimal.Decimal `json:"margin"`
	Closing                bool             `json:"closing"`
}

// MarginResponse is the establishment-wide margin aggregate for one day
type MarginResponse struct {
	Date          time.Time       `json:"date"`
	AverageMargin decimal.Decimal `json:"average_margin"`
	RecipeCount   int             `json:"recipe_count"`
}

// LiveScoreResponse is one live score reading for a day
type LiveScoreResponse struct {
	Date  time.Time       `json:"date"`
	Type  string          `json:"type"`
	Score decimal.Decimal `json:"score"`
}
