package margin

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/restocost/backend/internal/domain/recipe"
	"github.com/restocost/backend/internal/domain/shared"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

// Aggregator rolls recomputed recipe margins up into the daily aggregate
// tables and live scores. Recomputation is idempotent for a given
// (establishment, date): every row is an upsert on its day key, and category
// rows whose category lost its last active recipe are removed.
type Aggregator struct {
	recipes recipe.RecipeRepository
	margins Repository
	logger  *zap.Logger
}

// NewAggregator creates a new margin aggregator.
func NewAggregator(recipes recipe.RecipeRepository, margins Repository, logger *zap.Logger) *Aggregator {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Aggregator{
		recipes: recipes,
		margins: margins,
		logger:  logger,
	}
}

type marginAccumulator struct {
	sum   decimal.Decimal
	count int
}

func (a *marginAccumulator) add(m decimal.Decimal) {
	a.sum = a.sum.Add(m)
	a.count++
}

func (a *marginAccumulator) average() decimal.Decimal {
	if a.count == 0 {
		return decimal.Zero
	}
	return a.sum.Div(decimal.NewFromInt(int64(a.count)))
}

// Recompute rebuilds the margin aggregates of one establishment for one
// effective date from current recipe state.
func (a *Aggregator) Recompute(ctx context.Context, establishmentID uuid.UUID, date time.Time) error {
	day := truncateToDay(date)

	active, err := a.recipes.FindActiveForEstablishment(ctx, establishmentID)
	if err != nil {
		return err
	}

	global := &marginAccumulator{}
	byCategory := make(map[string]*marginAccumulator)
	bySubcategory := make(map[string]*marginAccumulator)
	subcategoryParent := make(map[string]string)
	priced := 0
	withMargin := 0

	for i := range active {
		r := &active[i]
		if r.PurchaseCostTotal.GreaterThan(decimal.Zero) {
			priced++
		}
		if !r.HasMargin() {
			continue
		}
		withMargin++
		m := *r.CurrentMargin
		global.add(m)
		if r.Category != "" {
			acc := byCategory[r.Category]
			if acc == nil {
				acc = &marginAccumulator{}
				byCategory[r.Category] = acc
			}
			acc.add(m)
		}
		if r.Subcategory != "" {
			acc := bySubcategory[r.Subcategory]
			if acc == nil {
				acc = &marginAccumulator{}
				bySubcategory[r.Subcategory] = acc
			}
			acc.add(m)
			subcategoryParent[r.Subcategory] = r.Category
		}
	}

	if err := a.margins.UpsertRecipeMargin(ctx, &RecipeMargin{
		BaseEntity:      shared.NewBaseEntity(),
		EstablishmentID: establishmentID,
		Date:            day,
		AverageMargin:   global.average(),
		RecipeCount:     global.count,
	}); err != nil {
		return err
	}

	keepCategories := make([]string, 0, len(byCategory))
	for category, acc := range byCategory {
		keepCategories = append(keepCategories, category)
		if err := a.margins.UpsertCategoryMargin(ctx, &RecipeMarginCategory{
			BaseEntity:      shared.NewBaseEntity(),
			EstablishmentID: establishmentID,
			Date:            day,
			Category:        category,
			AverageMargin:   acc.average(),
			RecipeCount:     acc.count,
		}); err != nil {
			return err
		}
	}
	if err := a.margins.DeleteCategoryMarginsExcept(ctx, establishmentID, day, keepCategories); err != nil {
		return err
	}

	keepSubcategories := make([]string, 0, len(bySubcategory))
	for subcategory, acc := range bySubcategory {
		keepSubcategories = append(keepSubcategories, subcategory)
		if err := a.margins.UpsertSubcategoryMargin(ctx, &RecipeMarginSubcategory{
			BaseEntity:      shared.NewBaseEntity(),
			EstablishmentID: establishmentID,
			Date:            day,
			Category:        subcategoryParent[subcategory],
			Subcategory:     subcategory,
			AverageMargin:   acc.average(),
			RecipeCount:     acc.count,
		}); err != nil {
			return err
		}
	}
	if err := a.margins.DeleteSubcategoryMarginsExcept(ctx, establishmentID, day, keepSubcategories); err != nil {
		return err
	}

	if err := a.writeLiveScores(ctx, establishmentID, day, len(active), priced, withMargin, global.average()); err != nil {
		return err
	}

	a.logger.Debug("margin aggregates recomputed",
		zap.String("establishment_id", establishmentID.String()),
		zap.Time("date", day),
		zap.Int("active_recipes", len(active)),
		zap.Int("with_margin", withMargin),
	)

	return nil
}

// writeLiveScores derives the four daily health scores:
// purchase = share of active recipes with a non-zero purchase cost,
// recipe = share of active recipes with a defined margin,
// financial = average margin clamped to [0,1],
// global = mean of the other three.
func (a *Aggregator) writeLiveScores(ctx context.Context, establishmentID uuid.UUID, day time.Time, activeCount, priced, withMargin int, avgMargin decimal.Decimal) error {
	purchase := ratio(priced, activeCount)
	recipeScore := ratio(withMargin, activeCount)
	financial := clampUnit(avgMargin)
	global := purchase.Add(recipeScore).Add(financial).Div(decimal.NewFromInt(3))

	scores := map[ScoreType]decimal.Decimal{
		ScoreTypePurchase:  purchase,
		ScoreTypeRecipe:    recipeScore,
		ScoreTypeFinancial: financial,
		ScoreTypeGlobal:    global,
	}
	for scoreType, score := range scores {
		if err := a.margins.UpsertLiveScore(ctx, &LiveScore{
			BaseEntity:      shared.NewBaseEntity(),
			EstablishmentID: establishmentID,
			Date:            day,
			Type:            scoreType,
			Score:           score,
		}); err != nil {
			return err
		}
	}
	return nil
}

func ratio(part, whole int) decimal.Decimal {
	if whole == 0 {
		return decimal.Zero
	}
	return decimal.NewFromInt(int64(part)).Div(decimal.NewFromInt(int64(whole)))
}

func clampUnit(d decimal.Decimal) decimal.Decimal {
	if d.IsNegative() {
		return decimal.Zero
	}
	if d.GreaterThan(decimal.NewFromInt(1)) {
		return decimal.NewFromInt(1)
	}
	return d
}

func truncateToDay(t time.Time) time.Time {
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC)
}
