package costing

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/restocost/backend/internal/domain/catalog"
	"github.com/restocost/backend/internal/domain/purchasing"
	"github.com/restocost/backend/internal/domain/recipe"
	"github.com/restocost/backend/internal/domain/shared"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type coordinatorFixture struct {
	t               *testing.T
	ctx             context.Context
	establishmentID uuid.UUID
	supplierID      uuid.UUID
	store           *memStore
	scope           *NoOpTransactionScope
	locker          *fakeLocker
	notifier        *fakeNotifier
	coordinator     *Coordinator
}

func newCoordinatorFixture(t *testing.T) *coordinatorFixture {
	t.Helper()
	store := newMemStore()
	scope := store.scope()
	locker := &fakeLocker{}
	notifier := &fakeNotifier{}
	return &coordinatorFixture{
		t:               t,
		ctx:             context.Background(),
		establishmentID: uuid.New(),
		supplierID:      uuid.New(),
		store:           store,
		scope:           scope,
		locker:          locker,
		notifier:        notifier,
		coordinator:     NewCoordinator(scope, locker, notifier, &fakeArchiver{}, nil),
	}
}

func (f *coordinatorFixture) addPendingJob(filePath string) *purchasing.ImportJob {
	f.t.Helper()
	job := purchasing.NewImportJob(f.establishmentID, filePath, "{}")
	require.NoError(f.t, f.scope.ImportJobs.Save(f.ctx, job))
	return job
}

func (f *coordinatorFixture) addMasterArticle(name, normalized string, currentPrice *float64) *catalog.MasterArticle {
	f.t.Helper()
	master, err := catalog.NewMasterArticle(f.establishmentID, f.supplierID, name, normalized, "kg")
	require.NoError(f.t, err)
	if currentPrice != nil {
		master.SetCurrentPrice(decimal.NewFromFloat(*currentPrice), "kg")
	}
	require.NoError(f.t, f.scope.MasterArticles.Save(f.ctx, master))
	return master
}

func (f *coordinatorFixture) addRecipe(name string, portions, price float64) *recipe.Recipe {
	f.t.Helper()
	r, err := recipe.NewRecipe(f.establishmentID, name, "plats", "viandes", decimal.NewFromFloat(portions), decimal.NewFromFloat(price))
	require.NoError(f.t, err)
	require.NoError(f.t, f.scope.Recipes.Save(f.ctx, r))
	return r
}

// settle recomputes and stores a recipe's derived fields from its current
// ingredients, without going through the coordinator.
func (f *coordinatorFixture) settle(r *recipe.Recipe) {
	f.t.Helper()
	ingredients, err := f.scope.Ingredients.FindByRecipe(f.ctx, r.ID)
	require.NoError(f.t, err)
	_, err = r.RecomputeCosts(ingredients)
	require.NoError(f.t, err)
	require.NoError(f.t, f.scope.Recipes.Save(f.ctx, r))
}

func (f *coordinatorFixture) storedRecipe(id uuid.UUID) *recipe.Recipe {
	f.t.Helper()
	r, err := f.scope.Recipes.FindByID(f.ctx, id)
	require.NoError(f.t, err)
	return r
}

func importPayload(supplierID uuid.UUID, date string, lines ...LinePayload) *ImportPayload {
	return &ImportPayload{
		Invoice: InvoicePayload{
			Reference:    "F-2026-001",
			Date:         date,
			TotalExclTax: decimal.NewFromInt(100),
			TotalInclTax: decimal.NewFromInt(120),
		},
		Supplier: SupplierPayload{ID: supplierID, Name: "Metro"},
		Lines:    lines,
	}
}

func TestCoordinator_ProcessImport(t *testing.T) {
	t.Run("commits a full propagation pass", func(t *testing.T) {
		f := newCoordinatorFixture(t)
		price := 5.0
		master := f.addMasterArticle("Veau", "veau", &price)

		r := f.addRecipe("Blanquette", 4, 18)
		ingredient, err := recipe.NewArticleIngredient(r, master.ID, "Veau", decimal.NewFromInt(2), "kg", decimal.NewFromInt(5), decimal.Zero)
		require.NoError(t, err)
		require.NoError(t, f.scope.Ingredients.Save(f.ctx, ingredient))
		f.settle(r)

		job := f.addPendingJob("/invoices/facture.pdf")
		payload := importPayload(f.supplierID, "2026-03-15", LinePayload{
			Name: "Veau", Quantity: decimal.NewFromInt(10), Unit: "kg", UnitPrice: decimal.NewFromInt(6),
		})

		outcome, err := f.coordinator.ProcessImport(f.ctx, f.establishmentID, job.ID, payload)
		require.NoError(t, err)
		assert.Equal(t, EventStateCommitted, outcome.State)
		assert.Equal(t, 1, outcome.PriceChanges)
		assert.Equal(t, 1, outcome.ChangedRecipes)

		stored, err := f.scope.ImportJobs.FindByID(f.ctx, job.ID)
		require.NoError(t, err)
		assert.Equal(t, purchasing.ImportJobStatusCompleted, stored.Status)

		updatedMaster, err := f.scope.MasterArticles.FindByID(f.ctx, master.ID)
		require.NoError(t, err)
		require.True(t, updatedMaster.HasCurrentPrice())
		assert.True(t, updatedMaster.CurrentUnitPrice.Equal(decimal.NewFromInt(6)))

		// ingredient follows: 6 * 2 = 12 total, 3 per portion
		updatedRecipe := f.storedRecipe(r.ID)
		assert.True(t, updatedRecipe.PurchaseCostTotal.Equal(decimal.NewFromInt(12)))
		assert.True(t, updatedRecipe.PurchaseCostPerPortion.Equal(decimal.NewFromInt(3)))

		snaps, err := f.scope.RecipeSnapshots.FindByRecipe(f.ctx, r.ID)
		require.NoError(t, err)
		require.Len(t, snaps, 1)
		assert.Equal(t, int64(1), snaps[0].VersionNumber)
		assert.Equal(t, time.Date(2026, 3, 15, 0, 0, 0, 0, time.UTC), snaps[0].EffectiveDate)

		day := time.Date(2026, 3, 15, 0, 0, 0, 0, time.UTC)
		marginRow, err := f.scope.Margins.FindRecipeMargin(f.ctx, f.establishmentID, day)
		require.NoError(t, err)
		assert.Equal(t, 1, marginRow.RecipeCount)

		assert.Len(t, f.store.invoices, 1)
		assert.Len(t, f.store.articles, 1)
		assert.Contains(t, f.notifier.messages[0], "started")
	})

	t.Run("creates the master article on first sight", func(t *testing.T) {
		f := newCoordinatorFixture(t)
		job := f.addPendingJob("/invoices/facture.pdf")
		payload := importPayload(f.supplierID, "2026-03-15", LinePayload{
			Name: "Crème fraîche 33%", Quantity: decimal.NewFromInt(2), Unit: "l", UnitPrice: decimal.NewFromFloat(3.5),
		})

		outcome, err := f.coordinator.ProcessImport(f.ctx, f.establishmentID, job.ID, payload)
		require.NoError(t, err)
		assert.Equal(t, EventStateCommitted, outcome.State)

		require.Len(t, f.store.masterArticles, 1)
		for _, m := range f.store.masterArticles {
			assert.Equal(t, "creme fraiche 33%", m.NormalizedName)
			require.True(t, m.HasCurrentPrice())
			assert.True(t, m.CurrentUnitPrice.Equal(decimal.NewFromFloat(3.5)))
		}
	})

	t.Run("missing invoice date rejects with no mutation", func(t *testing.T) {
		f := newCoordinatorFixture(t)
		job := f.addPendingJob("/invoices/sans-date.pdf")
		payload := importPayload(f.supplierID, "", LinePayload{
			Name: "Veau", UnitPrice: decimal.NewFromInt(6),
		})

		outcome, err := f.coordinator.ProcessImport(f.ctx, f.establishmentID, job.ID, payload)
		require.NoError(t, err)
		assert.Equal(t, EventStateRejected, outcome.State)
		assert.Contains(t, outcome.RejectionReason, "date")

		stored, err := f.scope.ImportJobs.FindByID(f.ctx, job.ID)
		require.NoError(t, err)
		assert.Equal(t, purchasing.ImportJobStatusError, stored.Status)

		require.Len(t, f.store.rejected, 1)
		assert.Equal(t, "/invoices/sans-date.pdf", f.store.rejected[0].FilePath)
		assert.Contains(t, f.store.rejected[0].Reason, "date")
		assert.Equal(t, "s3://rejected//invoices/sans-date.pdf", f.store.rejected[0].ArchiveURL)

		assert.Empty(t, f.store.masterArticles)
		assert.Empty(t, f.store.invoices)
		assert.Empty(t, f.store.articles)
		assert.Contains(t, f.notifier.messages[len(f.notifier.messages)-1], "rejected")
	})

	t.Run("malformed payload fails the job as ocr_failed", func(t *testing.T) {
		f := newCoordinatorFixture(t)
		job := f.addPendingJob("/invoices/illisible.pdf")
		payload := importPayload(f.supplierID, "2026-03-15") // no lines

		outcome, err := f.coordinator.ProcessImport(f.ctx, f.establishmentID, job.ID, payload)
		require.NoError(t, err)
		assert.Equal(t, EventStateRejected, outcome.State)

		stored, err := f.scope.ImportJobs.FindByID(f.ctx, job.ID)
		require.NoError(t, err)
		assert.Equal(t, purchasing.ImportJobStatusOCRFailed, stored.Status)
		assert.Len(t, f.store.rejected, 1)
	})

	t.Run("lock contention surfaces as retryable", func(t *testing.T) {
		f := newCoordinatorFixture(t)
		f.locker.fail = shared.NewConcurrencyError("establishment busy")
		job := f.addPendingJob("/invoices/facture.pdf")

		_, err := f.coordinator.ProcessImport(f.ctx, f.establishmentID, job.ID, importPayload(f.supplierID, "2026-03-15", LinePayload{Name: "Veau", UnitPrice: decimal.NewFromInt(6)}))
		require.Error(t, err)
		assert.True(t, shared.IsRetryable(err))
	})

	t.Run("backdated invoice does not move the current price", func(t *testing.T) {
		f := newCoordinatorFixture(t)
		master := f.addMasterArticle("Veau", "veau", nil)

		// Current observation: 2026-03-10 at 8.
		current := f.addPendingJob("/invoices/current.pdf")
		_, err := f.coordinator.ProcessImport(f.ctx, f.establishmentID, current.ID, importPayload(f.supplierID, "2026-03-10", LinePayload{Name: "Veau", Quantity: decimal.NewFromInt(1), Unit: "kg", UnitPrice: decimal.NewFromInt(8)}))
		require.NoError(t, err)

		// Backdated correction: 2026-03-01 at 5.
		backdated := f.addPendingJob("/invoices/backdated.pdf")
		outcome, err := f.coordinator.ProcessImport(f.ctx, f.establishmentID, backdated.ID, importPayload(f.supplierID, "2026-03-01", LinePayload{Name: "Veau", Quantity: decimal.NewFromInt(1), Unit: "kg", UnitPrice: decimal.NewFromInt(5)}))
		require.NoError(t, err)
		assert.Equal(t, EventStateCommitted, outcome.State)
		assert.Zero(t, outcome.PriceChanges)

		stored, err := f.scope.MasterArticles.FindByID(f.ctx, master.ID)
		require.NoError(t, err)
		assert.True(t, stored.CurrentUnitPrice.Equal(decimal.NewFromInt(8)))
	})
}

func TestCoordinator_DeleteArticle(t *testing.T) {
	f := newCoordinatorFixture(t)
	master := f.addMasterArticle("Veau", "veau", nil)

	// Two observations through the coordinator: 5 on Mar 1, then 8 on Mar 10.
	first := f.addPendingJob("/invoices/one.pdf")
	_, err := f.coordinator.ProcessImport(f.ctx, f.establishmentID, first.ID, importPayload(f.supplierID, "2026-03-01", LinePayload{Name: "Veau", Quantity: decimal.NewFromInt(1), Unit: "kg", UnitPrice: decimal.NewFromInt(5)}))
	require.NoError(t, err)
	second := f.addPendingJob("/invoices/two.pdf")
	_, err = f.coordinator.ProcessImport(f.ctx, f.establishmentID, second.ID, importPayload(f.supplierID, "2026-03-10", LinePayload{Name: "Veau", Quantity: decimal.NewFromInt(1), Unit: "kg", UnitPrice: decimal.NewFromInt(8)}))
	require.NoError(t, err)

	r := f.addRecipe("Blanquette", 1, 0)
	ingredient, err := recipe.NewArticleIngredient(r, master.ID, "Veau", decimal.NewFromInt(1), "kg", decimal.NewFromInt(8), decimal.Zero)
	require.NoError(t, err)
	require.NoError(t, f.scope.Ingredients.Save(f.ctx, ingredient))
	f.settle(r)

	var currentSource *purchasing.Article
	for _, a := range f.store.articles {
		if a.UnitPrice.Equal(decimal.NewFromInt(8)) {
			copied := a
			currentSource = &copied
		}
	}
	require.NotNil(t, currentSource)

	outcome, err := f.coordinator.DeleteArticle(f.ctx, f.establishmentID, currentSource.ID)
	require.NoError(t, err)
	assert.Equal(t, EventStateCommitted, outcome.State)
	assert.Equal(t, 1, outcome.PriceChanges)

	// Current price falls back to the next-most-recent observation.
	stored, err := f.scope.MasterArticles.FindByID(f.ctx, master.ID)
	require.NoError(t, err)
	require.True(t, stored.HasCurrentPrice())
	assert.True(t, stored.CurrentUnitPrice.Equal(decimal.NewFromInt(5)))

	updated := f.storedRecipe(r.ID)
	assert.True(t, updated.PurchaseCostTotal.Equal(decimal.NewFromInt(5)))

	// Deleting the last observation clears the price and zeroes the cost.
	var remaining *purchasing.Article
	for _, a := range f.store.articles {
		copied := a
		remaining = &copied
	}
	require.NotNil(t, remaining)

	outcome, err = f.coordinator.DeleteArticle(f.ctx, f.establishmentID, remaining.ID)
	require.NoError(t, err)
	assert.Equal(t, EventStateCommitted, outcome.State)

	stored, err = f.scope.MasterArticles.FindByID(f.ctx, master.ID)
	require.NoError(t, err)
	assert.False(t, stored.HasCurrentPrice())
	assert.True(t, f.storedRecipe(r.ID).PurchaseCostTotal.IsZero())
}

func TestCoordinator_DeleteInvoice(t *testing.T) {
	f := newCoordinatorFixture(t)
	master := f.addMasterArticle("Veau", "veau", nil)

	job := f.addPendingJob("/invoices/one.pdf")
	_, err := f.coordinator.ProcessImport(f.ctx, f.establishmentID, job.ID, importPayload(f.supplierID, "2026-03-10", LinePayload{Name: "Veau", Quantity: decimal.NewFromInt(1), Unit: "kg", UnitPrice: decimal.NewFromInt(8)}))
	require.NoError(t, err)
	require.Len(t, f.store.invoices, 1)

	var invoiceID uuid.UUID
	for id := range f.store.invoices {
		invoiceID = id
	}

	outcome, err := f.coordinator.DeleteInvoice(f.ctx, f.establishmentID, invoiceID)
	require.NoError(t, err)
	assert.Equal(t, EventStateCommitted, outcome.State)

	assert.Empty(t, f.store.invoices)
	assert.Empty(t, f.store.articles)
	stored, err := f.scope.MasterArticles.FindByID(f.ctx, master.ID)
	require.NoError(t, err)
	assert.False(t, stored.HasCurrentPrice())
}

func TestCoordinator_EditIngredient(t *testing.T) {
	f := newCoordinatorFixture(t)
	r := f.addRecipe("Soupe", 2, 8)
	fixed, err := recipe.NewFixedIngredient(r, "Base", decimal.NewFromInt(4))
	require.NoError(t, err)
	require.NoError(t, f.scope.Ingredients.Save(f.ctx, fixed))
	f.settle(r)

	cost := decimal.NewFromInt(6)
	outcome, err := f.coordinator.EditIngredient(f.ctx, &IngredientEditInput{
		EstablishmentID: f.establishmentID,
		IngredientID:    fixed.ID,
		Quantity:        decimal.NewFromInt(1),
		PercentageLoss:  decimal.Zero,
		UnitCost:        &cost,
	})
	require.NoError(t, err)
	assert.Equal(t, EventStateCommitted, outcome.State)
	assert.Equal(t, 1, outcome.ChangedRecipes)

	updated := f.storedRecipe(r.ID)
	assert.True(t, updated.PurchaseCostTotal.Equal(decimal.NewFromInt(6)))
	assert.True(t, updated.PurchaseCostPerPortion.Equal(decimal.NewFromInt(3)))

	// Edited ingredient gets a history version.
	snaps, err := f.scope.IngredientSnaps.FindByIngredient(f.ctx, fixed.ID)
	require.NoError(t, err)
	require.Len(t, snaps, 1)

	// Setting a cost on a non-FIXED ingredient is refused.
	master := f.addMasterArticle("Veau", "veau", nil)
	article, err := recipe.NewArticleIngredient(r, master.ID, "Veau", decimal.NewFromInt(1), "kg", decimal.Zero, decimal.Zero)
	require.NoError(t, err)
	require.NoError(t, f.scope.Ingredients.Save(f.ctx, article))

	_, err = f.coordinator.EditIngredient(f.ctx, &IngredientEditInput{
		EstablishmentID: f.establishmentID,
		IngredientID:    article.ID,
		Quantity:        decimal.NewFromInt(1),
		UnitCost:        &cost,
	})
	require.Error(t, err)
	assert.Equal(t, shared.CodeValidation, shared.ErrorCode(err))
}

func TestCoordinator_DeleteRecipe(t *testing.T) {
	f := newCoordinatorFixture(t)

	sauce := f.addRecipe("Sauce", 1, 0)
	base, err := recipe.NewFixedIngredient(sauce, "Base", decimal.NewFromInt(4))
	require.NoError(t, err)
	require.NoError(t, f.scope.Ingredients.Save(f.ctx, base))
	f.settle(sauce)

	plat := f.addRecipe("Plat", 1, 10)
	subRef, err := recipe.NewSubRecipeIngredient(plat, sauce, decimal.NewFromInt(1), decimal.Zero)
	require.NoError(t, err)
	require.NoError(t, f.scope.Ingredients.Save(f.ctx, subRef))
	f.settle(plat)
	require.True(t, f.storedRecipe(plat.ID).PurchaseCostTotal.Equal(decimal.NewFromInt(4)))

	outcome, err := f.coordinator.DeleteRecipe(f.ctx, f.establishmentID, sauce.ID)
	require.NoError(t, err)
	assert.Equal(t, EventStateCommitted, outcome.State)

	// Sauce and every reference to it are gone; the parent is recomputed.
	_, err = f.scope.Recipes.FindByID(f.ctx, sauce.ID)
	assert.ErrorIs(t, err, shared.ErrNotFound)
	_, err = f.scope.Ingredients.FindByID(f.ctx, subRef.ID)
	assert.ErrorIs(t, err, shared.ErrNotFound)
	assert.True(t, f.storedRecipe(plat.ID).PurchaseCostTotal.IsZero())

	// Closing snapshots preserve the timeline.
	snaps, err := f.scope.RecipeSnapshots.FindByRecipe(f.ctx, sauce.ID)
	require.NoError(t, err)
	require.NotEmpty(t, snaps)
	assert.True(t, snaps[len(snaps)-1].Closing)

	refSnaps, err := f.scope.IngredientSnaps.FindByIngredient(f.ctx, subRef.ID)
	require.NoError(t, err)
	require.NotEmpty(t, refSnaps)
	assert.True(t, refSnaps[len(refSnaps)-1].Closing)
}

func TestCoordinator_DuplicateRecipe(t *testing.T) {
	f := newCoordinatorFixture(t)

	source := f.addRecipe("Blanquette", 4, 18)
	fixed, err := recipe.NewFixedIngredient(source, "Base", decimal.NewFromInt(12))
	require.NoError(t, err)
	require.NoError(t, f.scope.Ingredients.Save(f.ctx, fixed))
	f.settle(source)

	newID, outcome, err := f.coordinator.DuplicateRecipe(f.ctx, &RecipeDuplicateInput{
		EstablishmentID: f.establishmentID,
		RecipeID:        source.ID,
		Name:            "Blanquette (copie)",
	})
	require.NoError(t, err)
	assert.Equal(t, EventStateCommitted, outcome.State)
	require.NotEqual(t, uuid.Nil, newID)
	require.NotEqual(t, source.ID, newID)

	dup := f.storedRecipe(newID)
	assert.Equal(t, "Blanquette (copie)", dup.Name)
	assert.True(t, dup.PurchaseCostTotal.Equal(decimal.NewFromInt(12)))
	assert.True(t, dup.PurchaseCostPerPortion.Equal(decimal.NewFromInt(3)))

	cloned, err := f.scope.Ingredients.FindByRecipe(f.ctx, newID)
	require.NoError(t, err)
	require.Len(t, cloned, 1)
	assert.NotEqual(t, fixed.ID, cloned[0].ID)

	// Fresh entity, fresh history.
	snaps, err := f.scope.RecipeSnapshots.FindByRecipe(f.ctx, newID)
	require.NoError(t, err)
	require.Len(t, snaps, 1)
	assert.Equal(t, int64(1), snaps[0].VersionNumber)

	// The cloned ingredients start their own timelines too.
	ingSnaps, err := f.scope.IngredientSnaps.FindByIngredient(f.ctx, cloned[0].ID)
	require.NoError(t, err)
	require.Len(t, ingSnaps, 1)
	assert.Equal(t, int64(1), ingSnaps[0].VersionNumber)
	assert.False(t, ingSnaps[0].Closing)
}

func TestCoordinator_EditRecipe(t *testing.T) {
	f := newCoordinatorFixture(t)
	r := f.addRecipe("Soupe", 2, 8)
	fixed, err := recipe.NewFixedIngredient(r, "Base", decimal.NewFromInt(4))
	require.NoError(t, err)
	require.NoError(t, f.scope.Ingredients.Save(f.ctx, fixed))
	f.settle(r)

	price := decimal.NewFromInt(10)
	outcome, err := f.coordinator.EditRecipe(f.ctx, &RecipeEditInput{
		EstablishmentID: f.establishmentID,
		RecipeID:        r.ID,
		PriceExclTax:    &price,
	})
	require.NoError(t, err)
	assert.Equal(t, EventStateCommitted, outcome.State)

	updated := f.storedRecipe(r.ID)
	require.True(t, updated.HasMargin())
	// (10 - 2) / 10 = 0.8
	assert.True(t, updated.CurrentMargin.Equal(decimal.NewFromFloat(0.8)))
}
