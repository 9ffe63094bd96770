package persistence

import (
	"context"
	"testing"

	"github.com/google/uuid"
	"github.com/restocost/backend/internal/application/costing"
	"github.com/restocost/backend/internal/domain/catalog"
	"github.com/restocost/backend/internal/domain/recipe"
	"github.com/restocost/backend/internal/domain/shared"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestGormTransactionScope(t *testing.T) {
	ctx := context.Background()
	db := setupTestDB(t)
	scope := NewGormTransactionScope(db)

	establishmentID := uuid.New()
	supplierID := uuid.New()

	t.Run("commits when the event succeeds", func(t *testing.T) {
		var articleID uuid.UUID
		err := scope.Execute(ctx, func(repos costing.TransactionalRepositories) error {
			article, err := catalog.NewMasterArticle(establishmentID, supplierID, "Tomate grappe", "tomate grappe", "kg")
			if err != nil {
				return err
			}
			articleID = article.ID
			return repos.MasterArticleRepo().Save(ctx, article)
		})
		require.NoError(t, err)

		found, err := NewGormMasterArticleRepository(db).FindByID(ctx, articleID)
		require.NoError(t, err)
		assert.Equal(t, "tomate grappe", found.NormalizedName)
	})

	t.Run("rolls back every write when the event fails", func(t *testing.T) {
		var articleID uuid.UUID
		err := scope.Execute(ctx, func(repos costing.TransactionalRepositories) error {
			article, err := catalog.NewMasterArticle(establishmentID, supplierID, "Beurre doux", "beurre doux", "kg")
			if err != nil {
				return err
			}
			articleID = article.ID
			if err := repos.MasterArticleRepo().Save(ctx, article); err != nil {
				return err
			}

			rec, err := recipe.NewRecipe(establishmentID, "Sauce tomate", "bases", "",
				decimal.NewFromInt(10), decimal.Zero)
			if err != nil {
				return err
			}
			if err := repos.RecipeRepo().Save(ctx, rec); err != nil {
				return err
			}

			return shared.NewCalculationError("Recipe Sauce tomate has a non-positive portion count")
		})
		require.Error(t, err)
		assert.Equal(t, shared.CodeCalculation, shared.ErrorCode(err))

		_, err = NewGormMasterArticleRepository(db).FindByID(ctx, articleID)
		assert.ErrorIs(t, err, shared.ErrNotFound)

		recipes, err := NewGormRecipeRepository(db).FindActiveForEstablishment(ctx, establishmentID)
		require.NoError(t, err)
		assert.Empty(t, recipes)
	})

	t.Run("exposes every repository inside the transaction", func(t *testing.T) {
		err := scope.Execute(ctx, func(repos costing.TransactionalRepositories) error {
			assert.NotNil(t, repos.MasterArticleRepo())
			assert.NotNil(t, repos.NormalizationRuleRepo())
			assert.NotNil(t, repos.InvoiceRepo())
			assert.NotNil(t, repos.ArticleRepo())
			assert.NotNil(t, repos.ImportJobRepo())
			assert.NotNil(t, repos.RejectedInvoiceRepo())
			assert.NotNil(t, repos.RecipeRepo())
			assert.NotNil(t, repos.IngredientRepo())
			assert.NotNil(t, repos.RecipeSnapshotRepo())
			assert.NotNil(t, repos.IngredientSnapshotRepo())
			assert.NotNil(t, repos.MarginRepo())
			return nil
		})
		require.NoError(t, err)
	})
}
