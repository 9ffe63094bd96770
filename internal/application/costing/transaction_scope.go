package costing

import (
	"context"

	"github.com/restocost/backend/internal/domain/catalog"
	"github.com/restocost/backend/internal/domain/history"
	"github.com/restocost/backend/internal/domain/margin"
	"github.com/restocost/backend/internal/domain/purchasing"
	"github.com/restocost/backend/internal/domain/recipe"
)

// TransactionScope provides transactional access to every repository the
// coordinator touches. All work for one triggering event runs inside a single
// Execute call: either the whole propagation commits, or nothing does.
type TransactionScope interface {
	// Execute runs the given function within a database transaction.
	// If the function returns an error, the transaction is rolled back.
	Execute(ctx context.Context, fn func(repos TransactionalRepositories) error) error
}

// TransactionalRepositories exposes the repositories bound to the current
// transaction. All of them share the same underlying database transaction.
type TransactionalRepositories interface {
	MasterArticleRepo() catalog.MasterArticleRepository
	NormalizationRuleRepo() catalog.NormalizationRuleRepository
	InvoiceRepo() purchasing.InvoiceRepository
	ArticleRepo() purchasing.ArticleRepository
	ImportJobRepo() purchasing.ImportJobRepository
	RejectedInvoiceRepo() purchasing.RejectedInvoiceRepository
	RecipeRepo() recipe.RecipeRepository
	IngredientRepo() recipe.IngredientRepository
	RecipeSnapshotRepo() history.RecipeSnapshotRepository
	IngredientSnapshotRepo() history.IngredientSnapshotRepository
	MarginRepo() margin.Repository
}

// NoOpTransactionScope runs the function directly against the repositories it
// was built with, without a real transaction. Used in tests.
type NoOpTransactionScope struct {
	MasterArticles     catalog.MasterArticleRepository
	NormalizationRules catalog.NormalizationRuleRepository
	Invoices           purchasing.InvoiceRepository
	Articles           purchasing.ArticleRepository
	ImportJobs         purchasing.ImportJobRepository
	RejectedInvoices   purchasing.RejectedInvoiceRepository
	Recipes            recipe.RecipeRepository
	Ingredients        recipe.IngredientRepository
	RecipeSnapshots    history.RecipeSnapshotRepository
	IngredientSnaps    history.IngredientSnapshotRepository
	Margins            margin.Repository
}

// Execute runs the function without a real transaction.
func (s *NoOpTransactionScope) Execute(_ context.Context, fn func(repos TransactionalRepositories) error) error {
	return fn(s)
}

func (s *NoOpTransactionScope) MasterArticleRepo() catalog.MasterArticleRepository {
	return s.MasterArticles
}

func (s *NoOpTransactionScope) NormalizationRuleRepo() catalog.NormalizationRuleRepository {
	return s.NormalizationRules
}

func (s *NoOpTransactionScope) InvoiceRepo() purchasing.InvoiceRepository {
	return s.Invoices
}

func (s *NoOpTransactionScope) ArticleRepo() purchasing.ArticleRepository {
	return s.Articles
}

func (s *NoOpTransactionScope) ImportJobRepo() purchasing.ImportJobRepository {
	return s.ImportJobs
}

func (s *NoOpTransactionScope) RejectedInvoiceRepo() purchasing.RejectedInvoiceRepository {
	return s.RejectedInvoices
}

func (s *NoOpTransactionScope) RecipeRepo() recipe.RecipeRepository {
	return s.Recipes
}

func (s *NoOpTransactionScope) IngredientRepo() recipe.IngredientRepository {
	return s.Ingredients
}

func (s *NoOpTransactionScope) RecipeSnapshotRepo() history.RecipeSnapshotRepository {
	return s.RecipeSnapshots
}

func (s *NoOpTransactionScope) IngredientSnapshotRepo() history.IngredientSnapshotRepository {
	return s.IngredientSnaps
}

func (s *NoOpTransactionScope) MarginRepo() margin.Repository {
	return s.Margins
}

// Ensure NoOpTransactionScope implements both interfaces
var _ TransactionScope = (*NoOpTransactionScope)(nil)
var _ TransactionalRepositories = (*NoOpTransactionScope)(nil)
