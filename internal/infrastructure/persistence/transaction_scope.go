package persistence

import (
	"context"

	"github.com/restocost/backend/internal/application/costing"
	"github.com/restocost/backend/internal/domain/catalog"
	"github.com/restocost/backend/internal/domain/history"
	"github.com/restocost/backend/internal/domain/margin"
	"github.com/restocost/backend/internal/domain/purchasing"
	"github.com/restocost/backend/internal/domain/recipe"
	"gorm.io/gorm"
)

// GormTransactionScope implements TransactionScope using GORM transactions.
// One Execute call wraps one cost event: the whole propagation commits or
// rolls back as a unit.
type GormTransactionScope struct {
	db *gorm.DB
}

// NewGormTransactionScope creates a new GormTransactionScope.
func NewGormTransactionScope(db *gorm.DB) *GormTransactionScope {
	return &GormTransactionScope{db: db}
}

// Execute runs the given function within a database transaction.
// If the function returns an error, the transaction is rolled back.
// If the function succeeds, the transaction is committed.
func (s *GormTransactionScope) Execute(ctx context.Context, fn func(repos costing.TransactionalRepositories) error) error {
	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		repos := &gormTransactionalRepositories{tx: tx}
		return fn(repos)
	})
}

// gormTransactionalRepositories provides access to all repositories within a transaction.
type gormTransactionalRepositories struct {
	tx *gorm.DB
}

// MasterArticleRepo returns the master article repository scoped to the current transaction.
func (r *gormTransactionalRepositories) MasterArticleRepo() catalog.MasterArticleRepository {
	return NewGormMasterArticleRepository(r.tx)
}

// NormalizationRuleRepo returns the normalization rule repository scoped to the current transaction.
func (r *gormTransactionalRepositories) NormalizationRuleRepo() catalog.NormalizationRuleRepository {
	return NewGormNormalizationRuleRepository(r.tx)
}

// InvoiceRepo returns the invoice repository scoped to the current transaction.
func (r *gormTransactionalRepositories) InvoiceRepo() purchasing.InvoiceRepository {
	return NewGormInvoiceRepository(r.tx)
}

// ArticleRepo returns the article repository scoped to the current transaction.
func (r *gormTransactionalRepositories) ArticleRepo() purchasing.ArticleRepository {
	return NewGormArticleRepository(r.tx)
}

// ImportJobRepo returns the import job repository scoped to the current transaction.
func (r *gormTransactionalRepositories) ImportJobRepo() purchasing.ImportJobRepository {
	return NewGormImportJobRepository(r.tx)
}

// RejectedInvoiceRepo returns the rejected invoice repository scoped to the current transaction.
func (r *gormTransactionalRepositories) RejectedInvoiceRepo() purchasing.RejectedInvoiceRepository {
	return NewGormRejectedInvoiceRepository(r.tx)
}

// RecipeRepo returns the recipe repository scoped to the current transaction.
func (r *gormTransactionalRepositories) RecipeRepo() recipe.RecipeRepository {
	return NewGormRecipeRepository(r.tx)
}

// IngredientRepo returns the ingredient repository scoped to the current transaction.
func (r *gormTransactionalRepositories) IngredientRepo() recipe.IngredientRepository {
	return NewGormIngredientRepository(r.tx)
}

// RecipeSnapshotRepo returns the recipe history repository scoped to the current transaction.
func (r *gormTransactionalRepositories) RecipeSnapshotRepo() history.RecipeSnapshotRepository {
	return NewGormRecipeSnapshotRepository(r.tx)
}

// IngredientSnapshotRepo returns the ingredient history repository scoped to the current transaction.
func (r *gormTransactionalRepositories) IngredientSnapshotRepo() history.IngredientSnapshotRepository {
	return NewGormIngredientSnapshotRepository(r.tx)
}

// MarginRepo returns the margin repository scoped to the current transaction.
func (r *gormTransactionalRepositories) MarginRepo() margin.Repository {
	return NewGormMarginRepository(r.tx)
}

// Ensure GormTransactionScope implements TransactionScope
var _ costing.TransactionScope = (*GormTransactionScope)(nil)

// Ensure gormTransactionalRepositories implements TransactionalRepositories
var _ costing.TransactionalRepositories = (*gormTransactionalRepositories)(nil)
