package costing

import (
	"context"
	"sort"
	"time"

	"github.com/google/uuid"
	"github.com/restocost/backend/internal/domain/catalog"
	"github.com/restocost/backend/internal/domain/history"
	"github.com/restocost/backend/internal/domain/margin"
	"github.com/restocost/backend/internal/domain/purchasing"
	"github.com/restocost/backend/internal/domain/recipe"
	"github.com/restocost/backend/internal/domain/shared"
)

// In-memory repository set backing the coordinator tests. One store instance
// is shared by the NoOpTransactionScope, so assertions read the same state the
// coordinator wrote.

type memStore struct {
	masterArticles     map[uuid.UUID]catalog.MasterArticle
	normalizationRules []catalog.NormalizationRule
	invoices           map[uuid.UUID]purchasing.Invoice
	articles           map[uuid.UUID]purchasing.Article
	importJobs         map[uuid.UUID]purchasing.ImportJob
	rejected           []purchasing.RejectedInvoice
	recipes            map[uuid.UUID]recipe.Recipe
	ingredients        map[uuid.UUID]recipe.Ingredient
	recipeSnapshots    []history.RecipeSnapshot
	ingredientSnaps    []history.IngredientSnapshot
	recipeMargins      map[string]margin.RecipeMargin
	categoryMargins    map[string]margin.RecipeMarginCategory
	subcategoryMargins map[string]margin.RecipeMarginSubcategory
	liveScores         map[string]margin.LiveScore
}

func newMemStore() *memStore {
	return &memStore{
		masterArticles:     make(map[uuid.UUID]catalog.MasterArticle),
		invoices:           make(map[uuid.UUID]purchasing.Invoice),
		articles:           make(map[uuid.UUID]purchasing.Article),
		importJobs:         make(map[uuid.UUID]purchasing.ImportJob),
		recipes:            make(map[uuid.UUID]recipe.Recipe),
		ingredients:        make(map[uuid.UUID]recipe.Ingredient),
		recipeMargins:      make(map[string]margin.RecipeMargin),
		categoryMargins:    make(map[string]margin.RecipeMarginCategory),
		subcategoryMargins: make(map[string]margin.RecipeMarginSubcategory),
		liveScores:         make(map[string]margin.LiveScore),
	}
}

func (s *memStore) scope() *NoOpTransactionScope {
	return &NoOpTransactionScope{
		MasterArticles:     &memMasterArticleRepo{s},
		NormalizationRules: &memRuleRepo{s},
		Invoices:           &memInvoiceRepo{s},
		Articles:           &memArticleRepo{s},
		ImportJobs:         &memImportJobRepo{s},
		RejectedInvoices:   &memRejectedRepo{s},
		Recipes:            &memRecipeRepo{s},
		Ingredients:        &memIngredientRepo{s},
		RecipeSnapshots:    &memRecipeSnapshotRepo{s},
		IngredientSnaps:    &memIngredientSnapshotRepo{s},
		Margins:            &memMarginRepo{s},
	}
}

type memMasterArticleRepo struct{ s *memStore }

func (r *memMasterArticleRepo) FindByID(_ context.Context, id uuid.UUID) (*catalog.MasterArticle, error) {
	m, ok := r.s.masterArticles[id]
	if !ok {
		return nil, shared.ErrNotFound
	}
	return &m, nil
}

func (r *memMasterArticleRepo) FindByIDForEstablishment(ctx context.Context, establishmentID, id uuid.UUID) (*catalog.MasterArticle, error) {
	m, err := r.FindByID(ctx, id)
	if err != nil || m.EstablishmentID != establishmentID {
		return nil, shared.ErrNotFound
	}
	return m, nil
}

func (r *memMasterArticleRepo) FindByNormalizedName(_ context.Context, establishmentID, supplierID uuid.UUID, normalizedName string) (*catalog.MasterArticle, error) {
	for _, m := range r.s.masterArticles {
		if m.EstablishmentID == establishmentID && m.SupplierID == supplierID && m.NormalizedName == normalizedName {
			found := m
			return &found, nil
		}
	}
	return nil, shared.ErrNotFound
}

func (r *memMasterArticleRepo) FindBySupplier(_ context.Context, establishmentID, supplierID uuid.UUID) ([]catalog.MasterArticle, error) {
	var out []catalog.MasterArticle
	for _, m := range r.s.masterArticles {
		if m.EstablishmentID == establishmentID && m.SupplierID == supplierID {
			out = append(out, m)
		}
	}
	return out, nil
}

func (r *memMasterArticleRepo) FindByIDs(_ context.Context, establishmentID uuid.UUID, ids []uuid.UUID) ([]catalog.MasterArticle, error) {
	var out []catalog.MasterArticle
	for _, id := range ids {
		if m, ok := r.s.masterArticles[id]; ok && m.EstablishmentID == establishmentID {
			out = append(out, m)
		}
	}
	return out, nil
}

func (r *memMasterArticleRepo) Save(_ context.Context, article *catalog.MasterArticle) error {
	r.s.masterArticles[article.ID] = *article
	return nil
}

type memRuleRepo struct{ s *memStore }

func (r *memRuleRepo) FindAllForEstablishment(_ context.Context, establishmentID uuid.UUID) ([]catalog.NormalizationRule, error) {
	var out []catalog.NormalizationRule
	for _, rule := range r.s.normalizationRules {
		if rule.EstablishmentID == establishmentID {
			out = append(out, rule)
		}
	}
	return out, nil
}

func (r *memRuleRepo) Save(_ context.Context, rule *catalog.NormalizationRule) error {
	r.s.normalizationRules = append(r.s.normalizationRules, *rule)
	return nil
}

func (r *memRuleRepo) Delete(_ context.Context, id uuid.UUID) error {
	for i := range r.s.normalizationRules {
		if r.s.normalizationRules[i].ID == id {
			r.s.normalizationRules = append(r.s.normalizationRules[:i], r.s.normalizationRules[i+1:]...)
			return nil
		}
	}
	return shared.ErrNotFound
}

type memInvoiceRepo struct{ s *memStore }

func (r *memInvoiceRepo) FindByID(_ context.Context, id uuid.UUID) (*purchasing.Invoice, error) {
	inv, ok := r.s.invoices[id]
	if !ok {
		return nil, shared.ErrNotFound
	}
	return &inv, nil
}

func (r *memInvoiceRepo) FindByIDForEstablishment(ctx context.Context, establishmentID, id uuid.UUID) (*purchasing.Invoice, error) {
	inv, err := r.FindByID(ctx, id)
	if err != nil || inv.EstablishmentID != establishmentID {
		return nil, shared.ErrNotFound
	}
	return inv, nil
}

func (r *memInvoiceRepo) Save(_ context.Context, invoice *purchasing.Invoice) error {
	r.s.invoices[invoice.ID] = *invoice
	return nil
}

func (r *memInvoiceRepo) Delete(_ context.Context, id uuid.UUID) error {
	delete(r.s.invoices, id)
	return nil
}

type memArticleRepo struct{ s *memStore }

func (r *memArticleRepo) FindByID(_ context.Context, id uuid.UUID) (*purchasing.Article, error) {
	a, ok := r.s.articles[id]
	if !ok {
		return nil, shared.ErrNotFound
	}
	return &a, nil
}

func (r *memArticleRepo) FindByInvoice(_ context.Context, invoiceID uuid.UUID) ([]purchasing.Article, error) {
	var out []purchasing.Article
	for _, a := range r.s.articles {
		if a.InvoiceID == invoiceID {
			out = append(out, a)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Seq < out[j].Seq })
	return out, nil
}

func (r *memArticleRepo) FindLatestForMasterArticle(_ context.Context, establishmentID, masterArticleID uuid.UUID) (*purchasing.Article, error) {
	var latest *purchasing.Article
	for _, a := range r.s.articles {
		if a.EstablishmentID != establishmentID || a.MasterArticleID != masterArticleID {
			continue
		}
		candidate := a
		if candidate.Supersedes(latest) {
			latest = &candidate
		}
	}
	if latest == nil {
		return nil, shared.ErrNotFound
	}
	return latest, nil
}

func (r *memArticleRepo) MaxSeq(_ context.Context, establishmentID uuid.UUID) (int64, error) {
	var max int64
	for _, a := range r.s.articles {
		if a.EstablishmentID == establishmentID && a.Seq > max {
			max = a.Seq
		}
	}
	return max, nil
}

func (r *memArticleRepo) Save(_ context.Context, article *purchasing.Article) error {
	r.s.articles[article.ID] = *article
	return nil
}

func (r *memArticleRepo) Delete(_ context.Context, id uuid.UUID) error {
	delete(r.s.articles, id)
	return nil
}

func (r *memArticleRepo) DeleteByInvoice(_ context.Context, invoiceID uuid.UUID) error {
	for id, a := range r.s.articles {
		if a.InvoiceID == invoiceID {
			delete(r.s.articles, id)
		}
	}
	return nil
}

type memImportJobRepo struct{ s *memStore }

func (r *memImportJobRepo) FindByID(_ context.Context, id uuid.UUID) (*purchasing.ImportJob, error) {
	j, ok := r.s.importJobs[id]
	if !ok {
		return nil, shared.ErrNotFound
	}
	return &j, nil
}

func (r *memImportJobRepo) FindByIDForEstablishment(ctx context.Context, establishmentID, id uuid.UUID) (*purchasing.ImportJob, error) {
	j, err := r.FindByID(ctx, id)
	if err != nil || j.EstablishmentID != establishmentID {
		return nil, shared.ErrNotFound
	}
	return j, nil
}

func (r *memImportJobRepo) FindPending(_ context.Context, limit int) ([]purchasing.ImportJob, error) {
	var out []purchasing.ImportJob
	for _, j := range r.s.importJobs {
		if j.Status == purchasing.ImportJobStatusPending {
			out = append(out, j)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.Before(out[j].CreatedAt) })
	if len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

func (r *memImportJobRepo) Save(_ context.Context, job *purchasing.ImportJob) error {
	r.s.importJobs[job.ID] = *job
	return nil
}

type memRejectedRepo struct{ s *memStore }

func (r *memRejectedRepo) FindByImportJob(_ context.Context, importJobID uuid.UUID) ([]purchasing.RejectedInvoice, error) {
	var out []purchasing.RejectedInvoice
	for _, rec := range r.s.rejected {
		if rec.ImportJobID == importJobID {
			out = append(out, rec)
		}
	}
	return out, nil
}

func (r *memRejectedRepo) FindAllForEstablishment(_ context.Context, establishmentID uuid.UUID) ([]purchasing.RejectedInvoice, error) {
	var out []purchasing.RejectedInvoice
	for _, rec := range r.s.rejected {
		if rec.EstablishmentID == establishmentID {
			out = append(out, rec)
		}
	}
	return out, nil
}

func (r *memRejectedRepo) Save(_ context.Context, rejected *purchasing.RejectedInvoice) error {
	r.s.rejected = append(r.s.rejected, *rejected)
	return nil
}

type memRecipeRepo struct{ s *memStore }

func (r *memRecipeRepo) FindByID(_ context.Context, id uuid.UUID) (*recipe.Recipe, error) {
	rec, ok := r.s.recipes[id]
	if !ok {
		return nil, shared.ErrNotFound
	}
	return &rec, nil
}

func (r *memRecipeRepo) FindByIDForEstablishment(ctx context.Context, establishmentID, id uuid.UUID) (*recipe.Recipe, error) {
	rec, err := r.FindByID(ctx, id)
	if err != nil || rec.EstablishmentID != establishmentID {
		return nil, shared.ErrNotFound
	}
	return rec, nil
}

func (r *memRecipeRepo) FindByIDs(_ context.Context, establishmentID uuid.UUID, ids []uuid.UUID) ([]recipe.Recipe, error) {
	var out []recipe.Recipe
	for _, id := range ids {
		if rec, ok := r.s.recipes[id]; ok && rec.EstablishmentID == establishmentID {
			out = append(out, rec)
		}
	}
	return out, nil
}

func (r *memRecipeRepo) FindActiveForEstablishment(_ context.Context, establishmentID uuid.UUID) ([]recipe.Recipe, error) {
	var out []recipe.Recipe
	for _, rec := range r.s.recipes {
		if rec.EstablishmentID == establishmentID && rec.Active {
			out = append(out, rec)
		}
	}
	return out, nil
}

func (r *memRecipeRepo) Save(_ context.Context, rec *recipe.Recipe) error {
	r.s.recipes[rec.ID] = *rec
	return nil
}

func (r *memRecipeRepo) Delete(_ context.Context, id uuid.UUID) error {
	delete(r.s.recipes, id)
	return nil
}

type memIngredientRepo struct{ s *memStore }

func (r *memIngredientRepo) FindByID(_ context.Context, id uuid.UUID) (*recipe.Ingredient, error) {
	ing, ok := r.s.ingredients[id]
	if !ok {
		return nil, shared.ErrNotFound
	}
	return &ing, nil
}

func (r *memIngredientRepo) FindByRecipe(_ context.Context, recipeID uuid.UUID) ([]recipe.Ingredient, error) {
	var out []recipe.Ingredient
	for _, ing := range r.s.ingredients {
		if ing.RecipeID == recipeID {
			out = append(out, ing)
		}
	}
	return out, nil
}

func (r *memIngredientRepo) FindByMasterArticles(_ context.Context, establishmentID uuid.UUID, masterArticleIDs []uuid.UUID) ([]recipe.Ingredient, error) {
	wanted := make(map[uuid.UUID]struct{}, len(masterArticleIDs))
	for _, id := range masterArticleIDs {
		wanted[id] = struct{}{}
	}
	var out []recipe.Ingredient
	for _, ing := range r.s.ingredients {
		if ing.EstablishmentID != establishmentID || ing.MasterArticleID == nil {
			continue
		}
		if _, ok := wanted[*ing.MasterArticleID]; ok {
			out = append(out, ing)
		}
	}
	return out, nil
}

func (r *memIngredientRepo) FindSubRecipeRefs(_ context.Context, establishmentID uuid.UUID) ([]recipe.Ingredient, error) {
	var out []recipe.Ingredient
	for _, ing := range r.s.ingredients {
		if ing.EstablishmentID == establishmentID && ing.Type == recipe.IngredientTypeSubRecipe {
			out = append(out, ing)
		}
	}
	return out, nil
}

func (r *memIngredientRepo) Save(_ context.Context, ingredient *recipe.Ingredient) error {
	r.s.ingredients[ingredient.ID] = *ingredient
	return nil
}

func (r *memIngredientRepo) Delete(_ context.Context, id uuid.UUID) error {
	delete(r.s.ingredients, id)
	return nil
}

func (r *memIngredientRepo) DeleteByRecipe(_ context.Context, recipeID uuid.UUID) error {
	for id, ing := range r.s.ingredients {
		if ing.RecipeID == recipeID {
			delete(r.s.ingredients, id)
		}
	}
	return nil
}

type memRecipeSnapshotRepo struct{ s *memStore }

func (r *memRecipeSnapshotRepo) MaxVersion(_ context.Context, recipeID uuid.UUID) (int64, error) {
	var max int64
	for _, row := range r.s.recipeSnapshots {
		if row.RecipeID == recipeID && row.VersionNumber > max {
			max = row.VersionNumber
		}
	}
	return max, nil
}

func (r *memRecipeSnapshotRepo) Append(_ context.Context, snapshot *history.RecipeSnapshot) error {
	r.s.recipeSnapshots = append(r.s.recipeSnapshots, *snapshot)
	return nil
}

func (r *memRecipeSnapshotRepo) FindByRecipe(_ context.Context, recipeID uuid.UUID) ([]history.RecipeSnapshot, error) {
	var out []history.RecipeSnapshot
	for _, row := range r.s.recipeSnapshots {
		if row.RecipeID == recipeID {
			out = append(out, row)
		}
	}
	return out, nil
}

func (r *memRecipeSnapshotRepo) FindRange(_ context.Context, establishmentID uuid.UUID, from, to time.Time) ([]history.RecipeSnapshot, error) {
	var out []history.RecipeSnapshot
	for _, row := range r.s.recipeSnapshots {
		if row.EstablishmentID == establishmentID && !row.EffectiveDate.Before(from) && !row.EffectiveDate.After(to) {
			out = append(out, row)
		}
	}
	return out, nil
}

type memIngredientSnapshotRepo struct{ s *memStore }

func (r *memIngredientSnapshotRepo) MaxVersion(_ context.Context, ingredientID uuid.UUID) (int64, error) {
	var max int64
	for _, row := range r.s.ingredientSnaps {
		if row.IngredientID == ingredientID && row.VersionNumber > max {
			max = row.VersionNumber
		}
	}
	return max, nil
}

func (r *memIngredientSnapshotRepo) Append(_ context.Context, snapshot *history.IngredientSnapshot) error {
	r.s.ingredientSnaps = append(r.s.ingredientSnaps, *snapshot)
	return nil
}

func (r *memIngredientSnapshotRepo) FindByIngredient(_ context.Context, ingredientID uuid.UUID) ([]history.IngredientSnapshot, error) {
	var out []history.IngredientSnapshot
	for _, row := range r.s.ingredientSnaps {
		if row.IngredientID == ingredientID {
			out = append(out, row)
		}
	}
	return out, nil
}

func (r *memIngredientSnapshotRepo) FindRange(_ context.Context, establishmentID uuid.UUID, from, to time.Time) ([]history.IngredientSnapshot, error) {
	var out []history.IngredientSnapshot
	for _, row := range r.s.ingredientSnaps {
		if row.EstablishmentID == establishmentID && !row.EffectiveDate.Before(from) && !row.EffectiveDate.After(to) {
			out = append(out, row)
		}
	}
	return out, nil
}

type memMarginRepo struct{ s *memStore }

func marginKey(date time.Time, parts ...string) string {
	key := date.Format("2006-01-02")
	for _, p := range parts {
		key += "|" + p
	}
	return key
}

func (r *memMarginRepo) UpsertRecipeMargin(_ context.Context, row *margin.RecipeMargin) error {
	r.s.recipeMargins[marginKey(row.Date)] = *row
	return nil
}

func (r *memMarginRepo) UpsertCategoryMargin(_ context.Context, row *margin.RecipeMarginCategory) error {
	r.s.categoryMargins[marginKey(row.Date, row.Category)] = *row
	return nil
}

func (r *memMarginRepo) UpsertSubcategoryMargin(_ context.Context, row *margin.RecipeMarginSubcategory) error {
	r.s.subcategoryMargins[marginKey(row.Date, row.Subcategory)] = *row
	return nil
}

func (r *memMarginRepo) UpsertLiveScore(_ context.Context, row *margin.LiveScore) error {
	r.s.liveScores[marginKey(row.Date, string(row.Type))] = *row
	return nil
}

func (r *memMarginRepo) DeleteCategoryMarginsExcept(_ context.Context, _ uuid.UUID, date time.Time, keep []string) error {
	kept := make(map[string]struct{}, len(keep))
	for _, k := range keep {
		kept[marginKey(date, k)] = struct{}{}
	}
	prefix := marginKey(date)
	for key := range r.s.categoryMargins {
		if len(key) >= len(prefix) && key[:len(prefix)] == prefix {
			if _, ok := kept[key]; !ok {
				delete(r.s.categoryMargins, key)
			}
		}
	}
	return nil
}

func (r *memMarginRepo) DeleteSubcategoryMarginsExcept(_ context.Context, _ uuid.UUID, date time.Time, keep []string) error {
	kept := make(map[string]struct{}, len(keep))
	for _, k := range keep {
		kept[marginKey(date, k)] = struct{}{}
	}
	prefix := marginKey(date)
	for key := range r.s.subcategoryMargins {
		if len(key) >= len(prefix) && key[:len(prefix)] == prefix {
			if _, ok := kept[key]; !ok {
				delete(r.s.subcategoryMargins, key)
			}
		}
	}
	return nil
}

func (r *memMarginRepo) FindRecipeMargin(_ context.Context, _ uuid.UUID, date time.Time) (*margin.RecipeMargin, error) {
	row, ok := r.s.recipeMargins[marginKey(date)]
	if !ok {
		return nil, shared.ErrNotFound
	}
	return &row, nil
}

func (r *memMarginRepo) FindLiveScore(_ context.Context, _ uuid.UUID, date time.Time, scoreType margin.ScoreType) (*margin.LiveScore, error) {
	row, ok := r.s.liveScores[marginKey(date, string(scoreType))]
	if !ok {
		return nil, shared.ErrNotFound
	}
	return &row, nil
}

type fakeLocker struct {
	acquired int
	fail     error
}

func (l *fakeLocker) Acquire(_ context.Context, _ uuid.UUID) (func(), error) {
	if l.fail != nil {
		return nil, l.fail
	}
	l.acquired++
	return func() {}, nil
}

type fakeNotifier struct {
	messages []string
}

func (n *fakeNotifier) Notify(_ context.Context, _ uuid.UUID, message string) {
	n.messages = append(n.messages, message)
}

type fakeArchiver struct {
	fail bool
}

func (a *fakeArchiver) Archive(_ context.Context, filePath string) (string, error) {
	if a.fail {
		return "", shared.NewDomainError("ARCHIVE_FAILED", "archive unavailable")
	}
	return "s3://rejected/" + filePath, nil
}
