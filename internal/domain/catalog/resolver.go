package catalog

import (
	"context"
	"errors"

	"github.com/agnivade/levenshtein"
	"github.com/google/uuid"
	"github.com/restocost/backend/internal/domain/shared"
	"go.uber.org/zap"
)

// suggestionThreshold is the minimum similarity score for a near-duplicate
// to be surfaced to the caller.
const suggestionThreshold = 0.82

// RawLine is one invoice line as extracted from the supplier document.
type RawLine struct {
	Name string
	Unit string
}

// Suggestion is a near-duplicate catalog entry surfaced to the caller.
// Suggestions are advisory only; the resolver never auto-merges.
type Suggestion struct {
	Article *MasterArticle
	Score   float64
}

// Resolution is the outcome of resolving one raw invoice line.
type Resolution struct {
	Article     *MasterArticle
	Created     bool
	Suggestions []Suggestion
}

// Resolver maps raw invoice lines to canonical master articles, creating a
// new entry when no normalized match exists. It performs no price mutation.
type Resolver struct {
	articles MasterArticleRepository
	rules    NormalizationRuleRepository
	logger   *zap.Logger
}

// NewResolver creates a new catalog resolver.
func NewResolver(articles MasterArticleRepository, rules NormalizationRuleRepository, logger *zap.Logger) *Resolver {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Resolver{
		articles: articles,
		rules:    rules,
		logger:   logger,
	}
}

// Resolve maps one raw line to a master article within an establishment and
// supplier scope. A miss on the normalized name creates a new entry; fuzzy
// near-matches are returned as suggestions alongside it.
func (r *Resolver) Resolve(ctx context.Context, establishmentID, supplierID uuid.UUID, line RawLine) (*Resolution, error) {
	rules, err := r.rules.FindAllForEstablishment(ctx, establishmentID)
	if err != nil {
		return nil, err
	}
	normalizer := NewNormalizer(rules)

	normalized := normalizer.Normalize(line.Name)
	if normalized == "" {
		return nil, shared.NewResolutionError("Article name is empty after normalization: " + line.Name)
	}

	existing, err := r.articles.FindByNormalizedName(ctx, establishmentID, supplierID, normalized)
	if err == nil {
		return &Resolution{Article: existing}, nil
	}
	if !errors.Is(err, shared.ErrNotFound) {
		return nil, err
	}

	suggestions, err := r.suggest(ctx, establishmentID, supplierID, normalized)
	if err != nil {
		return nil, err
	}

	article, err := NewMasterArticle(establishmentID, supplierID, line.Name, normalized, line.Unit)
	if err != nil {
		return nil, err
	}
	if err := r.articles.Save(ctx, article); err != nil {
		return nil, err
	}

	r.logger.Info("created master article",
		zap.String("establishment_id", establishmentID.String()),
		zap.String("master_article_id", article.ID.String()),
		zap.String("normalized_name", normalized),
		zap.Int("suggestions", len(suggestions)),
	)

	return &Resolution{Article: article, Created: true, Suggestions: suggestions}, nil
}

// suggest scores every catalog entry of the supplier against the normalized
// name and keeps those above the similarity threshold.
func (r *Resolver) suggest(ctx context.Context, establishmentID, supplierID uuid.UUID, normalized string) ([]Suggestion, error) {
	candidates, err := r.articles.FindBySupplier(ctx, establishmentID, supplierID)
	if err != nil {
		return nil, err
	}

	var suggestions []Suggestion
	for i := range candidates {
		score := similarity(normalized, candidates[i].NormalizedName)
		if score >= suggestionThreshold {
			suggestions = append(suggestions, Suggestion{Article: &candidates[i], Score: score})
		}
	}

	// Highest score first.
	for i := 1; i < len(suggestions); i++ {
		for j := i; j > 0 && suggestions[j].Score > suggestions[j-1].Score; j-- {
			suggestions[j], suggestions[j-1] = suggestions[j-1], suggestions[j]
		}
	}

	return suggestions, nil
}

// similarity converts levenshtein distance into a 0..1 score.
func similarity(a, b string) float64 {
	if a == b {
		return 1
	}
	longest := len([]rune(a))
	if l := len([]rune(b)); l > longest {
		longest = l
	}
	if longest == 0 {
		return 0
	}
	dist := levenshtein.ComputeDistance(a, b)
	return 1 - float64(dist)/float64(longest)
}
