package catalog

import (
	"context"

	"github.com/google/uuid"
)

// MasterArticleRepository defines persistence operations for master articles
type MasterArticleRepository interface {
	FindByID(ctx context.Context, id uuid.UUID) (*MasterArticle, error)
	FindByIDForEstablishment(ctx context.Context, establishmentID, id uuid.UUID) (*MasterArticle, error)
	// FindByNormalizedName finds the canonical entry for a normalized name
	// within an establishment/supplier scope. Returns shared.ErrNotFound when
	// no entry matches.
	FindByNormalizedName(ctx context.Context, establishmentID, supplierID uuid.UUID, normalizedName string) (*MasterArticle, error)
	// FindBySupplier lists all entries for a supplier, used for fuzzy
	// near-duplicate scoring.
	FindBySupplier(ctx context.Context, establishmentID, supplierID uuid.UUID) ([]MasterArticle, error)
	FindByIDs(ctx context.Context, establishmentID uuid.UUID, ids []uuid.UUID) ([]MasterArticle, error)
	Save(ctx context.Context, article *MasterArticle) error
}

// NormalizationRuleRepository defines persistence operations for normalization rules
type NormalizationRuleRepository interface {
	FindAllForEstablishment(ctx context.Context, establishmentID uuid.UUID) ([]NormalizationRule, error)
	Save(ctx context.Context, rule *NormalizationRule) error
	Delete(ctx context.Context, id uuid.UUID) error
}
