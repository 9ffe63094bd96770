package persistence

import (
	"context"
	"errors"

	"github.com/google/uuid"
	"github.com/restocost/backend/internal/domain/catalog"
	"github.com/restocost/backend/internal/domain/shared"
	"gorm.io/gorm"
)

// GormMasterArticleRepository implements MasterArticleRepository using GORM
type GormMasterArticleRepository struct {
	db *gorm.DB
}

// NewGormMasterArticleRepository creates a new GormMasterArticleRepository
func NewGormMasterArticleRepository(db *gorm.DB) *GormMasterArticleRepository {
	return &GormMasterArticleRepository{db: db}
}

// FindByID finds a master article by its ID
func (r *GormMasterArticleRepository) FindByID(ctx context.Context, id uuid.UUID) (*catalog.MasterArticle, error) {
	var article catalog.MasterArticle
	if err := r.db.WithContext(ctx).First(&article, "id = ?", id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, shared.ErrNotFound
		}
		return nil, err
	}
	return &article, nil
}

// FindByIDForEstablishment finds a master article by ID within an establishment
func (r *GormMasterArticleRepository) FindByIDForEstablishment(ctx context.Context, establishmentID, id uuid.UUID) (*catalog.MasterArticle, error) {
	var article catalog.MasterArticle
	if err := r.db.WithContext(ctx).
		Where("establishment_id = ? AND id = ?", establishmentID, id).
		First(&article).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, shared.ErrNotFound
		}
		return nil, err
	}
	return &article, nil
}

// FindByNormalizedName finds the canonical entry for a normalized name
// within an establishment/supplier scope
func (r *GormMasterArticleRepository) FindByNormalizedName(ctx context.Context, establishmentID, supplierID uuid.UUID, normalizedName string) (*catalog.MasterArticle, error) {
	var article catalog.MasterArticle
	if err := r.db.WithContext(ctx).
		Where("establishment_id = ? AND supplier_id = ? AND normalized_name = ?", establishmentID, supplierID, normalizedName).
		First(&article).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, shared.ErrNotFound
		}
		return nil, err
	}
	return &article, nil
}

// FindBySupplier lists all entries for a supplier
func (r *GormMasterArticleRepository) FindBySupplier(ctx context.Context, establishmentID, supplierID uuid.UUID) ([]catalog.MasterArticle, error) {
	var articles []catalog.MasterArticle
	if err := r.db.WithContext(ctx).
		Where("establishment_id = ? AND supplier_id = ?", establishmentID, supplierID).
		Order("normalized_name ASC").
		Find(&articles).Error; err != nil {
		return nil, err
	}
	return articles, nil
}

// FindByIDs finds multiple master articles by their IDs
func (r *GormMasterArticleRepository) FindByIDs(ctx context.Context, establishmentID uuid.UUID, ids []uuid.UUID) ([]catalog.MasterArticle, error) {
	if len(ids) == 0 {
		return []catalog.MasterArticle{}, nil
	}

	var articles []catalog.MasterArticle
	if err := r.db.WithContext(ctx).
		Where("establishment_id = ? AND id IN ?", establishmentID, ids).
		Find(&articles).Error; err != nil {
		return nil, err
	}
	return articles, nil
}

// Save creates or updates a master article
func (r *GormMasterArticleRepository) Save(ctx context.Context, article *catalog.MasterArticle) error {
	return r.db.WithContext(ctx).Save(article).Error
}

// Ensure GormMasterArticleRepository implements MasterArticleRepository
var _ catalog.MasterArticleRepository = (*GormMasterArticleRepository)(nil)
