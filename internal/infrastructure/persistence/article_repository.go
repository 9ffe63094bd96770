package persistence

import (
	"context"
	"errors"

	"github.com/google/uuid"
	"github.com/restocost/backend/internal/domain/purchasing"
	"github.com/restocost/backend/internal/domain/shared"
	"gorm.io/gorm"
)

// GormArticleRepository implements ArticleRepository using GORM
type GormArticleRepository struct {
	db *gorm.DB
}

// NewGormArticleRepository creates a new GormArticleRepository
func NewGormArticleRepository(db *gorm.DB) *GormArticleRepository {
	return &GormArticleRepository{db: db}
}

// FindByID finds an article by its ID
func (r *GormArticleRepository) FindByID(ctx context.Context, id uuid.UUID) (*purchasing.Article, error) {
	var article purchasing.Article
	if err := r.db.WithContext(ctx).First(&article, "id = ?", id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, shared.ErrNotFound
		}
		return nil, err
	}
	return &article, nil
}

// FindByInvoice lists all line items of an invoice
func (r *GormArticleRepository) FindByInvoice(ctx context.Context, invoiceID uuid.UUID) ([]purchasing.Article, error) {
	var articles []purchasing.Article
	if err := r.db.WithContext(ctx).
		Where("invoice_id = ?", invoiceID).
		Order("seq ASC").
		Find(&articles).Error; err != nil {
		return nil, err
	}
	return articles, nil
}

// FindLatestForMasterArticle returns the most recent remaining article
// referencing the master article: latest invoice date first, insertion
// sequence breaking ties.
func (r *GormArticleRepository) FindLatestForMasterArticle(ctx context.Context, establishmentID, masterArticleID uuid.UUID) (*purchasing.Article, error) {
	var article purchasing.Article
	if err := r.db.WithContext(ctx).
		Where("establishment_id = ? AND master_article_id = ?", establishmentID, masterArticleID).
		Order("invoice_date DESC, seq DESC").
		First(&article).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, shared.ErrNotFound
		}
		return nil, err
	}
	return &article, nil
}

// MaxSeq returns the highest insertion sequence allocated for the establishment
func (r *GormArticleRepository) MaxSeq(ctx context.Context, establishmentID uuid.UUID) (int64, error) {
	var maxSeq int64
	if err := r.db.WithContext(ctx).
		Model(&purchasing.Article{}).
		Where("establishment_id = ?", establishmentID).
		Select("COALESCE(MAX(seq), 0)").
		Scan(&maxSeq).Error; err != nil {
		return 0, err
	}
	return maxSeq, nil
}

// Save creates or updates an article
func (r *GormArticleRepository) Save(ctx context.Context, article *purchasing.Article) error {
	return r.db.WithContext(ctx).Save(article).Error
}

// Delete deletes an article
func (r *GormArticleRepository) Delete(ctx context.Context, id uuid.UUID) error {
	result := r.db.WithContext(ctx).Delete(&purchasing.Article{}, "id = ?", id)
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return shared.ErrNotFound
	}
	return nil
}

// DeleteByInvoice deletes all line items of an invoice
func (r *GormArticleRepository) DeleteByInvoice(ctx context.Context, invoiceID uuid.UUID) error {
	return r.db.WithContext(ctx).Delete(&purchasing.Article{}, "invoice_id = ?", invoiceID).Error
}

// Ensure GormArticleRepository implements ArticleRepository
var _ purchasing.ArticleRepository = (*GormArticleRepository)(nil)
