package purchasing

import (
	"context"
	"errors"

	"github.com/google/uuid"
	"github.com/restocost/backend/internal/domain/catalog"
	"github.com/restocost/backend/internal/domain/shared"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

// PriceChange signals that a master article's derived current price moved.
// NewPrice is nil when the last price source was deleted.
type PriceChange struct {
	MasterArticleID uuid.UUID
	OldPrice        *decimal.Decimal
	NewPrice        *decimal.Decimal
}

// Ledger appends and removes article facts and maintains the current-price
// invariant: MasterArticle.CurrentUnitPrice always equals the unit price of
// the most recent non-deleted article referencing it (invoice date ordering,
// ties broken by insertion sequence).
type Ledger struct {
	masters  catalog.MasterArticleRepository
	articles ArticleRepository
	logger   *zap.Logger
}

// NewLedger creates a new ledger writer.
func NewLedger(masters catalog.MasterArticleRepository, articles ArticleRepository, logger *zap.Logger) *Ledger {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Ledger{
		masters:  masters,
		articles: articles,
		logger:   logger,
	}
}

// AppendArticle persists a new article fact and recomputes the derived price.
// The insertion sequence is allocated here, inside the serialized
// per-establishment section, so date ties resolve deterministically.
// Returns nil when the observation is not the most recent one (e.g. a
// backdated correction) or does not move the price.
func (l *Ledger) AppendArticle(ctx context.Context, master *catalog.MasterArticle, article *Article) (*PriceChange, error) {
	maxSeq, err := l.articles.MaxSeq(ctx, article.EstablishmentID)
	if err != nil {
		return nil, err
	}
	article.Seq = maxSeq + 1

	if err := l.articles.Save(ctx, article); err != nil {
		return nil, err
	}

	return l.Recalculate(ctx, master)
}

// RemoveArticle deletes an article fact and recomputes the derived price from
// the next-most-recent remaining article (clearing it when none remain).
func (l *Ledger) RemoveArticle(ctx context.Context, master *catalog.MasterArticle, article *Article) (*PriceChange, error) {
	if err := l.articles.Delete(ctx, article.ID); err != nil {
		return nil, err
	}
	return l.Recalculate(ctx, master)
}

// Recalculate recomputes the materialized current price of a master article
// from its article set. Returns the resulting change, or nil when the price
// did not move.
func (l *Ledger) Recalculate(ctx context.Context, master *catalog.MasterArticle) (*PriceChange, error) {
	latest, err := l.articles.FindLatestForMasterArticle(ctx, master.EstablishmentID, master.ID)
	if err != nil {
		if !errors.Is(err, shared.ErrNotFound) {
			return nil, err
		}
		if !master.HasCurrentPrice() {
			return nil, nil
		}
		old := master.ClearCurrentPrice()
		if err := l.masters.Save(ctx, master); err != nil {
			return nil, err
		}
		l.logger.Info("master article price cleared",
			zap.String("master_article_id", master.ID.String()),
		)
		return &PriceChange{MasterArticleID: master.ID, OldPrice: old}, nil
	}

	unitMatches := latest.Unit == "" || master.CurrentUnit == latest.Unit
	if master.HasCurrentPrice() && master.CurrentUnitPrice.Equal(latest.UnitPrice) && unitMatches {
		return nil, nil
	}

	old := master.SetCurrentPrice(latest.UnitPrice, latest.Unit)
	if err := l.masters.Save(ctx, master); err != nil {
		return nil, err
	}

	newPrice := latest.UnitPrice
	l.logger.Info("master article price updated",
		zap.String("master_article_id", master.ID.String()),
		zap.String("new_price", newPrice.String()),
	)

	return &PriceChange{MasterArticleID: master.ID, OldPrice: old, NewPrice: &newPrice}, nil
}
