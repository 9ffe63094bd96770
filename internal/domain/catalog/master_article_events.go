package catalog

import (
	"github.com/google/uuid"
	"github.com/restocost/backend/internal/domain/shared"
	"github.com/shopspring/decimal"
)

// Aggregate type constant
const AggregateTypeMasterArticle = "MasterArticle"

// Event type constants
const (
	EventTypeMasterArticleCreated      = "MasterArticleCreated"
	EventTypeMasterArticlePriceChanged = "MasterArticlePriceChanged"
)

// MasterArticleCreatedEvent is published when the resolver creates a new catalog entry
type MasterArticleCreatedEvent struct {
	shared.BaseDomainEvent
	MasterArticleID uuid.UUID `json:"master_article_id"`
	SupplierID      uuid.UUID `json:"supplier_id"`
	Name            string    `json:"name"`
	NormalizedName  string    `json:"normalized_name"`
	Unit            string    `json:"unit"`
}

// NewMasterArticleCreatedEvent creates a new MasterArticleCreatedEvent
func NewMasterArticleCreatedEvent(article *MasterArticle) *MasterArticleCreatedEvent {
	return &MasterArticleCreatedEvent{
		BaseDomainEvent: shared.NewBaseDomainEvent(EventTypeMasterArticleCreated, AggregateTypeMasterArticle, article.ID, article.EstablishmentID),
		MasterArticleID: article.ID,
		SupplierID:      article.SupplierID,
		Name:            article.Name,
		NormalizedName:  article.NormalizedName,
		Unit:            article.Unit,
	}
}

// MasterArticlePriceChangedEvent is published when the derived current price moves
type MasterArticlePriceChangedEvent struct {
	shared.BaseDomainEvent
	MasterArticleID uuid.UUID        `json:"master_article_id"`
	OldPrice        *decimal.Decimal `json:"old_price,omitempty"`
	NewPrice        *decimal.Decimal `json:"new_price,omitempty"`
}

// NewMasterArticlePriceChangedEvent creates a new MasterArticlePriceChangedEvent
func NewMasterArticlePriceChangedEvent(article *MasterArticle, oldPrice, newPrice *decimal.Decimal) *MasterArticlePriceChangedEvent {
	return &MasterArticlePriceChangedEvent{
		BaseDomainEvent: shared.NewBaseDomainEvent(EventTypeMasterArticlePriceChanged, AggregateTypeMasterArticle, article.ID, article.EstablishmentID),
		MasterArticleID: article.ID,
		OldPrice:        oldPrice,
		NewPrice:        newPrice,
	}
}
