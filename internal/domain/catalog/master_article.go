package catalog

import (
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/restocost/backend/internal/domain/shared"
	"github.com/shopspring/decimal"
)

// MasterArticle is the canonical catalog entry for a purchasable product,
// scoped to an establishment and a supplier. It is the aggregate root for
// catalog operations.
//
// CurrentUnitPrice is derived state: it always mirrors the unit price of the
// most recent non-deleted invoice article referencing this master article.
// It is recomputed by the purchasing ledger and must never be set directly
// by callers.
type MasterArticle struct {
	shared.BaseAggregateRoot
	EstablishmentID  uuid.UUID        `gorm:"type:uuid;not null;uniqueIndex:idx_master_article_identity,priority:1"`
	SupplierID       uuid.UUID        `gorm:"type:uuid;not null;uniqueIndex:idx_master_article_identity,priority:2"`
	Name             string           `gorm:"type:varchar(200);not null"`
	NormalizedName   string           `gorm:"type:varchar(200);not null;uniqueIndex:idx_master_article_identity,priority:3"`
	Unit             string           `gorm:"type:varchar(20);not null"`
	CurrentUnitPrice *decimal.Decimal `gorm:"type:decimal(18,4)"`
	CurrentUnit      string           `gorm:"type:varchar(20)"`
}

// TableName returns the table name for GORM
func (MasterArticle) TableName() string {
	return "master_articles"
}

// NewMasterArticle creates a new master article for an establishment/supplier pair.
func NewMasterArticle(establishmentID, supplierID uuid.UUID, name, normalizedName, unit string) (*MasterArticle, error) {
	if strings.TrimSpace(name) == "" {
		return nil, shared.NewResolutionError("Master article name cannot be empty")
	}
	if normalizedName == "" {
		return nil, shared.NewResolutionError("Master article normalized name cannot be empty")
	}
	if len(name) > 200 {
		return nil, shared.NewResolutionError("Master article name cannot exceed 200 characters")
	}

	article := &MasterArticle{
		BaseAggregateRoot: shared.NewBaseAggregateRoot(),
		EstablishmentID:   establishmentID,
		SupplierID:        supplierID,
		Name:              strings.TrimSpace(name),
		NormalizedName:    normalizedName,
		Unit:              unit,
	}

	article.AddDomainEvent(NewMasterArticleCreatedEvent(article))

	return article, nil
}

// SetCurrentPrice updates the derived current price/unit after the ledger has
// determined that a newer price observation exists. Returns the previous
// price (nil when the article had none).
func (m *MasterArticle) SetCurrentPrice(price decimal.Decimal, unit string) *decimal.Decimal {
	previous := m.CurrentUnitPrice
	p := price
	m.CurrentUnitPrice = &p
	if unit != "" {
		m.CurrentUnit = unit
	}
	m.UpdatedAt = time.Now()
	m.IncrementVersion()

	m.AddDomainEvent(NewMasterArticlePriceChangedEvent(m, previous, &p))

	return previous
}

// ClearCurrentPrice removes the derived price when no non-deleted article
// remains as a price source.
func (m *MasterArticle) ClearCurrentPrice() *decimal.Decimal {
	previous := m.CurrentUnitPrice
	m.CurrentUnitPrice = nil
	m.UpdatedAt = time.Now()
	m.IncrementVersion()

	m.AddDomainEvent(NewMasterArticlePriceChangedEvent(m, previous, nil))

	return previous
}

// HasCurrentPrice returns true when at least one price observation exists.
func (m *MasterArticle) HasCurrentPrice() bool {
	return m.CurrentUnitPrice != nil
}
