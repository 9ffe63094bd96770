package persistence

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/restocost/backend/internal/domain/catalog"
	"github.com/restocost/backend/internal/domain/shared"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestGormNormalizationRuleRepository(t *testing.T) {
	ctx := context.Background()
	db := setupTestDB(t)
	repo := NewGormNormalizationRuleRepository(db)

	establishmentID := uuid.New()
	base := time.Date(2026, 3, 10, 8, 0, 0, 0, time.UTC)

	newRule := func(kind catalog.RuleKind, pattern, replacement string, priority int, createdAt time.Time) *catalog.NormalizationRule {
		rule, err := catalog.NewNormalizationRule(establishmentID, kind, pattern, replacement, priority)
		require.NoError(t, err)
		rule.CreatedAt = createdAt
		require.NoError(t, repo.Save(ctx, rule))
		return rule
	}

	stripRef := newRule(catalog.RuleKindRegex, `ref \d+`, "", 20, base)
	alias := newRule(catalog.RuleKindAlias, "tomate ronde", "tomate grappe", 10, base.Add(1*time.Hour))
	stripPercent := newRule(catalog.RuleKindRegex, `\d+%`, "", 10, base)

	t.Run("lists rules in ascending priority then creation order", func(t *testing.T) {
		rules, err := repo.FindAllForEstablishment(ctx, establishmentID)
		require.NoError(t, err)
		require.Len(t, rules, 3)
		assert.Equal(t, stripPercent.ID, rules[0].ID)
		assert.Equal(t, alias.ID, rules[1].ID)
		assert.Equal(t, stripRef.ID, rules[2].ID)
	})

	t.Run("rules of another establishment are not visible", func(t *testing.T) {
		rules, err := repo.FindAllForEstablishment(ctx, uuid.New())
		require.NoError(t, err)
		assert.Empty(t, rules)
	})

	t.Run("deleting a missing rule returns ErrNotFound", func(t *testing.T) {
		err := repo.Delete(ctx, uuid.New())
		assert.ErrorIs(t, err, shared.ErrNotFound)
	})

	t.Run("delete removes the rule", func(t *testing.T) {
		require.NoError(t, repo.Delete(ctx, stripRef.ID))

		rules, err := repo.FindAllForEstablishment(ctx, establishmentID)
		require.NoError(t, err)
		assert.Len(t, rules, 2)
	})
}
