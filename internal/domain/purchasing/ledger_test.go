package purchasing

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/restocost/backend/internal/domain/catalog"
	"github.com/restocost/backend/internal/domain/shared"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

// MockArticleRepository is a mock implementation of ArticleRepository
type MockArticleRepository struct {
	mock.Mock
}

func (m *MockArticleRepository) FindByID(ctx context.Context, id uuid.UUID) (*Article, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*Article), args.Error(1)
}

func (m *MockArticleRepository) FindByInvoice(ctx context.Context, invoiceID uuid.UUID) ([]Article, error) {
	args := m.Called(ctx, invoiceID)
	return args.Get(0).([]Article), args.Error(1)
}

func (m *MockArticleRepository) FindLatestForMasterArticle(ctx context.Context, establishmentID, masterArticleID uuid.UUID) (*Article, error) {
	args := m.Called(ctx, establishmentID, masterArticleID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*Article), args.Error(1)
}

func (m *MockArticleRepository) MaxSeq(ctx context.Context, establishmentID uuid.UUID) (int64, error) {
	args := m.Called(ctx, establishmentID)
	return args.Get(0).(int64), args.Error(1)
}

func (m *MockArticleRepository) Save(ctx context.Context, article *Article) error {
	args := m.Called(ctx, article)
	return args.Error(0)
}

func (m *MockArticleRepository) Delete(ctx context.Context, id uuid.UUID) error {
	args := m.Called(ctx, id)
	return args.Error(0)
}

func (m *MockArticleRepository) DeleteByInvoice(ctx context.Context, invoiceID uuid.UUID) error {
	args := m.Called(ctx, invoiceID)
	return args.Error(0)
}

// MockMasterArticleRepository is a minimal mock of catalog.MasterArticleRepository
type MockMasterArticleRepository struct {
	mock.Mock
}

func (m *MockMasterArticleRepository) FindByID(ctx context.Context, id uuid.UUID) (*catalog.MasterArticle, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*catalog.MasterArticle), args.Error(1)
}

func (m *MockMasterArticleRepository) FindByIDForEstablishment(ctx context.Context, establishmentID, id uuid.UUID) (*catalog.MasterArticle, error) {
	args := m.Called(ctx, establishmentID, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*catalog.MasterArticle), args.Error(1)
}

func (m *MockMasterArticleRepository) FindByNormalizedName(ctx context.Context, establishmentID, supplierID uuid.UUID, normalizedName string) (*catalog.MasterArticle, error) {
	args := m.Called(ctx, establishmentID, supplierID, normalizedName)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*catalog.MasterArticle), args.Error(1)
}

func (m *MockMasterArticleRepository) FindBySupplier(ctx context.Context, establishmentID, supplierID uuid.UUID) ([]catalog.MasterArticle, error) {
	args := m.Called(ctx, establishmentID, supplierID)
	return args.Get(0).([]catalog.MasterArticle), args.Error(1)
}

func (m *MockMasterArticleRepository) FindByIDs(ctx context.Context, establishmentID uuid.UUID, ids []uuid.UUID) ([]catalog.MasterArticle, error) {
	args := m.Called(ctx, establishmentID, ids)
	return args.Get(0).([]catalog.MasterArticle), args.Error(1)
}

func (m *MockMasterArticleRepository) Save(ctx context.Context, article *catalog.MasterArticle) error {
	args := m.Called(ctx, article)
	return args.Error(0)
}

func newTestMaster(t *testing.T, establishmentID uuid.UUID) *catalog.MasterArticle {
	t.Helper()
	master, err := catalog.NewMasterArticle(establishmentID, uuid.New(), "Beurre doux", "beurre doux", "kg")
	require.NoError(t, err)
	return master
}

func newTestArticle(t *testing.T, invoice *Invoice, masterID uuid.UUID, price float64, seq int64) *Article {
	t.Helper()
	article, err := NewArticle(invoice, masterID, "Beurre doux", decimal.NewFromInt(1), "kg", decimal.NewFromFloat(price))
	require.NoError(t, err)
	article.Seq = seq
	return article
}

func newTestInvoice(t *testing.T, establishmentID uuid.UUID, date time.Time) *Invoice {
	t.Helper()
	invoice, err := NewInvoice(establishmentID, uuid.New(), "Metro", "F-001", date, decimal.Zero, decimal.Zero)
	require.NoError(t, err)
	return invoice
}

func TestLedger_AppendArticle(t *testing.T) {
	ctx := context.Background()
	establishmentID := uuid.New()
	date := time.Date(2026, 3, 10, 0, 0, 0, 0, time.UTC)

	t.Run("first observation sets current price", func(t *testing.T) {
		articles := new(MockArticleRepository)
		masters := new(MockMasterArticleRepository)
		master := newTestMaster(t, establishmentID)
		invoice := newTestInvoice(t, establishmentID, date)
		article := newTestArticle(t, invoice, master.ID, 7.5, 0)

		articles.On("MaxSeq", ctx, establishmentID).Return(int64(0), nil)
		articles.On("Save", ctx, article).Return(nil)
		articles.On("FindLatestForMasterArticle", ctx, establishmentID, master.ID).Return(article, nil)
		masters.On("Save", ctx, master).Return(nil)

		change, err := NewLedger(masters, articles, nil).AppendArticle(ctx, master, article)

		require.NoError(t, err)
		require.NotNil(t, change)
		assert.Nil(t, change.OldPrice)
		assert.True(t, change.NewPrice.Equal(decimal.NewFromFloat(7.5)))
		assert.Equal(t, int64(1), article.Seq)
		assert.True(t, master.CurrentUnitPrice.Equal(decimal.NewFromFloat(7.5)))
	})

	t.Run("backdated observation is a no-op", func(t *testing.T) {
		articles := new(MockArticleRepository)
		masters := new(MockMasterArticleRepository)
		master := newTestMaster(t, establishmentID)
		master.SetCurrentPrice(decimal.NewFromFloat(8.0), "kg")

		current := newTestArticle(t, newTestInvoice(t, establishmentID, date), master.ID, 8.0, 5)
		backdated := newTestArticle(t, newTestInvoice(t, establishmentID, date.AddDate(0, -1, 0)), master.ID, 6.0, 0)

		articles.On("MaxSeq", ctx, establishmentID).Return(int64(5), nil)
		articles.On("Save", ctx, backdated).Return(nil)
		articles.On("FindLatestForMasterArticle", ctx, establishmentID, master.ID).Return(current, nil)

		change, err := NewLedger(masters, articles, nil).AppendArticle(ctx, master, backdated)

		require.NoError(t, err)
		assert.Nil(t, change)
		assert.True(t, master.CurrentUnitPrice.Equal(decimal.NewFromFloat(8.0)))
		masters.AssertNotCalled(t, "Save", mock.Anything, mock.Anything)
	})

	t.Run("newer observation returns old and new price", func(t *testing.T) {
		articles := new(MockArticleRepository)
		masters := new(MockMasterArticleRepository)
		master := newTestMaster(t, establishmentID)
		master.SetCurrentPrice(decimal.NewFromFloat(7.5), "kg")

		newer := newTestArticle(t, newTestInvoice(t, establishmentID, date.AddDate(0, 0, 5)), master.ID, 9.0, 6)

		articles.On("MaxSeq", ctx, establishmentID).Return(int64(5), nil)
		articles.On("Save", ctx, newer).Return(nil)
		articles.On("FindLatestForMasterArticle", ctx, establishmentID, master.ID).Return(newer, nil)
		masters.On("Save", ctx, master).Return(nil)

		change, err := NewLedger(masters, articles, nil).AppendArticle(ctx, master, newer)

		require.NoError(t, err)
		require.NotNil(t, change)
		assert.True(t, change.OldPrice.Equal(decimal.NewFromFloat(7.5)))
		assert.True(t, change.NewPrice.Equal(decimal.NewFromFloat(9.0)))
	})
}

func TestLedger_RemoveArticle(t *testing.T) {
	ctx := context.Background()
	establishmentID := uuid.New()
	date := time.Date(2026, 3, 10, 0, 0, 0, 0, time.UTC)

	t.Run("falls back to next most recent article", func(t *testing.T) {
		articles := new(MockArticleRepository)
		masters := new(MockMasterArticleRepository)
		master := newTestMaster(t, establishmentID)
		master.SetCurrentPrice(decimal.NewFromFloat(9.0), "kg")

		removed := newTestArticle(t, newTestInvoice(t, establishmentID, date), master.ID, 9.0, 2)
		remaining := newTestArticle(t, newTestInvoice(t, establishmentID, date.AddDate(0, 0, -3)), master.ID, 7.5, 1)

		articles.On("Delete", ctx, removed.ID).Return(nil)
		articles.On("FindLatestForMasterArticle", ctx, establishmentID, master.ID).Return(remaining, nil)
		masters.On("Save", ctx, master).Return(nil)

		change, err := NewLedger(masters, articles, nil).RemoveArticle(ctx, master, removed)

		require.NoError(t, err)
		require.NotNil(t, change)
		assert.True(t, change.NewPrice.Equal(decimal.NewFromFloat(7.5)))
		assert.True(t, master.CurrentUnitPrice.Equal(decimal.NewFromFloat(7.5)))
	})

	t.Run("clears price when no article remains", func(t *testing.T) {
		articles := new(MockArticleRepository)
		masters := new(MockMasterArticleRepository)
		master := newTestMaster(t, establishmentID)
		master.SetCurrentPrice(decimal.NewFromFloat(9.0), "kg")

		removed := newTestArticle(t, newTestInvoice(t, establishmentID, date), master.ID, 9.0, 1)

		articles.On("Delete", ctx, removed.ID).Return(nil)
		articles.On("FindLatestForMasterArticle", ctx, establishmentID, master.ID).Return(nil, shared.ErrNotFound)
		masters.On("Save", ctx, master).Return(nil)

		change, err := NewLedger(masters, articles, nil).RemoveArticle(ctx, master, removed)

		require.NoError(t, err)
		require.NotNil(t, change)
		assert.True(t, change.OldPrice.Equal(decimal.NewFromFloat(9.0)))
		assert.Nil(t, change.NewPrice)
		assert.False(t, master.HasCurrentPrice())
	})
}

func TestArticle_Supersedes(t *testing.T) {
	establishmentID := uuid.New()
	older := newTestInvoice(t, establishmentID, time.Date(2026, 3, 1, 0, 0, 0, 0, time.UTC))
	newer := newTestInvoice(t, establishmentID, time.Date(2026, 3, 2, 0, 0, 0, 0, time.UTC))
	masterID := uuid.New()

	a := newTestArticle(t, older, masterID, 5, 1)
	b := newTestArticle(t, newer, masterID, 5, 2)
	assert.True(t, b.Supersedes(a))
	assert.False(t, a.Supersedes(b))

	// Same date: insertion order decides.
	c := newTestArticle(t, newer, masterID, 5, 3)
	assert.True(t, c.Supersedes(b))
	assert.False(t, b.Supersedes(c))

	assert.True(t, a.Supersedes(nil))
}

func TestImportJob_Lifecycle(t *testing.T) {
	job := NewImportJob(uuid.New(), "/invoices/2026/03/f-001.pdf", "{}")
	assert.Equal(t, ImportJobStatusPending, job.Status)

	require.NoError(t, job.Start())
	assert.Equal(t, ImportJobStatusRunning, job.Status)
	assert.Error(t, job.Start())

	require.NoError(t, job.Complete())
	assert.True(t, job.IsTerminal())
	assert.Error(t, job.Fail("too late"))
}

func TestImportJob_FailOCR(t *testing.T) {
	job := NewImportJob(uuid.New(), "/invoices/f.pdf", "not json")
	require.NoError(t, job.Start())
	require.NoError(t, job.FailOCR("payload is not valid JSON"))
	assert.Equal(t, ImportJobStatusOCRFailed, job.Status)
	assert.Equal(t, "payload is not valid JSON", job.ErrorMessage)
}

func TestNewInvoice_RequiresDate(t *testing.T) {
	_, err := NewInvoice(uuid.New(), uuid.New(), "Metro", "F-001", time.Time{}, decimal.Zero, decimal.Zero)
	require.Error(t, err)
	assert.Equal(t, shared.CodeValidation, shared.ErrorCode(err))
}
