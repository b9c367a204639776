package catalog

import (
	"context"
	"errors"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"goflare.io/storefront/docstore"
	"goflare.io/storefront/models"
)

type RepositoryMock struct{ mock.Mock }

func (m *RepositoryMock) Create(ctx context.Context, product *models.Product) (*models.Product, error) {
	args := m.Called(ctx, product)
	p, _ := args.Get(0).(*models.Product)
	return p, args.Error(1)
}

func (m *RepositoryMock) GetByID(ctx context.Context, id string) (*models.Product, error) {
	args := m.Called(ctx, id)
	p, _ := args.Get(0).(*models.Product)
	return p, args.Error(1)
}

func (m *RepositoryMock) Update(ctx context.Context, id string, update models.ProductUpdate) error {
	return m.Called(ctx, id, update).Error(0)
}

func (m *RepositoryMock) Delete(ctx context.Context, id string) error {
	return m.Called(ctx, id).Error(0)
}

func (m *RepositoryMock) List(ctx context.Context, after docstore.Cursor, limit int) ([]models.Product, docstore.Cursor, error) {
	args := m.Called(ctx, after, limit)
	items, _ := args.Get(0).([]models.Product)
	cur, _ := args.Get(1).(docstore.Cursor)
	return items, cur, args.Error(2)
}

func newCatalog(t *testing.T, names ...string) (*Controller, docstore.Gateway) {
	t.Helper()
	store := docstore.NewMemoryGateway()
	repo := NewRepository(store, zap.NewNop())
	for _, name := range names {
		_, err := repo.Create(context.Background(), &models.Product{Name: name, Price: decimal.RequireFromString("1.00")})
		require.NoError(t, err)
	}
	return NewController(repo, zap.NewNop()), store
}

func productNames(ps []models.Product) []string {
	out := make([]string, 0, len(ps))
	for _, p := range ps {
		out = append(out, p.Name)
	}
	return out
}

func TestLoadPage_ForwardThroughCatalog(t *testing.T) {
	ctx := context.Background()
	c, _ := newCatalog(t, "e", "a", "d", "b", "c")

	p1, err := c.LoadPage(ctx, 1, 2)
	require.NoError(t, err)
	assert.Equal(t, []string{"a", "b"}, productNames(p1.Items))
	assert.True(t, p1.HasMore)

	p2, err := c.LoadPage(ctx, 2, 2)
	require.NoError(t, err)
	assert.Equal(t, []string{"c", "d"}, productNames(p2.Items))
	assert.True(t, p2.HasMore)

	p3, err := c.LoadPage(ctx, 3, 2)
	require.NoError(t, err)
	assert.Equal(t, []string{"e"}, productNames(p3.Items))
	assert.False(t, p3.HasMore)

	assert.Equal(t, 3, c.CurrentPage())
	assert.Equal(t, 3, c.RecordedPages())
	assert.False(t, c.HasMore())
}

func TestLoadPage_MissingCursor(t *testing.T) {
	c, _ := newCatalog(t, "a", "b", "c")

	_, err := c.LoadPage(context.Background(), 2, 2)
	assert.ErrorIs(t, err, models.ErrMissingCursor)
	assert.ErrorIs(t, err, models.ErrValidation)

	assert.Zero(t, c.RecordedPages())
	assert.Zero(t, c.CurrentPage())
	assert.Empty(t, c.Products())
}

func TestLoadPage_ReloadIsIdempotent(t *testing.T) {
	ctx := context.Background()
	c, _ := newCatalog(t, "a", "b", "c", "d")

	first, err := c.LoadPage(ctx, 1, 2)
	require.NoError(t, err)
	again, err := c.LoadPage(ctx, 1, 2)
	require.NoError(t, err)

	assert.Equal(t, first.Items, again.Items)
	assert.Equal(t, 1, c.RecordedPages())

	p2, err := c.LoadPage(ctx, 2, 2)
	require.NoError(t, err)
	assert.Equal(t, []string{"c", "d"}, productNames(p2.Items))

	// going back does not disturb later cursors
	_, err = c.LoadPage(ctx, 1, 2)
	require.NoError(t, err)
	assert.Equal(t, 2, c.RecordedPages())
}

func TestLoadPage_EmptyPageRecordsNothing(t *testing.T) {
	ctx := context.Background()
	c, _ := newCatalog(t, "a", "b")

	_, err := c.LoadPage(ctx, 1, 2)
	require.NoError(t, err)

	p2, err := c.LoadPage(ctx, 2, 2)
	require.NoError(t, err)
	assert.Empty(t, p2.Items)
	assert.False(t, p2.HasMore)
	assert.Equal(t, 1, c.RecordedPages())

	_, err = c.LoadPage(ctx, 3, 2)
	assert.ErrorIs(t, err, models.ErrMissingCursor)
}

func TestLoadPage_InvalidArguments(t *testing.T) {
	c, _ := newCatalog(t)

	_, err := c.LoadPage(context.Background(), 0, 2)
	assert.ErrorIs(t, err, models.ErrValidation)

	_, err = c.LoadPage(context.Background(), 1, 0)
	assert.ErrorIs(t, err, models.ErrValidation)
}

func TestLoadPage_RemoteFailureLeavesStateUnchanged(t *testing.T) {
	ctx := context.Background()
	repo := new(RepositoryMock)
	c := NewController(repo, zap.NewNop())

	page1 := []models.Product{{ID: "1", Name: "a"}, {ID: "2", Name: "b"}}
	cur1 := docstore.NewCursor("b", "2")
	repo.On("List", ctx, docstore.Cursor(""), 2).Return(page1, cur1, nil).Once()
	repo.On("List", ctx, cur1, 2).Return(nil, docstore.Cursor(""), errors.Join(models.ErrRemoteQuery, errors.New("unavailable"))).Once()

	_, err := c.LoadPage(ctx, 1, 2)
	require.NoError(t, err)

	_, err = c.LoadPage(ctx, 2, 2)
	assert.ErrorIs(t, err, models.ErrRemoteQuery)

	assert.Equal(t, 1, c.CurrentPage())
	assert.Equal(t, 1, c.RecordedPages())
	assert.Equal(t, page1, c.Products())
	assert.True(t, c.HasMore())
	repo.AssertExpectations(t)
}

func TestProductMutations(t *testing.T) {
	ctx := context.Background()
	c, _ := newCatalog(t, "a", "b")
	_, err := c.LoadPage(ctx, 1, 10)
	require.NoError(t, err)

	created, err := c.CreateProduct(ctx, models.Product{Name: "c", Category: "home", Price: decimal.RequireFromString("4.50")})
	require.NoError(t, err)
	assert.NotEmpty(t, created.ID)
	assert.Equal(t, []string{"a", "b", "c"}, productNames(c.Products()))

	name := "c2"
	price := decimal.RequireFromString("5.25")
	require.NoError(t, c.UpdateProduct(ctx, created.ID, models.ProductUpdate{Name: &name, Price: &price}))
	assert.Equal(t, []string{"a", "b", "c2"}, productNames(c.Products()))

	stored, err := c.GetProduct(ctx, created.ID)
	require.NoError(t, err)
	assert.Equal(t, "c2", stored.Name)
	assert.Equal(t, "home", stored.Category)
	assert.True(t, price.Equal(stored.Price))

	require.NoError(t, c.DeleteProduct(ctx, created.ID))
	assert.Equal(t, []string{"a", "b"}, productNames(c.Products()))

	_, err = c.GetProduct(ctx, created.ID)
	assert.ErrorIs(t, err, models.ErrNotFound)
}

func TestProductMutations_Errors(t *testing.T) {
	ctx := context.Background()
	c, _ := newCatalog(t)

	_, err := c.CreateProduct(ctx, models.Product{Price: decimal.NewFromInt(1)})
	assert.ErrorIs(t, err, models.ErrValidation)

	empty := ""
	assert.ErrorIs(t, c.UpdateProduct(ctx, "x", models.ProductUpdate{Name: &empty}), models.ErrValidation)
	assert.ErrorIs(t, c.UpdateProduct(ctx, "x", models.ProductUpdate{}), models.ErrValidation)

	name := "n"
	assert.ErrorIs(t, c.UpdateProduct(ctx, "missing", models.ProductUpdate{Name: &name}), models.ErrNotFound)
	assert.ErrorIs(t, c.DeleteProduct(ctx, "missing"), models.ErrNotFound)
}
