// Package catalog pages through the product catalog and keeps the loaded page
// in sync with product mutations.
package catalog

import (
	"context"
	"slices"

	"go.uber.org/zap"

	"goflare.io/storefront/models"
	"goflare.io/storefront/paging"
)

// Page is the result of loading one catalog page.
type Page struct {
	Items   []models.Product
	Page    int
	HasMore bool
}

// Controller holds the currently loaded catalog page and the cursor history
// needed to move forward through it. It is not safe for concurrent use.
type Controller struct {
	repo    Repository
	logger  *zap.Logger
	cursors paging.Cursors

	products    []models.Product
	currentPage int
	hasMore     bool
}

func NewController(repo Repository, logger *zap.Logger) *Controller {
	return &Controller{
		repo:    repo,
		logger:  logger,
		hasMore: true,
	}
}

// LoadPage fetches page (1-based) of size products ordered by name. Page n > 1
// needs page n-1 to have been loaded before, otherwise models.ErrMissingCursor
// is returned. On error the controller state is left as it was.
func (c *Controller) LoadPage(ctx context.Context, page, size int) (Page, error) {
	if size < 1 {
		return Page{}, models.Invalid("page size must be at least 1, got %d", size)
	}
	after, err := c.cursors.After(page)
	if err != nil {
		return Page{}, err
	}

	items, last, err := c.repo.List(ctx, after, size)
	if err != nil {
		c.logger.Warn("Failed to load catalog page", zap.Int("page", page), zap.Error(err))
		return Page{}, err
	}

	c.cursors.Record(page, last)
	c.products = items
	c.currentPage = page
	c.hasMore = len(items) == size

	return Page{Items: slices.Clone(items), Page: page, HasMore: c.hasMore}, nil
}

func (c *Controller) Products() []models.Product {
	return slices.Clone(c.products)
}

func (c *Controller) CurrentPage() int {
	return c.currentPage
}

func (c *Controller) HasMore() bool {
	return c.hasMore
}

// RecordedPages is the number of pages whose cursor is known.
func (c *Controller) RecordedPages() int {
	return c.cursors.Len()
}

// CreateProduct stores a new product and appends it to the loaded page.
func (c *Controller) CreateProduct(ctx context.Context, product models.Product) (*models.Product, error) {
	if err := product.Validate(); err != nil {
		return nil, err
	}

	created, err := c.repo.Create(ctx, &product)
	if err != nil {
		return nil, err
	}

	c.products = append(c.products, *created)
	return created, nil
}

func (c *Controller) GetProduct(ctx context.Context, id string) (*models.Product, error) {
	return c.repo.GetByID(ctx, id)
}

// UpdateProduct applies a partial update and merges it into the loaded page.
func (c *Controller) UpdateProduct(ctx context.Context, id string, update models.ProductUpdate) error {
	if err := update.Validate(); err != nil {
		return err
	}

	if err := c.repo.Update(ctx, id, update); err != nil {
		return err
	}

	if i := c.indexOf(id); i >= 0 {
		update.Apply(&c.products[i])
	}
	return nil
}

// DeleteProduct removes the product from the store and from the loaded page.
func (c *Controller) DeleteProduct(ctx context.Context, id string) error {
	if err := c.repo.Delete(ctx, id); err != nil {
		return err
	}

	if i := c.indexOf(id); i >= 0 {
		c.products = slices.Delete(c.products, i, i+1)
	}
	return nil
}

func (c *Controller) indexOf(id string) int {
	return slices.IndexFunc(c.products, func(p models.Product) bool {
		return p.ID == id
	})
}
