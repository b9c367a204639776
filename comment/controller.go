// Package comment manages the comment threads attached to products.
package comment

import (
	"context"
	"slices"
	"strings"
	"time"

	"go.uber.org/zap"

	"goflare.io/storefront/models"
	"goflare.io/storefront/paging"
)

// Page is one loaded page of a product's comment thread.
type Page struct {
	ProductID string
	Items     []models.Comment
	Page      int
	HasMore   bool
}

// thread is the paging state of one product.
type thread struct {
	cursors paging.Cursors
	items   []models.Comment
	page    int
	hasMore bool
}

// Controller 管理商品留言
//
// Every product has its own cursor history. Controller is not safe for
// concurrent use.
type Controller struct {
	repo    Repository
	policy  Policy
	logger  *zap.Logger
	now     func() time.Time
	threads map[string]*thread
}

type Option func(*Controller)

// WithPolicy replaces the default AuthorOrAdmin policy.
func WithPolicy(p Policy) Option {
	return func(c *Controller) {
		c.policy = p
	}
}

func WithClock(now func() time.Time) Option {
	return func(c *Controller) {
		c.now = now
	}
}

func NewController(repo Repository, logger *zap.Logger, opts ...Option) *Controller {
	c := &Controller{
		repo:    repo,
		policy:  AuthorOrAdmin{},
		logger:  logger,
		now:     time.Now,
		threads: make(map[string]*thread),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

func (c *Controller) thread(productID string) *thread {
	t, ok := c.threads[productID]
	if !ok {
		t = &thread{hasMore: true}
		c.threads[productID] = t
	}
	return t
}

// Create posts a new comment on productID as author.
func (c *Controller) Create(ctx context.Context, author *models.Session, productID, content string) (*models.Comment, error) {
	if author == nil {
		return nil, models.ErrAuth
	}
	if productID == "" {
		return nil, models.Invalid("product id is required")
	}
	content = strings.TrimSpace(content)
	if content == "" {
		return nil, models.Invalid("comment content is required")
	}

	created, err := c.repo.Create(ctx, &models.Comment{
		ProductID:  productID,
		AuthorID:   author.UID,
		AuthorName: author.DisplayName,
		Content:    content,
		CreatedAt:  c.now().UTC().Truncate(time.Millisecond),
	})
	if err != nil {
		return nil, err
	}

	// newest first, so it belongs at the top of page 1
	if t, ok := c.threads[productID]; ok && t.page == 1 {
		t.items = slices.Insert(t.items, 0, *created)
	}
	return created, nil
}

// Edit replaces the content of comment id.
func (c *Controller) Edit(ctx context.Context, actor *models.Session, id, content string) (*models.Comment, error) {
	content = strings.TrimSpace(content)
	if content == "" {
		return nil, models.Invalid("comment content is required")
	}

	existing, err := c.repo.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if err = c.policy.Allow(actor, existing); err != nil {
		return nil, err
	}

	if err = c.repo.UpdateContent(ctx, id, content); err != nil {
		return nil, err
	}

	existing.Content = content
	c.forLoaded(existing.ProductID, id, func(t *thread, i int) {
		t.items[i].Content = content
	})
	return existing, nil
}

func (c *Controller) Delete(ctx context.Context, actor *models.Session, id string) error {
	existing, err := c.repo.GetByID(ctx, id)
	if err != nil {
		return err
	}
	if err = c.policy.Allow(actor, existing); err != nil {
		return err
	}

	if err = c.repo.Delete(ctx, id); err != nil {
		return err
	}

	c.forLoaded(existing.ProductID, id, func(t *thread, i int) {
		t.items = slices.Delete(t.items, i, i+1)
	})
	return nil
}

// LoadPage loads page of productID's thread, newest first. Paging follows the
// catalog rules: page n > 1 needs page n-1 of the same product to be loaded.
func (c *Controller) LoadPage(ctx context.Context, productID string, page, size int) (Page, error) {
	if productID == "" {
		return Page{}, models.Invalid("product id is required")
	}
	if size < 1 {
		return Page{}, models.Invalid("page size must be at least 1, got %d", size)
	}

	t := c.thread(productID)
	after, err := t.cursors.After(page)
	if err != nil {
		return Page{}, err
	}

	items, last, err := c.repo.ListByProduct(ctx, productID, after, size)
	if err != nil {
		c.logger.Warn("Failed to load comments", zap.String("product_id", productID), zap.Int("page", page), zap.Error(err))
		return Page{}, err
	}

	t.cursors.Record(page, last)
	t.items = items
	t.page = page
	t.hasMore = len(items) == size

	return Page{ProductID: productID, Items: slices.Clone(items), Page: page, HasMore: t.hasMore}, nil
}

func (c *Controller) Comments(productID string) []models.Comment {
	if t, ok := c.threads[productID]; ok {
		return slices.Clone(t.items)
	}
	return nil
}

func (c *Controller) CurrentPage(productID string) int {
	if t, ok := c.threads[productID]; ok {
		return t.page
	}
	return 0
}

func (c *Controller) HasMore(productID string) bool {
	if t, ok := c.threads[productID]; ok {
		return t.hasMore
	}
	return true
}

func (c *Controller) RecordedPages(productID string) int {
	if t, ok := c.threads[productID]; ok {
		return t.cursors.Len()
	}
	return 0
}

func (c *Controller) forLoaded(productID, id string, fn func(t *thread, i int)) {
	t, ok := c.threads[productID]
	if !ok {
		return
	}
	i := slices.IndexFunc(t.items, func(cm models.Comment) bool {
		return cm.ID == id
	})
	if i >= 0 {
		fn(t, i)
	}
}
