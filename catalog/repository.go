package catalog

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"goflare.io/storefront/docstore"
	"goflare.io/storefront/models"
)

const productsCollection = "products"

var _ Repository = (*repository)(nil)

type Repository interface {
	Create(ctx context.Context, product *models.Product) (*models.Product, error)
	GetByID(ctx context.Context, id string) (*models.Product, error)
	Update(ctx context.Context, id string, update models.ProductUpdate) error
	Delete(ctx context.Context, id string) error
	// List returns up to limit products ordered by name, resuming after the cursor.
	List(ctx context.Context, after docstore.Cursor, limit int) ([]models.Product, docstore.Cursor, error)
}

type repository struct {
	store  docstore.Gateway
	logger *zap.Logger
}

func NewRepository(store docstore.Gateway, logger *zap.Logger) Repository {
	return &repository{
		store:  store,
		logger: logger,
	}
}

func (r *repository) Create(ctx context.Context, product *models.Product) (*models.Product, error) {
	id, err := r.store.Create(ctx, productsCollection, docstore.Document{ID: product.ID, Data: product.ToDocument()})
	if err != nil {
		r.logger.Error("Failed to create product", zap.String("name", product.Name), zap.Error(err))
		return nil, fmt.Errorf("failed to create product: %w", err)
	}

	created := *product
	created.ID = id
	return &created, nil
}

func (r *repository) GetByID(ctx context.Context, id string) (*models.Product, error) {
	doc, err := r.store.Get(ctx, productsCollection, id)
	if err != nil {
		return nil, fmt.Errorf("failed to get product: %w", err)
	}

	product, err := new(models.Product).ConvertDocument(doc.ID, doc.Data)
	if err != nil {
		r.logger.Error("Failed to convert product", zap.String("id", id), zap.Error(err))
		return nil, fmt.Errorf("%w: %v", models.ErrRemoteQuery, err)
	}
	return product, nil
}

func (r *repository) Update(ctx context.Context, id string, update models.ProductUpdate) error {
	if err := r.store.Update(ctx, productsCollection, id, update.Fields()); err != nil {
		r.logger.Error("Failed to update product", zap.String("id", id), zap.Error(err))
		return fmt.Errorf("failed to update product: %w", err)
	}
	return nil
}

func (r *repository) Delete(ctx context.Context, id string) error {
	if err := r.store.Delete(ctx, productsCollection, id); err != nil {
		r.logger.Error("Failed to delete product", zap.String("id", id), zap.Error(err))
		return fmt.Errorf("failed to delete product: %w", err)
	}
	return nil
}

func (r *repository) List(ctx context.Context, after docstore.Cursor, limit int) ([]models.Product, docstore.Cursor, error) {
	page, err := r.store.Query(ctx, docstore.Query{
		Collection: productsCollection,
		OrderBy:    "name",
		Direction:  docstore.Asc,
		Limit:      limit,
		After:      after,
	})
	if err != nil {
		r.logger.Error("Failed to list products", zap.Error(err))
		return nil, "", fmt.Errorf("failed to list products: %w", err)
	}

	products := make([]models.Product, 0, len(page.Docs))
	for _, doc := range page.Docs {
		p, err := new(models.Product).ConvertDocument(doc.ID, doc.Data)
		if err != nil {
			r.logger.Error("Failed to convert product", zap.String("id", doc.ID), zap.Error(err))
			return nil, "", fmt.Errorf("%w: %v", models.ErrRemoteQuery, err)
		}
		products = append(products, *p)
	}

	return products, page.LastCursor, nil
}
