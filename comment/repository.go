package comment

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"goflare.io/storefront/docstore"
	"goflare.io/storefront/models"
)

const commentsCollection = "comments"

var _ Repository = (*repository)(nil)

type Repository interface {
	Create(ctx context.Context, comment *models.Comment) (*models.Comment, error)
	GetByID(ctx context.Context, id string) (*models.Comment, error)
	UpdateContent(ctx context.Context, id, content string) error
	Delete(ctx context.Context, id string) error
	// ListByProduct returns the newest comments of a product first.
	ListByProduct(ctx context.Context, productID string, after docstore.Cursor, limit int) ([]models.Comment, docstore.Cursor, error)
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

// Create lets the store assign the id, so concurrent writers never collide.
func (r *repository) Create(ctx context.Context, comment *models.Comment) (*models.Comment, error) {
	id, err := r.store.Create(ctx, commentsCollection, docstore.Document{Data: comment.ToDocument()})
	if err != nil {
		r.logger.Error("Failed to create comment", zap.String("product_id", comment.ProductID), zap.Error(err))
		return nil, fmt.Errorf("failed to create comment: %w", err)
	}

	created := *comment
	created.ID = id
	return &created, nil
}

func (r *repository) GetByID(ctx context.Context, id string) (*models.Comment, error) {
	doc, err := r.store.Get(ctx, commentsCollection, id)
	if err != nil {
		return nil, fmt.Errorf("failed to get comment: %w", err)
	}
	return new(models.Comment).ConvertDocument(doc.ID, doc.Data), nil
}

func (r *repository) UpdateContent(ctx context.Context, id, content string) error {
	if err := r.store.Update(ctx, commentsCollection, id, map[string]any{"content": content}); err != nil {
		r.logger.Error("Failed to update comment", zap.String("id", id), zap.Error(err))
		return fmt.Errorf("failed to update comment: %w", err)
	}
	return nil
}

func (r *repository) Delete(ctx context.Context, id string) error {
	if err := r.store.Delete(ctx, commentsCollection, id); err != nil {
		r.logger.Error("Failed to delete comment", zap.String("id", id), zap.Error(err))
		return fmt.Errorf("failed to delete comment: %w", err)
	}
	return nil
}

func (r *repository) ListByProduct(ctx context.Context, productID string, after docstore.Cursor, limit int) ([]models.Comment, docstore.Cursor, error) {
	page, err := r.store.Query(ctx, docstore.Query{
		Collection: commentsCollection,
		Filters:    []docstore.Filter{{Field: "productId", Value: productID}},
		OrderBy:    "createdAt",
		Direction:  docstore.Desc,
		Limit:      limit,
		After:      after,
	})
	if err != nil {
		r.logger.Error("Failed to list comments", zap.String("product_id", productID), zap.Error(err))
		return nil, "", fmt.Errorf("failed to list comments: %w", err)
	}

	comments := make([]models.Comment, 0, len(page.Docs))
	for _, doc := range page.Docs {
		comments = append(comments, *new(models.Comment).ConvertDocument(doc.ID, doc.Data))
	}
	return comments, page.LastCursor, nil
}
