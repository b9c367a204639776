// Package event is the ledger of payment events the storefront has handled.
package event

import (
	"context"
	"errors"
	"fmt"

	"go.uber.org/zap"

	"goflare.io/storefront/docstore"
	"goflare.io/storefront/models"
)

const eventsCollection = "payment_events"

var _ Repository = (*repository)(nil)

type Repository interface {
	// MarkAsProcessed claims the event. It reports false, without error, when
	// the event id was already claimed, so redelivered events are skipped.
	MarkAsProcessed(ctx context.Context, event *models.Event) (bool, error)
	GetByID(ctx context.Context, id string) (*models.Event, error)
	// Release drops a claim so a failed event can be handled again on redelivery.
	Release(ctx context.Context, id string) error
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

func (r *repository) MarkAsProcessed(ctx context.Context, event *models.Event) (bool, error) {
	if event.ID == "" {
		return false, models.Invalid("event id is required")
	}

	_, err := r.store.Create(ctx, eventsCollection, docstore.Document{ID: event.ID, Data: event.ToDocument()})
	if errors.Is(err, models.ErrAlreadyExists) {
		r.logger.Info("Skipping duplicate event", zap.String("event_id", event.ID), zap.String("event_type", string(event.Type)))
		return false, nil
	}
	if err != nil {
		r.logger.Error("Failed to record event", zap.String("event_id", event.ID), zap.Error(err))
		return false, fmt.Errorf("failed to record event: %w", err)
	}
	return true, nil
}

func (r *repository) GetByID(ctx context.Context, id string) (*models.Event, error) {
	doc, err := r.store.Get(ctx, eventsCollection, id)
	if err != nil {
		return nil, fmt.Errorf("failed to get event: %w", err)
	}
	return new(models.Event).ConvertDocument(doc.ID, doc.Data), nil
}

func (r *repository) Release(ctx context.Context, id string) error {
	err := r.store.Delete(ctx, eventsCollection, id)
	if err != nil && !errors.Is(err, models.ErrNotFound) {
		r.logger.Error("Failed to release event", zap.String("event_id", id), zap.Error(err))
		return fmt.Errorf("failed to release event: %w", err)
	}
	return nil
}
