package session

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"goflare.io/storefront/docstore"
	"goflare.io/storefront/models"
)

const usersCollection = "users"

var _ ProfileStore = (*profileStore)(nil)

// ProfileStore reads and writes the users/{uid} profile documents.
type ProfileStore interface {
	Create(ctx context.Context, profile *models.Profile) error
	// Get returns models.ErrNotFound when uid has no profile.
	Get(ctx context.Context, uid string) (*models.Profile, error)
}

type profileStore struct {
	store  docstore.Gateway
	logger *zap.Logger
}

func NewProfileStore(store docstore.Gateway, logger *zap.Logger) ProfileStore {
	return &profileStore{
		store:  store,
		logger: logger,
	}
}

func (s *profileStore) Create(ctx context.Context, profile *models.Profile) error {
	if profile.UID == "" {
		return models.Invalid("profile uid is required")
	}
	if _, err := s.store.Create(ctx, usersCollection, docstore.Document{ID: profile.UID, Data: profile.ToDocument()}); err != nil {
		s.logger.Error("Failed to create profile", zap.String("uid", profile.UID), zap.Error(err))
		return fmt.Errorf("failed to create profile: %w", err)
	}
	return nil
}

func (s *profileStore) Get(ctx context.Context, uid string) (*models.Profile, error) {
	doc, err := s.store.Get(ctx, usersCollection, uid)
	if err != nil {
		return nil, fmt.Errorf("failed to get profile: %w", err)
	}
	return new(models.Profile).ConvertDocument(doc.ID, doc.Data), nil
}
