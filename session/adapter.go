// Package session signs users in and out through an external auth provider and
// keeps the resulting session record in durable local storage.
package session

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/mail"

	"go.uber.org/zap"

	"goflare.io/storefront/models"
	"goflare.io/storefront/models/enum"
)

// StorageKey is the local storage key of the session record.
const StorageKey = "session"

const defaultDisplayName = "User"

type RegisterInput struct {
	Email    string
	Password string
	Name     string
	Surname  string
	Age      int64
}

func (in RegisterInput) Validate() error {
	if _, err := mail.ParseAddress(in.Email); err != nil {
		return models.Invalid("invalid email %q", in.Email)
	}
	if in.Password == "" {
		return models.Invalid("password is required")
	}
	if in.Name == "" {
		return models.Invalid("name is required")
	}
	if in.Age < 0 {
		return models.Invalid("age must not be negative")
	}
	return nil
}

// Adapter owns the current session. It is not safe for concurrent use.
type Adapter struct {
	provider AuthProvider
	profiles ProfileStore
	storage  LocalStorage
	logger   *zap.Logger

	current *models.Session
}

// NewAdapter restores the session persisted by a previous run, if any. A
// corrupt record is discarded and the adapter starts signed out.
func NewAdapter(ctx context.Context, provider AuthProvider, profiles ProfileStore, storage LocalStorage, logger *zap.Logger) *Adapter {
	a := &Adapter{
		provider: provider,
		profiles: profiles,
		storage:  storage,
		logger:   logger,
	}
	a.rehydrate(ctx)
	return a
}

func (a *Adapter) rehydrate(ctx context.Context) {
	raw, ok, err := a.storage.Get(ctx, StorageKey)
	if err != nil {
		a.logger.Warn("Failed to read stored session", zap.Error(err))
		return
	}
	if !ok {
		return
	}

	var s models.Session
	if err = json.Unmarshal([]byte(raw), &s); err != nil || s.UID == "" {
		a.logger.Warn("Discarding corrupt stored session", zap.Error(err))
		if err = a.storage.Remove(ctx, StorageKey); err != nil {
			a.logger.Warn("Failed to remove corrupt session", zap.Error(err))
		}
		return
	}

	a.current = models.NewSession(s.UID, s.Email, s.DisplayName, enum.ParseRole(string(s.Role)))
}

// Register creates the account, its profile with the user role, and signs in.
func (a *Adapter) Register(ctx context.Context, in RegisterInput) (*models.Session, error) {
	if err := in.Validate(); err != nil {
		return nil, err
	}

	identity, err := a.provider.Register(ctx, in.Email, in.Password, in.Name)
	if err != nil {
		return nil, authError("register", err)
	}

	email := identity.Email
	if email == "" {
		email = in.Email
	}

	if err = a.profiles.Create(ctx, &models.Profile{
		UID:     identity.UID,
		Name:    in.Name,
		Surname: in.Surname,
		Age:     in.Age,
		Email:   email,
		Role:    enum.RoleUser,
	}); err != nil {
		return nil, err
	}

	s := models.NewSession(identity.UID, email, in.Name, enum.RoleUser)
	if err = a.persist(ctx, s); err != nil {
		return nil, err
	}

	a.logger.Info("User registered", zap.String("uid", s.UID))
	return s, nil
}

// Login signs in and merges the stored profile into the session. A user
// without a profile document gets the user role.
func (a *Adapter) Login(ctx context.Context, email, password string) (*models.Session, error) {
	if email == "" || password == "" {
		return nil, models.Invalid("email and password are required")
	}

	identity, err := a.provider.Login(ctx, email, password)
	if err != nil {
		return nil, authError("login", err)
	}

	role := enum.RoleUser
	displayName := identity.DisplayName

	profile, err := a.profiles.Get(ctx, identity.UID)
	switch {
	case err == nil:
		role = profile.Role
		if profile.Name != "" {
			displayName = profile.Name
		}
	case errors.Is(err, models.ErrNotFound):
		a.logger.Warn("Signed in user has no profile", zap.String("uid", identity.UID))
	default:
		return nil, err
	}
	if displayName == "" {
		displayName = defaultDisplayName
	}

	if identity.Email != "" {
		email = identity.Email
	}

	s := models.NewSession(identity.UID, email, displayName, role)
	if err = a.persist(ctx, s); err != nil {
		return nil, err
	}
	return s, nil
}

// Logout signs out at the provider, then forgets the session. If the provider
// call fails nothing changes.
func (a *Adapter) Logout(ctx context.Context) error {
	if a.current == nil {
		return nil
	}

	if err := a.provider.Logout(ctx, a.current.UID); err != nil {
		return authError("logout", err)
	}

	a.current = nil
	if err := a.storage.Remove(ctx, StorageKey); err != nil {
		return fmt.Errorf("failed to remove stored session: %w", err)
	}
	return nil
}

func (a *Adapter) SendPasswordReset(ctx context.Context, email string) error {
	if _, err := mail.ParseAddress(email); err != nil {
		return models.Invalid("invalid email %q", email)
	}
	if err := a.provider.SendPasswordReset(ctx, email); err != nil {
		return authError("password reset", err)
	}
	return nil
}

// Current returns a copy of the session, or nil when signed out.
func (a *Adapter) Current() *models.Session {
	if a.current == nil {
		return nil
	}
	s := *a.current
	return &s
}

func (a *Adapter) IsAuthenticated() bool {
	return a.current != nil
}

// persist writes s to storage and only then makes it current.
func (a *Adapter) persist(ctx context.Context, s *models.Session) error {
	b, err := json.Marshal(s)
	if err != nil {
		return fmt.Errorf("failed to encode session: %w", err)
	}
	if err = a.storage.Set(ctx, StorageKey, string(b)); err != nil {
		return fmt.Errorf("failed to store session: %w", err)
	}
	a.current = s
	return nil
}
