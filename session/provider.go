package session

import (
	"context"
	"errors"
	"fmt"

	"goflare.io/storefront/models"
)

// Identity is what the auth provider knows about a signed-in account.
type Identity struct {
	UID          string
	Email        string
	DisplayName  string
	IDToken      string
	RefreshToken string
}

// AuthProvider is the external authentication service.
type AuthProvider interface {
	Register(ctx context.Context, email, password, displayName string) (*Identity, error)
	Login(ctx context.Context, email, password string) (*Identity, error)
	// Logout ends every session of uid at the provider.
	Logout(ctx context.Context, uid string) error
	SendPasswordReset(ctx context.Context, email string) error
}

func authError(op string, err error) error {
	if errors.Is(err, models.ErrAuth) || errors.Is(err, models.ErrValidation) {
		return fmt.Errorf("%s: %w", op, err)
	}
	return fmt.Errorf("%s: %w: %w", op, models.ErrAuth, err)
}
