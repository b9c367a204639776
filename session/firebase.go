package session

import (
	"context"
	"fmt"

	"firebase.google.com/go/v4/auth"
	"go.uber.org/zap"
	"google.golang.org/api/identitytoolkit/v3"
	"google.golang.org/api/option"
)

const passwordResetRequest = "PASSWORD_RESET"

var _ AuthProvider = (*FirebaseProvider)(nil)

// FirebaseProvider signs users in with email and password through the Identity
// Toolkit REST API and revokes their tokens through the Firebase Admin SDK.
type FirebaseProvider struct {
	toolkit *identitytoolkit.RelyingpartyService
	admin   *auth.Client
	logger  *zap.Logger
}

// NewFirebaseProvider builds a provider for the web API key of a Firebase
// project. admin may be nil, in which case Logout only ends the local session.
func NewFirebaseProvider(ctx context.Context, apiKey string, admin *auth.Client, logger *zap.Logger) (*FirebaseProvider, error) {
	svc, err := identitytoolkit.NewService(ctx, option.WithAPIKey(apiKey))
	if err != nil {
		return nil, fmt.Errorf("failed to create identity toolkit client: %w", err)
	}

	return &FirebaseProvider{
		toolkit: svc.Relyingparty,
		admin:   admin,
		logger:  logger,
	}, nil
}

func (p *FirebaseProvider) Register(ctx context.Context, email, password, displayName string) (*Identity, error) {
	resp, err := p.toolkit.SignupNewUser(&identitytoolkit.IdentitytoolkitRelyingpartySignupNewUserRequest{
		Email:       email,
		Password:    password,
		DisplayName: displayName,
	}).Context(ctx).Do()
	if err != nil {
		p.logger.Warn("Sign up rejected", zap.String("email", email), zap.Error(err))
		return nil, authError("sign up", err)
	}

	return &Identity{
		UID:          resp.LocalId,
		Email:        resp.Email,
		DisplayName:  resp.DisplayName,
		IDToken:      resp.IdToken,
		RefreshToken: resp.RefreshToken,
	}, nil
}

func (p *FirebaseProvider) Login(ctx context.Context, email, password string) (*Identity, error) {
	resp, err := p.toolkit.VerifyPassword(&identitytoolkit.IdentitytoolkitRelyingpartyVerifyPasswordRequest{
		Email:             email,
		Password:          password,
		ReturnSecureToken: true,
	}).Context(ctx).Do()
	if err != nil {
		p.logger.Warn("Sign in rejected", zap.String("email", email), zap.Error(err))
		return nil, authError("sign in", err)
	}

	return &Identity{
		UID:          resp.LocalId,
		Email:        resp.Email,
		DisplayName:  resp.DisplayName,
		IDToken:      resp.IdToken,
		RefreshToken: resp.RefreshToken,
	}, nil
}

func (p *FirebaseProvider) Logout(ctx context.Context, uid string) error {
	if p.admin == nil {
		return nil
	}
	if err := p.admin.RevokeRefreshTokens(ctx, uid); err != nil {
		p.logger.Error("Failed to revoke refresh tokens", zap.String("uid", uid), zap.Error(err))
		return authError("sign out", err)
	}
	return nil
}

func (p *FirebaseProvider) SendPasswordReset(ctx context.Context, email string) error {
	if _, err := p.toolkit.GetOobConfirmationCode(&identitytoolkit.Relyingparty{
		Email:       email,
		RequestType: passwordResetRequest,
	}).Context(ctx).Do(); err != nil {
		p.logger.Warn("Password reset rejected", zap.String("email", email), zap.Error(err))
		return authError("password reset", err)
	}
	return nil
}
