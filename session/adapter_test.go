package session

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"goflare.io/storefront/docstore"
	"goflare.io/storefront/models"
	"goflare.io/storefront/models/enum"
)

type AuthProviderMock struct{ mock.Mock }

func (m *AuthProviderMock) Register(ctx context.Context, email, password, displayName string) (*Identity, error) {
	args := m.Called(ctx, email, password, displayName)
	id, _ := args.Get(0).(*Identity)
	return id, args.Error(1)
}

func (m *AuthProviderMock) Login(ctx context.Context, email, password string) (*Identity, error) {
	args := m.Called(ctx, email, password)
	id, _ := args.Get(0).(*Identity)
	return id, args.Error(1)
}

func (m *AuthProviderMock) Logout(ctx context.Context, uid string) error {
	return m.Called(ctx, uid).Error(0)
}

func (m *AuthProviderMock) SendPasswordReset(ctx context.Context, email string) error {
	return m.Called(ctx, email).Error(0)
}

type fixture struct {
	provider *AuthProviderMock
	store    *docstore.MemoryGateway
	profiles ProfileStore
	storage  *FileStorage
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	storage, err := NewFileStorage(t.TempDir())
	require.NoError(t, err)
	store := docstore.NewMemoryGateway()
	return &fixture{
		provider: new(AuthProviderMock),
		store:    store,
		profiles: NewProfileStore(store, zap.NewNop()),
		storage:  storage,
	}
}

func (f *fixture) adapter() *Adapter {
	return NewAdapter(context.Background(), f.provider, f.profiles, f.storage, zap.NewNop())
}

func TestAdapter_StartsSignedOut(t *testing.T) {
	f := newFixture(t)
	a := f.adapter()

	assert.False(t, a.IsAuthenticated())
	assert.Nil(t, a.Current())
}

func TestAdapter_Register(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	f.provider.On("Register", ctx, "ana@example.com", "secret", "Ana").
		Return(&Identity{UID: "uid-1", Email: "ana@example.com"}, nil)

	a := f.adapter()
	s, err := a.Register(ctx, RegisterInput{Email: "ana@example.com", Password: "secret", Name: "Ana", Surname: "Lopez", Age: 30})
	require.NoError(t, err)

	assert.Equal(t, &models.Session{UID: "uid-1", Email: "ana@example.com", DisplayName: "Ana", Role: enum.RoleUser}, s)
	assert.True(t, a.IsAuthenticated())

	profile, err := f.profiles.Get(ctx, "uid-1")
	require.NoError(t, err)
	assert.Equal(t, "Lopez", profile.Surname)
	assert.Equal(t, int64(30), profile.Age)
	assert.Equal(t, enum.RoleUser, profile.Role)

	// a new process sees the same session
	restored := f.adapter()
	assert.Equal(t, s, restored.Current())
}

func TestAdapter_RegisterValidation(t *testing.T) {
	f := newFixture(t)
	a := f.adapter()

	_, err := a.Register(context.Background(), RegisterInput{Email: "not-an-email", Password: "x", Name: "A"})
	assert.ErrorIs(t, err, models.ErrValidation)
	f.provider.AssertNotCalled(t, "Register", mock.Anything, mock.Anything, mock.Anything, mock.Anything)
}

func TestAdapter_LoginUsesProfileRole(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	require.NoError(t, f.profiles.Create(ctx, &models.Profile{UID: "uid-admin", Name: "Root", Email: "root@example.com", Role: enum.RoleAdmin}))
	f.provider.On("Login", ctx, "root@example.com", "pw").
		Return(&Identity{UID: "uid-admin", Email: "root@example.com"}, nil)

	a := f.adapter()
	s, err := a.Login(ctx, "root@example.com", "pw")
	require.NoError(t, err)

	assert.Equal(t, "Root", s.DisplayName)
	assert.Equal(t, enum.RoleAdmin, s.Role)
	assert.True(t, s.IsAdmin)
}

func TestAdapter_LoginWithoutProfile(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	f.provider.On("Login", ctx, "x@example.com", "pw").
		Return(&Identity{UID: "uid-x", Email: "x@example.com"}, nil)

	s, err := f.adapter().Login(ctx, "x@example.com", "pw")
	require.NoError(t, err)

	assert.Equal(t, "User", s.DisplayName)
	assert.Equal(t, enum.RoleUser, s.Role)
	assert.False(t, s.IsAdmin)
}

func TestAdapter_LoginFailure(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	f.provider.On("Login", ctx, "x@example.com", "bad").Return(nil, errors.New("INVALID_PASSWORD"))

	a := f.adapter()
	_, err := a.Login(ctx, "x@example.com", "bad")
	assert.ErrorIs(t, err, models.ErrAuth)
	assert.False(t, a.IsAuthenticated())

	_, ok, err := f.storage.Get(ctx, StorageKey)
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestAdapter_Logout(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	f.provider.On("Login", ctx, "x@example.com", "pw").Return(&Identity{UID: "uid-x", Email: "x@example.com", DisplayName: "X"}, nil)
	f.provider.On("Logout", ctx, "uid-x").Return(errors.New("network down")).Once()
	f.provider.On("Logout", ctx, "uid-x").Return(nil).Once()

	a := f.adapter()
	_, err := a.Login(ctx, "x@example.com", "pw")
	require.NoError(t, err)

	err = a.Logout(ctx)
	assert.ErrorIs(t, err, models.ErrAuth)
	assert.True(t, a.IsAuthenticated())
	assert.True(t, f.adapter().IsAuthenticated())

	require.NoError(t, a.Logout(ctx))
	assert.False(t, a.IsAuthenticated())
	assert.False(t, f.adapter().IsAuthenticated())
	f.provider.AssertExpectations(t)
}

func TestAdapter_CorruptStoredSession(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	require.NoError(t, f.storage.Set(ctx, StorageKey, "{broken"))

	a := f.adapter()
	assert.False(t, a.IsAuthenticated())

	_, ok, err := f.storage.Get(ctx, StorageKey)
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestAdapter_RehydrateDerivesAdminFlag(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	require.NoError(t, f.storage.Set(ctx, StorageKey, `{"uid":"u1","email":"a@b.c","display_name":"A","role":"admin","is_admin":false}`))

	s := f.adapter().Current()
	require.NotNil(t, s)
	assert.True(t, s.IsAdmin)
}

func TestAdapter_SendPasswordReset(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	f.provider.On("SendPasswordReset", ctx, "a@example.com").Return(nil)
	f.provider.On("SendPasswordReset", ctx, "gone@example.com").Return(errors.New("EMAIL_NOT_FOUND"))

	a := f.adapter()
	require.NoError(t, a.SendPasswordReset(ctx, "a@example.com"))
	assert.ErrorIs(t, a.SendPasswordReset(ctx, "gone@example.com"), models.ErrAuth)
	assert.ErrorIs(t, a.SendPasswordReset(ctx, ""), models.ErrValidation)
}
