package app

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"docai/internal/app/apptest"
	"docai/internal/pkg/jwtutil"
)

func newAuthService(t *testing.T) (*AuthService, *apptest.UserStore) {
	t.Helper()
	signer, err := jwtutil.NewSigner("test-secret", "HS256", 30*time.Minute)
	require.NoError(t, err)
	users := apptest.NewUserStore()
	return NewAuthService(users, signer), users
}

func TestRegister(t *testing.T) {
	svc, _ := newAuthService(t)
	ctx := context.Background()

	user, err := svc.Register(ctx, RegisterInput{Email: " Alice@Example.com ", Username: "alice", Password: "password1"})
	require.NoError(t, err)
	assert.NotZero(t, user.ID)
	assert.Equal(t, "alice@example.com", user.Email)
	assert.True(t, user.IsActive)
	assert.False(t, user.IsSuperuser)
	assert.NotEqual(t, "password1", user.HashedPassword)

	_, err = svc.Register(ctx, RegisterInput{Email: "alice@example.com", Username: "other", Password: "password1"})
	assert.ErrorIs(t, err, ErrEmailExists)

	_, err = svc.Register(ctx, RegisterInput{Email: "new@example.com", Username: "alice", Password: "password1"})
	assert.ErrorIs(t, err, ErrUsernameExists)
}

func TestRegister_Validation(t *testing.T) {
	svc, _ := newAuthService(t)
	cases := map[string]RegisterInput{
		"bad email":      {Email: "not-an-email", Username: "alice", Password: "password1"},
		"short username": {Email: "a@example.com", Username: "al", Password: "password1"},
		"short password": {Email: "a@example.com", Username: "alice", Password: "short"},
	}
	for name, in := range cases {
		t.Run(name, func(t *testing.T) {
			_, err := svc.Register(context.Background(), in)
			assert.ErrorIs(t, err, ErrInvalidInput)
		})
	}
}

func TestLogin(t *testing.T) {
	svc, _ := newAuthService(t)
	ctx := context.Background()
	_, err := svc.Register(ctx, RegisterInput{Email: "bob@example.com", Username: "bob", Password: "password1"})
	require.NoError(t, err)

	token, err := svc.Login(ctx, LoginInput{Username: "bob", Password: "password1"})
	require.NoError(t, err)
	assert.Equal(t, "bearer", token.TokenType)
	assert.Equal(t, 1800, token.ExpiresIn)

	user, err := svc.Authenticate(ctx, token.AccessToken)
	require.NoError(t, err)
	assert.Equal(t, "bob", user.Username)

	// Email works as the login name too.
	_, err = svc.Login(ctx, LoginInput{Username: "BOB@example.com", Password: "password1"})
	assert.NoError(t, err)

	_, err = svc.Login(ctx, LoginInput{Username: "bob", Password: "wrong-pass"})
	assert.ErrorIs(t, err, ErrInvalidCredential)

	_, err = svc.Login(ctx, LoginInput{Username: "nobody", Password: "password1"})
	assert.ErrorIs(t, err, ErrInvalidCredential)
}

func TestLogin_InactiveUser(t *testing.T) {
	svc, users := newAuthService(t)
	ctx := context.Background()
	user, err := svc.Register(ctx, RegisterInput{Email: "c@example.com", Username: "carol", Password: "password1"})
	require.NoError(t, err)

	token, err := svc.Login(ctx, LoginInput{Username: "carol", Password: "password1"})
	require.NoError(t, err)

	users.SetActive(user.ID, false)

	_, err = svc.Login(ctx, LoginInput{Username: "carol", Password: "password1"})
	assert.ErrorIs(t, err, ErrInactiveUser)

	_, err = svc.Authenticate(ctx, token.AccessToken)
	assert.ErrorIs(t, err, ErrInactiveUser)
}

func TestAuthenticate_BadToken(t *testing.T) {
	svc, _ := newAuthService(t)
	_, err := svc.Authenticate(context.Background(), "garbage")
	assert.ErrorIs(t, err, ErrUnauthenticated)

	other, err := jwtutil.NewSigner("other-secret", "HS256", time.Minute)
	require.NoError(t, err)
	token, err := other.GenerateToken(1, "ghost", "ghost@example.com")
	require.NoError(t, err)
	_, err = svc.Authenticate(context.Background(), token)
	assert.ErrorIs(t, err, ErrUnauthenticated)
}

func TestEnsureAdmin(t *testing.T) {
	svc, _ := newAuthService(t)
	ctx := context.Background()
	in := RegisterInput{Email: "admin@example.com", Username: "admin", Password: "admin123"}

	admin, created, err := svc.EnsureAdmin(ctx, in)
	require.NoError(t, err)
	assert.True(t, created)
	assert.True(t, admin.IsSuperuser)

	again, created, err := svc.EnsureAdmin(ctx, in)
	require.NoError(t, err)
	assert.False(t, created)
	assert.Equal(t, admin.ID, again.ID)
}

func TestEnsureAdmin_PromotesExisting(t *testing.T) {
	svc, users := newAuthService(t)
	ctx := context.Background()
	user, err := svc.Register(ctx, RegisterInput{Email: "dave@example.com", Username: "dave", Password: "password1"})
	require.NoError(t, err)

	promoted, created, err := svc.EnsureAdmin(ctx, RegisterInput{Email: "other@example.com", Username: "dave", Password: "password1"})
	require.NoError(t, err)
	assert.False(t, created)
	assert.True(t, promoted.IsSuperuser)

	stored, err := users.GetByID(ctx, user.ID)
	require.NoError(t, err)
	assert.True(t, stored.IsSuperuser)
}
