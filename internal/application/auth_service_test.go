package application

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/finwise/ledger-api/internal/infrastructure/memory"
	"github.com/finwise/ledger-api/pkg/helpers"
)

func newAuthService() *AuthService {
	store := memory.NewStore()
	jwtm := helpers.NewJWTManager("access-secret", "refresh-secret", 15*time.Minute, 24*time.Hour)
	return NewAuthService(memory.NewUserRepository(store), jwtm, nil, nil, nil, nil, "", "finwise-test")
}

func TestRegisterAndLogin(t *testing.T) {
	svc := newAuthService()
	ctx := context.Background()

	u, err := svc.Register(ctx, "Alice@Example.COM", "hunter22", "Alice")
	require.NoError(t, err)
	assert.Equal(t, "alice@example.com", u.Email, "email must be stored normalized")
	assert.NotEqual(t, "hunter22", u.Password, "raw password must never be stored")
	assert.NotEmpty(t, u.ID)

	// login with a differently-cased email still works
	got, pair, err := svc.Login(ctx, "ALICE@example.com", "hunter22")
	require.NoError(t, err)
	assert.Equal(t, u.ID, got.ID)
	assert.NotEmpty(t, pair.AccessToken)
	assert.NotEmpty(t, pair.RefreshToken)

	uid, err := svc.Verify(pair.AccessToken)
	require.NoError(t, err)
	assert.Equal(t, u.ID, uid)
}

func TestRegisterDuplicateEmail(t *testing.T) {
	svc := newAuthService()
	ctx := context.Background()

	_, err := svc.Register(ctx, "bob@example.com", "hunter22", "Bob")
	require.NoError(t, err)

	_, err = svc.Register(ctx, "BOB@example.com", "another-pass", "Bobby")
	assert.ErrorIs(t, err, ErrDuplicateEmail)
}

func TestRegisterWeakPassword(t *testing.T) {
	svc := newAuthService()

	_, err := svc.Register(context.Background(), "carol@example.com", "short", "Carol")
	assert.ErrorIs(t, err, ErrWeakCredential)
}

func TestAuthenticateFailures(t *testing.T) {
	svc := newAuthService()
	ctx := context.Background()

	_, err := svc.Register(ctx, "dave@example.com", "hunter22", "Dave")
	require.NoError(t, err)

	_, err = svc.Authenticate(ctx, "dave@example.com", "wrong-password")
	assert.ErrorIs(t, err, ErrInvalidCredentials)

	_, err = svc.Authenticate(ctx, "nobody@example.com", "hunter22")
	assert.ErrorIs(t, err, ErrInvalidCredentials, "unknown email must look like a bad password")
}

func TestVerifyRejectsBadTokens(t *testing.T) {
	svc := newAuthService()

	_, err := svc.Verify("not-a-token")
	assert.ErrorIs(t, err, ErrInvalidToken)

	expiredJWT := helpers.NewJWTManager("access-secret", "refresh-secret", -time.Minute, 24*time.Hour)
	tok, _, err := expiredJWT.GenerateAccessToken("user-1", "sid-1")
	require.NoError(t, err)
	// same secret, already past expiry
	_, err = svc.Verify(tok)
	assert.ErrorIs(t, err, ErrExpiredToken)

	otherJWT := helpers.NewJWTManager("other-secret", "other-refresh", 15*time.Minute, 24*time.Hour)
	tok, _, err = otherJWT.GenerateAccessToken("user-1", "sid-1")
	require.NoError(t, err)
	_, err = svc.Verify(tok)
	assert.ErrorIs(t, err, ErrInvalidToken, "foreign signature must not verify")
}

func TestRefreshRotatesTokens(t *testing.T) {
	svc := newAuthService()
	ctx := context.Background()

	u, err := svc.Register(ctx, "erin@example.com", "hunter22", "Erin")
	require.NoError(t, err)
	pair, err := svc.IssueTokens(ctx, u)
	require.NoError(t, err)

	fresh, uid, err := svc.Refresh(ctx, pair.RefreshToken)
	require.NoError(t, err)
	assert.Equal(t, u.ID, uid)
	assert.NotEmpty(t, fresh.AccessToken)

	_, _, err = svc.Refresh(ctx, pair.AccessToken)
	assert.ErrorIs(t, err, ErrInvalidCredentials, "access token must not act as refresh token")
}

func TestUpdateProfile(t *testing.T) {
	svc := newAuthService()
	ctx := context.Background()

	u, err := svc.Register(ctx, "frank@example.com", "hunter22", "Frank")
	require.NoError(t, err)

	got, err := svc.UpdateProfile(ctx, u.ID, UpdateProfileInput{Name: "Franklin"})
	require.NoError(t, err)
	assert.Equal(t, "Franklin", got.Name)
	assert.Equal(t, u.Email, got.Email, "email is immutable")

	_, err = svc.UpdateProfile(ctx, "missing-user", UpdateProfileInput{Name: "X"})
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestNormalizeEmail(t *testing.T) {
	assert.Equal(t, "a@b.com", NormalizeEmail("  A@B.COM "))
	assert.Equal(t, "a@b.com", NormalizeEmail("a@b.com"))
}
