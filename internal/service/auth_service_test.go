package service_test

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"contentgate/api/internal/models"
	"contentgate/api/internal/security"
	"contentgate/api/internal/service"
)

func TestLoginFailures(t *testing.T) {
	ctx := context.Background()
	env := newIdentityEnv(t)
	seedAccount(t, env.store, "user-1", "user@example.com", "user-password", models.AccountRoleUser)

	_, err := env.auth.Login(ctx, service.LoginInput{Email: "nobody@example.com", Password: "user-password"})
	require.ErrorIs(t, err, service.ErrInvalidCredentials)

	_, err = env.auth.Login(ctx, service.LoginInput{Email: "user@example.com", Password: "wrong-password"})
	require.ErrorIs(t, err, service.ErrInvalidCredentials)

	signup(t, env, "fresh@example.com")
	_, err = env.auth.Login(ctx, service.LoginInput{Email: "fresh@example.com", Password: "correct-horse"})
	require.ErrorIs(t, err, service.ErrNotVerified)
}

func TestLoginIssuesUsableTokens(t *testing.T) {
	ctx := context.Background()
	env := newIdentityEnv(t)
	user := seedAccount(t, env.store, "user-1", "user@example.com", "user-password", models.AccountRoleUser)

	result, err := env.auth.Login(ctx, service.LoginInput{
		Email:    "USER@example.com",
		Password: "user-password",
		Device:   service.DeviceInfo{DeviceID: "phone", DeviceName: "Phone"},
	})
	require.NoError(t, err)
	assert.Equal(t, "phone", result.DeviceID)

	principal, claims, err := env.auth.Authenticate(ctx, result.AccessToken)
	require.NoError(t, err)
	assert.Equal(t, user.ID, principal.AccountID)
	assert.Equal(t, models.AccountRoleUser, principal.Role)
	assert.Equal(t, "phone", claims.DeviceID)

	_, _, err = env.auth.Authenticate(ctx, result.AccessToken+"x")
	require.ErrorIs(t, err, service.ErrInvalidSession)
}

func TestAuthenticateRejectsRevokedSession(t *testing.T) {
	ctx := context.Background()
	env := newIdentityEnv(t)
	user := seedAccount(t, env.store, "user-1", "user@example.com", "user-password", models.AccountRoleUser)

	result, err := env.auth.Login(ctx, service.LoginInput{Email: user.Email, Password: "user-password", Device: service.DeviceInfo{DeviceID: "phone"}})
	require.NoError(t, err)

	require.NoError(t, env.auth.Logout(ctx, principalOf(user), "phone"))
	_, _, err = env.auth.Authenticate(ctx, result.AccessToken)
	require.ErrorIs(t, err, service.ErrInvalidSession)

	// logging out twice is harmless
	require.NoError(t, env.auth.Logout(ctx, principalOf(user), "phone"))
}

func TestRefreshRotatesToken(t *testing.T) {
	ctx := context.Background()
	env := newIdentityEnv(t)
	user := seedAccount(t, env.store, "user-1", "user@example.com", "user-password", models.AccountRoleUser)

	first, err := env.auth.Login(ctx, service.LoginInput{Email: user.Email, Password: "user-password", Device: service.DeviceInfo{DeviceID: "phone"}})
	require.NoError(t, err)

	second, err := env.auth.Refresh(ctx, service.RefreshInput{AccountID: user.ID, RefreshToken: first.RefreshToken, DeviceID: "phone"})
	require.NoError(t, err)
	assert.NotEqual(t, first.RefreshToken, second.RefreshToken)

	_, err = env.auth.Refresh(ctx, service.RefreshInput{AccountID: user.ID, RefreshToken: first.RefreshToken, DeviceID: "phone"})
	require.ErrorIs(t, err, service.ErrInvalidSession)

	_, err = env.auth.Refresh(ctx, service.RefreshInput{AccountID: user.ID, RefreshToken: second.RefreshToken, DeviceID: "tablet"})
	require.ErrorIs(t, err, service.ErrInvalidSession)
}

func TestSessionCapTrimsOldest(t *testing.T) {
	ctx := context.Background()
	env := newIdentityEnv(t)
	user := seedAccount(t, env.store, "user-1", "user@example.com", "user-password", models.AccountRoleUser)

	for _, device := range []string{"a", "b", "c"} {
		_, err := env.auth.Login(ctx, service.LoginInput{Email: user.Email, Password: "user-password", Device: service.DeviceInfo{DeviceID: device}})
		require.NoError(t, err)
	}
	assert.Equal(t, testSecurity.MaxSessions, env.store.SessionCount(user.ID))
}

func TestAccessTokenCarriesRole(t *testing.T) {
	ctx := context.Background()
	env := newIdentityEnv(t)
	admin := seedAccount(t, env.store, "admin-1", "admin@example.com", "admin-password", models.AccountRoleAdmin)

	result, err := env.auth.Login(ctx, service.LoginInput{Email: admin.Email, Password: "admin-password"})
	require.NoError(t, err)

	claims, err := security.ParseAccessToken(result.AccessToken, testSecurity.JWTAccessSecret)
	require.NoError(t, err)
	assert.Equal(t, string(models.AccountRoleAdmin), claims.Role)
	assert.Equal(t, admin.ID, claims.AccountID)

	me, err := env.auth.Me(ctx, principalOf(admin))
	require.NoError(t, err)
	assert.Equal(t, admin.Email, me.Email)
}
