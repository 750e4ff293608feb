package service

import (
	"context"
	"testing"
	"time"

	"github.com/aussiebroadwan/passport/internal/identity/rbac"
	"github.com/aussiebroadwan/passport/pkg/jwtx"
	"github.com/stretchr/testify/require"
)

func TestSignAccessStripsRefreshGrants(t *testing.T) {
	t.Parallel()

	env := newTestEnv(t)

	token, err := env.tokens.SignAccess("u1", "s1",
		[]string{"api:users:read", rbac.RefreshPermission("u1")}, time.Now())
	require.NoError(t, err)

	claims, err := env.tokens.Verify(token)
	require.NoError(t, err)
	require.Equal(t, []string{"api:users:read"}, claims.Permissions)
}

func TestMutateNarrowsPermissions(t *testing.T) {
	t.Parallel()

	env := newTestEnv(t)
	ctx := context.Background()

	token, err := env.tokens.SignAccess("u1", "s1",
		[]string{"api:users:read", "api:users:write"}, time.Now())
	require.NoError(t, err)

	derived, err := env.tokens.Mutate(ctx, token, Mutation{
		RemovePermissions: []string{"api:users:write"},
		SetExtra:          map[string]string{"purpose": "export"},
	})
	require.NoError(t, err)

	claims, err := env.tokens.Verify(derived)
	require.NoError(t, err)
	require.Equal(t, []string{"api:users:read"}, claims.Permissions)
	require.Equal(t, "export", claims.Extra["purpose"])
	require.Equal(t, "u1", claims.Subject)
	require.Equal(t, "s1", claims.SID)
	require.Equal(t, jwtx.TokenTypeAccess, claims.TokenType)
}

func TestMutateRefusesEscalation(t *testing.T) {
	t.Parallel()

	env := newTestEnv(t)
	ctx := context.Background()

	token, err := env.tokens.SignAccess("u1", "s1",
		[]string{"api:users:read"}, time.Now())
	require.NoError(t, err)

	_, err = env.tokens.Mutate(ctx, token, Mutation{
		AddPermissions: []string{"api:roles:write"},
	})
	require.ErrorIs(t, err, ErrForbidden)

	t.Run("additions covered by a wildcard are fine", func(t *testing.T) {
		wide, err := env.tokens.SignAccess("u1", "s1", []string{"api:users:*"}, time.Now())
		require.NoError(t, err)

		derived, err := env.tokens.Mutate(ctx, wide, Mutation{
			AddPermissions: []string{"api:users:read"},
		})
		require.NoError(t, err)

		claims, err := env.tokens.Verify(derived)
		require.NoError(t, err)
		require.Contains(t, claims.Permissions, "api:users:read")
	})

	t.Run("deny overlays may always be added", func(t *testing.T) {
		derived, err := env.tokens.Mutate(ctx, token, Mutation{
			AddPermissions: []string{rbac.Deny("api:users:read")},
		})
		require.NoError(t, err)

		claims, err := env.tokens.Verify(derived)
		require.NoError(t, err)
		require.False(t, rbac.Allowed(claims.Permissions, "api:users:read"))
	})
}

func TestMutateRefusesRefreshTokens(t *testing.T) {
	t.Parallel()

	env := newTestEnv(t)
	ctx := context.Background()

	refresh, err := env.tokens.SignRefresh("u1", "s1", time.Now())
	require.NoError(t, err)

	_, err = env.tokens.Mutate(ctx, refresh, Mutation{
		RemovePermissions: []string{rbac.RefreshPermission("u1")},
	})
	require.ErrorIs(t, err, ErrForbidden)
}

func TestMutatePreservesExpiry(t *testing.T) {
	t.Parallel()

	env := newTestEnv(t)
	ctx := context.Background()

	token, err := env.tokens.SignAccess("u1", "s1", []string{"api:users:read"}, time.Now())
	require.NoError(t, err)

	original, err := env.tokens.Verify(token)
	require.NoError(t, err)

	derived, err := env.tokens.Mutate(ctx, token, Mutation{})
	require.NoError(t, err)

	claims, err := env.tokens.Verify(derived)
	require.NoError(t, err)

	// Fresh jti, expiry no later than the original's.
	require.NotEqual(t, original.ID, claims.ID)
	require.False(t, claims.ExpiresAt.After(original.ExpiresAt.Time))

	t.Run("ttl can shorten", func(t *testing.T) {
		derived, err := env.tokens.Mutate(ctx, token, Mutation{TTL: 5 * time.Second})
		require.NoError(t, err)

		claims, err := env.tokens.Verify(derived)
		require.NoError(t, err)
		require.True(t, claims.ExpiresAt.Before(original.ExpiresAt.Time))
	})

	t.Run("ttl cannot extend", func(t *testing.T) {
		derived, err := env.tokens.Mutate(ctx, token, Mutation{TTL: 24 * time.Hour})
		require.NoError(t, err)

		claims, err := env.tokens.Verify(derived)
		require.NoError(t, err)
		require.False(t, claims.ExpiresAt.After(original.ExpiresAt.Time))
	})
}
