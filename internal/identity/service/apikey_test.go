package service

import (
	"context"
	"strings"
	"testing"
	"time"

	"github.com/aussiebroadwan/passport/internal/identity/rbac"
	"github.com/aussiebroadwan/passport/pkg/jwtx"
	"github.com/stretchr/testify/require"
)

func newApiKeyIssuer(env *testEnv) *ApiKeyIssuer {
	return &ApiKeyIssuer{
		Store:           env.store,
		Tokens:          env.tokens,
		Resolver:        rbac.NewResolver(rbac.Default(), env.store.Roles(), env.store.RoleAssignments()),
		DefaultTTL:      time.Hour,
		MaxLivePerOwner: 2,
	}
}

func TestCreateKeySnapshotsAndDenies(t *testing.T) {
	t.Parallel()

	env := newTestEnv(t)
	issuer := newApiKeyIssuer(env)
	ctx := context.Background()

	user := env.register(t, "alice")

	token, grant, err := issuer.CreateKey(ctx, user.ID, "ci-bot",
		[]string{rbac.SelfScoped(rbac.ActionUsersRead, user.ID)}, 0)
	require.NoError(t, err)
	require.NotEmpty(t, token)

	claims, err := env.tokens.Verify(token)
	require.NoError(t, err)
	require.Equal(t, jwtx.TokenTypeAPIKey, claims.TokenType)
	require.Empty(t, claims.SID)
	require.Equal(t, grant.ID, claims.Extra["grant_id"])

	// The requested grant plus the unconditional deny overlays.
	require.Contains(t, claims.Permissions, rbac.SelfScoped(rbac.ActionUsersRead, user.ID))
	require.Contains(t, claims.Permissions, rbac.Deny(rbac.PermAPIKeysCreate))
	require.Contains(t, claims.Permissions, rbac.Deny(rbac.RefreshPrefix+"*"))

	// Net effect: the key can read the profile but never touch keys or refresh.
	require.True(t, rbac.Allowed(claims.Permissions, rbac.SelfScoped(rbac.ActionUsersRead, user.ID)))
	require.False(t, rbac.Allowed(claims.Permissions, rbac.PermAPIKeysCreate))
	require.False(t, rbac.Allowed(claims.Permissions, rbac.RefreshPermission(user.ID)))
}

func TestCreateKeyDefaultsToFullSet(t *testing.T) {
	t.Parallel()

	env := newTestEnv(t)
	issuer := newApiKeyIssuer(env)
	ctx := context.Background()

	user := env.register(t, "alice")

	token, _, err := issuer.CreateKey(ctx, user.ID, "everything", nil, 0)
	require.NoError(t, err)

	claims, err := env.tokens.Verify(token)
	require.NoError(t, err)

	// Everything the member role grants, minus refresh, plus the denies.
	require.Contains(t, claims.Permissions, rbac.SelfScoped(rbac.ActionUsersRead, user.ID))
	require.Contains(t, claims.Permissions, rbac.SelfScoped(rbac.ActionSessionsRead, user.ID))
	for _, perm := range claims.Permissions {
		require.False(t, rbac.IsRefreshPermission(perm), "refresh grant leaked into key: %s", perm)
	}
	require.False(t, rbac.Allowed(claims.Permissions, rbac.RefreshPermission(user.ID)))
}

// TestCreateKeyResolvesCurrentPermissions pins the snapshot to the owner's
// permissions at mint time, not at token-issue time: roles revoked after
// login must not survive into a freshly minted key.
func TestCreateKeyResolvesCurrentPermissions(t *testing.T) {
	t.Parallel()

	env := newTestEnv(t)
	issuer := newApiKeyIssuer(env)
	ctx := context.Background()

	user := env.register(t, "alice")

	// The access token from this login still carries the member grants.
	pair := env.login(t, "alice")
	claims, err := env.tokens.Verify(pair.AccessToken)
	require.NoError(t, err)
	require.Contains(t, claims.Permissions, rbac.SelfScoped(rbac.ActionUsersRead, user.ID))

	// Strip every role out from under the live token.
	require.NoError(t, env.store.RoleAssignments().DeleteAllForUser(ctx, user.ID))

	t.Run("explicit request is rejected", func(t *testing.T) {
		_, _, err := issuer.CreateKey(ctx, user.ID, "stale",
			[]string{rbac.SelfScoped(rbac.ActionUsersRead, user.ID)}, 0)
		require.ErrorIs(t, err, ErrForbidden)
	})

	t.Run("default snapshot has nothing to mint", func(t *testing.T) {
		_, _, err := issuer.CreateKey(ctx, user.ID, "stale", nil, 0)
		require.ErrorIs(t, err, ErrValidation)
	})
}

func TestCreateKeyValidation(t *testing.T) {
	t.Parallel()

	env := newTestEnv(t)
	issuer := newApiKeyIssuer(env)
	ctx := context.Background()

	user := env.register(t, "alice")
	requested := []string{rbac.SelfScoped(rbac.ActionUsersRead, user.ID)}

	t.Run("empty name", func(t *testing.T) {
		_, _, err := issuer.CreateKey(ctx, user.ID, "  ", requested, 0)
		require.ErrorIs(t, err, ErrValidation)
	})

	t.Run("oversized name", func(t *testing.T) {
		long := strings.Repeat("x", 101)
		_, _, err := issuer.CreateKey(ctx, user.ID, long, requested, 0)
		require.ErrorIs(t, err, ErrValidation)
	})

	t.Run("expiry in the past", func(t *testing.T) {
		_, _, err := issuer.CreateKey(ctx, user.ID, "ok", requested, -time.Minute)
		require.ErrorIs(t, err, ErrValidation)
	})
}

func TestCreateKeyRefusesEscalation(t *testing.T) {
	t.Parallel()

	env := newTestEnv(t)
	issuer := newApiKeyIssuer(env)
	ctx := context.Background()

	user := env.register(t, "alice")

	t.Run("permission the owner lacks", func(t *testing.T) {
		_, _, err := issuer.CreateKey(ctx, user.ID, "sneaky",
			[]string{rbac.PermRolesWrite}, 0)
		require.ErrorIs(t, err, ErrForbidden)
	})

	t.Run("refresh permission even though the owner holds it", func(t *testing.T) {
		_, _, err := issuer.CreateKey(ctx, user.ID, "sneaky",
			[]string{rbac.RefreshPermission(user.ID)}, 0)
		require.ErrorIs(t, err, ErrForbidden)
	})

	t.Run("deny overlays are always allowed", func(t *testing.T) {
		_, _, err := issuer.CreateKey(ctx, user.ID, "narrow",
			[]string{
				rbac.SelfScoped(rbac.ActionUsersRead, user.ID),
				rbac.Deny("api:users:write*"),
			}, 0)
		require.NoError(t, err)
	})
}

func TestCreateKeyEnforcesLiveCap(t *testing.T) {
	t.Parallel()

	env := newTestEnv(t)
	issuer := newApiKeyIssuer(env)
	ctx := context.Background()

	user := env.register(t, "alice")
	requested := []string{rbac.SelfScoped(rbac.ActionUsersRead, user.ID)}

	_, first, err := issuer.CreateKey(ctx, user.ID, "one", requested, 0)
	require.NoError(t, err)
	_, _, err = issuer.CreateKey(ctx, user.ID, "two", requested, 0)
	require.NoError(t, err)

	_, _, err = issuer.CreateKey(ctx, user.ID, "three", requested, 0)
	require.ErrorIs(t, err, ErrValidation)

	// Revoking frees a slot.
	require.NoError(t, issuer.RevokeKey(ctx, user.ID, first.ID))
	_, _, err = issuer.CreateKey(ctx, user.ID, "three", requested, 0)
	require.NoError(t, err)
}

func TestCheckClaimsGate(t *testing.T) {
	t.Parallel()

	env := newTestEnv(t)
	issuer := newApiKeyIssuer(env)
	ctx := context.Background()

	user := env.register(t, "alice")

	token, grant, err := issuer.CreateKey(ctx, user.ID, "ci-bot",
		[]string{rbac.SelfScoped(rbac.ActionUsersRead, user.ID)}, 0)
	require.NoError(t, err)

	claims, err := env.tokens.Verify(token)
	require.NoError(t, err)

	t.Run("live grant passes", func(t *testing.T) {
		require.NoError(t, issuer.CheckClaims(ctx, claims))
	})

	t.Run("non-api-key tokens pass through", func(t *testing.T) {
		pair := env.login(t, "alice")
		accessClaims, err := env.tokens.Verify(pair.AccessToken)
		require.NoError(t, err)
		require.NoError(t, issuer.CheckClaims(ctx, accessClaims))
	})

	t.Run("revoked grant is rejected", func(t *testing.T) {
		require.NoError(t, issuer.RevokeKey(ctx, user.ID, grant.ID))
		require.ErrorIs(t, issuer.CheckClaims(ctx, claims), ErrUnauthorized)
	})

	t.Run("missing grant id is rejected", func(t *testing.T) {
		bad := claims
		bad.Extra = nil
		require.ErrorIs(t, issuer.CheckClaims(ctx, bad), ErrUnauthorized)
	})
}

func TestRevokeKeyOwnership(t *testing.T) {
	t.Parallel()

	env := newTestEnv(t)
	issuer := newApiKeyIssuer(env)
	ctx := context.Background()

	alice := env.register(t, "alice")
	bob := env.register(t, "bob")

	_, grant, err := issuer.CreateKey(ctx, alice.ID, "ci-bot",
		[]string{rbac.SelfScoped(rbac.ActionUsersRead, alice.ID)}, 0)
	require.NoError(t, err)

	// Someone else's grant reads as not found.
	require.ErrorIs(t, issuer.RevokeKey(ctx, bob.ID, grant.ID), ErrNotFound)

	keys, err := issuer.ListKeys(ctx, alice.ID)
	require.NoError(t, err)
	require.Len(t, keys, 1)
	require.False(t, keys[0].Revoked)
}
