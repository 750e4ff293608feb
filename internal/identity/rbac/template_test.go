package rbac

import (
	"testing"

	"github.com/aussiebroadwan/passport/internal/identity/domain"
	"github.com/stretchr/testify/require"
)

func TestExpand(t *testing.T) {
	t.Parallel()

	t.Run("substitutes placeholders", func(t *testing.T) {
		perm, err := Expand("api:users:read;userId={userId}", map[string]string{"userId": "u1"})
		require.NoError(t, err)
		require.Equal(t, "api:users:read;userId=u1", perm)
	})

	t.Run("handles multiple placeholders", func(t *testing.T) {
		perm, err := Expand("api:projects:{projectId}:read;userId={userId}",
			map[string]string{"projectId": "p9", "userId": "u1"})
		require.NoError(t, err)
		require.Equal(t, "api:projects:p9:read;userId=u1", perm)
	})

	t.Run("concrete templates pass through", func(t *testing.T) {
		perm, err := Expand("api:roles:read", nil)
		require.NoError(t, err)
		require.Equal(t, "api:roles:read", perm)
	})

	t.Run("missing parameter fails closed", func(t *testing.T) {
		_, err := Expand("api:users:read;userId={userId}", map[string]string{})
		require.ErrorIs(t, err, ErrUnresolvedPlaceholder)
	})

	t.Run("empty parameter fails closed", func(t *testing.T) {
		_, err := Expand("api:users:read;userId={userId}", map[string]string{"userId": ""})
		require.ErrorIs(t, err, ErrUnresolvedPlaceholder)
	})

	t.Run("dangling brace fails closed", func(t *testing.T) {
		_, err := Expand("api:users:read;userId={userId", map[string]string{"userId": "u1"})
		require.ErrorIs(t, err, ErrUnresolvedPlaceholder)
	})
}

func TestMatch(t *testing.T) {
	t.Parallel()

	require.True(t, Match("api:users:read", "api:users:read"))
	require.False(t, Match("api:users:read", "api:users:write"))

	// Trailing-* matches any suffix, including the empty one.
	require.True(t, Match("api:apikeys:*", "api:apikeys:create"))
	require.True(t, Match("api:*", "api:users:read;userId=u1"))
	require.True(t, Match("*", "anything"))

	// Wildcards only work at the tail.
	require.False(t, Match("api:*:read", "api:users:read"))
}

func TestAllowed(t *testing.T) {
	t.Parallel()

	t.Run("grant required", func(t *testing.T) {
		require.False(t, Allowed(nil, "api:users:read"))
		require.True(t, Allowed([]string{"api:users:read"}, "api:users:read"))
		require.True(t, Allowed([]string{"api:users:*"}, "api:users:read"))
	})

	t.Run("deny wins over grant", func(t *testing.T) {
		perms := []string{"api:*", "deny;api:apikeys:create"}
		require.True(t, Allowed(perms, "api:users:read"))
		require.False(t, Allowed(perms, "api:apikeys:create"))
	})

	t.Run("deny wildcard wins over exact grant", func(t *testing.T) {
		perms := []string{"api:auth:refresh;userId=u1", "deny;api:auth:refresh*"}
		require.False(t, Allowed(perms, "api:auth:refresh;userId=u1"))
	})

	t.Run("deny alone grants nothing", func(t *testing.T) {
		require.False(t, Allowed([]string{"deny;api:users:read"}, "api:users:write"))
	})
}

func TestApplyDeny(t *testing.T) {
	t.Parallel()

	t.Run("removes denied grants and the overlays", func(t *testing.T) {
		perms := []string{
			"api:users:read",
			"api:apikeys:create",
			"deny;api:apikeys:*",
		}
		require.Equal(t, []string{"api:users:read"}, ApplyDeny(perms))
	})

	t.Run("deduplicates preserving order", func(t *testing.T) {
		perms := []string{"a", "b", "a", "c", "b"}
		require.Equal(t, []string{"a", "b", "c"}, ApplyDeny(perms))
	})
}

func TestWithoutRefresh(t *testing.T) {
	t.Parallel()

	perms := []string{
		"api:users:read;userId=u1",
		RefreshPermission("u1"),
		"deny;api:apikeys:create",
	}
	require.Equal(t,
		[]string{"api:users:read;userId=u1", "deny;api:apikeys:create"},
		WithoutRefresh(perms))
}

func TestCatalogShadowsAndReservedCodes(t *testing.T) {
	t.Parallel()

	catalog := Default()

	owner, ok := catalog.ByID(StaticRoleOwnerID)
	require.True(t, ok)
	require.True(t, owner.IsStatic)
	require.Equal(t, []domain.ScopeTemplate{PermAll}, owner.Templates)

	_, ok = catalog.ByCode("MEMBER") // case-insensitive
	require.True(t, ok)

	require.True(t, catalog.Contains(StaticRoleAuditorID))
	require.False(t, catalog.Contains("01J0000000000000000000000"))

	require.Error(t, func() error {
		_, err := NewCatalog(
			domain.Role{ID: "a", Code: "dup", Templates: []domain.ScopeTemplate{"x"}},
			domain.Role{ID: "b", Code: "DUP", Templates: []domain.ScopeTemplate{"y"}},
		)
		return err
	}())
}

func TestSelfScoped(t *testing.T) {
	t.Parallel()

	perm := SelfScoped(ActionSessionsRead, "u1")
	require.Equal(t, "api:sessions:read;userId=u1", perm)

	// The member role's expanded template is exactly this permission.
	expanded, err := Expand(PermSessionsReadSelf, map[string]string{"userId": "u1"})
	require.NoError(t, err)
	require.Equal(t, perm, expanded)

	// Admin wildcards cover it by prefix.
	require.True(t, Allowed([]string{PermSessionsAll}, perm))
}
