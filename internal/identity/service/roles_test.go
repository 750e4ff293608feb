package service

import (
	"context"
	"testing"

	"github.com/aussiebroadwan/passport/internal/identity/domain"
	"github.com/aussiebroadwan/passport/internal/identity/rbac"
	"github.com/stretchr/testify/require"
)

func newRoleDirectory(env *testEnv) *RoleDirectory {
	return &RoleDirectory{
		Store:   env.store,
		Catalog: rbac.Default(),
	}
}

func TestRoleDirectoryCRUD(t *testing.T) {
	t.Parallel()

	env := newTestEnv(t)
	dir := newRoleDirectory(env)
	ctx := context.Background()

	role, err := dir.Create(ctx, "support", "Support Staff",
		[]domain.ScopeTemplate{"api:users:read;userId={targetUserId}"})
	require.NoError(t, err)
	require.NotEmpty(t, role.ID)
	require.False(t, role.IsStatic)

	t.Run("get round trips", func(t *testing.T) {
		got, err := dir.Get(ctx, role.ID)
		require.NoError(t, err)
		require.Equal(t, "support", got.Code)
	})

	t.Run("duplicate code conflicts", func(t *testing.T) {
		_, err := dir.Create(ctx, "support", "Other",
			[]domain.ScopeTemplate{"api:users:read"})
		require.ErrorIs(t, err, ErrConflict)
	})

	t.Run("update replaces the definition", func(t *testing.T) {
		updated, err := dir.Update(ctx, role.ID, "support", "Tier 2 Support",
			[]domain.ScopeTemplate{"api:users:*;userId={targetUserId}"})
		require.NoError(t, err)
		require.Equal(t, "Tier 2 Support", updated.Name)
		require.Len(t, updated.Templates, 1)
	})

	t.Run("delete removes it", func(t *testing.T) {
		require.NoError(t, dir.Delete(ctx, role.ID))
		_, err := dir.Get(ctx, role.ID)
		require.ErrorIs(t, err, ErrNotFound)
	})
}

func TestRoleDirectoryValidation(t *testing.T) {
	t.Parallel()

	env := newTestEnv(t)
	dir := newRoleDirectory(env)
	ctx := context.Background()

	for name, tc := range map[string]struct {
		code      string
		templates []domain.ScopeTemplate
		want      error
	}{
		"empty code":             {"", []domain.ScopeTemplate{"api:users:read"}, ErrValidation},
		"no templates":           {"empty", nil, ErrValidation},
		"whitespace in template": {"bad", []domain.ScopeTemplate{"api:users :read"}, ErrValidation},
		"unbalanced placeholder": {"bad", []domain.ScopeTemplate{"api:users:read;userId={x"}, ErrValidation},
		"reserved static code":   {"admin", []domain.ScopeTemplate{"api:users:read"}, ErrConflict},
	} {
		t.Run(name, func(t *testing.T) {
			_, err := dir.Create(ctx, tc.code, "x", tc.templates)
			require.ErrorIs(t, err, tc.want)
		})
	}
}

func TestStaticRolesAreImmutable(t *testing.T) {
	t.Parallel()

	env := newTestEnv(t)
	dir := newRoleDirectory(env)
	ctx := context.Background()

	_, err := dir.Update(ctx, rbac.StaticRoleAdminID, "admin2", "Admin",
		[]domain.ScopeTemplate{"api:users:read"})
	require.ErrorIs(t, err, ErrConflict)

	require.ErrorIs(t, dir.Delete(ctx, rbac.StaticRoleAdminID), ErrConflict)

	t.Run("catalog roles still resolve", func(t *testing.T) {
		role, err := dir.Get(ctx, rbac.StaticRoleMemberID)
		require.NoError(t, err)
		require.True(t, role.IsStatic)
	})
}

func TestRoleListShadowsPersistedStatics(t *testing.T) {
	t.Parallel()

	env := newTestEnv(t)
	dir := newRoleDirectory(env)
	ctx := context.Background()

	// A rogue row reusing a static id must never surface.
	require.NoError(t, env.store.Roles().Save(ctx, domain.Role{
		ID:        rbac.StaticRoleMemberID,
		Code:      "member-imposter",
		Name:      "Imposter",
		Templates: []domain.ScopeTemplate{"api:roles:write"},
	}))

	_, err := dir.Create(ctx, "support", "Support",
		[]domain.ScopeTemplate{"api:users:read;userId={targetUserId}"})
	require.NoError(t, err)

	roles, err := dir.List(ctx)
	require.NoError(t, err)

	seen := map[string]int{}
	for _, role := range roles {
		seen[role.ID]++
		require.NotEqual(t, "member-imposter", role.Code)
	}
	require.Equal(t, 1, seen[rbac.StaticRoleMemberID])
	require.Len(t, roles, len(rbac.Default().List())+1)
}

func TestAssignValidatesPlaceholders(t *testing.T) {
	t.Parallel()

	env := newTestEnv(t)
	dir := newRoleDirectory(env)
	ctx := context.Background()
	user := env.register(t, "alice")

	role, err := dir.Create(ctx, "project-viewer", "Project Viewer",
		[]domain.ScopeTemplate{"api:projects:read;projectId={projectId}"})
	require.NoError(t, err)

	t.Run("missing parameter", func(t *testing.T) {
		err := dir.Assign(ctx, user.ID, role.ID, nil)
		require.ErrorIs(t, err, ErrValidation)
	})

	t.Run("empty parameter", func(t *testing.T) {
		err := dir.Assign(ctx, user.ID, role.ID, map[string]string{"projectId": ""})
		require.ErrorIs(t, err, ErrValidation)
	})

	t.Run("unknown user", func(t *testing.T) {
		err := dir.Assign(ctx, "no-such-user", role.ID,
			map[string]string{"projectId": "p1"})
		require.ErrorIs(t, err, ErrNotFound)
	})

	t.Run("unknown role", func(t *testing.T) {
		err := dir.Assign(ctx, user.ID, "no-such-role",
			map[string]string{"projectId": "p1"})
		require.ErrorIs(t, err, ErrNotFound)
	})

	t.Run("complete params reach the next login", func(t *testing.T) {
		require.NoError(t, dir.Assign(ctx, user.ID, role.ID,
			map[string]string{"projectId": "p1"}))

		pair := env.login(t, "alice")
		claims, err := env.tokens.Verify(pair.AccessToken)
		require.NoError(t, err)
		require.Contains(t, claims.Permissions, "api:projects:read;projectId=p1")
	})
}

func TestReassignReplacesParams(t *testing.T) {
	t.Parallel()

	env := newTestEnv(t)
	dir := newRoleDirectory(env)
	ctx := context.Background()
	user := env.register(t, "alice")

	role, err := dir.Create(ctx, "project-viewer", "Project Viewer",
		[]domain.ScopeTemplate{"api:projects:read;projectId={projectId}"})
	require.NoError(t, err)

	require.NoError(t, dir.Assign(ctx, user.ID, role.ID,
		map[string]string{"projectId": "p1"}))

	before, err := env.store.RoleAssignments().ListByUser(ctx, user.ID)
	require.NoError(t, err)

	require.NoError(t, dir.Assign(ctx, user.ID, role.ID,
		map[string]string{"projectId": "p2"}))

	// One row per role: the reassignment replaced the parameter map
	// instead of stacking a second grant.
	after, err := env.store.RoleAssignments().ListByUser(ctx, user.ID)
	require.NoError(t, err)
	require.Len(t, after, len(before))

	pair := env.login(t, "alice")
	claims, err := env.tokens.Verify(pair.AccessToken)
	require.NoError(t, err)
	require.Contains(t, claims.Permissions, "api:projects:read;projectId=p2")
	require.NotContains(t, claims.Permissions, "api:projects:read;projectId=p1")
}

func TestUnassign(t *testing.T) {
	t.Parallel()

	env := newTestEnv(t)
	dir := newRoleDirectory(env)
	ctx := context.Background()
	user := env.register(t, "alice")

	role, err := dir.Create(ctx, "reporting", "Reporting",
		[]domain.ScopeTemplate{"api:reports:read;teamId={teamId}"})
	require.NoError(t, err)

	require.NoError(t, dir.Assign(ctx, user.ID, role.ID,
		map[string]string{"teamId": "t1"}))

	pair := env.login(t, "alice")
	claims, err := env.tokens.Verify(pair.AccessToken)
	require.NoError(t, err)
	require.Contains(t, claims.Permissions, "api:reports:read;teamId=t1")

	require.NoError(t, dir.Unassign(ctx, user.ID, role.ID))

	// Removing it again reads as not found.
	require.ErrorIs(t, dir.Unassign(ctx, user.ID, role.ID), ErrNotFound)

	pair = env.login(t, "alice")
	claims, err = env.tokens.Verify(pair.AccessToken)
	require.NoError(t, err)
	require.NotContains(t, claims.Permissions, "api:reports:read;teamId=t1")
}
