package service

import (
	"context"
	"testing"

	"github.com/aussiebroadwan/passport/internal/identity/domain"
	"github.com/aussiebroadwan/passport/internal/identity/rbac"
	"github.com/stretchr/testify/require"
)

func TestRegister(t *testing.T) {
	t.Parallel()

	env := newTestEnv(t)
	ctx := context.Background()

	user := env.register(t, "alice")
	require.NotEmpty(t, user.ID)
	require.Equal(t, "alice", user.Username)
	require.NotEqual(t, testPassword, user.PasswordHash)

	t.Run("gets the default member assignment", func(t *testing.T) {
		assignments, err := env.store.RoleAssignments().ListByUser(ctx, user.ID)
		require.NoError(t, err)
		require.Len(t, assignments, 1)
		require.Equal(t, rbac.StaticRoleMemberID, assignments[0].RoleID)
		require.Equal(t, user.ID, assignments[0].Params["userId"])
	})

	t.Run("username is taken", func(t *testing.T) {
		_, err := env.users.Register(ctx, "alice", testPassword)
		require.ErrorIs(t, err, ErrConflict)
	})

	t.Run("blank username", func(t *testing.T) {
		_, err := env.users.Register(ctx, "   ", testPassword)
		require.ErrorIs(t, err, ErrValidation)
	})

	t.Run("short password", func(t *testing.T) {
		_, err := env.users.Register(ctx, "bob", "short")
		require.ErrorIs(t, err, ErrValidation)
	})
}

func TestChangePassword(t *testing.T) {
	t.Parallel()

	env := newTestEnv(t)
	ctx := context.Background()
	user := env.register(t, "alice")

	current := env.login(t, "alice")
	other := env.login(t, "alice")

	const newPassword = "an entirely different phrase"

	t.Run("wrong current password", func(t *testing.T) {
		err := env.users.ChangePassword(ctx, user.ID, "wrong", newPassword, current.SessionID)
		require.ErrorIs(t, err, ErrUnauthorized)
	})

	t.Run("short new password", func(t *testing.T) {
		err := env.users.ChangePassword(ctx, user.ID, testPassword, "short", current.SessionID)
		require.ErrorIs(t, err, ErrValidation)
	})

	require.NoError(t, env.users.ChangePassword(ctx, user.ID, testPassword, newPassword, current.SessionID))

	t.Run("old password stops working", func(t *testing.T) {
		_, err := env.sessions.Login(ctx, "alice", testPassword, "", domain.DeviceInfo{})
		require.ErrorIs(t, err, ErrUnauthorized)

		_, err = env.sessions.Login(ctx, "alice", newPassword, "", domain.DeviceInfo{})
		require.NoError(t, err)
	})

	t.Run("other sessions die, the caller's survives", func(t *testing.T) {
		_, err := env.sessions.Refresh(ctx, other.RefreshToken)
		require.ErrorIs(t, err, ErrUnauthorized)

		_, err = env.sessions.Refresh(ctx, current.RefreshToken)
		require.NoError(t, err)
	})
}
