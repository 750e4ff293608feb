package service

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/aussiebroadwan/passport/internal/identity/domain"
	"github.com/aussiebroadwan/passport/internal/identity/rbac"
	"github.com/aussiebroadwan/passport/pkg/jwtx"
	"github.com/stretchr/testify/require"
)

func TestLogin(t *testing.T) {
	t.Parallel()

	env := newTestEnv(t)
	ctx := context.Background()
	user := env.register(t, "alice")

	t.Run("issues a token pair", func(t *testing.T) {
		pair := env.login(t, "alice")
		require.NotEmpty(t, pair.AccessToken)
		require.NotEmpty(t, pair.RefreshToken)
		require.NotEmpty(t, pair.SessionID)
		require.Equal(t, "Bearer", pair.TokenType)

		claims, err := env.tokens.Verify(pair.AccessToken)
		require.NoError(t, err)
		require.Equal(t, user.ID, claims.Subject)
		require.Equal(t, jwtx.TokenTypeAccess, claims.TokenType)
		require.Equal(t, pair.SessionID, claims.SID)

		// Member grants are present, refresh grants are not.
		require.Contains(t, claims.Permissions, rbac.SelfScoped(rbac.ActionUsersRead, user.ID))
		for _, p := range claims.Permissions {
			require.False(t, rbac.IsRefreshPermission(p))
		}
	})

	t.Run("refresh token carries only the refresh grant", func(t *testing.T) {
		pair := env.login(t, "alice")

		claims, err := env.tokens.Verify(pair.RefreshToken)
		require.NoError(t, err)
		require.Equal(t, jwtx.TokenTypeRefresh, claims.TokenType)
		require.Equal(t, []string{rbac.RefreshPermission(user.ID)}, claims.Permissions)
	})

	t.Run("rejects a wrong password", func(t *testing.T) {
		_, err := env.sessions.Login(ctx, "alice", "not the password", "", domain.DeviceInfo{})
		require.ErrorIs(t, err, ErrUnauthorized)
	})

	t.Run("rejects an unknown user", func(t *testing.T) {
		_, err := env.sessions.Login(ctx, "nobody", testPassword, "", domain.DeviceInfo{})
		require.ErrorIs(t, err, ErrUnauthorized)
	})
}

func TestRefreshRotation(t *testing.T) {
	t.Parallel()

	env := newTestEnv(t)
	ctx := context.Background()
	env.register(t, "alice")
	pair := env.login(t, "alice")

	rotated, err := env.sessions.Refresh(ctx, pair.RefreshToken)
	require.NoError(t, err)
	require.Equal(t, pair.SessionID, rotated.SessionID)
	require.NotEqual(t, pair.RefreshToken, rotated.RefreshToken)

	// The new token keeps working...
	again, err := env.sessions.Refresh(ctx, rotated.RefreshToken)
	require.NoError(t, err)
	require.Equal(t, pair.SessionID, again.SessionID)
}

func TestRefreshReuseRevokesSession(t *testing.T) {
	t.Parallel()

	env := newTestEnv(t)
	ctx := context.Background()
	env.register(t, "alice")
	pair := env.login(t, "alice")

	rotated, err := env.sessions.Refresh(ctx, pair.RefreshToken)
	require.NoError(t, err)

	// Replaying the rotated-away token is theft: the whole session dies.
	_, err = env.sessions.Refresh(ctx, pair.RefreshToken)
	require.ErrorIs(t, err, ErrRefreshReuse)

	// The revocation committed: even the legitimate holder is locked out.
	_, err = env.sessions.Refresh(ctx, rotated.RefreshToken)
	require.ErrorIs(t, err, ErrUnauthorized)

	session, err := env.store.Sessions().GetByID(ctx, pair.SessionID)
	require.NoError(t, err)
	require.True(t, session.Revoked)
}

func TestConcurrentRefreshSingleWinner(t *testing.T) {
	t.Parallel()

	env := newTestEnv(t)
	ctx := context.Background()
	env.register(t, "alice")
	pair := env.login(t, "alice")

	// Race the same refresh token from several goroutines. The stored-hash
	// compare-and-swap must let at most one rotation through; every loser
	// has to surface a clean rejection, never a second valid pair.
	const attempts = 4

	var wg sync.WaitGroup
	results := make(chan error, attempts)
	start := make(chan struct{})

	for i := 0; i < attempts; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			<-start
			_, err := env.sessions.Refresh(ctx, pair.RefreshToken)
			results <- err
		}()
	}
	close(start)
	wg.Wait()
	close(results)

	var wins, losses int
	for err := range results {
		switch {
		case err == nil:
			wins++
		case errors.Is(err, ErrRefreshReuse) || errors.Is(err, ErrUnauthorized):
			losses++
		default:
			t.Fatalf("unexpected refresh error: %v", err)
		}
	}
	require.LessOrEqual(t, wins, 1)
	require.Equal(t, attempts, wins+losses)
}

func TestRefreshRejectsNonRefreshTokens(t *testing.T) {
	t.Parallel()

	env := newTestEnv(t)
	ctx := context.Background()
	env.register(t, "alice")
	pair := env.login(t, "alice")

	// An access token can never drive the refresh endpoint.
	_, err := env.sessions.Refresh(ctx, pair.AccessToken)
	require.ErrorIs(t, err, ErrUnauthorized)

	_, err = env.sessions.Refresh(ctx, "garbage")
	require.ErrorIs(t, err, ErrUnauthorized)
}

func TestRefreshRejectsRevokedSession(t *testing.T) {
	t.Parallel()

	env := newTestEnv(t)
	ctx := context.Background()
	env.register(t, "alice")
	pair := env.login(t, "alice")

	require.NoError(t, env.sessions.RevokeSession(ctx, "", pair.SessionID))

	_, err := env.sessions.Refresh(ctx, pair.RefreshToken)
	require.ErrorIs(t, err, ErrUnauthorized)
}

func TestRefreshPicksUpRoleChanges(t *testing.T) {
	t.Parallel()

	env := newTestEnv(t)
	ctx := context.Background()
	user := env.register(t, "alice")
	pair := env.login(t, "alice")

	// Promote to admin mid-session.
	require.NoError(t, env.store.RoleAssignments().Upsert(ctx,
		rbac.DefaultAssignment(user.ID, rbac.StaticRoleAdminID, time.Now())))

	rotated, err := env.sessions.Refresh(ctx, pair.RefreshToken)
	require.NoError(t, err)

	claims, err := env.tokens.Verify(rotated.AccessToken)
	require.NoError(t, err)
	require.Contains(t, claims.Permissions, rbac.PermUsersAll)
}

func TestLogout(t *testing.T) {
	t.Parallel()

	env := newTestEnv(t)
	ctx := context.Background()
	env.register(t, "alice")
	pair := env.login(t, "alice")

	require.NoError(t, env.sessions.Logout(ctx, pair.RefreshToken))

	_, err := env.sessions.Refresh(ctx, pair.RefreshToken)
	require.ErrorIs(t, err, ErrUnauthorized)

	t.Run("access token is not logout proof", func(t *testing.T) {
		other := env.login(t, "alice")
		require.ErrorIs(t, env.sessions.Logout(ctx, other.AccessToken), ErrUnauthorized)
	})
}

func TestValidateSession(t *testing.T) {
	t.Parallel()

	env := newTestEnv(t)
	ctx := context.Background()
	user := env.register(t, "alice")
	pair := env.login(t, "alice")

	session, err := env.sessions.ValidateSession(ctx, pair.SessionID)
	require.NoError(t, err)
	require.Equal(t, user.ID, session.UserID)

	t.Run("unknown session", func(t *testing.T) {
		_, err := env.sessions.ValidateSession(ctx, "no-such-session")
		require.ErrorIs(t, err, ErrNotFound)
	})

	t.Run("revoked session", func(t *testing.T) {
		require.NoError(t, env.sessions.RevokeSession(ctx, user.ID, pair.SessionID))
		_, err := env.sessions.ValidateSession(ctx, pair.SessionID)
		require.ErrorIs(t, err, ErrUnauthorized)
	})
}

func TestSessionListingAndRevocation(t *testing.T) {
	t.Parallel()

	env := newTestEnv(t)
	ctx := context.Background()
	alice := env.register(t, "alice")
	bob := env.register(t, "bob")

	first := env.login(t, "alice")
	second := env.login(t, "alice")
	env.login(t, "bob")

	sessions, err := env.sessions.ListSessions(ctx, alice.ID)
	require.NoError(t, err)
	require.Len(t, sessions, 2)

	t.Run("foreign session reads as not found", func(t *testing.T) {
		err := env.sessions.RevokeSession(ctx, bob.ID, first.SessionID)
		require.ErrorIs(t, err, ErrNotFound)
	})

	t.Run("revoke all except current", func(t *testing.T) {
		revoked, err := env.sessions.RevokeAllExceptCurrent(ctx, alice.ID, second.SessionID)
		require.NoError(t, err)
		require.EqualValues(t, 1, revoked)

		remaining, err := env.sessions.ListSessions(ctx, alice.ID)
		require.NoError(t, err)
		require.Len(t, remaining, 1)
		require.Equal(t, second.SessionID, remaining[0].ID)
	})
}
