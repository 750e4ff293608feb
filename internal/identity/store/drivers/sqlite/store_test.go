package sqlite

import (
	"context"
	"testing"
	"time"

	"github.com/aussiebroadwan/passport/internal/identity/domain"
	"github.com/aussiebroadwan/passport/internal/identity/store"
	"github.com/aussiebroadwan/passport/pkg/idx"
	"github.com/stretchr/testify/require"
)

func newTestStore(t *testing.T) store.Store {
	t.Helper()

	st, err := NewStore(":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { _ = st.Close() })
	require.NoError(t, st.ApplyMigrations())
	return st
}

func createUser(t *testing.T, st store.Store, username string) domain.User {
	t.Helper()

	now := time.Now()
	user := domain.User{
		ID:           idx.New().String(),
		Username:     username,
		PasswordHash: "argon2id$fake",
		CreatedAt:    now,
		UpdatedAt:    now,
	}
	require.NoError(t, st.Users().Create(context.Background(), user))
	return user
}

func createSession(t *testing.T, st store.Store, userID, hash string) domain.LoginSession {
	t.Helper()

	now := time.Now()
	session := domain.LoginSession{
		ID:               idx.New().String(),
		UserID:           userID,
		RefreshTokenHash: hash,
		DeviceName:       "laptop",
		CreatedAt:        now,
		LastUsedAt:       now,
		ExpiresAt:        now.Add(time.Hour),
	}
	require.NoError(t, st.Sessions().Create(context.Background(), session))
	return session
}

func TestUsersUniqueUsername(t *testing.T) {
	t.Parallel()

	st := newTestStore(t)
	ctx := context.Background()
	createUser(t, st, "alice")

	dup := domain.User{
		ID:           idx.New().String(),
		Username:     "alice",
		PasswordHash: "argon2id$fake",
		CreatedAt:    time.Now(),
		UpdatedAt:    time.Now(),
	}
	require.ErrorIs(t, st.Users().Create(ctx, dup), store.ErrAlreadyExists)

	_, err := st.Users().GetByUsername(ctx, "nobody")
	require.ErrorIs(t, err, store.ErrNotFound)
}

func TestSessionsRotateHashCAS(t *testing.T) {
	t.Parallel()

	st := newTestStore(t)
	ctx := context.Background()
	user := createUser(t, st, "alice")
	session := createSession(t, st, user.ID, "hash-1")
	now := time.Now()

	t.Run("swap succeeds when the hash matches", func(t *testing.T) {
		ok, err := st.Sessions().RotateHash(ctx, session.ID, "hash-1", "hash-2",
			now.Add(time.Hour), now)
		require.NoError(t, err)
		require.True(t, ok)

		got, err := st.Sessions().GetByID(ctx, session.ID)
		require.NoError(t, err)
		require.Equal(t, "hash-2", got.RefreshTokenHash)
	})

	t.Run("stale hash loses the swap", func(t *testing.T) {
		ok, err := st.Sessions().RotateHash(ctx, session.ID, "hash-1", "hash-3",
			now.Add(time.Hour), now)
		require.NoError(t, err)
		require.False(t, ok)

		// The stored hash is untouched.
		got, err := st.Sessions().GetByID(ctx, session.ID)
		require.NoError(t, err)
		require.Equal(t, "hash-2", got.RefreshTokenHash)
	})

	t.Run("revoked session refuses the swap", func(t *testing.T) {
		flipped, err := st.Sessions().Revoke(ctx, session.ID, now)
		require.NoError(t, err)
		require.True(t, flipped)

		ok, err := st.Sessions().RotateHash(ctx, session.ID, "hash-2", "hash-3",
			now.Add(time.Hour), now)
		require.NoError(t, err)
		require.False(t, ok)
	})
}

func TestSessionsRevokeIsIdempotent(t *testing.T) {
	t.Parallel()

	st := newTestStore(t)
	ctx := context.Background()
	user := createUser(t, st, "alice")
	session := createSession(t, st, user.ID, "hash-1")
	now := time.Now()

	flipped, err := st.Sessions().Revoke(ctx, session.ID, now)
	require.NoError(t, err)
	require.True(t, flipped)

	flipped, err = st.Sessions().Revoke(ctx, session.ID, now)
	require.NoError(t, err)
	require.False(t, flipped)

	flipped, err = st.Sessions().Revoke(ctx, "no-such-session", now)
	require.NoError(t, err)
	require.False(t, flipped)

	got, err := st.Sessions().GetByID(ctx, session.ID)
	require.NoError(t, err)
	require.True(t, got.Revoked)
	require.NotNil(t, got.RevokedAt)
}

func TestSessionsRevokeAllExcept(t *testing.T) {
	t.Parallel()

	st := newTestStore(t)
	ctx := context.Background()
	user := createUser(t, st, "alice")
	other := createUser(t, st, "bob")

	keep := createSession(t, st, user.ID, "hash-keep")
	createSession(t, st, user.ID, "hash-a")
	createSession(t, st, user.ID, "hash-b")
	foreign := createSession(t, st, other.ID, "hash-c")

	n, err := st.Sessions().RevokeAllExcept(ctx, user.ID, keep.ID, time.Now())
	require.NoError(t, err)
	require.EqualValues(t, 2, n)

	active, err := st.Sessions().GetActiveByUserID(ctx, user.ID)
	require.NoError(t, err)
	require.Len(t, active, 1)
	require.Equal(t, keep.ID, active[0].ID)

	// Another user's sessions are untouched.
	got, err := st.Sessions().GetByID(ctx, foreign.ID)
	require.NoError(t, err)
	require.False(t, got.Revoked)
}

func TestWithTxRollsBackOnError(t *testing.T) {
	t.Parallel()

	st := newTestStore(t)
	ctx := context.Background()

	user := domain.User{
		ID:           idx.New().String(),
		Username:     "alice",
		PasswordHash: "argon2id$fake",
		CreatedAt:    time.Now(),
		UpdatedAt:    time.Now(),
	}

	boom := context.DeadlineExceeded // any sentinel will do
	err := st.WithTx(ctx, func(tx store.Tx) error {
		if err := tx.Users().Create(ctx, user); err != nil {
			return err
		}
		return boom
	})
	require.ErrorIs(t, err, boom)

	_, err = st.Users().GetByID(ctx, user.ID)
	require.ErrorIs(t, err, store.ErrNotFound)
}

func TestUserDeleteCascades(t *testing.T) {
	t.Parallel()

	st := newTestStore(t)
	ctx := context.Background()
	user := createUser(t, st, "alice")
	session := createSession(t, st, user.ID, "hash-1")

	require.NoError(t, st.RoleAssignments().Upsert(ctx, domain.RoleAssignment{
		UserID:    user.ID,
		RoleID:    "static-member",
		Params:    map[string]string{"userId": user.ID},
		CreatedAt: time.Now(),
		UpdatedAt: time.Now(),
	}))

	require.NoError(t, st.Users().Delete(ctx, user.ID))

	_, err := st.Sessions().GetByID(ctx, session.ID)
	require.ErrorIs(t, err, store.ErrNotFound)

	assignments, err := st.RoleAssignments().ListByUser(ctx, user.ID)
	require.NoError(t, err)
	require.Empty(t, assignments)
}

func TestApiKeyGrantLifecycle(t *testing.T) {
	t.Parallel()

	st := newTestStore(t)
	ctx := context.Background()
	user := createUser(t, st, "alice")
	other := createUser(t, st, "bob")
	now := time.Now()

	expires := now.Add(time.Hour)
	grant := domain.ApiKeyGrant{
		ID:          idx.New().String(),
		OwnerUserID: user.ID,
		Name:        "ci-bot",
		Permissions: []string{"api:users:read;userId=" + user.ID, "deny;api:auth:refresh*"},
		ExpiresAt:   &expires,
		CreatedAt:   now,
	}
	require.NoError(t, st.ApiKeyGrants().Create(ctx, grant))

	got, err := st.ApiKeyGrants().GetByID(ctx, grant.ID)
	require.NoError(t, err)
	require.Equal(t, grant.Permissions, got.Permissions)

	count, err := st.ApiKeyGrants().CountLiveByOwner(ctx, user.ID, now)
	require.NoError(t, err)
	require.Equal(t, 1, count)

	t.Run("revoke is owner scoped", func(t *testing.T) {
		ok, err := st.ApiKeyGrants().Revoke(ctx, other.ID, grant.ID, now)
		require.NoError(t, err)
		require.False(t, ok)

		ok, err = st.ApiKeyGrants().Revoke(ctx, user.ID, grant.ID, now)
		require.NoError(t, err)
		require.True(t, ok)

		// Second revoke is a no-op.
		ok, err = st.ApiKeyGrants().Revoke(ctx, user.ID, grant.ID, now)
		require.NoError(t, err)
		require.False(t, ok)
	})

	count, err = st.ApiKeyGrants().CountLiveByOwner(ctx, user.ID, now)
	require.NoError(t, err)
	require.Zero(t, count)
}

func TestChallengesAreDeletable(t *testing.T) {
	t.Parallel()

	st := newTestStore(t)
	ctx := context.Background()
	user := createUser(t, st, "alice")
	now := time.Now()

	challenge := domain.PasskeyChallenge{
		ID:        idx.New().String(),
		Challenge: []byte("0123456789abcdef0123456789abcdef"),
		UserID:    user.ID,
		Type:      domain.ChallengeRegistration,
		CreatedAt: now,
		ExpiresAt: now.Add(5 * time.Minute),
	}
	require.NoError(t, st.PasskeyChallenges().Create(ctx, challenge))

	got, err := st.PasskeyChallenges().GetByID(ctx, challenge.ID)
	require.NoError(t, err)
	require.Equal(t, challenge.Challenge, got.Challenge)

	require.NoError(t, st.PasskeyChallenges().Delete(ctx, challenge.ID))
	_, err = st.PasskeyChallenges().GetByID(ctx, challenge.ID)
	require.ErrorIs(t, err, store.ErrNotFound)

	t.Run("expired sweep", func(t *testing.T) {
		stale := challenge
		stale.ID = idx.New().String()
		stale.ExpiresAt = now.Add(-time.Minute)
		require.NoError(t, st.PasskeyChallenges().Create(ctx, stale))

		n, err := st.PasskeyChallenges().DeleteExpired(ctx, now)
		require.NoError(t, err)
		require.EqualValues(t, 1, n)
	})
}
