package service

import (
	"context"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/aussiebroadwan/passport/internal/identity/domain"
	"github.com/aussiebroadwan/passport/internal/identity/rbac"
	"github.com/aussiebroadwan/passport/internal/identity/store"
	"github.com/aussiebroadwan/passport/internal/identity/store/drivers/sqlite"
	"github.com/aussiebroadwan/passport/pkg/cryptox"
	"github.com/aussiebroadwan/passport/pkg/jwtx"
	"github.com/stretchr/testify/require"
)

const testPassword = "correct horse battery staple"

var pepperOnce sync.Once

type testEnv struct {
	store    store.Store
	keys     *jwtx.KeyManager
	tokens   *TokenService
	sessions *SessionManager
	users    *UserService
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()

	pepperOnce.Do(func() {
		cryptox.SetPepperPath(filepath.Join(t.TempDir(), "pepper"))
	})

	st, err := sqlite.NewStore(":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { _ = st.Close() })
	require.NoError(t, st.ApplyMigrations())

	keys, err := jwtx.NewEphemeralKeyManager(jwtx.KeyManagerOptions{
		Issuer:  "test-issuer",
		NumKeys: 1,
	})
	require.NoError(t, err)

	tokens := &TokenService{
		KeyManager: keys,
		Issuer:     "test-issuer",
		AccessTTL:  time.Minute,
		RefreshTTL: time.Hour,
	}
	sessions := &SessionManager{
		Store:   st,
		Tokens:  tokens,
		Catalog: rbac.Default(),
	}
	users := &UserService{
		Store:    st,
		Sessions: sessions,
	}

	return &testEnv{
		store:    st,
		keys:     keys,
		tokens:   tokens,
		sessions: sessions,
		users:    users,
	}
}

// register creates a member account and returns it.
func (e *testEnv) register(t *testing.T, username string) domain.User {
	t.Helper()

	user, err := e.users.Register(context.Background(), username, testPassword)
	require.NoError(t, err)
	return user
}

// login starts a password session for a registered user.
func (e *testEnv) login(t *testing.T, username string) *domain.TokenPair {
	t.Helper()

	pair, err := e.sessions.Login(context.Background(), username, testPassword, "", domain.DeviceInfo{})
	require.NoError(t, err)
	return pair
}
