package cryptox

import (
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestGenerateToken(t *testing.T) {
	t.Parallel()

	a, err := GenerateToken(TokenSize256)
	require.NoError(t, err)
	b, err := GenerateToken(TokenSize256)
	require.NoError(t, err)

	require.Len(t, a, 43)
	require.NotEqual(t, a, b)

	_, err = GenerateToken(0)
	require.Error(t, err)
}

func TestGenerateChallenge(t *testing.T) {
	t.Parallel()

	a, err := GenerateChallenge(32)
	require.NoError(t, err)
	require.Len(t, a, 32)

	b, err := GenerateChallenge(32)
	require.NoError(t, err)
	require.NotEqual(t, a, b)

	_, err = GenerateChallenge(-1)
	require.Error(t, err)
}

func TestFingerprintToken(t *testing.T) {
	t.Parallel()

	fp := FingerprintToken("some-refresh-token")
	require.Len(t, fp, 43)
	require.Equal(t, fp, FingerprintToken("some-refresh-token"))
	require.NotEqual(t, fp, FingerprintToken("some-other-token"))
}

func TestPasswordHashing(t *testing.T) {
	SetPepperPath(filepath.Join(t.TempDir(), "pepper"))

	const password = "correct horse battery staple"

	hash, err := HashPassword(password)
	require.NoError(t, err)
	require.Contains(t, hash, "$argon2id$v=19$")

	require.NoError(t, VerifyPassword(password, hash))
	require.Error(t, VerifyPassword("wrong password", hash))

	t.Run("salts differ per hash", func(t *testing.T) {
		again, err := HashPassword(password)
		require.NoError(t, err)
		require.NotEqual(t, hash, again)
		require.NoError(t, VerifyPassword(password, again))
	})

	t.Run("malformed hashes are rejected", func(t *testing.T) {
		require.Error(t, VerifyPassword(password, "not-a-hash"))
		require.Error(t, VerifyPassword(password, "$argon2i$v=19$m=1,t=1,p=1$AAAA$AAAA"))
	})
}
