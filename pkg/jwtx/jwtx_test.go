package jwtx

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func newTestManager(t *testing.T, issuer string, aud []string) *KeyManager {
	t.Helper()

	km, err := NewEphemeralKeyManager(KeyManagerOptions{
		Issuer:   issuer,
		Audience: aud,
		NumKeys:  2,
	})
	require.NoError(t, err)
	return km
}

func TestSignAndVerifyRoundTrip(t *testing.T) {
	t.Parallel()

	km := newTestManager(t, "test-issuer", nil)

	claims := NewClaims("user-1", TokenTypeAccess, "sess-1",
		[]string{"api:users:read;userId=user-1"},
		map[string]string{"device": "laptop"},
		time.Minute, "test-issuer", nil, time.Now())

	token, err := km.GetSigner().Sign(claims)
	require.NoError(t, err)

	got, err := km.Verifier.Verify(token)
	require.NoError(t, err)
	require.Equal(t, "user-1", got.Subject)
	require.Equal(t, TokenTypeAccess, got.TokenType)
	require.Equal(t, "sess-1", got.SID)
	require.Equal(t, []string{"api:users:read;userId=user-1"}, got.Permissions)
	require.Equal(t, "laptop", got.Extra["device"])
	require.NotEmpty(t, got.ID)
}

func TestVerifyRejectsForeignKey(t *testing.T) {
	t.Parallel()

	km := newTestManager(t, "test-issuer", nil)
	other := newTestManager(t, "test-issuer", nil)

	claims := NewClaims("user-1", TokenTypeAccess, "", nil, nil,
		time.Minute, "test-issuer", nil, time.Now())

	token, err := other.GetSigner().Sign(claims)
	require.NoError(t, err)

	// Signed by a key the verifier has never seen: unknown kid.
	_, err = km.Verifier.Verify(token)
	require.ErrorIs(t, err, ErrUnknownKID)
}

func TestVerifyRejectsWrongIssuer(t *testing.T) {
	t.Parallel()

	km := newTestManager(t, "expected-issuer", nil)

	claims := NewClaims("user-1", TokenTypeAccess, "", nil, nil,
		time.Minute, "some-other-issuer", nil, time.Now())

	token, err := km.GetSigner().Sign(claims)
	require.NoError(t, err)

	_, err = km.Verifier.Verify(token)
	require.ErrorIs(t, err, ErrIssuer)
}

func TestVerifyRejectsWrongAudience(t *testing.T) {
	t.Parallel()

	km := newTestManager(t, "iss", []string{"svc-a"})

	claims := NewClaims("user-1", TokenTypeAccess, "", nil, nil,
		time.Minute, "iss", []string{"svc-b"}, time.Now())

	token, err := km.GetSigner().Sign(claims)
	require.NoError(t, err)

	_, err = km.Verifier.Verify(token)
	require.ErrorIs(t, err, ErrAudience)
}

func TestVerifyRejectsExpired(t *testing.T) {
	t.Parallel()

	km := newTestManager(t, "iss", nil)

	claims := NewClaims("user-1", TokenTypeAccess, "", nil, nil,
		time.Minute, "iss", nil, time.Now().Add(-2*time.Minute))

	token, err := km.GetSigner().Sign(claims)
	require.NoError(t, err)

	_, err = km.Verifier.Verify(token)
	require.Error(t, err)
}

func TestVerifySignatureOnlyAcceptsExpired(t *testing.T) {
	t.Parallel()

	km := newTestManager(t, "iss", nil)

	claims := NewClaims("user-1", TokenTypeRefresh, "sess-1", nil, nil,
		time.Minute, "iss", nil, time.Now().Add(-2*time.Minute))

	token, err := km.GetSigner().Sign(claims)
	require.NoError(t, err)

	got, err := km.Verifier.VerifySignatureOnly(token)
	require.NoError(t, err)
	require.Equal(t, "sess-1", got.SID)

	// Issuer is still enforced.
	bad := NewClaims("user-1", TokenTypeRefresh, "sess-1", nil, nil,
		time.Minute, "who", nil, time.Now())
	badToken, err := km.GetSigner().Sign(bad)
	require.NoError(t, err)

	_, err = km.Verifier.VerifySignatureOnly(badToken)
	require.ErrorIs(t, err, ErrIssuer)
}

func TestDecodeIsUnverified(t *testing.T) {
	t.Parallel()

	km := newTestManager(t, "iss", nil)

	claims := NewClaims("user-1", TokenTypeAPIKey, "", []string{"a"}, nil,
		time.Minute, "iss", nil, time.Now())
	token, err := km.GetSigner().Sign(claims)
	require.NoError(t, err)

	got, err := Decode(token)
	require.NoError(t, err)
	require.Equal(t, "user-1", got.Subject)

	_, err = Decode("not-a-token")
	require.ErrorIs(t, err, ErrMalformed)
}

func TestPublicJWKS(t *testing.T) {
	t.Parallel()

	km := newTestManager(t, "iss", nil)

	jwks := km.KeySet.PublicJWKS()
	require.Len(t, jwks.Keys, 2)

	for _, k := range jwks.Keys {
		require.Equal(t, "OKP", k.Kty)
		require.Equal(t, "Ed25519", k.Crv)
		require.Equal(t, "EdDSA", k.Alg)
		require.Equal(t, "sig", k.Use)
		require.NotEmpty(t, k.Kid)
		require.NotEmpty(t, k.X)
	}

	// Sorted by kid for stable output.
	require.LessOrEqual(t, jwks.Keys[0].Kid, jwks.Keys[1].Kid)
}
