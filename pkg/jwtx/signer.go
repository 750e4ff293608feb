package jwtx

import (
	"crypto/ed25519"
	"crypto/rand"
	"encoding/base64"
	"errors"
	"fmt"

	"github.com/golang-jwt/jwt/v5"
)

// Signer is anything that can sign Claims into a compact JWT.
type Signer interface {
	KID() string
	Sign(Claims) (string, error)
	Public() ed25519.PublicKey
}

// edDSASigner signs tokens with Ed25519. We standardised on EdDSA: small
// keys, fast verification, no parameter choices to get wrong.
type edDSASigner struct {
	kid string
	key ed25519.PrivateKey
	pub ed25519.PublicKey
}

// NewEphemeralSigner generates a fresh in-memory Ed25519 signing key. The
// key is never persisted, so all tokens are invalidated on restart.
func NewEphemeralSigner(kid string) (Signer, error) {
	if kid == "" {
		return nil, errors.New("jwtx: kid is required")
	}

	pub, priv, err := ed25519.GenerateKey(rand.Reader)
	if err != nil {
		return nil, fmt.Errorf("jwtx: generate ed25519 key: %w", err)
	}

	return &edDSASigner{kid: kid, key: priv, pub: pub}, nil
}

// NewSignerFromKey wraps an existing Ed25519 private key. Used by tests that
// need deterministic keys.
func NewSignerFromKey(kid string, key ed25519.PrivateKey) (Signer, error) {
	if kid == "" {
		return nil, errors.New("jwtx: kid is required")
	}
	if len(key) != ed25519.PrivateKeySize {
		return nil, errors.New("jwtx: invalid Ed25519 private key size")
	}

	return &edDSASigner{
		kid: kid,
		key: key,
		pub: key.Public().(ed25519.PublicKey),
	}, nil
}

func (s *edDSASigner) KID() string { return s.kid }

// Sign turns the claims into a signed compact JWT with the kid header set.
func (s *edDSASigner) Sign(claims Claims) (string, error) {
	t := jwt.NewWithClaims(jwt.SigningMethodEdDSA, claims)
	t.Header["kid"] = s.kid
	return t.SignedString(s.key)
}

func (s *edDSASigner) Public() ed25519.PublicKey { return s.pub }

// generateKID returns a short random key identifier.
func generateKID() (string, error) {
	var b [8]byte
	if _, err := rand.Read(b[:]); err != nil {
		return "", err
	}
	return base64.RawURLEncoding.EncodeToString(b[:]), nil
}
