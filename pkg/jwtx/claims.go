package jwtx

import (
	"crypto/rand"
	"encoding/base64"
	"slices"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// Token type discriminator values for the "token_type" claim. The three
// token families are structurally disjoint: a refresh token presented as a
// bearer credential, or an access token presented to the refresh endpoint,
// is rejected on this claim alone.
const (
	TokenTypeAccess  = "access"
	TokenTypeRefresh = "refresh"
	TokenTypeAPIKey  = "api_key"
)

// Claims are the claims embedded in every token this service signs. We keep
// changes additive to preserve compatibility for downstream verifiers.
type Claims struct {
	jwt.RegisteredClaims

	/* Cross-service custom fields */

	// TokenType discriminates access / refresh / api_key tokens.
	TokenType string `json:"token_type,omitempty"`

	// SID is the login session this token is bound to. Empty for API keys,
	// which have no session binding.
	SID string `json:"sid,omitempty"`

	// Permissions granted to the bearer, e.g. "api:users:read;userId=01ABC".
	// Entries prefixed "deny;" are deny overlays and remove matching
	// permissions when the effective set is computed.
	Permissions []string `json:"perms,omitempty"`

	// Extra carries flat string claims that don't warrant their own field
	// (api-key grant ids, device hints). Kept as strings so Mutate can do
	// set operations without reflection.
	Extra map[string]string `json:"extra,omitempty"`
}

// NewClaims builds minimally-correct claims for the given token family.
func NewClaims(
	subject, tokenType, sid string,
	permissions []string,
	extra map[string]string,
	ttl time.Duration,
	issuer string,
	audience []string,
	now time.Time,
) Claims {
	return Claims{
		RegisteredClaims: jwt.RegisteredClaims{
			Issuer:    issuer,
			Subject:   subject,
			Audience:  jwt.ClaimStrings(audience),
			IssuedAt:  jwt.NewNumericDate(now),
			NotBefore: jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
			ID:        NewJTI(),
		},
		TokenType:   tokenType,
		SID:         sid,
		Permissions: permissions,
		Extra:       extra,
	}
}

// NewJTI returns a URL-safe random identifier for the "jti" claim.
func NewJTI() string {
	var b [20]byte
	_, _ = rand.Read(b[:])
	return base64.RawURLEncoding.EncodeToString(b[:])
}

// HasPermission reports whether the claims carry the exact permission string.
// Wildcard and deny-overlay semantics live in the rbac package; this is the
// raw membership check.
func (c *Claims) HasPermission(perm string) bool {
	return slices.Contains(c.Permissions, perm)
}

// ValidateIssuer checks if the issuer matches expected value.
func (c *Claims) ValidateIssuer(expected string) error {
	if expected == "" {
		return nil // nothing to enforce
	}

	if c.Issuer != expected {
		return ErrIssuer
	}

	return nil
}

// ValidateAudience checks if at least one expected audience is present.
func (c *Claims) ValidateAudience(expected []string) error {
	if len(expected) == 0 {
		return nil // nothing to enforce
	}

	for _, want := range expected {
		if slices.Contains(c.Audience, want) {
			return nil
		}
	}

	return ErrAudience
}

// ValidateExpiry ensures the token hasn't expired (exp) and isn't before nbf.
func (c *Claims) ValidateExpiry() error {
	now := time.Now().UTC()

	if c.ExpiresAt != nil && now.After(c.ExpiresAt.Time) {
		return ErrExpired
	}

	if c.NotBefore != nil && now.Before(c.NotBefore.Time) {
		return ErrNotYetValid
	}

	return nil
}

// ValidateExpiryWithLeeway adds a small grace period for clock skew.
func (c *Claims) ValidateExpiryWithLeeway(leeway time.Duration) error {
	now := time.Now().UTC()

	if c.ExpiresAt != nil && now.After(c.ExpiresAt.Add(leeway)) {
		return ErrExpired
	}

	if c.NotBefore != nil && now.Before(c.NotBefore.Add(-leeway)) {
		return ErrNotYetValid
	}

	return nil
}
