package service

import (
	"context"
	"fmt"
	"slices"
	"time"

	"github.com/aussiebroadwan/passport/internal/identity/rbac"
	"github.com/aussiebroadwan/passport/pkg/jwtx"
	"github.com/aussiebroadwan/passport/pkg/slogx"
)

// TokenService owns claim construction and signing for all three token
// families. Session/refresh lifecycle lives in SessionManager; this service
// only knows how to mint and transform tokens.
type TokenService struct {
	KeyManager *jwtx.KeyManager
	Issuer     string
	Audience   []string
	AccessTTL  time.Duration
	RefreshTTL time.Duration
}

// SignAccess mints an access token bound to a login session. Refresh grants
// are stripped unconditionally: only refresh tokens may carry them.
func (s *TokenService) SignAccess(
	userID, sessionID string,
	permissions []string,
	now time.Time,
) (string, error) {
	claims := jwtx.NewClaims(
		userID,
		jwtx.TokenTypeAccess,
		sessionID,
		rbac.WithoutRefresh(permissions),
		nil,
		s.AccessTTL,
		s.Issuer,
		s.Audience,
		now,
	)
	return s.KeyManager.GetSigner().Sign(claims)
}

// SignRefresh mints a refresh token for a session. It carries exactly one
// permission: the refresh grant scoped to its own subject.
func (s *TokenService) SignRefresh(userID, sessionID string, now time.Time) (string, error) {
	claims := jwtx.NewClaims(
		userID,
		jwtx.TokenTypeRefresh,
		sessionID,
		[]string{rbac.RefreshPermission(userID)},
		nil,
		s.RefreshTTL,
		s.Issuer,
		s.Audience,
		now,
	)
	return s.KeyManager.GetSigner().Sign(claims)
}

// SignAPIKey mints a long-lived api_key token with a frozen permission
// snapshot. No session binding; extra carries the grant id for revocation
// checks.
func (s *TokenService) SignAPIKey(
	ownerID string,
	permissions []string,
	extra map[string]string,
	ttl time.Duration,
	now time.Time,
) (string, error) {
	claims := jwtx.NewClaims(
		ownerID,
		jwtx.TokenTypeAPIKey,
		"", // api keys have no session
		rbac.WithoutRefresh(permissions),
		extra,
		ttl,
		s.Issuer,
		s.Audience,
		now,
	)
	return s.KeyManager.GetSigner().Sign(claims)
}

// Verify checks signature, issuer, audience and expiry.
func (s *TokenService) Verify(token string) (jwtx.Claims, error) {
	return s.KeyManager.Verifier.Verify(token)
}

// Decode parses claims without verifying the signature. Debug/introspection
// only; never make an authorization decision off this.
func (s *TokenService) Decode(token string) (jwtx.Claims, error) {
	return jwtx.Decode(token)
}

// Mutation describes a claim transformation applied by Mutate.
type Mutation struct {
	// AddPermissions entries must either be deny overlays or already be
	// authorised by the token's current set; a mutation can narrow or
	// annotate, never escalate.
	AddPermissions    []string
	RemovePermissions []string

	SetExtra    map[string]string
	RemoveExtra []string

	// TTL, when positive, sets the derived token's lifetime. It is capped
	// at the source token's remaining lifetime; a mutation can shorten an
	// expiry but never extend it.
	TTL time.Duration
}

// Mutate derives a new token from an existing one with the mutation applied.
// Identity, token type, session binding and the original expiry all carry
// over; only the jti is fresh. Refresh tokens cannot be mutated.
func (s *TokenService) Mutate(ctx context.Context, token string, mut Mutation) (string, error) {
	claims, err := s.Verify(token)
	if err != nil {
		return "", fmt.Errorf("%w: %v", ErrUnauthorized, err)
	}

	if claims.TokenType == jwtx.TokenTypeRefresh {
		return "", fmt.Errorf("%w: refresh tokens cannot be mutated", ErrForbidden)
	}

	perms := slices.Clone(claims.Permissions)

	for _, add := range mut.AddPermissions {
		if slices.Contains(perms, add) {
			continue
		}
		if _, isDeny := rbac.IsDeny(add); !isDeny && !rbac.Allowed(perms, add) {
			slogx.FromContext(ctx).Warn("token mutation rejected, would escalate",
				"subject", claims.Subject, "permission", add)
			return "", fmt.Errorf("%w: permission %q not covered by token", ErrForbidden, add)
		}
		perms = append(perms, add)
	}

	for _, rm := range mut.RemovePermissions {
		perms = slices.DeleteFunc(perms, func(p string) bool { return p == rm })
	}

	extra := map[string]string{}
	for k, v := range claims.Extra {
		extra[k] = v
	}
	for k, v := range mut.SetExtra {
		extra[k] = v
	}
	for _, k := range mut.RemoveExtra {
		delete(extra, k)
	}
	if len(extra) == 0 {
		extra = nil
	}

	now := time.Now()
	remaining := time.Until(claims.ExpiresAt.Time)
	if remaining <= 0 {
		return "", ErrUnauthorized
	}
	if mut.TTL > 0 && mut.TTL < remaining {
		remaining = mut.TTL
	}

	derived := jwtx.NewClaims(
		claims.Subject,
		claims.TokenType,
		claims.SID,
		perms,
		extra,
		remaining,
		s.Issuer,
		s.Audience,
		now,
	)
	return s.KeyManager.GetSigner().Sign(derived)
}
