package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/aussiebroadwan/passport/internal/identity/domain"
	"github.com/aussiebroadwan/passport/internal/identity/rbac"
	"github.com/aussiebroadwan/passport/internal/identity/store"
	"github.com/aussiebroadwan/passport/pkg/idx"
	"github.com/aussiebroadwan/passport/pkg/jwtx"
	"github.com/aussiebroadwan/passport/pkg/slogx"
)

// defaultApiKeyTTL applies when neither the request nor the issuer config
// picks a lifetime.
const (
	defaultApiKeyTTL    = 90 * 24 * time.Hour
	maxApiKeyNameLength = 100
)

// apiKeyDenies is stamped into every api-key token. Keys can never manage
// other keys and can never refresh, no matter what the owner could do.
var apiKeyDenies = []string{
	rbac.Deny(rbac.PermAPIKeysCreate),
	rbac.Deny(rbac.PermAPIKeysList),
	rbac.Deny(rbac.PermAPIKeysRevoke),
	rbac.Deny(rbac.RefreshPrefix + "*"),
}

// ApiKeyIssuer mints and revokes scoped api-key tokens. The permission set
// is a point-in-time snapshot of (a subset of) the owner's permissions;
// later role changes don't touch existing keys, only revocation does.
type ApiKeyIssuer struct {
	Store    store.Store
	Tokens   *TokenService
	Resolver *rbac.Resolver

	// DefaultTTL applies when a create request doesn't pick a lifetime.
	DefaultTTL time.Duration

	// MaxLivePerOwner caps non-revoked, non-expired grants per owner.
	// Zero means no cap.
	MaxLivePerOwner int
}

// CreateKey mints an api-key token for ownerID. The owner's effective
// permission set is resolved fresh here, never taken from the caller's
// token: an access token minted before a role change must not snapshot
// grants the owner no longer holds. Every requested permission must be
// authorised by that live set; deny overlays may always be requested since
// they only narrow. An empty request snapshots the full current set.
// Returns the signed token and the grant row backing it.
func (s *ApiKeyIssuer) CreateKey(
	ctx context.Context,
	ownerID string,
	name string,
	requested []string,
	ttl time.Duration,
) (string, domain.ApiKeyGrant, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return "", domain.ApiKeyGrant{}, fmt.Errorf("%w: key name required", ErrValidation)
	}
	if len(name) > maxApiKeyNameLength {
		return "", domain.ApiKeyGrant{}, fmt.Errorf("%w: key name exceeds %d characters", ErrValidation, maxApiKeyNameLength)
	}
	if ttl < 0 {
		return "", domain.ApiKeyGrant{}, fmt.Errorf("%w: expiry must be in the future", ErrValidation)
	}

	ownerPerms, err := s.Resolver.Resolve(ctx, ownerID)
	if err != nil {
		return "", domain.ApiKeyGrant{}, err
	}

	if len(requested) == 0 {
		requested = rbac.WithoutRefresh(ownerPerms)
	}
	if len(requested) == 0 {
		return "", domain.ApiKeyGrant{}, fmt.Errorf("%w: owner has no permissions to snapshot", ErrValidation)
	}

	for _, perm := range requested {
		if _, isDeny := rbac.IsDeny(perm); isDeny {
			continue
		}
		if rbac.IsRefreshPermission(perm) || !rbac.Allowed(ownerPerms, perm) {
			slogx.FromContext(ctx).Warn("api key request rejected, would escalate",
				"owner_id", ownerID, "permission", perm)
			return "", domain.ApiKeyGrant{}, fmt.Errorf("%w: permission %q exceeds owner's grants", ErrForbidden, perm)
		}
	}

	if ttl <= 0 {
		ttl = s.DefaultTTL
	}
	if ttl <= 0 {
		ttl = defaultApiKeyTTL
	}

	now := time.Now()
	expiresAt := now.Add(ttl)

	grant := domain.ApiKeyGrant{
		ID:          idx.New().String(),
		OwnerUserID: ownerID,
		Name:        name,
		Permissions: append(rbac.WithoutRefresh(requested), apiKeyDenies...),
		ExpiresAt:   &expiresAt,
		CreatedAt:   now,
	}

	err = s.Store.WithTx(ctx, func(tx store.Tx) error {
		if s.MaxLivePerOwner > 0 {
			live, err := tx.ApiKeyGrants().CountLiveByOwner(ctx, ownerID, now)
			if err != nil {
				return err
			}
			if live >= s.MaxLivePerOwner {
				return fmt.Errorf("%w: live api key limit reached (%d)", ErrValidation, s.MaxLivePerOwner)
			}
		}
		return tx.ApiKeyGrants().Create(ctx, grant)
	})
	if err != nil {
		return "", domain.ApiKeyGrant{}, err
	}

	token, err := s.Tokens.SignAPIKey(
		ownerID,
		grant.Permissions,
		map[string]string{"grant_id": grant.ID},
		ttl,
		now,
	)
	if err != nil {
		return "", domain.ApiKeyGrant{}, err
	}

	return token, grant, nil
}

// ListKeys returns all of the owner's grants, live and dead, newest first.
func (s *ApiKeyIssuer) ListKeys(ctx context.Context, ownerID string) ([]domain.ApiKeyGrant, error) {
	return s.Store.ApiKeyGrants().ListByOwner(ctx, ownerID)
}

// RevokeKey revokes one of the owner's grants. Tokens minted from it fail
// the revocation gate from this point on.
func (s *ApiKeyIssuer) RevokeKey(ctx context.Context, ownerID, grantID string) error {
	ok, err := s.Store.ApiKeyGrants().Revoke(ctx, ownerID, grantID, time.Now())
	if err != nil {
		return err
	}
	if !ok {
		return ErrNotFound
	}
	return nil
}

// CheckClaims is the bearer-token gate for api keys: a key whose backing
// grant is revoked, expired or gone is rejected even though its signature
// still verifies. Non-api-key tokens pass through untouched.
func (s *ApiKeyIssuer) CheckClaims(ctx context.Context, claims jwtx.Claims) error {
	if claims.TokenType != jwtx.TokenTypeAPIKey {
		return nil
	}

	grantID := claims.Extra["grant_id"]
	if grantID == "" {
		return ErrUnauthorized
	}

	grant, err := s.Store.ApiKeyGrants().GetByID(ctx, grantID)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return ErrUnauthorized
		}
		return err
	}
	if grant.OwnerUserID != claims.Subject || !grant.Live(time.Now()) {
		return ErrUnauthorized
	}
	return nil
}
