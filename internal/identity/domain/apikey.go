package domain

import "time"

// ApiKeyGrant records an issued API key. The token itself is stateless and
// carries the full grant; the row exists so revocation can be checked and so
// owners can list their keys. Permissions are a point-in-time snapshot of
// the owner's effective set at mint, plus the fixed deny overlay.
type ApiKeyGrant struct {
	ID          string
	OwnerUserID string
	Name        string
	Permissions []string
	ExpiresAt   *time.Time
	Revoked     bool
	RevokedAt   *time.Time
	CreatedAt   time.Time
}

// Live reports whether the grant still counts against its owner's live-key
// quota.
func (g ApiKeyGrant) Live(now time.Time) bool {
	if g.Revoked {
		return false
	}
	if g.ExpiresAt != nil && now.After(*g.ExpiresAt) {
		return false
	}
	return true
}
