package domain

import "time"

// LoginSession is one device's authenticated session. Exactly one refresh
// token is live per session at any time: its SHA-256 fingerprint is stored
// in RefreshTokenHash and rotation replaces it atomically. The state machine
// is Active -> Revoked, and Revoked is terminal.
type LoginSession struct {
	ID               string
	UserID           string
	RefreshTokenHash string
	DeviceName       string
	UserAgent        string
	IPAddress        string
	CreatedAt        time.Time
	LastUsedAt       time.Time
	ExpiresAt        time.Time
	Revoked          bool
	RevokedAt        *time.Time
}

// Active reports whether the session can still be refreshed at the given
// instant.
func (s LoginSession) Active(now time.Time) bool {
	return !s.Revoked && now.Before(s.ExpiresAt)
}

// DeviceInfo describes the client a session was created for.
type DeviceInfo struct {
	Name      string
	UserAgent string
	IPAddress string
}

// TokenPair is what a successful login or refresh returns.
type TokenPair struct {
	AccessToken  string        `json:"access_token"`
	RefreshToken string        `json:"refresh_token"`
	TokenType    string        `json:"token_type,omitempty"` // typically "Bearer"
	SessionID    string        `json:"session_id,omitempty"`
	ExpiresIn    time.Duration `json:"expires_in"` // access token lifetime
}
