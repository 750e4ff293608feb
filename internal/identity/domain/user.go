package domain

import "time"

type User struct {
	ID           string
	Username     string
	PasswordHash string     // argon2 encoded
	MFAEnabled   *time.Time // Timestamp when TOTP was enabled (nullable)
	MFASecret    *string    // TOTP secret (nullable, base32 encoded)
	CreatedAt    time.Time
	UpdatedAt    time.Time
}

// MFARequired reports whether session creation must be accompanied by a
// valid one-time code.
func (u User) MFARequired() bool {
	return u.MFAEnabled != nil && u.MFASecret != nil && *u.MFASecret != ""
}
