package domain

import (
	"time"

	"github.com/google/uuid"
)

// ChallengeType discriminates the two WebAuthn ceremonies.
type ChallengeType string

const (
	ChallengeRegistration   ChallengeType = "registration"
	ChallengeAuthentication ChallengeType = "authentication"
)

// PasskeyChallenge is a single-use, short-lived WebAuthn challenge. It is
// deleted on every verification attempt, successful or not, so a challenge
// id can never be replayed. UserID is empty for discoverable-credential
// authentication challenges.
type PasskeyChallenge struct {
	ID          string
	Challenge   []byte
	UserID      string
	Type        ChallengeType
	OptionsJSON string
	CreatedAt   time.Time
	ExpiresAt   time.Time
}

// Expired reports whether the challenge is past its TTL.
func (c PasskeyChallenge) Expired(now time.Time) bool {
	return now.After(c.ExpiresAt)
}

// PasskeyCredential is a registered WebAuthn credential. SignCount is
// monotonically non-decreasing across verified assertions; a regression is
// treated as a cloned-credential signal.
type PasskeyCredential struct {
	ID                string
	UserID            string
	Name              string
	CredentialID      []byte
	PublicKey         []byte // PKIX DER
	SignCount         uint32
	AAGUID            uuid.UUID
	UserHandle        []byte
	AttestationFormat string
	RegisteredAt      time.Time
	LastUsedAt        *time.Time
}
