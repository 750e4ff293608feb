package store

import (
	"context"
	"errors"
	"time"

	"github.com/aussiebroadwan/passport/internal/identity/domain"
)

var (
	ErrNotFound      = errors.New("store: not found")
	ErrAlreadyExists = errors.New("store: already exists")
)

// Store is the root data access interface. Concrete drivers (sqlite for
// now) implement it. Each entity family gets its own single-responsibility
// repository; callers compose them rather than the store multiplexing
// behaviour onto one type.
type Store interface {
	Users() Users
	Sessions() Sessions
	Roles() Roles
	RoleAssignments() RoleAssignments
	PasskeyChallenges() PasskeyChallenges
	PasskeyCredentials() PasskeyCredentials
	ApiKeyGrants() ApiKeyGrants

	ApplyMigrations() error

	// Tx starts a read/write transaction and returns a Tx-scoped Store.
	// The caller MUST call Commit() or Rollback() on the returned Tx.
	Tx(ctx context.Context) (Tx, error)

	// WithTx executes fn within a transaction. If fn returns an error the
	// transaction is rolled back, otherwise committed. This is the
	// recommended way to do multi-step operations that must be atomic
	// (e.g. refresh rotation).
	WithTx(ctx context.Context, fn func(tx Tx) error) error

	// Close releases any underlying resources.
	Close() error

	// Ping verifies the database connection is still alive.
	Ping(ctx context.Context) error
}

// Tx is a transactional store. It embeds the same repos but adds Commit/Rollback.
type Tx interface {
	Store
	Commit() error
	Rollback() error
}

type Users interface {
	GetByID(ctx context.Context, id string) (domain.User, error)
	GetByUsername(ctx context.Context, username string) (domain.User, error)

	// Create inserts a new user (id is provided by the app via ULID).
	Create(ctx context.Context, u domain.User) error

	UpdatePasswordHash(ctx context.Context, userID, newHash string) error

	// UpdateMFASecret sets the TOTP secret without enabling it yet.
	UpdateMFASecret(ctx context.Context, userID, secret string) error

	// EnableMFA stamps mfa_enabled once the user has proven a code.
	EnableMFA(ctx context.Context, userID string) error

	// DisableMFA clears both mfa_enabled and mfa_secret.
	DisableMFA(ctx context.Context, userID string) error

	// Delete cascades to sessions and role assignments (per schema).
	Delete(ctx context.Context, userID string) error
}

type Sessions interface {
	Create(ctx context.Context, s domain.LoginSession) error
	GetByID(ctx context.Context, id string) (domain.LoginSession, error)

	// GetActiveByUserID lists non-revoked, non-expired sessions, newest first.
	GetActiveByUserID(ctx context.Context, userID string) ([]domain.LoginSession, error)

	// Update persists mutable session fields (device name, last_used_at).
	// Refresh rotation must go through RotateHash instead.
	Update(ctx context.Context, s domain.LoginSession) error

	// RotateHash atomically replaces the stored refresh-token hash, but only
	// if the current hash still equals oldHash and the session isn't
	// revoked. Returns false when the compare-and-swap lost: the caller
	// treats that as the reuse/theft path.
	RotateHash(ctx context.Context, id, oldHash, newHash string, expiresAt, lastUsedAt time.Time) (bool, error)

	// Revoke transitions the session to Revoked. Returns false if it was
	// already revoked or doesn't exist (idempotent, not an error).
	Revoke(ctx context.Context, id string, at time.Time) (bool, error)

	// RevokeAllForUser revokes every active session, returning how many
	// actually flipped.
	RevokeAllForUser(ctx context.Context, userID string, at time.Time) (int64, error)

	// RevokeAllExcept revokes every active session but exceptID.
	RevokeAllExcept(ctx context.Context, userID, exceptID string, at time.Time) (int64, error)

	// DeleteExpiredOlderThan is retention housekeeping: rows revoked or
	// expired before the cutoff are physically removed.
	DeleteExpiredOlderThan(ctx context.Context, cutoff time.Time) (int64, error)
}

type Roles interface {
	// Dynamic roles only. Static roles never reach this store; the service
	// layer short-circuits them against the in-process catalog first.
	GetByID(ctx context.Context, id string) (domain.Role, error)
	GetByCode(ctx context.Context, code string) (domain.Role, error)
	GetByIDs(ctx context.Context, ids []string) ([]domain.Role, error)
	GetByCodes(ctx context.Context, codes []string) ([]domain.Role, error)
	List(ctx context.Context) ([]domain.Role, error)

	// Save upserts a dynamic role by id.
	Save(ctx context.Context, r domain.Role) error

	Delete(ctx context.Context, id string) error
}

type RoleAssignments interface {
	ListByUser(ctx context.Context, userID string) ([]domain.RoleAssignment, error)

	// Upsert creates the assignment or replaces its parameter map.
	Upsert(ctx context.Context, a domain.RoleAssignment) error

	Delete(ctx context.Context, userID, roleID string) error
	DeleteAllForUser(ctx context.Context, userID string) error
}

type PasskeyChallenges interface {
	Create(ctx context.Context, c domain.PasskeyChallenge) error
	GetByID(ctx context.Context, id string) (domain.PasskeyChallenge, error)

	// Delete removes the challenge; verification calls this on every
	// attempt so challenges are single-use.
	Delete(ctx context.Context, id string) error

	DeleteExpired(ctx context.Context, now time.Time) (int64, error)
}

type PasskeyCredentials interface {
	Create(ctx context.Context, c domain.PasskeyCredential) error
	GetByID(ctx context.Context, id string) (domain.PasskeyCredential, error)
	GetByCredentialID(ctx context.Context, credentialID []byte) (domain.PasskeyCredential, error)
	ListByUser(ctx context.Context, userID string) ([]domain.PasskeyCredential, error)

	// UpdateSignCount records a verified assertion.
	UpdateSignCount(ctx context.Context, id string, signCount uint32, usedAt time.Time) error

	Delete(ctx context.Context, id string) error
}

type ApiKeyGrants interface {
	Create(ctx context.Context, g domain.ApiKeyGrant) error
	GetByID(ctx context.Context, id string) (domain.ApiKeyGrant, error)
	ListByOwner(ctx context.Context, ownerUserID string) ([]domain.ApiKeyGrant, error)

	// Revoke flips the revoked flag, owner-scoped. Returns false when the
	// grant is unknown, owned by someone else, or already revoked.
	Revoke(ctx context.Context, ownerUserID, id string, at time.Time) (bool, error)

	// CountLiveByOwner counts non-revoked, non-expired grants for quota
	// enforcement.
	CountLiveByOwner(ctx context.Context, ownerUserID string, now time.Time) (int, error)

	DeleteExpiredOlderThan(ctx context.Context, cutoff time.Time) (int64, error)
}
