package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/aussiebroadwan/passport/internal/identity/domain"
	"github.com/aussiebroadwan/passport/internal/identity/rbac"
	"github.com/aussiebroadwan/passport/internal/identity/store"
	"github.com/aussiebroadwan/passport/pkg/cryptox"
	"github.com/aussiebroadwan/passport/pkg/idx"
	"github.com/aussiebroadwan/passport/pkg/jwtx"
	"github.com/aussiebroadwan/passport/pkg/slogx"
	"github.com/pquerna/otp/totp"
)

// SessionManager owns the login-session lifecycle: password login, session
// creation, refresh rotation with reuse detection, and revocation.
type SessionManager struct {
	Store   store.Store
	Tokens  *TokenService
	Catalog *rbac.Catalog
}

// resolver builds a permission resolver over the given store view, so the
// same expansion logic runs against the root store or inside a transaction.
func (m *SessionManager) resolver(st store.Store) *rbac.Resolver {
	return rbac.NewResolver(m.Catalog, st.Roles(), st.RoleAssignments())
}

// Login authenticates a username/password pair (plus a TOTP code when the
// account has MFA enabled) and starts a new login session.
func (m *SessionManager) Login(
	ctx context.Context,
	username, password, totpCode string,
	device domain.DeviceInfo,
) (*domain.TokenPair, error) {
	log := slogx.FromContext(ctx)

	user, err := m.Store.Users().GetByUsername(ctx, username)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return nil, ErrUnauthorized
		}
		return nil, err
	}

	if err := cryptox.VerifyPassword(password, user.PasswordHash); err != nil {
		log.Info("password verification failed", "user_id", user.ID)
		return nil, ErrUnauthorized
	}

	if user.MFARequired() {
		if totpCode == "" {
			return nil, ErrMFARequired
		}
		if user.MFASecret == nil || !totp.Validate(totpCode, *user.MFASecret) {
			log.Info("totp verification failed", "user_id", user.ID)
			return nil, ErrUnauthorized
		}
	}

	return m.StartSession(ctx, user.ID, device)
}

// StartSession mints a fresh session for an already-authenticated user:
// passkey logins and tests call this directly.
func (m *SessionManager) StartSession(
	ctx context.Context,
	userID string,
	device domain.DeviceInfo,
) (*domain.TokenPair, error) {
	now := time.Now()

	perms, err := m.resolver(m.Store).Resolve(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("resolve permissions: %w", err)
	}

	sessionID := idx.New().String()

	refreshToken, err := m.Tokens.SignRefresh(userID, sessionID, now)
	if err != nil {
		return nil, err
	}
	accessToken, err := m.Tokens.SignAccess(userID, sessionID, perms, now)
	if err != nil {
		return nil, err
	}

	session := domain.LoginSession{
		ID:               sessionID,
		UserID:           userID,
		RefreshTokenHash: cryptox.FingerprintToken(refreshToken),
		DeviceName:       device.Name,
		UserAgent:        device.UserAgent,
		IPAddress:        device.IPAddress,
		CreatedAt:        now,
		LastUsedAt:       now,
		ExpiresAt:        now.Add(m.Tokens.RefreshTTL),
	}
	if err := m.Store.Sessions().Create(ctx, session); err != nil {
		return nil, err
	}

	return &domain.TokenPair{
		AccessToken:  accessToken,
		RefreshToken: refreshToken,
		TokenType:    "Bearer",
		SessionID:    sessionID,
		ExpiresIn:    m.Tokens.AccessTTL,
	}, nil
}

// Refresh rotates a session's refresh token and issues a new pair.
//
// The presented token's fingerprint must match the session's stored hash.
// A mismatch against a live session means the presented token was already
// rotated away, i.e. someone replayed an old token: the session is revoked
// durably (the revocation commits even though the call fails) and the
// caller gets ErrRefreshReuse.
func (m *SessionManager) Refresh(ctx context.Context, refreshToken string) (*domain.TokenPair, error) {
	log := slogx.FromContext(ctx)
	now := time.Now()

	claims, err := m.Tokens.Verify(refreshToken)
	if err != nil {
		return nil, ErrUnauthorized
	}
	if claims.TokenType != jwtx.TokenTypeRefresh || claims.SID == "" {
		return nil, ErrUnauthorized
	}
	if !rbac.Allowed(claims.Permissions, rbac.RefreshPermission(claims.Subject)) {
		return nil, ErrUnauthorized
	}

	fp := cryptox.FingerprintToken(refreshToken)

	var (
		pair  *domain.TokenPair
		theft bool
	)

	err = m.Store.WithTx(ctx, func(tx store.Tx) error {
		session, err := tx.Sessions().GetByID(ctx, claims.SID)
		if err != nil {
			if errors.Is(err, store.ErrNotFound) {
				return ErrUnauthorized
			}
			return err
		}

		if session.UserID != claims.Subject {
			return ErrUnauthorized
		}
		if !session.Active(now) {
			return ErrUnauthorized
		}

		if session.RefreshTokenHash != fp {
			// Reuse of a rotated token. Returning nil commits the
			// revocation; the error surfaces after the transaction.
			theft = true
			_, err := tx.Sessions().Revoke(ctx, session.ID, now)
			return err
		}

		// Permissions are re-resolved on every rotation so role changes
		// take effect without waiting for session expiry.
		perms, err := m.resolver(tx).Resolve(ctx, session.UserID)
		if err != nil {
			return fmt.Errorf("resolve permissions: %w", err)
		}

		newRefresh, err := m.Tokens.SignRefresh(session.UserID, session.ID, now)
		if err != nil {
			return err
		}
		newFP := cryptox.FingerprintToken(newRefresh)

		swapped, err := tx.Sessions().RotateHash(ctx, session.ID, fp, newFP,
			now.Add(m.Tokens.RefreshTTL), now)
		if err != nil {
			return err
		}
		if !swapped {
			// Lost the compare-and-swap; same treatment as replay.
			theft = true
			_, err := tx.Sessions().Revoke(ctx, session.ID, now)
			return err
		}

		accessToken, err := m.Tokens.SignAccess(session.UserID, session.ID, perms, now)
		if err != nil {
			return err
		}

		pair = &domain.TokenPair{
			AccessToken:  accessToken,
			RefreshToken: newRefresh,
			TokenType:    "Bearer",
			SessionID:    session.ID,
			ExpiresIn:    m.Tokens.AccessTTL,
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	if theft {
		log.Warn("refresh token reuse detected, session revoked",
			"session_id", claims.SID, "user_id", claims.Subject)
		return nil, ErrRefreshReuse
	}

	return pair, nil
}

// Logout revokes the session bound to the presented refresh token. An
// expired-but-well-formed token still logs out its session.
func (m *SessionManager) Logout(ctx context.Context, refreshToken string) error {
	// Signature must hold, but an expired token still logs its session out.
	claims, err := m.Tokens.KeyManager.Verifier.VerifySignatureOnly(refreshToken)
	if err != nil {
		return ErrUnauthorized
	}
	if claims.TokenType != jwtx.TokenTypeRefresh || claims.SID == "" {
		return ErrUnauthorized
	}

	_, err = m.Store.Sessions().Revoke(ctx, claims.SID, time.Now())
	return err
}

// ValidateSession reads a session and checks it is still active. Purely a
// read: it never rotates, revokes, or touches last_used_at.
func (m *SessionManager) ValidateSession(ctx context.Context, sessionID string) (domain.LoginSession, error) {
	session, err := m.Store.Sessions().GetByID(ctx, sessionID)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return domain.LoginSession{}, ErrNotFound
		}
		return domain.LoginSession{}, err
	}
	if !session.Active(time.Now()) {
		return domain.LoginSession{}, ErrUnauthorized
	}
	return session, nil
}

// ListSessions returns the user's active sessions, newest first.
func (m *SessionManager) ListSessions(ctx context.Context, userID string) ([]domain.LoginSession, error) {
	return m.Store.Sessions().GetActiveByUserID(ctx, userID)
}

// RevokeSession revokes one session. When ownerID is non-empty the session
// must belong to that user; a foreign session reads as not found.
func (m *SessionManager) RevokeSession(ctx context.Context, ownerID, sessionID string) error {
	session, err := m.Store.Sessions().GetByID(ctx, sessionID)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return ErrNotFound
		}
		return err
	}
	if ownerID != "" && session.UserID != ownerID {
		return ErrNotFound
	}

	// Already-revoked is fine; revocation is idempotent.
	_, err = m.Store.Sessions().Revoke(ctx, sessionID, time.Now())
	return err
}

// RevokeAll revokes every session for a user, e.g. after a password change.
func (m *SessionManager) RevokeAll(ctx context.Context, userID string) (int64, error) {
	return m.Store.Sessions().RevokeAllForUser(ctx, userID, time.Now())
}

// RevokeAllExceptCurrent revokes every session but the caller's own.
func (m *SessionManager) RevokeAllExceptCurrent(ctx context.Context, userID, currentSessionID string) (int64, error) {
	return m.Store.Sessions().RevokeAllExcept(ctx, userID, currentSessionID, time.Now())
}
