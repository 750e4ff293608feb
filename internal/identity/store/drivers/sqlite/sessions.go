package sqlite

import (
	"context"
	"database/sql"
	"time"

	"github.com/aussiebroadwan/passport/internal/identity/domain"
)

type sessionsRepo struct {
	q querier
}

const sessionColumns = `id, user_id, refresh_token_hash, device_name, user_agent, ip_address,
	created_at, last_used_at, expires_at, revoked, revoked_at`

func scanSession(row interface{ Scan(dest ...any) error }) (domain.LoginSession, error) {
	var (
		s         domain.LoginSession
		revokedAt sql.NullTime
	)
	err := row.Scan(
		&s.ID, &s.UserID, &s.RefreshTokenHash, &s.DeviceName, &s.UserAgent, &s.IPAddress,
		&s.CreatedAt, &s.LastUsedAt, &s.ExpiresAt, &s.Revoked, &revokedAt,
	)
	if err != nil {
		return domain.LoginSession{}, err
	}
	s.RevokedAt = mapNullTimePtr(revokedAt)
	return s, nil
}

func (r *sessionsRepo) Create(ctx context.Context, s domain.LoginSession) error {
	_, err := r.q.ExecContext(ctx, `
		INSERT INTO login_sessions (id, user_id, refresh_token_hash, device_name, user_agent, ip_address,
			created_at, last_used_at, expires_at, revoked, revoked_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		s.ID, s.UserID, s.RefreshTokenHash, s.DeviceName, s.UserAgent, s.IPAddress,
		s.CreatedAt, s.LastUsedAt, s.ExpiresAt, s.Revoked, mapOptionalTime(s.RevokedAt),
	)
	return mapConstraint(err)
}

func (r *sessionsRepo) GetByID(ctx context.Context, id string) (domain.LoginSession, error) {
	row := r.q.QueryRowContext(ctx, `SELECT `+sessionColumns+` FROM login_sessions WHERE id = ?`, id)
	s, err := scanSession(row)
	return s, mapNotFound(err)
}

func (r *sessionsRepo) GetActiveByUserID(ctx context.Context, userID string) ([]domain.LoginSession, error) {
	rows, err := r.q.QueryContext(ctx, `
		SELECT `+sessionColumns+` FROM login_sessions
		WHERE user_id = ? AND revoked = 0 AND expires_at > ?
		ORDER BY created_at DESC`,
		userID, time.Now().UTC(),
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []domain.LoginSession
	for rows.Next() {
		s, err := scanSession(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, s)
	}
	return out, rows.Err()
}

func (r *sessionsRepo) Update(ctx context.Context, s domain.LoginSession) error {
	res, err := r.q.ExecContext(ctx, `
		UPDATE login_sessions SET device_name = ?, user_agent = ?, ip_address = ?, last_used_at = ?
		WHERE id = ?`,
		s.DeviceName, s.UserAgent, s.IPAddress, s.LastUsedAt, s.ID,
	)
	if err != nil {
		return err
	}
	return requireRow(res)
}

// RotateHash is a compare-and-swap: the update only lands when the stored
// hash still matches oldHash and the session is not revoked. A false return
// with no error means the CAS lost.
func (r *sessionsRepo) RotateHash(ctx context.Context, id, oldHash, newHash string, expiresAt, lastUsedAt time.Time) (bool, error) {
	res, err := r.q.ExecContext(ctx, `
		UPDATE login_sessions
		SET refresh_token_hash = ?, expires_at = ?, last_used_at = ?
		WHERE id = ? AND refresh_token_hash = ? AND revoked = 0`,
		newHash, expiresAt, lastUsedAt, id, oldHash,
	)
	if err != nil {
		return false, err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, err
	}
	return n == 1, nil
}

func (r *sessionsRepo) Revoke(ctx context.Context, id string, at time.Time) (bool, error) {
	res, err := r.q.ExecContext(ctx, `
		UPDATE login_sessions SET revoked = 1, revoked_at = ? WHERE id = ? AND revoked = 0`,
		at, id,
	)
	if err != nil {
		return false, err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, err
	}
	return n == 1, nil
}

func (r *sessionsRepo) RevokeAllForUser(ctx context.Context, userID string, at time.Time) (int64, error) {
	res, err := r.q.ExecContext(ctx, `
		UPDATE login_sessions SET revoked = 1, revoked_at = ? WHERE user_id = ? AND revoked = 0`,
		at, userID,
	)
	if err != nil {
		return 0, err
	}
	return res.RowsAffected()
}

func (r *sessionsRepo) RevokeAllExcept(ctx context.Context, userID, exceptID string, at time.Time) (int64, error) {
	res, err := r.q.ExecContext(ctx, `
		UPDATE login_sessions SET revoked = 1, revoked_at = ?
		WHERE user_id = ? AND id != ? AND revoked = 0`,
		at, userID, exceptID,
	)
	if err != nil {
		return 0, err
	}
	return res.RowsAffected()
}

func (r *sessionsRepo) DeleteExpiredOlderThan(ctx context.Context, cutoff time.Time) (int64, error) {
	res, err := r.q.ExecContext(ctx, `
		DELETE FROM login_sessions
		WHERE expires_at < ? OR (revoked = 1 AND revoked_at < ?)`,
		cutoff, cutoff,
	)
	if err != nil {
		return 0, err
	}
	return res.RowsAffected()
}
