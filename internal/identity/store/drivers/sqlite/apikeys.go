package sqlite

import (
	"context"
	"database/sql"
	"time"

	"github.com/aussiebroadwan/passport/internal/identity/domain"
)

type apiKeyGrantsRepo struct {
	q querier
}

const apiKeyGrantColumns = `id, owner_user_id, name, permissions, expires_at, revoked, revoked_at, created_at`

func scanApiKeyGrant(row interface{ Scan(dest ...any) error }) (domain.ApiKeyGrant, error) {
	var (
		g           domain.ApiKeyGrant
		permissions string
		expiresAt   sql.NullTime
		revokedAt   sql.NullTime
	)
	err := row.Scan(&g.ID, &g.OwnerUserID, &g.Name, &permissions, &expiresAt, &g.Revoked, &revokedAt, &g.CreatedAt)
	if err != nil {
		return domain.ApiKeyGrant{}, err
	}
	g.Permissions = splitList(permissions)
	g.ExpiresAt = mapNullTimePtr(expiresAt)
	g.RevokedAt = mapNullTimePtr(revokedAt)
	return g, nil
}

func (r *apiKeyGrantsRepo) Create(ctx context.Context, g domain.ApiKeyGrant) error {
	_, err := r.q.ExecContext(ctx, `
		INSERT INTO api_key_grants (id, owner_user_id, name, permissions, expires_at, revoked, revoked_at, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
		g.ID, g.OwnerUserID, g.Name, joinList(g.Permissions), mapOptionalTime(g.ExpiresAt),
		g.Revoked, mapOptionalTime(g.RevokedAt), g.CreatedAt,
	)
	return mapConstraint(err)
}

func (r *apiKeyGrantsRepo) GetByID(ctx context.Context, id string) (domain.ApiKeyGrant, error) {
	row := r.q.QueryRowContext(ctx, `SELECT `+apiKeyGrantColumns+` FROM api_key_grants WHERE id = ?`, id)
	g, err := scanApiKeyGrant(row)
	return g, mapNotFound(err)
}

func (r *apiKeyGrantsRepo) ListByOwner(ctx context.Context, ownerUserID string) ([]domain.ApiKeyGrant, error) {
	rows, err := r.q.QueryContext(ctx, `
		SELECT `+apiKeyGrantColumns+` FROM api_key_grants
		WHERE owner_user_id = ? ORDER BY created_at DESC`, ownerUserID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []domain.ApiKeyGrant
	for rows.Next() {
		g, err := scanApiKeyGrant(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, g)
	}
	return out, rows.Err()
}

func (r *apiKeyGrantsRepo) Revoke(ctx context.Context, ownerUserID, id string, at time.Time) (bool, error) {
	res, err := r.q.ExecContext(ctx, `
		UPDATE api_key_grants SET revoked = 1, revoked_at = ?
		WHERE id = ? AND owner_user_id = ? AND revoked = 0`,
		at, id, ownerUserID,
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

func (r *apiKeyGrantsRepo) CountLiveByOwner(ctx context.Context, ownerUserID string, now time.Time) (int, error) {
	row := r.q.QueryRowContext(ctx, `
		SELECT COUNT(*) FROM api_key_grants
		WHERE owner_user_id = ? AND revoked = 0 AND (expires_at IS NULL OR expires_at > ?)`,
		ownerUserID, now,
	)
	var n int
	if err := row.Scan(&n); err != nil {
		return 0, err
	}
	return n, nil
}

func (r *apiKeyGrantsRepo) DeleteExpiredOlderThan(ctx context.Context, cutoff time.Time) (int64, error) {
	res, err := r.q.ExecContext(ctx, `
		DELETE FROM api_key_grants
		WHERE (expires_at IS NOT NULL AND expires_at < ?) OR (revoked = 1 AND revoked_at < ?)`,
		cutoff, cutoff,
	)
	if err != nil {
		return 0, err
	}
	return res.RowsAffected()
}
