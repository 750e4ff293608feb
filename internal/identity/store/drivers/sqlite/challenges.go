package sqlite

import (
	"context"
	"database/sql"
	"time"

	"github.com/aussiebroadwan/passport/internal/identity/domain"
)

type challengesRepo struct {
	q querier
}

func (r *challengesRepo) Create(ctx context.Context, c domain.PasskeyChallenge) error {
	var userID sql.NullString
	if c.UserID != "" {
		userID = sql.NullString{String: c.UserID, Valid: true}
	}
	_, err := r.q.ExecContext(ctx, `
		INSERT INTO passkey_challenges (id, challenge, user_id, type, options_json, created_at, expires_at)
		VALUES (?, ?, ?, ?, ?, ?, ?)`,
		c.ID, c.Challenge, userID, string(c.Type), c.OptionsJSON, c.CreatedAt, c.ExpiresAt,
	)
	return mapConstraint(err)
}

func (r *challengesRepo) GetByID(ctx context.Context, id string) (domain.PasskeyChallenge, error) {
	row := r.q.QueryRowContext(ctx, `
		SELECT id, challenge, user_id, type, options_json, created_at, expires_at
		FROM passkey_challenges WHERE id = ?`, id)

	var (
		c      domain.PasskeyChallenge
		userID sql.NullString
		typ    string
	)
	err := row.Scan(&c.ID, &c.Challenge, &userID, &typ, &c.OptionsJSON, &c.CreatedAt, &c.ExpiresAt)
	if err != nil {
		return domain.PasskeyChallenge{}, mapNotFound(err)
	}
	if userID.Valid {
		c.UserID = userID.String
	}
	c.Type = domain.ChallengeType(typ)
	return c, nil
}

func (r *challengesRepo) Delete(ctx context.Context, id string) error {
	res, err := r.q.ExecContext(ctx, `DELETE FROM passkey_challenges WHERE id = ?`, id)
	if err != nil {
		return err
	}
	return requireRow(res)
}

func (r *challengesRepo) DeleteExpired(ctx context.Context, now time.Time) (int64, error) {
	res, err := r.q.ExecContext(ctx, `DELETE FROM passkey_challenges WHERE expires_at < ?`, now)
	if err != nil {
		return 0, err
	}
	return res.RowsAffected()
}
