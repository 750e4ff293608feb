package sqlite

import (
	"context"

	"github.com/aussiebroadwan/passport/internal/identity/domain"
)

type assignmentsRepo struct {
	q querier
}

func (r *assignmentsRepo) ListByUser(ctx context.Context, userID string) ([]domain.RoleAssignment, error) {
	rows, err := r.q.QueryContext(ctx, `
		SELECT user_id, role_id, params, created_at, updated_at
		FROM role_assignments WHERE user_id = ?
		ORDER BY created_at`, userID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []domain.RoleAssignment
	for rows.Next() {
		var (
			a      domain.RoleAssignment
			params string
		)
		if err := rows.Scan(&a.UserID, &a.RoleID, &params, &a.CreatedAt, &a.UpdatedAt); err != nil {
			return nil, err
		}
		a.Params, err = decodeParams(params)
		if err != nil {
			return nil, err
		}
		out = append(out, a)
	}
	return out, rows.Err()
}

func (r *assignmentsRepo) Upsert(ctx context.Context, a domain.RoleAssignment) error {
	params, err := encodeParams(a.Params)
	if err != nil {
		return err
	}
	_, err = r.q.ExecContext(ctx, `
		INSERT INTO role_assignments (user_id, role_id, params, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?)
		ON CONFLICT(user_id, role_id) DO UPDATE SET
			params = excluded.params,
			updated_at = excluded.updated_at`,
		a.UserID, a.RoleID, params, a.CreatedAt, a.UpdatedAt,
	)
	return err
}

func (r *assignmentsRepo) Delete(ctx context.Context, userID, roleID string) error {
	res, err := r.q.ExecContext(ctx, `
		DELETE FROM role_assignments WHERE user_id = ? AND role_id = ?`,
		userID, roleID,
	)
	if err != nil {
		return err
	}
	return requireRow(res)
}

func (r *assignmentsRepo) DeleteAllForUser(ctx context.Context, userID string) error {
	_, err := r.q.ExecContext(ctx, `DELETE FROM role_assignments WHERE user_id = ?`, userID)
	return err
}
