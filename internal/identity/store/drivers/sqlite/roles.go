package sqlite

import (
	"context"

	"github.com/aussiebroadwan/passport/internal/identity/domain"
)

type rolesRepo struct {
	q querier
}

const roleColumns = `id, code, name, scope_templates, created_at, updated_at`

func scanRole(row interface{ Scan(dest ...any) error }) (domain.Role, error) {
	var (
		r         domain.Role
		templates string
	)
	err := row.Scan(&r.ID, &r.Code, &r.Name, &templates, &r.CreatedAt, &r.UpdatedAt)
	if err != nil {
		return domain.Role{}, err
	}
	r.Templates = splitTemplates(templates)
	return r, nil
}

func (r *rolesRepo) GetByID(ctx context.Context, id string) (domain.Role, error) {
	row := r.q.QueryRowContext(ctx, `SELECT `+roleColumns+` FROM roles WHERE id = ?`, id)
	role, err := scanRole(row)
	return role, mapNotFound(err)
}

func (r *rolesRepo) GetByCode(ctx context.Context, code string) (domain.Role, error) {
	row := r.q.QueryRowContext(ctx, `SELECT `+roleColumns+` FROM roles WHERE code = ?`, code)
	role, err := scanRole(row)
	return role, mapNotFound(err)
}

func (r *rolesRepo) GetByIDs(ctx context.Context, ids []string) ([]domain.Role, error) {
	if len(ids) == 0 {
		return nil, nil
	}
	args := make([]any, len(ids))
	for i, id := range ids {
		args[i] = id
	}
	rows, err := r.q.QueryContext(ctx, `
		SELECT `+roleColumns+` FROM roles WHERE id IN (`+placeholders(len(ids))+`)`, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return collectRoles(rows)
}

func (r *rolesRepo) GetByCodes(ctx context.Context, codes []string) ([]domain.Role, error) {
	if len(codes) == 0 {
		return nil, nil
	}
	args := make([]any, len(codes))
	for i, code := range codes {
		args[i] = code
	}
	rows, err := r.q.QueryContext(ctx, `
		SELECT `+roleColumns+` FROM roles WHERE code IN (`+placeholders(len(codes))+`)`, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return collectRoles(rows)
}

func (r *rolesRepo) List(ctx context.Context) ([]domain.Role, error) {
	rows, err := r.q.QueryContext(ctx, `SELECT `+roleColumns+` FROM roles ORDER BY code`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return collectRoles(rows)
}

func (r *rolesRepo) Save(ctx context.Context, role domain.Role) error {
	_, err := r.q.ExecContext(ctx, `
		INSERT INTO roles (id, code, name, scope_templates, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
			code = excluded.code,
			name = excluded.name,
			scope_templates = excluded.scope_templates,
			updated_at = excluded.updated_at`,
		role.ID, role.Code, role.Name, joinTemplates(role.Templates), role.CreatedAt, role.UpdatedAt,
	)
	return mapConstraint(err)
}

func (r *rolesRepo) Delete(ctx context.Context, id string) error {
	res, err := r.q.ExecContext(ctx, `DELETE FROM roles WHERE id = ?`, id)
	if err != nil {
		return err
	}
	return requireRow(res)
}

func collectRoles(rows interface {
	Next() bool
	Scan(dest ...any) error
	Err() error
}) ([]domain.Role, error) {
	var out []domain.Role
	for rows.Next() {
		role, err := scanRole(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, role)
	}
	return out, rows.Err()
}
