package sqlite

import (
	"context"
	"database/sql"
	"time"

	"github.com/google/uuid"

	"github.com/aussiebroadwan/passport/internal/identity/domain"
)

type credentialsRepo struct {
	q querier
}

const credentialColumns = `id, user_id, name, credential_id, public_key, sign_count, aaguid,
	user_handle, attestation_format, registered_at, last_used_at`

func scanCredential(row interface{ Scan(dest ...any) error }) (domain.PasskeyCredential, error) {
	var (
		c          domain.PasskeyCredential
		aaguid     string
		lastUsedAt sql.NullTime
	)
	err := row.Scan(
		&c.ID, &c.UserID, &c.Name, &c.CredentialID, &c.PublicKey, &c.SignCount, &aaguid,
		&c.UserHandle, &c.AttestationFormat, &c.RegisteredAt, &lastUsedAt,
	)
	if err != nil {
		return domain.PasskeyCredential{}, err
	}
	if aaguid != "" {
		c.AAGUID, err = uuid.Parse(aaguid)
		if err != nil {
			return domain.PasskeyCredential{}, err
		}
	}
	c.LastUsedAt = mapNullTimePtr(lastUsedAt)
	return c, nil
}

func (r *credentialsRepo) Create(ctx context.Context, c domain.PasskeyCredential) error {
	_, err := r.q.ExecContext(ctx, `
		INSERT INTO passkey_credentials (id, user_id, name, credential_id, public_key, sign_count,
			aaguid, user_handle, attestation_format, registered_at, last_used_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		c.ID, c.UserID, c.Name, c.CredentialID, c.PublicKey, c.SignCount,
		c.AAGUID.String(), c.UserHandle, c.AttestationFormat, c.RegisteredAt, mapOptionalTime(c.LastUsedAt),
	)
	return mapConstraint(err)
}

func (r *credentialsRepo) GetByID(ctx context.Context, id string) (domain.PasskeyCredential, error) {
	row := r.q.QueryRowContext(ctx, `SELECT `+credentialColumns+` FROM passkey_credentials WHERE id = ?`, id)
	c, err := scanCredential(row)
	return c, mapNotFound(err)
}

func (r *credentialsRepo) GetByCredentialID(ctx context.Context, credentialID []byte) (domain.PasskeyCredential, error) {
	row := r.q.QueryRowContext(ctx, `SELECT `+credentialColumns+` FROM passkey_credentials WHERE credential_id = ?`, credentialID)
	c, err := scanCredential(row)
	return c, mapNotFound(err)
}

func (r *credentialsRepo) ListByUser(ctx context.Context, userID string) ([]domain.PasskeyCredential, error) {
	rows, err := r.q.QueryContext(ctx, `
		SELECT `+credentialColumns+` FROM passkey_credentials
		WHERE user_id = ? ORDER BY registered_at`, userID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []domain.PasskeyCredential
	for rows.Next() {
		c, err := scanCredential(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, c)
	}
	return out, rows.Err()
}

func (r *credentialsRepo) UpdateSignCount(ctx context.Context, id string, signCount uint32, usedAt time.Time) error {
	res, err := r.q.ExecContext(ctx, `
		UPDATE passkey_credentials SET sign_count = ?, last_used_at = ? WHERE id = ?`,
		signCount, usedAt, id,
	)
	if err != nil {
		return err
	}
	return requireRow(res)
}

func (r *credentialsRepo) Delete(ctx context.Context, id string) error {
	res, err := r.q.ExecContext(ctx, `DELETE FROM passkey_credentials WHERE id = ?`, id)
	if err != nil {
		return err
	}
	return requireRow(res)
}
