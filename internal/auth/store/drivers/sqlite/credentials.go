package sqlite

import (
	"context"
	"time"

	"github.com/withapp/crush/internal/auth/domain"
	"github.com/withapp/crush/internal/auth/store"
)

type credentialsRepo struct {
	db dbtx
}

const credentialColumns = `id, user_id, credential_id, public_key, aaguid, name, sign_count, transports, created_at, last_used_at`

func scanCredential(row interface{ Scan(...any) error }) (domain.Credential, error) {
	var (
		c          domain.Credential
		transports string
	)
	err := row.Scan(
		&c.ID,
		&c.UserID,
		&c.CredentialID,
		&c.PublicKey,
		&c.AAGUID,
		&c.Name,
		&c.SignCount,
		&transports,
		&c.CreatedAt,
		&c.LastUsedAt,
	)
	if err != nil {
		return domain.Credential{}, mapNotFound(err)
	}
	c.Transports = splitAndFilter(transports)
	return c, nil
}

func (r *credentialsRepo) CreateCredential(ctx context.Context, c domain.Credential) error {
	now := time.Now().UTC()
	if c.CreatedAt.IsZero() {
		c.CreatedAt = now
	}
	if c.LastUsedAt.IsZero() {
		c.LastUsedAt = now
	}

	_, err := r.db.ExecContext(ctx,
		`INSERT INTO credentials (id, user_id, credential_id, public_key, aaguid, name, sign_count, transports, created_at, last_used_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		c.ID,
		c.UserID,
		c.CredentialID,
		c.PublicKey,
		c.AAGUID,
		c.Name,
		c.SignCount,
		joinFields(c.Transports),
		c.CreatedAt,
		c.LastUsedAt,
	)
	return mapConstraint(err)
}

func (r *credentialsRepo) GetCredentialByCredentialID(ctx context.Context, credentialID []byte) (domain.Credential, error) {
	row := r.db.QueryRowContext(ctx,
		`SELECT `+credentialColumns+` FROM credentials WHERE credential_id = ?`, credentialID)
	return scanCredential(row)
}

func (r *credentialsRepo) GetCredentialByID(ctx context.Context, id string, userID string) (domain.Credential, error) {
	row := r.db.QueryRowContext(ctx,
		`SELECT `+credentialColumns+` FROM credentials WHERE id = ? AND user_id = ?`, id, userID)
	return scanCredential(row)
}

func (r *credentialsRepo) ListCredentialsByUser(ctx context.Context, userID string) ([]domain.Credential, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT `+credentialColumns+` FROM credentials WHERE user_id = ? ORDER BY created_at DESC`, userID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []domain.Credential
	for rows.Next() {
		c, err := scanCredential(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, c)
	}
	return out, rows.Err()
}

func (r *credentialsRepo) UpdateSignCount(ctx context.Context, id string, signCount uint32) error {
	_, err := r.db.ExecContext(ctx,
		`UPDATE credentials SET sign_count = ?, last_used_at = ? WHERE id = ?`,
		signCount, time.Now().UTC(), id)
	return err
}

func (r *credentialsRepo) UpdateCredentialName(ctx context.Context, id string, userID string, name string) error {
	res, err := r.db.ExecContext(ctx,
		`UPDATE credentials SET name = ? WHERE id = ? AND user_id = ?`,
		name, id, userID)
	if err != nil {
		return err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return store.ErrNotFound
	}
	return nil
}

func (r *credentialsRepo) DeleteCredential(ctx context.Context, id string, userID string) error {
	res, err := r.db.ExecContext(ctx,
		`DELETE FROM credentials WHERE id = ? AND user_id = ?`, id, userID)
	if err != nil {
		return err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return store.ErrNotFound
	}
	return nil
}

func (r *credentialsRepo) CountCredentialsByUser(ctx context.Context, userID string) (int, error) {
	var count int
	err := r.db.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM credentials WHERE user_id = ?`, userID).Scan(&count)
	return count, err
}
