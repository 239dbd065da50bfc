package sqlite

import (
	"context"
	"time"

	"github.com/withapp/crush/internal/auth/domain"
)

type identitiesRepo struct {
	db dbtx
}

const identityColumns = `id, name, email, email_verified, roles, created_at, updated_at`

func (r *identitiesRepo) scanIdentity(row interface{ Scan(...any) error }) (domain.Identity, error) {
	var (
		ident domain.Identity
		roles string
	)
	err := row.Scan(
		&ident.ID,
		&ident.Name,
		&ident.Email,
		&ident.EmailVerified,
		&roles,
		&ident.CreatedAt,
		&ident.UpdatedAt,
	)
	if err != nil {
		return domain.Identity{}, mapNotFound(err)
	}
	ident.Roles = splitAndFilter(roles)
	return ident, nil
}

func (r *identitiesRepo) GetIdentityByID(ctx context.Context, id string) (domain.Identity, error) {
	row := r.db.QueryRowContext(ctx,
		`SELECT `+identityColumns+` FROM identities WHERE id = ?`, id)
	return r.scanIdentity(row)
}

func (r *identitiesRepo) GetIdentityByEmail(ctx context.Context, email string) (domain.Identity, error) {
	row := r.db.QueryRowContext(ctx,
		`SELECT `+identityColumns+` FROM identities WHERE email = ?`, email)
	return r.scanIdentity(row)
}

func (r *identitiesRepo) CreateIdentity(ctx context.Context, ident domain.Identity) error {
	now := time.Now().UTC()
	if ident.CreatedAt.IsZero() {
		ident.CreatedAt = now
	}
	if ident.UpdatedAt.IsZero() {
		ident.UpdatedAt = now
	}

	_, err := r.db.ExecContext(ctx,
		`INSERT INTO identities (id, name, email, email_verified, roles, created_at, updated_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?)`,
		ident.ID,
		ident.Name,
		ident.Email,
		ident.EmailVerified,
		joinFields(ident.Roles),
		ident.CreatedAt,
		ident.UpdatedAt,
	)
	return mapConstraint(err)
}

func (r *identitiesRepo) UpdateName(ctx context.Context, id string, name string) error {
	_, err := r.db.ExecContext(ctx,
		`UPDATE identities SET name = ?, updated_at = ? WHERE id = ?`,
		name, time.Now().UTC(), id)
	return err
}

func (r *identitiesRepo) UpdateRoles(ctx context.Context, id string, roles []string) error {
	_, err := r.db.ExecContext(ctx,
		`UPDATE identities SET roles = ?, updated_at = ? WHERE id = ?`,
		joinFields(roles), time.Now().UTC(), id)
	return err
}

func (r *identitiesRepo) MarkEmailVerified(ctx context.Context, id string) error {
	_, err := r.db.ExecContext(ctx,
		`UPDATE identities SET email_verified = 1, updated_at = ? WHERE id = ?`,
		time.Now().UTC(), id)
	return err
}

func (r *identitiesRepo) DeleteIdentity(ctx context.Context, id string) error {
	_, err := r.db.ExecContext(ctx, `DELETE FROM identities WHERE id = ?`, id)
	return err
}
