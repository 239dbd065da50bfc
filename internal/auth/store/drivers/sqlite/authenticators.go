package sqlite

import (
	"context"

	"github.com/withapp/crush/internal/auth/domain"
)

type authenticatorsRepo struct {
	db dbtx
}

func (r *authenticatorsRepo) GetAuthenticator(ctx context.Context, aaguid string) (domain.Authenticator, error) {
	var a domain.Authenticator
	err := r.db.QueryRowContext(ctx,
		`SELECT aaguid, name, icon_light, icon_dark FROM authenticators WHERE aaguid = ?`,
		aaguid).Scan(&a.AAGUID, &a.Name, &a.IconLight, &a.IconDark)
	if err != nil {
		return domain.Authenticator{}, mapNotFound(err)
	}
	return a, nil
}

func (r *authenticatorsRepo) ReplaceAuthenticators(ctx context.Context, entries []domain.Authenticator) error {
	if _, err := r.db.ExecContext(ctx, `DELETE FROM authenticators`); err != nil {
		return err
	}
	for _, e := range entries {
		_, err := r.db.ExecContext(ctx,
			`INSERT INTO authenticators (aaguid, name, icon_light, icon_dark) VALUES (?, ?, ?, ?)`,
			e.AAGUID, e.Name, e.IconLight, e.IconDark)
		if err != nil {
			return mapConstraint(err)
		}
	}
	return nil
}

func (r *authenticatorsRepo) CountAuthenticators(ctx context.Context) (int, error) {
	var count int
	err := r.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM authenticators`).Scan(&count)
	return count, err
}
