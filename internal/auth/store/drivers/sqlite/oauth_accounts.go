package sqlite

import (
	"context"
	"time"

	"github.com/withapp/crush/internal/auth/domain"
)

type oauthAccountsRepo struct {
	db dbtx
}

func (r *oauthAccountsRepo) CreateOAuthAccount(ctx context.Context, acc domain.OAuthAccount) error {
	if acc.CreatedAt.IsZero() {
		acc.CreatedAt = time.Now().UTC()
	}

	_, err := r.db.ExecContext(ctx,
		`INSERT INTO oauth_accounts (id, provider, subject, user_id, created_at)
		 VALUES (?, ?, ?, ?, ?)`,
		acc.ID, acc.Provider, acc.Subject, acc.UserID, acc.CreatedAt)
	return mapConstraint(err)
}

func (r *oauthAccountsRepo) GetOAuthAccount(ctx context.Context, provider, subject string) (domain.OAuthAccount, error) {
	var acc domain.OAuthAccount
	err := r.db.QueryRowContext(ctx,
		`SELECT id, provider, subject, user_id, created_at
		 FROM oauth_accounts WHERE provider = ? AND subject = ?`,
		provider, subject).Scan(&acc.ID, &acc.Provider, &acc.Subject, &acc.UserID, &acc.CreatedAt)
	if err != nil {
		return domain.OAuthAccount{}, mapNotFound(err)
	}
	return acc, nil
}

func (r *oauthAccountsRepo) CountOAuthAccountsByUser(ctx context.Context, userID string) (int, error) {
	var count int
	err := r.db.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM oauth_accounts WHERE user_id = ?`, userID).Scan(&count)
	return count, err
}

func (r *oauthAccountsRepo) DeleteOAuthAccountsByUser(ctx context.Context, userID string) error {
	_, err := r.db.ExecContext(ctx,
		`DELETE FROM oauth_accounts WHERE user_id = ?`, userID)
	return err
}
