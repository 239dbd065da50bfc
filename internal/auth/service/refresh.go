package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/withapp/crush/internal/auth/cache"
	"github.com/withapp/crush/internal/auth/domain"
	"github.com/withapp/crush/internal/auth/store"
	"github.com/withapp/crush/pkg/slogx"
)

var (
	ErrReplayedToken    = errors.New("replayed_refresh_token")
	ErrIdentityNotFound = errors.New("identity_not_found")
)

const blacklistPrefix = "rti:"

// RefreshService is the rotation ledger: every refresh token is usable
// exactly once. Consumption is an atomic create of the token's rti in the
// blacklist, so two concurrent rotations of the same token can never both
// succeed.
type RefreshService struct {
	Tokens *TokenService
	Store  store.Store
	Cache  cache.Store
}

// Rotate consumes a refresh token and issues a fresh pair. A token whose
// rti is already in the ledger has been presented before; that is a replay
// and a security event.
func (s *RefreshService) Rotate(ctx context.Context, refreshToken string) (*domain.TokenPair, error) {
	l := slogx.FromContext(ctx)

	claims, err := s.Tokens.DecodeRefresh(refreshToken)
	if err != nil {
		return nil, err
	}

	// Ledger entries must outlive the token itself, so the TTL is the full
	// refresh lifetime rather than the token's remaining validity.
	ok, err := s.Cache.SetNX(ctx, blacklistPrefix+claims.RTI, []byte("1"), s.Tokens.RefreshTTL)
	if err != nil {
		return nil, fmt.Errorf("consume rti: %w", err)
	}
	if !ok {
		l.Warn("refresh token replay detected",
			slog.String("rti", claims.RTI),
			slog.String("sub", claims.Subject),
		)
		return nil, ErrReplayedToken
	}

	ident, err := s.Store.Identities().GetIdentityByID(ctx, claims.Subject)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return nil, ErrIdentityNotFound
		}
		return nil, err
	}

	return s.Tokens.Login(ctx, ident)
}

// Logout retires a refresh token so it can never rotate again. Logging out
// twice with the same token is fine; the second write is a no-op.
func (s *RefreshService) Logout(ctx context.Context, refreshToken string) error {
	claims, err := s.Tokens.DecodeRefresh(refreshToken)
	if err != nil {
		return err
	}

	if err := s.Cache.Set(ctx, blacklistPrefix+claims.RTI, []byte("1"), s.Tokens.RefreshTTL); err != nil {
		return fmt.Errorf("retire rti: %w", err)
	}
	return nil
}

// IsRetired reports whether a refresh token id has already been consumed.
func (s *RefreshService) IsRetired(ctx context.Context, rti string) (bool, error) {
	return s.Cache.Exists(ctx, blacklistPrefix+rti)
}
