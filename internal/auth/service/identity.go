package service

import (
	"context"
	"errors"

	"github.com/withapp/crush/internal/auth/domain"
	"github.com/withapp/crush/internal/auth/store"
)

// IdentityService answers identity lookups for the auth surface: who a
// subject is and how they can sign in.
type IdentityService struct {
	Store store.Store
}

// Get loads an identity by its subject id.
func (s *IdentityService) Get(ctx context.Context, id string) (domain.Identity, error) {
	ident, err := s.Store.Identities().GetIdentityByID(ctx, id)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return domain.Identity{}, ErrIdentityNotFound
		}
		return domain.Identity{}, err
	}
	return ident, nil
}

// AuthMethods summarises the sign-in methods linked to an identity: whether
// a Google account is connected, and how many passkeys are registered.
func (s *IdentityService) AuthMethods(ctx context.Context, id string) (domain.AuthMethods, error) {
	if _, err := s.Get(ctx, id); err != nil {
		return domain.AuthMethods{}, err
	}

	googleLinks, err := s.Store.OAuthAccounts().CountOAuthAccountsByUser(ctx, id)
	if err != nil {
		return domain.AuthMethods{}, err
	}
	passkeys, err := s.Store.Credentials().CountCredentialsByUser(ctx, id)
	if err != nil {
		return domain.AuthMethods{}, err
	}

	return domain.AuthMethods{
		Google:   googleLinks > 0,
		Passkeys: passkeys,
	}, nil
}
