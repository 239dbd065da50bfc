package sqlite

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/require"

	"github.com/withapp/crush/internal/auth/domain"
	"github.com/withapp/crush/internal/auth/store"
	"github.com/withapp/crush/pkg/idx"
)

func setupStore(t *testing.T) *Store {
	t.Helper()

	s, err := NewStore(":memory:")
	require.NoError(t, err)
	require.NoError(t, s.ApplyMigrations())
	t.Cleanup(func() { _ = s.Close() })

	return s
}

func newIdentity(t *testing.T) domain.Identity {
	t.Helper()
	return domain.Identity{
		ID:    uuid.NewString(),
		Name:  "Alex",
		Email: uuid.NewString() + "@example.com",
		Roles: []string{"core:user"},
	}
}

func TestIdentities_CreateAndGet(t *testing.T) {
	s := setupStore(t)
	ctx := context.Background()

	ident := newIdentity(t)
	require.NoError(t, s.Identities().CreateIdentity(ctx, ident))

	got, err := s.Identities().GetIdentityByID(ctx, ident.ID)
	require.NoError(t, err)
	require.Equal(t, ident.ID, got.ID)
	require.Equal(t, ident.Email, got.Email)
	require.Equal(t, []string{"core:user"}, got.Roles)
	require.False(t, got.EmailVerified)
	require.False(t, got.CreatedAt.IsZero())

	byEmail, err := s.Identities().GetIdentityByEmail(ctx, ident.Email)
	require.NoError(t, err)
	require.Equal(t, ident.ID, byEmail.ID)
}

func TestIdentities_GetMissing(t *testing.T) {
	s := setupStore(t)

	_, err := s.Identities().GetIdentityByID(context.Background(), uuid.NewString())
	require.ErrorIs(t, err, store.ErrNotFound)
}

func TestIdentities_DuplicateEmail(t *testing.T) {
	s := setupStore(t)
	ctx := context.Background()

	ident := newIdentity(t)
	require.NoError(t, s.Identities().CreateIdentity(ctx, ident))

	dup := newIdentity(t)
	dup.Email = ident.Email
	err := s.Identities().CreateIdentity(ctx, dup)
	require.ErrorIs(t, err, store.ErrAlreadyExists)
}

func TestIdentities_Update(t *testing.T) {
	s := setupStore(t)
	ctx := context.Background()

	ident := newIdentity(t)
	require.NoError(t, s.Identities().CreateIdentity(ctx, ident))

	require.NoError(t, s.Identities().UpdateName(ctx, ident.ID, "Sam"))
	require.NoError(t, s.Identities().UpdateRoles(ctx, ident.ID, []string{"core:user", "place:add"}))
	require.NoError(t, s.Identities().MarkEmailVerified(ctx, ident.ID))

	got, err := s.Identities().GetIdentityByID(ctx, ident.ID)
	require.NoError(t, err)
	require.Equal(t, "Sam", got.Name)
	require.Equal(t, []string{"core:user", "place:add"}, got.Roles)
	require.True(t, got.EmailVerified)
}

func newCredential(t *testing.T, userID string) domain.Credential {
	t.Helper()
	return domain.Credential{
		ID:           idx.New().String(),
		UserID:       userID,
		CredentialID: []byte(uuid.NewString()),
		PublicKey:    []byte{0xA5, 0x01, 0x02},
		AAGUID:       "adce0002-35bc-c60a-648b-0b25f1f05503",
		Name:         "Chrome on Mac",
		SignCount:    0,
		Transports:   []string{"internal", "hybrid"},
	}
}

func TestCredentials_CreateAndLookup(t *testing.T) {
	s := setupStore(t)
	ctx := context.Background()

	ident := newIdentity(t)
	require.NoError(t, s.Identities().CreateIdentity(ctx, ident))

	cred := newCredential(t, ident.ID)
	require.NoError(t, s.Credentials().CreateCredential(ctx, cred))

	got, err := s.Credentials().GetCredentialByCredentialID(ctx, cred.CredentialID)
	require.NoError(t, err)
	require.Equal(t, cred.ID, got.ID)
	require.Equal(t, ident.ID, got.UserID)
	require.Equal(t, cred.PublicKey, got.PublicKey)
	require.Equal(t, []string{"internal", "hybrid"}, got.Transports)

	byID, err := s.Credentials().GetCredentialByID(ctx, cred.ID, ident.ID)
	require.NoError(t, err)
	require.Equal(t, cred.CredentialID, byID.CredentialID)

	// wrong owner must not see it
	_, err = s.Credentials().GetCredentialByID(ctx, cred.ID, uuid.NewString())
	require.ErrorIs(t, err, store.ErrNotFound)
}

func TestCredentials_DuplicateCredentialID(t *testing.T) {
	s := setupStore(t)
	ctx := context.Background()

	ident := newIdentity(t)
	require.NoError(t, s.Identities().CreateIdentity(ctx, ident))

	cred := newCredential(t, ident.ID)
	require.NoError(t, s.Credentials().CreateCredential(ctx, cred))

	dup := newCredential(t, ident.ID)
	dup.CredentialID = cred.CredentialID
	err := s.Credentials().CreateCredential(ctx, dup)
	require.ErrorIs(t, err, store.ErrAlreadyExists)
}

func TestCredentials_UpdateSignCount(t *testing.T) {
	s := setupStore(t)
	ctx := context.Background()

	ident := newIdentity(t)
	require.NoError(t, s.Identities().CreateIdentity(ctx, ident))

	cred := newCredential(t, ident.ID)
	require.NoError(t, s.Credentials().CreateCredential(ctx, cred))

	before, err := s.Credentials().GetCredentialByID(ctx, cred.ID, ident.ID)
	require.NoError(t, err)

	time.Sleep(5 * time.Millisecond)
	require.NoError(t, s.Credentials().UpdateSignCount(ctx, cred.ID, 7))

	after, err := s.Credentials().GetCredentialByID(ctx, cred.ID, ident.ID)
	require.NoError(t, err)
	require.Equal(t, uint32(7), after.SignCount)
	require.True(t, after.LastUsedAt.After(before.LastUsedAt))
}

func TestCredentials_RenameAndDelete(t *testing.T) {
	s := setupStore(t)
	ctx := context.Background()

	ident := newIdentity(t)
	require.NoError(t, s.Identities().CreateIdentity(ctx, ident))

	cred := newCredential(t, ident.ID)
	require.NoError(t, s.Credentials().CreateCredential(ctx, cred))

	// rename scoped to the wrong owner fails
	err := s.Credentials().UpdateCredentialName(ctx, cred.ID, uuid.NewString(), "stolen")
	require.ErrorIs(t, err, store.ErrNotFound)

	require.NoError(t, s.Credentials().UpdateCredentialName(ctx, cred.ID, ident.ID, "YubiKey"))

	got, err := s.Credentials().GetCredentialByID(ctx, cred.ID, ident.ID)
	require.NoError(t, err)
	require.Equal(t, "YubiKey", got.Name)

	err = s.Credentials().DeleteCredential(ctx, cred.ID, uuid.NewString())
	require.ErrorIs(t, err, store.ErrNotFound)

	require.NoError(t, s.Credentials().DeleteCredential(ctx, cred.ID, ident.ID))

	count, err := s.Credentials().CountCredentialsByUser(ctx, ident.ID)
	require.NoError(t, err)
	require.Zero(t, count)
}

func TestCredentials_ListByUser(t *testing.T) {
	s := setupStore(t)
	ctx := context.Background()

	ident := newIdentity(t)
	require.NoError(t, s.Identities().CreateIdentity(ctx, ident))

	for i := 0; i < 3; i++ {
		cred := newCredential(t, ident.ID)
		cred.CreatedAt = time.Now().UTC().Add(time.Duration(i) * time.Second)
		require.NoError(t, s.Credentials().CreateCredential(ctx, cred))
	}

	creds, err := s.Credentials().ListCredentialsByUser(ctx, ident.ID)
	require.NoError(t, err)
	require.Len(t, creds, 3)

	// newest first
	require.True(t, creds[0].CreatedAt.After(creds[2].CreatedAt))
}

func TestCredentials_CascadeOnIdentityDelete(t *testing.T) {
	s := setupStore(t)
	ctx := context.Background()

	ident := newIdentity(t)
	require.NoError(t, s.Identities().CreateIdentity(ctx, ident))

	cred := newCredential(t, ident.ID)
	require.NoError(t, s.Credentials().CreateCredential(ctx, cred))

	require.NoError(t, s.Identities().DeleteIdentity(ctx, ident.ID))

	_, err := s.Credentials().GetCredentialByCredentialID(ctx, cred.CredentialID)
	require.ErrorIs(t, err, store.ErrNotFound)
}

func TestAuthenticators_ReplaceAndGet(t *testing.T) {
	s := setupStore(t)
	ctx := context.Background()

	entries := []domain.Authenticator{
		{AAGUID: "adce0002-35bc-c60a-648b-0b25f1f05503", Name: "Google Password Manager", IconLight: "light.svg", IconDark: "dark.svg"},
		{AAGUID: "08987058-cadc-4b81-b6e1-30de50dcbe96", Name: "Windows Hello"},
	}
	require.NoError(t, s.Authenticators().ReplaceAuthenticators(ctx, entries))

	count, err := s.Authenticators().CountAuthenticators(ctx)
	require.NoError(t, err)
	require.Equal(t, 2, count)

	got, err := s.Authenticators().GetAuthenticator(ctx, entries[0].AAGUID)
	require.NoError(t, err)
	require.Equal(t, "Google Password Manager", got.Name)
	require.Equal(t, "light.svg", got.IconLight)

	// catalog miss is a plain not-found
	_, err = s.Authenticators().GetAuthenticator(ctx, "00000000-0000-0000-0000-000000000000")
	require.ErrorIs(t, err, store.ErrNotFound)

	// replace swaps the whole catalog
	require.NoError(t, s.Authenticators().ReplaceAuthenticators(ctx, entries[:1]))
	count, err = s.Authenticators().CountAuthenticators(ctx)
	require.NoError(t, err)
	require.Equal(t, 1, count)
}

func TestOAuthAccounts_CreateAndGet(t *testing.T) {
	s := setupStore(t)
	ctx := context.Background()

	ident := newIdentity(t)
	require.NoError(t, s.Identities().CreateIdentity(ctx, ident))

	acc := domain.OAuthAccount{
		ID:       idx.New().String(),
		Provider: "google",
		Subject:  "109842345678901234567",
		UserID:   ident.ID,
	}
	require.NoError(t, s.OAuthAccounts().CreateOAuthAccount(ctx, acc))

	got, err := s.OAuthAccounts().GetOAuthAccount(ctx, "google", acc.Subject)
	require.NoError(t, err)
	require.Equal(t, ident.ID, got.UserID)

	// same subject under a different provider is a distinct link
	_, err = s.OAuthAccounts().GetOAuthAccount(ctx, "github", acc.Subject)
	require.ErrorIs(t, err, store.ErrNotFound)

	dup := acc
	dup.ID = idx.New().String()
	err = s.OAuthAccounts().CreateOAuthAccount(ctx, dup)
	require.ErrorIs(t, err, store.ErrAlreadyExists)

	count, err := s.OAuthAccounts().CountOAuthAccountsByUser(ctx, ident.ID)
	require.NoError(t, err)
	require.Equal(t, 1, count)
}

func TestWithTx_RollsBackOnError(t *testing.T) {
	s := setupStore(t)
	ctx := context.Background()

	ident := newIdentity(t)

	err := s.WithTx(ctx, func(tx store.Tx) error {
		if err := tx.Identities().CreateIdentity(ctx, ident); err != nil {
			return err
		}
		return context.Canceled // force rollback
	})
	require.Error(t, err)

	_, err = s.Identities().GetIdentityByID(ctx, ident.ID)
	require.ErrorIs(t, err, store.ErrNotFound)
}

func TestWithTx_CommitsOnSuccess(t *testing.T) {
	s := setupStore(t)
	ctx := context.Background()

	ident := newIdentity(t)
	cred := newCredential(t, ident.ID)

	err := s.WithTx(ctx, func(tx store.Tx) error {
		if err := tx.Identities().CreateIdentity(ctx, ident); err != nil {
			return err
		}
		return tx.Credentials().CreateCredential(ctx, cred)
	})
	require.NoError(t, err)

	got, err := s.Credentials().GetCredentialByCredentialID(ctx, cred.CredentialID)
	require.NoError(t, err)
	require.Equal(t, ident.ID, got.UserID)
}
