package store

import (
	"context"
	"errors"

	"github.com/withapp/crush/internal/auth/domain"
)

var (
	ErrNotFound      = errors.New("store: not found")
	ErrAlreadyExists = errors.New("store: already exists")
)

// Store is the root data access interface. Concrete drivers (sqlite, postgres)
// implement this. It exposes sub-repositories to keep concerns tidy and
// testable, and to stop callers from accidentally nesting transactions.
type Store interface {
	Identities() Identities
	Credentials() Credentials
	Authenticators() Authenticators
	OAuthAccounts() OAuthAccounts

	ApplyMigrations() error

	// Tx starts a read/write transaction and returns a Tx-scoped Store.
	// Use it for multi-step operations that must be atomic (e.g., passkey
	// registration creating an identity and its first credential).
	// The caller MUST call Commit() or Rollback() on the returned Tx.
	Tx(ctx context.Context) (Tx, error)

	// WithTx executes a function within a transaction.
	// If fn returns an error, the transaction is rolled back.
	// If fn returns nil, the transaction is committed.
	WithTx(ctx context.Context, fn func(tx Tx) error) error

	// Close releases any underlying resources (optional for sqlite).
	Close() error

	// Ping verifies the database connection is still alive.
	Ping(ctx context.Context) error
}

// Tx is a transactional store. It embeds the same repos but adds Commit/Rollback.
type Tx interface {
	Store
	Commit() error
	Rollback() error
}

type Identities interface {
	// GetIdentityByID returns an identity by its UUID.
	GetIdentityByID(ctx context.Context, id string) (domain.Identity, error)

	// GetIdentityByEmail is used when linking provider logins to existing accounts.
	GetIdentityByEmail(ctx context.Context, email string) (domain.Identity, error)

	// CreateIdentity inserts a new identity (id is provided by the app as a UUID).
	CreateIdentity(ctx context.Context, ident domain.Identity) error

	// UpdateName mutates the display name and bumps updated_at.
	UpdateName(ctx context.Context, id string, name string) error

	// UpdateRoles replaces the scope grants for an identity.
	UpdateRoles(ctx context.Context, id string, roles []string) error

	// MarkEmailVerified flips email_verified and bumps updated_at.
	MarkEmailVerified(ctx context.Context, id string) error

	// DeleteIdentity cascades to credentials and oauth_accounts (per schema).
	DeleteIdentity(ctx context.Context, id string) error
}

type Credentials interface {
	// CreateCredential inserts a new passkey record (id is a ULID).
	// A duplicate credential_id returns ErrAlreadyExists.
	CreateCredential(ctx context.Context, c domain.Credential) error

	// GetCredentialByCredentialID looks up by the authenticator-assigned id,
	// which is the handle presented during an assertion.
	GetCredentialByCredentialID(ctx context.Context, credentialID []byte) (domain.Credential, error)

	// GetCredentialByID returns a record by its ULID, scoped to an owner.
	GetCredentialByID(ctx context.Context, id string, userID string) (domain.Credential, error)

	// ListCredentialsByUser returns all passkeys for an identity, newest first.
	ListCredentialsByUser(ctx context.Context, userID string) ([]domain.Credential, error)

	// UpdateSignCount records a successful assertion: the new counter plus
	// last_used_at.
	UpdateSignCount(ctx context.Context, id string, signCount uint32) error

	// UpdateCredentialName renames a passkey, scoped to an owner.
	UpdateCredentialName(ctx context.Context, id string, userID string, name string) error

	// DeleteCredential removes a passkey, scoped to an owner.
	DeleteCredential(ctx context.Context, id string, userID string) error

	// CountCredentialsByUser reports how many passkeys an identity holds.
	CountCredentialsByUser(ctx context.Context, userID string) (int, error)
}

type Authenticators interface {
	// GetAuthenticator resolves an AAGUID to catalog metadata. A miss
	// returns ErrNotFound and is a legitimate outcome, not a fault.
	GetAuthenticator(ctx context.Context, aaguid string) (domain.Authenticator, error)

	// ReplaceAuthenticators swaps the whole catalog for a fresh import.
	ReplaceAuthenticators(ctx context.Context, entries []domain.Authenticator) error

	// CountAuthenticators returns the catalog size.
	CountAuthenticators(ctx context.Context) (int, error)
}

type OAuthAccounts interface {
	// CreateOAuthAccount links a provider subject to an identity (id is a ULID).
	// A duplicate provider+subject pair returns ErrAlreadyExists.
	CreateOAuthAccount(ctx context.Context, acc domain.OAuthAccount) error

	// GetOAuthAccount looks up a link by provider and provider subject.
	GetOAuthAccount(ctx context.Context, provider, subject string) (domain.OAuthAccount, error)

	// CountOAuthAccountsByUser reports how many provider links an identity holds.
	CountOAuthAccountsByUser(ctx context.Context, userID string) (int, error)

	// DeleteOAuthAccountsByUser removes all links for an identity.
	DeleteOAuthAccountsByUser(ctx context.Context, userID string) error
}
