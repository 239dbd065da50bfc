package domain

import "time"

// TokenPair is a freshly issued access/refresh pair. Both tokens are
// stateless; the refresh token's rti becomes consumable exactly once by the
// rotation ledger.
type TokenPair struct {
	AccessToken  string
	RefreshToken string
	ExpiresIn    time.Duration
}

// OAuthAccount links an external identity-provider subject to a local
// identity.
type OAuthAccount struct {
	ID       string // ULID record key
	Provider string // e.g. "google"
	Subject  string // provider-assigned stable subject
	UserID   string // owning identity UUID

	CreatedAt time.Time
}
