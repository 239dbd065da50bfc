package domain

import "time"

// Credential is a registered WebAuthn public-key credential.
//
// Invariants: CredentialID is globally unique, and SignCount never decreases
// across successful authentications for the same record. A presented counter
// below the stored one means the private key exists in more than one place.
type Credential struct {
	ID     string // ULID record key
	UserID string // owning identity UUID

	// CredentialID is the authenticator-assigned credential id, raw bytes.
	CredentialID []byte

	// PublicKey is the COSE-encoded credential public key.
	PublicKey []byte

	// AAGUID identifies the authenticator family that minted the credential.
	AAGUID string

	// Name is the display name, initialised from the authenticator catalog.
	Name string

	SignCount  uint32
	Transports []string

	CreatedAt  time.Time
	LastUsedAt time.Time
}

// Authenticator is a catalog entry resolving an AAGUID to human-facing
// metadata. A catalog miss is a legitimate "unknown authenticator" outcome.
type Authenticator struct {
	AAGUID    string `json:"aaguid"`
	Name      string `json:"name"`
	IconLight string `json:"icon_light"`
	IconDark  string `json:"icon_dark"`
}
