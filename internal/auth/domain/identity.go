package domain

import "time"

// Identity is a user account as the auth core sees it. Profile fields beyond
// what token issuance needs live with the domain handlers, not here.
type Identity struct {
	ID            string // UUID
	Name          string
	Email         string
	EmailVerified bool

	// Roles are the scope strings embedded in the user's access tokens.
	Roles []string

	CreatedAt time.Time
	UpdatedAt time.Time
}

// AuthMethods summarises how an identity can sign in.
type AuthMethods struct {
	Google   bool `json:"google"`
	Passkeys int  `json:"passkey"`
}
