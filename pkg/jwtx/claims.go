package jwtx

import (
	"slices"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
)

// Claims are the token claims shared by access and refresh tokens. Access
// tokens carry the caller's permission scopes; refresh tokens carry a random
// token id ("rti") and the single auth:refresh scope.
type Claims struct {
	jwt.RegisteredClaims

	// Permission scopes, e.g. ["core:user", "place:add"]. The wire values
	// are fixed for compatibility with existing clients.
	Scopes []string `json:"scope,omitempty"`

	// RTI is the refresh token id. Present on refresh tokens only; used by
	// the rotation ledger to enforce single use.
	RTI string `json:"rti,omitempty"`
}

// NewAccessClaims builds minimally-correct access token claims.
func NewAccessClaims(
	subject uuid.UUID,
	scopes []string,
	ttl time.Duration,
	issuer string,
	audience []string,
	now time.Time,
) Claims {
	return Claims{
		RegisteredClaims: jwt.RegisteredClaims{
			Issuer:    issuer,
			Subject:   subject.String(),
			Audience:  jwt.ClaimStrings(audience),
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
		},
		Scopes: scopes,
	}
}

// NewRefreshClaims builds refresh token claims with a fresh random rti and
// the refresh-only scope marker.
func NewRefreshClaims(
	subject uuid.UUID,
	refreshScope string,
	ttl time.Duration,
	issuer string,
	audience []string,
	now time.Time,
) Claims {
	return Claims{
		RegisteredClaims: jwt.RegisteredClaims{
			Issuer:    issuer,
			Subject:   subject.String(),
			Audience:  jwt.ClaimStrings(audience),
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
		},
		Scopes: []string{refreshScope},
		RTI:    uuid.NewString(),
	}
}

// ValidateRequired enforces presence of every claim this service always
// embeds. A token missing any of them was not minted by us.
func (c *Claims) ValidateRequired() error {
	switch {
	case c.Issuer == "",
		c.Subject == "",
		len(c.Audience) == 0,
		c.IssuedAt == nil,
		c.ExpiresAt == nil:
		return ErrMissingClaim
	}
	return nil
}

// ValidateIssuer checks if the issuer matches the expected value.
func (c *Claims) ValidateIssuer(expected string) error {
	if expected == "" {
		return nil // nothing to enforce
	}

	if c.Issuer != expected {
		return ErrIssuer
	}

	return nil
}

// ValidateAudience checks if at least one expected audience is present.
func (c *Claims) ValidateAudience(expected []string) error {
	if len(expected) == 0 {
		return nil // nothing to enforce
	}

	for _, want := range expected {
		if slices.Contains(c.Audience, want) {
			return nil
		}
	}

	return ErrAudience
}

// ValidateExpiry ensures the token hasn't expired.
func (c *Claims) ValidateExpiry() error {
	now := time.Now().UTC()

	if c.ExpiresAt != nil && now.After(c.ExpiresAt.Time) {
		return ErrExpired
	}

	return nil
}

// HasScope reports whether the claim set carries the given scope string.
func (c *Claims) HasScope(scope string) bool {
	return slices.Contains(c.Scopes, scope)
}

// SubjectID parses and validates the subject claim as a UUID. A subject
// that isn't a well-formed UUID is a malformed identity, which callers
// surface differently from a signature failure.
func (c *Claims) SubjectID() (uuid.UUID, error) {
	id, err := uuid.Parse(c.Subject)
	if err != nil {
		return uuid.Nil, ErrInvalidSubject
	}
	return id, nil
}
