package jwtx

import (
	"errors"

	"github.com/golang-jwt/jwt/v5"
)

// Alg is the only signature algorithm this service accepts. Pinning a single
// algorithm prevents downgrade and key-confusion attacks.
const Alg = "HS256"

var (
	ErrMalformed   = errors.New("jwtx: malformed token")
	ErrAlgMismatch = errors.New("jwtx: algorithm mismatch")
	ErrInvalidSig  = errors.New("jwtx: invalid signature")

	ErrIssuer         = errors.New("jwtx: issuer mismatch")
	ErrAudience       = errors.New("jwtx: audience mismatch")
	ErrExpired        = errors.New("jwtx: token expired")
	ErrMissingClaim   = errors.New("jwtx: missing required claim")
	ErrInvalidSubject = errors.New("jwtx: subject is not a valid identifier")
)

// Codec signs and verifies tokens with a single symmetric key. Verification
// enforces the pinned algorithm, required claims, issuer, audience and
// expiry; callers get exactly one of the sentinel errors above on failure.
type Codec struct {
	secret   []byte
	issuer   string
	audience []string
}

// NewCodec builds a Codec around the service signing key and the fixed
// issuer/audience every token must carry.
func NewCodec(secret []byte, issuer string, audience []string) *Codec {
	return &Codec{
		secret:   secret,
		issuer:   issuer,
		audience: audience,
	}
}

// Issuer returns the fixed issuer every minted token carries.
func (c *Codec) Issuer() string { return c.issuer }

// Audience returns the fixed audience every minted token carries.
func (c *Codec) Audience() []string { return c.audience }

// Sign produces a compact serialized token for the given claims.
func (c *Codec) Sign(claims Claims) (string, error) {
	tok := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return tok.SignedString(c.secret)
}

// Verify parses and fully validates a compact token. On success the decoded
// claims are returned; on any violation a sentinel error is returned and the
// claims must not be trusted.
func (c *Codec) Verify(raw string) (Claims, error) {
	var claims Claims

	parser := jwt.NewParser(
		jwt.WithValidMethods([]string{Alg}),
		// Claim checks are done explicitly below so each failure maps to
		// a distinct sentinel.
		jwt.WithoutClaimsValidation(),
	)

	_, err := parser.ParseWithClaims(raw, &claims, func(t *jwt.Token) (any, error) {
		if t.Method.Alg() != Alg {
			return nil, ErrAlgMismatch
		}
		return c.secret, nil
	})
	if err != nil {
		return Claims{}, mapParseError(err)
	}

	if err := claims.ValidateRequired(); err != nil {
		return Claims{}, err
	}
	if err := claims.ValidateIssuer(c.issuer); err != nil {
		return Claims{}, err
	}
	if err := claims.ValidateAudience(c.audience); err != nil {
		return Claims{}, err
	}
	if err := claims.ValidateExpiry(); err != nil {
		return Claims{}, err
	}

	return claims, nil
}

func mapParseError(err error) error {
	switch {
	case errors.Is(err, ErrAlgMismatch):
		return ErrAlgMismatch
	case errors.Is(err, jwt.ErrTokenSignatureInvalid):
		return ErrInvalidSig
	default:
		return ErrMalformed
	}
}
