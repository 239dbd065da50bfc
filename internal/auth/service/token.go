package service

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"

	"github.com/withapp/crush/internal/auth/domain"
	"github.com/withapp/crush/pkg/jwtx"
)

var (
	ErrInvalidToken      = errors.New("invalid_token")
	ErrMalformedIdentity = errors.New("malformed_identity")
)

// TokenService mints and decodes the stateless token pair. The refresh
// token's single-use property is enforced by RefreshService, not here.
type TokenService struct {
	Codec      *jwtx.Codec
	AccessTTL  time.Duration
	RefreshTTL time.Duration
}

// IssueAccess mints an access token carrying the given permission scopes.
func (s *TokenService) IssueAccess(subject uuid.UUID, scopes []domain.Scope) (string, error) {
	claims := jwtx.NewAccessClaims(
		subject,
		domain.ScopeStrings(scopes),
		s.AccessTTL,
		s.Codec.Issuer(),
		s.Codec.Audience(),
		time.Now(),
	)
	return s.Codec.Sign(claims)
}

// IssueRefresh mints a refresh token with a fresh rti and the refresh-only
// scope marker.
func (s *TokenService) IssueRefresh(subject uuid.UUID) (string, error) {
	claims := jwtx.NewRefreshClaims(
		subject,
		string(domain.ScopeAuthRefresh),
		s.RefreshTTL,
		s.Codec.Issuer(),
		s.Codec.Audience(),
		time.Now(),
	)
	return s.Codec.Sign(claims)
}

// Login issues a full token pair for an authenticated identity.
func (s *TokenService) Login(ctx context.Context, ident domain.Identity) (*domain.TokenPair, error) {
	subject, err := uuid.Parse(ident.ID)
	if err != nil {
		return nil, ErrMalformedIdentity
	}

	scopes := make([]domain.Scope, 0, len(ident.Roles))
	for _, role := range ident.Roles {
		scopes = append(scopes, domain.Scope(role))
	}

	access, err := s.IssueAccess(subject, scopes)
	if err != nil {
		return nil, err
	}
	refresh, err := s.IssueRefresh(subject)
	if err != nil {
		return nil, err
	}

	return &domain.TokenPair{
		AccessToken:  access,
		RefreshToken: refresh,
		ExpiresIn:    s.AccessTTL,
	}, nil
}

// DecodeAccess verifies an access token. Refresh tokens are rejected here;
// the refresh-only scope marker must never grant API access.
func (s *TokenService) DecodeAccess(raw string) (jwtx.Claims, error) {
	claims, err := s.Codec.Verify(raw)
	if err != nil {
		return jwtx.Claims{}, mapTokenError(err)
	}
	if claims.RTI != "" || claims.HasScope(string(domain.ScopeAuthRefresh)) {
		return jwtx.Claims{}, ErrInvalidToken
	}
	if _, err := claims.SubjectID(); err != nil {
		return jwtx.Claims{}, ErrMalformedIdentity
	}
	return claims, nil
}

// Verify satisfies the httpx bearer-token verifier seam; only access tokens
// pass a request guard.
func (s *TokenService) Verify(raw string) (jwtx.Claims, error) {
	return s.DecodeAccess(raw)
}

// DecodeRefresh verifies a refresh token: the refresh scope marker and a
// non-empty rti are both required.
func (s *TokenService) DecodeRefresh(raw string) (jwtx.Claims, error) {
	claims, err := s.Codec.Verify(raw)
	if err != nil {
		return jwtx.Claims{}, mapTokenError(err)
	}
	if claims.RTI == "" || !claims.HasScope(string(domain.ScopeAuthRefresh)) {
		return jwtx.Claims{}, ErrInvalidToken
	}
	if _, err := claims.SubjectID(); err != nil {
		return jwtx.Claims{}, ErrMalformedIdentity
	}
	return claims, nil
}

// mapTokenError collapses codec failures into the service sentinels. A
// malformed subject is surfaced separately so handlers can answer 400
// instead of 401.
func mapTokenError(err error) error {
	if errors.Is(err, jwtx.ErrInvalidSubject) {
		return ErrMalformedIdentity
	}
	return ErrInvalidToken
}
