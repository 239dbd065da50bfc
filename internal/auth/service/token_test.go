package service

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/require"

	"github.com/withapp/crush/internal/auth/domain"
	"github.com/withapp/crush/pkg/jwtx"
)

func TestTokenService_AccessRoundTrip(t *testing.T) {
	t.Parallel()
	svc := newTokenService()
	subject := uuid.New()

	raw, err := svc.IssueAccess(subject, []domain.Scope{domain.ScopeCoreUser, domain.ScopePlaceAdd})
	require.NoError(t, err)

	claims, err := svc.DecodeAccess(raw)
	require.NoError(t, err)
	require.Equal(t, subject.String(), claims.Subject)
	require.True(t, claims.HasScope("core:user"))
	require.True(t, claims.HasScope("place:add"))
	require.Empty(t, claims.RTI)
}

func TestTokenService_RefreshRoundTrip(t *testing.T) {
	t.Parallel()
	svc := newTokenService()
	subject := uuid.New()

	raw, err := svc.IssueRefresh(subject)
	require.NoError(t, err)

	claims, err := svc.DecodeRefresh(raw)
	require.NoError(t, err)
	require.Equal(t, subject.String(), claims.Subject)
	require.True(t, claims.HasScope("auth:refresh"))
	require.NotEmpty(t, claims.RTI)

	// rti is a well-formed uuid
	_, err = uuid.Parse(claims.RTI)
	require.NoError(t, err)
}

func TestTokenService_RefreshTokenRejectedAsAccess(t *testing.T) {
	t.Parallel()
	svc := newTokenService()

	raw, err := svc.IssueRefresh(uuid.New())
	require.NoError(t, err)

	_, err = svc.DecodeAccess(raw)
	require.ErrorIs(t, err, ErrInvalidToken)
}

func TestTokenService_AccessTokenRejectedAsRefresh(t *testing.T) {
	t.Parallel()
	svc := newTokenService()

	raw, err := svc.IssueAccess(uuid.New(), []domain.Scope{domain.ScopeCoreUser})
	require.NoError(t, err)

	_, err = svc.DecodeRefresh(raw)
	require.ErrorIs(t, err, ErrInvalidToken)
}

func TestTokenService_GarbageRejected(t *testing.T) {
	t.Parallel()
	svc := newTokenService()

	_, err := svc.DecodeAccess("not.a.token")
	require.ErrorIs(t, err, ErrInvalidToken)

	_, err = svc.DecodeRefresh("")
	require.ErrorIs(t, err, ErrInvalidToken)
}

func TestTokenService_ForeignSignatureRejected(t *testing.T) {
	t.Parallel()
	svc := newTokenService()

	other := &TokenService{
		Codec:      jwtx.NewCodec([]byte("a-completely-different-secret!!!"), testIssuer, []string{testAudience}),
		AccessTTL:  svc.AccessTTL,
		RefreshTTL: svc.RefreshTTL,
	}

	raw, err := other.IssueAccess(uuid.New(), []domain.Scope{domain.ScopeCoreUser})
	require.NoError(t, err)

	_, err = svc.DecodeAccess(raw)
	require.ErrorIs(t, err, ErrInvalidToken)
}

func TestTokenService_MalformedSubject(t *testing.T) {
	t.Parallel()
	svc := newTokenService()

	// mint claims with a non-uuid subject directly through the codec
	claims := jwtx.NewAccessClaims(uuid.New(), []string{"core:user"}, svc.AccessTTL, testIssuer, []string{testAudience}, time.Now())
	claims.Subject = "not-a-uuid"
	raw, err := svc.Codec.Sign(claims)
	require.NoError(t, err)

	_, err = svc.DecodeAccess(raw)
	require.ErrorIs(t, err, ErrMalformedIdentity)
}

func TestTokenService_Login(t *testing.T) {
	t.Parallel()
	svc := newTokenService()
	ctx := context.Background()

	ident := domain.Identity{
		ID:    uuid.NewString(),
		Roles: []string{"core:user", "place:add"},
	}

	pair, err := svc.Login(ctx, ident)
	require.NoError(t, err)
	require.Equal(t, svc.AccessTTL, pair.ExpiresIn)

	access, err := svc.DecodeAccess(pair.AccessToken)
	require.NoError(t, err)
	require.Equal(t, ident.ID, access.Subject)
	require.True(t, access.HasScope("place:add"))
	require.False(t, access.HasScope("auth:refresh"))

	refresh, err := svc.DecodeRefresh(pair.RefreshToken)
	require.NoError(t, err)
	require.Equal(t, ident.ID, refresh.Subject)
}

func TestTokenService_LoginMalformedIdentity(t *testing.T) {
	t.Parallel()
	svc := newTokenService()

	_, err := svc.Login(context.Background(), domain.Identity{ID: "42"})
	require.ErrorIs(t, err, ErrMalformedIdentity)
}
