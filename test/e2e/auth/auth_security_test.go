package auth_test

import (
	"net/http"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/withapp/crush/internal/auth/service"
	"github.com/withapp/crush/pkg/jwtx"
)

func TestTokenSecurity(t *testing.T) {
	e := setupServer(t)

	t.Run("foreign signature is rejected", func(t *testing.T) {
		ident := e.seedIdentity(t)

		forged := &service.TokenService{
			Codec:      jwtx.NewCodec([]byte("another-secret-another-secret-xx"), testIssuer, []string{testAudience}),
			AccessTTL:  10 * time.Minute,
			RefreshTTL: 672 * time.Hour,
		}
		forgedPair, err := forged.Login(t.Context(), ident)
		require.NoError(t, err)

		resp := e.get(t, "/api/v1/auth/authorize", forgedPair.AccessToken)
		defer drain(resp)
		require.Equal(t, http.StatusUnauthorized, resp.StatusCode)
	})

	t.Run("scope enforcement on passkey registration", func(t *testing.T) {
		// An identity without core:user cannot start a registration
		// ceremony even with a valid token.
		ident := e.seedIdentity(t, "theme:edit")
		pair := e.login(t, ident)

		resp := e.get(t, "/api/v1/auth/passkey/register/option", pair.AccessToken)
		defer drain(resp)
		require.Equal(t, http.StatusForbidden, resp.StatusCode)
	})

	t.Run("tampered token is rejected", func(t *testing.T) {
		ident := e.seedIdentity(t)
		pair := e.login(t, ident)

		tampered := pair.AccessToken[:len(pair.AccessToken)-4] + "AAAA"
		resp := e.get(t, "/api/v1/auth/authorize", tampered)
		defer drain(resp)
		require.Equal(t, http.StatusUnauthorized, resp.StatusCode)
	})
}
