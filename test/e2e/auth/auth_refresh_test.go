package auth_test

import (
	"net/http"
	"testing"

	"github.com/stretchr/testify/require"
)

const refreshCookieName = "WAUTHREF"

func TestRefreshEndpoint(t *testing.T) {
	t.Run("rotation issues a new pair", func(t *testing.T) {
		e := setupServer(t)
		ident := e.seedIdentity(t)
		pair := e.login(t, ident)

		resp := e.post(t, "/api/v1/auth/refresh",
			&http.Cookie{Name: refreshCookieName, Value: pair.RefreshToken})
		require.Equal(t, http.StatusOK, resp.StatusCode)

		var body struct {
			AccessToken string `json:"access_token"`
		}
		decodeJSON(t, resp, &body)
		require.NotEmpty(t, body.AccessToken)

		// The new access token must work against the protected surface.
		authz := e.get(t, "/api/v1/auth/authorize", body.AccessToken)
		defer drain(authz)
		require.Equal(t, http.StatusOK, authz.StatusCode)

		c := responseCookie(t, resp, refreshCookieName)
		require.NotEmpty(t, c.Value)
		require.NotEqual(t, pair.RefreshToken, c.Value)
		require.Equal(t, "/api/v1/auth/refresh", c.Path)
		require.Equal(t, 2592000, c.MaxAge)
		require.True(t, c.HttpOnly)
	})

	t.Run("replayed token is rejected", func(t *testing.T) {
		e := setupServer(t)
		ident := e.seedIdentity(t)
		pair := e.login(t, ident)

		first := e.post(t, "/api/v1/auth/refresh",
			&http.Cookie{Name: refreshCookieName, Value: pair.RefreshToken})
		drain(first)
		require.Equal(t, http.StatusOK, first.StatusCode)

		second := e.post(t, "/api/v1/auth/refresh",
			&http.Cookie{Name: refreshCookieName, Value: pair.RefreshToken})
		defer drain(second)
		require.Equal(t, http.StatusUnauthorized, second.StatusCode)
	})

	t.Run("logout retires the refresh token", func(t *testing.T) {
		e := setupServer(t)
		ident := e.seedIdentity(t)
		pair := e.login(t, ident)

		logout := e.post(t, "/api/v1/auth/logout",
			&http.Cookie{Name: refreshCookieName, Value: pair.RefreshToken})
		require.Equal(t, http.StatusOK, logout.StatusCode)
		cleared := responseCookie(t, logout, refreshCookieName)
		require.Negative(t, cleared.MaxAge)
		drain(logout)

		resp := e.post(t, "/api/v1/auth/refresh",
			&http.Cookie{Name: refreshCookieName, Value: pair.RefreshToken})
		defer drain(resp)
		require.Equal(t, http.StatusUnauthorized, resp.StatusCode)
	})

	t.Run("missing token", func(t *testing.T) {
		e := setupServer(t)

		resp := e.post(t, "/api/v1/auth/refresh")
		defer drain(resp)
		require.Equal(t, http.StatusUnauthorized, resp.StatusCode)
	})
}
