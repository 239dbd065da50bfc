package auth_test

import (
	"net/http"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestHealthEndpoints(t *testing.T) {
	e := setupServer(t)

	t.Run("livez", func(t *testing.T) {
		resp := e.get(t, "/livez", "")
		require.Equal(t, http.StatusOK, resp.StatusCode)

		var body struct {
			Status  string `json:"status"`
			Uptime  string `json:"uptime"`
			Version string `json:"version"`
		}
		decodeJSON(t, resp, &body)
		require.Equal(t, "ok", body.Status)
		require.NotEmpty(t, body.Uptime)
		require.Equal(t, "e2e", body.Version)
	})

	t.Run("readyz", func(t *testing.T) {
		resp := e.get(t, "/readyz", "")
		require.Equal(t, http.StatusOK, resp.StatusCode)

		var body struct {
			Status string `json:"status"`
			Checks struct {
				Database string `json:"database"`
				Cache    string `json:"cache"`
			} `json:"checks"`
		}
		decodeJSON(t, resp, &body)
		require.Equal(t, "ok", body.Status)
		require.Equal(t, "ok", body.Checks.Database)
		require.Equal(t, "ok", body.Checks.Cache)
	})
}
