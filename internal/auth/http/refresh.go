package http

import (
	"net/http"

	"github.com/withapp/crush/internal/auth/service"
	"github.com/withapp/crush/pkg/httpx"
)

// refreshHeader lets non-browser clients rotate without cookie support.
const refreshHeader = "X-Refresh-Token"

// RefreshHandler rotates a refresh token for a fresh pair. The old token is
// retired before the new pair is minted, so a replayed rotation fails even
// when two requests race.
type RefreshHandler struct {
	RefreshService *service.RefreshService
	CookieSecure   bool
}

type tokenResponse struct {
	Code        int    `json:"code"`
	Status      string `json:"status"`
	AccessToken string `json:"access_token"`
}

func (h *RefreshHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	raw := refreshTokenFromRequest(r)
	if raw == "" {
		httpx.WriteError(w, http.StatusUnauthorized, "Refresh token is missing")
		return
	}

	pair, err := h.RefreshService.Rotate(r.Context(), raw)
	if err != nil {
		writeServiceError(w, r, err)
		return
	}

	http.SetCookie(w, httpx.SessionCookie(
		refreshCookie, pair.RefreshToken, refreshCookiePath, refreshCookieAge, h.CookieSecure,
	))
	httpx.WriteJSON(w, http.StatusOK, tokenResponse{
		Code:        http.StatusOK,
		Status:      http.StatusText(http.StatusOK),
		AccessToken: pair.AccessToken,
	})
}

// refreshTokenFromRequest prefers the cookie; the header is the fallback for
// clients that cannot hold one.
func refreshTokenFromRequest(r *http.Request) string {
	if c, err := r.Cookie(refreshCookie); err == nil && c.Value != "" {
		return c.Value
	}
	return r.Header.Get(refreshHeader)
}
