package http

import (
	"net/http"

	"github.com/withapp/crush/internal/auth/service"
	"github.com/withapp/crush/pkg/httpx"
	"github.com/withapp/crush/pkg/slogx"
)

// LogoutHandler retires the presented refresh token and clears the cookie.
// Logout never fails from the client's point of view: an invalid or absent
// token still results in a cleared cookie and a 200.
type LogoutHandler struct {
	RefreshService *service.RefreshService
	CookieSecure   bool
}

type statusResponse struct {
	Code   int    `json:"code"`
	Status string `json:"status"`
}

func (h *LogoutHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	if raw := refreshTokenFromRequest(r); raw != "" {
		if err := h.RefreshService.Logout(r.Context(), raw); err != nil {
			slogx.FromContext(r.Context()).Debug("logout with unusable refresh token", "err", err)
		}
	}

	httpx.DeleteCookie(w, refreshCookie, refreshCookiePath, h.CookieSecure)
	httpx.WriteJSON(w, http.StatusOK, statusResponse{
		Code:   http.StatusOK,
		Status: http.StatusText(http.StatusOK),
	})
}
