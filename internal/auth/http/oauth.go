package http

import (
	"net/http"
	"net/url"

	"github.com/withapp/crush/internal/auth/service"
	"github.com/withapp/crush/pkg/httpx"
)

// OAuthHandler runs the Google sign-in flow. The anti-CSRF state guard
// lives in a short-lived cookie scoped to the oauth routes: the browser
// holds a session id, the cache holds the expected state.
type OAuthHandler struct {
	OAuthService *service.OAuthService
	CookieSecure bool
	FrontendURL  string
}

// HandleBegin redirects to the provider's consent screen.
func (h *OAuthHandler) HandleBegin(w http.ResponseWriter, r *http.Request) {
	authURL, sessionID, err := h.OAuthService.Begin(r.Context())
	if err != nil {
		writeServiceError(w, r, err)
		return
	}

	http.SetCookie(w, httpx.SessionCookie(
		oauthStateCookie, sessionID, oauthStateCookiePath, oauthStateCookieAge, h.CookieSecure,
	))
	http.Redirect(w, r, authURL, http.StatusFound)
}

// HandleCallback finishes the provider round trip. A linked account logs
// straight in; an unknown one gets a signup session and lands on the
// registration page.
func (h *OAuthHandler) HandleCallback(w http.ResponseWriter, r *http.Request) {
	sessionID := ceremonyFromCookie(r, oauthStateCookie)
	if sessionID == "" {
		httpx.WriteError(w, http.StatusBadRequest, "State cookie is missing")
		return
	}

	query := r.URL.Query()
	result, err := h.OAuthService.Callback(r.Context(), sessionID, query.Get("state"), query.Get("code"))
	httpx.DeleteCookie(w, oauthStateCookie, oauthStateCookiePath, h.CookieSecure)
	if err != nil {
		writeServiceError(w, r, err)
		return
	}

	if result.Pair != nil {
		http.SetCookie(w, httpx.SessionCookie(
			refreshCookie, result.Pair.RefreshToken, refreshCookiePath, refreshCookieAge, h.CookieSecure,
		))
		target := h.FrontendURL + "/login/set-token?at=" + url.QueryEscape(result.Pair.AccessToken)
		http.Redirect(w, r, target, http.StatusFound)
		return
	}

	http.SetCookie(w, httpx.SessionCookie(
		signupCookie, result.SignupSessionID, "/", signupCookieAge, h.CookieSecure,
	))
	http.Redirect(w, r, h.FrontendURL+"/register/google", http.StatusFound)
}

// HandleRegisterInfo returns the provider profile captured for a pending
// signup. Reading does not consume the session; the registration page may
// reload.
func (h *OAuthHandler) HandleRegisterInfo(w http.ResponseWriter, r *http.Request) {
	sessionID := ceremonyFromCookie(r, signupCookie)
	if sessionID == "" {
		httpx.WriteError(w, http.StatusBadRequest, "Signup session cookie is missing")
		return
	}

	info, err := h.OAuthService.RegisterInfo(r.Context(), sessionID)
	if err != nil {
		writeServiceError(w, r, err)
		return
	}

	httpx.WriteJSON(w, http.StatusOK, struct {
		Code    int                `json:"code"`
		Status  string             `json:"status"`
		Content service.SignupInfo `json:"content"`
	}{
		Code:    http.StatusOK,
		Status:  http.StatusText(http.StatusOK),
		Content: info,
	})
}
