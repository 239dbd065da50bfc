package http

import (
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"github.com/go-webauthn/webauthn/protocol"

	"github.com/withapp/crush/internal/auth/domain"
	"github.com/withapp/crush/internal/auth/service"
	"github.com/withapp/crush/pkg/httpx"
)

// PasskeyHandler serves the WebAuthn ceremonies and passkey management.
// Ceremony state travels in a short-lived cookie scoped to the passkey
// routes: the browser holds the ceremony id, the cache holds the challenge.
type PasskeyHandler struct {
	PasskeyService  *service.PasskeyService
	TokenService    *service.TokenService
	IdentityService *service.IdentityService
	CookieSecure    bool
}

type optionsResponse struct {
	Code    int    `json:"code"`
	Status  string `json:"status"`
	Options any    `json:"options"`
}

type credentialView struct {
	ID         string    `json:"id"`
	Name       string    `json:"name"`
	AAGUID     string    `json:"aaguid"`
	CreatedAt  time.Time `json:"created_at"`
	LastUsedAt time.Time `json:"last_used_at"`
}

type credentialListResponse struct {
	Code     int              `json:"code"`
	Status   string           `json:"status"`
	Passkeys []credentialView `json:"passkeys"`
}

// HandleChallengeOption starts a discoverable login ceremony. Anonymous:
// the authenticator picks the credential, not the server.
func (h *PasskeyHandler) HandleChallengeOption(w http.ResponseWriter, r *http.Request) {
	assertion, ceremonyID, err := h.PasskeyService.BeginAuthentication(r.Context())
	if err != nil {
		writeServiceError(w, r, err)
		return
	}

	http.SetCookie(w, httpx.SessionCookie(
		authCeremonyCookie, ceremonyID, ceremonyCookiePath, ceremonyCookieAge, h.CookieSecure,
	))
	httpx.WriteJSON(w, http.StatusOK, optionsResponse{
		Code:    http.StatusOK,
		Status:  http.StatusText(http.StatusOK),
		Options: assertion,
	})
}

// HandleChallenge finishes a discoverable login. On success the refresh
// token lands in WAUTHREF and the access token in the body, same as a
// refresh rotation.
func (h *PasskeyHandler) HandleChallenge(w http.ResponseWriter, r *http.Request) {
	ceremonyID := ceremonyFromCookie(r, authCeremonyCookie)
	if ceremonyID == "" {
		httpx.WriteError(w, http.StatusBadRequest, "Ceremony cookie is missing")
		return
	}

	parsed, err := protocol.ParseCredentialRequestResponseBody(r.Body)
	if err != nil {
		httpx.WriteError(w, http.StatusBadRequest, "Ceremony response could not be parsed")
		return
	}

	ident, _, err := h.PasskeyService.CompleteAuthentication(r.Context(), ceremonyID, parsed)
	if err != nil {
		httpx.DeleteCookie(w, authCeremonyCookie, ceremonyCookiePath, h.CookieSecure)
		switch {
		case errors.Is(err, service.ErrCredentialNotFound):
			httpx.WriteError(w, http.StatusBadRequest, "Credential is not registered")
		case errors.Is(err, service.ErrVerificationFailed):
			httpx.WriteError(w, http.StatusUnauthorized, "Credential could not be verified")
		default:
			writeServiceError(w, r, err)
		}
		return
	}

	pair, err := h.TokenService.Login(r.Context(), ident)
	if err != nil {
		writeServiceError(w, r, err)
		return
	}

	httpx.DeleteCookie(w, authCeremonyCookie, ceremonyCookiePath, h.CookieSecure)
	http.SetCookie(w, httpx.SessionCookie(
		refreshCookie, pair.RefreshToken, refreshCookiePath, refreshCookieAge, h.CookieSecure,
	))
	httpx.WriteJSON(w, http.StatusOK, tokenResponse{
		Code:        http.StatusOK,
		Status:      http.StatusText(http.StatusOK),
		AccessToken: pair.AccessToken,
	})
}

// HandleRegisterOption starts a registration ceremony for the caller.
func (h *PasskeyHandler) HandleRegisterOption(w http.ResponseWriter, r *http.Request) {
	ident, ok := h.callerIdentity(w, r)
	if !ok {
		return
	}

	creation, ceremonyID, err := h.PasskeyService.BeginRegistration(r.Context(), ident)
	if err != nil {
		writeServiceError(w, r, err)
		return
	}

	http.SetCookie(w, httpx.SessionCookie(
		regCeremonyCookie, ceremonyID, ceremonyCookiePath, ceremonyCookieAge, h.CookieSecure,
	))
	httpx.WriteJSON(w, http.StatusOK, optionsResponse{
		Code:    http.StatusOK,
		Status:  http.StatusText(http.StatusOK),
		Options: creation,
	})
}

// HandleRegister finishes a registration ceremony and stores the new
// credential.
func (h *PasskeyHandler) HandleRegister(w http.ResponseWriter, r *http.Request) {
	ident, ok := h.callerIdentity(w, r)
	if !ok {
		return
	}

	ceremonyID := ceremonyFromCookie(r, regCeremonyCookie)
	if ceremonyID == "" {
		httpx.WriteError(w, http.StatusBadRequest, "Ceremony cookie is missing")
		return
	}

	parsed, err := protocol.ParseCredentialCreationResponseBody(r.Body)
	if err != nil {
		httpx.WriteError(w, http.StatusBadRequest, "Ceremony response could not be parsed")
		return
	}

	cred, err := h.PasskeyService.CompleteRegistration(r.Context(), ident, ceremonyID, parsed)
	httpx.DeleteCookie(w, regCeremonyCookie, ceremonyCookiePath, h.CookieSecure)
	if err != nil {
		if errors.Is(err, service.ErrVerificationFailed) {
			httpx.WriteError(w, http.StatusBadRequest, "Attestation could not be verified")
			return
		}
		writeServiceError(w, r, err)
		return
	}

	httpx.WriteJSON(w, http.StatusCreated, struct {
		Code    int            `json:"code"`
		Status  string         `json:"status"`
		Passkey credentialView `json:"passkey"`
	}{
		Code:    http.StatusCreated,
		Status:  http.StatusText(http.StatusCreated),
		Passkey: toCredentialView(cred),
	})
}

// HandleList returns the caller's registered passkeys, newest first.
func (h *PasskeyHandler) HandleList(w http.ResponseWriter, r *http.Request) {
	userID, ok := httpx.UserIDFromContext(r.Context())
	if !ok {
		httpx.WriteError(w, http.StatusUnauthorized, "JWT is invalid or unauthorized")
		return
	}

	creds, err := h.PasskeyService.List(r.Context(), userID)
	if err != nil {
		writeServiceError(w, r, err)
		return
	}

	views := make([]credentialView, 0, len(creds))
	for _, c := range creds {
		views = append(views, toCredentialView(c))
	}
	httpx.WriteJSON(w, http.StatusOK, credentialListResponse{
		Code:     http.StatusOK,
		Status:   http.StatusText(http.StatusOK),
		Passkeys: views,
	})
}

// HandleRename updates a passkey's display name. Lookups are scoped to the
// caller, so a foreign id is indistinguishable from a missing one.
func (h *PasskeyHandler) HandleRename(w http.ResponseWriter, r *http.Request) {
	userID, ok := httpx.UserIDFromContext(r.Context())
	if !ok {
		httpx.WriteError(w, http.StatusUnauthorized, "JWT is invalid or unauthorized")
		return
	}

	var body struct {
		Name string `json:"name"`
	}
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil || body.Name == "" {
		httpx.WriteError(w, http.StatusBadRequest, "A non-empty name is required")
		return
	}

	err := h.PasskeyService.Rename(r.Context(), userID, r.PathValue("id"), body.Name)
	if err != nil {
		if errors.Is(err, service.ErrCredentialNotFound) {
			httpx.WriteError(w, http.StatusNotFound, "Passkey not found")
			return
		}
		writeServiceError(w, r, err)
		return
	}

	httpx.WriteJSON(w, http.StatusOK, statusResponse{
		Code:   http.StatusOK,
		Status: http.StatusText(http.StatusOK),
	})
}

// HandleDelete removes one of the caller's passkeys.
func (h *PasskeyHandler) HandleDelete(w http.ResponseWriter, r *http.Request) {
	userID, ok := httpx.UserIDFromContext(r.Context())
	if !ok {
		httpx.WriteError(w, http.StatusUnauthorized, "JWT is invalid or unauthorized")
		return
	}

	err := h.PasskeyService.Delete(r.Context(), userID, r.PathValue("id"))
	if err != nil {
		if errors.Is(err, service.ErrCredentialNotFound) {
			httpx.WriteError(w, http.StatusNotFound, "Passkey not found")
			return
		}
		writeServiceError(w, r, err)
		return
	}

	httpx.WriteJSON(w, http.StatusOK, statusResponse{
		Code:   http.StatusOK,
		Status: http.StatusText(http.StatusOK),
	})
}

// callerIdentity loads the authenticated caller's identity record. The authn
// middleware guarantees a subject; a missing record still 404s because the
// account may have been deleted after the token was minted.
func (h *PasskeyHandler) callerIdentity(w http.ResponseWriter, r *http.Request) (domain.Identity, bool) {
	userID, ok := httpx.UserIDFromContext(r.Context())
	if !ok {
		httpx.WriteError(w, http.StatusUnauthorized, "JWT is invalid or unauthorized")
		return domain.Identity{}, false
	}

	ident, err := h.IdentityService.Get(r.Context(), userID)
	if err != nil {
		writeServiceError(w, r, err)
		return domain.Identity{}, false
	}
	return ident, true
}

func ceremonyFromCookie(r *http.Request, name string) string {
	c, err := r.Cookie(name)
	if err != nil {
		return ""
	}
	return c.Value
}

func toCredentialView(c domain.Credential) credentialView {
	return credentialView{
		ID:         c.ID,
		Name:       c.Name,
		AAGUID:     c.AAGUID,
		CreatedAt:  c.CreatedAt,
		LastUsedAt: c.LastUsedAt,
	}
}
