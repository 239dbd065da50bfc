package http

import (
	"errors"
	"net/http"

	"github.com/withapp/crush/internal/auth/service"
	"github.com/withapp/crush/pkg/httpx"
	"github.com/withapp/crush/pkg/slogx"
)

// writeServiceError maps service sentinels onto the wire error envelope.
// Handlers with context-dependent mappings (verification failures differ
// between registration and login) handle those sentinels before calling
// this.
func writeServiceError(w http.ResponseWriter, r *http.Request, err error) {
	log := slogx.FromContext(r.Context())

	switch {
	case errors.Is(err, service.ErrInvalidToken):
		httpx.WriteError(w, http.StatusUnauthorized, "JWT is invalid or unauthorized")

	case errors.Is(err, service.ErrReplayedToken):
		httpx.WriteError(w, http.StatusUnauthorized, "Refresh token has already been used")

	case errors.Is(err, service.ErrCloneDetected):
		httpx.WriteError(w, http.StatusUnauthorized, "Credential could not be verified")

	case errors.Is(err, service.ErrIdentityRequired):
		httpx.WriteError(w, http.StatusUnauthorized, "JWT is invalid or unauthorized")

	case errors.Is(err, service.ErrMalformedIdentity):
		httpx.WriteError(w, http.StatusBadRequest, "Subject is not a valid identity")

	case errors.Is(err, service.ErrForbidden):
		httpx.WriteError(w, http.StatusForbidden, "Forbidden")

	case errors.Is(err, service.ErrCeremonyNotFound):
		httpx.WriteError(w, http.StatusBadRequest, "Ceremony is unknown or already completed")

	case errors.Is(err, service.ErrMalformedCeremony):
		httpx.WriteError(w, http.StatusBadRequest, "Ceremony response could not be parsed")

	case errors.Is(err, service.ErrUnknownAuthenticator):
		httpx.WriteError(w, http.StatusBadRequest, "Authenticator is not recognised")

	case errors.Is(err, service.ErrCredentialExists):
		httpx.WriteError(w, http.StatusBadRequest, "Credential is already registered")

	case errors.Is(err, service.ErrSessionNotFound),
		errors.Is(err, service.ErrStateMissing),
		errors.Is(err, service.ErrStateMismatch):
		httpx.WriteError(w, http.StatusBadRequest, "Session is unknown or expired")

	case errors.Is(err, service.ErrProviderExchange):
		httpx.WriteError(w, http.StatusBadRequest, "Provider sign-in could not be completed")

	case errors.Is(err, service.ErrIdentityNotFound):
		httpx.WriteError(w, http.StatusNotFound, "Identity not found")

	default:
		log.Error("unhandled service error", "err", err, "path", r.URL.Path)
		httpx.WriteError(w, http.StatusInternalServerError, "Internal server error")
	}
}
