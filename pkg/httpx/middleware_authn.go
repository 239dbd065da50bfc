package httpx

import (
	"context"
	"net/http"
	"strings"

	"github.com/withapp/crush/pkg/jwtx"
	"github.com/withapp/crush/pkg/slogx"
)

// TokenVerifier validates a compact token and returns its claims.
type TokenVerifier interface {
	Verify(token string) (jwtx.Claims, error)
}

// AuthnMiddleware enforces a valid bearer access token and injects the
// verified claims into the request context. A missing or malformed
// Authorization header is a request error (400); a token that fails
// verification is an authorization error (401).
func AuthnMiddleware(v TokenVerifier) Middleware {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ctx := r.Context()
			log := slogx.FromContext(ctx)

			raw, errMsg := BearerToken(r)
			if errMsg != "" {
				WriteError(w, http.StatusBadRequest, errMsg)
				return
			}

			claims, err := v.Verify(raw)
			if err != nil {
				log.Debug("bearer token rejected", "err", err)
				WriteError(w, http.StatusUnauthorized, "JWT is invalid or unauthorized")
				return
			}

			ctx = contextWithAuth(ctx, claims)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// BearerToken extracts the raw token from the Authorization header. The
// second return value is a client-facing message when the header is absent
// or not a bearer scheme, matching the wire behaviour existing clients rely
// on.
func BearerToken(r *http.Request) (token, errMsg string) {
	authz := r.Header.Get("Authorization")
	if authz == "" {
		return "", "Authorization header is missing"
	}
	if !strings.HasPrefix(authz, "Bearer ") {
		return "", "Authorization must be Bearer token"
	}

	raw := strings.TrimSpace(strings.TrimPrefix(authz, "Bearer"))
	if raw == "" {
		return "", "JWT token is missing"
	}
	return raw, ""
}

func contextWithAuth(ctx context.Context, c jwtx.Claims) context.Context {
	ctx = context.WithValue(ctx, CtxKeyUserID, c.Subject)
	ctx = context.WithValue(ctx, CtxKeyScopes, c.Scopes)
	ctx = context.WithValue(ctx, CtxKeyClaims, c)
	return ctx
}
