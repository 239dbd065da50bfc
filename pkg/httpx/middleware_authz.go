package httpx

import "net/http"

// RequireScopes rejects the request with 403 unless the authenticated
// caller holds every listed scope.
func RequireScopes(required ...string) Middleware {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			have := make(map[string]struct{})
			for _, s := range scopesFromCtx(r.Context()) {
				have[s] = struct{}{}
			}

			for _, req := range required {
				if _, ok := have[req]; !ok {
					WriteError(w, http.StatusForbidden, "Forbidden")
					return
				}
			}

			next.ServeHTTP(w, r)
		})
	}
}
