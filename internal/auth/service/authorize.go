package service

import (
	"errors"

	"github.com/withapp/crush/internal/auth/domain"
	"github.com/withapp/crush/pkg/jwtx"
)

var ErrForbidden = errors.New("forbidden")

// RequireScopes checks that the claim set carries every required scope.
// It is a pure check; callers decide whether a failure is a 403 or
// something softer.
func RequireScopes(claims jwtx.Claims, required ...domain.Scope) error {
	for _, scope := range required {
		if !claims.HasScope(string(scope)) {
			return ErrForbidden
		}
	}
	return nil
}
