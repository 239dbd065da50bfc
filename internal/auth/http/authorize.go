package http

import (
	"net/http"

	"github.com/withapp/crush/pkg/httpx"
)

// AuthorizeHandler answers token-validity probes. The authn middleware in
// front of it has already verified the bearer token, so reaching the handler
// means the caller is authorized.
type AuthorizeHandler struct{}

type authorizeResponse struct {
	Code   int    `json:"code"`
	Status string `json:"status"`
	Auth   bool   `json:"auth"`
}

func (h *AuthorizeHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	httpx.WriteJSON(w, http.StatusOK, authorizeResponse{
		Code:   http.StatusOK,
		Status: http.StatusText(http.StatusOK),
		Auth:   true,
	})
}
