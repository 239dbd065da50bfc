package http

import (
	"net/http"

	"github.com/withapp/crush/internal/auth/domain"
	"github.com/withapp/crush/internal/auth/service"
	"github.com/withapp/crush/pkg/httpx"
)

// MethodsHandler reports which sign-in methods the caller has configured.
type MethodsHandler struct {
	IdentityService *service.IdentityService
}

type methodsResponse struct {
	Code    int                `json:"code"`
	Status  string             `json:"status"`
	Methods domain.AuthMethods `json:"methods"`
}

func (h *MethodsHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	userID, ok := httpx.UserIDFromContext(r.Context())
	if !ok {
		httpx.WriteError(w, http.StatusUnauthorized, "JWT is invalid or unauthorized")
		return
	}

	methods, err := h.IdentityService.AuthMethods(r.Context(), userID)
	if err != nil {
		writeServiceError(w, r, err)
		return
	}

	httpx.WriteJSON(w, http.StatusOK, methodsResponse{
		Code:    http.StatusOK,
		Status:  http.StatusText(http.StatusOK),
		Methods: methods,
	})
}
