package auth_test

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/require"

	"github.com/withapp/crush/internal/auth/cache"
	"github.com/withapp/crush/internal/auth/domain"
	authhttp "github.com/withapp/crush/internal/auth/http"
	"github.com/withapp/crush/internal/auth/service"
	"github.com/withapp/crush/internal/auth/store"
	"github.com/withapp/crush/internal/auth/store/drivers/sqlite"
	"github.com/withapp/crush/pkg/jwtx"
	"github.com/withapp/crush/pkg/slogx"
)

/*
 * End-to-end tests for the auth service over a live HTTP server. Each test
 * gets its own server with a fresh sqlite store and in-process cache, so
 * rate-limiter and replay state never leak between tests.
 */

const (
	testIssuer   = "with"
	testAudience = "crush"
	testSecret   = "e2e-signing-secret-0123456789abc"
)

type env struct {
	server *httptest.Server
	store  store.Store
	cache  cache.Store
	tokens *service.TokenService
}

// setupServer wires the full router the way the application does and serves
// it over a test listener.
func setupServer(t *testing.T) *env {
	t.Helper()

	st, err := sqlite.NewStore(":memory:")
	require.NoError(t, err)
	require.NoError(t, st.ApplyMigrations())
	t.Cleanup(func() { _ = st.Close() })

	c := cache.NewMemory()
	t.Cleanup(func() { _ = c.Close() })

	tokens := &service.TokenService{
		Codec:      jwtx.NewCodec([]byte(testSecret), testIssuer, []string{testAudience}),
		AccessTTL:  10 * time.Minute,
		RefreshTTL: 672 * time.Hour,
	}

	logger := slogx.New(slogx.Config{
		Service: "auth-service",
		Env:     "test",
		Level:   "error",
		Format:  "text",
	})

	router := authhttp.NewRouter("e2e", false, "http://frontend.test", st, c, logger)
	router.TokenService = tokens
	router.RefreshService = &service.RefreshService{Tokens: tokens, Store: st, Cache: c}
	router.PasskeyService = &service.PasskeyService{
		Verifier:     nil, // ceremony endpoints are not exercised end to end
		Store:        st,
		Cache:        c,
		ChallengeTTL: 5 * time.Minute,
	}
	router.IdentityService = &service.IdentityService{Store: st}
	router.ApplyRoutes()

	server := httptest.NewServer(router)
	t.Cleanup(server.Close)

	return &env{server: server, store: st, cache: c, tokens: tokens}
}

func (e *env) seedIdentity(t *testing.T, roles ...string) domain.Identity {
	t.Helper()

	if len(roles) == 0 {
		roles = []string{"core:user"}
	}
	ident := domain.Identity{
		ID:            uuid.NewString(),
		Name:          "Alex",
		Email:         uuid.NewString() + "@example.com",
		EmailVerified: true,
		Roles:         roles,
	}
	require.NoError(t, e.store.Identities().CreateIdentity(context.Background(), ident))
	return ident
}

// login mints a pair for an identity directly, standing in for a completed
// passkey or oauth ceremony.
func (e *env) login(t *testing.T, ident domain.Identity) *domain.TokenPair {
	t.Helper()

	pair, err := e.tokens.Login(context.Background(), ident)
	require.NoError(t, err)
	return pair
}

func (e *env) get(t *testing.T, path, accessToken string) *http.Response {
	t.Helper()

	req, err := http.NewRequest(http.MethodGet, e.server.URL+path, nil)
	require.NoError(t, err)
	if accessToken != "" {
		req.Header.Set("Authorization", "Bearer "+accessToken)
	}

	resp, err := e.server.Client().Do(req)
	require.NoError(t, err)
	return resp
}

func (e *env) post(t *testing.T, path string, cookies ...*http.Cookie) *http.Response {
	t.Helper()

	req, err := http.NewRequest(http.MethodPost, e.server.URL+path, nil)
	require.NoError(t, err)
	for _, c := range cookies {
		req.AddCookie(c)
	}

	resp, err := e.server.Client().Do(req)
	require.NoError(t, err)
	return resp
}

func decodeJSON(t *testing.T, resp *http.Response, v any) {
	t.Helper()
	defer resp.Body.Close()
	require.NoError(t, json.NewDecoder(resp.Body).Decode(v))
}

func drain(resp *http.Response) {
	_, _ = io.Copy(io.Discard, resp.Body)
	_ = resp.Body.Close()
}

func responseCookie(t *testing.T, resp *http.Response, name string) *http.Cookie {
	t.Helper()
	for _, c := range resp.Cookies() {
		if c.Name == name {
			return c
		}
	}
	t.Fatalf("cookie %q not set", name)
	return nil
}
