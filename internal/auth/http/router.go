package http

import (
	"log/slog"
	"net/http"
	"time"

	"github.com/withapp/crush/internal/auth/cache"
	"github.com/withapp/crush/internal/auth/service"
	"github.com/withapp/crush/internal/auth/store"
	"github.com/withapp/crush/pkg/httpx"
	"github.com/withapp/crush/pkg/slogx"
)

// Cookie bindings. Names, paths and lifetimes are fixed for compatibility
// with clients already in the wild.
const (
	refreshCookie     = "WAUTHREF"
	refreshCookiePath = "/api/v1/auth/refresh"
	refreshCookieAge  = 2592000 // 30 days

	authCeremonyCookie = "PSK_AUTH_SEK"
	regCeremonyCookie  = "PSK_REG_SEK"
	ceremonyCookiePath = "/api/v1/auth/passkey"
	ceremonyCookieAge  = 300

	oauthStateCookie     = "OAuthState"
	oauthStateCookiePath = "/api/v1/auth/oauth/google"
	oauthStateCookieAge  = 600

	signupCookie    = "session"
	signupCookieAge = 3600
)

// Router holds shared dependencies for HTTP handlers.
type Router struct {
	Mux         *http.ServeMux
	middlewares []httpx.Middleware

	buildVersion string
	startTime    time.Time
	logger       *slog.Logger
	cookieSecure bool
	frontendURL  string

	store store.Store
	cache cache.Store

	TokenService    *service.TokenService
	RefreshService  *service.RefreshService
	PasskeyService  *service.PasskeyService
	OAuthService    *service.OAuthService
	IdentityService *service.IdentityService
}

func NewRouter(
	buildVersion string,
	cookieSecure bool,
	frontendURL string,
	st store.Store,
	c cache.Store,
	logger *slog.Logger,
) *Router {
	r := &Router{
		Mux:          http.NewServeMux(),
		buildVersion: buildVersion,
		startTime:    time.Now(),
		logger:       logger,
		cookieSecure: cookieSecure,
		frontendURL:  frontendURL,
		store:        st,
		cache:        c,
	}

	// Set default middleware chain
	r.middlewares = []httpx.Middleware{
		slogx.HTTPMiddleware(r.logger),
	}

	return r
}

func (r *Router) ApplyRoutes() {
	r.registerTokens()
	r.registerPasskeys()
	if r.OAuthService != nil {
		r.registerOAuth()
	}
	r.registerSystem()
}

// ServeHTTP implements http.Handler for Router and applies the global
// middleware chain.
func (r *Router) ServeHTTP(w http.ResponseWriter, req *http.Request) {
	httpx.Chain(r.Mux, r.middlewares...).ServeHTTP(w, req)
}

func (r *Router) registerTokens() {
	authorizeHandler := &AuthorizeHandler{}
	r.Mux.Handle("GET /api/v1/auth/authorize",
		httpx.Chain(authorizeHandler,
			httpx.AuthnMiddleware(r.TokenService),
			httpx.RateLimitByUser(httpx.LenientLimit),
		),
	)

	// Rotation mints tokens, so it gets the strict profile.
	refreshHandler := &RefreshHandler{
		RefreshService: r.RefreshService,
		CookieSecure:   r.cookieSecure,
	}
	r.Mux.Handle("POST /api/v1/auth/refresh",
		httpx.Chain(refreshHandler,
			httpx.RateLimitByIP(httpx.StrictLimit),
		),
	)

	logoutHandler := &LogoutHandler{
		RefreshService: r.RefreshService,
		CookieSecure:   r.cookieSecure,
	}
	r.Mux.Handle("POST /api/v1/auth/logout",
		httpx.Chain(logoutHandler,
			httpx.RateLimitByIP(httpx.ModerateLimit),
		),
	)

	methodsHandler := &MethodsHandler{IdentityService: r.IdentityService}
	r.Mux.Handle("GET /api/v1/auth/methods",
		httpx.Chain(methodsHandler,
			httpx.AuthnMiddleware(r.TokenService),
			httpx.RateLimitByUser(httpx.LenientLimit),
		),
	)
}

func (r *Router) registerPasskeys() {
	h := &PasskeyHandler{
		PasskeyService:  r.PasskeyService,
		TokenService:    r.TokenService,
		IdentityService: r.IdentityService,
		CookieSecure:    r.cookieSecure,
	}

	// Discoverable login: anonymous by construction.
	r.Mux.Handle("GET /api/v1/auth/passkey/challenge/option",
		httpx.Chain(http.HandlerFunc(h.HandleChallengeOption),
			httpx.RateLimitByIP(httpx.ModerateLimit),
		),
	)
	r.Mux.Handle("POST /api/v1/auth/passkey/challenge",
		httpx.Chain(http.HandlerFunc(h.HandleChallenge),
			httpx.RateLimitByIP(httpx.StrictLimit),
		),
	)

	// Registration requires an authenticated caller with the base scope.
	r.Mux.Handle("GET /api/v1/auth/passkey/register/option",
		httpx.Chain(http.HandlerFunc(h.HandleRegisterOption),
			httpx.AuthnMiddleware(r.TokenService),
			httpx.RequireScopes("core:user"),
			httpx.RateLimitByUser(httpx.ModerateLimit),
		),
	)
	r.Mux.Handle("POST /api/v1/auth/passkey/register",
		httpx.Chain(http.HandlerFunc(h.HandleRegister),
			httpx.AuthnMiddleware(r.TokenService),
			httpx.RequireScopes("core:user"),
			httpx.RateLimitByUser(httpx.StrictLimit),
		),
	)

	// Passkey management.
	r.Mux.Handle("GET /api/v1/auth/passkey",
		httpx.Chain(http.HandlerFunc(h.HandleList),
			httpx.AuthnMiddleware(r.TokenService),
			httpx.RateLimitByUser(httpx.LenientLimit),
		),
	)
	r.Mux.Handle("PATCH /api/v1/auth/passkey/{id}",
		httpx.Chain(http.HandlerFunc(h.HandleRename),
			httpx.AuthnMiddleware(r.TokenService),
			httpx.RateLimitByUser(httpx.ModerateLimit),
		),
	)
	r.Mux.Handle("DELETE /api/v1/auth/passkey/{id}",
		httpx.Chain(http.HandlerFunc(h.HandleDelete),
			httpx.AuthnMiddleware(r.TokenService),
			httpx.RateLimitByUser(httpx.ModerateLimit),
		),
	)
}

func (r *Router) registerOAuth() {
	h := &OAuthHandler{
		OAuthService: r.OAuthService,
		CookieSecure: r.cookieSecure,
		FrontendURL:  r.frontendURL,
	}

	r.Mux.Handle("GET /api/v1/auth/oauth/google",
		httpx.Chain(http.HandlerFunc(h.HandleBegin),
			httpx.RateLimitByIP(httpx.ModerateLimit),
		),
	)
	r.Mux.Handle("GET /api/v1/auth/oauth/google/callback",
		httpx.Chain(http.HandlerFunc(h.HandleCallback),
			httpx.RateLimitByIP(httpx.StrictLimit),
		),
	)
	r.Mux.Handle("GET /api/v1/auth/oauth/google/register-info",
		httpx.Chain(http.HandlerFunc(h.HandleRegisterInfo),
			httpx.RateLimitByIP(httpx.LenientLimit),
		),
	)
}

func (r *Router) registerSystem() {
	r.Mux.Handle("GET /livez",
		httpx.Chain(LivezHandler(r.startTime, r.buildVersion),
			httpx.RateLimitByIP(httpx.LenientLimit),
		),
	)
	r.Mux.Handle("GET /readyz",
		httpx.Chain(ReadyzHandler(r.startTime, r.buildVersion, r.store, r.cache),
			httpx.RateLimitByIP(httpx.LenientLimit),
		),
	)
}
