package app

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-webauthn/webauthn/webauthn"

	"github.com/withapp/crush/internal/auth/cache"
	httpapi "github.com/withapp/crush/internal/auth/http"
	"github.com/withapp/crush/internal/auth/service"
	"github.com/withapp/crush/internal/auth/store"
	"github.com/withapp/crush/internal/auth/store/drivers/sqlite"
	"github.com/withapp/crush/pkg/jwtx"
	"github.com/withapp/crush/pkg/slogx"
)

const (
	// BuildVersion should be set at build time via ldflags.
	BuildVersion = "v0.1.0"

	ceremonyTTL = 5 * time.Minute
	stateTTL    = 10 * time.Minute
	signupTTL   = time.Hour
)

// Application wires the auth service together: sqlite identities, a redis
// (or in-process) ceremony cache, the token/passkey/oauth services, and the
// HTTP surface.
type Application struct {
	cfg    Config
	logger *slog.Logger

	db    store.Store
	cache cache.Store

	tokenService    *service.TokenService
	refreshService  *service.RefreshService
	passkeyService  *service.PasskeyService
	oauthService    *service.OAuthService
	identityService *service.IdentityService

	server *http.Server
	router *httpapi.Router
}

// New creates an Application with all dependencies initialized.
func New(ctx context.Context, cfg Config) (*Application, error) {
	app := &Application{
		cfg: cfg,
		logger: slogx.New(slogx.Config{
			Service: "auth-service",
			Version: BuildVersion,
			Env:     cfg.Env,
			Level:   cfg.LogLevel,
			Format:  cfg.LogFormat,
		}),
	}

	if err := app.initDatabase(); err != nil {
		return nil, err
	}
	if err := app.initCache(ctx); err != nil {
		_ = app.db.Close()
		return nil, err
	}
	if err := app.initServices(ctx); err != nil {
		_ = app.cache.Close()
		_ = app.db.Close()
		return nil, err
	}
	if err := app.importCatalog(ctx); err != nil {
		_ = app.cache.Close()
		_ = app.db.Close()
		return nil, err
	}
	app.initHTTP()

	return app, nil
}

// Run starts the application and blocks until shutdown is requested.
func (app *Application) Run() error {
	app.logger.Info("auth service starting", "port", app.cfg.Port, "version", BuildVersion)

	serverErrors := make(chan error, 1)
	go func() {
		serverErrors <- app.server.ListenAndServe()
	}()

	shutdown := make(chan os.Signal, 1)
	signal.Notify(shutdown, os.Interrupt, syscall.SIGTERM)

	select {
	case err := <-serverErrors:
		if err != nil && err != http.ErrServerClosed {
			return fmt.Errorf("server failed: %w", err)
		}
	case sig := <-shutdown:
		app.logger.Info("shutdown signal received", "signal", sig)

		if err := app.Shutdown(); err != nil {
			return fmt.Errorf("graceful shutdown failed: %w", err)
		}
	}

	return nil
}

// Shutdown gracefully shuts down the application.
func (app *Application) Shutdown() error {
	app.logger.Info("shutting down auth service...")

	ctx, cancel := context.WithTimeout(context.Background(), app.cfg.ShutdownGracePeriod)
	defer cancel()

	if err := app.server.Shutdown(ctx); err != nil {
		app.logger.Error("graceful server shutdown failed", "error", err)
		if err := app.server.Close(); err != nil {
			app.logger.Error("error closing server", "error", err)
		}
	}

	if err := app.cache.Close(); err != nil {
		app.logger.Error("error closing cache", "error", err)
	}

	if err := app.db.Close(); err != nil {
		app.logger.Error("error closing database", "error", err)
		return err
	}

	app.logger.Info("auth service stopped")
	return nil
}

func (app *Application) initDatabase() error {
	host := fmt.Sprintf("file:%s?_busy_timeout=5000&_journal_mode=WAL", app.cfg.DatabaseFile)
	db, err := sqlite.NewStore(host)
	if err != nil {
		return fmt.Errorf("failed to initialize database: %w", err)
	}
	app.db = db

	if err := db.ApplyMigrations(); err != nil {
		_ = db.Close()
		return fmt.Errorf("failed to apply database migrations: %w", err)
	}

	app.logger.Info("database migrations applied successfully")
	return nil
}

// initCache connects to redis, or falls back to the in-process cache when no
// address is configured. The in-process cache is single-node only: replayed
// refresh tokens are not visible across instances.
func (app *Application) initCache(ctx context.Context) error {
	if app.cfg.RedisAddr == "" {
		app.logger.Warn("no redis address configured, using in-process cache")
		app.cache = cache.NewMemory()
		return nil
	}

	r, err := cache.NewRedis(ctx, app.cfg.RedisAddr, app.cfg.RedisPassword, app.cfg.RedisDB)
	if err != nil {
		return fmt.Errorf("failed to connect to redis: %w", err)
	}
	app.cache = r
	return nil
}

func (app *Application) initServices(ctx context.Context) error {
	app.tokenService = &service.TokenService{
		Codec:      jwtx.NewCodec([]byte(app.cfg.Secret), app.cfg.Issuer, []string{app.cfg.Audience}),
		AccessTTL:  app.cfg.AccessTTL,
		RefreshTTL: app.cfg.RefreshTTL,
	}

	app.refreshService = &service.RefreshService{
		Tokens: app.tokenService,
		Store:  app.db,
		Cache:  app.cache,
	}

	app.identityService = &service.IdentityService{Store: app.db}

	wa, err := webauthn.New(&webauthn.Config{
		RPID:          app.cfg.RPID,
		RPDisplayName: app.cfg.RPName,
		RPOrigins:     []string{app.cfg.RPOrigin},
	})
	if err != nil {
		return fmt.Errorf("failed to configure webauthn: %w", err)
	}
	app.passkeyService = &service.PasskeyService{
		Verifier:     wa,
		Store:        app.db,
		Cache:        app.cache,
		ChallengeTTL: ceremonyTTL,
	}

	if app.cfg.GoogleClientID == "" {
		app.logger.Warn("no google client configured, google sign-in disabled")
		return nil
	}

	provider, err := service.NewGoogleProvider(
		ctx,
		app.cfg.GoogleClientID,
		app.cfg.GoogleClientSecret,
		app.cfg.GoogleRedirectURL,
	)
	if err != nil {
		return fmt.Errorf("failed to configure google provider: %w", err)
	}
	app.oauthService = &service.OAuthService{
		Provider:  provider,
		Store:     app.db,
		Tokens:    app.tokenService,
		Cache:     app.cache,
		StateTTL:  stateTTL,
		SignupTTL: signupTTL,
	}
	return nil
}

// importCatalog loads the authenticator catalog when one is configured.
// Registration rejects authenticators absent from the catalog, so an empty
// catalog means passkey registration always fails.
func (app *Application) importCatalog(ctx context.Context) error {
	if app.cfg.AAGUIDMap == "" {
		app.logger.Warn("no authenticator catalog configured, passkey registration will reject all authenticators")
		return nil
	}

	f, err := os.Open(app.cfg.AAGUIDMap)
	if err != nil {
		return fmt.Errorf("failed to open authenticator catalog: %w", err)
	}
	defer f.Close()

	n, err := service.ImportAuthenticators(ctx, app.db, f)
	if err != nil {
		return fmt.Errorf("failed to import authenticator catalog: %w", err)
	}
	app.logger.Info("authenticator catalog imported", "entries", n)
	return nil
}

func (app *Application) initHTTP() {
	router := httpapi.NewRouter(
		BuildVersion,
		app.cfg.CookieSecure,
		app.cfg.FrontendURL,
		app.db,
		app.cache,
		app.logger,
	)

	router.TokenService = app.tokenService
	router.RefreshService = app.refreshService
	router.PasskeyService = app.passkeyService
	router.OAuthService = app.oauthService // nil when google sign-in is disabled
	router.IdentityService = app.identityService
	router.ApplyRoutes()

	app.router = router

	app.server = &http.Server{
		Addr:              fmt.Sprintf(":%d", app.cfg.Port),
		Handler:           router,
		ReadHeaderTimeout: 3 * time.Second,
	}
}
