package app

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/aussiebroadwan/portalauth/internal/auth/directory"
	httpapi "github.com/aussiebroadwan/portalauth/internal/auth/http"
	"github.com/aussiebroadwan/portalauth/internal/auth/service"
	"github.com/aussiebroadwan/portalauth/internal/auth/store"
	"github.com/aussiebroadwan/portalauth/internal/auth/store/drivers/memory"
	"github.com/aussiebroadwan/portalauth/internal/auth/store/drivers/postgres"
	"github.com/aussiebroadwan/portalauth/internal/auth/store/drivers/redis"
	"github.com/aussiebroadwan/portalauth/internal/auth/store/drivers/sqlite"
	"github.com/aussiebroadwan/portalauth/pkg/cryptox"
	"github.com/aussiebroadwan/portalauth/pkg/slogx"
)

// BuildVersion is overridden at build time with -ldflags "-X ...".
var BuildVersion = "v0.1.0"

// Application encapsulates the auth service application with all its dependencies
type Application struct {
	cfg    Config
	logger *slog.Logger

	store store.Revocations

	issuer   *service.TokenIssuer
	verifier *service.TokenVerifier
	pairs    *service.TokenPairService
	cleanup  *service.CleanupScheduler

	server *http.Server
	router *httpapi.Router
}

// Option adjusts an Application before it is wired.
type Option func(*Application)

// WithLogger replaces the JSON stdout logger.
func WithLogger(l *slog.Logger) Option {
	return func(a *Application) { a.logger = l }
}

// New creates a new Application instance with all dependencies initialized.
// Configuration problems surface here, never on first use.
func New(ctx context.Context, cfg Config, opts ...Option) (*Application, error) {
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	app := &Application{cfg: cfg}
	for _, opt := range opts {
		opt(app)
	}
	if app.logger == nil {
		app.logger = slogx.New(slogx.Config{
			Service: "portal-auth",
			Version: BuildVersion,
			Env:     cfg.Env,
			Level:   cfg.LogLevel,
			Format:  cfg.LogFormat,
		})
	}

	if err := app.initStore(ctx); err != nil {
		return nil, err
	}
	if err := app.initServices(); err != nil {
		_ = app.store.Close()
		return nil, err
	}
	dir, err := app.initDirectory()
	if err != nil {
		_ = app.store.Close()
		return nil, err
	}
	app.initHTTP(dir)

	return app, nil
}

// Handler is the fully wired HTTP handler.
func (app *Application) Handler() http.Handler { return app.router }

// Run starts the application and blocks until shutdown is requested
func (app *Application) Run() error {
	app.cleanup.Start()

	app.logger.Info("auth service starting",
		"port", app.cfg.Port,
		"version", BuildVersion,
		"revocation_driver", app.cfg.Revocation.Driver,
	)

	serverErrors := make(chan error, 1)
	go func() {
		serverErrors <- app.server.ListenAndServe()
	}()

	shutdown := make(chan os.Signal, 1)
	signal.Notify(shutdown, os.Interrupt, syscall.SIGTERM)
	defer signal.Stop(shutdown)

	select {
	case err := <-serverErrors:
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			_ = app.Shutdown()
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

// Shutdown drains HTTP, stops the cleanup loop and closes the store. Safe to
// call without Run.
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

	app.cleanup.Stop()

	if err := app.store.Close(); err != nil {
		app.logger.Error("error closing revocation store", "error", err)
		return err
	}

	app.logger.Info("auth service stopped")
	return nil
}

// initStore opens the configured revocation driver and applies migrations
// for drivers that own a schema.
func (app *Application) initStore(ctx context.Context) error {
	rc := app.cfg.Revocation

	var (
		st  store.Revocations
		err error
	)
	switch rc.Driver {
	case DriverSQLite:
		st, err = sqlite.NewStore(fmt.Sprintf("file:%s?_pragma=journal_mode(WAL)", rc.SQLiteFile))
	case DriverPostgres:
		st, err = postgres.NewStore(ctx, rc.PostgresDSN)
	case DriverRedis:
		st, err = redis.NewStore(ctx, redis.Options{
			Addr:      rc.RedisAddr,
			Password:  rc.RedisPassword,
			DB:        rc.RedisDB,
			Retention: app.cfg.Cleanup.Retention,
		})
	default:
		app.logger.Warn("revocations are held in memory and lost on restart")
		st = memory.NewStore()
	}
	if err != nil {
		return fmt.Errorf("failed to open %s revocation store: %w", rc.Driver, err)
	}

	if m, ok := st.(store.Migrator); ok {
		if err := m.ApplyMigrations(ctx); err != nil {
			_ = st.Close()
			return fmt.Errorf("failed to apply revocation store migrations: %w", err)
		}
		app.logger.Info("revocation store migrations applied", "driver", rc.Driver)
	}

	app.store = st
	return nil
}

func (app *Application) initServices() error {
	icfg, err := issuerConfig(app.cfg, app.logger)
	if err != nil {
		return fmt.Errorf("failed to load signing keys: %w", err)
	}

	app.issuer, err = service.NewTokenIssuer(icfg)
	if err != nil {
		return fmt.Errorf("failed to initialize token issuer: %w", err)
	}

	app.verifier = service.NewTokenVerifier(app.issuer, app.store, service.VerifierOptions{
		Leeway: app.cfg.Leeway,
	})

	app.pairs = service.NewTokenPairService(app.issuer, app.verifier, app.store, service.TransportConfig{
		RefreshPath: app.cfg.Cookie.RefreshPath,
		Domain:      app.cfg.Cookie.Domain,
		Secure:      app.cfg.Cookie.Secure,
		SameSite:    app.cfg.Cookie.SameSite,
	})

	app.cleanup = service.NewCleanupScheduler(app.store, app.logger,
		app.cfg.Cleanup.Interval, app.cfg.Cleanup.Retention)
	return nil
}

func (app *Application) initDirectory() (*directory.Static, error) {
	pepper, err := cryptox.LoadOrCreatePepper(app.cfg.PepperFile)
	if err != nil {
		return nil, fmt.Errorf("failed to load pepper: %w", err)
	}

	dir, err := directory.LoadStatic(app.cfg.DirectoryFile, cryptox.PasswordHasher{Pepper: pepper})
	if err != nil {
		return nil, err
	}
	app.logger.Info("directory loaded", "file", app.cfg.DirectoryFile, "users", dir.Len())
	return dir, nil
}

func (app *Application) initHTTP(dir directory.Directory) {
	router := httpapi.NewRouter(httpapi.Deps{
		Pairs:     app.pairs,
		Verifier:  app.verifier,
		Issuer:    app.issuer,
		Directory: dir,
		Store:     app.store,
		Version:   BuildVersion,
		Logger:    app.logger,
	})
	router.ApplyRoutes()
	app.router = router

	app.server = &http.Server{
		Addr:              fmt.Sprintf(":%d", app.cfg.Port),
		Handler:           router,
		ReadHeaderTimeout: 3 * time.Second,
	}
}
