package app

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"os"
	"os/signal"
	"strconv"
	"syscall"
	"time"

	httpapi "github.com/aussiebroadwan/pharmacy/internal/account/http"
	"github.com/aussiebroadwan/pharmacy/internal/account/mailer"
	"github.com/aussiebroadwan/pharmacy/internal/account/service"
	"github.com/aussiebroadwan/pharmacy/internal/account/session"
	"github.com/aussiebroadwan/pharmacy/internal/account/store"
	"github.com/aussiebroadwan/pharmacy/internal/account/store/drivers/mongo"
	"github.com/aussiebroadwan/pharmacy/internal/account/store/drivers/sqlite"
	"github.com/aussiebroadwan/pharmacy/pkg/cryptox"
	"github.com/aussiebroadwan/pharmacy/pkg/httpx"
	"github.com/aussiebroadwan/pharmacy/pkg/slogx"
)

const (
	// BuildVersion should be set at build time via ldflags.
	BuildVersion = "v0.1.0"
)

// Application encapsulates the account service with all its dependencies.
type Application struct {
	cfg    Config
	logger *slog.Logger

	db      store.Store
	tracker *session.Tracker

	accountService      *service.AccountService
	otpService          *service.OTPService
	sessionService      *service.SessionService
	housekeepingService *service.HousekeepingService

	server *http.Server
	router *httpapi.Router
}

// New creates a new Application instance with all dependencies initialized.
func New(cfg Config) (*Application, error) {
	app := &Application{
		cfg: cfg,
		logger: slogx.New(slogx.Config{
			Service: "pharmacy-accounts",
			Version: BuildVersion,
			Env:     cfg.Env,
			Level:   cfg.LogLevel,
			Format:  cfg.LogFormat,
		}),
	}

	cryptox.SetPepperPath(app.cfg.PepperFile)

	if err := app.initDatabase(); err != nil {
		return nil, err
	}

	if err := app.initServices(); err != nil {
		_ = app.db.Close(context.Background())
		return nil, err
	}
	if err := app.initHTTP(); err != nil {
		_ = app.db.Close(context.Background())
		return nil, err
	}

	return app, nil
}

// Handler returns the root HTTP handler.
func (app *Application) Handler() http.Handler { return app.router }

// Run starts the application and blocks until shutdown is requested.
func (app *Application) Run() error {
	app.housekeepingService.Start()

	app.logger.Info("account service starting",
		"addr", app.server.Addr,
		"version", BuildVersion,
		"store", app.cfg.StoreDriver,
		"mail", app.cfg.MailDriver,
	)

	serverErrors := make(chan error, 1)
	go func() {
		serverErrors <- app.server.ListenAndServe()
	}()

	shutdown := make(chan os.Signal, 1)
	signal.Notify(shutdown, os.Interrupt, syscall.SIGTERM)

	select {
	case err := <-serverErrors:
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			if sErr := app.Shutdown(); sErr != nil {
				app.logger.Error("cleanup after server failure", "error", sErr)
			}
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
	app.logger.Info("shutting down account service...")

	ctx, cancel := context.WithTimeout(context.Background(), app.cfg.ShutdownGracePeriod)
	defer cancel()

	if err := app.server.Shutdown(ctx); err != nil {
		app.logger.Error("graceful server shutdown failed", "error", err)
		if err := app.server.Close(); err != nil {
			app.logger.Error("error closing server", "error", err)
		}
	}

	app.housekeepingService.Stop()

	// Whoever was logged in is logged out with the process.
	app.sessionService.End(ctx)

	if err := app.db.Close(ctx); err != nil {
		app.logger.Error("error closing database", "error", err)
		return err
	}

	app.logger.Info("account service stopped")
	return nil
}

// initDatabase connects the configured driver and brings its schema up to date.
func (app *Application) initDatabase() error {
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	var (
		db  store.Store
		err error
	)
	switch app.cfg.StoreDriver {
	case "sqlite":
		dsn := app.cfg.DatabaseFile
		if dsn != ":memory:" {
			dsn = fmt.Sprintf("file:%s?_pragma=journal_mode(WAL)", app.cfg.DatabaseFile)
		}
		db, err = sqlite.NewStore(dsn)
	default:
		db, err = mongo.NewStore(ctx, app.cfg.MongoURL, app.cfg.MongoDatabase)
	}
	if err != nil {
		return fmt.Errorf("failed to initialize database: %w", err)
	}
	app.db = db

	if err := db.EnsureSchema(ctx); err != nil {
		_ = db.Close(context.Background())
		return fmt.Errorf("failed to prepare database schema: %w", err)
	}

	app.logger.Info("database schema ready", "driver", app.cfg.StoreDriver)
	return nil
}

func (app *Application) newDispatcher() mailer.Dispatcher {
	if app.cfg.MailDriver == "log" {
		app.logger.Warn("MAIL_DRIVER=log: one-time codes are written to the log, not mailed")
		return &mailer.LogDispatcher{Logger: app.logger}
	}
	return &mailer.SMTPDispatcher{
		Host:     app.cfg.SMTPServer,
		Port:     app.cfg.SMTPPort,
		Username: app.cfg.SMTPUser,
		Password: app.cfg.SMTPPassword,
		From:     app.cfg.SMTPFrom,
	}
}

// initServices initializes all business logic services.
func (app *Application) initServices() error {
	signer, err := InitSessionSigner(app.cfg, app.logger)
	if err != nil {
		return fmt.Errorf("failed to initialize session key: %w", err)
	}

	app.otpService = &service.OTPService{
		Store:  app.db,
		Mailer: app.newDispatcher(),
		TTL:    app.cfg.OTPTTL,
	}
	app.accountService = &service.AccountService{
		Store: app.db,
		OTP:   app.otpService,
	}

	app.tracker = session.NewTracker(session.NewMemoryStore())
	app.sessionService = &service.SessionService{
		Tracker: app.tracker,
		Signer:  signer,
		Issuer:  app.cfg.SessionIssuer,
		TTL:     app.cfg.SessionTTL,
	}

	app.housekeepingService = service.NewHousekeepingService(
		app.db,
		app.logger,
		app.cfg.HousekeepingInterval,
	)
	return nil
}

// initHTTP initializes the HTTP router and server.
func (app *Application) initHTTP() error {
	proxies, err := httpx.ParseTrustedProxies(app.cfg.TrustedProxies)
	if err != nil {
		return fmt.Errorf("invalid TRUSTED_PROXIES: %w", err)
	}

	router := httpapi.NewRouter(app.db, BuildVersion, app.logger)
	router.AccountService = app.accountService
	router.SessionService = app.sessionService
	router.RequireEmailVerification = app.cfg.RequireEmailVerification
	router.TrustedProxies = proxies
	router.ApplyRoutes()

	app.router = router

	app.server = &http.Server{
		Addr:              net.JoinHostPort(app.cfg.BindAddress, strconv.Itoa(app.cfg.Port)),
		Handler:           router,
		ReadHeaderTimeout: 3 * time.Second,
	}
	return nil
}
