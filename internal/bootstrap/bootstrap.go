package bootstrap

import (
	"context"
	"fmt"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"golang.org/x/sync/errgroup"

	"clinic-server-go/internal/domain/eventbus"
	"clinic-server-go/internal/domain/gatekeeper"
	"clinic-server-go/internal/domain/permission"
	"clinic-server-go/internal/domain/session"
	sessionstore "clinic-server-go/internal/domain/session/store"
	"clinic-server-go/internal/domain/throttle"
	"clinic-server-go/internal/domain/token"
	platformconfig "clinic-server-go/internal/platform/config"
	platformerrors "clinic-server-go/internal/platform/errors"
	platformlogging "clinic-server-go/internal/platform/logging"
	platformstorage "clinic-server-go/internal/platform/storage"
	httptransport "clinic-server-go/internal/transport/http"
	httpauth "clinic-server-go/internal/transport/http/auth"
	httpsystem "clinic-server-go/internal/transport/http/system"
)

const shutdownTimeout = 10 * time.Second

// App holds everything the process wires at startup.
type App struct {
	Config     *platformconfig.Config
	Logger     *platformlogging.Logger
	Gatekeeper *gatekeeper.Gatekeeper
	Limiter    *throttle.Limiter
	Registry   *session.Registry
	Bus        *eventbus.Bus
	Router     *httptransport.Router
}

// Build loads configuration and wires every collaborator, bottom-up. It does
// not start anything; Run owns the lifecycles.
func Build() (*App, error) {
	result, err := platformconfig.NewLoader().Load()
	if err != nil {
		return nil, err
	}
	cfg := result.Config

	logger, err := platformlogging.New(platformlogging.Config{
		Level:    cfg.Log.Level,
		Dir:      cfg.Log.Dir,
		Filename: cfg.Log.File,
	})
	if err != nil {
		return nil, platformerrors.Wrap(platformerrors.KindBootstrap, "bootstrap.logging",
			"failed to initialise logging", err)
	}
	logger.Info("configuration loaded from %s", result.Path)

	db, err := platformstorage.Open(cfg.Database.DSN, cfg.Database.ConnectAttempts)
	if err != nil {
		return nil, err
	}
	if err := platformstorage.Migrate(db); err != nil {
		return nil, err
	}
	accounts := platformstorage.NewAccountRepository(db)
	snapshots := platformstorage.NewSnapshotRepository(db)

	timesStore, err := sessionstore.New(sessionstore.Config{
		Driver: cfg.Gatekeeper.Session.Driver,
		Redis: &sessionstore.RedisConfig{
			Addr:     cfg.Redis.Addr,
			Username: cfg.Redis.Username,
			Password: cfg.Redis.Password,
			DB:       cfg.Redis.DB,
			Prefix:   cfg.Redis.Prefix,
		},
	}, sessionstore.Dependencies{SQLiteDB: db})
	if err != nil {
		return nil, platformerrors.Wrap(platformerrors.KindBootstrap, "bootstrap.store",
			"failed to initialise session store", err)
	}

	registry, err := session.NewRegistry(session.Options{
		Accounts:        accounts,
		Store:           timesStore,
		Logger:          logger,
		CacheTTL:        time.Duration(cfg.Gatekeeper.Session.CacheTTLMinutes) * time.Minute,
		CleanupInterval: time.Duration(cfg.Gatekeeper.Session.CleanupSec) * time.Second,
	})
	if err != nil {
		return nil, platformerrors.Wrap(platformerrors.KindBootstrap, "bootstrap.session",
			"failed to initialise session registry", err)
	}

	tokens, err := token.NewService(token.Config{
		Secret:   cfg.Gatekeeper.Token.Secret,
		Issuer:   cfg.Gatekeeper.Token.Issuer,
		Type:     cfg.Gatekeeper.Token.Type,
		Validity: time.Duration(cfg.Gatekeeper.Token.ValidityMinutes) * time.Minute,
	}, registry, logger)
	if err != nil {
		return nil, platformerrors.Wrap(platformerrors.KindBootstrap, "bootstrap.token",
			"failed to initialise token service", err)
	}

	throttleCfg := cfg.Gatekeeper.Throttle
	limiter, err := throttle.NewLimiter(throttle.Options{
		MaxRequests:       throttleCfg.MaxRequests,
		Period:            time.Duration(throttleCfg.PeriodSec) * time.Second,
		MaxFingerprints:   throttleCfg.MaxFingerprints,
		RateLimitDuration: time.Duration(throttleCfg.RateLimitSec) * time.Second,
		BanDuration:       time.Duration(throttleCfg.BanSec) * time.Second,
		CleanFrequency:    time.Duration(throttleCfg.CleanFreqSec) * time.Second,
		Whitelist:         throttleCfg.WhitelistPatterns,
		Blacklist:         throttleCfg.BlacklistPatterns,
		Logger:            logger,
	})
	if err != nil {
		return nil, platformerrors.Wrap(platformerrors.KindBootstrap, "bootstrap.throttle",
			"failed to initialise request throttler", err)
	}

	evaluator := permission.NewEvaluator(snapshots, logger)

	bus := eventbus.NewBus(4)
	if err := eventbus.RegisterAuditLog(bus, logger); err != nil {
		return nil, platformerrors.Wrap(platformerrors.KindBootstrap, "bootstrap.eventbus",
			"failed to register audit subscriber", err)
	}

	gk, err := gatekeeper.New(gatekeeper.Options{
		Throttler: limiter,
		Tokens:    tokens,
		Sessions:  registry,
		Evaluator: evaluator,
		Bus:       bus,
		Logger:    logger,
	})
	if err != nil {
		return nil, platformerrors.Wrap(platformerrors.KindBootstrap, "bootstrap.gatekeeper",
			"failed to initialise gatekeeper", err)
	}

	router, err := httptransport.Build(httptransport.Options{
		Config:             cfg,
		Logger:             logger,
		ThrottleMiddleware: httptransport.ThrottleMiddleware(gk),
		AuthMiddleware:     httptransport.AuthMiddleware(gk, "users"),
	})
	if err != nil {
		return nil, platformerrors.Wrap(platformerrors.KindBootstrap, "bootstrap.router",
			"failed to build http router", err)
	}

	authService, err := httpauth.NewService(gk, logger)
	if err != nil {
		return nil, err
	}
	authService.Register(router.API.Group("/auth"))
	authService.RegisterSecured(router.Secured)
	httpsystem.NewService(logger, limiter.Stats).Register(router.API)

	return &App{
		Config:     cfg,
		Logger:     logger,
		Gatekeeper: gk,
		Limiter:    limiter,
		Registry:   registry,
		Bus:        bus,
		Router:     router,
	}, nil
}

// Run wires the application and serves HTTP until the context is done or a
// termination signal arrives, then shuts everything down in reverse order.
func Run(ctx context.Context) error {
	app, err := Build()
	if err != nil {
		return err
	}
	logger := app.Logger
	defer logger.Close()

	signalCtx, stop := signal.NotifyContext(ctx, syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	app.Limiter.Start()
	defer app.Limiter.Stop()
	defer app.Bus.Stop()
	defer func() {
		closeCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		if err := app.Registry.Close(closeCtx); err != nil {
			logger.Warn("session registry did not close cleanly: %v", err)
		}
	}()

	addr := fmt.Sprintf("%s:%d", app.Config.Server.IP, app.Config.Server.Port)
	server := &http.Server{
		Addr:    addr,
		Handler: app.Router.Engine,
	}

	group, groupCtx := errgroup.WithContext(signalCtx)
	group.Go(func() error {
		logger.Info("http server listening on %s", addr)
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			return platformerrors.Wrap(platformerrors.KindTransport, "bootstrap.serve",
				"http server failed", err)
		}
		return nil
	})
	group.Go(func() error {
		<-groupCtx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		logger.Info("shutting down http server")
		return server.Shutdown(shutdownCtx)
	})

	if err := group.Wait(); err != nil && err != context.Canceled {
		return err
	}
	logger.Info("server stopped")
	return nil
}
