package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/erp/syncengine/internal/bootstrap"
	"github.com/erp/syncengine/internal/infrastructure/auth"
	"github.com/erp/syncengine/internal/infrastructure/config"
	"github.com/erp/syncengine/internal/infrastructure/logger"
	"github.com/erp/syncengine/internal/infrastructure/scheduler"
	"github.com/erp/syncengine/internal/infrastructure/telemetry"
	"github.com/erp/syncengine/internal/interfaces/http/handler"
	"github.com/erp/syncengine/internal/interfaces/http/middleware"
	"github.com/erp/syncengine/internal/interfaces/http/router"
)

// version is set at build time with -ldflags "-X main.version=..."
var version = "dev"

const shutdownGrace = 30 * time.Second

func main() {
	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintln(os.Stderr, "load configuration:", err)
		os.Exit(1)
	}
	log, err := logger.New(cfg.Log)
	if err != nil {
		fmt.Fprintln(os.Stderr, "initialize logger:", err)
		os.Exit(1)
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	err = run(ctx, cfg, log)
	stop()
	if err != nil {
		log.Error("Sync engine stopped with error", zap.Error(err))
		_ = log.Sync()
		os.Exit(1)
	}
	log.Info("Sync engine stopped")
	_ = log.Sync()
}

func run(ctx context.Context, cfg *config.Config, log *zap.Logger) error {
	log.Info("Starting sync engine",
		zap.String("app", cfg.App.Name),
		zap.String("env", cfg.App.Env),
		zap.String("version", version),
	)

	providers, err := telemetry.Setup(ctx, cfg.Telemetry, version, log)
	if err != nil {
		return fmt.Errorf("telemetry: %w", err)
	}
	defer func() {
		if err := providers.Shutdown(context.Background()); err != nil {
			log.Warn("Telemetry shutdown failed", zap.Error(err))
		}
	}()

	engine, err := bootstrap.New(ctx, cfg, log, bootstrap.WithMeterProvider(providers.MeterProvider()))
	if err != nil {
		return err
	}
	defer func() {
		if err := engine.Close(); err != nil {
			log.Warn("Engine close failed", zap.Error(err))
		}
	}()

	if cfg.Scheduler.Enabled {
		stopCron, err := startCron(ctx, cfg.Scheduler, engine, log)
		if err != nil {
			return err
		}
		defer stopCron()
	}

	api, err := newAPI(cfg, engine, providers, log)
	if err != nil {
		return err
	}
	defer api.Close()

	srv := &http.Server{
		Addr:           ":" + cfg.App.Port,
		Handler:        api.Engine,
		ReadTimeout:    cfg.HTTP.ReadTimeout,
		WriteTimeout:   cfg.HTTP.WriteTimeout,
		IdleTimeout:    cfg.HTTP.IdleTimeout,
		MaxHeaderBytes: cfg.HTTP.MaxHeaderBytes,
	}

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		log.Info("HTTP server listening", zap.String("addr", srv.Addr))
		if err := srv.ListenAndServe(); !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})
	g.Go(func() error {
		<-gctx.Done()
		log.Info("Draining HTTP server", zap.Duration("grace", shutdownGrace))
		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownGrace)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	})
	return g.Wait()
}

func startCron(ctx context.Context, cfg config.SchedulerConfig, engine *bootstrap.Engine, log *zap.Logger) (func(), error) {
	cron, err := scheduler.NewSyncCronTrigger(scheduler.SyncCronTriggerConfig{
		Interval:   cfg.SyncInterval,
		RunTimeout: cfg.RunTimeout,
	}, engine.Dispatcher, log)
	if err != nil {
		return nil, fmt.Errorf("cron trigger: %w", err)
	}
	if err := cron.Start(ctx); err != nil {
		return nil, fmt.Errorf("cron trigger: %w", err)
	}
	return func() {
		stopCtx, cancel := context.WithTimeout(context.Background(), shutdownGrace)
		defer cancel()
		if err := cron.Stop(stopCtx); err != nil {
			log.Warn("Cron trigger did not stop cleanly", zap.Error(err))
		}
	}, nil
}

func newAPI(cfg *config.Config, engine *bootstrap.Engine, providers *telemetry.Providers, log *zap.Logger) (*router.API, error) {
	tokens, err := auth.NewJWTService(cfg.JWT)
	if err != nil {
		return nil, fmt.Errorf("jwt: %w", err)
	}

	checks := map[string]handler.Pinger{"database": engine}
	if redis, ok := engine.ClaimStore().(handler.Pinger); ok {
		checks["redis"] = redis
	}

	if cfg.IsProduction() {
		gin.SetMode(gin.ReleaseMode)
	}
	middleware.SetupValidator()

	return router.New(router.Options{
		ServiceName:    cfg.Telemetry.ServiceName,
		HTTP:           cfg.HTTP,
		TracingEnabled: cfg.Telemetry.Enabled,
		MeterProvider:  providers.MeterProvider(),
		JWTService:     tokens,
		Logger:         log,
	}, router.Handlers{
		Webhook:  handler.NewWebhookHandler(engine.Dispatcher, engine.Settings, cfg.HTTP.WebhookTimeout),
		Sync:     handler.NewSyncHandler(engine.Dispatcher, engine.Queries, engine.Payloads),
		Settings: handler.NewSettingsHandler(engine.Settings),
		System:   handler.NewSystemHandler(cfg.App.Name, version, checks),
	}), nil
}
