// Package bootstrap assembles the synchronization engine from configuration.
// The server and the operator CLI share it so both drive the same synchronizers.
package bootstrap

import (
	"context"
	"errors"
	"fmt"

	"go.opentelemetry.io/otel/metric"
	"go.uber.org/zap"

	appreconciliation "github.com/erp/syncengine/internal/application/reconciliation"
	"github.com/erp/syncengine/internal/domain/reconciliation"
	"github.com/erp/syncengine/internal/domain/shared"
	"github.com/erp/syncengine/internal/infrastructure/accounting"
	"github.com/erp/syncengine/internal/infrastructure/cache"
	"github.com/erp/syncengine/internal/infrastructure/config"
	"github.com/erp/syncengine/internal/infrastructure/logger"
	"github.com/erp/syncengine/internal/infrastructure/ordermgmt"
	"github.com/erp/syncengine/internal/infrastructure/persistence"
	"github.com/erp/syncengine/internal/infrastructure/shipping"
	"github.com/erp/syncengine/internal/infrastructure/storage"
	"github.com/erp/syncengine/internal/infrastructure/telemetry"
)

// Engine holds the wired synchronization services and the resources behind them
type Engine struct {
	DB         *persistence.Database
	Settings   *appreconciliation.ConfigurationService
	Dispatcher *appreconciliation.Dispatcher
	Queries    *appreconciliation.QueryService
	// Payloads is nil unless payload archiving is enabled
	Payloads storage.PayloadLocator

	claims shared.ClaimStore
	logger *zap.Logger
}

// Gateways are the remote systems the engine talks to
type Gateways struct {
	Accounting      reconciliation.AccountingGateway
	OrderManagement reconciliation.OrderManagementGateway
	Shipping        reconciliation.ShippingGateway
}

// Option customises New
type Option func(*options)

type options struct {
	meterProvider metric.MeterProvider
	gateways      *Gateways
	archive       PayloadArchive
}

// PayloadArchive stores payloads and hands out links to them
type PayloadArchive interface {
	reconciliation.PayloadArchive
	storage.PayloadLocator
}

// WithMeterProvider records synchronization metrics on mp
func WithMeterProvider(mp metric.MeterProvider) Option {
	return func(o *options) {
		o.meterProvider = mp
	}
}

// WithGateways replaces the HTTP gateways built from configuration
func WithGateways(g Gateways) Option {
	return func(o *options) {
		o.gateways = &g
	}
}

// WithPayloadArchive replaces the S3 archive built from configuration
func WithPayloadArchive(archive PayloadArchive) Option {
	return func(o *options) {
		o.archive = archive
	}
}

// New connects to the database and the remote systems and registers one
// synchronizer per object type. SQLite databases are migrated in place;
// Postgres deployments are expected to run the versioned migrations first.
func New(ctx context.Context, cfg *config.Config, log *zap.Logger, opts ...Option) (*Engine, error) {
	o := &options{}
	for _, opt := range opts {
		opt(o)
	}

	gormLog := logger.NewSQLLogger(log, logger.MapGormLogLevel(cfg.Log.Level),
		logger.WithSlowThreshold(cfg.Telemetry.DBSlowQueryThresh),
		logger.WithFullSQL(cfg.Telemetry.DBLogFullSQL),
	)
	db, err := persistence.NewDatabase(&cfg.Database, gormLog)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}
	e := &Engine{DB: db, logger: log}

	if err := e.wire(ctx, cfg, o); err != nil {
		_ = e.Close()
		return nil, err
	}
	return e, nil
}

func (e *Engine) wire(ctx context.Context, cfg *config.Config, o *options) error {
	log := e.logger

	tracing := telemetry.NewDBTracingPlugin(telemetry.DBTracingConfig{
		Enabled:         cfg.Telemetry.Enabled && cfg.Telemetry.DBTraceEnabled,
		LogFullSQL:      cfg.Telemetry.DBLogFullSQL,
		SlowQueryThresh: cfg.Telemetry.DBSlowQueryThresh,
		DBSystem:        telemetry.DBSystemForDriver(cfg.Database.Driver),
	}, log)
	if err := tracing.RegisterOtelGorm(e.DB.DB); err != nil {
		return fmt.Errorf("failed to register database tracing: %w", err)
	}

	if cfg.Database.Driver == "sqlite" {
		if err := e.DB.AutoMigrate(); err != nil {
			return err
		}
	}

	mappings := persistence.NewGormIdentityMappingRepository(e.DB.DB)
	audit := persistence.NewGormAuditLogRepository(e.DB.DB)
	runs := persistence.NewGormSyncRunRepository(e.DB.DB)
	e.Settings = appreconciliation.NewConfigurationService(persistence.NewGormSettingsStore(e.DB.DB), cfg.Sync.Settings)
	e.Queries = appreconciliation.NewQueryService(audit, mappings, runs)

	gateways := o.gateways
	if gateways == nil {
		built, err := newGateways(cfg, log)
		if err != nil {
			return err
		}
		gateways = built
	}

	claims, err := cache.NewClaimStore(ctx, cfg.Redis, log)
	if err != nil {
		return err
	}
	e.claims = claims

	syncOpts := []appreconciliation.SynchronizerOption{
		appreconciliation.WithClaimStore(claims, cfg.Sync.ClaimTTL),
	}

	archive := o.archive
	if archive == nil && cfg.Storage.Enabled && cfg.Sync.ArchivePayloads {
		s3Archive, err := storage.NewS3PayloadArchive(ctx, &cfg.Storage, log)
		if err != nil {
			return fmt.Errorf("failed to create payload archive: %w", err)
		}
		if err := s3Archive.EnsureBucket(ctx); err != nil {
			log.Warn("Payload archive bucket is not reachable", zap.String("bucket", s3Archive.Bucket()), zap.Error(err))
		}
		archive = s3Archive
	}
	if archive != nil {
		syncOpts = append(syncOpts, appreconciliation.WithPayloadArchive(archive))
		e.Payloads = archive
	}

	if o.meterProvider != nil {
		metrics, err := telemetry.NewSyncMetricsFromProvider(o.meterProvider)
		if err != nil {
			return fmt.Errorf("failed to create sync metrics: %w", err)
		}
		syncOpts = append(syncOpts, appreconciliation.WithMetrics(metrics))
	}

	ordersLink := appreconciliation.WithObjectURLBase(cfg.OrderManagement.AppURL)
	handlers := []appreconciliation.Handler{
		appreconciliation.NewInvoiceHandler(gateways.OrderManagement, gateways.Accounting, e.Settings, ordersLink),
		appreconciliation.NewCreditNoteHandler(gateways.OrderManagement, gateways.Accounting, e.Settings, ordersLink),
		appreconciliation.NewPickTicketHandler(gateways.OrderManagement, gateways.Shipping, e.Settings, ordersLink),
		appreconciliation.NewPaymentHandler(gateways.Accounting, gateways.OrderManagement, e.Settings,
			appreconciliation.WithObjectURLBase(cfg.Accounting.AppURL)),
	}

	registry := appreconciliation.NewRegistry()
	for _, h := range handlers {
		s := appreconciliation.NewSynchronizer(h, mappings, audit, e.Settings, log, syncOpts...)
		if err := registry.Register(s); err != nil {
			return err
		}
	}
	e.Dispatcher = appreconciliation.NewDispatcher(registry, runs, log)

	log.Info("Synchronization engine ready",
		zap.Int("synchronizers", len(handlers)),
		zap.String("database", cfg.Database.Driver),
		zap.Bool("archive_payloads", e.Payloads != nil),
	)
	return nil
}

func newGateways(cfg *config.Config, log *zap.Logger) (*Gateways, error) {
	acc, err := accounting.NewAdapter(&accounting.Config{
		BaseURL:      cfg.Accounting.BaseURL,
		ClientID:     cfg.Accounting.ClientID,
		ClientSecret: cfg.Accounting.ClientSecret,
		TokenURL:     cfg.Accounting.TokenURL,
		Timeout:      cfg.Accounting.Timeout,
		RetryCount:   cfg.Accounting.RetryCount,
	}, log)
	if err != nil {
		return nil, fmt.Errorf("failed to create accounting gateway: %w", err)
	}

	orders, err := ordermgmt.NewAdapter(&ordermgmt.Config{
		BaseURL:    cfg.OrderManagement.BaseURL,
		APIKey:     cfg.OrderManagement.APIKey,
		PageSize:   cfg.OrderManagement.PageSize,
		Timeout:    cfg.OrderManagement.Timeout,
		RetryCount: cfg.OrderManagement.RetryCount,
	}, log)
	if err != nil {
		return nil, fmt.Errorf("failed to create order management gateway: %w", err)
	}

	ship, err := shipping.NewAdapter(&shipping.Config{
		BaseURL:    cfg.Shipping.BaseURL,
		PublicKey:  cfg.Shipping.PublicKey,
		SecretKey:  cfg.Shipping.SecretKey,
		Timeout:    cfg.Shipping.Timeout,
		RetryCount: cfg.Shipping.RetryCount,
	}, log)
	if err != nil {
		return nil, fmt.Errorf("failed to create shipping gateway: %w", err)
	}

	return &Gateways{Accounting: acc, OrderManagement: orders, Shipping: ship}, nil
}

// Ping checks the database connection
func (e *Engine) Ping(ctx context.Context) error {
	return e.DB.Ping(ctx)
}

// ClaimStore returns the store guarding concurrent creates
func (e *Engine) ClaimStore() shared.ClaimStore {
	return e.claims
}

// Close releases the claim store and the database connection
func (e *Engine) Close() error {
	var errs []error
	if e.claims != nil {
		errs = append(errs, e.claims.Close())
	}
	if e.DB != nil {
		errs = append(errs, e.DB.Close())
	}
	return errors.Join(errs...)
}
