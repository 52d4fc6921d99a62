package router

import (
	"time"

	"github.com/erp/syncengine/internal/infrastructure/auth"
	"github.com/erp/syncengine/internal/infrastructure/config"
	"github.com/erp/syncengine/internal/infrastructure/logger"
	"github.com/erp/syncengine/internal/interfaces/http/handler"
	"github.com/erp/syncengine/internal/interfaces/http/middleware"
	"github.com/gin-gonic/gin"
	"go.opentelemetry.io/otel/metric"
	"go.uber.org/zap"
)

// Handlers groups the HTTP handlers of the sync engine
type Handlers struct {
	Webhook  *handler.WebhookHandler
	Sync     *handler.SyncHandler
	Settings *handler.SettingsHandler
	System   *handler.SystemHandler
}

// Options configures the engine built by New
type Options struct {
	ServiceName    string
	HTTP           config.HTTPConfig
	TracingEnabled bool
	MeterProvider  metric.MeterProvider
	JWTService     *auth.JWTService
	Logger         *zap.Logger
}

// API is the assembled HTTP surface. Close releases the webhook rate limiter.
type API struct {
	Engine  *gin.Engine
	limiter *middleware.RateLimiter
}

// Close stops background work started by New
func (a *API) Close() {
	if a.limiter != nil {
		a.limiter.Stop()
	}
}

// New builds the gin engine with the global middleware stack, the webhook
// receiver, the operator API and the health probe.
func New(opts Options, h Handlers) *API {
	engine := gin.New()
	if len(opts.HTTP.TrustedProxies) > 0 {
		if err := engine.SetTrustedProxies(opts.HTTP.TrustedProxies); err != nil {
			opts.Logger.Warn("Failed to set trusted proxies", zap.Error(err))
		}
	}

	engine.Use(
		middleware.RequestID(),
		logger.Recovery(opts.Logger),
		logger.GinMiddleware(opts.Logger, "/health"),
		middleware.Secure(),
		middleware.CORSWithConfig(middleware.OperatorCORSConfig(opts.HTTP.CORSOrigins)),
		middleware.Tracing(middleware.TracingConfig{
			ServiceName: opts.ServiceName,
			Enabled:     opts.TracingEnabled,
			SkipPaths:   []string{"/health"},
		}),
		middleware.SpanErrorMarker(),
		middleware.HTTPMetrics(opts.MeterProvider),
		middleware.BodyLimit(opts.HTTP.MaxBodySize),
	)

	engine.GET("/health", h.System.Health)

	api := &API{Engine: engine}

	webhooks := NewGroup("/webhooks")
	if opts.HTTP.WebhookRateLimit > 0 {
		window := opts.HTTP.WebhookRateWindow
		if window <= 0 {
			window = time.Minute
		}
		api.limiter = middleware.NewRateLimiter(opts.HTTP.WebhookRateLimit, window)
		webhooks.Use(middleware.RateLimit(api.limiter))
	}
	webhooks.POST("", h.Webhook.Handle)
	webhooks.POST("/:type", h.Webhook.HandleTyped)

	admin := NewGroup("",
		middleware.Authenticate(opts.JWTService, opts.Logger),
		middleware.TracingAttributeInjector(),
		middleware.Timeout(opts.HTTP.WriteTimeout),
	)

	admin.Group("", middleware.RequireScope(auth.ScopeRead)).
		GET("/sync/records", h.Sync.ListRecords).
		GET("/sync/records/:id", h.Sync.GetRecord).
		GET("/sync/mappings", h.Sync.ListMappings).
		GET("/sync/runs", h.Sync.ListRuns).
		GET("/settings", h.Settings.List)

	admin.Group("", middleware.RequireScope(auth.ScopeWrite)).
		POST("/sync/retry", h.Sync.Retry).
		POST("/sync/run/:type", h.Sync.Run).
		PUT("/settings/:key", h.Settings.Update)

	Mount(engine, "v1", webhooks, admin)
	return api
}
