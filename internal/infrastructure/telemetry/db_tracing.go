package telemetry

import (
	"errors"
	"time"

	"github.com/uptrace/opentelemetry-go-extra/otelgorm"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

const defaultSlowQuery = 200 * time.Millisecond

// statementStartKey holds the start time of a statement in gorm's instance settings
const statementStartKey = "syncengine:statement_start"

// DBTracingConfig configures statement spans
type DBTracingConfig struct {
	Enabled         bool
	LogFullSQL      bool // keep bound variables in spans; settings rows hold secrets
	SlowQueryThresh time.Duration
	DBSystem        string // "postgresql" or "sqlite"
}

// DefaultDBTracingConfig is disabled, with a 200ms slow statement threshold
func DefaultDBTracingConfig() DBTracingConfig {
	return DBTracingConfig{SlowQueryThresh: defaultSlowQuery, DBSystem: "postgresql"}
}

// DBSystemForDriver maps a configured driver to its semantic-convention name
func DBSystemForDriver(driver string) string {
	if driver == "sqlite" {
		return "sqlite"
	}
	return "postgresql"
}

// DBTracingPlugin installs otelgorm and annotates its spans with row counts,
// table names, failures and slow statement markers.
type DBTracingPlugin struct {
	config DBTracingConfig
	logger *zap.Logger
}

func NewDBTracingPlugin(cfg DBTracingConfig, logger *zap.Logger) *DBTracingPlugin {
	if cfg.SlowQueryThresh <= 0 {
		cfg.SlowQueryThresh = defaultSlowQuery
	}
	return &DBTracingPlugin{config: cfg, logger: logger}
}

// RegisterOtelGorm instruments db. It is a no-op when tracing is disabled and
// fails if db is already instrumented.
func (p *DBTracingPlugin) RegisterOtelGorm(db *gorm.DB) error {
	if !p.config.Enabled {
		p.logger.Debug("Database tracing disabled")
		return nil
	}

	opts := []otelgorm.Option{otelgorm.WithDBName(p.config.DBSystem)}
	if !p.config.LogFullSQL {
		opts = append(opts, otelgorm.WithoutQueryVariables())
	}
	if err := db.Use(otelgorm.NewPlugin(opts...)); err != nil {
		return err
	}

	// annotate must run before otelgorm's after-callback ends the span
	cb := db.Callback()
	if err := errors.Join(
		cb.Create().Before("gorm:create").Register("syncengine:start_create", markStart),
		cb.Create().After("gorm:create").Before("otel:after:create").Register("syncengine:annotate_create", p.annotate),
		cb.Query().Before("gorm:query").Register("syncengine:start_query", markStart),
		cb.Query().After("gorm:query").Before("otel:after:query").Register("syncengine:annotate_query", p.annotate),
		cb.Update().Before("gorm:update").Register("syncengine:start_update", markStart),
		cb.Update().After("gorm:update").Before("otel:after:update").Register("syncengine:annotate_update", p.annotate),
		cb.Delete().Before("gorm:delete").Register("syncengine:start_delete", markStart),
		cb.Delete().After("gorm:delete").Before("otel:after:delete").Register("syncengine:annotate_delete", p.annotate),
		cb.Row().Before("gorm:row").Register("syncengine:start_row", markStart),
		cb.Row().After("gorm:row").Before("otel:after:row").Register("syncengine:annotate_row", p.annotate),
		cb.Raw().Before("gorm:raw").Register("syncengine:start_raw", markStart),
		cb.Raw().After("gorm:raw").Before("otel:after:raw").Register("syncengine:annotate_raw", p.annotate),
	); err != nil {
		return err
	}

	p.logger.Info("Database tracing enabled",
		zap.String("db_system", p.config.DBSystem),
		zap.Bool("log_full_sql", p.config.LogFullSQL),
		zap.Duration("slow_query_threshold", p.config.SlowQueryThresh),
	)
	return nil
}

func markStart(db *gorm.DB) {
	db.InstanceSet(statementStartKey, time.Now())
}

func (p *DBTracingPlugin) annotate(db *gorm.DB) {
	if db.Statement.Context == nil {
		return
	}
	span := trace.SpanFromContext(db.Statement.Context)
	if !span.IsRecording() {
		return
	}

	var attrs []attribute.KeyValue
	if db.Statement.RowsAffected >= 0 {
		attrs = append(attrs, attribute.Int64("db.rows_affected", db.Statement.RowsAffected))
	}
	if db.Statement.Table != "" {
		attrs = append(attrs, attribute.String("db.sql.table", db.Statement.Table))
	}
	// a missed mapping lookup is an answer, not a failure
	if db.Error != nil && !errors.Is(db.Error, gorm.ErrRecordNotFound) {
		span.RecordError(db.Error)
		span.SetStatus(codes.Error, db.Error.Error())
	}

	if v, ok := db.InstanceGet(statementStartKey); ok {
		if elapsed := time.Since(v.(time.Time)); elapsed > p.config.SlowQueryThresh {
			attrs = append(attrs,
				attribute.Bool("db.slow_query", true),
				attribute.Int64("db.query_duration_ms", elapsed.Milliseconds()),
			)
			span.AddEvent("slow_query_warning", trace.WithAttributes(
				attribute.Int64("duration_ms", elapsed.Milliseconds()),
				attribute.Int64("threshold_ms", p.config.SlowQueryThresh.Milliseconds()),
			))
		}
	}
	span.SetAttributes(attrs...)
}
