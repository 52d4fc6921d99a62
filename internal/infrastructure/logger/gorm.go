package logger

import (
	"context"
	"errors"
	"strings"
	"time"

	"go.uber.org/zap"
	gormlogger "gorm.io/gorm/logger"
)

// SQLLogger routes GORM statements to zap. Statements carry bound values,
// including webhook secrets and payload excerpts, so by default only the
// statement verb and table are logged.
type SQLLogger struct {
	log           *zap.Logger
	level         gormlogger.LogLevel
	slowThreshold time.Duration
	fullSQL       bool
}

// SQLLoggerOption configures a SQLLogger
type SQLLoggerOption func(*SQLLogger)

// WithSlowThreshold sets the duration above which a statement is logged as slow.
// Zero disables slow statement warnings.
func WithSlowThreshold(d time.Duration) SQLLoggerOption {
	return func(l *SQLLogger) {
		l.slowThreshold = d
	}
}

// WithFullSQL logs complete statements with their bound values
func WithFullSQL(enabled bool) SQLLoggerOption {
	return func(l *SQLLogger) {
		l.fullSQL = enabled
	}
}

// NewSQLLogger creates a GORM logger writing to log under the "sql" name
func NewSQLLogger(log *zap.Logger, level gormlogger.LogLevel, opts ...SQLLoggerOption) *SQLLogger {
	l := &SQLLogger{
		log:           log.Named("sql"),
		level:         level,
		slowThreshold: 200 * time.Millisecond,
	}
	for _, opt := range opts {
		opt(l)
	}
	return l
}

func (l *SQLLogger) LogMode(level gormlogger.LogLevel) gormlogger.Interface {
	clone := *l
	clone.level = level
	return &clone
}

func (l *SQLLogger) Info(ctx context.Context, msg string, data ...any) {
	if l.level >= gormlogger.Info {
		WithTraceContext(ctx, l.log).Sugar().Infof(msg, data...)
	}
}

func (l *SQLLogger) Warn(ctx context.Context, msg string, data ...any) {
	if l.level >= gormlogger.Warn {
		WithTraceContext(ctx, l.log).Sugar().Warnf(msg, data...)
	}
}

func (l *SQLLogger) Error(ctx context.Context, msg string, data ...any) {
	if l.level >= gormlogger.Error {
		WithTraceContext(ctx, l.log).Sugar().Errorf(msg, data...)
	}
}

// Trace logs one executed statement. Missing rows are the normal answer to
// an identity-mapping lookup and are never logged.
func (l *SQLLogger) Trace(ctx context.Context, begin time.Time, fc func() (string, int64), err error) {
	if l.level <= gormlogger.Silent {
		return
	}
	if err != nil && errors.Is(err, gormlogger.ErrRecordNotFound) {
		err = nil
	}

	elapsed := time.Since(begin)
	slow := l.slowThreshold > 0 && elapsed > l.slowThreshold
	if err == nil && !slow && l.level < gormlogger.Info {
		return
	}

	sql, rows := fc()
	fields := []zap.Field{
		zap.Duration("elapsed", elapsed),
		zap.Int64("rows", rows),
	}
	if l.fullSQL {
		fields = append(fields, zap.String("sql", sql))
	} else {
		fields = append(fields, zap.String("statement", SummarizeSQL(sql)))
	}
	if requestID := GetRequestID(ctx); requestID != "" {
		fields = append(fields, zap.String("request_id", requestID))
	}
	log := WithTraceContext(ctx, l.log)

	switch {
	case err != nil:
		if l.level >= gormlogger.Error {
			log.Error("SQL statement failed", append(fields, zap.Error(err))...)
		}
	case slow:
		if l.level >= gormlogger.Warn {
			log.Warn("Slow SQL statement", append(fields, zap.Duration("threshold", l.slowThreshold))...)
		}
	default:
		log.Debug("SQL statement", fields...)
	}
}

// SummarizeSQL reduces a statement to its verb and target table,
// e.g. "INSERT identity_mappings"
func SummarizeSQL(sql string) string {
	words := strings.Fields(sql)
	if len(words) == 0 {
		return ""
	}
	verb := strings.ToUpper(words[0])
	var marker string
	switch verb {
	case "SELECT", "DELETE":
		marker = "FROM"
	case "INSERT":
		marker = "INTO"
	case "UPDATE":
		if len(words) > 1 {
			return verb + " " + unquoteIdent(words[1])
		}
		return verb
	default:
		return verb
	}
	for i, w := range words[:len(words)-1] {
		if strings.EqualFold(w, marker) {
			return verb + " " + unquoteIdent(words[i+1])
		}
	}
	return verb
}

func unquoteIdent(s string) string {
	s = strings.TrimRight(s, "(;")
	return strings.Trim(s, "\"`")
}

// MapGormLogLevel maps the application log level to a GORM level.
// Statements only reach the output at debug.
func MapGormLogLevel(level string) gormlogger.LogLevel {
	switch strings.ToLower(level) {
	case "silent":
		return gormlogger.Silent
	case "debug":
		return gormlogger.Info
	case "error":
		return gormlogger.Error
	default:
		return gormlogger.Warn
	}
}
