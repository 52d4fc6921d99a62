package logger

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"
	gormlogger "gorm.io/gorm/logger"
)

const settingUpdate = `UPDATE "sync_settings" SET "value"='hunter2' WHERE "key" = 'sync.webhook_secret'`

func newSQLLogger(level gormlogger.LogLevel, opts ...SQLLoggerOption) (*SQLLogger, *observer.ObservedLogs) {
	core, recorded := observer.New(zapcore.DebugLevel)
	return NewSQLLogger(zap.New(core), level, opts...), recorded
}

func statement(sql string) func() (string, int64) {
	return func() (string, int64) { return sql, 1 }
}

func TestSQLLogger_Trace(t *testing.T) {
	tests := []struct {
		name    string
		level   gormlogger.LogLevel
		elapsed time.Duration
		err     error
		message string
		zl      zapcore.Level
	}{
		{"failure", gormlogger.Warn, 0, errors.New("duplicate key"), "SQL statement failed", zapcore.ErrorLevel},
		{"slow", gormlogger.Warn, time.Second, nil, "Slow SQL statement", zapcore.WarnLevel},
		{"debug", gormlogger.Info, 0, nil, "SQL statement", zapcore.DebugLevel},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			l, recorded := newSQLLogger(tt.level)
			l.Trace(context.Background(), time.Now().Add(-tt.elapsed), statement(settingUpdate), tt.err)

			entries := recorded.All()
			require.Len(t, entries, 1)
			assert.Equal(t, tt.message, entries[0].Message)
			assert.Equal(t, tt.zl, entries[0].Level)
			assert.Equal(t, "sql", entries[0].LoggerName)
			fields := entries[0].ContextMap()
			assert.Equal(t, "UPDATE sync_settings", fields["statement"])
			assert.NotContains(t, fields, "sql")
		})
	}
}

func TestSQLLogger_Quiet(t *testing.T) {
	t.Run("fast statement at warn", func(t *testing.T) {
		l, recorded := newSQLLogger(gormlogger.Warn)
		l.Trace(context.Background(), time.Now(), func() (string, int64) {
			t.Fatal("statement rendered without being logged")
			return "", 0
		}, nil)
		assert.Zero(t, recorded.Len())
	})

	t.Run("record not found", func(t *testing.T) {
		l, recorded := newSQLLogger(gormlogger.Warn)
		l.Trace(context.Background(), time.Now(), statement(`SELECT * FROM "identity_mappings"`), gormlogger.ErrRecordNotFound)
		assert.Zero(t, recorded.Len())
	})

	t.Run("silent", func(t *testing.T) {
		l, recorded := newSQLLogger(gormlogger.Silent)
		l.Trace(context.Background(), time.Now().Add(-time.Hour), statement(settingUpdate), errors.New("boom"))
		assert.Zero(t, recorded.Len())
	})

	t.Run("slow threshold disabled", func(t *testing.T) {
		l, recorded := newSQLLogger(gormlogger.Warn, WithSlowThreshold(0))
		l.Trace(context.Background(), time.Now().Add(-time.Hour), statement(settingUpdate), nil)
		assert.Zero(t, recorded.Len())
	})
}

func TestSQLLogger_FullSQL(t *testing.T) {
	l, recorded := newSQLLogger(gormlogger.Info, WithFullSQL(true))
	ctx := withRequestID(context.Background(), "req-9")
	l.Trace(ctx, time.Now(), statement(settingUpdate), nil)

	require.Equal(t, 1, recorded.Len())
	fields := recorded.All()[0].ContextMap()
	assert.Equal(t, settingUpdate, fields["sql"])
	assert.Equal(t, "req-9", fields["request_id"])
}

func TestSQLLogger_LogMode(t *testing.T) {
	l, _ := newSQLLogger(gormlogger.Warn)
	quiet, ok := l.LogMode(gormlogger.Silent).(*SQLLogger)
	require.True(t, ok)
	assert.Equal(t, gormlogger.Silent, quiet.level)
	assert.Equal(t, gormlogger.Warn, l.level)
}

func TestSQLLogger_Messages(t *testing.T) {
	l, recorded := newSQLLogger(gormlogger.Warn)
	ctx := context.Background()
	l.Info(ctx, "migrated %d tables", 4)
	l.Warn(ctx, "slow migration %s", "sync_runs")
	l.Error(ctx, "migration failed")

	entries := recorded.All()
	require.Len(t, entries, 2)
	assert.Equal(t, "slow migration sync_runs", entries[0].Message)
	assert.Equal(t, "migration failed", entries[1].Message)
}

func TestSummarizeSQL(t *testing.T) {
	tests := map[string]string{
		`SELECT * FROM "synchronized_objects" WHERE type = 'invoice'`:            "SELECT synchronized_objects",
		`INSERT INTO "identity_mappings" ("type","source_service") VALUES (...)`: "INSERT identity_mappings",
		settingUpdate:                          "UPDATE sync_settings",
		"delete from `sync_runs` where id = 1": "DELETE sync_runs",
		"SELECT 1":                             "SELECT",
		"BEGIN":                                "BEGIN",
		"":                                     "",
	}
	for sql, want := range tests {
		assert.Equal(t, want, SummarizeSQL(sql), sql)
	}
}

func TestMapGormLogLevel(t *testing.T) {
	assert.Equal(t, gormlogger.Info, MapGormLogLevel("debug"))
	assert.Equal(t, gormlogger.Warn, MapGormLogLevel("info"))
	assert.Equal(t, gormlogger.Warn, MapGormLogLevel("warn"))
	assert.Equal(t, gormlogger.Error, MapGormLogLevel("ERROR"))
	assert.Equal(t, gormlogger.Silent, MapGormLogLevel("silent"))
}
