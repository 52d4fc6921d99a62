package logger

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zapcore"

	"github.com/erp/syncengine/internal/infrastructure/config"
)

func TestNew(t *testing.T) {
	tests := []struct {
		name  string
		cfg   config.LogConfig
		level zapcore.Level
	}{
		{"console", config.LogConfig{Level: "info", Format: "console", Output: "stdout"}, zapcore.InfoLevel},
		{"debug to stderr", config.LogConfig{Level: "debug", Format: "json", Output: "stderr"}, zapcore.DebugLevel},
		{"empty output", config.LogConfig{Level: "warn", Format: "json"}, zapcore.WarnLevel},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			l, err := New(tt.cfg)
			require.NoError(t, err)
			assert.True(t, l.Core().Enabled(tt.level))
			assert.False(t, l.Core().Enabled(tt.level-1))
		})
	}
}

func TestNew_FileOutput(t *testing.T) {
	path := filepath.Join(t.TempDir(), "sync.log")

	l, err := New(config.LogConfig{Level: "info", Format: "json", Output: path})
	require.NoError(t, err)
	l.Info("invoice synchronized")
	require.NoError(t, l.Sync())

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Contains(t, string(data), `"msg":"invoice synchronized"`)
}

func TestNew_UnwritableFile(t *testing.T) {
	_, err := New(config.LogConfig{Output: filepath.Join(t.TempDir(), "missing", "sync.log")})
	assert.Error(t, err)
}

func TestParseLevel(t *testing.T) {
	tests := map[string]zapcore.Level{
		"debug":   zapcore.DebugLevel,
		"DEBUG":   zapcore.DebugLevel,
		"info":    zapcore.InfoLevel,
		"warn":    zapcore.WarnLevel,
		"warning": zapcore.WarnLevel,
		"error":   zapcore.ErrorLevel,
		"bogus":   zapcore.InfoLevel,
		"":        zapcore.InfoLevel,
	}
	for in, want := range tests {
		assert.Equal(t, want, parseLevel(in), in)
	}
}
