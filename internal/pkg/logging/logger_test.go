package logging

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zapcore"
)

func TestBuildConfigLevels(t *testing.T) {
	tests := []struct {
		name string
		opts Options
		want zapcore.Level
	}{
		{"production default", Options{Env: "production"}, zapcore.InfoLevel},
		{"dev default", Options{Env: "dev"}, zapcore.DebugLevel},
		{"explicit wins", Options{Env: "dev", Level: "warn"}, zapcore.WarnLevel},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg, err := buildConfig(tt.opts)
			require.NoError(t, err)
			assert.Equal(t, tt.want, cfg.Level.Level())
		})
	}

	_, err := buildConfig(Options{Level: "loud"})
	assert.ErrorContains(t, err, "loud")
}

func TestNewLoggerWritesFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "app.log")
	logger, err := NewLogger(Options{Service: "marketplace", Env: "test", LogFile: path})
	require.NoError(t, err)

	System(logger).Info("started")
	_ = logger.Sync()

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	line := string(data)
	assert.True(t, strings.Contains(line, `"msg":"started"`), line)
	assert.Contains(t, line, `"trace_id":"system"`)
	assert.Contains(t, line, `"service":"marketplace"`)
}
