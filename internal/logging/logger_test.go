package logging

import (
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"
)

func TestParseLevel(t *testing.T) {
	assert.Equal(t, zapcore.DebugLevel, ParseLevel("DEBUG"))
	assert.Equal(t, zapcore.WarnLevel, ParseLevel(" warn "))
	assert.Equal(t, zapcore.ErrorLevel, ParseLevel("error"))
	assert.Equal(t, zapcore.InfoLevel, ParseLevel("verbose"))
}

func TestLoggerFieldsReachCore(t *testing.T) {
	core, logs := observer.New(zapcore.DebugLevel)
	log := NewLoggerFromCore(core).Named("tracker").With(String("driver", "sqlite"))

	log.Warn("persist failed", Err(errors.New("disk full")), Int("records", 3), Strings("keys", []string{"a_30"}))

	entries := logs.All()
	require.Len(t, entries, 1)
	entry := entries[0]
	assert.Equal(t, "tracker", entry.LoggerName)
	assert.Equal(t, zapcore.WarnLevel, entry.Level)
	fields := entry.ContextMap()
	assert.Equal(t, "sqlite", fields["driver"])
	assert.Equal(t, "disk full", fields["error"])
	assert.EqualValues(t, 3, fields["records"])
}

func TestNewLoggerWritesJSONToFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "rightontime.log")
	log, err := NewLogger(LogConfig{Level: "debug", Format: "json", OutputPaths: []string{path}})
	require.NoError(t, err)

	log.Debug("loaded", Int("records", 2))
	require.NoError(t, log.Sync())

	raw, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.True(t, strings.Contains(string(raw), `"msg":"loaded"`), string(raw))
	assert.True(t, strings.Contains(string(raw), `"records":2`), string(raw))
}

func TestNopLogger(t *testing.T) {
	log := NewNopLogger().Named("x").With(Bool("ok", true))
	log.Error("ignored")
	assert.NoError(t, log.Sync())
}
