package logger

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"
)

func TestNew(t *testing.T) {
	tests := []struct {
		name      string
		mode      string
		wantDebug bool
	}{
		{name: "development default", mode: "", wantDebug: true},
		{name: "dev", mode: "dev", wantDebug: true},
		{name: "production", mode: "prod", wantDebug: false},
		{name: "production mixed case", mode: " Production ", wantDebug: false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			l, err := New(tt.mode)
			require.NoError(t, err)
			require.NotNil(t, l.SugaredLogger)
			assert.Equal(t, tt.wantDebug, l.SugaredLogger.Desugar().Core().Enabled(zapcore.DebugLevel))
		})
	}
}

func TestNew_ErrorsCarryNoStacktrace(t *testing.T) {
	for _, mode := range []string{"dev", "prod"} {
		t.Run(mode, func(t *testing.T) {
			path := filepath.Join(t.TempDir(), "refclust.log")
			l, err := build(mode, path)
			require.NoError(t, err)

			l.Error("command failed", "error", "missing result table rs.tab")
			l.Sync()

			data, err := os.ReadFile(path)
			require.NoError(t, err)
			out := string(data)
			assert.Contains(t, out, "command failed")
			assert.Contains(t, out, "missing result table rs.tab")
			assert.NotContains(t, out, "testing.tRunner")
			assert.NotContains(t, out, "stacktrace")
		})
	}
}

func TestLogger_KeyValues(t *testing.T) {
	core, logs := observer.New(zapcore.DebugLevel)
	l := &Logger{SugaredLogger: zap.New(core).Sugar()}

	child := l.With("unit", "cluster_extract")
	child.Info("unit finished", "clusters", 3)
	l.Warn("no result tables")
	l.Debug("debug line")
	l.Error("failed", "error", "boom")

	entries := logs.All()
	require.Len(t, entries, 4)
	assert.Equal(t, "unit finished", entries[0].Message)
	assert.Equal(t, map[string]any{"unit": "cluster_extract", "clusters": int64(3)}, entries[0].ContextMap())
	assert.Equal(t, zapcore.WarnLevel, entries[1].Level)
	assert.Equal(t, zapcore.ErrorLevel, entries[3].Level)
}

func TestNewNop(t *testing.T) {
	l := NewNop()
	assert.NotPanics(t, func() {
		l.Info("ignored", "k", "v")
		l.Sync()
	})
}
