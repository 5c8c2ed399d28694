package logger

import (
	"bytes"
	"context"
	"encoding/json"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zapcore"
)

func newBufferLogger(t *testing.T, level Level) (*BaseLogger, *bytes.Buffer) {
	t.Helper()
	var buf bytes.Buffer
	cfg := DefaultConfig()
	cfg.Format = JSONFormat
	cfg.Level = level
	cfg.EnableStacktrace = false
	return newWithSyncer(cfg, zapcore.AddSync(&buf)), &buf
}

func decodeLines(t *testing.T, buf *bytes.Buffer) []map[string]any {
	t.Helper()
	var out []map[string]any
	for _, line := range strings.Split(strings.TrimSpace(buf.String()), "\n") {
		if line == "" {
			continue
		}
		m := make(map[string]any)
		require.NoError(t, json.Unmarshal([]byte(line), &m))
		out = append(out, m)
	}
	return out
}

func TestNew(t *testing.T) {
	tests := []struct {
		name    string
		config  *Config
		wantErr error
	}{
		{name: "nil config uses default", config: nil},
		{name: "partial config", config: &Config{Level: DebugLevel, Format: JSONFormat}},
		{
			name:    "file enabled without path",
			config:  &Config{EnableFile: true},
			wantErr: ErrInvalidOutputPath,
		},
		{
			name:    "unknown level",
			config:  &Config{Level: "verbose"},
			wantErr: ErrInvalidLevel,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			l, err := New(tt.config)
			if tt.wantErr != nil {
				assert.ErrorIs(t, err, tt.wantErr)
				return
			}
			require.NoError(t, err)
			assert.NotNil(t, l)
		})
	}
}

func TestLevelFiltering(t *testing.T) {
	l, buf := newBufferLogger(t, WarnLevel)

	l.Debug("debug")
	l.Info("info")
	l.Warn("warn", "k", 1)
	l.Error("error")

	lines := decodeLines(t, buf)
	require.Len(t, lines, 2)
	assert.Equal(t, "warn", lines[0]["msg"])
	assert.Equal(t, float64(1), lines[0]["k"])
	assert.Equal(t, "error", lines[1]["level"])
}

func TestNamedAndFields(t *testing.T) {
	l, buf := newBufferLogger(t, InfoLevel)

	named := l.Named("service").Named("progression").WithFields("player_id", 42)
	named.Info("stage completed", "stage", 3)

	lines := decodeLines(t, buf)
	require.Len(t, lines, 1)
	assert.Equal(t, "service.progression", lines[0]["logger"])
	assert.Equal(t, float64(42), lines[0]["player_id"])
	assert.Equal(t, float64(3), lines[0]["stage"])
}

func TestContextFields(t *testing.T) {
	l, buf := newBufferLogger(t, InfoLevel)

	ctx := ContextWithFields(context.Background(), "request_id", "r-1")
	ctx = ContextWithFields(ctx, "player_id", 7)
	l.InfoContext(ctx, "handled", "status", 200)

	lines := decodeLines(t, buf)
	require.Len(t, lines, 1)
	assert.Equal(t, "r-1", lines[0]["request_id"])
	assert.Equal(t, float64(7), lines[0]["player_id"])
	assert.Equal(t, float64(200), lines[0]["status"])
}

func TestNoopLogger(t *testing.T) {
	var l Logger = NewNoop()
	l.Info("ignored")
	assert.Same(t, l, l.Named("x"))
	assert.NoError(t, l.Sync())
}
