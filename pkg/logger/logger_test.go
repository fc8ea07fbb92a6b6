package logger

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/wonny/demandcast/pkg/config"
)

func decode(t *testing.T, buf *bytes.Buffer) map[string]interface{} {
	t.Helper()
	var entry map[string]interface{}
	require.NoError(t, json.Unmarshal(buf.Bytes(), &entry))
	return entry
}

func TestNew_SetsGlobalLevel(t *testing.T) {
	tests := []struct {
		level string
		want  zerolog.Level
	}{
		{"debug", zerolog.DebugLevel},
		{"info", zerolog.InfoLevel},
		{"warn", zerolog.WarnLevel},
		{"error", zerolog.ErrorLevel},
	}

	for _, tt := range tests {
		t.Run(tt.level, func(t *testing.T) {
			var buf bytes.Buffer
			l := NewWithWriter(&config.Config{Env: "development", LogLevel: tt.level, LogFormat: "json"}, &buf)
			require.NotNil(t, l)
			assert.Equal(t, tt.want, zerolog.GlobalLevel())
		})
	}
}

func TestParseLogLevel(t *testing.T) {
	tests := []struct {
		input string
		want  zerolog.Level
	}{
		{"debug", zerolog.DebugLevel},
		{"DEBUG", zerolog.DebugLevel},
		{"info", zerolog.InfoLevel},
		{"warning", zerolog.WarnLevel},
		{"error", zerolog.ErrorLevel},
		{"fatal", zerolog.FatalLevel},
		{"invalid", zerolog.InfoLevel},
		{"", zerolog.InfoLevel},
	}

	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			assert.Equal(t, tt.want, parseLogLevel(tt.input))
		})
	}
}

func TestLoggerMethods(t *testing.T) {
	var buf bytes.Buffer
	zerolog.SetGlobalLevel(zerolog.DebugLevel)
	l := &Logger{zlog: zerolog.New(&buf)}

	tests := []struct {
		name      string
		logFunc   func()
		wantMsg   string
		wantLevel string
	}{
		{"debug", func() { l.Debug("debug message") }, "debug message", "debug"},
		{"info", func() { l.Info("info message") }, "info message", "info"},
		{"warn", func() { l.Warn("warn message") }, "warn message", "warn"},
		{"error", func() { l.Error("error message") }, "error message", "error"},
		{"infof", func() { l.Infof("qualified %d of %d", 3, 5) }, "qualified 3 of 5", "info"},
		{"errorf", func() { l.Errorf("load failed: %s", "timeout") }, "load failed: timeout", "error"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			buf.Reset()
			tt.logFunc()

			entry := decode(t, &buf)
			assert.Equal(t, tt.wantLevel, entry["level"])
			assert.Equal(t, tt.wantMsg, entry["message"])
		})
	}
}

func TestWithFields(t *testing.T) {
	var buf bytes.Buffer
	zerolog.SetGlobalLevel(zerolog.DebugLevel)
	l := &Logger{zlog: zerolog.New(&buf)}

	l.WithField("product_id", "SKU-1").
		WithFields(map[string]interface{}{"qualified": true, "rows": 42}).
		Info("features built")

	entry := decode(t, &buf)
	assert.Equal(t, "SKU-1", entry["product_id"])
	assert.Equal(t, true, entry["qualified"])
	assert.Equal(t, float64(42), entry["rows"])
}

func TestWithError(t *testing.T) {
	var buf bytes.Buffer
	zerolog.SetGlobalLevel(zerolog.DebugLevel)
	l := &Logger{zlog: zerolog.New(&buf)}

	l.WithError(errors.New("empty training batch")).Error("fit failed")

	entry := decode(t, &buf)
	assert.Equal(t, "empty training batch", entry["error"])
	assert.Equal(t, "fit failed", entry["message"])
}

func TestComponent(t *testing.T) {
	var buf bytes.Buffer
	zerolog.SetGlobalLevel(zerolog.DebugLevel)
	l := &Logger{zlog: zerolog.New(&buf)}

	zl := l.Component("forecast.gbrt")
	zl.Info().Int("trees", 10).Msg("fitted")

	entry := decode(t, &buf)
	assert.Equal(t, "forecast.gbrt", entry["component"])
	assert.Equal(t, float64(10), entry["trees"])
}

func TestLogFormats(t *testing.T) {
	for _, format := range []string{"json", "console", "pretty"} {
		t.Run(format, func(t *testing.T) {
			var buf bytes.Buffer
			l := NewWithWriter(&config.Config{Env: "test", LogLevel: "info", LogFormat: format}, &buf)
			l.Info("test message")
			assert.Contains(t, buf.String(), "test message")
		})
	}
}

func TestNop(t *testing.T) {
	assert.NotPanics(t, func() { Nop().WithField("k", "v").Info("dropped") })
}

func TestWithRunAndStage(t *testing.T) {
	var buf bytes.Buffer
	zerolog.SetGlobalLevel(zerolog.DebugLevel)
	l := &Logger{zlog: zerolog.New(&buf)}

	l.WithRun("run-42").WithStage("S2").Info("stage completed")

	entry := decode(t, &buf)
	assert.Equal(t, "run-42", entry["run_id"])
	assert.Equal(t, "S2", entry["stage"])
}

func TestContextRoundTrip(t *testing.T) {
	var buf bytes.Buffer
	zerolog.SetGlobalLevel(zerolog.DebugLevel)
	l := (&Logger{zlog: zerolog.New(&buf)}).WithRun("run-7")

	ctx := l.IntoContext(context.Background())
	fromCtx, ok := FromContext(ctx)
	require.True(t, ok)
	fromCtx.Info("from context")

	entry := decode(t, &buf)
	assert.Equal(t, "run-7", entry["run_id"])
	assert.Equal(t, "from context", entry["message"])
}

func TestFromContext_Empty(t *testing.T) {
	l, ok := FromContext(context.Background())
	assert.False(t, ok)
	assert.NotPanics(t, func() { l.Info("dropped") })
}

func TestNew_ServiceField(t *testing.T) {
	var buf bytes.Buffer
	l := NewWithWriter(&config.Config{Env: "staging", LogLevel: "info", LogFormat: "json"}, &buf)
	l.Info("hello")

	entry := decode(t, &buf)
	assert.Equal(t, "demandcast", entry["service"])
	assert.Equal(t, "staging", entry["env"])
}
