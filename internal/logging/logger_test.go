package logging

import (
	"bytes"
	"context"
	"encoding/json"
	"log/slog"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseLevel(t *testing.T) {
	tests := []struct {
		in   string
		want slog.Level
	}{
		{in: "debug", want: slog.LevelDebug},
		{in: "INFO", want: slog.LevelInfo},
		{in: "warn", want: slog.LevelWarn},
		{in: "warning", want: slog.LevelWarn},
		{in: "error", want: slog.LevelError},
		{in: "bogus", want: slog.LevelInfo},
		{in: "", want: slog.LevelInfo},
	}

	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			assert.Equal(t, tt.want, ParseLevel(tt.in))
		})
	}
}

func TestNewLogger_JSONFieldsAndLevel(t *testing.T) {
	var buf bytes.Buffer
	logger := NewLogger(Config{Level: "warn", Format: "json", Output: &buf})

	logger.Info("dropped")
	assert.Zero(t, buf.Len())

	logger.WithRequestID("req-1").WithTable("users").Warn("slow grid query", slog.Int("rows", 3))

	var record map[string]any
	require.NoError(t, json.Unmarshal(buf.Bytes(), &record))
	assert.Equal(t, "slow grid query", record["msg"])
	assert.Equal(t, "req-1", record["request_id"])
	assert.Equal(t, "users", record["table"])
	assert.Equal(t, float64(3), record["rows"])
}

func TestNewLogger_TextFormat(t *testing.T) {
	var buf bytes.Buffer
	logger := NewLogger(Config{Level: "info", Format: "text", Output: &buf})
	logger.WithFields("driver", "sqlite").Info("connected")

	assert.Contains(t, buf.String(), "msg=connected")
	assert.Contains(t, buf.String(), "driver=sqlite")
}

func TestFanout_DeliversToEveryHandler(t *testing.T) {
	var first, second bytes.Buffer
	h := fanout{
		slog.NewJSONHandler(&first, nil),
		slog.NewJSONHandler(&second, &slog.HandlerOptions{Level: slog.LevelError}),
	}
	logger := slog.New(h).With("component", "test")

	logger.Info("info only")
	assert.Contains(t, first.String(), "info only")
	assert.Empty(t, second.String())

	logger.Error("both")
	assert.Contains(t, second.String(), `"component":"test"`)
	assert.True(t, h.Enabled(context.Background(), slog.LevelInfo))
}

func TestContextHelpers(t *testing.T) {
	ctx := context.Background()
	assert.NotNil(t, FromContext(ctx).Logger)
	assert.Equal(t, "", GetRequestID(ctx))

	logger := NewLogger(Config{Output: &bytes.Buffer{}})
	ctx = WithLogger(WithRequestIDContext(ctx, "abc"), logger)
	assert.Same(t, logger, FromContext(ctx))
	assert.Equal(t, "abc", GetRequestID(ctx))
}
