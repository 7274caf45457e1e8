package logger

import (
	"bytes"
	"context"
	"encoding/json"
	"log/slog"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNew_JSONFormat(t *testing.T) {
	var buf bytes.Buffer
	l := New(&buf, "info", "json")

	l.Info("document stored", "document_id", 42)

	var entry map[string]any
	require.NoError(t, json.Unmarshal(buf.Bytes(), &entry))
	assert.Equal(t, "document stored", entry["msg"])
	assert.Equal(t, float64(42), entry["document_id"])
	assert.Equal(t, "INFO", entry["level"])
}

func TestNew_LevelFilters(t *testing.T) {
	var buf bytes.Buffer
	l := New(&buf, "warning", "text")

	l.Info("hidden")
	l.Warn("shown")

	assert.NotContains(t, buf.String(), "hidden")
	assert.Contains(t, buf.String(), "shown")
}

func TestParseLevel(t *testing.T) {
	assert.Equal(t, slog.LevelDebug, ParseLevel("debug"))
	assert.Equal(t, slog.LevelWarn, ParseLevel("WARN"))
	assert.Equal(t, slog.LevelError, ParseLevel("critical"))
	assert.Equal(t, slog.LevelInfo, ParseLevel(""))
	assert.Equal(t, slog.LevelInfo, ParseLevel("verbose"))
}

func TestFromContext(t *testing.T) {
	assert.Same(t, Default(), FromContext(context.Background()))

	var buf bytes.Buffer
	scoped := New(&buf, "info", "json").With("request_id", "abc")
	ctx := WithContext(context.Background(), scoped)

	FromContext(ctx).Info("hello")
	assert.Contains(t, buf.String(), `"request_id":"abc"`)
}
