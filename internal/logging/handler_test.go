package logging

import (
	"bytes"
	"encoding/json"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseLevel(t *testing.T) {
	tests := map[string]slog.Level{
		"":        slog.LevelInfo,
		"info":    slog.LevelInfo,
		"DEBUG":   slog.LevelDebug,
		"Warning": slog.LevelWarn,
		"ERROR":   slog.LevelError,
	}
	for name, want := range tests {
		got, err := ParseLevel(name)
		require.NoError(t, err, name)
		assert.Equal(t, want, got, name)
	}

	_, err := ParseLevel("LOUD")
	assert.Error(t, err)
}

func TestNew_TextFormat(t *testing.T) {
	var buf bytes.Buffer
	logger, closer, err := newLogger(Config{Level: "INFO"}, &buf)
	require.NoError(t, err)
	defer closer.Close()

	logger.Debug("hidden")
	logger.Info("request handled", "status", 200)

	out := buf.String()
	assert.NotContains(t, out, "hidden")
	assert.Contains(t, out, "request handled")
	assert.Contains(t, out, "status=200")
	assert.NotContains(t, out, "\033[", "non-terminal output must not be colorized")
}

func TestNew_JSONFormat(t *testing.T) {
	var buf bytes.Buffer
	logger, closer, err := newLogger(Config{Level: "DEBUG", Format: "json"}, &buf)
	require.NoError(t, err)
	defer closer.Close()

	logger.Debug("cache miss", "operation", "get_model_info")

	var record map[string]any
	require.NoError(t, json.Unmarshal(buf.Bytes(), &record))
	assert.Equal(t, "cache miss", record["msg"])
	assert.Equal(t, "DEBUG", record["level"])
	assert.Equal(t, "get_model_info", record["operation"])
}

func TestNew_TeesToFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "app.log")
	var buf bytes.Buffer

	logger, closer, err := newLogger(Config{Format: "json", File: path}, &buf)
	require.NoError(t, err)

	logger.With("request_id", "abc").Warn("slow call")
	require.NoError(t, closer.Close())

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Contains(t, string(data), `"msg":"slow call"`)
	assert.Contains(t, string(data), `"request_id":"abc"`)
	assert.Equal(t, strings.TrimSpace(buf.String()), strings.TrimSpace(string(data)))
}

func TestNew_InvalidConfig(t *testing.T) {
	_, _, err := New(Config{Format: "xml"})
	assert.Error(t, err)

	_, _, err = New(Config{Level: "TRACE"})
	assert.Error(t, err)

	_, _, err = New(Config{File: filepath.Join(t.TempDir(), "missing", "app.log")})
	assert.Error(t, err)
}
