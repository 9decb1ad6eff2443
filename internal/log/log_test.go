package log

import (
	"bytes"
	"encoding/json"
	"log/slog"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewWithWriterText(t *testing.T) {
	var buf bytes.Buffer
	logger := NewWithWriter(&buf, Config{Level: slog.LevelDebug})

	logger.Info("indexing course", "title", "Intro to Go")

	out := buf.String()
	assert.Contains(t, out, "indexing course")
	assert.Contains(t, out, "title=\"Intro to Go\"")
}

func TestNewWithWriterJSON(t *testing.T) {
	var buf bytes.Buffer
	logger := NewWithWriter(&buf, Config{JSON: true})

	logger.Info("query answered", "session", "abc")

	var record map[string]any
	require.NoError(t, json.Unmarshal(buf.Bytes(), &record))
	assert.Equal(t, "query answered", record["msg"])
	assert.Equal(t, "abc", record["session"])
}

func TestLevelFiltering(t *testing.T) {
	var buf bytes.Buffer
	logger := NewWithWriter(&buf, Config{Level: slog.LevelInfo})

	logger.Debug("noise")
	logger.Info("signal")

	out := buf.String()
	assert.NotContains(t, out, "noise")
	assert.Contains(t, out, "signal")
}

func TestWithComponent(t *testing.T) {
	var buf bytes.Buffer
	logger := NewWithWriter(&buf, Config{})

	logger.With("component", "resolver").Warn("weak match")

	assert.Contains(t, buf.String(), "component=resolver")
}

func TestNewNopDiscards(t *testing.T) {
	logger := NewNop()
	require.NotNil(t, logger)

	logger.Error("discarded")
}
