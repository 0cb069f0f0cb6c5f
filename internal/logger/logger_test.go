package logger

import (
	"bytes"
	"encoding/json"
	"log/slog"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSlogLoggerWritesAttributes(t *testing.T) {
	var buf bytes.Buffer
	log := New(slog.LevelInfo, &buf)

	log.WithField("component", "test").Error("search failed", "keyword", "沧海间", "code", 500)

	var entry map[string]any
	require.NoError(t, json.Unmarshal(buf.Bytes(), &entry))
	assert.Equal(t, "ERROR", entry["level"])
	assert.Equal(t, "search failed", entry["msg"])
	assert.Equal(t, "沧海间", entry["keyword"])
	assert.Equal(t, float64(500), entry["code"])
	assert.Equal(t, "test", entry["component"])
}

func TestSlogLoggerRespectsLevel(t *testing.T) {
	var buf bytes.Buffer
	log := New(slog.LevelWarn, &buf)

	log.Debug("hidden")
	log.Info("hidden")
	assert.Zero(t, buf.Len())

	log.Warn("shown")
	assert.Contains(t, buf.String(), "shown")
}

func TestDiscard(t *testing.T) {
	log := Discard()
	log.Error("nothing to see")
	log.WithFields(map[string]any{"a": 1}).Info("still nothing")
}
