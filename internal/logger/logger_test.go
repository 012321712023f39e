package logger

import (
	"bytes"
	"encoding/json"
	"log/slog"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/yebrai/skillswap/internal/config"
)

func TestParseLevel(t *testing.T) {
	assert.Equal(t, slog.LevelDebug, ParseLevel("DEBUG"))
	assert.Equal(t, slog.LevelWarn, ParseLevel("warning"))
	assert.Equal(t, slog.LevelError, ParseLevel("error"))
	assert.Equal(t, slog.LevelInfo, ParseLevel(""))
	assert.Equal(t, slog.LevelInfo, ParseLevel("verbose"))
}

func TestNewWithWriter_ProdIsJSON(t *testing.T) {
	var buf bytes.Buffer
	log := NewWithWriter(config.LoggerMode{Level: "warn"}, &buf)

	log.Info("dropped")
	log.Warn("kept", "component", "hub")

	var entry map[string]any
	require.NoError(t, json.Unmarshal(buf.Bytes(), &entry))
	assert.Equal(t, "kept", entry["msg"])
	assert.Equal(t, "hub", entry["component"])
}

func TestNewWithWriter_DevelopmentLogsDebug(t *testing.T) {
	var buf bytes.Buffer
	log := NewWithWriter(config.LoggerMode{Development: true}, &buf)
	log.Debug("visible")
	assert.Contains(t, buf.String(), "msg=visible")
}
