package slogcustom

import (
	"bytes"
	"encoding/json"
	"log/slog"
	"testing"

	"github.com/fatih/color"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCustomHandler(t *testing.T) {
	color.NoColor = true

	var buf bytes.Buffer
	log := slog.New(NewCustomHandler(&buf, slog.LevelInfo))

	log.Debug("hidden")
	assert.Empty(t, buf.String())

	log.With("component", "http").WithGroup("req").Info("handled", "status", 200, slog.Group("user", "id", 7))

	out := buf.String()
	assert.Contains(t, out, "INFO: handled")
	assert.Contains(t, out, "component=http")
	assert.Contains(t, out, "req.status=200")
	assert.Contains(t, out, "req.user.id=7")
}

func TestNew_JSON(t *testing.T) {
	var buf bytes.Buffer
	log := New(&buf, "json", slog.LevelDebug)

	log.Debug("answer accepted", "user_id", 42)

	var entry map[string]any
	require.NoError(t, json.Unmarshal(buf.Bytes(), &entry))
	assert.Equal(t, "answer accepted", entry["msg"])
	assert.Equal(t, float64(42), entry["user_id"])
}

func TestParseLevel(t *testing.T) {
	level, err := ParseLevel("warn")
	require.NoError(t, err)
	assert.Equal(t, slog.LevelWarn, level)

	_, err = ParseLevel("loud")
	assert.Error(t, err)
}
