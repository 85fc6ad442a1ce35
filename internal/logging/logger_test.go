package logging

import (
	"bytes"
	"encoding/json"
	"os"
	"path/filepath"
	"testing"

	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mmr-tortoise/adbfinder/internal/config"
)

// TestNew_LevelFiltering verifies the default warn level hides debug
// entries and that the output goes to the supplied writer.
func TestNew_LevelFiltering(t *testing.T) {
	var buf bytes.Buffer
	logger, err := New(config.LogConfig{Level: "warn", Format: "text"}, &buf)
	require.NoError(t, err)

	logger.Debug("hidden")
	logger.Warn("shown")

	assert.NotContains(t, buf.String(), "hidden")
	assert.Contains(t, buf.String(), "shown")
}

// TestNew_JSON verifies the JSON formatter's field names.
func TestNew_JSON(t *testing.T) {
	var buf bytes.Buffer
	logger, err := New(config.LogConfig{Level: "debug", Format: "json"}, &buf)
	require.NoError(t, err)

	logger.WithField("port", 5555).Debug("adb endpoint found")

	var entry map[string]interface{}
	require.NoError(t, json.Unmarshal(buf.Bytes(), &entry))
	assert.Equal(t, "adb endpoint found", entry["message"])
	assert.Equal(t, float64(5555), entry["port"])
	assert.Contains(t, entry, "timestamp")
}

// TestNew_File verifies file output creates missing directories.
func TestNew_File(t *testing.T) {
	path := filepath.Join(t.TempDir(), "logs", "adbfinder.log")
	logger, err := New(config.LogConfig{Level: "info", Format: "text", File: path, MaxSize: 1}, &bytes.Buffer{})
	require.NoError(t, err)

	logger.Info("scan finished")
	if closer, ok := logger.Out.(interface{ Close() error }); ok {
		_ = closer.Close()
	}

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Contains(t, string(data), "scan finished")
}

// TestNew_Invalid checks bad level and format values are rejected.
func TestNew_Invalid(t *testing.T) {
	_, err := New(config.LogConfig{Level: "loud", Format: "text"}, &bytes.Buffer{})
	assert.Error(t, err)

	_, err = New(config.LogConfig{Level: "info", Format: "xml"}, &bytes.Buffer{})
	assert.Error(t, err)

	logger, err := New(config.LogConfig{Level: "ERROR"}, &bytes.Buffer{})
	require.NoError(t, err)
	assert.Equal(t, logrus.ErrorLevel, logger.GetLevel())
}
