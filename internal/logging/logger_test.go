package logging

import (
	"bytes"
	"encoding/json"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoggerRespectsLevelThreshold(t *testing.T) {
	buf := &bytes.Buffer{}
	logger := New(&Config{Level: InfoLevel, Format: TextFormat, Output: buf})

	logger.Debug("should not appear")
	assert.Empty(t, buf.String())

	logger.Info("should appear")
	assert.Contains(t, buf.String(), "should appear")
	assert.Contains(t, buf.String(), "[INFO]")
}

func TestLoggerJSONFormat(t *testing.T) {
	buf := &bytes.Buffer{}
	logger := New(&Config{Level: DebugLevel, Format: JSONFormat, Output: buf, Component: "ingest"})

	logger.Warn("title fetch failed", Fields{"title": 26})

	var entry LogEntry
	require.NoError(t, json.Unmarshal(bytes.TrimSpace(buf.Bytes()), &entry))
	assert.Equal(t, "WARN", entry.Level)
	assert.Equal(t, "ingest", entry.Component)
	assert.Equal(t, "title fetch failed", entry.Message)
	assert.EqualValues(t, 26, entry.Fields["title"])
}

func TestLoggerWithScopesComponent(t *testing.T) {
	buf := &bytes.Buffer{}
	base := New(&Config{Level: InfoLevel, Format: TextFormat, Output: buf})
	scoped := base.With("playforward")

	scoped.Info("advanced head")
	assert.Contains(t, buf.String(), "playforward:")
}

func TestMergeFields(t *testing.T) {
	merged := mergeFields([]Fields{{"a": 1}, {"b": 2}})
	assert.Equal(t, Fields{"a": 1, "b": 2}, merged)

	assert.Nil(t, mergeFields(nil))
	single := mergeFields([]Fields{{"a": 1}})
	assert.Equal(t, Fields{"a": 1}, single)
}

func TestParseLogLevelInvalid(t *testing.T) {
	_, err := ParseLogLevel("verbose")
	require.Error(t, err)
	assert.True(t, strings.Contains(err.Error(), "invalid log level"))
}
