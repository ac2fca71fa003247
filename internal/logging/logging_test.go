package logging

import (
	"bytes"
	"log/slog"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestNewPlainRespectsVerboseLevel(t *testing.T) {
	var buf bytes.Buffer
	logger := NewPlain(&buf, false)
	logger.Debug("hidden")
	assert.Empty(t, buf.String())

	logger.Info("shown")
	assert.Contains(t, buf.String(), "shown")
}

func TestNewPlainVerboseEnablesDebug(t *testing.T) {
	var buf bytes.Buffer
	logger := NewPlain(&buf, true)
	logger.Debug("now visible")
	assert.Contains(t, buf.String(), "now visible")
}

func TestNewPlainReturnsUsableLogger(t *testing.T) {
	var buf bytes.Buffer
	logger := NewPlain(&buf, false)
	assert.NotNil(t, logger)
	logger.Info("msg", slog.String("key", "value"))
	assert.True(t, strings.Contains(buf.String(), "key=value"))
}
