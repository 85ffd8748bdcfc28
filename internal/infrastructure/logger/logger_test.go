package logger

import (
	"log/slog"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestSetupReturnsNonNilLoggerForEveryLevel(t *testing.T) {
	for _, level := range []string{"debug", "info", "warn", "error", "unknown", ""} {
		l := Setup(level)
		assert.NotNil(t, l)
	}
}

func TestSetupInstallsDefaultLogger(t *testing.T) {
	l := Setup("debug")
	assert.Equal(t, l, slog.Default())
}

func TestLoggerReturnsInfoLevelDefault(t *testing.T) {
	l := Logger()
	assert.NotNil(t, l)
}
