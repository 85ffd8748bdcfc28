package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestLoadDefaults(t *testing.T) {
	t.Setenv("PORT", "")
	t.Setenv("LOG_LEVEL", "")
	t.Setenv("DATABASE_DSN", "")
	t.Setenv("GAME_PACKAGE_PATH", "")
	t.Setenv("OPENAI_API_KEY", "")
	t.Setenv("JWT_SECRET", "")

	cfg := Load()
	assert.Equal(t, "8080", cfg.Port)
	assert.Equal(t, "info", cfg.LogLevel)
	assert.Equal(t, "./games/default", cfg.GamePackagePath)
	assert.Equal(t, "gpt-4o", cfg.WriterModel)
	assert.Equal(t, "gpt-4o-mini", cfg.CheckerModel)
	assert.Equal(t, 30*time.Second, cfg.RequestTimeout)
	assert.Equal(t, "plotplay", cfg.JWTIssuer)
}

func TestLoadReadsEnvOverrides(t *testing.T) {
	t.Setenv("PORT", "9090")
	t.Setenv("OPENAI_API_KEY", "sk-test")
	t.Setenv("AI_REQUEST_TIMEOUT", "5s")

	cfg := Load()
	assert.Equal(t, "9090", cfg.Port)
	assert.Equal(t, 9090, cfg.GetPortInt())
	assert.Equal(t, "sk-test", cfg.OpenAIAPIKey)
	assert.Equal(t, 5*time.Second, cfg.RequestTimeout)
}

func TestGetPortIntFallsBackToZeroOnBadPort(t *testing.T) {
	t.Setenv("PORT", "not-a-number")
	cfg := Load()
	assert.Equal(t, 0, cfg.GetPortInt())
}
