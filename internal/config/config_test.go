package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestLoadDefaults(t *testing.T) {
	cfg := Load()

	assert.Equal(t, "8080", cfg.Port)
	assert.Equal(t, "development", cfg.Env)
	assert.Equal(t, "gemini", cfg.OracleProvider)
	assert.Equal(t, "redis", cfg.SessionBackend)
	assert.Equal(t, 30*time.Minute, cfg.SessionTTL)
	assert.Equal(t, "chat_sessions", cfg.SessionsTable)
	assert.Equal(t, "ClinicDesk", cfg.SendGridFromName)
	assert.Nil(t, cfg.CORSAllowedOrigins)
}

func TestLoadOverrides(t *testing.T) {
	t.Setenv("PORT", "9090")
	t.Setenv("ORACLE_PROVIDER", " Bedrock ")
	t.Setenv("SESSION_TTL", "1h")
	t.Setenv("USE_MEMORY_QUEUE", "true")
	t.Setenv("CORS_ALLOWED_ORIGINS", "https://a.example.com, https://b.example.com,")

	cfg := Load()

	assert.Equal(t, "9090", cfg.Port)
	assert.Equal(t, "bedrock", cfg.OracleProvider)
	assert.Equal(t, time.Hour, cfg.SessionTTL)
	assert.True(t, cfg.UseMemoryQueue)
	assert.Equal(t, []string{"https://a.example.com", "https://b.example.com"}, cfg.CORSAllowedOrigins)
}

func TestLoadBadValuesFallBack(t *testing.T) {
	t.Setenv("SESSION_TTL", "soon")
	t.Setenv("REDIS_DB", "two")

	cfg := Load()

	assert.Equal(t, 30*time.Minute, cfg.SessionTTL)
	assert.Equal(t, 0, cfg.RedisDB)
}
