package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadConfig_Defaults(t *testing.T) {
	t.Setenv("DIRECTORY_BACKEND", BackendMemory)
	t.Setenv("JWT_SECRET", "secret")

	cfg, err := LoadConfig()

	require.NoError(t, err)
	assert.Equal(t, "8080", cfg.ServerPort)
	assert.Equal(t, 168*time.Hour, cfg.JWTExpiry)
	assert.Equal(t, []string{"*"}, cfg.AllowedOrigins)
	assert.Equal(t, 256, cfg.WebSocket.SendBuffer)
	assert.Equal(t, 20, cfg.WebSocket.RateBurst)
}

func TestLoadConfig_PostgresRequiresURLs(t *testing.T) {
	t.Setenv("DIRECTORY_BACKEND", BackendPostgres)
	t.Setenv("JWT_SECRET", "secret")
	t.Setenv("DATABASE_URL", "")

	_, err := LoadConfig()

	assert.EqualError(t, err, "DATABASE_URL is required")
}

func TestLoadConfig_Invalid(t *testing.T) {
	t.Setenv("DIRECTORY_BACKEND", BackendMemory)
	t.Setenv("JWT_SECRET", "secret")
	t.Setenv("WS_SEND_BUFFER", "zero")

	_, err := LoadConfig()

	assert.EqualError(t, err, "invalid WS_SEND_BUFFER")
}

func TestLoadConfig_Origins(t *testing.T) {
	t.Setenv("DIRECTORY_BACKEND", BackendMemory)
	t.Setenv("JWT_SECRET", "secret")
	t.Setenv("ALLOWED_ORIGINS", "http://a.test, http://b.test ,")

	cfg, err := LoadConfig()

	require.NoError(t, err)
	assert.Equal(t, []string{"http://a.test", "http://b.test"}, cfg.AllowedOrigins)
}
