package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestLoadDefaults(t *testing.T) {
	cfg := Load()

	assert.Equal(t, "8080", cfg.Port)
	assert.Equal(t, "taskboard", cfg.MongoDB)
	assert.Equal(t, 7*24*time.Hour, cfg.TokenTTL)
}

func TestLoadOverrides(t *testing.T) {
	t.Setenv("PORT", "9000")
	t.Setenv("TOKEN_TTL", "1h")
	t.Setenv("JWT_SECRET", "s3cret")

	cfg := Load()

	assert.Equal(t, "9000", cfg.Port)
	assert.Equal(t, time.Hour, cfg.TokenTTL)
	assert.Equal(t, "s3cret", cfg.JWTSecret)
}

func TestLoadBadTTLFallsBack(t *testing.T) {
	t.Setenv("TOKEN_TTL", "soon")

	cfg := Load()
	assert.Equal(t, 7*24*time.Hour, cfg.TokenTTL)
}
