package config

import (
	"os"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestConfigMethods(t *testing.T) {
	t.Run("Addr returns formatted port", func(t *testing.T) {
		cfg := &Config{Port: 3000}
		assert.Equal(t, ":3000", cfg.Addr())
	})

	t.Run("SessionTTL converts days to duration", func(t *testing.T) {
		cfg := &Config{SessionTTLDays: 30}
		assert.Equal(t, 30*24*time.Hour, cfg.SessionTTL())
	})

	t.Run("IsProduction", func(t *testing.T) {
		assert.True(t, (&Config{Environment: "production"}).IsProduction())
		assert.False(t, (&Config{Environment: "development"}).IsProduction())
	})
}

func TestValidate(t *testing.T) {
	t.Run("rejects non-positive session TTL", func(t *testing.T) {
		cfg := &Config{SessionTTLDays: 0, BcryptCost: 12}
		assert.Error(t, cfg.Validate())
	})

	t.Run("rejects bcrypt cost out of range", func(t *testing.T) {
		cfg := &Config{SessionTTLDays: 30, BcryptCost: 4}
		assert.Error(t, cfg.Validate())

		cfg.BcryptCost = 20
		assert.Error(t, cfg.Validate())
	})

	t.Run("accepts sane values", func(t *testing.T) {
		cfg := &Config{SessionTTLDays: 30, BcryptCost: 12}
		assert.NoError(t, cfg.Validate())
	})
}

func TestLoad(t *testing.T) {
	originalEnv := map[string]string{
		"PORT":             os.Getenv("PORT"),
		"DATABASE_URL":     os.Getenv("DATABASE_URL"),
		"REDIS_URL":        os.Getenv("REDIS_URL"),
		"SESSION_TTL_DAYS": os.Getenv("SESSION_TTL_DAYS"),
		"BCRYPT_COST":      os.Getenv("BCRYPT_COST"),
		"LOG_LEVEL":        os.Getenv("LOG_LEVEL"),
	}

	defer func() {
		for k, v := range originalEnv {
			if v == "" {
				os.Unsetenv(k)
			} else {
				os.Setenv(k, v)
			}
		}
	}()

	t.Run("loads config with defaults", func(t *testing.T) {
		os.Setenv("DATABASE_URL", "postgres://localhost/test")
		os.Setenv("REDIS_URL", "redis://localhost:6379")
		os.Unsetenv("PORT")
		os.Unsetenv("SESSION_TTL_DAYS")
		os.Unsetenv("BCRYPT_COST")
		os.Unsetenv("LOG_LEVEL")

		cfg, err := Load()
		require.NoError(t, err)
		assert.Equal(t, 8080, cfg.Port)
		assert.Equal(t, 30, cfg.SessionTTLDays)
		assert.Equal(t, 12, cfg.BcryptCost)
		assert.Equal(t, "info", cfg.LogLevel)
	})

	t.Run("fails without required database url", func(t *testing.T) {
		os.Unsetenv("DATABASE_URL")
		os.Setenv("REDIS_URL", "redis://localhost:6379")

		_, err := Load()
		assert.Error(t, err)
	})
}

func TestDefaultPolicies(t *testing.T) {
	sp := DefaultSessionPolicy()
	assert.Equal(t, 30*24*time.Hour, sp.TTL)
	assert.Equal(t, 8*time.Hour, sp.AbsoluteTimeout)
	assert.Equal(t, 30*time.Minute, sp.IdleTimeout)

	rp := DefaultLoginRateLimitPolicy()
	assert.Equal(t, 5, rp.MaxAttempts)
	assert.Equal(t, 15*time.Minute, rp.Window)
	assert.Equal(t, 15*time.Minute, rp.LockoutDuration)
}
