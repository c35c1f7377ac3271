package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/caarlos0/env/v11"
	"github.com/rs/zerolog/log"
)

var knownWeakSecrets = []string{
	"change-me", "dev-secret-change-me", "secret", "admin", "password",
}

type Config struct {
	Port               int    `env:"PORT" envDefault:"8080"`
	DatabaseURL        string `env:"DATABASE_URL,required"`
	RedisURL           string `env:"REDIS_URL,required"`
	SessionTTLDays     int    `env:"SESSION_TTL_DAYS" envDefault:"30"`
	BcryptCost         int    `env:"BCRYPT_COST" envDefault:"12"`
	LoginIPLimitPerMin int    `env:"LOGIN_IP_LIMIT_PER_MIN" envDefault:"20"`
	LogLevel           string `env:"LOG_LEVEL" envDefault:"info"`
	Environment        string `env:"ENVIRONMENT" envDefault:"development"`
}

func (c *Config) Addr() string {
	return fmt.Sprintf(":%d", c.Port)
}

func (c *Config) SessionTTL() time.Duration {
	return time.Duration(c.SessionTTLDays) * 24 * time.Hour
}

func (c *Config) IsProduction() bool {
	return c.Environment == "production"
}

func (c *Config) Validate() error {
	if c.SessionTTLDays <= 0 {
		return fmt.Errorf("SESSION_TTL_DAYS must be positive")
	}
	if c.BcryptCost < 10 || c.BcryptCost > 16 {
		return fmt.Errorf("BCRYPT_COST must be between 10 and 16")
	}

	if c.IsProduction() {
		for _, weak := range knownWeakSecrets {
			if strings.Contains(c.DatabaseURL, ":"+weak+"@") {
				log.Warn().Msg("DATABASE_URL uses a known weak password in production")
			}
		}
		if strings.HasPrefix(c.RedisURL, "redis://") {
			log.Warn().Msg("REDIS_URL uses redis:// (not TLS) in production: consider using rediss://")
		}
	}

	return nil
}

func Load() (*Config, error) {
	var cfg Config
	if err := env.Parse(&cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config: %w", err)
	}
	return &cfg, nil
}
