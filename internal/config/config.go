// Package config loads process configuration from the environment.
package config

import (
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/caarlos0/env/v11"
	"github.com/joho/godotenv"

	"github.com/msomdec/agro-iam/internal/geo"
)

var (
	ErrParsingConfig = errors.New("failed to parse environment variables into config")
	ErrInvalidConfig = errors.New("invalid configuration")
)

// Config holds all settings for the server process.
type Config struct {
	Port         string        `env:"PORT" envDefault:"8080"`
	DatabasePath string        `env:"DATABASE_PATH" envDefault:"agro-iam.db"`
	JWTSecret    string        `env:"JWT_SECRET"`
	BcryptCost   int           `env:"BCRYPT_COST" envDefault:"12"`
	TokenTTL     time.Duration `env:"TOKEN_TTL" envDefault:"24h"`
	LogLevel     string        `env:"LOG_LEVEL" envDefault:"info"`

	// Secure auth cookies; disable only for local development over HTTP.
	CookieSecure bool `env:"COOKIE_SECURE" envDefault:"true"`

	// CORS origins; empty allows none.
	AllowedOrigins []string `env:"ALLOWED_ORIGINS" envSeparator:","`

	// Rate limiting of sign-up and sign-in per client IP. When RedisURL is
	// set the limit is shared across instances.
	RedisURL        string        `env:"REDIS_URL"`
	RateLimitBurst  int           `env:"RATE_LIMIT_BURST" envDefault:"10"`
	RateLimitRate   float64       `env:"RATE_LIMIT_RATE" envDefault:"0.2"`
	RateLimitWindow time.Duration `env:"RATE_LIMIT_WINDOW" envDefault:"1m"`

	Geo geo.Config
}

// Load reads an optional .env file and parses the environment into a Config.
// The result is validated.
func Load() (*Config, error) {
	// The .env file is optional.
	_ = godotenv.Load()

	cfg := &Config{}
	if err := env.Parse(cfg); err != nil {
		return nil, errors.Join(ErrParsingConfig, err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate checks values that cannot be expressed as struct tags.
func (c *Config) Validate() error {
	if c.JWTSecret == "" {
		return fmt.Errorf("%w: JWT_SECRET is required", ErrInvalidConfig)
	}
	if len(c.JWTSecret) < 32 {
		return fmt.Errorf("%w: JWT_SECRET must be at least 32 characters for HMAC-SHA256 security", ErrInvalidConfig)
	}
	if c.BcryptCost < 4 || c.BcryptCost > 14 {
		return fmt.Errorf("%w: BCRYPT_COST must be between 4 and 14, got %d", ErrInvalidConfig, c.BcryptCost)
	}
	if c.TokenTTL <= 0 {
		return fmt.Errorf("%w: TOKEN_TTL must be positive", ErrInvalidConfig)
	}
	if c.RateLimitBurst < 1 {
		return fmt.Errorf("%w: RATE_LIMIT_BURST must be at least 1", ErrInvalidConfig)
	}
	if c.Geo.Timeout <= 0 {
		return fmt.Errorf("%w: GEO_TIMEOUT must be positive", ErrInvalidConfig)
	}
	switch c.Geo.Provider {
	case geo.ProviderIPAPI, geo.ProviderIPAPICom, geo.ProviderIP2Location:
	default:
		return fmt.Errorf("%w: unknown GEO_PROVIDER %q", ErrInvalidConfig, c.Geo.Provider)
	}
	if _, err := c.SlogLevel(); err != nil {
		return err
	}
	return nil
}

// SlogLevel maps LogLevel to a slog.Level.
func (c *Config) SlogLevel() (slog.Level, error) {
	switch strings.ToLower(strings.TrimSpace(c.LogLevel)) {
	case "debug":
		return slog.LevelDebug, nil
	case "info", "":
		return slog.LevelInfo, nil
	case "warn", "warning":
		return slog.LevelWarn, nil
	case "error":
		return slog.LevelError, nil
	default:
		return slog.LevelInfo, fmt.Errorf("%w: unknown LOG_LEVEL %q", ErrInvalidConfig, c.LogLevel)
	}
}
