// Package config loads and validates app config from env and an optional .env file using Viper.
package config

import (
	"errors"
	"time"

	"github.com/spf13/viper"
)

// Config holds application configuration loaded from the environment.
type Config struct {
	// GRPCAddr is the address the gRPC server listens on (e.g. :8080).
	GRPCAddr string `mapstructure:"GRPC_ADDR"`
	// DatabaseURL is the Postgres DSN.
	DatabaseURL string `mapstructure:"DATABASE_URL"`

	// PasswordPepper is the deployment-wide secret appended to passwords before
	// hashing. Required for the server; never stored per account.
	PasswordPepper string `mapstructure:"AUTH_PASSWORD_PEPPER"`
	// BcryptCost is the bcrypt cost factor (4-31); default 12.
	BcryptCost int `mapstructure:"BCRYPT_COST"`

	// TokenSecret is the symmetric key for the encrypted auth tokens. Required for
	// the server. Keys that are not exactly 32 bytes are derived via SHA-256.
	TokenSecret string `mapstructure:"TOKEN_SECRET"`
	// TokenIssuer is the iss claim set on issued tokens and required on verify.
	TokenIssuer string `mapstructure:"TOKEN_ISSUER"`
	// TokenAudience is the aud claim set on issued tokens and required on verify.
	TokenAudience string `mapstructure:"TOKEN_AUDIENCE"`
	// TokenLeeway is the clock-skew allowance applied to expiry checks (e.g. "60s").
	TokenLeeway string `mapstructure:"TOKEN_LEEWAY"`
	// AccessTokenTTL is the access token lifetime (e.g. "60m").
	AccessTokenTTL string `mapstructure:"ACCESS_TOKEN_TTL"`
	// RefreshTokenTTL is the session lifetime (e.g. "720h" for 30 days).
	RefreshTokenTTL string `mapstructure:"REFRESH_TOKEN_TTL"`

	// MinPasswordLength is the structural minimum for new passwords; default 12.
	MinPasswordLength int `mapstructure:"MIN_PASSWORD_LENGTH"`
	// LockoutThreshold is the number of failed logins inside the window that locks
	// an account; default 5.
	LockoutThreshold int `mapstructure:"LOCKOUT_THRESHOLD"`
	// LockoutWindow is the sliding window for counting failed logins (e.g. "15m").
	LockoutWindow string `mapstructure:"LOCKOUT_WINDOW"`
	// LockoutDuration is how long a locked account stays locked (e.g. "30m").
	LockoutDuration string `mapstructure:"LOCKOUT_DURATION"`
	// MaxConcurrentSessions is the per-account active session cap; default 10.
	// The oldest session is evicted when the cap is reached, new logins are never rejected.
	MaxConcurrentSessions int `mapstructure:"MAX_CONCURRENT_SESSIONS"`

	// HIBPAPIKey enables the Have I Been Pwned breach check when set. Empty disables it.
	HIBPAPIKey string `mapstructure:"HIBP_API_KEY"`
	// HIBPBaseURL is the HIBP range endpoint (default https://api.pwnedpasswords.com/range).
	HIBPBaseURL string `mapstructure:"HIBP_BASE_URL"`
	// HIBPTimeout bounds each breach-check HTTP call (e.g. "3s"). On timeout the
	// check is skipped, never failed.
	HIBPTimeout string `mapstructure:"HIBP_TIMEOUT"`

	// OTLPEndpoint is the OTLP gRPC collector endpoint (e.g. http://localhost:4317).
	// Empty disables telemetry export.
	OTLPEndpoint string `mapstructure:"OTLP_ENDPOINT"`
	// Env is the application environment (e.g. "development", "production").
	Env string `mapstructure:"APP_ENV"`
}

// Load reads .env (if present), then builds and validates Config from the environment via Viper.
// Missing .env is ignored (e.g. in CI). Env vars override .env. Returns an error if required fields are invalid.
func Load() (*Config, error) {
	v := viper.New()

	v.SetConfigFile(".env")
	v.SetConfigType("env")
	_ = v.ReadInConfig() // ignore ErrConfigFileNotFound

	v.AutomaticEnv()

	v.SetDefault("GRPC_ADDR", ":8080")
	v.SetDefault("DATABASE_URL", "")
	v.SetDefault("AUTH_PASSWORD_PEPPER", "")
	v.SetDefault("BCRYPT_COST", 12)
	v.SetDefault("TOKEN_SECRET", "")
	v.SetDefault("TOKEN_ISSUER", "GigaChat")
	v.SetDefault("TOKEN_AUDIENCE", "GigaChat-Web")
	v.SetDefault("TOKEN_LEEWAY", "60s")
	v.SetDefault("ACCESS_TOKEN_TTL", "60m")
	v.SetDefault("REFRESH_TOKEN_TTL", "720h") // 30d
	v.SetDefault("MIN_PASSWORD_LENGTH", 12)
	v.SetDefault("LOCKOUT_THRESHOLD", 5)
	v.SetDefault("LOCKOUT_WINDOW", "15m")
	v.SetDefault("LOCKOUT_DURATION", "30m")
	v.SetDefault("MAX_CONCURRENT_SESSIONS", 10)
	v.SetDefault("HIBP_API_KEY", "")
	v.SetDefault("HIBP_BASE_URL", "https://api.pwnedpasswords.com/range")
	v.SetDefault("HIBP_TIMEOUT", "3s")
	v.SetDefault("OTLP_ENDPOINT", "")
	v.SetDefault("APP_ENV", "")

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, err
	}

	if cfg.GRPCAddr == "" {
		return nil, errors.New("config: GRPC_ADDR must be set")
	}

	if cfg.BcryptCost == 0 {
		cfg.BcryptCost = 12
	}
	if cfg.BcryptCost < 4 || cfg.BcryptCost > 31 {
		return nil, errors.New("config: BCRYPT_COST must be between 4 and 31")
	}

	if cfg.MinPasswordLength <= 0 {
		cfg.MinPasswordLength = 12
	}
	if cfg.LockoutThreshold <= 0 {
		return nil, errors.New("config: LOCKOUT_THRESHOLD must be positive")
	}
	if cfg.MaxConcurrentSessions <= 0 {
		return nil, errors.New("config: MAX_CONCURRENT_SESSIONS must be positive")
	}

	return &cfg, nil
}

// AccessTTL parses AccessTokenTTL as a time.Duration. Returns 60m if unset or invalid.
func (c *Config) AccessTTL() time.Duration {
	return c.duration(c.AccessTokenTTL, 60*time.Minute)
}

// RefreshTTL parses RefreshTokenTTL as a time.Duration. Returns 720h if unset or invalid.
func (c *Config) RefreshTTL() time.Duration {
	return c.duration(c.RefreshTokenTTL, 720*time.Hour)
}

// Leeway parses TokenLeeway as a time.Duration. Returns 60s if unset or invalid.
func (c *Config) Leeway() time.Duration {
	return c.duration(c.TokenLeeway, 60*time.Second)
}

// LockoutWindowDuration parses LockoutWindow. Returns 15m if unset or invalid.
func (c *Config) LockoutWindowDuration() time.Duration {
	return c.duration(c.LockoutWindow, 15*time.Minute)
}

// LockoutLockDuration parses LockoutDuration. Returns 30m if unset or invalid.
func (c *Config) LockoutLockDuration() time.Duration {
	return c.duration(c.LockoutDuration, 30*time.Minute)
}

// BreachCheckTimeout parses HIBPTimeout. Returns 3s if unset or invalid.
func (c *Config) BreachCheckTimeout() time.Duration {
	return c.duration(c.HIBPTimeout, 3*time.Second)
}

func (c *Config) duration(s string, fallback time.Duration) time.Duration {
	d, err := time.ParseDuration(s)
	if err != nil || d <= 0 {
		return fallback
	}
	return d
}
