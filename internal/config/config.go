// Package config handles application configuration from environment variables
package config

import (
	"fmt"
	"net/url"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

// Config holds all application configuration
type Config struct {
	// Server settings
	Port      string
	Env       string // "development", "staging", "production"
	LogLevel  string
	LogFormat string // "json" or "text"

	// Trust oracle (the remote scoring API)
	TrustAPIURL     string
	TrustAPITimeout time.Duration // 0 disables the client timeout

	// Upstream circuit breaker
	BreakerThreshold int
	BreakerCooldown  time.Duration

	// Fetch log storage (optional, uses in-memory if not set)
	DatabaseURL string

	// Tracing (optional, no-op if not set)
	OTLPEndpoint string

	// Browser-facing settings
	CORSOrigins    []string
	MaxLiveClients int

	// Per-IP limits on routes that call the oracle
	RateLimitRPM   int
	RateLimitBurst int
}

// Defaults
const (
	DefaultPort             = "8080"
	DefaultEnv              = "development"
	DefaultLogLevel         = "info"
	DefaultLogFormat        = "json"
	DefaultTrustAPIURL      = "https://api.agent402.io"
	DefaultTrustAPITimeout  = 30 * time.Second
	DefaultBreakerThreshold = 5
	DefaultBreakerCooldown  = 30 * time.Second
	DefaultCORSOrigins      = "http://localhost:3000"
	DefaultMaxLiveClients   = 1000
	DefaultRateLimitRPM     = 120
	DefaultRateLimitBurst   = 20
)

// productionOrigins are always allowed in addition to CORS_ORIGINS.
var productionOrigins = []string{
	"https://agent402.io",
	"https://www.agent402.io",
	"https://agent402.sh",
	"https://www.agent402.sh",
}

// Load reads configuration from environment variables
// It loads .env file if present (for local development)
func Load() (*Config, error) {
	// Load .env file if it exists (ignore error if not present)
	_ = godotenv.Load()

	cfg := &Config{
		Port:             getEnv("PORT", DefaultPort),
		Env:              getEnv("ENV", DefaultEnv),
		LogLevel:         getEnv("LOG_LEVEL", DefaultLogLevel),
		LogFormat:        getEnv("LOG_FORMAT", DefaultLogFormat),
		TrustAPIURL:      strings.TrimRight(getEnv("TRUST_API_URL", DefaultTrustAPIURL), "/"),
		TrustAPITimeout:  getEnvDuration("TRUST_API_TIMEOUT", DefaultTrustAPITimeout),
		BreakerThreshold: int(getEnvInt64("BREAKER_THRESHOLD", DefaultBreakerThreshold)),
		BreakerCooldown:  getEnvDuration("BREAKER_COOLDOWN", DefaultBreakerCooldown),
		DatabaseURL:      os.Getenv("DATABASE_URL"),
		OTLPEndpoint:     os.Getenv("OTEL_EXPORTER_OTLP_ENDPOINT"),
		CORSOrigins:      parseOrigins(getEnv("CORS_ORIGINS", DefaultCORSOrigins)),
		MaxLiveClients:   int(getEnvInt64("MAX_LIVE_CLIENTS", DefaultMaxLiveClients)),
		RateLimitRPM:     int(getEnvInt64("RATE_LIMIT_RPM", DefaultRateLimitRPM)),
		RateLimitBurst:   int(getEnvInt64("RATE_LIMIT_BURST", DefaultRateLimitBurst)),
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return cfg, nil
}

// Validate checks that all required configuration is present
func (c *Config) Validate() error {
	if c.TrustAPIURL == "" {
		return fmt.Errorf("TRUST_API_URL is required")
	}
	u, err := url.Parse(c.TrustAPIURL)
	if err != nil {
		return fmt.Errorf("TRUST_API_URL is not a valid URL: %w", err)
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return fmt.Errorf("TRUST_API_URL must use http or https, got %q", u.Scheme)
	}
	if u.Host == "" {
		return fmt.Errorf("TRUST_API_URL must include a host")
	}

	if c.TrustAPITimeout < 0 {
		return fmt.Errorf("TRUST_API_TIMEOUT must not be negative")
	}
	if c.BreakerThreshold <= 0 {
		return fmt.Errorf("BREAKER_THRESHOLD must be positive")
	}
	if c.MaxLiveClients <= 0 {
		return fmt.Errorf("MAX_LIVE_CLIENTS must be positive")
	}
	if c.RateLimitRPM < 0 || c.RateLimitBurst < 0 {
		return fmt.Errorf("RATE_LIMIT_RPM and RATE_LIMIT_BURST must not be negative")
	}

	return nil
}

// IsDevelopment returns true if running in development mode
func (c *Config) IsDevelopment() bool {
	return c.Env == "development"
}

// IsProduction returns true if running in production mode
func (c *Config) IsProduction() bool {
	return c.Env == "production"
}

// Helper functions

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvInt64(key string, defaultValue int64) int64 {
	if value := os.Getenv(key); value != "" {
		if i, err := strconv.ParseInt(value, 10, 64); err == nil {
			return i
		}
	}
	return defaultValue
}

// getEnvDuration accepts Go durations ("30s") or bare seconds ("30").
func getEnvDuration(key string, defaultValue time.Duration) time.Duration {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}
	if d, err := time.ParseDuration(value); err == nil {
		return d
	}
	if secs, err := strconv.ParseInt(value, 10, 64); err == nil {
		return time.Duration(secs) * time.Second
	}
	return defaultValue
}

func parseOrigins(raw string) []string {
	var origins []string
	seen := make(map[string]bool)
	for _, o := range strings.Split(raw, ",") {
		o = strings.TrimSpace(o)
		if o == "" || seen[o] {
			continue
		}
		seen[o] = true
		origins = append(origins, o)
	}
	for _, o := range productionOrigins {
		if !seen[o] {
			seen[o] = true
			origins = append(origins, o)
		}
	}
	return origins
}
