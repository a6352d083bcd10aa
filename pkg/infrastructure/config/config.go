package config

import (
	"os"
	"strconv"
	"time"
)

// Environment variables read by Load
const (
	EnvCatalogDriver = "QUOTE_CATALOG_DRIVER"
	EnvCatalogDSN    = "QUOTE_CATALOG_DSN"
	EnvLogLevel      = "QUOTE_LOG_LEVEL"
	EnvLogFormat     = "QUOTE_LOG_FORMAT"
	EnvCacheTTL      = "QUOTE_CACHE_TTL"
	EnvHTTPAddr      = "QUOTE_HTTP_ADDR"
	EnvMaxSessions   = "QUOTE_MAX_SESSIONS"
)

type Config struct {
	values map[string]string
}

// Load reads the quoting environment variables
func Load() (*Config, error) {
	cfg := &Config{
		values: make(map[string]string),
	}

	cfg.loadFromEnv()
	return cfg, nil
}

// FromMap builds a config from explicit values, used by tests and embedding callers
func FromMap(values map[string]string) *Config {
	cfg := &Config{values: make(map[string]string, len(values))}
	for k, v := range values {
		if v != "" {
			cfg.values[k] = v
		}
	}
	return cfg
}

func (c *Config) loadFromEnv() {
	envVars := []string{
		EnvCatalogDriver,
		EnvCatalogDSN,
		EnvLogLevel,
		EnvLogFormat,
		EnvCacheTTL,
		EnvHTTPAddr,
		EnvMaxSessions,
	}

	for _, envVar := range envVars {
		if value := os.Getenv(envVar); value != "" {
			c.values[envVar] = value
		}
	}
}

func (c *Config) GetString(key, defaultValue string) string {
	if value, exists := c.values[key]; exists {
		return value
	}
	return defaultValue
}

func (c *Config) GetInt(key string, defaultValue int) int {
	if value, exists := c.values[key]; exists {
		if intValue, err := strconv.Atoi(value); err == nil {
			return intValue
		}
	}
	return defaultValue
}

func (c *Config) GetDuration(key string, defaultValue time.Duration) time.Duration {
	if value, exists := c.values[key]; exists {
		if duration, err := time.ParseDuration(value); err == nil {
			return duration
		}
	}
	return defaultValue
}

// CatalogDriver is "memory", "postgres" or "sqlite"
func (c *Config) CatalogDriver() string {
	return c.GetString(EnvCatalogDriver, "memory")
}

func (c *Config) CatalogDSN() string {
	return c.GetString(EnvCatalogDSN, "")
}

func (c *Config) LogLevel() string {
	return c.GetString(EnvLogLevel, "info")
}

func (c *Config) LogFormat() string {
	return c.GetString(EnvLogFormat, "console")
}

// CacheTTL is zero when catalog caching is disabled
func (c *Config) CacheTTL() time.Duration {
	return c.GetDuration(EnvCacheTTL, 5*time.Minute)
}

func (c *Config) HTTPAddr() string {
	return c.GetString(EnvHTTPAddr, ":8080")
}

func (c *Config) MaxSessions() int {
	return c.GetInt(EnvMaxSessions, 100)
}
