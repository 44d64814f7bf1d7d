// Package config loads the service configuration from environment variables.
// Every setting has a default except the database URL, and the whole
// configuration is validated on startup so misconfiguration fails fast.
package config

import (
	"net"
	"strconv"
	"time"
)

// Config holds all application configuration.
type Config struct {
	Server   ServerConfig
	Database DatabaseConfig
	Catalog  CatalogConfig
	Cache    CacheConfig
	Query    QueryConfig
	Rate     RateLimitConfig
	Security SecurityConfig
	Logging  LoggingConfig
	Audit    AuditConfig
}

// ServerConfig holds HTTP server settings.
type ServerConfig struct {
	Host string `env:"SERVER_HOST" default:"0.0.0.0"`
	Port int    `env:"SERVER_PORT" default:"8080"`

	ReadTimeout  time.Duration `env:"SERVER_READ_TIMEOUT" default:"15s"`
	WriteTimeout time.Duration `env:"SERVER_WRITE_TIMEOUT" default:"2m"`
	IdleTimeout  time.Duration `env:"SERVER_IDLE_TIMEOUT" default:"60s"`

	// ShutdownTimeout bounds graceful shutdown, including running queries.
	ShutdownTimeout time.Duration `env:"SERVER_SHUTDOWN_TIMEOUT" default:"30s"`

	// RequestTimeout is the middleware timeout for API requests.
	RequestTimeout time.Duration `env:"SERVER_REQUEST_TIMEOUT" default:"2m"`
}

// DatabaseConfig holds the PostgreSQL pool settings.
type DatabaseConfig struct {
	// URL supports both DATABASE_URL and DB_URL.
	URL string `env:"DATABASE_URL" envAlt:"DB_URL" required:"true"`

	MaxConns        int           `env:"DB_MAX_CONNS" default:"20"`
	MinConns        int           `env:"DB_MIN_CONNS" default:"2"`
	MaxConnLifetime time.Duration `env:"DB_MAX_CONN_LIFETIME" default:"1h"`
	MaxConnIdleTime time.Duration `env:"DB_MAX_CONN_IDLE_TIME" default:"30m"`
}

// CatalogConfig locates the query catalog.
type CatalogConfig struct {
	Path string `env:"CATALOG_PATH" default:"catalog.yaml"`
}

// CacheConfig holds query cache settings.
type CacheConfig struct {
	// Enabled selects the in-memory cache; false disables caching entirely.
	Enabled bool `env:"CACHE_ENABLED" default:"true"`

	// DefaultTTL applies to data accesses without their own cacheTTL.
	// Zero keeps entries until cleared.
	DefaultTTL time.Duration `env:"CACHE_DEFAULT_TTL" default:"1h"`

	// JanitorInterval is how often expired entries are swept.
	JanitorInterval time.Duration `env:"CACHE_JANITOR_INTERVAL" default:"1m"`
}

// QueryConfig bounds query execution.
type QueryConfig struct {
	Timeout time.Duration `env:"QUERY_TIMEOUT" default:"2m"`

	// MaxRowLimit caps the rows of any flattened result. Zero means uncapped.
	MaxRowLimit int `env:"QUERY_MAX_ROW_LIMIT" default:"100000"`

	MaxConcurrent int           `env:"QUERY_MAX_CONCURRENT" default:"8"`
	MaxWaitTime   time.Duration `env:"QUERY_MAX_WAIT_TIME" default:"10s"`
}

// RateLimitConfig holds per-IP rate limiting settings.
type RateLimitConfig struct {
	Enabled           bool `env:"RATE_LIMIT_ENABLED" default:"true"`
	RequestsPerMinute int  `env:"RATE_LIMIT_REQUESTS_PER_MINUTE" default:"120"`

	// QueryLimit is requests per minute for the query endpoint.
	QueryLimit int `env:"RATE_LIMIT_QUERY" default:"60"`
}

// SecurityConfig holds security-related settings.
type SecurityConfig struct {
	// TrustedProxies is a comma-separated list of trusted proxy CIDRs.
	TrustedProxies []string `env:"TRUSTED_PROXIES"`

	RequireAPIKey bool     `env:"REQUIRE_API_KEY" default:"false"`
	APIKeys       []string `env:"API_KEYS"`

	EnableCSP bool `env:"SECURITY_ENABLE_CSP" default:"true"`
}

// LoggingConfig holds logging settings.
type LoggingConfig struct {
	// Level is one of debug, info, warn, error.
	Level string `env:"LOG_LEVEL" default:"info"`

	// Format is text or json.
	Format string `env:"LOG_FORMAT" default:"text"`
}

// AuditConfig selects where query audit records go.
type AuditConfig struct {
	// Store is log, postgres, both or none.
	Store string `env:"AUDIT_STORE" default:"log"`
}

// Addr returns the server listen address in host:port format.
func (c *ServerConfig) Addr() string {
	return net.JoinHostPort(c.Host, strconv.Itoa(c.Port))
}
