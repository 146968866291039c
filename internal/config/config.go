// Package config provides centralized configuration management for the application.
// It loads configuration from environment variables with sensible defaults and
// validates all settings on startup to fail fast on misconfiguration.
package config

import (
	"strconv"
	"time"
)

// Config holds all application configuration.
// All settings can be configured via environment variables.
type Config struct {
	Server   ServerConfig
	Database DatabaseConfig
	Upload   UploadConfig
	Report   ReportConfig
	Rate     RateLimitConfig
	Security SecurityConfig
	Logging  LoggingConfig
}

// ServerConfig holds HTTP server settings.
type ServerConfig struct {
	// Host is the interface to bind to (default: 0.0.0.0)
	Host string `env:"SERVER_HOST" default:"0.0.0.0"`

	// Port is the port to listen on (default: 8080)
	Port int `env:"SERVER_PORT" default:"8080"`

	// ReadTimeout is the maximum duration for reading request body (default: 15s)
	ReadTimeout time.Duration `env:"SERVER_READ_TIMEOUT" default:"15s"`

	// WriteTimeout is the maximum duration for writing response (default: 60s)
	WriteTimeout time.Duration `env:"SERVER_WRITE_TIMEOUT" default:"60s"`

	// IdleTimeout is the keep-alive timeout (default: 60s)
	IdleTimeout time.Duration `env:"SERVER_IDLE_TIMEOUT" default:"60s"`

	// ShutdownTimeout is the maximum duration to wait for graceful shutdown (default: 30s)
	ShutdownTimeout time.Duration `env:"SERVER_SHUTDOWN_TIMEOUT" default:"30s"`

	// RequestTimeout is the middleware timeout for requests (default: 60s)
	RequestTimeout time.Duration `env:"SERVER_REQUEST_TIMEOUT" default:"60s"`
}

// DatabaseConfig holds the optional PostgreSQL source settings.
// When URL is empty the four tables can only be uploaded as files.
type DatabaseConfig struct {
	// URL is the PostgreSQL connection string.
	// Supports both DATABASE_URL and DB_URL env vars for compatibility
	URL string `env:"DATABASE_URL" envAlt:"DB_URL"`

	MaxConns        int           `env:"DB_MAX_CONNS" default:"4"`
	MinConns        int           `env:"DB_MIN_CONNS" default:"0"`
	MaxConnLifetime time.Duration `env:"DB_MAX_CONN_LIFETIME" default:"1h"`
	MaxConnIdleTime time.Duration `env:"DB_MAX_CONN_IDLE_TIME" default:"30m"`

	// Source table names in the festival database.
	ShortsTable        string `env:"DB_TABLE_SHORTS" default:"cortos"`
	RegistrationsTable string `env:"DB_TABLE_REGISTRATIONS" default:"inscripciones"`
	SalesTable         string `env:"DB_TABLE_SALES" default:"ventas"`
	SettlementsTable   string `env:"DB_TABLE_SETTLEMENTS" default:"liquidaciones"`
}

// Enabled reports whether a database source is configured.
func (c DatabaseConfig) Enabled() bool {
	return c.URL != ""
}

// UploadConfig holds file upload settings.
type UploadConfig struct {
	// MaxFileSize is the maximum allowed size of one uploaded table in bytes (default: 20MB)
	MaxFileSize int64 `env:"UPLOAD_MAX_FILE_SIZE" default:"20971520"`
}

// ReportConfig holds reconciliation report settings.
type ReportConfig struct {
	// TTL is how long a generated report stays downloadable (default: 1h)
	TTL time.Duration `env:"REPORT_TTL" default:"1h"`

	// SweepInterval is how often expired reports are dropped (default: 5m)
	SweepInterval time.Duration `env:"REPORT_SWEEP_INTERVAL" default:"5m"`

	// MaxConcurrent is the maximum number of reconciliations running at once (default: 4)
	MaxConcurrent int `env:"REPORT_MAX_CONCURRENT" default:"4"`

	// MaxWaitTime is how long to wait for a free run slot (default: 10s)
	MaxWaitTime time.Duration `env:"REPORT_MAX_WAIT_TIME" default:"10s"`

	// ExportDialect is the default CSV export flavour: csv or csv-es (default: csv)
	ExportDialect string `env:"REPORT_EXPORT_DIALECT" default:"csv"`

	// UnknownTitle is shown for titles missing from the shorts table
	UnknownTitle string `env:"REPORT_UNKNOWN_TITLE" default:"Unknown/Deleted"`

	// DisplayLocale is the BCP 47 tag used to format amounts on screen (default: es)
	DisplayLocale string `env:"REPORT_DISPLAY_LOCALE" default:"es"`

	// CurrencySymbol is appended to displayed amounts (default: €)
	CurrencySymbol string `env:"REPORT_CURRENCY_SYMBOL" default:"€"`
}

// RateLimitConfig holds rate limiting settings per time window.
type RateLimitConfig struct {
	// Enabled controls whether rate limiting is active (default: true)
	Enabled bool `env:"RATE_LIMIT_ENABLED" default:"true"`

	// RequestsPerMinute is the default rate limit per IP (default: 100)
	RequestsPerMinute int `env:"RATE_LIMIT_REQUESTS_PER_MINUTE" default:"100"`
}

// SecurityConfig holds security-related settings.
type SecurityConfig struct {
	// TrustedProxies is a comma-separated list of trusted proxy CIDRs
	TrustedProxies []string `env:"TRUSTED_PROXIES"`

	// EnableCSP enables Content-Security-Policy headers (default: true)
	EnableCSP bool `env:"SECURITY_ENABLE_CSP" default:"true"`
}

// LoggingConfig holds logging settings.
type LoggingConfig struct {
	// Level is the minimum log level: debug, info, warn, error (default: info)
	Level string `env:"LOG_LEVEL" default:"info"`

	// Format is the log format: text or json (default: text)
	Format string `env:"LOG_FORMAT" default:"text"`
}

// Addr returns the server listen address in host:port format.
func (c *ServerConfig) Addr() string {
	return c.Host + ":" + strconv.Itoa(c.Port)
}
