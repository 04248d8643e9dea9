// Package config provides centralized configuration management for the
// application. It loads configuration from environment variables with
// sensible defaults and validates all settings on startup to fail fast on
// misconfiguration.
package config

import (
	"fmt"
	"time"
)

// Config holds all application configuration.
// All settings can be configured via environment variables.
type Config struct {
	Server    ServerConfig
	Database  DatabaseConfig
	Microsoft MicrosoftConfig
	Google    GoogleConfig
	Security  SecurityConfig
	Limits    LimitsConfig
	Logging   LoggingConfig
}

// ServerConfig holds HTTP server settings.
type ServerConfig struct {
	// Host is the interface to bind to (default: 0.0.0.0)
	Host string `env:"SERVER_HOST" default:"0.0.0.0"`

	// Port is the port to listen on (default: 8080)
	Port int `env:"SERVER_PORT" default:"8080"`

	// ReadTimeout is the maximum duration for reading request body (default: 15s)
	ReadTimeout time.Duration `env:"SERVER_READ_TIMEOUT" default:"15s"`

	// WriteTimeout is the maximum duration for writing response (default: 2m,
	// large imports stream a lot of rows back)
	WriteTimeout time.Duration `env:"SERVER_WRITE_TIMEOUT" default:"2m"`

	// IdleTimeout is the keep-alive timeout (default: 60s)
	IdleTimeout time.Duration `env:"SERVER_IDLE_TIMEOUT" default:"60s"`

	// ShutdownTimeout is the maximum duration to wait for graceful shutdown (default: 30s)
	ShutdownTimeout time.Duration `env:"SERVER_SHUTDOWN_TIMEOUT" default:"30s"`
}

// DatabaseConfig holds application database connection settings.
type DatabaseConfig struct {
	// URL is the PostgreSQL connection string (required)
	// Supports both DATABASE_URL and DB_URL env vars for compatibility
	URL string `env:"DATABASE_URL" envAlt:"DB_URL" required:"true"`

	// MaxConns is the maximum number of connections in the pool (default: 20)
	MaxConns int `env:"DB_MAX_CONNS" default:"20"`

	// MinConns is the minimum number of connections to keep open (default: 4)
	MinConns int `env:"DB_MIN_CONNS" default:"4"`

	// MaxConnLifetime is the maximum lifetime of a connection (default: 1h)
	MaxConnLifetime time.Duration `env:"DB_MAX_CONN_LIFETIME" default:"1h"`

	// MaxConnIdleTime is the maximum idle time before a connection is closed (default: 30m)
	MaxConnIdleTime time.Duration `env:"DB_MAX_CONN_IDLE_TIME" default:"30m"`
}

// MicrosoftConfig holds the Microsoft Graph application registration used
// for SharePoint imports. The service flow needs tenant + client + secret;
// the delegated flow additionally needs the redirect URL.
type MicrosoftConfig struct {
	// TenantID is the Azure AD tenant
	TenantID string `env:"MS_TENANT_ID"`

	// ClientID is the registered application's client ID
	ClientID string `env:"MS_CLIENT_ID"`

	// ClientSecret is the registered application's client secret
	ClientSecret string `env:"MS_CLIENT_SECRET"`

	// RedirectURL is the OAuth callback for the delegated flow
	RedirectURL string `env:"MS_REDIRECT_URL"`

	// Scopes are the delegated-flow scopes (default grants offline list reads)
	Scopes []string `env:"MS_USER_SCOPES" default:"offline_access,Sites.Read.All"`
}

// loginBase is the Microsoft identity platform endpoint.
const loginBase = "https://login.microsoftonline.com"

// ServiceConfigured reports whether the application-identity flow can run.
func (c *MicrosoftConfig) ServiceConfigured() bool {
	return c.TenantID != "" && c.ClientID != "" && c.ClientSecret != ""
}

// DelegatedConfigured reports whether the per-user flow can run.
func (c *MicrosoftConfig) DelegatedConfigured() bool {
	return c.ServiceConfigured() && c.RedirectURL != ""
}

// TokenURL returns the tenant's token endpoint.
func (c *MicrosoftConfig) TokenURL() string {
	return fmt.Sprintf("%s/%s/oauth2/v2.0/token", loginBase, c.TenantID)
}

// AuthURL returns the tenant's authorization endpoint.
func (c *MicrosoftConfig) AuthURL() string {
	return fmt.Sprintf("%s/%s/oauth2/v2.0/authorize", loginBase, c.TenantID)
}

// ServiceScope is the client-credentials scope for Graph.
func (c *MicrosoftConfig) ServiceScope() string {
	return "https://graph.microsoft.com/.default"
}

// GoogleConfig holds Google Sheets API access settings. APIKey and
// CredentialsFile are alternatives; either enables the source.
type GoogleConfig struct {
	// APIKey authorizes reads of public spreadsheets
	APIKey string `env:"GOOGLE_API_KEY"`

	// CredentialsFile is a service-account JSON file path
	CredentialsFile string `env:"GOOGLE_CREDENTIALS_FILE"`
}

// Configured reports whether the Sheets source can run.
func (c *GoogleConfig) Configured() bool {
	return c.APIKey != "" || c.CredentialsFile != ""
}

// SecurityConfig holds security-related settings.
type SecurityConfig struct {
	// EncryptionKey protects stored OAuth tokens; must be exactly 32 bytes (required)
	EncryptionKey string `env:"ENCRYPTION_KEY" required:"true"`

	// RequireAPIKey enables X-API-Key validation on /api routes (default: false)
	RequireAPIKey bool `env:"REQUIRE_API_KEY" default:"false"`

	// APIKeys is a comma-separated list of accepted API keys
	APIKeys []string `env:"API_KEYS"`

	// TrustedProxies is a comma-separated list of trusted proxy CIDRs
	TrustedProxies []string `env:"TRUSTED_PROXIES"`

	// RateLimit is requests per minute per IP; 0 disables (default: 100)
	RateLimit int `env:"RATE_LIMIT_REQUESTS_PER_MINUTE" default:"100"`
}

// LimitsConfig holds import size caps.
type LimitsConfig struct {
	// MaxUploadBytes caps Excel uploads (default: 10MB)
	MaxUploadBytes int64 `env:"MAX_UPLOAD_BYTES" default:"10485760"`

	// MaxDumpBytes caps SQL dump uploads (default: 10MB)
	MaxDumpBytes int64 `env:"MAX_DUMP_BYTES" default:"10485760"`
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
	return fmt.Sprintf("%s:%d", c.Host, c.Port)
}
