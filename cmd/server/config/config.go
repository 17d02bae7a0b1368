// Package config provides configuration structures for the SQL gateway.
package config

import (
	"fmt"
	"net/netip"
	"strings"
	"time"

	"github.com/TFMV/sqlgate/pkg/repositories/sqldb"
)

// Config represents the server configuration.
type Config struct {
	// Server settings
	Address         string        `yaml:"address" json:"address"`
	LogLevel        string        `yaml:"log_level" json:"log_level"`
	Debug           bool          `yaml:"debug" json:"debug"`
	ShutdownTimeout time.Duration `yaml:"shutdown_timeout" json:"shutdown_timeout"`
	// TrustedProxies may set the client address through X-Forwarded-For.
	// Empty means the socket peer address is always used.
	TrustedProxies []string `yaml:"trusted_proxies" json:"trusted_proxies"`

	// TLS configuration
	TLS TLSConfig `yaml:"tls" json:"tls"`

	// Target database
	Database DatabaseConfig `yaml:"database" json:"database"`

	// Encrypted credential bundle
	Secrets SecretsConfig `yaml:"secrets" json:"secrets"`

	// Authentication configuration
	Auth AuthConfig `yaml:"auth" json:"auth"`

	// AllowedIPs lists client addresses or CIDR prefixes. Empty allows all.
	AllowedIPs []string `yaml:"allowed_ips" json:"allowed_ips"`

	// Rate limiting
	RateLimit RateLimitConfig `yaml:"rate_limit" json:"rate_limit"`

	// CORS
	CORS CORSConfig `yaml:"cors" json:"cors"`

	// Metrics configuration
	Metrics MetricsConfig `yaml:"metrics" json:"metrics"`
}

// TLSConfig represents TLS configuration.
type TLSConfig struct {
	Enabled  bool   `yaml:"enabled" json:"enabled"`
	CertFile string `yaml:"cert_file" json:"cert_file"`
	KeyFile  string `yaml:"key_file" json:"key_file"`
}

// DatabaseConfig describes the database queries are forwarded to.
type DatabaseConfig struct {
	Driver         string        `yaml:"driver" json:"driver"`
	Host           string        `yaml:"host" json:"host"`
	Port           int           `yaml:"port" json:"port"`
	Service        string        `yaml:"service" json:"service"`
	User           string        `yaml:"user" json:"user"`
	Path           string        `yaml:"path" json:"path"`
	ConnectTimeout time.Duration `yaml:"connect_timeout" json:"connect_timeout"`
	QueryTimeout   time.Duration `yaml:"query_timeout" json:"query_timeout"`
}

// SecretsConfig holds the Fernet key and ciphertexts. None of these are
// plaintext credentials.
type SecretsConfig struct {
	EncryptionKey       string `yaml:"encryption_key" json:"-"`
	EncryptedSecret     string `yaml:"encrypted_secret" json:"-"`
	EncryptedDBPassword string `yaml:"encrypted_db_password" json:"-"`
}

// AuthConfig represents authentication configuration.
type AuthConfig struct {
	// MaxFailures locks a client out after that many bad API keys. Zero
	// disables the lockout.
	MaxFailures int           `yaml:"max_failures" json:"max_failures"`
	Lockout     time.Duration `yaml:"lockout" json:"lockout"`
}

// RateLimitConfig represents per-client rate limiting. RPS of zero disables it.
type RateLimitConfig struct {
	RPS        float64 `yaml:"rps" json:"rps"`
	Burst      int     `yaml:"burst" json:"burst"`
	MaxClients int     `yaml:"max_clients" json:"max_clients"`
}

// CORSConfig represents cross-origin settings. No origins disables CORS.
type CORSConfig struct {
	AllowedOrigins []string `yaml:"allowed_origins" json:"allowed_origins"`
}

// MetricsConfig represents metrics configuration.
type MetricsConfig struct {
	Enabled bool   `yaml:"enabled" json:"enabled"`
	Address string `yaml:"address" json:"address"`
}

// UsesPassword reports whether the configured driver authenticates with the
// encrypted database password.
func (c *Config) UsesPassword() bool {
	return c.Database.Driver == sqldb.DriverOracle
}

// Validate validates the configuration and fills in defaults.
func (c *Config) Validate() error {
	if c.Address == "" {
		return fmt.Errorf("address is required")
	}

	if c.Debug {
		c.LogLevel = "debug"
	}
	if c.LogLevel == "" {
		c.LogLevel = "info"
	}

	if c.ShutdownTimeout <= 0 {
		c.ShutdownTimeout = 15 * time.Second
	}

	// Validate TLS
	if c.TLS.Enabled {
		if c.TLS.CertFile == "" || c.TLS.KeyFile == "" {
			return fmt.Errorf("TLS cert and key files are required when TLS is enabled")
		}
	}

	// Validate database
	c.Database.Driver = strings.ToLower(strings.TrimSpace(c.Database.Driver))
	if c.Database.Driver == "" {
		c.Database.Driver = sqldb.DriverOracle
	}
	if !sqldb.IsSupported(c.Database.Driver) {
		return fmt.Errorf("unsupported database driver: %s (want one of %s)",
			c.Database.Driver, strings.Join(sqldb.Drivers, ", "))
	}
	switch c.Database.Driver {
	case sqldb.DriverOracle:
		if c.Database.Host == "" || c.Database.Service == "" || c.Database.User == "" {
			return fmt.Errorf("oracle requires host, service and user")
		}
		if c.Database.Port <= 0 {
			c.Database.Port = 1521
		}
	case sqldb.DriverSQLite:
		if c.Database.Path == "" {
			return fmt.Errorf("sqlite requires a database path")
		}
	}
	if c.Database.ConnectTimeout <= 0 {
		c.Database.ConnectTimeout = 10 * time.Second
	}
	if c.Database.QueryTimeout <= 0 {
		c.Database.QueryTimeout = 30 * time.Second
	}

	// Validate auth
	if c.Auth.MaxFailures < 0 {
		return fmt.Errorf("auth max failures cannot be negative")
	}
	if c.Auth.MaxFailures > 0 && c.Auth.Lockout <= 0 {
		c.Auth.Lockout = 5 * time.Minute
	}

	// Validate allowlist
	c.AllowedIPs = cleanList(c.AllowedIPs)
	for _, entry := range c.AllowedIPs {
		if !validAddrOrPrefix(entry) {
			return fmt.Errorf("invalid allowed IP or CIDR: %q", entry)
		}
	}
	c.TrustedProxies = cleanList(c.TrustedProxies)
	c.CORS.AllowedOrigins = cleanList(c.CORS.AllowedOrigins)

	// Validate rate limit
	if c.RateLimit.RPS < 0 {
		return fmt.Errorf("rate limit rps cannot be negative")
	}
	if c.RateLimit.RPS > 0 {
		if c.RateLimit.Burst <= 0 {
			c.RateLimit.Burst = int(c.RateLimit.RPS)
			if c.RateLimit.Burst < 1 {
				c.RateLimit.Burst = 1
			}
		}
		if c.RateLimit.MaxClients <= 0 {
			c.RateLimit.MaxClients = 10000
		}
	}

	// Set defaults for metrics
	if c.Metrics.Enabled && c.Metrics.Address == "" {
		c.Metrics.Address = ":9090"
	}

	return nil
}

// DefaultConfig returns a default configuration.
func DefaultConfig() *Config {
	return &Config{
		Address:         "0.0.0.0:5001",
		LogLevel:        "info",
		ShutdownTimeout: 15 * time.Second,
		Database: DatabaseConfig{
			Driver:         sqldb.DriverOracle,
			Port:           1521,
			ConnectTimeout: 10 * time.Second,
			QueryTimeout:   30 * time.Second,
		},
		Auth: AuthConfig{
			Lockout: 5 * time.Minute,
		},
		RateLimit: RateLimitConfig{
			MaxClients: 10000,
		},
		Metrics: MetricsConfig{
			Enabled: true,
			Address: ":9090",
		},
	}
}

// cleanList splits comma separated entries, trims them and drops empties.
func cleanList(in []string) []string {
	var out []string
	for _, item := range in {
		for _, part := range strings.Split(item, ",") {
			if part = strings.TrimSpace(part); part != "" {
				out = append(out, part)
			}
		}
	}
	return out
}

func validAddrOrPrefix(s string) bool {
	if strings.Contains(s, "/") {
		_, err := netip.ParsePrefix(s)
		return err == nil
	}
	_, err := netip.ParseAddr(s)
	return err == nil
}
