package main

import (
	"errors"
	"fmt"
	"io/fs"
	"strings"

	"github.com/joho/godotenv"
	"github.com/rs/zerolog"
	"github.com/spf13/pflag"
	"github.com/spf13/viper"

	"github.com/TFMV/sqlgate/cmd/server/config"
)

// binding ties a configuration key to its flag and environment names.
type binding struct {
	key  string
	flag string
	envs []string
}

// bindings lists every serve setting. Env names without the SQLGATE_ prefix
// are the deployment's established variable names.
var bindings = []binding{
	{"address", "address", []string{"SQLGATE_ADDRESS"}},
	{"log-level", "log-level", []string{"SQLGATE_LOG_LEVEL"}},
	{"debug", "debug", []string{"DEBUG_AGENT", "SQLGATE_DEBUG"}},
	{"shutdown-timeout", "shutdown-timeout", []string{"SQLGATE_SHUTDOWN_TIMEOUT"}},
	{"trusted-proxies", "trusted-proxies", []string{"SQLGATE_TRUSTED_PROXIES"}},

	{"tls.enabled", "tls", []string{"SQLGATE_TLS"}},
	{"tls.cert-file", "tls-cert", []string{"SQLGATE_TLS_CERT"}},
	{"tls.key-file", "tls-key", []string{"SQLGATE_TLS_KEY"}},

	{"database.driver", "db-driver", []string{"SQLGATE_DB_DRIVER"}},
	{"database.host", "db-host", []string{"ORACLE_HOST", "SQLGATE_DB_HOST"}},
	{"database.port", "db-port", []string{"ORACLE_PORT", "SQLGATE_DB_PORT"}},
	{"database.service", "db-service", []string{"ORACLE_SERVICE", "SQLGATE_DB_SERVICE"}},
	{"database.user", "db-user", []string{"ORACLE_USER", "SQLGATE_DB_USER"}},
	{"database.path", "db-path", []string{"SQLGATE_DB_PATH"}},
	{"database.connect-timeout", "db-connect-timeout", []string{"SQLGATE_DB_CONNECT_TIMEOUT"}},
	{"database.query-timeout", "db-query-timeout", []string{"SQLGATE_DB_QUERY_TIMEOUT"}},

	// Secrets have no flags so they never appear in process listings.
	{"secrets.encryption-key", "", []string{"ENCRYPTION_KEY"}},
	{"secrets.encrypted-secret", "", []string{"ENCRYPTED_SECRET"}},
	{"secrets.encrypted-db-password", "", []string{"ENCRYPTED_ORACLE_PASSWORD", "ENCRYPTED_DB_PASSWORD"}},

	{"auth.max-failures", "auth-max-failures", []string{"SQLGATE_AUTH_MAX_FAILURES"}},
	{"auth.lockout", "auth-lockout", []string{"SQLGATE_AUTH_LOCKOUT"}},

	{"allowed-ips", "allowed-ips", []string{"ALLOWED_IPS", "SQLGATE_ALLOWED_IPS"}},

	{"rate-limit.rps", "rate-limit-rps", []string{"SQLGATE_RATE_LIMIT_RPS"}},
	{"rate-limit.burst", "rate-limit-burst", []string{"SQLGATE_RATE_LIMIT_BURST"}},
	{"rate-limit.max-clients", "rate-limit-max-clients", []string{"SQLGATE_RATE_LIMIT_MAX_CLIENTS"}},

	{"cors.allowed-origins", "cors-origins", []string{"SQLGATE_CORS_ORIGINS"}},

	{"metrics.enabled", "metrics", []string{"SQLGATE_METRICS_ENABLED"}},
	{"metrics.address", "metrics-address", []string{"SQLGATE_METRICS_ADDRESS"}},

	{"config", "config", []string{"SQLGATE_CONFIG"}},
	{"env-file", "env-file", []string{"SQLGATE_ENV_FILE"}},
}

// addServeFlags registers the serve flags with defaults from config.DefaultConfig.
func addServeFlags(flags *pflag.FlagSet) {
	d := config.DefaultConfig()

	flags.StringP("config", "c", "", "config file path")
	flags.String("env-file", ".env", "dotenv file loaded into the environment if present")
	flags.String("address", d.Address, "server listen address")
	flags.String("log-level", d.LogLevel, "log level (debug, info, warn, error)")
	flags.Bool("debug", d.Debug, "enable debug logging")
	flags.Duration("shutdown-timeout", d.ShutdownTimeout, "graceful shutdown timeout")
	flags.StringSlice("trusted-proxies", nil, "proxies allowed to set X-Forwarded-For (IPs or CIDRs)")

	flags.Bool("tls", false, "enable TLS")
	flags.String("tls-cert", "", "TLS certificate file")
	flags.String("tls-key", "", "TLS key file")

	flags.String("db-driver", d.Database.Driver, "database driver (oracle, sqlite, duckdb)")
	flags.String("db-host", "", "database host")
	flags.Int("db-port", d.Database.Port, "database port")
	flags.String("db-service", "", "database service name")
	flags.String("db-user", "", "database user")
	flags.String("db-path", "", "database file for sqlite or duckdb")
	flags.Duration("db-connect-timeout", d.Database.ConnectTimeout, "database connect timeout")
	flags.Duration("db-query-timeout", d.Database.QueryTimeout, "maximum query execution time")

	flags.Int("auth-max-failures", d.Auth.MaxFailures, "failed API key attempts before a client is locked out (0 disables)")
	flags.Duration("auth-lockout", d.Auth.Lockout, "lockout duration")

	flags.StringSlice("allowed-ips", nil, "client IPs or CIDRs allowed to connect (empty allows all)")

	flags.Float64("rate-limit-rps", d.RateLimit.RPS, "requests per second per client (0 disables)")
	flags.Int("rate-limit-burst", d.RateLimit.Burst, "rate limit burst")
	flags.Int("rate-limit-max-clients", d.RateLimit.MaxClients, "clients tracked by the rate limiter")

	flags.StringSlice("cors-origins", nil, "allowed CORS origins (empty disables CORS)")

	flags.Bool("metrics", d.Metrics.Enabled, "enable Prometheus metrics")
	flags.String("metrics-address", d.Metrics.Address, "metrics server address")
}

// bindConfig binds flags and environment variables to v. Any key can also be
// set as SQLGATE_<KEY> with dots and dashes replaced by underscores.
func bindConfig(v *viper.Viper, flags *pflag.FlagSet) error {
	v.SetEnvPrefix("SQLGATE")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_", "-", "_"))
	v.AutomaticEnv()

	for _, b := range bindings {
		if b.flag != "" {
			if err := v.BindPFlag(b.key, flags.Lookup(b.flag)); err != nil {
				return fmt.Errorf("flag %s: %w", b.flag, err)
			}
		}
		if err := v.BindEnv(append([]string{b.key}, b.envs...)...); err != nil {
			return fmt.Errorf("env %s: %w", b.key, err)
		}
	}
	return nil
}

// loadEnvFile loads a dotenv file without overriding variables already set.
// A missing file is only an error when it was asked for explicitly.
func loadEnvFile(path string, explicit bool) error {
	if path == "" {
		return nil
	}
	if err := godotenv.Load(path); err != nil {
		if errors.Is(err, fs.ErrNotExist) && !explicit {
			return nil
		}
		return fmt.Errorf("failed to load env file %s: %w", path, err)
	}
	return nil
}

func loadConfig(v *viper.Viper) (*config.Config, error) {
	// Load config file if specified
	if configFile := v.GetString("config"); configFile != "" {
		v.SetConfigFile(configFile)
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
	}

	// Build configuration
	cfg := &config.Config{
		Address:         v.GetString("address"),
		LogLevel:        v.GetString("log-level"),
		Debug:           v.GetBool("debug"),
		ShutdownTimeout: v.GetDuration("shutdown-timeout"),
		TrustedProxies:  v.GetStringSlice("trusted-proxies"),
		TLS: config.TLSConfig{
			Enabled:  v.GetBool("tls.enabled"),
			CertFile: v.GetString("tls.cert-file"),
			KeyFile:  v.GetString("tls.key-file"),
		},
		Database: config.DatabaseConfig{
			Driver:         v.GetString("database.driver"),
			Host:           v.GetString("database.host"),
			Port:           v.GetInt("database.port"),
			Service:        v.GetString("database.service"),
			User:           v.GetString("database.user"),
			Path:           v.GetString("database.path"),
			ConnectTimeout: v.GetDuration("database.connect-timeout"),
			QueryTimeout:   v.GetDuration("database.query-timeout"),
		},
		Secrets: config.SecretsConfig{
			EncryptionKey:       v.GetString("secrets.encryption-key"),
			EncryptedSecret:     v.GetString("secrets.encrypted-secret"),
			EncryptedDBPassword: v.GetString("secrets.encrypted-db-password"),
		},
		Auth: config.AuthConfig{
			MaxFailures: v.GetInt("auth.max-failures"),
			Lockout:     v.GetDuration("auth.lockout"),
		},
		AllowedIPs: v.GetStringSlice("allowed-ips"),
		RateLimit: config.RateLimitConfig{
			RPS:        v.GetFloat64("rate-limit.rps"),
			Burst:      v.GetInt("rate-limit.burst"),
			MaxClients: v.GetInt("rate-limit.max-clients"),
		},
		CORS: config.CORSConfig{
			AllowedOrigins: v.GetStringSlice("cors.allowed-origins"),
		},
		Metrics: config.MetricsConfig{
			Enabled: v.GetBool("metrics.enabled"),
			Address: v.GetString("metrics.address"),
		},
	}

	// Validate configuration
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	return cfg, nil
}

// logTarget logs where queries go. The password is never part of it.
func logTarget(logger zerolog.Logger, cfg *config.Config) {
	event := logger.Info().Str("driver", cfg.Database.Driver)
	if cfg.Database.Path != "" {
		event = event.Str("path", cfg.Database.Path)
	} else {
		event = event.
			Str("host", cfg.Database.Host).
			Int("port", cfg.Database.Port).
			Str("service", cfg.Database.Service).
			Str("user", cfg.Database.User)
	}
	event.
		Dur("query_timeout", cfg.Database.QueryTimeout).
		Int("allowed_ips", len(cfg.AllowedIPs)).
		Msg("Database target")
}
