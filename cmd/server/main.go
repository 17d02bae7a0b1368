// Package main provides the entry point for the sqlgate SQL gateway.
package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"golang.org/x/sync/errgroup"

	"github.com/TFMV/sqlgate/cmd/server/server"
	"github.com/TFMV/sqlgate/pkg/infrastructure/metrics"
	"github.com/TFMV/sqlgate/pkg/secrets"
)

var (
	// Version information (set by build flags)
	version   = "dev"
	commit    = "unknown"
	buildDate = "unknown"
)

var rootCmd = &cobra.Command{
	Use:   "sqlgate",
	Short: "sqlgate read-only SQL gateway",
	Long: `A read-only SQL-over-HTTP gateway.

sqlgate accepts SELECT statements over HTTP, authenticates callers with a
static API key and runs each statement on a fresh database connection.
Credentials are stored Fernet-encrypted.`,
	SilenceUsage: true,
}

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the gateway",
	Long: `Start the gateway with the specified configuration.

Example:
  sqlgate serve --config ./config.yaml
  sqlgate serve --db-driver sqlite --db-path ./data.db`,
	RunE: runServer,
}

func init() {
	// Add serve command
	rootCmd.AddCommand(serveCmd)

	addServeFlags(serveCmd.Flags())
	if err := bindConfig(viper.GetViper(), serveCmd.Flags()); err != nil {
		panic(fmt.Errorf("failed to bind flags: %w", err))
	}

	rootCmd.AddCommand(newKeygenCmd())
	rootCmd.AddCommand(newEncryptCmd())

	// Add version command
	rootCmd.AddCommand(&cobra.Command{
		Use:   "version",
		Short: "Print version information",
		Run: func(cmd *cobra.Command, args []string) {
			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "sqlgate\n")
			fmt.Fprintf(out, "Version:    %s\n", version)
			fmt.Fprintf(out, "Commit:     %s\n", commit)
			fmt.Fprintf(out, "Build Date: %s\n", buildDate)
		},
	})
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func runServer(cmd *cobra.Command, args []string) error {
	v := viper.GetViper()

	if err := loadEnvFile(v.GetString("env-file"), cmd.Flags().Changed("env-file")); err != nil {
		return err
	}

	cfg, err := loadConfig(v)
	if err != nil {
		return err
	}

	logger := setupLogging(cfg.LogLevel)
	logger.Info().
		Str("version", version).
		Str("address", cfg.Address).
		Str("driver", cfg.Database.Driver).
		Msg("Starting sqlgate")

	// Nothing is served until the credential bundle decrypts.
	store := secrets.NewStore(secrets.Config{
		EncryptionKey:       cfg.Secrets.EncryptionKey,
		EncryptedAPISecret:  cfg.Secrets.EncryptedSecret,
		EncryptedDBPassword: cfg.Secrets.EncryptedDBPassword,
	})
	if err := store.Validate(cfg.UsesPassword()); err != nil {
		logger.Error().Err(err).Msg("Credential bundle is not usable")
		return fmt.Errorf("invalid secrets: %w", err)
	}

	logTarget(logger, cfg)

	// Create metrics collector
	var metricsCollector metrics.Collector
	var metricsServer *metrics.MetricsServer
	if cfg.Metrics.Enabled {
		metricsCollector = metrics.NewPrometheusCollector()
		metricsServer = metrics.NewMetricsServer(cfg.Metrics.Address, nil)
	} else {
		metricsCollector = metrics.NewNoOpCollector()
	}

	if !cfg.Debug {
		gin.SetMode(gin.ReleaseMode)
	}

	srv, err := server.New(cfg, logger, &collectorAdapter{collector: metricsCollector},
		server.WithSecrets(store),
		server.WithVersion(version),
	)
	if err != nil {
		return fmt.Errorf("failed to create server: %w", err)
	}

	srv.Probe(context.Background())

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		return srv.ListenAndServe()
	})

	if metricsServer != nil {
		g.Go(func() error {
			logger.Info().Str("address", cfg.Metrics.Address).Msg("Starting metrics server")
			if err := metricsServer.Start(); err != nil {
				return fmt.Errorf("metrics server: %w", err)
			}
			return nil
		})
	}

	g.Go(func() error {
		<-gctx.Done()
		logger.Info().Dur("timeout", cfg.ShutdownTimeout).Msg("Starting graceful shutdown")

		shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
		defer cancel()

		if err := srv.Shutdown(shutdownCtx); err != nil {
			logger.Error().Err(err).Msg("Error shutting down gateway")
		}
		if metricsServer != nil {
			if err := metricsServer.Shutdown(shutdownCtx); err != nil {
				logger.Error().Err(err).Msg("Error stopping metrics server")
			}
		}
		return nil
	})

	if err := g.Wait(); err != nil {
		logger.Error().Err(err).Msg("Server stopped with error")
		return err
	}

	logger.Info().Msg("Server stopped")
	return nil
}

func setupLogging(level string) zerolog.Logger {
	// Configure zerolog
	zerolog.TimeFieldFormat = time.RFC3339Nano
	zerolog.DurationFieldUnit = time.Millisecond

	// Set log level
	var logLevel zerolog.Level
	switch level {
	case "debug":
		logLevel = zerolog.DebugLevel
		// Enable caller info for debug level
		zerolog.CallerMarshalFunc = func(pc uintptr, file string, line int) string {
			short := file
			for i := len(file) - 1; i > 0; i-- {
				if file[i] == '/' {
					short = file[i+1:]
					break
				}
			}
			return fmt.Sprintf("%s:%d", short, line)
		}
	case "info":
		logLevel = zerolog.InfoLevel
	case "warn":
		logLevel = zerolog.WarnLevel
	case "error":
		logLevel = zerolog.ErrorLevel
	default:
		logLevel = zerolog.InfoLevel
	}

	// Create logger with caller info for debug level
	logger := zerolog.New(os.Stdout).
		Level(logLevel).
		With().
		Timestamp().
		Str("service", "sqlgate")

	if logLevel == zerolog.DebugLevel {
		logger = logger.Caller()
	}

	return logger.Logger()
}

// collectorAdapter adapts metrics.Collector to server.MetricsCollector.
type collectorAdapter struct {
	collector metrics.Collector
}

func (m *collectorAdapter) IncrementCounter(name string, labels ...string) {
	m.collector.IncrementCounter(name, labels...)
}

func (m *collectorAdapter) RecordHistogram(name string, value float64, labels ...string) {
	m.collector.RecordHistogram(name, value, labels...)
}

func (m *collectorAdapter) RecordGauge(name string, value float64, labels ...string) {
	m.collector.RecordGauge(name, value, labels...)
}

func (m *collectorAdapter) StartTimer(name string) server.Timer {
	return m.collector.StartTimer(name)
}
