// Package server assembles the HTTP gateway.
package server

import (
	"context"
	"crypto/tls"
	"errors"
	"fmt"
	"net"
	"net/http"
	"sync"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-contrib/gzip"
	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"

	"github.com/TFMV/sqlgate/cmd/server/config"
	"github.com/TFMV/sqlgate/cmd/server/middleware"
	"github.com/TFMV/sqlgate/pkg/handlers"
	"github.com/TFMV/sqlgate/pkg/models"
	"github.com/TFMV/sqlgate/pkg/repositories"
	"github.com/TFMV/sqlgate/pkg/repositories/sqldb"
	"github.com/TFMV/sqlgate/pkg/secrets"
	"github.com/TFMV/sqlgate/pkg/services"
)

// Route paths.
const (
	RouteRunQuery = "/run-query"
	RouteHealth   = "/health"
	RouteDescribe = "/describe"
	RouteDBTest   = "/dbtest"
	RouteStatus   = "/"
)

const serviceName = "sqlgate"

const serviceNotes = "Only SELECT queries allowed. Protected by API key and IP allowlist."

// MetricsCollector defines the metrics interface.
type MetricsCollector interface {
	IncrementCounter(name string, labels ...string)
	RecordHistogram(name string, value float64, labels ...string)
	RecordGauge(name string, value float64, labels ...string)
	StartTimer(name string) Timer
}

// Timer represents a timing measurement.
type Timer interface {
	Stop() float64
}

// Secrets resolves both credentials of the bundle.
type Secrets interface {
	middleware.SecretResolver
	services.CredentialResolver
}

// Server is the HTTP gateway.
type Server struct {
	config  *config.Config
	logger  zerolog.Logger
	metrics MetricsCollector
	version string

	secrets Secrets
	repo    repositories.QueryRepository

	queryService services.QueryService
	engine       *gin.Engine

	mu         sync.Mutex
	httpServer *http.Server
	closed     bool
}

// Option customizes a Server.
type Option func(*Server)

// WithVersion sets the version reported by the describe endpoint.
func WithVersion(version string) Option {
	return func(s *Server) {
		s.version = version
	}
}

// WithSecrets replaces the credential store built from configuration.
func WithSecrets(store Secrets) Option {
	return func(s *Server) {
		s.secrets = store
	}
}

// WithRepository replaces the database-backed query repository.
func WithRepository(repo repositories.QueryRepository) Option {
	return func(s *Server) {
		s.repo = repo
	}
}

// New creates a new gateway. cfg must already be validated.
func New(cfg *config.Config, logger zerolog.Logger, metrics MetricsCollector, opts ...Option) (*Server, error) {
	srv := &Server{
		config:  cfg,
		logger:  logger,
		metrics: metrics,
		version: "dev",
	}
	for _, opt := range opts {
		opt(srv)
	}

	if srv.secrets == nil {
		srv.secrets = secrets.NewStore(secrets.Config{
			EncryptionKey:       cfg.Secrets.EncryptionKey,
			EncryptedAPISecret:  cfg.Secrets.EncryptedSecret,
			EncryptedDBPassword: cfg.Secrets.EncryptedDBPassword,
		})
	}
	if srv.repo == nil {
		srv.repo = sqldb.NewQueryRepository(logger)
	}

	// Create adapters
	logAdapter := &loggerAdapter{logger: logger}
	handlerMetrics := &handlerMetricsAdapter{collector: metrics}
	serviceMetrics := &serviceMetricsAdapter{collector: metrics}

	srv.queryService = services.NewQueryService(
		srv.repo,
		srv.secrets,
		services.QueryServiceConfig{
			Params:       ConnectionParams(cfg),
			UsesPassword: cfg.UsesPassword(),
			QueryTimeout: cfg.Database.QueryTimeout,
			ProbeSQL:     sqldb.ProbeStatement(cfg.Database.Driver),
		},
		logAdapter,
		serviceMetrics,
	)

	queryHandler := handlers.NewQueryHandler(srv.queryService, logAdapter, handlerMetrics)
	statusHandler := handlers.NewStatusHandler(srv.queryService, srv.serviceInfo(), logAdapter)

	engine, err := srv.buildEngine(queryHandler, statusHandler)
	if err != nil {
		return nil, err
	}
	srv.engine = engine

	return srv, nil
}

// ConnectionParams maps the database configuration to executor parameters.
// The password is left empty; it is decrypted per connection attempt.
func ConnectionParams(cfg *config.Config) models.ConnectionParams {
	return models.ConnectionParams{
		Driver:         cfg.Database.Driver,
		Host:           cfg.Database.Host,
		Port:           cfg.Database.Port,
		Service:        cfg.Database.Service,
		Username:       cfg.Database.User,
		Path:           cfg.Database.Path,
		ConnectTimeout: cfg.Database.ConnectTimeout,
	}
}

func (s *Server) serviceInfo() models.ServiceInfo {
	return models.ServiceInfo{
		Name:      serviceName,
		Version:   s.version,
		Endpoints: []string{RouteRunQuery, RouteHealth, RouteDescribe, RouteDBTest, RouteStatus},
		Notes:     serviceNotes,
	}
}

func (s *Server) buildEngine(queryHandler *handlers.QueryHandler, statusHandler *handlers.StatusHandler) (*gin.Engine, error) {
	engine := gin.New()
	if err := engine.SetTrustedProxies(s.config.TrustedProxies); err != nil {
		return nil, fmt.Errorf("invalid trusted proxies: %w", err)
	}

	allowlist, err := middleware.NewIPAllowlist(s.config.AllowedIPs, s.logger)
	if err != nil {
		return nil, fmt.Errorf("invalid allowed IPs: %w", err)
	}

	engine.Use(
		middleware.NewRecoveryMiddleware(s.logger).Handler(),
		middleware.NewLoggingMiddleware(s.logger).Handler(),
		middleware.NewMetricsMiddleware(&middlewareMetricsAdapter{collector: s.metrics}).Handler(),
	)
	if len(s.config.CORS.AllowedOrigins) > 0 {
		engine.Use(cors.New(cors.Config{
			AllowOrigins:  s.config.CORS.AllowedOrigins,
			AllowMethods:  []string{http.MethodGet, http.MethodPost, http.MethodOptions},
			AllowHeaders:  []string{"Origin", "Content-Type", middleware.HeaderAPIKey, middleware.HeaderRequestID},
			ExposeHeaders: []string{middleware.HeaderRequestID},
			MaxAge:        12 * time.Hour,
		}))
	}
	if allowlist.Enabled() {
		engine.Use(allowlist.Handler())
	}
	if s.config.RateLimit.RPS > 0 {
		engine.Use(middleware.NewRateLimiter(
			s.config.RateLimit.RPS,
			s.config.RateLimit.Burst,
			s.config.RateLimit.MaxClients,
			s.logger,
		).Handler())
	}
	engine.Use(gzip.Gzip(gzip.DefaultCompression))

	var lock *middleware.FailureLock
	if s.config.Auth.MaxFailures > 0 {
		lock = middleware.NewFailureLock(s.config.Auth.MaxFailures, s.config.Auth.Lockout)
	}
	auth := middleware.NewAuthMiddleware(s.secrets, lock, s.logger)

	engine.POST(RouteRunQuery, auth.Handler(), queryHandler.RunQuery)
	engine.GET(RouteHealth, statusHandler.Health)
	engine.GET(RouteDescribe, statusHandler.Describe)
	engine.GET(RouteDBTest, statusHandler.DBTest)
	engine.GET(RouteStatus, statusHandler.Status)

	return engine, nil
}

// Handler returns the HTTP handler serving every route.
func (s *Server) Handler() http.Handler {
	return s.engine
}

// Probe runs the liveness statement and logs the outcome. It never fails
// startup.
func (s *Server) Probe(ctx context.Context) bool {
	result, err := s.queryService.Probe(ctx)
	switch {
	case err != nil:
		s.logger.Error().Err(err).Str("target", s.queryService.Target()).Msg("Database probe failed")
		return false
	case result.Failed():
		s.logger.Error().Str("error", result.Error).Str("target", s.queryService.Target()).Msg("Database probe failed")
		return false
	default:
		s.logger.Info().Str("target", s.queryService.Target()).Msg("Database probe succeeded")
		return true
	}
}

// Serve accepts connections on l until Shutdown is called. A clean shutdown
// returns nil.
func (s *Server) Serve(l net.Listener) error {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return l.Close()
	}
	s.httpServer = &http.Server{
		Handler:           s.engine,
		ReadHeaderTimeout: 10 * time.Second,
	}
	if s.config.TLS.Enabled {
		s.httpServer.TLSConfig = &tls.Config{MinVersion: tls.VersionTLS12}
	}
	httpServer := s.httpServer
	s.mu.Unlock()

	s.logger.Info().
		Str("address", l.Addr().String()).
		Bool("tls", s.config.TLS.Enabled).
		Msg("Gateway listening")

	var err error
	if s.config.TLS.Enabled {
		err = httpServer.ServeTLS(l, s.config.TLS.CertFile, s.config.TLS.KeyFile)
	} else {
		err = httpServer.Serve(l)
	}
	if err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

// ListenAndServe listens on the configured address and serves.
func (s *Server) ListenAndServe() error {
	l, err := net.Listen("tcp", s.config.Address)
	if err != nil {
		return fmt.Errorf("failed to listen on %s: %w", s.config.Address, err)
	}
	return s.Serve(l)
}

// Shutdown gracefully stops the gateway, waiting for in-flight requests.
func (s *Server) Shutdown(ctx context.Context) error {
	s.mu.Lock()
	s.closed = true
	httpServer := s.httpServer
	s.mu.Unlock()

	s.logger.Info().Msg("Shutting down gateway")
	if httpServer == nil {
		return nil
	}
	return httpServer.Shutdown(ctx)
}
