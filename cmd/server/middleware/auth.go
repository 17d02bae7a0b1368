// Package middleware provides HTTP middleware for the SQL gateway.
package middleware

import (
	"crypto/subtle"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"

	"github.com/TFMV/sqlgate/pkg/errors"
)

// HeaderAPIKey carries the caller's API key.
const HeaderAPIKey = "X-API-KEY"

// contextKeyAuthenticated is set on the gin context once a caller passes.
const contextKeyAuthenticated = "sqlgate.authenticated"

// SecretResolver supplies the API secret callers must present.
type SecretResolver interface {
	ResolveAPISecret() (string, error)
}

// AuthMiddleware checks the static API key.
type AuthMiddleware struct {
	secrets SecretResolver
	lock    *FailureLock
	logger  zerolog.Logger
}

// NewAuthMiddleware creates a new authentication middleware. lock may be nil.
func NewAuthMiddleware(secrets SecretResolver, lock *FailureLock, logger zerolog.Logger) *AuthMiddleware {
	return &AuthMiddleware{
		secrets: secrets,
		lock:    lock,
		logger:  logger,
	}
}

// Handler returns the gin handler. The secret is decrypted per request and
// compared in constant time.
func (m *AuthMiddleware) Handler() gin.HandlerFunc {
	return func(c *gin.Context) {
		client := c.ClientIP()

		if m.lock != nil && m.lock.Locked(client) {
			m.logger.Warn().Str("client_ip", client).Str("path", c.Request.URL.Path).Msg("Request from locked out client")
			m.reject(c)
			return
		}

		secret, err := m.secrets.ResolveAPISecret()
		if err != nil {
			m.logger.Error().Str("error_code", errors.GetCode(err)).Msg("Failed to resolve API secret")
			abort(c, err)
			return
		}

		provided := c.GetHeader(HeaderAPIKey)
		if provided == "" || subtle.ConstantTimeCompare([]byte(provided), []byte(secret)) != 1 {
			event := m.logger.Warn().
				Str("client_ip", client).
				Str("path", c.Request.URL.Path).
				Bool("key_present", provided != "")
			if m.lock != nil && m.lock.RecordFailure(client) {
				event = event.Bool("locked_out", true)
			}
			event.Msg("Authentication failed")
			m.reject(c)
			return
		}

		if m.lock != nil {
			m.lock.Reset(client)
		}
		c.Set(contextKeyAuthenticated, true)
		c.Next()
	}
}

func (m *AuthMiddleware) reject(c *gin.Context) {
	abort(c, errors.ErrUnauthorized)
}

// IsAuthenticated reports whether the request passed the API key check.
func IsAuthenticated(c *gin.Context) bool {
	return c.GetBool(contextKeyAuthenticated)
}
