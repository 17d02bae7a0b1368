package middleware

import (
	"fmt"
	"io"
	"os"
	"runtime/debug"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"
)

// RecoveryMiddleware provides panic recovery middleware.
type RecoveryMiddleware struct {
	logger zerolog.Logger
}

// NewRecoveryMiddleware creates a new recovery middleware.
func NewRecoveryMiddleware(logger zerolog.Logger) *RecoveryMiddleware {
	return &RecoveryMiddleware{
		logger: logger,
	}
}

// Handler returns the gin handler.
func (m *RecoveryMiddleware) Handler() gin.HandlerFunc {
	return func(c *gin.Context) {
		defer func() {
			if r := recover(); r != nil {
				m.handlePanic(r, c.Request.Method+" "+c.Request.URL.Path, RequestID(c))
				abort(c, errPanic)
			}
		}()

		c.Next()
	}
}

// handlePanic logs panic information.
func (m *RecoveryMiddleware) handlePanic(r interface{}, route, requestID string) {
	stack := debug.Stack()

	m.logger.Error().
		Str("route", route).
		Str("request_id", requestID).
		Interface("panic", r).
		Str("stack", string(stack)).
		Msg("Panic recovered")

	// Also print to stderr for debugging
	fmt.Fprintf(stderr, "PANIC in %s: %v\n%s\n", route, r, stack)
}

// stderr is used for panic output
var stderr io.Writer = os.Stderr
