package middleware

import (
	"bytes"
	"io"
	"net/http"
	"os"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
)

func TestRecoveryMiddleware(t *testing.T) {
	stderr = io.Discard
	defer func() { stderr = os.Stderr }()

	var buf bytes.Buffer
	r := gin.New()
	r.Use(NewRecoveryMiddleware(zerolog.New(&buf)).Handler())
	r.GET("/panic", func(c *gin.Context) {
		panic("boom")
	})

	w := serve(r, requestFrom(http.MethodGet, "/panic", "10.0.0.1:1"))

	assert.Equal(t, http.StatusInternalServerError, w.Code)
	assert.JSONEq(t, `{"error":"internal server error"}`, w.Body.String())
	assert.Contains(t, buf.String(), "Panic recovered")
	assert.Contains(t, buf.String(), "boom")
}

func TestRecoveryMiddleware_LogsRequestID(t *testing.T) {
	stderr = io.Discard
	defer func() { stderr = os.Stderr }()

	var buf bytes.Buffer
	logger := zerolog.New(&buf)
	r := gin.New()
	r.Use(NewRecoveryMiddleware(logger).Handler(), NewLoggingMiddleware(zerolog.Nop()).Handler())
	r.GET("/panic", func(c *gin.Context) {
		panic("boom")
	})

	req := requestFrom(http.MethodGet, "/panic", "10.0.0.1:1")
	req.Header.Set(HeaderRequestID, "5f0c6a52-8a1e-4d8e-9a40-2f3b1c0d9e11")
	w := serve(r, req)

	assert.Equal(t, http.StatusInternalServerError, w.Code)
	assert.Contains(t, buf.String(), `"request_id":"5f0c6a52-8a1e-4d8e-9a40-2f3b1c0d9e11"`)
}
