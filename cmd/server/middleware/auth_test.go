package middleware

import (
	"bytes"
	"net/http"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/TFMV/sqlgate/pkg/errors"
)

type staticSecret struct {
	secret string
	err    error
	calls  int
}

func (s *staticSecret) ResolveAPISecret() (string, error) {
	s.calls++
	return s.secret, s.err
}

func TestAuthMiddleware(t *testing.T) {
	tests := []struct {
		name       string
		key        string
		setKey     bool
		secret     *staticSecret
		wantStatus int
		wantBody   string
	}{
		{
			name:       "valid key",
			key:        "s3cret",
			setKey:     true,
			secret:     &staticSecret{secret: "s3cret"},
			wantStatus: http.StatusOK,
			wantBody:   `{"status":"ok"}`,
		},
		{
			name:       "missing key",
			secret:     &staticSecret{secret: "s3cret"},
			wantStatus: http.StatusUnauthorized,
			wantBody:   `{"error":"Unauthorized"}`,
		},
		{
			name:       "empty key",
			key:        "",
			setKey:     true,
			secret:     &staticSecret{secret: "s3cret"},
			wantStatus: http.StatusUnauthorized,
			wantBody:   `{"error":"Unauthorized"}`,
		},
		{
			name:       "wrong key",
			key:        "s3cre",
			setKey:     true,
			secret:     &staticSecret{secret: "s3cret"},
			wantStatus: http.StatusUnauthorized,
			wantBody:   `{"error":"Unauthorized"}`,
		},
		{
			name:       "case sensitive",
			key:        "S3CRET",
			setKey:     true,
			secret:     &staticSecret{secret: "s3cret"},
			wantStatus: http.StatusUnauthorized,
			wantBody:   `{"error":"Unauthorized"}`,
		},
		{
			name:       "secret cannot be decrypted",
			key:        "s3cret",
			setKey:     true,
			secret:     &staticSecret{err: errors.ErrDecryption},
			wantStatus: http.StatusInternalServerError,
			wantBody:   `{"error":"internal server error"}`,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			auth := NewAuthMiddleware(tt.secret, nil, zerolog.Nop())
			r := newEngine(auth.Handler())

			req := requestFrom(http.MethodPost, "/ok", "10.0.0.1:1234")
			if tt.setKey {
				req.Header.Set(HeaderAPIKey, tt.key)
			}
			w := serve(r, req)

			assert.Equal(t, tt.wantStatus, w.Code)
			assert.JSONEq(t, tt.wantBody, w.Body.String())
			assert.Equal(t, 1, tt.secret.calls)
		})
	}
}

func TestAuthMiddleware_ResolvesSecretPerRequest(t *testing.T) {
	secret := &staticSecret{secret: "k"}
	r := newEngine(NewAuthMiddleware(secret, nil, zerolog.Nop()).Handler())

	for i := 0; i < 3; i++ {
		req := requestFrom(http.MethodGet, "/ok", "10.0.0.1:1234")
		req.Header.Set(HeaderAPIKey, "k")
		assert.Equal(t, http.StatusOK, serve(r, req).Code)
	}
	assert.Equal(t, 3, secret.calls)
}

func TestAuthMiddleware_DoesNotLogKey(t *testing.T) {
	var buf bytes.Buffer
	logger := zerolog.New(&buf)
	r := newEngine(NewAuthMiddleware(&staticSecret{secret: "the-real-secret"}, nil, logger).Handler())

	req := requestFrom(http.MethodGet, "/ok", "10.0.0.1:1234")
	req.Header.Set(HeaderAPIKey, "a-guessed-key")
	serve(r, req)

	assert.Contains(t, buf.String(), "Authentication failed")
	assert.NotContains(t, buf.String(), "a-guessed-key")
	assert.NotContains(t, buf.String(), "the-real-secret")
}

func TestAuthMiddleware_Lockout(t *testing.T) {
	lock := NewFailureLock(2, time.Minute)
	r := newEngine(NewAuthMiddleware(&staticSecret{secret: "k"}, lock, zerolog.Nop()).Handler())

	attempt := func(remote, key string) int {
		req := requestFrom(http.MethodGet, "/ok", remote)
		req.Header.Set(HeaderAPIKey, key)
		return serve(r, req).Code
	}

	assert.Equal(t, http.StatusUnauthorized, attempt("10.0.0.1:1", "bad"))
	assert.Equal(t, http.StatusUnauthorized, attempt("10.0.0.1:1", "bad"))
	require.True(t, lock.Locked("10.0.0.1"))

	// Locked out even with the correct key.
	assert.Equal(t, http.StatusUnauthorized, attempt("10.0.0.1:1", "k"))

	// Other clients are unaffected.
	assert.Equal(t, http.StatusOK, attempt("10.0.0.2:1", "k"))
}

func TestFailureLock(t *testing.T) {
	lock := NewFailureLock(3, time.Minute)

	assert.False(t, lock.RecordFailure("a"))
	assert.False(t, lock.RecordFailure("a"))
	lock.Reset("a")
	assert.False(t, lock.RecordFailure("a"))
	assert.False(t, lock.RecordFailure("a"))
	assert.False(t, lock.Locked("a"))
	assert.True(t, lock.RecordFailure("a"))
	assert.True(t, lock.Locked("a"))
	assert.False(t, lock.Locked("b"))
}

func TestFailureLock_Expires(t *testing.T) {
	lock := NewFailureLock(1, 20*time.Millisecond)

	require.True(t, lock.RecordFailure("a"))
	assert.True(t, lock.Locked("a"))
	assert.Eventually(t, func() bool { return !lock.Locked("a") }, time.Second, 5*time.Millisecond)
}
