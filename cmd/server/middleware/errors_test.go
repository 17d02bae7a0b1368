package middleware

import (
	"fmt"
	"net/http"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/TFMV/sqlgate/pkg/errors"
)

func TestAbort(t *testing.T) {
	tests := []struct {
		name       string
		err        error
		wantStatus int
		wantBody   string
	}{
		{"forbidden", errForbidden, http.StatusForbidden, `{"error":"Forbidden"}`},
		{"rate limited", errRateLimited, http.StatusTooManyRequests, `{"error":"Too many requests"}`},
		{"unauthorized", errors.ErrUnauthorized, http.StatusUnauthorized, `{"error":"Unauthorized"}`},
		{"decryption is hidden", errors.ErrDecryption, http.StatusInternalServerError, `{"error":"internal server error"}`},
		{"panic is hidden", errPanic, http.StatusInternalServerError, `{"error":"internal server error"}`},
		{"plain error", fmt.Errorf("disk on fire"), http.StatusInternalServerError, `{"error":"internal server error"}`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var recorded []*gin.Error
			r := gin.New()
			r.GET("/x", func(c *gin.Context) {
				abort(c, tt.err)
				recorded = c.Errors
			}, func(c *gin.Context) {
				t.Fatal("chain continued after abort")
			})

			w := serve(r, requestFrom(http.MethodGet, "/x", "10.0.0.1:1"))

			assert.Equal(t, tt.wantStatus, w.Code)
			assert.JSONEq(t, tt.wantBody, w.Body.String())
			require.Len(t, recorded, 1)
			assert.Equal(t, tt.err, recorded[0].Err)
		})
	}
}
