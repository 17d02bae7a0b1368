package middleware

import (
	"github.com/gin-gonic/gin"

	"github.com/TFMV/sqlgate/pkg/errors"
)

var (
	errForbidden   = errors.New(errors.CodeForbidden, "Forbidden")
	errRateLimited = errors.New(errors.CodeResourceExhausted, "Too many requests")
	errPanic       = errors.New(errors.CodeInternal, "panic recovered")
)

// abort stops the chain with the status and public message for err. The
// error itself stays on the context for the access log.
func abort(c *gin.Context, err error) {
	_ = c.Error(err)
	c.AbortWithStatusJSON(errors.HTTPStatus(err), gin.H{"error": errors.PublicMessage(err)})
}
