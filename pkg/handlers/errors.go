package handlers

import (
	"github.com/gin-gonic/gin"

	"github.com/TFMV/sqlgate/pkg/errors"
)

// respondError records err on the context and writes the caller-safe body.
func respondError(c *gin.Context, err error) {
	_ = c.Error(err)
	c.AbortWithStatusJSON(errors.HTTPStatus(err), gin.H{"error": errors.PublicMessage(err)})
}
