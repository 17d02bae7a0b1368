// Package repositories defines interfaces for data access operations.
package repositories

import (
	"context"

	"github.com/TFMV/sqlgate/pkg/models"
)

// QueryRepository runs a single read statement against the target database.
type QueryRepository interface {
	// Execute opens a fresh session with params, runs query and returns its
	// full result set. Failures are reported in-band through
	// QueryResult.Error; the returned result is never nil.
	Execute(ctx context.Context, query string, params models.ConnectionParams) *models.QueryResult
}
