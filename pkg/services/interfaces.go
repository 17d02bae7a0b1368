// Package services contains business logic implementations.
package services

import (
	"context"
	"time"

	"github.com/TFMV/sqlgate/pkg/models"
)

// QueryService defines the gated query pipeline.
type QueryService interface {
	// RunQuery checks presence, classifies and, when allowed, executes sql.
	// Rejections are returned as errors; execution failures are returned
	// in-band through QueryResult.Error with a nil error.
	RunQuery(ctx context.Context, sql string) (*models.QueryResult, error)
	// Probe runs the driver's liveness statement, bypassing classification.
	Probe(ctx context.Context) (*models.QueryResult, error)
	// Classify exposes the statement gate.
	Classify(sql string) models.Verdict
	// Target describes the configured database without credentials.
	Target() string
}

// CredentialResolver supplies the database password for one connection attempt.
type CredentialResolver interface {
	ResolveDBPassword() (string, error)
}

// Logger defines logging interface.
type Logger interface {
	Debug(msg string, keysAndValues ...interface{})
	Info(msg string, keysAndValues ...interface{})
	Warn(msg string, keysAndValues ...interface{})
	Error(msg string, keysAndValues ...interface{})
}

// MetricsCollector defines metrics collection interface.
type MetricsCollector interface {
	IncrementCounter(name string, labels ...string)
	RecordHistogram(name string, value float64, labels ...string)
	RecordGauge(name string, value float64, labels ...string)
	StartTimer(name string) Timer
}

// Timer represents a timing measurement.
type Timer interface {
	Stop() time.Duration
}
