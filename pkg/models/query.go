// Package models provides data structures used throughout the SQL gateway.
package models

import (
	"fmt"
	"time"
)

// QueryRequest represents the body of a query execution request.
type QueryRequest struct {
	SQL string `json:"sql" binding:"required"`
}

// QueryResult is either a result set or an execution error, never both.
type QueryResult struct {
	Columns []string        `json:"columns,omitempty"`
	Rows    [][]interface{} `json:"rows,omitempty"`
	Error   string          `json:"error,omitempty"`

	ExecutionTime time.Duration `json:"-"`
}

// Failed reports whether the result carries an execution error.
func (r *QueryResult) Failed() bool {
	return r.Error != ""
}

// ErrorResult builds a result that carries only an error message.
func ErrorResult(msg string) *QueryResult {
	return &QueryResult{Error: msg}
}

// Payload returns the JSON body for the result. A successful result always
// serializes both keys, even for an empty result set.
func (r *QueryResult) Payload() map[string]interface{} {
	if r.Failed() {
		return map[string]interface{}{"error": r.Error}
	}
	columns := r.Columns
	if columns == nil {
		columns = []string{}
	}
	rows := r.Rows
	if rows == nil {
		rows = [][]interface{}{}
	}
	return map[string]interface{}{
		"columns": columns,
		"rows":    rows,
	}
}

// Verdict is the outcome of statement classification.
type Verdict struct {
	Allowed bool   `json:"allowed"`
	Reason  string `json:"reason,omitempty"`
}

// Allow returns an allowing verdict.
func Allow() Verdict {
	return Verdict{Allowed: true}
}

// Deny returns a denying verdict with the given reason.
func Deny(reason string) Verdict {
	return Verdict{Allowed: false, Reason: reason}
}

// ConnectionParams holds everything needed to open one database session.
type ConnectionParams struct {
	Driver   string
	Host     string
	Port     int
	Service  string
	Username string
	Password string
	// Path is the database file for embedded engines.
	Path           string
	ConnectTimeout time.Duration
}

// String implements fmt.Stringer without the password.
func (p ConnectionParams) String() string {
	if p.Path != "" {
		return fmt.Sprintf("%s://%s", p.Driver, p.Path)
	}
	return fmt.Sprintf("%s://%s@%s:%d/%s", p.Driver, p.Username, p.Host, p.Port, p.Service)
}

// ServiceInfo describes the gateway for the describe endpoint.
type ServiceInfo struct {
	Name      string   `json:"name"`
	Version   string   `json:"version"`
	Endpoints []string `json:"endpoints"`
	Notes     string   `json:"notes"`
}

// SystemStatus is the body of the status summary.
type SystemStatus struct {
	WebService  string    `json:"web_service"`
	DataService string    `json:"data_service"`
	Platform    string    `json:"platform"`
	Timestamp   time.Time `json:"timestamp"`
}
