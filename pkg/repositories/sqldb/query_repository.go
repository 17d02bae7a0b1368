// Package sqldb implements repositories over database/sql drivers.
package sqldb

import (
	"context"
	"database/sql"
	"encoding/base64"
	"fmt"
	"math"
	"net/url"
	"strings"
	"time"
	"unicode/utf8"

	_ "github.com/marcboeker/go-duckdb/v2"
	"github.com/rs/zerolog"
	_ "github.com/sijms/go-ora/v2"
	_ "modernc.org/sqlite"

	"github.com/TFMV/sqlgate/pkg/models"
	"github.com/TFMV/sqlgate/pkg/repositories"
)

// Opener opens a database handle. sql.Open satisfies it.
type Opener func(driverName, dataSourceName string) (*sql.DB, error)

const redacted = "***"

// queryRepository implements repositories.QueryRepository with one
// connection per call. Nothing is pooled or cached between calls.
type queryRepository struct {
	open   Opener
	logger zerolog.Logger
}

// NewQueryRepository creates a repository that opens connections with sql.Open.
func NewQueryRepository(logger zerolog.Logger) repositories.QueryRepository {
	return NewQueryRepositoryWithOpener(sql.Open, logger)
}

// NewQueryRepositoryWithOpener creates a repository with a custom opener.
func NewQueryRepositoryWithOpener(open Opener, logger zerolog.Logger) repositories.QueryRepository {
	return &queryRepository{
		open:   open,
		logger: logger,
	}
}

// Execute implements repositories.QueryRepository.
func (r *queryRepository) Execute(ctx context.Context, query string, params models.ConnectionParams) *models.QueryResult {
	start := time.Now()

	dsn, err := BuildDSN(params)
	if err != nil {
		return r.fail(err, params, dsn, start)
	}

	db, err := r.open(params.Driver, dsn)
	if err != nil {
		return r.fail(err, params, dsn, start)
	}
	defer func() {
		if cerr := db.Close(); cerr != nil {
			r.logger.Warn().Str("target", params.String()).Msg("Failed to close database handle")
		}
	}()
	db.SetMaxOpenConns(1)

	r.logger.Debug().
		Str("target", params.String()).
		Msg("Executing query")

	rows, err := db.QueryContext(ctx, query)
	if err != nil {
		return r.fail(err, params, dsn, start)
	}
	defer rows.Close()

	columns, err := rows.Columns()
	if err != nil {
		return r.fail(err, params, dsn, start)
	}

	result := &models.QueryResult{
		Columns: columns,
		Rows:    [][]interface{}{},
	}

	for rows.Next() {
		values := make([]interface{}, len(columns))
		ptrs := make([]interface{}, len(columns))
		for i := range values {
			ptrs[i] = &values[i]
		}
		if err := rows.Scan(ptrs...); err != nil {
			return r.fail(err, params, dsn, start)
		}
		for i, v := range values {
			values[i] = normalizeValue(v)
		}
		result.Rows = append(result.Rows, values)
	}
	if err := rows.Err(); err != nil {
		return r.fail(err, params, dsn, start)
	}

	result.ExecutionTime = time.Since(start)
	r.logger.Debug().
		Int("rows", len(result.Rows)).
		Int("columns", len(columns)).
		Dur("execution_time", result.ExecutionTime).
		Msg("Query executed")

	return result
}

func (r *queryRepository) fail(err error, params models.ConnectionParams, dsn string, start time.Time) *models.QueryResult {
	msg := scrub(err.Error(), dsn, params.Password)
	r.logger.Debug().
		Str("target", params.String()).
		Str("error", msg).
		Msg("Query failed")

	result := models.ErrorResult(msg)
	result.ExecutionTime = time.Since(start)
	return result
}

// scrub removes the data source name and password, in raw and escaped form,
// from a driver message.
func scrub(msg, dsn, password string) string {
	if dsn != "" {
		msg = strings.ReplaceAll(msg, dsn, redacted)
	}
	if password != "" {
		for _, p := range []string{password, url.QueryEscape(password), url.PathEscape(password)} {
			msg = strings.ReplaceAll(msg, p, redacted)
		}
	}
	return msg
}

// normalizeValue converts driver values to JSON-friendly scalars. Binary
// values that are not valid UTF-8 are base64 encoded. Non-finite floats have
// no JSON number form and are returned as "NaN", "Infinity" or "-Infinity".
func normalizeValue(v interface{}) interface{} {
	switch val := v.(type) {
	case nil:
		return nil
	case []byte:
		if utf8.Valid(val) {
			return string(val)
		}
		return base64.StdEncoding.EncodeToString(val)
	case time.Time:
		return val.Format(time.RFC3339Nano)
	case float64:
		return finiteOrString(val)
	case float32:
		if f := float64(val); math.IsNaN(f) || math.IsInf(f, 0) {
			return finiteOrString(f)
		}
		return val
	case string, bool, int64, int32, int:
		return val
	case fmt.Stringer:
		return val.String()
	default:
		return val
	}
}

func finiteOrString(f float64) interface{} {
	switch {
	case math.IsNaN(f):
		return "NaN"
	case math.IsInf(f, 1):
		return "Infinity"
	case math.IsInf(f, -1):
		return "-Infinity"
	default:
		return f
	}
}
