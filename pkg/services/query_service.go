package services

import (
	"context"
	stdErrors "errors"
	"fmt"
	"strings"
	"time"

	"github.com/TFMV/sqlgate/pkg/errors"
	"github.com/TFMV/sqlgate/pkg/models"
	"github.com/TFMV/sqlgate/pkg/repositories"
)

// maxLoggedQuery bounds how much SQL text goes into a log line.
const maxLoggedQuery = 200

// QueryServiceConfig configures the query service.
type QueryServiceConfig struct {
	// Params describes the target database. Password is ignored; it is
	// resolved per attempt when UsesPassword is set.
	Params       models.ConnectionParams
	UsesPassword bool
	// QueryTimeout bounds one execution. Zero disables the bound.
	QueryTimeout time.Duration
	// ProbeSQL is the liveness statement for the configured driver.
	ProbeSQL string
}

// queryService implements QueryService interface.
type queryService struct {
	repo        repositories.QueryRepository
	credentials CredentialResolver
	cfg         QueryServiceConfig
	logger      Logger
	metrics     MetricsCollector
	classifier  *StatementClassifier
}

// NewQueryService creates a new query service.
func NewQueryService(
	repo repositories.QueryRepository,
	credentials CredentialResolver,
	cfg QueryServiceConfig,
	logger Logger,
	metrics MetricsCollector,
) QueryService {
	cfg.Params.Password = ""
	return &queryService{
		repo:        repo,
		credentials: credentials,
		cfg:         cfg,
		logger:      logger,
		metrics:     metrics,
		classifier:  NewStatementClassifier(),
	}
}

// RunQuery executes sql if it passes the gate. An absent statement is a bad
// request; a blank one reaches the gate and is denied like any other.
func (s *queryService) RunQuery(ctx context.Context, sql string) (*models.QueryResult, error) {
	if sql == "" {
		s.metrics.IncrementCounter("queries_rejected_total", "reason", "missing")
		return nil, errors.ErrNoQuery
	}

	stmtType := s.classifier.ClassifyStatement(sql)
	verdict := s.classifier.Classify(sql)
	if !verdict.Allowed {
		s.metrics.IncrementCounter("queries_rejected_total", "reason", rejectionLabel(verdict.Reason))
		s.logger.Warn("Query rejected",
			"reason", verdict.Reason,
			"statement_type", stmtType.String(),
			"keyword", s.classifier.MatchedKeyword(sql),
			"query", truncate(sql))
		return nil, errors.New(errors.CodePolicyViolation, verdict.Reason)
	}

	s.logger.Debug("Executing query", "statement_type", stmtType.String(), "query", truncate(sql))
	return s.execute(ctx, sql)
}

// Probe runs the configured liveness statement.
func (s *queryService) Probe(ctx context.Context) (*models.QueryResult, error) {
	return s.execute(ctx, s.cfg.ProbeSQL)
}

// Classify returns the gate's verdict for sql.
func (s *queryService) Classify(sql string) models.Verdict {
	return s.classifier.Classify(sql)
}

// Target returns the redacted connection target.
func (s *queryService) Target() string {
	return s.cfg.Params.String()
}

func (s *queryService) execute(ctx context.Context, sql string) (*models.QueryResult, error) {
	params := s.cfg.Params
	if s.cfg.UsesPassword {
		password, err := s.credentials.ResolveDBPassword()
		if err != nil {
			s.metrics.IncrementCounter("credential_errors_total")
			s.logger.Error("Failed to resolve database password", "error_code", errors.GetCode(err))
			return nil, err
		}
		params.Password = password
	}

	// The caller going away does not abort a running statement; only the
	// query timeout does.
	queryCtx := context.WithoutCancel(ctx)
	if s.cfg.QueryTimeout > 0 {
		var cancel context.CancelFunc
		queryCtx, cancel = context.WithTimeout(queryCtx, s.cfg.QueryTimeout)
		defer cancel()
	}

	timer := s.metrics.StartTimer("query_execution")
	result := s.repo.Execute(queryCtx, sql, params)
	executionTime := timer.Stop()

	if result == nil {
		result = models.ErrorResult("query returned no result")
	}
	if result.Failed() && stdErrors.Is(queryCtx.Err(), context.DeadlineExceeded) {
		result = models.ErrorResult(fmt.Sprintf("query timed out after %s", s.cfg.QueryTimeout))
	}
	result.ExecutionTime = executionTime
	s.metrics.RecordHistogram("query_duration_seconds", executionTime.Seconds())

	if result.Failed() {
		s.metrics.IncrementCounter("queries_total", "outcome", "error")
		s.logger.Error("Query execution failed",
			"error", result.Error,
			"target", params.String(),
			"execution_time", executionTime)
		return result, nil
	}

	s.metrics.IncrementCounter("queries_total", "outcome", "success")
	s.metrics.RecordHistogram("query_result_rows", float64(len(result.Rows)))
	s.logger.Info("Query executed successfully",
		"rows", len(result.Rows),
		"columns", len(result.Columns),
		"execution_time", executionTime)

	return result, nil
}

func rejectionLabel(reason string) string {
	switch reason {
	case ReasonEmpty:
		return "empty"
	case ReasonNotSelect:
		return "not_select"
	case ReasonDisallowedKeywords:
		return "disallowed_keyword"
	default:
		return "other"
	}
}

func truncate(sql string) string {
	sql = strings.TrimSpace(sql)
	if len(sql) <= maxLoggedQuery {
		return sql
	}
	return sql[:maxLoggedQuery] + "..."
}
