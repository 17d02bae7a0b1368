package handlers

import (
	stdErrors "errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/go-playground/validator/v10"

	"github.com/TFMV/sqlgate/pkg/errors"
	"github.com/TFMV/sqlgate/pkg/models"
	"github.com/TFMV/sqlgate/pkg/services"
)

// QueryHandler serves the query endpoint.
type QueryHandler struct {
	queryService services.QueryService
	logger       Logger
	metrics      MetricsCollector
}

// NewQueryHandler creates a new query handler.
func NewQueryHandler(queryService services.QueryService, logger Logger, metrics MetricsCollector) *QueryHandler {
	return &QueryHandler{
		queryService: queryService,
		logger:       logger,
		metrics:      metrics,
	}
}

// RunQuery handles POST /run-query. Authentication happens in middleware
// before this runs.
func (h *QueryHandler) RunQuery(c *gin.Context) {
	timer := h.metrics.StartTimer("handler_run_query")
	defer func() {
		h.metrics.RecordHistogram("handler_run_query_seconds", timer.Stop())
	}()

	var req models.QueryRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		var ve validator.ValidationErrors
		if stdErrors.As(err, &ve) {
			h.logger.Debug("Query request failed validation", "error", ve.Error())
		} else {
			h.logger.Debug("Query request body could not be decoded", "error", err.Error())
		}
		h.metrics.IncrementCounter("handler_bad_requests")
		respondError(c, errors.ErrNoQuery)
		return
	}

	result, err := h.queryService.RunQuery(c.Request.Context(), req.SQL)
	if err != nil {
		respondError(c, err)
		return
	}

	// Execution failures are reported in-band with 200.
	c.JSON(http.StatusOK, result.Payload())
}
