package handlers

import (
	"net/http"
	"runtime"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/TFMV/sqlgate/pkg/errors"
	"github.com/TFMV/sqlgate/pkg/models"
	"github.com/TFMV/sqlgate/pkg/services"
)

// StatusHandler serves the unauthenticated health and discovery endpoints.
type StatusHandler struct {
	queryService services.QueryService
	info         models.ServiceInfo
	logger       Logger
	now          func() time.Time
}

// NewStatusHandler creates a new status handler.
func NewStatusHandler(queryService services.QueryService, info models.ServiceInfo, logger Logger) *StatusHandler {
	return &StatusHandler{
		queryService: queryService,
		info:         info,
		logger:       logger,
		now:          time.Now,
	}
}

// Health handles GET /health. It never touches the database.
func (h *StatusHandler) Health(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}

// Describe handles GET /describe.
func (h *StatusHandler) Describe(c *gin.Context) {
	c.JSON(http.StatusOK, h.info)
}

// DBTest handles GET /dbtest by running the probe statement.
func (h *StatusHandler) DBTest(c *gin.Context) {
	result, err := h.queryService.Probe(c.Request.Context())
	if err != nil {
		_ = c.Error(err)
		c.JSON(http.StatusInternalServerError, gin.H{"db_status": "fail", "details": errors.PublicMessage(err)})
		return
	}
	if result.Failed() {
		h.logger.Warn("Database probe failed", "error", result.Error)
		c.JSON(http.StatusInternalServerError, gin.H{"db_status": "fail", "details": result.Error})
		return
	}
	c.JSON(http.StatusOK, gin.H{"db_status": "ok", "result": result.Payload()})
}

// Status handles GET / with a summary of the service and its database.
func (h *StatusHandler) Status(c *gin.Context) {
	dataService := "connected"
	result, err := h.queryService.Probe(c.Request.Context())
	if err != nil || result.Failed() {
		dataService = "disconnected"
	}

	c.JSON(http.StatusOK, models.SystemStatus{
		WebService:  "online",
		DataService: dataService,
		Platform:    runtime.GOOS + "/" + runtime.GOARCH,
		Timestamp:   h.now().UTC(),
	})
}
