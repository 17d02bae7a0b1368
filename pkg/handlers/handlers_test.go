package handlers

import (
	"context"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/mock"

	"github.com/TFMV/sqlgate/pkg/models"
	"github.com/TFMV/sqlgate/pkg/services"
)

func init() {
	gin.SetMode(gin.TestMode)
}

// mockQueryService implements services.QueryService
type mockQueryService struct {
	mock.Mock
}

func (m *mockQueryService) RunQuery(ctx context.Context, sql string) (*models.QueryResult, error) {
	args := m.Called(ctx, sql)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.QueryResult), args.Error(1)
}

func (m *mockQueryService) Probe(ctx context.Context) (*models.QueryResult, error) {
	args := m.Called(ctx)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.QueryResult), args.Error(1)
}

func (m *mockQueryService) Classify(sql string) models.Verdict {
	return m.Called(sql).Get(0).(models.Verdict)
}

func (m *mockQueryService) Target() string {
	return m.Called().String(0)
}

// mockLogger implements Logger and services.Logger
type mockLogger struct{}

func (m *mockLogger) Debug(msg string, keysAndValues ...interface{}) {}
func (m *mockLogger) Info(msg string, keysAndValues ...interface{})  {}
func (m *mockLogger) Warn(msg string, keysAndValues ...interface{})  {}
func (m *mockLogger) Error(msg string, keysAndValues ...interface{}) {}

// mockMetricsCollector implements MetricsCollector
type mockMetricsCollector struct{}

func (m *mockMetricsCollector) IncrementCounter(name string, labels ...string)               {}
func (m *mockMetricsCollector) RecordHistogram(name string, value float64, labels ...string) {}
func (m *mockMetricsCollector) RecordGauge(name string, value float64, labels ...string)     {}
func (m *mockMetricsCollector) StartTimer(name string) Timer                                 { return mockTimer{} }

type mockTimer struct{}

func (mockTimer) Stop() float64 { return 0 }

// serviceMetrics implements services.MetricsCollector
type serviceMetrics struct{}

func (serviceMetrics) IncrementCounter(name string, labels ...string)               {}
func (serviceMetrics) RecordHistogram(name string, value float64, labels ...string) {}
func (serviceMetrics) RecordGauge(name string, value float64, labels ...string)     {}
func (serviceMetrics) StartTimer(name string) services.Timer                        { return serviceTimer{} }

type serviceTimer struct{}

func (serviceTimer) Stop() time.Duration { return 0 }
