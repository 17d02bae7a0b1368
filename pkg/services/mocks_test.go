package services

import (
	"context"
	"sync"
	"time"

	"github.com/stretchr/testify/mock"

	"github.com/TFMV/sqlgate/pkg/models"
)

// mockQueryRepo implements repositories.QueryRepository
type mockQueryRepo struct {
	mock.Mock
}

func (m *mockQueryRepo) Execute(ctx context.Context, query string, params models.ConnectionParams) *models.QueryResult {
	args := m.Called(ctx, query, params)
	if fn, ok := args.Get(0).(func(context.Context) *models.QueryResult); ok {
		return fn(ctx)
	}
	if args.Get(0) == nil {
		return nil
	}
	return args.Get(0).(*models.QueryResult)
}

// mockCredentials implements CredentialResolver
type mockCredentials struct {
	password string
	err      error
	calls    int
}

func (m *mockCredentials) ResolveDBPassword() (string, error) {
	m.calls++
	return m.password, m.err
}

// mockLogger implements Logger
type mockLogger struct {
	debugFunc func(msg string, keysAndValues ...interface{})
	infoFunc  func(msg string, keysAndValues ...interface{})
	warnFunc  func(msg string, keysAndValues ...interface{})
	errorFunc func(msg string, keysAndValues ...interface{})
}

func (m *mockLogger) Debug(msg string, keysAndValues ...interface{}) {
	if m.debugFunc != nil {
		m.debugFunc(msg, keysAndValues...)
	}
}

func (m *mockLogger) Info(msg string, keysAndValues ...interface{}) {
	if m.infoFunc != nil {
		m.infoFunc(msg, keysAndValues...)
	}
}

func (m *mockLogger) Warn(msg string, keysAndValues ...interface{}) {
	if m.warnFunc != nil {
		m.warnFunc(msg, keysAndValues...)
	}
}

func (m *mockLogger) Error(msg string, keysAndValues ...interface{}) {
	if m.errorFunc != nil {
		m.errorFunc(msg, keysAndValues...)
	}
}

// recordingMetrics implements MetricsCollector and remembers counter calls.
type recordingMetrics struct {
	mu         sync.Mutex
	counters   map[string][]string
	histograms map[string][]float64
	elapsed    time.Duration
}

func newRecordingMetrics() *recordingMetrics {
	return &recordingMetrics{counters: make(map[string][]string)}
}

func (m *recordingMetrics) IncrementCounter(name string, labels ...string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.counters[name] = append(m.counters[name], labels...)
}

func (m *recordingMetrics) RecordHistogram(name string, value float64, labels ...string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.histograms == nil {
		m.histograms = make(map[string][]float64)
	}
	m.histograms[name] = append(m.histograms[name], value)
}

func (m *recordingMetrics) RecordGauge(name string, value float64, labels ...string) {}

func (m *recordingMetrics) StartTimer(name string) Timer {
	return &mockTimer{elapsed: m.elapsed}
}

func (m *recordingMetrics) observed(name string) []float64 {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.histograms[name]
}

func (m *recordingMetrics) labels(name string) []string {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.counters[name]
}

// mockTimer implements Timer
type mockTimer struct{ elapsed time.Duration }

func (m *mockTimer) Stop() time.Duration {
	return m.elapsed
}
