package server

import (
	"bytes"
	"encoding/json"
	"fmt"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoggerAdapter_Fields(t *testing.T) {
	var buf bytes.Buffer
	l := &loggerAdapter{logger: zerolog.New(&buf)}

	l.Warn("Query rejected",
		"reason", "not_select",
		"rows", 3,
		"elapsed", 1500*time.Millisecond,
		"cause", fmt.Errorf("boom"),
		"dangling",
	)

	var entry map[string]interface{}
	require.NoError(t, json.Unmarshal(buf.Bytes(), &entry))
	assert.Equal(t, "warn", entry["level"])
	assert.Equal(t, "Query rejected", entry["message"])
	assert.Equal(t, "not_select", entry["reason"])
	assert.Equal(t, float64(3), entry["rows"])
	assert.Equal(t, "boom", entry["cause"])
	assert.Contains(t, entry, "elapsed")
	assert.NotContains(t, entry, "dangling")
}

type fixedTimer float64

func (f fixedTimer) Stop() float64 { return float64(f) }

type fixedCollector struct{ *testCollector }

func (c *fixedCollector) StartTimer(string) Timer { return fixedTimer(1.5) }

func TestServiceTimerAdapter(t *testing.T) {
	m := &serviceMetricsAdapter{collector: &fixedCollector{testCollector: newTestCollector()}}
	assert.Equal(t, 1500*time.Millisecond, m.StartTimer("x").Stop())
}

func TestMiddlewareMetricsAdapter(t *testing.T) {
	m := &middlewareMetricsAdapter{collector: &fixedCollector{testCollector: newTestCollector()}}
	assert.Equal(t, 1.5, m.StartTimer("x").Stop())
}

func TestHandlerMetricsAdapter(t *testing.T) {
	m := &handlerMetricsAdapter{collector: &fixedCollector{testCollector: newTestCollector()}}
	assert.Equal(t, 1.5, m.StartTimer("x").Stop())
}
