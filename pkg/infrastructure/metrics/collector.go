// Package metrics records gateway counters, histograms and gauges and exports
// them to Prometheus on a listener separate from the query API.
package metrics

import "time"

// Collector is the sink the gateway layers report to. Labels are alternating
// name/value pairs; an unpaired trailing name is dropped.
type Collector interface {
	IncrementCounter(name string, labels ...string)
	RecordHistogram(name string, value float64, labels ...string)
	RecordGauge(name string, value float64, labels ...string)

	// StartTimer begins measuring a span. The caller records the elapsed
	// time, usually into a labeled histogram.
	StartTimer(name string) Timer
}

// Timer measures one span.
type Timer interface {
	// Stop returns the seconds elapsed since the timer started.
	Stop() float64
}

// stopwatch is the Timer handed out by every Collector in this package.
type stopwatch time.Time

func startStopwatch() Timer {
	s := stopwatch(time.Now())
	return &s
}

func (s *stopwatch) Stop() float64 {
	return time.Since(time.Time(*s)).Seconds()
}

// NoOpCollector discards everything. It is used when the metrics listener is
// disabled; timers still measure so callers can log durations.
type NoOpCollector struct{}

// NewNoOpCollector returns a Collector that records nothing.
func NewNoOpCollector() Collector {
	return NoOpCollector{}
}

func (NoOpCollector) IncrementCounter(string, ...string)         {}
func (NoOpCollector) RecordHistogram(string, float64, ...string) {}
func (NoOpCollector) RecordGauge(string, float64, ...string)     {}
func (NoOpCollector) StartTimer(string) Timer                    { return startStopwatch() }

// parseLabelPairs splits "k1", "v1", "k2", "v2" into names and values.
func parseLabelPairs(labels []string) (names, values []string) {
	if len(labels)%2 != 0 {
		labels = labels[:len(labels)-1]
	}
	names = make([]string, 0, len(labels)/2)
	values = make([]string, 0, len(labels)/2)
	for i := 0; i < len(labels); i += 2 {
		names = append(names, labels[i])
		values = append(values, labels[i+1])
	}
	return names, values
}
