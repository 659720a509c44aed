// Package telemetry carries the logging and metric seams shared by the
// replication pipeline. Components depend on Logger and Counters, never on
// the router's registry directly, so tests can pass a LoggerFunc and a
// private logging.Metrics.
package telemetry

import (
	"log"

	"webtron/client/logging"
)

// Logger is the printf-style sink used for operator diagnostics such as
// discarded frames, resyncs and transport errors.
type Logger interface {
	Printf(format string, args ...any)
}

// LoggerFunc adapts a function into a Logger. A nil LoggerFunc discards.
type LoggerFunc func(format string, args ...any)

func (f LoggerFunc) Printf(format string, args ...any) {
	if f != nil {
		f(format, args...)
	}
}

// WrapLogger forwards to a standard library logger. A nil logger discards.
func WrapLogger(logger *log.Logger) Logger {
	if logger == nil {
		return LoggerFunc(nil)
	}
	return LoggerFunc(logger.Printf)
}

// Metrics is the registry Counters write through. Add accumulates and
// Store replaces; logging.Metrics provides both.
type Metrics interface {
	Add(key string, delta uint64)
	Store(key string, value uint64)
}

// WrapMetrics exposes the router's telemetry registry as Metrics. A nil
// registry records nothing.
func WrapMetrics(metrics *logging.Metrics) Metrics {
	return registry{metrics: metrics}
}

type registry struct {
	metrics *logging.Metrics
}

func (r registry) Add(key string, delta uint64) {
	if r.metrics != nil {
		r.metrics.TelemetryAdd(key, delta)
	}
}

func (r registry) Store(key string, value uint64) {
	if r.metrics != nil {
		r.metrics.TelemetryStore(key, value)
	}
}

// Metric names recorded by the replication pipeline.
const (
	MetricFramesReceived  = "frames_received"
	MetricFramesDiscarded = "frames_discarded"
	MetricSnapshots       = "snapshots_applied"
	MetricBatchesApplied  = "batches_applied"
	MetricOpsApplied      = "ops_applied"
	MetricOpsIgnored      = "ops_ignored"
	MetricOpsMalformed    = "ops_malformed"
	MetricResyncs         = "resyncs_requested"
	MetricIntentsSent     = "intents_sent"
	MetricFramesRendered  = "frames_rendered"
	MetricPredictedCycles = "predicted_cycles"
)

// Counters records replication metrics through a Metrics sink. A nil
// Counters or nil sink records nothing.
type Counters struct {
	metrics Metrics
}

// NewCounters wraps metrics.
func NewCounters(metrics Metrics) *Counters {
	return &Counters{metrics: metrics}
}

func (c *Counters) add(key string, delta uint64) {
	if c == nil || c.metrics == nil || delta == 0 {
		return
	}
	c.metrics.Add(key, delta)
}

func (c *Counters) store(key string, value uint64) {
	if c == nil || c.metrics == nil {
		return
	}
	c.metrics.Store(key, value)
}

// RecordFrame counts an inbound frame, discarded or not.
func (c *Counters) RecordFrame(discarded bool) {
	c.add(MetricFramesReceived, 1)
	if discarded {
		c.add(MetricFramesDiscarded, 1)
	}
}

func (c *Counters) RecordSnapshot() {
	c.add(MetricSnapshots, 1)
}

// RecordBatch counts one applied batch and its operation outcomes.
func (c *Counters) RecordBatch(applied, ignored, malformed int) {
	c.add(MetricBatchesApplied, 1)
	c.add(MetricOpsApplied, nonNegative(applied))
	c.add(MetricOpsIgnored, nonNegative(ignored))
	c.add(MetricOpsMalformed, nonNegative(malformed))
}

// RecordJournalDrop satisfies journal.Telemetry. The journal supplies the
// full metric name.
func (c *Counters) RecordJournalDrop(metric string) {
	c.add(metric, 1)
}

func (c *Counters) RecordResync() {
	c.add(MetricResyncs, 1)
}

func (c *Counters) RecordIntent() {
	c.add(MetricIntentsSent, 1)
}

// RecordRender counts a rendered frame and stores how many cycles it
// predicted.
func (c *Counters) RecordRender(cycles int) {
	c.add(MetricFramesRendered, 1)
	c.store(MetricPredictedCycles, nonNegative(cycles))
}

func nonNegative(v int) uint64 {
	if v < 0 {
		return 0
	}
	return uint64(v)
}
