package telemetry

import (
	"bytes"
	"log"
	"testing"

	"webtron/client/logging"
)

func TestWrapLogger(t *testing.T) {
	t.Run("nil logger", func(t *testing.T) {
		logger := WrapLogger(nil)
		logger.Printf("ignored %d", 42)
	})

	t.Run("forwards to logger", func(t *testing.T) {
		var buf bytes.Buffer
		base := log.New(&buf, "", 0)
		logger := WrapLogger(base)
		logger.Printf("hello %s", "world")
		if got := buf.String(); got != "hello world\n" {
			t.Fatalf("unexpected log output: %q", got)
		}
	})
}

func TestWrapMetrics(t *testing.T) {
	metrics := logging.Metrics{}
	adapter := WrapMetrics(&metrics)

	adapter.Add("test_counter", 2)
	adapter.Store("test_counter", 5)
	adapter.Add("test_counter", 3)

	snapshot := metrics.Snapshot()
	if got := snapshot["test_counter"]; got != 8 {
		t.Fatalf("unexpected metric value: %d", got)
	}

	var nilAdapter Metrics = WrapMetrics(nil)
	nilAdapter.Add("ignored", 1)
	nilAdapter.Store("ignored", 1)
}

func TestCountersRecordReplication(t *testing.T) {
	metrics := &logging.Metrics{}
	counters := NewCounters(WrapMetrics(metrics))

	counters.RecordFrame(false)
	counters.RecordFrame(true)
	counters.RecordBatch(3, 1, 0)
	counters.RecordJournalDrop("journal_drop_gap")
	counters.RecordRender(4)
	counters.RecordRender(2)

	snapshot := metrics.Snapshot()
	expect := map[string]uint64{
		MetricFramesReceived:  2,
		MetricFramesDiscarded: 1,
		MetricBatchesApplied:  1,
		MetricOpsApplied:      3,
		MetricOpsIgnored:      1,
		"journal_drop_gap":    1,
		MetricFramesRendered:  2,
		MetricPredictedCycles: 2,
	}
	for key, want := range expect {
		if got := snapshot[key]; got != want {
			t.Fatalf("expected %s=%d, got %d", key, want, got)
		}
	}
	if _, ok := snapshot[MetricOpsMalformed]; ok {
		t.Fatalf("expected zero deltas to be skipped")
	}

	var nilCounters *Counters
	nilCounters.RecordResync()
}
