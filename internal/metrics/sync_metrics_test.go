package metrics

import (
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	dto "github.com/prometheus/client_model/go"
)

func TestNewSyncMetrics(t *testing.T) {
	metrics := NewSyncMetrics()

	if metrics == nil {
		t.Fatal("NewSyncMetrics should not return nil")
	}
	if metrics.cyclesTotal == nil {
		t.Error("cyclesTotal counter vec should not be nil")
	}
	if metrics.cycleDuration == nil {
		t.Error("cycleDuration histogram vec should not be nil")
	}
	if metrics.activeCycles == nil {
		t.Error("activeCycles gauge should not be nil")
	}
	if metrics.fetchesTotal == nil {
		t.Error("fetchesTotal counter vec should not be nil")
	}
	if metrics.throttleWait == nil {
		t.Error("throttleWait histogram should not be nil")
	}
	if metrics.slotUpsertsTotal == nil {
		t.Error("slotUpsertsTotal counter vec should not be nil")
	}
	if metrics.paxSkipped == nil {
		t.Error("paxSkipped counter should not be nil")
	}
}

func TestNewSyncMetrics_ReusesRegisteredCollectors(t *testing.T) {
	reg := prometheus.NewRegistry()

	first := NewSyncMetricsWithRegisterer(reg)
	second := NewSyncMetricsWithRegisterer(reg)

	first.RecordPaxSkipped()
	second.RecordPaxSkipped()

	if got := testutil.ToFloat64(first.paxSkipped); got != 2 {
		t.Fatalf("expected shared counter value 2, got %f", got)
	}
}

func TestRecordCycleLifecycle(t *testing.T) {
	reg := prometheus.NewRegistry()
	metrics := NewSyncMetricsWithRegisterer(reg)

	metrics.RecordCycleStarted()
	metrics.RecordCycleStarted()
	metrics.RecordCycleFinished("syncToday", CycleResultOK, 2*time.Second)

	gaugeMetric := &dto.Metric{}
	if err := metrics.activeCycles.Write(gaugeMetric); err != nil {
		t.Fatalf("failed to write gauge: %v", err)
	}
	if gaugeMetric.Gauge.GetValue() != 1.0 {
		t.Errorf("expected active cycles 1.0, got %f", gaugeMetric.Gauge.GetValue())
	}

	if got := testutil.ToFloat64(metrics.cyclesTotal.WithLabelValues("syncToday", CycleResultOK)); got != 1 {
		t.Errorf("expected 1 ok cycle, got %f", got)
	}

	metrics.RecordCycleSkipped("syncNext7Days")
	if got := testutil.ToFloat64(metrics.cyclesTotal.WithLabelValues("syncNext7Days", CycleResultSkipped)); got != 1 {
		t.Errorf("expected 1 skipped cycle, got %f", got)
	}
}

func TestRecordCycleFinished_AdhocLabel(t *testing.T) {
	reg := prometheus.NewRegistry()
	metrics := NewSyncMetricsWithRegisterer(reg)

	metrics.RecordCycleStarted()
	metrics.RecordCycleFinished("", CycleResultPartial, time.Second)

	if got := testutil.ToFloat64(metrics.cyclesTotal.WithLabelValues("adhoc", CycleResultPartial)); got != 1 {
		t.Errorf("expected adhoc label, got %f", got)
	}
}

func TestRecordSlotUpsert(t *testing.T) {
	reg := prometheus.NewRegistry()
	metrics := NewSyncMetricsWithRegisterer(reg)

	metrics.RecordSlotUpsert(true, 10*time.Millisecond)
	metrics.RecordSlotUpsert(true, 20*time.Millisecond)
	metrics.RecordSlotUpsert(false, 30*time.Millisecond)

	if got := testutil.ToFloat64(metrics.slotUpsertsTotal.WithLabelValues("ok")); got != 2 {
		t.Errorf("expected 2 ok upserts, got %f", got)
	}
	if got := testutil.ToFloat64(metrics.slotUpsertsTotal.WithLabelValues("error")); got != 1 {
		t.Errorf("expected 1 failed upsert, got %f", got)
	}

	metric := &dto.Metric{}
	if err := metrics.slotUpsertDuration.Write(metric); err != nil {
		t.Fatalf("failed to write metric: %v", err)
	}
	if metric.Histogram.GetSampleCount() != 3 {
		t.Errorf("expected 3 samples, got %d", metric.Histogram.GetSampleCount())
	}
}

func TestRecordFetchAndThrottleWait(t *testing.T) {
	reg := prometheus.NewRegistry()
	metrics := NewSyncMetricsWithRegisterer(reg)

	metrics.RecordFetch("ok")
	metrics.RecordFetch("error")
	metrics.RecordFetch("error")
	metrics.RecordThrottleWait(2100 * time.Millisecond)

	if got := testutil.ToFloat64(metrics.fetchesTotal.WithLabelValues("error")); got != 2 {
		t.Errorf("expected 2 failed fetches, got %f", got)
	}

	metric := &dto.Metric{}
	if err := metrics.throttleWait.Write(metric); err != nil {
		t.Fatalf("failed to write metric: %v", err)
	}
	sum := metric.Histogram.GetSampleSum()
	if sum < 2.0 || sum > 2.2 {
		t.Errorf("expected sum around 2.1, got %f", sum)
	}
}
