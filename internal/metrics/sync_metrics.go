package metrics

import (
	"fmt"
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// Результаты цикла синхронизации для label "result".
const (
	CycleResultOK      = "ok"
	CycleResultPartial = "partial"
	CycleResultFailed  = "failed"
	CycleResultSkipped = "skipped"
)

const adhocJobLabel = "adhoc"

// SyncMetrics содержит метрики движка синхронизации инвентаря.
type SyncMetrics struct {
	// Циклы
	cyclesTotal   *prometheus.CounterVec
	cycleDuration *prometheus.HistogramVec
	activeCycles  prometheus.Gauge

	// Запросы к провайдеру
	fetchesTotal *prometheus.CounterVec
	throttleWait prometheus.Histogram

	// Запись слотов
	slotUpsertsTotal   *prometheus.CounterVec
	slotUpsertDuration prometheus.Histogram
	paxSkipped         prometheus.Counter
}

// NewSyncMetrics создаёт метрики в глобальном registry.
func NewSyncMetrics() *SyncMetrics {
	return NewSyncMetricsWithRegisterer(prometheus.DefaultRegisterer)
}

// NewSyncMetricsWithRegisterer создаёт метрики в переданном registry.
// Повторная регистрация возвращает уже существующие коллекторы.
func NewSyncMetricsWithRegisterer(registerer prometheus.Registerer) *SyncMetrics {
	if registerer == nil {
		registerer = prometheus.DefaultRegisterer
	}

	return &SyncMetrics{
		cyclesTotal: registerCounterVec(registerer, prometheus.CounterOpts{
			Name: "inventory_sync_cycles_total",
			Help: "Total number of inventory sync cycles grouped by job and result",
		}, []string{"job", "result"}),
		cycleDuration: registerHistogramVec(registerer, prometheus.HistogramOpts{
			Name:    "inventory_sync_cycle_duration_seconds",
			Help:    "Duration of inventory sync cycles in seconds",
			Buckets: []float64{1, 5, 15, 30, 60, 120, 300, 600, 1200, 2400},
		}, []string{"job"}),
		activeCycles: registerGauge(registerer, prometheus.GaugeOpts{
			Name: "inventory_sync_active_cycles",
			Help: "Number of currently running inventory sync cycles",
		}),
		fetchesTotal: registerCounterVec(registerer, prometheus.CounterOpts{
			Name: "inventory_sync_provider_fetches_total",
			Help: "Total number of upstream inventory fetches grouped by result",
		}, []string{"result"}),
		throttleWait: registerHistogram(registerer, prometheus.HistogramOpts{
			Name:    "inventory_sync_throttle_wait_seconds",
			Help:    "Time spent waiting for the provider rate limiter",
			Buckets: []float64{0.01, 0.1, 0.5, 1, 2.1, 5, 15, 30, 60, 120, 300},
		}),
		slotUpsertsTotal: registerCounterVec(registerer, prometheus.CounterOpts{
			Name: "inventory_sync_slot_upserts_total",
			Help: "Total number of slot upsert transactions grouped by result",
		}, []string{"result"}),
		slotUpsertDuration: registerHistogram(registerer, prometheus.HistogramOpts{
			Name:    "inventory_sync_slot_upsert_duration_seconds",
			Help:    "Duration of a single slot upsert transaction",
			Buckets: []float64{0.001, 0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1.0, 2.5, 5.0},
		}),
		paxSkipped: registerCounter(registerer, prometheus.CounterOpts{
			Name: "inventory_sync_pax_skipped_total",
			Help: "Total number of pax entries skipped because of a non-string type",
		}),
	}
}

func registerCounter(registerer prometheus.Registerer, opts prometheus.CounterOpts) prometheus.Counter {
	collector := prometheus.NewCounter(opts)
	if err := registerer.Register(collector); err != nil {
		if alreadyRegistered, ok := err.(prometheus.AlreadyRegisteredError); ok {
			existing, ok := alreadyRegistered.ExistingCollector.(prometheus.Counter)
			if !ok {
				panic(fmt.Sprintf("collector %q already registered with unexpected type", opts.Name))
			}
			return existing
		}
		panic(fmt.Sprintf("register counter %q: %v", opts.Name, err))
	}
	return collector
}

func registerCounterVec(registerer prometheus.Registerer, opts prometheus.CounterOpts, labels []string) *prometheus.CounterVec {
	collector := prometheus.NewCounterVec(opts, labels)
	if err := registerer.Register(collector); err != nil {
		if alreadyRegistered, ok := err.(prometheus.AlreadyRegisteredError); ok {
			existing, ok := alreadyRegistered.ExistingCollector.(*prometheus.CounterVec)
			if !ok {
				panic(fmt.Sprintf("collector %q already registered with unexpected type", opts.Name))
			}
			return existing
		}
		panic(fmt.Sprintf("register counter vec %q: %v", opts.Name, err))
	}
	return collector
}

func registerGauge(registerer prometheus.Registerer, opts prometheus.GaugeOpts) prometheus.Gauge {
	collector := prometheus.NewGauge(opts)
	if err := registerer.Register(collector); err != nil {
		if alreadyRegistered, ok := err.(prometheus.AlreadyRegisteredError); ok {
			existing, ok := alreadyRegistered.ExistingCollector.(prometheus.Gauge)
			if !ok {
				panic(fmt.Sprintf("collector %q already registered with unexpected type", opts.Name))
			}
			return existing
		}
		panic(fmt.Sprintf("register gauge %q: %v", opts.Name, err))
	}
	return collector
}

func registerHistogram(registerer prometheus.Registerer, opts prometheus.HistogramOpts) prometheus.Histogram {
	collector := prometheus.NewHistogram(opts)
	if err := registerer.Register(collector); err != nil {
		if alreadyRegistered, ok := err.(prometheus.AlreadyRegisteredError); ok {
			existing, ok := alreadyRegistered.ExistingCollector.(prometheus.Histogram)
			if !ok {
				panic(fmt.Sprintf("collector %q already registered with unexpected type", opts.Name))
			}
			return existing
		}
		panic(fmt.Sprintf("register histogram %q: %v", opts.Name, err))
	}
	return collector
}

func registerHistogramVec(registerer prometheus.Registerer, opts prometheus.HistogramOpts, labels []string) *prometheus.HistogramVec {
	collector := prometheus.NewHistogramVec(opts, labels)
	if err := registerer.Register(collector); err != nil {
		if alreadyRegistered, ok := err.(prometheus.AlreadyRegisteredError); ok {
			existing, ok := alreadyRegistered.ExistingCollector.(*prometheus.HistogramVec)
			if !ok {
				panic(fmt.Sprintf("collector %q already registered with unexpected type", opts.Name))
			}
			return existing
		}
		panic(fmt.Sprintf("register histogram vec %q: %v", opts.Name, err))
	}
	return collector
}

func jobLabel(job string) string {
	if job == "" {
		return adhocJobLabel
	}
	return job
}

// RecordCycleStarted увеличивает количество активных циклов.
func (m *SyncMetrics) RecordCycleStarted() {
	m.activeCycles.Inc()
}

// RecordCycleFinished фиксирует результат и длительность цикла.
func (m *SyncMetrics) RecordCycleFinished(job, result string, duration time.Duration) {
	m.activeCycles.Dec()
	m.cyclesTotal.WithLabelValues(jobLabel(job), result).Inc()
	m.cycleDuration.WithLabelValues(jobLabel(job)).Observe(duration.Seconds())
}

// RecordCycleSkipped фиксирует пропуск выключенной задачи.
func (m *SyncMetrics) RecordCycleSkipped(job string) {
	m.cyclesTotal.WithLabelValues(jobLabel(job), CycleResultSkipped).Inc()
}

// RecordFetch фиксирует результат запроса к провайдеру: ok, empty или error.
func (m *SyncMetrics) RecordFetch(result string) {
	m.fetchesTotal.WithLabelValues(result).Inc()
}

// RecordThrottleWait записывает время ожидания ограничителя.
func (m *SyncMetrics) RecordThrottleWait(wait time.Duration) {
	m.throttleWait.Observe(wait.Seconds())
}

// RecordSlotUpsert фиксирует результат и длительность транзакции слота.
func (m *SyncMetrics) RecordSlotUpsert(ok bool, duration time.Duration) {
	result := "ok"
	if !ok {
		result = "error"
	}
	m.slotUpsertsTotal.WithLabelValues(result).Inc()
	m.slotUpsertDuration.Observe(duration.Seconds())
}

// RecordPaxSkipped увеличивает счётчик пропущенных записей pax.
func (m *SyncMetrics) RecordPaxSkipped() {
	m.paxSkipped.Inc()
}
