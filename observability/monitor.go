// Package observability counts what flows through the event pipeline.
package observability

import (
	"log/slog"
	"runtime"
	"sync/atomic"

	"github.com/prometheus/client_golang/prometheus"
)

// PipelineStats is a point-in-time copy of the pipeline counters.
type PipelineStats struct {
	Enqueued   uint64
	Dropped    uint64
	Applied    uint64
	Stale      uint64
	Failed     uint64
	Changes    uint64
	QueueSize  int
	AllocMemMb uint64
	NumGC      uint32
}

// Monitor is safe for concurrent use. Counters are mirrored into prometheus
// when a registerer was given.
type Monitor struct {
	log      *slog.Logger
	enqueued atomic.Uint64
	dropped  atomic.Uint64
	applied  atomic.Uint64
	stale    atomic.Uint64
	failed   atomic.Uint64
	changes  atomic.Uint64
	queue    atomic.Pointer[func() int]
	events   *prometheus.CounterVec
	depth    prometheus.GaugeFunc
}

func NewMonitor(reg prometheus.Registerer, log *slog.Logger) *Monitor {
	m := &Monitor{log: log}
	if reg == nil {
		return m
	}
	m.events = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: "osc_console",
		Subsystem: "pipeline",
		Name:      "events_total",
		Help:      "Inbound events by outcome",
	}, []string{"outcome"})
	m.depth = prometheus.NewGaugeFunc(prometheus.GaugeOpts{
		Namespace: "osc_console",
		Subsystem: "pipeline",
		Name:      "queue_depth",
		Help:      "Events waiting to be applied",
	}, func() float64 { return float64(m.queueSize()) })
	reg.MustRegister(m.events, m.depth)
	return m
}

// WatchQueue sets the function reporting the current queue length.
func (m *Monitor) WatchQueue(size func() int) {
	m.queue.Store(&size)
}

func (m *Monitor) IncrEnqueued() { m.incr(&m.enqueued, "enqueued") }
func (m *Monitor) IncrDropped()  { m.incr(&m.dropped, "dropped") }
func (m *Monitor) IncrApplied()  { m.incr(&m.applied, "applied") }
func (m *Monitor) IncrStale()    { m.incr(&m.stale, "stale") }
func (m *Monitor) IncrFailed()   { m.incr(&m.failed, "failed") }

// AddChanges counts StateChanged records produced by applied events.
func (m *Monitor) AddChanges(n int) {
	if n <= 0 {
		return
	}
	m.changes.Add(uint64(n))
}

func (m *Monitor) incr(counter *atomic.Uint64, outcome string) {
	counter.Add(1)
	if m.events != nil {
		m.events.WithLabelValues(outcome).Inc()
	}
}

func (m *Monitor) queueSize() int {
	if size := m.queue.Load(); size != nil {
		return (*size)()
	}
	return 0
}

func (m *Monitor) Snapshot() PipelineStats {
	var mem runtime.MemStats
	runtime.ReadMemStats(&mem)
	return PipelineStats{
		Enqueued:   m.enqueued.Load(),
		Dropped:    m.dropped.Load(),
		Applied:    m.applied.Load(),
		Stale:      m.stale.Load(),
		Failed:     m.failed.Load(),
		Changes:    m.changes.Load(),
		QueueSize:  m.queueSize(),
		AllocMemMb: mem.Alloc / 1024 / 1024,
		NumGC:      mem.NumGC,
	}
}

// LogSnapshot writes the current counters at debug level.
func (m *Monitor) LogSnapshot() {
	s := m.Snapshot()
	m.log.Debug("Pipeline stats",
		"enqueued", s.Enqueued,
		"dropped", s.Dropped,
		"applied", s.Applied,
		"stale", s.Stale,
		"failed", s.Failed,
		"changes", s.Changes,
		"queue_size", s.QueueSize,
		"mem_mb", s.AllocMemMb,
	)
}
