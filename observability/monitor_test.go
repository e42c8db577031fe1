package observability

import (
	"log/slog"
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/require"
)

func TestMonitor_Snapshot(t *testing.T) {
	req := require.New(t)
	m := NewMonitor(nil, slog.Default())
	m.WatchQueue(func() int { return 3 })

	m.IncrEnqueued()
	m.IncrEnqueued()
	m.IncrDropped()
	m.IncrApplied()
	m.IncrStale()
	m.IncrFailed()
	m.AddChanges(4)
	m.AddChanges(-1)

	s := m.Snapshot()
	req.Equal(uint64(2), s.Enqueued)
	req.Equal(uint64(1), s.Dropped)
	req.Equal(uint64(1), s.Applied)
	req.Equal(uint64(1), s.Stale)
	req.Equal(uint64(1), s.Failed)
	req.Equal(uint64(4), s.Changes)
	req.Equal(3, s.QueueSize)
}

func TestMonitor_Mirrors_Into_Prometheus(t *testing.T) {
	req := require.New(t)
	reg := prometheus.NewRegistry()
	m := NewMonitor(reg, slog.Default())
	m.WatchQueue(func() int { return 7 })

	m.IncrEnqueued()
	m.IncrDropped()
	m.IncrDropped()

	req.Equal(1.0, testutil.ToFloat64(m.events.WithLabelValues("enqueued")))
	req.Equal(2.0, testutil.ToFloat64(m.events.WithLabelValues("dropped")))
	req.Equal(7.0, testutil.ToFloat64(m.depth))
}
