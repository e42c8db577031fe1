package workers

import (
	"context"
	"log/slog"
	"os"
	"time"

	"github.com/shirou/gopsutil/process"

	"osc-console/contract"
	"osc-console/domain"
	"osc-console/observability"
	"osc-console/wire"
)

var _ contract.Worker = (*HeartbeatWorker)(nil)

// HeartbeatWorker pings the remote endpoint while a link is up and logs
// the console's own resource usage and pipeline counters at debug level.
type HeartbeatWorker struct {
	link     contract.DatagramSender
	interval time.Duration
	probe    string
	monitor  *observability.Monitor
	log      *slog.Logger
}

func NewHeartbeatWorker(link contract.DatagramSender, interval time.Duration, probe string, monitor *observability.Monitor, log *slog.Logger) *HeartbeatWorker {
	return &HeartbeatWorker{link: link, interval: interval, probe: probe, monitor: monitor, log: log}
}

func (w *HeartbeatWorker) Run(ctx context.Context) error {
	w.log.Info("Starting heartbeat worker", "interval", w.interval)
	ticker := time.NewTicker(w.interval)
	defer ticker.Stop()

	p, err := process.NewProcess(int32(os.Getpid()))
	if err != nil {
		return err
	}

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
			w.beat()
			w.monitor.LogSnapshot()
			rss, cpu, status, err := selfStats(p)
			if err != nil {
				w.log.Debug("Failed to collect self stats", "error", err)
				continue
			}
			w.log.Debug("Self stats", "rss_bytes", rss, "cpu_percent", cpu, "status", status)
		}
	}
}

// beat sends one ping; nothing is sent while disconnected.
func (w *HeartbeatWorker) beat() {
	if !w.link.Connected() {
		return
	}
	raw, err := wire.Encode(domain.Ping(w.probe))
	if err != nil {
		w.log.Error("Unable to encode ping", "error", err)
		return
	}
	if err = w.link.Send(raw); err != nil {
		w.log.Warn("Ping failed", "error", err)
	}
}

// selfStats retrieves memory, CPU and OS status of the given process.
func selfStats(p *process.Process) (uint64, float64, string, error) {
	memInfo, err := p.MemoryInfo()
	if err != nil {
		return 0, 0, "", err
	}
	cpuPercent, err := p.CPUPercent()
	if err != nil {
		return 0, 0, "", err
	}
	status, err := p.Status()
	if err != nil {
		return 0, 0, "", err
	}
	return memInfo.RSS, cpuPercent, status, nil
}
