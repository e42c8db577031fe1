package workers

import (
	"context"
	"log/slog"

	"osc-console/contract"
	"osc-console/domain/event"
	"osc-console/errors"
	"osc-console/observability"
)

var _ contract.Worker = (*ApplyWorker)(nil)

// ApplyWorker is the single writer of the store: it drains inbound events
// in arrival order, one at a time.
type ApplyWorker struct {
	applier contract.Applier
	events  <-chan event.Envelope
	monitor *observability.Monitor
	log     *slog.Logger
}

func NewApplyWorker(applier contract.Applier, events <-chan event.Envelope, monitor *observability.Monitor, log *slog.Logger) *ApplyWorker {
	return &ApplyWorker{applier: applier, events: events, monitor: monitor, log: log}
}

func (w *ApplyWorker) Run(ctx context.Context) error {
	for {
		select {
		case <-ctx.Done():
			w.log.Debug("Stopping apply worker")
			return ctx.Err()
		case envelope, ok := <-w.events:
			if !ok {
				w.log.Debug("Event channel is closed")
				return nil
			}
			w.apply(ctx, envelope)
		}
	}
}

func (w *ApplyWorker) apply(ctx context.Context, envelope event.Envelope) {
	changes, err := w.applier.ApplyForSession(ctx, envelope.SessionID, envelope.Event)
	switch {
	case errors.Is(err, errors.ErrStaleSession):
		w.monitor.IncrStale()
		w.log.Debug("Dropping event from a closed session", "type", envelope.Event.EventType(), "session", envelope.SessionID)
	case err != nil:
		w.monitor.IncrFailed()
		w.log.Warn("Unable to apply event", "type", envelope.Event.EventType(), "error", err)
	default:
		w.monitor.IncrApplied()
		w.monitor.AddChanges(len(changes))
		w.log.Debug("Event applied", "type", envelope.Event.EventType(), "changes", len(changes))
	}
}
