package runtime

import (
	"context"
	"log/slog"
	"sync"

	"osc-console/contract"
	"osc-console/domain/event"
)

var _ contract.IRegistry = (*Registry)(nil)

type subscription struct {
	name string
	sink contract.EventSink
}

// Registry is the state change bus. Sinks are invoked synchronously, in
// registration order, on the publishing goroutine.
type Registry struct {
	mu    sync.RWMutex
	sinks []subscription
	log   *slog.Logger
}

func NewRegistry(log *slog.Logger) *Registry {
	return &Registry{log: log}
}

// Subscribe registers a sink under a unique name. Subscribing an existing name
// replaces its sink in place, keeping its position.
func (r *Registry) Subscribe(name string, sink contract.EventSink) {
	r.mu.Lock()
	defer r.mu.Unlock()

	for i, s := range r.sinks {
		if s.name == name {
			r.sinks[i].sink = sink
			return
		}
	}
	r.sinks = append(r.sinks, subscription{name: name, sink: sink})
}

func (r *Registry) Unsubscribe(name string) {
	r.mu.Lock()
	defer r.mu.Unlock()

	for i, s := range r.sinks {
		if s.name == name {
			r.sinks = append(r.sinks[:i:i], r.sinks[i+1:]...)
			return
		}
	}
}

// Publish delivers e to every sink. A failing sink is logged and does not
// prevent delivery to the following ones.
func (r *Registry) Publish(ctx context.Context, e event.StateChanged) {
	r.mu.RLock()
	sinks := make([]subscription, len(r.sinks))
	copy(sinks, r.sinks)
	r.mu.RUnlock()

	for _, s := range sinks {
		if err := s.sink.Consume(ctx, e); err != nil {
			r.log.Error("Sink failed", "sink", s.name, "participant", e.Participant.Name, "kinds", e.Kinds, "error", err)
		}
	}
}

// Names lists the subscribed sinks in delivery order.
func (r *Registry) Names() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()

	names := make([]string, 0, len(r.sinks))
	for _, s := range r.sinks {
		names = append(names, s.name)
	}
	return names
}
