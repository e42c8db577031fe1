// Package runtime wires the event pipeline: transport, router, store,
// subscribers and workers. It holds no reconciliation or automation rules.
package runtime

import (
	"context"
	"fmt"
	"log/slog"
	"net"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus"

	"osc-console/automation"
	"osc-console/contract"
	"osc-console/domain"
	"osc-console/domain/event"
	"osc-console/errors"
	"osc-console/observability"
	"osc-console/router"
	"osc-console/runtime/workers"
	"osc-console/state"
	"osc-console/transport"
)

const heartbeatProbe = "osc-console"

type Settings struct {
	Host              string
	ReceivePort       int
	SendPort          int
	BufferSize        int
	SettleDelay       time.Duration
	HeartbeatInterval time.Duration
	BatchWindow       time.Duration
	Automation        automation.Settings
}

// Orchestrator owns the connection lifecycle. Inbound datagrams are routed
// on the receive goroutine and queued; a single ApplyWorker drains the queue.
type Orchestrator struct {
	mu         sync.Mutex
	log        *slog.Logger
	settings   Settings
	supervisor contract.ISupervisor
	registry   *Registry
	store      *state.Store
	transport  *transport.Transport
	router     *router.Router
	commander  *Commander
	engine     *automation.Engine
	chats      contract.ChatRepository
	index      contract.ChatIndex
	monitor    *observability.Monitor
	events     chan event.Envelope
	session    atomic.Pointer[uuid.UUID]
}

// NewOrchestrator builds the transport, the commander and the automation
// engine around store. The engine is the first subscriber of registry.
func NewOrchestrator(
	settings Settings,
	store *state.Store,
	registry *Registry,
	supervisor contract.ISupervisor,
	chats contract.ChatRepository,
	index contract.ChatIndex,
	reg prometheus.Registerer,
	log *slog.Logger,
) *Orchestrator {
	o := &Orchestrator{
		log:        log,
		settings:   settings,
		supervisor: supervisor,
		registry:   registry,
		store:      store,
		router:     router.New(log),
		chats:      chats,
		index:      index,
		monitor:    observability.NewMonitor(reg, log),
		events:     make(chan event.Envelope, settings.BufferSize),
	}
	o.monitor.WatchQueue(func() int { return len(o.events) })
	o.transport = transport.New(o.receive, reg, log)
	o.commander = NewCommander(o.transport, store, store, log)
	o.engine = automation.NewEngine(settings.Automation, store, store, o.commander, settings.BatchWindow, log)
	registry.Subscribe("automation", o.engine)
	return o
}

// Subscribe registers a sink after the automation engine, in call order.
func (o *Orchestrator) Subscribe(name string, sink contract.EventSink) {
	o.registry.Subscribe(name, sink)
}

// Start runs every worker under supervision and blocks until ctx is done.
func (o *Orchestrator) Start(ctx context.Context) {
	o.mu.Lock()
	o.supervisor.Add(workers.NewApplyWorker(o.store, o.events, o.monitor, o.log))
	o.supervisor.Add(o.engine)
	if o.settings.HeartbeatInterval > 0 {
		o.supervisor.Add(workers.NewHeartbeatWorker(o.transport, o.settings.HeartbeatInterval, heartbeatProbe, o.monitor, o.log))
	}
	o.mu.Unlock()

	o.log.Info("Starting orchestrator and all supervised workers", "subscribers", o.registry.Names())
	o.supervisor.Run(ctx)
}

// Connect binds the transport, opens a new session and asks the remote
// side for its participant list. A live link is torn down first.
func (o *Orchestrator) Connect(ctx context.Context) error {
	o.mu.Lock()
	defer o.mu.Unlock()

	o.disconnect(ctx)
	if err := o.transport.Connect(ctx, o.settings.Host, o.settings.ReceivePort, o.settings.SendPort); err != nil {
		return err
	}
	session := o.store.StartSession()
	o.session.Store(&session.ID)
	o.log.Info("Connected",
		"host", o.settings.Host,
		"receive_port", o.settings.ReceivePort,
		"send_port", o.settings.SendPort,
		"session_id", session.ID)

	if err := o.handshake(ctx); err != nil {
		o.log.Warn("Handshake failed, tearing the link down", "error", err)
		o.disconnect(ctx)
		return err
	}
	return nil
}

// handshake subscribes to the bus, waits for it to settle and asks for the list.
func (o *Orchestrator) handshake(ctx context.Context) error {
	if err := o.commander.Subscribe(true); err != nil {
		return err
	}
	if err := o.commander.GalleryTracking(true); err != nil {
		return err
	}
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-time.After(o.settings.SettleDelay):
	}
	return o.commander.RequestList()
}

// Disconnect archives the session, drops queued events and pending
// automation, then releases the sockets. Safe to call when disconnected.
func (o *Orchestrator) Disconnect(ctx context.Context) {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.disconnect(ctx)
}

func (o *Orchestrator) disconnect(ctx context.Context) {
	if id := o.session.Swap(nil); id != nil {
		if err := o.store.EndSession(ctx, *id); err != nil {
			o.log.Warn("Unable to archive session", "session_id", *id, "error", err)
		}
		o.log.Info("Disconnected", "session_id", *id)
	}
	o.engine.Discard()
	o.transport.Stop()
	o.drain()
}

func (o *Orchestrator) drain() {
	dropped := 0
	for {
		select {
		case <-o.events:
			dropped++
		default:
			if dropped > 0 {
				o.log.Debug("Discarded undelivered events", "count", dropped)
			}
			return
		}
	}
}

// Stop disconnects and cancels the supervised workers.
func (o *Orchestrator) Stop(ctx context.Context) {
	o.log.Info("Requesting orchestrator shutdown")
	o.Disconnect(ctx)
	o.supervisor.Stop()
}

// receive runs on the transport's read goroutine.
func (o *Orchestrator) receive(data []byte) {
	id := o.session.Load()
	if id == nil {
		o.log.Debug("Datagram received outside a session, dropping")
		return
	}
	for _, evt := range o.router.Route(data) {
		select {
		case o.events <- event.Envelope{SessionID: *id, Event: evt}:
			o.monitor.IncrEnqueued()
		default:
			o.monitor.IncrDropped()
			o.log.Warn("Event channel full, dropping event", "type", evt.EventType())
		}
	}
}

// HandleAction executes an action picked from a notification.
func (o *Orchestrator) HandleAction(ctx context.Context, action domain.NotificationAction, participantID uuid.UUID) error {
	p, ok := o.store.GetByID(participantID)
	if !ok {
		return fmt.Errorf("%w: %s", errors.ErrUnknownParticipant, participantID)
	}
	switch action {
	case domain.ActionPinParticipant:
		return o.commander.Pin(ctx, p.Name)
	case domain.ActionSendGreeting:
		return o.engine.Greet(p)
	case domain.ActionLowerHand:
		return o.commander.LowerHand(p.Name)
	default:
		return fmt.Errorf("%w: %s", errors.ErrUnknownAction, action)
	}
}

// SearchChat runs a full-text query over persisted chat messages, best match first.
func (o *Orchestrator) SearchChat(ctx context.Context, text string, limit int) ([]domain.ChatMessage, error) {
	if o.index == nil || o.chats == nil {
		return nil, nil
	}
	ids, err := o.index.Search(ctx, text, limit)
	if err != nil {
		return nil, err
	}
	messages := make([]domain.ChatMessage, 0, len(ids))
	for _, id := range ids {
		msg, err := o.chats.Get(id)
		if errors.Is(err, errors.ErrNotFound) {
			continue
		}
		if err != nil {
			return nil, err
		}
		messages = append(messages, msg)
	}
	return messages, nil
}

func (o *Orchestrator) Connected() bool {
	return o.transport.Connected()
}

// Addr is the bound receive address, nil while disconnected.
func (o *Orchestrator) Addr() *net.UDPAddr {
	return o.transport.Addr()
}

func (o *Orchestrator) Commander() *Commander {
	return o.commander
}

func (o *Orchestrator) Engine() *automation.Engine {
	return o.engine
}

func (o *Orchestrator) Store() *state.Store {
	return o.store
}

func (o *Orchestrator) Stats() observability.PipelineStats {
	return o.monitor.Snapshot()
}
