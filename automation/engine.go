// Package automation reacts to committed state changes with the auto-greet and
// auto-pin rules. Auto-pin recomputations are coalesced by a batch window and
// run on the engine's own supervised goroutine.
package automation

import (
	"cmp"
	"context"
	"fmt"
	"log/slog"
	"slices"
	"sync"
	"sync/atomic"
	"time"

	"github.com/samber/lo"

	"osc-console/contract"
	"osc-console/domain"
	"osc-console/domain/event"
)

var (
	_ contract.EventSink = (*Engine)(nil)
	_ contract.Worker    = (*Engine)(nil)
)

type Engine struct {
	mu       sync.RWMutex
	settings Settings

	reader contract.StateReader
	writer contract.StateWriter
	sender contract.CommandSender
	log    *slog.Logger

	window  time.Duration
	trigger chan uint64
	// generation is bumped by Discard, pending and running work of an older
	// generation is abandoned.
	generation atomic.Uint64
	updates    atomic.Int64
}

func NewEngine(
	settings Settings,
	reader contract.StateReader,
	writer contract.StateWriter,
	sender contract.CommandSender,
	window time.Duration,
	log *slog.Logger) *Engine {
	settings = settings.clone()
	settings.MaxPinned = ClampPinned(settings.MaxPinned)
	return &Engine{
		settings: settings,
		reader:   reader,
		writer:   writer,
		sender:   sender,
		log:      log,
		window:   window,
		trigger:  make(chan uint64, 1),
	}
}

// Consume runs on the publishing goroutine: greetings are sent inline,
// pin recomputation is only scheduled.
func (e *Engine) Consume(_ context.Context, evt event.StateChanged) error {
	settings := e.Settings()
	var err error
	if settings.AutoGreet && evt.Has(event.Joined) {
		err = e.Greet(evt.Participant)
	}
	if settings.AutoPin && evt.HasAny(event.Joined, event.Left, event.PinChanged) {
		e.schedule()
	}
	return err
}

func (e *Engine) schedule() {
	select {
	case e.trigger <- e.generation.Load():
	default:
		// A recomputation is already pending.
	}
}

// Run arms the batch window on the first trigger and recomputes once when it
// expires, whatever the number of triggers received meanwhile.
func (e *Engine) Run(ctx context.Context) error {
	var timer *time.Timer
	var fire <-chan time.Time
	var armed uint64
	defer func() {
		if timer != nil {
			timer.Stop()
		}
	}()

	for {
		select {
		case <-ctx.Done():
			e.log.Debug("Stopping worker")
			return ctx.Err()
		case generation := <-e.trigger:
			if fire != nil && generation == armed {
				continue
			}
			if timer != nil {
				timer.Stop()
			}
			armed = generation
			timer = time.NewTimer(e.window)
			fire = timer.C
		case <-fire:
			fire = nil
			if armed != e.generation.Load() {
				continue
			}
			if err := e.RecomputePins(ctx); err != nil {
				e.log.Warn("Auto-pin incomplete", "error", err)
			}
		}
	}
}

// Discard abandons any pending or in-flight recomputation.
func (e *Engine) Discard() {
	e.generation.Add(1)
	select {
	case <-e.trigger:
	default:
	}
}

// Greet sends the greeting selected for p.
func (e *Engine) Greet(p domain.Participant) error {
	msg := greetingFor(p, e.Settings())
	if err := e.sender.Send(domain.ChatUser(p.Name, msg)); err != nil {
		return fmt.Errorf("greet %s: %w", p.Name, err)
	}
	e.log.Debug("Greeted participant", "name", p.Name, "greeting", msg)
	return nil
}

// greetingFor walks the pin priority in order, then falls back to the default greeting.
func greetingFor(p domain.Participant, s Settings) string {
	for _, tag := range s.PinPriority {
		if msg, ok := s.Greetings[tag]; ok && p.HasTag(tag) {
			return msg
		}
	}
	if msg, ok := s.Greetings[DefaultGreetingKey]; ok {
		return msg
	}
	return fallbackGreeting
}

// RecomputePins converges the remote pin set to the priority selection.
// Pin state is recorded only for commands that were sent.
func (e *Engine) RecomputePins(ctx context.Context) error {
	settings := e.Settings()
	if !settings.AutoPin {
		return nil
	}
	generation := e.generation.Load()

	selected := SelectPins(e.reader.ListOnline(), settings.PinPriority, settings.MaxPinned)
	current := lo.Map(e.reader.ListPinned(), func(p domain.Participant, _ int) string { return p.Name })
	if slices.Equal(slices.Sorted(slices.Values(selected)), current) {
		return nil
	}
	e.updates.Add(1)
	e.log.Info("Updating pins", "from", current, "to", selected)

	var firstErr error
	send := func(cmd domain.Command, name string, pinned bool) bool {
		if ctx.Err() != nil || generation != e.generation.Load() {
			return false
		}
		if err := e.sender.Send(cmd); err != nil {
			e.log.Warn("Pin command failed", "command", cmd.Address, "error", err)
			if firstErr == nil {
				firstErr = err
			}
			return true
		}
		if err := e.writer.SetPinned(ctx, name, pinned); err != nil {
			e.log.Warn("Cannot record pin state", "name", name, "error", err)
		}
		return true
	}

	for _, name := range current {
		if !send(domain.Unpin(name), name, false) {
			return ctx.Err()
		}
	}
	for i, name := range selected {
		cmd := domain.AddPin(name)
		if i == 0 {
			cmd = domain.Pin(name)
		}
		if !send(cmd, name, true) {
			return ctx.Err()
		}
	}
	return firstErr
}

// SelectPins walks the priority tags in order and greedily picks online
// participants holding them, name-sorted, without duplicates, up to limit.
func SelectPins(online []domain.Participant, priority []string, limit int) []string {
	sorted := slices.Clone(online)
	slices.SortStableFunc(sorted, func(a, b domain.Participant) int {
		return cmp.Compare(a.Name, b.Name)
	})

	var selected []string
	for _, tag := range priority {
		for _, p := range sorted {
			if len(selected) >= limit {
				return selected
			}
			if p.Online && p.HasTag(tag) && !slices.Contains(selected, p.Name) {
				selected = append(selected, p.Name)
			}
		}
	}
	return selected
}

// Updates counts the recomputations that changed the pin set.
func (e *Engine) Updates() int64 {
	return e.updates.Load()
}

func (e *Engine) Settings() Settings {
	e.mu.RLock()
	defer e.mu.RUnlock()
	return e.settings.clone()
}

func (e *Engine) SetAutoPin(enabled bool) {
	e.update(func(s *Settings) { s.AutoPin = enabled }, enabled)
}

func (e *Engine) SetAutoGreet(enabled bool) {
	e.update(func(s *Settings) { s.AutoGreet = enabled }, false)
}

func (e *Engine) SetMaxPinned(n int) {
	e.update(func(s *Settings) { s.MaxPinned = ClampPinned(n) }, true)
}

func (e *Engine) AddPinPriorityTag(tag string) {
	e.update(func(s *Settings) {
		if !slices.Contains(s.PinPriority, tag) {
			s.PinPriority = append(s.PinPriority, tag)
		}
	}, true)
}

func (e *Engine) RemovePinPriorityTag(tag string) {
	e.update(func(s *Settings) {
		s.PinPriority = slices.DeleteFunc(s.PinPriority, func(t string) bool { return t == tag })
	}, true)
}

func (e *Engine) SetGreeting(tag, message string) {
	e.update(func(s *Settings) {
		if s.Greetings == nil {
			s.Greetings = make(map[string]string)
		}
		s.Greetings[tag] = message
	}, false)
}

// update applies a settings change, pin related changes schedule a
// recomputation when auto-pin is on.
func (e *Engine) update(apply func(s *Settings), reschedule bool) {
	e.mu.Lock()
	apply(&e.settings)
	autoPin := e.settings.AutoPin
	e.mu.Unlock()
	if reschedule && autoPin {
		e.schedule()
	}
}
