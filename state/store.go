// Package state holds the authoritative in-memory mirror of the meeting.
// The Store is the only component mutating participants, messages and the
// session; every committed mutation is published as an event.StateChanged.
package state

import (
	"context"
	"fmt"
	"log/slog"
	"slices"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"

	"osc-console/contract"
	"osc-console/domain"
	"osc-console/domain/event"
	"osc-console/errors"
)

var (
	_ contract.StateReader = (*Store)(nil)
	_ contract.StateWriter = (*Store)(nil)
	_ contract.Applier     = (*Store)(nil)
)

type Store struct {
	// writeMu linearizes mutations together with their notification.
	writeMu sync.Mutex
	// mu guards the collections, readers never wait for subscribers.
	mu           sync.RWMutex
	participants map[string]*domain.Participant
	messages     []domain.ChatMessage
	session      *domain.Session

	tagger    *domain.Tagger
	history   contract.ParticipantRepository
	inspector contract.ChatInspector
	publisher contract.Publisher
	log       *slog.Logger
	now       func() time.Time
}

type Option func(*Store)

// WithInspector enriches new chat messages with language and watched keywords.
func WithInspector(inspector contract.ChatInspector) Option {
	return func(s *Store) { s.inspector = inspector }
}

// WithHistory carries join count, last activity and last seen session of
// participants met in earlier sessions over to their new record.
func WithHistory(history contract.ParticipantRepository) Option {
	return func(s *Store) { s.history = history }
}

func WithClock(now func() time.Time) Option {
	return func(s *Store) { s.now = now }
}

func NewStore(tagger *domain.Tagger, publisher contract.Publisher, log *slog.Logger, opts ...Option) *Store {
	s := &Store{
		participants: make(map[string]*domain.Participant),
		tagger:       tagger,
		publisher:    publisher,
		log:          log,
		now:          func() time.Time { return time.Now().UTC() },
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Apply reconciles one inbound event and returns the committed changes.
// An event that changes nothing returns no change and publishes nothing.
func (s *Store) Apply(ctx context.Context, evt event.Event) ([]event.StateChanged, error) {
	s.writeMu.Lock()
	defer s.writeMu.Unlock()
	return s.apply(ctx, evt)
}

// ApplyForSession only applies evt while sessionID is the active session.
func (s *Store) ApplyForSession(ctx context.Context, sessionID uuid.UUID, evt event.Event) ([]event.StateChanged, error) {
	s.writeMu.Lock()
	defer s.writeMu.Unlock()

	s.mu.RLock()
	current := s.session != nil && s.session.Active && s.session.ID == sessionID
	s.mu.RUnlock()
	if !current {
		return nil, fmt.Errorf("%w: %s", errors.ErrStaleSession, sessionID)
	}
	return s.apply(ctx, evt)
}

func (s *Store) apply(ctx context.Context, evt event.Event) ([]event.StateChanged, error) {
	var changes []event.StateChanged
	switch e := evt.(type) {
	case event.ParticipantUpdate:
		if change, ok := s.upsert(e.Name, func(p *domain.Participant) { mergeUpdate(p, e) }); ok {
			changes = append(changes, change)
		}
	case event.ChatReceived:
		changes = append(changes, s.addMessage(e))
	case event.GalleryCount:
		s.setActiveCount(e.Count)
	case event.ListCleared:
		changes = s.clearList()
	default:
		return nil, fmt.Errorf("%w: %T", errors.ErrUnknownEvent, evt)
	}
	s.publish(ctx, changes)
	return changes, nil
}

func mergeUpdate(p *domain.Participant, e event.ParticipantUpdate) {
	if e.Online != nil {
		p.Online = *e.Online
	}
	if e.Muted != nil {
		p.Muted = *e.Muted
	}
	if e.HandRaised != nil {
		p.HandRaised = *e.HandRaised
	}
	if e.HasVideo != nil {
		p.HasVideo = *e.HasVideo
	}
	if e.Role != nil {
		p.Role = *e.Role
	}
}

// upsert creates or merges the participant named name, recomputes its tags
// and classifies the transition. The returned bool is false when nothing changed.
func (s *Store) upsert(name string, mutate func(p *domain.Participant)) (event.StateChanged, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	var prior *domain.Participant
	next := domain.NewParticipant(name)
	if existing, ok := s.participants[name]; ok {
		snapshot := existing.Clone()
		prior = &snapshot
		next = existing.Clone()
	} else {
		s.restore(&next)
	}
	mutate(&next)
	next.Tags = s.tagger.Tags(next.Name, next.Role)

	kinds := classify(prior, next)
	if len(kinds) == 0 {
		return event.StateChanged{}, false
	}
	if slices.Contains(kinds, event.Joined) {
		at := s.now()
		next.LastActiveAt = &at
		next.JoinCount++
	}
	s.participants[name] = &next
	return s.change(next.Clone(), prior, nil, kinds), true
}

// restore copies the persisted history of p, if any. A failing lookup only
// costs the history, the participant is still created.
func (s *Store) restore(p *domain.Participant) {
	if s.history == nil {
		return
	}
	stored, err := s.history.Get(p.ID)
	switch {
	case errors.Is(err, errors.ErrNotFound):
		return
	case err != nil:
		s.log.Warn("Unable to read participant history", "name", p.Name, "error", err)
		return
	}
	p.JoinCount = stored.JoinCount
	p.LastActiveAt = stored.LastActiveAt
	p.LastSeenSessionID = stored.LastSeenSessionID
}

// classify compares two snapshots. A creation always yields at least one kind.
func classify(prior *domain.Participant, next domain.Participant) []event.Kind {
	var kinds []event.Kind
	wasOnline, wasRaised, wasPinned := false, false, false
	if prior != nil {
		wasOnline, wasRaised, wasPinned = prior.Online, prior.HandRaised, prior.Pinned
	}
	switch {
	case !wasOnline && next.Online:
		kinds = append(kinds, event.Joined)
	case wasOnline && !next.Online:
		kinds = append(kinds, event.Left)
	}
	switch {
	case !wasRaised && next.HandRaised:
		kinds = append(kinds, event.HandRaised)
	case wasRaised && !next.HandRaised:
		kinds = append(kinds, event.HandLowered)
	}
	if wasPinned != next.Pinned {
		kinds = append(kinds, event.PinChanged)
	}
	if len(kinds) == 0 && (prior == nil || !sameState(*prior, next)) {
		kinds = append(kinds, event.Updated)
	}
	return kinds
}

func sameState(a, b domain.Participant) bool {
	return a.Online == b.Online &&
		a.Muted == b.Muted &&
		a.HasVideo == b.HasVideo &&
		a.HandRaised == b.HandRaised &&
		a.Spotlighted == b.Spotlighted &&
		a.Pinned == b.Pinned &&
		a.Role == b.Role &&
		slices.Equal(a.Tags, b.Tags)
}

// addMessage stores a new chat message. The sender snapshot is the known
// participant, or a transient one tagged from its name when the sender is unknown.
func (s *Store) addMessage(e event.ChatReceived) event.StateChanged {
	var lang string
	var keywords []string
	if s.inspector != nil {
		lang, keywords = s.inspector.Inspect(e.Content)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	msg := domain.ChatMessage{
		ID:             uuid.New(),
		ParticipantRef: e.StableID,
		SenderName:     e.Name,
		Content:        e.Content,
		Type:           e.MessageType,
		Lang:           lang,
		Keywords:       keywords,
		Timestamp:      s.now(),
	}
	s.messages = append(s.messages, msg)

	sender := domain.NewParticipant(e.Name)
	sender.Tags = s.tagger.Tags(sender.Name, sender.Role)
	if existing, ok := s.participants[e.Name]; ok {
		sender = existing.Clone()
	}
	stored := msg.Clone()
	return s.change(sender, nil, &stored, []event.Kind{event.ChatMessage})
}

func (s *Store) setActiveCount(count int) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.session != nil {
		s.session.ActiveCount = count
	}
}

// clearList marks every online participant offline, without deleting anyone.
func (s *Store) clearList() []event.StateChanged {
	s.mu.Lock()
	defer s.mu.Unlock()

	var changes []event.StateChanged
	for _, name := range s.sortedNames() {
		p := s.participants[name]
		if !p.Online {
			continue
		}
		prior := p.Clone()
		p.Online = false
		changes = append(changes, s.change(p.Clone(), &prior, nil, []event.Kind{event.Left}))
	}
	return changes
}

// StartSession forgets the previous meeting's participants and messages.
func (s *Store) StartSession() domain.Session {
	s.writeMu.Lock()
	defer s.writeMu.Unlock()
	s.mu.Lock()
	defer s.mu.Unlock()

	session := domain.NewSession(s.now())
	s.session = &session
	s.participants = make(map[string]*domain.Participant)
	s.messages = nil
	s.log.Info("Session started", "session_id", session.ID)
	return session
}

// EndSession archives the session: every participant is kept, marked offline
// and stamped with the session id. Nothing is deleted.
func (s *Store) EndSession(ctx context.Context, sessionID uuid.UUID) error {
	s.writeMu.Lock()
	defer s.writeMu.Unlock()

	changes, err := s.archive(sessionID)
	if err != nil {
		return err
	}
	s.publish(ctx, changes)
	return nil
}

func (s *Store) archive(sessionID uuid.UUID) ([]event.StateChanged, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.session == nil || s.session.ID != sessionID || !s.session.Active {
		return nil, fmt.Errorf("%w: %s", errors.ErrStaleSession, sessionID)
	}
	at := s.now()
	s.session.Active = false
	s.session.EndedAt = &at

	var changes []event.StateChanged
	for _, name := range s.sortedNames() {
		p := s.participants[name]
		prior := p.Clone()
		id := sessionID
		p.Online = false
		p.LastSeenSessionID = &id
		changes = append(changes, s.change(p.Clone(), &prior, nil, []event.Kind{event.Archived}))
	}
	s.log.Info("Session archived", "session_id", sessionID, "participants", len(changes))
	return changes, nil
}

// SetPinned records the pin state reported by a successful outbound command.
func (s *Store) SetPinned(ctx context.Context, name string, pinned bool) error {
	return s.set(ctx, name, func(p *domain.Participant) { p.Pinned = pinned })
}

func (s *Store) SetSpotlighted(ctx context.Context, name string, spotlighted bool) error {
	return s.set(ctx, name, func(p *domain.Participant) { p.Spotlighted = spotlighted })
}

func (s *Store) set(ctx context.Context, name string, mutate func(p *domain.Participant)) error {
	s.writeMu.Lock()
	defer s.writeMu.Unlock()

	s.mu.RLock()
	_, ok := s.participants[name]
	s.mu.RUnlock()
	if !ok {
		return fmt.Errorf("%w: %s", errors.ErrUnknownParticipant, name)
	}
	if change, ok := s.upsert(name, mutate); ok {
		s.publish(ctx, []event.StateChanged{change})
	}
	return nil
}

func (s *Store) GetByID(id uuid.UUID) (domain.Participant, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	for _, p := range s.participants {
		if p.ID == id {
			return p.Clone(), true
		}
	}
	return domain.Participant{}, false
}

func (s *Store) GetByName(name string) (domain.Participant, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	p, ok := s.participants[name]
	if !ok {
		return domain.Participant{}, false
	}
	return p.Clone(), true
}

// ListAll returns every participant ordered by name.
func (s *Store) ListAll() []domain.Participant {
	return s.list(func(domain.Participant) bool { return true })
}

func (s *Store) ListOnline() []domain.Participant {
	return s.list(func(p domain.Participant) bool { return p.Online })
}

func (s *Store) ListPinned() []domain.Participant {
	return s.list(func(p domain.Participant) bool { return p.Pinned })
}

func (s *Store) list(keep func(domain.Participant) bool) []domain.Participant {
	s.mu.RLock()
	defer s.mu.RUnlock()

	res := make([]domain.Participant, 0, len(s.participants))
	for _, name := range s.sortedNames() {
		if p := s.participants[name]; keep(*p) {
			res = append(res, p.Clone())
		}
	}
	return res
}

// Messages returns the chat history of the current session, oldest first.
func (s *Store) Messages() []domain.ChatMessage {
	s.mu.RLock()
	defer s.mu.RUnlock()

	res := make([]domain.ChatMessage, 0, len(s.messages))
	for _, m := range s.messages {
		res = append(res, m.Clone())
	}
	return res
}

func (s *Store) Session() (domain.Session, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.session == nil {
		return domain.Session{}, false
	}
	session := *s.session
	if s.session.EndedAt != nil {
		at := *s.session.EndedAt
		session.EndedAt = &at
	}
	return session, true
}

// sortedNames expects s.mu to be held.
func (s *Store) sortedNames() []string {
	names := make([]string, 0, len(s.participants))
	for name := range s.participants {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// change expects s.mu to be held.
func (s *Store) change(p domain.Participant, prior *domain.Participant, msg *domain.ChatMessage, kinds []event.Kind) event.StateChanged {
	var sessionID uuid.UUID
	if s.session != nil {
		sessionID = s.session.ID
	}
	return event.StateChanged{
		SessionID:   sessionID,
		Participant: p,
		Prior:       prior,
		Message:     msg,
		Kinds:       kinds,
	}
}

// publish runs after the commit, with writeMu held and mu released.
func (s *Store) publish(ctx context.Context, changes []event.StateChanged) {
	if s.publisher == nil {
		return
	}
	for _, c := range changes {
		s.log.Debug("State changed", "participant", c.Participant.Name, "kinds", c.Kinds)
		s.publisher.Publish(ctx, c)
	}
}
