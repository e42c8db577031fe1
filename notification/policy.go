// Package notification turns priority state changes into notification requests.
package notification

import (
	"context"
	"fmt"
	"log/slog"
	"slices"
	"strings"
	"sync"

	"osc-console/contract"
	"osc-console/domain"
	"osc-console/domain/event"
)

var _ contract.EventSink = (*Policy)(nil)

func DefaultPriorityTags() []string {
	return []string{"Host", "Teacher", "VIP"}
}

type Policy struct {
	mu           sync.RWMutex
	enabled      bool
	sound        bool
	priorityTags map[string]struct{}

	notifier contract.Notifier
	log      *slog.Logger
}

func NewPolicy(notifier contract.Notifier, priorityTags []string, log *slog.Logger) *Policy {
	p := &Policy{
		enabled:      true,
		sound:        true,
		priorityTags: make(map[string]struct{}),
		notifier:     notifier,
		log:          log,
	}
	for _, tag := range priorityTags {
		p.priorityTags[tag] = struct{}{}
	}
	return p
}

// Consume emits at most one notification per change. Hand raises are always
// notified, joins, departures and chat only for priority participants.
func (p *Policy) Consume(ctx context.Context, e event.StateChanged) error {
	n, ok := p.Evaluate(e)
	if !ok {
		return nil
	}
	if err := p.notifier.Notify(ctx, n); err != nil {
		return fmt.Errorf("notify %s: %w", n.ID, err)
	}
	return nil
}

// Evaluate builds the notification for e, if any.
func (p *Policy) Evaluate(e event.StateChanged) (domain.Notification, bool) {
	p.mu.RLock()
	defer p.mu.RUnlock()

	if !p.enabled {
		return domain.Notification{}, false
	}
	person := e.Participant
	matched := p.matchedTags(person.Tags)

	var n domain.Notification
	switch {
	case e.Has(event.HandRaised):
		n = domain.Notification{
			ID:       correlationID("hand", person),
			Title:    "Hand Raised",
			Body:     fmt.Sprintf("%s raised their hand", person.Name),
			Category: domain.CategoryHandRaise,
			Actions:  []domain.NotificationAction{domain.ActionLowerHand},
		}
	case len(matched) == 0:
		return domain.Notification{}, false
	case e.Has(event.Joined):
		n = domain.Notification{
			ID:       correlationID("join", person),
			Title:    "Participant Joined",
			Body:     fmt.Sprintf("%s has joined the meeting", person.Name),
			Category: domain.CategoryParticipantJoin,
			Actions:  []domain.NotificationAction{domain.ActionPinParticipant, domain.ActionSendGreeting},
		}
	case e.Has(event.Left):
		n = domain.Notification{
			ID:       correlationID("leave", person),
			Title:    "Participant Left",
			Body:     fmt.Sprintf("%s has left the meeting", person.Name),
			Category: domain.CategoryParticipantLeave,
		}
	case e.Has(event.ChatMessage) && e.Message != nil:
		n = chatNotification(person, *e.Message)
	default:
		return domain.Notification{}, false
	}

	if len(matched) > 0 {
		n.Subtitle = "Tags: " + strings.Join(matched, ", ")
	}
	if n.Category == domain.CategoryChatMessage && len(e.Message.Keywords) > 0 {
		n.Subtitle += " | Watched: " + strings.Join(e.Message.Keywords, ", ")
	}
	n.ParticipantID = person.ID
	n.ParticipantName = person.Name
	n.Sound = p.sound
	return n, true
}

func chatNotification(person domain.Participant, msg domain.ChatMessage) domain.Notification {
	body := msg.Content
	if msg.Type == domain.MessageDirect {
		body = "(direct) " + body
	}
	return domain.Notification{
		ID:       correlationID("chat", person),
		Title:    fmt.Sprintf("New Message from %s", person.Name),
		Body:     body,
		Category: domain.CategoryChatMessage,
	}
}

// correlationID lets a newer notification replace the previous one of the
// same kind for the same participant.
func correlationID(kind string, person domain.Participant) string {
	return fmt.Sprintf("%s_%s", kind, person.ID)
}

// matchedTags expects p.mu to be held.
func (p *Policy) matchedTags(tags []string) []string {
	var matched []string
	for _, tag := range tags {
		if _, ok := p.priorityTags[tag]; ok {
			matched = append(matched, tag)
		}
	}
	slices.Sort(matched)
	return slices.Compact(matched)
}

func (p *Policy) SetEnabled(enabled bool) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.enabled = enabled
}

func (p *Policy) SetSound(enabled bool) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.sound = enabled
}

func (p *Policy) AddPriorityTag(tag string) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.priorityTags[tag] = struct{}{}
}

func (p *Policy) RemovePriorityTag(tag string) {
	p.mu.Lock()
	defer p.mu.Unlock()
	delete(p.priorityTags, tag)
}

// PriorityTags returns the configured tags, sorted.
func (p *Policy) PriorityTags() []string {
	p.mu.RLock()
	defer p.mu.RUnlock()
	tags := make([]string, 0, len(p.priorityTags))
	for tag := range p.priorityTags {
		tags = append(tags, tag)
	}
	slices.Sort(tags)
	return tags
}
