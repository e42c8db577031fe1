package event

import (
	"slices"

	"github.com/google/uuid"

	"osc-console/domain"
)

// Kind classifies what a committed mutation changed.
type Kind string

const (
	Joined      Kind = "joined"
	Left        Kind = "left"
	HandRaised  Kind = "handRaised"
	HandLowered Kind = "handLowered"
	PinChanged  Kind = "pinChanged"
	ChatMessage Kind = "chatMessage"
	Archived    Kind = "archived"
	Updated     Kind = "updated"
)

// StateChanged is published by the store after each committed mutation.
// Participant and Message are snapshots owned by the receiver.
type StateChanged struct {
	SessionID   uuid.UUID
	Participant domain.Participant
	Prior       *domain.Participant
	Message     *domain.ChatMessage
	Kinds       []Kind
}

func (s StateChanged) Has(kind Kind) bool {
	return slices.Contains(s.Kinds, kind)
}

// HasAny reports whether at least one of kinds is present.
func (s StateChanged) HasAny(kinds ...Kind) bool {
	for _, k := range kinds {
		if s.Has(k) {
			return true
		}
	}
	return false
}
