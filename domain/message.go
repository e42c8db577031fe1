// Package domain contains core concepts of the meeting console.
// This file defines chat messages. Messages are immutable once created.
package domain

import (
	"slices"
	"time"

	"github.com/google/uuid"
)

type MessageType int

const (
	MessageBroadcast MessageType = 1
	MessageDirect    MessageType = 4
)

func (m MessageType) String() string {
	switch m {
	case MessageBroadcast:
		return "broadcast"
	case MessageDirect:
		return "direct"
	default:
		return "unknown"
	}
}

// ChatMessage represents an immutable chat event.
// ParticipantRef is the protocol's stable per-session id of the sender, not its name.
type ChatMessage struct {
	ID             uuid.UUID
	ParticipantRef string
	SenderName     string
	Content        string
	Type           MessageType
	Lang           string
	Keywords       []string
	Timestamp      time.Time
}

func (m ChatMessage) Clone() ChatMessage {
	c := m
	c.Keywords = slices.Clone(m.Keywords)
	return c
}
