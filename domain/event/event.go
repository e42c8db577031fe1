package event

import (
	"github.com/google/uuid"

	"osc-console/domain"
)

type Type string

const (
	ListType         Type = "list"
	OnlineType       Type = "online"
	OfflineType      Type = "offline"
	HandRaisedType   Type = "handRaised"
	HandLoweredType  Type = "handLowered"
	VideoOnType      Type = "videoOn"
	VideoOffType     Type = "videoOff"
	MuteType         Type = "mute"
	UnmuteType       Type = "unMute"
	ChatType         Type = "chat"
	GalleryCountType Type = "galleryCount"
	ListClearedType  Type = "listCleared"
)

// Event is a decoded inbound control-bus message.
type Event interface {
	EventType() Type
}

// Header holds the four positional fields leading every per-participant message.
type Header struct {
	TargetIndex  int
	Name         string
	GalleryIndex int
	ZoomID       int
}

// ParticipantUpdate is a partial update: nil fields are left untouched by the store.
type ParticipantUpdate struct {
	Header
	Type       Type
	Online     *bool
	Muted      *bool
	HandRaised *bool
	HasVideo   *bool
	Role       *domain.Role
}

func (e ParticipantUpdate) EventType() Type {
	return e.Type
}

type ChatReceived struct {
	Header
	Content     string
	StableID    string
	MessageType domain.MessageType
}

func (e ChatReceived) EventType() Type {
	return ChatType
}

type GalleryCount struct {
	Count int
}

func (e GalleryCount) EventType() Type {
	return GalleryCountType
}

type ListCleared struct{}

func (e ListCleared) EventType() Type {
	return ListClearedType
}

// Envelope tags an inbound event with the session that was live when it was received.
type Envelope struct {
	SessionID uuid.UUID
	Event     Event
}
