package domain

import "github.com/google/uuid"

type NotificationCategory string

const (
	CategoryParticipantJoin  NotificationCategory = "PARTICIPANT_JOIN"
	CategoryParticipantLeave NotificationCategory = "PARTICIPANT_LEAVE"
	CategoryHandRaise        NotificationCategory = "HAND_RAISE"
	CategoryChatMessage      NotificationCategory = "CHAT_MESSAGE"
)

type NotificationAction string

const (
	ActionPinParticipant NotificationAction = "PIN_PARTICIPANT"
	ActionSendGreeting   NotificationAction = "SEND_GREETING"
	ActionLowerHand      NotificationAction = "LOWER_HAND"
)

// Notification is a presentation request. ID is a correlation id, a newer
// request with the same ID replaces the previous one.
type Notification struct {
	ID              string
	Title           string
	Subtitle        string
	Body            string
	Category        NotificationCategory
	ParticipantID   uuid.UUID
	ParticipantName string
	Sound           bool
	Actions         []NotificationAction
}
