// Package router classifies inbound control-bus messages into typed events.
// Malformed input is dropped and reported, never propagated as a panic.
package router

import (
	"fmt"
	"log/slog"
	"strings"

	"github.com/hypebeast/go-osc/osc"
	"github.com/samber/lo"

	"osc-console/domain"
	"osc-console/domain/event"
	"osc-console/errors"
	"osc-console/wire"
)

const (
	namespace  = "/zoomosc/"
	userPrefix = "/zoomosc/user/"
	mePrefix   = "/zoomosc/me/"

	headerArgs = 4
	listArgs   = 8
	chatArgs   = 7
)

type Router struct {
	log *slog.Logger
}

func New(log *slog.Logger) *Router {
	return &Router{log: log}
}

// Route decodes a datagram and returns the events it carries.
// Dropped messages are logged at warn level.
func (r *Router) Route(data []byte) []event.Event {
	msgs, err := wire.Decode(data)
	if err != nil {
		r.log.Warn("Dropping datagram", "error", err, "size", len(data))
		return nil
	}
	var events []event.Event
	for _, msg := range msgs {
		evt, err := Classify(msg)
		if err != nil {
			r.log.Warn("Dropping message", "address", msg.Address, "error", err)
			continue
		}
		if evt == nil {
			r.log.Debug("Ignoring message", "address", msg.Address)
			continue
		}
		r.log.Debug("Routed message", "address", msg.Address, "type", evt.EventType())
		events = append(events, evt)
	}
	return events
}

// Classify maps one message to an event. A nil event with a nil error means the
// message is recognised but carries nothing for the store.
func Classify(msg *osc.Message) (event.Event, error) {
	switch {
	case strings.HasPrefix(msg.Address, userPrefix):
		return classifyUser(msg)
	case strings.HasPrefix(msg.Address, mePrefix):
		return nil, nil
	case strings.HasPrefix(msg.Address, namespace):
		return classifyGlobal(msg)
	default:
		return nil, fmt.Errorf("%w: unhandled address %s", errors.ErrParse, msg.Address)
	}
}

func classifyGlobal(msg *osc.Message) (event.Event, error) {
	switch msg.Address {
	case "/zoomosc/galleryCount":
		if len(msg.Arguments) < 1 {
			return nil, arity(msg, 1)
		}
		count, ok := toInt(msg.Arguments[0])
		if !ok {
			return nil, badType(msg, 0, "int")
		}
		return event.GalleryCount{Count: count}, nil
	case "/zoomosc/galleryOrder":
		return nil, nil
	case "/zoomosc/listCleared":
		return event.ListCleared{}, nil
	default:
		return nil, fmt.Errorf("%w: %w %s", errors.ErrParse, errors.ErrUnknownEvent, msg.Address)
	}
}

func classifyUser(msg *osc.Message) (event.Event, error) {
	if len(msg.Arguments) < headerArgs {
		return nil, arity(msg, headerArgs)
	}
	header, err := readHeader(msg)
	if err != nil {
		return nil, err
	}
	kind := event.Type(msg.Address[strings.LastIndex(msg.Address, "/")+1:])

	switch kind {
	case event.ListType:
		return readList(msg, header)
	case event.ChatType:
		return readChat(msg, header)
	case event.OnlineType:
		return event.ParticipantUpdate{Header: header, Type: kind, Online: lo.ToPtr(true)}, nil
	case event.OfflineType:
		return event.ParticipantUpdate{Header: header, Type: kind, Online: lo.ToPtr(false)}, nil
	case event.HandRaisedType:
		return event.ParticipantUpdate{Header: header, Type: kind, HandRaised: lo.ToPtr(true)}, nil
	case event.HandLoweredType:
		return event.ParticipantUpdate{Header: header, Type: kind, HandRaised: lo.ToPtr(false)}, nil
	case event.VideoOnType:
		return event.ParticipantUpdate{Header: header, Type: kind, HasVideo: lo.ToPtr(true)}, nil
	case event.VideoOffType:
		return event.ParticipantUpdate{Header: header, Type: kind, HasVideo: lo.ToPtr(false)}, nil
	case event.MuteType:
		return event.ParticipantUpdate{Header: header, Type: kind, Muted: lo.ToPtr(true)}, nil
	case event.UnmuteType:
		return event.ParticipantUpdate{Header: header, Type: kind, Muted: lo.ToPtr(false)}, nil
	default:
		return nil, fmt.Errorf("%w: %w %s", errors.ErrParse, errors.ErrUnknownEvent, msg.Address)
	}
}

// readHeader only requires the display name, the numeric fields are informational.
func readHeader(msg *osc.Message) (event.Header, error) {
	name, ok := msg.Arguments[1].(string)
	if !ok || name == "" {
		return event.Header{}, badType(msg, 1, "non empty string")
	}
	target, _ := toInt(msg.Arguments[0])
	gallery, _ := toInt(msg.Arguments[2])
	zoomID, _ := toInt(msg.Arguments[3])
	return event.Header{TargetIndex: target, Name: name, GalleryIndex: gallery, ZoomID: zoomID}, nil
}

func readList(msg *osc.Message, header event.Header) (event.Event, error) {
	if len(msg.Arguments) < listArgs {
		return nil, arity(msg, listArgs)
	}
	role, ok := toInt(msg.Arguments[4])
	if !ok {
		return nil, badType(msg, 4, "int")
	}
	online, ok := toInt(msg.Arguments[5])
	if !ok {
		return nil, badType(msg, 5, "int")
	}
	audio, ok := toInt(msg.Arguments[7])
	if !ok {
		return nil, badType(msg, 7, "int")
	}
	hand := 0
	if len(msg.Arguments) > listArgs {
		if hand, ok = toInt(msg.Arguments[8]); !ok {
			return nil, badType(msg, 8, "int")
		}
	}
	return event.ParticipantUpdate{
		Header:     header,
		Type:       event.ListType,
		Online:     lo.ToPtr(online == 1),
		Muted:      lo.ToPtr(audio == 0),
		HandRaised: lo.ToPtr(hand == 1),
		Role:       lo.ToPtr(domain.ToRole(role)),
	}, nil
}

func readChat(msg *osc.Message, header event.Header) (event.Event, error) {
	if len(msg.Arguments) < chatArgs {
		return nil, arity(msg, chatArgs)
	}
	content, ok := msg.Arguments[4].(string)
	if !ok {
		return nil, badType(msg, 4, "string")
	}
	stableID, ok := msg.Arguments[5].(string)
	if !ok {
		return nil, badType(msg, 5, "string")
	}
	messageType, ok := toInt(msg.Arguments[6])
	if !ok {
		return nil, badType(msg, 6, "int")
	}
	return event.ChatReceived{
		Header:      header,
		Content:     content,
		StableID:    stableID,
		MessageType: domain.MessageType(messageType),
	}, nil
}

func toInt(arg interface{}) (int, bool) {
	switch v := arg.(type) {
	case int32:
		return int(v), true
	case int64:
		return int(v), true
	default:
		return 0, false
	}
}

func arity(msg *osc.Message, want int) error {
	return fmt.Errorf("%w: %s expects at least %d arguments, got %d", errors.ErrParse, msg.Address, want, len(msg.Arguments))
}

func badType(msg *osc.Message, index int, expected string) error {
	return fmt.Errorf("%w: %s argument %d is %T, expected %s", errors.ErrParse, msg.Address, index, msg.Arguments[index], expected)
}
