package sink

import (
	"context"
	"fmt"
	"log/slog"

	"osc-console/contract"
	"osc-console/domain/event"
	"osc-console/errors"
)

var _ contract.EventSink = (*DiskSink)(nil)

// DiskSink mirrors committed state changes to disk. In-memory state stays
// authoritative: a failed write is reported, never rolled back.
type DiskSink struct {
	participants contract.ParticipantRepository
	chats        contract.ChatRepository
	index        contract.ChatIndex
	log          *slog.Logger
}

func NewDiskSink(
	participants contract.ParticipantRepository,
	chats contract.ChatRepository,
	index contract.ChatIndex,
	log *slog.Logger,
) *DiskSink {
	return &DiskSink{participants: participants, chats: chats, index: index, log: log}
}

func (d *DiskSink) Consume(_ context.Context, e event.StateChanged) error {
	if e.Message != nil {
		return d.storeMessage(e)
	}
	if err := d.participants.Save(e.Participant); err != nil {
		d.log.Error("Unable to persist participant", "participant", e.Participant.Name, "error", err)
		return fmt.Errorf("%w: participant %s: %w", errors.ErrPersistence, e.Participant.Name, err)
	}
	return nil
}

// storeMessage keeps the chat record even when indexing fails.
func (d *DiskSink) storeMessage(e event.StateChanged) error {
	msg := *e.Message
	if err := d.chats.Store(msg); err != nil {
		d.log.Error("Unable to persist chat message", "id", msg.ID, "sender", msg.SenderName, "error", err)
		return fmt.Errorf("%w: chat message %s: %w", errors.ErrPersistence, msg.ID, err)
	}
	if d.index == nil {
		return nil
	}
	if err := d.index.Index(msg); err != nil {
		d.log.Error("Unable to index chat message", "id", msg.ID, "error", err)
		return fmt.Errorf("%w: index %s: %w", errors.ErrPersistence, msg.ID, err)
	}
	return nil
}
