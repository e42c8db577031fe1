package repositories

import (
	"fmt"
	"log/slog"
	"time"

	"github.com/dgraph-io/badger/v4"
	"github.com/google/uuid"

	"osc-console/contract"
	"osc-console/domain"
	"osc-console/errors"
)

const (
	chatPrefix   = "chat:"
	chatIDPrefix = "chatid:"
)

var _ contract.ChatRepository = (*ChatRepository)(nil)

type ChatRepository struct {
	db  *badger.DB
	log *slog.Logger
}

func NewChatRepository(db *badger.DB, log *slog.Logger) *ChatRepository {
	return &ChatRepository{db: db, log: log}
}

type diskMessage struct {
	ID             string   `cbor:"id"`
	ParticipantRef string   `cbor:"participant_ref"`
	SenderName     string   `cbor:"sender_name"`
	Content        string   `cbor:"content"`
	Type           int      `cbor:"type"`
	Lang           string   `cbor:"lang"`
	Keywords       []string `cbor:"keywords"`
	At             int64    `cbor:"at"`
}

// chatKey is formatted as "chat:{timestamp_padded}:{uuid}": the 19-digit
// padding keeps lexicographical order chronological, the uuid separates
// messages sharing a nanosecond.
func chatKey(msg domain.ChatMessage) []byte {
	return []byte(fmt.Sprintf("%s%019d:%s", chatPrefix, msg.Timestamp.UnixNano(), msg.ID))
}

func chatIDKey(id uuid.UUID) []byte {
	return []byte(chatIDPrefix + id.String())
}

// Store writes the message and its id index in one transaction.
func (c *ChatRepository) Store(msg domain.ChatMessage) error {
	bytes, err := marshal(fromChatMessage(msg))
	if err != nil {
		return err
	}
	key := chatKey(msg)
	return c.db.Update(func(txn *badger.Txn) error {
		if err := txn.Set(key, bytes); err != nil {
			return err
		}
		return txn.Set(chatIDKey(msg.ID), key)
	})
}

func (c *ChatRepository) Get(id uuid.UUID) (domain.ChatMessage, error) {
	var disk diskMessage
	err := c.db.View(func(txn *badger.Txn) error {
		key, err := lookup(txn, id)
		if err != nil {
			return err
		}
		item, err := txn.Get(key)
		if err != nil {
			return err
		}
		return item.Value(func(val []byte) error {
			return unmarshal(val, &disk)
		})
	})
	if errors.Is(err, badger.ErrKeyNotFound) {
		return domain.ChatMessage{}, fmt.Errorf("chat message %s: %w", id, errors.ErrNotFound)
	}
	if err != nil {
		return domain.ChatMessage{}, err
	}
	return toChatMessage(disk)
}

func (c *ChatRepository) Delete(id uuid.UUID) error {
	err := c.db.Update(func(txn *badger.Txn) error {
		key, err := lookup(txn, id)
		if err != nil {
			return err
		}
		if err = txn.Delete(key); err != nil {
			return err
		}
		return txn.Delete(chatIDKey(id))
	})
	if errors.Is(err, badger.ErrKeyNotFound) {
		return nil
	}
	return err
}

// ListByTimestamp returns every stored message, oldest first.
func (c *ChatRepository) ListByTimestamp() ([]domain.ChatMessage, error) {
	return c.scan(func(domain.ChatMessage) bool { return true })
}

// ListForParticipant returns the messages sent under a stable sender id, oldest first.
func (c *ChatRepository) ListForParticipant(ref string) ([]domain.ChatMessage, error) {
	return c.scan(func(msg domain.ChatMessage) bool { return msg.ParticipantRef == ref })
}

func (c *ChatRepository) scan(keep func(domain.ChatMessage) bool) ([]domain.ChatMessage, error) {
	var messages []domain.ChatMessage
	err := c.db.View(func(txn *badger.Txn) error {
		prefix := []byte(chatPrefix)
		it := txn.NewIterator(badger.DefaultIteratorOptions)
		defer it.Close()
		for it.Seek(prefix); it.ValidForPrefix(prefix); it.Next() {
			var disk diskMessage
			err := it.Item().Value(func(val []byte) error {
				return unmarshal(val, &disk)
			})
			if err != nil {
				return err
			}
			msg, err := toChatMessage(disk)
			if err != nil {
				c.log.Warn("Skipping unreadable chat record", "key", string(it.Item().Key()), "error", err)
				continue
			}
			if keep(msg) {
				messages = append(messages, msg)
			}
		}
		return nil
	})
	return messages, err
}

func lookup(txn *badger.Txn, id uuid.UUID) ([]byte, error) {
	item, err := txn.Get(chatIDKey(id))
	if err != nil {
		return nil, err
	}
	return item.ValueCopy(nil)
}

func fromChatMessage(msg domain.ChatMessage) diskMessage {
	return diskMessage{
		ID:             msg.ID.String(),
		ParticipantRef: msg.ParticipantRef,
		SenderName:     msg.SenderName,
		Content:        msg.Content,
		Type:           int(msg.Type),
		Lang:           msg.Lang,
		Keywords:       msg.Keywords,
		At:             msg.Timestamp.UnixNano(),
	}
}

func toChatMessage(disk diskMessage) (domain.ChatMessage, error) {
	id, err := uuid.Parse(disk.ID)
	if err != nil {
		return domain.ChatMessage{}, err
	}
	return domain.ChatMessage{
		ID:             id,
		ParticipantRef: disk.ParticipantRef,
		SenderName:     disk.SenderName,
		Content:        disk.Content,
		Type:           domain.MessageType(disk.Type),
		Lang:           disk.Lang,
		Keywords:       disk.Keywords,
		Timestamp:      time.Unix(0, disk.At).UTC(),
	}, nil
}
