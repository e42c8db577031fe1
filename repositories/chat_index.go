package repositories

import (
	"context"
	"log/slog"

	"github.com/blugelabs/bluge"
	"github.com/google/uuid"

	"osc-console/contract"
	"osc-console/domain"
)

const (
	contentField = "content"
	senderField  = "sender"
	idField      = "_id"
)

var _ contract.ChatIndex = (*ChatIndex)(nil)

// ChatIndex is a full-text index over chat contents. Document ids are the
// message ids, so re-indexing a message replaces it.
type ChatIndex struct {
	writer *bluge.Writer
	log    *slog.Logger
}

func NewChatIndex(writer *bluge.Writer, log *slog.Logger) *ChatIndex {
	return &ChatIndex{writer: writer, log: log}
}

func (c *ChatIndex) Index(msg domain.ChatMessage) error {
	doc := bluge.NewDocument(msg.ID.String()).
		AddField(bluge.NewTextField(contentField, msg.Content)).
		AddField(bluge.NewKeywordField(senderField, msg.SenderName).StoreValue())
	return c.writer.Update(doc.ID(), doc)
}

// Search returns the ids of the best matching messages, highest score first.
func (c *ChatIndex) Search(ctx context.Context, text string, limit int) ([]uuid.UUID, error) {
	reader, err := c.writer.Reader()
	if err != nil {
		return nil, err
	}
	defer func() {
		if err := reader.Close(); err != nil {
			c.log.Warn("Unable to close index reader", "error", err)
		}
	}()

	query := bluge.NewMatchQuery(text).SetField(contentField)
	iterator, err := reader.Search(ctx, bluge.NewTopNSearch(limit, query))
	if err != nil {
		return nil, err
	}

	var ids []uuid.UUID
	match, err := iterator.Next()
	for err == nil && match != nil {
		err = match.VisitStoredFields(func(field string, value []byte) bool {
			if field != idField {
				return true
			}
			id, parseErr := uuid.ParseBytes(value)
			if parseErr != nil {
				c.log.Warn("Skipping indexed document with foreign id", "id", string(value))
				return false
			}
			ids = append(ids, id)
			return false
		})
		if err != nil {
			break
		}
		match, err = iterator.Next()
	}
	return ids, err
}

func (c *ChatIndex) Close() error {
	return c.writer.Close()
}
