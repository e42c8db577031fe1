package repositories

import (
	"context"
	"log/slog"
	"testing"
	"time"

	"github.com/blugelabs/bluge"
	"github.com/google/uuid"
	"github.com/samber/lo"
	"github.com/stretchr/testify/require"

	"osc-console/domain"
	"osc-console/errors"
)

func message(ref, sender, content string, at time.Time) domain.ChatMessage {
	return domain.ChatMessage{
		ID:             uuid.New(),
		ParticipantRef: ref,
		SenderName:     sender,
		Content:        content,
		Type:           domain.MessageBroadcast,
		Lang:           "en",
		Timestamp:      at,
	}
}

func Test_Record_Multiple_Chat_Messages(t *testing.T) {
	req := require.New(t)
	repository := NewChatRepository(openBadger(t), slog.Default())
	at := time.Now().UTC()

	// Given messages stored out of chronological order
	messages := []domain.ChatMessage{
		message("16778240", "Clara", "third", at.Add(2*time.Minute)),
		message("16778241", "Alice", "first", at),
		message("16778240", "Clara", "second", at.Add(1*time.Minute)),
	}
	messages[1].Keywords = []string{"help"}
	for _, msg := range messages {
		req.NoError(repository.Store(msg))
	}

	// When listing by timestamp
	all, err := repository.ListByTimestamp()

	// Then they come back oldest first, unchanged
	req.NoError(err)
	req.Equal([]domain.ChatMessage{messages[1], messages[2], messages[0]}, all)

	forClara, err := repository.ListForParticipant("16778240")
	req.NoError(err)
	req.Equal([]string{"second", "third"}, lo.Map(forClara, func(m domain.ChatMessage, _ int) string { return m.Content }))
}

func Test_Get_And_Delete_Chat_Message(t *testing.T) {
	req := require.New(t)
	repository := NewChatRepository(openBadger(t), slog.Default())
	msg := message("1", "Alice", "hello", time.Now().UTC())
	req.NoError(repository.Store(msg))

	fetched, err := repository.Get(msg.ID)
	req.NoError(err)
	req.Equal(msg, fetched)

	req.NoError(repository.Delete(msg.ID))
	_, err = repository.Get(msg.ID)
	req.True(errors.Is(err, errors.ErrNotFound))
	all, err := repository.ListByTimestamp()
	req.NoError(err)
	req.Empty(all)

	// Deleting twice is harmless
	req.NoError(repository.Delete(msg.ID))
}

func Test_Chat_Index_Search(t *testing.T) {
	req := require.New(t)
	writer, err := bluge.OpenWriter(bluge.DefaultConfig(t.TempDir()))
	req.NoError(err)
	index := NewChatIndex(writer, slog.Default())
	defer func() { _ = index.Close() }()

	at := time.Now().UTC()
	question := message("1", "Alice", "Could you share the homework slides", at)
	greeting := message("2", "Bob", "good morning everyone", at)
	req.NoError(index.Index(question))
	req.NoError(index.Index(greeting))

	ids, err := index.Search(context.Background(), "homework", 10)
	req.NoError(err)
	req.Equal([]uuid.UUID{question.ID}, ids)

	ids, err = index.Search(context.Background(), "nothing matches", 10)
	req.NoError(err)
	req.Empty(ids)

	// Re-indexing replaces the document
	question.Content = "never mind"
	req.NoError(index.Index(question))
	ids, err = index.Search(context.Background(), "homework", 10)
	req.NoError(err)
	req.Empty(ids)
}
