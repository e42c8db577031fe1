package sink_test

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/require"
	"go.uber.org/mock/gomock"

	"osc-console/domain"
	"osc-console/domain/event"
	"osc-console/errors"
	"osc-console/mocks"
	"osc-console/sink"
)

func TestDiskSink_Consume(t *testing.T) {
	ctx := context.Background()
	// Silencing logs for clean test output
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	alice := domain.NewParticipant("STU_Alice")

	t.Run("Participant change is saved", func(t *testing.T) {
		req := require.New(t)
		ctrl := gomock.NewController(t)
		participants := mocks.NewMockParticipantRepository(ctrl)
		chats := mocks.NewMockChatRepository(ctrl)
		index := mocks.NewMockChatIndex(ctrl)
		s := sink.NewDiskSink(participants, chats, index, logger)

		participants.EXPECT().Save(alice).Return(nil).Times(1)

		req.NoError(s.Consume(ctx, event.StateChanged{Participant: alice, Kinds: []event.Kind{event.Joined}}))
	})

	t.Run("Chat message is stored and indexed, participant untouched", func(t *testing.T) {
		req := require.New(t)
		ctrl := gomock.NewController(t)
		participants := mocks.NewMockParticipantRepository(ctrl)
		chats := mocks.NewMockChatRepository(ctrl)
		index := mocks.NewMockChatIndex(ctrl)
		s := sink.NewDiskSink(participants, chats, index, logger)
		msg := domain.ChatMessage{ID: uuid.New(), SenderName: alice.Name, Content: "hello"}

		gomock.InOrder(
			chats.EXPECT().Store(msg).Return(nil),
			index.EXPECT().Index(msg).Return(nil),
		)

		req.NoError(s.Consume(ctx, event.StateChanged{Participant: alice, Message: &msg, Kinds: []event.Kind{event.ChatMessage}}))
	})

	t.Run("Failures are wrapped as persistence errors", func(t *testing.T) {
		req := require.New(t)
		ctrl := gomock.NewController(t)
		participants := mocks.NewMockParticipantRepository(ctrl)
		chats := mocks.NewMockChatRepository(ctrl)
		index := mocks.NewMockChatIndex(ctrl)
		s := sink.NewDiskSink(participants, chats, index, logger)
		msg := domain.ChatMessage{ID: uuid.New(), Content: "hello"}

		participants.EXPECT().Save(gomock.Any()).Return(fmt.Errorf("disk full"))
		chats.EXPECT().Store(gomock.Any()).Return(nil)
		index.EXPECT().Index(gomock.Any()).Return(fmt.Errorf("index closed"))

		err := s.Consume(ctx, event.StateChanged{Participant: alice, Kinds: []event.Kind{event.Updated}})
		req.True(errors.Is(err, errors.ErrPersistence))
		req.ErrorContains(err, "disk full")

		err = s.Consume(ctx, event.StateChanged{Participant: alice, Message: &msg, Kinds: []event.Kind{event.ChatMessage}})
		req.True(errors.Is(err, errors.ErrPersistence))
	})
}
