package main

import (
	"bytes"
	"log/slog"
	"testing"
	"time"

	"github.com/dgraph-io/badger/v4"
	"github.com/google/uuid"
	"github.com/stretchr/testify/require"

	"osc-console/domain"
	"osc-console/repositories"
)

func TestRun_Prints_Persisted_Records(t *testing.T) {
	req := require.New(t)
	dir := t.TempDir()

	// Given a database written by the console
	db, err := badger.Open(badger.DefaultOptions(dir).WithLoggingLevel(badger.ERROR))
	req.NoError(err)
	host := domain.NewParticipant("Host_Dan")
	host.Tags = []string{"Host"}
	req.NoError(repositories.NewParticipantRepository(db, slog.Default()).Save(host))
	req.NoError(repositories.NewChatRepository(db, slog.Default()).Store(domain.ChatMessage{
		ID:             uuid.New(),
		ParticipantRef: "16778240",
		SenderName:     "Host_Dan",
		Content:        "welcome everyone",
		Type:           domain.MessageBroadcast,
		Timestamp:      time.Now().UTC(),
	}))
	req.NoError(db.Close())

	// When inspecting participants then chat
	var out bytes.Buffer
	req.NoError(run([]string{"--db", dir}, &out))
	req.Contains(out.String(), "Host_Dan")

	out.Reset()
	req.NoError(run([]string{"--db", dir, "-w", "chat", "--sender", "16778240"}, &out))
	req.Contains(out.String(), "welcome everyone")
	req.Contains(out.String(), "broadcast")

	req.Error(run([]string{"--db", dir, "-w", "rooms"}, &out))
}
