package repositories

import (
	"log/slog"
	"testing"
	"time"

	"github.com/dgraph-io/badger/v4"
	"github.com/google/uuid"
	"github.com/samber/lo"
	"github.com/stretchr/testify/require"

	"osc-console/domain"
	"osc-console/errors"
)

func openBadger(t *testing.T) *badger.DB {
	t.Helper()
	db, err := badger.Open(badger.DefaultOptions(t.TempDir()).WithLoggingLevel(badger.ERROR))
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })
	return db
}

func Test_Save_And_Get_Participant(t *testing.T) {
	req := require.New(t)
	repository := NewParticipantRepository(openBadger(t), slog.Default())
	at := time.Now().UTC()
	sessionID := uuid.New()

	// Given a fully populated participant
	p := domain.NewParticipant("Host_Dan")
	p.Role = domain.RoleHost
	p.Muted = true
	p.Pinned = true
	p.Tags = []string{"Host"}
	p.JoinCount = 3
	p.LastActiveAt = &at
	p.LastSeenSessionID = &sessionID

	// When it is saved and read back
	req.NoError(repository.Save(p))
	fetched, err := repository.Get(p.ID)

	// Then every field survives
	req.NoError(err)
	req.Equal(p, fetched)
}

func Test_Save_Overwrites_Existing_Participant(t *testing.T) {
	req := require.New(t)
	repository := NewParticipantRepository(openBadger(t), slog.Default())
	p := domain.NewParticipant("STU_Alice")
	req.NoError(repository.Save(p))

	p.Online = false
	p.HandRaised = true
	req.NoError(repository.Save(p))

	fetched, err := repository.Get(p.ID)
	req.NoError(err)
	req.False(fetched.Online)
	req.True(fetched.HandRaised)
	all, err := repository.ListByName()
	req.NoError(err)
	req.Len(all, 1)
}

func Test_Get_Unknown_Participant(t *testing.T) {
	req := require.New(t)
	repository := NewParticipantRepository(openBadger(t), slog.Default())

	_, err := repository.Get(uuid.New())

	req.Error(err)
	req.True(errors.Is(err, errors.ErrNotFound))
}

func Test_Delete_And_List_By_Name(t *testing.T) {
	req := require.New(t)
	repository := NewParticipantRepository(openBadger(t), slog.Default())
	for _, name := range []string{"Zed", "alice", "Bob", "Carol"} {
		req.NoError(repository.Save(domain.NewParticipant(name)))
	}

	req.NoError(repository.Delete(domain.ParticipantID("Carol")))
	req.NoError(repository.Delete(uuid.New()))

	all, err := repository.ListByName()
	req.NoError(err)
	req.Equal([]string{"Bob", "Zed", "alice"}, lo.Map(all, func(p domain.Participant, _ int) string { return p.Name }))
}
