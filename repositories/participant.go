package repositories

import (
	"fmt"
	"log/slog"
	"sort"
	"time"

	"github.com/dgraph-io/badger/v4"
	"github.com/google/uuid"
	"github.com/samber/lo"

	"osc-console/contract"
	"osc-console/domain"
	"osc-console/errors"
)

const participantPrefix = "participant:"

var _ contract.ParticipantRepository = (*ParticipantRepository)(nil)

type ParticipantRepository struct {
	db  *badger.DB
	log *slog.Logger
}

func NewParticipantRepository(db *badger.DB, log *slog.Logger) *ParticipantRepository {
	return &ParticipantRepository{db: db, log: log}
}

// diskParticipant is the persisted shape of a participant.
// Times are unix nanos, identifiers their canonical string.
type diskParticipant struct {
	ID                string   `cbor:"id"`
	Name              string   `cbor:"name"`
	Online            bool     `cbor:"online"`
	Muted             bool     `cbor:"muted"`
	HasVideo          bool     `cbor:"has_video"`
	HandRaised        bool     `cbor:"hand_raised"`
	Spotlighted       bool     `cbor:"spotlighted"`
	Pinned            bool     `cbor:"pinned"`
	Role              int      `cbor:"role"`
	Tags              []string `cbor:"tags"`
	JoinCount         int      `cbor:"join_count"`
	LastActiveAt      *int64   `cbor:"last_active_at"`
	LastSeenSessionID *string  `cbor:"last_seen_session_id"`
}

func participantKey(id uuid.UUID) []byte {
	return []byte(participantPrefix + id.String())
}

// Save creates or replaces the participant record.
func (r *ParticipantRepository) Save(p domain.Participant) error {
	bytes, err := marshal(fromParticipant(p))
	if err != nil {
		return err
	}
	return r.db.Update(func(txn *badger.Txn) error {
		return txn.Set(participantKey(p.ID), bytes)
	})
}

func (r *ParticipantRepository) Get(id uuid.UUID) (domain.Participant, error) {
	var disk diskParticipant
	err := r.db.View(func(txn *badger.Txn) error {
		item, err := txn.Get(participantKey(id))
		if err != nil {
			return err
		}
		return item.Value(func(val []byte) error {
			return unmarshal(val, &disk)
		})
	})
	if errors.Is(err, badger.ErrKeyNotFound) {
		return domain.Participant{}, fmt.Errorf("participant %s: %w", id, errors.ErrNotFound)
	}
	if err != nil {
		return domain.Participant{}, err
	}
	return toParticipant(disk)
}

// Delete is a no-op for unknown ids.
func (r *ParticipantRepository) Delete(id uuid.UUID) error {
	return r.db.Update(func(txn *badger.Txn) error {
		return txn.Delete(participantKey(id))
	})
}

// ListByName returns every stored participant sorted by display name.
func (r *ParticipantRepository) ListByName() ([]domain.Participant, error) {
	var records []diskParticipant
	err := r.db.View(func(txn *badger.Txn) error {
		prefix := []byte(participantPrefix)
		it := txn.NewIterator(badger.DefaultIteratorOptions)
		defer it.Close()
		for it.Seek(prefix); it.ValidForPrefix(prefix); it.Next() {
			err := it.Item().Value(func(val []byte) error {
				var disk diskParticipant
				if err := unmarshal(val, &disk); err != nil {
					return err
				}
				records = append(records, disk)
				return nil
			})
			if err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	participants := make([]domain.Participant, 0, len(records))
	for _, disk := range records {
		p, err := toParticipant(disk)
		if err != nil {
			r.log.Warn("Skipping unreadable participant record", "id", disk.ID, "error", err)
			continue
		}
		participants = append(participants, p)
	}
	sort.SliceStable(participants, func(i, j int) bool {
		return participants[i].Name < participants[j].Name
	})
	return participants, nil
}

func fromParticipant(p domain.Participant) diskParticipant {
	disk := diskParticipant{
		ID:          p.ID.String(),
		Name:        p.Name,
		Online:      p.Online,
		Muted:       p.Muted,
		HasVideo:    p.HasVideo,
		HandRaised:  p.HandRaised,
		Spotlighted: p.Spotlighted,
		Pinned:      p.Pinned,
		Role:        int(p.Role),
		Tags:        p.Tags,
		JoinCount:   p.JoinCount,
	}
	if p.LastActiveAt != nil {
		disk.LastActiveAt = lo.ToPtr(p.LastActiveAt.UnixNano())
	}
	if p.LastSeenSessionID != nil {
		disk.LastSeenSessionID = lo.ToPtr(p.LastSeenSessionID.String())
	}
	return disk
}

func toParticipant(disk diskParticipant) (domain.Participant, error) {
	id, err := uuid.Parse(disk.ID)
	if err != nil {
		return domain.Participant{}, err
	}
	p := domain.Participant{
		ID:          id,
		Name:        disk.Name,
		Online:      disk.Online,
		Muted:       disk.Muted,
		HasVideo:    disk.HasVideo,
		HandRaised:  disk.HandRaised,
		Spotlighted: disk.Spotlighted,
		Pinned:      disk.Pinned,
		Role:        domain.ToRole(disk.Role),
		Tags:        disk.Tags,
		JoinCount:   disk.JoinCount,
	}
	if disk.LastActiveAt != nil {
		p.LastActiveAt = lo.ToPtr(time.Unix(0, *disk.LastActiveAt).UTC())
	}
	if disk.LastSeenSessionID != nil {
		sessionID, err := uuid.Parse(*disk.LastSeenSessionID)
		if err != nil {
			return domain.Participant{}, err
		}
		p.LastSeenSessionID = &sessionID
	}
	return p, nil
}
