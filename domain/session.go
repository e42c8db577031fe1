package domain

import (
	"time"

	"github.com/google/uuid"
)

// Session is one connect-to-disconnect lifetime.
type Session struct {
	ID          uuid.UUID
	StartedAt   time.Time
	EndedAt     *time.Time
	Active      bool
	ActiveCount int
}

func NewSession(at time.Time) Session {
	return Session{
		ID:        uuid.New(),
		StartedAt: at,
		Active:    true,
	}
}
