// Package domain contains core concepts of the meeting console.
// This file defines Participant entities and related invariants.
// No runtime, network, or UI logic should be added here.
package domain

import (
	"slices"
	"time"

	"github.com/google/uuid"
)

// participantNamespace seeds the name-derived participant identifiers.
var participantNamespace = uuid.MustParse("6f2b3c0e-5d1a-4c3e-9a43-0b7f0e3f9d21")

type Role int

const (
	RoleAttendee Role = 0
	RolePanelist Role = 1
	RoleCoHost   Role = 2
	RoleHost     Role = 3
)

// ToRole maps the protocol role integer, unknown values fall back to attendee.
func ToRole(value int) Role {
	switch Role(value) {
	case RolePanelist, RoleCoHost, RoleHost:
		return Role(value)
	default:
		return RoleAttendee
	}
}

// String is the role description, also used as the role tag.
func (r Role) String() string {
	switch r {
	case RolePanelist:
		return "Panelist"
	case RoleCoHost:
		return "Co-Host"
	case RoleHost:
		return "Host"
	default:
		return "Attendee"
	}
}

// Participant is keyed by display name: the protocol exposes no durable
// identifier across sessions. ID is derived from the name so a returning
// participant maps to the same persisted record.
type Participant struct {
	ID                uuid.UUID
	Name              string
	Online            bool
	Muted             bool
	HasVideo          bool
	HandRaised        bool
	Spotlighted       bool
	Pinned            bool
	Role              Role
	Tags              []string
	JoinCount         int
	LastActiveAt      *time.Time
	LastSeenSessionID *uuid.UUID
}

// ParticipantID returns the stable identifier of a display name.
func ParticipantID(name string) uuid.UUID {
	return uuid.NewSHA1(participantNamespace, []byte(name))
}

// NewParticipant applies the creation defaults: online, unmuted, attendee.
func NewParticipant(name string) Participant {
	return Participant{
		ID:     ParticipantID(name),
		Name:   name,
		Online: true,
		Role:   RoleAttendee,
	}
}

// HasTag reports whether the participant currently holds tag.
func (p Participant) HasTag(tag string) bool {
	return slices.Contains(p.Tags, tag)
}

// Clone returns a deep copy, safe to hand out of the store.
func (p Participant) Clone() Participant {
	c := p
	c.Tags = slices.Clone(p.Tags)
	if p.LastActiveAt != nil {
		at := *p.LastActiveAt
		c.LastActiveAt = &at
	}
	if p.LastSeenSessionID != nil {
		id := *p.LastSeenSessionID
		c.LastSeenSessionID = &id
	}
	return c
}
