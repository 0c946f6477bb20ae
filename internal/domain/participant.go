package domain

import (
	"strings"
	"time"
)

type ParticipantID string

const RoleStudent = "student"

// Identity is the durable device-scoped participant identity. It is resolved
// once per device and never changes for the lifetime of a session.
type Identity struct {
	ID ParticipantID
}

func (i Identity) Known() bool {
	return strings.TrimSpace(string(i.ID)) != ""
}

// Profile is the global participant record, merge-upserted on entry.
type Profile struct {
	ID        ParticipantID
	FullName  string
	Role      string
	CreatedAt time.Time
}

// Attendee is the per-classroom participant record. MessageCount and
// VoteCount are write-only from the participant's perspective and only ever
// move via additive increments.
type Attendee struct {
	ID           ParticipantID
	FullName     string
	JoinedAt     time.Time
	MessageCount int64
	VoteCount    int64
}

// EntryMarker is the locally persisted "already entered" record. Its presence
// lets a returning participant skip the entry gate.
type EntryMarker struct {
	ParticipantID ParticipantID
	FullName      string
}

func (m EntryMarker) Valid() bool {
	return strings.TrimSpace(string(m.ParticipantID)) != "" && strings.TrimSpace(m.FullName) != ""
}
