package domain

import "time"

type ClassStatus string

const (
	ClassStatusNone   ClassStatus = ""
	ClassStatusVoting ClassStatus = "voting"
	ClassStatusLocked ClassStatus = "locked"
)

// Classroom is moderator-owned shared state. The participant core only ever
// reads it.
type Classroom struct {
	Title        string
	IsActive     bool
	Status       ClassStatus
	ActivePollID string
}

// Poll is moderator-owned and read-only here. Options keep their authored
// order; votes reference options by index.
type Poll struct {
	ID               string
	Question         string
	Options          []string
	IsMultipleChoice bool
}

// Vote is keyed by (pollID, participantID) in the store. The key is the sole
// de-duplication mechanism: existence of the document, not its content, is the
// authoritative "has voted" signal.
type Vote struct {
	ParticipantID ParticipantID
	VoterName     string
	Selected      []int
	Timestamp     time.Time
}

type Message struct {
	ID            string
	ParticipantID ParticipantID
	SenderName    string
	Text          string
	Timestamp     time.Time
}

// Mine reports whether the message was sent by the given participant.
func (m Message) Mine(id ParticipantID) bool {
	return id != "" && m.ParticipantID == id
}
