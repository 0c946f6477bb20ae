package application

import (
	"github.com/pawlive/classmate/internal/domain"
	"github.com/pawlive/classmate/internal/ports"
)

// messageWindow bounds the chat read window: the store returns the first 100
// messages ordered ascending by timestamp.
const messageWindow = 100

// plan is the set of subscription changes decided under the session mutex and
// executed after it is released.
type plan struct {
	cancel        []ports.Subscription
	watchMessages bool
	watchPollID   string
	pollGen       int
	watchVoteID   string
	voteGen       int
}

// reconcileLocked recomputes the dependent subscription slots from current
// state. Called with s.mu held, after every state mutation.
//
// Slot rules:
//   - messages: wanted once the session is entered and identity is known;
//     kept for the session's lifetime afterwards.
//   - poll: wanted only while entered, identity known, an active poll is set,
//     and the classroom status is voting. When the gate closes the cached
//     poll is cleared, except on a transition to locked, which must keep the
//     last-known poll on screen.
//   - vote: wanted whenever an active poll is set and identity is known,
//     independent of status. The local vote state resets here, synchronously
//     with the poll-id change, so an old poll's vote can never be attributed
//     to a new poll.
func (s *Session) reconcileLocked() plan {
	var p plan
	if !s.started || s.closed {
		return p
	}

	if s.entered && s.id.Known() && s.messagesSub == nil {
		p.watchMessages = true
	}

	activePollID := ""
	status := domain.ClassStatusNone
	if s.classroom != nil {
		activePollID = s.classroom.ActivePollID
		status = s.classroom.Status
	}

	pollKey := ""
	if s.entered && s.id.Known() && activePollID != "" && status == domain.ClassStatusVoting {
		pollKey = activePollID
	}
	if pollKey != s.pollKey {
		if s.pollSub != nil {
			p.cancel = append(p.cancel, s.pollSub)
			s.pollSub = nil
		}
		s.pollGen++
		s.pollKey = pollKey
		if pollKey == "" && status != domain.ClassStatusLocked {
			s.poll = nil
		}
		if pollKey != "" {
			p.watchPollID = pollKey
			p.pollGen = s.pollGen
		}
	}

	votePollID := ""
	if s.id.Known() && activePollID != "" {
		votePollID = activePollID
	}
	if votePollID != s.votePollID {
		if s.voteSub != nil {
			p.cancel = append(p.cancel, s.voteSub)
			s.voteSub = nil
		}
		s.voteGen++
		s.votePollID = votePollID
		s.hasVoted = false
		s.selected = nil
		if votePollID != "" {
			p.watchVoteID = votePollID
			p.voteGen = s.voteGen
		}
	}

	return p
}

// execute performs the subscription changes of a plan. Runs without the
// session mutex: cancelling a subscription may wait for an in-flight snapshot
// handler, and that handler needs the mutex to finish.
func (s *Session) execute(p plan) {
	for _, sub := range p.cancel {
		sub.Cancel()
	}

	if p.watchMessages {
		sub, err := s.store.WatchQuery(s.watchCtx, ports.Query{
			Collection: messagesCollection(s.classroomID),
			OrderBy:    "timestamp",
			Ascending:  true,
			Limit:      messageWindow,
		}, s.onMessagesSnapshot)
		if err != nil {
			s.logger.Warn("watch messages failed", "classroom", s.classroomID, "error", err)
		} else {
			s.adopt(&s.messagesSub, sub, nil)
		}
	}

	if p.watchPollID != "" {
		gen := p.pollGen
		sub, err := s.store.WatchDocument(s.watchCtx, pollPath(s.classroomID, p.watchPollID), func(snap ports.DocumentSnapshot) {
			s.onPollSnapshot(gen, snap)
		})
		if err != nil {
			s.logger.Warn("watch poll failed", "poll", p.watchPollID, "error", err)
		} else {
			s.adopt(&s.pollSub, sub, func() bool { return s.pollGen == gen })
		}
	}

	if p.watchVoteID != "" {
		gen := p.voteGen
		sub, err := s.store.WatchDocument(s.watchCtx, votePath(s.classroomID, p.watchVoteID, s.participantID()), func(snap ports.DocumentSnapshot) {
			s.onVoteSnapshot(gen, snap)
		})
		if err != nil {
			s.logger.Warn("watch vote failed", "poll", p.watchVoteID, "error", err)
		} else {
			s.adopt(&s.voteSub, sub, func() bool { return s.voteGen == gen })
		}
	}
}

// adopt records a freshly created subscription in its slot, unless the slot
// was superseded or the session closed while the watch was being set up; the
// late subscription is then cancelled instead.
func (s *Session) adopt(slot *ports.Subscription, sub ports.Subscription, current func() bool) {
	s.mu.Lock()
	stale := s.closed || (current != nil && !current()) || *slot != nil
	if !stale {
		*slot = sub
	}
	s.mu.Unlock()

	if stale {
		sub.Cancel()
	}
}

func (s *Session) participantID() domain.ParticipantID {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.id.ID
}

func (s *Session) onClassroomSnapshot(snap ports.DocumentSnapshot) {
	s.apply(func() {
		// A missing classroom document keeps the previous projection; the
		// screen stays at connecting until the moderator creates the room.
		if snap.Exists {
			s.classroom = decodeClassroom(snap.Fields)
		}
	})
}

func (s *Session) onPollSnapshot(gen int, snap ports.DocumentSnapshot) {
	s.apply(func() {
		if gen != s.pollGen {
			return
		}
		if snap.Exists {
			s.poll = decodePoll(snap.ID, snap.Fields)
		} else {
			s.poll = nil
		}
	})
}

func (s *Session) onVoteSnapshot(gen int, snap ports.DocumentSnapshot) {
	s.apply(func() {
		if gen != s.voteGen {
			return
		}
		// Existence of the vote document, not its content, is the signal.
		s.hasVoted = snap.Exists
		if !snap.Exists {
			s.selected = nil
		}
	})
}

func (s *Session) onMessagesSnapshot(snap ports.QuerySnapshot) {
	s.apply(func() {
		s.messages = decodeMessages(snap)
	})
}
