package application

import (
	"context"
	"errors"
	"fmt"
	"slices"
	"strconv"
	"strings"
	"sync"

	"github.com/pawlive/classmate/internal/domain"
	"github.com/pawlive/classmate/internal/ports"
)

// Enter performs the one-time session gate: it registers the display name in
// the global participant directory and in the classroom's attendee list, then
// persists the local entry marker. Both upserts are field-level merges, so
// retrying after a failure is always safe; the marker is only written once
// both have succeeded, and no local state changes on failure.
func (s *Session) Enter(ctx context.Context, fullName string) error {
	fullName = strings.TrimSpace(fullName)
	if fullName == "" {
		return errors.New("full name is required")
	}

	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return domain.ErrSessionClosed
	}
	s.mu.Unlock()

	identity, err := s.identity.Resolve(ctx)
	if err != nil {
		return fmt.Errorf("resolve participant identity: %w", err)
	}

	now := s.clock.Now().UnixMilli()
	if err := s.store.Merge(ctx, profilePath(identity.ID), map[string]any{
		"fullName":  fullName,
		"role":      domain.RoleStudent,
		"createdAt": now,
	}); err != nil {
		return fmt.Errorf("register participant profile: %w", errors.Join(domain.ErrEntryFailed, err))
	}

	if err := s.store.Merge(ctx, attendeePath(s.classroomID, identity.ID), map[string]any{
		"fullName": fullName,
		"joinedAt": now,
	}); err != nil {
		return fmt.Errorf("register classroom attendee: %w", errors.Join(domain.ErrEntryFailed, err))
	}

	if err := s.sessions.Save(ctx, domain.EntryMarker{ParticipantID: identity.ID, FullName: fullName}); err != nil {
		return fmt.Errorf("persist entry marker: %w", errors.Join(domain.ErrEntryFailed, err))
	}

	s.apply(func() {
		s.id = identity
		s.entered = true
		s.fullName = fullName
	})
	return nil
}

// SubmitVote writes the vote document for the current poll, fans out one
// stream event per selected option, and bumps the attendee vote counter.
//
// Preconditions are checked locally and a call that fails any of them is a
// silent no-op: a poll must be cached, identity known, the selection
// non-empty and in range, and no vote observed yet. The optimistic has-voted
// flag flips before the write so rapid double-submission cannot produce two
// semantically different votes; it rolls back if the vote write fails.
//
// Only the vote document is authoritative. Stream-event and counter failures
// after a durable vote are logged and swallowed.
func (s *Session) SubmitVote(ctx context.Context, selected []int) error {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return domain.ErrSessionClosed
	}
	s.mu.Unlock()

	var (
		proceed   bool
		pollID    string
		multiple  bool
		id        domain.ParticipantID
		voterName string
	)
	// Precondition check and optimistic flip are one atomic step, so a rapid
	// double invocation cannot pass the not-voted gate twice. The vote
	// subscription later confirms the flag remotely.
	s.apply(func() {
		poll := s.poll
		if poll == nil || !s.id.Known() || s.hasVoted || len(selected) == 0 {
			return
		}
		if slices.ContainsFunc(selected, func(idx int) bool { return idx < 0 || idx >= len(poll.Options) }) {
			return
		}
		s.hasVoted = true
		proceed = true
		pollID = poll.ID
		multiple = poll.IsMultipleChoice
		id = s.id.ID
		voterName = s.fullName
	})
	if !proceed {
		return nil
	}

	var selectedOption any
	if multiple {
		selectedOption = toInt64s(selected)
	} else {
		selectedOption = int64(selected[0])
	}

	if err := s.store.Set(ctx, votePath(s.classroomID, pollID, id), map[string]any{
		"uid":            string(id),
		"voterName":      voterName,
		"selectedOption": selectedOption,
		"timestamp":      s.clock.Now().UnixMilli(),
	}); err != nil {
		s.apply(func() {
			if s.votePollID == pollID {
				s.hasVoted = false
			}
		})
		return fmt.Errorf("write vote document: %w", errors.Join(domain.ErrVoteFailed, err))
	}

	// Best-effort fan-out for the live visualization; issued concurrently
	// and awaited together. The vote already stands.
	var wg sync.WaitGroup
	fanoutErrs := make([]error, len(selected))
	for i, option := range selected {
		i, option := i, option
		wg.Add(1)
		go func() {
			defer wg.Done()
			fanoutErrs[i] = s.store.Set(ctx, streamEventPath(pollID, id, option), map[string]any{
				"optionId":  strconv.Itoa(option),
				"timestamp": s.clock.Now().UnixMilli(),
			})
		}()
	}
	wg.Wait()
	if err := errors.Join(fanoutErrs...); err != nil {
		s.logger.Warn("vote stream fan-out failed", "poll", pollID, "error", err)
	}

	if err := s.store.Merge(ctx, attendeePath(s.classroomID, id), map[string]any{
		"voteCount": ports.Increment{By: 1},
	}); err != nil {
		s.logger.Warn("vote counter increment failed", "poll", pollID, "error", err)
	}

	return nil
}

// SendMessage appends a chat message and bumps the attendee message counter.
// Fire-and-forget: precondition failures are silent no-ops and write failures
// are logged, never surfaced, and never retried automatically.
func (s *Session) SendMessage(ctx context.Context, text string) error {
	text = strings.TrimSpace(text)

	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return domain.ErrSessionClosed
	}
	inactive := s.classroom != nil && !s.classroom.IsActive
	id := s.id.ID
	senderName := s.fullName
	s.mu.Unlock()

	if text == "" || id == "" || inactive {
		return nil
	}

	if _, err := s.store.Add(ctx, messagesCollection(s.classroomID), map[string]any{
		"uid":        string(id),
		"senderName": senderName,
		"text":       text,
		"timestamp":  s.clock.Now().UnixMilli(),
	}); err != nil {
		s.logger.Warn("message send failed", "classroom", s.classroomID, "error", err)
		return nil
	}

	if err := s.store.Merge(ctx, attendeePath(s.classroomID, id), map[string]any{
		"messageCount": ports.Increment{By: 1},
	}); err != nil {
		s.logger.Warn("message counter increment failed", "classroom", s.classroomID, "error", err)
	}
	return nil
}

// ToggleOption flips one option in the local multi-choice selection buffer.
// No-op for single-choice polls, after a vote, or while the poll is locked.
func (s *Session) ToggleOption(idx int) {
	s.apply(func() {
		if s.poll == nil || !s.poll.IsMultipleChoice || s.hasVoted {
			return
		}
		if idx < 0 || idx >= len(s.poll.Options) {
			return
		}
		if s.classroom != nil && s.classroom.Status == domain.ClassStatusLocked {
			return
		}
		if pos := slices.Index(s.selected, idx); pos >= 0 {
			s.selected = slices.Delete(s.selected, pos, pos+1)
		} else {
			s.selected = append(s.selected, idx)
		}
	})
}

// SelectedOptions returns a copy of the local selection buffer.
func (s *Session) SelectedOptions() []int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return slices.Clone(s.selected)
}

func toInt64s(values []int) []int64 {
	out := make([]int64, len(values))
	for i, v := range values {
		out[i] = int64(v)
	}
	return out
}
