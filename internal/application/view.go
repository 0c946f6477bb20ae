package application

import (
	"slices"

	"github.com/pawlive/classmate/internal/domain"
)

// View is a consistent copy of everything a renderer needs, taken under the
// session mutex in one step.
type View struct {
	Screen         domain.Screen
	ClassroomTitle string
	Poll           *domain.Poll
	Selected       []int
	Messages       []domain.Message
	Me             domain.ParticipantID
	FullName       string
}

func (s *Session) View() View {
	s.mu.Lock()
	defer s.mu.Unlock()

	view := View{
		Screen:   domain.DeriveScreen(s.classroom, s.poll, s.hasVoted, s.entered),
		Selected: slices.Clone(s.selected),
		Messages: slices.Clone(s.messages),
		Me:       s.id.ID,
		FullName: s.fullName,
	}
	if s.classroom != nil {
		view.ClassroomTitle = s.classroom.Title
	}
	if s.poll != nil {
		poll := *s.poll
		poll.Options = slices.Clone(s.poll.Options)
		view.Poll = &poll
	}
	return view
}
