package screen

import (
	"fmt"
	"strings"
	"time"

	"github.com/charmbracelet/lipgloss"

	"github.com/pawlive/classmate/internal/application"
	"github.com/pawlive/classmate/internal/domain"
)

type RenderOptions struct {
	Now time.Time
	// MaxMessages bounds the chat tail shown on screen; 0 means all.
	MaxMessages int
}

func renderView(view application.View, opts RenderOptions, s styles) string {
	lines := []string{
		s.title.Render(classroomTitle(view)),
		s.header.Render(fmt.Sprintf("screen: %s", view.Screen.Mode)),
	}

	lines = append(lines, s.section.Render(renderBody(view, opts, s)))

	return lipgloss.JoinVertical(lipgloss.Left, lines...)
}

func renderBody(view application.View, opts RenderOptions, s styles) string {
	switch view.Screen.Mode {
	case domain.ScreenConnecting:
		return s.empty.Render("Connecting to classroom...")
	case domain.ScreenClassOffline:
		return s.warning.Render("Class is offline. Waiting for the moderator to start.")
	case domain.ScreenEntryGate:
		return lipgloss.JoinVertical(lipgloss.Left,
			s.option.Render("Enter your full name to join the class."),
			s.hint.Render("classmate join --name \"Your Name\""),
		)
	case domain.ScreenPoll:
		return renderPoll(view, s)
	case domain.ScreenChat:
		return renderChat(view, opts, s)
	default:
		return s.empty.Render("Nothing to show.")
	}
}

func renderPoll(view application.View, s styles) string {
	if view.Poll == nil {
		return s.empty.Render("Waiting for the poll to load...")
	}

	parts := []string{s.question.Render(view.Poll.Question)}
	if view.Screen.PollLocked {
		parts = append(parts, s.banner.Render("Voting is locked."))
	}

	for idx, option := range view.Poll.Options {
		parts = append(parts, optionLine(idx, option, view, s))
	}

	switch {
	case view.Screen.VoteConfirmed:
		parts = append(parts, s.confirmed.Render("Your vote is in."))
	case view.Screen.PollLocked:
		// No prompt: locked and unvoted means the window was missed.
	case view.Poll.IsMultipleChoice:
		parts = append(parts, s.hint.Render("Select any options, then submit your vote."))
	default:
		parts = append(parts, s.hint.Render("Pick one option to vote."))
	}

	return lipgloss.JoinVertical(lipgloss.Left, parts...)
}

func optionLine(idx int, option string, view application.View, s styles) string {
	marker := "[ ]"
	if selectedOption(view.Selected, idx) {
		marker = "[x]"
	}
	return lipgloss.JoinHorizontal(
		lipgloss.Top,
		s.marker.Render(marker),
		" ",
		s.option.Render(fmt.Sprintf("%d. %s", idx+1, option)),
	)
}

func selectedOption(selected []int, idx int) bool {
	for _, v := range selected {
		if v == idx {
			return true
		}
	}
	return false
}

func renderChat(view application.View, opts RenderOptions, s styles) string {
	messages := view.Messages
	if opts.MaxMessages > 0 && len(messages) > opts.MaxMessages {
		messages = messages[len(messages)-opts.MaxMessages:]
	}

	if len(messages) == 0 {
		return s.empty.Render("No messages yet. Say hello!")
	}

	parts := make([]string, 0, len(messages))
	for _, msg := range messages {
		parts = append(parts, messageLine(msg, view.Me, opts, s))
	}

	return lipgloss.JoinVertical(lipgloss.Left, parts...)
}

func messageLine(msg domain.Message, me domain.ParticipantID, opts RenderOptions, s styles) string {
	senderStyle := s.sender
	sender := msg.SenderName
	if msg.Mine(me) {
		senderStyle = s.mine
		sender = "you"
	}

	return lipgloss.JoinHorizontal(
		lipgloss.Top,
		s.timestamp.Render(formatTimestamp(msg.Timestamp, opts.Now)),
		" ",
		senderStyle.Render(sender+":"),
		" ",
		s.text.Render(msg.Text),
	)
}

func classroomTitle(view application.View) string {
	title := strings.TrimSpace(view.ClassroomTitle)
	if title == "" {
		return "Classroom"
	}
	return title
}

func formatTimestamp(at, now time.Time) string {
	if at.IsZero() {
		return "--:--"
	}
	if now.IsZero() {
		return at.Format("15:04")
	}

	yearA, monthA, dayA := now.Date()
	yearB, monthB, dayB := at.Date()
	if yearA == yearB && monthA == monthB && dayA == dayB {
		return at.Format("15:04")
	}

	return at.Format("15:04 on 02 Jan")
}
