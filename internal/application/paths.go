package application

import (
	"fmt"

	"github.com/pawlive/classmate/internal/domain"
)

func classroomPath(classroomID string) string {
	return "classrooms/" + classroomID
}

func profilePath(id domain.ParticipantID) string {
	return "participants/" + string(id)
}

func attendeePath(classroomID string, id domain.ParticipantID) string {
	return fmt.Sprintf("classrooms/%s/attendees/%s", classroomID, id)
}

func pollPath(classroomID, pollID string) string {
	return fmt.Sprintf("classrooms/%s/polls/%s", classroomID, pollID)
}

func votePath(classroomID, pollID string, id domain.ParticipantID) string {
	return fmt.Sprintf("classrooms/%s/polls/%s/votes/%s", classroomID, pollID, id)
}

func streamEventPath(pollID string, id domain.ParticipantID, option int) string {
	return fmt.Sprintf("streams/%s/events/%s_%d", pollID, id, option)
}

func messagesCollection(classroomID string) string {
	return fmt.Sprintf("classrooms/%s/messages", classroomID)
}
