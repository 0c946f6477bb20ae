package application

import (
	"time"

	"github.com/pawlive/classmate/internal/domain"
	"github.com/pawlive/classmate/internal/ports"
)

// Snapshot fields use the store's wire names and arrive schemaless; decoding
// is tolerant of missing fields and of the numeric widenings document stores
// perform.

func decodeClassroom(fields map[string]any) *domain.Classroom {
	return &domain.Classroom{
		Title:        asString(fields["title"]),
		IsActive:     asBool(fields["isActive"]),
		Status:       domain.ClassStatus(asString(fields["status"])),
		ActivePollID: asString(fields["activePollId"]),
	}
}

func decodePoll(id string, fields map[string]any) *domain.Poll {
	return &domain.Poll{
		ID:               id,
		Question:         asString(fields["question"]),
		Options:          asStrings(fields["options"]),
		IsMultipleChoice: asBool(fields["isMultipleChoice"]),
	}
}

func decodeMessages(snap ports.QuerySnapshot) []domain.Message {
	messages := make([]domain.Message, 0, len(snap.Docs))
	for _, doc := range snap.Docs {
		messages = append(messages, domain.Message{
			ID:            doc.ID,
			ParticipantID: domain.ParticipantID(asString(doc.Fields["uid"])),
			SenderName:    asString(doc.Fields["senderName"]),
			Text:          asString(doc.Fields["text"]),
			Timestamp:     time.UnixMilli(asInt64(doc.Fields["timestamp"])),
		})
	}
	return messages
}

func asString(v any) string {
	s, _ := v.(string)
	return s
}

func asBool(v any) bool {
	b, _ := v.(bool)
	return b
}

func asInt64(v any) int64 {
	switch n := v.(type) {
	case int64:
		return n
	case int:
		return int64(n)
	case int32:
		return int64(n)
	case float64:
		return int64(n)
	default:
		return 0
	}
}

func asStrings(v any) []string {
	switch list := v.(type) {
	case []string:
		out := make([]string, len(list))
		copy(out, list)
		return out
	case []any:
		out := make([]string, 0, len(list))
		for _, item := range list {
			out = append(out, asString(item))
		}
		return out
	default:
		return nil
	}
}
