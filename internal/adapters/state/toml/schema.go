package toml

import (
	"fmt"

	"github.com/pawlive/classmate/internal/domain"
)

const currentSchemaVersion = 1

type fileSchema struct {
	Version       int    `toml:"version"`
	ParticipantID string `toml:"participant_id"`
	FullName      string `toml:"full_name"`
}

func (s fileSchema) validateVersion() error {
	if s.Version > currentSchemaVersion {
		return fmt.Errorf("unsupported session marker schema version %d (current %d)", s.Version, currentSchemaVersion)
	}
	return nil
}

func (s fileSchema) marker() domain.EntryMarker {
	return domain.EntryMarker{
		ParticipantID: domain.ParticipantID(s.ParticipantID),
		FullName:      s.FullName,
	}
}

func toSchema(marker domain.EntryMarker) fileSchema {
	return fileSchema{
		Version:       currentSchemaVersion,
		ParticipantID: string(marker.ParticipantID),
		FullName:      marker.FullName,
	}
}
