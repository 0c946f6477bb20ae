package ports

import (
	"context"

	"github.com/pawlive/classmate/internal/domain"
)

// SessionStore persists the local "already entered" marker across process
// restarts. Load returns domain.ErrEntryMarkerNotFound when no marker has
// been saved yet.
type SessionStore interface {
	Load(ctx context.Context) (domain.EntryMarker, error)
	Save(ctx context.Context, marker domain.EntryMarker) error
}
