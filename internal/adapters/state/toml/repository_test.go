package toml

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pawlive/classmate/internal/domain"
)

func TestLoadReturnsNotFoundBeforeFirstSave(t *testing.T) {
	t.Parallel()

	repo, err := NewRepository(filepath.Join(t.TempDir(), "session.toml"))
	require.NoError(t, err)

	_, err = repo.Load(context.Background())
	assert.ErrorIs(t, err, domain.ErrEntryMarkerNotFound)
}

func TestSaveThenLoadRoundTrip(t *testing.T) {
	t.Parallel()

	path := filepath.Join(t.TempDir(), "session.toml")
	repo, err := NewRepository(path)
	require.NoError(t, err)

	marker := domain.EntryMarker{ParticipantID: "u1", FullName: "Ada Lovelace"}
	require.NoError(t, repo.Save(context.Background(), marker))

	// A fresh repository simulates a process restart.
	restarted, err := NewRepository(path)
	require.NoError(t, err)
	loaded, err := restarted.Load(context.Background())
	require.NoError(t, err)
	assert.Equal(t, marker, loaded)
}

func TestSaveRejectsIncompleteMarker(t *testing.T) {
	t.Parallel()

	repo, err := NewRepository(filepath.Join(t.TempDir(), "session.toml"))
	require.NoError(t, err)

	assert.Error(t, repo.Save(context.Background(), domain.EntryMarker{FullName: "Ada"}))
	assert.Error(t, repo.Save(context.Background(), domain.EntryMarker{ParticipantID: "u1"}))
}

func TestLoadRejectsNewerSchemaVersion(t *testing.T) {
	t.Parallel()

	path := filepath.Join(t.TempDir(), "session.toml")
	require.NoError(t, os.WriteFile(path, []byte("version = 99\nparticipant_id = \"u1\"\nfull_name = \"Ada\"\n"), 0o600))

	repo, err := NewRepository(path)
	require.NoError(t, err)

	_, err = repo.Load(context.Background())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "unsupported session marker schema version")
}
