package toml

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"

	toml "github.com/pelletier/go-toml/v2"

	"github.com/pawlive/classmate/internal/domain"
	"github.com/pawlive/classmate/internal/ports"
)

const (
	markerFileMode  = 0o600
	markerDirMode   = 0o700
	tempFilePattern = ".session-*.toml.tmp"
)

// Repository persists the "already entered" marker in a TOML file. A marker
// is written only after both entry upserts succeed, and its presence lets a
// returning participant skip the entry gate.
type Repository struct {
	path string
	mu   *sync.RWMutex
}

var (
	lockRegistryMu sync.Mutex
	pathLockMap    = map[string]*sync.RWMutex{}
)

var _ ports.SessionStore = (*Repository)(nil)

func NewRepository(path string) (*Repository, error) {
	path = filepath.Clean(strings.TrimSpace(path))
	if path == "" || path == "." {
		return nil, errors.New("session marker path is empty")
	}

	return &Repository{path: path, mu: lockForPath(path)}, nil
}

func (r *Repository) Load(ctx context.Context) (domain.EntryMarker, error) {
	if err := ctx.Err(); err != nil {
		return domain.EntryMarker{}, err
	}

	r.mu.RLock()
	defer r.mu.RUnlock()

	data, err := os.ReadFile(r.path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return domain.EntryMarker{}, domain.ErrEntryMarkerNotFound
		}
		return domain.EntryMarker{}, fmt.Errorf("read session marker: %w", err)
	}

	var file fileSchema
	if err := toml.Unmarshal(data, &file); err != nil {
		return domain.EntryMarker{}, fmt.Errorf("decode session marker: %w", err)
	}
	if err := file.validateVersion(); err != nil {
		return domain.EntryMarker{}, err
	}

	marker := file.marker()
	if !marker.Valid() {
		return domain.EntryMarker{}, domain.ErrEntryMarkerNotFound
	}
	return marker, nil
}

func (r *Repository) Save(ctx context.Context, marker domain.EntryMarker) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if !marker.Valid() {
		return errors.New("entry marker requires participant id and full name")
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	data, err := toml.Marshal(toSchema(marker))
	if err != nil {
		return fmt.Errorf("encode session marker: %w", err)
	}

	if err := os.MkdirAll(filepath.Dir(r.path), markerDirMode); err != nil {
		return fmt.Errorf("create session marker directory: %w", err)
	}

	tmp, err := os.CreateTemp(filepath.Dir(r.path), tempFilePattern)
	if err != nil {
		return fmt.Errorf("create temp session marker: %w", err)
	}
	tmpPath := tmp.Name()

	if _, err := tmp.Write(data); err != nil {
		_ = tmp.Close()
		_ = os.Remove(tmpPath)
		return fmt.Errorf("write temp session marker: %w", err)
	}
	if err := tmp.Close(); err != nil {
		_ = os.Remove(tmpPath)
		return fmt.Errorf("close temp session marker: %w", err)
	}
	if err := os.Chmod(tmpPath, markerFileMode); err != nil {
		_ = os.Remove(tmpPath)
		return fmt.Errorf("chmod temp session marker: %w", err)
	}
	if err := os.Rename(tmpPath, r.path); err != nil {
		_ = os.Remove(tmpPath)
		return fmt.Errorf("replace session marker: %w", err)
	}
	return nil
}

func lockForPath(path string) *sync.RWMutex {
	lockRegistryMu.Lock()
	defer lockRegistryMu.Unlock()

	if lock, ok := pathLockMap[path]; ok {
		return lock
	}
	lock := &sync.RWMutex{}
	pathLockMap[path] = lock
	return lock
}
