package device

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	toml "github.com/pelletier/go-toml/v2"

	"github.com/pawlive/classmate/internal/domain"
	"github.com/pawlive/classmate/internal/ports"
)

const (
	identityFileMode = 0o600
	identityDirMode  = 0o700
)

// Provider issues a device-scoped anonymous participant identity. The first
// resolution generates an id and persists it; every later resolution, in this
// process or the next, returns the same identity. Failures to issue or
// recover the credential wrap domain.ErrAuthUnavailable.
type Provider struct {
	path  string
	clock ports.Clock

	mu     sync.Mutex
	cached domain.Identity
}

var _ ports.IdentityProvider = (*Provider)(nil)

type identitySchema struct {
	Version       int    `toml:"version"`
	ParticipantID string `toml:"participant_id"`
	CreatedAt     string `toml:"created_at"`
}

func NewProvider(path string, clock ports.Clock) *Provider {
	if clock == nil {
		clock = ports.SystemClock{}
	}
	return &Provider{path: filepath.Clean(path), clock: clock}
}

func (p *Provider) Resolve(ctx context.Context) (domain.Identity, error) {
	if err := ctx.Err(); err != nil {
		return domain.Identity{}, err
	}

	p.mu.Lock()
	defer p.mu.Unlock()

	if p.cached.Known() {
		return p.cached, nil
	}

	identity, err := p.load()
	if err == nil {
		p.cached = identity
		return identity, nil
	}
	if !errors.Is(err, os.ErrNotExist) {
		return domain.Identity{}, fmt.Errorf("recover device identity: %w", errors.Join(domain.ErrAuthUnavailable, err))
	}

	identity = domain.Identity{ID: domain.ParticipantID(uuid.NewString())}
	if err := p.persist(identity); err != nil {
		return domain.Identity{}, fmt.Errorf("issue device identity: %w", errors.Join(domain.ErrAuthUnavailable, err))
	}

	p.cached = identity
	return identity, nil
}

func (p *Provider) load() (domain.Identity, error) {
	data, err := os.ReadFile(p.path)
	if err != nil {
		return domain.Identity{}, err
	}

	var file identitySchema
	if err := toml.Unmarshal(data, &file); err != nil {
		return domain.Identity{}, fmt.Errorf("decode identity file: %w", err)
	}

	id := strings.TrimSpace(file.ParticipantID)
	if id == "" {
		return domain.Identity{}, errors.New("identity file has no participant id")
	}
	return domain.Identity{ID: domain.ParticipantID(id)}, nil
}

func (p *Provider) persist(identity domain.Identity) error {
	if err := os.MkdirAll(filepath.Dir(p.path), identityDirMode); err != nil {
		return fmt.Errorf("create identity directory: %w", err)
	}

	data, err := toml.Marshal(identitySchema{
		Version:       1,
		ParticipantID: string(identity.ID),
		CreatedAt:     p.clock.Now().UTC().Format(time.RFC3339),
	})
	if err != nil {
		return fmt.Errorf("encode identity file: %w", err)
	}

	tmp, err := os.CreateTemp(filepath.Dir(p.path), ".identity-*.toml.tmp")
	if err != nil {
		return fmt.Errorf("create temp identity file: %w", err)
	}
	tmpPath := tmp.Name()

	if _, err := tmp.Write(data); err != nil {
		_ = tmp.Close()
		_ = os.Remove(tmpPath)
		return fmt.Errorf("write temp identity file: %w", err)
	}
	if err := tmp.Close(); err != nil {
		_ = os.Remove(tmpPath)
		return fmt.Errorf("close temp identity file: %w", err)
	}
	if err := os.Chmod(tmpPath, identityFileMode); err != nil {
		_ = os.Remove(tmpPath)
		return fmt.Errorf("chmod temp identity file: %w", err)
	}
	if err := os.Rename(tmpPath, p.path); err != nil {
		_ = os.Remove(tmpPath)
		return fmt.Errorf("replace identity file: %w", err)
	}
	return nil
}
