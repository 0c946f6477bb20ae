package ports

import (
	"context"

	"github.com/pawlive/classmate/internal/domain"
)

// IdentityProvider resolves the durable participant identity. Resolve is
// idempotent: repeated calls within a process return the same identity
// without re-provisioning. Failures wrap domain.ErrAuthUnavailable.
type IdentityProvider interface {
	Resolve(ctx context.Context) (domain.Identity, error)
}
