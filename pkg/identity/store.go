// Package identity defines the registry contract for canonical identities.
// Backends must serialize Create and Merge against each other and against
// snapshots, and must never recycle an id once its identity is destroyed.
package identity

import (
	"context"

	"github.com/Ramsey-B/fern/pkg/models"
)

// Store is the canonical identity registry. Snapshot returns deep copies so
// a match scan observes a consistent registry even while merges land.
type Store interface {
	// Create registers a new verified identity (confidence 1.0). All fields
	// are normalized before storage. Returns ErrDuplicateCanonicalEmail when
	// uniqueness enforcement is on and the canonical email is taken.
	Create(ctx context.Context, req models.CreateIdentityRequest) (*models.Identity, error)

	// Get returns the identity with the given id or ErrIdentityNotFound
	Get(ctx context.Context, id string) (*models.Identity, error)

	// Snapshot returns a stable copy of every registered identity,
	// ordered by id for deterministic scans
	Snapshot(ctx context.Context) ([]models.Identity, error)

	// Merge folds the secondary identity's signals into the primary and
	// removes the secondary: phones and handles are unioned (existing
	// platform handles are never overwritten) and the secondary's canonical
	// email becomes an alternative email of the primary. Returns
	// ErrIdentityNotFound if either side is no longer registered.
	Merge(ctx context.Context, primaryID, secondaryID string) (*models.Identity, error)

	// Report aggregates registry statistics
	Report(ctx context.Context) (*models.UnificationReport, error)
}
