package store

import (
	"context"

	"github.com/ledass/Auto-accepting-repo/internal/domain"
)

// Repo is the set of known users. Entries are added, never removed.
type Repo interface {
	Contains(ctx context.Context, id domain.UserID) (bool, error)
	// Add inserts id if absent and reports whether it was new.
	// It returns only after the insertion is durable.
	Add(ctx context.Context, id domain.UserID) (bool, error)
	Count(ctx context.Context) (int, error)
	// All returns a snapshot of every id in registration order.
	All(ctx context.Context) ([]domain.UserID, error)
	Close() error
}
