package throttle

import (
	"context"
	"errors"
	"time"
)

// ErrNotFound indicates no counter exists for the address.
var ErrNotFound = errors.New("throttle counter not found")

// Repo persists per-address request counters.
type Repo interface {
	// Increment bumps the counter for an address, creating it when absent,
	// and returns the updated row.
	Increment(ctx context.Context, addr string, now time.Time) (Counter, error)
	// Get returns the counter for an address or ErrNotFound.
	Get(ctx context.Context, addr string) (Counter, error)
	// DeleteLastSeenBefore removes counters whose last request predates the
	// cutoff and reports how many were removed.
	DeleteLastSeenBefore(ctx context.Context, cutoff time.Time) (int64, error)
}
