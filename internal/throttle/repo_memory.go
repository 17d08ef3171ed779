package throttle

import (
	"context"
	"sync"
	"time"
)

// MemoryRepo is an in-memory Repo for dev mode and tests.
type MemoryRepo struct {
	mu       sync.Mutex
	nextID   int64
	counters map[string]Counter
}

// NewMemoryRepo constructs an empty in-memory repo.
func NewMemoryRepo() *MemoryRepo {
	return &MemoryRepo{counters: make(map[string]Counter)}
}

func (r *MemoryRepo) Increment(ctx context.Context, addr string, now time.Time) (Counter, error) {
	if err := ctx.Err(); err != nil {
		return Counter{}, err
	}
	r.mu.Lock()
	defer r.mu.Unlock()

	now = now.UTC()
	counter, ok := r.counters[addr]
	if !ok {
		r.nextID++
		counter = Counter{
			ID:             r.nextID,
			IPAddress:      addr,
			FirstRequestAt: now,
			CreatedAt:      now,
		}
	}
	counter.RequestCount++
	counter.LastRequestAt = now
	counter.UpdatedAt = now
	r.counters[addr] = counter
	return counter, nil
}

func (r *MemoryRepo) Get(ctx context.Context, addr string) (Counter, error) {
	if err := ctx.Err(); err != nil {
		return Counter{}, err
	}
	r.mu.Lock()
	defer r.mu.Unlock()

	counter, ok := r.counters[addr]
	if !ok {
		return Counter{}, ErrNotFound
	}
	return counter, nil
}

func (r *MemoryRepo) DeleteLastSeenBefore(ctx context.Context, cutoff time.Time) (int64, error) {
	if err := ctx.Err(); err != nil {
		return 0, err
	}
	r.mu.Lock()
	defer r.mu.Unlock()

	var removed int64
	for addr, counter := range r.counters {
		if counter.LastRequestAt.Before(cutoff) {
			delete(r.counters, addr)
			removed++
		}
	}
	return removed, nil
}

var _ Repo = (*MemoryRepo)(nil)
