package throttle

import (
	"context"
	"errors"
	"time"
)

const (
	// DefaultLimit is the number of analysis requests allowed per address
	// within the window.
	DefaultLimit = 10
	// DefaultWindow is how far back a counter still counts against the limit.
	DefaultWindow = time.Hour
	// DefaultRetention is how long stale counters are kept before pruning.
	DefaultRetention = 24 * time.Hour
)

// Service enforces the per-address request ceiling.
type Service struct {
	Repo   Repo
	Limit  int
	Window time.Duration
	now    func() time.Time
}

// NewService constructs a Service with the default limit and window.
func NewService(repo Repo) *Service {
	return &Service{
		Repo:   repo,
		Limit:  DefaultLimit,
		Window: DefaultWindow,
		now:    time.Now,
	}
}

// Allow reports whether the address is under its limit. It does not record
// the request; call Increment once the request is accepted.
func (s *Service) Allow(ctx context.Context, addr string) (bool, error) {
	count, err := s.Count(ctx, addr)
	if err != nil {
		return false, err
	}
	return count < s.Limit, nil
}

// Count returns the request count for an address. A counter last seen
// outside the window reads as zero.
func (s *Service) Count(ctx context.Context, addr string) (int, error) {
	counter, err := s.Repo.Get(ctx, addr)
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			return 0, nil
		}
		return 0, err
	}
	if counter.LastRequestAt.Before(s.now().Add(-s.Window)) {
		return 0, nil
	}
	return counter.RequestCount, nil
}

// Increment records one request from the address.
func (s *Service) Increment(ctx context.Context, addr string) error {
	_, err := s.Repo.Increment(ctx, addr, s.now())
	return err
}

// PruneOlderThan drops counters idle for longer than age.
func (s *Service) PruneOlderThan(ctx context.Context, age time.Duration) (int64, error) {
	return s.Repo.DeleteLastSeenBefore(ctx, s.now().Add(-age))
}
