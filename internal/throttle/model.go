package throttle

import "time"

// Counter tracks analysis requests from a single client address. One row per
// address; the count keeps growing until the row goes stale and is pruned.
type Counter struct {
	ID             int64
	IPAddress      string
	RequestCount   int
	FirstRequestAt time.Time
	LastRequestAt  time.Time
	CreatedAt      time.Time
	UpdatedAt      time.Time
}
