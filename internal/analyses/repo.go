package analyses

import (
	"context"
	"time"
)

// Repo defines persistence operations for analyses. Mark* methods enforce
// the state machine in the store so concurrent workers cannot regress a
// terminal row.
type Repo interface {
	Create(ctx context.Context, analysis Analysis) (Analysis, error)
	GetByUUID(ctx context.Context, uuid string) (Analysis, error)
	// MarkProcessing moves pending→processing. Returns the row's current
	// status so callers can detect redelivered terminal work.
	MarkProcessing(ctx context.Context, uuid string) (Status, error)
	// SetGitHubData stores the fetched profile summary mid-flight.
	SetGitHubData(ctx context.Context, uuid string, data map[string]any) error
	MarkCompleted(ctx context.Context, uuid string, result CompletionResult, completedAt time.Time) error
	MarkFailed(ctx context.Context, uuid string, errorMessage string) error
	// Unlock marks the analysis paid. Reports false without error when the
	// row was already paid (idempotent webhook redelivery).
	Unlock(ctx context.Context, uuid string, paymentReference string, paidAt time.Time) (bool, error)
	// DeleteUnpaidBefore prunes unpaid analyses created before the cutoff.
	DeleteUnpaidBefore(ctx context.Context, cutoff time.Time) (int64, error)
}
