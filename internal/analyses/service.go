package analyses

import (
	"context"
	"time"

	"github.com/google/uuid"

	"gitscore-backend/internal/ai"
	"gitscore-backend/internal/github"
	"gitscore-backend/internal/queue"
	"gitscore-backend/internal/shared/telemetry"
)

const (
	// DefaultAttemptTimeout bounds one processing attempt.
	DefaultAttemptTimeout = 180 * time.Second
	// DefaultMaxAttempts is how many deliveries a job gets before failing.
	DefaultMaxAttempts = 3
	// DefaultRetryBudget is the wall-clock window for retries, measured from
	// creation.
	DefaultRetryBudget = 10 * time.Minute
	// DefaultRetention is how long unpaid analyses are kept.
	DefaultRetention = 90 * 24 * time.Hour
)

// ProfileFetcher is the slice of the github package the pipeline needs.
type ProfileFetcher interface {
	Fetch(ctx context.Context, username string) (github.Snapshot, error)
}

// Service contains business logic for analyses.
type Service struct {
	Repo    Repo
	Queue   queue.Client
	Fetcher ProfileFetcher
	AI      ai.Client

	AttemptTimeout time.Duration
	MaxAttempts    int
	RetryBudget    time.Duration

	locks keyedLocks
	now   func() time.Time
}

// NewService constructs a Service with default pipeline limits.
func NewService(repo Repo, q queue.Client, fetcher ProfileFetcher, aiClient ai.Client) *Service {
	return &Service{
		Repo:           repo,
		Queue:          q,
		Fetcher:        fetcher,
		AI:             aiClient,
		AttemptTimeout: DefaultAttemptTimeout,
		MaxAttempts:    DefaultMaxAttempts,
		RetryBudget:    DefaultRetryBudget,
		now:            time.Now,
	}
}

// Create records a new pending analysis and hands it to the queue. Without a
// queue the work runs on a detached goroutine, which keeps dev mode
// self-contained.
func (s *Service) Create(ctx context.Context, username, ipAddress string) (Analysis, error) {
	normalized, err := NormalizeUsername(username)
	if err != nil {
		return Analysis{}, err
	}

	analysis := Analysis{
		UUID:      uuid.NewString(),
		Username:  normalized,
		Status:    StatusPending,
		CreatedAt: s.now().UTC(),
	}
	if ipAddress != "" {
		analysis.IPAddress = &ipAddress
	}

	analysis, err = s.Repo.Create(ctx, analysis)
	if err != nil {
		return Analysis{}, err
	}

	s.dispatch(ctx, analysis)
	return analysis, nil
}

func (s *Service) dispatch(ctx context.Context, analysis Analysis) {
	requestID := requestIDFromContext(ctx)
	if s.Queue != nil {
		msg := queue.Message{
			AnalysisID: analysis.UUID,
			RequestID:  requestID,
			EnqueuedAt: s.now().UTC().Format(time.RFC3339),
			Version:    1,
		}
		err := s.Queue.Send(ctx, msg)
		if err == nil {
			return
		}
		telemetry.Error("analysis.enqueue_failed", map[string]any{
			"analysis_id": analysis.UUID,
			"request_id":  requestID,
			"error":       err.Error(),
		})
	}
	go func() {
		detached := backgroundWithRequestID(ctx)
		if err := s.ProcessAnalysis(detached, analysis.UUID, 1); err != nil {
			telemetry.Error("analysis.inline_process_failed", map[string]any{
				"analysis_id": analysis.UUID,
				"request_id":  requestID,
				"error":       err.Error(),
			})
		}
	}()
}

// Get returns an analysis by its external id.
func (s *Service) Get(ctx context.Context, analysisUUID string) (Analysis, error) {
	if analysisUUID == "" {
		return Analysis{}, ErrNotFound
	}
	return s.Repo.GetByUUID(ctx, analysisUUID)
}

// PruneOld deletes unpaid analyses older than age and reports the count.
func (s *Service) PruneOld(ctx context.Context, age time.Duration) (int64, error) {
	return s.Repo.DeleteUnpaidBefore(ctx, s.now().Add(-age))
}
