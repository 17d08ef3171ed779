package analyses

import (
	"context"
	"sync"
	"time"
)

// MemoryRepo is an in-memory Repo for dev mode and tests.
type MemoryRepo struct {
	mu     sync.RWMutex
	nextID int64
	rows   map[string]Analysis
}

// NewMemoryRepo constructs an empty in-memory repo.
func NewMemoryRepo() *MemoryRepo {
	return &MemoryRepo{rows: make(map[string]Analysis)}
}

func (r *MemoryRepo) Create(ctx context.Context, analysis Analysis) (Analysis, error) {
	if err := ctx.Err(); err != nil {
		return Analysis{}, err
	}
	r.mu.Lock()
	defer r.mu.Unlock()

	r.nextID++
	analysis.ID = r.nextID
	if analysis.CreatedAt.IsZero() {
		analysis.CreatedAt = time.Now().UTC()
	}
	analysis.UpdatedAt = analysis.CreatedAt
	r.rows[analysis.UUID] = analysis
	return analysis, nil
}

func (r *MemoryRepo) GetByUUID(ctx context.Context, uuid string) (Analysis, error) {
	if err := ctx.Err(); err != nil {
		return Analysis{}, err
	}
	r.mu.RLock()
	defer r.mu.RUnlock()

	analysis, ok := r.rows[uuid]
	if !ok {
		return Analysis{}, ErrNotFound
	}
	return analysis, nil
}

func (r *MemoryRepo) MarkProcessing(ctx context.Context, uuid string) (Status, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}
	r.mu.Lock()
	defer r.mu.Unlock()

	analysis, ok := r.rows[uuid]
	if !ok {
		return "", ErrNotFound
	}
	if analysis.Status != StatusPending {
		return analysis.Status, nil
	}
	analysis.Status = StatusProcessing
	analysis.UpdatedAt = time.Now().UTC()
	r.rows[uuid] = analysis
	return StatusProcessing, nil
}

func (r *MemoryRepo) SetGitHubData(ctx context.Context, uuid string, data map[string]any) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	r.mu.Lock()
	defer r.mu.Unlock()

	analysis, ok := r.rows[uuid]
	if !ok {
		return ErrNotFound
	}
	analysis.GitHubData = data
	analysis.UpdatedAt = time.Now().UTC()
	r.rows[uuid] = analysis
	return nil
}

func (r *MemoryRepo) MarkCompleted(ctx context.Context, uuid string, result CompletionResult, completedAt time.Time) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	r.mu.Lock()
	defer r.mu.Unlock()

	analysis, ok := r.rows[uuid]
	if !ok || analysis.Status != StatusProcessing {
		return ErrNotFound
	}
	overall := result.OverallScore
	profile := result.ProfileScore
	projects := result.ProjectsScore
	consistency := result.ConsistencyScore
	technical := result.TechnicalScore
	community := result.CommunityScore

	analysis.Status = StatusCompleted
	analysis.OverallScore = &overall
	analysis.ProfileScore = &profile
	analysis.ProjectsScore = &projects
	analysis.ConsistencyScore = &consistency
	analysis.TechnicalScore = &technical
	analysis.CommunityScore = &community
	analysis.AIAnalysis = result.AIAnalysis
	completedAtUTC := completedAt.UTC()
	analysis.CompletedAt = &completedAtUTC
	analysis.UpdatedAt = completedAtUTC
	r.rows[uuid] = analysis
	return nil
}

func (r *MemoryRepo) MarkFailed(ctx context.Context, uuid string, errorMessage string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	r.mu.Lock()
	defer r.mu.Unlock()

	analysis, ok := r.rows[uuid]
	if !ok || analysis.Status != StatusProcessing {
		return ErrNotFound
	}
	now := time.Now().UTC()
	analysis.Status = StatusFailed
	analysis.ErrorMessage = &errorMessage
	if analysis.CompletedAt == nil {
		analysis.CompletedAt = &now
	}
	analysis.UpdatedAt = now
	r.rows[uuid] = analysis
	return nil
}

func (r *MemoryRepo) Unlock(ctx context.Context, uuid string, paymentReference string, paidAt time.Time) (bool, error) {
	if err := ctx.Err(); err != nil {
		return false, err
	}
	r.mu.Lock()
	defer r.mu.Unlock()

	analysis, ok := r.rows[uuid]
	if !ok {
		return false, ErrNotFound
	}
	if analysis.IsPaid {
		return false, nil
	}
	paidAtUTC := paidAt.UTC()
	analysis.IsPaid = true
	analysis.PaymentReference = &paymentReference
	analysis.PaidAt = &paidAtUTC
	analysis.UpdatedAt = time.Now().UTC()
	r.rows[uuid] = analysis
	return true, nil
}

func (r *MemoryRepo) DeleteUnpaidBefore(ctx context.Context, cutoff time.Time) (int64, error) {
	if err := ctx.Err(); err != nil {
		return 0, err
	}
	r.mu.Lock()
	defer r.mu.Unlock()

	var removed int64
	for uuid, analysis := range r.rows {
		if !analysis.IsPaid && analysis.CreatedAt.Before(cutoff) {
			delete(r.rows, uuid)
			removed++
		}
	}
	return removed, nil
}

var _ Repo = (*MemoryRepo)(nil)
