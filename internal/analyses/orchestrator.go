package analyses

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"gitscore-backend/internal/ai"
	"gitscore-backend/internal/github"
	"gitscore-backend/internal/scoring"
	"gitscore-backend/internal/shared/metrics"
	"gitscore-backend/internal/shared/telemetry"
)

// ProcessAnalysis runs one processing attempt for an analysis. A non-nil
// return asks the queue to redeliver; permanent failures are recorded on the
// row and reported as nil so the message gets deleted.
func (s *Service) ProcessAnalysis(ctx context.Context, analysisUUID string, attempt int) error {
	if attempt < 1 {
		attempt = 1
	}
	release := s.locks.acquire(analysisUUID)
	defer release()

	analysis, err := s.Repo.GetByUUID(ctx, analysisUUID)
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			telemetry.Info("analysis.skip_missing", map[string]any{
				"analysis_id": analysisUUID,
				"request_id":  requestIDFromContext(ctx),
			})
			return nil
		}
		return fmt.Errorf("analysis lookup: %w", err)
	}
	if analysis.Status.Terminal() {
		telemetry.Info("analysis.skip_terminal", map[string]any{
			"analysis_id": analysisUUID,
			"request_id":  requestIDFromContext(ctx),
			"status":      string(analysis.Status),
		})
		return nil
	}
	status, err := s.Repo.MarkProcessing(ctx, analysisUUID)
	if err != nil {
		return fmt.Errorf("set processing: %w", err)
	}
	if status.Terminal() {
		return nil
	}

	// Failure is only recorded from processing, so the budget check runs
	// after the transition.
	if s.now().UTC().Sub(analysis.CreatedAt) > s.RetryBudget {
		s.failFinal(ctx, analysis, nil, errors.New("retry budget exhausted"))
		return nil
	}

	startedAt := s.now().UTC()
	metrics.IncAnalysisStarted()
	telemetry.Info("analysis.status", map[string]any{
		"request_id":        requestIDFromContext(ctx),
		"analysis_id":       analysis.UUID,
		"username":          analysis.Username,
		"attempt":           attempt,
		"status":            string(StatusProcessing),
		"status_transition": "pending->processing",
	})

	attemptCtx, cancel := context.WithTimeout(ctx, s.AttemptTimeout)
	defer cancel()

	if err := s.runAttempt(attemptCtx, analysis); err != nil {
		return s.handleFailure(ctx, analysis, attempt, &startedAt, err)
	}

	completedAt := s.now().UTC()
	metrics.IncAnalysisCompleted()
	metrics.ObserveAnalysisDurationMs(durationMs(&startedAt, &completedAt))
	telemetry.Info("analysis.status", map[string]any{
		"request_id":        requestIDFromContext(ctx),
		"analysis_id":       analysis.UUID,
		"username":          analysis.Username,
		"attempt":           attempt,
		"status":            string(StatusCompleted),
		"status_transition": "processing->completed",
		"duration_ms":       durationMs(&startedAt, &completedAt),
	})
	return nil
}

func (s *Service) runAttempt(ctx context.Context, analysis Analysis) error {
	if s.Fetcher == nil {
		return errors.New("missing profile fetcher")
	}
	if s.AI == nil {
		return errors.New("missing ai client")
	}

	snapshot, err := s.Fetcher.Fetch(ctx, analysis.Username)
	if err != nil {
		return fmt.Errorf("github fetch: %w", err)
	}

	if err := s.Repo.SetGitHubData(ctx, analysis.UUID, snapshotSummary(snapshot)); err != nil {
		return fmt.Errorf("store github data: %w", err)
	}

	aiClient := ai.NewRetryingClient(s.AI, analysis.UUID, requestIDFromContext(ctx))
	result, err := ai.Analyze(ctx, aiClient, snapshot)
	if err != nil {
		return fmt.Errorf("ai analyze: %w", err)
	}

	categories := scoring.ExtractCategoryScores(result.Categories)
	completion := CompletionResult{
		OverallScore:     scoring.OverallScore(result.Categories),
		ProfileScore:     categories.Profile,
		ProjectsScore:    categories.Projects,
		ConsistencyScore: categories.Consistency,
		TechnicalScore:   categories.Technical,
		CommunityScore:   categories.Community,
		AIAnalysis: map[string]any{
			"summary":               result.Summary,
			"first_impression":      result.FirstImpression,
			"categories":            result.Categories,
			"deal_breakers":         objectList(result.DealBreakers),
			"top_projects_analysis": objectList(result.TopProjects),
			"improvement_checklist": objectList(result.ImprovementChecklist),
			"strengths":             stringList(result.Strengths),
			"recruiter_perspective": result.RecruiterPerspective,
		},
	}

	if err := s.Repo.MarkCompleted(ctx, analysis.UUID, completion, s.now().UTC()); err != nil {
		return fmt.Errorf("store analysis result: %w", err)
	}
	return nil
}

// handleFailure decides between redelivery and a terminal failed state.
func (s *Service) handleFailure(ctx context.Context, analysis Analysis, attempt int, startedAt *time.Time, err error) error {
	code, retryable := classifyFailure(err)
	withinBudget := s.now().UTC().Sub(analysis.CreatedAt) <= s.RetryBudget

	if retryable && attempt < s.MaxAttempts && withinBudget {
		telemetry.Info("analysis.retry_scheduled", map[string]any{
			"request_id":  requestIDFromContext(ctx),
			"analysis_id": analysis.UUID,
			"username":    analysis.Username,
			"attempt":     attempt,
			"error_code":  code,
			"error":       sanitizeError(err),
		})
		return err
	}

	s.failFinal(ctx, analysis, startedAt, err)
	return nil
}

func (s *Service) failFinal(ctx context.Context, analysis Analysis, startedAt *time.Time, err error) {
	msg := sanitizeError(err)
	if updateErr := s.Repo.MarkFailed(context.WithoutCancel(ctx), analysis.UUID, msg); updateErr != nil && !errors.Is(updateErr, ErrNotFound) {
		telemetry.Error("analysis.fail_update_failed", map[string]any{
			"analysis_id": analysis.UUID,
			"error":       updateErr.Error(),
			"orig_error":  msg,
		})
	}
	completedAt := s.now().UTC()
	metrics.IncAnalysisFailed()
	if startedAt != nil {
		metrics.ObserveAnalysisDurationMs(durationMs(startedAt, &completedAt))
	}
	code, _ := classifyFailure(err)
	telemetry.Info("analysis.status", map[string]any{
		"request_id":        requestIDFromContext(ctx),
		"analysis_id":       analysis.UUID,
		"username":          analysis.Username,
		"status":            string(StatusFailed),
		"status_transition": "processing->failed",
		"error_code":        code,
		"error":             msg,
		"duration_ms":       durationMs(startedAt, &completedAt),
	})
}

// The stored document keeps lists as []any so reads behave the same whether
// the row round-tripped through jsonb or stayed in memory.
func objectList(items []map[string]any) []any {
	list := make([]any, 0, len(items))
	for _, item := range items {
		list = append(list, item)
	}
	return list
}

func stringList(items []string) []any {
	list := make([]any, 0, len(items))
	for _, item := range items {
		list = append(list, item)
	}
	return list
}

// snapshotSummary is the compact profile record persisted alongside scores.
func snapshotSummary(snapshot github.Snapshot) map[string]any {
	return map[string]any{
		"user": map[string]any{
			"name":         snapshot.User.Name,
			"bio":          snapshot.User.Bio,
			"location":     snapshot.User.Location,
			"followers":    snapshot.User.Followers,
			"following":    snapshot.User.Following,
			"public_repos": snapshot.User.PublicRepos,
		},
		"has_profile_readme": snapshot.ProfileReadme != nil,
		"top_repos_count":    len(snapshot.Repositories),
	}
}

func classifyFailure(err error) (string, bool) {
	if err == nil {
		return ErrorCodeInternal, false
	}
	var parseErr *ai.ParseError
	switch {
	case errors.Is(err, github.ErrNotFound):
		return ErrorCodeGitHubNotFound, false
	case errors.Is(err, github.ErrRateLimited):
		return ErrorCodeGitHubRateLimited, true
	case errors.As(err, &parseErr):
		return ErrorCodeAIInvalidOutput, false
	case errors.Is(err, context.DeadlineExceeded):
		return ErrorCodeAITimeout, true
	}

	msg := strings.ToLower(err.Error())
	if strings.Contains(msg, "timeout") {
		return ErrorCodeAITimeout, true
	}
	if strings.Contains(msg, "github fetch") {
		return ErrorCodeGitHubRateLimited, true
	}
	if strings.Contains(msg, "store github data") ||
		strings.Contains(msg, "store analysis result") ||
		strings.Contains(msg, "set processing") ||
		strings.Contains(msg, "analysis lookup") {
		return ErrorCodeStorage, true
	}
	if strings.Contains(msg, "ai analyze") {
		return ErrorCodeAIError, true
	}
	return ErrorCodeInternal, false
}

func sanitizeError(err error) string {
	if err == nil {
		return ""
	}
	msg := strings.ReplaceAll(err.Error(), "\n", " ")
	msg = strings.ReplaceAll(msg, "\r", " ")
	msg = strings.TrimSpace(msg)
	const maxLen = 500
	if len(msg) > maxLen {
		msg = msg[:maxLen]
	}
	return msg
}

func durationMs(startedAt, completedAt *time.Time) float64 {
	if startedAt == nil || completedAt == nil {
		return 0
	}
	return float64(completedAt.Sub(*startedAt).Microseconds()) / 1000.0
}
