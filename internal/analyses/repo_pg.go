package analyses

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"time"
)

// PGRepo implements Repo using Postgres.
type PGRepo struct {
	DB *sql.DB
}

const analysisColumns = `
id, uuid, github_username, status,
overall_score, profile_score, projects_score, consistency_score, technical_score, community_score,
github_data, ai_analysis, is_paid, payment_reference, paid_at, ip_address,
error_message, completed_at, created_at, updated_at`

// Create inserts a new analysis row and returns it with the generated id.
func (r *PGRepo) Create(ctx context.Context, analysis Analysis) (Analysis, error) {
	const query = `
INSERT INTO analyses (uuid, github_username, status, ip_address, created_at, updated_at)
VALUES ($1, $2, $3, $4, $5, $5)
RETURNING id`
	now := analysis.CreatedAt
	if now.IsZero() {
		now = time.Now().UTC()
		analysis.CreatedAt = now
	}
	analysis.UpdatedAt = now
	err := r.DB.QueryRowContext(ctx, query,
		analysis.UUID,
		analysis.Username,
		analysis.Status,
		analysis.IPAddress,
		now,
	).Scan(&analysis.ID)
	if err != nil {
		return Analysis{}, err
	}
	return analysis, nil
}

// GetByUUID returns an analysis by its external id.
func (r *PGRepo) GetByUUID(ctx context.Context, uuid string) (Analysis, error) {
	query := `SELECT ` + analysisColumns + `
FROM analyses
WHERE uuid = $1
LIMIT 1`
	row := r.DB.QueryRowContext(ctx, query, uuid)
	analysis, err := scanAnalysis(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return Analysis{}, ErrNotFound
		}
		return Analysis{}, err
	}
	return analysis, nil
}

// MarkProcessing moves a pending analysis to processing. When the row is in
// any other state the stored status is returned untouched.
func (r *PGRepo) MarkProcessing(ctx context.Context, uuid string) (Status, error) {
	const query = `
UPDATE analyses
SET status = $1, updated_at = now()
WHERE uuid = $2 AND status = $3`
	res, err := r.DB.ExecContext(ctx, query, StatusProcessing, uuid, StatusPending)
	if err != nil {
		return "", err
	}
	if n, _ := res.RowsAffected(); n > 0 {
		return StatusProcessing, nil
	}

	var current Status
	err = r.DB.QueryRowContext(ctx, `SELECT status FROM analyses WHERE uuid = $1`, uuid).Scan(&current)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return "", ErrNotFound
		}
		return "", err
	}
	return current, nil
}

// SetGitHubData stores the profile summary captured before the AI call.
func (r *PGRepo) SetGitHubData(ctx context.Context, uuid string, data map[string]any) error {
	payload, err := json.Marshal(data)
	if err != nil {
		return err
	}
	const query = `
UPDATE analyses
SET github_data = $1::jsonb, updated_at = now()
WHERE uuid = $2`
	res, err := r.DB.ExecContext(ctx, query, payload, uuid)
	if err != nil {
		return err
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return ErrNotFound
	}
	return nil
}

// MarkCompleted writes scores and the AI document in one statement. Only a
// processing row can complete.
func (r *PGRepo) MarkCompleted(ctx context.Context, uuid string, result CompletionResult, completedAt time.Time) error {
	payload, err := json.Marshal(result.AIAnalysis)
	if err != nil {
		return err
	}
	const query = `
UPDATE analyses
SET status = $1,
    overall_score = $2,
    profile_score = $3,
    projects_score = $4,
    consistency_score = $5,
    technical_score = $6,
    community_score = $7,
    ai_analysis = $8::jsonb,
    completed_at = $9,
    updated_at = now()
WHERE uuid = $10 AND status = $11`
	res, err := r.DB.ExecContext(ctx, query,
		StatusCompleted,
		result.OverallScore,
		result.ProfileScore,
		result.ProjectsScore,
		result.ConsistencyScore,
		result.TechnicalScore,
		result.CommunityScore,
		payload,
		completedAt.UTC(),
		uuid,
		StatusProcessing,
	)
	if err != nil {
		return err
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return ErrNotFound
	}
	return nil
}

// MarkFailed records a terminal failure. Only processing rows can fail;
// terminal rows are never demoted.
func (r *PGRepo) MarkFailed(ctx context.Context, uuid string, errorMessage string) error {
	const query = `
UPDATE analyses
SET status = $1,
    error_message = $2,
    completed_at = COALESCE(completed_at, now()),
    updated_at = now()
WHERE uuid = $3 AND status = $4`
	res, err := r.DB.ExecContext(ctx, query, StatusFailed, errorMessage, uuid, StatusProcessing)
	if err != nil {
		return err
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return ErrNotFound
	}
	return nil
}

// Unlock marks the analysis paid. Already-paid rows report false so webhook
// redeliveries stay idempotent.
func (r *PGRepo) Unlock(ctx context.Context, uuid string, paymentReference string, paidAt time.Time) (bool, error) {
	const query = `
UPDATE analyses
SET is_paid = TRUE,
    payment_reference = $1,
    paid_at = $2,
    updated_at = now()
WHERE uuid = $3 AND is_paid = FALSE`
	res, err := r.DB.ExecContext(ctx, query, paymentReference, paidAt.UTC(), uuid)
	if err != nil {
		return false, err
	}
	n, _ := res.RowsAffected()
	if n > 0 {
		return true, nil
	}

	var exists bool
	if err := r.DB.QueryRowContext(ctx, `SELECT TRUE FROM analyses WHERE uuid = $1`, uuid).Scan(&exists); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return false, ErrNotFound
		}
		return false, err
	}
	return false, nil
}

// DeleteUnpaidBefore prunes unpaid analyses created before the cutoff.
func (r *PGRepo) DeleteUnpaidBefore(ctx context.Context, cutoff time.Time) (int64, error) {
	res, err := r.DB.ExecContext(ctx, `
DELETE FROM analyses WHERE is_paid = FALSE AND created_at < $1`, cutoff.UTC())
	if err != nil {
		return 0, err
	}
	return res.RowsAffected()
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanAnalysis(row rowScanner) (Analysis, error) {
	var a Analysis
	var overall, profile, projects, consistency, technical, community sql.NullInt64
	var githubData, aiAnalysis sql.NullString
	var paymentReference, ipAddress, errorMessage sql.NullString
	var paidAt, completedAt sql.NullTime

	err := row.Scan(
		&a.ID,
		&a.UUID,
		&a.Username,
		&a.Status,
		&overall,
		&profile,
		&projects,
		&consistency,
		&technical,
		&community,
		&githubData,
		&aiAnalysis,
		&a.IsPaid,
		&paymentReference,
		&paidAt,
		&ipAddress,
		&errorMessage,
		&completedAt,
		&a.CreatedAt,
		&a.UpdatedAt,
	)
	if err != nil {
		return Analysis{}, err
	}

	a.OverallScore = nullableInt(overall)
	a.ProfileScore = nullableInt(profile)
	a.ProjectsScore = nullableInt(projects)
	a.ConsistencyScore = nullableInt(consistency)
	a.TechnicalScore = nullableInt(technical)
	a.CommunityScore = nullableInt(community)

	if githubData.Valid {
		a.GitHubData = map[string]any{}
		if err := json.Unmarshal([]byte(githubData.String), &a.GitHubData); err != nil {
			a.GitHubData = nil
		}
	}
	if aiAnalysis.Valid {
		a.AIAnalysis = map[string]any{}
		if err := json.Unmarshal([]byte(aiAnalysis.String), &a.AIAnalysis); err != nil {
			a.AIAnalysis = nil
		}
	}
	if paymentReference.Valid {
		a.PaymentReference = &paymentReference.String
	}
	if paidAt.Valid {
		t := paidAt.Time
		a.PaidAt = &t
	}
	if ipAddress.Valid {
		a.IPAddress = &ipAddress.String
	}
	if errorMessage.Valid {
		a.ErrorMessage = &errorMessage.String
	}
	if completedAt.Valid {
		t := completedAt.Time
		a.CompletedAt = &t
	}
	return a, nil
}

func nullableInt(v sql.NullInt64) *int {
	if !v.Valid {
		return nil
	}
	n := int(v.Int64)
	return &n
}

var _ Repo = (*PGRepo)(nil)
