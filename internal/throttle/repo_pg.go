package throttle

import (
	"context"
	"database/sql"
	"errors"
	"time"
)

// PGRepo is the Postgres implementation of Repo.
type PGRepo struct {
	DB *sql.DB
}

// NewPGRepo constructs a Postgres-backed throttle repo.
func NewPGRepo(db *sql.DB) *PGRepo {
	return &PGRepo{DB: db}
}

func (r *PGRepo) Increment(ctx context.Context, addr string, now time.Time) (Counter, error) {
	now = now.UTC()
	row := r.DB.QueryRowContext(ctx, `
INSERT INTO analysis_requests (ip_address, request_count, first_request_at, last_request_at, created_at, updated_at)
VALUES ($1, 1, $2, $2, $2, $2)
ON CONFLICT (ip_address) DO UPDATE SET
    request_count = analysis_requests.request_count + 1,
    last_request_at = EXCLUDED.last_request_at,
    updated_at = EXCLUDED.updated_at
RETURNING id, ip_address, request_count, first_request_at, last_request_at, created_at, updated_at`,
		addr, now)
	return scanCounter(row)
}

func (r *PGRepo) Get(ctx context.Context, addr string) (Counter, error) {
	row := r.DB.QueryRowContext(ctx, `
SELECT id, ip_address, request_count, first_request_at, last_request_at, created_at, updated_at
FROM analysis_requests
WHERE ip_address = $1`, addr)
	counter, err := scanCounter(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return Counter{}, ErrNotFound
		}
		return Counter{}, err
	}
	return counter, nil
}

func (r *PGRepo) DeleteLastSeenBefore(ctx context.Context, cutoff time.Time) (int64, error) {
	res, err := r.DB.ExecContext(ctx, `
DELETE FROM analysis_requests WHERE last_request_at < $1`, cutoff.UTC())
	if err != nil {
		return 0, err
	}
	return res.RowsAffected()
}

func scanCounter(row *sql.Row) (Counter, error) {
	var c Counter
	err := row.Scan(&c.ID, &c.IPAddress, &c.RequestCount, &c.FirstRequestAt, &c.LastRequestAt, &c.CreatedAt, &c.UpdatedAt)
	if err != nil {
		return Counter{}, err
	}
	return c, nil
}

var _ Repo = (*PGRepo)(nil)
