package payments

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"
)

// PGRepo is the Postgres-backed payment store.
type PGRepo struct {
	DB *sql.DB
}

func NewPGRepo(db *sql.DB) *PGRepo {
	return &PGRepo{DB: db}
}

const paymentColumns = `id, analysis_id, provider_transaction_id, amount_cents, currency, status, customer_email, created_at, updated_at`

func (r *PGRepo) Create(ctx context.Context, p Payment) (Payment, error) {
	const q = `
		INSERT INTO payments (analysis_id, provider_transaction_id, amount_cents, currency, status, customer_email, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $7)
		RETURNING id`
	err := r.DB.QueryRowContext(ctx, q,
		p.AnalysisID,
		p.ProviderTransactionID,
		p.AmountCents,
		p.Currency,
		p.Status,
		p.CustomerEmail,
		p.CreatedAt,
	).Scan(&p.ID)
	if err != nil {
		return Payment{}, fmt.Errorf("insert payment: %w", err)
	}
	p.UpdatedAt = p.CreatedAt
	return p, nil
}

func (r *PGRepo) GetByTransactionID(ctx context.Context, transactionID string) (Payment, error) {
	q := `SELECT ` + paymentColumns + ` FROM payments WHERE provider_transaction_id = $1`
	return r.scanOne(r.DB.QueryRowContext(ctx, q, transactionID))
}

func (r *PGRepo) FindPendingByAnalysisID(ctx context.Context, analysisID int64) (Payment, error) {
	q := `SELECT ` + paymentColumns + ` FROM payments WHERE analysis_id = $1 AND status = 'pending' ORDER BY id LIMIT 1`
	return r.scanOne(r.DB.QueryRowContext(ctx, q, analysisID))
}

func (r *PGRepo) MarkCompleted(ctx context.Context, id int64, transactionID string, amountCents int, currency string, customerEmail *string, now time.Time) error {
	const q = `
		UPDATE payments
		SET status = 'completed',
		    provider_transaction_id = $1,
		    amount_cents = $2,
		    currency = $3,
		    customer_email = COALESCE($4, customer_email),
		    updated_at = $5
		WHERE id = $6`
	res, err := r.DB.ExecContext(ctx, q, transactionID, amountCents, currency, customerEmail, now, id)
	if err != nil {
		return fmt.Errorf("mark payment completed: %w", err)
	}
	rows, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("mark payment completed: rows affected: %w", err)
	}
	if rows == 0 {
		return ErrNotFound
	}
	return nil
}

func (r *PGRepo) MarkFailed(ctx context.Context, transactionID string, now time.Time) error {
	const q = `UPDATE payments SET status = 'failed', updated_at = $1 WHERE provider_transaction_id = $2`
	res, err := r.DB.ExecContext(ctx, q, now, transactionID)
	if err != nil {
		return fmt.Errorf("mark payment failed: %w", err)
	}
	rows, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("mark payment failed: rows affected: %w", err)
	}
	if rows == 0 {
		return ErrNotFound
	}
	return nil
}

func (r *PGRepo) scanOne(row *sql.Row) (Payment, error) {
	var (
		p     Payment
		email sql.NullString
	)
	err := row.Scan(
		&p.ID,
		&p.AnalysisID,
		&p.ProviderTransactionID,
		&p.AmountCents,
		&p.Currency,
		&p.Status,
		&email,
		&p.CreatedAt,
		&p.UpdatedAt,
	)
	if errors.Is(err, sql.ErrNoRows) {
		return Payment{}, ErrNotFound
	}
	if err != nil {
		return Payment{}, fmt.Errorf("scan payment: %w", err)
	}
	if email.Valid {
		p.CustomerEmail = &email.String
	}
	return p, nil
}
