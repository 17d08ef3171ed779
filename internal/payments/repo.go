package payments

import (
	"context"
	"time"
)

// Repo persists payment records.
type Repo interface {
	// Create stores a new payment and returns it with the generated id.
	Create(ctx context.Context, p Payment) (Payment, error)
	// GetByTransactionID returns the payment for a provider transaction id,
	// or ErrNotFound.
	GetByTransactionID(ctx context.Context, transactionID string) (Payment, error)
	// FindPendingByAnalysisID returns the pending payment for an analysis,
	// or ErrNotFound. Used when the webhook arrives with a transaction id
	// the checkout flow never saw.
	FindPendingByAnalysisID(ctx context.Context, analysisID int64) (Payment, error)
	// MarkCompleted records the confirmed charge details on a payment.
	MarkCompleted(ctx context.Context, id int64, transactionID string, amountCents int, currency string, customerEmail *string, now time.Time) error
	// MarkFailed flips the payment for a transaction to failed. Returns
	// ErrNotFound when no payment carries that transaction id.
	MarkFailed(ctx context.Context, transactionID string, now time.Time) error
}
