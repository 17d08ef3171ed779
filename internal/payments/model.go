package payments

import "time"

// Status is the lifecycle state of a payment record.
type Status string

const (
	StatusPending   Status = "pending"
	StatusCompleted Status = "completed"
	StatusFailed    Status = "failed"
	StatusRefunded  Status = "refunded"
)

// Payment records one provider transaction against an analysis. A pending
// row is created at checkout with a zero amount and filled in when the
// provider webhook confirms the charge.
type Payment struct {
	ID                    int64
	AnalysisID            int64
	ProviderTransactionID string
	AmountCents           int
	Currency              string
	Status                Status
	CustomerEmail         *string
	CreatedAt             time.Time
	UpdatedAt             time.Time
}

// CheckoutSession is what the checkout endpoint hands back to the frontend.
type CheckoutSession struct {
	TransactionID string
	CheckoutURL   string
}
