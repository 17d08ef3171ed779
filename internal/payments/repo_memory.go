package payments

import (
	"context"
	"sync"
	"time"
)

// MemoryRepo is an in-memory payment store for development and tests.
type MemoryRepo struct {
	mu     sync.Mutex
	nextID int64
	rows   map[int64]Payment
}

func NewMemoryRepo() *MemoryRepo {
	return &MemoryRepo{nextID: 1, rows: make(map[int64]Payment)}
}

func (r *MemoryRepo) Create(ctx context.Context, p Payment) (Payment, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	p.ID = r.nextID
	r.nextID++
	p.UpdatedAt = p.CreatedAt
	r.rows[p.ID] = p
	return p, nil
}

func (r *MemoryRepo) GetByTransactionID(ctx context.Context, transactionID string) (Payment, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, p := range r.rows {
		if p.ProviderTransactionID == transactionID {
			return p, nil
		}
	}
	return Payment{}, ErrNotFound
}

func (r *MemoryRepo) FindPendingByAnalysisID(ctx context.Context, analysisID int64) (Payment, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var (
		found Payment
		ok    bool
	)
	for _, p := range r.rows {
		if p.AnalysisID != analysisID || p.Status != StatusPending {
			continue
		}
		if !ok || p.ID < found.ID {
			found = p
			ok = true
		}
	}
	if !ok {
		return Payment{}, ErrNotFound
	}
	return found, nil
}

func (r *MemoryRepo) MarkCompleted(ctx context.Context, id int64, transactionID string, amountCents int, currency string, customerEmail *string, now time.Time) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	p, ok := r.rows[id]
	if !ok {
		return ErrNotFound
	}
	p.Status = StatusCompleted
	p.ProviderTransactionID = transactionID
	p.AmountCents = amountCents
	p.Currency = currency
	if customerEmail != nil {
		p.CustomerEmail = customerEmail
	}
	p.UpdatedAt = now
	r.rows[id] = p
	return nil
}

func (r *MemoryRepo) MarkFailed(ctx context.Context, transactionID string, now time.Time) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	for id, p := range r.rows {
		if p.ProviderTransactionID == transactionID {
			p.Status = StatusFailed
			p.UpdatedAt = now
			r.rows[id] = p
			return nil
		}
	}
	return ErrNotFound
}
