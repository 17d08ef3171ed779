package payments

import (
	"context"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"strings"
	"testing"
	"time"
)

type stubProvider struct {
	createTxn  Transaction
	createErr  error
	getTxn     Transaction
	getErr     error
	customData map[string]string
	priceID    string
}

func (s *stubProvider) CreateTransaction(ctx context.Context, priceID string, customData map[string]string) (Transaction, error) {
	s.priceID = priceID
	s.customData = customData
	if s.createErr != nil {
		return Transaction{}, s.createErr
	}
	return s.createTxn, nil
}

func (s *stubProvider) GetTransaction(ctx context.Context, transactionID string) (Transaction, error) {
	if s.getErr != nil {
		return Transaction{}, s.getErr
	}
	return s.getTxn, nil
}

type stubUnlocker struct {
	analysis AnalysisSummary
	findErr  error
	unlocked []string
}

func (s *stubUnlocker) Find(ctx context.Context, analysisUUID string) (AnalysisSummary, error) {
	if s.findErr != nil {
		return AnalysisSummary{}, s.findErr
	}
	return s.analysis, nil
}

func (s *stubUnlocker) Unlock(ctx context.Context, analysisUUID, transactionID string, paidAt time.Time) (bool, error) {
	s.unlocked = append(s.unlocked, analysisUUID)
	if s.analysis.IsPaid {
		return false, nil
	}
	s.analysis.IsPaid = true
	return true, nil
}

func newTestPaymentService(repo Repo, provider Provider, unlocker AnalysisUnlocker) *Service {
	svc := NewService(repo, provider, unlocker)
	svc.PriceID = "pri_full_report"
	svc.FrontendURL = "https://gitscore.dev"
	now := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	svc.now = func() time.Time { return now }
	return svc
}

func completedAnalysisSummary() AnalysisSummary {
	return AnalysisSummary{
		ID:        7,
		UUID:      "00000000-0000-0000-0000-000000000007",
		Username:  "octocat",
		Completed: true,
	}
}

func TestCreateCheckoutSession(t *testing.T) {
	repo := NewMemoryRepo()
	provider := &stubProvider{createTxn: Transaction{ID: "txn_1", Status: "draft"}}
	unlocker := &stubUnlocker{analysis: completedAnalysisSummary()}
	svc := newTestPaymentService(repo, provider, unlocker)

	session, err := svc.CreateCheckoutSession(context.Background(), unlocker.analysis.UUID)
	if err != nil {
		t.Fatalf("CreateCheckoutSession: %v", err)
	}
	if session.TransactionID != "txn_1" {
		t.Fatalf("transaction id = %q", session.TransactionID)
	}
	if provider.priceID != "pri_full_report" {
		t.Fatalf("price id = %q", provider.priceID)
	}
	if provider.customData["analysis_uuid"] != unlocker.analysis.UUID {
		t.Fatalf("custom data = %+v", provider.customData)
	}
	if provider.customData["github_username"] != "octocat" {
		t.Fatalf("custom data = %+v", provider.customData)
	}
	if !strings.Contains(session.CheckoutURL, "transaction_id=txn_1") {
		t.Fatalf("checkout url = %q", session.CheckoutURL)
	}
	if !strings.Contains(session.CheckoutURL, "checkout.paddle.com") {
		t.Fatalf("checkout url = %q", session.CheckoutURL)
	}

	pending, err := repo.GetByTransactionID(context.Background(), "txn_1")
	if err != nil {
		t.Fatalf("pending payment not recorded: %v", err)
	}
	if pending.Status != StatusPending || pending.AmountCents != 0 {
		t.Fatalf("pending payment = %+v", pending)
	}
	if pending.AnalysisID != 7 {
		t.Fatalf("analysis id = %d, want 7", pending.AnalysisID)
	}
}

func TestCreateCheckoutSessionRejectsPaidAndIncomplete(t *testing.T) {
	paid := completedAnalysisSummary()
	paid.IsPaid = true
	svc := newTestPaymentService(NewMemoryRepo(), &stubProvider{}, &stubUnlocker{analysis: paid})
	if _, err := svc.CreateCheckoutSession(context.Background(), paid.UUID); !errors.Is(err, ErrAlreadyPaid) {
		t.Fatalf("err = %v, want ErrAlreadyPaid", err)
	}

	incomplete := completedAnalysisSummary()
	incomplete.Completed = false
	svc = newTestPaymentService(NewMemoryRepo(), &stubProvider{}, &stubUnlocker{analysis: incomplete})
	if _, err := svc.CreateCheckoutSession(context.Background(), incomplete.UUID); !errors.Is(err, ErrNotCompleted) {
		t.Fatalf("err = %v, want ErrNotCompleted", err)
	}
}

func TestCreateCheckoutSessionSandboxURL(t *testing.T) {
	svc := newTestPaymentService(NewMemoryRepo(), &stubProvider{createTxn: Transaction{ID: "txn_1"}}, &stubUnlocker{analysis: completedAnalysisSummary()})
	svc.Sandbox = true

	session, err := svc.CreateCheckoutSession(context.Background(), "any")
	if err != nil {
		t.Fatalf("CreateCheckoutSession: %v", err)
	}
	if !strings.Contains(session.CheckoutURL, "sandbox-checkout.paddle.com") {
		t.Fatalf("checkout url = %q", session.CheckoutURL)
	}
}

func completedWebhook(txnID, analysisID, analysisUUID string) []byte {
	return []byte(fmt.Sprintf(`{
		"event_type": "transaction.completed",
		"data": {
			"id": %q,
			"currency_code": "usd",
			"custom_data": {"analysis_id": %q, "analysis_uuid": %q, "github_username": "octocat"},
			"details": {"totals": {"grand_total": "1099"}},
			"billing_details": {"email": "buyer@example.com"}
		}
	}`, txnID, analysisID, analysisUUID))
}

func seedPendingPayment(t *testing.T, repo Repo, analysisID int64, txnID string) Payment {
	t.Helper()
	p, err := repo.Create(context.Background(), Payment{
		AnalysisID:            analysisID,
		ProviderTransactionID: txnID,
		Currency:              DefaultCurrency,
		Status:                StatusPending,
		CreatedAt:             time.Date(2026, 3, 1, 11, 0, 0, 0, time.UTC),
	})
	if err != nil {
		t.Fatalf("seed payment: %v", err)
	}
	return p
}

func TestHandleWebhookCompletedUnlocks(t *testing.T) {
	repo := NewMemoryRepo()
	unlocker := &stubUnlocker{analysis: completedAnalysisSummary()}
	svc := newTestPaymentService(repo, &stubProvider{}, unlocker)
	seedPendingPayment(t, repo, 7, "txn_1")

	payload := completedWebhook("txn_1", "7", unlocker.analysis.UUID)
	if err := svc.HandleWebhook(context.Background(), payload, ""); err != nil {
		t.Fatalf("HandleWebhook: %v", err)
	}

	payment, err := repo.GetByTransactionID(context.Background(), "txn_1")
	if err != nil {
		t.Fatalf("GetByTransactionID: %v", err)
	}
	if payment.Status != StatusCompleted {
		t.Fatalf("status = %s, want completed", payment.Status)
	}
	if payment.AmountCents != 1099 {
		t.Fatalf("amount = %d, want 1099", payment.AmountCents)
	}
	if payment.Currency != "USD" {
		t.Fatalf("currency = %q, want USD", payment.Currency)
	}
	if payment.CustomerEmail == nil || *payment.CustomerEmail != "buyer@example.com" {
		t.Fatalf("email = %v", payment.CustomerEmail)
	}
	if len(unlocker.unlocked) != 1 || unlocker.unlocked[0] != unlocker.analysis.UUID {
		t.Fatalf("unlocks = %v", unlocker.unlocked)
	}
}

func TestHandleWebhookCompletedIsIdempotent(t *testing.T) {
	repo := NewMemoryRepo()
	unlocker := &stubUnlocker{analysis: completedAnalysisSummary()}
	svc := newTestPaymentService(repo, &stubProvider{}, unlocker)
	seedPendingPayment(t, repo, 7, "txn_1")

	payload := completedWebhook("txn_1", "7", unlocker.analysis.UUID)
	if err := svc.HandleWebhook(context.Background(), payload, ""); err != nil {
		t.Fatalf("first delivery: %v", err)
	}
	if err := svc.HandleWebhook(context.Background(), payload, ""); err != nil {
		t.Fatalf("second delivery: %v", err)
	}

	payment, _ := repo.GetByTransactionID(context.Background(), "txn_1")
	if payment.Status != StatusCompleted {
		t.Fatalf("status = %s after redelivery", payment.Status)
	}
	// Unlock runs again but reports false the second time; the paid flag
	// never flips back.
	if !unlocker.analysis.IsPaid {
		t.Fatal("analysis no longer paid after redelivery")
	}
}

func TestHandleWebhookFallsBackToAnalysisID(t *testing.T) {
	repo := NewMemoryRepo()
	unlocker := &stubUnlocker{analysis: completedAnalysisSummary()}
	svc := newTestPaymentService(repo, &stubProvider{}, unlocker)
	// Pending payment recorded under a different transaction id than the
	// one the provider settles with.
	seedPendingPayment(t, repo, 7, "txn_draft")

	payload := completedWebhook("txn_settled", "7", unlocker.analysis.UUID)
	if err := svc.HandleWebhook(context.Background(), payload, ""); err != nil {
		t.Fatalf("HandleWebhook: %v", err)
	}

	payment, err := repo.GetByTransactionID(context.Background(), "txn_settled")
	if err != nil {
		t.Fatalf("payment not rekeyed to settled transaction: %v", err)
	}
	if payment.Status != StatusCompleted {
		t.Fatalf("status = %s", payment.Status)
	}
	if len(unlocker.unlocked) != 1 {
		t.Fatalf("unlocks = %v", unlocker.unlocked)
	}
}

func TestHandleWebhookUnknownTransactionIsAcknowledged(t *testing.T) {
	svc := newTestPaymentService(NewMemoryRepo(), &stubProvider{}, &stubUnlocker{analysis: completedAnalysisSummary()})

	payload := completedWebhook("txn_unknown", "999", "no-such-analysis")
	if err := svc.HandleWebhook(context.Background(), payload, ""); err != nil {
		t.Fatalf("unknown transaction should be acknowledged, got %v", err)
	}
}

func TestHandleWebhookUnknownEventIsAcknowledged(t *testing.T) {
	svc := newTestPaymentService(NewMemoryRepo(), &stubProvider{}, &stubUnlocker{})
	payload := []byte(`{"event_type": "subscription.updated", "data": {"id": "sub_1"}}`)
	if err := svc.HandleWebhook(context.Background(), payload, ""); err != nil {
		t.Fatalf("unknown event should be acknowledged, got %v", err)
	}
}

func TestHandleWebhookPaymentFailed(t *testing.T) {
	repo := NewMemoryRepo()
	svc := newTestPaymentService(repo, &stubProvider{}, &stubUnlocker{})
	seedPendingPayment(t, repo, 7, "txn_1")

	payload := []byte(`{"event_type": "transaction.payment_failed", "data": {"id": "txn_1"}}`)
	if err := svc.HandleWebhook(context.Background(), payload, ""); err != nil {
		t.Fatalf("HandleWebhook: %v", err)
	}
	payment, _ := repo.GetByTransactionID(context.Background(), "txn_1")
	if payment.Status != StatusFailed {
		t.Fatalf("status = %s, want failed", payment.Status)
	}
}

func signWebhook(payload []byte, ts, secret string) string {
	mac := hmac.New(sha256.New, []byte(secret))
	mac.Write([]byte(ts + ":"))
	mac.Write(payload)
	return "ts=" + ts + ";h1=" + hex.EncodeToString(mac.Sum(nil))
}

func TestHandleWebhookSignature(t *testing.T) {
	repo := NewMemoryRepo()
	unlocker := &stubUnlocker{analysis: completedAnalysisSummary()}
	svc := newTestPaymentService(repo, &stubProvider{}, unlocker)
	svc.WebhookSecret = "whsec_test"
	seedPendingPayment(t, repo, 7, "txn_1")

	payload := completedWebhook("txn_1", "7", unlocker.analysis.UUID)

	if err := svc.HandleWebhook(context.Background(), payload, "ts=1;h1=deadbeef"); !errors.Is(err, ErrInvalidSignature) {
		t.Fatalf("err = %v, want ErrInvalidSignature", err)
	}
	if err := svc.HandleWebhook(context.Background(), payload, ""); !errors.Is(err, ErrInvalidSignature) {
		t.Fatalf("missing header: err = %v, want ErrInvalidSignature", err)
	}

	valid := signWebhook(payload, "1774526400", "whsec_test")
	if err := svc.HandleWebhook(context.Background(), payload, valid); err != nil {
		t.Fatalf("valid signature rejected: %v", err)
	}
}

func TestVerifyPayment(t *testing.T) {
	provider := &stubProvider{getTxn: Transaction{ID: "txn_1", Status: "completed"}}
	svc := newTestPaymentService(NewMemoryRepo(), provider, &stubUnlocker{})

	if !svc.VerifyPayment(context.Background(), "txn_1") {
		t.Fatal("completed transaction should verify as paid")
	}

	provider.getTxn.Status = "billed"
	if svc.VerifyPayment(context.Background(), "txn_1") {
		t.Fatal("non-completed transaction should not verify as paid")
	}

	provider.getErr = errors.New("boom")
	if svc.VerifyPayment(context.Background(), "txn_1") {
		t.Fatal("provider error should read as unpaid")
	}
}
