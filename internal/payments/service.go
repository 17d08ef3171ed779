package payments

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/url"
	"strconv"
	"strings"
	"time"

	"gitscore-backend/internal/shared/metrics"
	"gitscore-backend/internal/shared/telemetry"
)

// DefaultCurrency is used for pending payments before the webhook reports
// the charged currency.
const DefaultCurrency = "USD"

// AnalysisSummary is the narrow view of an analysis the payment flow needs.
type AnalysisSummary struct {
	ID        int64
	UUID      string
	Username  string
	Completed bool
	IsPaid    bool
}

// AnalysisUnlocker bridges into the analyses store without exposing its
// general mutation surface. Find returns ErrAnalysisNotFound for unknown
// ids. Unlock reports false when the analysis was already paid.
type AnalysisUnlocker interface {
	Find(ctx context.Context, analysisUUID string) (AnalysisSummary, error)
	Unlock(ctx context.Context, analysisUUID, transactionID string, paidAt time.Time) (bool, error)
}

// Service owns checkout creation and webhook reconciliation.
type Service struct {
	Repo     Repo
	Provider Provider
	Analyses AnalysisUnlocker

	// PriceID is the provider price for the full report.
	PriceID string
	// FrontendURL is the base for post-checkout redirects.
	FrontendURL string
	// WebhookSecret keys the signature check. Empty disables verification.
	WebhookSecret string
	// Sandbox selects the provider's test checkout domain.
	Sandbox bool

	now func() time.Time
}

func NewService(repo Repo, provider Provider, analyses AnalysisUnlocker) *Service {
	return &Service{
		Repo:     repo,
		Provider: provider,
		Analyses: analyses,
		now:      time.Now,
	}
}

// CreateCheckoutSession opens a provider transaction for an analysis and
// records a pending payment. The amount stays zero until the webhook
// reports the charge.
func (s *Service) CreateCheckoutSession(ctx context.Context, analysisUUID string) (CheckoutSession, error) {
	analysis, err := s.Analyses.Find(ctx, analysisUUID)
	if err != nil {
		return CheckoutSession{}, err
	}
	if analysis.IsPaid {
		return CheckoutSession{}, ErrAlreadyPaid
	}
	if !analysis.Completed {
		return CheckoutSession{}, ErrNotCompleted
	}

	txn, err := s.Provider.CreateTransaction(ctx, s.PriceID, map[string]string{
		"analysis_id":     strconv.FormatInt(analysis.ID, 10),
		"analysis_uuid":   analysis.UUID,
		"github_username": analysis.Username,
	})
	if err != nil {
		return CheckoutSession{}, fmt.Errorf("create checkout transaction: %w", err)
	}

	_, err = s.Repo.Create(ctx, Payment{
		AnalysisID:            analysis.ID,
		ProviderTransactionID: txn.ID,
		AmountCents:           0,
		Currency:              DefaultCurrency,
		Status:                StatusPending,
		CreatedAt:             s.now().UTC(),
	})
	if err != nil {
		return CheckoutSession{}, fmt.Errorf("record pending payment: %w", err)
	}

	telemetry.Info("checkout.session_created", map[string]any{
		"analysis_uuid":  analysis.UUID,
		"transaction_id": txn.ID,
	})
	return CheckoutSession{
		TransactionID: txn.ID,
		CheckoutURL:   s.checkoutURL(txn.ID, analysis.UUID),
	}, nil
}

func (s *Service) checkoutURL(transactionID, analysisUUID string) string {
	base := paddleProductionCheckout
	if s.Sandbox {
		base = paddleSandboxCheckout
	}
	q := url.Values{}
	q.Set("transaction_id", transactionID)
	q.Set("success_url", s.FrontendURL+"/success?transaction_id="+transactionID)
	q.Set("cancel_url", s.FrontendURL+"/analyze/"+analysisUUID)
	return base + "?" + q.Encode()
}

// VerifyPayment asks the provider whether a transaction completed. Provider
// errors read as unpaid rather than surfacing to the caller.
func (s *Service) VerifyPayment(ctx context.Context, transactionID string) bool {
	txn, err := s.Provider.GetTransaction(ctx, transactionID)
	if err != nil {
		telemetry.Error("payment.verify_failed", map[string]any{
			"transaction_id": transactionID,
			"error":          err.Error(),
		})
		return false
	}
	return txn.Status == "completed"
}

type webhookEvent struct {
	EventType string          `json:"event_type"`
	Data      transactionData `json:"data"`
}

type transactionData struct {
	ID           string         `json:"id"`
	CurrencyCode string         `json:"currency_code"`
	CustomData   map[string]any `json:"custom_data"`
	Details      struct {
		Totals struct {
			GrandTotal any `json:"grand_total"`
		} `json:"totals"`
	} `json:"details"`
	BillingDetails struct {
		Email *string `json:"email"`
	} `json:"billing_details"`
}

// HandleWebhook verifies and dispatches one provider notification. Unknown
// event types are acknowledged without side effects so the provider stops
// redelivering them.
func (s *Service) HandleWebhook(ctx context.Context, payload []byte, signatureHeader string) error {
	metrics.IncWebhookReceived()

	if s.WebhookSecret != "" {
		if err := VerifySignature(payload, signatureHeader, s.WebhookSecret); err != nil {
			return err
		}
	}

	var event webhookEvent
	if err := json.Unmarshal(payload, &event); err != nil {
		return fmt.Errorf("%w: %v", ErrInvalidPayload, err)
	}

	switch event.EventType {
	case "transaction.completed":
		return s.completeTransaction(ctx, event.Data)
	case "transaction.payment_failed":
		return s.failTransaction(ctx, event.Data)
	default:
		telemetry.Info("webhook.ignored", map[string]any{"event_type": event.EventType})
		return nil
	}
}

func (s *Service) completeTransaction(ctx context.Context, data transactionData) error {
	if data.ID == "" {
		telemetry.Info("webhook.skipped", map[string]any{"reason": "missing transaction id"})
		return nil
	}

	payment, err := s.Repo.GetByTransactionID(ctx, data.ID)
	if errors.Is(err, ErrNotFound) {
		payment, err = s.findPendingFallback(ctx, data.CustomData)
	}
	if errors.Is(err, ErrNotFound) {
		telemetry.Info("webhook.skipped", map[string]any{
			"reason":         "no matching payment",
			"transaction_id": data.ID,
		})
		return nil
	}
	if err != nil {
		return fmt.Errorf("lookup payment: %w", err)
	}

	currency := strings.ToUpper(data.CurrencyCode)
	if currency == "" {
		currency = DefaultCurrency
	}
	amount := amountCents(data.Details.Totals.GrandTotal)
	now := s.now().UTC()

	if err := s.Repo.MarkCompleted(ctx, payment.ID, data.ID, amount, currency, data.BillingDetails.Email, now); err != nil {
		return fmt.Errorf("complete payment: %w", err)
	}
	metrics.IncPaymentCompleted()

	analysisUUID := stringField(data.CustomData, "analysis_uuid")
	if analysisUUID == "" {
		telemetry.Error("webhook.unlock_skipped", map[string]any{
			"reason":         "missing analysis_uuid in custom data",
			"transaction_id": data.ID,
		})
		return nil
	}
	unlocked, err := s.Analyses.Unlock(ctx, analysisUUID, data.ID, now)
	if err != nil {
		return fmt.Errorf("unlock analysis: %w", err)
	}
	telemetry.Info("payment.completed", map[string]any{
		"transaction_id": data.ID,
		"analysis_uuid":  analysisUUID,
		"amount_cents":   amount,
		"unlocked":       unlocked,
	})
	return nil
}

func (s *Service) findPendingFallback(ctx context.Context, customData map[string]any) (Payment, error) {
	raw := stringField(customData, "analysis_id")
	if raw == "" {
		return Payment{}, ErrNotFound
	}
	analysisID, err := strconv.ParseInt(raw, 10, 64)
	if err != nil {
		return Payment{}, ErrNotFound
	}
	return s.Repo.FindPendingByAnalysisID(ctx, analysisID)
}

func (s *Service) failTransaction(ctx context.Context, data transactionData) error {
	if data.ID == "" {
		return nil
	}
	err := s.Repo.MarkFailed(ctx, data.ID, s.now().UTC())
	if errors.Is(err, ErrNotFound) {
		return nil
	}
	if err != nil {
		return fmt.Errorf("fail payment: %w", err)
	}
	metrics.IncPaymentFailed()
	telemetry.Info("payment.failed", map[string]any{"transaction_id": data.ID})
	return nil
}

func stringField(m map[string]any, key string) string {
	if m == nil {
		return ""
	}
	v, _ := m[key].(string)
	return v
}

// amountCents coerces the provider's grand total, which arrives as either
// a numeric string or a JSON number, into integer cents.
func amountCents(v any) int {
	switch value := v.(type) {
	case string:
		n, err := strconv.Atoi(value)
		if err != nil {
			return 0
		}
		return n
	case float64:
		return int(value)
	default:
		return 0
	}
}
