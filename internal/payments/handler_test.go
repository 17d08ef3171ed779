package payments

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/gin-gonic/gin"
)

func newTestRouter(t *testing.T, svc *Service) *gin.Engine {
	t.Helper()
	gin.SetMode(gin.TestMode)
	r := gin.New()
	NewHandler(svc).RegisterRoutes(r.Group("/api"))
	return r
}

func decodeBody(t *testing.T, w *httptest.ResponseRecorder) map[string]any {
	t.Helper()
	var body map[string]any
	if err := json.Unmarshal(w.Body.Bytes(), &body); err != nil {
		t.Fatalf("decode response: %v (%s)", err, w.Body.String())
	}
	return body
}

func TestCreateCheckoutEndpoint(t *testing.T) {
	unlocker := &stubUnlocker{analysis: completedAnalysisSummary()}
	svc := newTestPaymentService(NewMemoryRepo(), &stubProvider{createTxn: Transaction{ID: "txn_1"}}, unlocker)
	r := newTestRouter(t, svc)

	payload := `{"analysis_id": "` + unlocker.analysis.UUID + `"}`
	req := httptest.NewRequest(http.MethodPost, "/api/checkout/create", strings.NewReader(payload))
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)

	if w.Code != http.StatusOK {
		t.Fatalf("status = %d, body = %s", w.Code, w.Body.String())
	}
	body := decodeBody(t, w)
	data, _ := body["data"].(map[string]any)
	if data["session_id"] != "txn_1" {
		t.Fatalf("session_id = %v", data["session_id"])
	}
	checkoutURL, _ := data["checkout_url"].(string)
	if !strings.Contains(checkoutURL, "transaction_id=txn_1") {
		t.Fatalf("checkout_url = %q", checkoutURL)
	}
}

func TestCreateCheckoutEndpointValidation(t *testing.T) {
	svc := newTestPaymentService(NewMemoryRepo(), &stubProvider{}, &stubUnlocker{analysis: completedAnalysisSummary()})
	r := newTestRouter(t, svc)

	req := httptest.NewRequest(http.MethodPost, "/api/checkout/create", strings.NewReader(`{}`))
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)

	if w.Code != http.StatusBadRequest {
		t.Fatalf("status = %d, want 400", w.Code)
	}
}

func TestCreateCheckoutEndpointAlreadyPaid(t *testing.T) {
	paid := completedAnalysisSummary()
	paid.IsPaid = true
	svc := newTestPaymentService(NewMemoryRepo(), &stubProvider{}, &stubUnlocker{analysis: paid})
	r := newTestRouter(t, svc)

	payload := `{"analysis_id": "` + paid.UUID + `"}`
	req := httptest.NewRequest(http.MethodPost, "/api/checkout/create", strings.NewReader(payload))
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)

	if w.Code != http.StatusBadRequest {
		t.Fatalf("status = %d, want 400", w.Code)
	}
	body := decodeBody(t, w)
	if body["message"] != "Analysis is already paid." {
		t.Fatalf("message = %v", body["message"])
	}
}

func TestCreateCheckoutEndpointNotFound(t *testing.T) {
	svc := newTestPaymentService(NewMemoryRepo(), &stubProvider{}, &stubUnlocker{findErr: ErrAnalysisNotFound})
	r := newTestRouter(t, svc)

	req := httptest.NewRequest(http.MethodPost, "/api/checkout/create", strings.NewReader(`{"analysis_id": "nope"}`))
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)

	if w.Code != http.StatusNotFound {
		t.Fatalf("status = %d, want 404", w.Code)
	}
}

func TestVerifyEndpoint(t *testing.T) {
	provider := &stubProvider{getTxn: Transaction{ID: "txn_1", Status: "completed"}}
	svc := newTestPaymentService(NewMemoryRepo(), provider, &stubUnlocker{})
	r := newTestRouter(t, svc)

	req := httptest.NewRequest(http.MethodGet, "/api/checkout/verify/txn_1", nil)
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)

	if w.Code != http.StatusOK {
		t.Fatalf("status = %d", w.Code)
	}
	body := decodeBody(t, w)
	data, _ := body["data"].(map[string]any)
	if data["is_paid"] != true {
		t.Fatalf("is_paid = %v", data["is_paid"])
	}
}

func TestWebhookEndpoint(t *testing.T) {
	repo := NewMemoryRepo()
	unlocker := &stubUnlocker{analysis: completedAnalysisSummary()}
	svc := newTestPaymentService(repo, &stubProvider{}, unlocker)
	svc.WebhookSecret = "whsec_test"
	seedPendingPayment(t, repo, 7, "txn_1")
	r := newTestRouter(t, svc)

	payload := completedWebhook("txn_1", "7", unlocker.analysis.UUID)

	// Bad signature is the one case the endpoint rejects.
	req := httptest.NewRequest(http.MethodPost, "/api/webhooks/payments", bytes.NewReader(payload))
	req.Header.Set("Paddle-Signature", "ts=1;h1=deadbeef")
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	if w.Code != http.StatusBadRequest {
		t.Fatalf("bad signature: status = %d, want 400", w.Code)
	}

	req = httptest.NewRequest(http.MethodPost, "/api/webhooks/payments", bytes.NewReader(payload))
	req.Header.Set("Paddle-Signature", signWebhook(payload, "1774526400", "whsec_test"))
	w = httptest.NewRecorder()
	r.ServeHTTP(w, req)
	if w.Code != http.StatusOK {
		t.Fatalf("status = %d, body = %s", w.Code, w.Body.String())
	}
	body := decodeBody(t, w)
	if body["status"] != "success" {
		t.Fatalf("body = %v", body)
	}

	payment, err := repo.GetByTransactionID(context.Background(), "txn_1")
	if err != nil {
		t.Fatalf("GetByTransactionID: %v", err)
	}
	if payment.Status != StatusCompleted {
		t.Fatalf("status = %s, want completed", payment.Status)
	}
}

type failingLookupRepo struct {
	Repo
}

func (failingLookupRepo) GetByTransactionID(ctx context.Context, transactionID string) (Payment, error) {
	return Payment{}, errors.New("connection reset by peer")
}

func TestWebhookEndpointErrorResponses(t *testing.T) {
	unlocker := &stubUnlocker{analysis: completedAnalysisSummary()}

	// Malformed payload reads as a caller fault.
	svc := newTestPaymentService(NewMemoryRepo(), &stubProvider{}, unlocker)
	r := newTestRouter(t, svc)
	req := httptest.NewRequest(http.MethodPost, "/api/webhooks/payments", strings.NewReader("{not json"))
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	if w.Code != http.StatusBadRequest {
		t.Fatalf("malformed payload: status = %d, want 400", w.Code)
	}
	if body := decodeBody(t, w); body["message"] != "invalid webhook request" {
		t.Fatalf("malformed payload: message = %v", body["message"])
	}

	// Repo failures answer 500 with a generic body.
	svc = newTestPaymentService(failingLookupRepo{}, &stubProvider{}, unlocker)
	r = newTestRouter(t, svc)
	payload := completedWebhook("txn_9", "7", unlocker.analysis.UUID)
	req = httptest.NewRequest(http.MethodPost, "/api/webhooks/payments", bytes.NewReader(payload))
	w = httptest.NewRecorder()
	r.ServeHTTP(w, req)
	if w.Code != http.StatusInternalServerError {
		t.Fatalf("repo failure: status = %d, want 500", w.Code)
	}
	if body := decodeBody(t, w); body["message"] != "webhook processing failed" {
		t.Fatalf("repo failure: message = %v", body["message"])
	}
}
