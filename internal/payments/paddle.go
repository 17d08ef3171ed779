package payments

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"
)

const (
	paddleProductionAPI = "https://api.paddle.com"
	paddleSandboxAPI    = "https://sandbox-api.paddle.com"

	paddleProductionCheckout = "https://checkout.paddle.com/checkout/custom"
	paddleSandboxCheckout    = "https://sandbox-checkout.paddle.com/checkout/custom"
)

// Transaction is the slice of the provider's transaction object the payment
// flow cares about.
type Transaction struct {
	ID     string
	Status string
}

// Provider creates and inspects billing transactions.
type Provider interface {
	CreateTransaction(ctx context.Context, priceID string, customData map[string]string) (Transaction, error)
	GetTransaction(ctx context.Context, transactionID string) (Transaction, error)
}

// PaddleClient talks to the Paddle Billing transactions API.
type PaddleClient struct {
	apiKey     string
	baseURL    string
	httpClient *http.Client
}

// NewPaddleClient builds a client against the production or sandbox API.
func NewPaddleClient(apiKey string, sandbox bool, timeout time.Duration) (*PaddleClient, error) {
	if strings.TrimSpace(apiKey) == "" {
		return nil, errors.New("paddle: api key is required")
	}
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	baseURL := paddleProductionAPI
	if sandbox {
		baseURL = paddleSandboxAPI
	}
	return &PaddleClient{
		apiKey:     apiKey,
		baseURL:    baseURL,
		httpClient: &http.Client{Timeout: timeout},
	}, nil
}

type transactionItem struct {
	PriceID  string `json:"price_id"`
	Quantity int    `json:"quantity"`
}

type createTransactionRequest struct {
	Items      []transactionItem `json:"items"`
	CustomData map[string]string `json:"custom_data,omitempty"`
}

type transactionEnvelope struct {
	Data struct {
		ID     string `json:"id"`
		Status string `json:"status"`
	} `json:"data"`
	Error struct {
		Code   string `json:"code"`
		Detail string `json:"detail"`
	} `json:"error"`
}

func (c *PaddleClient) CreateTransaction(ctx context.Context, priceID string, customData map[string]string) (Transaction, error) {
	body := createTransactionRequest{
		Items:      []transactionItem{{PriceID: priceID, Quantity: 1}},
		CustomData: customData,
	}
	payload, err := json.Marshal(body)
	if err != nil {
		return Transaction{}, fmt.Errorf("paddle: marshal request: %w", err)
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/transactions", bytes.NewReader(payload))
	if err != nil {
		return Transaction{}, fmt.Errorf("paddle: build request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+c.apiKey)
	return c.do(req)
}

func (c *PaddleClient) GetTransaction(ctx context.Context, transactionID string) (Transaction, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+"/transactions/"+transactionID, nil)
	if err != nil {
		return Transaction{}, fmt.Errorf("paddle: build request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+c.apiKey)
	return c.do(req)
}

func (c *PaddleClient) do(req *http.Request) (Transaction, error) {
	resp, err := c.httpClient.Do(req)
	if err != nil {
		return Transaction{}, fmt.Errorf("paddle: request: %w", err)
	}
	defer func() { _ = resp.Body.Close() }()

	raw, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return Transaction{}, fmt.Errorf("paddle: read response: %w", err)
	}

	var envelope transactionEnvelope
	if err := json.Unmarshal(raw, &envelope); err != nil {
		return Transaction{}, fmt.Errorf("paddle: decode response (http %d): %w", resp.StatusCode, err)
	}
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		detail := envelope.Error.Detail
		if detail == "" {
			detail = http.StatusText(resp.StatusCode)
		}
		return Transaction{}, fmt.Errorf("paddle: http %d: %s", resp.StatusCode, detail)
	}
	if envelope.Data.ID == "" {
		return Transaction{}, errors.New("paddle: response missing transaction id")
	}
	return Transaction{ID: envelope.Data.ID, Status: envelope.Data.Status}, nil
}
