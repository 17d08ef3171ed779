package ai

import (
	"context"
	"errors"
	"net"
	"strings"
	"time"

	"gitscore-backend/internal/shared/telemetry"
)

const retryBaseDelay = 300 * time.Millisecond

type retryingClient struct {
	base       Client
	analysisID string
	requestID  string
}

// NewRetryingClient wraps a client with a single retry on transient
// transport failures. Parse failures are never retried here.
func NewRetryingClient(base Client, analysisID, requestID string) Client {
	if base == nil {
		return nil
	}
	return retryingClient{
		base:       base,
		analysisID: analysisID,
		requestID:  requestID,
	}
}

func (r retryingClient) Complete(ctx context.Context, system, user string) (string, error) {
	resp, err := r.base.Complete(ctx, system, user)
	if err == nil || !shouldRetry(err) {
		return resp, err
	}

	telemetry.Info("ai.retry", map[string]any{
		"attempt":     1,
		"analysis_id": r.analysisID,
		"request_id":  r.requestID,
		"error":       err.Error(),
	})
	select {
	case <-time.After(retryBaseDelay):
	case <-ctx.Done():
		return "", ctx.Err()
	}

	return r.base.Complete(ctx, system, user)
}

func shouldRetry(err error) bool {
	if err == nil {
		return false
	}
	if errors.Is(err, context.DeadlineExceeded) {
		return true
	}
	var netErr net.Error
	if errors.As(err, &netErr) && netErr.Timeout() {
		return true
	}

	msg := strings.ToLower(err.Error())
	if strings.Contains(msg, "http status 5") || strings.Contains(msg, "overloaded") {
		return true
	}
	if strings.Contains(msg, "timeout") && (strings.Contains(msg, "anthropic") || strings.Contains(msg, "client.timeout")) {
		return true
	}
	if strings.Contains(msg, "connection reset") ||
		strings.Contains(msg, "connection refused") ||
		strings.Contains(msg, "connection closed") ||
		strings.Contains(msg, "broken pipe") ||
		strings.Contains(msg, "tls handshake timeout") ||
		strings.Contains(msg, "eof") {
		return true
	}

	return false
}
