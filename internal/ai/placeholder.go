package ai

import (
	"context"
	"errors"
)

// PlaceholderClient stands in when no API key is configured. Every call
// fails, which surfaces as a failed analysis rather than a crash.
type PlaceholderClient struct{}

func (PlaceholderClient) Complete(ctx context.Context, system, user string) (string, error) {
	_ = ctx
	_ = system
	_ = user
	return "", errors.New("ai client not configured")
}

var _ Client = PlaceholderClient{}
