package llm

import (
	"context"
	"fmt"
	"time"
)

// Client is the interface for LLM providers.
type Client interface {
	Complete(ctx context.Context, systemPrompt string, messages []Message, opts *RequestOptions) (*Response, error)
	CompleteWithRetry(ctx context.Context, systemPrompt string, messages []Message, maxRetries int, opts *RequestOptions) (*Response, error)
}

// retryComplete runs fn with exponential backoff. Context cancellation is
// never retried.
func retryComplete(ctx context.Context, maxRetries int, fn func() (*Response, error)) (*Response, error) {
	var lastErr error

	for i := 0; i < maxRetries; i++ {
		resp, err := fn()
		if err == nil {
			return resp, nil
		}
		lastErr = err

		if ctx.Err() != nil {
			return nil, ctx.Err()
		}

		backoff := time.Duration(1<<uint(i)) * time.Second
		select {
		case <-time.After(backoff):
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}

	return nil, fmt.Errorf("failed after %d retries: %w", maxRetries, lastErr)
}
