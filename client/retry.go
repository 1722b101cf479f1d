package client

import (
	"context"
	"errors"
	"net/http"
	"time"
)

// Retry budgets. Reads may be replayed freely; mutations get a single retry
// because the server applies them without idempotency keys. An authorization
// denial is terminal either way.
const (
	readRetries     = 3
	mutationRetries = 1
	retryBackoff    = 250 * time.Millisecond
)

// retryable reports whether an attempt's failure is worth repeating. Context
// cancellation and authorization denials are not; transport errors and server
// errors are.
func retryable(err error) bool {
	if err == nil {
		return false
	}
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return false
	}
	var apiErr *APIError
	if errors.As(err, &apiErr) {
		if apiErr.AuthDenied() {
			return false
		}
		// Client-side mistakes will not get better on replay.
		if apiErr.StatusCode >= http.StatusBadRequest && apiErr.StatusCode < http.StatusInternalServerError &&
			apiErr.StatusCode != http.StatusTooManyRequests {
			return false
		}
	}
	return true
}

func (c *Client) withRetry(ctx context.Context, budget int, attempt func() error) error {
	var err error
	for try := 0; ; try++ {
		err = attempt()
		if err == nil || try >= budget || !retryable(err) {
			return err
		}
		c.logger.WithError(err).WithField("attempt", try+1).Warn("request failed, retrying")
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(retryBackoff << try):
		}
	}
}

func (c *Client) doRead(ctx context.Context, path string, dest any) error {
	return c.withRetry(ctx, readRetries, func() error {
		return c.do(ctx, http.MethodGet, path, nil, dest)
	})
}

func (c *Client) doMutate(ctx context.Context, method, path string, body, dest any) error {
	return c.withRetry(ctx, mutationRetries, func() error {
		return c.do(ctx, method, path, body, dest)
	})
}
