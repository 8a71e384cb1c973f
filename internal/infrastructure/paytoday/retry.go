package paytoday

import (
	"context"
	"fmt"
	"math/rand"
	"time"

	"github.com/DanielPopoola/paytoday-gateway/internal/application"
	"github.com/DanielPopoola/paytoday-gateway/internal/config"
)

// RetryClient retries idempotent provider calls on transient failures.
// CreateIntent is passed through: a repeated intent would open a second
// transaction at the provider.
type RetryClient struct {
	inner      application.PaymentProvider
	baseDelay  time.Duration
	maxRetries int
}

func NewRetryClient(inner application.PaymentProvider, cfg config.RetryConfig) *RetryClient {
	maxRetries := cfg.MaxRetries
	if maxRetries < 1 {
		maxRetries = 1
	}
	return &RetryClient{
		inner:      inner,
		baseDelay:  cfg.BaseDelay,
		maxRetries: maxRetries,
	}
}

var _ application.PaymentProvider = (*RetryClient)(nil)

// Authorize with retry logic
func (r *RetryClient) Authorize(ctx context.Context) (string, error) {
	token, err := retry(r, ctx, func(ctx context.Context) (*string, error) {
		t, err := r.inner.Authorize(ctx)
		return &t, err
	})
	if err != nil {
		return "", err
	}
	return *token, nil
}

func (r *RetryClient) CreateIntent(ctx context.Context, authToken string, req application.IntentRequest) (*application.Intent, error) {
	return r.inner.CreateIntent(ctx, authToken, req)
}

// QueryStatus with retry logic
func (r *RetryClient) QueryStatus(ctx context.Context, paymentToken, authToken string) (*application.StatusResult, error) {
	return retry(r, ctx, func(ctx context.Context) (*application.StatusResult, error) {
		return r.inner.QueryStatus(ctx, paymentToken, authToken)
	})
}

// Generic retry helper
func retry[T any](r *RetryClient, ctx context.Context, operation func(ctx context.Context) (*T, error)) (*T, error) {
	var lastErr error

	for attempt := 0; attempt < r.maxRetries; attempt++ {
		resp, err := operation(ctx)
		if err == nil {
			return resp, nil
		}

		lastErr = err

		if !isRetryable(err) {
			return nil, err
		}

		if attempt < r.maxRetries-1 {
			select {
			case <-ctx.Done():
				return nil, ctx.Err()
			case <-time.After(r.backoff(attempt)):
			}
		}
	}

	if r.maxRetries == 1 {
		return nil, lastErr
	}
	return nil, fmt.Errorf("maximum retries exceeded: %w", lastErr)
}

func isRetryable(err error) bool {
	if provErr, ok := application.IsProviderError(err); ok {
		return provErr.IsRetryable()
	}
	return false
}

// Backoff calculation with exponential delay and jitter
func (r *RetryClient) backoff(attempt int) time.Duration {
	base := r.baseDelay * time.Duration(1<<attempt)
	if r.baseDelay <= 0 {
		return 0
	}

	jitter := time.Duration(rand.Int63n(int64(r.baseDelay)))

	return base + jitter
}
