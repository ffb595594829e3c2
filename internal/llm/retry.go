package llm

import (
	"context"
	"errors"
	"io"
	"math/rand/v2"
	"net"
	"net/http"
	"strings"
	"time"

	"career-hub/internal/shared/telemetry"
)

// RetryPolicy controls how transient provider failures are retried.
type RetryPolicy struct {
	MaxRetries int
	BaseDelay  time.Duration
}

// DefaultRetryPolicy retries twice starting at 300ms.
func DefaultRetryPolicy() RetryPolicy {
	return RetryPolicy{MaxRetries: 2, BaseDelay: 300 * time.Millisecond}
}

// sleep is swapped in tests.
var sleep = func(ctx context.Context, d time.Duration) error {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-t.C:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// WithRetry wraps a chat model so transient failures are retried.
func WithRetry(model ChatModel, policy RetryPolicy) ChatModel {
	if model == nil {
		return nil
	}
	return &retryingChat{base: model, policy: policy}
}

// WithEmbedRetry wraps an embedder so transient failures are retried.
func WithEmbedRetry(embedder Embedder, policy RetryPolicy) Embedder {
	if embedder == nil {
		return nil
	}
	return &retryingEmbedder{base: embedder, policy: policy}
}

type retryingChat struct {
	base   ChatModel
	policy RetryPolicy
}

func (r *retryingChat) Chat(ctx context.Context, req ChatRequest) (ChatResponse, error) {
	var resp ChatResponse
	err := retry(ctx, r.policy, "chat", func() error {
		var err error
		resp, err = r.base.Chat(ctx, req)
		return err
	})
	return resp, err
}

type retryingEmbedder struct {
	base   Embedder
	policy RetryPolicy
}

func (r *retryingEmbedder) Embed(ctx context.Context, texts []string) ([][]float32, error) {
	var out [][]float32
	err := retry(ctx, r.policy, "embed", func() error {
		var err error
		out, err = r.base.Embed(ctx, texts)
		return err
	})
	return out, err
}

func retry(ctx context.Context, policy RetryPolicy, op string, fn func() error) error {
	err := fn()
	for attempt := 1; attempt <= policy.MaxRetries && err != nil && IsTransient(err); attempt++ {
		if ctx.Err() != nil {
			return err
		}
		delay := backoffDelay(policy.BaseDelay, attempt, err)
		telemetry.Warn("llm.retry", map[string]any{
			"op":         op,
			"attempt":    attempt,
			"delay_ms":   delay.Milliseconds(),
			"request_id": telemetry.RequestIDFrom(ctx),
			"err":        err,
		})
		if serr := sleep(ctx, delay); serr != nil {
			return err
		}
		err = fn()
	}
	return err
}

// backoffDelay doubles base per attempt with ±30% jitter, honouring a
// provider Retry-After hint.
func backoffDelay(base time.Duration, attempt int, err error) time.Duration {
	var statusErr *StatusError
	if errors.As(err, &statusErr) && statusErr.RetryAfter > 0 {
		return statusErr.RetryAfter
	}
	delay := base
	for i := 1; i < attempt; i++ {
		delay *= 2
	}
	jitter := float64(delay) * 0.3
	return time.Duration(float64(delay) + (rand.Float64()*2-1)*jitter)
}

// IsTransient reports whether a provider error is worth retrying: timeouts,
// rate limits, 5xx responses and dropped connections.
func IsTransient(err error) bool {
	if err == nil || errors.Is(err, context.Canceled) || errors.Is(err, ErrNotConfigured) {
		return false
	}
	var statusErr *StatusError
	if errors.As(err, &statusErr) {
		return statusErr.StatusCode == http.StatusTooManyRequests || statusErr.StatusCode >= 500
	}
	if errors.Is(err, context.DeadlineExceeded) || errors.Is(err, io.ErrUnexpectedEOF) {
		return true
	}
	var netErr net.Error
	if errors.As(err, &netErr) && netErr.Timeout() {
		return true
	}

	msg := strings.ToLower(err.Error())
	for _, needle := range []string{
		"timeout",
		"connection reset",
		"connection refused",
		"connection closed",
		"broken pipe",
		"server_error",
	} {
		if strings.Contains(msg, needle) {
			return true
		}
	}
	return false
}
