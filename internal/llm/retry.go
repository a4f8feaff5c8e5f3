package llm

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"regexp"
	"time"
)

// ErrToolsUnsupported indicates the model rejected the request because it
// does not support tool calling. Callers degrade to a tool-less completion
// instead of surfacing an error.
var ErrToolsUnsupported = errors.New("model does not support tool calling")

// toolsUnsupportedRe matches provider error bodies that complain about
// tool/function calling on a 400 response.
var toolsUnsupportedRe = regexp.MustCompile(`(?i)tool|function`)

// UsageFunc records token usage for a completed request. Implementations
// are best-effort: they must never panic and their failures are logged,
// not returned.
type UsageFunc func(ctx context.Context, model string, inputTokens, outputTokens int)

const (
	retryAttempts   = 3
	retryFirstDelay = 1 * time.Second
	retryNextDelay  = 3 * time.Second
)

// RetryClient wraps another Client with bounded retries on transient
// failures. 5xx responses and status-less network errors are retried up
// to three attempts with increasing backoff; 4xx responses propagate
// immediately, except a 400 whose body mentions tools or functions,
// which maps to ErrToolsUnsupported. Context cancellation stops retries
// and surfaces the context error so callers can tell an intentional
// cancel from a failure.
type RetryClient struct {
	inner   Client
	logger  *slog.Logger
	onUsage UsageFunc

	// Overridable in tests.
	firstDelay time.Duration
	nextDelay  time.Duration
}

// NewRetryClient wraps inner. onUsage may be nil.
func NewRetryClient(inner Client, logger *slog.Logger, onUsage UsageFunc) *RetryClient {
	if logger == nil {
		logger = slog.Default()
	}
	return &RetryClient{
		inner:      inner,
		logger:     logger.With("component", "llm-retry"),
		onUsage:    onUsage,
		firstDelay: retryFirstDelay,
		nextDelay:  retryNextDelay,
	}
}

// Chat sends the request, retrying transient failures.
func (c *RetryClient) Chat(ctx context.Context, model string, messages []Message, tools []map[string]any) (*ChatResponse, error) {
	var lastErr error

	for attempt := 1; attempt <= retryAttempts; attempt++ {
		resp, err := c.inner.Chat(ctx, model, messages, tools)
		if err == nil {
			c.recordUsage(ctx, model, resp)
			return resp, nil
		}

		// An intentional cancel is not a failure to retry.
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}

		var apiErr *APIError
		if errors.As(err, &apiErr) {
			if apiErr.Status == http.StatusBadRequest && toolsUnsupportedRe.MatchString(apiErr.Body) {
				return nil, ErrToolsUnsupported
			}
			if apiErr.Status < 500 {
				// Permanent: malformed request, auth failure, etc.
				return nil, err
			}
		}

		// 5xx or status-less network error: transient.
		lastErr = err
		if attempt == retryAttempts {
			break
		}

		delay := c.nextDelay
		if attempt == 1 {
			delay = c.firstDelay
		}
		c.logger.Warn("transient model error, retrying",
			"attempt", attempt,
			"delay", delay,
			"error", err,
		)
		if err := sleepCtx(ctx, delay); err != nil {
			return nil, err
		}
	}

	return nil, lastErr
}

// Ping delegates to the wrapped client.
func (c *RetryClient) Ping(ctx context.Context) error {
	return c.inner.Ping(ctx)
}

func (c *RetryClient) recordUsage(ctx context.Context, model string, resp *ChatResponse) {
	if c.onUsage == nil || resp == nil {
		return
	}
	if resp.InputTokens == 0 && resp.OutputTokens == 0 {
		return
	}
	defer func() {
		if r := recover(); r != nil {
			c.logger.Warn("usage recording panicked", "panic", r)
		}
	}()
	c.onUsage(ctx, model, resp.InputTokens, resp.OutputTokens)
}

// sleepCtx sleeps for d or until ctx is done, whichever comes first.
func sleepCtx(ctx context.Context, d time.Duration) error {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}
