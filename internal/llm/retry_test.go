package llm

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"
)

// scriptedClient returns queued responses/errors in order.
type scriptedClient struct {
	responses []*ChatResponse
	errs      []error
	calls     int
}

func (s *scriptedClient) Chat(ctx context.Context, model string, messages []Message, tools []map[string]any) (*ChatResponse, error) {
	i := s.calls
	s.calls++
	var resp *ChatResponse
	var err error
	if i < len(s.responses) {
		resp = s.responses[i]
	}
	if i < len(s.errs) {
		err = s.errs[i]
	}
	return resp, err
}

func (s *scriptedClient) Ping(ctx context.Context) error { return nil }

func newTestRetryClient(inner Client, onUsage UsageFunc) *RetryClient {
	c := NewRetryClient(inner, nil, onUsage)
	c.firstDelay = time.Millisecond
	c.nextDelay = time.Millisecond
	return c
}

func TestRetryClient_SuccessFirstAttempt(t *testing.T) {
	inner := &scriptedClient{
		responses: []*ChatResponse{{Message: Message{Role: "assistant", Content: "hi"}}},
		errs:      []error{nil},
	}
	c := newTestRetryClient(inner, nil)

	resp, err := c.Chat(context.Background(), "m", nil, nil)
	if err != nil {
		t.Fatal(err)
	}
	if resp.Message.Content != "hi" {
		t.Errorf("unexpected content: %q", resp.Message.Content)
	}
	if inner.calls != 1 {
		t.Errorf("expected 1 call, got %d", inner.calls)
	}
}

func TestRetryClient_RetriesServerError(t *testing.T) {
	inner := &scriptedClient{
		responses: []*ChatResponse{nil, {Message: Message{Content: "recovered"}}},
		errs:      []error{&APIError{Status: 503, Body: "overloaded"}, nil},
	}
	c := newTestRetryClient(inner, nil)

	resp, err := c.Chat(context.Background(), "m", nil, nil)
	if err != nil {
		t.Fatal(err)
	}
	if resp.Message.Content != "recovered" {
		t.Errorf("unexpected content: %q", resp.Message.Content)
	}
	if inner.calls != 2 {
		t.Errorf("expected 2 calls, got %d", inner.calls)
	}
}

func TestRetryClient_RetriesNetworkError(t *testing.T) {
	inner := &scriptedClient{
		responses: []*ChatResponse{nil, nil, {Message: Message{Content: "ok"}}},
		errs:      []error{fmt.Errorf("request failed: connection reset"), fmt.Errorf("request failed: connection reset"), nil},
	}
	c := newTestRetryClient(inner, nil)

	resp, err := c.Chat(context.Background(), "m", nil, nil)
	if err != nil {
		t.Fatal(err)
	}
	if resp.Message.Content != "ok" {
		t.Errorf("unexpected content: %q", resp.Message.Content)
	}
	if inner.calls != 3 {
		t.Errorf("expected 3 calls, got %d", inner.calls)
	}
}

func TestRetryClient_ExhaustsAttempts(t *testing.T) {
	serverErr := &APIError{Status: 500, Body: "boom"}
	inner := &scriptedClient{
		errs: []error{serverErr, serverErr, serverErr, serverErr},
	}
	c := newTestRetryClient(inner, nil)

	_, err := c.Chat(context.Background(), "m", nil, nil)
	if err == nil {
		t.Fatal("expected error after exhausting attempts")
	}
	if inner.calls != 3 {
		t.Errorf("expected exactly 3 attempts, got %d", inner.calls)
	}
}

func TestRetryClient_ClientErrorNotRetried(t *testing.T) {
	inner := &scriptedClient{
		errs: []error{&APIError{Status: 401, Body: "invalid api key"}},
	}
	c := newTestRetryClient(inner, nil)

	_, err := c.Chat(context.Background(), "m", nil, nil)
	if err == nil {
		t.Fatal("expected error")
	}
	if inner.calls != 1 {
		t.Errorf("expected 1 call (no retry on 4xx), got %d", inner.calls)
	}
}

func TestRetryClient_ToolsUnsupported(t *testing.T) {
	inner := &scriptedClient{
		errs: []error{&APIError{Status: 400, Body: `{"error":{"message":"this model does not support tool use"}}`}},
	}
	c := newTestRetryClient(inner, nil)

	_, err := c.Chat(context.Background(), "m", nil, []map[string]any{{"type": "function"}})
	if !errors.Is(err, ErrToolsUnsupported) {
		t.Fatalf("expected ErrToolsUnsupported, got %v", err)
	}
	if inner.calls != 1 {
		t.Errorf("expected 1 call, got %d", inner.calls)
	}
}

func TestRetryClient_PlainBadRequestNotMapped(t *testing.T) {
	inner := &scriptedClient{
		errs: []error{&APIError{Status: 400, Body: "max_tokens required"}},
	}
	c := newTestRetryClient(inner, nil)

	_, err := c.Chat(context.Background(), "m", nil, nil)
	if err == nil {
		t.Fatal("expected error")
	}
	if errors.Is(err, ErrToolsUnsupported) {
		t.Error("400 without tool phrasing must not map to ErrToolsUnsupported")
	}
}

func TestRetryClient_CancellationStopsRetries(t *testing.T) {
	serverErr := &APIError{Status: 500, Body: "boom"}
	inner := &scriptedClient{
		errs: []error{serverErr, serverErr, serverErr},
	}
	c := newTestRetryClient(inner, nil)
	c.firstDelay = 5 * time.Second

	ctx, cancel := context.WithCancel(context.Background())
	go func() {
		time.Sleep(20 * time.Millisecond)
		cancel()
	}()

	_, err := c.Chat(ctx, "m", nil, nil)
	if !errors.Is(err, context.Canceled) {
		t.Fatalf("expected context.Canceled, got %v", err)
	}
	if inner.calls != 1 {
		t.Errorf("expected 1 call before cancellation, got %d", inner.calls)
	}
}

func TestRetryClient_RecordsUsage(t *testing.T) {
	inner := &scriptedClient{
		responses: []*ChatResponse{{
			Message:      Message{Content: "hi"},
			InputTokens:  100,
			OutputTokens: 20,
		}},
		errs: []error{nil},
	}

	var gotModel string
	var gotIn, gotOut int
	c := newTestRetryClient(inner, func(ctx context.Context, model string, in, out int) {
		gotModel, gotIn, gotOut = model, in, out
	})

	if _, err := c.Chat(context.Background(), "test-model", nil, nil); err != nil {
		t.Fatal(err)
	}
	if gotModel != "test-model" || gotIn != 100 || gotOut != 20 {
		t.Errorf("usage sink got (%q, %d, %d)", gotModel, gotIn, gotOut)
	}
}

func TestRetryClient_UsagePanicDoesNotFailResponse(t *testing.T) {
	inner := &scriptedClient{
		responses: []*ChatResponse{{Message: Message{Content: "hi"}, InputTokens: 1, OutputTokens: 1}},
		errs:      []error{nil},
	}
	c := newTestRetryClient(inner, func(ctx context.Context, model string, in, out int) {
		panic("sink exploded")
	})

	resp, err := c.Chat(context.Background(), "m", nil, nil)
	if err != nil {
		t.Fatal(err)
	}
	if resp.Message.Content != "hi" {
		t.Errorf("unexpected content: %q", resp.Message.Content)
	}
}
