// Package llm provides provider-neutral chat types and the Anthropic
// Messages API client used by the orchestration loop.
package llm

import (
	"fmt"
	"log/slog"
	"time"
)

// LevelTrace is below Debug, used for wire-level payload logging.
const LevelTrace = slog.Level(-8)

// Message represents a chat message for the LLM.
type Message struct {
	Role       string     `json:"role"`
	Content    string     `json:"content"`
	ToolCalls  []ToolCall `json:"tool_calls,omitempty"`
	ToolCallID string     `json:"tool_call_id,omitempty"` // For tool responses
}

// ToolCall represents a tool invocation requested by the model.
// Arguments is the raw JSON text exactly as the provider produced it;
// decoding happens at dispatch time so a malformed payload becomes a
// recoverable tool error instead of a dropped call.
type ToolCall struct {
	ID        string `json:"id,omitempty"` // Provider-assigned, correlates request to result
	Name      string `json:"name"`
	Arguments string `json:"arguments"`
}

// ChatResponse is the unified response from the provider. All fields use
// proper Go types — wire format conversion happens at the provider boundary.
type ChatResponse struct {
	Model     string
	CreatedAt time.Time
	Message   Message
	Done      bool

	// Token usage (provider-neutral)
	InputTokens  int
	OutputTokens int
}

// APIError is a non-2xx response from the provider. Status carries the
// HTTP status code so callers can classify transient vs. permanent
// failures; Body is a truncated copy of the error payload.
type APIError struct {
	Status int
	Body   string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("anthropic API error %d: %s", e.Status, e.Body)
}
