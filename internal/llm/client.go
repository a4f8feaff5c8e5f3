package llm

import "context"

// Client is the interface the orchestration loop talks to. Implementations
// must honor ctx cancellation on every request.
type Client interface {
	// Chat sends a chat completion request and returns the response.
	// tools is the OpenAI-style declaration list; nil disables tool calling.
	Chat(ctx context.Context, model string, messages []Message, tools []map[string]any) (*ChatResponse, error)

	// Ping checks if the provider is reachable.
	Ping(ctx context.Context) error
}
