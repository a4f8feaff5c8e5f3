package tools

import "context"

// Caller identifies who the current orchestration run acts for. It is
// threaded through tool execution via the context so every handler can
// scope storage and delivery to the right person.
type Caller struct {
	ID   string
	Caps Caps
}

type contextKey string

const callerKey contextKey = "caller"

// WithCaller adds the caller to the context.
func WithCaller(ctx context.Context, c Caller) context.Context {
	return context.WithValue(ctx, callerKey, c)
}

// CallerFromContext extracts the caller from the context. Returns a
// zero-capability caller with ID "default" if not set.
func CallerFromContext(ctx context.Context) Caller {
	if c, ok := ctx.Value(callerKey).(Caller); ok && c.ID != "" {
		return c
	}
	return Caller{ID: "default"}
}
