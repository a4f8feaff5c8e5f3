package tools

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"strings"

	"github.com/hollis/valet/internal/llm"
)

// Outcome is the result of executing one tool call. Result always holds
// the tool-result text appended to the conversation; the other fields
// carry effects on the orchestration run.
type Outcome struct {
	Result string

	// Plan is non-nil when the plan tool recorded a step list.
	Plan []string

	// IsFinal marks a reflect short-circuit: Final is the run's answer
	// and the loop must stop on this round.
	IsFinal bool
	Final   string

	// External is true for calls that reached a real capability (not a
	// meta tool). The loop counts these for grounding heuristics.
	External bool
}

// Executor dispatches model-requested tool calls. It never returns an
// error to the loop: decode failures, gate misses, validation errors,
// and handler failures all come back as sanitized result text so the
// model can see what went wrong and recover.
type Executor struct {
	registry *Registry
	logger   *slog.Logger
}

// NewExecutor creates an executor over the registry.
func NewExecutor(registry *Registry, logger *slog.Logger) *Executor {
	if logger == nil {
		logger = slog.Default()
	}
	return &Executor{
		registry: registry,
		logger:   logger.With("component", "executor"),
	}
}

// Execute runs one tool call for the caller. Meta tools (think, plan,
// reflect) are intercepted before dispatch — their effects are internal
// to the run and never reach collaborator services.
func (e *Executor) Execute(ctx context.Context, call llm.ToolCall, caller Caller) Outcome {
	args, decoded := decodeArgs(call.Arguments)
	if !decoded {
		e.logger.Warn("malformed tool arguments", "tool", call.Name)
		return Outcome{Result: fmt.Sprintf("Error: arguments for %s are not valid JSON", call.Name)}
	}

	switch call.Name {
	case "think":
		return execThink()
	case "plan":
		return execPlan(args)
	case "reflect":
		return execReflect(args)
	}

	tool := e.registry.Get(call.Name)
	if tool == nil || !tool.visible(caller.Caps) {
		err := &ErrToolUnavailable{ToolName: call.Name}
		return Outcome{Result: "Error: " + err.Error()}
	}

	if tool.schema != nil {
		if err := tool.schema.Validate(args); err != nil {
			e.logger.Warn("tool argument validation failed", "tool", call.Name, "error", err)
			return Outcome{Result: fmt.Sprintf("Error: invalid arguments for %s: %s", call.Name, SanitizeError(err.Error()))}
		}
	}

	e.logger.Debug("executing tool", "tool", call.Name, "caller", caller.ID)

	result, err := e.dispatch(ctx, tool, args, caller)
	if err != nil {
		e.logger.Warn("tool failed", "tool", call.Name, "error", err)
		return Outcome{Result: "Error: " + SanitizeError(err.Error()), External: true}
	}
	return Outcome{Result: result, External: true}
}

// dispatch invokes the handler, converting a panic into an error so a
// single bad tool cannot take down the run.
func (e *Executor) dispatch(ctx context.Context, tool *Tool, args map[string]any, caller Caller) (result string, err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("tool %s panicked: %v", tool.Name, r)
		}
	}()
	if tool.Handler == nil {
		return "", &ErrToolUnavailable{ToolName: tool.Name}
	}
	return tool.Handler(WithCaller(ctx, caller), args)
}

// decodeArgs parses the raw argument JSON. An empty payload is an empty
// argument set, not an error.
func decodeArgs(raw string) (map[string]any, bool) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return map[string]any{}, true
	}
	var args map[string]any
	if err := json.Unmarshal([]byte(raw), &args); err != nil {
		return nil, false
	}
	if args == nil {
		args = map[string]any{}
	}
	return args, true
}
