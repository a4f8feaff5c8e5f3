// Package agent implements the orchestration loop: repeated model
// calls, tool dispatch, and the guardrails that keep a confused model
// from emitting wrong or ungrounded answers.
package agent

import (
	"context"
	"errors"
	"log/slog"
	"strings"

	"github.com/hollis/valet/internal/llm"
	"github.com/hollis/valet/internal/prompts"
	"github.com/hollis/valet/internal/router"
	"github.com/hollis/valet/internal/tools"
)

// MaxRounds caps the number of model rounds per run. Reaching it forces
// a final tools-disabled summary completion, guaranteeing termination
// even under adversarial model behavior.
const MaxRounds = 12

// maxCapabilityListingRetries bounds how many times the loop re-asks
// the model to consult list_capabilities before accepting its answer.
const maxCapabilityListingRetries = 2

// runState is the per-run mutable state. A run is strictly sequential,
// so none of this needs synchronization.
type runState struct {
	original      []llm.Message
	messages      []llm.Message
	visible       map[string]bool // tool names visible to this caller
	round         int
	plan          []string
	externalCalls int

	groundingNudged     bool
	capabilityCorrected bool
	capListingRetries   int
	calledCapListing    bool
	verified            bool
}

// Agent drives runs against the model client and tool registry.
type Agent struct {
	client   llm.Client
	registry *tools.Registry
	executor *tools.Executor
	logger   *slog.Logger
}

func New(client llm.Client, registry *tools.Registry, executor *tools.Executor, logger *slog.Logger) *Agent {
	return &Agent{
		client:   client,
		registry: registry,
		executor: executor,
		logger:   logger.With("component", "agent"),
	}
}

// Run executes one orchestration run and returns the final answer text.
// messages is the full working history ending with the triggering user
// message. A context cancellation surfaces as ctx.Err(), distinguishable
// from model failures.
func (a *Agent) Run(ctx context.Context, model string, messages []llm.Message, caller tools.Caller) (string, error) {
	original := make([]llm.Message, len(messages))
	copy(original, messages)

	st := &runState{original: original, messages: messages}
	toolSpecs := a.registry.Specs(caller.Caps)
	st.visible = make(map[string]bool, len(toolSpecs))
	for _, d := range a.registry.Declarations(caller.Caps) {
		st.visible[d.Name] = true
	}
	userText := lastUserText(original)

	a.logger.Debug("run started",
		"caller", caller.ID,
		"model", model,
		"tools", len(toolSpecs))

	for {
		if st.round >= MaxRounds {
			a.logger.Warn("round cap reached, forcing summary", "caller", caller.ID)
			withInstruction := append(st.messages, llm.Message{
				Role: "user", Content: prompts.SummarizeProgressInstruction,
			})
			return a.plain(ctx, model, withInstruction)
		}

		resp, err := a.client.Chat(ctx, model, st.messages, toolSpecs)
		if errors.Is(err, llm.ErrToolsUnsupported) {
			// Silent degrade: the model cannot do tool calling at all,
			// so answer the original request plainly.
			a.logger.Warn("model does not support tools, degrading", "model", model)
			return a.plain(ctx, model, original)
		}
		if err != nil {
			return "", err
		}

		if len(resp.Message.ToolCalls) == 0 {
			text, done, err := a.checkCandidate(ctx, model, st, resp.Message.Content, userText)
			if err != nil {
				return "", err
			}
			if done {
				return text, nil
			}
			continue
		}

		st.messages = append(st.messages, resp.Message)
		for _, call := range resp.Message.ToolCalls {
			outcome := a.executor.Execute(ctx, call, caller)
			if outcome.Plan != nil {
				st.plan = outcome.Plan
			}
			if outcome.External {
				st.externalCalls++
			}
			if call.Name == "list_capabilities" {
				st.calledCapListing = true
			}
			st.messages = append(st.messages, llm.Message{
				Role:       "tool",
				Content:    outcome.Result,
				ToolCallID: call.ID,
			})
			if outcome.IsFinal {
				a.logger.Debug("reflect short-circuit", "caller", caller.ID, "round", st.round)
				return outcome.Final, nil
			}
		}
		st.round++
	}
}

// checkCandidate applies the guard chain to a candidate final answer.
// It either accepts the answer (done=true) or mutates the run state
// with a corrective instruction and asks for another round. An error
// means the run cannot produce a usable answer and must abort.
func (a *Agent) checkCandidate(ctx context.Context, model string, st *runState, text, userText string) (string, bool, error) {
	// Leaked tool pseudo-code: this answer is garbage; re-run the
	// original request without tools at all. If the re-run fails too,
	// the leaked block must never reach the caller.
	if looksLikeToolCode(text) {
		a.logger.Warn("tool code leaked into answer, re-running plain")
		out, err := a.plain(ctx, model, st.original)
		if err != nil {
			return "", true, err
		}
		return out, true, nil
	}

	if !st.groundingNudged && st.externalCalls == 0 && shouldHaveUsedTools(userText) {
		a.logger.Debug("injecting grounding nudge")
		st.groundingNudged = true
		a.inject(st, text, prompts.GroundingNudge)
		return "", false, nil
	}

	if router.IsCapabilityQuestion(userText) &&
		st.visible["list_capabilities"] &&
		!st.calledCapListing &&
		st.capListingRetries < maxCapabilityListingRetries {
		a.logger.Debug("injecting capability listing nudge", "retry", st.capListingRetries)
		st.capListingRetries++
		a.inject(st, text, prompts.CapabilityListingNudge)
		return "", false, nil
	}

	if !st.capabilityCorrected && claimsUnsupportedCapability(text, st.visible) {
		a.logger.Debug("injecting capability correction")
		st.capabilityCorrected = true
		a.inject(st, text, prompts.CapabilityCorrection)
		return "", false, nil
	}

	if strings.TrimSpace(text) == "" && len(st.plan) > 0 {
		return prompts.PlanCompleted, true, nil
	}

	if !st.verified && (st.externalCalls > 1 || len(st.plan) > 1) {
		st.verified = true
		verifyMessages := append(st.messages,
			llm.Message{Role: "assistant", Content: text},
			llm.Message{Role: "user", Content: prompts.VerificationInstruction},
		)
		verified, err := a.plain(ctx, model, verifyMessages)
		if err == nil && strings.TrimSpace(verified) != "" {
			return verified, true, nil
		}
		return text, true, nil
	}

	return text, true, nil
}

// inject appends the rejected candidate answer and a corrective
// user-role instruction, consuming one round.
func (a *Agent) inject(st *runState, candidate, instruction string) {
	st.messages = append(st.messages,
		llm.Message{Role: "assistant", Content: candidate},
		llm.Message{Role: "user", Content: instruction},
	)
	st.round++
}

// plain issues a single tools-disabled completion.
func (a *Agent) plain(ctx context.Context, model string, messages []llm.Message) (string, error) {
	resp, err := a.client.Chat(ctx, model, messages, nil)
	if err != nil {
		return "", err
	}
	return strings.TrimSpace(resp.Message.Content), nil
}

// lastUserText returns the content of the final user-role message, the
// message that triggered this run.
func lastUserText(messages []llm.Message) string {
	for i := len(messages) - 1; i >= 0; i-- {
		if messages[i].Role == "user" {
			return messages[i].Content
		}
	}
	return ""
}
