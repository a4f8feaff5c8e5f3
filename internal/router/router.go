// Package router selects a model tier for an incoming user message.
package router

import (
	"log/slog"
	"strings"
	"sync"
	"time"
)

// Tier identifies the routing bucket for a request.
type Tier int

const (
	TierFast Tier = iota
	TierComplex
)

func (t Tier) String() string {
	if t == TierComplex {
		return "complex"
	}
	return "fast"
}

// Config holds the model name for each tier.
type Config struct {
	FastModel    string
	ComplexModel string
	// ManyToolsThreshold escalates to the complex tier when the number
	// of visible tools is at or above it. Zero uses the default of 12.
	ManyToolsThreshold int
}

// Decision records why a request was routed the way it was.
type Decision struct {
	Timestamp time.Time
	Tier      Tier
	Model     string
	Signals   []string
	ToolCount int
}

// Router picks between a fast and a complex model based on the text of
// the triggering user message and the size of the visible tool set. The
// decision is made once per run, before the loop starts.
type Router struct {
	cfg    Config
	logger *slog.Logger

	mu        sync.Mutex
	decisions []Decision
}

const maxDecisionLog = 100

func New(cfg Config, logger *slog.Logger) *Router {
	if cfg.ManyToolsThreshold <= 0 {
		cfg.ManyToolsThreshold = 12
	}
	return &Router{
		cfg:    cfg,
		logger: logger.With("component", "router"),
	}
}

// Route returns the model to use for a run triggered by message, given
// the number of tools visible to the caller.
func (r *Router) Route(message string, toolCount int) string {
	var signals []string
	if IsMultiStep(message) {
		signals = append(signals, "multi_step")
	}
	if IsCapabilityQuestion(message) {
		signals = append(signals, "capability_question")
	}
	if IsHighStakes(message) {
		signals = append(signals, "high_stakes")
	}
	if toolCount >= r.cfg.ManyToolsThreshold {
		signals = append(signals, "many_tools")
	}

	tier := TierFast
	if len(signals) > 0 {
		tier = TierComplex
	}
	model := r.cfg.FastModel
	if tier == TierComplex {
		model = r.cfg.ComplexModel
	}

	d := Decision{
		Timestamp: time.Now(),
		Tier:      tier,
		Model:     model,
		Signals:   signals,
		ToolCount: toolCount,
	}
	r.record(d)

	r.logger.Debug("routed request",
		"tier", tier.String(),
		"model", model,
		"signals", strings.Join(signals, ","),
		"tool_count", toolCount)
	return model
}

func (r *Router) record(d Decision) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.decisions = append(r.decisions, d)
	if len(r.decisions) > maxDecisionLog {
		r.decisions = r.decisions[len(r.decisions)-maxDecisionLog:]
	}
}

// Decisions returns a copy of the recent routing decisions, newest last.
func (r *Router) Decisions() []Decision {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]Decision, len(r.decisions))
	copy(out, r.decisions)
	return out
}

var multiStepMarkers = []string{
	"and then",
	"after that",
	"step by step",
	"first,",
	"second,",
	"finally,",
	"for each",
	"one by one",
	"then send",
	"then write",
	"then save",
	"then delete",
	"compare",
	"summarize all",
	"go through",
}

// IsMultiStep reports whether the message reads like a multi-step task.
func IsMultiStep(text string) bool {
	lower := strings.ToLower(text)
	for _, m := range multiStepMarkers {
		if strings.Contains(lower, m) {
			return true
		}
	}
	// Several sentences usually means several asks.
	return strings.Count(lower, ". ") >= 2 && len(lower) > 200
}

var capabilityMarkers = []string{
	"what can you do",
	"what can you help",
	"what are you able",
	"what tools do you have",
	"what tools can you",
	"which tools",
	"list your capabilities",
	"your capabilities",
	"what else can you",
	"can you do anything",
	"what do you know how",
}

// IsCapabilityQuestion reports whether the message asks what the
// assistant is able to do.
func IsCapabilityQuestion(text string) bool {
	lower := strings.ToLower(text)
	for _, m := range capabilityMarkers {
		if strings.Contains(lower, m) {
			return true
		}
	}
	return false
}

var highStakesDomains = []string{
	"delete",
	"remove all",
	"wipe",
	"password",
	"credential",
	"payment",
	"invoice",
	"legal",
	"contract",
	"medical",
	"tax",
}

var broadScopeMarkers = []string{
	"all ",
	"every ",
	"everything",
	"entire",
	"whole",
	"any ",
}

// IsHighStakes reports whether the message combines a sensitive domain
// with broad scope, e.g. "delete all my files".
func IsHighStakes(text string) bool {
	lower := strings.ToLower(text)
	domain := false
	for _, m := range highStakesDomains {
		if strings.Contains(lower, m) {
			domain = true
			break
		}
	}
	if !domain {
		return false
	}
	for _, m := range broadScopeMarkers {
		if strings.Contains(lower, m) {
			return true
		}
	}
	return false
}
