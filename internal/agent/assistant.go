package agent

import (
	"context"
	"log/slog"
	"time"

	"github.com/hollis/valet/internal/facts"
	"github.com/hollis/valet/internal/history"
	"github.com/hollis/valet/internal/llm"
	"github.com/hollis/valet/internal/prompts"
	"github.com/hollis/valet/internal/router"
	"github.com/hollis/valet/internal/session"
	"github.com/hollis/valet/internal/tools"
)

// historyWindow is how many stored turns are loaded per message before
// compression trims them down.
const historyWindow = 40

// AssistantConfig carries the turn-pipeline settings that come from the
// config file.
type AssistantConfig struct {
	MailLinked        bool
	AdminIDs          []string
	KeepRecent        int
	CompressThreshold int
}

// Assistant owns one conversation turn end to end: session claim,
// history load and compression, system prompt assembly, model routing,
// the orchestration run, and post-turn persistence. The webhook layer
// stays a thin request adapter on top of this.
type Assistant struct {
	agent      *Agent
	rtr        *router.Router
	registry   *tools.Registry
	sessions   *session.Manager
	history    *history.Store
	compressor *history.Compressor
	facts      *facts.Store
	extractor  *facts.Extractor

	mailLinked bool
	adminIDs   map[string]bool
	keepRecent int
	threshold  int
	logger     *slog.Logger
}

func NewAssistant(
	ag *Agent,
	rtr *router.Router,
	registry *tools.Registry,
	sessions *session.Manager,
	hist *history.Store,
	compressor *history.Compressor,
	factStore *facts.Store,
	extractor *facts.Extractor,
	cfg AssistantConfig,
	logger *slog.Logger,
) *Assistant {
	admins := make(map[string]bool, len(cfg.AdminIDs))
	for _, id := range cfg.AdminIDs {
		admins[id] = true
	}
	if cfg.KeepRecent <= 0 {
		cfg.KeepRecent = 10
	}
	if cfg.CompressThreshold <= 0 {
		cfg.CompressThreshold = 15
	}
	return &Assistant{
		agent:      ag,
		rtr:        rtr,
		registry:   registry,
		sessions:   sessions,
		history:    hist,
		compressor: compressor,
		facts:      factStore,
		extractor:  extractor,
		mailLinked: cfg.MailLinked,
		adminIDs:   admins,
		keepRecent: cfg.KeepRecent,
		threshold:  cfg.CompressThreshold,
		logger:     logger.With("component", "assistant"),
	}
}

// Cancel aborts the caller's in-flight run, if any.
func (a *Assistant) Cancel(callerID string) bool {
	return a.sessions.Cancel(callerID)
}

// HandleMessage processes one user message and returns the final answer.
// A new message from the same caller supersedes any run still in flight;
// the superseded run surfaces context.Canceled.
func (a *Assistant) HandleMessage(ctx context.Context, callerID string, admin bool, text string) (string, error) {
	caps := tools.Caps{
		Admin:      admin || a.adminIDs[callerID],
		MailLinked: a.mailLinked,
	}
	caller := tools.Caller{ID: callerID, Caps: caps}

	runCtx, done := a.sessions.Begin(ctx, callerID)
	defer done()
	// Caller identity rides the context so cross-cutting hooks (usage
	// recording) can attribute model calls without plumbing.
	runCtx = tools.WithCaller(runCtx, caller)

	known, err := a.facts.All(runCtx, callerID)
	if err != nil {
		a.logger.Warn("fact load failed", "caller", callerID, "error", err)
		known = nil
	}

	turns, err := a.history.Recent(runCtx, callerID, historyWindow)
	if err != nil {
		a.logger.Warn("history load failed", "caller", callerID, "error", err)
		turns = nil
	}
	turns = a.compressor.Compress(runCtx, turns, a.keepRecent, a.threshold)

	system := prompts.SystemPrompt(time.Now(), known, caps.MailLinked, caps.Admin)
	msgs := assembleMessages(system, turns, text)

	model := a.rtr.Route(text, len(a.registry.Declarations(caps)))

	answer, err := a.agent.Run(runCtx, model, msgs, caller)
	if err != nil {
		return "", err
	}

	// Persist and extract even if the caller has already moved on;
	// detach from the run's cancellation with a bounded deadline.
	persistCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), 30*time.Second)
	defer cancel()
	if err := a.history.Append(persistCtx, callerID, "user", text); err != nil {
		a.logger.Warn("history append failed", "caller", callerID, "error", err)
	}
	if err := a.history.Append(persistCtx, callerID, "assistant", answer); err != nil {
		a.logger.Warn("history append failed", "caller", callerID, "error", err)
	}

	go func() {
		extractCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), time.Minute)
		defer cancel()
		a.extractor.Process(extractCtx, callerID, text, answer)
	}()

	return answer, nil
}

// DeliverReminder runs the loop on a fired reminder and records the
// exchange in history so the caller sees it on their next message.
func (a *Assistant) DeliverReminder(ctx context.Context, callerID, text string) {
	note := "Reminder fired: " + text
	answer, err := a.HandleMessage(ctx, callerID, false, note)
	if err != nil {
		a.logger.Warn("reminder delivery failed", "caller", callerID, "error", err)
		return
	}
	a.logger.Info("reminder delivered", "caller", callerID, "answer_len", len(answer))
}

// assembleMessages builds the working message list for one turn:
// system prompt, compressed history, then the triggering user message.
func assembleMessages(system string, turns []llm.Message, text string) []llm.Message {
	msgs := make([]llm.Message, 0, len(turns)+2)
	msgs = append(msgs, llm.Message{Role: "system", Content: system})
	msgs = append(msgs, turns...)
	msgs = append(msgs, llm.Message{Role: "user", Content: text})
	return msgs
}
