// Valet is a conversational personal-assistant agent.
//
// It receives chat messages over a webhook, orchestrates bounded
// tool-calling runs against the Anthropic API, and answers with
// transport-sized text chunks. Configuration is loaded from a single
// YAML file discovered automatically (see [config.DefaultSearchPaths]).
//
// Usage:
//
//	valet serve              Start the webhook server
//	valet ask <question>     Ask a single question (for testing)
//	valet usage [days]       Print token usage for the last N days (default 30)
//	valet version            Print version and build information
package main

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"syscall"
	"time"

	"github.com/joho/godotenv"

	"github.com/hollis/valet/internal/agent"
	"github.com/hollis/valet/internal/buildinfo"
	"github.com/hollis/valet/internal/config"
	"github.com/hollis/valet/internal/facts"
	"github.com/hollis/valet/internal/fetch"
	"github.com/hollis/valet/internal/history"
	"github.com/hollis/valet/internal/llm"
	"github.com/hollis/valet/internal/mail"
	"github.com/hollis/valet/internal/router"
	"github.com/hollis/valet/internal/scheduler"
	"github.com/hollis/valet/internal/session"
	"github.com/hollis/valet/internal/tools"
	"github.com/hollis/valet/internal/usage"
	"github.com/hollis/valet/internal/web"
)

// main constructs the OS-level environment and delegates to run, which
// keeps os.Exit and os.Args out of the application logic so the full
// lifecycle can be driven from tests.
func main() {
	ctx := context.Background()

	if err := run(ctx, os.Stdout, os.Stderr, os.Args[1:]); err != nil {
		fmt.Fprintf(os.Stderr, "%s\n", err)
		os.Exit(1)
	}
}

// run parses arguments by hand. The flag package relies on package-level
// globals, which makes it impossible to call run concurrently from
// tests; the argument surface here is small enough without it.
func run(ctx context.Context, stdout, stderr io.Writer, args []string) error {
	// Environment overrides (ANTHROPIC_API_KEY etc.) may live in a .env
	// file next to the binary; loaded before the config file is parsed
	// so ${VAR} expansion sees them.
	_ = godotenv.Load()

	var configPath string
	var command string
	var cmdArgs []string

	for i := 0; i < len(args); i++ {
		switch {
		case args[i] == "-config" && i+1 < len(args):
			configPath = args[i+1]
			i++
		case strings.HasPrefix(args[i], "-config="):
			configPath = strings.TrimPrefix(args[i], "-config=")
		case args[i] == "-h" || args[i] == "-help" || args[i] == "--help":
			return printUsage(stdout)
		case !strings.HasPrefix(args[i], "-") && command == "":
			command = args[i]
		default:
			if command != "" {
				cmdArgs = append(cmdArgs, args[i])
			} else {
				return fmt.Errorf("unknown flag: %s", args[i])
			}
		}
	}

	switch command {
	case "serve":
		return runServe(ctx, stdout, configPath)
	case "ask":
		if len(cmdArgs) == 0 {
			return fmt.Errorf("usage: valet ask <question>")
		}
		return runAsk(ctx, stdout, configPath, cmdArgs)
	case "usage":
		days := 30
		if len(cmdArgs) > 0 {
			if _, err := fmt.Sscanf(cmdArgs[0], "%d", &days); err != nil || days <= 0 {
				return fmt.Errorf("usage: valet usage [days]")
			}
		}
		return runUsage(stdout, configPath, days)
	case "version":
		return runVersion(stdout)
	case "":
		return printUsage(stdout)
	default:
		return fmt.Errorf("unknown command: %s", command)
	}
}

func printUsage(w io.Writer) error {
	fmt.Fprintln(w, "Valet - Conversational Personal Assistant Agent")
	fmt.Fprintln(w)
	fmt.Fprintln(w, "Usage: valet [flags] <command> [args]")
	fmt.Fprintln(w)
	fmt.Fprintln(w, "Commands:")
	fmt.Fprintln(w, "  serve          Start the webhook server")
	fmt.Fprintln(w, "  ask            Ask a single question (for testing)")
	fmt.Fprintln(w, "  usage [days]   Print token usage for the last N days (default 30)")
	fmt.Fprintln(w, "  version        Show version information")
	fmt.Fprintln(w)
	fmt.Fprintln(w, "Flags:")
	fmt.Fprintln(w, "  -config <path>   Path to config file (default: auto-discover)")
	fmt.Fprintln(w)
	fmt.Fprintln(w, "Config search order:")
	fmt.Fprintln(w, "  ./valet.yaml, ~/.config/valet/config.yaml, /etc/valet/config.yaml")
	return nil
}

func runVersion(w io.Writer) error {
	fmt.Fprintln(w, buildinfo.String())
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(buildinfo.Info())
}

// newLogger creates a structured logger writing to w at the given
// level, with trace-level records labeled TRACE instead of DEBUG-4.
func newLogger(w io.Writer, level slog.Level) *slog.Logger {
	return slog.New(slog.NewTextHandler(w, &slog.HandlerOptions{
		Level:       level,
		ReplaceAttr: config.ReplaceLogLevelNames,
	}))
}

func loadConfig(explicit string) (*config.Config, string, error) {
	path, err := config.FindConfig(explicit)
	if err != nil {
		return nil, "", err
	}
	cfg, err := config.Load(path)
	if err != nil {
		return nil, "", fmt.Errorf("load config %s: %w", path, err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, "", fmt.Errorf("invalid config %s: %w", path, err)
	}
	return cfg, path, nil
}

// runUsage prints aggregate token usage from the usage database.
func runUsage(stdout io.Writer, configPath string, days int) error {
	cfg, _, err := loadConfig(configPath)
	if err != nil {
		return err
	}

	store, err := usage.NewStore(filepath.Join(cfg.DataDir, "usage.db"))
	if err != nil {
		return fmt.Errorf("open usage store: %w", err)
	}
	defer store.Close()

	end := time.Now()
	start := end.AddDate(0, 0, -days)

	total, err := store.Summary(start, end)
	if err != nil {
		return fmt.Errorf("usage summary: %w", err)
	}
	fmt.Fprintf(stdout, "Usage over the last %d days:\n", days)
	fmt.Fprintf(stdout, "  requests: %d\n  input tokens: %d\n  output tokens: %d\n",
		total.TotalRecords, total.TotalInputTokens, total.TotalOutputTokens)

	byModel, err := store.SummaryByModel(start, end)
	if err != nil {
		return fmt.Errorf("usage by model: %w", err)
	}
	for model, s := range byModel {
		fmt.Fprintf(stdout, "  %s: %d requests, %d in / %d out\n",
			model, s.TotalRecords, s.TotalInputTokens, s.TotalOutputTokens)
	}
	return nil
}

// runAsk boots the full turn pipeline without the HTTP server or
// scheduler and processes a single question as an admin caller.
func runAsk(ctx context.Context, stdout io.Writer, configPath string, args []string) error {
	logger := newLogger(stdout, slog.LevelWarn)
	question := strings.Join(args, " ")

	cfg, _, err := loadConfig(configPath)
	if err != nil {
		return err
	}

	v, cleanup, err := buildValet(ctx, cfg, logger)
	if err != nil {
		return err
	}
	defer cleanup()

	answer, err := v.assistant.HandleMessage(ctx, "cli", true, question)
	if err != nil {
		return fmt.Errorf("ask: %w", err)
	}

	fmt.Fprintln(stdout, answer)
	return nil
}

// valet bundles the wired application for the serve and ask commands.
type valet struct {
	cfg       *config.Config
	assistant *agent.Assistant
	sched     *scheduler.Scheduler
	logger    *slog.Logger
}

// buildValet wires stores, tools, the model client, and the turn
// pipeline. The returned cleanup closes everything in reverse order.
func buildValet(ctx context.Context, cfg *config.Config, logger *slog.Logger) (*valet, func(), error) {
	if err := os.MkdirAll(cfg.DataDir, 0755); err != nil {
		return nil, nil, fmt.Errorf("create data directory %s: %w", cfg.DataDir, err)
	}

	var closers []func()
	cleanup := func() {
		for i := len(closers) - 1; i >= 0; i-- {
			closers[i]()
		}
	}
	fail := func(err error) (*valet, func(), error) {
		cleanup()
		return nil, nil, err
	}

	historyStore, err := history.NewStore(filepath.Join(cfg.DataDir, "history.db"))
	if err != nil {
		return fail(fmt.Errorf("open history store: %w", err))
	}
	closers = append(closers, func() { historyStore.Close() })

	factStore, err := facts.NewStore(filepath.Join(cfg.DataDir, "facts.db"))
	if err != nil {
		return fail(fmt.Errorf("open fact store: %w", err))
	}
	closers = append(closers, func() { factStore.Close() })

	usageStore, err := usage.NewStore(filepath.Join(cfg.DataDir, "usage.db"))
	if err != nil {
		return fail(fmt.Errorf("open usage store: %w", err))
	}
	closers = append(closers, func() { usageStore.Close() })

	reminderStore, err := scheduler.NewStore(filepath.Join(cfg.DataDir, "reminders.db"))
	if err != nil {
		return fail(fmt.Errorf("open reminder store: %w", err))
	}
	closers = append(closers, func() { reminderStore.Close() })

	// Model client: Anthropic wrapped in retry/backoff, with token
	// usage recorded best-effort per completed request.
	anthropic := llm.NewAnthropicClient(cfg.Anthropic.APIKey, logger)
	client := llm.NewRetryClient(anthropic, logger, func(ctx context.Context, model string, inputTokens, outputTokens int) {
		rec := usage.Record{
			CallerID:     tools.CallerFromContext(ctx).ID,
			Model:        model,
			Provider:     "anthropic",
			InputTokens:  inputTokens,
			OutputTokens: outputTokens,
		}
		if err := usageStore.Record(ctx, rec); err != nil {
			logger.Warn("usage record failed", "error", err)
		}
	})

	// Tool catalog. Meta tools lead the listing; list_capabilities is
	// registered last so it sees the complete catalog.
	registry := tools.NewRegistry()
	registry.RegisterMetaTools()
	registry.RegisterNoteTools(factStore)
	registry.RegisterFetchTool(fetch.New())

	uploadsRoot := cfg.Uploads.Root
	if uploadsRoot == "" {
		uploadsRoot = filepath.Join(cfg.DataDir, "uploads")
	}
	sandbox := tools.NewSandbox(uploadsRoot)
	registry.RegisterFileTools(sandbox, newOutboxSender(cfg.DataDir, logger))

	if cfg.ShellExec.Enabled {
		registry.RegisterShellTool(tools.NewShellExec(tools.ShellExecConfig{
			Enabled:        true,
			WorkingDir:     cfg.ShellExec.WorkingDir,
			DeniedCmds:     cfg.ShellExec.DeniedPatterns,
			DefaultTimeout: time.Duration(cfg.ShellExec.DefaultTimeoutSec) * time.Second,
		}))
	}

	if cfg.Mail.Linked() {
		mailClient := mail.NewClient(cfg.Mail, logger)
		closers = append(closers, func() { mailClient.Close() })
		registry.RegisterMailTools(mailClient)
		logger.Info("mail account linked", "host", cfg.Mail.Host, "user", cfg.Mail.Username)
	}

	// The assistant is constructed after the registry closes, but the
	// reminder tools must be registered now. The deliver callback only
	// fires after scheduler.Start, by which point assistant is set.
	var assistant *agent.Assistant
	var sched *scheduler.Scheduler
	if cfg.Scheduler.Enabled {
		sched = scheduler.New(logger, reminderStore, func(ctx context.Context, callerID, text string) {
			assistant.DeliverReminder(ctx, callerID, text)
		})
		registry.RegisterReminderTools(sched)
	}

	registry.RegisterCapabilityTool()

	executor := tools.NewExecutor(registry, logger)
	ag := agent.New(client, registry, executor, logger)
	rtr := router.New(router.Config{
		FastModel:    cfg.Models.Fast,
		ComplexModel: cfg.Models.Complex,
	}, logger)
	sessions := session.NewManager(logger)
	compressor := history.NewCompressor(client, cfg.Models.Fast, logger)
	extractor := facts.NewExtractor(client, cfg.Models.Fast, factStore, logger)

	assistant = agent.NewAssistant(ag, rtr, registry, sessions, historyStore, compressor, factStore, extractor, agent.AssistantConfig{
		MailLinked:        cfg.Mail.Linked(),
		AdminIDs:          cfg.AdminIDs,
		KeepRecent:        cfg.History.KeepRecent,
		CompressThreshold: cfg.History.CompressThreshold,
	}, logger)

	return &valet{
		cfg:       cfg,
		assistant: assistant,
		sched:     sched,
		logger:    logger,
	}, cleanup, nil
}

// runServe is the primary operating mode: wire everything, start the
// scheduler and webhook server, and block until SIGINT/SIGTERM.
func runServe(ctx context.Context, stdout io.Writer, configPath string) error {
	logger := newLogger(stdout, slog.LevelInfo)
	logger.Info("starting Valet", "version", buildinfo.Version, "commit", buildinfo.GitCommit, "built", buildinfo.BuildTime)

	cfg, cfgPath, err := loadConfig(configPath)
	if err != nil {
		return err
	}

	if cfg.LogLevel != "" {
		level, err := config.ParseLogLevel(cfg.LogLevel)
		if err != nil {
			return err
		}
		logger = newLogger(stdout, level)
	}
	logger.Info("config loaded", "path", cfgPath, "port", cfg.Listen.Port,
		"fast_model", cfg.Models.Fast, "complex_model", cfg.Models.Complex)

	ctx, stop := signal.NotifyContext(ctx, syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	v, cleanup, err := buildValet(ctx, cfg, logger)
	if err != nil {
		return err
	}
	defer cleanup()

	if v.sched != nil {
		if err := v.sched.Start(ctx); err != nil {
			return fmt.Errorf("start scheduler: %w", err)
		}
		defer v.sched.Stop()
	}

	server := web.NewServer(cfg.Listen.Address, cfg.Listen.Port, v.assistant, logger)

	errCh := make(chan error, 1)
	go func() {
		errCh <- server.Start(ctx)
	}()

	select {
	case err := <-errCh:
		return fmt.Errorf("webhook server: %w", err)
	case <-ctx.Done():
	}

	logger.Info("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		logger.Warn("server shutdown", "error", err)
	}
	return nil
}
