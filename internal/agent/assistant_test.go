package agent

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"path/filepath"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/hollis/valet/internal/facts"
	"github.com/hollis/valet/internal/history"
	"github.com/hollis/valet/internal/llm"
	"github.com/hollis/valet/internal/router"
	"github.com/hollis/valet/internal/session"
	"github.com/hollis/valet/internal/tools"

	_ "github.com/mattn/go-sqlite3"
)

// erroringClient always fails; used for collaborators (compressor,
// extractor) that must stay quiet in a test.
type erroringClient struct{}

func (erroringClient) Chat(ctx context.Context, model string, messages []llm.Message, toolSpecs []map[string]any) (*llm.ChatResponse, error) {
	return nil, errors.New("not in this test")
}

func (erroringClient) Ping(ctx context.Context) error { return nil }

func newTestAssistant(t *testing.T, client llm.Client, cfg AssistantConfig) (*Assistant, *history.Store, *facts.Store) {
	t.Helper()
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	dir := t.TempDir()

	historyStore, err := history.NewStore(filepath.Join(dir, "history.db"))
	if err != nil {
		t.Fatalf("open history store: %v", err)
	}
	t.Cleanup(func() { historyStore.Close() })

	factStore, err := facts.NewStore(filepath.Join(dir, "facts.db"))
	if err != nil {
		t.Fatalf("open fact store: %v", err)
	}
	t.Cleanup(func() { factStore.Close() })

	registry := tools.NewRegistry()
	registry.RegisterMetaTools()
	registry.RegisterCapabilityTool()
	executor := tools.NewExecutor(registry, logger)

	ag := New(client, registry, executor, logger)
	rtr := router.New(router.Config{FastModel: "claude-haiku", ComplexModel: "claude-sonnet"}, logger)
	sessions := session.NewManager(logger)
	compressor := history.NewCompressor(erroringClient{}, "claude-haiku", logger)
	extractor := facts.NewExtractor(erroringClient{}, "claude-haiku", factStore, logger)

	a := NewAssistant(ag, rtr, registry, sessions, historyStore, compressor, factStore, extractor, cfg, logger)
	return a, historyStore, factStore
}

func TestHandleMessagePersistsTurn(t *testing.T) {
	client := &scriptedClient{steps: []scriptStep{textStep("Hi Alice.")}}
	a, historyStore, _ := newTestAssistant(t, client, AssistantConfig{})

	answer, err := a.HandleMessage(context.Background(), "alice", false, "hello there")
	if err != nil {
		t.Fatalf("HandleMessage: %v", err)
	}
	if answer != "Hi Alice." {
		t.Errorf("answer = %q", answer)
	}

	turns, err := historyStore.Recent(context.Background(), "alice", 10)
	if err != nil {
		t.Fatalf("Recent: %v", err)
	}
	if len(turns) != 2 {
		t.Fatalf("expected 2 stored turns, got %d", len(turns))
	}
	if turns[0].Role != "user" || turns[0].Content != "hello there" {
		t.Errorf("first turn = %+v", turns[0])
	}
	if turns[1].Role != "assistant" || turns[1].Content != "Hi Alice." {
		t.Errorf("second turn = %+v", turns[1])
	}
}

func TestHandleMessageIncludesKnownFacts(t *testing.T) {
	client := &scriptedClient{steps: []scriptStep{textStep("Noted.")}}
	a, _, factStore := newTestAssistant(t, client, AssistantConfig{})

	if err := factStore.Upsert(context.Background(), "alice", "favorite_color", "blue"); err != nil {
		t.Fatal(err)
	}

	if _, err := a.HandleMessage(context.Background(), "alice", false, "hello there"); err != nil {
		t.Fatalf("HandleMessage: %v", err)
	}

	system := client.calls[0].messages[0]
	if system.Role != "system" {
		t.Fatalf("first message role = %q", system.Role)
	}
	if !strings.Contains(system.Content, "favorite_color") || !strings.Contains(system.Content, "blue") {
		t.Errorf("system prompt missing stored fact: %q", system.Content)
	}
}

func TestHandleMessageRoutesByComplexity(t *testing.T) {
	client := &scriptedClient{steps: []scriptStep{textStep("ok"), textStep("ok")}}
	a, _, _ := newTestAssistant(t, client, AssistantConfig{})

	if _, err := a.HandleMessage(context.Background(), "alice", false, "hello there"); err != nil {
		t.Fatalf("HandleMessage: %v", err)
	}
	if got := client.calls[0].model; got != "claude-haiku" {
		t.Errorf("simple message model = %q, want fast tier", got)
	}

	if _, err := a.HandleMessage(context.Background(), "alice", false, "fetch the report and then summarize all sections step by step"); err != nil {
		t.Fatalf("HandleMessage: %v", err)
	}
	if got := client.calls[1].model; got != "claude-sonnet" {
		t.Errorf("multi-step message model = %q, want complex tier", got)
	}
}

func TestHandleMessageAdminFromConfig(t *testing.T) {
	client := &scriptedClient{steps: []scriptStep{textStep("ok")}}
	a, _, _ := newTestAssistant(t, client, AssistantConfig{AdminIDs: []string{"root-caller"}})

	if _, err := a.HandleMessage(context.Background(), "root-caller", false, "hello there"); err != nil {
		t.Fatalf("HandleMessage: %v", err)
	}

	system := client.calls[0].messages[0].Content
	if !strings.Contains(system, "administrator") {
		t.Errorf("admin caller should get the admin prompt section: %q", system)
	}
}

// supersedeClient blocks its first call until the context is cancelled
// and answers the second immediately.
type supersedeClient struct {
	mu      sync.Mutex
	calls   int
	started chan struct{}
}

func (c *supersedeClient) Chat(ctx context.Context, model string, messages []llm.Message, toolSpecs []map[string]any) (*llm.ChatResponse, error) {
	c.mu.Lock()
	c.calls++
	n := c.calls
	c.mu.Unlock()

	if n == 1 {
		close(c.started)
		<-ctx.Done()
		return nil, ctx.Err()
	}
	return &llm.ChatResponse{Message: llm.Message{Role: "assistant", Content: "second answer"}}, nil
}

func (c *supersedeClient) Ping(ctx context.Context) error { return nil }

func TestNewMessageSupersedesInFlightRun(t *testing.T) {
	client := &supersedeClient{started: make(chan struct{})}
	a, _, _ := newTestAssistant(t, client, AssistantConfig{})

	firstErr := make(chan error, 1)
	go func() {
		_, err := a.HandleMessage(context.Background(), "alice", false, "first question")
		firstErr <- err
	}()

	select {
	case <-client.started:
	case <-time.After(2 * time.Second):
		t.Fatal("first run never reached the model")
	}

	answer, err := a.HandleMessage(context.Background(), "alice", false, "never mind, second question")
	if err != nil {
		t.Fatalf("second HandleMessage: %v", err)
	}
	if answer != "second answer" {
		t.Errorf("second answer = %q", answer)
	}

	select {
	case err := <-firstErr:
		if !errors.Is(err, context.Canceled) {
			t.Errorf("superseded run error = %v, want context.Canceled", err)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("superseded run never returned")
	}
}
