package llm

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
)

func TestConvertToAnthropic(t *testing.T) {
	messages := []Message{
		{Role: "system", Content: "You are a helpful assistant."},
		{Role: "user", Content: "Hello!"},
		{Role: "assistant", Content: "Hi there!"},
		{Role: "user", Content: "Fetch the weather page."},
	}

	result, system := convertToAnthropic(messages)

	if system != "You are a helpful assistant." {
		t.Errorf("expected system prompt extracted, got %q", system)
	}

	if len(result) != 3 {
		t.Fatalf("expected 3 messages (no system), got %d", len(result))
	}

	if result[0].Role != "user" {
		t.Errorf("expected first message to be user, got %s", result[0].Role)
	}
}

func TestConvertToAnthropicWithToolCalls(t *testing.T) {
	messages := []Message{
		{Role: "system", Content: "You are a personal assistant."},
		{Role: "user", Content: "Read my notes file."},
		{
			Role: "assistant",
			ToolCalls: []ToolCall{{
				ID:        "toolu_abc123",
				Name:      "read_file",
				Arguments: `{"path":"notes/todo.txt"}`,
			}},
		},
		{Role: "tool", Content: "buy milk", ToolCallID: "toolu_abc123"},
	}

	result, system := convertToAnthropic(messages)

	if system != "You are a personal assistant." {
		t.Errorf("unexpected system: %q", system)
	}

	if len(result) != 3 { // user, assistant with tool_use, user with tool_result
		t.Fatalf("expected 3 messages, got %d", len(result))
	}

	// Check assistant message has tool_use blocks
	assistantContent, ok := result[1].Content.([]anthropicContent)
	if !ok {
		t.Fatal("expected assistant content to be []anthropicContent")
	}
	if len(assistantContent) != 1 {
		t.Fatalf("expected 1 content block, got %d", len(assistantContent))
	}
	if assistantContent[0].Type != "tool_use" {
		t.Errorf("expected tool_use block, got %s", assistantContent[0].Type)
	}
	if assistantContent[0].ID != "toolu_abc123" {
		t.Errorf("expected tool_use ID toolu_abc123, got %s", assistantContent[0].ID)
	}
	if string(assistantContent[0].Input) != `{"path":"notes/todo.txt"}` {
		t.Errorf("unexpected tool_use input: %s", assistantContent[0].Input)
	}

	// Check tool result
	toolResultContent, ok := result[2].Content.([]anthropicContent)
	if !ok {
		t.Fatal("expected tool result content to be []anthropicContent")
	}
	if toolResultContent[0].Type != "tool_result" {
		t.Errorf("expected tool_result, got %s", toolResultContent[0].Type)
	}
	if toolResultContent[0].ToolUseID != "toolu_abc123" {
		t.Errorf("expected tool_use_id toolu_abc123, got %s", toolResultContent[0].ToolUseID)
	}
}

func TestConvertToAnthropic_MalformedArgumentsReplaced(t *testing.T) {
	messages := []Message{
		{
			Role: "assistant",
			ToolCalls: []ToolCall{{
				Name:      "shell_exec",
				Arguments: `{"command": truncated`,
			}},
		},
	}

	result, _ := convertToAnthropic(messages)
	blocks := result[0].Content.([]anthropicContent)
	if string(blocks[0].Input) != `{}` {
		t.Errorf("expected invalid arguments replaced with {}, got %s", blocks[0].Input)
	}
	if blocks[0].ID == "" {
		t.Error("expected a synthesized tool_use ID for empty ID")
	}
}

func TestConvertToolsToAnthropic(t *testing.T) {
	tools := []map[string]any{
		{
			"type": "function",
			"function": map[string]any{
				"name":        "web_fetch",
				"description": "Fetch a web page",
				"parameters": map[string]any{
					"type": "object",
					"properties": map[string]any{
						"url": map[string]any{
							"type":        "string",
							"description": "The URL to fetch",
						},
					},
					"required": []string{"url"},
				},
			},
		},
	}

	result := convertToolsToAnthropic(tools)
	if len(result) != 1 {
		t.Fatalf("expected 1 tool, got %d", len(result))
	}
	if result[0].Name != "web_fetch" {
		t.Errorf("expected tool name web_fetch, got %s", result[0].Name)
	}
	if result[0].Description != "Fetch a web page" {
		t.Errorf("expected description, got %s", result[0].Description)
	}
}

func TestConvertFromAnthropic(t *testing.T) {
	resp := &anthropicResponse{
		Model: "claude-sonnet-4-20250514",
		Role:  "assistant",
		Content: []anthropicContent{
			{Type: "text", Text: "I'll check that for you."},
			{
				Type:  "tool_use",
				ID:    "toolu_xyz789",
				Name:  "web_fetch",
				Input: json.RawMessage(`{"url":"https://example.com"}`),
			},
		},
		StopReason: "tool_use",
	}

	result := convertFromAnthropic(resp)

	if result.Message.Content != "I'll check that for you." {
		t.Errorf("unexpected content: %q", result.Message.Content)
	}
	if len(result.Message.ToolCalls) != 1 {
		t.Fatalf("expected 1 tool call, got %d", len(result.Message.ToolCalls))
	}
	tc := result.Message.ToolCalls[0]
	if tc.ID != "toolu_xyz789" {
		t.Errorf("expected tool call ID toolu_xyz789, got %s", tc.ID)
	}
	if tc.Name != "web_fetch" {
		t.Errorf("expected web_fetch, got %s", tc.Name)
	}
	if tc.Arguments != `{"url":"https://example.com"}` {
		t.Errorf("expected raw arguments preserved, got %s", tc.Arguments)
	}
}

func TestConvertFromAnthropic_EmptyToolInput(t *testing.T) {
	resp := &anthropicResponse{
		Role: "assistant",
		Content: []anthropicContent{
			{Type: "tool_use", ID: "toolu_1", Name: "list_capabilities"},
		},
	}

	result := convertFromAnthropic(resp)
	if got := result.Message.ToolCalls[0].Arguments; got != "{}" {
		t.Errorf("expected empty input to become {}, got %q", got)
	}
}

func TestAnthropicClientImplementsInterface(t *testing.T) {
	var _ Client = (*AnthropicClient)(nil)
}

func TestAnthropicChat_APIError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadRequest)
		w.Write([]byte(`{"error":{"message":"tools are not supported by this model"}}`))
	}))
	defer srv.Close()

	c := NewAnthropicClient("test-key", nil)
	c.SetBaseURL(srv.URL)

	_, err := c.Chat(context.Background(), "test-model", []Message{{Role: "user", Content: "hi"}}, nil)
	if err == nil {
		t.Fatal("expected error")
	}
	var apiErr *APIError
	if !errors.As(err, &apiErr) {
		t.Fatalf("expected *APIError, got %T: %v", err, err)
	}
	if apiErr.Status != http.StatusBadRequest {
		t.Errorf("expected status 400, got %d", apiErr.Status)
	}
}

func TestAnthropicChat_Success(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if got := r.Header.Get("anthropic-version"); got != anthropicAPIVersion {
			t.Errorf("missing anthropic-version header, got %q", got)
		}
		json.NewEncoder(w).Encode(anthropicResponse{
			Model: "test-model",
			Role:  "assistant",
			Content: []anthropicContent{
				{Type: "text", Text: "hello"},
			},
			Usage: anthropicUsage{InputTokens: 12, OutputTokens: 3},
		})
	}))
	defer srv.Close()

	c := NewAnthropicClient("test-key", nil)
	c.SetBaseURL(srv.URL)

	resp, err := c.Chat(context.Background(), "test-model", []Message{{Role: "user", Content: "hi"}}, nil)
	if err != nil {
		t.Fatal(err)
	}
	if resp.Message.Content != "hello" {
		t.Errorf("unexpected content: %q", resp.Message.Content)
	}
	if resp.InputTokens != 12 || resp.OutputTokens != 3 {
		t.Errorf("unexpected usage: %d/%d", resp.InputTokens, resp.OutputTokens)
	}
}

func TestAnthropicRequestSerialization(t *testing.T) {
	req := anthropicRequest{
		Model:     "claude-sonnet-4-20250514",
		Messages:  []anthropicMessage{{Role: "user", Content: "test"}},
		System:    "You are helpful.",
		MaxTokens: 4096,
		Tools: []anthropicTool{{
			Name:        "test_tool",
			Description: "A test tool",
			InputSchema: map[string]any{"type": "object"},
		}},
	}

	data, err := json.Marshal(req)
	if err != nil {
		t.Fatal(err)
	}

	// Verify it deserializes back
	var decoded anthropicRequest
	if err := json.Unmarshal(data, &decoded); err != nil {
		t.Fatal(err)
	}
	if decoded.Model != req.Model {
		t.Errorf("model mismatch: %s vs %s", decoded.Model, req.Model)
	}
	if decoded.System != req.System {
		t.Errorf("system mismatch: %s vs %s", decoded.System, req.System)
	}
}
