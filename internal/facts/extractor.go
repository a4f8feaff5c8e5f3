package facts

import (
	"context"
	"encoding/json"
	"log/slog"
	"regexp"
	"strings"

	"github.com/tidwall/gjson"

	"github.com/hollis/valet/internal/llm"
	"github.com/hollis/valet/internal/prompts"
)

// Fact is a sanitized key/value pair extracted from a conversation.
type Fact struct {
	Key   string `json:"key"`
	Value string `json:"value"`
}

const maxFactValueLen = 200

var factKeyRe = regexp.MustCompile(`^[a-z_][a-z0-9_]*$`)

// Extracted facts are reinjected verbatim into future system prompts,
// so candidates carrying instruction-like text are dropped outright.
var injectionPhrases = []string{
	"ignore previous instructions",
	"ignore all previous",
	"disregard prior",
	"disregard previous",
	"forget your instructions",
	"you are now",
	"new instructions",
	"system:",
	"assistant:",
	"<system>",
	"do not follow",
	"override your",
}

// Extractor pulls durable user facts out of a completed exchange via a
// dedicated model call. Everything here is best-effort: any failure
// yields zero facts, never an error surfaced to the user.
type Extractor struct {
	client llm.Client
	model  string
	store  *Store
	logger *slog.Logger
}

func NewExtractor(client llm.Client, model string, store *Store, logger *slog.Logger) *Extractor {
	return &Extractor{
		client: client,
		model:  model,
		store:  store,
		logger: logger.With("component", "facts"),
	}
}

// Extract asks the model for durable facts in the exchange and returns
// the sanitized survivors.
func (e *Extractor) Extract(ctx context.Context, userText, assistantText string) []Fact {
	prompt := prompts.FactExtractionPrompt(userText, assistantText)

	resp, err := e.client.Chat(ctx, e.model, []llm.Message{
		{Role: "user", Content: prompt},
	}, nil)
	if err != nil {
		e.logger.Debug("fact extraction call failed", "error", err)
		return nil
	}

	candidates := parseFactArray(resp.Message.Content)
	var out []Fact
	for _, c := range candidates {
		if f, ok := Sanitize(c.Key, c.Value); ok {
			out = append(out, f)
		} else {
			e.logger.Debug("dropped fact candidate", "key", c.Key)
		}
	}
	return out
}

// Process extracts facts from the exchange and stores them for the
// caller. Intended to run after the response has been delivered.
func (e *Extractor) Process(ctx context.Context, callerID, userText, assistantText string) {
	for _, f := range e.Extract(ctx, userText, assistantText) {
		if err := e.store.Upsert(ctx, callerID, f.Key, f.Value); err != nil {
			e.logger.Warn("failed to store fact", "key", f.Key, "error", err)
			continue
		}
		e.logger.Debug("learned fact", "caller", callerID, "key", f.Key)
	}
}

// Sanitize validates a candidate fact. The key must be snake_case, the
// value bounded, and the value must not look like an instruction aimed
// at the model.
func Sanitize(key, value string) (Fact, bool) {
	key = strings.TrimSpace(key)
	value = strings.TrimSpace(value)
	if !factKeyRe.MatchString(key) {
		return Fact{}, false
	}
	if value == "" || len(value) > maxFactValueLen {
		return Fact{}, false
	}
	lower := strings.ToLower(value)
	for _, phrase := range injectionPhrases {
		if strings.Contains(lower, phrase) {
			return Fact{}, false
		}
	}
	return Fact{Key: key, Value: value}, true
}

// parseFactArray decodes the model's output as a JSON array of
// {key, value} objects. Models wrap output in code fences or prose
// often enough that, when strict decoding fails, it falls back to the
// first [...] span in the text. Anything unparsable yields nil.
func parseFactArray(text string) []Fact {
	text = strings.TrimSpace(text)

	var out []Fact
	if err := json.Unmarshal([]byte(text), &out); err == nil {
		return out
	}

	start := strings.Index(text, "[")
	end := strings.LastIndex(text, "]")
	if start < 0 || end <= start {
		return nil
	}
	span := text[start : end+1]
	if !gjson.Valid(span) {
		return nil
	}

	out = nil
	for _, item := range gjson.Parse(span).Array() {
		k := item.Get("key").String()
		v := item.Get("value").String()
		if k == "" && v == "" {
			continue
		}
		out = append(out, Fact{Key: k, Value: v})
	}
	return out
}
