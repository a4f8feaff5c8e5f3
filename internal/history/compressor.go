package history

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"github.com/hollis/valet/internal/llm"
	"github.com/hollis/valet/internal/prompts"
)

const summaryPrefix = "[Memory summary] "

// summaryFallback stands in when the summarization call fails. The
// recent turns still go through verbatim, so losing the digest only
// costs older context.
const summaryFallback = "Earlier conversation history was condensed and is unavailable."

// Compressor bounds history growth by replacing older turns with a
// single model-written digest.
type Compressor struct {
	client llm.Client
	model  string
	logger *slog.Logger
}

func NewCompressor(client llm.Client, model string, logger *slog.Logger) *Compressor {
	return &Compressor{
		client: client,
		model:  model,
		logger: logger.With("component", "history"),
	}
}

// Compress returns turns suitable for the next model call. When the
// history fits within keepRecent, or the older segment is below
// threshold, everything passes through verbatim. Otherwise the older
// segment becomes one synthetic assistant message followed by the
// keepRecent most recent turns unchanged. Compression never fails:
// a summarization error degrades to a fixed placeholder.
func (c *Compressor) Compress(ctx context.Context, turns []llm.Message, keepRecent, threshold int) []llm.Message {
	if len(turns) <= keepRecent {
		return turns
	}

	older := turns[:len(turns)-keepRecent]
	recent := turns[len(turns)-keepRecent:]
	if len(older) < threshold {
		return turns
	}

	summary := c.summarize(ctx, older)

	out := make([]llm.Message, 0, len(recent)+1)
	out = append(out, llm.Message{
		Role:    "assistant",
		Content: summaryPrefix + summary,
	})
	out = append(out, recent...)

	c.logger.Debug("compressed history",
		"older_turns", len(older),
		"recent_turns", len(recent))
	return out
}

func (c *Compressor) summarize(ctx context.Context, older []llm.Message) string {
	var sb strings.Builder
	for _, m := range older {
		fmt.Fprintf(&sb, "%s: %s\n", m.Role, m.Content)
	}

	resp, err := c.client.Chat(ctx, c.model, []llm.Message{
		{Role: "user", Content: prompts.SummaryPrompt(sb.String())},
	}, nil)
	if err != nil {
		c.logger.Warn("history summarization failed", "error", err)
		return summaryFallback
	}
	text := strings.TrimSpace(resp.Message.Content)
	if text == "" {
		return summaryFallback
	}
	return text
}
