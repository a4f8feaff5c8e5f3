// Package chat prepares final answer text for transports with message
// size limits.
package chat

import "strings"

// MaxChunkSize is the largest message the webhook transport delivers in
// one piece.
const MaxChunkSize = 4096

// ChunkText splits text into pieces no longer than limit bytes. Each
// split prefers the last newline before the boundary so paragraphs stay
// intact; a chunk with no newline splits at the hard boundary.
func ChunkText(text string, limit int) []string {
	if limit <= 0 {
		limit = MaxChunkSize
	}
	if len(text) <= limit {
		return []string{text}
	}

	var chunks []string
	for len(text) > limit {
		cut := limit
		if i := strings.LastIndexByte(text[:limit], '\n'); i > 0 {
			cut = i
		}
		chunks = append(chunks, text[:cut])
		text = strings.TrimLeft(text[cut:], "\n")
	}
	if text != "" {
		chunks = append(chunks, text)
	}
	return chunks
}
