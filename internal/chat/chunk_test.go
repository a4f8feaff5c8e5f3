package chat

import (
	"strings"
	"testing"
)

func TestChunkTextShortPassthrough(t *testing.T) {
	got := ChunkText("hello", 4096)
	if len(got) != 1 || got[0] != "hello" {
		t.Errorf("ChunkText short = %v, want single chunk", got)
	}
}

func TestChunkTextPrefersNewline(t *testing.T) {
	text := strings.Repeat("a", 50) + "\n" + strings.Repeat("b", 50)
	got := ChunkText(text, 80)
	if len(got) != 2 {
		t.Fatalf("expected 2 chunks, got %d", len(got))
	}
	if got[0] != strings.Repeat("a", 50) {
		t.Errorf("first chunk should break at the newline, got %d bytes", len(got[0]))
	}
	if got[1] != strings.Repeat("b", 50) {
		t.Errorf("second chunk = %q", got[1])
	}
}

func TestChunkTextHardSplitWithoutNewline(t *testing.T) {
	text := strings.Repeat("x", 100)
	got := ChunkText(text, 40)
	if len(got) != 3 {
		t.Fatalf("expected 3 chunks, got %d", len(got))
	}
	for i, c := range got {
		if len(c) > 40 {
			t.Errorf("chunk %d exceeds limit: %d bytes", i, len(c))
		}
	}
	if strings.Join(got, "") != text {
		t.Error("chunks do not reassemble to the original text")
	}
}

func TestChunkTextNoEmptyChunks(t *testing.T) {
	text := strings.Repeat("line\n", 100)
	for _, c := range ChunkText(text, 64) {
		if c == "" {
			t.Fatal("produced an empty chunk")
		}
		if len(c) > 64 {
			t.Fatalf("chunk exceeds limit: %d bytes", len(c))
		}
	}
}

func TestChunkTextDefaultLimit(t *testing.T) {
	text := strings.Repeat("y", MaxChunkSize+10)
	got := ChunkText(text, 0)
	if len(got) != 2 {
		t.Fatalf("expected 2 chunks with default limit, got %d", len(got))
	}
	if len(got[0]) != MaxChunkSize {
		t.Errorf("first chunk = %d bytes, want %d", len(got[0]), MaxChunkSize)
	}
}
