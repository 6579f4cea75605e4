package parser

import (
	"fmt"
	"reflect"
	"strings"
	"testing"
	"unicode/utf8"
)

func numberedWords(n int) string {
	words := make([]string, n)
	for i := range words {
		words[i] = fmt.Sprintf("w%05d", i)
	}
	return strings.Join(words, " ")
}

func TestChunker_ShortTextSingleChunk(t *testing.T) {
	c := NewChunker(10000, 1000)
	text := "A short document.\n\nWith two paragraphs."
	chunks, err := c.Split(text)
	if err != nil {
		t.Fatalf("Split: %v", err)
	}
	if len(chunks) != 1 {
		t.Fatalf("expected 1 chunk, got %d", len(chunks))
	}
	if chunks[0].Content != text || chunks[0].ChunkID != 1 {
		t.Errorf("got %+v", chunks[0])
	}
}

func TestChunker_Empty(t *testing.T) {
	c := NewChunker(100, 10)
	for _, text := range []string{"", "   \n\n\t"} {
		chunks, err := c.Split(text)
		if err != nil {
			t.Fatalf("Split: %v", err)
		}
		if len(chunks) != 0 {
			t.Errorf("Split(%q): expected no chunks, got %d", text, len(chunks))
		}
	}
}

func TestChunker_SizeBoundAndOverlap(t *testing.T) {
	c := NewChunker(100, 20)
	chunks, err := c.Split(numberedWords(200))
	if err != nil {
		t.Fatalf("Split: %v", err)
	}
	if len(chunks) < 2 {
		t.Fatalf("expected several chunks, got %d", len(chunks))
	}
	for i, ch := range chunks {
		if n := utf8.RuneCountInString(ch.Content); n > 100 {
			t.Errorf("chunk %d has %d runes", i, n)
		}
		if ch.ChunkID != i+1 {
			t.Errorf("chunk %d has id %d", i, ch.ChunkID)
		}
	}
	for i := 1; i < len(chunks); i++ {
		first := strings.Fields(chunks[i].Content)[0]
		if !strings.Contains(chunks[i-1].Content, first) {
			t.Errorf("chunks %d and %d share no overlap (next starts with %q)", i-1, i, first)
		}
	}
}

func TestChunker_NoWordBreaks(t *testing.T) {
	c := NewChunker(100, 20)
	chunks, err := c.Split(numberedWords(200))
	if err != nil {
		t.Fatalf("Split: %v", err)
	}
	for i, ch := range chunks {
		for _, w := range strings.Fields(ch.Content) {
			if len(w) != 6 {
				t.Errorf("chunk %d contains broken word %q", i, w)
			}
		}
	}
}

func TestChunker_Deterministic(t *testing.T) {
	text := strings.Repeat("Paragraph one has several words.\n\n", 50) + numberedWords(300)
	a, err := NewChunker(200, 40).Split(text)
	if err != nil {
		t.Fatalf("Split: %v", err)
	}
	b, err := NewChunker(200, 40).Split(text)
	if err != nil {
		t.Fatalf("Split: %v", err)
	}
	if !reflect.DeepEqual(a, b) {
		t.Error("chunking is not deterministic")
	}
}

func TestChunker_HardCutWithoutSeparators(t *testing.T) {
	c := NewChunker(50, 10)
	chunks, err := c.Split(strings.Repeat("x", 175))
	if err != nil {
		t.Fatalf("Split: %v", err)
	}
	if len(chunks) < 4 {
		t.Fatalf("expected hard cuts, got %d chunks", len(chunks))
	}
	for i, ch := range chunks {
		if n := utf8.RuneCountInString(ch.Content); n > 50 {
			t.Errorf("chunk %d has %d runes", i, n)
		}
	}
}
