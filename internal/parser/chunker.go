package parser

import (
	"strings"
	"unicode/utf8"

	"github.com/tmc/langchaingo/textsplitter"

	"chat-pdf/internal/models"
)

// Chunker splits text into overlapping windows, preferring paragraph, line and
// word boundaries before cutting inside a word. Sizes count runes.
type Chunker struct {
	chunkSize    int
	chunkOverlap int
	splitter     textsplitter.RecursiveCharacter
}

func NewChunker(chunkSize, chunkOverlap int) *Chunker {
	if chunkOverlap < 0 {
		chunkOverlap = 0
	}
	if chunkOverlap >= chunkSize {
		chunkOverlap = chunkSize / 2
	}
	return &Chunker{
		chunkSize:    chunkSize,
		chunkOverlap: chunkOverlap,
		splitter: textsplitter.NewRecursiveCharacter(
			textsplitter.WithChunkSize(chunkSize),
			textsplitter.WithChunkOverlap(chunkOverlap),
			textsplitter.WithSeparators([]string{"\n\n", "\n", " ", ""}),
		),
	}
}

// Split returns the ordered chunks of text. ChunkID is 1-based.
func (c *Chunker) Split(text string) ([]models.Chunk, error) {
	text = strings.TrimSpace(text)
	if text == "" {
		return nil, nil
	}

	// If content fits, return it as a single chunk
	if utf8.RuneCountInString(text) <= c.chunkSize {
		return []models.Chunk{{Content: text, ChunkID: 1}}, nil
	}

	parts, err := c.splitter.SplitText(text)
	if err != nil {
		return nil, err
	}
	chunks := make([]models.Chunk, 0, len(parts))
	for _, p := range parts {
		if strings.TrimSpace(p) == "" {
			continue
		}
		chunks = append(chunks, models.Chunk{Content: p, ChunkID: len(chunks) + 1})
	}
	return chunks, nil
}
