package models

import "time"

// Chunk represents a piece of extracted text with its position in the corpus
type Chunk struct {
	Content string
	ChunkID int
}

// ChunkEmbedding is a chunk paired with the vector computed for it
type ChunkEmbedding struct {
	Content   string
	Embedding []float32
	ChunkID   int
}

// SearchResult is a chunk returned by a similarity search
type SearchResult struct {
	Content    string
	ChunkID    int
	Similarity float32
}

type PromptResponse struct {
	Query   string
	Sources []SearchResult
	Content string
}

// IndexManifest describes the index currently published on disk.
type IndexManifest struct {
	BuildID           string    `yaml:"build_id"`
	CreatedAt         time.Time `yaml:"created_at"`
	EmbeddingProvider string    `yaml:"embedding_provider"`
	EmbeddingModel    string    `yaml:"embedding_model"`
	Collection        string    `yaml:"collection"`
	Chunks            int       `yaml:"chunks"`
	Sources           []string  `yaml:"sources"`
}
