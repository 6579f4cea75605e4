package embedding

import (
	"context"
	"fmt"
	"strings"

	"github.com/rs/zerolog/log"
	"github.com/tmc/langchaingo/embeddings"
	"github.com/tmc/langchaingo/llms/googleai"
	"github.com/tmc/langchaingo/llms/ollama"
	"github.com/tmc/langchaingo/llms/openai"

	"chat-pdf/internal/config"
	"chat-pdf/internal/models"
)

// NewEmbedder creates the embedder for the configured provider. The same
// configuration must be used at index-build and query time.
func NewEmbedder(ctx context.Context, llmConfig *config.LLMConfig) (*embeddings.EmbedderImpl, error) {
	log.Debug().Interface("config", map[string]string{
		"provider":        llmConfig.Provider,
		"base_url":        llmConfig.BaseURL,
		"embedding_model": llmConfig.Model,
	}).Msg("Creating embedder")

	var (
		client embeddings.EmbedderClient
		err    error
	)
	switch llmConfig.Provider {
	case config.ProviderGoogleAI:
		client, err = googleai.New(ctx,
			googleai.WithAPIKey(llmConfig.Key),
			googleai.WithDefaultEmbeddingModel(llmConfig.Model),
		)
	case config.ProviderOpenAI:
		opts := []openai.Option{
			openai.WithToken(strings.TrimPrefix(llmConfig.Key, "Bearer ")),
			openai.WithEmbeddingModel(llmConfig.Model),
		}
		if llmConfig.BaseURL != "" {
			opts = append(opts, openai.WithBaseURL(llmConfig.BaseURL))
		}
		client, err = openai.New(opts...)
	case config.ProviderOllama:
		opts := []ollama.Option{ollama.WithModel(llmConfig.Model)}
		if llmConfig.BaseURL != "" {
			opts = append(opts, ollama.WithServerURL(llmConfig.BaseURL))
		}
		client, err = ollama.New(opts...)
	default:
		return nil, fmt.Errorf("unknown embedding provider %q", llmConfig.Provider)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to initialize %s embedding client: %w", llmConfig.Provider, err)
	}

	batchSize := llmConfig.BatchSize
	if batchSize <= 0 {
		batchSize = 100
	}
	return embeddings.NewEmbedder(client, embeddings.WithBatchSize(batchSize))
}

// GenerateEmbeddings embeds all chunks with batched requests. Any remote
// failure wraps models.ErrRemoteService.
func GenerateEmbeddings(ctx context.Context, embedder embeddings.Embedder, chunks []models.Chunk) ([]models.ChunkEmbedding, error) {
	if len(chunks) == 0 {
		log.Info().Msg("No chunks to embed")
		return nil, nil
	}

	texts := make([]string, len(chunks))
	for i, chunk := range chunks {
		texts[i] = chunk.Content
	}

	vectors, err := embedder.EmbedDocuments(ctx, texts)
	if err != nil {
		return nil, fmt.Errorf("%w: embedding chunks: %v", models.ErrRemoteService, err)
	}
	if len(vectors) != len(chunks) {
		return nil, fmt.Errorf("%w: embedding service returned %d vectors for %d chunks",
			models.ErrRemoteService, len(vectors), len(chunks))
	}

	chunkEmbeddings := make([]models.ChunkEmbedding, len(chunks))
	for i, chunk := range chunks {
		if len(vectors[i]) == 0 {
			return nil, fmt.Errorf("%w: empty embedding for chunk %d", models.ErrRemoteService, chunk.ChunkID)
		}
		chunkEmbeddings[i] = models.ChunkEmbedding{
			Content:   chunk.Content,
			Embedding: vectors[i],
			ChunkID:   chunk.ChunkID,
		}
	}
	return chunkEmbeddings, nil
}

// EmbedQuestion embeds a single query string.
func EmbedQuestion(ctx context.Context, embedder embeddings.Embedder, question string) ([]float32, error) {
	vector, err := embedder.EmbedQuery(ctx, question)
	if err != nil {
		return nil, fmt.Errorf("%w: embedding question: %v", models.ErrRemoteService, err)
	}
	if len(vector) == 0 {
		return nil, fmt.Errorf("%w: empty embedding for question", models.ErrRemoteService)
	}
	return vector, nil
}
