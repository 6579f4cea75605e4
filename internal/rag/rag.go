package rag

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/rs/zerolog/log"
	"github.com/tmc/langchaingo/embeddings"

	"chat-pdf/internal/config"
	"chat-pdf/internal/embedding"
	"chat-pdf/internal/fetcher"
	"chat-pdf/internal/helper"
	"chat-pdf/internal/metrics"
	"chat-pdf/internal/models"
	"chat-pdf/internal/parser"
)

// VectorIndex is a similarity index that is replaced wholesale on every
// ingestion. Implemented by chromemdb.VectorDBManager and db.Store.
type VectorIndex interface {
	Replace(ctx context.Context, manifest models.IndexManifest, docs []models.ChunkEmbedding) error
	Manifest(ctx context.Context) (*models.IndexManifest, error)
	Search(ctx context.Context, embedding []float32, k int) ([]models.SearchResult, error)
}

type PDFFetcher interface {
	Fetch(ctx context.Context, url string) ([]byte, error)
}

// Answerer turns retrieved context and a question into an answer.
type Answerer interface {
	Answer(ctx context.Context, contexts []string, question string) (string, error)
}

// IngestReport summarizes one ingestion run. Warnings lists every URL that was
// skipped, each wrapping ErrInvalidURL, ErrFetch or ErrExtraction.
type IngestReport struct {
	BuildID   string
	Documents int
	Chunks    int
	Warnings  []*models.SourceError
}

type RAG struct {
	ingestMu sync.Mutex
	indexMu  sync.RWMutex

	fetcher  PDFFetcher
	chunker  *parser.Chunker
	embedder embeddings.Embedder
	index    VectorIndex
	answerer Answerer
	cfg      *config.Config
	now      func() time.Time
}

func NewRAG(cfg *config.Config, fetcher PDFFetcher, embedder embeddings.Embedder, index VectorIndex, answerer Answerer) *RAG {
	return &RAG{
		fetcher:  fetcher,
		chunker:  parser.NewChunker(cfg.RAG.ChunkSize, cfg.RAG.ChunkOverlap),
		embedder: embedder,
		index:    index,
		answerer: answerer,
		cfg:      cfg,
		now:      time.Now,
	}
}

// Ingest downloads every valid URL, extracts and chunks the combined text,
// embeds the chunks and replaces the published index. Per-URL problems end up
// in the report; the index is only touched when at least one chunk was
// embedded successfully. Concurrent calls are serialized.
func (r *RAG) Ingest(ctx context.Context, urls []string) (report *IngestReport, err error) {
	r.ingestMu.Lock()
	defer r.ingestMu.Unlock()

	start := time.Now()
	defer func() {
		status := "ok"
		if err != nil {
			status = "error"
		}
		metrics.IngestTotal.WithLabelValues(status).Inc()
		metrics.IngestDuration.Observe(time.Since(start).Seconds())
	}()

	report = &IngestReport{}
	if len(urls) == 0 {
		return report, models.ErrNoURLs
	}

	var text strings.Builder
	var sources []string
	for _, url := range urls {
		if err := ctx.Err(); err != nil {
			return report, err
		}
		url = strings.TrimSpace(url)

		docText, err := r.loadDocument(ctx, url)
		if err != nil {
			log.Warn().Err(err).Str("url", url).Msg("Skipping PDF")
			report.Warnings = append(report.Warnings, &models.SourceError{URL: url, Err: err})
			continue
		}
		text.WriteString(docText)
		sources = append(sources, url)
		report.Documents++
	}

	raw := text.String()
	if strings.TrimSpace(raw) == "" {
		return report, models.ErrEmptyCorpus
	}

	chunks, err := r.chunker.Split(raw)
	if err != nil {
		return report, fmt.Errorf("failed to split text: %w", err)
	}
	log.Info().Int("documents", report.Documents).Int("chunks", len(chunks)).Msg("Split text into chunks")

	chunkEmbeddings, err := embedding.GenerateEmbeddings(ctx, r.embedder, chunks)
	if err != nil {
		return report, err
	}

	buildID, err := helper.NewBuildID(r.now())
	if err != nil {
		return report, err
	}
	manifest := models.IndexManifest{
		BuildID:           buildID,
		CreatedAt:         r.now().UTC(),
		EmbeddingProvider: r.cfg.EmbedLLM.Provider,
		EmbeddingModel:    r.cfg.EmbedLLM.Model,
		Chunks:            len(chunkEmbeddings),
		Sources:           sources,
	}

	r.indexMu.Lock()
	err = r.index.Replace(ctx, manifest, chunkEmbeddings)
	r.indexMu.Unlock()
	if err != nil {
		return report, fmt.Errorf("failed to publish index: %w", err)
	}

	report.BuildID = buildID
	report.Chunks = len(chunkEmbeddings)
	metrics.IndexedChunks.Set(float64(report.Chunks))
	log.Info().Str("build_id", buildID).Int("chunks", report.Chunks).Msg("Index published")
	return report, nil
}

func (r *RAG) loadDocument(ctx context.Context, url string) (string, error) {
	if !fetcher.IsValidPDFURL(url) {
		metrics.SourcesTotal.WithLabelValues("invalid_url").Inc()
		return "", models.ErrInvalidURL
	}

	content, err := r.fetcher.Fetch(ctx, url)
	if err != nil {
		metrics.SourcesTotal.WithLabelValues("fetch_failed").Inc()
		return "", err
	}

	text, err := parser.ExtractText(content)
	if err != nil {
		metrics.SourcesTotal.WithLabelValues("extraction_failed").Inc()
		return "", err
	}
	if strings.TrimSpace(text) == "" {
		log.Warn().Str("url", url).Msg("PDF has no extractable text")
	}
	metrics.SourcesTotal.WithLabelValues("ok").Inc()
	return text, nil
}

// Query answers question from the top-k chunks of the published index.
func (r *RAG) Query(ctx context.Context, question string) (response *models.PromptResponse, err error) {
	start := time.Now()
	defer func() {
		status := "ok"
		switch {
		case errors.Is(err, models.ErrIndexMissing):
			status = "index_missing"
		case err != nil:
			status = "error"
		}
		metrics.QuestionsTotal.WithLabelValues(status).Inc()
		metrics.QuestionDuration.Observe(time.Since(start).Seconds())
	}()

	question = strings.TrimSpace(question)
	if question == "" {
		return nil, models.ErrEmptyQuestion
	}

	r.indexMu.RLock()
	docs, err := r.retrieve(ctx, question)
	r.indexMu.RUnlock()
	if err != nil {
		return nil, err
	}

	contexts := make([]string, len(docs))
	for i, doc := range docs {
		contexts[i] = doc.Content
	}
	answer, err := r.answerer.Answer(ctx, contexts, question)
	if err != nil {
		return nil, err
	}

	log.Debug().Str("question", question).Int("sources", len(docs)).Msg("Answered question")
	return &models.PromptResponse{Query: question, Sources: docs, Content: answer}, nil
}

func (r *RAG) retrieve(ctx context.Context, question string) ([]models.SearchResult, error) {
	manifest, err := r.index.Manifest(ctx)
	if err != nil {
		return nil, err
	}
	if manifest.EmbeddingProvider != r.cfg.EmbedLLM.Provider || manifest.EmbeddingModel != r.cfg.EmbedLLM.Model {
		return nil, fmt.Errorf("%w: index uses %s/%s, configured %s/%s", models.ErrEmbeddingMismatch,
			manifest.EmbeddingProvider, manifest.EmbeddingModel, r.cfg.EmbedLLM.Provider, r.cfg.EmbedLLM.Model)
	}

	queryEmbedding, err := embedding.EmbedQuestion(ctx, r.embedder, question)
	if err != nil {
		return nil, err
	}
	return r.index.Search(ctx, queryEmbedding, r.cfg.RAG.TopK)
}

// Manifest describes the published index.
func (r *RAG) Manifest(ctx context.Context) (*models.IndexManifest, error) {
	r.indexMu.RLock()
	defer r.indexMu.RUnlock()
	return r.index.Manifest(ctx)
}
