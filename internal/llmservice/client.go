package llmservice

import (
	"context"
	"fmt"
	"strings"

	"github.com/rs/zerolog/log"
	"github.com/tmc/langchaingo/chains"
	"github.com/tmc/langchaingo/llms"
	"github.com/tmc/langchaingo/llms/googleai"
	"github.com/tmc/langchaingo/llms/ollama"
	"github.com/tmc/langchaingo/llms/openai"
	"github.com/tmc/langchaingo/prompts"
	"github.com/tmc/langchaingo/schema"

	"chat-pdf/internal/config"
	"chat-pdf/internal/models"
)

// NewModel creates the generative model for the configured provider.
func NewModel(ctx context.Context, llmConfig *config.LLMConfig) (llms.Model, error) {
	log.Debug().Str("provider", llmConfig.Provider).Str("model", llmConfig.Model).Msg("Creating generative model")

	switch llmConfig.Provider {
	case config.ProviderGoogleAI:
		return googleai.New(ctx,
			googleai.WithAPIKey(llmConfig.Key),
			googleai.WithDefaultModel(llmConfig.Model),
		)
	case config.ProviderOpenAI:
		opts := []openai.Option{
			openai.WithToken(strings.TrimPrefix(llmConfig.Key, "Bearer ")),
			openai.WithModel(llmConfig.Model),
		}
		if llmConfig.BaseURL != "" {
			opts = append(opts, openai.WithBaseURL(llmConfig.BaseURL))
		}
		return openai.New(opts...)
	case config.ProviderOllama:
		opts := []ollama.Option{ollama.WithModel(llmConfig.Model)}
		if llmConfig.BaseURL != "" {
			opts = append(opts, ollama.WithServerURL(llmConfig.BaseURL))
		}
		return ollama.New(opts...)
	default:
		return nil, fmt.Errorf("unknown llm provider %q", llmConfig.Provider)
	}
}

// QAChain answers a question from a set of context documents with the fixed
// question-answering prompt.
type QAChain struct {
	chain       chains.StuffDocuments
	temperature float64
}

func NewQAChain(llm llms.Model, temperature float64) *QAChain {
	prompt := prompts.NewPromptTemplate(models.QAPromptTemplate, []string{"context", "question"})
	stuff := chains.NewStuffDocuments(chains.NewLLMChain(llm, prompt))
	stuff.Separator = models.ContextSeparator
	return &QAChain{chain: stuff, temperature: temperature}
}

// Answer runs the chain. Generation errors wrap models.ErrRemoteService.
func (q *QAChain) Answer(ctx context.Context, contexts []string, question string) (string, error) {
	docs := make([]schema.Document, len(contexts))
	for i, c := range contexts {
		docs[i] = schema.Document{PageContent: c}
	}

	out, err := chains.Call(ctx, q.chain, map[string]any{
		"input_documents": docs,
		"question":        question,
	}, chains.WithTemperature(q.temperature))
	if err != nil {
		return "", fmt.Errorf("%w: generating answer: %v", models.ErrRemoteService, err)
	}

	text, ok := out["text"].(string)
	if !ok {
		return "", fmt.Errorf("%w: unexpected chain output %v", models.ErrRemoteService, out)
	}
	return strings.TrimSpace(text), nil
}
