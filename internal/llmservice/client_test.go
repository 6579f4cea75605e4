package llmservice

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/tmc/langchaingo/llms"

	"chat-pdf/internal/config"
	"chat-pdf/internal/models"
)

// recordingLLM captures the last prompt and call options.
type recordingLLM struct {
	reply  string
	err    error
	prompt string
	opts   llms.CallOptions
}

func (r *recordingLLM) GenerateContent(_ context.Context, messages []llms.MessageContent, options ...llms.CallOption) (*llms.ContentResponse, error) {
	for _, opt := range options {
		opt(&r.opts)
	}
	var b strings.Builder
	for _, m := range messages {
		for _, p := range m.Parts {
			if tc, ok := p.(llms.TextContent); ok {
				b.WriteString(tc.Text)
			}
		}
	}
	r.prompt = b.String()
	if r.err != nil {
		return nil, r.err
	}
	return &llms.ContentResponse{Choices: []*llms.ContentChoice{{Content: r.reply}}}, nil
}

func (r *recordingLLM) Call(ctx context.Context, prompt string, options ...llms.CallOption) (string, error) {
	return llms.GenerateFromSinglePrompt(ctx, r, prompt, options...)
}

func TestQAChain_Answer(t *testing.T) {
	llm := &recordingLLM{reply: "  The sky is blue.\n"}
	chain := NewQAChain(llm, 0.3)

	got, err := chain.Answer(context.Background(), []string{"The sky is blue.", "Grass is green."}, "What color is the sky?")
	if err != nil {
		t.Fatalf("Answer: %v", err)
	}
	if got != "The sky is blue." {
		t.Errorf("answer: got %q", got)
	}
	for _, want := range []string{
		"The sky is blue.\n\nGrass is green.",
		"What color is the sky?",
		models.NotInContextAnswer,
	} {
		if !strings.Contains(llm.prompt, want) {
			t.Errorf("prompt missing %q:\n%s", want, llm.prompt)
		}
	}
	if llm.opts.Temperature != 0.3 {
		t.Errorf("temperature: got %v", llm.opts.Temperature)
	}
}

func TestQAChain_EmptyContext(t *testing.T) {
	llm := &recordingLLM{reply: models.NotInContextAnswer}
	got, err := NewQAChain(llm, 0.3).Answer(context.Background(), nil, "Anything?")
	if err != nil {
		t.Fatalf("Answer: %v", err)
	}
	if got != models.NotInContextAnswer {
		t.Errorf("got %q", got)
	}
}

func TestQAChain_RemoteError(t *testing.T) {
	llm := &recordingLLM{err: errors.New("quota exceeded")}
	_, err := NewQAChain(llm, 0.3).Answer(context.Background(), []string{"ctx"}, "q")
	if !errors.Is(err, models.ErrRemoteService) {
		t.Fatalf("expected ErrRemoteService, got %v", err)
	}
	if !strings.Contains(err.Error(), "quota exceeded") {
		t.Errorf("underlying message lost: %v", err)
	}
}

func TestNewModel_UnknownProvider(t *testing.T) {
	if _, err := NewModel(context.Background(), &config.LLMConfig{Provider: "nope"}); err == nil {
		t.Fatal("expected error")
	}
}
