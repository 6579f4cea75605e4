package rag

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"testing"

	"chat-pdf/internal/models"
)

func TestWarningMessage(t *testing.T) {
	tests := []struct {
		err  *models.SourceError
		want string
	}{
		{&models.SourceError{URL: "http://x/a.pdf", Err: models.ErrInvalidURL}, "Invalid PDF URL: http://x/a.pdf"},
		{
			&models.SourceError{URL: "https://x/a.pdf", Err: fmt.Errorf("%w from https://x/a.pdf: 404 Not Found", models.ErrFetch)},
			"error downloading PDF from https://x/a.pdf: 404 Not Found",
		},
		{
			&models.SourceError{URL: "https://x/b.pdf", Err: fmt.Errorf("%w: bad xref", models.ErrExtraction)},
			"Error reading PDF from https://x/b.pdf: error extracting PDF text: bad xref",
		},
	}
	for _, tt := range tests {
		if got := WarningMessage(tt.err); got != tt.want {
			t.Errorf("WarningMessage(%v) = %q, want %q", tt.err, got, tt.want)
		}
	}
}

func TestErrorMessage(t *testing.T) {
	tests := []struct {
		err  error
		want string
	}{
		{models.ErrNoURLs, "Please provide at least one PDF URL"},
		{models.ErrEmptyCorpus, "no text could be extracted"},
		{fmt.Errorf("wrapped: %w", models.ErrIndexMissing), "process them first"},
		{context.DeadlineExceeded, "timed out"},
		{errors.New("boom"), "Error: boom"},
	}
	for _, tt := range tests {
		if got := ErrorMessage(tt.err); !strings.Contains(got, tt.want) {
			t.Errorf("ErrorMessage(%v) = %q, want it to contain %q", tt.err, got, tt.want)
		}
	}
}
