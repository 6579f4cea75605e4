package rag

import (
	"context"
	"errors"

	"chat-pdf/internal/models"
)

const (
	ReadyMessage      = "Ready to chat!"
	ProcessingMessage = "Processing..."
)

// WarningMessage renders a skipped source for display.
func WarningMessage(se *models.SourceError) string {
	switch {
	case errors.Is(se, models.ErrInvalidURL):
		return "Invalid PDF URL: " + se.URL
	case errors.Is(se, models.ErrExtraction):
		return "Error reading PDF from " + se.URL + ": " + se.Err.Error()
	default:
		// fetch errors already name the URL
		return se.Err.Error()
	}
}

// ErrorMessage renders an ingestion or query failure for display.
func ErrorMessage(err error) string {
	switch {
	case errors.Is(err, models.ErrNoURLs):
		return "Please provide at least one PDF URL"
	case errors.Is(err, models.ErrEmptyCorpus):
		return "Error: no text could be extracted from the provided PDFs. Please check the URLs and try again."
	case errors.Is(err, models.ErrIndexMissing):
		return "No processed PDFs yet. Enter PDF URLs and process them first."
	case errors.Is(err, context.DeadlineExceeded):
		return "Error: the request timed out"
	default:
		return "Error: " + err.Error()
	}
}
