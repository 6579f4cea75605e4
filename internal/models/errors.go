package models

import "errors"

var (
	ErrInvalidURL        = errors.New("invalid PDF URL")
	ErrFetch             = errors.New("error downloading PDF")
	ErrExtraction        = errors.New("error extracting PDF text")
	ErrNoURLs            = errors.New("please provide at least one PDF URL")
	ErrEmptyCorpus       = errors.New("no text could be extracted from the provided PDFs")
	ErrEmptyQuestion     = errors.New("please enter a question")
	ErrIndexMissing      = errors.New("no index found, process PDFs first")
	ErrRemoteService     = errors.New("remote service error")
	ErrEmbeddingMismatch = errors.New("index was built with a different embedding model, process PDFs again")
)

// SourceError reports a failure tied to one PDF URL.
type SourceError struct {
	URL string
	Err error
}

func (e *SourceError) Error() string {
	return e.URL + ": " + e.Err.Error()
}

func (e *SourceError) Unwrap() error {
	return e.Err
}
