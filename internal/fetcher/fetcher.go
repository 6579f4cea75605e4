// Package fetcher validates PDF URLs and downloads their content.
package fetcher

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"regexp"
	"strings"
	"time"

	"github.com/rs/zerolog/log"

	"chat-pdf/internal/config"
	"chat-pdf/internal/models"
)

var pdfURLRe = regexp.MustCompile(models.PDFURLRegex)

// IsValidPDFURL reports whether raw is an https URL pointing to a .pdf file.
func IsValidPDFURL(raw string) bool {
	return pdfURLRe.MatchString(strings.TrimSpace(raw))
}

// ParseURLList splits a multi-line input into trimmed, non-empty lines.
func ParseURLList(input string) []string {
	var urls []string
	for _, line := range strings.Split(input, "\n") {
		if u := strings.TrimSpace(line); u != "" {
			urls = append(urls, u)
		}
	}
	return urls
}

// Fetcher downloads PDF bytes over HTTP.
type Fetcher struct {
	client    *http.Client
	maxBytes  int64
	userAgent string
}

// NewFetcher builds a Fetcher from cfg. A nil client gets a fresh one; the
// configured timeout always applies.
func NewFetcher(cfg config.FetchConfig, client *http.Client) *Fetcher {
	if client == nil {
		client = &http.Client{}
	}
	c := *client
	c.Timeout = cfg.Timeout
	if c.Timeout == 0 {
		c.Timeout = 10 * time.Second
	}
	return &Fetcher{client: &c, maxBytes: cfg.MaxBytes, userAgent: cfg.UserAgent}
}

// Fetch performs a single GET. Every failure wraps models.ErrFetch.
func (f *Fetcher) Fetch(ctx context.Context, url string) ([]byte, error) {
	url = strings.TrimSpace(url)
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, fmt.Errorf("%w from %s: %v", models.ErrFetch, url, err)
	}
	if f.userAgent != "" {
		req.Header.Set("User-Agent", f.userAgent)
	}

	start := time.Now()
	resp, err := f.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%w from %s: %v", models.ErrFetch, url, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return nil, fmt.Errorf("%w from %s: %s", models.ErrFetch, url, resp.Status)
	}

	body := io.Reader(resp.Body)
	if f.maxBytes > 0 {
		body = io.LimitReader(resp.Body, f.maxBytes+1)
	}
	data, err := io.ReadAll(body)
	if err != nil {
		return nil, fmt.Errorf("%w from %s: %v", models.ErrFetch, url, err)
	}
	if f.maxBytes > 0 && int64(len(data)) > f.maxBytes {
		return nil, fmt.Errorf("%w from %s: body exceeds %d bytes", models.ErrFetch, url, f.maxBytes)
	}

	log.Debug().Str("url", url).Int("bytes", len(data)).Dur("took", time.Since(start)).Msg("Downloaded PDF")
	return data, nil
}
