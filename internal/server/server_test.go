package server

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"testing"
	"time"

	"chat-pdf/internal/config"
	"chat-pdf/internal/models"
	"chat-pdf/internal/rag"
)

type fakeService struct {
	report    *rag.IngestReport
	ingestErr error
	response  *models.PromptResponse
	queryErr  error
	urls      []string
	question  string
}

func (f *fakeService) Ingest(_ context.Context, urls []string) (*rag.IngestReport, error) {
	f.urls = urls
	return f.report, f.ingestErr
}

func (f *fakeService) Query(_ context.Context, question string) (*models.PromptResponse, error) {
	f.question = question
	return f.response, f.queryErr
}

func newTestServer(svc Service) http.Handler {
	return NewServer(svc, &config.ServerConfig{RequestTimeout: time.Minute}).Router()
}

func postJSON(t *testing.T, h http.Handler, path string, body any) *httptest.ResponseRecorder {
	t.Helper()
	b, err := json.Marshal(body)
	if err != nil {
		t.Fatal(err)
	}
	req := httptest.NewRequest(http.MethodPost, path, bytes.NewReader(b))
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	h.ServeHTTP(w, req)
	return w
}

func postForm(h http.Handler, path string, form url.Values) *httptest.ResponseRecorder {
	req := httptest.NewRequest(http.MethodPost, path, strings.NewReader(form.Encode()))
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	w := httptest.NewRecorder()
	h.ServeHTTP(w, req)
	return w
}

func TestHandleProcess(t *testing.T) {
	svc := &fakeService{report: &rag.IngestReport{
		BuildID:   "b1",
		Documents: 1,
		Chunks:    3,
		Warnings:  []*models.SourceError{{URL: "http://x/a.pdf", Err: models.ErrInvalidURL}},
	}}
	w := postJSON(t, newTestServer(svc), "/api/v1/process", processRequest{URLs: []string{"https://x/b.pdf", "http://x/a.pdf"}})

	if w.Code != http.StatusOK {
		t.Fatalf("status: got %d, body %s", w.Code, w.Body)
	}
	var resp processResponse
	if err := json.NewDecoder(w.Body).Decode(&resp); err != nil {
		t.Fatal(err)
	}
	if resp.BuildID != "b1" || resp.Chunks != 3 || resp.Message != rag.ReadyMessage {
		t.Errorf("response: %+v", resp)
	}
	if len(resp.Warnings) != 1 || resp.Warnings[0] != "Invalid PDF URL: http://x/a.pdf" {
		t.Errorf("warnings: %v", resp.Warnings)
	}
	if len(svc.urls) != 2 {
		t.Errorf("urls passed: %v", svc.urls)
	}
}

func TestHandleProcess_Errors(t *testing.T) {
	tests := []struct {
		err  error
		want int
	}{
		{models.ErrNoURLs, http.StatusBadRequest},
		{models.ErrEmptyCorpus, http.StatusUnprocessableEntity},
		{fmt.Errorf("%w: quota", models.ErrRemoteService), http.StatusBadGateway},
		{context.DeadlineExceeded, http.StatusGatewayTimeout},
		{fmt.Errorf("failed to publish index: disk full"), http.StatusInternalServerError},
	}
	for _, tt := range tests {
		t.Run(tt.err.Error(), func(t *testing.T) {
			svc := &fakeService{report: &rag.IngestReport{}, ingestErr: tt.err}
			w := postJSON(t, newTestServer(svc), "/api/v1/process", processRequest{})
			if w.Code != tt.want {
				t.Errorf("status: got %d, want %d", w.Code, tt.want)
			}
			var resp processResponse
			if err := json.NewDecoder(w.Body).Decode(&resp); err != nil {
				t.Fatal(err)
			}
			if resp.Error == "" {
				t.Error("missing error message")
			}
		})
	}
}

func TestHandleProcess_BadBody(t *testing.T) {
	req := httptest.NewRequest(http.MethodPost, "/api/v1/process", strings.NewReader("{"))
	w := httptest.NewRecorder()
	newTestServer(&fakeService{}).ServeHTTP(w, req)
	if w.Code != http.StatusBadRequest {
		t.Errorf("status: got %d", w.Code)
	}
}

func TestHandleAsk(t *testing.T) {
	svc := &fakeService{response: &models.PromptResponse{
		Query:   "What?",
		Content: "Because.",
		Sources: []models.SearchResult{{Content: "ctx", ChunkID: 2, Similarity: 0.9}},
	}}
	w := postJSON(t, newTestServer(svc), "/api/v1/ask", askRequest{Question: "What?"})

	if w.Code != http.StatusOK {
		t.Fatalf("status: got %d", w.Code)
	}
	var resp askResponse
	if err := json.NewDecoder(w.Body).Decode(&resp); err != nil {
		t.Fatal(err)
	}
	if resp.Answer != "Because." || len(resp.Sources) != 1 || resp.Sources[0].ChunkID != 2 {
		t.Errorf("response: %+v", resp)
	}
	if svc.question != "What?" {
		t.Errorf("question: %q", svc.question)
	}
}

func TestHandleAsk_IndexMissing(t *testing.T) {
	svc := &fakeService{queryErr: models.ErrIndexMissing}
	w := postJSON(t, newTestServer(svc), "/api/v1/ask", askRequest{Question: "What?"})
	if w.Code != http.StatusConflict {
		t.Errorf("status: got %d", w.Code)
	}
	if !strings.Contains(w.Body.String(), "process them first") {
		t.Errorf("body: %s", w.Body)
	}
}

func TestPage(t *testing.T) {
	w := httptest.NewRecorder()
	newTestServer(&fakeService{}).ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/", http.NoBody))
	if w.Code != http.StatusOK {
		t.Fatalf("status: got %d", w.Code)
	}
	body := w.Body.String()
	for _, want := range []string{"Chat with PDF", `name="urls"`, `name="question"`} {
		if !strings.Contains(body, want) {
			t.Errorf("page missing %q", want)
		}
	}
}

func TestProcessForm_ShowsBanners(t *testing.T) {
	svc := &fakeService{ingestErr: models.ErrEmptyCorpus}
	svc.report = &rag.IngestReport{Warnings: []*models.SourceError{{URL: "http://x/a.pdf", Err: models.ErrInvalidURL}}}
	w := postForm(newTestServer(svc), "/process", url.Values{"urls": {"http://x/a.pdf\n\n"}})

	body := w.Body.String()
	if !strings.Contains(body, "Invalid PDF URL: http://x/a.pdf") {
		t.Errorf("warning banner missing: %s", body)
	}
	if !strings.Contains(body, "no text could be extracted") {
		t.Errorf("error banner missing: %s", body)
	}
	if len(svc.urls) != 1 {
		t.Errorf("blank lines not dropped: %v", svc.urls)
	}
}

func TestAskForm_RendersMarkdownSafely(t *testing.T) {
	svc := &fakeService{response: &models.PromptResponse{Query: "q", Content: "**bold** <script>alert(1)</script>"}}
	w := postForm(newTestServer(svc), "/ask", url.Values{"question": {"q"}})

	body := w.Body.String()
	if !strings.Contains(body, "<strong>bold</strong>") {
		t.Errorf("markdown not rendered: %s", body)
	}
	if strings.Contains(body, "<script>alert(1)</script>") {
		t.Errorf("raw HTML passed through: %s", body)
	}
}

func TestHealth(t *testing.T) {
	w := httptest.NewRecorder()
	newTestServer(&fakeService{}).ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/health", http.NoBody))
	if w.Code != http.StatusOK || !strings.Contains(w.Body.String(), "ok") {
		t.Errorf("health: %d %s", w.Code, w.Body)
	}
}
