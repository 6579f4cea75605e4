package server

import (
	"bytes"
	"context"
	"embed"
	"encoding/json"
	"errors"
	"html/template"
	"net/http"

	"github.com/rs/zerolog/hlog"

	"chat-pdf/internal/fetcher"
	"chat-pdf/internal/models"
	"chat-pdf/internal/rag"
)

//go:embed templates/*.html
var templateFS embed.FS

var pageTemplate = template.Must(template.ParseFS(templateFS, "templates/index.html"))

type pageData struct {
	URLs     string
	Question string
	Success  string
	Warnings []string
	Error    string
	Answer   template.HTML
	Sources  []models.SearchResult
}

type processRequest struct {
	URLs []string `json:"urls"`
}

type processResponse struct {
	BuildID   string   `json:"build_id,omitempty"`
	Documents int      `json:"documents"`
	Chunks    int      `json:"chunks"`
	Warnings  []string `json:"warnings,omitempty"`
	Message   string   `json:"message,omitempty"`
	Error     string   `json:"error,omitempty"`
}

type askRequest struct {
	Question string `json:"question"`
}

type source struct {
	ChunkID    int     `json:"chunk_id"`
	Similarity float32 `json:"similarity"`
	Content    string  `json:"content"`
}

type askResponse struct {
	Question string   `json:"question"`
	Answer   string   `json:"answer"`
	Sources  []source `json:"sources"`
}

func (s *Server) handleIndex(w http.ResponseWriter, r *http.Request) {
	s.renderPage(w, r, &pageData{})
}

func (s *Server) handleProcessForm(w http.ResponseWriter, r *http.Request) {
	data := &pageData{URLs: r.FormValue("urls")}
	report, err := s.rag.Ingest(r.Context(), fetcher.ParseURLList(data.URLs))
	data.Warnings = warnings(report)
	if err != nil {
		hlog.FromRequest(r).Error().Err(err).Msg("Processing failed")
		data.Error = rag.ErrorMessage(err)
	} else {
		data.Success = rag.ReadyMessage
	}
	s.renderPage(w, r, data)
}

func (s *Server) handleAskForm(w http.ResponseWriter, r *http.Request) {
	data := &pageData{URLs: r.FormValue("urls"), Question: r.FormValue("question")}
	resp, err := s.rag.Query(r.Context(), data.Question)
	if err != nil {
		hlog.FromRequest(r).Error().Err(err).Msg("Query failed")
		data.Error = rag.ErrorMessage(err)
		s.renderPage(w, r, data)
		return
	}
	answer, err := s.renderMarkdown(resp.Content)
	if err != nil {
		hlog.FromRequest(r).Warn().Err(err).Msg("Failed to render answer as markdown")
		answer = template.HTML(template.HTMLEscapeString(resp.Content))
	}
	data.Answer = answer
	data.Sources = resp.Sources
	s.renderPage(w, r, data)
}

func (s *Server) handleProcess(w http.ResponseWriter, r *http.Request) {
	var req processRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		s.respondError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	report, err := s.rag.Ingest(r.Context(), req.URLs)
	resp := processResponse{Warnings: warnings(report)}
	if report != nil {
		resp.BuildID, resp.Documents, resp.Chunks = report.BuildID, report.Documents, report.Chunks
	}
	if err != nil {
		hlog.FromRequest(r).Error().Err(err).Msg("Processing failed")
		resp.Error = rag.ErrorMessage(err)
		s.respondJSON(w, statusFor(err), resp)
		return
	}
	resp.Message = rag.ReadyMessage
	s.respondJSON(w, http.StatusOK, resp)
}

func (s *Server) handleAsk(w http.ResponseWriter, r *http.Request) {
	var req askRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		s.respondError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	resp, err := s.rag.Query(r.Context(), req.Question)
	if err != nil {
		hlog.FromRequest(r).Error().Err(err).Msg("Query failed")
		s.respondError(w, statusFor(err), rag.ErrorMessage(err))
		return
	}
	out := askResponse{Question: resp.Query, Answer: resp.Content, Sources: make([]source, len(resp.Sources))}
	for i, src := range resp.Sources {
		out.Sources[i] = source{ChunkID: src.ChunkID, Similarity: src.Similarity, Content: src.Content}
	}
	s.respondJSON(w, http.StatusOK, out)
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	s.respondJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (s *Server) renderMarkdown(src string) (template.HTML, error) {
	var buf bytes.Buffer
	if err := s.markdown.Convert([]byte(src), &buf); err != nil {
		return "", err
	}
	// goldmark drops raw HTML unless configured otherwise
	return template.HTML(buf.String()), nil
}

func (s *Server) renderPage(w http.ResponseWriter, r *http.Request, data *pageData) {
	var buf bytes.Buffer
	if err := pageTemplate.Execute(&buf, data); err != nil {
		hlog.FromRequest(r).Error().Err(err).Msg("Failed to render page")
		http.Error(w, "internal error", http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	_, _ = buf.WriteTo(w)
}

func (s *Server) respondJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func (s *Server) respondError(w http.ResponseWriter, status int, message string) {
	s.respondJSON(w, status, map[string]string{"error": message})
}

func warnings(report *rag.IngestReport) []string {
	if report == nil {
		return nil
	}
	out := make([]string, 0, len(report.Warnings))
	for _, w := range report.Warnings {
		out = append(out, rag.WarningMessage(w))
	}
	return out
}

func statusFor(err error) int {
	switch {
	case errors.Is(err, models.ErrNoURLs), errors.Is(err, models.ErrEmptyQuestion):
		return http.StatusBadRequest
	case errors.Is(err, models.ErrEmptyCorpus):
		return http.StatusUnprocessableEntity
	case errors.Is(err, models.ErrIndexMissing), errors.Is(err, models.ErrEmbeddingMismatch):
		return http.StatusConflict
	case errors.Is(err, models.ErrRemoteService):
		return http.StatusBadGateway
	case errors.Is(err, context.DeadlineExceeded):
		return http.StatusGatewayTimeout
	default:
		return http.StatusInternalServerError
	}
}
