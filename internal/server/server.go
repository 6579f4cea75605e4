// Package server serves the chat page and a small JSON API over HTTP.
package server

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/zerolog/hlog"
	"github.com/rs/zerolog/log"
	"github.com/yuin/goldmark"
	"github.com/yuin/goldmark/extension"

	"chat-pdf/internal/config"
	"chat-pdf/internal/metrics"
	"chat-pdf/internal/models"
	"chat-pdf/internal/rag"
)

// Service is the part of rag.RAG the server needs.
type Service interface {
	Ingest(ctx context.Context, urls []string) (*rag.IngestReport, error)
	Query(ctx context.Context, question string) (*models.PromptResponse, error)
}

type Server struct {
	rag      Service
	config   *config.ServerConfig
	markdown goldmark.Markdown
	server   *http.Server
}

func NewServer(service Service, cfg *config.ServerConfig) *Server {
	return &Server{
		rag:      service,
		config:   cfg,
		markdown: goldmark.New(goldmark.WithExtensions(extension.GFM)),
	}
}

// Router builds the chi router with logging, recovery, timeout and metrics
// middleware.
func (s *Server) Router() http.Handler {
	r := chi.NewRouter()
	r.Use(hlog.NewHandler(log.Logger))
	r.Use(hlog.AccessHandler(func(r *http.Request, status, size int, duration time.Duration) {
		hlog.FromRequest(r).Info().
			Str("method", r.Method).
			Stringer("url", r.URL).
			Int("status", status).
			Int("size", size).
			Dur("duration", duration).
			Msg("Request")
	}))
	r.Use(hlog.RemoteAddrHandler("ip"))
	r.Use(hlog.RequestIDHandler("req_id", "X-Request-Id"))
	r.Use(middleware.Recoverer)
	r.Use(metrics.Middleware())
	if s.config.RequestTimeout > 0 {
		r.Use(middleware.Timeout(s.config.RequestTimeout))
	}

	r.Get("/", s.handleIndex)
	r.Post("/process", s.handleProcessForm)
	r.Post("/ask", s.handleAskForm)

	r.Route("/api/v1", func(r chi.Router) {
		r.Post("/process", s.handleProcess)
		r.Post("/ask", s.handleAsk)
	})
	r.Get("/health", s.handleHealth)
	r.Handle("/metrics", promhttp.Handler())
	return r
}

// Start starts the HTTP server and blocks until it stops.
func (s *Server) Start() error {
	addr := fmt.Sprintf("%s:%d", s.config.Host, s.config.Port)
	s.server = &http.Server{
		Addr:              addr,
		Handler:           s.Router(),
		ReadHeaderTimeout: 10 * time.Second,
	}
	log.Info().Str("addr", addr).Msg("Starting server")
	return s.server.ListenAndServe()
}

// Stop gracefully shuts down the server.
func (s *Server) Stop(ctx context.Context) error {
	if s.server != nil {
		return s.server.Shutdown(ctx)
	}
	return nil
}
