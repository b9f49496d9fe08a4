// Package httpapi exposes the capture service over HTTP: observation event
// ingestion, the capture collection, downloads, and a live event stream.
package httpapi

import (
	"context"
	"net/http"
	"time"

	"subsniff/internal/download"
	"subsniff/internal/ingest"
	"subsniff/internal/observe"
	"subsniff/internal/store"
)

type Server struct {
	orch  *ingest.Orchestrator
	store *store.Store
	tabs  *ingest.TabRegistry

	downloads *download.Manager
	scanner   *observe.Scanner
	sweepExpr string
	startedAt time.Time

	mux    *http.ServeMux
	server *http.Server
}

type Option func(*Server)

func WithDownloads(m *download.Manager) Option {
	return func(s *Server) {
		s.downloads = m
	}
}

func WithScanner(sc *observe.Scanner) Option {
	return func(s *Server) {
		s.scanner = sc
	}
}

func WithSweepSchedule(cronExpr string) Option {
	return func(s *Server) {
		s.sweepExpr = cronExpr
	}
}

func NewServer(orch *ingest.Orchestrator, st *store.Store, tabs *ingest.TabRegistry, opts ...Option) *Server {
	s := &Server{
		orch:      orch,
		store:     st,
		tabs:      tabs,
		startedAt: time.Now(),
		mux:       http.NewServeMux(),
	}
	for _, opt := range opts {
		opt(s)
	}
	s.routes()
	return s
}

func (s *Server) Handler() http.Handler {
	return s.mux
}

func (s *Server) ListenAndServe(addr string) error {
	s.server = &http.Server{
		Addr:              addr,
		Handler:           s.mux,
		ReadHeaderTimeout: 5 * time.Second,
	}
	return s.server.ListenAndServe()
}

func (s *Server) Shutdown(ctx context.Context) error {
	if s.server == nil {
		return nil
	}
	return s.server.Shutdown(ctx)
}

func (s *Server) routes() {
	s.mux.HandleFunc("/api/observe/request", s.handleObserveRequest)
	s.mux.HandleFunc("/api/observe/response", s.handleObserveResponse)
	s.mux.HandleFunc("/api/observe/page", s.handleObservePage)
	s.mux.HandleFunc("/api/scan", s.handleScan)
	s.mux.HandleFunc("/api/captures", s.handleCaptures)
	s.mux.HandleFunc("/api/captures/stream", s.handleCaptureStream)
	s.mux.HandleFunc("/api/captures/download", s.handleDownloadAll)
	s.mux.HandleFunc("/api/captures/", s.handleCaptureByName)
	s.mux.HandleFunc("/api/status", s.handleStatus)
}
