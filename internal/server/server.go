// Package server exposes the flow report, the session store and
// imports over HTTP.
package server

import (
	"context"
	"log"
	"net"
	"net/http"
	"strconv"
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus/promhttp"
	"golang.org/x/sync/singleflight"

	"github.com/wesm/flowstate/internal/config"
	"github.com/wesm/flowstate/internal/db"
	"github.com/wesm/flowstate/internal/flow"
	"github.com/wesm/flowstate/internal/ingest"
)

// VersionInfo holds build-time version metadata.
type VersionInfo struct {
	Version   string `json:"version"`
	Commit    string `json:"commit"`
	BuildDate string `json:"build_date"`
}

// Server is the HTTP server for the REST API.
type Server struct {
	mu      sync.RWMutex
	cfg     config.Config
	db      *db.DB
	engine  *ingest.Engine
	mux     *http.ServeMux
	httpSrv *http.Server
	version VersionInfo
	now     flow.Clock

	// snapshots collapses concurrent report loads for the same
	// user into one store read.
	snapshots singleflight.Group

	// handlerDelay is injected before each timeout-wrapped
	// handler. Only tests set it.
	handlerDelay time.Duration
}

// New creates a new Server. engine may be nil, in which case the
// import endpoint reports 503.
func New(
	cfg config.Config, database *db.DB, engine *ingest.Engine,
	opts ...Option,
) *Server {
	s := &Server{
		cfg:    cfg,
		db:     database,
		engine: engine,
		mux:    http.NewServeMux(),
		now:    time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}
	s.routes()
	return s
}

// Option configures a Server.
type Option func(*Server)

// WithVersion sets the build-time version metadata.
func WithVersion(v VersionInfo) Option {
	return func(s *Server) { s.version = v }
}

// WithClock overrides the server's notion of "now". Nil is
// ignored.
func WithClock(c flow.Clock) Option {
	return func(s *Server) {
		if c != nil {
			s.now = c
		}
	}
}

func (s *Server) routes() {
	s.mux.Handle("GET /api/v1/flow", s.withTimeout(s.handleFlowReport))
	s.mux.Handle("GET /api/v1/flow/{metric}", s.withTimeout(s.handleFlowMetric))

	s.mux.Handle("GET /api/v1/sessions", s.withTimeout(s.handleListSessions))
	s.mux.Handle("POST /api/v1/sessions", s.withTimeout(s.handleCreateSession))
	s.mux.Handle("GET /api/v1/sessions/{id}", s.withTimeout(s.handleGetSession))
	s.mux.Handle("DELETE /api/v1/sessions/{id}", s.withTimeout(s.handleDeleteSession))

	s.mux.Handle("GET /api/v1/tasks", s.withTimeout(s.handleListTasks))
	s.mux.Handle("POST /api/v1/tasks", s.withTimeout(s.handleCreateTask))

	// Imports can outlast the write timeout on large directories.
	s.mux.HandleFunc("POST /api/v1/import", s.handleImport)
	s.mux.Handle("GET /api/v1/import/status", s.withTimeout(s.handleImportStatus))

	s.mux.Handle("GET /api/v1/stats", s.withTimeout(s.handleGetStats))
	s.mux.Handle("GET /api/v1/version", s.withTimeout(s.handleGetVersion))
	s.mux.Handle("GET /metrics", promhttp.Handler())
}

func (s *Server) handleGetVersion(
	w http.ResponseWriter, _ *http.Request,
) {
	writeJSON(w, http.StatusOK, s.version)
}

func (s *Server) handleGetStats(
	w http.ResponseWriter, r *http.Request,
) {
	stats, err := s.db.GetStats(r.Context())
	if err != nil {
		if handleContextError(r, err) {
			return
		}
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	writeJSON(w, http.StatusOK, stats)
}

// SetPort updates the listen port.
func (s *Server) SetPort(port int) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.cfg.Port = port
}

// Handler returns the http.Handler with middleware applied.
func (s *Server) Handler() http.Handler {
	return corsMiddleware(logMiddleware(metricsMiddleware(s.mux)))
}

// ListenAndServe starts the HTTP server.
func (s *Server) ListenAndServe() error {
	s.mu.Lock()
	addr := net.JoinHostPort(s.cfg.Host, strconv.Itoa(s.cfg.Port))
	srv := &http.Server{
		Addr:        addr,
		Handler:     s.Handler(),
		ReadTimeout: 10 * time.Second,
		IdleTimeout: 120 * time.Second,
	}
	s.httpSrv = srv
	s.mu.Unlock()
	log.Printf("Starting server at http://%s", addr)
	return srv.ListenAndServe()
}

// Shutdown gracefully shuts down the HTTP server.
func (s *Server) Shutdown(ctx context.Context) error {
	s.mu.RLock()
	srv := s.httpSrv
	s.mu.RUnlock()
	if srv == nil {
		return nil
	}
	return srv.Shutdown(ctx)
}

// FindAvailablePort finds an available port starting from the
// given port, binding to the specified host.
func FindAvailablePort(host string, start int) int {
	for port := start; port < start+100; port++ {
		ln, err := net.Listen("tcp", net.JoinHostPort(host, strconv.Itoa(port)))
		if err == nil {
			ln.Close()
			return port
		}
	}
	return start
}
