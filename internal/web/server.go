// Package web serves the prediction form, its JSON API and a websocket for
// live re-evaluation while the form is being edited.
//
// Every handler reads from one immutable assets value and one pipeline that
// are built before the server starts. Nothing is loaded lazily.
package web

import (
	"context"
	"fmt"
	"net/http"
	"sync"
	"time"

	"covertype/internal/assets"
	"covertype/internal/metrics"
	"covertype/internal/ml"
	"covertype/internal/storage"

	"github.com/gorilla/mux"
	"github.com/gorilla/websocket"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/zerolog/log"
)

// History is the subset of the prediction store the server uses.
type History interface {
	Append(storage.Record) error
	Recent(limit int) ([]storage.Record, error)
	Range(start, end time.Time) ([]storage.Record, error)
	Count() (int, error)
}

// Config holds listener and rate limit settings.
type Config struct {
	Port         int
	ReadTimeout  time.Duration
	WriteTimeout time.Duration
	RateLimit    float64 // requests per second on predict routes; 0 disables
	RateBurst    int
}

// Deps are the collaborators the server needs. Assets and Pipeline are
// required; the rest are optional.
type Deps struct {
	Assets   *assets.Assets
	Pipeline *ml.Pipeline
	History  History
	Metrics  *metrics.MetricsWrapper
	Gatherer prometheus.Gatherer
}

// Server is the HTTP front end of the predictor.
type Server struct {
	assets   *assets.Assets
	pipeline *ml.Pipeline
	history  History
	metrics  *metrics.MetricsWrapper
	upgrader websocket.Upgrader
	limiter  *limiter
	router   *mux.Router
	server   *http.Server

	sessions   map[*websocket.Conn]struct{}
	sessionsMu sync.Mutex
	sessionsWG sync.WaitGroup
	closing    bool // set by Stop; new sessions are refused

	isRunning bool
	mu        sync.Mutex
}

// New builds the router and the underlying http.Server.
func New(cfg Config, deps Deps) (*Server, error) {
	if deps.Assets == nil || deps.Pipeline == nil {
		return nil, fmt.Errorf("web: assets and pipeline are required")
	}
	if deps.Metrics == nil {
		deps.Metrics = metrics.NewWrapper(metrics.NewWithRegistry(prometheus.NewRegistry()))
	}
	if deps.Gatherer == nil {
		deps.Gatherer = prometheus.DefaultGatherer
	}

	s := &Server{
		assets:   deps.Assets,
		pipeline: deps.Pipeline,
		history:  deps.History,
		metrics:  deps.Metrics,
		upgrader: websocket.Upgrader{CheckOrigin: func(r *http.Request) bool { return true }},
		limiter:  newLimiter(cfg.RateLimit, cfg.RateBurst, deps.Metrics.RateLimited()),
		sessions: make(map[*websocket.Conn]struct{}),
	}

	r := mux.NewRouter()
	r.HandleFunc("/", s.handleForm).Methods(http.MethodGet)
	r.Handle("/predict", s.limiter.wrap(http.HandlerFunc(s.handleFormPredict))).Methods(http.MethodPost)
	r.HandleFunc("/api/schema", s.handleSchema).Methods(http.MethodGet)
	r.Handle("/api/predict", s.limiter.wrap(http.HandlerFunc(s.handleAPIPredict))).Methods(http.MethodPost)
	r.HandleFunc("/api/history", s.handleHistory).Methods(http.MethodGet)
	r.HandleFunc("/ws", s.handleWebSocket).Methods(http.MethodGet)
	r.HandleFunc("/health", s.handleHealth).Methods(http.MethodGet)
	r.Handle("/metrics", promhttp.HandlerFor(deps.Gatherer, promhttp.HandlerOpts{})).Methods(http.MethodGet)
	s.router = r

	s.server = &http.Server{
		Addr:         fmt.Sprintf(":%d", cfg.Port),
		Handler:      r,
		ReadTimeout:  cfg.ReadTimeout,
		WriteTimeout: cfg.WriteTimeout,
	}
	return s, nil
}

// Handler exposes the router, mainly for tests.
func (s *Server) Handler() http.Handler { return s.router }

// Addr is the configured listen address.
func (s *Server) Addr() string { return s.server.Addr }

// Start begins serving in the background.
func (s *Server) Start() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.isRunning {
		return fmt.Errorf("server is already running")
	}

	go func() {
		log.Info().
			Str("address", s.server.Addr).
			Msg("Starting prediction server")

		if err := s.server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Error().Err(err).Msg("Prediction server failed")
		}
	}()

	s.isRunning = true
	return nil
}

// Stop shuts the listener down, closes open websocket sessions and waits for
// their handlers to return. Hijacked connections are not tracked by
// http.Server.Shutdown, so the wait is done here.
func (s *Server) Stop(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.isRunning {
		return nil
	}

	if err := s.server.Shutdown(ctx); err != nil {
		log.Error().Err(err).Msg("Failed to shutdown prediction server")
		return err
	}

	s.sessionsMu.Lock()
	s.closing = true
	for conn := range s.sessions {
		conn.Close()
	}
	s.sessionsMu.Unlock()

	if err := s.waitSessions(ctx); err != nil {
		log.Error().Err(err).Msg("Timed out waiting for websocket sessions")
		return err
	}

	s.isRunning = false
	log.Info().Msg("Prediction server stopped")
	return nil
}

func (s *Server) waitSessions(ctx context.Context) error {
	done := make(chan struct{})
	go func() {
		s.sessionsWG.Wait()
		close(done)
	}()

	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// record appends an outcome to the history store, if one is configured.
// Storage failures are logged and counted but never reach the user.
func (s *Server) record(source string, rec storage.Record) {
	if s.history == nil {
		return
	}
	if err := s.history.Append(rec); err != nil {
		s.metrics.HistoryErrors().Inc()
		log.Warn().Err(err).Str("id", rec.ID).Str("source", source).Msg("Failed to record prediction")
	}
}
