// Package service exposes the streaming core over HTTP: an SSE stream
// endpoint per session, interrupt and state endpoints, health, and
// Prometheus metrics.
package service

import (
	"context"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/mathonsunday/agentic-ui-lab-sub001/config"
	"github.com/mathonsunday/agentic-ui-lab-sub001/events"
	"github.com/mathonsunday/agentic-ui-lab-sub001/metric"
	"github.com/mathonsunday/agentic-ui-lab-sub001/producer"
	"github.com/mathonsunday/agentic-ui-lab-sub001/session"
)

// SourceFactory builds the chunk source for one exchange. Returning an
// error produces a SERVER_CONFIG_ERROR envelope on the stream.
type SourceFactory func(ctx context.Context, sessionID, userInput string) (producer.ChunkSource, error)

// Option configures optional service collaborators.
type Option func(*Service)

// WithLogger sets the structured logger.
func WithLogger(logger *slog.Logger) Option {
	return func(s *Service) { s.logger = logger }
}

// WithPublisher sets the envelope fan-out bus.
func WithPublisher(p events.Publisher) Option {
	return func(s *Service) { s.publisher = p }
}

// WithMetrics sets the metrics registry.
func WithMetrics(r *metric.Registry) Option {
	return func(s *Service) { s.metrics = r }
}

// Service hosts the streaming endpoints.
type Service struct {
	cfg       *config.Config
	logger    *slog.Logger
	sessions  *session.Manager
	publisher events.Publisher
	metrics   *metric.Registry
	sources   SourceFactory

	server *http.Server
}

// New creates a service. sources may be nil, in which case every stream
// terminates with SERVER_CONFIG_ERROR.
func New(cfg *config.Config, sources SourceFactory, opts ...Option) *Service {
	s := &Service{
		cfg:       cfg,
		logger:    slog.Default(),
		publisher: &events.NoopPublisher{},
		metrics:   metric.NewRegistry(),
		sources:   sources,
	}
	for _, opt := range opts {
		opt(s)
	}
	s.sessions = session.NewManager(cfg.Session.BaselineConfidence, s.logger)
	return s
}

// Sessions returns the session registry.
func (s *Service) Sessions() *session.Manager {
	return s.sessions
}

// Routes builds the HTTP handler.
func (s *Service) Routes() http.Handler {
	prefix := strings.TrimSuffix(s.cfg.Server.PathPrefix, "/")

	mux := http.NewServeMux()
	mux.HandleFunc("POST "+prefix+"/sessions/{id}/stream", s.handleStream)
	mux.HandleFunc("POST "+prefix+"/sessions/{id}/interrupt", s.handleInterrupt)
	mux.HandleFunc("GET "+prefix+"/sessions/{id}/state", s.handleState)
	mux.HandleFunc("GET /healthz", s.handleHealth)
	if s.cfg.Metrics.Enabled {
		mux.Handle("GET /metrics", s.metrics.Handler())
	}
	return mux
}

// Start runs the HTTP server and the session prune loop until the
// context is cancelled or the listener fails.
func (s *Service) Start(ctx context.Context) error {
	s.server = &http.Server{
		Addr:              s.cfg.Server.ListenAddr,
		Handler:           s.Routes(),
		ReadHeaderTimeout: s.cfg.Server.ReadHeaderTimeout.Std(),
	}

	go s.pruneLoop(ctx)

	s.logger.Info("service listening",
		"addr", s.cfg.Server.ListenAddr,
		"path_prefix", s.cfg.Server.PathPrefix,
		"metrics_enabled", s.cfg.Metrics.Enabled)

	err := s.server.ListenAndServe()
	if err == http.ErrServerClosed {
		return nil
	}
	return err
}

// Shutdown drains the HTTP server and closes the fan-out bus.
func (s *Service) Shutdown(ctx context.Context) error {
	if err := s.publisher.Close(); err != nil {
		s.logger.Warn("publisher close failed", "error", err)
	}
	if s.server == nil {
		return nil
	}
	return s.server.Shutdown(ctx)
}

// pruneLoop reclaims idle sessions on the configured interval.
func (s *Service) pruneLoop(ctx context.Context) {
	interval := s.cfg.Session.PruneInterval.Std()
	if interval <= 0 {
		return
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			s.sessions.Prune(s.cfg.Session.IdleTimeout.Std())
			s.metrics.Core().ActiveSessions.Set(float64(s.sessions.Len()))
		}
	}
}
