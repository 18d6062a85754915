// Package server exposes the streaming pipeline over HTTP: a server-sent
// event stream per client connection and a chat endpoint that starts runs.
package server

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"

	"github.com/kukjun/ai-agent-playground/internal/config"
	"github.com/kukjun/ai-agent-playground/internal/core/ports"
)

// Sessions is the part of the session registry the HTTP layer drives.
type Sessions interface {
	Connect(connID string) error
	Message(connID, input string) (string, error)
	Disconnect(connID string)
}

type Server struct {
	Router *chi.Mux
	Port   int

	hub       *Hub
	sessions  Sessions
	store     ports.RecordStore
	keepalive time.Duration
	logger    *slog.Logger
	http      *http.Server

	// streams is the base context of every request; cancelling it ends
	// open event streams so Shutdown does not wait on them.
	streams     context.Context
	stopStreams context.CancelFunc
}

// Deps are the collaborators the server routes to.
type Deps struct {
	Hub      *Hub
	Sessions Sessions
	Store    ports.RecordStore
	// Gatherer backs /metrics. Nil disables the endpoint.
	Gatherer prometheus.Gatherer
}

func New(cfg config.ServerConfig, deps Deps, logger *slog.Logger) *Server {
	keepalive := cfg.Keepalive
	if keepalive <= 0 {
		keepalive = 15 * time.Second
	}
	timeout := cfg.RequestTimeout
	if timeout <= 0 {
		timeout = 30 * time.Second
	}

	streams, stopStreams := context.WithCancel(context.Background())
	s := &Server{
		Router:      chi.NewRouter(),
		Port:        cfg.Port,
		hub:         deps.Hub,
		sessions:    deps.Sessions,
		store:       deps.Store,
		keepalive:   keepalive,
		logger:      logger,
		streams:     streams,
		stopStreams: stopStreams,
	}

	r := s.Router
	r.Use(RequestIDMiddleware)
	r.Use(LoggingMiddleware(logger))
	r.Use(middleware.Recoverer)
	r.Use(func(next http.Handler) http.Handler {
		return otelhttp.NewHandler(next, "streamd")
	})

	// The event stream lives as long as the client, so only the other
	// routes get a deadline.
	r.Get("/events", s.handleEvents)

	r.Group(func(r chi.Router) {
		r.Use(TimeoutMiddleware(timeout))
		r.Post("/sessions/{id}/chat", s.handleChat)
		r.Get("/records", s.handleRecords)
		r.Get("/healthz", s.handleHealth)
		if deps.Gatherer != nil {
			r.Handle("/metrics", promhttp.HandlerFor(deps.Gatherer, promhttp.HandlerOpts{}))
		}
	})

	s.http = &http.Server{
		Addr:              fmt.Sprintf(":%d", s.Port),
		Handler:           s.Router,
		ReadHeaderTimeout: 10 * time.Second,
		BaseContext:       func(net.Listener) context.Context { return s.streams },
	}
	return s
}

// Start serves until Shutdown is called. It returns nil after a clean shutdown.
func (s *Server) Start() error {
	s.logger.Info("starting server", slog.Int("port", s.Port))
	if err := s.http.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

// Shutdown stops accepting connections and waits for handlers to return.
func (s *Server) Shutdown(ctx context.Context) error {
	s.stopStreams()
	return s.http.Shutdown(ctx)
}
