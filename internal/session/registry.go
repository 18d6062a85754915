// Package session tracks client connections and the single pipeline run each
// one may have in flight.
package session

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"sync"

	"github.com/google/uuid"

	"github.com/kukjun/ai-agent-playground/internal/core/domain"
	"github.com/kukjun/ai-agent-playground/internal/core/ports"
	"github.com/kukjun/ai-agent-playground/internal/metrics"
	"github.com/kukjun/ai-agent-playground/internal/translator"
)

// RunHook is called after a run's event stream has been fully consumed.
type RunHook func(connID, runID string, res translator.Result)

type activeRun struct {
	id     string
	cancel context.CancelFunc
}

type session struct {
	id     string
	active *activeRun
}

// Registry maps connection ids to sessions. A session admits at most one run
// at a time; a second message while a run is active is rejected with
// domain.ErrAlreadyRunning and does not affect the running one.
type Registry struct {
	mu       sync.Mutex
	sessions map[string]*session

	ctx    context.Context
	cancel context.CancelFunc
	wg     sync.WaitGroup

	executor   ports.PipelineExecutor
	transport  ports.Transport
	translator *translator.Translator
	metrics    *metrics.Metrics
	logger     *slog.Logger
	onFinish   RunHook
	newRunID   func() string
}

// Option configures a Registry.
type Option func(*Registry)

func WithMetrics(m *metrics.Metrics) Option {
	return func(r *Registry) {
		r.metrics = m
	}
}

func WithLogger(logger *slog.Logger) Option {
	return func(r *Registry) {
		r.logger = logger
	}
}

// WithRunHook registers a callback invoked when each run finishes.
func WithRunHook(hook RunHook) Option {
	return func(r *Registry) {
		r.onFinish = hook
	}
}

// New creates a registry. Runs execute under a context derived from parent;
// cancelling parent or calling Close aborts them.
func New(parent context.Context, exec ports.PipelineExecutor, transport ports.Transport, tr *translator.Translator, opts ...Option) *Registry {
	ctx, cancel := context.WithCancel(parent)
	r := &Registry{
		sessions:   make(map[string]*session),
		ctx:        ctx,
		cancel:     cancel,
		executor:   exec,
		transport:  transport,
		translator: tr,
		logger:     slog.Default(),
		newRunID:   uuid.NewString,
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Connect creates a session with no active run.
func (r *Registry) Connect(connID string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, ok := r.sessions[connID]; ok {
		return fmt.Errorf("%w: %s", domain.ErrSessionExists, connID)
	}
	r.sessions[connID] = &session{id: connID}
	r.metrics.SessionOpened()
	r.logger.Info("session connected", slog.String("session_id", connID))
	return nil
}

// Message starts a run for input on the given connection and returns its id.
func (r *Registry) Message(connID, input string) (string, error) {
	if strings.TrimSpace(input) == "" {
		r.metrics.Rejected("empty")
		return "", domain.ErrEmptyMessage
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	s, ok := r.sessions[connID]
	if !ok {
		r.metrics.Rejected("unknown_session")
		return "", fmt.Errorf("%w: %s", domain.ErrUnknownSession, connID)
	}
	if s.active != nil {
		r.metrics.Rejected("already_running")
		return "", fmt.Errorf("%w: run %s", domain.ErrAlreadyRunning, s.active.id)
	}
	if r.ctx.Err() != nil {
		return "", fmt.Errorf("registry closed: %w", r.ctx.Err())
	}

	runID := r.newRunID()
	forwardCtx, cancel := context.WithCancel(r.ctx)
	s.active = &activeRun{id: runID, cancel: cancel}

	events := r.executor.Start(r.ctx, runID, input)
	r.metrics.RunStarted()
	r.logger.Info("run started", slog.String("session_id", connID), slog.String("run_id", runID))

	r.wg.Add(1)
	go r.forward(forwardCtx, cancel, connID, runID, events)
	return runID, nil
}

func (r *Registry) forward(ctx context.Context, cancel context.CancelFunc, connID, runID string, events <-chan domain.Event) {
	defer r.wg.Done()
	defer cancel()

	deliver := func(ctx context.Context, ev domain.OutboundEvent) error {
		return r.transport.Deliver(ctx, connID, ev)
	}
	res := r.translator.Forward(ctx, events, deliver)

	r.mu.Lock()
	if s, ok := r.sessions[connID]; ok && s.active != nil && s.active.id == runID {
		s.active = nil
	}
	r.mu.Unlock()

	r.logger.Info("run finished",
		slog.String("session_id", connID),
		slog.String("run_id", runID),
		slog.String("outcome", string(res.Outcome)),
		slog.Int("forwarded", res.Forwarded),
		slog.Int("dropped", res.Dropped))

	if r.onFinish != nil {
		r.onFinish(connID, runID, res)
	}
}

// Disconnect removes the session. An active run stops forwarding; the
// pipeline itself keeps running until it finishes and its events are
// discarded.
func (r *Registry) Disconnect(connID string) {
	r.mu.Lock()
	s, ok := r.sessions[connID]
	var active *activeRun
	if ok {
		active = s.active
		delete(r.sessions, connID)
	}
	r.mu.Unlock()

	if !ok {
		return
	}
	if active != nil {
		active.cancel()
	}
	r.metrics.SessionClosed()
	r.logger.Info("session disconnected", slog.String("session_id", connID))
}

// Active returns the id of the connection's in-flight run, if any.
func (r *Registry) Active(connID string) (string, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()

	s, ok := r.sessions[connID]
	if !ok || s.active == nil {
		return "", false
	}
	return s.active.id, true
}

// Len returns the number of connected sessions.
func (r *Registry) Len() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.sessions)
}

// Close aborts all runs and waits for their forwarders to return.
func (r *Registry) Close() {
	r.cancel()
	r.wg.Wait()
}
