package pipeline

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync/atomic"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/kukjun/ai-agent-playground/internal/core/domain"
	"github.com/kukjun/ai-agent-playground/internal/core/ports"
	"github.com/kukjun/ai-agent-playground/internal/metrics"
)

const defaultEventBuffer = 64

var errStageClosed = errors.New("fragment emitted after stage returned")

// Executor runs a compiled plan once per Start call. It holds no state
// across runs.
type Executor struct {
	plan    *Plan
	buffer  int
	logger  *slog.Logger
	metrics *metrics.Metrics
	tracer  trace.Tracer
}

// Option configures an Executor.
type Option func(*Executor)

// WithEventBuffer sets the capacity of each run's event channel.
func WithEventBuffer(n int) Option {
	return func(e *Executor) {
		if n > 0 {
			e.buffer = n
		}
	}
}

// WithLogger sets the logger.
func WithLogger(logger *slog.Logger) Option {
	return func(e *Executor) {
		e.logger = logger
	}
}

// WithMetrics records stage durations.
func WithMetrics(m *metrics.Metrics) Option {
	return func(e *Executor) {
		e.metrics = m
	}
}

// NewExecutor creates an executor for plan.
func NewExecutor(plan *Plan, opts ...Option) *Executor {
	e := &Executor{
		plan:   plan,
		buffer: defaultEventBuffer,
		logger: slog.Default(),
		tracer: otel.Tracer("github.com/kukjun/ai-agent-playground/internal/pipeline"),
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// StageNames returns the plan's stage names in execution order.
func (e *Executor) StageNames() []string {
	return e.plan.Names()
}

// Start launches a run and returns its events. The channel is closed after
// stage.failed or run.completed, or early if ctx is cancelled while the
// consumer is not reading.
func (e *Executor) Start(ctx context.Context, runID, userInput string) <-chan domain.Event {
	out := make(chan domain.Event, e.buffer)
	go e.execute(ctx, runID, userInput, out)
	return out
}

func (e *Executor) execute(ctx context.Context, runID, userInput string, out chan<- domain.Event) {
	defer close(out)

	ctx, span := e.tracer.Start(ctx, "pipeline.run", trace.WithAttributes(attribute.String("run_id", runID)))
	defer span.End()

	logger := e.logger.With(slog.String("run_id", runID))
	run := domain.NewRun(runID, userInput, e.plan.Names())
	start := time.Now()

	send := func(ev domain.Event) bool {
		select {
		case out <- ev:
			return true
		case <-ctx.Done():
			return false
		}
	}

	for _, stage := range e.plan.Stages() {
		name := stage.Name()
		if err := run.Enter(name); err != nil {
			e.fail(span, logger, run, name, err, send)
			return
		}
		if !send(domain.StageEntered(runID, name)) {
			logger.Warn("run abandoned", slog.String("stage", name), slog.String("error", ctx.Err().Error()))
			return
		}

		update, err := e.runStage(ctx, run, stage, send)
		if err == nil {
			err = run.State.Merge(update)
		}
		if err != nil {
			e.fail(span, logger, run, name, err, send)
			return
		}

		if !send(domain.StageExited(runID, name, run.State.Snapshot())) {
			logger.Warn("run abandoned", slog.String("stage", name), slog.String("error", ctx.Err().Error()))
			return
		}
	}

	if err := run.Complete(); err != nil {
		e.fail(span, logger, run, "", err, send)
		return
	}
	send(domain.RunCompleted(runID, run.State.Snapshot()))
	logger.Info("run completed", slog.Duration("duration", time.Since(start)))
}

// runStage invokes one stage with a fragment emitter scoped to it. Panics are
// converted into errors so a faulty stage fails only its own run.
func (e *Executor) runStage(ctx context.Context, run *domain.Run, stage ports.Stage, send func(domain.Event) bool) (update domain.StateUpdate, err error) {
	name := stage.Name()
	ctx, span := e.tracer.Start(ctx, "pipeline.stage", trace.WithAttributes(attribute.String("stage", name)))
	defer span.End()

	var closed atomic.Bool
	fragments := 0
	emit := func(fragment string) error {
		if closed.Load() {
			return errStageClosed
		}
		if fragment == "" {
			return nil
		}
		if !send(domain.FragmentProduced(run.ID, name, fragment)) {
			return ctx.Err()
		}
		fragments++
		return nil
	}

	started := time.Now()
	defer func() {
		closed.Store(true)
		if r := recover(); r != nil {
			err = fmt.Errorf("panic: %v", r)
		}
		status := "ok"
		if err != nil {
			status = "error"
			span.RecordError(err)
			span.SetStatus(codes.Error, err.Error())
		}
		span.SetAttributes(attribute.Int("fragments", fragments))
		e.metrics.ObserveStage(name, status, time.Since(started))
	}()

	return stage.Run(ctx, run.State.Snapshot(), emit)
}

func (e *Executor) fail(span trace.Span, logger *slog.Logger, run *domain.Run, stage string, err error, send func(domain.Event) bool) {
	_ = run.Fail()
	stageErr := &domain.StageError{Stage: stage, Err: err}
	span.RecordError(stageErr)
	span.SetStatus(codes.Error, stageErr.Error())
	logger.Error("run failed", slog.String("stage", stage), slog.String("error", err.Error()))
	send(domain.StageFailed(run.ID, stage, stageErr))
}

var _ ports.PipelineExecutor = (*Executor)(nil)
