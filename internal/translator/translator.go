// Package translator turns the internal events of one pipeline run into the
// client-facing event lexicon and hands them to a single connection.
package translator

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"

	"github.com/kukjun/ai-agent-playground/internal/core/domain"
	"github.com/kukjun/ai-agent-playground/internal/metrics"
)

const defaultSummaryLimit = 500

// Outcome is how a forwarded run ended from the client's point of view.
type Outcome string

const (
	OutcomeCompleted Outcome = "completed"
	OutcomeFailed    Outcome = "failed"
	OutcomeCancelled Outcome = "cancelled"
)

// Result summarizes one Forward call.
type Result struct {
	Outcome   Outcome
	Forwarded int
	Dropped   int
}

// DeliverFunc sends one event to the connection that owns the run.
type DeliverFunc func(ctx context.Context, ev domain.OutboundEvent) error

// Translator is stateless across runs and safe for concurrent use.
type Translator struct {
	nodes        map[string]struct{}
	persistStage string
	summaryLimit int
	metrics      *metrics.Metrics
	logger       *slog.Logger
}

// Option configures a Translator.
type Option func(*Translator)

// WithSummaryLimit bounds the node_end output to n runes.
func WithSummaryLimit(n int) Option {
	return func(t *Translator) {
		if n > 0 {
			t.summaryLimit = n
		}
	}
}

// WithPersistStage names the stage whose exit is followed by db_save.
func WithPersistStage(name string) Option {
	return func(t *Translator) {
		t.persistStage = name
	}
}

func WithMetrics(m *metrics.Metrics) Option {
	return func(t *Translator) {
		t.metrics = m
	}
}

func WithLogger(logger *slog.Logger) Option {
	return func(t *Translator) {
		t.logger = logger
	}
}

// New creates a translator that forwards events for the given nodes only.
func New(nodes []string, opts ...Option) *Translator {
	t := &Translator{
		nodes:        make(map[string]struct{}, len(nodes)),
		persistStage: domain.StageSaver,
		summaryLimit: defaultSummaryLimit,
		logger:       slog.Default(),
	}
	for _, n := range nodes {
		t.nodes[n] = struct{}{}
	}
	for _, opt := range opts {
		opt(t)
	}
	return t
}

// Forward consumes events until the channel closes. Once a terminal event
// has been delivered, ctx is done, or delivery fails, the remaining events
// are read and discarded so the producer never blocks on this consumer.
func (t *Translator) Forward(ctx context.Context, events <-chan domain.Event, deliver DeliverFunc) Result {
	res := Result{Outcome: OutcomeCancelled}
	stopped := false

	for ev := range events {
		if stopped {
			res.Dropped++
			continue
		}
		if ctx.Err() != nil {
			stopped = true
			res.Dropped++
			continue
		}

		out, ok := t.translate(ev)
		if !ok {
			res.Dropped++
			continue
		}

		for _, oe := range out {
			if err := deliver(ctx, oe); err != nil {
				if !errors.Is(err, domain.ErrSessionGone) && !errors.Is(err, context.Canceled) {
					t.logger.Warn("event delivery failed",
						slog.String("run_id", ev.RunID),
						slog.String("event", string(oe.Name)),
						slog.String("error", err.Error()))
				}
				stopped = true
				break
			}
			res.Forwarded++
			t.metrics.EventForwarded(string(oe.Name))
		}
		if stopped {
			res.Dropped++
			continue
		}

		switch ev.Type {
		case domain.EventRunCompleted:
			res.Outcome = OutcomeCompleted
			stopped = true
		case domain.EventStageFailed:
			res.Outcome = OutcomeFailed
			stopped = true
		}
	}

	t.metrics.EventsDropped(res.Dropped)
	t.metrics.RunFinished(string(res.Outcome))
	return res
}

// translate maps one internal event to zero or more outbound events. The
// boolean is false when the event is filtered out.
func (t *Translator) translate(ev domain.Event) ([]domain.OutboundEvent, bool) {
	switch ev.Type {
	case domain.EventStageEntered:
		if !t.allowed(ev.Stage) {
			return nil, false
		}
		return []domain.OutboundEvent{{
			Name: domain.OutboundNodeStart,
			Data: domain.NodeStartData{Node: ev.Stage},
		}}, true

	case domain.EventStageExited:
		if !t.allowed(ev.Stage) {
			return nil, false
		}
		out := []domain.OutboundEvent{{
			Name: domain.OutboundNodeEnd,
			Data: domain.NodeEndData{Node: ev.Stage, Output: t.summarize(ev.State)},
		}}
		if ev.Stage == t.persistStage && ev.State != nil && ev.State.SavedRecord != nil {
			rec := *ev.State.SavedRecord
			out = append(out, domain.OutboundEvent{Name: domain.OutboundDBSave, Data: rec})
		}
		return out, true

	case domain.EventFragmentProduced:
		if !t.allowed(ev.Stage) {
			return nil, false
		}
		return []domain.OutboundEvent{{
			Name: domain.OutboundToken,
			Data: domain.TokenData{Node: ev.Stage, Content: ev.Fragment},
		}}, true

	case domain.EventRunCompleted:
		return []domain.OutboundEvent{{
			Name: domain.OutboundDone,
			Data: domain.DoneData{Success: true},
		}}, true

	case domain.EventStageFailed:
		msg := "pipeline failed"
		if ev.Err != nil {
			msg = ev.Err.Error()
		}
		return []domain.OutboundEvent{{
			Name: domain.OutboundError,
			Data: domain.ErrorData{Message: msg},
		}}, true
	}
	return nil, false
}

func (t *Translator) allowed(node string) bool {
	_, ok := t.nodes[node]
	return ok
}

// summarize renders the state as JSON truncated to the summary limit.
func (t *Translator) summarize(state *domain.RunState) string {
	if state == nil {
		return ""
	}
	b, err := json.Marshal(state)
	if err != nil {
		return ""
	}
	return truncate(string(b), t.summaryLimit)
}

func truncate(s string, limit int) string {
	runes := []rune(s)
	if len(runes) <= limit {
		return s
	}
	return string(runes[:limit])
}
