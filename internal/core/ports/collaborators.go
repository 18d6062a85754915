package ports

import (
	"context"

	"github.com/kukjun/ai-agent-playground/internal/core/domain"
)

// Generator produces a lazy sequence of text fragments for a prompt.
// The returned channel is closed when generation ends; a fragment carrying
// Err terminates the sequence with a failure.
type Generator interface {
	Generate(ctx context.Context, prompt string) (<-chan domain.Fragment, error)
}

// RecordStore persists pipeline results.
// Implementations: memory (default), SQLite.
type RecordStore interface {
	Save(ctx context.Context, payload domain.RecordPayload) (*domain.Record, error)
	List(ctx context.Context) ([]*domain.Record, error)
	Close() error
}

// Transport delivers events to one client connection.
type Transport interface {
	// Deliver queues ev for connID, preserving call order. It returns
	// domain.ErrSessionGone if the connection has closed.
	Deliver(ctx context.Context, connID string, ev domain.OutboundEvent) error
}
