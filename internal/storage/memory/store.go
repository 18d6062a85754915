package memory

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/kukjun/ai-agent-playground/internal/core/domain"
	"github.com/kukjun/ai-agent-playground/internal/core/ports"
)

// Store is an in-memory RecordStore. Records live for the lifetime of the
// process.
type Store struct {
	mu      sync.RWMutex
	records []*domain.Record
	latency time.Duration
	now     func() time.Time
}

var _ ports.RecordStore = (*Store)(nil)

// Option configures the store.
type Option func(*Store)

// WithLatency delays every Save, simulating a remote database.
func WithLatency(d time.Duration) Option {
	return func(s *Store) {
		s.latency = d
	}
}

// WithClock overrides the creation timestamp source.
func WithClock(now func() time.Time) Option {
	return func(s *Store) {
		s.now = now
	}
}

// New creates a new in-memory store
func New(opts ...Option) *Store {
	s := &Store{now: time.Now}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

func (s *Store) Save(ctx context.Context, payload domain.RecordPayload) (*domain.Record, error) {
	if s.latency > 0 {
		timer := time.NewTimer(s.latency)
		defer timer.Stop()
		select {
		case <-timer.C:
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}

	rec := &domain.Record{
		ID:        uuid.NewString(),
		CreatedAt: s.now().UTC(),
		UserInput: payload.UserInput,
		Analysis:  payload.Analysis,
		Response:  payload.Response,
	}

	s.mu.Lock()
	s.records = append(s.records, rec)
	s.mu.Unlock()

	out := *rec
	return &out, nil
}

// List returns copies of all records in insertion order.
func (s *Store) List(ctx context.Context) ([]*domain.Record, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]*domain.Record, len(s.records))
	for i, rec := range s.records {
		r := *rec
		out[i] = &r
	}
	return out, nil
}

func (s *Store) Close() error {
	return nil
}
