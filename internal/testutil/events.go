package testutil

import (
	"testing"
	"time"

	"github.com/kukjun/ai-agent-playground/internal/core/domain"
)

// Collect drains events until the channel closes or timeout elapses.
func Collect(t *testing.T, events <-chan domain.Event, timeout time.Duration) []domain.Event {
	t.Helper()

	var out []domain.Event
	deadline := time.After(timeout)
	for {
		select {
		case ev, ok := <-events:
			if !ok {
				return out
			}
			out = append(out, ev)
		case <-deadline:
			t.Fatalf("timed out after %v with %d events", timeout, len(out))
			return out
		}
	}
}
