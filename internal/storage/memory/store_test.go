package memory

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/kukjun/ai-agent-playground/internal/core/domain"
)

func TestMemoryStore_Save(t *testing.T) {
	fixed := time.Date(2026, 1, 2, 3, 4, 5, 0, time.UTC)
	store := New(WithClock(func() time.Time { return fixed }))

	rec, err := store.Save(context.Background(), domain.RecordPayload{
		UserInput: "hello",
		Analysis:  "greeting",
		Response:  "hi",
	})
	if err != nil {
		t.Fatalf("Save() error = %v", err)
	}

	if rec.ID == "" {
		t.Error("expected an ID to be assigned")
	}
	if !rec.CreatedAt.Equal(fixed) {
		t.Errorf("CreatedAt = %v, want %v", rec.CreatedAt, fixed)
	}
	if rec.UserInput != "hello" || rec.Analysis != "greeting" || rec.Response != "hi" {
		t.Errorf("payload not copied: %+v", rec)
	}

	rec.Response = "mutated"
	records, _ := store.List(context.Background())
	if len(records) != 1 {
		t.Fatalf("List() len = %d, want 1", len(records))
	}
	if records[0].Response != "hi" {
		t.Error("returned record must not alias stored record")
	}
}

func TestMemoryStore_UniqueIDs(t *testing.T) {
	store := New()

	var wg sync.WaitGroup
	for i := 0; i < 50; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, _ = store.Save(context.Background(), domain.RecordPayload{UserInput: "x"})
		}()
	}
	wg.Wait()

	records, _ := store.List(context.Background())
	if len(records) != 50 {
		t.Fatalf("List() len = %d, want 50", len(records))
	}
	seen := make(map[string]bool)
	for _, r := range records {
		if seen[r.ID] {
			t.Fatalf("duplicate id %s", r.ID)
		}
		seen[r.ID] = true
	}
}

func TestMemoryStore_LatencyHonorsContext(t *testing.T) {
	store := New(WithLatency(time.Hour))
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := store.Save(ctx, domain.RecordPayload{UserInput: "x"})
	if !errors.Is(err, context.Canceled) {
		t.Fatalf("expected context.Canceled, got %v", err)
	}
	records, _ := store.List(context.Background())
	if len(records) != 0 {
		t.Error("cancelled save must not store a record")
	}
}
