package session

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"go.uber.org/goleak"

	"github.com/kukjun/ai-agent-playground/internal/core/domain"
	"github.com/kukjun/ai-agent-playground/internal/core/ports"
	"github.com/kukjun/ai-agent-playground/internal/pipeline"
	"github.com/kukjun/ai-agent-playground/internal/storage/memory"
	"github.com/kukjun/ai-agent-playground/internal/testutil"
	"github.com/kukjun/ai-agent-playground/internal/translator"
)

func TestMain(m *testing.M) {
	goleak.VerifyTestMain(m)
}

type fakeTransport struct {
	mu     sync.Mutex
	events map[string][]domain.OutboundEvent
}

func newFakeTransport() *fakeTransport {
	return &fakeTransport{events: make(map[string][]domain.OutboundEvent)}
}

func (f *fakeTransport) Deliver(_ context.Context, connID string, ev domain.OutboundEvent) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.events[connID] = append(f.events[connID], ev)
	return nil
}

func (f *fakeTransport) names(connID string) []domain.OutboundName {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []domain.OutboundName
	for _, ev := range f.events[connID] {
		out = append(out, ev.Name)
	}
	return out
}

type finished struct {
	connID string
	runID  string
	res    translator.Result
}

type harness struct {
	registry  *Registry
	transport *fakeTransport
	finished  chan finished
}

func newHarness(t *testing.T, gen ports.Generator) *harness {
	t.Helper()
	g, err := pipeline.DefaultGraph(gen, memory.New(), nil, nil)
	if err != nil {
		t.Fatal(err)
	}
	plan, err := g.Compile()
	if err != nil {
		t.Fatal(err)
	}
	h := &harness{transport: newFakeTransport(), finished: make(chan finished, 16)}
	h.registry = New(context.Background(), pipeline.NewExecutor(plan), h.transport,
		translator.New(domain.DefaultStageNames),
		WithRunHook(func(connID, runID string, res translator.Result) {
			h.finished <- finished{connID: connID, runID: runID, res: res}
		}))
	t.Cleanup(h.registry.Close)
	return h
}

func (h *harness) wait(t *testing.T) finished {
	t.Helper()
	select {
	case f := <-h.finished:
		return f
	case <-time.After(5 * time.Second):
		t.Fatal("run did not finish")
		return finished{}
	}
}

func TestRegistry_ConnectAndMessage(t *testing.T) {
	h := newHarness(t, testutil.NewScriptedGenerator(
		testutil.Script{Fragments: []string{"hi"}},
		testutil.Script{Fragments: []string{"ok"}},
	))

	if err := h.registry.Connect("c1"); err != nil {
		t.Fatalf("Connect() error = %v", err)
	}
	if err := h.registry.Connect("c1"); !errors.Is(err, domain.ErrSessionExists) {
		t.Errorf("duplicate Connect() error = %v", err)
	}

	runID, err := h.registry.Message("c1", "hello")
	if err != nil {
		t.Fatalf("Message() error = %v", err)
	}
	f := h.wait(t)
	if f.runID != runID || f.res.Outcome != translator.OutcomeCompleted {
		t.Errorf("finished = %+v", f)
	}

	names := h.transport.names("c1")
	if len(names) == 0 || names[len(names)-1] != domain.OutboundDone {
		t.Errorf("events = %v", names)
	}
	if _, ok := h.registry.Active("c1"); ok {
		t.Error("run still active after finishing")
	}
}

func TestRegistry_MessageErrors(t *testing.T) {
	h := newHarness(t, testutil.NewScriptedGenerator())
	if err := h.registry.Connect("c1"); err != nil {
		t.Fatal(err)
	}

	tests := []struct {
		name   string
		connID string
		input  string
		want   error
	}{
		{"unknown session", "nope", "hello", domain.ErrUnknownSession},
		{"empty", "c1", "", domain.ErrEmptyMessage},
		{"blank", "c1", "  \n", domain.ErrEmptyMessage},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := h.registry.Message(tt.connID, tt.input); !errors.Is(err, tt.want) {
				t.Errorf("Message() error = %v, want %v", err, tt.want)
			}
		})
	}
}

func TestRegistry_SecondMessageRejectedWhileRunning(t *testing.T) {
	gate := make(chan struct{})
	h := newHarness(t, testutil.NewScriptedGenerator(
		testutil.Script{Fragments: []string{"a"}, Gate: gate},
		testutil.Script{Fragments: []string{"b"}},
	))
	if err := h.registry.Connect("c1"); err != nil {
		t.Fatal(err)
	}

	first, err := h.registry.Message("c1", "one")
	if err != nil {
		t.Fatal(err)
	}
	if _, err := h.registry.Message("c1", "two"); !errors.Is(err, domain.ErrAlreadyRunning) {
		t.Fatalf("second Message() error = %v, want ErrAlreadyRunning", err)
	}
	if active, ok := h.registry.Active("c1"); !ok || active != first {
		t.Errorf("Active() = %q, %v", active, ok)
	}

	close(gate)
	f := h.wait(t)
	if f.runID != first || f.res.Outcome != translator.OutcomeCompleted {
		t.Errorf("first run finished with %+v", f)
	}
}

func TestRegistry_DisconnectMidRun(t *testing.T) {
	gate := make(chan struct{})
	h := newHarness(t, testutil.NewScriptedGenerator(
		testutil.Script{Fragments: []string{"a"}, Gate: gate},
		testutil.Script{Fragments: []string{"b"}},
	))
	if err := h.registry.Connect("c1"); err != nil {
		t.Fatal(err)
	}
	if _, err := h.registry.Message("c1", "hello"); err != nil {
		t.Fatal(err)
	}

	deadline := time.Now().Add(5 * time.Second)
	for len(h.transport.names("c1")) == 0 {
		if time.Now().After(deadline) {
			t.Fatal("node_start never delivered")
		}
		time.Sleep(5 * time.Millisecond)
	}

	h.registry.Disconnect("c1")
	close(gate)

	f := h.wait(t)
	if f.res.Outcome != translator.OutcomeCancelled {
		t.Errorf("outcome = %s, want cancelled", f.res.Outcome)
	}
	if names := h.transport.names("c1"); len(names) != 1 || names[0] != domain.OutboundNodeStart {
		t.Errorf("events after disconnect = %v", names)
	}
	if h.registry.Len() != 0 {
		t.Errorf("Len() = %d, want 0", h.registry.Len())
	}
	if _, err := h.registry.Message("c1", "again"); !errors.Is(err, domain.ErrUnknownSession) {
		t.Errorf("Message() after disconnect error = %v", err)
	}
}

func TestRegistry_SessionsAreIsolated(t *testing.T) {
	h := newHarness(t, testutil.LoopGenerator{Fragments: []string{"x"}})

	conns := []string{"a", "b", "c"}
	for _, c := range conns {
		if err := h.registry.Connect(c); err != nil {
			t.Fatal(err)
		}
		if _, err := h.registry.Message(c, "input-"+c); err != nil {
			t.Fatal(err)
		}
	}
	for range conns {
		h.wait(t)
	}

	for _, c := range conns {
		h.transport.mu.Lock()
		events := h.transport.events[c]
		h.transport.mu.Unlock()

		var saved *domain.Record
		for _, ev := range events {
			if ev.Name == domain.OutboundDBSave {
				rec := ev.Data.(domain.Record)
				saved = &rec
			}
		}
		if saved == nil || saved.UserInput != "input-"+c {
			t.Errorf("connection %s received record %+v", c, saved)
		}
	}
}

func TestRegistry_CloseAbortsRuns(t *testing.T) {
	gate := make(chan struct{})
	defer close(gate)
	h := newHarness(t, testutil.NewScriptedGenerator(testutil.Script{Gate: gate}))
	if err := h.registry.Connect("c1"); err != nil {
		t.Fatal(err)
	}
	if _, err := h.registry.Message("c1", "hello"); err != nil {
		t.Fatal(err)
	}

	done := make(chan struct{})
	go func() {
		h.registry.Close()
		close(done)
	}()
	select {
	case <-done:
	case <-time.After(5 * time.Second):
		t.Fatal("Close() did not return")
	}
	if _, err := h.registry.Message("c1", "again"); err == nil {
		t.Error("Message() after Close() should fail")
	}
}
