package testutil

import (
	"context"
	"fmt"
	"sync"

	"github.com/kukjun/ai-agent-playground/internal/core/domain"
)

// Script describes the outcome of one Generate call.
type Script struct {
	// Fragments are streamed in order.
	Fragments []string
	// Err, when set, terminates the stream after Fragments.
	Err error
	// StartErr is returned by Generate itself.
	StartErr error
	// Gate, when non-nil, must be closed before the first fragment is sent.
	Gate <-chan struct{}
}

// ScriptedGenerator replays one Script per Generate call, in order.
type ScriptedGenerator struct {
	mu      sync.Mutex
	scripts []Script
	prompts []string
}

// NewScriptedGenerator creates a generator that replays scripts.
func NewScriptedGenerator(scripts ...Script) *ScriptedGenerator {
	return &ScriptedGenerator{scripts: scripts}
}

// Prompts returns the prompts received so far.
func (g *ScriptedGenerator) Prompts() []string {
	g.mu.Lock()
	defer g.mu.Unlock()
	return append([]string(nil), g.prompts...)
}

func (g *ScriptedGenerator) Generate(ctx context.Context, prompt string) (<-chan domain.Fragment, error) {
	g.mu.Lock()
	idx := len(g.prompts)
	g.prompts = append(g.prompts, prompt)
	if idx >= len(g.scripts) {
		g.mu.Unlock()
		return nil, fmt.Errorf("no script for call %d", idx)
	}
	script := g.scripts[idx]
	g.mu.Unlock()

	if script.StartErr != nil {
		return nil, script.StartErr
	}

	out := make(chan domain.Fragment)
	go func() {
		defer close(out)
		if script.Gate != nil {
			select {
			case <-script.Gate:
			case <-ctx.Done():
				return
			}
		}
		for _, f := range script.Fragments {
			select {
			case out <- domain.Fragment{Content: f}:
			case <-ctx.Done():
				return
			}
		}
		if script.Err != nil {
			select {
			case out <- domain.Fragment{Err: script.Err}:
			case <-ctx.Done():
			}
		}
	}()
	return out, nil
}

// LoopGenerator answers every prompt with the same fragments. It is safe for
// concurrent runs.
type LoopGenerator struct {
	Fragments []string
}

func (g LoopGenerator) Generate(ctx context.Context, prompt string) (<-chan domain.Fragment, error) {
	return NewScriptedGenerator(Script{Fragments: g.Fragments}).Generate(ctx, prompt)
}

// FailingStore is a RecordStore whose Save always fails.
type FailingStore struct {
	Err error
}

func (s FailingStore) Save(ctx context.Context, payload domain.RecordPayload) (*domain.Record, error) {
	return nil, s.Err
}

func (s FailingStore) List(ctx context.Context) ([]*domain.Record, error) {
	return nil, nil
}

func (s FailingStore) Close() error {
	return nil
}
