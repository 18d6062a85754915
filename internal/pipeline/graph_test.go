package pipeline

import (
	"context"
	"errors"
	"reflect"
	"testing"

	"github.com/kukjun/ai-agent-playground/internal/core/domain"
	"github.com/kukjun/ai-agent-playground/internal/core/ports"
)

// funcStage adapts a function to ports.Stage.
type funcStage struct {
	name string
	fn   func(ctx context.Context, state domain.RunState, emit ports.EmitFunc) (domain.StateUpdate, error)
}

func (s *funcStage) Name() string { return s.name }

func (s *funcStage) Run(ctx context.Context, state domain.RunState, emit ports.EmitFunc) (domain.StateUpdate, error) {
	if s.fn == nil {
		return domain.StateUpdate{}, nil
	}
	return s.fn(ctx, state, emit)
}

func noop(name string) *funcStage { return &funcStage{name: name} }

func buildGraph(t *testing.T, nodes []string, edges [][2]string) *Graph {
	t.Helper()
	g := NewGraph()
	for _, n := range nodes {
		if err := g.AddNode(noop(n)); err != nil {
			t.Fatalf("AddNode(%s) error = %v", n, err)
		}
	}
	for _, e := range edges {
		if err := g.AddEdge(e[0], e[1]); err != nil {
			t.Fatalf("AddEdge(%s, %s) error = %v", e[0], e[1], err)
		}
	}
	return g
}

func TestGraph_CompileLinear(t *testing.T) {
	// Nodes are added out of order; the plan follows the edges.
	g := buildGraph(t, []string{"c", "a", "b"}, [][2]string{
		{"b", "c"},
		{Start, "a"},
		{"c", End},
		{"a", "b"},
	})

	plan, err := g.Compile()
	if err != nil {
		t.Fatalf("Compile() error = %v", err)
	}
	if got, want := plan.Names(), []string{"a", "b", "c"}; !reflect.DeepEqual(got, want) {
		t.Errorf("Names() = %v, want %v", got, want)
	}
}

func TestGraph_CompileErrors(t *testing.T) {
	tests := []struct {
		name  string
		nodes []string
		edges [][2]string
		want  error
	}{
		{
			name:  "no entry",
			nodes: []string{"a"},
			edges: [][2]string{{"a", End}},
			want:  ErrGraphNoEntry,
		},
		{
			name:  "branch",
			nodes: []string{"a", "b", "c"},
			edges: [][2]string{{Start, "a"}, {"a", "b"}, {"a", "c"}, {"b", End}, {"c", End}},
			want:  ErrGraphBranch,
		},
		{
			name:  "cycle",
			nodes: []string{"a", "b"},
			edges: [][2]string{{Start, "a"}, {"a", "b"}, {"b", "a"}},
			want:  ErrGraphCycle,
		},
		{
			name:  "dead end",
			nodes: []string{"a", "b"},
			edges: [][2]string{{Start, "a"}, {"a", "b"}},
			want:  ErrGraphDeadEnd,
		},
		{
			name:  "unreachable node",
			nodes: []string{"a", "orphan"},
			edges: [][2]string{{Start, "a"}, {"a", End}},
			want:  ErrGraphUnreachable,
		},
		{
			name:  "side entry into path",
			nodes: []string{"a", "b", "side"},
			edges: [][2]string{{Start, "a"}, {"a", "b"}, {"side", "b"}, {"b", End}},
			want:  ErrGraphUnreachable,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := buildGraph(t, tt.nodes, tt.edges).Compile()
			if !errors.Is(err, tt.want) {
				t.Errorf("Compile() error = %v, want %v", err, tt.want)
			}
		})
	}
}

func TestGraph_AddErrors(t *testing.T) {
	g := NewGraph()
	if err := g.AddNode(noop("a")); err != nil {
		t.Fatal(err)
	}

	if err := g.AddNode(noop("a")); err == nil {
		t.Error("duplicate node should fail")
	}
	if err := g.AddNode(noop(Start)); err == nil {
		t.Error("reserved name should fail")
	}
	if err := g.AddNode(noop("")); err == nil {
		t.Error("empty name should fail")
	}
	if err := g.AddEdge("a", "missing"); err == nil {
		t.Error("edge to unknown node should fail")
	}
	if err := g.AddEdge(End, "a"); err == nil {
		t.Error("edge out of end should fail")
	}
	if err := g.AddEdge("a", Start); err == nil {
		t.Error("edge into start should fail")
	}
}

func TestDefaultGraph(t *testing.T) {
	g, err := DefaultGraph(nil, nil, nil, nil)
	if err != nil {
		t.Fatalf("DefaultGraph() error = %v", err)
	}
	plan, err := g.Compile()
	if err != nil {
		t.Fatalf("Compile() error = %v", err)
	}
	if got := plan.Names(); !reflect.DeepEqual(got, domain.DefaultStageNames) {
		t.Errorf("Names() = %v, want %v", got, domain.DefaultStageNames)
	}
}
