package pipeline

import (
	"errors"
	"fmt"

	"github.com/kukjun/ai-agent-playground/internal/core/ports"
)

// Sentinel node names marking the entry and exit of a graph.
const (
	Start = "__start__"
	End   = "__end__"
)

var (
	ErrGraphCycle       = errors.New("graph contains a cycle")
	ErrGraphBranch      = errors.New("graph branches: a node has more than one successor")
	ErrGraphNoEntry     = errors.New("graph has no edge from start")
	ErrGraphDeadEnd     = errors.New("graph path does not reach end")
	ErrGraphUnreachable = errors.New("graph has nodes off the start-to-end path")
)

// Graph is a directed acyclic graph of stages with one start and one end.
type Graph struct {
	nodes map[string]ports.Stage
	order []string
	edges map[string][]string
}

// NewGraph creates an empty graph.
func NewGraph() *Graph {
	return &Graph{
		nodes: make(map[string]ports.Stage),
		edges: make(map[string][]string),
	}
}

// AddNode registers a stage under its name.
func (g *Graph) AddNode(stage ports.Stage) error {
	name := stage.Name()
	if name == "" || name == Start || name == End {
		return fmt.Errorf("invalid stage name %q", name)
	}
	if _, exists := g.nodes[name]; exists {
		return fmt.Errorf("stage %s already added", name)
	}
	g.nodes[name] = stage
	g.order = append(g.order, name)
	return nil
}

// AddEdge connects two nodes. Either side may be Start or End respectively.
func (g *Graph) AddEdge(from, to string) error {
	if from == End {
		return fmt.Errorf("edge cannot leave %s", End)
	}
	if to == Start {
		return fmt.Errorf("edge cannot enter %s", Start)
	}
	if from != Start {
		if _, ok := g.nodes[from]; !ok {
			return fmt.Errorf("unknown stage %s", from)
		}
	}
	if to != End {
		if _, ok := g.nodes[to]; !ok {
			return fmt.Errorf("unknown stage %s", to)
		}
	}
	for _, existing := range g.edges[from] {
		if existing == to {
			return nil
		}
	}
	g.edges[from] = append(g.edges[from], to)
	return nil
}

// Compile validates the graph and returns the stage execution plan.
func (g *Graph) Compile() (*Plan, error) {
	if len(g.edges[Start]) == 0 {
		return nil, ErrGraphNoEntry
	}
	for _, from := range append([]string{Start}, g.order...) {
		if len(g.edges[from]) > 1 {
			return nil, fmt.Errorf("%w: %s", ErrGraphBranch, from)
		}
	}
	if err := g.checkAcyclic(); err != nil {
		return nil, err
	}

	plan := &Plan{}
	visited := make(map[string]bool, len(g.nodes))
	current := Start
	for {
		next := g.edges[current]
		if len(next) == 0 {
			return nil, fmt.Errorf("%w: stops at %s", ErrGraphDeadEnd, current)
		}
		current = next[0]
		if current == End {
			break
		}
		visited[current] = true
		plan.stages = append(plan.stages, g.nodes[current])
	}

	for _, name := range g.order {
		if !visited[name] {
			return nil, fmt.Errorf("%w: %s", ErrGraphUnreachable, name)
		}
	}
	return plan, nil
}

// checkAcyclic runs Kahn's algorithm over all nodes including the sentinels.
func (g *Graph) checkAcyclic() error {
	all := append([]string{Start, End}, g.order...)
	indegree := make(map[string]int, len(all))
	for _, n := range all {
		indegree[n] += 0
		for _, to := range g.edges[n] {
			indegree[to]++
		}
	}

	queue := make([]string, 0, len(all))
	for _, n := range all {
		if indegree[n] == 0 {
			queue = append(queue, n)
		}
	}
	seen := 0
	for len(queue) > 0 {
		n := queue[0]
		queue = queue[1:]
		seen++
		for _, to := range g.edges[n] {
			indegree[to]--
			if indegree[to] == 0 {
				queue = append(queue, to)
			}
		}
	}
	if seen != len(all) {
		return ErrGraphCycle
	}
	return nil
}

// Plan is the compiled, ordered list of stages.
type Plan struct {
	stages []ports.Stage
}

// Stages returns the stages in execution order.
func (p *Plan) Stages() []ports.Stage {
	return p.stages
}

// Names returns the stage names in execution order.
func (p *Plan) Names() []string {
	names := make([]string, len(p.stages))
	for i, s := range p.stages {
		names[i] = s.Name()
	}
	return names
}
