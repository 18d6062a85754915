package pipeline

import (
	"fmt"
	"log/slog"

	"github.com/kukjun/ai-agent-playground/internal/config"
	"github.com/kukjun/ai-agent-playground/internal/core/domain"
	"github.com/kukjun/ai-agent-playground/internal/core/ports"
	"github.com/kukjun/ai-agent-playground/internal/metrics"
	"github.com/kukjun/ai-agent-playground/internal/tokens"
)

// DefaultGraph wires Start -> analyzer -> generator -> saver -> End.
func DefaultGraph(gen ports.Generator, store ports.RecordStore, counter *tokens.Counter, logger *slog.Logger) (*Graph, error) {
	g := NewGraph()
	stages := []ports.Stage{
		NewAnalyzerStage(gen, counter, logger),
		NewGeneratorStage(gen, counter, logger),
		NewSaverStage(store),
	}
	for _, s := range stages {
		if err := g.AddNode(s); err != nil {
			return nil, err
		}
	}

	edges := [][2]string{
		{Start, domain.StageAnalyzer},
		{domain.StageAnalyzer, domain.StageGenerator},
		{domain.StageGenerator, domain.StageSaver},
		{domain.StageSaver, End},
	}
	for _, e := range edges {
		if err := g.AddEdge(e[0], e[1]); err != nil {
			return nil, err
		}
	}
	return g, nil
}

// NewExecutorFromConfig compiles the default graph and creates its executor.
func NewExecutorFromConfig(cfg config.PipelineConfig, gen ports.Generator, store ports.RecordStore, counter *tokens.Counter, logger *slog.Logger, m *metrics.Metrics) (*Executor, error) {
	g, err := DefaultGraph(gen, store, counter, logger)
	if err != nil {
		return nil, fmt.Errorf("build graph: %w", err)
	}
	plan, err := g.Compile()
	if err != nil {
		return nil, fmt.Errorf("compile graph: %w", err)
	}
	return NewExecutor(plan,
		WithEventBuffer(cfg.EventBuffer),
		WithLogger(logger),
		WithMetrics(m),
	), nil
}
