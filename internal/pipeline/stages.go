package pipeline

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"github.com/kukjun/ai-agent-playground/internal/core/domain"
	"github.com/kukjun/ai-agent-playground/internal/core/ports"
	"github.com/kukjun/ai-agent-playground/internal/tokens"
)

// AnalyzerStage asks the model to interpret the user input and writes Analysis.
type AnalyzerStage struct {
	gen     ports.Generator
	counter *tokens.Counter
	logger  *slog.Logger
}

// NewAnalyzerStage creates the analyzer stage. counter may be nil.
func NewAnalyzerStage(gen ports.Generator, counter *tokens.Counter, logger *slog.Logger) *AnalyzerStage {
	return &AnalyzerStage{gen: gen, counter: counter, logger: orDefault(logger)}
}

func (s *AnalyzerStage) Name() string { return domain.StageAnalyzer }

func (s *AnalyzerStage) Run(ctx context.Context, state domain.RunState, emit ports.EmitFunc) (domain.StateUpdate, error) {
	text, err := streamText(ctx, s.gen, analyzerPrompt(state.UserInput), emit)
	if err != nil {
		return domain.StateUpdate{}, err
	}
	logOutput(ctx, s.logger, s.counter, s.Name(), text)
	return domain.StateUpdate{Analysis: &text}, nil
}

// GeneratorStage writes Response from the input and the analysis.
type GeneratorStage struct {
	gen     ports.Generator
	counter *tokens.Counter
	logger  *slog.Logger
}

// NewGeneratorStage creates the generator stage. counter may be nil.
func NewGeneratorStage(gen ports.Generator, counter *tokens.Counter, logger *slog.Logger) *GeneratorStage {
	return &GeneratorStage{gen: gen, counter: counter, logger: orDefault(logger)}
}

func (s *GeneratorStage) Name() string { return domain.StageGenerator }

func (s *GeneratorStage) Run(ctx context.Context, state domain.RunState, emit ports.EmitFunc) (domain.StateUpdate, error) {
	if state.Analysis == nil {
		return domain.StateUpdate{}, fmt.Errorf("analysis missing from run state")
	}
	text, err := streamText(ctx, s.gen, generatorPrompt(state.UserInput, *state.Analysis), emit)
	if err != nil {
		return domain.StateUpdate{}, err
	}
	logOutput(ctx, s.logger, s.counter, s.Name(), text)
	return domain.StateUpdate{Response: &text}, nil
}

// SaverStage persists the run result and writes SavedRecord. It emits no
// fragments.
type SaverStage struct {
	store ports.RecordStore
}

// NewSaverStage creates the persistence stage.
func NewSaverStage(store ports.RecordStore) *SaverStage {
	return &SaverStage{store: store}
}

func (s *SaverStage) Name() string { return domain.StageSaver }

func (s *SaverStage) Run(ctx context.Context, state domain.RunState, _ ports.EmitFunc) (domain.StateUpdate, error) {
	if state.Analysis == nil || state.Response == nil {
		return domain.StateUpdate{}, fmt.Errorf("analysis and response are required before saving")
	}
	rec, err := s.store.Save(ctx, domain.RecordPayload{
		UserInput: state.UserInput,
		Analysis:  *state.Analysis,
		Response:  *state.Response,
	})
	if err != nil {
		return domain.StateUpdate{}, fmt.Errorf("save record: %w", err)
	}
	return domain.StateUpdate{SavedRecord: rec}, nil
}

// streamText drains a generation stream, forwarding every fragment, and
// returns the concatenated text.
func streamText(ctx context.Context, gen ports.Generator, prompt string, emit ports.EmitFunc) (string, error) {
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	fragments, err := gen.Generate(ctx, prompt)
	if err != nil {
		return "", fmt.Errorf("generate: %w", err)
	}

	var sb strings.Builder
	for {
		select {
		case <-ctx.Done():
			return "", ctx.Err()
		case frag, ok := <-fragments:
			if !ok {
				return sb.String(), nil
			}
			if frag.Err != nil {
				return "", fmt.Errorf("generate: %w", frag.Err)
			}
			if frag.Content == "" {
				continue
			}
			sb.WriteString(frag.Content)
			if err := emit(frag.Content); err != nil {
				return "", err
			}
		}
	}
}

func logOutput(ctx context.Context, logger *slog.Logger, counter *tokens.Counter, stage, text string) {
	attrs := []slog.Attr{slog.String("stage", stage), slog.Int("chars", len(text))}
	if counter != nil {
		attrs = append(attrs, slog.Int("tokens", counter.Count(text)))
	}
	logger.LogAttrs(ctx, slog.LevelDebug, "stage output", attrs...)
}

func orDefault(logger *slog.Logger) *slog.Logger {
	if logger == nil {
		return slog.Default()
	}
	return logger
}
