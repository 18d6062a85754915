// Package openai adapts an OpenAI-compatible chat completion stream to the
// pipeline's text generator contract.
package openai

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"

	openaiapi "github.com/kukjun/ai-agent-playground/internal/api/openai"
	"github.com/kukjun/ai-agent-playground/internal/config"
	"github.com/kukjun/ai-agent-playground/internal/core/domain"
	"github.com/kukjun/ai-agent-playground/internal/core/ports"
)

// Option configures the generator.
type Option func(*Generator)

// WithHTTPClient sets a custom HTTP client.
func WithHTTPClient(httpClient *http.Client) Option {
	return func(g *Generator) {
		g.httpClient = httpClient
	}
}

// WithLogger sets the logger.
func WithLogger(logger *slog.Logger) Option {
	return func(g *Generator) {
		g.logger = logger
	}
}

// Generator streams single-prompt completions from one model.
type Generator struct {
	client      *openaiapi.Client
	model       string
	temperature *float32
	httpClient  *http.Client
	logger      *slog.Logger
}

var _ ports.Generator = (*Generator)(nil)

// New creates a generator for the configured endpoint and model.
func New(cfg config.LLMConfig, opts ...Option) *Generator {
	g := &Generator{
		model:  cfg.Model,
		logger: slog.Default(),
	}
	if cfg.Temperature > 0 {
		t := cfg.Temperature
		g.temperature = &t
	}
	for _, opt := range opts {
		opt(g)
	}

	clientOpts := []openaiapi.ClientOption{openaiapi.WithBaseURL(cfg.BaseURL)}
	if g.httpClient != nil {
		clientOpts = append(clientOpts, openaiapi.WithHTTPClient(g.httpClient))
	}
	g.client = openaiapi.NewClient(cfg.APIKey, clientOpts...)
	return g
}

// Model returns the model name sent with every request.
func (g *Generator) Model() string {
	return g.model
}

// Generate sends prompt as a single user message and streams the reply.
func (g *Generator) Generate(ctx context.Context, prompt string) (<-chan domain.Fragment, error) {
	stream, err := g.client.StreamChatCompletion(ctx, &openaiapi.ChatCompletionRequest{
		Model:       g.model,
		Messages:    []openaiapi.ChatCompletionMessage{{Role: openaiapi.RoleUser, Content: prompt}},
		Temperature: g.temperature,
	})
	if err != nil {
		return nil, fmt.Errorf("stream %s: %w", g.model, err)
	}

	out := make(chan domain.Fragment)
	go func() {
		defer close(out)
		for result := range stream {
			var frag domain.Fragment
			switch {
			case result.Err != nil:
				frag.Err = result.Err
			case result.Chunk.Usage != nil:
				g.logger.Debug("completion usage",
					slog.String("model", g.model),
					slog.Int("prompt_tokens", result.Chunk.Usage.PromptTokens),
					slog.Int("completion_tokens", result.Chunk.Usage.CompletionTokens))
				frag.Content = result.Chunk.Content()
			default:
				frag.Content = result.Chunk.Content()
			}
			if frag.Err == nil && frag.Content == "" {
				continue
			}
			select {
			case out <- frag:
			case <-ctx.Done():
				// The client closes its stream once ctx is done.
				for range stream {
				}
				return
			}
			if frag.Err != nil {
				return
			}
		}
	}()
	return out, nil
}
