package openai

import (
	"context"
	"errors"
	"strings"
	"testing"

	openaiapi "github.com/kukjun/ai-agent-playground/internal/api/openai"
	"github.com/kukjun/ai-agent-playground/internal/config"
	"github.com/kukjun/ai-agent-playground/internal/testutil"
)

func newTestGenerator(t *testing.T, cassette, model string) *Generator {
	t.Helper()
	recorder, cleanup := testutil.NewVCRRecorder(t, cassette)
	t.Cleanup(cleanup)

	return New(config.LLMConfig{
		BaseURL:     "http://localhost:11434/v1",
		Model:       model,
		Temperature: 0.7,
	}, WithHTTPClient(testutil.VCRHTTPClient(recorder)))
}

func TestGenerator_Stream(t *testing.T) {
	g := newTestGenerator(t, "ollama_stream", "gemma3:12b")

	fragments, err := g.Generate(context.Background(), "Say hello")
	if err != nil {
		t.Fatalf("Generate() error = %v", err)
	}

	var parts []string
	for f := range fragments {
		if f.Err != nil {
			t.Fatalf("fragment error: %v", f.Err)
		}
		if f.Content == "" {
			t.Error("empty fragment forwarded")
		}
		parts = append(parts, f.Content)
	}

	if got := strings.Join(parts, "|"); got != "Hello|,|there|!" {
		t.Errorf("fragments = %q", got)
	}
}

func TestGenerator_ModelNotFound(t *testing.T) {
	g := newTestGenerator(t, "ollama_error", "missing-model")

	_, err := g.Generate(context.Background(), "Say hello")
	var apiErr *openaiapi.APIError
	if !errors.As(err, &apiErr) {
		t.Fatalf("Generate() error = %v, want *APIError", err)
	}
	if apiErr.StatusCode != 404 {
		t.Errorf("status = %d, want 404", apiErr.StatusCode)
	}
	if !strings.Contains(err.Error(), "missing-model") {
		t.Errorf("error should name the model: %v", err)
	}
}
