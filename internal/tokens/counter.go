// Package tokens counts tokens in generated text.
package tokens

import (
	"strings"
	"sync"

	"github.com/tiktoken-go/tokenizer"
)

// Counter counts tokens with a tiktoken encoding chosen from the model name.
// Models without a known encoding (local models such as gemma or llama) are
// counted with o200k_base, which tracks modern vocabularies closely enough
// for accounting. When no codec can be loaded the counter falls back to a
// characters-per-token estimate.
type Counter struct {
	model string

	once  sync.Once
	codec tokenizer.Codec

	// CharsPerToken is used by the estimate fallback (default: 4).
	CharsPerToken float64
}

// NewCounter creates a counter for model. The codec is loaded lazily.
func NewCounter(model string) *Counter {
	return &Counter{model: model, CharsPerToken: 4.0}
}

// Model returns the model name the counter was built for.
func (c *Counter) Model() string {
	return c.model
}

// Count returns the number of tokens in text.
func (c *Counter) Count(text string) int {
	if text == "" {
		return 0
	}
	c.once.Do(func() {
		codec, err := tokenizer.ForModel(tokenizer.Model(strings.ToLower(c.model)))
		if err != nil {
			codec, err = tokenizer.Get(modelToEncoding(c.model))
		}
		if err == nil {
			c.codec = codec
		}
	})
	if c.codec == nil {
		return c.estimate(text)
	}
	ids, _, err := c.codec.Encode(text)
	if err != nil {
		return c.estimate(text)
	}
	return len(ids)
}

func (c *Counter) estimate(text string) int {
	n := int(float64(len(text)) / c.CharsPerToken)
	if n == 0 {
		return 1
	}
	return n
}

// modelToEncoding maps model names to encoding names for fallback.
//
// Encoding reference:
// - O200kBase: GPT-4o, GPT-4.1, GPT-5, o-series and unknown models
// - Cl100kBase: GPT-4, GPT-3.5-turbo, text-embedding-ada-002
func modelToEncoding(model string) tokenizer.Encoding {
	model = strings.ToLower(model)

	switch {
	case strings.HasPrefix(model, "gpt-4o"), strings.HasPrefix(model, "gpt-4.1"), strings.HasPrefix(model, "gpt-5"):
		return tokenizer.O200kBase
	case strings.HasPrefix(model, "gpt-4"), strings.HasPrefix(model, "gpt-3.5"), strings.HasPrefix(model, "text-embedding"):
		return tokenizer.Cl100kBase
	default:
		return tokenizer.O200kBase
	}
}
