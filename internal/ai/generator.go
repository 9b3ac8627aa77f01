// Package ai is the boundary to external text generation.
//
// Failures never escape as panics or bare errors: every call returns a Result
// carrying either the generated text or the reason it could not be produced.
package ai

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/example/overseer/internal/config"
)

// ErrNotConfigured is the Result error of a generator built without a provider or key.
var ErrNotConfigured = errors.New("ai: text generation is not configured")

// Prompt is a single-turn request.
type Prompt struct {
	System    string
	User      string
	MaxTokens int
}

// Result is the outcome of a generation: Text on success, Err otherwise.
type Result struct {
	Text string
	Err  error
}

// OK reports whether the result carries text.
func (r Result) OK() bool { return r.Err == nil }

// Generator produces text from a prompt.
type Generator interface {
	Generate(ctx context.Context, p Prompt) Result
}

// New builds the generator selected by cfg.LLM. An empty provider or API key
// yields a generator that always fails with ErrNotConfigured.
func New(cfg config.Config) (Generator, error) {
	llm := cfg.LLM
	if llm.Provider == "" || llm.APIKey == "" {
		return Disabled{}, nil
	}

	var (
		g   Generator
		err error
	)
	switch llm.Provider {
	case "openai":
		g = NewOpenAI(llm.APIKey, llm.BaseURL, llm.ModelName(), cfg.LLMTimeout())
	case "gemini":
		g, err = NewGemini(context.Background(), llm.APIKey, llm.ModelName())
	default:
		return nil, fmt.Errorf("ai: unknown provider %q", llm.Provider)
	}
	if err != nil {
		return nil, err
	}
	return WithDefaults(g, llm.MaxTokens, cfg.LLMTimeout()), nil
}

// Disabled is the generator used when no provider is configured.
type Disabled struct{}

// Generate always fails with ErrNotConfigured.
func (Disabled) Generate(context.Context, Prompt) Result {
	return Result{Err: ErrNotConfigured}
}

type defaults struct {
	next      Generator
	maxTokens int
	timeout   time.Duration
}

// WithDefaults wraps g so that prompts without MaxTokens get maxTokens and
// every call is bounded by timeout (zero means no bound).
func WithDefaults(g Generator, maxTokens int, timeout time.Duration) Generator {
	return defaults{next: g, maxTokens: maxTokens, timeout: timeout}
}

func (d defaults) Generate(ctx context.Context, p Prompt) Result {
	if p.MaxTokens == 0 {
		p.MaxTokens = d.maxTokens
	}
	if d.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, d.timeout)
		defer cancel()
	}
	return d.next.Generate(ctx, p)
}
