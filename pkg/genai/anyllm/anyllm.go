// Package anyllm provides a genai.Generator backed by
// github.com/mozilla-ai/any-llm-go, a unified multi-provider interface that
// supports Gemini, OpenAI, Anthropic, Ollama, and others.
//
// The diagnosis pipeline uses the Gemini backend by default:
//
//	g, err := anyllm.NewGemini("gemini-1.5-flash", anyllmlib.WithAPIKey("..."))
package anyllm

import (
	"context"
	"fmt"
	"strings"

	anyllmlib "github.com/mozilla-ai/any-llm-go"
	"github.com/mozilla-ai/any-llm-go/providers/anthropic"
	"github.com/mozilla-ai/any-llm-go/providers/gemini"
	"github.com/mozilla-ai/any-llm-go/providers/ollama"
	anyllmoai "github.com/mozilla-ai/any-llm-go/providers/openai"

	"github.com/hatsuonlab/hatsuon/pkg/genai"
)

// Compile-time assertion.
var _ genai.Generator = (*Generator)(nil)

// Generator implements genai.Generator by wrapping any-llm-go.
type Generator struct {
	backend anyllmlib.Provider
	model   string
}

// New creates a Generator for the given provider name and model.
//
// providerName is one of: "gemini", "openai", "anthropic", "ollama".
// opts are any-llm-go options (anyllmlib.WithAPIKey, anyllmlib.WithBaseURL).
// Without an API key option the provider falls back to its environment
// variable (GEMINI_API_KEY, OPENAI_API_KEY, ...).
func New(providerName, model string, opts ...anyllmlib.Option) (*Generator, error) {
	if providerName == "" {
		return nil, fmt.Errorf("anyllm: providerName must not be empty")
	}
	if model == "" {
		return nil, fmt.Errorf("anyllm: model must not be empty")
	}
	backend, err := createBackend(providerName, opts...)
	if err != nil {
		return nil, fmt.Errorf("anyllm: create %q backend: %w", providerName, err)
	}
	return &Generator{backend: backend, model: model}, nil
}

// NewGemini creates a Generator backed by Google Gemini.
// Without options, it reads the GEMINI_API_KEY or GOOGLE_API_KEY environment variable.
func NewGemini(model string, opts ...anyllmlib.Option) (*Generator, error) {
	return New("gemini", model, opts...)
}

// createBackend creates the underlying any-llm-go provider.
func createBackend(providerName string, opts ...anyllmlib.Option) (anyllmlib.Provider, error) {
	switch strings.ToLower(providerName) {
	case "gemini":
		return gemini.New(opts...)
	case "openai":
		return anyllmoai.New(opts...)
	case "anthropic":
		return anthropic.New(opts...)
	case "ollama":
		return ollama.New(opts...)
	default:
		return nil, fmt.Errorf("unsupported provider %q; supported: gemini, openai, anthropic, ollama", providerName)
	}
}

// Name implements genai.Generator.
func (g *Generator) Name() string { return g.model }

// Generate implements genai.Generator. The prompt is sent as a single
// user-role message; the first choice's content is returned verbatim.
func (g *Generator) Generate(ctx context.Context, prompt string) (string, error) {
	params := anyllmlib.CompletionParams{
		Model: g.model,
		Messages: []anyllmlib.Message{
			{Role: anyllmlib.RoleUser, Content: prompt},
		},
	}

	resp, err := g.backend.Completion(ctx, params)
	if err != nil {
		return "", fmt.Errorf("anyllm: completion with %s: %w", g.model, err)
	}
	if len(resp.Choices) == 0 {
		return "", fmt.Errorf("anyllm: empty choices in %s response", g.model)
	}
	return resp.Choices[0].Message.ContentString(), nil
}
