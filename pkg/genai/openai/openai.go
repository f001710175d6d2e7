// Package openai provides a genai.Generator backed by the OpenAI API.
//
// Unlike the anyllm backend it also implements genai.ModelLister, so it can
// participate in model auto-discovery.
package openai

import (
	"context"
	"fmt"
	"net/http"
	"time"

	oai "github.com/openai/openai-go"
	"github.com/openai/openai-go/option"

	"github.com/hatsuonlab/hatsuon/pkg/genai"
)

// Compile-time assertions.
var (
	_ genai.Generator   = (*Generator)(nil)
	_ genai.ModelLister = (*Generator)(nil)
)

// config holds optional configuration for the generator.
type config struct {
	baseURL string
	timeout time.Duration
}

// Option is a functional option for Generator.
type Option func(*config)

// WithBaseURL overrides the default OpenAI API base URL. Used to target
// OpenAI-compatible servers and mock servers in tests.
func WithBaseURL(url string) Option {
	return func(c *config) { c.baseURL = url }
}

// WithTimeout sets a per-request HTTP timeout.
func WithTimeout(d time.Duration) Option {
	return func(c *config) { c.timeout = d }
}

// Generator implements genai.Generator using the OpenAI chat completions API.
type Generator struct {
	client oai.Client
	model  string
}

// New constructs a Generator for the given API key and model.
func New(apiKey, model string, opts ...Option) (*Generator, error) {
	if apiKey == "" {
		return nil, fmt.Errorf("openai: apiKey must not be empty")
	}
	if model == "" {
		return nil, fmt.Errorf("openai: model must not be empty")
	}

	cfg := &config{}
	for _, o := range opts {
		o(cfg)
	}

	reqOpts := []option.RequestOption{option.WithAPIKey(apiKey)}
	if cfg.baseURL != "" {
		reqOpts = append(reqOpts, option.WithBaseURL(cfg.baseURL))
	}
	if cfg.timeout > 0 {
		reqOpts = append(reqOpts, option.WithHTTPClient(&http.Client{Timeout: cfg.timeout}))
	}

	return &Generator{client: oai.NewClient(reqOpts...), model: model}, nil
}

// Name implements genai.Generator.
func (g *Generator) Name() string { return g.model }

// Generate implements genai.Generator.
func (g *Generator) Generate(ctx context.Context, prompt string) (string, error) {
	resp, err := g.client.Chat.Completions.New(ctx, oai.ChatCompletionNewParams{
		Model: g.model,
		Messages: []oai.ChatCompletionMessageParamUnion{
			oai.UserMessage(prompt),
		},
	})
	if err != nil {
		return "", fmt.Errorf("openai: completion with %s: %w", g.model, err)
	}
	if len(resp.Choices) == 0 {
		return "", fmt.Errorf("openai: empty choices in %s response", g.model)
	}
	return resp.Choices[0].Message.Content, nil
}

// ListModels implements genai.ModelLister by querying the models endpoint.
func (g *Generator) ListModels(ctx context.Context) ([]string, error) {
	page, err := g.client.Models.List(ctx)
	if err != nil {
		return nil, fmt.Errorf("openai: list models: %w", err)
	}
	names := make([]string, 0, len(page.Data))
	for _, m := range page.Data {
		names = append(names, m.ID)
	}
	return names, nil
}
