// Package mock provides a configurable in-memory genai.Generator for tests.
package mock

import (
	"context"
	"sync"

	"github.com/hatsuonlab/hatsuon/pkg/genai"
)

// Compile-time assertion.
var _ genai.Generator = (*Generator)(nil)

// Generator is a test double for genai.Generator.
type Generator struct {
	ModelName string
	Response  string
	Err       error

	// GenerateFunc, when non-nil, overrides Response/Err.
	GenerateFunc func(ctx context.Context, prompt string) (string, error)

	mu      sync.Mutex
	prompts []string
}

// Name implements genai.Generator.
func (m *Generator) Name() string {
	if m.ModelName == "" {
		return "mock"
	}
	return m.ModelName
}

// Generate implements genai.Generator.
func (m *Generator) Generate(ctx context.Context, prompt string) (string, error) {
	m.mu.Lock()
	m.prompts = append(m.prompts, prompt)
	m.mu.Unlock()

	if m.GenerateFunc != nil {
		return m.GenerateFunc(ctx, prompt)
	}
	if m.Err != nil {
		return "", m.Err
	}
	return m.Response, nil
}

// Prompts returns every prompt passed to Generate so far.
func (m *Generator) Prompts() []string {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]string, len(m.prompts))
	copy(out, m.prompts)
	return out
}

// CallCount returns how many times Generate was invoked.
func (m *Generator) CallCount() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.prompts)
}
