// Package genai defines the Generator interface for text-generation backends
// that turn a diagnosis prompt into a free-text report.
//
// A Generator is bound to one model identifier. Trying several models in
// priority order is not a Generator concern — the resilience package composes
// Generators into an ordered fallback chain.
//
// Implementations must be safe for concurrent use.
package genai

import "context"

// Generator produces a report for a single-turn prompt using one fixed model.
type Generator interface {
	// Name identifies the backing model (e.g., "gemini-1.5-flash") for logs
	// and fallback bookkeeping.
	Name() string

	// Generate submits the prompt and returns the response text. It must
	// respect ctx cancellation. Any failure is returned as an error; callers
	// decide whether to fall back, swallow, or surface it.
	Generate(ctx context.Context, prompt string) (string, error)
}

// ModelLister is implemented by backends that can enumerate the model
// identifiers currently available to the caller's credentials. It backs the
// optional model auto-discovery step that replaces a stale static fallback
// list at startup.
type ModelLister interface {
	ListModels(ctx context.Context) ([]string, error)
}
