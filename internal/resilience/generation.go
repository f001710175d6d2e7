package resilience

import (
	"context"
	"fmt"

	"github.com/hatsuonlab/hatsuon/pkg/genai"
)

// Compile-time assertion.
var _ genai.Generator = (*GeneratorChain)(nil)

// GeneratorChain is a genai.Generator that delegates to an ordered list of
// underlying generators, falling back down the list when one fails. The
// pipeline holds a single Generator; this type hides the fallback mechanics
// behind that interface.
type GeneratorChain struct {
	chain *Chain[genai.Generator]
}

// NewGeneratorChain builds a chain over gens in priority order.
// At least one generator is required.
func NewGeneratorChain(cfg BreakerConfig, gens ...genai.Generator) (*GeneratorChain, error) {
	if len(gens) == 0 {
		return nil, fmt.Errorf("resilience: at least one generator required")
	}
	chain := NewChain[genai.Generator](cfg)
	for _, g := range gens {
		chain.Add(g.Name(), g)
	}
	return &GeneratorChain{chain: chain}, nil
}

// Name returns the primary (first) generator's name.
func (gc *GeneratorChain) Name() string {
	return gc.chain.Names()[0]
}

// Models returns the underlying model names in fallback order.
func (gc *GeneratorChain) Models() []string {
	return gc.chain.Names()
}

// Generate tries each underlying generator in order until one returns a
// report. A context cancellation still walks the remaining candidates, but
// they fail fast, so the cancellation error surfaces wrapped in
// [ErrAllFailed].
func (gc *GeneratorChain) Generate(ctx context.Context, prompt string) (string, error) {
	return Try(gc.chain, func(g genai.Generator) (string, error) {
		return g.Generate(ctx, prompt)
	})
}
