package resilience

import (
	"errors"
	"fmt"
	"log/slog"
)

// ErrAllFailed is returned when every candidate in a [Chain] fails or has an
// open circuit breaker.
var ErrAllFailed = errors.New("all candidates failed")

// candidate pairs a value with its dedicated circuit breaker.
type candidate[T any] struct {
	name    string
	value   T
	breaker *CircuitBreaker
}

// Chain tries an ordered list of candidates of the same type until one
// succeeds. Candidates are attempted in registration order; a candidate whose
// breaker is open is skipped without an attempt.
//
// Chain is safe for concurrent use after construction. Candidates must all be
// added before the first Try call.
type Chain[T any] struct {
	candidates []candidate[T]
	breakerCfg BreakerConfig
}

// NewChain creates a [Chain] whose per-candidate breakers use cfg.
func NewChain[T any](cfg BreakerConfig) *Chain[T] {
	return &Chain[T]{breakerCfg: cfg}
}

// Add appends a candidate. Earlier candidates are preferred.
func (c *Chain[T]) Add(name string, value T) {
	bc := c.breakerCfg
	bc.Name = name
	c.candidates = append(c.candidates, candidate[T]{
		name:    name,
		value:   value,
		breaker: NewCircuitBreaker(bc),
	})
}

// Len returns the number of registered candidates.
func (c *Chain[T]) Len() int { return len(c.candidates) }

// Names returns the candidate names in priority order.
func (c *Chain[T]) Names() []string {
	names := make([]string, len(c.candidates))
	for i, cand := range c.candidates {
		names[i] = cand.name
	}
	return names
}

// Try runs fn against each candidate in order until one succeeds. Returns
// [ErrAllFailed] wrapped with the last error when every candidate fails.
func (c *Chain[T]) Try(fn func(T) error) error {
	_, err := Try(c, func(v T) (struct{}, error) {
		return struct{}{}, fn(v)
	})
	return err
}

// Try runs fn against each candidate in ch until one succeeds, returning that
// candidate's result. It is a package-level function because Go does not
// support method-level type parameters.
//
// Per-candidate failures are logged and swallowed; only when every candidate
// fails does the caller see an error, wrapping [ErrAllFailed] and the last
// failure.
func Try[T any, R any](ch *Chain[T], fn func(T) (R, error)) (R, error) {
	var (
		lastErr error
		zero    R
	)
	for i := range ch.candidates {
		cand := &ch.candidates[i]
		var result R
		err := cand.breaker.Do(func() error {
			var innerErr error
			result, innerErr = fn(cand.value)
			return innerErr
		})
		if err == nil {
			return result, nil
		}
		lastErr = err
		if errors.Is(err, ErrCircuitOpen) {
			slog.Debug("skipping candidate (circuit open)", "candidate", cand.name)
		} else {
			slog.Warn("candidate failed, trying next",
				"candidate", cand.name, "error", err)
		}
	}
	return zero, fmt.Errorf("%w: %v", ErrAllFailed, lastErr)
}
