// Package mock provides a configurable in-memory speech.Recognizer for tests.
package mock

import (
	"context"
	"sync"

	"github.com/hatsuonlab/hatsuon/pkg/speech"
)

// Compile-time assertion.
var _ speech.Recognizer = (*Recognizer)(nil)

// Recognizer is a test double for speech.Recognizer. Set either Result/Err
// for fixed behaviour or RecognizeFunc for per-call control.
type Recognizer struct {
	Result *speech.Transcription
	Err    error

	// RecognizeFunc, when non-nil, overrides Result/Err.
	RecognizeFunc func(ctx context.Context, audio []byte, cfg speech.Config) (*speech.Transcription, error)

	mu    sync.Mutex
	calls []speech.Config
}

// Recognize implements speech.Recognizer.
func (m *Recognizer) Recognize(ctx context.Context, audio []byte, cfg speech.Config) (*speech.Transcription, error) {
	m.mu.Lock()
	m.calls = append(m.calls, cfg)
	m.mu.Unlock()

	if m.RecognizeFunc != nil {
		return m.RecognizeFunc(ctx, audio, cfg)
	}
	if m.Err != nil {
		return nil, m.Err
	}
	return m.Result, nil
}

// Calls returns the configs of all Recognize invocations so far.
func (m *Recognizer) Calls() []speech.Config {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]speech.Config, len(m.calls))
	copy(out, m.calls)
	return out
}
