// Package speech defines the Recognizer interface for cloud speech-to-text
// backends together with the transcript and word-confidence types the
// diagnosis pipeline consumes.
//
// Implementations must be safe for concurrent use; the server may run several
// analyses at once, each with its own recognition request.
package speech

import (
	"context"
	"errors"
	"time"
)

// DefaultTimeout bounds a single recognition request, long-running operation
// polling included.
const DefaultTimeout = 600 * time.Second

// ErrAuth indicates missing or malformed credentials for the recognition
// service. Callers surface it as an authentication error.
var ErrAuth = errors.New("speech: authentication failed")

// ErrNoSpeech indicates the service returned an empty result set, which
// happens for silence or pure noise. Callers surface it as
// "recognition not possible" and must not continue the pipeline.
var ErrNoSpeech = errors.New("speech: no speech recognized")

// Config is the fixed per-request recognition configuration.
type Config struct {
	// Language is the BCP-47 recognition language (e.g., "ja-JP").
	Language string

	// SampleRateHertz is the sample rate of the submitted audio. The
	// transcoder normalizes everything to 16000.
	SampleRateHertz int

	// Encoding names the audio codec of the submitted bytes ("mp3",
	// "linear16", "flac"). Empty lets the service detect it where supported.
	Encoding string

	// MaxAlternatives is the number of alternative transcripts requested
	// (1–5). Values outside that range are clamped by implementations.
	MaxAlternatives int

	// Punctuation enables automatic punctuation in the transcript.
	Punctuation bool

	// Timeout bounds the blocking wait for the recognition operation.
	// Zero means [DefaultTimeout].
	Timeout time.Duration
}

// Recognizer is the abstraction over a cloud speech-to-text backend.
type Recognizer interface {
	// Recognize submits audio for transcription and blocks until the result
	// is available or cfg.Timeout elapses. The audio must already be in the
	// format described by cfg.
	//
	// Errors are classified: [ErrAuth] for credential failures, [ErrNoSpeech]
	// for an empty result set, and any other error carries the service's
	// message for display to the teacher.
	Recognize(ctx context.Context, audio []byte, cfg Config) (*Transcription, error)
}
