package speech

import "time"

// Word holds per-word metadata from recognizers that support word-level output.
type Word struct {
	// Text is the recognized word.
	Text string

	// Confidence is the recognizer's confidence for this word (0.0–1.0).
	Confidence float64

	// Start is the word's start offset from the beginning of the audio.
	Start time.Duration
}

// Transcription is the result of one recognition request.
// It is immutable after creation and is discarded at the end of the request;
// nothing in this package persists it.
type Transcription struct {
	// Transcript is the top alternative of every result segment, concatenated
	// in segment order.
	Transcript string

	// Words lists per-word confidence and timing for the top alternatives.
	// Every word is retained regardless of confidence.
	Words []Word

	// Alternatives holds the non-top alternative transcripts the service
	// returned, in the order they appeared.
	Alternatives []string
}
