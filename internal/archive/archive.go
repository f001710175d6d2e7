// Package archive persists completed analysis sessions so teachers can
// review past diagnoses. Archiving is optional and best-effort: a storage
// failure never affects the analysis result shown to the teacher.
package archive

import (
	"context"
	"time"
)

// Entry is one archived analysis session.
type Entry struct {
	// SessionID is the unique session identifier.
	SessionID string

	// LearnerName is empty for anonymous sessions.
	LearnerName string

	// Nationality is empty when unknown.
	Nationality string

	// Transcript is the recognized text.
	Transcript string

	// Report is the full generated diagnosis report.
	Report string

	// Score, Clarity, and Naturalness are the extracted summary fields
	// (sentinels when extraction failed).
	Score       string
	Clarity     string
	Naturalness string

	// CreatedAt is when the analysis completed.
	CreatedAt time.Time
}

// Store persists and retrieves archived sessions.
type Store interface {
	// Save archives one session.
	Save(ctx context.Context, e *Entry) error

	// List returns the most recent sessions, newest first, up to limit.
	// A non-positive limit applies a default.
	List(ctx context.Context, limit int) ([]Entry, error)

	// Ping verifies the backing store is reachable.
	Ping(ctx context.Context) error
}
