// Package logsink appends one summary row per completed analysis to an
// external spreadsheet. Appends are best-effort: a failure is surfaced as a
// warning and never rolls back the analysis.
package logsink

import (
	"context"
	"time"
)

// Record is one spreadsheet row of extracted summary data.
type Record struct {
	Timestamp   time.Time
	LearnerName string
	Nationality string
	Score       string
	Clarity     string
	Naturalness string
	Excerpt     string
}

// Row flattens the record into the append payload, applying the "anonymous"
// and "unknown" placeholders for missing learner metadata.
func (r Record) Row() []any {
	name := r.LearnerName
	if name == "" {
		name = "anonymous"
	}
	nationality := r.Nationality
	if nationality == "" {
		nationality = "unknown"
	}
	return []any{
		r.Timestamp.Format("2006-01-02 15:04:05"),
		name,
		nationality,
		r.Score,
		r.Clarity,
		r.Naturalness,
		r.Excerpt,
	}
}

// Sink appends session records to an external log.
type Sink interface {
	Append(ctx context.Context, rec Record) error
}
