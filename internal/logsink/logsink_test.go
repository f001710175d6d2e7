package logsink

import (
	"testing"
	"time"
)

func TestSpreadsheetKey(t *testing.T) {
	tests := []struct {
		name  string
		input string
		want  string
	}{
		{
			name:  "full URL",
			input: "https://docs.google.com/spreadsheets/d/1AbC-dEf_123/edit#gid=0",
			want:  "1AbC-dEf_123",
		},
		{
			name:  "URL without fragment",
			input: "https://docs.google.com/spreadsheets/d/1AbC-dEf_123",
			want:  "1AbC-dEf_123",
		},
		{
			name:  "bare key",
			input: "1AbC-dEf_123",
			want:  "1AbC-dEf_123",
		},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			if got := SpreadsheetKey(tc.input); got != tc.want {
				t.Errorf("SpreadsheetKey(%q) = %q, want %q", tc.input, got, tc.want)
			}
		})
	}
}

func TestRecordRowPlaceholders(t *testing.T) {
	ts := time.Date(2026, 8, 23, 10, 30, 0, 0, time.UTC)

	rec := Record{
		Timestamp:   ts,
		Score:       "87",
		Clarity:     "A",
		Naturalness: "B",
		Excerpt:     "全体的に明瞭です。",
	}
	row := rec.Row()

	want := []any{"2026-08-23 10:30:00", "anonymous", "unknown", "87", "A", "B", "全体的に明瞭です。"}
	if len(row) != len(want) {
		t.Fatalf("row length = %d, want %d", len(row), len(want))
	}
	for i := range want {
		if row[i] != want[i] {
			t.Errorf("row[%d] = %v, want %v", i, row[i], want[i])
		}
	}
}

func TestRecordRowWithMetadata(t *testing.T) {
	rec := Record{
		Timestamp:   time.Date(2026, 8, 23, 0, 0, 0, 0, time.UTC),
		LearnerName: "ラオ・ミン",
		Nationality: "ベトナム",
		Score:       "92",
		Clarity:     "S",
		Naturalness: "A",
	}
	row := rec.Row()
	if row[1] != "ラオ・ミン" || row[2] != "ベトナム" {
		t.Errorf("row metadata = %v/%v, want learner name and nationality preserved", row[1], row[2])
	}
}
