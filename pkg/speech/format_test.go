package speech

import (
	"strings"
	"testing"
	"time"
)

func TestFormatDetail_LowConfidenceMarker(t *testing.T) {
	tests := []struct {
		name       string
		confidence float64
		wantMarker bool
	}{
		{"well below threshold", 0.3, true},
		{"just below threshold", 0.79, true},
		{"at threshold", 0.8, false},
		{"above threshold", 0.95, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			detail := FormatDetail([]Word{{Text: "こんにちは", Confidence: tt.confidence}})
			got := strings.Contains(detail, warnMarker)
			if got != tt.wantMarker {
				t.Fatalf("marker present = %v, want %v (detail %q)", got, tt.wantMarker, detail)
			}
		})
	}
}

func TestFormatDetail_IncludesTimingAndOrder(t *testing.T) {
	words := []Word{
		{Text: "今日", Confidence: 0.92, Start: 0},
		{Text: "は", Confidence: 0.75, Start: 1500 * time.Millisecond},
	}
	detail := FormatDetail(words)

	lines := strings.Split(detail, "\n")
	if len(lines) != 2 {
		t.Fatalf("got %d lines, want 2: %q", len(lines), detail)
	}
	if !strings.Contains(lines[0], "今日") || !strings.Contains(lines[1], "は") {
		t.Fatalf("word order lost: %q", detail)
	}
	if !strings.Contains(lines[1], "[1.5s]") {
		t.Fatalf("start offset missing from %q", lines[1])
	}
	if strings.Contains(lines[0], warnMarker) {
		t.Fatalf("high-confidence word flagged: %q", lines[0])
	}
	if !strings.HasPrefix(lines[1], warnMarker) {
		t.Fatalf("low-confidence word not flagged: %q", lines[1])
	}
}

func TestFormatDetail_Empty(t *testing.T) {
	if got := FormatDetail(nil); got != "" {
		t.Fatalf("FormatDetail(nil) = %q, want empty", got)
	}
}
