package diagnosis

import (
	"regexp"
	"strings"
)

// Sentinel values used when a field cannot be extracted from the report.
// Extraction never fails the pipeline; it only gates spreadsheet logging.
const (
	ScoreNotFound   = "0"
	RatingNotFound  = "-"
	ExcerptNotFound = "抽出失敗"
)

// Summary holds the fields pattern-matched out of a free-text report.
type Summary struct {
	// Score is the overall score as a decimal string ("87"), or
	// [ScoreNotFound] when the label was not found.
	Score string

	// Clarity and Naturalness are single-letter ratings (S/A/B/C), or
	// [RatingNotFound].
	Clarity     string
	Naturalness string

	// Excerpt is the 総評 section body, or [ExcerptNotFound].
	Excerpt string
}

// The report layout is dictated by the prompt; these patterns tolerate the
// decoration drifting (bold markers, full-width colons, spacing) but not the
// labels themselves changing.
var (
	scoreRe       = regexp.MustCompile(`総合音声スコア[^0-9]{0,10}(\d{1,3})`)
	clarityRe     = regexp.MustCompile(`明瞭度[^SABC]{0,10}([SABC])`)
	naturalnessRe = regexp.MustCompile(`自然さ[^SABC]{0,10}([SABC])`)
)

const excerptHeader = "## 総評"

// Extract pattern-matches score, ratings, and the 総評 excerpt out of report.
// Each field degrades independently to its sentinel; Extract is pure and
// never returns an error.
func Extract(report string) Summary {
	s := Summary{
		Score:       ScoreNotFound,
		Clarity:     RatingNotFound,
		Naturalness: RatingNotFound,
		Excerpt:     ExcerptNotFound,
	}

	if m := scoreRe.FindStringSubmatch(report); m != nil {
		s.Score = m[1]
	}
	if m := clarityRe.FindStringSubmatch(report); m != nil {
		s.Clarity = m[1]
	}
	if m := naturalnessRe.FindStringSubmatch(report); m != nil {
		s.Naturalness = m[1]
	}
	if excerpt, ok := sliceSection(report, excerptHeader); ok {
		s.Excerpt = excerpt
	}
	return s
}

// Extracted reports whether score extraction succeeded. Spreadsheet logging
// is attempted only for extracted summaries.
func (s Summary) Extracted() bool {
	return s.Score != ScoreNotFound
}

// sliceSection returns the trimmed text between header and the next "##"
// section delimiter (or end of text).
func sliceSection(report, header string) (string, bool) {
	start := strings.Index(report, header)
	if start < 0 {
		return "", false
	}
	body := report[start+len(header):]
	if end := strings.Index(body, "##"); end >= 0 {
		body = body[:end]
	}
	body = strings.TrimSpace(body)
	if body == "" {
		return "", false
	}
	return body, true
}
