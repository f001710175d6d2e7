package speech

import (
	"fmt"
	"strings"
)

// LowConfidence is the per-word confidence threshold below which a word is
// flagged in the human-readable detail string. The word itself is always
// retained in the structured word list.
const LowConfidence = 0.8

// warnMarker prefixes low-confidence words in the detail string.
const warnMarker = "⚠"

// FormatDetail renders the word list as a human-readable detail string, one
// word per line with confidence and start offset. Words whose confidence is
// below [LowConfidence] are prefixed with a warning marker.
func FormatDetail(words []Word) string {
	var b strings.Builder
	for i, w := range words {
		if i > 0 {
			b.WriteByte('\n')
		}
		if w.Confidence < LowConfidence {
			b.WriteString(warnMarker)
			b.WriteByte(' ')
		}
		fmt.Fprintf(&b, "%s (信頼度 %.2f) [%.1fs]", w.Text, w.Confidence, w.Start.Seconds())
	}
	return b.String()
}
