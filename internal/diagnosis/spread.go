package diagnosis

import (
	"fmt"
	"strings"

	"github.com/antzucaro/matchr"
)

// AlternativeSpread describes how much the alternative transcripts diverge
// from the primary one. Low similarity between candidates indicates the
// recognizer was unsure, which usually tracks unclear pronunciation.
//
// Returns the empty string when there are no alternatives.
func AlternativeSpread(primary string, alternatives []string) string {
	if len(alternatives) == 0 {
		return ""
	}

	var b strings.Builder
	for i, alt := range alternatives {
		if alt == "" {
			continue
		}
		sim := matchr.JaroWinkler(primary, alt, false)
		if b.Len() > 0 {
			b.WriteString("\n")
		}
		fmt.Fprintf(&b, "候補%d: %s (一致度 %.2f)", i+1, alt, sim)
	}
	return b.String()
}
