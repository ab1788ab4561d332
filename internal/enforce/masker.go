package enforce

import (
	"fmt"

	"github.com/complyon/ai-gateway/internal/pii"
	"github.com/complyon/ai-gateway/models"
)

// MaskPlaceholder returns the redaction placeholder for a PII type, e.g.
// "[EMAIL_REDACTED]".
func MaskPlaceholder(t pii.Type) string {
	return fmt.Sprintf("[%s_REDACTED]", t)
}

// MaskMessages returns a copy of the messages with every finding of a
// triggering type replaced by its placeholder. Messages without triggering
// findings are passed through untouched; with zero findings the result is
// byte-identical to the input.
//
// Spans within one message are applied right-to-left so an earlier
// replacement never invalidates the offsets of later ones. Non-triggering
// findings (for example warn-only types in the same message) are left as-is.
func MaskMessages(messages []models.Message, scan *pii.ScanResult, types []pii.Type) []models.Message {
	if scan == nil || len(types) == 0 {
		return messages
	}

	want := make(map[pii.Type]struct{}, len(types))
	for _, t := range types {
		want[t] = struct{}{}
	}

	out := models.CloneMessages(messages)
	for _, mf := range scan.Messages {
		if mf.Index < 0 || mf.Index >= len(out) {
			continue
		}
		masked, changed := maskContent(out[mf.Index].Content, mf.Findings, want)
		if changed {
			out[mf.Index].Content = masked
		}
	}
	return out
}

// maskRegion is a contiguous stretch of content to replace with one
// placeholder. Overlapping triggering spans are merged into their union so no
// fragment of any triggering finding survives; the widest contributing span
// names the placeholder.
type maskRegion struct {
	start, end int
	t          pii.Type
	width      int
}

func maskContent(content string, findings []pii.Finding, want map[pii.Type]struct{}) (string, bool) {
	// Findings arrive sorted by start offset, so merging only ever extends
	// the last region.
	var regions []maskRegion
	for _, f := range findings {
		if _, ok := want[f.Type]; !ok {
			continue
		}
		if f.Start < 0 || f.End > len(content) || f.Start >= f.End {
			continue
		}
		width := f.End - f.Start
		if n := len(regions); n > 0 && f.Start < regions[n-1].end {
			r := &regions[n-1]
			if f.End > r.end {
				r.end = f.End
			}
			if width > r.width {
				r.t, r.width = f.Type, width
			}
			continue
		}
		regions = append(regions, maskRegion{start: f.Start, end: f.End, t: f.Type, width: width})
	}
	if len(regions) == 0 {
		return content, false
	}

	// Apply right-to-left so an earlier replacement never invalidates the
	// offsets of later ones.
	for i := len(regions) - 1; i >= 0; i-- {
		r := regions[i]
		content = content[:r.start] + MaskPlaceholder(r.t) + content[r.end:]
	}
	return content, true
}
