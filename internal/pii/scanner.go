package pii

import (
	"sort"

	"github.com/complyon/ai-gateway/models"
)

// DefaultMaxScanChars caps the total number of characters scanned per
// request. Content past the cap is not inspected, which bounds scan CPU time
// regardless of request size.
const DefaultMaxScanChars = 1 << 20

// MessageFindings holds the findings for one message of a conversation.
type MessageFindings struct {
	Index    int
	Role     string
	Findings []Finding
}

// ScanResult aggregates the findings across every message of one request.
// Like findings themselves it is ephemeral and never retained across
// requests.
type ScanResult struct {
	Messages        []MessageFindings
	TotalFindings   int
	HighestSeverity Severity

	// Truncated reports that the per-request character cap was reached and
	// part of the conversation went unscanned.
	Truncated bool
}

// HasPII reports whether any finding was produced.
func (r *ScanResult) HasPII() bool {
	return r != nil && r.TotalFindings > 0
}

// Types returns the distinct PII types found, sorted for deterministic
// downstream evaluation.
func (r *ScanResult) Types() []Type {
	if r == nil {
		return nil
	}
	set := make(map[Type]struct{})
	for _, m := range r.Messages {
		for _, f := range m.Findings {
			set[f.Type] = struct{}{}
		}
	}
	types := make([]Type, 0, len(set))
	for t := range set {
		types = append(types, t)
	}
	sort.Slice(types, func(i, j int) bool { return types[i] < types[j] })
	return types
}

// CriticalFound reports whether any finding carries CRITICAL severity.
func (r *ScanResult) CriticalFound() bool {
	return r != nil && r.HighestSeverity == SeverityCritical
}

// FindingsOfTypes returns all findings whose type is in the given set,
// flattened across messages in message order.
func (r *ScanResult) FindingsOfTypes(types []Type) []Finding {
	if r == nil || len(types) == 0 {
		return nil
	}
	want := make(map[Type]struct{}, len(types))
	for _, t := range types {
		want[t] = struct{}{}
	}
	var out []Finding
	for _, m := range r.Messages {
		for _, f := range m.Findings {
			if _, ok := want[f.Type]; ok {
				out = append(out, f)
			}
		}
	}
	return out
}

// Scanner runs the detector over every message of a request. It is stateless,
// makes no network or persistence calls, and is safe for concurrent use.
type Scanner struct {
	detector *Detector
	maxChars int
}

// NewScanner creates a scanner. A maxChars of zero or less falls back to
// DefaultMaxScanChars.
func NewScanner(detector *Detector, maxChars int) *Scanner {
	if detector == nil {
		detector = NewDetector()
	}
	if maxChars <= 0 {
		maxChars = DefaultMaxScanChars
	}
	return &Scanner{detector: detector, maxChars: maxChars}
}

// Scan inspects every message in order and aggregates the findings. Once the
// character budget is exhausted the remaining content is skipped and the
// result is marked truncated.
func (s *Scanner) Scan(messages []models.Message) *ScanResult {
	result := &ScanResult{HighestSeverity: SeverityLow}
	budget := s.maxChars

	for i, msg := range messages {
		if budget <= 0 {
			result.Truncated = true
			break
		}

		content := msg.Content
		if len(content) > budget {
			content = content[:budget]
			result.Truncated = true
		}
		budget -= len(content)

		findings := s.detector.Detect(content)
		if len(findings) == 0 {
			continue
		}

		result.Messages = append(result.Messages, MessageFindings{
			Index:    i,
			Role:     msg.Role,
			Findings: findings,
		})
		result.TotalFindings += len(findings)
		for _, f := range findings {
			if f.Severity.Rank() > result.HighestSeverity.Rank() {
				result.HighestSeverity = f.Severity
			}
		}
	}

	return result
}
