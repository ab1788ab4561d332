package pii

import (
	"sort"
	"strings"
)

// Finding is a single PII occurrence inside one piece of text. Start and End
// are byte offsets into the scanned content, End exclusive. Findings are
// ephemeral: created and consumed within the scope of one request.
type Finding struct {
	Type     Type     `json:"type"`
	Severity Severity `json:"severity"`
	Start    int      `json:"start"`
	End      int      `json:"end"`
}

// Detector scans text for PII using a fixed set of patterns. Detectors are
// stateless and safe for concurrent use.
type Detector struct {
	patterns []Pattern

	// onDetectorFailure, when set, is invoked with the failing pattern's
	// type after a recovered panic. Used for observability only.
	onDetectorFailure func(t Type)
}

// DetectorOption configures a Detector.
type DetectorOption func(*Detector)

// WithPatterns replaces the default pattern set.
func WithPatterns(patterns []Pattern) DetectorOption {
	return func(d *Detector) {
		d.patterns = patterns
	}
}

// WithFailureHook registers a callback invoked when a detector panics and is
// skipped for the current scan.
func WithFailureHook(hook func(t Type)) DetectorOption {
	return func(d *Detector) {
		d.onDetectorFailure = hook
	}
}

// NewDetector creates a detector with the built-in pattern set unless
// overridden by options.
func NewDetector(opts ...DetectorOption) *Detector {
	d := &Detector{patterns: DefaultPatterns()}
	for _, opt := range opts {
		opt(d)
	}
	return d
}

// Detect scans a single piece of text and returns the findings, sorted by
// start offset and deduplicated by (type, span). Overlapping spans of
// different types are all retained. A failing detector is skipped for this
// call only and never fails the scan as a whole.
func (d *Detector) Detect(text string) []Finding {
	if text == "" {
		return nil
	}

	var findings []Finding
	seen := make(map[Finding]struct{})

	for i := range d.patterns {
		for _, f := range d.applyPattern(&d.patterns[i], text) {
			if _, dup := seen[f]; dup {
				continue
			}
			seen[f] = struct{}{}
			findings = append(findings, f)
		}
	}

	sort.Slice(findings, func(i, j int) bool {
		if findings[i].Start != findings[j].Start {
			return findings[i].Start < findings[j].Start
		}
		return findings[i].Type < findings[j].Type
	})

	return findings
}

// applyPattern runs one pattern over the text, recovering from panics so a
// single misbehaving detector cannot take down the whole scan.
func (d *Detector) applyPattern(p *Pattern, text string) (findings []Finding) {
	defer func() {
		if r := recover(); r != nil {
			findings = nil
			if d.onDetectorFailure != nil {
				d.onDetectorFailure(p.Type)
			}
		}
	}()

	for _, loc := range p.Regexp.FindAllStringIndex(text, -1) {
		value := text[loc[0]:loc[1]]
		if p.Verify != nil && !p.Verify(value) {
			continue
		}
		findings = append(findings, Finding{
			Type:     p.Type,
			Severity: p.Severity,
			Start:    loc[0],
			End:      loc[1],
		})
	}
	return findings
}

// luhnCheck validates a candidate card number using the Luhn algorithm.
// Separators are stripped before checking.
func luhnCheck(cardNumber string) bool {
	var digits strings.Builder
	for _, r := range cardNumber {
		if r >= '0' && r <= '9' {
			digits.WriteRune(r)
		}
	}
	number := digits.String()

	if len(number) < 13 || len(number) > 19 {
		return false
	}

	sum := 0
	double := false
	for i := len(number) - 1; i >= 0; i-- {
		digit := int(number[i] - '0')
		if double {
			digit *= 2
			if digit > 9 {
				digit -= 9
			}
		}
		sum += digit
		double = !double
	}
	return sum%10 == 0
}

// looksLikeSSN rejects 9-digit numbers that cannot be valid SSNs.
func looksLikeSSN(value string) bool {
	var digits strings.Builder
	for _, r := range value {
		if r >= '0' && r <= '9' {
			digits.WriteRune(r)
		}
	}
	s := digits.String()
	if len(s) != 9 {
		return false
	}

	// Area 000, 666 and 900-999 are never issued; group and serial
	// cannot be all zeros.
	if s[:3] == "000" || s[:3] == "666" || s[0] == '9' {
		return false
	}
	if s[3:5] == "00" || s[5:] == "0000" {
		return false
	}
	return true
}
