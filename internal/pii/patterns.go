package pii

import "regexp"

// Type identifies a category of personally identifiable information.
// The set of valid values is closed; policy documents referencing a type
// outside this enumeration fail validation.
type Type string

const (
	TypeEmail       Type = "EMAIL"
	TypePhone       Type = "PHONE"
	TypePAN         Type = "PAN"     // India PAN card
	TypeAadhaar     Type = "AADHAAR" // India Aadhaar
	TypeCreditCard  Type = "CREDIT_CARD"
	TypeSSN         Type = "SSN" // US Social Security Number
	TypeIPAddress   Type = "IP_ADDRESS"
	TypePassport    Type = "PASSPORT"
	TypeDateOfBirth Type = "DATE_OF_BIRTH"
	TypeBankAccount Type = "BANK_ACCOUNT"
)

// Severity classifies how sensitive a detected PII type is.
type Severity string

const (
	SeverityLow      Severity = "LOW"
	SeverityMedium   Severity = "MEDIUM"
	SeverityHigh     Severity = "HIGH"
	SeverityCritical Severity = "CRITICAL"
)

// severityRanks orders severities for aggregation.
var severityRanks = map[Severity]int{
	SeverityLow:      1,
	SeverityMedium:   2,
	SeverityHigh:     3,
	SeverityCritical: 4,
}

// Rank returns the numeric ordering of a severity, higher is more severe.
func (s Severity) Rank() int {
	return severityRanks[s]
}

var validTypes = map[Type]struct{}{
	TypeEmail:       {},
	TypePhone:       {},
	TypePAN:         {},
	TypeAadhaar:     {},
	TypeCreditCard:  {},
	TypeSSN:         {},
	TypeIPAddress:   {},
	TypePassport:    {},
	TypeDateOfBirth: {},
	TypeBankAccount: {},
}

// ParseType validates a PII type name against the closed enumeration.
func ParseType(s string) (Type, bool) {
	t := Type(s)
	_, ok := validTypes[t]
	return t, ok
}

// Pattern binds a compiled regular expression to the PII type and default
// severity it detects. Go's regexp package is RE2-based, so every pattern is
// non-backtracking and matching stays linear in the input length.
type Pattern struct {
	Type     Type
	Severity Severity
	Regexp   *regexp.Regexp

	// Verify optionally post-validates a raw match. Matches failing
	// verification are discarded (e.g. credit card numbers that fail the
	// Luhn checksum).
	Verify func(value string) bool
}

var (
	// RFC 5322 simplified.
	emailRegexp = regexp.MustCompile(`\b[A-Za-z0-9._%+\-]+@[A-Za-z0-9.\-]+\.[A-Za-z]{2,}\b`)

	// US and India formats: +1-555-123-4567, (555) 123-4567, 98765 43210.
	phoneRegexp = regexp.MustCompile(`(?:\+?1[-.\s]?)?(?:\+?91[-.\s]?)?(?:\(\d{3}\)|\d{3})[-.\s]?\d{3}[-.\s]?\d{4}|\b\d{5}[-.\s]?\d{5}\b`)

	// India PAN card: 5 letters, 4 digits, 1 letter.
	panRegexp = regexp.MustCompile(`\b[A-Z]{3}[ABCFGHLJPTK][A-Z]\d{4}[A-Z]\b`)

	// India Aadhaar: 12 digits, often grouped in fours.
	aadhaarRegexp = regexp.MustCompile(`\b\d{4}[-.\s]?\d{4}[-.\s]?\d{4}\b`)

	// Visa, Mastercard, Amex and Discover with optional separators.
	creditCardRegexp = regexp.MustCompile(`\b(?:4\d{3}[-.\s]?\d{4}[-.\s]?\d{4}[-.\s]?\d{4}|5[1-5]\d{2}[-.\s]?\d{4}[-.\s]?\d{4}[-.\s]?\d{4}|3[47]\d{2}[-.\s]?\d{6}[-.\s]?\d{5}|6(?:011|5\d{2})[-.\s]?\d{4}[-.\s]?\d{4}[-.\s]?\d{4})\b`)

	// US SSN: XXX-XX-XXXX with optional separators.
	ssnRegexp = regexp.MustCompile(`\b\d{3}[-.\s]?\d{2}[-.\s]?\d{4}\b`)

	// IPv4 only.
	ipAddressRegexp = regexp.MustCompile(`\b(?:(?:25[0-5]|2[0-4][0-9]|[01]?[0-9][0-9]?)\.){3}(?:25[0-5]|2[0-4][0-9]|[01]?[0-9][0-9]?)\b`)

	// Generic passport number: 1-2 letters followed by 6-8 digits.
	passportRegexp = regexp.MustCompile(`\b[A-Z]{1,2}\d{6,8}\b`)

	// DD/MM/YYYY, MM/DD/YYYY and YYYY-MM-DD.
	dateOfBirthRegexp = regexp.MustCompile(`\b(?:\d{1,2}[-/]\d{1,2}[-/]\d{2,4}|\d{4}[-/]\d{1,2}[-/]\d{1,2})\b`)
)

// DefaultPatterns returns the built-in detector set. There is deliberately no
// default detector for BANK_ACCOUNT: a bare 8-18 digit run is too noisy to
// detect by pattern, but the type stays in the enumeration so policies may
// reference it for custom deployments.
func DefaultPatterns() []Pattern {
	return []Pattern{
		{Type: TypeEmail, Severity: SeverityMedium, Regexp: emailRegexp},
		{Type: TypePhone, Severity: SeverityMedium, Regexp: phoneRegexp},
		{Type: TypePAN, Severity: SeverityCritical, Regexp: panRegexp},
		{Type: TypeAadhaar, Severity: SeverityCritical, Regexp: aadhaarRegexp},
		{Type: TypeCreditCard, Severity: SeverityCritical, Regexp: creditCardRegexp, Verify: luhnCheck},
		{Type: TypeSSN, Severity: SeverityCritical, Regexp: ssnRegexp, Verify: looksLikeSSN},
		{Type: TypeIPAddress, Severity: SeverityLow, Regexp: ipAddressRegexp},
		{Type: TypePassport, Severity: SeverityHigh, Regexp: passportRegexp},
		{Type: TypeDateOfBirth, Severity: SeverityMedium, Regexp: dateOfBirthRegexp},
	}
}
