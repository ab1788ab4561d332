package enforce

// BlockError is the caller-visible error body for a blocked request. It is a
// normal policy outcome, not a system fault.
type BlockError struct {
	Type       string   `json:"type"`
	Code       string   `json:"code"`
	Message    string   `json:"message"`
	Violations []string `json:"violations"`
	RequestID  string   `json:"request_id,omitempty"`
}

// BlockEnvelope wraps a BlockError in the wire format
// {"error": {...}} returned to the caller with HTTP 403.
type BlockEnvelope struct {
	Error BlockError `json:"error"`
}

// blockCodes maps decision reasons to stable error codes.
var blockCodes = map[Reason]string{
	ReasonPII:             "pii_detected",
	ReasonModelNotAllowed: "model_not_allowed",
	ReasonAppNotAllowed:   "app_not_allowed",
}

// NewBlockEnvelope builds the caller-visible response for a blocking
// decision, enumerating the triggering PII types or the identity-gate
// reason.
func NewBlockEnvelope(d Decision, requestID string) BlockEnvelope {
	code, ok := blockCodes[d.Reason]
	if !ok {
		code = "policy_violation"
	}
	return BlockEnvelope{
		Error: BlockError{
			Type:       "policy_violation",
			Code:       code,
			Message:    d.Message,
			Violations: append([]string(nil), d.Violations...),
			RequestID:  requestID,
		},
	}
}
