package audit

import (
	"time"

	"github.com/google/uuid"

	"github.com/complyon/ai-gateway/internal/pii"
)

// Metadata carries per-request enforcement context on an audit record.
type Metadata struct {
	Action     string   `json:"action"`
	Violations []string `json:"violations,omitempty"`
	Reason     string   `json:"reason,omitempty"`
	ClientIP   string   `json:"client_ip,omitempty"`
}

// Record is one immutable audit trail entry. It never contains raw prompt
// text: the prompt is represented only by its one-way hash, computed from
// the original unmasked content so the same prompt audits to the same
// identity regardless of the enforcement outcome. Ownership passes to the
// audit sink once emitted.
type Record struct {
	ID               uuid.UUID  `json:"id"`
	OrgID            string     `json:"org_id"`
	AppID            string     `json:"app_id"`
	UserID           string     `json:"user_id,omitempty"`
	Model            string     `json:"model"`
	Provider         string     `json:"provider"`
	PromptHash       string     `json:"prompt_hash"`
	TokenCountInput  *int       `json:"token_count_input"`
	TokenCountOutput *int       `json:"token_count_output"`
	LatencyMs        *int       `json:"latency_ms"`
	RiskFlags        []pii.Type `json:"risk_flags"`
	Metadata         Metadata   `json:"metadata"`
	CreatedAt        time.Time  `json:"created_at"`
}

// NewRecord creates a record with identity fields populated and a fresh id.
func NewRecord(orgID, appID, model, provider string) *Record {
	if orgID == "" {
		orgID = "default"
	}
	if appID == "" {
		appID = "unknown"
	}
	return &Record{
		ID:        uuid.New(),
		OrgID:     orgID,
		AppID:     appID,
		Model:     model,
		Provider:  provider,
		CreatedAt: time.Now().UTC(),
	}
}

// WithUser sets the optional user id.
func (r *Record) WithUser(userID string) *Record {
	r.UserID = userID
	return r
}

// WithPromptHash sets the pre-mask prompt hash.
func (r *Record) WithPromptHash(hash string) *Record {
	r.PromptHash = hash
	return r
}

// WithRiskFlags records the PII types found in the prompt.
func (r *Record) WithRiskFlags(flags []pii.Type) *Record {
	r.RiskFlags = flags
	return r
}

// WithUsage sets token counts and latency once the provider call completed.
func (r *Record) WithUsage(tokensIn, tokensOut, latencyMs int) *Record {
	r.TokenCountInput = &tokensIn
	r.TokenCountOutput = &tokensOut
	r.LatencyMs = &latencyMs
	return r
}

// WithEnforcement records the computed action and its violations.
func (r *Record) WithEnforcement(action string, violations []string, reason, clientIP string) *Record {
	r.Metadata = Metadata{
		Action:     action,
		Violations: violations,
		Reason:     reason,
		ClientIP:   clientIP,
	}
	return r
}
