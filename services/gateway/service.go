package gateway

import (
	"context"
	"time"

	"go.uber.org/zap"

	"github.com/complyon/ai-gateway/internal/alert"
	"github.com/complyon/ai-gateway/internal/audit"
	"github.com/complyon/ai-gateway/internal/enforce"
	"github.com/complyon/ai-gateway/internal/observability"
	"github.com/complyon/ai-gateway/internal/pii"
	"github.com/complyon/ai-gateway/internal/policy"
	"github.com/complyon/ai-gateway/internal/providers"
	"github.com/complyon/ai-gateway/models"
)

// Request is one chat completion passing through the enforcement pipeline.
// Payload is the caller's full request body; Messages is the extracted
// conversation the scanner and masker operate on.
type Request struct {
	OrgID     string
	AppID     string
	UserID    string
	Model     string
	Messages  []models.Message
	Payload   map[string]interface{}
	RequestID string
	ClientIP  string
}

// Result is the pipeline outcome. When Blocked is true the request never
// reached the provider and Response is nil; the handler renders the decision
// as a policy violation. Otherwise Response carries the upstream reply.
type Result struct {
	Decision enforce.Decision
	Blocked  bool
	Masked   bool
	Response *providers.Response
}

// Service runs the inline enforcement pipeline: scan, evaluate, enforce,
// forward, audit. Audit and alert emission are asynchronous and never delay
// or fail the request.
type Service struct {
	scanner    *pii.Scanner
	store      *policy.Store
	provider   providers.Provider
	emitter    *audit.Emitter
	dispatcher *alert.Dispatcher
	metrics    *observability.Metrics
	logger     *zap.Logger

	mode        enforce.Mode
	scanEnabled bool
}

// NewService creates the gateway pipeline service.
func NewService(
	scanner *pii.Scanner,
	store *policy.Store,
	provider providers.Provider,
	emitter *audit.Emitter,
	dispatcher *alert.Dispatcher,
	metrics *observability.Metrics,
	logger *zap.Logger,
	mode enforce.Mode,
	scanEnabled bool,
) *Service {
	return &Service{
		scanner:     scanner,
		store:       store,
		provider:    provider,
		emitter:     emitter,
		dispatcher:  dispatcher,
		metrics:     metrics,
		logger:      logger,
		mode:        mode,
		scanEnabled: scanEnabled,
	}
}

// ProcessChatCompletion runs one request through the pipeline. A blocked
// request is a normal outcome, not an error; errors mean the upstream call
// itself failed.
func (s *Service) ProcessChatCompletion(ctx context.Context, req Request) (*Result, error) {
	startTime := time.Now()

	var scan *pii.ScanResult
	if s.scanEnabled {
		scan = s.scanner.Scan(req.Messages)
	} else {
		scan = &pii.ScanResult{}
	}
	s.recordFindings(scan)

	rules := s.store.EffectiveRules(req.OrgID)
	decision := enforce.Evaluate(rules, scan, req.Model, req.AppID, s.mode)
	s.metrics.RecordDecision(string(decision.ComputedAction), string(decision.EnforcedAction))

	// Hashed before masking so identical prompts audit to the same identity.
	promptHash := audit.HashPrompt(req.Messages)

	s.logger.Info("policy decision",
		zap.String("request_id", req.RequestID),
		zap.String("org_id", req.OrgID),
		zap.String("app_id", req.AppID),
		zap.String("model", req.Model),
		zap.String("computed_action", string(decision.ComputedAction)),
		zap.String("enforced_action", string(decision.EnforcedAction)),
		zap.String("reason", string(decision.Reason)),
		zap.Int("findings", scan.TotalFindings))

	if decision.ShouldAlert() {
		s.dispatchAlert(req, decision, scan)
	}

	if decision.EnforcedAction == enforce.ActionBlock {
		s.emitAudit(req, decision, scan, promptHash, nil, time.Since(startTime))
		return &Result{Decision: decision, Blocked: true}, nil
	}

	payload := req.Payload
	masked := false
	if decision.EnforcedAction == enforce.ActionMask {
		maskedMessages := enforce.MaskMessages(req.Messages, scan, decision.TriggeringTypes)
		payload = payloadWithMessages(req.Payload, maskedMessages)
		masked = true
	}

	resp, err := s.provider.ChatCompletion(ctx, payload)
	if err != nil {
		s.emitAudit(req, decision, scan, promptHash, nil, time.Since(startTime))
		return nil, err
	}

	s.emitAudit(req, decision, scan, promptHash, resp, time.Since(startTime))

	return &Result{
		Decision: decision,
		Masked:   masked,
		Response: resp,
	}, nil
}

func (s *Service) recordFindings(scan *pii.ScanResult) {
	counts := make(map[pii.Type]int)
	for _, mf := range scan.Messages {
		for _, f := range mf.Findings {
			counts[f.Type]++
		}
	}
	for t, n := range counts {
		s.metrics.RecordFinding(string(t), n)
	}
}

func (s *Service) dispatchAlert(req Request, d enforce.Decision, scan *pii.ScanResult) {
	severity := "HIGH"
	if d.Reason == enforce.ReasonPII && scan.HighestSeverity != "" {
		severity = string(scan.HighestSeverity)
	}

	violations := d.Violations
	if len(violations) == 0 {
		violations = typeNames(d.TriggeringTypes)
	}

	s.dispatcher.Dispatch(alert.Event{
		Type:       string(d.Reason),
		Violations: violations,
		Action:     string(d.ComputedAction),
		OrgID:      req.OrgID,
		AppID:      req.AppID,
		UserID:     req.UserID,
		Model:      req.Model,
		RequestID:  req.RequestID,
		Severity:   severity,
		Timestamp:  time.Now().UTC(),
	})
}

func (s *Service) emitAudit(req Request, d enforce.Decision, scan *pii.ScanResult, promptHash string, resp *providers.Response, latency time.Duration) {
	record := audit.NewRecord(req.OrgID, req.AppID, req.Model, s.provider.Name()).
		WithUser(req.UserID).
		WithPromptHash(promptHash).
		WithRiskFlags(scan.Types()).
		WithEnforcement(string(d.ComputedAction), d.Violations, string(d.Reason), req.ClientIP)

	if resp != nil {
		tokensIn, tokensOut, ok := resp.Usage()
		if ok {
			record.WithUsage(tokensIn, tokensOut, int(latency.Milliseconds()))
		}
	}

	s.emitter.Emit(record)
}

// payloadWithMessages returns a shallow copy of the payload with the
// messages field replaced by the masked conversation. The caller's other
// parameters pass through untouched.
func payloadWithMessages(payload map[string]interface{}, messages []models.Message) map[string]interface{} {
	out := make(map[string]interface{}, len(payload))
	for k, v := range payload {
		out[k] = v
	}
	wire := make([]map[string]interface{}, len(messages))
	for i, m := range messages {
		wire[i] = map[string]interface{}{
			"role":    m.Role,
			"content": m.Content,
		}
	}
	out["messages"] = wire
	return out
}

func typeNames(types []pii.Type) []string {
	names := make([]string, len(types))
	for i, t := range types {
		names[i] = string(t)
	}
	return names
}
