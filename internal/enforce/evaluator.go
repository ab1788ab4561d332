package enforce

import (
	"fmt"
	"strings"

	"github.com/complyon/ai-gateway/internal/pii"
	"github.com/complyon/ai-gateway/internal/policy"
)

// Action is the outcome of a policy evaluation.
type Action string

const (
	ActionAllow Action = "allow"
	ActionWarn  Action = "warn"
	ActionMask  Action = "mask"
	ActionBlock Action = "block"
)

// actionRanks orders actions by strictness: block > mask > warn > allow.
var actionRanks = map[Action]int{
	ActionAllow: 0,
	ActionWarn:  1,
	ActionMask:  2,
	ActionBlock: 3,
}

// Rank returns the strictness ordering of an action.
func (a Action) Rank() int {
	return actionRanks[a]
}

// Mode is the process-wide enforcement mode.
type Mode string

const (
	// ModeEnforce applies computed decisions as-is.
	ModeEnforce Mode = "enforce"
	// ModeWarn downgrades block and mask to warn.
	ModeWarn Mode = "warn"
	// ModeLogOnly downgrades every computed action to allow.
	ModeLogOnly Mode = "log_only"
)

// ParseMode validates an enforcement mode string.
func ParseMode(s string) (Mode, error) {
	switch Mode(s) {
	case ModeEnforce, ModeWarn, ModeLogOnly:
		return Mode(s), nil
	}
	return "", fmt.Errorf("unknown enforcement mode %q", s)
}

// Reason explains why a non-allow decision was computed.
type Reason string

const (
	ReasonNone            Reason = ""
	ReasonPII             Reason = "pii_detected"
	ReasonModelNotAllowed Reason = "model_not_allowed"
	ReasonAppNotAllowed   Reason = "app_not_allowed"
)

// Decision is the result of evaluating one request against the effective
// rules. ComputedAction is the action the policy demanded; EnforcedAction is
// what actually happens after the mode downgrade. Both are retained so the
// audit trail reflects the policy even when enforcement is relaxed.
type Decision struct {
	ComputedAction Action
	EnforcedAction Action
	Reason         Reason

	// Violations are the audit-facing violation identifiers, e.g.
	// ["CREDIT_CARD"] or ["MODEL_NOT_ALLOWED:gpt-4o"].
	Violations []string

	// TriggeringTypes are the PII types that selected the computed action;
	// TriggeringFindings are the corresponding findings across messages.
	TriggeringTypes    []pii.Type
	TriggeringFindings []pii.Finding

	// Warnings records warn-listed types that co-occurred without changing
	// the action.
	Warnings []pii.Type

	// Message is a human-readable explanation of the decision.
	Message string
}

// ShouldAlert reports whether the decision is forwarded to the alert
// dispatcher. Alerts fire on the computed action so a downgraded block is
// still visible to operators.
func (d Decision) ShouldAlert() bool {
	return d.ComputedAction == ActionBlock || d.ComputedAction == ActionWarn
}

// Evaluate is a pure decision function: identical inputs always yield an
// identical decision. It performs no I/O and consults no state beyond its
// arguments.
//
// The identity gate runs first and independently of findings: a disallowed
// model or app blocks regardless of content. PII resolution then classifies
// the finding types by the highest-precedence bucket (block_if > mask_if >
// warn_if), and finally the enforcement mode may downgrade the computed
// action.
func Evaluate(rules policy.Rules, scan *pii.ScanResult, model, appID string, mode Mode) Decision {
	d := computeDecision(rules, scan, model, appID)
	d.EnforcedAction = downgrade(d.ComputedAction, mode)
	return d
}

func computeDecision(rules policy.Rules, scan *pii.ScanResult, model, appID string) Decision {
	if !rules.IsModelAllowed(model) {
		return Decision{
			ComputedAction: ActionBlock,
			Reason:         ReasonModelNotAllowed,
			Violations:     []string{"MODEL_NOT_ALLOWED:" + model},
			Message:        fmt.Sprintf("Model '%s' is not allowed by policy", model),
		}
	}

	if appID != "" && !rules.IsAppAllowed(appID) {
		return Decision{
			ComputedAction: ActionBlock,
			Reason:         ReasonAppNotAllowed,
			Violations:     []string{"APP_NOT_ALLOWED:" + appID},
			Message:        fmt.Sprintf("Application '%s' is not allowed by policy", appID),
		}
	}

	if !scan.HasPII() {
		return Decision{
			ComputedAction: ActionAllow,
			Message:        "No PII detected, request allowed",
		}
	}

	types := scan.Types()
	warnTypes := policy.TypesIn(rules.WarnIf, types)

	if blockTypes := policy.TypesIn(rules.BlockIf, types); len(blockTypes) > 0 {
		return Decision{
			ComputedAction:     ActionBlock,
			Reason:             ReasonPII,
			Violations:         typeNames(blockTypes),
			TriggeringTypes:    blockTypes,
			TriggeringFindings: scan.FindingsOfTypes(blockTypes),
			Warnings:           warnTypes,
			Message:            fmt.Sprintf("Request blocked: %s detected in prompt", joinTypes(blockTypes)),
		}
	}

	if maskTypes := policy.TypesIn(rules.MaskIf, types); len(maskTypes) > 0 {
		return Decision{
			ComputedAction:     ActionMask,
			Reason:             ReasonPII,
			TriggeringTypes:    maskTypes,
			TriggeringFindings: scan.FindingsOfTypes(maskTypes),
			Warnings:           warnTypes,
			Message:            fmt.Sprintf("PII will be masked: %s", joinTypes(maskTypes)),
		}
	}

	if len(warnTypes) > 0 {
		return Decision{
			ComputedAction:     ActionWarn,
			Reason:             ReasonPII,
			TriggeringTypes:    warnTypes,
			TriggeringFindings: scan.FindingsOfTypes(warnTypes),
			Warnings:           warnTypes,
			Message:            fmt.Sprintf("Warning: %s detected but allowed", joinTypes(warnTypes)),
		}
	}

	// PII present but in no rule bucket.
	return Decision{
		ComputedAction: ActionAllow,
		Warnings:       types,
		Message:        "PII detected but not in policy rules",
	}
}

// downgrade applies the enforcement mode. The invariant is
// enforced <= computed under block > mask > warn > allow.
func downgrade(computed Action, mode Mode) Action {
	switch mode {
	case ModeLogOnly:
		return ActionAllow
	case ModeWarn:
		if computed == ActionBlock || computed == ActionMask {
			return ActionWarn
		}
		return computed
	default:
		return computed
	}
}

func typeNames(types []pii.Type) []string {
	names := make([]string, len(types))
	for i, t := range types {
		names[i] = string(t)
	}
	return names
}

func joinTypes(types []pii.Type) string {
	return strings.Join(typeNames(types), ", ")
}
