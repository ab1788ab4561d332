package policy

import (
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/complyon/ai-gateway/internal/pii"
)

const validPolicyYAML = `
version: "2.0"
name: Production Policy
description: gateway compliance rules
rules:
  block_if: [CREDIT_CARD, SSN]
  mask_if: [EMAIL]
  warn_if: [IP_ADDRESS]
  allowed_models: [gpt-4o, gpt-4o-mini]
  allowed_apps: ["*"]
org_overrides:
  org-1:
    mask_if: [EMAIL, PHONE]
  org-2:
    block_if: []
    blocked_apps: [legacy-app]
`

func loadSnapshot(t *testing.T, yaml string) *Snapshot {
	t.Helper()
	doc, err := ParseDocument([]byte(yaml))
	require.NoError(t, err)
	snap, err := BuildSnapshot(doc)
	require.NoError(t, err)
	return snap
}

func TestBuildSnapshot_ValidDocument(t *testing.T) {
	snap := loadSnapshot(t, validPolicyYAML)

	assert.Equal(t, "2.0", snap.Version)
	assert.Equal(t, "Production Policy", snap.Name)
	assert.Equal(t, []pii.Type{pii.TypeCreditCard, pii.TypeSSN}, snap.Global.BlockIf)
	assert.Equal(t, []pii.Type{pii.TypeEmail}, snap.Global.MaskIf)
	assert.Equal(t, []string{"gpt-4o", "gpt-4o-mini"}, snap.Global.AllowedModels)
	assert.ElementsMatch(t, []string{"org-1", "org-2"}, snap.OrgOverrides())
	assert.False(t, snap.LoadedAt.IsZero())
}

func TestEffectiveRules_OverrideReplacesFieldWholesale(t *testing.T) {
	snap := loadSnapshot(t, validPolicyYAML)

	org1 := snap.EffectiveRules("org-1")
	// mask_if is replaced, everything else inherits the global rules.
	assert.Equal(t, []pii.Type{pii.TypeEmail, pii.TypePhone}, org1.MaskIf)
	assert.Equal(t, snap.Global.BlockIf, org1.BlockIf)
	assert.Equal(t, snap.Global.AllowedModels, org1.AllowedModels)
}

func TestEffectiveRules_PresentEmptyFieldClearsBase(t *testing.T) {
	snap := loadSnapshot(t, validPolicyYAML)

	org2 := snap.EffectiveRules("org-2")
	// block_if: [] is present-and-empty, which clears the inherited list.
	assert.Empty(t, org2.BlockIf)
	assert.Equal(t, snap.Global.MaskIf, org2.MaskIf)
	assert.Equal(t, []string{"legacy-app"}, org2.BlockedApps)
}

func TestEffectiveRules_UnknownOrgFallsBackToGlobal(t *testing.T) {
	snap := loadSnapshot(t, validPolicyYAML)
	assert.Equal(t, snap.Global, snap.EffectiveRules("org-absent"))
	assert.Equal(t, snap.Global, snap.EffectiveRules(""))
}

func TestParseDocument_EmptyDocument(t *testing.T) {
	_, err := ParseDocument([]byte(""))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "empty")
}

func TestParseDocument_UnknownFieldRejected(t *testing.T) {
	_, err := ParseDocument([]byte(`
version: "1.0"
name: typo
rules:
  block_whenever: [EMAIL]
`))
	require.Error(t, err)
}

func TestBuildSnapshot_MissingRequiredFields(t *testing.T) {
	doc, err := ParseDocument([]byte(`rules: {}`))
	require.NoError(t, err)

	_, err = BuildSnapshot(doc)
	var verr *ValidationError
	require.ErrorAs(t, err, &verr)

	fields := make([]string, 0, len(verr.Issues))
	for _, issue := range verr.Issues {
		fields = append(fields, issue.Field)
	}
	assert.Contains(t, fields, "version")
	assert.Contains(t, fields, "name")
}

func TestBuildSnapshot_UnknownPIIType(t *testing.T) {
	doc, err := ParseDocument([]byte(`
version: "1.0"
name: bad types
rules:
  block_if: [TELEPHONE]
`))
	require.NoError(t, err)

	_, err = BuildSnapshot(doc)
	var verr *ValidationError
	require.ErrorAs(t, err, &verr)
	require.Len(t, verr.Issues, 1)
	assert.Equal(t, "rules.block_if", verr.Issues[0].Field)
	assert.Contains(t, verr.Issues[0].Message, "TELEPHONE")
}

func TestBuildSnapshot_BlockMaskConflictRejected(t *testing.T) {
	doc, err := ParseDocument([]byte(`
version: "1.0"
name: conflicting
rules:
  block_if: [EMAIL]
  mask_if: [EMAIL]
`))
	require.NoError(t, err)

	_, err = BuildSnapshot(doc)
	var verr *ValidationError
	require.ErrorAs(t, err, &verr)
	assert.Contains(t, verr.Error(), "block_if and mask_if")
}

func TestBuildSnapshot_ConflictViaOverrideInheritance(t *testing.T) {
	// The override masks a type the inherited global rules block; the
	// resolved org rule set is contradictory and must be rejected.
	doc, err := ParseDocument([]byte(`
version: "1.0"
name: inherited conflict
rules:
  block_if: [CREDIT_CARD]
org_overrides:
  org-1:
    mask_if: [CREDIT_CARD]
`))
	require.NoError(t, err)

	_, err = BuildSnapshot(doc)
	var verr *ValidationError
	require.ErrorAs(t, err, &verr)
	require.Len(t, verr.Issues, 1)
	assert.Equal(t, "org_overrides.org-1", verr.Issues[0].Field)
}

func TestLoadFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "policy.yaml")
	require.NoError(t, os.WriteFile(path, []byte(validPolicyYAML), 0o644))

	snap, err := LoadFile(path)
	require.NoError(t, err)
	assert.Equal(t, "2.0", snap.Version)

	_, err = LoadFile(filepath.Join(t.TempDir(), "missing.yaml"))
	require.Error(t, err)
	var verr *ValidationError
	assert.False(t, errors.As(err, &verr))
}

func TestDefaultSnapshot(t *testing.T) {
	snap := DefaultSnapshot()

	rules := snap.EffectiveRules("any-org")
	assert.Contains(t, rules.BlockIf, pii.TypeCreditCard)
	assert.Contains(t, rules.BlockIf, pii.TypeSSN)
	assert.Contains(t, rules.MaskIf, pii.TypeEmail)
	assert.Contains(t, rules.WarnIf, pii.TypeIPAddress)
	assert.True(t, rules.IsAppAllowed("any-app"))
}

func TestRules_IsModelAllowed(t *testing.T) {
	tests := []struct {
		name    string
		rules   Rules
		model   string
		allowed bool
	}{
		{"empty rules allow everything", Rules{}, "gpt-4o", true},
		{"allow list admits member", Rules{AllowedModels: []string{"gpt-4o"}}, "gpt-4o", true},
		{"allow list excludes others", Rules{AllowedModels: []string{"gpt-4o"}}, "gpt-3.5-turbo", false},
		{"block list wins over allow list", Rules{AllowedModels: []string{"gpt-4o"}, BlockedModels: []string{"gpt-4o"}}, "gpt-4o", false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.allowed, tt.rules.IsModelAllowed(tt.model))
		})
	}
}

func TestRules_IsAppAllowed(t *testing.T) {
	tests := []struct {
		name    string
		rules   Rules
		app     string
		allowed bool
	}{
		{"empty rules allow everything", Rules{}, "app-1", true},
		{"wildcard admits unknown apps", Rules{AllowedApps: []string{"*"}}, "brand-new", true},
		{"wildcard does not admit blocked apps", Rules{AllowedApps: []string{"*"}, BlockedApps: []string{"bad"}}, "bad", false},
		{"explicit allow list excludes others", Rules{AllowedApps: []string{"app-1"}}, "app-2", false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.allowed, tt.rules.IsAppAllowed(tt.app))
		})
	}
}

func TestValidationError_MessageListsAllIssues(t *testing.T) {
	verr := &ValidationError{}
	verr.add("rules.block_if", "unknown PII type %q", "NOPE")
	verr.add("version", "is required")

	msg := verr.Error()
	assert.True(t, strings.Contains(msg, "rules.block_if") && strings.Contains(msg, "version"))
}
