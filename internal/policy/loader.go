package policy

import (
	"bytes"
	"fmt"
	"io"
	"os"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/complyon/ai-gateway/internal/pii"
)

// Document mirrors the YAML wire format of a policy file. Rule fields are
// pointers so an org override can distinguish "field absent, inherit global"
// from "field present and empty, replace with nothing".
type Document struct {
	Version      string                  `yaml:"version"`
	Name         string                  `yaml:"name"`
	Description  string                  `yaml:"description"`
	Rules        RuleDocument            `yaml:"rules"`
	OrgOverrides map[string]RuleDocument `yaml:"org_overrides"`
}

// RuleDocument is the unresolved rule set as written in YAML. PII types are
// plain strings here and validated against the closed enumeration before a
// snapshot is built.
type RuleDocument struct {
	BlockIf       *[]string `yaml:"block_if"`
	MaskIf        *[]string `yaml:"mask_if"`
	WarnIf        *[]string `yaml:"warn_if"`
	AllowedModels *[]string `yaml:"allowed_models"`
	BlockedModels *[]string `yaml:"blocked_models"`
	AllowedApps   *[]string `yaml:"allowed_apps"`
	BlockedApps   *[]string `yaml:"blocked_apps"`
}

// ParseDocument decodes a YAML policy document. Decoding is strict: fields
// outside the schema (in particular inside org_overrides) are rejected.
func ParseDocument(data []byte) (*Document, error) {
	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)

	var doc Document
	if err := dec.Decode(&doc); err != nil {
		if err == io.EOF {
			return nil, fmt.Errorf("policy document is empty")
		}
		return nil, fmt.Errorf("policy document is not valid YAML: %w", err)
	}
	return &doc, nil
}

// BuildSnapshot validates a parsed document and builds the immutable
// snapshot. On any issue it returns a *ValidationError and no snapshot.
func BuildSnapshot(doc *Document) (*Snapshot, error) {
	verr := &ValidationError{}

	if doc.Version == "" {
		verr.add("version", "is required")
	}
	if doc.Name == "" {
		verr.add("name", "is required")
	}

	global := resolveRules(Rules{}, doc.Rules, "rules", verr)

	orgRules := make(map[string]Rules, len(doc.OrgOverrides))
	for orgID, override := range doc.OrgOverrides {
		if orgID == "" {
			verr.add("org_overrides", "org id must not be empty")
			continue
		}
		field := fmt.Sprintf("org_overrides.%s", orgID)
		orgRules[orgID] = resolveRules(global, override, field, verr)
	}

	if len(verr.Issues) > 0 {
		return nil, verr
	}

	return &Snapshot{
		Version:     doc.Version,
		Name:        doc.Name,
		Description: doc.Description,
		Global:      global,
		LoadedAt:    time.Now().UTC(),
		orgRules:    orgRules,
	}, nil
}

// resolveRules merges a rule document over base rules with field-level
// replace semantics: a present field wholly replaces the base field, an
// absent field inherits it. For the global rules the base is the zero value.
func resolveRules(base Rules, doc RuleDocument, field string, verr *ValidationError) Rules {
	rules := base

	if doc.BlockIf != nil {
		rules.BlockIf = parseTypes(*doc.BlockIf, field+".block_if", verr)
	}
	if doc.MaskIf != nil {
		rules.MaskIf = parseTypes(*doc.MaskIf, field+".mask_if", verr)
	}
	if doc.WarnIf != nil {
		rules.WarnIf = parseTypes(*doc.WarnIf, field+".warn_if", verr)
	}
	if doc.AllowedModels != nil {
		rules.AllowedModels = append([]string(nil), (*doc.AllowedModels)...)
	}
	if doc.BlockedModels != nil {
		rules.BlockedModels = append([]string(nil), (*doc.BlockedModels)...)
	}
	if doc.AllowedApps != nil {
		rules.AllowedApps = append([]string(nil), (*doc.AllowedApps)...)
	}
	if doc.BlockedApps != nil {
		rules.BlockedApps = append([]string(nil), (*doc.BlockedApps)...)
	}

	// A type listed to both block and mask is a misconfiguration; reject it
	// at load rather than resolving by runtime precedence.
	for _, t := range TypesIn(rules.BlockIf, rules.MaskIf) {
		verr.add(field, "type %s is listed in both block_if and mask_if", t)
	}

	return rules
}

func parseTypes(names []string, field string, verr *ValidationError) []pii.Type {
	types := make([]pii.Type, 0, len(names))
	for _, name := range names {
		t, ok := pii.ParseType(name)
		if !ok {
			verr.add(field, "unknown PII type %q", name)
			continue
		}
		types = append(types, t)
	}
	return types
}

// LoadFile reads, parses and validates a policy file.
func LoadFile(path string) (*Snapshot, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read policy file: %w", err)
	}
	doc, err := ParseDocument(data)
	if err != nil {
		return nil, err
	}
	return BuildSnapshot(doc)
}

// DefaultSnapshot is the policy in force before any file is loaded: block
// critical identifiers, mask contact details, warn on low-risk types.
func DefaultSnapshot() *Snapshot {
	snap, err := BuildSnapshot(&Document{
		Version:     "1.0",
		Name:        "Default Compliance Policy",
		Description: "Blocks critical PII and masks contact details",
		Rules: RuleDocument{
			BlockIf:     listOf("AADHAAR", "PAN", "CREDIT_CARD", "SSN"),
			MaskIf:      listOf("EMAIL", "PHONE"),
			WarnIf:      listOf("IP_ADDRESS", "DATE_OF_BIRTH"),
			AllowedApps: listOf("*"),
		},
	})
	if err != nil {
		// The built-in document is static; failing to build it is a bug.
		panic(fmt.Sprintf("default policy is invalid: %v", err))
	}
	return snap
}

func listOf(values ...string) *[]string {
	list := append([]string(nil), values...)
	return &list
}
