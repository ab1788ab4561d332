package policy

import (
	"sort"
	"time"

	"github.com/complyon/ai-gateway/internal/pii"
)

// Rules is a fully resolved rule set: which PII types block, mask or warn,
// and which models/apps may use the gateway.
type Rules struct {
	BlockIf []pii.Type `json:"block_if"`
	MaskIf  []pii.Type `json:"mask_if"`
	WarnIf  []pii.Type `json:"warn_if"`

	// AllowedModels empty means every model not explicitly blocked.
	AllowedModels []string `json:"allowed_models"`
	BlockedModels []string `json:"blocked_models"`

	// AllowedApps empty or containing "*" means every app not explicitly
	// blocked.
	AllowedApps []string `json:"allowed_apps"`
	BlockedApps []string `json:"blocked_apps"`
}

// IsModelAllowed checks the model against the block and allow lists. The
// block list always wins.
func (r Rules) IsModelAllowed(model string) bool {
	if contains(r.BlockedModels, model) {
		return false
	}
	if len(r.AllowedModels) == 0 {
		return true
	}
	return contains(r.AllowedModels, model)
}

// IsAppAllowed checks the app against the block and allow lists. An empty
// allow list or the "*" wildcard admits every app not explicitly blocked.
func (r Rules) IsAppAllowed(appID string) bool {
	if contains(r.BlockedApps, appID) {
		return false
	}
	if len(r.AllowedApps) == 0 || contains(r.AllowedApps, "*") {
		return true
	}
	return contains(r.AllowedApps, appID)
}

// TypesIn returns, preserving input order, the subset of types present in
// the given bucket.
func TypesIn(bucket []pii.Type, types []pii.Type) []pii.Type {
	if len(bucket) == 0 || len(types) == 0 {
		return nil
	}
	set := make(map[pii.Type]struct{}, len(bucket))
	for _, t := range bucket {
		set[t] = struct{}{}
	}
	var out []pii.Type
	for _, t := range types {
		if _, ok := set[t]; ok {
			out = append(out, t)
		}
	}
	return out
}

func contains(list []string, s string) bool {
	for _, v := range list {
		if v == s {
			return true
		}
	}
	return false
}

// Snapshot is an immutable, versioned view of one loaded policy. It is built
// once at load time with every org override already resolved, swapped in
// wholesale on successful reload and never mutated in place.
type Snapshot struct {
	Version     string
	Name        string
	Description string
	Global      Rules
	LoadedAt    time.Time

	// orgRules maps org_id to its resolved rule set. Resolution happens at
	// build time so concurrent readers never merge anything.
	orgRules map[string]Rules
}

// EffectiveRules returns the resolved rule set for an org, falling back to
// the global rules when the org has no override.
func (s *Snapshot) EffectiveRules(orgID string) Rules {
	if orgID != "" {
		if rules, ok := s.orgRules[orgID]; ok {
			return rules
		}
	}
	return s.Global
}

// OrgOverrides lists the org ids carrying an override, for introspection.
func (s *Snapshot) OrgOverrides() []string {
	ids := make([]string, 0, len(s.orgRules))
	for id := range s.orgRules {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids
}
