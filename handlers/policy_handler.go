package handlers

import (
	"errors"
	"net/http"
	"time"

	"go.uber.org/zap"

	"github.com/complyon/ai-gateway/internal/policy"
	"github.com/complyon/ai-gateway/utils"
)

// PolicySnapshotResponse is the read-only view of the active policy
type PolicySnapshotResponse struct {
	Version      string       `json:"version"`
	Name         string       `json:"name"`
	Description  string       `json:"description,omitempty"`
	LoadedAt     time.Time    `json:"loaded_at"`
	Global       policy.Rules `json:"global"`
	OrgOverrides []string     `json:"org_overrides,omitempty"`
}

// PolicyHandler exposes the active policy snapshot and manual reload
type PolicyHandler struct {
	store      *policy.Store
	policyFile string
	logger     *zap.Logger
}

// NewPolicyHandler creates a new PolicyHandler
func NewPolicyHandler(store *policy.Store, policyFile string, logger *zap.Logger) *PolicyHandler {
	return &PolicyHandler{
		store:      store,
		policyFile: policyFile,
		logger:     logger,
	}
}

// HandleGetPolicy handles GET /v1/policy
func (h *PolicyHandler) HandleGetPolicy(w http.ResponseWriter, r *http.Request) {
	snap := h.store.Snapshot()

	response := PolicySnapshotResponse{
		Version:      snap.Version,
		Name:         snap.Name,
		Description:  snap.Description,
		LoadedAt:     snap.LoadedAt,
		Global:       snap.Global,
		OrgOverrides: snap.OrgOverrides(),
	}

	if err := utils.WriteJSON(w, http.StatusOK, response); err != nil {
		h.logger.Error("failed to write policy response", zap.Error(err))
	}
}

// HandleReloadPolicy handles POST /v1/policy/reload. A rejected document
// leaves the active snapshot untouched and reports the validation issues.
func (h *PolicyHandler) HandleReloadPolicy(w http.ResponseWriter, r *http.Request) {
	if h.policyFile == "" {
		_ = utils.WriteNotFound(w, "No policy file configured")
		return
	}

	if err := h.store.Reload(h.policyFile); err != nil {
		var verr *policy.ValidationError
		if errors.As(err, &verr) {
			details := make(map[string]interface{}, len(verr.Issues))
			for _, issue := range verr.Issues {
				details[issue.Field] = issue.Message
			}
			_ = utils.WriteBadRequest(w, "Policy document rejected", details)
			return
		}
		h.logger.Error("policy reload failed", zap.Error(err))
		_ = utils.WriteInternalServerError(w, "Policy reload failed")
		return
	}

	snap := h.store.Snapshot()
	_ = utils.WriteJSON(w, http.StatusOK, map[string]interface{}{
		"status":    "reloaded",
		"version":   snap.Version,
		"loaded_at": snap.LoadedAt,
	})
}
