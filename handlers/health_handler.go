package handlers

import (
	"net/http"
	"time"

	"go.uber.org/zap"

	"github.com/complyon/ai-gateway/internal/policy"
	"github.com/complyon/ai-gateway/utils"
)

// HealthResponse represents the health check response
type HealthResponse struct {
	Status        string `json:"status"`
	Timestamp     string `json:"timestamp"`
	PolicyVersion string `json:"policy_version,omitempty"`
}

// HealthHandler handles health-related HTTP requests
type HealthHandler struct {
	store  *policy.Store
	logger *zap.Logger
}

// NewHealthHandler creates a new HealthHandler
func NewHealthHandler(store *policy.Store, logger *zap.Logger) *HealthHandler {
	return &HealthHandler{
		store:  store,
		logger: logger,
	}
}

// HandleHealth handles GET /healthz.
// The gateway is healthy whenever it can serve decisions, which it always
// can: the policy store is seeded with defaults before the server starts.
func (h *HealthHandler) HandleHealth(w http.ResponseWriter, r *http.Request) {
	response := HealthResponse{
		Status:        "healthy",
		Timestamp:     time.Now().UTC().Format(time.RFC3339),
		PolicyVersion: h.store.Snapshot().Version,
	}

	if err := utils.WriteJSON(w, http.StatusOK, response); err != nil {
		h.logger.Error("failed to write health response", zap.Error(err))
	}
}
