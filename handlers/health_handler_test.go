package handlers

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/complyon/ai-gateway/internal/policy"
)

func TestHandleHealth(t *testing.T) {
	store := policy.NewStore(zap.NewNop())
	handler := NewHealthHandler(store, zap.NewNop())

	rec := httptest.NewRecorder()
	handler.HandleHealth(rec, httptest.NewRequest(http.MethodGet, "/healthz", nil))

	require.Equal(t, http.StatusOK, rec.Code)
	var response HealthResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &response))
	assert.Equal(t, "healthy", response.Status)
	assert.NotEmpty(t, response.Timestamp)
	assert.Equal(t, store.Snapshot().Version, response.PolicyVersion)
}

func TestHandleHealth_ReflectsReloadedVersion(t *testing.T) {
	store := policy.NewStore(zap.NewNop())
	require.NoError(t, store.ReloadFromBytes([]byte(policyDoc)))
	handler := NewHealthHandler(store, zap.NewNop())

	rec := httptest.NewRecorder()
	handler.HandleHealth(rec, httptest.NewRequest(http.MethodGet, "/healthz", nil))

	var response HealthResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &response))
	assert.Equal(t, "3.1", response.PolicyVersion)
}
