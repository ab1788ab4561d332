package audit

import (
	"encoding/json"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/complyon/ai-gateway/internal/pii"
)

func TestNewRecord_DefaultsIdentity(t *testing.T) {
	r := NewRecord("", "", "gpt-4o", "openai")

	assert.Equal(t, "default", r.OrgID)
	assert.Equal(t, "unknown", r.AppID)
	assert.NotEqual(t, uuid.Nil, r.ID)
	assert.False(t, r.CreatedAt.IsZero())
}

func TestRecord_Builders(t *testing.T) {
	r := NewRecord("org-1", "app-1", "gpt-4o", "openai").
		WithUser("user-9").
		WithPromptHash("abc123").
		WithRiskFlags([]pii.Type{pii.TypeEmail}).
		WithUsage(120, 45, 800).
		WithEnforcement("mask", nil, "pii_detected", "10.1.2.3")

	assert.Equal(t, "user-9", r.UserID)
	assert.Equal(t, "abc123", r.PromptHash)
	assert.Equal(t, []pii.Type{pii.TypeEmail}, r.RiskFlags)
	require.NotNil(t, r.TokenCountInput)
	assert.Equal(t, 120, *r.TokenCountInput)
	require.NotNil(t, r.LatencyMs)
	assert.Equal(t, 800, *r.LatencyMs)
	assert.Equal(t, "mask", r.Metadata.Action)
	assert.Equal(t, "pii_detected", r.Metadata.Reason)
	assert.Equal(t, "10.1.2.3", r.Metadata.ClientIP)
}

func TestRecord_JSONCarriesNullUsageWhenUnset(t *testing.T) {
	// A blocked request has no provider usage; the record still carries
	// the fields, explicitly null.
	r := NewRecord("org-1", "app-1", "gpt-4o", "openai").
		WithEnforcement("block", []string{"SSN"}, "pii_detected", "")

	body, err := json.Marshal(r)
	require.NoError(t, err)

	var decoded map[string]interface{}
	require.NoError(t, json.Unmarshal(body, &decoded))

	assert.Nil(t, decoded["token_count_input"])
	assert.Nil(t, decoded["token_count_output"])
	assert.Nil(t, decoded["latency_ms"])
	assert.Equal(t, "openai", decoded["provider"])

	meta, ok := decoded["metadata"].(map[string]interface{})
	require.True(t, ok)
	assert.Equal(t, "block", meta["action"])
	assert.Equal(t, []interface{}{"SSN"}, meta["violations"])
}
