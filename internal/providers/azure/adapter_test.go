package azure

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/complyon/ai-gateway/internal/providers"
)

func chatPayload() map[string]interface{} {
	return map[string]interface{}{
		"messages": []interface{}{
			map[string]interface{}{"role": "user", "content": "hi"},
		},
	}
}

func TestChatCompletion_DeploymentURL(t *testing.T) {
	var gotPath, gotQuery, gotKey string
	var gotBody map[string]interface{}
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotPath = r.URL.Path
		gotQuery = r.URL.RawQuery
		gotKey = r.Header.Get("api-key")
		_ = json.NewDecoder(r.Body).Decode(&gotBody)
		_, _ = w.Write([]byte(`{"id":"chatcmpl-az"}`))
	}))
	defer server.Close()

	adapter := NewAdapter(Config{
		Endpoint:   server.URL + "/",
		APIKey:     "az-key",
		Deployment: "gpt-4o-prod",
	})
	resp, err := adapter.ChatCompletion(context.Background(), chatPayload())
	require.NoError(t, err)

	assert.Equal(t, "/openai/deployments/gpt-4o-prod/chat/completions", gotPath)
	assert.Equal(t, "api-version="+defaultAPIVersion, gotQuery)
	assert.Equal(t, "az-key", gotKey)
	require.Len(t, gotBody["messages"], 1)
	assert.Equal(t, "chatcmpl-az", resp.Body["id"])
}

func TestChatCompletion_ClientErrorPassesThrough(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusUnauthorized)
		_, _ = w.Write([]byte(`{"error":{"message":"bad key"}}`))
	}))
	defer server.Close()

	adapter := NewAdapter(Config{Endpoint: server.URL, Deployment: "d"})
	resp, err := adapter.ChatCompletion(context.Background(), chatPayload())
	require.NoError(t, err)
	assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)
}

func TestChatCompletion_RetriesServerErrors(t *testing.T) {
	var calls int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if atomic.AddInt32(&calls, 1) < 2 {
			w.WriteHeader(http.StatusBadGateway)
			return
		}
		_, _ = w.Write([]byte(`{"id":"chatcmpl-az2"}`))
	}))
	defer server.Close()

	adapter := NewAdapter(Config{
		Endpoint:   server.URL,
		Deployment: "d",
		MaxRetries: 2,
		RetryDelay: time.Millisecond,
	})
	resp, err := adapter.ChatCompletion(context.Background(), chatPayload())
	require.NoError(t, err)
	assert.Equal(t, int32(2), atomic.LoadInt32(&calls))
	assert.Equal(t, "chatcmpl-az2", resp.Body["id"])
}

func TestChatCompletion_ExhaustedRetriesFail(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer server.Close()

	adapter := NewAdapter(Config{
		Endpoint:   server.URL,
		Deployment: "d",
		MaxRetries: 1,
		RetryDelay: time.Millisecond,
	})
	_, err := adapter.ChatCompletion(context.Background(), chatPayload())
	require.Error(t, err)

	var perr *providers.Error
	require.ErrorAs(t, err, &perr)
	assert.Equal(t, "HTTP_ERROR", perr.Code)
}

func TestAdapterDefaults(t *testing.T) {
	adapter := NewAdapter(Config{Endpoint: "https://example.openai.azure.com/"})
	assert.Equal(t, "azure", adapter.Name())
	assert.Equal(t, "https://example.openai.azure.com", adapter.config.Endpoint)
	assert.Equal(t, defaultAPIVersion, adapter.config.APIVersion)
	assert.Equal(t, 30*time.Second, adapter.config.Timeout)
}
