package openai

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"time"

	"github.com/complyon/ai-gateway/internal/providers"
)

const defaultBaseURL = "https://api.openai.com/v1"

// Adapter forwards chat completions to an OpenAI-compatible endpoint.
// The gateway is a pass-through: the payload goes out as received from the
// enforcement pipeline and the upstream body comes back untouched.
type Adapter struct {
	config     providers.Config
	httpClient *http.Client
}

// NewAdapter creates an OpenAI-compatible provider adapter.
func NewAdapter(config providers.Config) *Adapter {
	if config.BaseURL == "" {
		config.BaseURL = defaultBaseURL
	}
	if config.Timeout == 0 {
		config.Timeout = 30 * time.Second
	}
	if config.RetryDelay == 0 {
		config.RetryDelay = 500 * time.Millisecond
	}

	return &Adapter{
		config: config,
		httpClient: &http.Client{
			Timeout: config.Timeout,
		},
	}
}

// Name returns the provider name.
func (a *Adapter) Name() string {
	return "openai"
}

// ChatCompletion forwards the payload to the upstream chat completions
// endpoint. Upstream 4xx responses are returned to the caller as-is rather
// than treated as provider failures; only transport errors and exhausted
// 5xx retries surface as errors.
func (a *Adapter) ChatCompletion(ctx context.Context, payload map[string]interface{}) (*providers.Response, error) {
	reqBody, err := json.Marshal(payload)
	if err != nil {
		return nil, providers.NewError(a.Name(), "MARSHAL_ERROR", "Failed to marshal request", 0, false, err)
	}

	var httpResp *http.Response
	var lastErr error

	for attempt := 0; attempt <= a.config.MaxRetries; attempt++ {
		if attempt > 0 {
			select {
			case <-ctx.Done():
				return nil, providers.NewError(a.Name(), "CANCELLED", "Request cancelled", 0, false, ctx.Err())
			case <-time.After(a.config.RetryDelay * time.Duration(attempt)):
			}
		}

		httpReq, reqErr := http.NewRequestWithContext(ctx, http.MethodPost, a.config.BaseURL+"/chat/completions", bytes.NewReader(reqBody))
		if reqErr != nil {
			return nil, providers.NewError(a.Name(), "REQUEST_ERROR", "Failed to create request", 0, false, reqErr)
		}
		httpReq.Header.Set("Content-Type", "application/json")
		if a.config.APIKey != "" {
			httpReq.Header.Set("Authorization", "Bearer "+a.config.APIKey)
		}

		httpResp, lastErr = a.httpClient.Do(httpReq)
		if lastErr == nil && httpResp.StatusCode < 500 {
			break
		}
		if httpResp != nil {
			httpResp.Body.Close()
			lastErr = errors.New("upstream returned " + httpResp.Status)
			httpResp = nil
		}
	}

	if lastErr != nil || httpResp == nil {
		return nil, providers.NewError(a.Name(), "HTTP_ERROR", "HTTP request failed", 0, true, lastErr)
	}
	defer httpResp.Body.Close()

	respBody, err := io.ReadAll(httpResp.Body)
	if err != nil {
		return nil, providers.NewError(a.Name(), "READ_ERROR", "Failed to read response", httpResp.StatusCode, false, err)
	}

	var body map[string]interface{}
	if err := json.Unmarshal(respBody, &body); err != nil {
		return nil, providers.NewError(a.Name(), "UNMARSHAL_ERROR", "Failed to unmarshal response", httpResp.StatusCode, false, err)
	}

	return &providers.Response{
		StatusCode: httpResp.StatusCode,
		Body:       body,
	}, nil
}
