package azure

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/complyon/ai-gateway/internal/providers"
)

const defaultAPIVersion = "2024-02-15-preview"

// Config holds the Azure OpenAI connection settings. Azure routes requests to
// a named deployment instead of taking the model from the payload, and
// authenticates with an api-key header rather than a bearer token.
type Config struct {
	Endpoint   string
	APIKey     string
	Deployment string
	APIVersion string
	Timeout    time.Duration
	MaxRetries int
	RetryDelay time.Duration
}

// Adapter forwards chat completions to an Azure OpenAI deployment.
type Adapter struct {
	config     Config
	httpClient *http.Client
}

// NewAdapter creates an Azure OpenAI provider adapter.
func NewAdapter(config Config) *Adapter {
	config.Endpoint = strings.TrimRight(config.Endpoint, "/")
	if config.APIVersion == "" {
		config.APIVersion = defaultAPIVersion
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
	return "azure"
}

// ChatCompletion forwards the payload to the deployment's chat completions
// endpoint. Upstream 4xx responses are returned to the caller as-is; only
// transport errors and exhausted 5xx retries surface as errors.
func (a *Adapter) ChatCompletion(ctx context.Context, payload map[string]interface{}) (*providers.Response, error) {
	reqBody, err := json.Marshal(payload)
	if err != nil {
		return nil, providers.NewError(a.Name(), "MARSHAL_ERROR", "Failed to marshal request", 0, false, err)
	}

	url := fmt.Sprintf("%s/openai/deployments/%s/chat/completions?api-version=%s",
		a.config.Endpoint, a.config.Deployment, a.config.APIVersion)

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

		httpReq, reqErr := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(reqBody))
		if reqErr != nil {
			return nil, providers.NewError(a.Name(), "REQUEST_ERROR", "Failed to create request", 0, false, reqErr)
		}
		httpReq.Header.Set("Content-Type", "application/json")
		httpReq.Header.Set("api-key", a.config.APIKey)

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
