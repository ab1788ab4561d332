package handlers

import (
	"context"
	"encoding/json"
	"io"
	"net/http"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/complyon/ai-gateway/middleware"
	"github.com/complyon/ai-gateway/models"
	"github.com/complyon/ai-gateway/services/gateway"
	"github.com/complyon/ai-gateway/utils"
)

// ChatCompletionRequest is the typed view of an OpenAI-compatible chat
// completion request, used for validation only. The raw payload still passes
// through to the provider so unknown parameters survive untouched.
type ChatCompletionRequest struct {
	Model    string        `json:"model" validate:"required"`
	Messages []ChatMessage `json:"messages" validate:"required,min=1,dive"`
	Stream   bool          `json:"stream,omitempty"`
}

// ChatMessage represents a single chat message
type ChatMessage struct {
	Role    string `json:"role" validate:"required,oneof=system user assistant"`
	Content string `json:"content" validate:"required"`
}

// GatewayService defines the pipeline operations the handler depends on
type GatewayService interface {
	ProcessChatCompletion(ctx context.Context, req gateway.Request) (*gateway.Result, error)
}

// ChatHandler handles OpenAI-compatible chat completion requests
type ChatHandler struct {
	service GatewayService
	logger  *zap.Logger
}

// NewChatHandler creates a new ChatHandler
func NewChatHandler(service GatewayService, logger *zap.Logger) *ChatHandler {
	return &ChatHandler{
		service: service,
		logger:  logger,
	}
}

// HandleChatCompletion handles POST /v1/chat/completions.
// The body is decoded twice: once into a generic payload that goes out to the
// provider as received, and once into the typed request the validator checks.
func (h *ChatHandler) HandleChatCompletion(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	requestID := uuid.New().String()
	tenant := middleware.GetTenantFromContext(ctx)

	body, err := io.ReadAll(r.Body)
	if err != nil {
		_ = utils.WriteBadRequest(w, "Invalid request body", nil)
		return
	}

	var payload map[string]interface{}
	if err := json.Unmarshal(body, &payload); err != nil {
		h.logger.Warn("failed to parse request body",
			zap.String("request_id", requestID),
			zap.Error(err))
		_ = utils.WriteBadRequest(w, "Invalid request body", nil)
		return
	}

	var req ChatCompletionRequest
	if err := json.Unmarshal(body, &req); err != nil {
		_ = utils.WriteBadRequest(w, "Invalid request body", nil)
		return
	}

	if err := utils.ValidateStruct(req); err != nil {
		details := make(map[string]interface{})
		for field, message := range utils.GetValidationFields(err) {
			details[field] = message
		}
		_ = utils.WriteBadRequest(w, "Validation failed", details)
		return
	}

	if req.Stream {
		_ = utils.WriteBadRequest(w, "streaming responses are not supported", nil)
		return
	}

	messages := make([]models.Message, len(req.Messages))
	for i, m := range req.Messages {
		messages[i] = models.Message{Role: m.Role, Content: m.Content}
	}

	result, err := h.service.ProcessChatCompletion(ctx, gateway.Request{
		OrgID:     tenant.OrgID,
		AppID:     tenant.AppID,
		UserID:    tenant.UserID,
		Model:     req.Model,
		Messages:  messages,
		Payload:   payload,
		RequestID: requestID,
		ClientIP:  getClientIP(r),
	})
	if err != nil {
		h.logger.Error("provider call failed",
			zap.String("request_id", requestID),
			zap.String("model", req.Model),
			zap.Error(err))
		_ = utils.WriteBadGateway(w, "Upstream provider request failed")
		return
	}

	if result.Blocked {
		_ = utils.WriteBlocked(w, result.Decision, requestID)
		return
	}

	// Pass the upstream response through with its original status.
	if err := utils.WriteJSON(w, result.Response.StatusCode, result.Response.Body); err != nil {
		h.logger.Error("failed to write response",
			zap.String("request_id", requestID),
			zap.Error(err))
	}
}

// getClientIP extracts the client IP address from the request
func getClientIP(r *http.Request) string {
	if xff := r.Header.Get("X-Forwarded-For"); xff != "" {
		return xff
	}
	if xri := r.Header.Get("X-Real-IP"); xri != "" {
		return xri
	}
	return r.RemoteAddr
}
