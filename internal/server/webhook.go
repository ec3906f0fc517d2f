package server

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/harisabid200/ChatFlowUI/internal/common/cnst"
	"github.com/harisabid200/ChatFlowUI/internal/common/errorx"
	"github.com/harisabid200/ChatFlowUI/internal/relay"
	"github.com/harisabid200/ChatFlowUI/internal/storage"
	"github.com/harisabid200/ChatFlowUI/pkg/signature"
)

const maxCallbackBytes = 2 << 20

// handleWebhookResponse receives the asynchronous bot response from the
// external automation and hands it to the session router. This is the trust
// boundary for callbacks: when a secret is configured the raw body bytes
// must carry a valid signature.
func (s *Server) handleWebhookResponse(c *gin.Context) {
	ctx := c.Request.Context()
	chatbotID := c.Param("chatbotId")

	chatbot, err := s.store.GetChatbot(ctx, chatbotID)
	if err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			c.JSON(http.StatusNotFound, gin.H{"error": errorx.ErrChatbotNotFound.Message})
			return
		}
		s.logger.Error("chatbot lookup failed", zap.String("chatbot_id", chatbotID), zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": errorx.ErrInternal.Message})
		return
	}

	raw, err := io.ReadAll(io.LimitReader(c.Request.Body, maxCallbackBytes))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request body"})
		return
	}

	if chatbot.WebhookSecret != "" {
		sig := c.GetHeader(cnst.HeaderSignature)
		if sig == "" {
			c.JSON(http.StatusUnauthorized, gin.H{"error": errorx.ErrMissingSignature.Message})
			return
		}
		if !signature.Verify(chatbot.WebhookSecret, raw, sig) {
			s.logger.Warn("webhook callback signature mismatch", zap.String("chatbot_id", chatbotID))
			c.JSON(http.StatusUnauthorized, gin.H{"error": errorx.ErrInvalidSignature.Message})
			return
		}
	}

	var body map[string]any
	if err := json.Unmarshal(raw, &body); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid JSON body"})
		return
	}

	sessionID := stringField(body, "sessionId", "session_id")
	if sessionID == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": errorx.ErrSessionRequired.Message})
		return
	}

	message := extractMessage(body)
	quickReplies := extractQuickReplies(body)
	metadata, _ := body["metadata"].(map[string]any)

	event := relay.NewBotMessage(message, quickReplies, metadata)
	delivered := s.router.Deliver(chatbotID, sessionID, event)
	if s.metrics != nil {
		s.metrics.Delivered(delivered)
	}

	c.JSON(http.StatusOK, gin.H{"success": true})
}

func stringField(body map[string]any, keys ...string) string {
	for _, key := range keys {
		if s, ok := body[key].(string); ok && s != "" {
			return s
		}
	}
	return ""
}

// extractMessage probes the callback body the way the automation tools shape
// it: message, text, output, response, first non-empty wins, non-string
// values are re-serialized. Defaults to the empty string.
func extractMessage(body map[string]any) string {
	for _, key := range []string{"message", "text", "output", "response"} {
		v, ok := body[key]
		if !ok || v == nil {
			continue
		}
		if s, ok := v.(string); ok {
			if s == "" {
				continue
			}
			return s
		}
		if b, err := json.Marshal(v); err == nil {
			return string(b)
		}
	}
	return ""
}

func extractQuickReplies(body map[string]any) []string {
	for _, key := range []string{"quickReplies", "quick_replies"} {
		arr, ok := body[key].([]any)
		if !ok {
			continue
		}
		out := make([]string, 0, len(arr))
		for _, item := range arr {
			if s, ok := item.(string); ok {
				out = append(out, s)
			}
		}
		return out
	}
	return nil
}
