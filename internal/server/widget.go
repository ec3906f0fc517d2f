package server

import (
	"errors"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/harisabid200/ChatFlowUI/internal/common/cnst"
	"github.com/harisabid200/ChatFlowUI/internal/common/errorx"
	"github.com/harisabid200/ChatFlowUI/internal/storage"
)

// handleWidgetConfig returns the public widget configuration: name, settings
// and resolved theme. Origin validation happened in the CORS middleware.
func (s *Server) handleWidgetConfig(c *gin.Context) {
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

	var theme *storage.Theme
	if chatbot.ThemeID != "" {
		if t, err := s.store.GetTheme(ctx, chatbot.ThemeID); err == nil {
			theme = t
		}
	}
	if theme == nil {
		// Fall back to the seeded preset.
		if t, err := s.store.GetTheme(ctx, "default"); err == nil {
			theme = t
		}
	}

	var themeConfig map[string]any
	if theme != nil {
		themeConfig = theme.ConfigMap()
	}
	var customCSS any
	if chatbot.CustomCSS != "" {
		customCSS = sanitizeCSS(chatbot.CustomCSS)
	}

	c.JSON(http.StatusOK, gin.H{
		"chatbotId": chatbot.ID,
		"name":      chatbot.Name,
		"theme":     themeConfig,
		"customCss": customCSS,
		"settings":  chatbot.SettingsMap(),
	})
}

type messageRequest struct {
	SessionID string         `json:"sessionId"`
	Message   string         `json:"message"`
	Metadata  map[string]any `json:"metadata"`
}

// handleWidgetMessage is the synchronous path: forward to the webhook and
// return its reply. A null response tells the widget the answer will arrive
// over the realtime channel instead; this handler never touches the session
// router.
func (s *Server) handleWidgetMessage(c *gin.Context) {
	chatbotID := c.Param("chatbotId")

	var req messageRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": errorx.ErrMissingFields.Message})
		return
	}
	if req.SessionID == "" || req.Message == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": errorx.ErrMissingFields.Message})
		return
	}
	if len(req.Message) > cnst.MaxMessageLength {
		c.JSON(http.StatusBadRequest, gin.H{"error": errorx.ErrMessageTooLong.Message})
		return
	}

	start := time.Now()
	response, err := s.forwarder.Forward(c.Request.Context(), chatbotID, req.SessionID, req.Message, req.Metadata)
	if err != nil {
		apiErr := errorx.From(err)
		if apiErr == errorx.ErrInternal {
			s.logger.Error("message forward failed",
				zap.String("chatbot_id", chatbotID),
				zap.Error(err))
		}
		if s.metrics != nil {
			s.metrics.ForwardDone(apiErr.Status, start)
		}
		c.JSON(apiErr.Status, gin.H{"error": apiErr.Message})
		return
	}
	if s.metrics != nil {
		s.metrics.ForwardDone(http.StatusOK, start)
	}

	c.JSON(http.StatusOK, gin.H{
		"success":  true,
		"response": response,
	})
}
