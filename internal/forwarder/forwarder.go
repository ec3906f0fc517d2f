// Package forwarder performs the outbound call to a chatbot's external
// webhook: bounded timeout, optional HMAC signing, tolerant response parsing.
package forwarder

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"os"
	"time"

	"go.uber.org/zap"

	"github.com/harisabid200/ChatFlowUI/internal/common/cnst"
	"github.com/harisabid200/ChatFlowUI/internal/common/config"
	"github.com/harisabid200/ChatFlowUI/internal/common/errorx"
	"github.com/harisabid200/ChatFlowUI/internal/origin"
	"github.com/harisabid200/ChatFlowUI/internal/storage"
	"github.com/harisabid200/ChatFlowUI/pkg/signature"
)

// maxResponseBytes bounds how much of an upstream reply is read.
const maxResponseBytes = 2 << 20

// Payload is the message envelope POSTed to the webhook. The signature is
// computed over the exact bytes of its serialization; the receiving side must
// verify against the same bytes.
type Payload struct {
	ChatbotID string         `json:"chatbotId"`
	SessionID string         `json:"sessionId"`
	Message   string         `json:"message"`
	Metadata  map[string]any `json:"metadata"`
	Timestamp string         `json:"timestamp"`
}

// Forwarder sends visitor messages to per-chatbot webhook endpoints.
type Forwarder struct {
	logger   *zap.Logger
	chatbots origin.ChatbotSource
	client   *http.Client
	timeout  time.Duration
}

// New creates a forwarder. The timeout bounds each outbound call end to end.
func New(logger *zap.Logger, chatbots origin.ChatbotSource, cfg *config.ForwarderConfig) *Forwarder {
	return &Forwarder{
		logger:   logger.Named("forwarder"),
		chatbots: chatbots,
		client:   &http.Client{},
		timeout:  cfg.Timeout,
	}
}

// Forward sends message to chatbotID's webhook and returns the parsed
// response. A nil response with nil error means the webhook accepted the
// message and will answer asynchronously via the callback endpoint. Errors
// are errorx values carrying the status and normalized message for the
// visitor; upstream diagnostics are only logged.
func (f *Forwarder) Forward(ctx context.Context, chatbotID, sessionID, message string, metadata map[string]any) (*Response, error) {
	chatbot, err := f.chatbots.GetChatbot(ctx, chatbotID)
	if err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			return nil, errorx.ErrChatbotNotFound
		}
		return nil, fmt.Errorf("chatbot lookup: %w", err)
	}

	if metadata == nil {
		metadata = map[string]any{}
	}
	body, err := json.Marshal(&Payload{
		ChatbotID: chatbotID,
		SessionID: sessionID,
		Message:   message,
		Metadata:  metadata,
		Timestamp: time.Now().UTC().Format(time.RFC3339),
	})
	if err != nil {
		return nil, fmt.Errorf("marshal payload: %w", err)
	}

	ctx, cancel := context.WithTimeout(ctx, f.timeout)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, chatbot.WebhookURL, bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("build webhook request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	if chatbot.WebhookSecret != "" {
		req.Header.Set(cnst.HeaderSignature, signature.Sign(chatbot.WebhookSecret, body))
	}

	resp, err := f.client.Do(req)
	if err != nil {
		if errors.Is(err, context.DeadlineExceeded) || os.IsTimeout(err) {
			f.logger.Error("webhook timed out",
				zap.String("chatbot_id", chatbotID),
				zap.String("url", chatbot.WebhookURL))
			return nil, errorx.ErrUpstreamTimeout
		}
		return nil, fmt.Errorf("webhook request: %w", err)
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseBytes))
	if err != nil {
		return nil, fmt.Errorf("read webhook response: %w", err)
	}

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		f.logger.Error("webhook returned error",
			zap.String("chatbot_id", chatbotID),
			zap.Int("status", resp.StatusCode),
			zap.ByteString("body", raw))

		switch {
		case resp.StatusCode == http.StatusTooManyRequests:
			return nil, errorx.ErrUpstreamRateLimited
		case resp.StatusCode >= 500:
			return nil, errorx.ErrUpstreamUnavailable
		default:
			return nil, errorx.ErrUpstreamFailed
		}
	}

	return Parse(string(raw)), nil
}
