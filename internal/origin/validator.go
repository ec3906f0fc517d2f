// Package origin decides whether a cross-origin caller may reach a chatbot's
// endpoints. The HTTP CORS middleware and the realtime join admission both
// consult this one predicate; keeping a single implementation is what
// prevents the two transports from drifting apart.
package origin

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"

	"go.uber.org/zap"

	"github.com/harisabid200/ChatFlowUI/internal/common/config"
	"github.com/harisabid200/ChatFlowUI/internal/storage"
)

// ChatbotSource is the lookup capability the validator needs from the
// persistence layer.
type ChatbotSource interface {
	GetChatbot(ctx context.Context, id string) (*storage.Chatbot, error)
}

// Decision is the outcome of an origin check.
type Decision struct {
	Allowed bool
	// Status is the HTTP status to reject with (403 or 404).
	Status int
	Reason string
	// AllowMethods and AllowHeaders are the CORS headers to return on allow.
	AllowMethods string
	AllowHeaders string
}

const (
	methodsBroad  = "GET, POST, PUT, DELETE, OPTIONS"
	methodsWidget = "GET, POST, OPTIONS"

	headersAdmin  = "Content-Type, Authorization"
	headersWidget = "Content-Type"
)

// Validator evaluates the layered origin allow-list: global operator list
// first, then admin/self exemptions, then the chatbot's own patterns.
type Validator struct {
	logger      *zap.Logger
	cors        *config.CORSConfig
	production  bool
	selfOrigins []string
	chatbots    ChatbotSource
}

// NewValidator creates the shared origin validator.
func NewValidator(logger *zap.Logger, cfg *config.Config, chatbots ChatbotSource) *Validator {
	selfOrigins := []string{fmt.Sprintf("http://%s:%d", cfg.Server.Host, cfg.Server.Port)}
	if cfg.Server.Host == "0.0.0.0" {
		selfOrigins = append(selfOrigins,
			fmt.Sprintf("http://localhost:%d", cfg.Server.Port),
			fmt.Sprintf("http://127.0.0.1:%d", cfg.Server.Port),
		)
	}
	return &Validator{
		logger:      logger.Named("origin"),
		cors:        &cfg.CORS,
		production:  cfg.Server.IsProduction(),
		selfOrigins: selfOrigins,
		chatbots:    chatbots,
	}
}

// Check evaluates origin for chatbotID. An empty origin means a same-origin
// or non-browser caller and is always allowed. An empty chatbotID means an
// operator-facing route, governed by the admin origin rule.
func (v *Validator) Check(ctx context.Context, origin, chatbotID string) Decision {
	if origin == "" {
		return Decision{Allowed: true}
	}

	if chatbotID == "" {
		return v.checkAdmin(origin)
	}

	normalized := normalize(origin)

	// Global operator allow-list has the highest precedence.
	for _, allowed := range v.cors.AllowedOrigins {
		if normalized == normalize(allowed) {
			return Decision{Allowed: true, AllowMethods: methodsBroad, AllowHeaders: headersWidget}
		}
	}

	chatbot, err := v.chatbots.GetChatbot(ctx, chatbotID)
	if err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			return Decision{Status: http.StatusNotFound, Reason: "Chatbot not found"}
		}
		v.logger.Error("chatbot lookup failed",
			zap.String("chatbot_id", chatbotID),
			zap.Error(err))
		return Decision{Status: http.StatusInternalServerError, Reason: "Internal server error"}
	}

	for _, pattern := range chatbot.Origins() {
		if Match(pattern, origin) {
			return Decision{Allowed: true, AllowMethods: methodsWidget, AllowHeaders: headersWidget}
		}
	}

	// The admin dashboard (preview/test chat) and the server's own pages may
	// always connect, whatever the chatbot's list says.
	if v.isSelfOrAdmin(normalized) {
		return Decision{Allowed: true, AllowMethods: methodsWidget, AllowHeaders: headersWidget}
	}

	v.logger.Warn("origin rejected",
		zap.String("origin", origin),
		zap.String("chatbot_id", chatbotID))
	return Decision{Status: http.StatusForbidden, Reason: "Origin not allowed"}
}

func (v *Validator) checkAdmin(origin string) Decision {
	if v.cors.AdminOrigin != "" {
		if normalize(origin) == normalize(v.cors.AdminOrigin) {
			return Decision{Allowed: true, AllowMethods: methodsBroad, AllowHeaders: headersAdmin}
		}
		return Decision{Status: http.StatusForbidden, Reason: "Origin not allowed"}
	}
	if v.production {
		return Decision{Status: http.StatusForbidden, Reason: "Origin not allowed"}
	}
	// Development without a configured admin origin: reflect the caller.
	return Decision{Allowed: true, AllowMethods: methodsBroad, AllowHeaders: headersAdmin}
}

func (v *Validator) isSelfOrAdmin(normalized string) bool {
	if v.cors.AdminOrigin != "" && normalized == normalize(v.cors.AdminOrigin) {
		return true
	}
	for _, self := range v.selfOrigins {
		if normalized == self {
			return true
		}
	}
	if !v.production && (strings.Contains(normalized, "localhost") || strings.Contains(normalized, "127.0.0.1")) {
		return true
	}
	return false
}

// Match reports whether origin satisfies one allow-list pattern. Patterns are
// exact origins or "*.domain" wildcards; wildcard matches respect label
// boundaries, so "*.example.com" never admits "https://notexample.com".
func Match(pattern, origin string) bool {
	origin = normalize(origin)
	if strings.HasPrefix(pattern, "*.") {
		domain := pattern[2:]
		if origin == "https://"+domain || origin == "http://"+domain {
			return true
		}
		return strings.HasSuffix(origin, "."+domain)
	}
	return origin == normalize(pattern)
}

// normalize strips a single trailing slash.
func normalize(origin string) string {
	return strings.TrimSuffix(origin, "/")
}
