// Package server exposes the relay over HTTP: the widget endpoints, the
// webhook callback endpoint and the realtime websocket transport, all behind
// the shared origin validation and rate limiting.
package server

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
	"go.uber.org/zap"

	"github.com/harisabid200/ChatFlowUI/internal/common/cnst"
	"github.com/harisabid200/ChatFlowUI/internal/common/config"
	"github.com/harisabid200/ChatFlowUI/internal/forwarder"
	"github.com/harisabid200/ChatFlowUI/internal/origin"
	"github.com/harisabid200/ChatFlowUI/internal/ratelimit"
	"github.com/harisabid200/ChatFlowUI/internal/relay"
	"github.com/harisabid200/ChatFlowUI/internal/storage"
	"github.com/harisabid200/ChatFlowUI/pkg/metrics"
	"github.com/harisabid200/ChatFlowUI/pkg/version"
)

// Server wires the relay components to the HTTP surface.
type Server struct {
	logger    *zap.Logger
	cfg       *config.Config
	store     storage.Store
	validator *origin.Validator
	router    *relay.Router
	forwarder *forwarder.Forwarder
	limiter   ratelimit.Store
	metrics   *metrics.Metrics
	upgrader  websocket.Upgrader
}

// New creates the HTTP server. metrics may be nil when disabled.
func New(
	logger *zap.Logger,
	cfg *config.Config,
	store storage.Store,
	validator *origin.Validator,
	router *relay.Router,
	fwd *forwarder.Forwarder,
	limiter ratelimit.Store,
	m *metrics.Metrics,
) *Server {
	return &Server{
		logger:    logger.Named("server"),
		cfg:       cfg,
		store:     store,
		validator: validator,
		router:    router,
		forwarder: fwd,
		limiter:   limiter,
		metrics:   m,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  4096,
			WriteBufferSize: 4096,
			// The handshake admits everyone; admission control happens on
			// join, through the same validator the HTTP CORS check uses.
			CheckOrigin: func(*http.Request) bool { return true },
		},
	}
}

// RegisterRoutes registers all routes on engine.
func (s *Server) RegisterRoutes(engine *gin.Engine) {
	engine.Use(s.loggerMiddleware())
	engine.Use(s.recoveryMiddleware())
	if s.metrics != nil {
		engine.Use(s.metrics.Middleware())
	}

	engine.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})
	if s.metrics != nil {
		engine.GET("/metrics", gin.WrapH(s.metrics.Handler()))
	}

	root := engine.Group(s.cfg.Server.BasePath)

	api := root.Group("/api")
	api.Use(s.rateLimitMiddleware(cnst.BucketAPI, s.cfg.RateLimit.APIMax))
	api.Use(s.corsMiddleware())
	api.GET("/version", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"version": version.Get()})
	})

	widget := root.Group("/widget")
	widget.OPTIONS("/:chatbotId/config", s.corsMiddleware())
	widget.OPTIONS("/:chatbotId/message", s.corsMiddleware())
	widget.GET("/:chatbotId/config", s.corsMiddleware(), s.handleWidgetConfig)
	widget.POST("/:chatbotId/message",
		s.corsMiddleware(),
		s.noStoreMiddleware(),
		s.rateLimitMiddleware(cnst.BucketWidget, s.cfg.RateLimit.WidgetMax),
		s.handleWidgetMessage,
	)

	webhook := root.Group("/webhook")
	webhook.POST("/:chatbotId/response",
		s.noStoreMiddleware(),
		s.rateLimitMiddleware(cnst.BucketWebhook, s.cfg.RateLimit.WebhookMax),
		s.handleWebhookResponse,
	)

	engine.GET(s.cfg.WebSocket.Path, s.handleWebSocket)
}
