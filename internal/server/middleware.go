package server

import (
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/harisabid200/ChatFlowUI/internal/common/cnst"
)

// loggerMiddleware creates a logging middleware
func (s *Server) loggerMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()

		s.logger.Info("request",
			zap.String("method", c.Request.Method),
			zap.String("path", c.Request.URL.Path),
			zap.Int("status", c.Writer.Status()),
			zap.String("client_ip", c.ClientIP()),
			zap.Duration("duration", time.Since(start)),
		)
	}
}

// recoveryMiddleware creates a recovery middleware
func (s *Server) recoveryMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		defer func() {
			if err := recover(); err != nil {
				s.logger.Error("panic recovered",
					zap.Any("error", err),
					zap.String("path", c.Request.URL.Path),
				)
				c.AbortWithStatusJSON(http.StatusInternalServerError, gin.H{
					"error": "Internal server error",
				})
			}
		}()
		c.Next()
	}
}

// corsMiddleware enforces the shared origin policy. Routes carrying a
// :chatbotId param are checked against that chatbot's allow-list; the rest
// fall under the admin origin rule. Preflight requests terminate here.
func (s *Server) corsMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		reqOrigin := c.Request.Header.Get("Origin")
		chatbotID := c.Param("chatbotId")

		decision := s.validator.Check(c.Request.Context(), reqOrigin, chatbotID)
		if !decision.Allowed {
			if s.metrics != nil && decision.Status == http.StatusForbidden {
				s.metrics.OriginRejected()
			}
			c.AbortWithStatusJSON(decision.Status, gin.H{"error": decision.Reason})
			return
		}

		if reqOrigin != "" && decision.AllowMethods != "" {
			c.Header("Access-Control-Allow-Origin", reqOrigin)
			c.Header("Access-Control-Allow-Credentials", "true")
			c.Header("Access-Control-Allow-Methods", decision.AllowMethods)
			c.Header("Access-Control-Allow-Headers", decision.AllowHeaders)
		}

		if c.Request.Method == http.MethodOptions {
			c.AbortWithStatus(http.StatusNoContent)
			return
		}
		c.Next()
	}
}

var rateLimitMessages = map[string]string{
	cnst.BucketAPI:     "Too many requests, please try again later",
	cnst.BucketWidget:  "Rate limit exceeded. Please slow down.",
	cnst.BucketWebhook: "Too many requests",
}

// rateLimitMiddleware applies a fixed-window per-IP limit for one bucket.
// Counter failures fail open: losing the limiter must not take down the
// message path.
func (s *Server) rateLimitMiddleware(bucket string, max int) gin.HandlerFunc {
	message, ok := rateLimitMessages[bucket]
	if !ok {
		message = "Too many requests"
	}

	return func(c *gin.Context) {
		res, err := s.limiter.Increment(c.Request.Context(), bucket, c.ClientIP(), s.cfg.RateLimit.Window)
		if err != nil {
			s.logger.Error("rate-limit increment failed",
				zap.String("bucket", bucket),
				zap.Error(err))
			c.Next()
			return
		}

		remaining := max - int(res.TotalHits)
		if remaining < 0 {
			remaining = 0
		}
		c.Header("RateLimit-Limit", strconv.Itoa(max))
		c.Header("RateLimit-Remaining", strconv.Itoa(remaining))
		c.Header("RateLimit-Reset", strconv.Itoa(int(time.Until(res.ResetTime).Seconds())))

		if res.TotalHits > int64(max) {
			if s.metrics != nil {
				s.metrics.RateLimited(bucket)
			}
			c.AbortWithStatusJSON(http.StatusTooManyRequests, gin.H{"error": message})
			return
		}
		c.Next()
	}
}

// noStoreMiddleware prevents caching of message and webhook responses.
func (s *Server) noStoreMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Header("Cache-Control", "no-store, no-cache, must-revalidate, private")
		c.Next()
	}
}
