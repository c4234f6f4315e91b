package server

import (
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/mkurzov/marketd/internal/metrics"
	"github.com/mkurzov/marketd/internal/model"
	"github.com/mkurzov/marketd/internal/provider"
)

// requestLog emits one structured line per request.
func (s *Server) requestLog() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()

		if c.Request.URL.Path == "/metrics" {
			return
		}
		s.logger.Info("request",
			"method", c.Request.Method,
			"path", c.Request.URL.Path,
			"status", c.Writer.Status(),
			"client_ip", c.ClientIP(),
			"duration", time.Since(start),
		)
	}
}

// rateLimit denies a request when the caller's token bucket is empty. Every
// client IP gets its own bucket; a denial consumes nothing.
func (s *Server) rateLimit() gin.HandlerFunc {
	return func(c *gin.Context) {
		if s.limiter == nil {
			c.Next()
			return
		}

		clientIP := c.ClientIP()
		if s.limiter.Allow(clientIP) {
			c.Next()
			return
		}

		metrics.RateLimitDeniedTotal.Inc()
		s.logger.Warn("rate limited",
			"client_ip", clientIP,
			"path", c.Request.URL.Path,
		)
		if retry := s.limiter.RetryAfter(); retry > 0 {
			c.Header("Retry-After", strconv.Itoa(int(retry.Seconds())))
		}
		c.AbortWithStatusJSON(http.StatusTooManyRequests, model.ErrorResponse{
			Error:      string(provider.KindRateLimited),
			Detail:     "Rate limit exceeded. Please try again later.",
			StatusCode: http.StatusTooManyRequests,
			Timestamp:  model.Now(),
		})
	}
}
