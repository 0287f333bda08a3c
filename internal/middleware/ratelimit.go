package middleware

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"miner-game-backend/internal/services"
)

// RateLimit allows limit requests per window for one action. Requests are
// counted per authenticated user, then per user_id query parameter, then per
// client IP.
func RateLimit(redisService *services.RedisService, logger *zap.Logger, action string, limit int, window time.Duration) gin.HandlerFunc {
	return func(c *gin.Context) {
		subject := c.GetString("user_id")
		if subject == "" {
			subject = c.Query("user_id")
		}
		if subject == "" {
			subject = c.ClientIP()
		}

		allowed, err := redisService.CheckRateLimit(c.Request.Context(), subject, action, limit, window)
		if err != nil {
			logger.Error("rate limit check failed",
				zap.Error(err),
				zap.String("action", action),
				zap.String("subject", subject),
			)
		}
		if err != nil || !allowed {
			c.AbortWithStatusJSON(http.StatusTooManyRequests, gin.H{
				"error":       "Rate limit exceeded",
				"retry_after": window.Seconds(),
			})
			return
		}

		c.Next()
	}
}
