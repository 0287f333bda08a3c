package middleware

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"miner-game-backend/internal/services"
)

// AuthMiddleware validates a Bearer token or a "token" query parameter and
// stores its user id in the context. Requests without a token pass through
// unless required is set.
func AuthMiddleware(jwtService *services.JWTService, required bool) gin.HandlerFunc {
	return func(c *gin.Context) {
		authHeader := c.GetHeader("Authorization")
		var tokenString string

		if authHeader != "" {
			parts := strings.SplitN(authHeader, " ", 2)
			if len(parts) != 2 || parts[0] != "Bearer" {
				c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "Invalid authorization format"})
				return
			}
			tokenString = parts[1]
		} else {
			tokenString = c.Query("token")
		}

		if tokenString == "" {
			if required {
				c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "Authorization header required"})
				return
			}
			c.Next()
			return
		}

		if !jwtService.Enabled() {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "Token authentication is not configured"})
			return
		}

		claims, err := jwtService.ValidateToken(tokenString)
		if err != nil {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "Invalid or expired token"})
			return
		}

		c.Set("user_id", claims.UserID)
		c.Set("session_id", claims.SessionID)

		c.Next()
	}
}
