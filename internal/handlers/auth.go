package handlers

import (
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"miner-game-backend/internal/services"
)

const initDataMaxAge = 24 * time.Hour

type AuthHandler struct {
	jwtService *services.JWTService
	gameEngine *services.GameEngine
	botToken   string
	logger     *zap.Logger
}

func NewAuthHandler(jwtService *services.JWTService, gameEngine *services.GameEngine, botToken string, logger *zap.Logger) *AuthHandler {
	return &AuthHandler{
		jwtService: jwtService,
		gameEngine: gameEngine,
		botToken:   botToken,
		logger:     logger,
	}
}

// Authenticate exchanges Telegram WebApp init data for a session token.
func (h *AuthHandler) Authenticate(c *gin.Context) {
	initData := c.Query("init_data")
	if initData == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "init_data is required"})
		return
	}

	tgUser, err := services.ValidateInitData(initData, h.botToken, initDataMaxAge, time.Now())
	if err != nil {
		h.logger.Warn("telegram auth rejected", zap.Error(err), zap.String("client_ip", c.ClientIP()))
		c.JSON(http.StatusUnauthorized, gin.H{
			"error":   "Invalid Telegram data",
			"details": err.Error(),
		})
		return
	}

	userID := strconv.FormatInt(tgUser.ID, 10)

	token, claims, err := h.jwtService.GenerateToken(userID)
	if err != nil {
		respondError(c, h.logger, "Failed to create session", err)
		return
	}

	balance, err := h.gameEngine.GetBalance(c.Request.Context(), userID)
	if err != nil {
		respondError(c, h.logger, "Failed to load user", err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"token":      token,
		"expires_at": claims.ExpiresAt.Time,
		"user":       tgUser,
		"balance":    balance,
	})
}
