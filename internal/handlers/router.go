package handlers

import (
	"context"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"miner-game-backend/internal/config"
	"miner-game-backend/internal/middleware"
	"miner-game-backend/internal/services"
)

const apiVersion = "2.0"

type RouterDeps struct {
	Config       *config.Config
	GameEngine   *services.GameEngine
	RedisService *services.RedisService
	JWTService   *services.JWTService
	Hub          *WebSocketHub
	Logger       *zap.Logger
}

func NewRouter(deps RouterDeps) *gin.Engine {
	cfg := deps.Config
	logger := deps.Logger

	authHandler := NewAuthHandler(deps.JWTService, deps.GameEngine, cfg.BotToken, logger)
	userHandler := NewUserHandler(deps.GameEngine, logger)
	gameHandler := NewGameHandler(deps.GameEngine, logger)
	wsHandler := NewWebSocketHandler(deps.GameEngine, deps.Hub, logger)

	router := gin.New()
	router.Use(middleware.Recovery(logger), middleware.RequestLogger(logger), middleware.CORS())

	router.GET("/", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{
			"message":    "Miner Game API",
			"status":     "running",
			"version":    apiVersion,
			"round_mode": deps.GameEngine.RoundMode(),
		})
	})

	router.GET("/health", func(c *gin.Context) {
		ctx, cancel := context.WithTimeout(c.Request.Context(), 2*time.Second)
		defer cancel()

		if err := deps.GameEngine.Ping(ctx); err != nil {
			logger.Error("health check failed", zap.Error(err))
			c.JSON(http.StatusServiceUnavailable, gin.H{"status": "unavailable"})
			return
		}
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})

	router.GET("/auth/telegram", authHandler.Authenticate)
	router.GET("/multipliers", gameHandler.GetMultipliers)

	api := router.Group("/")
	api.Use(middleware.AuthMiddleware(deps.JWTService, cfg.AuthRequired))
	{
		api.POST("/get_user_info", userHandler.GetUserInfo)
		api.GET("/balance", userHandler.GetBalance)
		api.POST("/balance", userHandler.GetBalance)
		api.POST("/deposit_stars", userHandler.DepositStars)
		api.POST("/withdraw_stars", userHandler.WithdrawStars)
		api.POST("/buy_case", userHandler.BuyCase)
		api.GET("/transactions", userHandler.GetTransactions)

		api.POST("/start_game",
			middleware.RateLimit(deps.RedisService, logger, "start_game", services.DefaultRateLimitStart, time.Minute),
			gameHandler.StartGame)
		api.POST("/open_cell",
			middleware.RateLimit(deps.RedisService, logger, "open_cell", services.DefaultRateLimitReveal, time.Minute),
			gameHandler.OpenCell)
		api.POST("/cashout",
			middleware.RateLimit(deps.RedisService, logger, "cashout", services.DefaultRateLimitCashout, time.Minute),
			gameHandler.Cashout)
		api.GET("/round/:id", gameHandler.GetRound)

		api.GET("/ws", wsHandler.HandleWebSocket)
	}

	return router
}
