package handlers

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"miner-game-backend/internal/models"
	"miner-game-backend/internal/services"
)

type UserHandler struct {
	gameEngine *services.GameEngine
	logger     *zap.Logger
}

func NewUserHandler(gameEngine *services.GameEngine, logger *zap.Logger) *UserHandler {
	return &UserHandler{
		gameEngine: gameEngine,
		logger:     logger,
	}
}

func (h *UserHandler) GetUserInfo(c *gin.Context) {
	var req models.UserRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondBindError(c, err)
		return
	}

	userID, err := resolveUserID(c, req.UserID)
	if err != nil {
		respondError(c, h.logger, "Failed to get user info", err)
		return
	}

	info, err := h.gameEngine.GetUserInfo(c.Request.Context(), userID)
	if err != nil {
		respondError(c, h.logger, "Failed to get user info", err)
		return
	}

	c.JSON(http.StatusOK, info)
}

// GetBalance accepts user_id from the query string or, on POST, the body.
func (h *UserHandler) GetBalance(c *gin.Context) {
	requested := c.Query("user_id")
	if c.Request.Method == http.MethodPost {
		var req models.UserRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			respondBindError(c, err)
			return
		}
		requested = req.UserID
	}

	userID, err := resolveUserID(c, requested)
	if err != nil {
		respondError(c, h.logger, "Failed to get balance", err)
		return
	}

	balance, err := h.gameEngine.GetBalance(c.Request.Context(), userID)
	if err != nil {
		respondError(c, h.logger, "Failed to get balance", err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"user_id": userID,
		"balance": balance,
	})
}

func (h *UserHandler) DepositStars(c *gin.Context) {
	var req models.DepositRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondBindError(c, err)
		return
	}

	userID, err := resolveUserID(c, req.UserID)
	if err != nil {
		respondError(c, h.logger, "Failed to deposit", err)
		return
	}

	resp, err := h.gameEngine.DepositStars(c.Request.Context(), userID, req.Stars, req.TransactionID)
	if err != nil {
		respondError(c, h.logger, "Failed to deposit", err)
		return
	}

	c.JSON(http.StatusOK, resp)
}

func (h *UserHandler) WithdrawStars(c *gin.Context) {
	var req models.WithdrawRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondBindError(c, err)
		return
	}

	userID, err := resolveUserID(c, req.UserID)
	if err != nil {
		respondError(c, h.logger, "Failed to withdraw", err)
		return
	}

	resp, err := h.gameEngine.WithdrawStars(c.Request.Context(), userID, req.Stars)
	if err != nil {
		respondError(c, h.logger, "Failed to withdraw", err)
		return
	}

	c.JSON(http.StatusOK, resp)
}

func (h *UserHandler) BuyCase(c *gin.Context) {
	var req models.UserRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondBindError(c, err)
		return
	}

	userID, err := resolveUserID(c, req.UserID)
	if err != nil {
		respondError(c, h.logger, "Failed to buy case", err)
		return
	}

	resp, err := h.gameEngine.BuyCase(c.Request.Context(), userID)
	if err != nil {
		respondError(c, h.logger, "Failed to buy case", err)
		return
	}

	c.JSON(http.StatusOK, resp)
}

func (h *UserHandler) GetTransactions(c *gin.Context) {
	userID, err := resolveUserID(c, c.Query("user_id"))
	if err != nil {
		respondError(c, h.logger, "Failed to get transactions", err)
		return
	}

	limit := int64(50)
	if raw := c.Query("limit"); raw != "" {
		if limit, err = strconv.ParseInt(raw, 10, 64); err != nil || limit <= 0 {
			c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid limit"})
			return
		}
	}

	transactions, err := h.gameEngine.GetTransactions(c.Request.Context(), userID, limit)
	if err != nil {
		respondError(c, h.logger, "Failed to get transactions", err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"user_id":      userID,
		"transactions": transactions,
		"count":        len(transactions),
	})
}
