package handlers

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"miner-game-backend/internal/models"
	"miner-game-backend/internal/services"
)

type GameHandler struct {
	gameEngine *services.GameEngine
	logger     *zap.Logger
}

func NewGameHandler(gameEngine *services.GameEngine, logger *zap.Logger) *GameHandler {
	return &GameHandler{
		gameEngine: gameEngine,
		logger:     logger,
	}
}

func (h *GameHandler) StartGame(c *gin.Context) {
	var req models.StartGameRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondBindError(c, err)
		return
	}

	userID, err := resolveUserID(c, req.UserID)
	if err != nil {
		respondError(c, h.logger, "Failed to start game", err)
		return
	}

	resp, err := h.gameEngine.StartGame(c.Request.Context(), userID, req.Bombs, req.Bet)
	if err != nil {
		respondError(c, h.logger, "Failed to start game", err)
		return
	}

	c.JSON(http.StatusOK, resp)
}

func (h *GameHandler) OpenCell(c *gin.Context) {
	var req models.OpenCellRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondBindError(c, err)
		return
	}

	userID, err := resolveUserID(c, req.UserID)
	if err != nil {
		respondError(c, h.logger, "Failed to open cell", err)
		return
	}
	req.UserID = userID

	resp, err := h.gameEngine.OpenCell(c.Request.Context(), &req)
	if err != nil {
		respondError(c, h.logger, "Failed to open cell", err)
		return
	}

	c.JSON(http.StatusOK, resp)
}

func (h *GameHandler) Cashout(c *gin.Context) {
	var req models.CashoutRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondBindError(c, err)
		return
	}

	userID, err := resolveUserID(c, req.UserID)
	if err != nil {
		respondError(c, h.logger, "Failed to cash out", err)
		return
	}

	resp, err := h.gameEngine.Cashout(c.Request.Context(), userID, req.RoundID)
	if err != nil {
		respondError(c, h.logger, "Failed to cash out", err)
		return
	}

	c.JSON(http.StatusOK, resp)
}

func (h *GameHandler) GetRound(c *gin.Context) {
	userID, err := resolveUserID(c, c.Query("user_id"))
	if err != nil {
		respondError(c, h.logger, "Failed to get round", err)
		return
	}

	round, err := h.gameEngine.GetRound(c.Request.Context(), userID, c.Param("id"))
	if err != nil {
		respondError(c, h.logger, "Failed to get round", err)
		return
	}

	c.JSON(http.StatusOK, round)
}

// GetMultipliers returns the sequence for ?bombs=, or every table when the
// parameter is absent.
func (h *GameHandler) GetMultipliers(c *gin.Context) {
	raw := c.Query("bombs")
	if raw == "" {
		all := make(map[string][]float64)
		for _, b := range services.BombCounts() {
			seq, _ := services.Multipliers(b)
			all[strconv.Itoa(b)] = seq
		}
		c.JSON(http.StatusOK, gin.H{
			"bomb_counts": services.BombCounts(),
			"multipliers": all,
		})
		return
	}

	bombs, err := strconv.Atoi(raw)
	if err != nil {
		respondBindError(c, err)
		return
	}

	seq, err := services.Multipliers(bombs)
	if err != nil {
		respondError(c, h.logger, "Invalid bomb count", err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"bombs":       bombs,
		"multipliers": seq,
	})
}
