package handlers

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"miner-game-backend/internal/services"
)

var errUserMismatch = errors.New("user_id does not match the authenticated user")

func errorStatus(err error) int {
	switch {
	case errors.Is(err, services.ErrUserNotFound),
		errors.Is(err, services.ErrRoundNotFound):
		return http.StatusNotFound
	case errors.Is(err, services.ErrRoundForbidden),
		errors.Is(err, errUserMismatch):
		return http.StatusForbidden
	case errors.Is(err, services.ErrRoundNotActive),
		errors.Is(err, services.ErrCellRevealed),
		errors.Is(err, services.ErrCashoutDisabled),
		errors.Is(err, services.ErrTxConflict):
		return http.StatusConflict
	case errors.Is(err, services.ErrInvalidInitData):
		return http.StatusUnauthorized
	case errors.Is(err, services.ErrMissingUserID),
		errors.Is(err, services.ErrMissingRound),
		errors.Is(err, services.ErrInsufficientBalance),
		errors.Is(err, services.ErrInvalidBombCount),
		errors.Is(err, services.ErrInvalidBet),
		errors.Is(err, services.ErrInvalidAmount),
		errors.Is(err, services.ErrInvalidCell),
		errors.Is(err, services.ErrInvalidBoard),
		errors.Is(err, services.ErrInvalidStep),
		errors.Is(err, services.ErrNothingToCashout),
		errors.Is(err, services.ErrWithdrawalDenied):
		return http.StatusBadRequest
	default:
		return http.StatusInternalServerError
	}
}

func respondError(c *gin.Context, logger *zap.Logger, message string, err error) {
	status := errorStatus(err)
	body := gin.H{
		"error":   message,
		"details": err.Error(),
	}

	var werr *services.WithdrawalError
	if errors.As(err, &werr) {
		body["error"] = werr.Reason
		if werr.Available != nil {
			body["available"] = *werr.Available
		}
		if werr.Remaining != nil {
			body["remaining"] = *werr.Remaining
		}
	}

	if status == http.StatusInternalServerError {
		logger.Error(message, zap.Error(err), zap.String("path", c.Request.URL.Path))
		body["details"] = "internal error"
	}

	c.JSON(status, body)
}

func respondBindError(c *gin.Context, err error) {
	c.JSON(http.StatusBadRequest, gin.H{
		"error":   "Invalid request",
		"details": err.Error(),
	})
}

// resolveUserID reconciles the user_id sent by the client with the one
// carried by the auth token. An empty client value takes the token's.
func resolveUserID(c *gin.Context, requested string) (string, error) {
	authenticated := c.GetString("user_id")
	if authenticated == "" {
		return requested, nil
	}
	if requested == "" {
		return authenticated, nil
	}
	if requested != authenticated {
		return "", errUserMismatch
	}
	return requested, nil
}
