package services

import (
	"errors"
	"fmt"
)

var (
	ErrMissingUserID       = errors.New("user_id is required")
	ErrUserNotFound        = errors.New("user not found")
	ErrRoundNotFound       = errors.New("round not found")
	ErrInsufficientBalance = errors.New("insufficient balance")
	ErrInvalidBombCount    = errors.New("invalid bomb count")
	ErrInvalidBet          = errors.New("bet must be positive")
	ErrInvalidAmount       = errors.New("invalid amount")
	ErrInvalidCell         = errors.New("invalid cell")
	ErrInvalidBoard        = errors.New("invalid board")
	ErrInvalidStep         = errors.New("invalid step")
	ErrCellRevealed        = errors.New("cell already revealed")
	ErrRoundNotActive      = errors.New("round is not active")
	ErrRoundForbidden      = errors.New("round belongs to another user")
	ErrNothingToCashout    = errors.New("nothing to cash out")
	ErrCashoutDisabled     = errors.New("cashout requires server round mode")
	ErrMissingRound        = errors.New("round_id is required in server round mode")
	ErrTxConflict          = errors.New("too many concurrent updates, retry")
	ErrWithdrawalDenied    = errors.New("withdrawal denied")
)

// WithdrawalError explains why a withdrawal was rejected. Available and
// Remaining carry the computed limits shown to the player.
type WithdrawalError struct {
	Reason    string
	Available *float64
	Remaining *float64
}

func (e *WithdrawalError) Error() string {
	switch {
	case e.Available != nil:
		return fmt.Sprintf("%s: at most %.2f stars can be withdrawn", e.Reason, *e.Available)
	case e.Remaining != nil:
		return fmt.Sprintf("%s: %.2f stars left today", e.Reason, *e.Remaining)
	default:
		return e.Reason
	}
}

func (e *WithdrawalError) Unwrap() error {
	return ErrWithdrawalDenied
}
