package services

import (
	"fmt"

	"github.com/shopspring/decimal"

	"miner-game-backend/internal/models"
)

type RevealResult string

const (
	RevealWin  RevealResult = "win"
	RevealLose RevealResult = "lose"
)

type RevealInput struct {
	X, Y  int
	Board models.Board
	Step  int
	Bombs int
	Bet   float64
}

type RevealOutcome struct {
	Result     RevealResult
	Step       int
	Multiplier float64
	WinAmount  float64
	// Earned is WinAmount minus the bet.
	Earned float64
}

// Resolve decides a single reveal. It has no side effects.
func Resolve(in RevealInput) (RevealOutcome, error) {
	if err := in.Board.Validate(); err != nil {
		return RevealOutcome{}, fmt.Errorf("%w: %v", ErrInvalidBoard, err)
	}
	if in.X < 0 || in.X >= models.BoardSize || in.Y < 0 || in.Y >= models.BoardSize {
		return RevealOutcome{}, fmt.Errorf("%w: (%d,%d)", ErrInvalidCell, in.X, in.Y)
	}
	if in.Step < 0 {
		return RevealOutcome{}, fmt.Errorf("%w: %d", ErrInvalidStep, in.Step)
	}
	if in.Bet <= 0 {
		return RevealOutcome{}, ErrInvalidBet
	}
	if !IsValidBombCount(in.Bombs) {
		return RevealOutcome{}, fmt.Errorf("%w: %d", ErrInvalidBombCount, in.Bombs)
	}

	if in.Board.IsBomb(in.X, in.Y) {
		return RevealOutcome{Result: RevealLose, Step: in.Step}, nil
	}

	step := in.Step + 1
	multiplier, err := Multiplier(in.Bombs, step)
	if err != nil {
		return RevealOutcome{}, err
	}

	win := WinAmount(in.Bet, multiplier)

	return RevealOutcome{
		Result:     RevealWin,
		Step:       step,
		Multiplier: multiplier,
		WinAmount:  win,
		Earned:     Earned(in.Bet, win),
	}, nil
}

// WinAmount is bet × multiplier rounded to 2 decimals.
func WinAmount(bet, multiplier float64) float64 {
	return decimal.NewFromFloat(bet).
		Mul(decimal.NewFromFloat(multiplier)).
		Round(2).
		InexactFloat64()
}

func Earned(bet, win float64) float64 {
	return decimal.NewFromFloat(win).
		Sub(decimal.NewFromFloat(bet)).
		Round(2).
		InexactFloat64()
}

// EarnedStars converts positive round profit in balance units to stars.
func EarnedStars(earned float64) float64 {
	if earned <= 0 {
		return 0
	}
	return decimal.NewFromFloat(earned).
		Div(decimal.NewFromInt(models.StarUnits)).
		InexactFloat64()
}
