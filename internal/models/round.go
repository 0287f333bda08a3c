package models

import (
	"fmt"
	"time"
)

const (
	BoardSize  = 5
	BoardCells = BoardSize * BoardSize

	CellSafe = 0
	CellBomb = -1
)

type RoundStatus string

const (
	RoundStatusActive    RoundStatus = "active"
	RoundStatusLost      RoundStatus = "lost"
	RoundStatusCashedOut RoundStatus = "cashed_out"
)

// Board is indexed as board[x][y].
type Board [][]int

func NewBoard() Board {
	b := make(Board, BoardSize)
	for i := range b {
		b[i] = make([]int, BoardSize)
	}
	return b
}

func (b Board) Validate() error {
	if len(b) != BoardSize {
		return fmt.Errorf("board must have %d rows, got %d", BoardSize, len(b))
	}
	for i, row := range b {
		if len(row) != BoardSize {
			return fmt.Errorf("board row %d must have %d cells, got %d", i, BoardSize, len(row))
		}
		for j, cell := range row {
			if cell != CellSafe && cell != CellBomb {
				return fmt.Errorf("board cell (%d,%d) has invalid value %d", i, j, cell)
			}
		}
	}
	return nil
}

func (b Board) Bombs() int {
	n := 0
	for _, row := range b {
		for _, cell := range row {
			if cell == CellBomb {
				n++
			}
		}
	}
	return n
}

func (b Board) IsBomb(x, y int) bool {
	return b[x][y] == CellBomb
}

type Cell struct {
	X int `json:"x"`
	Y int `json:"y"`
}

type Round struct {
	ID         string      `json:"id"`
	UserID     string      `json:"user_id"`
	Bombs      int         `json:"bombs"`
	Bet        float64     `json:"bet"`
	Board      Board       `json:"board"`
	Revealed   []Cell      `json:"revealed"`
	Step       int         `json:"step"`
	Multiplier float64     `json:"multiplier"`
	Winnings   float64     `json:"winnings"`
	Status     RoundStatus `json:"status"`
	CreatedAt  time.Time   `json:"created_at"`
	UpdatedAt  time.Time   `json:"updated_at"`
	EndedAt    time.Time   `json:"ended_at,omitempty"`
}

func (r *Round) IsRevealed(x, y int) bool {
	for _, c := range r.Revealed {
		if c.X == x && c.Y == y {
			return true
		}
	}
	return false
}

// SafeCells is the number of reveals that clear the board.
func (r *Round) SafeCells() int {
	return BoardCells - r.Bombs
}
