package services

import (
	"fmt"
	"math/rand"

	"miner-game-backend/internal/models"
)

// Shuffler returns a random permutation of [0, n).
type Shuffler func(n int) []int

// DefaultShuffler draws from the runtime's ChaCha8 source, which is safe for
// concurrent use.
func DefaultShuffler(n int) []int {
	return rand.Perm(n)
}

// GenerateBoard places bombs on the first positions of a random permutation
// of the 25 cells, i.e. uniformly without replacement.
func GenerateBoard(bombs int, shuffle Shuffler) (models.Board, error) {
	if !IsValidBombCount(bombs) {
		return nil, fmt.Errorf("%w: %d", ErrInvalidBombCount, bombs)
	}
	if shuffle == nil {
		shuffle = DefaultShuffler
	}

	perm := shuffle(models.BoardCells)
	if len(perm) != models.BoardCells {
		return nil, fmt.Errorf("shuffler returned %d positions, want %d", len(perm), models.BoardCells)
	}

	board := models.NewBoard()
	for _, pos := range perm[:bombs] {
		if pos < 0 || pos >= models.BoardCells {
			return nil, fmt.Errorf("shuffler returned out of range position %d", pos)
		}
		board[pos/models.BoardSize][pos%models.BoardSize] = models.CellBomb
	}

	if board.Bombs() != bombs {
		return nil, fmt.Errorf("shuffler returned duplicate positions")
	}

	return board, nil
}
