package models_test

import (
	"strings"
	"testing"
	"time"

	"miner-game-backend/internal/models"
)

func TestModels(t *testing.T) {
	roundID := models.GenerateRoundID()
	if !strings.HasPrefix(roundID, "round_") {
		t.Errorf("Unexpected round ID format: %s", roundID)
	}
	if roundID == models.GenerateRoundID() {
		t.Error("Round IDs should be unique")
	}

	if !strings.HasPrefix(models.GenerateTransactionID(), "tx_") {
		t.Error("Transaction ID should start with tx_")
	}

	user := models.NewUser("42", 100, time.Unix(1700000000, 0))
	if user.Balance != 100 {
		t.Errorf("Expected starting balance 100, got %f", user.Balance)
	}
	if user.CreatedAt != 1700000000 {
		t.Errorf("Unexpected created_at %d", user.CreatedAt)
	}

	fields := user.Fields()
	if fields["id"] != "42" || fields["balance"] != 100.0 {
		t.Errorf("Unexpected hash fields: %v", fields)
	}

	if got := models.StarsToUnits(3); got != 300 {
		t.Errorf("Expected 300 units for 3 stars, got %f", got)
	}
}

func TestBoard(t *testing.T) {
	board := models.NewBoard()
	if err := board.Validate(); err != nil {
		t.Fatalf("Empty board should be valid: %v", err)
	}

	board[1][2] = models.CellBomb
	board[4][4] = models.CellBomb
	if board.Bombs() != 2 {
		t.Errorf("Expected 2 bombs, got %d", board.Bombs())
	}
	if !board.IsBomb(1, 2) || board.IsBomb(2, 1) {
		t.Error("IsBomb should use [x][y] indexing")
	}

	invalid := []models.Board{
		{{0, 0}},
		append(models.NewBoard()[:4], []int{0, 0, 0, 0}),
		func() models.Board { b := models.NewBoard(); b[0][0] = 7; return b }(),
	}
	for i, b := range invalid {
		if err := b.Validate(); err == nil {
			t.Errorf("Board %d should be invalid", i)
		}
	}
}

func TestRoundRevealed(t *testing.T) {
	round := &models.Round{Bombs: 3, Revealed: []models.Cell{{X: 0, Y: 1}}}

	if !round.IsRevealed(0, 1) {
		t.Error("Cell (0,1) should be revealed")
	}
	if round.IsRevealed(1, 0) {
		t.Error("Cell (1,0) should not be revealed")
	}
	if round.SafeCells() != 22 {
		t.Errorf("Expected 22 safe cells, got %d", round.SafeCells())
	}
}
