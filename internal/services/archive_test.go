package services_test

import (
	"context"
	"os"
	"testing"
	"time"

	"miner-game-backend/internal/config"
	"miner-game-backend/internal/models"
	"miner-game-backend/internal/services"
)

func TestSQLTransactionLog(t *testing.T) {
	dsn := os.Getenv("TEST_MYSQL_DSN")
	if dsn == "" {
		t.Skip("TEST_MYSQL_DSN not set")
	}

	txLog, err := services.NewSQLTransactionLog(dsn)
	if err != nil {
		t.Fatalf("Failed to open transaction log: %v", err)
	}
	defer txLog.Close()

	ctx := context.Background()
	userID := models.GenerateTransactionID()

	for _, stars := range []float64{1, 2, 3} {
		tx := &models.Transaction{
			ID:        models.GenerateTransactionID(),
			UserID:    userID,
			Type:      models.TransactionTypeDeposit,
			Stars:     stars,
			CreatedAt: testNow.Add(time.Duration(stars) * time.Second),
		}
		if err := txLog.AppendTransaction(ctx, tx); err != nil {
			t.Fatalf("Failed to append transaction: %v", err)
		}
	}

	txs, err := txLog.GetUserTransactions(ctx, userID, 2)
	if err != nil {
		t.Fatalf("Failed to query transactions: %v", err)
	}
	if len(txs) != 2 || txs[0].Stars != 3 {
		t.Errorf("Expected the two newest transactions, got %+v", txs)
	}
}

func TestGameEngineWithSQLTransactionLog(t *testing.T) {
	dsn := os.Getenv("TEST_MYSQL_DSN")
	if dsn == "" {
		t.Skip("TEST_MYSQL_DSN not set")
	}

	txLog, err := services.NewSQLTransactionLog(dsn)
	if err != nil {
		t.Fatalf("Failed to open transaction log: %v", err)
	}
	defer txLog.Close()

	redisService, _ := setupTestRedis(t)
	engine := services.NewGameEngine(redisService, config.Default(), services.WithTransactionLog(txLog))

	ctx := context.Background()
	userID := models.GenerateRoundID()

	if _, err := engine.DepositStars(ctx, userID, 3, "tg_sql"); err != nil {
		t.Fatalf("Failed to deposit: %v", err)
	}

	txs, err := engine.GetTransactions(ctx, userID, 10)
	if err != nil {
		t.Fatalf("Failed to get transactions: %v", err)
	}
	if len(txs) != 1 || txs[0].ExternalID != "tg_sql" {
		t.Errorf("Expected the deposit in the archive, got %+v", txs)
	}
}
