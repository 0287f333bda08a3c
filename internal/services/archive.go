package services

import (
	"context"
	"fmt"

	_ "github.com/go-sql-driver/mysql"
	"xorm.io/xorm"

	"miner-game-backend/internal/models"
)

type TransactionLog interface {
	AppendTransaction(ctx context.Context, tx *models.Transaction) error
	GetUserTransactions(ctx context.Context, userID string, limit int64) ([]*models.Transaction, error)
}

// SQLTransactionLog stores the append-only transaction log in MySQL.
type SQLTransactionLog struct {
	engine *xorm.Engine
}

func NewSQLTransactionLog(dsn string) (*SQLTransactionLog, error) {
	engine, err := xorm.NewEngine("mysql", dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	if err := engine.Ping(); err != nil {
		engine.Close()
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}

	if err := engine.Sync(new(models.Transaction)); err != nil {
		engine.Close()
		return nil, fmt.Errorf("failed to sync transactions table: %w", err)
	}

	return &SQLTransactionLog{engine: engine}, nil
}

func (l *SQLTransactionLog) AppendTransaction(ctx context.Context, tx *models.Transaction) error {
	if _, err := l.engine.Context(ctx).Insert(tx); err != nil {
		return fmt.Errorf("failed to insert transaction %s: %w", tx.ID, err)
	}
	return nil
}

func (l *SQLTransactionLog) GetUserTransactions(ctx context.Context, userID string, limit int64) ([]*models.Transaction, error) {
	if limit <= 0 {
		limit = DefaultTransactionLimit
	}
	if limit > MaxUserTransactions {
		limit = MaxUserTransactions
	}

	var transactions []*models.Transaction
	err := l.engine.Context(ctx).
		Where("user_id = ?", userID).
		Desc("created_at").
		Limit(int(limit)).
		Find(&transactions)
	if err != nil {
		return nil, fmt.Errorf("failed to query transactions: %w", err)
	}

	return transactions, nil
}

func (l *SQLTransactionLog) Close() error {
	return l.engine.Close()
}
