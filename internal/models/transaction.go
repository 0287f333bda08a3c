package models

import "time"

type TransactionType string

const (
	TransactionTypeBet        TransactionType = "bet"
	TransactionTypeDeposit    TransactionType = "deposit"
	TransactionTypeWithdrawal TransactionType = "withdrawal"
	TransactionTypeCase       TransactionType = "case"
	TransactionTypePayout     TransactionType = "payout"
)

type Transaction struct {
	ID            string          `json:"id" xorm:"pk varchar(64) 'id'"`
	UserID        string          `json:"user_id" xorm:"index varchar(64) notnull 'user_id'"`
	Type          TransactionType `json:"type" xorm:"varchar(16) notnull 'type'"`
	Stars         float64         `json:"stars" xorm:"decimal(20,2) 'stars'"`
	BalanceChange float64         `json:"balance_change" xorm:"decimal(20,2) 'balance_change'"`
	BalanceAfter  float64         `json:"balance_after" xorm:"decimal(20,2) 'balance_after'"`
	ExternalID    string          `json:"transaction_id,omitempty" xorm:"varchar(128) 'external_id'"`
	RoundID       string          `json:"round_id,omitempty" xorm:"varchar(64) 'round_id'"`
	Description   string          `json:"description" xorm:"varchar(255) 'description'"`
	CreatedAt     time.Time       `json:"created_at" xorm:"index 'created_at'"`
}

func (Transaction) TableName() string {
	return "transactions"
}
