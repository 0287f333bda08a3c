package services

import "time"

const (
	KeyUser             = "user:%s"
	KeyRound            = "round:%s"
	KeyTransactions     = "transactions"
	KeyUserTransactions = "user:%s:transactions"
	KeyRateLimit        = "ratelimit:%s:%s"

	TTLRound = 24 * time.Hour

	// Recent-history index per user; the global log is never trimmed.
	MaxUserTransactions     = 100
	DefaultTransactionLimit = 50

	DefaultRateLimitStart   = 30  // Max 30 rounds per minute
	DefaultRateLimitReveal  = 120 // Max 120 reveals per minute
	DefaultRateLimitCashout = 60  // Max 60 cashouts per minute

	maxTxRetries = 10
)
