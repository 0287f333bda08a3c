package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"
)

const (
	RoundModeClient = "client"
	RoundModeServer = "server"
)

type Config struct {
	Env      string
	Port     string
	LogLevel string

	RedisURL  string
	RedisPass string
	RedisDB   int

	// Optional MySQL archive for the transaction log. Empty keeps the log in Redis only.
	DatabaseDSN string

	// Optional RabbitMQ broker for ledger events.
	AMQPURL      string
	AMQPExchange string

	JWTSecret    string
	JWTExpiry    time.Duration
	BotToken     string
	AuthRequired bool

	RoundMode string
	RoundTTL  time.Duration

	StartingBalance        float64
	WithdrawalPercent      float64
	MinRoundsForWithdrawal int64
	MinRoundsAfterDeposit  int64
	DailyWithdrawalLimit   float64
	CasePrice              int64
	CasePrizeMin           int
	CasePrizeMax           int
}

func Load() (*Config, error) {
	cfg := &Config{
		Env:      getEnv("ENV", "development"),
		Port:     getEnv("PORT", "5000"),
		LogLevel: getEnv("LOG_LEVEL", "info"),

		RedisURL:  getEnv("REDIS_URL", "localhost:6379"),
		RedisPass: getEnv("REDIS_PASSWORD", ""),

		DatabaseDSN: getEnv("DATABASE_DSN", ""),

		AMQPURL:      getEnv("AMQP_URL", ""),
		AMQPExchange: getEnv("AMQP_EXCHANGE", "miner.events"),

		JWTSecret: getEnv("JWT_SECRET", ""),
		BotToken:  getEnv("BOT_TOKEN", ""),

		RoundMode: strings.ToLower(getEnv("ROUND_MODE", RoundModeClient)),
	}

	var err error
	if cfg.RedisDB, err = getEnvInt("REDIS_DB", 0); err != nil {
		return nil, err
	}
	if cfg.JWTExpiry, err = getEnvDuration("JWT_EXPIRY", 24*time.Hour); err != nil {
		return nil, err
	}
	if cfg.AuthRequired, err = getEnvBool("AUTH_REQUIRED", false); err != nil {
		return nil, err
	}
	if cfg.RoundTTL, err = getEnvDuration("ROUND_TTL", 24*time.Hour); err != nil {
		return nil, err
	}
	if cfg.StartingBalance, err = getEnvFloat("STARTING_BALANCE", 0); err != nil {
		return nil, err
	}
	if cfg.WithdrawalPercent, err = getEnvFloat("WITHDRAWAL_PERCENT", 0.40); err != nil {
		return nil, err
	}
	if cfg.DailyWithdrawalLimit, err = getEnvFloat("DAILY_WITHDRAWAL_LIMIT", 500); err != nil {
		return nil, err
	}

	minRounds, err := getEnvInt("MIN_ROUNDS_FOR_WITHDRAWAL", 20)
	if err != nil {
		return nil, err
	}
	cfg.MinRoundsForWithdrawal = int64(minRounds)

	minAfterDeposit, err := getEnvInt("MIN_ROUNDS_BETWEEN_DEPOSIT_WITHDRAWAL", 10)
	if err != nil {
		return nil, err
	}
	cfg.MinRoundsAfterDeposit = int64(minAfterDeposit)

	casePrice, err := getEnvInt("CASE_PRICE", 2)
	if err != nil {
		return nil, err
	}
	cfg.CasePrice = int64(casePrice)

	if cfg.CasePrizeMin, err = getEnvInt("CASE_PRIZE_MIN", 50); err != nil {
		return nil, err
	}
	if cfg.CasePrizeMax, err = getEnvInt("CASE_PRIZE_MAX", 500); err != nil {
		return nil, err
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return cfg, nil
}

// Default returns the configuration used when no environment is set.
func Default() *Config {
	return &Config{
		Env:                    "development",
		Port:                   "5000",
		LogLevel:               "info",
		RedisURL:               "localhost:6379",
		AMQPExchange:           "miner.events",
		JWTExpiry:              24 * time.Hour,
		RoundMode:              RoundModeClient,
		RoundTTL:               24 * time.Hour,
		WithdrawalPercent:      0.40,
		MinRoundsForWithdrawal: 20,
		MinRoundsAfterDeposit:  10,
		DailyWithdrawalLimit:   500,
		CasePrice:              2,
		CasePrizeMin:           50,
		CasePrizeMax:           500,
	}
}

func (c *Config) Validate() error {
	if c.RoundMode != RoundModeClient && c.RoundMode != RoundModeServer {
		return fmt.Errorf("ROUND_MODE must be %q or %q, got %q", RoundModeClient, RoundModeServer, c.RoundMode)
	}
	if c.AuthRequired && c.JWTSecret == "" {
		return fmt.Errorf("JWT_SECRET is required when AUTH_REQUIRED is set")
	}
	if c.WithdrawalPercent < 0 || c.WithdrawalPercent > 1 {
		return fmt.Errorf("WITHDRAWAL_PERCENT must be within [0, 1], got %v", c.WithdrawalPercent)
	}
	if c.StartingBalance < 0 {
		return fmt.Errorf("STARTING_BALANCE must not be negative")
	}
	if c.CasePrizeMin < 0 || c.CasePrizeMax < c.CasePrizeMin {
		return fmt.Errorf("invalid case prize range [%d, %d]", c.CasePrizeMin, c.CasePrizeMax)
	}
	return nil
}

func (c *Config) IsProduction() bool {
	return c.Env == "production"
}

func getEnv(key, fallback string) string {
	if v, ok := os.LookupEnv(key); ok && v != "" {
		return v
	}
	return fallback
}

func getEnvInt(key string, fallback int) (int, error) {
	v := getEnv(key, "")
	if v == "" {
		return fallback, nil
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return 0, fmt.Errorf("invalid %s: %w", key, err)
	}
	return n, nil
}

func getEnvFloat(key string, fallback float64) (float64, error) {
	v := getEnv(key, "")
	if v == "" {
		return fallback, nil
	}
	f, err := strconv.ParseFloat(v, 64)
	if err != nil {
		return 0, fmt.Errorf("invalid %s: %w", key, err)
	}
	return f, nil
}

func getEnvBool(key string, fallback bool) (bool, error) {
	v := getEnv(key, "")
	if v == "" {
		return fallback, nil
	}
	b, err := strconv.ParseBool(v)
	if err != nil {
		return false, fmt.Errorf("invalid %s: %w", key, err)
	}
	return b, nil
}

func getEnvDuration(key string, fallback time.Duration) (time.Duration, error) {
	v := getEnv(key, "")
	if v == "" {
		return fallback, nil
	}
	d, err := time.ParseDuration(v)
	if err != nil {
		return 0, fmt.Errorf("invalid %s: %w", key, err)
	}
	return d, nil
}
