package models

import "time"

// StarUnits is the balance credited per deposited Telegram Star.
const StarUnits = 100

type User struct {
	ID      string  `json:"user_id" redis:"id"`
	Balance float64 `json:"balance" redis:"balance"`

	StarsDeposited int64   `json:"stars_deposited" redis:"stars_deposited"`
	StarsEarned    float64 `json:"stars_earned" redis:"stars_earned"`
	StarsWithdrawn float64 `json:"stars_withdrawn" redis:"stars_withdrawn"`

	GamesPlayed           int64 `json:"games_played" redis:"games_played"`
	Wins                  int64 `json:"wins" redis:"wins"`
	Losses                int64 `json:"losses" redis:"losses"`
	GamesSinceLastDeposit int64 `json:"games_since_last_deposit" redis:"games_since_last_deposit"`

	DailyWithdrawalToday float64 `json:"daily_withdrawal_today" redis:"daily_withdrawal_today"`
	LastWithdrawalDate   string  `json:"last_withdrawal_date,omitempty" redis:"last_withdrawal_date"`

	LastDepositAt    int64 `json:"last_deposit_at,omitempty" redis:"last_deposit_at"`
	LastWithdrawalAt int64 `json:"last_withdrawal_at,omitempty" redis:"last_withdrawal_at"`
	CreatedAt        int64 `json:"created_at" redis:"created_at"`
}

func NewUser(id string, startingBalance float64, now time.Time) *User {
	return &User{
		ID:        id,
		Balance:   startingBalance,
		CreatedAt: now.Unix(),
	}
}

// Fields returns the hash representation written to Redis.
func (u *User) Fields() map[string]interface{} {
	return map[string]interface{}{
		"id":                       u.ID,
		"balance":                  u.Balance,
		"stars_deposited":          u.StarsDeposited,
		"stars_earned":             u.StarsEarned,
		"stars_withdrawn":          u.StarsWithdrawn,
		"games_played":             u.GamesPlayed,
		"wins":                     u.Wins,
		"losses":                   u.Losses,
		"games_since_last_deposit": u.GamesSinceLastDeposit,
		"daily_withdrawal_today":   u.DailyWithdrawalToday,
		"last_withdrawal_date":     u.LastWithdrawalDate,
		"last_deposit_at":          u.LastDepositAt,
		"last_withdrawal_at":       u.LastWithdrawalAt,
		"created_at":               u.CreatedAt,
	}
}

type UserInfo struct {
	Balance             float64 `json:"balance"`
	StarsDeposited      int64   `json:"stars_deposited"`
	StarsEarned         float64 `json:"stars_earned"`
	StarsWithdrawn      float64 `json:"stars_withdrawn"`
	GamesPlayed         int64   `json:"games_played"`
	Wins                int64   `json:"wins"`
	Losses              int64   `json:"losses"`
	AvailableWithdrawal float64 `json:"available_withdrawal"`
	CanWithdraw         bool    `json:"can_withdraw"`
	MinRoundsNeeded     int64   `json:"min_rounds_needed"`
	DailyLimitRemaining float64 `json:"daily_limit_remaining"`
	GamesSinceDeposit   int64   `json:"games_since_deposit"`
}
