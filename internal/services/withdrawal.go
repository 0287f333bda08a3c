package services

import (
	"fmt"
	"time"

	"github.com/shopspring/decimal"

	"miner-game-backend/internal/config"
	"miner-game-backend/internal/models"
)

const dateLayout = "2006-01-02"

type WithdrawalPolicy struct {
	Percent               float64
	MinRounds             int64
	MinRoundsAfterDeposit int64
	DailyLimit            float64
}

func NewWithdrawalPolicy(cfg *config.Config) WithdrawalPolicy {
	return WithdrawalPolicy{
		Percent:               cfg.WithdrawalPercent,
		MinRounds:             cfg.MinRoundsForWithdrawal,
		MinRoundsAfterDeposit: cfg.MinRoundsAfterDeposit,
		DailyLimit:            cfg.DailyWithdrawalLimit,
	}
}

// EarnedAllowance is stars_earned*percent - stars_withdrawn, rounded to 2
// decimals. It may be negative.
func (p WithdrawalPolicy) EarnedAllowance(u *models.User) float64 {
	return decimal.NewFromFloat(u.StarsEarned).
		Mul(decimal.NewFromFloat(p.Percent)).
		Sub(decimal.NewFromFloat(u.StarsWithdrawn)).
		Round(2).
		InexactFloat64()
}

// ResetDaily zeroes the daily counter when the stored date is not today and
// reports whether the user changed.
func (p WithdrawalPolicy) ResetDaily(u *models.User, now time.Time) bool {
	today := now.Format(dateLayout)
	if u.LastWithdrawalDate == today {
		return false
	}
	u.DailyWithdrawalToday = 0
	u.LastWithdrawalDate = today
	return true
}

func (p WithdrawalPolicy) DailyRemaining(u *models.User) float64 {
	return decimal.NewFromFloat(p.DailyLimit).
		Sub(decimal.NewFromFloat(u.DailyWithdrawalToday)).
		InexactFloat64()
}

// Available is the amount the player could withdraw right now, ignoring the
// round-count gates. Call ResetDaily first.
func (p WithdrawalPolicy) Available(u *models.User) float64 {
	available := p.EarnedAllowance(u)
	if available < 0 {
		available = 0
	}
	if remaining := p.DailyRemaining(u); remaining < available {
		available = remaining
	}
	return available
}

func (p WithdrawalPolicy) CanWithdraw(u *models.User) bool {
	return u.GamesPlayed >= p.MinRounds &&
		u.GamesSinceLastDeposit >= p.MinRoundsAfterDeposit &&
		p.Available(u) > 0
}

// Check validates a withdrawal of stars. The daily counter is reset when the
// stored date is stale.
func (p WithdrawalPolicy) Check(u *models.User, stars float64, now time.Time) error {
	if u.GamesPlayed < p.MinRounds {
		return &WithdrawalError{
			Reason: fmt.Sprintf("at least %d rounds must be played, played %d", p.MinRounds, u.GamesPlayed),
		}
	}
	if u.GamesSinceLastDeposit < p.MinRoundsAfterDeposit {
		return &WithdrawalError{
			Reason: fmt.Sprintf("%d rounds must be played after a deposit, played %d", p.MinRoundsAfterDeposit, u.GamesSinceLastDeposit),
		}
	}

	available := p.EarnedAllowance(u)
	if stars <= 0 || stars > available {
		return &WithdrawalError{Reason: "withdrawal exceeds earned allowance", Available: &available}
	}

	p.ResetDaily(u, now)

	if u.DailyWithdrawalToday+stars > p.DailyLimit {
		remaining := p.DailyRemaining(u)
		return &WithdrawalError{Reason: "daily withdrawal limit reached", Remaining: &remaining}
	}

	return nil
}

// Apply records an accepted withdrawal on the user.
func (p WithdrawalPolicy) Apply(u *models.User, stars float64, now time.Time) {
	u.StarsWithdrawn = decimal.NewFromFloat(u.StarsWithdrawn).Add(decimal.NewFromFloat(stars)).InexactFloat64()
	u.DailyWithdrawalToday = decimal.NewFromFloat(u.DailyWithdrawalToday).Add(decimal.NewFromFloat(stars)).InexactFloat64()
	u.LastWithdrawalAt = now.Unix()
}
