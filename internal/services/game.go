package services

import (
	"context"
	"errors"
	"fmt"
	"math/rand"
	"time"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"miner-game-backend/internal/config"
	"miner-game-backend/internal/models"
)

type GameEngine struct {
	store       *RedisService
	txLog       TransactionLog
	publisher   EventPublisher
	broadcaster Broadcaster
	logger      *zap.Logger

	policy          WithdrawalPolicy
	roundMode       string
	startingBalance float64
	casePrice       int64
	casePrizeMin    int
	casePrizeMax    int

	shuffle Shuffler
	prize   func(min, max int) int
	now     func() time.Time
}

type Option func(*GameEngine)

func WithTransactionLog(l TransactionLog) Option {
	return func(ge *GameEngine) { ge.txLog = l }
}

func WithPublisher(p EventPublisher) Option {
	return func(ge *GameEngine) { ge.publisher = p }
}

func WithBroadcaster(b Broadcaster) Option {
	return func(ge *GameEngine) { ge.broadcaster = b }
}

func WithLogger(l *zap.Logger) Option {
	return func(ge *GameEngine) { ge.logger = l }
}

func WithShuffler(s Shuffler) Option {
	return func(ge *GameEngine) { ge.shuffle = s }
}

func WithClock(now func() time.Time) Option {
	return func(ge *GameEngine) { ge.now = now }
}

// WithPrizeSource overrides the case prize draw; it must return a value in [min, max].
func WithPrizeSource(prize func(min, max int) int) Option {
	return func(ge *GameEngine) { ge.prize = prize }
}

func NewGameEngine(store *RedisService, cfg *config.Config, opts ...Option) *GameEngine {
	ge := &GameEngine{
		store:           store,
		txLog:           store,
		publisher:       NopPublisher{},
		broadcaster:     nopBroadcaster{},
		logger:          zap.NewNop(),
		policy:          NewWithdrawalPolicy(cfg),
		roundMode:       cfg.RoundMode,
		startingBalance: cfg.StartingBalance,
		casePrice:       cfg.CasePrice,
		casePrizeMin:    cfg.CasePrizeMin,
		casePrizeMax:    cfg.CasePrizeMax,
		shuffle:         DefaultShuffler,
		prize:           defaultPrize,
		now:             time.Now,
	}

	for _, opt := range opts {
		opt(ge)
	}

	return ge
}

func defaultPrize(min, max int) int {
	return min + rand.Intn(max-min+1)
}

func (ge *GameEngine) RoundMode() string {
	return ge.roundMode
}

func (ge *GameEngine) Ping(ctx context.Context) error {
	return ge.store.Ping(ctx)
}

func (ge *GameEngine) newUser(userID string) func() *models.User {
	return func() *models.User {
		return models.NewUser(userID, ge.startingBalance, ge.now())
	}
}

func (ge *GameEngine) StartGame(ctx context.Context, userID string, bombs int, bet float64) (*models.StartGameResponse, error) {
	if userID == "" {
		return nil, ErrMissingUserID
	}
	if bet <= 0 {
		return nil, ErrInvalidBet
	}

	multipliers, err := Multipliers(bombs)
	if err != nil {
		return nil, err
	}

	board, err := GenerateBoard(bombs, ge.shuffle)
	if err != nil {
		return nil, err
	}

	now := ge.now()
	var round *models.Round
	if ge.roundMode == config.RoundModeServer {
		round = &models.Round{
			ID:        models.GenerateRoundID(),
			UserID:    userID,
			Bombs:     bombs,
			Bet:       bet,
			Board:     board,
			Revealed:  []models.Cell{},
			Status:    models.RoundStatusActive,
			CreatedAt: now,
			UpdatedAt: now,
		}
	}

	user, _, err := ge.store.UpdateUserRound(ctx, userID, "", ge.newUser(userID), func(u *models.User, _ *models.Round) (*models.Round, error) {
		if u.Balance < bet {
			return nil, fmt.Errorf("%w: have %.2f, need %.2f", ErrInsufficientBalance, u.Balance, bet)
		}
		u.Balance = subUnits(u.Balance, bet)
		u.GamesPlayed++
		u.GamesSinceLastDeposit++
		return round, nil
	})
	if err != nil {
		return nil, fmt.Errorf("failed to start game: %w", err)
	}

	resp := &models.StartGameResponse{
		Bombs:       bombs,
		Bet:         bet,
		Multipliers: multipliers,
		Balance:     user.Balance,
	}
	if round != nil {
		resp.RoundID = round.ID
	} else {
		resp.Field = board
	}

	ge.recordTransaction(ctx, &models.Transaction{
		UserID:        userID,
		Type:          models.TransactionTypeBet,
		BalanceChange: -bet,
		BalanceAfter:  user.Balance,
		RoundID:       resp.RoundID,
		Description:   fmt.Sprintf("Bet %.2f with %d bombs", bet, bombs),
	})
	ge.broadcaster.BroadcastBalance(userID, user.Balance)

	ge.logger.Debug("round started",
		zap.String("user_id", userID),
		zap.String("round_id", resp.RoundID),
		zap.Int("bombs", bombs),
		zap.Float64("bet", bet),
	)

	return resp, nil
}

func (ge *GameEngine) OpenCell(ctx context.Context, req *models.OpenCellRequest) (*models.OpenCellResponse, error) {
	if req.UserID == "" {
		return nil, ErrMissingUserID
	}
	if req.X == nil || req.Y == nil {
		return nil, fmt.Errorf("%w: x and y are required", ErrInvalidCell)
	}

	if ge.roundMode == config.RoundModeServer {
		if req.RoundID == "" {
			return nil, ErrMissingRound
		}
		return ge.revealRound(ctx, req.UserID, req.RoundID, *req.X, *req.Y)
	}

	return ge.revealClientBoard(ctx, req)
}

// revealClientBoard resolves a reveal on a board held by the client and
// credits the win amount immediately.
func (ge *GameEngine) revealClientBoard(ctx context.Context, req *models.OpenCellRequest) (*models.OpenCellResponse, error) {
	if req.Field == nil {
		return nil, fmt.Errorf("%w: field is required", ErrInvalidBoard)
	}

	outcome, err := Resolve(RevealInput{
		X:     *req.X,
		Y:     *req.Y,
		Board: req.Field,
		Step:  req.Step,
		Bombs: req.Bombs,
		Bet:   req.Bet,
	})
	if err != nil {
		return nil, err
	}

	user, err := ge.store.UpdateUser(ctx, req.UserID, nil, func(u *models.User) error {
		if outcome.Result == RevealLose {
			u.Losses++
			return nil
		}
		u.Balance = addUnits(u.Balance, outcome.WinAmount)
		u.Wins++
		u.StarsEarned = addUnits(u.StarsEarned, EarnedStars(outcome.Earned))
		return nil
	})
	if err != nil {
		return nil, err
	}

	if outcome.Result == RevealLose {
		ge.publish(ctx, EventRoundSettled, &LedgerEvent{
			UserID:  req.UserID,
			Balance: user.Balance,
			Result:  string(RevealLose),
		})
		return &models.OpenCellResponse{
			Result:     string(RevealLose),
			Multiplier: 0,
			Balance:    user.Balance,
		}, nil
	}

	ge.recordTransaction(ctx, &models.Transaction{
		UserID:        req.UserID,
		Type:          models.TransactionTypePayout,
		BalanceChange: outcome.WinAmount,
		BalanceAfter:  user.Balance,
		Description:   fmt.Sprintf("Reveal %d at %.2fx", outcome.Step, outcome.Multiplier),
	})
	ge.broadcaster.BroadcastBalance(req.UserID, user.Balance)

	return &models.OpenCellResponse{
		Result:     string(RevealWin),
		Step:       outcome.Step,
		Multiplier: outcome.Multiplier,
		Field:      req.Field,
		Balance:    user.Balance,
		Earned:     outcome.Earned,
	}, nil
}

// revealRound resolves a reveal on a server-held round. Winnings accrue on
// the round and are credited on cashout, or automatically once every safe
// cell is open.
func (ge *GameEngine) revealRound(ctx context.Context, userID, roundID string, x, y int) (*models.OpenCellResponse, error) {
	var outcome RevealOutcome

	user, round, err := ge.store.UpdateUserRound(ctx, userID, roundID, nil, func(u *models.User, r *models.Round) (*models.Round, error) {
		if err := checkRoundAccess(r, userID, roundID); err != nil {
			return nil, err
		}
		if x < 0 || x >= models.BoardSize || y < 0 || y >= models.BoardSize {
			return nil, fmt.Errorf("%w: (%d,%d)", ErrInvalidCell, x, y)
		}
		if r.IsRevealed(x, y) {
			return nil, fmt.Errorf("%w: (%d,%d)", ErrCellRevealed, x, y)
		}

		var err error
		outcome, err = Resolve(RevealInput{X: x, Y: y, Board: r.Board, Step: r.Step, Bombs: r.Bombs, Bet: r.Bet})
		if err != nil {
			return nil, err
		}

		now := ge.now()
		r.Revealed = append(r.Revealed, models.Cell{X: x, Y: y})
		r.UpdatedAt = now

		if outcome.Result == RevealLose {
			r.Status = models.RoundStatusLost
			r.Multiplier = 0
			r.Winnings = 0
			r.EndedAt = now
			u.Losses++
			return r, nil
		}

		r.Step = outcome.Step
		r.Multiplier = outcome.Multiplier
		r.Winnings = outcome.WinAmount

		if r.Step >= r.SafeCells() {
			ge.settleRound(u, r, now)
		}
		return r, nil
	})
	if err != nil {
		return nil, err
	}

	resp := &models.OpenCellResponse{
		Result:     string(outcome.Result),
		RoundID:    round.ID,
		Step:       round.Step,
		Multiplier: round.Multiplier,
		Balance:    user.Balance,
		Winnings:   round.Winnings,
		Status:     string(round.Status),
	}

	switch round.Status {
	case models.RoundStatusLost:
		resp.Field = round.Board
		ge.publish(ctx, EventRoundSettled, &LedgerEvent{
			UserID:  userID,
			RoundID: round.ID,
			Balance: user.Balance,
			Result:  string(models.RoundStatusLost),
		})
	case models.RoundStatusCashedOut:
		resp.Field = round.Board
		resp.Earned = Earned(round.Bet, round.Winnings)
		ge.afterCashout(ctx, user, round)
	default:
		resp.Earned = Earned(round.Bet, round.Winnings)
	}

	ge.broadcaster.BroadcastRoundUpdate(userID, resp)

	return resp, nil
}

func (ge *GameEngine) Cashout(ctx context.Context, userID, roundID string) (*models.CashoutResponse, error) {
	if ge.roundMode != config.RoundModeServer {
		return nil, ErrCashoutDisabled
	}
	if userID == "" {
		return nil, ErrMissingUserID
	}

	user, round, err := ge.store.UpdateUserRound(ctx, userID, roundID, nil, func(u *models.User, r *models.Round) (*models.Round, error) {
		if err := checkRoundAccess(r, userID, roundID); err != nil {
			return nil, err
		}
		if r.Step == 0 {
			return nil, ErrNothingToCashout
		}
		ge.settleRound(u, r, ge.now())
		return r, nil
	})
	if err != nil {
		return nil, err
	}

	ge.afterCashout(ctx, user, round)

	return &models.CashoutResponse{
		RoundID:    round.ID,
		Step:       round.Step,
		Multiplier: round.Multiplier,
		Winnings:   round.Winnings,
		Earned:     Earned(round.Bet, round.Winnings),
		Balance:    user.Balance,
	}, nil
}

// GetRound returns a round owned by userID. The board of an active round is withheld.
func (ge *GameEngine) GetRound(ctx context.Context, userID, roundID string) (*models.Round, error) {
	round, err := ge.store.GetRound(ctx, roundID)
	if err != nil {
		return nil, err
	}
	if round.UserID != userID {
		return nil, ErrRoundForbidden
	}
	if round.Status == models.RoundStatusActive {
		round.Board = nil
	}
	return round, nil
}

func checkRoundAccess(r *models.Round, userID, roundID string) error {
	if r == nil {
		return fmt.Errorf("%w: %s", ErrRoundNotFound, roundID)
	}
	if r.UserID != userID {
		return ErrRoundForbidden
	}
	if r.Status != models.RoundStatusActive {
		return fmt.Errorf("%w: %s", ErrRoundNotActive, r.Status)
	}
	return nil
}

func (ge *GameEngine) settleRound(u *models.User, r *models.Round, now time.Time) {
	u.Balance = addUnits(u.Balance, r.Winnings)
	u.Wins++
	u.StarsEarned = addUnits(u.StarsEarned, EarnedStars(Earned(r.Bet, r.Winnings)))

	r.Status = models.RoundStatusCashedOut
	r.UpdatedAt = now
	r.EndedAt = now
}

func (ge *GameEngine) afterCashout(ctx context.Context, user *models.User, round *models.Round) {
	ge.recordTransaction(ctx, &models.Transaction{
		UserID:        user.ID,
		Type:          models.TransactionTypePayout,
		BalanceChange: round.Winnings,
		BalanceAfter:  user.Balance,
		RoundID:       round.ID,
		Description:   fmt.Sprintf("Cashout at %.2fx after %d reveals", round.Multiplier, round.Step),
	})
	ge.publish(ctx, EventRoundSettled, &LedgerEvent{
		UserID:  user.ID,
		RoundID: round.ID,
		Amount:  round.Winnings,
		Balance: user.Balance,
		Result:  string(models.RoundStatusCashedOut),
	})
	ge.broadcaster.BroadcastBalance(user.ID, user.Balance)
}

func (ge *GameEngine) GetUserInfo(ctx context.Context, userID string) (*models.UserInfo, error) {
	if userID == "" {
		return nil, ErrMissingUserID
	}

	now := ge.now()
	user, err := ge.store.UpdateUser(ctx, userID, ge.newUser(userID), func(u *models.User) error {
		ge.policy.ResetDaily(u, now)
		return nil
	})
	if err != nil {
		return nil, err
	}

	return &models.UserInfo{
		Balance:             user.Balance,
		StarsDeposited:      user.StarsDeposited,
		StarsEarned:         decimal.NewFromFloat(user.StarsEarned).Round(2).InexactFloat64(),
		StarsWithdrawn:      user.StarsWithdrawn,
		GamesPlayed:         user.GamesPlayed,
		Wins:                user.Wins,
		Losses:              user.Losses,
		AvailableWithdrawal: ge.policy.Available(user),
		CanWithdraw:         ge.policy.CanWithdraw(user),
		MinRoundsNeeded:     ge.policy.MinRounds,
		DailyLimitRemaining: ge.policy.DailyRemaining(user),
		GamesSinceDeposit:   user.GamesSinceLastDeposit,
	}, nil
}

func (ge *GameEngine) GetBalance(ctx context.Context, userID string) (float64, error) {
	if userID == "" {
		return 0, ErrMissingUserID
	}

	user, err := ge.store.GetUser(ctx, userID)
	if errors.Is(err, ErrUserNotFound) {
		user, err = ge.store.UpdateUser(ctx, userID, ge.newUser(userID), func(*models.User) error { return nil })
	}
	if err != nil {
		return 0, err
	}

	return user.Balance, nil
}

func (ge *GameEngine) DepositStars(ctx context.Context, userID string, stars int64, externalID string) (*models.DepositResponse, error) {
	if userID == "" {
		return nil, ErrMissingUserID
	}
	if stars <= 0 {
		return nil, fmt.Errorf("%w: stars must be positive", ErrInvalidAmount)
	}

	units := models.StarsToUnits(stars)
	now := ge.now()

	user, err := ge.store.UpdateUser(ctx, userID, ge.newUser(userID), func(u *models.User) error {
		u.Balance = addUnits(u.Balance, units)
		u.StarsDeposited += stars
		u.LastDepositAt = now.Unix()
		u.GamesSinceLastDeposit = 0
		return nil
	})
	if err != nil {
		return nil, err
	}

	ge.recordTransaction(ctx, &models.Transaction{
		UserID:        userID,
		Type:          models.TransactionTypeDeposit,
		Stars:         float64(stars),
		BalanceChange: units,
		BalanceAfter:  user.Balance,
		ExternalID:    externalID,
		Description:   fmt.Sprintf("Deposited %d Stars", stars),
	})
	ge.publish(ctx, EventStarsDeposited, &LedgerEvent{
		UserID:    userID,
		Stars:     float64(stars),
		Amount:    units,
		Balance:   user.Balance,
		Reference: externalID,
	})
	ge.broadcaster.BroadcastBalance(userID, user.Balance)

	ge.logger.Info("stars deposited",
		zap.String("user_id", userID),
		zap.Int64("stars", stars),
		zap.String("transaction_id", externalID),
	)

	return &models.DepositResponse{
		Success:        true,
		Balance:        user.Balance,
		StarsDeposited: user.StarsDeposited,
		Message:        fmt.Sprintf("Credited %d Stars, balance %s", stars, models.FormatStars(user.Balance)),
	}, nil
}

func (ge *GameEngine) WithdrawStars(ctx context.Context, userID string, stars float64) (*models.WithdrawResponse, error) {
	if userID == "" {
		return nil, ErrMissingUserID
	}

	now := ge.now()
	user, err := ge.store.UpdateUser(ctx, userID, nil, func(u *models.User) error {
		if err := ge.policy.Check(u, stars, now); err != nil {
			return err
		}
		ge.policy.Apply(u, stars, now)
		return nil
	})
	if err != nil {
		return nil, err
	}

	ge.recordTransaction(ctx, &models.Transaction{
		UserID:       userID,
		Type:         models.TransactionTypeWithdrawal,
		Stars:        stars,
		BalanceAfter: user.Balance,
		Description:  fmt.Sprintf("Withdrew %.2f Stars", stars),
	})
	ge.publish(ctx, EventStarsWithdrawn, &LedgerEvent{
		UserID:  userID,
		Stars:   stars,
		Balance: user.Balance,
	})

	ge.logger.Info("stars withdrawn",
		zap.String("user_id", userID),
		zap.Float64("stars", stars),
		zap.Float64("total_withdrawn", user.StarsWithdrawn),
	)

	return &models.WithdrawResponse{
		Success:        true,
		StarsWithdrawn: stars,
		TotalWithdrawn: user.StarsWithdrawn,
		Message:        fmt.Sprintf("Gift for %.2f Stars sent", stars),
	}, nil
}

func (ge *GameEngine) BuyCase(ctx context.Context, userID string) (*models.BuyCaseResponse, error) {
	if userID == "" {
		return nil, ErrMissingUserID
	}

	cost := models.StarsToUnits(ge.casePrice)
	prize := ge.prize(ge.casePrizeMin, ge.casePrizeMax)

	user, err := ge.store.UpdateUser(ctx, userID, ge.newUser(userID), func(u *models.User) error {
		if u.Balance < cost {
			return fmt.Errorf("%w: have %.2f, need %.2f", ErrInsufficientBalance, u.Balance, cost)
		}
		u.Balance = addUnits(subUnits(u.Balance, cost), float64(prize))
		return nil
	})
	if err != nil {
		return nil, err
	}

	ge.recordTransaction(ctx, &models.Transaction{
		UserID:        userID,
		Type:          models.TransactionTypeCase,
		Stars:         float64(ge.casePrice),
		BalanceChange: float64(prize) - cost,
		BalanceAfter:  user.Balance,
		Description:   fmt.Sprintf("Case opened, prize %d", prize),
	})
	ge.broadcaster.BroadcastBalance(userID, user.Balance)

	return &models.BuyCaseResponse{
		Success: true,
		Prize:   prize,
		Balance: user.Balance,
		Message: fmt.Sprintf("You won %d units!", prize),
	}, nil
}

func (ge *GameEngine) GetTransactions(ctx context.Context, userID string, limit int64) ([]*models.Transaction, error) {
	if userID == "" {
		return nil, ErrMissingUserID
	}
	return ge.txLog.GetUserTransactions(ctx, userID, limit)
}

// recordTransaction appends to the log after the balance change has been
// committed. Failures are logged and do not undo the change.
func (ge *GameEngine) recordTransaction(ctx context.Context, tx *models.Transaction) {
	tx.ID = models.GenerateTransactionID()
	tx.CreatedAt = ge.now()

	if err := ge.txLog.AppendTransaction(ctx, tx); err != nil {
		ge.logger.Error("failed to record transaction",
			zap.Error(err),
			zap.String("user_id", tx.UserID),
			zap.String("type", string(tx.Type)),
		)
	}
}

func (ge *GameEngine) publish(ctx context.Context, routingKey string, event *LedgerEvent) {
	event.Type = routingKey
	event.CreatedAt = ge.now()

	if err := ge.publisher.Publish(ctx, routingKey, event); err != nil {
		ge.logger.Warn("failed to publish event",
			zap.Error(err),
			zap.String("routing_key", routingKey),
			zap.String("user_id", event.UserID),
		)
	}
}

func addUnits(a, b float64) float64 {
	return decimal.NewFromFloat(a).Add(decimal.NewFromFloat(b)).InexactFloat64()
}

func subUnits(a, b float64) float64 {
	return decimal.NewFromFloat(a).Sub(decimal.NewFromFloat(b)).InexactFloat64()
}
