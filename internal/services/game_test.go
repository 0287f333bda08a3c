package services_test

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"miner-game-backend/internal/config"
	"miner-game-backend/internal/models"
	"miner-game-backend/internal/services"
)

// identityShuffler places bombs on the first cells in row-major order.
func identityShuffler(n int) []int {
	perm := make([]int, n)
	for i := range perm {
		perm[i] = i
	}
	return perm
}

type recordingPublisher struct {
	mu     sync.Mutex
	events []string
}

func (p *recordingPublisher) Publish(_ context.Context, routingKey string, _ interface{}) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.events = append(p.events, routingKey)
	return nil
}

func (p *recordingPublisher) Close() error { return nil }

func (p *recordingPublisher) count(routingKey string) int {
	p.mu.Lock()
	defer p.mu.Unlock()
	n := 0
	for _, e := range p.events {
		if e == routingKey {
			n++
		}
	}
	return n
}

type recordingBroadcaster struct {
	mu       sync.Mutex
	balances map[string]float64
	rounds   int
}

func (b *recordingBroadcaster) BroadcastBalance(userID string, balance float64) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.balances == nil {
		b.balances = make(map[string]float64)
	}
	b.balances[userID] = balance
}

func (b *recordingBroadcaster) BroadcastRoundUpdate(string, interface{}) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.rounds++
}

type testEngine struct {
	*services.GameEngine
	store       *services.RedisService
	publisher   *recordingPublisher
	broadcaster *recordingBroadcaster
}

func setupTestEngine(t *testing.T, roundMode string) *testEngine {
	t.Helper()

	redisService, _ := setupTestRedis(t)
	cfg := config.Default()
	cfg.RoundMode = roundMode

	te := &testEngine{
		store:       redisService,
		publisher:   &recordingPublisher{},
		broadcaster: &recordingBroadcaster{},
	}
	te.GameEngine = services.NewGameEngine(redisService, cfg,
		services.WithShuffler(identityShuffler),
		services.WithPublisher(te.publisher),
		services.WithBroadcaster(te.broadcaster),
		services.WithClock(func() time.Time { return testNow }),
		services.WithPrizeSource(func(min, max int) int { return 123 }),
	)
	return te
}

func intPtr(v int) *int { return &v }

func TestGameEngineClientRound(t *testing.T) {
	engine := setupTestEngine(t, config.RoundModeClient)
	ctx := context.Background()

	if _, err := engine.DepositStars(ctx, "alice", 10, "tg_1"); err != nil {
		t.Fatalf("Failed to deposit: %v", err)
	}

	start, err := engine.StartGame(ctx, "alice", 3, 100)
	if err != nil {
		t.Fatalf("Failed to start game: %v", err)
	}

	if start.Balance != 900 {
		t.Errorf("Expected balance 900 after bet, got %v", start.Balance)
	}
	if start.RoundID != "" {
		t.Errorf("Client rounds should not carry a round id, got %q", start.RoundID)
	}
	if start.Field.Bombs() != 3 || !start.Field.IsBomb(0, 0) {
		t.Errorf("Unexpected board: %v", start.Field)
	}
	if len(start.Multipliers) != 22 {
		t.Errorf("Expected 22 multipliers for 3 bombs, got %d", len(start.Multipliers))
	}

	win, err := engine.OpenCell(ctx, &models.OpenCellRequest{
		UserID: "alice",
		X:      intPtr(4),
		Y:      intPtr(4),
		Field:  start.Field,
		Step:   0,
		Bombs:  3,
		Bet:    100,
	})
	if err != nil {
		t.Fatalf("Failed to open cell: %v", err)
	}

	if win.Result != "win" || win.Step != 1 || win.Multiplier != 1.07 {
		t.Errorf("Unexpected reveal: %+v", win)
	}
	if win.Balance != 1007 {
		t.Errorf("Expected balance 1007, got %v", win.Balance)
	}
	if win.Earned != 7 {
		t.Errorf("Expected earned 7, got %v", win.Earned)
	}

	lose, err := engine.OpenCell(ctx, &models.OpenCellRequest{
		UserID: "alice",
		X:      intPtr(0),
		Y:      intPtr(1),
		Field:  start.Field,
		Step:   1,
		Bombs:  3,
		Bet:    100,
	})
	if err != nil {
		t.Fatalf("Failed to open cell: %v", err)
	}
	if lose.Result != "lose" || lose.Balance != 1007 {
		t.Errorf("Unexpected bomb reveal: %+v", lose)
	}

	info, err := engine.GetUserInfo(ctx, "alice")
	if err != nil {
		t.Fatalf("Failed to get user info: %v", err)
	}
	if info.GamesPlayed != 1 || info.Wins != 1 || info.Losses != 1 {
		t.Errorf("Unexpected counters: %+v", info)
	}
	if info.StarsEarned != 0.07 {
		t.Errorf("Expected 0.07 stars earned, got %v", info.StarsEarned)
	}
	if info.StarsDeposited != 10 {
		t.Errorf("Expected 10 stars deposited, got %d", info.StarsDeposited)
	}

	if got := engine.broadcaster.balances["alice"]; got != 1007 {
		t.Errorf("Expected broadcast balance 1007, got %v", got)
	}
	if engine.publisher.count(services.EventStarsDeposited) != 1 || engine.publisher.count(services.EventRoundSettled) != 1 {
		t.Errorf("Unexpected events: %v", engine.publisher.events)
	}

	if _, err := engine.Cashout(ctx, "alice", "round_x"); !errors.Is(err, services.ErrCashoutDisabled) {
		t.Errorf("Expected ErrCashoutDisabled, got %v", err)
	}
}

func TestGameEngineStartGameValidation(t *testing.T) {
	engine := setupTestEngine(t, config.RoundModeClient)
	ctx := context.Background()

	tests := []struct {
		name   string
		userID string
		bombs  int
		bet    float64
		want   error
	}{
		{"missing user", "", 3, 10, services.ErrMissingUserID},
		{"zero bet", "bob", 3, 0, services.ErrInvalidBet},
		{"unsupported bombs", "bob", 4, 10, services.ErrInvalidBombCount},
		{"empty balance", "bob", 3, 10, services.ErrInsufficientBalance},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := engine.StartGame(ctx, tt.userID, tt.bombs, tt.bet)
			if !errors.Is(err, tt.want) {
				t.Errorf("Expected %v, got %v", tt.want, err)
			}
		})
	}

	balance, err := engine.GetBalance(ctx, "bob")
	if err != nil {
		t.Fatalf("Failed to get balance: %v", err)
	}
	if balance != 0 {
		t.Errorf("Rejected bets must not change the balance, got %v", balance)
	}
}

func TestGameEngineOpenCellValidation(t *testing.T) {
	engine := setupTestEngine(t, config.RoundModeClient)
	ctx := context.Background()

	if _, err := engine.DepositStars(ctx, "carol", 1, ""); err != nil {
		t.Fatalf("Failed to deposit: %v", err)
	}

	board := boardWithBombs(models.Cell{X: 0, Y: 0}, models.Cell{X: 0, Y: 1}, models.Cell{X: 0, Y: 2})

	tests := []struct {
		name string
		req  *models.OpenCellRequest
		want error
	}{
		{"missing cell", &models.OpenCellRequest{UserID: "carol", Field: board, Bombs: 3, Bet: 10}, services.ErrInvalidCell},
		{"out of range", &models.OpenCellRequest{UserID: "carol", X: intPtr(5), Y: intPtr(0), Field: board, Bombs: 3, Bet: 10}, services.ErrInvalidCell},
		{"missing board", &models.OpenCellRequest{UserID: "carol", X: intPtr(1), Y: intPtr(1), Bombs: 3, Bet: 10}, services.ErrInvalidBoard},
		{"bad bombs", &models.OpenCellRequest{UserID: "carol", X: intPtr(1), Y: intPtr(1), Field: board, Bombs: 5, Bet: 10}, services.ErrInvalidBombCount},
		{"unknown user", &models.OpenCellRequest{UserID: "nobody", X: intPtr(1), Y: intPtr(1), Field: board, Bombs: 3, Bet: 10}, services.ErrUserNotFound},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := engine.OpenCell(ctx, tt.req); !errors.Is(err, tt.want) {
				t.Errorf("Expected %v, got %v", tt.want, err)
			}
		})
	}
}

func TestGameEngineServerRound(t *testing.T) {
	engine := setupTestEngine(t, config.RoundModeServer)
	ctx := context.Background()

	if _, err := engine.DepositStars(ctx, "dave", 10, ""); err != nil {
		t.Fatalf("Failed to deposit: %v", err)
	}

	start, err := engine.StartGame(ctx, "dave", 3, 100)
	if err != nil {
		t.Fatalf("Failed to start game: %v", err)
	}
	if start.RoundID == "" || start.Field != nil {
		t.Fatalf("Server rounds must hide the board: %+v", start)
	}

	if _, err := engine.Cashout(ctx, "dave", start.RoundID); !errors.Is(err, services.ErrNothingToCashout) {
		t.Errorf("Expected ErrNothingToCashout before any reveal, got %v", err)
	}

	reveal, err := engine.OpenCell(ctx, &models.OpenCellRequest{UserID: "dave", RoundID: start.RoundID, X: intPtr(4), Y: intPtr(4)})
	if err != nil {
		t.Fatalf("Failed to open cell: %v", err)
	}
	if reveal.Result != "win" || reveal.Winnings != 107 || reveal.Field != nil {
		t.Errorf("Unexpected reveal: %+v", reveal)
	}
	if reveal.Balance != 900 {
		t.Errorf("Winnings must not be credited before cashout, got balance %v", reveal.Balance)
	}

	_, err = engine.OpenCell(ctx, &models.OpenCellRequest{UserID: "dave", RoundID: start.RoundID, X: intPtr(4), Y: intPtr(4)})
	if !errors.Is(err, services.ErrCellRevealed) {
		t.Errorf("Expected ErrCellRevealed, got %v", err)
	}

	if _, err := engine.OpenCell(ctx, &models.OpenCellRequest{UserID: "dave", X: intPtr(3), Y: intPtr(3)}); !errors.Is(err, services.ErrMissingRound) {
		t.Errorf("Expected ErrMissingRound, got %v", err)
	}

	if _, err := engine.DepositStars(ctx, "eve", 1, ""); err != nil {
		t.Fatalf("Failed to deposit: %v", err)
	}
	if _, err := engine.Cashout(ctx, "eve", start.RoundID); !errors.Is(err, services.ErrRoundForbidden) {
		t.Errorf("Expected ErrRoundForbidden, got %v", err)
	}

	round, err := engine.GetRound(ctx, "dave", start.RoundID)
	if err != nil {
		t.Fatalf("Failed to get round: %v", err)
	}
	if round.Board != nil {
		t.Error("Active round must not expose its board")
	}

	cash, err := engine.Cashout(ctx, "dave", start.RoundID)
	if err != nil {
		t.Fatalf("Failed to cash out: %v", err)
	}
	if cash.Winnings != 107 || cash.Balance != 1007 || cash.Earned != 7 {
		t.Errorf("Unexpected cashout: %+v", cash)
	}

	if _, err := engine.Cashout(ctx, "dave", start.RoundID); !errors.Is(err, services.ErrRoundNotActive) {
		t.Errorf("Expected ErrRoundNotActive on second cashout, got %v", err)
	}

	user, err := engine.store.GetUser(ctx, "dave")
	if err != nil {
		t.Fatalf("Failed to get user: %v", err)
	}
	if user.Wins != 1 || user.StarsEarned != 0.07 {
		t.Errorf("Unexpected user after cashout: %+v", user)
	}
}

func TestGameEngineServerRoundLost(t *testing.T) {
	engine := setupTestEngine(t, config.RoundModeServer)
	ctx := context.Background()

	if _, err := engine.DepositStars(ctx, "erin", 1, ""); err != nil {
		t.Fatalf("Failed to deposit: %v", err)
	}

	start, err := engine.StartGame(ctx, "erin", 3, 50)
	if err != nil {
		t.Fatalf("Failed to start game: %v", err)
	}

	lost, err := engine.OpenCell(ctx, &models.OpenCellRequest{UserID: "erin", RoundID: start.RoundID, X: intPtr(0), Y: intPtr(0)})
	if err != nil {
		t.Fatalf("Failed to open cell: %v", err)
	}
	if lost.Result != "lose" || lost.Status != string(models.RoundStatusLost) {
		t.Errorf("Unexpected bomb reveal: %+v", lost)
	}
	if lost.Field.Bombs() != 3 {
		t.Error("Lost round should reveal the board")
	}
	if lost.Balance != 50 {
		t.Errorf("Expected balance 50, got %v", lost.Balance)
	}

	_, err = engine.OpenCell(ctx, &models.OpenCellRequest{UserID: "erin", RoundID: start.RoundID, X: intPtr(4), Y: intPtr(4)})
	if !errors.Is(err, services.ErrRoundNotActive) {
		t.Errorf("Expected ErrRoundNotActive, got %v", err)
	}
}

func TestGameEngineAutoCashout(t *testing.T) {
	engine := setupTestEngine(t, config.RoundModeServer)
	ctx := context.Background()

	if _, err := engine.DepositStars(ctx, "finn", 1, ""); err != nil {
		t.Fatalf("Failed to deposit: %v", err)
	}

	start, err := engine.StartGame(ctx, "finn", 24, 10)
	if err != nil {
		t.Fatalf("Failed to start game: %v", err)
	}

	reveal, err := engine.OpenCell(ctx, &models.OpenCellRequest{UserID: "finn", RoundID: start.RoundID, X: intPtr(4), Y: intPtr(4)})
	if err != nil {
		t.Fatalf("Failed to open cell: %v", err)
	}

	if reveal.Status != string(models.RoundStatusCashedOut) {
		t.Fatalf("Clearing the board should cash out, got status %q", reveal.Status)
	}
	if reveal.Winnings != 237.5 || reveal.Balance != 327.5 {
		t.Errorf("Unexpected auto cashout: %+v", reveal)
	}
}

func TestGameEngineWithdraw(t *testing.T) {
	engine := setupTestEngine(t, config.RoundModeClient)
	ctx := context.Background()

	if _, err := engine.WithdrawStars(ctx, "gus", 1); !errors.Is(err, services.ErrUserNotFound) {
		t.Fatalf("Expected ErrUserNotFound, got %v", err)
	}

	_, err := engine.store.UpdateUser(ctx, "gus", func() *models.User { return models.NewUser("gus", 0, testNow) }, func(u *models.User) error {
		u.GamesPlayed = 30
		u.GamesSinceLastDeposit = 15
		u.StarsEarned = 100
		return nil
	})
	if err != nil {
		t.Fatalf("Failed to seed user: %v", err)
	}

	var werr *services.WithdrawalError
	if _, err := engine.WithdrawStars(ctx, "gus", 41); !errors.As(err, &werr) || werr.Available == nil || *werr.Available != 40 {
		t.Fatalf("Expected allowance error with 40 available, got %v", err)
	}

	resp, err := engine.WithdrawStars(ctx, "gus", 25)
	if err != nil {
		t.Fatalf("Failed to withdraw: %v", err)
	}
	if resp.TotalWithdrawn != 25 {
		t.Errorf("Expected 25 withdrawn, got %v", resp.TotalWithdrawn)
	}

	info, err := engine.GetUserInfo(ctx, "gus")
	if err != nil {
		t.Fatalf("Failed to get user info: %v", err)
	}
	if info.AvailableWithdrawal != 15 || info.DailyLimitRemaining != 475 {
		t.Errorf("Unexpected limits: %+v", info)
	}
	if engine.publisher.count(services.EventStarsWithdrawn) != 1 {
		t.Errorf("Expected one withdrawal event, got %v", engine.publisher.events)
	}
}

func TestGameEngineBuyCase(t *testing.T) {
	engine := setupTestEngine(t, config.RoundModeClient)
	ctx := context.Background()

	if _, err := engine.BuyCase(ctx, "hana"); !errors.Is(err, services.ErrInsufficientBalance) {
		t.Fatalf("Expected ErrInsufficientBalance, got %v", err)
	}

	if _, err := engine.DepositStars(ctx, "hana", 2, ""); err != nil {
		t.Fatalf("Failed to deposit: %v", err)
	}

	resp, err := engine.BuyCase(ctx, "hana")
	if err != nil {
		t.Fatalf("Failed to buy case: %v", err)
	}
	if resp.Prize != 123 || resp.Balance != 123 {
		t.Errorf("Unexpected case result: %+v", resp)
	}
}

func TestGameEngineTransactions(t *testing.T) {
	engine := setupTestEngine(t, config.RoundModeClient)
	ctx := context.Background()

	if _, err := engine.DepositStars(ctx, "ivy", 5, "tg_5"); err != nil {
		t.Fatalf("Failed to deposit: %v", err)
	}
	if _, err := engine.StartGame(ctx, "ivy", 3, 20); err != nil {
		t.Fatalf("Failed to start game: %v", err)
	}

	txs, err := engine.GetTransactions(ctx, "ivy", 10)
	if err != nil {
		t.Fatalf("Failed to get transactions: %v", err)
	}
	if len(txs) != 2 {
		t.Fatalf("Expected 2 transactions, got %d", len(txs))
	}

	if txs[0].Type != models.TransactionTypeBet || txs[0].BalanceChange != -20 || txs[0].BalanceAfter != 480 {
		t.Errorf("Unexpected bet transaction: %+v", txs[0])
	}
	if txs[1].Type != models.TransactionTypeDeposit || txs[1].ExternalID != "tg_5" || txs[1].Stars != 5 {
		t.Errorf("Unexpected deposit transaction: %+v", txs[1])
	}

	if _, err := engine.GetTransactions(ctx, "", 10); !errors.Is(err, services.ErrMissingUserID) {
		t.Errorf("Expected ErrMissingUserID, got %v", err)
	}
}

func TestGameEngineDepositValidation(t *testing.T) {
	engine := setupTestEngine(t, config.RoundModeClient)
	ctx := context.Background()

	if _, err := engine.DepositStars(ctx, "jay", 0, ""); !errors.Is(err, services.ErrInvalidAmount) {
		t.Errorf("Expected ErrInvalidAmount, got %v", err)
	}
	if _, err := engine.DepositStars(ctx, "", 5, ""); !errors.Is(err, services.ErrMissingUserID) {
		t.Errorf("Expected ErrMissingUserID, got %v", err)
	}
}
