package models

type UserRequest struct {
	UserID string `json:"user_id"`
}

type StartGameRequest struct {
	UserID string  `json:"user_id"`
	Bombs  int     `json:"bombs" binding:"required"`
	Bet    float64 `json:"bet" binding:"required"`
}

type StartGameResponse struct {
	RoundID     string    `json:"round_id,omitempty"`
	Field       Board     `json:"field,omitempty"`
	Bombs       int       `json:"bombs"`
	Bet         float64   `json:"bet"`
	Multipliers []float64 `json:"multipliers"`
	Balance     float64   `json:"balance"`
}

// OpenCellRequest carries either a RoundID for server-held rounds or the
// client-held Field/Step/Bombs/Bet.
type OpenCellRequest struct {
	UserID  string  `json:"user_id"`
	RoundID string  `json:"round_id"`
	X       *int    `json:"x" binding:"required"`
	Y       *int    `json:"y" binding:"required"`
	Field   Board   `json:"field"`
	Step    int     `json:"step"`
	Bombs   int     `json:"bombs"`
	Bet     float64 `json:"bet"`
}

type OpenCellResponse struct {
	Result     string  `json:"result"`
	RoundID    string  `json:"round_id,omitempty"`
	Step       int     `json:"step,omitempty"`
	Multiplier float64 `json:"multiplier"`
	Field      Board   `json:"field,omitempty"`
	Balance    float64 `json:"balance"`
	Earned     float64 `json:"earned"`
	Winnings   float64 `json:"winnings,omitempty"`
	Status     string  `json:"status,omitempty"`
}

type CashoutRequest struct {
	UserID  string `json:"user_id"`
	RoundID string `json:"round_id" binding:"required"`
}

type CashoutResponse struct {
	RoundID    string  `json:"round_id"`
	Step       int     `json:"step"`
	Multiplier float64 `json:"multiplier"`
	Winnings   float64 `json:"winnings"`
	Earned     float64 `json:"earned"`
	Balance    float64 `json:"balance"`
}

type DepositRequest struct {
	UserID        string `json:"user_id"`
	Stars         int64  `json:"stars" binding:"required"`
	TransactionID string `json:"transaction_id"`
}

type DepositResponse struct {
	Success        bool    `json:"success"`
	Balance        float64 `json:"balance"`
	StarsDeposited int64   `json:"stars_deposited"`
	Message        string  `json:"message"`
}

type WithdrawRequest struct {
	UserID string  `json:"user_id"`
	Stars  float64 `json:"stars" binding:"required"`
}

type WithdrawResponse struct {
	Success        bool    `json:"success"`
	StarsWithdrawn float64 `json:"stars_withdrawn"`
	TotalWithdrawn float64 `json:"total_withdrawn"`
	Message        string  `json:"message"`
}

type BuyCaseResponse struct {
	Success bool    `json:"success"`
	Prize   int     `json:"prize"`
	Balance float64 `json:"balance"`
	Message string  `json:"message"`
}
