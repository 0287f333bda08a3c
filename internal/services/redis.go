package services

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"miner-game-backend/internal/config"
	"miner-game-backend/internal/models"
)

type RedisService struct {
	client   *redis.Client
	roundTTL time.Duration
}

// UserRoundFunc mutates a user, and optionally a round, inside an optimistic
// transaction. The round argument is nil when no round key is watched or the
// round does not exist. A non-nil returned round is written back.
type UserRoundFunc func(u *models.User, r *models.Round) (*models.Round, error)

func NewRedisService(cfg *config.Config) (*RedisService, error) {
	client := redis.NewClient(&redis.Options{
		Addr:     cfg.RedisURL,
		Password: cfg.RedisPass,
		DB:       cfg.RedisDB,
	})

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := client.Ping(ctx).Err(); err != nil {
		return nil, fmt.Errorf("failed to connect to redis: %w", err)
	}

	return NewRedisServiceWithClient(client, cfg.RoundTTL), nil
}

func NewRedisServiceWithClient(client *redis.Client, roundTTL time.Duration) *RedisService {
	if roundTTL <= 0 {
		roundTTL = TTLRound
	}
	return &RedisService{
		client:   client,
		roundTTL: roundTTL,
	}
}

func (s *RedisService) Close() error {
	return s.client.Close()
}

func (s *RedisService) Ping(ctx context.Context) error {
	return s.client.Ping(ctx).Err()
}

func (s *RedisService) GetUser(ctx context.Context, userID string) (*models.User, error) {
	return loadUser(ctx, s.client, fmt.Sprintf(KeyUser, userID))
}

// UpdateUser applies fn to the stored user atomically. When the user does
// not exist, newUser supplies the initial record; a nil newUser makes a
// missing user an ErrUserNotFound.
func (s *RedisService) UpdateUser(ctx context.Context, userID string, newUser func() *models.User, fn func(u *models.User) error) (*models.User, error) {
	user, _, err := s.UpdateUserRound(ctx, userID, "", newUser, func(u *models.User, _ *models.Round) (*models.Round, error) {
		return nil, fn(u)
	})
	return user, err
}

// UpdateUserRound watches the user hash and, when roundID is set, the round
// key, then commits both in one MULTI/EXEC. Conflicting writers are retried.
func (s *RedisService) UpdateUserRound(ctx context.Context, userID, roundID string, newUser func() *models.User, fn UserRoundFunc) (*models.User, *models.Round, error) {
	userKey := fmt.Sprintf(KeyUser, userID)
	keys := []string{userKey}

	var roundKey string
	if roundID != "" {
		roundKey = fmt.Sprintf(KeyRound, roundID)
		keys = append(keys, roundKey)
	}

	var (
		user  *models.User
		round *models.Round
	)

	txf := func(tx *redis.Tx) error {
		u, err := loadUser(ctx, tx, userKey)
		if errors.Is(err, ErrUserNotFound) && newUser != nil {
			u = newUser()
		} else if err != nil {
			return err
		}

		var r *models.Round
		if roundKey != "" {
			if r, err = loadRound(ctx, tx, roundKey); err != nil {
				return err
			}
		}

		updated, err := fn(u, r)
		if err != nil {
			return err
		}

		var roundData []byte
		if updated != nil {
			if roundData, err = json.Marshal(updated); err != nil {
				return fmt.Errorf("failed to marshal round: %w", err)
			}
		}

		_, err = tx.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
			pipe.HSet(ctx, userKey, u.Fields())
			if updated != nil {
				pipe.Set(ctx, fmt.Sprintf(KeyRound, updated.ID), roundData, s.roundTTL)
			}
			return nil
		})
		if err != nil {
			return err
		}

		user, round = u, updated
		return nil
	}

	for i := 0; i < maxTxRetries; i++ {
		err := s.client.Watch(ctx, txf, keys...)
		if err == nil {
			return user, round, nil
		}
		if errors.Is(err, redis.TxFailedErr) {
			continue
		}
		return nil, nil, err
	}

	return nil, nil, ErrTxConflict
}

func (s *RedisService) GetRound(ctx context.Context, roundID string) (*models.Round, error) {
	round, err := loadRound(ctx, s.client, fmt.Sprintf(KeyRound, roundID))
	if err != nil {
		return nil, err
	}
	if round == nil {
		return nil, fmt.Errorf("%w: %s", ErrRoundNotFound, roundID)
	}
	return round, nil
}

func (s *RedisService) AppendTransaction(ctx context.Context, tx *models.Transaction) error {
	data, err := json.Marshal(tx)
	if err != nil {
		return fmt.Errorf("failed to marshal transaction: %w", err)
	}

	userTxKey := fmt.Sprintf(KeyUserTransactions, tx.UserID)

	_, err = s.client.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		pipe.RPush(ctx, KeyTransactions, data)
		pipe.LPush(ctx, userTxKey, data)
		// Keep only the most recent entries in the per-user index
		pipe.LTrim(ctx, userTxKey, 0, MaxUserTransactions-1)
		return nil
	})
	if err != nil {
		return fmt.Errorf("failed to save transaction: %w", err)
	}

	return nil
}

func (s *RedisService) GetUserTransactions(ctx context.Context, userID string, limit int64) ([]*models.Transaction, error) {
	if limit <= 0 {
		limit = DefaultTransactionLimit
	}
	if limit > MaxUserTransactions {
		limit = MaxUserTransactions
	}

	items, err := s.client.LRange(ctx, fmt.Sprintf(KeyUserTransactions, userID), 0, limit-1).Result()
	if err != nil {
		return nil, fmt.Errorf("failed to get transactions: %w", err)
	}

	transactions := make([]*models.Transaction, 0, len(items))
	for _, item := range items {
		var tx models.Transaction
		if err := json.Unmarshal([]byte(item), &tx); err != nil {
			continue
		}
		transactions = append(transactions, &tx)
	}

	return transactions, nil
}

func (s *RedisService) TransactionLogLength(ctx context.Context) (int64, error) {
	return s.client.LLen(ctx, KeyTransactions).Result()
}

func (s *RedisService) CheckRateLimit(ctx context.Context, subject, action string, limit int, window time.Duration) (bool, error) {
	key := fmt.Sprintf(KeyRateLimit, subject, action)

	count, err := s.client.Incr(ctx, key).Result()
	if err != nil {
		return false, fmt.Errorf("failed to check rate limit: %w", err)
	}

	if count == 1 {
		s.client.Expire(ctx, key, window)
	}

	return count <= int64(limit), nil
}

func (s *RedisService) ClearRateLimit(ctx context.Context, subject, action string) error {
	return s.client.Del(ctx, fmt.Sprintf(KeyRateLimit, subject, action)).Err()
}

func loadUser(ctx context.Context, c redis.Cmdable, key string) (*models.User, error) {
	cmd := c.HGetAll(ctx, key)
	fields, err := cmd.Result()
	if err != nil {
		return nil, fmt.Errorf("failed to get user: %w", err)
	}
	if len(fields) == 0 {
		return nil, ErrUserNotFound
	}

	var user models.User
	if err := cmd.Scan(&user); err != nil {
		return nil, fmt.Errorf("failed to decode user: %w", err)
	}

	return &user, nil
}

func loadRound(ctx context.Context, c redis.Cmdable, key string) (*models.Round, error) {
	data, err := c.Get(ctx, key).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get round: %w", err)
	}

	var round models.Round
	if err := json.Unmarshal(data, &round); err != nil {
		return nil, fmt.Errorf("failed to unmarshal round: %w", err)
	}

	return &round, nil
}
