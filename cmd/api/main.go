package main

import (
	"context"
	"errors"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/joho/godotenv"
	_ "go.uber.org/automaxprocs"
	"go.uber.org/zap"

	"miner-game-backend/internal/config"
	"miner-game-backend/internal/handlers"
	"miner-game-backend/internal/logging"
	"miner-game-backend/internal/services"
)

func main() {
	if err := godotenv.Load(); err != nil {
		log.Println("No .env file found, using environment variables")
	}

	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}

	logger, err := logging.New(cfg.Env, cfg.LogLevel)
	if err != nil {
		log.Fatalf("Failed to create logger: %v", err)
	}
	defer logger.Sync()

	redisService, err := services.NewRedisService(cfg)
	if err != nil {
		logger.Fatal("Failed to connect to Redis", zap.Error(err))
	}
	defer redisService.Close()

	opts := []services.Option{services.WithLogger(logger)}

	if cfg.DatabaseDSN != "" {
		txLog, err := services.NewSQLTransactionLog(cfg.DatabaseDSN)
		if err != nil {
			logger.Fatal("Failed to open transaction archive", zap.Error(err))
		}
		defer txLog.Close()
		opts = append(opts, services.WithTransactionLog(txLog))
		logger.Info("transaction log stored in MySQL")
	}

	if cfg.AMQPURL != "" {
		publisher, err := services.NewAMQPPublisher(cfg.AMQPURL, cfg.AMQPExchange)
		if err != nil {
			logger.Fatal("Failed to connect to RabbitMQ", zap.Error(err))
		}
		defer publisher.Close()
		opts = append(opts, services.WithPublisher(publisher))
		logger.Info("publishing ledger events", zap.String("exchange", cfg.AMQPExchange))
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	hub := handlers.NewWebSocketHub(logger)
	go hub.Run(ctx)
	opts = append(opts, services.WithBroadcaster(hub))

	gameEngine := services.NewGameEngine(redisService, cfg, opts...)
	jwtService := services.NewJWTService(cfg)

	if cfg.IsProduction() {
		gin.SetMode(gin.ReleaseMode)
	}

	router := handlers.NewRouter(handlers.RouterDeps{
		Config:       cfg,
		GameEngine:   gameEngine,
		RedisService: redisService,
		JWTService:   jwtService,
		Hub:          hub,
		Logger:       logger,
	})

	srv := &http.Server{
		Addr:              ":" + cfg.Port,
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		logger.Info("Server starting",
			zap.String("port", cfg.Port),
			zap.String("round_mode", cfg.RoundMode),
			zap.Bool("auth_required", cfg.AuthRequired),
		)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Fatal("Failed to start server", zap.Error(err))
		}
	}()

	<-ctx.Done()
	logger.Info("Shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error("Server shutdown failed", zap.Error(err))
	}
}
