package main

import (
	"context"
	"math/big"
	"time"

	"github.com/joho/godotenv"
	"go.uber.org/zap"

	"github.com/halcyonlabs/settler-go/internal/chain"
	"github.com/halcyonlabs/settler-go/internal/config"
	"github.com/halcyonlabs/settler-go/internal/dex"
	"github.com/halcyonlabs/settler-go/internal/events"
	"github.com/halcyonlabs/settler-go/internal/handlers"
	"github.com/halcyonlabs/settler-go/internal/logger"
	"github.com/halcyonlabs/settler-go/internal/permit2"
	"github.com/halcyonlabs/settler-go/internal/proxy"
	"github.com/halcyonlabs/settler-go/internal/server"
	"github.com/halcyonlabs/settler-go/internal/settler"
	"github.com/halcyonlabs/settler-go/internal/store"
)

func main() {
	// Load .env file if present; environment wins in deployed stages.
	_ = godotenv.Load()

	cfg, err := config.Load()
	if err != nil {
		logger.InitLogger("dev")
		logger.Fatal("Failed to load configuration", zap.Error(err))
	}

	logger.InitLogger(cfg.Stage)
	defer func() { _ = logger.Sync() }()

	ctx := context.Background()

	state := chain.NewState(uint64(time.Now().Unix()))
	transfers := permit2.NewService(state, big.NewInt(cfg.ChainID), cfg.Permit2Address, cfg.SettlerAddress)
	swapper := dex.NewRouter()

	router := settler.New(state, transfers, swapper, cfg.SettlerAddress)
	registry := proxy.NewRegistry(router, 1)

	var settlementStore store.Store
	if cfg.DatabaseURL != "" {
		pg, err := store.NewPostgres(ctx, cfg.DatabaseURL)
		if err != nil {
			logger.Fatal("Unable to connect to database", zap.Error(err))
		}
		defer pg.Close()
		if err := pg.Migrate(ctx); err != nil {
			logger.Fatal("Unable to migrate database", zap.Error(err))
		}
		settlementStore = pg
	} else {
		logger.Warn("DATABASE_URL not set, settlements will not be persisted")
		settlementStore = store.NewMemory()
	}

	var publisher events.Publisher
	if cfg.SettlementQueueURL != "" {
		sqsPublisher, err := events.NewSQSPublisher(ctx, cfg.SettlementQueueURL)
		if err != nil {
			logger.Fatal("Unable to create SQS publisher", zap.Error(err))
		}
		publisher = sqsPublisher
	} else {
		logger.Warn("SETTLEMENT_QUEUE_URL not set, settlement events will not be published")
		publisher = events.Noop{}
	}

	settlementHandler := handlers.NewSettlementHandler(registry, state, settlementStore, publisher)
	engine := server.NewRouter(settlementHandler)

	logger.Info("Starting settlement daemon",
		zap.String("stage", cfg.Stage),
		zap.String("port", cfg.Port),
		zap.Int64("chain_id", cfg.ChainID),
		zap.String("settler_address", cfg.SettlerAddress.Hex()),
	)

	if err := engine.Run(":" + cfg.Port); err != nil {
		logger.Fatal("Server stopped", zap.Error(err))
	}
}
