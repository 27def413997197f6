package main

import (
	"context"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"golang-signal-engine/internal/engine"
	"golang-signal-engine/internal/executor/config"
	"golang-signal-engine/internal/executor/delivery/consumer"
	delivery "golang-signal-engine/internal/executor/delivery/http"
	_ "golang-signal-engine/internal/executor/docs"
	"golang-signal-engine/internal/executor/repository"
	"golang-signal-engine/internal/executor/service"
	"golang-signal-engine/internal/marketdata"
	"golang-signal-engine/pkg/common"
	"golang-signal-engine/pkg/logger"
	"golang-signal-engine/pkg/postgres"
	"golang-signal-engine/pkg/redis"
	"golang-signal-engine/pkg/telegram"

	"github.com/labstack/echo/v4"
	"github.com/spf13/cobra"
	swagger "github.com/swaggo/echo-swagger"
	"go.uber.org/zap"
)

var configPath string

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Starts the signal service",
	Run:   runServe,
}

func runServe(cmd *cobra.Command, args []string) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	cfg, err := config.Load(configPath)
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}

	appLogger, err := logger.New(cfg.Logger.Level, cfg.Logger.Encoding)
	if err != nil {
		log.Fatalf("Failed to initialize logger: %v", err)
	}
	defer func() { _ = appLogger.Sync() }()

	appLogger.Info("Starting Signal Service", zap.String("name", cfg.App.Name))

	// Initialize database
	postgresCfg := postgres.Config{
		Host:            cfg.Database.Host,
		Port:            cfg.Database.Port,
		User:            cfg.Database.User,
		Password:        cfg.Database.Password,
		DBName:          cfg.Database.DBName,
		SSLMode:         cfg.Database.SSLMode,
		MaxIdleConns:    cfg.Database.MaxIdleConns,
		MaxOpenConns:    cfg.Database.MaxOpenConns,
		ConnMaxLifetime: cfg.Database.ConnMaxLifetime,
	}
	db, err := postgres.NewDB(postgresCfg)
	if err != nil {
		appLogger.Fatal("Failed to initialize database", zap.Error(err))
	}
	if sqlDB, err := db.DB.DB(); err == nil {
		defer sqlDB.Close()
	}

	// Initialize Redis
	redisCfg := redis.Config{
		Host:     cfg.Redis.Host,
		Port:     cfg.Redis.Port,
		Password: cfg.Redis.Password,
		DB:       cfg.Redis.DB,
		PoolSize: cfg.Redis.PoolSize,
	}
	redisClient, err := redis.NewClient(redisCfg)
	if err != nil {
		appLogger.Fatal("Failed to initialize Redis", zap.Error(err))
	}
	defer redisClient.Close()

	// Create the consumer group on every job stream.
	// MKSTREAM creates the stream if it doesn't exist.
	jobStreams := []string{
		common.RedisStreamJobsUS,
		common.RedisStreamJobsVN,
		common.RedisStreamJobsPriority,
		common.RedisStreamJobsBackfill,
	}
	for _, stream := range jobStreams {
		if err := redisClient.Client.XGroupCreateMkStream(context.Background(), stream, common.RedisStreamGroup, "0").Err(); err != nil {
			if err.Error() != "BUSYGROUP Consumer Group name already exists" {
				appLogger.Fatal("Failed to create consumer group", logger.ErrorField(err), logger.Field("stream", stream))
			}
		}
	}

	// Initialize repositories
	jobRepo := repository.NewJobRepository(db.DB)
	symbolRepo := repository.NewSymbolRepository(db.DB)
	thresholdRepo := repository.NewThresholdRepository(db.DB)
	indicatorRepo := repository.NewIndicatorRepository(db.DB)
	candleRepo := repository.NewCandleRepository(db.DB)
	signalRepo := repository.NewSignalRepository(db.DB)
	leaseRepo := repository.NewLeaseRepository(redisClient.Client)

	// Build the engine and register the strategy set.
	resolver := engine.NewThresholdResolver(thresholdRepo, appLogger)
	macdZone := engine.NewMACDZoneStrategy(resolver, indicatorRepo, cfg.Engine.MACD, cfg.Engine.Timeframes)
	smaStructure := engine.NewSMAStructureStrategy(indicatorRepo, cfg.Engine.SMA, cfg.Engine.Timeframes)

	registry := engine.NewRegistry()
	strategies := []engine.Strategy{
		macdZone,
		smaStructure,
		engine.NewHybridStrategy(smaStructure, macdZone),
		engine.NewRSIStrategy(resolver, indicatorRepo, cfg.Engine.Timeframes),
		engine.NewBollingerStrategy(indicatorRepo, cfg.Engine.Timeframes),
		engine.NewStochasticStrategy(resolver, indicatorRepo, cfg.Engine.Timeframes),
		engine.NewWilliamsRStrategy(resolver, indicatorRepo, cfg.Engine.Timeframes),
		engine.NewMACDMultiStrategy(indicatorRepo, cfg.Engine.Consensus),
	}
	for _, s := range strategies {
		if err := registry.Register(s); err != nil {
			appLogger.Fatal("Failed to register strategy", zap.Error(err), zap.String("strategy", s.Name()))
		}
	}
	signalEngine := engine.New(cfg.Engine, registry, signalRepo, symbolRepo, indicatorRepo, appLogger)

	// Market data provider
	mdClient := marketdata.NewClient(cfg.MarketData, appLogger)
	var tickStream *marketdata.Stream
	if cfg.Stream.URL != "" {
		tickStream = marketdata.NewStream(cfg.Stream, appLogger)
	}

	// Telegram notifier
	var notifier telegram.Notifier = telegram.NopNotifier{}
	if cfg.Telegram.BotToken != "" {
		notifier, err = telegram.NewClient(cfg.Telegram.BotToken, cfg.Telegram.ChatID)
		if err != nil {
			appLogger.Fatal("Failed to initialize Telegram notifier", zap.Error(err))
		}
	}

	// Initialize services
	workerSvc := service.NewWorkerService(cfg, appLogger, redisClient.Client, signalEngine, jobRepo, symbolRepo, candleRepo, indicatorRepo, signalRepo, leaseRepo, mdClient, notifier)
	apiSvc := service.NewAPIService(signalEngine, symbolRepo, signalRepo, appLogger)
	tickSvc := service.NewTickService(cfg, appLogger, redisClient.Client, symbolRepo, tickStream)

	// Initialize and start the Redis consumer
	redisConsumer := consumer.NewRedisConsumer(cfg, redisClient.Client, workerSvc, appLogger)
	redisConsumer.Start(ctx)
	tickSvc.Start(ctx)

	// Initialize Echo server
	e := echo.New()
	e.HideBanner = true

	signalHandler := delivery.NewSignalHandler(apiSvc, appLogger)
	pipelineHandler := delivery.NewPipelineHandler(apiSvc, appLogger)
	strategyHandler := delivery.NewStrategyHandler(apiSvc, appLogger)

	apiV1 := e.Group("/api/v1")
	signalHandler.RegisterRoutes(apiV1.Group("/signals"))
	pipelineHandler.RegisterRoutes(apiV1.Group("/pipelines"))
	strategyHandler.RegisterRoutes(apiV1.Group("/strategies"))
	e.GET("/swagger/*", swagger.WrapHandler)

	go func() {
		addr := cfg.API.Address()
		appLogger.Info("HTTP server starting", logger.Field("address", addr))
		if err := e.Start(addr); err != nil && err != http.ErrServerClosed {
			appLogger.Error("HTTP server failed to start", logger.ErrorField(err))
		}
	}()

	appLogger.Info("Signal service started. Waiting for jobs...")

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	appLogger.Info("Shutting down signal service...")
	cancel()
	redisConsumer.Stop()
	tickSvc.Stop()

	shutdownCtx, cancelShutdown := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancelShutdown()
	if err := e.Shutdown(shutdownCtx); err != nil {
		appLogger.Error("Server forced to shutdown", logger.ErrorField(err))
	}
	appLogger.Info("Signal service stopped.")
}

// @title Signal Engine API
// @version 1.0
// @description Signal evaluation and aggregation service.
// @BasePath /api/v1
func main() {
	rootCmd := &cobra.Command{Use: "signal-service"}

	serveCmd.Flags().StringVarP(&configPath, "config", "c", "configs/config-signal.yaml", "Path to the configuration file")

	rootCmd.AddCommand(serveCmd)
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error executing signal-service CLI: %s\n", err)
		os.Exit(1)
	}
}
