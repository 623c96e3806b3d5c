package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"job-scorer/internal/baseline"
	"job-scorer/internal/config"
	"job-scorer/internal/logger"
	"job-scorer/internal/notify"
	"job-scorer/internal/provider"
	"job-scorer/internal/scheduler"
	"job-scorer/internal/scorer"
	"job-scorer/internal/server"
	"job-scorer/internal/storage/postgres"
	"job-scorer/internal/storage/redis"

	"github.com/joho/godotenv"
	"go.uber.org/zap"
)

func main() {
	// .env is optional; real deployments set the environment directly.
	_ = godotenv.Load()

	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to load config: %v\n", err)
		os.Exit(1)
	}

	if err := cfg.Validate(); err != nil {
		fmt.Fprintf(os.Stderr, "Invalid config: %v\n", err)
		os.Exit(1)
	}

	log, err := logger.New(cfg.LogLevel)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to create logger: %v\n", err)
		os.Exit(1)
	}
	defer log.Sync()

	log.Info("starting job scorer",
		zap.String("log_level", cfg.LogLevel),
		zap.String("provider", cfg.ProviderName),
		zap.Strings("models", cfg.Models),
	)

	log.Info("connecting to PostgreSQL...")
	store, err := postgres.New(cfg.PostgresDSN, log)
	if err != nil {
		log.Fatal("failed to connect to PostgreSQL", zap.Error(err))
	}
	defer store.Close()

	log.Info("PostgreSQL connected successfully")

	log.Info("connecting to Redis...")
	cache, err := redis.New(cfg.RedisAddr, cfg.RedisPassword, cfg.RedisDB, log)
	if err != nil {
		log.Fatal("failed to connect to Redis", zap.Error(err))
	}
	defer cache.Close()

	log.Info("Redis connected successfully")

	providerClient := provider.NewClient(
		cfg.ProviderName,
		cfg.ProviderBaseURL,
		cfg.ProviderAPIKey,
		cfg.ProviderTimeout,
		log,
	)
	log.Info("model provider client created", zap.String("base_url", cfg.ProviderBaseURL))

	var notifier scorer.Notifier
	if cfg.TelegramToken != "" {
		tg, err := notify.NewTelegramNotifier(cfg.TelegramToken, cfg.TelegramChatID, log)
		if err != nil {
			log.Fatal("failed to create telegram notifier", zap.Error(err))
		}
		notifier = tg
	}

	baselines := baseline.NewBuilder(store, log)

	batchScorer := scorer.New(
		store,
		providerClient,
		baselines,
		cache,
		notifier,
		scorer.Config{
			Models:           cfg.Models,
			Temperature:      cfg.Temperature,
			MaxOutputTokens:  cfg.MaxOutputTokens,
			MaxOutputRetries: cfg.MaxOutputRetries,
			BatchSize:        cfg.BatchSize,
			DefaultThreshold: cfg.DefaultThreshold,
		},
		log,
	)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	if cfg.CronSpec != "" {
		sched := scheduler.New(batchScorer, cfg.CronSpec, log)
		if err := sched.Start(ctx); err != nil {
			log.Fatal("failed to start scheduler", zap.Error(err))
		}
		defer sched.Stop()
	}

	srv := server.New(cfg.HTTPAddr, batchScorer, cfg.AllowedOrigins, log)

	go func() {
		if err := srv.Start(); err != nil {
			log.Fatal("http server stopped with error", zap.Error(err))
		}
	}()

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)

	sig := <-sigChan
	log.Info("received shutdown signal", zap.String("signal", sig.String()))
	cancel()

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Error("http server shutdown error", zap.Error(err))
	}

	log.Info("job scorer stopped")
}
