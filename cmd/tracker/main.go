package main

import (
	"context"
	"math/rand"
	"os"
	"os/signal"
	"strconv"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"golang.org/x/sync/errgroup"

	"github.com/HelloBroCode/web-tracker1/internal/advisor"
	"github.com/HelloBroCode/web-tracker1/internal/amqp"
	"github.com/HelloBroCode/web-tracker1/internal/analytics"
	"github.com/HelloBroCode/web-tracker1/internal/cache"
	"github.com/HelloBroCode/web-tracker1/internal/chat"
	"github.com/HelloBroCode/web-tracker1/internal/config"
	apphttp "github.com/HelloBroCode/web-tracker1/internal/http"
	"github.com/HelloBroCode/web-tracker1/internal/log"
	"github.com/HelloBroCode/web-tracker1/internal/receipts"
	"github.com/HelloBroCode/web-tracker1/internal/services"
	"github.com/HelloBroCode/web-tracker1/internal/storage"
)

func main() {
	// Load .env for local development; absent in containers.
	_ = godotenv.Load()

	logger := log.New(log.ComponentApp, log.Config{})
	log.SetDefault(logger)

	cfg := config.Load()
	if err := cfg.Validate(); err != nil {
		logger.Error("configuration invalid", log.FieldError, err)
		os.Exit(1)
	}

	var repo storage.Repository
	switch cfg.DataBackend {
	case "memory":
		repo = storage.NewMemoryRepository()
		logger.Info("using in-memory storage backend")
	default:
		sqliteRepo, err := storage.NewSQLiteRepository(cfg.SQLiteDBPath, logger)
		if err != nil {
			logger.Error("sqlite initialization failed", log.FieldError, err, "path", cfg.SQLiteDBPath)
			os.Exit(1)
		}
		repo = sqliteRepo
		logger.Info("using sqlite storage backend", "path", cfg.SQLiteDBPath)
	}
	defer repo.Close()

	// The archive pipeline is optional: without a broker URL expenses are
	// still stored, just never mirrored to the CSV archive.
	var publisher services.ArchivePublisher
	if cfg.AMQPURL != "" {
		client, err := amqp.NewClient(cfg.AMQPURL, cfg.AMQPExchange, cfg.AMQPQueue, logger)
		if err != nil {
			logger.Error("amqp initialization failed", log.FieldError, err)
			os.Exit(1)
		}
		defer client.Close()
		publisher = client
		logger.Info("archive publishing enabled", "exchange", cfg.AMQPExchange, "queue", cfg.AMQPQueue)
	} else {
		logger.Info("archive publishing disabled, no AMQP_URL configured")
	}

	expenseService := services.NewExpenseService(repo, publisher, logger)

	var generator advisor.TextGenerator
	if cfg.GeminiAPIKey != "" {
		gemini, err := advisor.NewGeminiGenerator(context.Background(), cfg.GeminiAPIKey)
		if err != nil {
			logger.Error("gemini initialization failed", log.FieldError, err)
			os.Exit(1)
		}
		defer gemini.Close()
		generator = gemini
		logger.Info("AI budget advice enabled")
	} else {
		logger.Info("AI budget advice disabled, no GEMINI_API_KEY configured")
	}

	receiptStore, err := receipts.NewStore(cfg.ReceiptDir, logger)
	if err != nil {
		logger.Error("receipt store initialization failed", log.FieldError, err, "dir", cfg.ReceiptDir)
		os.Exit(1)
	}

	port, _ := strconv.Atoi(cfg.Port)
	jitter := rand.New(rand.NewSource(time.Now().UnixNano()))
	server := apphttp.NewServer(apphttp.Options{
		Port:               port,
		RateLimitPerMinute: cfg.RateLimitPerMinute,
		ReportCacheSize:    cfg.ReportCacheSize,
		ReportCacheTTL:     cfg.ReportCacheTTL,
	}, apphttp.Dependencies{
		Repo:      repo,
		Expenses:  expenseService,
		Chat:      chat.NewEngine(expenseService, nil),
		Sessions:  chat.NewSessions(),
		Analytics: analytics.NewEngine(repo, jitter),
		Advisor:   advisor.New(repo, generator, logger),
		Receipts:  receiptStore,
		Logger:    logger,
	})

	cacheManager := cache.NewManager(logger)
	cacheManager.Register(server.ReportCache())
	cacheManager.StartCleanup(cfg.ReportCacheTTL)
	defer cacheManager.Stop()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	g, ctx := errgroup.WithContext(ctx)
	g.Go(server.Start)
	g.Go(func() error {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer cancel()
		return server.Shutdown(shutdownCtx)
	})

	if err := g.Wait(); err != nil {
		logger.Error("server exited with error", log.FieldError, err)
		os.Exit(1)
	}
	logger.Info("server stopped gracefully")
}
