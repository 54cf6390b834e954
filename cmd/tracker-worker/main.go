package main

import (
	"context"
	"errors"
	"os"
	"os/signal"
	"syscall"

	"github.com/joho/godotenv"
	"golang.org/x/sync/errgroup"

	"github.com/HelloBroCode/web-tracker1/internal/amqp"
	"github.com/HelloBroCode/web-tracker1/internal/config"
	"github.com/HelloBroCode/web-tracker1/internal/log"
	"github.com/HelloBroCode/web-tracker1/internal/storage"
	"github.com/HelloBroCode/web-tracker1/internal/worker"
)

func main() {
	_ = godotenv.Load()

	logger := log.New(log.ComponentWorker, log.Config{})
	log.SetDefault(logger)

	cfg := config.Load()
	if err := cfg.Validate(); err != nil {
		logger.Error("configuration invalid", log.FieldError, err)
		os.Exit(1)
	}
	if cfg.AMQPURL == "" {
		logger.Error("AMQP_URL is required, the worker consumes the archive queue")
		os.Exit(1)
	}

	repo, err := storage.NewSQLiteRepository(cfg.SQLiteDBPath, logger)
	if err != nil {
		logger.Error("sqlite initialization failed", log.FieldError, err, "path", cfg.SQLiteDBPath)
		os.Exit(1)
	}
	defer repo.Close()

	client, err := amqp.NewClient(cfg.AMQPURL, cfg.AMQPExchange, cfg.AMQPQueue, logger)
	if err != nil {
		logger.Error("amqp initialization failed", log.FieldError, err)
		os.Exit(1)
	}
	defer client.Close()

	archiveWorker, err := worker.NewArchiveWorker(repo, cfg.ArchiveDir, logger)
	if err != nil {
		logger.Error("archive worker initialization failed", log.FieldError, err, "dir", cfg.ArchiveDir)
		os.Exit(1)
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	logger.Info("archive worker starting",
		"queue", cfg.AMQPQueue,
		log.FieldArchiveFile, cfg.ArchiveDir)

	g, ctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		return client.ConsumeExpenseArchive(ctx, archiveWorker.HandleArchiveMessage)
	})

	if err := g.Wait(); err != nil && !errors.Is(err, context.Canceled) {
		logger.Error("worker exited with error", log.FieldError, err)
		os.Exit(1)
	}
	logger.Info("worker stopped gracefully")
}
