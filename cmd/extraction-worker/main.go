package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/mikobrno/pdfkar/internal/config"
	"github.com/mikobrno/pdfkar/internal/db"
	"github.com/mikobrno/pdfkar/internal/extract"
	"github.com/mikobrno/pdfkar/internal/logger"
	"github.com/mikobrno/pdfkar/internal/model"
	"github.com/mikobrno/pdfkar/internal/notify"
	"github.com/mikobrno/pdfkar/internal/queue"
	"github.com/mikobrno/pdfkar/internal/storage"
	"github.com/mikobrno/pdfkar/internal/worker"
)

func main() {
	// Load configuration
	cfg, err := config.Load()
	if err != nil {
		panic(fmt.Sprintf("Failed to load config: %v", err))
	}

	// Initialize logger
	logger.Init(cfg.Logging.Level, cfg.Logging.Format)
	log := logger.Get()

	log.Info().Str("version", cfg.App.Version).Msg("Starting extraction worker")

	// Initialize database
	database, err := db.NewConnection(cfg)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to connect to database")
	}
	defer database.Close()

	if err := db.Migrate(context.Background(), database); err != nil {
		log.Fatal().Err(err).Msg("Failed to run migrations")
	}

	// Initialize repositories
	jobs := db.NewJobStore(database, log)
	prompts := db.NewPromptRepository(database, log)

	// Initialize Redis-backed notifier
	redisClient, err := notify.NewRedisClient(cfg)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to connect to Redis")
	}
	defer redisClient.Close()
	notifier := notify.NewNotifier(redisClient, cfg)

	// Initialize S3 storage
	s3Storage, err := storage.NewS3Storage(cfg)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to initialize S3 storage")
	}

	// Wire the queue and the handler table
	jobQueue := queue.New(jobs, notifier, cfg.Queue)
	processor := extract.NewHTTPProcessor(cfg)

	extractionWorker := worker.NewExtractionWorker(cfg, jobQueue)
	extractionWorker.Register(model.JobTypeDocumentProcessing,
		worker.NewDocumentHandler(prompts, s3Storage, processor, cfg))

	reclaimWorker := worker.NewReclaimWorker(cfg, jobQueue)

	// Create context for graceful shutdown
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// Start workers
	go func() {
		if err := extractionWorker.Start(ctx); err != nil && ctx.Err() == nil {
			log.Fatal().Err(err).Msg("Extraction worker failed")
		}
	}()
	go func() {
		if err := reclaimWorker.Start(ctx); err != nil && ctx.Err() == nil {
			log.Fatal().Err(err).Msg("Reclaim worker failed")
		}
	}()

	// Wait for interrupt signal
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Info().Msg("Shutting down extraction worker...")

	cancel()
	extractionWorker.Stop()

	log.Info().Msg("Extraction worker exited")
}
