package worker

import (
	"context"
	"fmt"
	"time"

	"github.com/rs/zerolog"

	"github.com/mikobrno/pdfkar/internal/config"
	"github.com/mikobrno/pdfkar/internal/extract"
	"github.com/mikobrno/pdfkar/internal/logger"
	"github.com/mikobrno/pdfkar/internal/model"
	"github.com/mikobrno/pdfkar/internal/queue"
)

// Handler runs one claimed job and either returns the extraction result
// or an error that counts against the job's attempt budget.
type Handler interface {
	Handle(ctx context.Context, job *model.Job, doc *model.Document) (*extract.Result, error)
}

// ExtractionWorker polls the queue and dispatches claimed jobs through
// the handler table. Job kinds are a closed set: an unregistered kind is
// a failed attempt, not a silent skip.
type ExtractionWorker struct {
	cfg      *config.Config
	queue    *queue.Queue
	handlers map[model.JobType]Handler
	pool     *WorkerPool
	log      zerolog.Logger
}

func NewExtractionWorker(cfg *config.Config, q *queue.Queue) *ExtractionWorker {
	return &ExtractionWorker{
		cfg:      cfg,
		queue:    q,
		handlers: make(map[model.JobType]Handler),
		pool:     NewWorkerPool(cfg.Workers.Extraction.Count),
		log:      logger.Get(),
	}
}

func (w *ExtractionWorker) Register(jobType model.JobType, handler Handler) {
	w.handlers[jobType] = handler
}

func (w *ExtractionWorker) Start(ctx context.Context) error {
	w.log.Info().Msg("Starting extraction worker")
	w.pool.Start(ctx)

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		default:
		}

		job, doc, err := w.queue.ClaimNext(ctx)
		if err != nil {
			w.log.Error().Err(err).Msg("Failed to claim job")
			w.sleep(ctx)
			continue
		}
		if job == nil {
			w.sleep(ctx)
			continue
		}

		if err := w.pool.Submit(ctx, func(ctx context.Context) error {
			return w.process(ctx, job, doc)
		}); err != nil {
			// Shutting down with a job claimed: the lease sweep returns it
			// to pending once the lease lapses.
			return err
		}
	}
}

func (w *ExtractionWorker) Stop() {
	w.log.Info().Msg("Stopping extraction worker")
	w.pool.Stop()
}

func (w *ExtractionWorker) sleep(ctx context.Context) {
	select {
	case <-ctx.Done():
	case <-time.After(w.cfg.Queue.PollInterval):
	}
}

func (w *ExtractionWorker) process(ctx context.Context, job *model.Job, doc *model.Document) error {
	log := w.log.With().
		Str("job_id", job.ID.String()).
		Str("document_id", job.DocumentID.String()).
		Str("job_type", string(job.Type)).
		Int("attempt", job.Attempts+1).
		Logger()
	log.Info().Msg("Processing job")

	handler, ok := w.handlers[job.Type]
	if !ok {
		return w.fail(ctx, job, fmt.Sprintf("no handler registered for job type %q", job.Type))
	}

	result, err := handler.Handle(ctx, job, doc)
	if err != nil {
		log.Warn().Err(err).Msg("Job attempt failed")
		return w.fail(ctx, job, err.Error())
	}

	if _, err := w.queue.Complete(ctx, job.ID, result.Fields, result.Confidence); err != nil {
		log.Error().Err(err).Msg("Failed to complete job")
		return err
	}
	log.Info().Int("field_count", len(result.Fields)).Msg("Job completed")
	return nil
}

func (w *ExtractionWorker) fail(ctx context.Context, job *model.Job, message string) error {
	failed, err := w.queue.Fail(ctx, job.ID, message)
	if err != nil {
		w.log.Error().Err(err).Str("job_id", job.ID.String()).Msg("Failed to record job failure")
		return err
	}
	if failed.DeadLettered() {
		w.log.Error().
			Str("job_id", job.ID.String()).
			Int("attempts", failed.Attempts).
			Str("error", message).
			Msg("Job dead-lettered")
	}
	return nil
}
