package worker

import (
	"context"
	"sync"

	"github.com/rs/zerolog"

	"github.com/mikobrno/pdfkar/internal/logger"
)

type WorkerPool struct {
	workerCount int
	jobChan     chan func(context.Context) error
	wg          sync.WaitGroup
	log         zerolog.Logger
}

func NewWorkerPool(workerCount int) *WorkerPool {
	return &WorkerPool{
		workerCount: workerCount,
		jobChan:     make(chan func(context.Context) error),
		log:         logger.Get(),
	}
}

func (wp *WorkerPool) Start(ctx context.Context) {
	wp.log.Info().Int("worker_count", wp.workerCount).Msg("Starting worker pool")

	for i := 0; i < wp.workerCount; i++ {
		wp.wg.Add(1)
		go wp.worker(ctx, i)
	}
}

// Stop waits for the workers to drain. They exit on context
// cancellation; jobChan is never closed, so a producer still blocked in
// Submit can never hit a send on a closed channel.
func (wp *WorkerPool) Stop() {
	wp.log.Info().Msg("Stopping worker pool")
	wp.wg.Wait()
	wp.log.Info().Msg("Worker pool stopped")
}

// Submit blocks until a worker takes the task. Claimed jobs must not be
// dropped on the floor: an unstarted task would hold its lease until the
// reclaim sweep picks it up.
func (wp *WorkerPool) Submit(ctx context.Context, task func(context.Context) error) error {
	select {
	case <-ctx.Done():
		return ctx.Err()
	case wp.jobChan <- task:
		return nil
	}
}

func (wp *WorkerPool) worker(ctx context.Context, id int) {
	defer wp.wg.Done()

	log := wp.log.With().Int("worker_id", id).Logger()
	log.Debug().Msg("Worker started")

	for {
		select {
		case <-ctx.Done():
			log.Debug().Msg("Worker stopping due to context cancellation")
			return
		case task := <-wp.jobChan:
			if err := task(ctx); err != nil {
				log.Error().Err(err).Msg("Task execution failed")
			}
		}
	}
}
