package worker

import (
	"context"
	"time"

	"github.com/rs/zerolog"

	"github.com/mikobrno/pdfkar/internal/config"
	"github.com/mikobrno/pdfkar/internal/logger"
	"github.com/mikobrno/pdfkar/internal/queue"
)

// ReclaimWorker periodically returns lease-expired jobs to the queue so a
// crashed worker cannot strand a document in processing forever.
type ReclaimWorker struct {
	cfg   *config.Config
	queue *queue.Queue
	log   zerolog.Logger
}

func NewReclaimWorker(cfg *config.Config, q *queue.Queue) *ReclaimWorker {
	return &ReclaimWorker{
		cfg:   cfg,
		queue: q,
		log:   logger.Get(),
	}
}

func (w *ReclaimWorker) Start(ctx context.Context) error {
	w.log.Info().Dur("interval", w.cfg.Queue.ReclaimInterval).Msg("Starting lease reclaim sweep")

	ticker := time.NewTicker(w.cfg.Queue.ReclaimInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
			count, err := w.queue.ReclaimExpired(ctx)
			if err != nil {
				w.log.Error().Err(err).Msg("Reclaim sweep failed")
				continue
			}
			if count > 0 {
				w.log.Info().Int("reclaimed", count).Msg("Reclaim sweep returned expired leases")
			}
		}
	}
}
