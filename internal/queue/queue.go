// Package queue implements the claim/complete/fail protocol over the
// durable job store, including backoff scheduling and the lease reclaim
// sweep. It is the only writer of job state.
package queue

import (
	"context"
	"encoding/json"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/mikobrno/pdfkar/internal/config"
	"github.com/mikobrno/pdfkar/internal/db"
	"github.com/mikobrno/pdfkar/internal/logger"
	"github.com/mikobrno/pdfkar/internal/model"
	"github.com/mikobrno/pdfkar/pkg/errors"
)

// Publisher pushes document lifecycle events to interested subscribers.
// Delivery is best-effort; the queue never blocks on it.
type Publisher interface {
	Publish(ctx context.Context, ownerID uuid.UUID, event model.DocumentEvent) error
}

type Queue struct {
	store   db.JobStore
	events  Publisher
	backoff Backoff
	lease   time.Duration
	now     func() time.Time
	log     zerolog.Logger
}

func New(store db.JobStore, events Publisher, cfg config.QueueConfig) *Queue {
	return &Queue{
		store:   store,
		events:  events,
		backoff: Backoff{Base: cfg.BackoffBase, Cap: cfg.BackoffCap},
		lease:   cfg.LeaseDuration,
		now:     func() time.Time { return time.Now().UTC() },
		log:     logger.Get(),
	}
}

// Enqueue creates a pending job for an already-created document.
func (q *Queue) Enqueue(ctx context.Context, documentID uuid.UUID, jobType model.JobType, payload json.RawMessage, maxAttempts int) (*model.Job, error) {
	if maxAttempts < 1 {
		maxAttempts = 1
	}
	job := &model.Job{
		ID:          uuid.New(),
		DocumentID:  documentID,
		Type:        jobType,
		Payload:     payload,
		MaxAttempts: maxAttempts,
	}
	if err := q.store.Enqueue(ctx, job); err != nil {
		return nil, err
	}
	return job, nil
}

// ClaimNext takes exclusive ownership of the oldest eligible pending job.
// Returns (nil, nil, nil) when the queue is empty.
func (q *Queue) ClaimNext(ctx context.Context) (*model.Job, *model.Document, error) {
	now := q.now()
	job, doc, err := q.store.ClaimNext(ctx, now, now.Add(q.lease))
	if err != nil || job == nil {
		return nil, nil, err
	}

	// The document only transitions on the first claim; retries find it
	// already processing.
	if job.Attempts == 0 {
		q.publish(doc)
	}
	return job, doc, nil
}

// Complete resolves a held job as successful, storing the extracted
// fields and moving the document to awaiting_review atomically.
func (q *Queue) Complete(ctx context.Context, jobID uuid.UUID, fields []model.FieldInput, confidence float32) (*model.Document, error) {
	job, err := q.store.Get(ctx, jobID)
	if err != nil {
		return nil, err
	}
	doc, err := q.store.Complete(ctx, jobID, job.DocumentID, fields, confidence, q.now())
	if err != nil {
		return nil, err
	}
	q.publish(doc)
	return doc, nil
}

// Fail records a failed attempt. Below the budget the job returns to
// pending with exponential backoff; at the budget it is dead-lettered and
// the document fails.
func (q *Queue) Fail(ctx context.Context, jobID uuid.UUID, message string) (*model.Job, error) {
	job, err := q.store.Get(ctx, jobID)
	if err != nil {
		return nil, err
	}
	if job.Status != model.JobStatusProcessing {
		return nil, errors.NewInvariantViolation("job", jobID.String(), "failing a job not held as processing")
	}

	now := q.now()
	attempts := job.Attempts + 1
	if attempts >= job.MaxAttempts {
		doc, err := q.store.FailTerminal(ctx, jobID, job.DocumentID, attempts, message, now)
		if err != nil {
			return nil, err
		}
		q.publish(doc)
		return q.store.Get(ctx, jobID)
	}

	delay := q.backoff.Delay(attempts)
	if err := q.store.Requeue(ctx, jobID, attempts, message, now.Add(delay), now); err != nil {
		return nil, err
	}
	return q.store.Get(ctx, jobID)
}

// ReclaimExpired returns lease-expired processing jobs to the queue,
// counting the lapsed hold as a failed attempt. Jobs resolved between the
// sweep's read and its write are skipped.
func (q *Queue) ReclaimExpired(ctx context.Context) (int, error) {
	expired, err := q.store.ExpiredLeases(ctx, q.now(), 100)
	if err != nil {
		return 0, err
	}

	reclaimed := 0
	for i := range expired {
		job := &expired[i]
		if _, err := q.Fail(ctx, job.ID, "lease expired: worker presumed dead"); err != nil {
			if errors.IsInvariantViolation(err) {
				continue
			}
			return reclaimed, err
		}
		reclaimed++
		q.log.Warn().
			Str("job_id", job.ID.String()).
			Int("attempts", job.Attempts+1).
			Msg("Reclaimed job with expired lease")
	}
	return reclaimed, nil
}

// publish is fire-and-forget: a slow or failing notifier must never block
// or fail the transition that triggered the event.
func (q *Queue) publish(doc *model.Document) {
	if q.events == nil || doc == nil {
		return
	}
	event := model.DocumentEvent{
		DocumentID: doc.ID,
		Status:     doc.Status,
		Filename:   doc.Filename,
	}
	ownerID := doc.OwnerID
	go func() {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := q.events.Publish(ctx, ownerID, event); err != nil {
			q.log.Debug().Err(err).Str("document_id", event.DocumentID.String()).Msg("Event publish dropped")
		}
	}()
}
