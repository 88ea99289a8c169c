package db

import (
	"context"
	"database/sql"
	"encoding/json"
	stderrors "errors"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/mikobrno/pdfkar/internal/lifecycle"
	"github.com/mikobrno/pdfkar/internal/model"
	"github.com/mikobrno/pdfkar/pkg/errors"
)

// JobStore is the durable queue table. All mutation goes through the
// atomic claim/resolve operations below; nothing else writes job rows.
type JobStore interface {
	// Enqueue inserts a pending job. The owning document must already exist.
	Enqueue(ctx context.Context, job *model.Job) error
	Get(ctx context.Context, id uuid.UUID) (*model.Job, error)

	// ClaimNext atomically takes exclusive ownership of the oldest eligible
	// pending job and moves its document to processing. Returns (nil, nil,
	// nil) when no job is eligible. Concurrent callers never receive the
	// same job.
	ClaimNext(ctx context.Context, now, leaseUntil time.Time) (*model.Job, *model.Document, error)

	// Complete resolves a held job: job to completed, extracted fields
	// inserted, document to awaiting_review, all in one transaction.
	Complete(ctx context.Context, jobID, documentID uuid.UUID, fields []model.FieldInput, confidence float32, now time.Time) (*model.Document, error)

	// Requeue returns a held job to pending for a later retry. The attempts
	// guard makes it a no-op-with-error if the job was reclaimed meanwhile.
	Requeue(ctx context.Context, jobID uuid.UUID, attempts int, message string, scheduledFor, now time.Time) error

	// FailTerminal dead-letters a held job and fails its document.
	FailTerminal(ctx context.Context, jobID, documentID uuid.UUID, attempts int, message string, now time.Time) (*model.Document, error)

	// ExpiredLeases lists processing jobs whose lease has lapsed.
	ExpiredLeases(ctx context.Context, now time.Time, limit int) ([]model.Job, error)
}

type jobStore struct {
	db  *sql.DB
	log zerolog.Logger
}

func NewJobStore(db *sql.DB, log zerolog.Logger) JobStore {
	return &jobStore{db: db, log: log}
}

func (s *jobStore) Enqueue(ctx context.Context, job *model.Job) error {
	now := time.Now().UTC()
	job.Status = model.JobStatusPending
	job.Attempts = 0
	job.CreatedAt, job.UpdatedAt = now, now
	if job.ScheduledFor.IsZero() {
		job.ScheduledFor = now
	}
	if job.Payload == nil {
		job.Payload = json.RawMessage(`{}`)
	}

	err := inTx(ctx, s.db, func(tx *sql.Tx) error {
		return insertJob(ctx, tx, job)
	})
	if err != nil {
		s.log.Error().Err(err).Str("document_id", job.DocumentID.String()).Msg("Failed to enqueue job")
		return err
	}
	s.log.Info().
		Str("job_id", job.ID.String()).
		Str("document_id", job.DocumentID.String()).
		Str("job_type", string(job.Type)).
		Msg("Job enqueued")
	return nil
}

func (s *jobStore) Get(ctx context.Context, id uuid.UUID) (*model.Job, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT `+jobColumns+` FROM jobs WHERE id = ?`, id.String())
	job, err := scanJob(row)
	if stderrors.Is(err, sql.ErrNoRows) {
		return nil, errors.ErrJobNotFound
	}
	return job, err
}

func (s *jobStore) ClaimNext(ctx context.Context, now, leaseUntil time.Time) (*model.Job, *model.Document, error) {
	var (
		job *model.Job
		doc *model.Document
	)
	err := inTx(ctx, s.db, func(tx *sql.Tx) error {
		row := tx.QueryRowContext(ctx, `
SELECT `+jobColumns+` FROM jobs
WHERE status = ? AND scheduled_for <= ? AND attempts < max_attempts
ORDER BY created_at ASC LIMIT 1 FOR UPDATE`,
			model.JobStatusPending, now)
		var err error
		job, err = scanJob(row)
		if stderrors.Is(err, sql.ErrNoRows) {
			job = nil
			return nil
		}
		if err != nil {
			return err
		}

		// Claim CAS: the row lock above already serializes claimers, the
		// status guard keeps the update safe regardless.
		res, err := tx.ExecContext(ctx, `
UPDATE jobs SET status = ?, started_at = ?, lease_until = ?, updated_at = ?
WHERE id = ? AND status = ?`,
			model.JobStatusProcessing, now, leaseUntil, now,
			job.ID.String(), model.JobStatusPending)
		if err != nil {
			return err
		}
		if n, _ := res.RowsAffected(); n != 1 {
			job = nil
			return nil
		}

		// First claim moves the document out of queued; on retries it is
		// already processing and this is a no-op.
		from, to := lifecycle.Edge(lifecycle.EventJobClaimed)
		if _, err := tx.ExecContext(ctx, `
UPDATE documents SET status = ?, updated_at = ? WHERE id = ? AND status = ?`,
			to, now, job.DocumentID.String(), from); err != nil {
			return err
		}

		doc, err = scanDocument(tx.QueryRowContext(ctx,
			`SELECT `+documentColumns+` FROM documents WHERE id = ?`,
			job.DocumentID.String()))
		return err
	})
	if err != nil {
		return nil, nil, err
	}
	if job == nil {
		return nil, nil, nil
	}

	job.Status = model.JobStatusProcessing
	started, lease := now, leaseUntil
	job.StartedAt, job.LeaseUntil = &started, &lease
	job.UpdatedAt = now
	return job, doc, nil
}

func (s *jobStore) Complete(ctx context.Context, jobID, documentID uuid.UUID, fields []model.FieldInput, confidence float32, now time.Time) (*model.Document, error) {
	var doc *model.Document
	err := inTx(ctx, s.db, func(tx *sql.Tx) error {
		res, err := tx.ExecContext(ctx, `
UPDATE jobs SET status = ?, completed_at = ?, lease_until = NULL, updated_at = ?
WHERE id = ? AND status = ?`,
			model.JobStatusCompleted, now, now,
			jobID.String(), model.JobStatusProcessing)
		if err != nil {
			return err
		}
		if n, _ := res.RowsAffected(); n != 1 {
			return errors.NewInvariantViolation("job", jobID.String(), "completing a job not held as processing")
		}

		for _, f := range fields {
			box, err := json.Marshal(f.BoundingBox)
			if err != nil {
				return err
			}
			if _, err := tx.ExecContext(ctx, `
INSERT INTO extracted_fields (id, document_id, field_name, field_value, confidence_score, bounding_box, created_at)
VALUES (?, ?, ?, ?, ?, ?, ?)`,
				uuid.NewString(), documentID.String(), f.FieldName, f.FieldValue,
				f.ConfidenceScore, box, now); err != nil {
				return err
			}
		}

		from, to := lifecycle.Edge(lifecycle.EventJobCompleted)
		res, err = tx.ExecContext(ctx, `
UPDATE documents SET status = ?, confidence_score = ?, updated_at = ?
WHERE id = ? AND status = ?`,
			to, confidence, now, documentID.String(), from)
		if err != nil {
			return err
		}
		if n, _ := res.RowsAffected(); n != 1 {
			return errors.NewInvariantViolation("document", documentID.String(), "completion of a document not in processing")
		}

		doc, err = scanDocument(tx.QueryRowContext(ctx,
			`SELECT `+documentColumns+` FROM documents WHERE id = ?`, documentID.String()))
		return err
	})
	if err != nil {
		return nil, err
	}
	s.log.Info().
		Str("job_id", jobID.String()).
		Str("document_id", documentID.String()).
		Int("field_count", len(fields)).
		Msg("Job completed")
	return doc, nil
}

func (s *jobStore) Requeue(ctx context.Context, jobID uuid.UUID, attempts int, message string, scheduledFor, now time.Time) error {
	res, err := s.db.ExecContext(ctx, `
UPDATE jobs SET status = ?, attempts = ?, error_message = ?, scheduled_for = ?,
	started_at = NULL, lease_until = NULL, updated_at = ?
WHERE id = ? AND status = ? AND attempts = ?`,
		model.JobStatusPending, attempts, message, scheduledFor, now,
		jobID.String(), model.JobStatusProcessing, attempts-1)
	if err != nil {
		return err
	}
	if n, _ := res.RowsAffected(); n != 1 {
		return errors.NewInvariantViolation("job", jobID.String(), "requeueing a job not held as processing")
	}
	s.log.Warn().
		Str("job_id", jobID.String()).
		Int("attempts", attempts).
		Time("scheduled_for", scheduledFor).
		Str("error", message).
		Msg("Job requeued with backoff")
	return nil
}

func (s *jobStore) FailTerminal(ctx context.Context, jobID, documentID uuid.UUID, attempts int, message string, now time.Time) (*model.Document, error) {
	var doc *model.Document
	err := inTx(ctx, s.db, func(tx *sql.Tx) error {
		res, err := tx.ExecContext(ctx, `
UPDATE jobs SET status = ?, attempts = ?, error_message = ?, completed_at = ?,
	lease_until = NULL, updated_at = ?
WHERE id = ? AND status = ? AND attempts = ?`,
			model.JobStatusFailed, attempts, message, now, now,
			jobID.String(), model.JobStatusProcessing, attempts-1)
		if err != nil {
			return err
		}
		if n, _ := res.RowsAffected(); n != 1 {
			return errors.NewInvariantViolation("job", jobID.String(), "dead-lettering a job not held as processing")
		}

		from, to := lifecycle.Edge(lifecycle.EventJobFailed)
		res, err = tx.ExecContext(ctx, `
UPDATE documents SET status = ?, error_message = ?, processed_at = ?, updated_at = ?
WHERE id = ? AND status = ?`,
			to, message, now, now, documentID.String(), from)
		if err != nil {
			return err
		}
		if n, _ := res.RowsAffected(); n != 1 {
			return errors.NewInvariantViolation("document", documentID.String(), "failing a document not in processing")
		}

		doc, err = scanDocument(tx.QueryRowContext(ctx,
			`SELECT `+documentColumns+` FROM documents WHERE id = ?`, documentID.String()))
		return err
	})
	if err != nil {
		return nil, err
	}
	s.log.Warn().
		Str("job_id", jobID.String()).
		Str("document_id", documentID.String()).
		Int("attempts", attempts).
		Str("error", message).
		Msg("Job dead-lettered")
	return doc, nil
}

func (s *jobStore) ExpiredLeases(ctx context.Context, now time.Time, limit int) ([]model.Job, error) {
	rows, err := s.db.QueryContext(ctx, `
SELECT `+jobColumns+` FROM jobs
WHERE status = ? AND lease_until IS NOT NULL AND lease_until <= ?
ORDER BY lease_until ASC LIMIT ?`,
		model.JobStatusProcessing, now, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var jobs []model.Job
	for rows.Next() {
		job, err := scanJob(rows)
		if err != nil {
			return nil, err
		}
		jobs = append(jobs, *job)
	}
	return jobs, rows.Err()
}
