package db

import (
	"context"
	"database/sql"
	stderrors "errors"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/mikobrno/pdfkar/internal/model"
	"github.com/mikobrno/pdfkar/pkg/errors"
)

type DocumentRepository interface {
	// CreateWithJob inserts the document and its processing job in one
	// transaction so an enqueue failure never leaves an orphan document.
	CreateWithJob(ctx context.Context, doc *model.Document, job *model.Job) error
	Get(ctx context.Context, id uuid.UUID) (*model.Document, error)
	ListByOwner(ctx context.Context, ownerID uuid.UUID) ([]model.Document, error)
}

type documentRepo struct {
	db  *sql.DB
	log zerolog.Logger
}

func NewDocumentRepository(db *sql.DB, log zerolog.Logger) DocumentRepository {
	return &documentRepo{db: db, log: log}
}

func insertDocument(ctx context.Context, tx *sql.Tx, doc *model.Document) error {
	_, err := tx.ExecContext(ctx, `
INSERT INTO documents (id, filename, storage_path, status, owner_id, size_bytes, created_at, updated_at)
VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
		doc.ID.String(), doc.Filename, doc.StoragePath, doc.Status,
		doc.OwnerID.String(), doc.SizeBytes, doc.CreatedAt, doc.UpdatedAt)
	return err
}

func insertJob(ctx context.Context, tx *sql.Tx, job *model.Job) error {
	_, err := tx.ExecContext(ctx, `
INSERT INTO jobs (id, document_id, job_type, payload, status, attempts, max_attempts, scheduled_for, created_at, updated_at)
VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		job.ID.String(), job.DocumentID.String(), job.Type, []byte(job.Payload),
		job.Status, job.Attempts, job.MaxAttempts, job.ScheduledFor,
		job.CreatedAt, job.UpdatedAt)
	return err
}

func (r *documentRepo) CreateWithJob(ctx context.Context, doc *model.Document, job *model.Job) error {
	now := time.Now().UTC()
	doc.Status = model.DocumentStatusQueued
	doc.CreatedAt, doc.UpdatedAt = now, now
	job.Status = model.JobStatusPending
	job.Attempts = 0
	job.CreatedAt, job.UpdatedAt = now, now
	if job.ScheduledFor.IsZero() {
		job.ScheduledFor = now
	}

	err := inTx(ctx, r.db, func(tx *sql.Tx) error {
		if err := insertDocument(ctx, tx, doc); err != nil {
			return err
		}
		return insertJob(ctx, tx, job)
	})
	if err != nil {
		r.log.Error().Err(err).Str("filename", doc.Filename).Msg("Failed to create document")
		return err
	}

	r.log.Info().
		Str("document_id", doc.ID.String()).
		Str("job_id", job.ID.String()).
		Str("filename", doc.Filename).
		Msg("Document created and job enqueued")
	return nil
}

func (r *documentRepo) Get(ctx context.Context, id uuid.UUID) (*model.Document, error) {
	row := r.db.QueryRowContext(ctx,
		`SELECT `+documentColumns+` FROM documents WHERE id = ?`, id.String())
	doc, err := scanDocument(row)
	if stderrors.Is(err, sql.ErrNoRows) {
		return nil, errors.ErrDocumentNotFound
	}
	return doc, err
}

func (r *documentRepo) ListByOwner(ctx context.Context, ownerID uuid.UUID) ([]model.Document, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT `+documentColumns+` FROM documents WHERE owner_id = ? ORDER BY created_at DESC`,
		ownerID.String())
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var docs []model.Document
	for rows.Next() {
		doc, err := scanDocument(rows)
		if err != nil {
			return nil, err
		}
		docs = append(docs, *doc)
	}
	return docs, rows.Err()
}
