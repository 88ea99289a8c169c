package db

import (
	"database/sql"
	"encoding/json"

	"github.com/google/uuid"
	"github.com/mikobrno/pdfkar/internal/model"
)

// rowScanner is satisfied by both *sql.Row and *sql.Rows.
type rowScanner interface {
	Scan(dest ...any) error
}

const documentColumns = `id, filename, storage_path, status, owner_id, size_bytes,
	error_message, confidence_score, processed_at, created_at, updated_at`

func scanDocument(row rowScanner) (*model.Document, error) {
	var (
		doc        model.Document
		id, owner  string
		confidence sql.NullFloat64
		processed  sql.NullTime
	)
	err := row.Scan(&id, &doc.Filename, &doc.StoragePath, &doc.Status, &owner,
		&doc.SizeBytes, &doc.ErrorMessage, &confidence, &processed,
		&doc.CreatedAt, &doc.UpdatedAt)
	if err != nil {
		return nil, err
	}
	if doc.ID, err = uuid.Parse(id); err != nil {
		return nil, err
	}
	if doc.OwnerID, err = uuid.Parse(owner); err != nil {
		return nil, err
	}
	if confidence.Valid {
		v := float32(confidence.Float64)
		doc.ConfidenceScore = &v
	}
	if processed.Valid {
		t := processed.Time
		doc.ProcessedAt = &t
	}
	return &doc, nil
}

const jobColumns = `id, document_id, job_type, payload, status, attempts, max_attempts,
	error_message, scheduled_for, started_at, completed_at, lease_until, created_at, updated_at`

func scanJob(row rowScanner) (*model.Job, error) {
	var (
		job                      model.Job
		id, docID                string
		payload                  []byte
		started, finished, lease sql.NullTime
	)
	err := row.Scan(&id, &docID, &job.Type, &payload, &job.Status, &job.Attempts,
		&job.MaxAttempts, &job.ErrorMessage, &job.ScheduledFor, &started,
		&finished, &lease, &job.CreatedAt, &job.UpdatedAt)
	if err != nil {
		return nil, err
	}
	if job.ID, err = uuid.Parse(id); err != nil {
		return nil, err
	}
	if job.DocumentID, err = uuid.Parse(docID); err != nil {
		return nil, err
	}
	job.Payload = json.RawMessage(payload)
	if started.Valid {
		t := started.Time
		job.StartedAt = &t
	}
	if finished.Valid {
		t := finished.Time
		job.CompletedAt = &t
	}
	if lease.Valid {
		t := lease.Time
		job.LeaseUntil = &t
	}
	return &job, nil
}
