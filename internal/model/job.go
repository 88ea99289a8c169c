package model

import (
	"encoding/json"
	"time"

	"github.com/google/uuid"
)

type JobStatus string

const (
	JobStatusPending    JobStatus = "pending"
	JobStatusProcessing JobStatus = "processing"
	JobStatusCompleted  JobStatus = "completed"
	JobStatusFailed     JobStatus = "failed"
)

// JobType is a closed set; workers dispatch through an explicit handler
// table keyed by it, so a new kind means a new constant plus a registered
// handler.
type JobType string

const (
	JobTypeDocumentProcessing JobType = "document_processing"
)

type Job struct {
	ID           uuid.UUID       `json:"id" db:"id"`
	DocumentID   uuid.UUID       `json:"document_id" db:"document_id"`
	Type         JobType         `json:"job_type" db:"job_type"`
	Payload      json.RawMessage `json:"payload" db:"payload"`
	Status       JobStatus       `json:"status" db:"status"`
	Attempts     int             `json:"attempts" db:"attempts"`
	MaxAttempts  int             `json:"max_attempts" db:"max_attempts"`
	ErrorMessage *string         `json:"error_message,omitempty" db:"error_message"`
	ScheduledFor time.Time       `json:"scheduled_for" db:"scheduled_for"`
	StartedAt    *time.Time      `json:"started_at,omitempty" db:"started_at"`
	CompletedAt  *time.Time      `json:"completed_at,omitempty" db:"completed_at"`
	LeaseUntil   *time.Time      `json:"lease_until,omitempty" db:"lease_until"`
	CreatedAt    time.Time       `json:"created_at" db:"created_at"`
	UpdatedAt    time.Time       `json:"updated_at" db:"updated_at"`
}

// DeadLettered reports whether the job has exhausted its retry budget and
// will never be claimed again.
func (j *Job) DeadLettered() bool {
	return j.Status == JobStatusFailed && j.Attempts >= j.MaxAttempts
}

// ProcessingPayload is the payload shape carried by document_processing
// jobs. The queue itself treats payloads as opaque JSON.
type ProcessingPayload struct {
	FilePath       string     `json:"file_path"`
	Filename       string     `json:"filename"`
	BuildingID     *uuid.UUID `json:"building_id,omitempty"`
	RevisionTypeID *uuid.UUID `json:"revision_type_id,omitempty"`
}
