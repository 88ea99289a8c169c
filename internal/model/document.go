package model

import (
	"time"

	"github.com/google/uuid"
)

type DocumentStatus string

const (
	DocumentStatusQueued         DocumentStatus = "queued"
	DocumentStatusProcessing     DocumentStatus = "processing"
	DocumentStatusAwaitingReview DocumentStatus = "awaiting_review"
	DocumentStatusCompleted      DocumentStatus = "completed"
	DocumentStatusFailed         DocumentStatus = "failed"
)

// Terminal reports whether no further automatic transition is defined
// out of the status.
func (s DocumentStatus) Terminal() bool {
	return s == DocumentStatusCompleted || s == DocumentStatusFailed
}

type Document struct {
	ID              uuid.UUID      `json:"id" db:"id"`
	Filename        string         `json:"filename" db:"filename"`
	StoragePath     string         `json:"storage_path" db:"storage_path"`
	Status          DocumentStatus `json:"status" db:"status"`
	OwnerID         uuid.UUID      `json:"owner_id" db:"owner_id"`
	SizeBytes       int64          `json:"size_bytes" db:"size_bytes"`
	ErrorMessage    *string        `json:"error_message,omitempty" db:"error_message"`
	ConfidenceScore *float32       `json:"confidence_score,omitempty" db:"confidence_score"`
	ProcessedAt     *time.Time     `json:"processed_at,omitempty" db:"processed_at"`
	CreatedAt       time.Time      `json:"created_at" db:"created_at"`
	UpdatedAt       time.Time      `json:"updated_at" db:"updated_at"`
}
