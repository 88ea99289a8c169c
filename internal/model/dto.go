package model

import (
	"encoding/json"
	"time"

	"github.com/google/uuid"
)

// DocumentEvent is what the notifier pushes to subscribed owners on every
// lifecycle transition.
type DocumentEvent struct {
	DocumentID uuid.UUID      `json:"document_id"`
	Status     DocumentStatus `json:"status"`
	Filename   string         `json:"filename"`
}

// UploadResult reports the outcome for one file of a batch upload. Files
// succeed or fail independently.
type UploadResult struct {
	Filename   string     `json:"filename"`
	DocumentID *uuid.UUID `json:"document_id,omitempty"`
	JobID      *uuid.UUID `json:"job_id,omitempty"`
	Error      string     `json:"error,omitempty"`
}

type ReviewRequest struct {
	CorrectedFields map[string]string `json:"corrected_fields" binding:"required"`
}

type ReviewResult struct {
	DocumentID    uuid.UUID `json:"document_id"`
	ChangedFields int       `json:"changed_fields"`
	ReviewedAt    time.Time `json:"reviewed_at"`
}

type CreatePromptRequest struct {
	Name       string          `json:"name" binding:"required"`
	Text       string          `json:"text" binding:"required"`
	Parameters json.RawMessage `json:"parameters"`
}
