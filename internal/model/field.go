package model

import (
	"time"

	"github.com/google/uuid"
)

// BoundingBox locates an extracted value on the source page. Coordinates
// are fractions of page dimensions.
type BoundingBox struct {
	Page   int     `json:"page"`
	Left   float64 `json:"left"`
	Top    float64 `json:"top"`
	Width  float64 `json:"width"`
	Height float64 `json:"height"`
}

// ExtractedField is one machine-produced datum. Rows are immutable once
// written; human corrections go to feedback_records, never back here.
type ExtractedField struct {
	ID              uuid.UUID   `json:"id" db:"id"`
	DocumentID      uuid.UUID   `json:"document_id" db:"document_id"`
	FieldName       string      `json:"field_name" db:"field_name"`
	FieldValue      string      `json:"field_value" db:"field_value"`
	ConfidenceScore float32     `json:"confidence_score" db:"confidence_score"`
	BoundingBox     BoundingBox `json:"bounding_box" db:"bounding_box"`
	CreatedAt       time.Time   `json:"created_at" db:"created_at"`
}

// FieldInput is a field as returned by the processor, before it has an id.
type FieldInput struct {
	FieldName       string      `json:"field_name"`
	FieldValue      string      `json:"field_value"`
	ConfidenceScore float32     `json:"confidence_score"`
	BoundingBox     BoundingBox `json:"bounding_box"`
}

// FeedbackRecord is one human correction event. Created only when the
// reviewer's value differs from the stored one.
type FeedbackRecord struct {
	ID         uuid.UUID `json:"id" db:"id"`
	DocumentID uuid.UUID `json:"document_id" db:"document_id"`
	FieldName  string    `json:"field_name" db:"field_name"`
	AIValue    string    `json:"ai_value" db:"ai_value"`
	HumanValue string    `json:"human_value" db:"human_value"`
	ReviewerID uuid.UUID `json:"reviewer_id" db:"reviewer_id"`
	CreatedAt  time.Time `json:"created_at" db:"created_at"`
}
