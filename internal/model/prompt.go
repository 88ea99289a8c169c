package model

import (
	"encoding/json"
	"time"

	"github.com/google/uuid"
)

type PromptStatus string

const (
	PromptStatusDraft    PromptStatus = "draft"
	PromptStatusActive   PromptStatus = "active"
	PromptStatusArchived PromptStatus = "archived"
)

// PromptVersion is one version of a named prompt consumed by the external
// processor. At most one version per name is active at any time.
type PromptVersion struct {
	ID         uuid.UUID       `json:"id" db:"id"`
	Name       string          `json:"name" db:"name"`
	Version    int             `json:"version" db:"version"`
	Text       string          `json:"text" db:"text"`
	Parameters json.RawMessage `json:"parameters,omitempty" db:"parameters"`
	Status     PromptStatus    `json:"status" db:"status"`
	CreatedAt  time.Time       `json:"created_at" db:"created_at"`
	UpdatedAt  time.Time       `json:"updated_at" db:"updated_at"`
}
