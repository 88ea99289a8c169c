// Package extract is the boundary to the external AI processor. The
// pipeline treats inference as opaque: it hands over a fetchable file URL
// plus the active prompt and gets structured fields back.
package extract

import (
	"context"

	"github.com/mikobrno/pdfkar/internal/model"
)

// Request is everything the processor needs for one document.
type Request struct {
	FileURL        string  `json:"file_url"`
	Filename       string  `json:"filename"`
	Prompt         string  `json:"prompt"`
	Parameters     any     `json:"parameters,omitempty"`
	BuildingID     *string `json:"building_id,omitempty"`
	RevisionTypeID *string `json:"revision_type_id,omitempty"`
}

// Result is the processor's structured answer, already validated against
// the wire schema.
type Result struct {
	Fields     []model.FieldInput `json:"fields"`
	Confidence float32            `json:"confidence"`
}

type Processor interface {
	Process(ctx context.Context, req Request) (*Result, error)
}
