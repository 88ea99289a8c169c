package worker

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/mikobrno/pdfkar/internal/config"
	"github.com/mikobrno/pdfkar/internal/db"
	"github.com/mikobrno/pdfkar/internal/extract"
	"github.com/mikobrno/pdfkar/internal/model"
	"github.com/mikobrno/pdfkar/internal/storage"
)

// DocumentHandler runs document_processing jobs: resolve the active
// prompt, presign the stored file and call the external processor.
type DocumentHandler struct {
	prompts    db.PromptRepository
	store      storage.Storage
	processor  extract.Processor
	promptName string
}

func NewDocumentHandler(prompts db.PromptRepository, store storage.Storage, processor extract.Processor, cfg *config.Config) *DocumentHandler {
	return &DocumentHandler{
		prompts:    prompts,
		store:      store,
		processor:  processor,
		promptName: cfg.Processor.PromptName,
	}
}

func (h *DocumentHandler) Handle(ctx context.Context, job *model.Job, doc *model.Document) (*extract.Result, error) {
	var payload model.ProcessingPayload
	if err := json.Unmarshal(job.Payload, &payload); err != nil {
		return nil, fmt.Errorf("malformed job payload: %w", err)
	}

	prompt, err := h.prompts.ActiveVersion(ctx, h.promptName)
	if err != nil {
		return nil, fmt.Errorf("resolving prompt %q: %w", h.promptName, err)
	}

	fileURL, err := h.store.URL(ctx, payload.FilePath)
	if err != nil {
		return nil, fmt.Errorf("presigning %q: %w", payload.FilePath, err)
	}

	req := extract.Request{
		FileURL:  fileURL,
		Filename: payload.Filename,
		Prompt:   prompt.Text,
	}
	if len(prompt.Parameters) > 0 {
		var params any
		if err := json.Unmarshal(prompt.Parameters, &params); err == nil {
			req.Parameters = params
		}
	}
	if payload.BuildingID != nil {
		id := payload.BuildingID.String()
		req.BuildingID = &id
	}
	if payload.RevisionTypeID != nil {
		id := payload.RevisionTypeID.String()
		req.RevisionTypeID = &id
	}

	return h.processor.Process(ctx, req)
}
