// Package ingest accepts uploaded files and hands them to the pipeline:
// store the bytes, create the document, enqueue its processing job. Files
// in a batch succeed or fail independently.
package ingest

import (
	"context"
	"encoding/json"
	"fmt"
	"io"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/mikobrno/pdfkar/internal/config"
	"github.com/mikobrno/pdfkar/internal/db"
	"github.com/mikobrno/pdfkar/internal/logger"
	"github.com/mikobrno/pdfkar/internal/model"
	"github.com/mikobrno/pdfkar/internal/storage"
	"github.com/mikobrno/pdfkar/pkg/errors"
)

type FileUpload struct {
	Filename       string
	SizeBytes      int64
	Content        io.Reader
	BuildingID     *uuid.UUID
	RevisionTypeID *uuid.UUID
}

type Service struct {
	documents   db.DocumentRepository
	store       storage.Storage
	maxAttempts int
	log         zerolog.Logger
}

func NewService(documents db.DocumentRepository, store storage.Storage, cfg *config.Config) *Service {
	return &Service{
		documents:   documents,
		store:       store,
		maxAttempts: cfg.Queue.MaxAttempts,
		log:         logger.Get(),
	}
}

// UploadBatch processes each file independently and reports per-file
// outcomes; one failure never aborts the rest of the batch.
func (s *Service) UploadBatch(ctx context.Context, ownerID uuid.UUID, files []FileUpload) []model.UploadResult {
	results := make([]model.UploadResult, 0, len(files))
	for i := range files {
		result := model.UploadResult{Filename: files[i].Filename}
		docID, jobID, err := s.uploadOne(ctx, ownerID, &files[i])
		if err != nil {
			s.log.Error().Err(err).Str("filename", files[i].Filename).Msg("File upload failed")
			result.Error = err.Error()
		} else {
			result.DocumentID = &docID
			result.JobID = &jobID
		}
		results = append(results, result)
	}
	return results
}

func (s *Service) uploadOne(ctx context.Context, ownerID uuid.UUID, file *FileUpload) (uuid.UUID, uuid.UUID, error) {
	docID := uuid.New()
	key := fmt.Sprintf("documents/%s/%s", docID, file.Filename)

	// Bytes go to storage first: if this fails no document exists at all.
	if err := s.store.Put(ctx, key, file.Content); err != nil {
		return uuid.Nil, uuid.Nil, errors.NewUploadError(file.Filename, err)
	}

	payload, err := json.Marshal(model.ProcessingPayload{
		FilePath:       key,
		Filename:       file.Filename,
		BuildingID:     file.BuildingID,
		RevisionTypeID: file.RevisionTypeID,
	})
	if err != nil {
		return uuid.Nil, uuid.Nil, errors.NewUploadError(file.Filename, err)
	}

	doc := &model.Document{
		ID:          docID,
		Filename:    file.Filename,
		StoragePath: key,
		OwnerID:     ownerID,
		SizeBytes:   file.SizeBytes,
	}
	job := &model.Job{
		ID:          uuid.New(),
		DocumentID:  docID,
		Type:        model.JobTypeDocumentProcessing,
		Payload:     payload,
		MaxAttempts: s.maxAttempts,
	}

	// Document and job are created in one transaction, so a failure here
	// leaves neither behind.
	if err := s.documents.CreateWithJob(ctx, doc, job); err != nil {
		return uuid.Nil, uuid.Nil, errors.NewUploadError(file.Filename, err)
	}
	return docID, job.ID, nil
}
