package queue

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/mikobrno/pdfkar/internal/model"
	"github.com/mikobrno/pdfkar/pkg/errors"
)

// memStore is an in-memory JobStore with the same atomicity contract as
// the MySQL implementation: every operation is a single critical section
// and resolution updates are guarded on the expected current state.
type memStore struct {
	mu     sync.Mutex
	jobs   map[uuid.UUID]*model.Job
	order  []uuid.UUID
	docs   map[uuid.UUID]*model.Document
	fields map[uuid.UUID][]model.FieldInput
}

func newMemStore() *memStore {
	return &memStore{
		jobs:   make(map[uuid.UUID]*model.Job),
		docs:   make(map[uuid.UUID]*model.Document),
		fields: make(map[uuid.UUID][]model.FieldInput),
	}
}

func (s *memStore) addDocument(doc *model.Document) {
	s.mu.Lock()
	defer s.mu.Unlock()
	copied := *doc
	s.docs[doc.ID] = &copied
}

func (s *memStore) document(id uuid.UUID) model.Document {
	s.mu.Lock()
	defer s.mu.Unlock()
	return *s.docs[id]
}

func (s *memStore) Enqueue(_ context.Context, job *model.Job) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	now := time.Now().UTC()
	job.Status = model.JobStatusPending
	job.Attempts = 0
	job.CreatedAt, job.UpdatedAt = now, now
	if job.ScheduledFor.IsZero() {
		job.ScheduledFor = now
	}
	copied := *job
	s.jobs[job.ID] = &copied
	s.order = append(s.order, job.ID)
	return nil
}

func (s *memStore) Get(_ context.Context, id uuid.UUID) (*model.Job, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	job, ok := s.jobs[id]
	if !ok {
		return nil, errors.ErrJobNotFound
	}
	copied := *job
	return &copied, nil
}

func (s *memStore) ClaimNext(_ context.Context, now, leaseUntil time.Time) (*model.Job, *model.Document, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, id := range s.order {
		job := s.jobs[id]
		if job.Status != model.JobStatusPending || job.ScheduledFor.After(now) || job.Attempts >= job.MaxAttempts {
			continue
		}
		job.Status = model.JobStatusProcessing
		started, lease := now, leaseUntil
		job.StartedAt, job.LeaseUntil = &started, &lease
		job.UpdatedAt = now

		doc := s.docs[job.DocumentID]
		if doc.Status == model.DocumentStatusQueued {
			doc.Status = model.DocumentStatusProcessing
			doc.UpdatedAt = now
		}
		jobCopy, docCopy := *job, *doc
		return &jobCopy, &docCopy, nil
	}
	return nil, nil, nil
}

func (s *memStore) Complete(_ context.Context, jobID, documentID uuid.UUID, fields []model.FieldInput, confidence float32, now time.Time) (*model.Document, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	job, ok := s.jobs[jobID]
	if !ok || job.Status != model.JobStatusProcessing {
		return nil, errors.NewInvariantViolation("job", jobID.String(), "completing a job not held as processing")
	}
	doc, ok := s.docs[documentID]
	if !ok || doc.Status != model.DocumentStatusProcessing {
		return nil, errors.NewInvariantViolation("document", documentID.String(), "completion of a document not in processing")
	}

	job.Status = model.JobStatusCompleted
	finished := now
	job.CompletedAt = &finished
	job.LeaseUntil = nil
	job.UpdatedAt = now

	s.fields[documentID] = append(s.fields[documentID], fields...)

	doc.Status = model.DocumentStatusAwaitingReview
	doc.ConfidenceScore = &confidence
	doc.UpdatedAt = now

	copied := *doc
	return &copied, nil
}

func (s *memStore) Requeue(_ context.Context, jobID uuid.UUID, attempts int, message string, scheduledFor, now time.Time) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	job, ok := s.jobs[jobID]
	if !ok || job.Status != model.JobStatusProcessing || job.Attempts != attempts-1 {
		return errors.NewInvariantViolation("job", jobID.String(), "requeueing a job not held as processing")
	}
	job.Status = model.JobStatusPending
	job.Attempts = attempts
	job.ErrorMessage = &message
	job.ScheduledFor = scheduledFor
	job.StartedAt = nil
	job.LeaseUntil = nil
	job.UpdatedAt = now
	return nil
}

func (s *memStore) FailTerminal(_ context.Context, jobID, documentID uuid.UUID, attempts int, message string, now time.Time) (*model.Document, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	job, ok := s.jobs[jobID]
	if !ok || job.Status != model.JobStatusProcessing || job.Attempts != attempts-1 {
		return nil, errors.NewInvariantViolation("job", jobID.String(), "dead-lettering a job not held as processing")
	}
	doc, ok := s.docs[documentID]
	if !ok || doc.Status != model.DocumentStatusProcessing {
		return nil, errors.NewInvariantViolation("document", documentID.String(), "failing a document not in processing")
	}

	job.Status = model.JobStatusFailed
	job.Attempts = attempts
	job.ErrorMessage = &message
	finished := now
	job.CompletedAt = &finished
	job.LeaseUntil = nil
	job.UpdatedAt = now

	doc.Status = model.DocumentStatusFailed
	doc.ErrorMessage = &message
	processed := now
	doc.ProcessedAt = &processed
	doc.UpdatedAt = now

	copied := *doc
	return &copied, nil
}

func (s *memStore) ExpiredLeases(_ context.Context, now time.Time, limit int) ([]model.Job, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var expired []model.Job
	for _, id := range s.order {
		job := s.jobs[id]
		if job.Status != model.JobStatusProcessing || job.LeaseUntil == nil || job.LeaseUntil.After(now) {
			continue
		}
		expired = append(expired, *job)
		if len(expired) >= limit {
			break
		}
	}
	return expired, nil
}
