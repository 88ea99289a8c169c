package review

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"

	"github.com/mikobrno/pdfkar/internal/model"
	"github.com/mikobrno/pdfkar/pkg/errors"
)

// fakeExtraction holds one document's fields and mimics the repository's
// awaiting_review guard.
type fakeExtraction struct {
	mu       sync.Mutex
	doc      model.Document
	fields   []model.ExtractedField
	feedback []model.FeedbackRecord
}

func (f *fakeExtraction) FieldsByDocument(_ context.Context, documentID uuid.UUID) ([]model.ExtractedField, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if documentID != f.doc.ID {
		return nil, errors.ErrDocumentNotFound
	}
	return append([]model.ExtractedField(nil), f.fields...), nil
}

func (f *fakeExtraction) FeedbackByDocument(_ context.Context, documentID uuid.UUID) ([]model.FeedbackRecord, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if documentID != f.doc.ID {
		return nil, errors.ErrDocumentNotFound
	}
	return append([]model.FeedbackRecord(nil), f.feedback...), nil
}

func (f *fakeExtraction) RecordReview(_ context.Context, documentID uuid.UUID, records []model.FeedbackRecord, now time.Time) (*model.Document, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if documentID != f.doc.ID {
		return nil, errors.ErrDocumentNotFound
	}
	if f.doc.Status != model.DocumentStatusAwaitingReview {
		return nil, errors.NewInvariantViolation("document", documentID.String(), "review of a document not awaiting review")
	}
	f.doc.Status = model.DocumentStatusCompleted
	processed := now
	f.doc.ProcessedAt = &processed
	f.feedback = append(f.feedback, records...)
	copied := f.doc
	return &copied, nil
}

func newFakeExtraction() *fakeExtraction {
	docID := uuid.New()
	return &fakeExtraction{
		doc: model.Document{
			ID:       docID,
			Filename: "lease-agreement.pdf",
			Status:   model.DocumentStatusAwaitingReview,
			OwnerID:  uuid.New(),
		},
		fields: []model.ExtractedField{
			{ID: uuid.New(), DocumentID: docID, FieldName: "contract_number", FieldValue: "CN-4471", ConfidenceScore: 0.97},
			{ID: uuid.New(), DocumentID: docID, FieldName: "tenant_name", FieldValue: "Acme s.r.o.", ConfidenceScore: 0.74},
			{ID: uuid.New(), DocumentID: docID, FieldName: "monthly_rent", FieldValue: "12500", ConfidenceScore: 0.81},
		},
	}
}

func TestAcceptReviewWithoutCorrections(t *testing.T) {
	repo := newFakeExtraction()
	svc := NewService(repo, nil)

	result, err := svc.AcceptReview(context.Background(), repo.doc.ID, nil, uuid.New())
	if err != nil {
		t.Fatalf("AcceptReview: %v", err)
	}
	if result.ChangedFields != 0 {
		t.Fatalf("changed_fields = %d, want 0", result.ChangedFields)
	}
	if len(repo.feedback) != 0 {
		t.Fatalf("feedback rows = %d, want none", len(repo.feedback))
	}
	if repo.doc.Status != model.DocumentStatusCompleted {
		t.Fatalf("document status = %s, want completed", repo.doc.Status)
	}
	if repo.doc.ProcessedAt == nil {
		t.Fatalf("processed_at not set on completion")
	}
}

func TestAcceptReviewRecordsOnlyChangedValues(t *testing.T) {
	repo := newFakeExtraction()
	svc := NewService(repo, nil)
	reviewerID := uuid.New()
	reviewedAt := time.Date(2026, 4, 2, 9, 30, 0, 0, time.UTC)
	svc.now = func() time.Time { return reviewedAt }

	corrections := map[string]string{
		"contract_number": "CN-4471",        // unchanged, no record
		"tenant_name":     "Acme Group a.s.", // corrected
		"building_code":   "B-7",            // not an extracted field, ignored
	}
	result, err := svc.AcceptReview(context.Background(), repo.doc.ID, corrections, reviewerID)
	if err != nil {
		t.Fatalf("AcceptReview: %v", err)
	}
	if result.ChangedFields != 1 {
		t.Fatalf("changed_fields = %d, want 1", result.ChangedFields)
	}
	if !result.ReviewedAt.Equal(reviewedAt) {
		t.Fatalf("reviewed_at = %v, want %v", result.ReviewedAt, reviewedAt)
	}

	if len(repo.feedback) != 1 {
		t.Fatalf("feedback rows = %d, want 1", len(repo.feedback))
	}
	rec := repo.feedback[0]
	if rec.FieldName != "tenant_name" {
		t.Fatalf("field_name = %q, want tenant_name", rec.FieldName)
	}
	if rec.AIValue != "Acme s.r.o." || rec.HumanValue != "Acme Group a.s." {
		t.Fatalf("recorded %q -> %q, want original and corrected values", rec.AIValue, rec.HumanValue)
	}
	if rec.ReviewerID != reviewerID {
		t.Fatalf("reviewer_id = %s, want %s", rec.ReviewerID, reviewerID)
	}
}

func TestAcceptReviewRejectsDoubleReview(t *testing.T) {
	repo := newFakeExtraction()
	svc := NewService(repo, nil)

	if _, err := svc.AcceptReview(context.Background(), repo.doc.ID, nil, uuid.New()); err != nil {
		t.Fatalf("first AcceptReview: %v", err)
	}
	_, err := svc.AcceptReview(context.Background(), repo.doc.ID,
		map[string]string{"tenant_name": "changed late"}, uuid.New())
	if !errors.IsInvariantViolation(err) {
		t.Fatalf("second AcceptReview returned %v, want invariant violation", err)
	}
	if len(repo.feedback) != 0 {
		t.Fatalf("rejected review still wrote %d feedback rows", len(repo.feedback))
	}
}

func TestAcceptReviewUnknownDocument(t *testing.T) {
	repo := newFakeExtraction()
	svc := NewService(repo, nil)

	if _, err := svc.AcceptReview(context.Background(), uuid.New(), nil, uuid.New()); err != errors.ErrDocumentNotFound {
		t.Fatalf("err = %v, want ErrDocumentNotFound", err)
	}
}

func TestAcceptReviewPublishesCompletedEvent(t *testing.T) {
	repo := newFakeExtraction()
	events := make(chan model.DocumentEvent, 1)
	svc := NewService(repo, publisherFunc(func(_ context.Context, _ uuid.UUID, event model.DocumentEvent) error {
		events <- event
		return nil
	}))

	if _, err := svc.AcceptReview(context.Background(), repo.doc.ID, nil, uuid.New()); err != nil {
		t.Fatalf("AcceptReview: %v", err)
	}
	select {
	case event := <-events:
		if event.DocumentID != repo.doc.ID || event.Status != model.DocumentStatusCompleted {
			t.Fatalf("unexpected event %+v", event)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("timed out waiting for completed event")
	}
}

type publisherFunc func(ctx context.Context, ownerID uuid.UUID, event model.DocumentEvent) error

func (f publisherFunc) Publish(ctx context.Context, ownerID uuid.UUID, event model.DocumentEvent) error {
	return f(ctx, ownerID, event)
}
