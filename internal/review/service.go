// Package review reconciles machine output with human corrections. Each
// accepted review diffs the reviewer's values against the stored fields,
// records one feedback row per mismatch and drives the document to its
// terminal completed state.
package review

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/mikobrno/pdfkar/internal/db"
	"github.com/mikobrno/pdfkar/internal/logger"
	"github.com/mikobrno/pdfkar/internal/model"
)

// Publisher matches the queue's event publisher; the review loop emits
// the terminal completed event the same fire-and-forget way.
type Publisher interface {
	Publish(ctx context.Context, ownerID uuid.UUID, event model.DocumentEvent) error
}

type Service struct {
	extraction db.ExtractionRepository
	events     Publisher
	now        func() time.Time
	log        zerolog.Logger
}

func NewService(extraction db.ExtractionRepository, events Publisher) *Service {
	return &Service{
		extraction: extraction,
		events:     events,
		now:        func() time.Time { return time.Now().UTC() },
		log:        logger.Get(),
	}
}

// AcceptReview applies a reviewer's corrections to a document awaiting
// review. Corrections equal to the stored value produce no feedback
// record; re-reviewing an already completed document is rejected with an
// invariant violation, never silently re-processed.
func (s *Service) AcceptReview(ctx context.Context, documentID uuid.UUID, corrected map[string]string, reviewerID uuid.UUID) (*model.ReviewResult, error) {
	fields, err := s.extraction.FieldsByDocument(ctx, documentID)
	if err != nil {
		return nil, err
	}

	now := s.now()
	var records []model.FeedbackRecord
	for _, field := range fields {
		humanValue, ok := corrected[field.FieldName]
		if !ok || humanValue == field.FieldValue {
			continue
		}
		records = append(records, model.FeedbackRecord{
			ID:         uuid.New(),
			DocumentID: documentID,
			FieldName:  field.FieldName,
			AIValue:    field.FieldValue,
			HumanValue: humanValue,
			ReviewerID: reviewerID,
			CreatedAt:  now,
		})
	}

	// The awaiting_review precondition is enforced inside this call, in
	// the same transaction that inserts the feedback rows.
	doc, err := s.extraction.RecordReview(ctx, documentID, records, now)
	if err != nil {
		return nil, err
	}

	s.log.Info().
		Str("document_id", documentID.String()).
		Str("reviewer_id", reviewerID.String()).
		Int("changed_fields", len(records)).
		Msg("Review accepted")

	s.publish(doc)
	return &model.ReviewResult{
		DocumentID:    documentID,
		ChangedFields: len(records),
		ReviewedAt:    now,
	}, nil
}

func (s *Service) publish(doc *model.Document) {
	if s.events == nil || doc == nil {
		return
	}
	event := model.DocumentEvent{
		DocumentID: doc.ID,
		Status:     doc.Status,
		Filename:   doc.Filename,
	}
	ownerID := doc.OwnerID
	go func() {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := s.events.Publish(ctx, ownerID, event); err != nil {
			s.log.Debug().Err(err).Str("document_id", event.DocumentID.String()).Msg("Event publish dropped")
		}
	}()
}
