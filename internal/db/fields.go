package db

import (
	"context"
	"database/sql"
	"encoding/json"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/mikobrno/pdfkar/internal/lifecycle"
	"github.com/mikobrno/pdfkar/internal/model"
	"github.com/mikobrno/pdfkar/pkg/errors"
)

type ExtractionRepository interface {
	FieldsByDocument(ctx context.Context, documentID uuid.UUID) ([]model.ExtractedField, error)
	FeedbackByDocument(ctx context.Context, documentID uuid.UUID) ([]model.FeedbackRecord, error)

	// RecordReview applies an accepted review in one transaction: the
	// document moves awaiting_review -> completed and one feedback row is
	// inserted per corrected field. A document in any other status makes
	// the whole call fail with an invariant violation.
	RecordReview(ctx context.Context, documentID uuid.UUID, records []model.FeedbackRecord, now time.Time) (*model.Document, error)
}

type extractionRepo struct {
	db  *sql.DB
	log zerolog.Logger
}

func NewExtractionRepository(db *sql.DB, log zerolog.Logger) ExtractionRepository {
	return &extractionRepo{db: db, log: log}
}

func (r *extractionRepo) FieldsByDocument(ctx context.Context, documentID uuid.UUID) ([]model.ExtractedField, error) {
	rows, err := r.db.QueryContext(ctx, `
SELECT id, document_id, field_name, field_value, confidence_score, bounding_box, created_at
FROM extracted_fields WHERE document_id = ? ORDER BY field_name ASC`,
		documentID.String())
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var fields []model.ExtractedField
	for rows.Next() {
		var (
			f         model.ExtractedField
			id, docID string
			box       []byte
		)
		if err := rows.Scan(&id, &docID, &f.FieldName, &f.FieldValue,
			&f.ConfidenceScore, &box, &f.CreatedAt); err != nil {
			return nil, err
		}
		if f.ID, err = uuid.Parse(id); err != nil {
			return nil, err
		}
		if f.DocumentID, err = uuid.Parse(docID); err != nil {
			return nil, err
		}
		if err := json.Unmarshal(box, &f.BoundingBox); err != nil {
			return nil, err
		}
		fields = append(fields, f)
	}
	return fields, rows.Err()
}

func (r *extractionRepo) FeedbackByDocument(ctx context.Context, documentID uuid.UUID) ([]model.FeedbackRecord, error) {
	rows, err := r.db.QueryContext(ctx, `
SELECT id, document_id, field_name, ai_value, human_value, reviewer_id, created_at
FROM feedback_records WHERE document_id = ? ORDER BY created_at ASC`,
		documentID.String())
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var records []model.FeedbackRecord
	for rows.Next() {
		var (
			rec                   model.FeedbackRecord
			id, docID, reviewerID string
		)
		if err := rows.Scan(&id, &docID, &rec.FieldName, &rec.AIValue,
			&rec.HumanValue, &reviewerID, &rec.CreatedAt); err != nil {
			return nil, err
		}
		if rec.ID, err = uuid.Parse(id); err != nil {
			return nil, err
		}
		if rec.DocumentID, err = uuid.Parse(docID); err != nil {
			return nil, err
		}
		if rec.ReviewerID, err = uuid.Parse(reviewerID); err != nil {
			return nil, err
		}
		records = append(records, rec)
	}
	return records, rows.Err()
}

func (r *extractionRepo) RecordReview(ctx context.Context, documentID uuid.UUID, records []model.FeedbackRecord, now time.Time) (*model.Document, error) {
	var doc *model.Document
	err := inTx(ctx, r.db, func(tx *sql.Tx) error {
		from, to := lifecycle.Edge(lifecycle.EventReviewAccepted)
		res, err := tx.ExecContext(ctx, `
UPDATE documents SET status = ?, processed_at = ?, updated_at = ?
WHERE id = ? AND status = ?`,
			to, now, now, documentID.String(), from)
		if err != nil {
			return err
		}
		if n, _ := res.RowsAffected(); n != 1 {
			return errors.NewInvariantViolation("document", documentID.String(), "review of a document not awaiting review")
		}

		for _, rec := range records {
			if _, err := tx.ExecContext(ctx, `
INSERT INTO feedback_records (id, document_id, field_name, ai_value, human_value, reviewer_id, created_at)
VALUES (?, ?, ?, ?, ?, ?, ?)`,
				rec.ID.String(), rec.DocumentID.String(), rec.FieldName,
				rec.AIValue, rec.HumanValue, rec.ReviewerID.String(), rec.CreatedAt); err != nil {
				return err
			}
		}

		doc, err = scanDocument(tx.QueryRowContext(ctx,
			`SELECT `+documentColumns+` FROM documents WHERE id = ?`, documentID.String()))
		return err
	})
	if err != nil {
		return nil, err
	}
	return doc, nil
}
