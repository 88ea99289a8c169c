// Package export renders a document's extraction results and review
// corrections as an xlsx workbook.
package export

import (
	"bytes"
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"github.com/xuri/excelize/v2"

	"github.com/mikobrno/pdfkar/internal/db"
	"github.com/mikobrno/pdfkar/internal/logger"
)

type Service struct {
	documents  db.DocumentRepository
	extraction db.ExtractionRepository
	log        zerolog.Logger
}

func NewService(documents db.DocumentRepository, extraction db.ExtractionRepository) *Service {
	return &Service{
		documents:  documents,
		extraction: extraction,
		log:        logger.Get(),
	}
}

const (
	fieldsSheet      = "Extracted Fields"
	correctionsSheet = "Corrections"
)

// ExportDocument builds the workbook and returns its bytes.
func (s *Service) ExportDocument(ctx context.Context, documentID uuid.UUID) ([]byte, string, error) {
	doc, err := s.documents.Get(ctx, documentID)
	if err != nil {
		return nil, "", err
	}
	fields, err := s.extraction.FieldsByDocument(ctx, documentID)
	if err != nil {
		return nil, "", err
	}
	feedback, err := s.extraction.FeedbackByDocument(ctx, documentID)
	if err != nil {
		return nil, "", err
	}

	f := excelize.NewFile()
	defer f.Close()

	f.SetSheetName(f.GetSheetName(0), fieldsSheet)
	headers := []string{"Field", "Value", "Confidence", "Page", "Left", "Top", "Width", "Height"}
	for i, h := range headers {
		cell, _ := excelize.CoordinatesToCellName(i+1, 1)
		f.SetCellValue(fieldsSheet, cell, h)
	}
	for i, field := range fields {
		row := i + 2
		values := []any{
			field.FieldName, field.FieldValue, field.ConfidenceScore,
			field.BoundingBox.Page, field.BoundingBox.Left, field.BoundingBox.Top,
			field.BoundingBox.Width, field.BoundingBox.Height,
		}
		for j, v := range values {
			cell, _ := excelize.CoordinatesToCellName(j+1, row)
			f.SetCellValue(fieldsSheet, cell, v)
		}
	}

	if _, err := f.NewSheet(correctionsSheet); err != nil {
		return nil, "", err
	}
	corrHeaders := []string{"Field", "AI Value", "Human Value", "Reviewer", "Corrected At"}
	for i, h := range corrHeaders {
		cell, _ := excelize.CoordinatesToCellName(i+1, 1)
		f.SetCellValue(correctionsSheet, cell, h)
	}
	for i, rec := range feedback {
		row := i + 2
		values := []any{
			rec.FieldName, rec.AIValue, rec.HumanValue,
			rec.ReviewerID.String(), rec.CreatedAt.Format(time.RFC3339),
		}
		for j, v := range values {
			cell, _ := excelize.CoordinatesToCellName(j+1, row)
			f.SetCellValue(correctionsSheet, cell, v)
		}
	}

	var buf bytes.Buffer
	if err := f.Write(&buf); err != nil {
		return nil, "", err
	}

	s.log.Info().
		Str("document_id", documentID.String()).
		Int("field_count", len(fields)).
		Int("correction_count", len(feedback)).
		Msg("Document exported")

	filename := fmt.Sprintf("%s-extraction.xlsx", doc.ID)
	return buf.Bytes(), filename, nil
}
