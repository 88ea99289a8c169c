package worker

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"testing"

	"github.com/google/uuid"

	"github.com/mikobrno/pdfkar/internal/config"
	"github.com/mikobrno/pdfkar/internal/extract"
	"github.com/mikobrno/pdfkar/internal/model"
	"github.com/mikobrno/pdfkar/pkg/errors"
)

type fakePrompts struct {
	active    *model.PromptVersion
	activeErr error
}

func (f *fakePrompts) CreateVersion(_ context.Context, name, text string, parameters json.RawMessage) (*model.PromptVersion, error) {
	return nil, fmt.Errorf("not implemented")
}

func (f *fakePrompts) Activate(_ context.Context, id uuid.UUID, name string) (*model.PromptVersion, error) {
	return nil, fmt.Errorf("not implemented")
}

func (f *fakePrompts) ActiveVersion(_ context.Context, name string) (*model.PromptVersion, error) {
	if f.activeErr != nil {
		return nil, f.activeErr
	}
	return f.active, nil
}

func (f *fakePrompts) VersionsByName(_ context.Context, name string) ([]model.PromptVersion, error) {
	return nil, fmt.Errorf("not implemented")
}

type urlStorage struct{}

func (urlStorage) Put(_ context.Context, _ string, _ io.Reader) error { return nil }

func (urlStorage) URL(_ context.Context, key string) (string, error) {
	return "https://storage.test/" + key + "?sig=abc", nil
}

func (urlStorage) Exists(_ context.Context, _ string) (bool, error) { return true, nil }

func (urlStorage) Delete(_ context.Context, _ string) error { return nil }

type captureProcessor struct {
	req    extract.Request
	result *extract.Result
	err    error
}

func (p *captureProcessor) Process(_ context.Context, req extract.Request) (*extract.Result, error) {
	p.req = req
	return p.result, p.err
}

func handlerConfig() *config.Config {
	cfg := &config.Config{}
	cfg.Processor.PromptName = "document_extraction"
	return cfg
}

func processingJob(t *testing.T, payload model.ProcessingPayload) (*model.Job, *model.Document) {
	t.Helper()
	raw, err := json.Marshal(payload)
	if err != nil {
		t.Fatalf("marshal payload: %v", err)
	}
	docID := uuid.New()
	job := &model.Job{
		ID:         uuid.New(),
		DocumentID: docID,
		Type:       model.JobTypeDocumentProcessing,
		Payload:    raw,
		Status:     model.JobStatusProcessing,
	}
	doc := &model.Document{
		ID:       docID,
		Filename: payload.Filename,
		Status:   model.DocumentStatusProcessing,
	}
	return job, doc
}

func TestDocumentHandlerBuildsProcessorRequest(t *testing.T) {
	prompts := &fakePrompts{active: &model.PromptVersion{
		ID:         uuid.New(),
		Name:       "document_extraction",
		Version:    3,
		Text:       "Extract the revision fields.",
		Parameters: json.RawMessage(`{"temperature": 0.1}`),
		Status:     model.PromptStatusActive,
	}}
	processor := &captureProcessor{result: &extract.Result{Confidence: 0.8}}
	handler := NewDocumentHandler(prompts, urlStorage{}, processor, handlerConfig())

	buildingID := uuid.New()
	job, doc := processingJob(t, model.ProcessingPayload{
		FilePath:   "documents/abc/report.pdf",
		Filename:   "report.pdf",
		BuildingID: &buildingID,
	})

	result, err := handler.Handle(context.Background(), job, doc)
	if err != nil {
		t.Fatalf("Handle: %v", err)
	}
	if result.Confidence != 0.8 {
		t.Fatalf("confidence = %v, want processor result", result.Confidence)
	}

	req := processor.req
	if req.FileURL != "https://storage.test/documents/abc/report.pdf?sig=abc" {
		t.Fatalf("file_url = %q", req.FileURL)
	}
	if req.Filename != "report.pdf" {
		t.Fatalf("filename = %q", req.Filename)
	}
	if req.Prompt != "Extract the revision fields." {
		t.Fatalf("prompt = %q", req.Prompt)
	}
	params, ok := req.Parameters.(map[string]any)
	if !ok || params["temperature"] != 0.1 {
		t.Fatalf("parameters = %#v", req.Parameters)
	}
	if req.BuildingID == nil || *req.BuildingID != buildingID.String() {
		t.Fatalf("building_id = %v", req.BuildingID)
	}
	if req.RevisionTypeID != nil {
		t.Fatalf("revision_type_id should be absent")
	}
}

func TestDocumentHandlerMalformedPayload(t *testing.T) {
	handler := NewDocumentHandler(&fakePrompts{}, urlStorage{}, &captureProcessor{}, handlerConfig())
	job := &model.Job{
		ID:      uuid.New(),
		Type:    model.JobTypeDocumentProcessing,
		Payload: json.RawMessage(`{broken`),
	}
	if _, err := handler.Handle(context.Background(), job, &model.Document{}); err == nil {
		t.Fatalf("expected payload error")
	}
}

func TestDocumentHandlerNoActivePrompt(t *testing.T) {
	prompts := &fakePrompts{activeErr: errors.ErrNoActivePrompt}
	handler := NewDocumentHandler(prompts, urlStorage{}, &captureProcessor{}, handlerConfig())
	job, doc := processingJob(t, model.ProcessingPayload{
		FilePath: "documents/abc/report.pdf",
		Filename: "report.pdf",
	})
	if _, err := handler.Handle(context.Background(), job, doc); err == nil {
		t.Fatalf("expected prompt resolution error")
	}
}

func TestDocumentHandlerProcessorError(t *testing.T) {
	prompts := &fakePrompts{active: &model.PromptVersion{Text: "prompt"}}
	processor := &captureProcessor{err: fmt.Errorf("inference backend overloaded")}
	handler := NewDocumentHandler(prompts, urlStorage{}, processor, handlerConfig())
	job, doc := processingJob(t, model.ProcessingPayload{
		FilePath: "documents/abc/report.pdf",
		Filename: "report.pdf",
	})
	if _, err := handler.Handle(context.Background(), job, doc); err == nil {
		t.Fatalf("expected processor error to surface")
	}
}
