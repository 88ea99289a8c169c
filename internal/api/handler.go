package api

import (
	stderrors "errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/mikobrno/pdfkar/internal/config"
	"github.com/mikobrno/pdfkar/internal/db"
	"github.com/mikobrno/pdfkar/internal/export"
	"github.com/mikobrno/pdfkar/internal/ingest"
	"github.com/mikobrno/pdfkar/internal/logger"
	"github.com/mikobrno/pdfkar/internal/model"
	"github.com/mikobrno/pdfkar/internal/notify"
	"github.com/mikobrno/pdfkar/internal/review"
	"github.com/mikobrno/pdfkar/pkg/errors"
)

type Handler struct {
	documents     db.DocumentRepository
	extraction    db.ExtractionRepository
	prompts       db.PromptRepository
	ingestService *ingest.Service
	reviewService *review.Service
	exportService *export.Service
	notifier      *notify.Notifier
	cfg           *config.Config
	log           zerolog.Logger
}

func NewHandler(
	documents db.DocumentRepository,
	extraction db.ExtractionRepository,
	prompts db.PromptRepository,
	ingestService *ingest.Service,
	reviewService *review.Service,
	exportService *export.Service,
	notifier *notify.Notifier,
	cfg *config.Config,
) *Handler {
	return &Handler{
		documents:     documents,
		extraction:    extraction,
		prompts:       prompts,
		ingestService: ingestService,
		reviewService: reviewService,
		exportService: exportService,
		notifier:      notifier,
		cfg:           cfg,
		log:           logger.Get(),
	}
}

// UploadDocuments accepts a multipart batch. Files succeed or fail
// independently; the response reports each outcome.
func (h *Handler) UploadDocuments(c *gin.Context) {
	form, err := c.MultipartForm()
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid multipart form"})
		return
	}
	fileHeaders := form.File["files"]
	if len(fileHeaders) == 0 {
		c.JSON(http.StatusBadRequest, gin.H{"error": "No files in request"})
		return
	}

	buildingID := parseOptionalUUID(c.PostForm("building_id"))
	revisionTypeID := parseOptionalUUID(c.PostForm("revision_type_id"))

	var files []ingest.FileUpload
	for _, fh := range fileHeaders {
		f, err := fh.Open()
		if err != nil {
			files = append(files, ingest.FileUpload{
				Filename: fh.Filename,
				Content:  failingReader{err: err},
			})
			continue
		}
		defer f.Close()
		files = append(files, ingest.FileUpload{
			Filename:       fh.Filename,
			SizeBytes:      fh.Size,
			Content:        f,
			BuildingID:     buildingID,
			RevisionTypeID: revisionTypeID,
		})
	}

	results := h.ingestService.UploadBatch(c.Request.Context(), currentUserID(c), files)
	c.JSON(http.StatusOK, gin.H{"results": results})
}

func (h *Handler) ListDocuments(c *gin.Context) {
	docs, err := h.documents.ListByOwner(c.Request.Context(), currentUserID(c))
	if err != nil {
		h.respondError(c, err)
		return
	}
	if docs == nil {
		docs = []model.Document{}
	}
	c.JSON(http.StatusOK, gin.H{"documents": docs})
}

func (h *Handler) GetDocument(c *gin.Context) {
	doc, ok := h.loadDocument(c)
	if !ok {
		return
	}
	c.JSON(http.StatusOK, doc)
}

func (h *Handler) GetDocumentFields(c *gin.Context) {
	doc, ok := h.loadDocument(c)
	if !ok {
		return
	}
	fields, err := h.extraction.FieldsByDocument(c.Request.Context(), doc.ID)
	if err != nil {
		h.respondError(c, err)
		return
	}
	if fields == nil {
		fields = []model.ExtractedField{}
	}
	c.JSON(http.StatusOK, gin.H{"document_id": doc.ID, "fields": fields})
}

func (h *Handler) SubmitReview(c *gin.Context) {
	if role := currentUserRole(c); role != RoleReviewer && role != RoleAdmin {
		c.JSON(http.StatusForbidden, gin.H{"error": "Review requires the reviewer role"})
		return
	}

	docID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid document ID"})
		return
	}

	var req model.ReviewRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request body"})
		return
	}

	result, err := h.reviewService.AcceptReview(c.Request.Context(), docID, req.CorrectedFields, currentUserID(c))
	if err != nil {
		h.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, result)
}

func (h *Handler) ExportDocument(c *gin.Context) {
	doc, ok := h.loadDocument(c)
	if !ok {
		return
	}
	data, filename, err := h.exportService.ExportDocument(c.Request.Context(), doc.ID)
	if err != nil {
		h.respondError(c, err)
		return
	}
	c.Header("Content-Disposition", `attachment; filename="`+filename+`"`)
	c.Data(http.StatusOK, "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet", data)
}

func (h *Handler) CreatePrompt(c *gin.Context) {
	if currentUserRole(c) != RoleAdmin {
		c.JSON(http.StatusForbidden, gin.H{"error": "Prompt administration requires the admin role"})
		return
	}

	var req model.CreatePromptRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request body"})
		return
	}

	version, err := h.prompts.CreateVersion(c.Request.Context(), req.Name, req.Text, req.Parameters)
	if err != nil {
		h.respondError(c, err)
		return
	}
	c.JSON(http.StatusCreated, version)
}

func (h *Handler) ActivatePrompt(c *gin.Context) {
	if currentUserRole(c) != RoleAdmin {
		c.JSON(http.StatusForbidden, gin.H{"error": "Prompt administration requires the admin role"})
		return
	}

	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid prompt version ID"})
		return
	}
	name := c.Query("name")
	if name == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Missing name parameter"})
		return
	}

	version, err := h.prompts.Activate(c.Request.Context(), id, name)
	if err != nil {
		h.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, version)
}

func (h *Handler) ListPromptVersions(c *gin.Context) {
	name := c.Query("name")
	if name == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Missing name parameter"})
		return
	}
	versions, err := h.prompts.VersionsByName(c.Request.Context(), name)
	if err != nil {
		h.respondError(c, err)
		return
	}
	if versions == nil {
		versions = []model.PromptVersion{}
	}
	c.JSON(http.StatusOK, gin.H{"versions": versions})
}

func (h *Handler) HealthCheck(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"status":  "healthy",
		"service": h.cfg.App.Name,
		"version": h.cfg.App.Version,
	})
}

// loadDocument fetches the :id document and enforces owner visibility.
func (h *Handler) loadDocument(c *gin.Context) (*model.Document, bool) {
	docID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid document ID"})
		return nil, false
	}
	doc, err := h.documents.Get(c.Request.Context(), docID)
	if err != nil {
		h.respondError(c, err)
		return nil, false
	}
	if role := currentUserRole(c); role == RoleOwner && doc.OwnerID != currentUserID(c) {
		c.JSON(http.StatusForbidden, gin.H{"error": "Document belongs to another user"})
		return nil, false
	}
	return doc, true
}

func (h *Handler) respondError(c *gin.Context, err error) {
	switch {
	case errors.IsInvariantViolation(err):
		c.JSON(http.StatusConflict, gin.H{"error": err.Error()})
	case stderrors.Is(err, errors.ErrDocumentNotFound),
		stderrors.Is(err, errors.ErrJobNotFound),
		stderrors.Is(err, errors.ErrPromptNotFound):
		c.JSON(http.StatusNotFound, gin.H{"error": err.Error()})
	case stderrors.Is(err, errors.ErrForbidden):
		c.JSON(http.StatusForbidden, gin.H{"error": err.Error()})
	default:
		h.log.Error().Err(err).Str("path", c.Request.URL.Path).Msg("Request failed")
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Internal server error"})
	}
}

func parseOptionalUUID(s string) *uuid.UUID {
	if s == "" {
		return nil
	}
	id, err := uuid.Parse(s)
	if err != nil {
		return nil
	}
	return &id
}

// failingReader surfaces a multipart open error through the per-file
// isolation path instead of aborting the batch.
type failingReader struct{ err error }

func (r failingReader) Read([]byte) (int, error) { return 0, r.err }
