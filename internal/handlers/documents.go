package handlers

import (
	"github.com/gofiber/fiber/v2"
	"github.com/jmoiron/sqlx"
	"github.com/rs/zerolog"

	"github.com/districtcms/backend/internal/apperr"
	"github.com/districtcms/backend/internal/documents"
	"github.com/districtcms/backend/internal/repository"
	"github.com/districtcms/backend/pkg/models"
	"github.com/districtcms/backend/pkg/search"
)

// DocumentHandler implements document replace/strike and attachment
// promotion, best-effort mirroring every mutation into the search index.
type DocumentHandler struct {
	db     *sqlx.DB
	docs   *documents.Service
	search *search.Client
	logger zerolog.Logger
}

// NewDocumentHandler builds a DocumentHandler.
func NewDocumentHandler(db *sqlx.DB, docs *documents.Service, searchClient *search.Client, logger zerolog.Logger) *DocumentHandler {
	return &DocumentHandler{db: db, docs: docs, search: searchClient, logger: logger}
}

// Get fetches a single document.
func (h *DocumentHandler) Get(c *fiber.Ctx) error {
	courtID, _, err := requireCourtRole(c)
	if err != nil {
		return err
	}
	id, err := c.ParamsInt("id")
	if err != nil {
		return apperr.New(apperr.KindBadRequest, "invalid document id")
	}
	d, err := repository.GetDocument(c.Context(), h.db, courtID, int64(id))
	if err != nil {
		return err
	}
	return c.JSON(d)
}

type replaceDocumentRequest struct {
	StorageKey    string `json:"storage_key"`
	FileSize      int64  `json:"file_size"`
	ContentType   string `json:"content_type"`
	Checksum      string `json:"checksum"`
	Title         string `json:"title"`
	DocumentType  string `json:"document_type"`
	DocketEntryID int64  `json:"docket_entry_id"`
}

// Replace applies the grace-period overwrite-or-strike-and-replace rule.
func (h *DocumentHandler) Replace(c *fiber.Ctx) error {
	courtID, role, err := requireCourtRole(c)
	if err != nil {
		return err
	}
	id, err := c.ParamsInt("id")
	if err != nil {
		return apperr.New(apperr.KindBadRequest, "invalid document id")
	}

	var req replaceDocumentRequest
	if err := c.BodyParser(&req); err != nil {
		return apperr.New(apperr.KindBadRequest, "invalid request body")
	}
	if req.StorageKey == "" || req.ContentType == "" || req.Checksum == "" {
		return apperr.Validation(map[string]string{"storage_key/content_type/checksum": "required"})
	}

	result, err := h.docs.Replace(c.Context(), courtID, role, int64(id), documents.ReplaceInput{
		StorageKey:    req.StorageKey,
		FileSize:      req.FileSize,
		ContentType:   req.ContentType,
		Checksum:      req.Checksum,
		Title:         req.Title,
		DocumentType:  req.DocumentType,
		DocketEntryID: req.DocketEntryID,
	})
	if err != nil {
		return err
	}

	h.reindex(c, result)
	return c.JSON(result)
}

// Strike withdraws a document without a replacement.
func (h *DocumentHandler) Strike(c *fiber.Ctx) error {
	courtID, role, err := requireCourtRole(c)
	if err != nil {
		return err
	}
	id, err := c.ParamsInt("id")
	if err != nil {
		return apperr.New(apperr.KindBadRequest, "invalid document id")
	}

	if err := h.docs.Strike(c.Context(), courtID, role, int64(id)); err != nil {
		return err
	}

	if h.search != nil {
		if err := h.search.DeleteDocument(c.Context(), courtID, int64(id)); err != nil {
			h.logger.Warn().Err(err).Int64("document_id", int64(id)).Msg("search delete failed")
		}
	}
	return c.JSON(fiber.Map{"status": "stricken"})
}

type promoteAttachmentRequest struct {
	DocketEntryID int64  `json:"docket_entry_id"`
	AttachmentID  int64  `json:"attachment_id"`
	Title         string `json:"title"`
	DocumentType  string `json:"document_type"`
}

// PromoteAttachment turns a staged attachment into the case's canonical
// document. Clerk role or higher is required.
func (h *DocumentHandler) PromoteAttachment(c *fiber.Ctx) error {
	courtID, role, err := requireCourtRole(c)
	if err != nil {
		return err
	}
	if !role.AtLeast(models.RoleClerk) {
		return apperr.New(apperr.KindForbidden, "clerk role or higher required")
	}

	var req promoteAttachmentRequest
	if err := c.BodyParser(&req); err != nil {
		return apperr.New(apperr.KindBadRequest, "invalid request body")
	}
	if req.Title == "" || req.DocumentType == "" {
		return apperr.Validation(map[string]string{"title/document_type": "required"})
	}

	result, err := h.docs.PromoteAttachment(c.Context(), courtID, req.DocketEntryID, req.AttachmentID, req.Title, req.DocumentType)
	if err != nil {
		return err
	}

	h.reindex(c, result)
	return c.Status(fiber.StatusCreated).JSON(result)
}

// reindex mirrors a document's current metadata into the search index.
// Indexing failure is logged and swallowed: the write already committed,
// and a missed index update is repaired by the next mutation or a reindex
// sweep, not by failing the request that triggered it.
func (h *DocumentHandler) reindex(c *fiber.Ctx, d models.Document) {
	if h.search == nil {
		return
	}
	err := h.search.IndexDocument(c.Context(), search.DocumentRecord{
		ID:           d.ID,
		CourtID:      d.CourtID,
		CaseID:       d.CaseID,
		Title:        d.Title,
		DocumentType: d.DocumentType,
		IsStricken:   d.IsStricken,
		CreatedAt:    d.CreatedAt,
	})
	if err != nil {
		h.logger.Warn().Err(err).Int64("document_id", d.ID).Msg("search index failed")
	}
}
