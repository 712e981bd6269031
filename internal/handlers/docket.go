package handlers

import (
	"encoding/hex"

	"github.com/gofiber/fiber/v2"
	"github.com/jmoiron/sqlx"

	"github.com/districtcms/backend/internal/apperr"
	"github.com/districtcms/backend/internal/repository"
	"github.com/districtcms/backend/pkg/models"
	"github.com/districtcms/backend/pkg/storage"
)

// DocketHandler implements single docket entry lookup and the attachment
// presign/confirm-upload/download cycle.
type DocketHandler struct {
	db      *sqlx.DB
	storage *storage.Provider
}

// NewDocketHandler builds a DocketHandler.
func NewDocketHandler(db *sqlx.DB, storageProvider *storage.Provider) *DocketHandler {
	return &DocketHandler{db: db, storage: storageProvider}
}

// Get fetches a single docket entry.
func (h *DocketHandler) Get(c *fiber.Ctx) error {
	courtID, _, err := requireCourtRole(c)
	if err != nil {
		return err
	}
	id, err := c.ParamsInt("id")
	if err != nil {
		return apperr.New(apperr.KindBadRequest, "invalid docket entry id")
	}
	e, err := repository.GetDocketEntry(c.Context(), h.db, courtID, int64(id))
	if err != nil {
		return err
	}
	return c.JSON(e)
}

type presignUploadRequest struct {
	Filename    string `json:"filename"`
	ContentType string `json:"content_type"`
}

// PresignUpload stages an attachment slot for a docket entry and returns a
// presigned PUT for the client to upload its bytes to directly.
func (h *DocketHandler) PresignUpload(c *fiber.Ctx) error {
	courtID, role, err := requireCourtRole(c)
	if err != nil {
		return err
	}
	if !role.AtLeast(models.RoleAttorney) {
		return apperr.New(apperr.KindForbidden, "attorney role or higher required")
	}
	entryID, err := c.ParamsInt("id")
	if err != nil {
		return apperr.New(apperr.KindBadRequest, "invalid docket entry id")
	}

	var req presignUploadRequest
	if err := c.BodyParser(&req); err != nil {
		return apperr.New(apperr.KindBadRequest, "invalid request body")
	}
	if req.Filename == "" || req.ContentType == "" {
		return apperr.Validation(map[string]string{"filename/content_type": "required"})
	}

	if _, err := repository.GetDocketEntry(c.Context(), h.db, courtID, int64(entryID)); err != nil {
		return err
	}

	key := storage.AttachmentKey(string(courtID), int64(entryID), req.Filename)
	presigned, err := h.storage.PresignUpload(c.Context(), key, req.ContentType)
	if err != nil {
		return err
	}

	attachment, err := repository.CreateAttachment(c.Context(), h.db, models.DocketAttachment{
		CourtID:       courtID,
		DocketEntryID: int64(entryID),
		Filename:      req.Filename,
		StorageKey:    key,
		ContentType:   req.ContentType,
	})
	if err != nil {
		return err
	}

	return c.Status(fiber.StatusCreated).JSON(fiber.Map{
		"attachment": attachment,
		"upload": fiber.Map{
			"url":        presigned.URL,
			"headers":    presigned.Headers,
			"expires_at": presigned.ExpiresAt,
		},
	})
}

type confirmUploadRequest struct {
	FileSize int64  `json:"file_size"`
	SHA256   string `json:"sha256"`
}

// ConfirmUpload marks a staged attachment as uploaded once the client has
// finished the presigned PUT.
func (h *DocketHandler) ConfirmUpload(c *fiber.Ctx) error {
	courtID, role, err := requireCourtRole(c)
	if err != nil {
		return err
	}
	if !role.AtLeast(models.RoleAttorney) {
		return apperr.New(apperr.KindForbidden, "attorney role or higher required")
	}
	attachmentID, err := c.ParamsInt("attachmentId")
	if err != nil {
		return apperr.New(apperr.KindBadRequest, "invalid attachment id")
	}

	var req confirmUploadRequest
	if err := c.BodyParser(&req); err != nil {
		return apperr.New(apperr.KindBadRequest, "invalid request body")
	}
	if req.FileSize <= 0 || req.SHA256 == "" {
		return apperr.Validation(map[string]string{"file_size/sha256": "required"})
	}
	if _, err := hex.DecodeString(req.SHA256); err != nil || len(req.SHA256) != 64 {
		return apperr.Validation(map[string]string{"sha256": "must be a 64-character hex digest"})
	}

	attachment, err := repository.MarkUploaded(c.Context(), h.db, courtID, int64(attachmentID), req.FileSize, req.SHA256)
	if err != nil {
		return err
	}
	return c.JSON(attachment)
}

// DownloadURL returns a presigned GET for an uploaded attachment's bytes.
func (h *DocketHandler) DownloadURL(c *fiber.Ctx) error {
	courtID, _, err := requireCourtRole(c)
	if err != nil {
		return err
	}
	attachmentID, err := c.ParamsInt("attachmentId")
	if err != nil {
		return apperr.New(apperr.KindBadRequest, "invalid attachment id")
	}

	attachment, err := repository.GetAttachment(c.Context(), h.db, courtID, int64(attachmentID))
	if err != nil {
		return err
	}
	if attachment.UploadedAt == nil {
		return apperr.New(apperr.KindConflict, "upload has not been confirmed yet")
	}

	url, err := h.storage.PresignDownload(c.Context(), attachment.StorageKey)
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"url": url, "expires_at": storage.DownloadTTL.String()})
}
