// Package documents implements the document lifecycle: grace-period
// in-place replacement, strike-and-replace past the grace period, striking
// without a replacement, and the auto-linking rule that keeps a docket
// entry's document_id pointed at the active document.
package documents

import (
	"context"
	"time"

	"github.com/jmoiron/sqlx"

	"github.com/districtcms/backend/internal/apperr"
	"github.com/districtcms/backend/internal/repository"
	"github.com/districtcms/backend/pkg/models"
)

// Service applies the lifecycle rules to a court's documents. GracePeriod
// comes from internal/config's DOCUMENT_GRACE_PERIOD (default 10 minutes).
type Service struct {
	db          *sqlx.DB
	GracePeriod time.Duration
}

// NewService builds a Service.
func NewService(db *sqlx.DB, gracePeriod time.Duration) *Service {
	return &Service{db: db, GracePeriod: gracePeriod}
}

// ReplaceInput carries the new file's storage fields. DocketEntryID links
// the document that replaces id back to its docket entry, used only when
// the grace period has elapsed and a new document row is created.
type ReplaceInput struct {
	StorageKey    string
	FileSize      int64
	ContentType   string
	Checksum      string
	Title         string
	DocumentType  string
	DocketEntryID int64
}

// Replace applies the grace-period rule: an in-place overwrite within
// GracePeriod of the original's creation, or a strike-and-replace past it.
// role must be clerk or higher; attorneys are rejected.
func (s *Service) Replace(ctx context.Context, courtID models.CourtID, role models.Role, id int64, in ReplaceInput) (models.Document, error) {
	if !role.AtLeast(models.RoleClerk) {
		return models.Document{}, apperr.New(apperr.KindForbidden, "clerk role or higher required")
	}

	existing, err := repository.GetDocument(ctx, s.db, courtID, id)
	if err != nil {
		return models.Document{}, err
	}
	if existing.IsStricken || existing.ReplacedByDocumentID != nil {
		return models.Document{}, apperr.New(apperr.KindBadRequest, "document has already been replaced or stricken")
	}

	if time.Since(existing.CreatedAt) <= s.GracePeriod {
		return repository.UpdateDocumentInPlace(ctx, s.db, courtID, id, in.StorageKey, in.FileSize, in.ContentType, in.Checksum)
	}

	var result models.Document
	err = repository.WithTx(ctx, s.db, func(tx *sqlx.Tx) error {
		created, err := repository.ReplaceWithNewDocument(ctx, tx, courtID, id, models.Document{
			CourtID:      courtID,
			CaseID:       existing.CaseID,
			Title:        in.Title,
			DocumentType: in.DocumentType,
			StorageKey:   in.StorageKey,
			FileSize:     in.FileSize,
			ContentType:  in.ContentType,
			Checksum:     in.Checksum,
		})
		if err != nil {
			return err
		}
		if err := repository.LinkDocument(ctx, tx, courtID, in.DocketEntryID, created.ID); err != nil {
			return err
		}
		result = created
		return nil
	})
	if err != nil {
		return models.Document{}, err
	}
	return result, nil
}

// Strike marks a document stricken with no replacement. role must be clerk
// or higher.
func (s *Service) Strike(ctx context.Context, courtID models.CourtID, role models.Role, id int64) error {
	if !role.AtLeast(models.RoleClerk) {
		return apperr.New(apperr.KindForbidden, "clerk role or higher required")
	}
	return repository.StrikeDocument(ctx, s.db, courtID, id)
}

// PromoteAttachment turns a staged attachment into the case's canonical
// document and links it to its docket entry. Idempotent: calling it again
// for an attachment that already has a document returns that document
// rather than creating a duplicate.
func (s *Service) PromoteAttachment(ctx context.Context, courtID models.CourtID, docketEntryID, attachmentID int64, title, documentType string) (models.Document, error) {
	if existing, err := repository.GetDocumentByAttachment(ctx, s.db, courtID, attachmentID); err != nil {
		return models.Document{}, err
	} else if existing != nil {
		return *existing, nil
	}

	attachment, err := repository.GetAttachment(ctx, s.db, courtID, attachmentID)
	if err != nil {
		return models.Document{}, err
	}
	if attachment.UploadedAt == nil {
		return models.Document{}, apperr.New(apperr.KindBadRequest, "attachment has not finished uploading")
	}

	entry, err := repository.GetDocketEntry(ctx, s.db, courtID, docketEntryID)
	if err != nil {
		return models.Document{}, err
	}

	var result models.Document
	err = repository.WithTx(ctx, s.db, func(tx *sqlx.Tx) error {
		created, err := repository.CreateDocument(ctx, tx, models.Document{
			CourtID:            courtID,
			CaseID:             entry.CaseID,
			Title:              title,
			DocumentType:       documentType,
			StorageKey:         attachment.StorageKey,
			FileSize:           attachment.FileSize,
			ContentType:        attachment.ContentType,
			Checksum:           attachment.SHA256,
			SourceAttachmentID: &attachment.ID,
		})
		if err != nil {
			return err
		}
		if err := repository.LinkDocument(ctx, tx, courtID, docketEntryID, created.ID); err != nil {
			return err
		}
		result = created
		return nil
	})
	if err != nil {
		return models.Document{}, err
	}
	return result, nil
}
